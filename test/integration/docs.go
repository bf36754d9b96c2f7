// Package integration contains end-to-end tests for tangle-node.
//
// These tests run the anchoring channel client against a node started in-process on real
// TCP ports (HTTP and gRPC) backed by PostgreSQL. Each test runs against a temporary
// database with the migrations applied.
//
// These tests assume the ledger, anchors and identity packages are working correctly (tested
// separately). If bugs are introduced in lower-level packages, there will be cascading failures
// here - fix the low-level problems first.
package integration
