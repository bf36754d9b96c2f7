// Package grpcnode carries the ledger node API over gRPC.
//
// The service (anchors.ledger.v1.Node) is described by hand with protobuf
// well-known wrapper types: every request and reply is the JSON body of the
// matching HTTP endpoint inside a BytesValue. Ledger error codes map to gRPC
// status codes (see mapErr) and back on the client.
package grpcnode
