// Package node provides the HTTP server of the ledger node (tangle-node).
//
// the server is configured through environment variables
// (see internal/config/config.go for details)
//
// The package includes the handlers for
//   - the ledger API under /api/v1/channels (create, subscribe, publish, get and list messages)
//   - the identity plugin under /identities (DID documents and their JWK sets)
//   - the infrastructure endpoints (health, readiness, version)
//
// middleware is in internal/node/middleware and the wire types in internal/node/api.
package node
