// Package middleware holds the HTTP middleware of the ledger node: request logging,
// request size and rate limits, and security headers.
//
// Rejected requests are answered with the node's JSON error body (see api.ErrorResponse).
package middleware
