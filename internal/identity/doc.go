// Package identity resolves DID documents published through the node identity plugin
// and signs and verifies verifiable presentations encoded as JWTs.
//
// Documents carry Ed25519 verification methods as public JWKs (JsonWebKey2020).
// The node serves each document at /identities/{did} and its keys as a JWK set at
// /identities/{did}/jwks.json, which is what presentation verifiers cache.
//
// Errors are IdentityErrors whose codes (DID_Not_Found, Invalid_Signing_Key, ...) are
// returned unchanged by the node to its clients.
package identity
