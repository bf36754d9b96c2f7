// Package crypto holds the signing, hashing and key handling primitives used by ledger packets
// and identity documents.
//
// Packets are canonicalised per RFC 8785 (gowebpki/jcs) and signed as EdDSA JWS compact
// serialisations (go-jose/v4). Message ids are CIDv1 raw sha2-256 content identifiers.
// Keys are exchanged as JWKs (lestrrat-go/jwx/v3).
package crypto
