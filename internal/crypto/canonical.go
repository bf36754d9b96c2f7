// packets and identity challenges are canonicalised per RFC 8785 before hashing or signing
// this implementation uses the gowebpki/jcs library to perform this canonicalization
package crypto

import (
	"encoding/json"

	"github.com/gowebpki/jcs"
)

// CanonicalizeJSON converts JSON to canonical form per RFC 8785
//
// If the input is not valid JSON, an error is returned (handled by jcs library).
func CanonicalizeJSON(jsonData []byte) ([]byte, error) {
	out, err := jcs.Transform(jsonData)
	if err != nil {
		return nil, WrapValidationError(err, "failed to canonicalize JSON")
	}
	return out, nil
}

// Canonicalize marshals v and returns its RFC 8785 canonical form.
func Canonicalize(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, WrapValidationError(err, "failed to marshal value")
	}
	return CanonicalizeJSON(raw)
}
