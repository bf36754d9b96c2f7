package identity

import (
	"encoding/json"

	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jws"

	"github.com/jmcanterafonseca-iota/iota-anchor-channels/internal/seed"
)

const challengeLength = 10

// VerifyOwnership checks that secret is the private key behind the verification method
// of doc. method is either a fragment (key-1) or a full reference (did:example:123#key-1).
//
// A random challenge is signed with secret and verified with the published method key.
func VerifyOwnership(doc *Document, method string, secret jwk.Key) error {
	m, err := doc.ResolveMethod(method)
	if err != nil {
		return NewInvalidDIDMethodError(method)
	}
	pub, err := m.PublicKey()
	if err != nil {
		return err
	}
	if secret == nil {
		return NewInvalidSigningKeyError(nil)
	}

	challenge, err := seed.Generate(challengeLength)
	if err != nil {
		return NewRuntimeError(err, "failed to generate challenge")
	}
	payload, err := json.Marshal(map[string]string{"testData": string(challenge)})
	if err != nil {
		return NewRuntimeError(err, "failed to encode challenge")
	}

	signed, err := jws.Sign(payload, jws.WithKey(jwa.EdDSA(), secret))
	if err != nil {
		return NewInvalidSigningKeyError(err)
	}
	if _, err := jws.Verify(signed, jws.WithKey(jwa.EdDSA(), pub)); err != nil {
		return NewInvalidSigningKeyError(err)
	}
	return nil
}
