package identity

import (
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"
)

// DefaultPresentationTTL is the validity of presentations signed without an explicit TTL
const DefaultPresentationTTL = time.Hour

// Holder is the DID presenting the credential and the private key of one of its methods.
// The signing kid is MethodID (did#fragment); without MethodID the key's own kid is used.
type Holder struct {
	DID      string
	MethodID string
	Key      jwk.Key
}

// PresentationOptions tunes the claims of a signed presentation
type PresentationOptions struct {

	// ID of the presentation, also used as jti. A urn:uuid is generated when empty.
	ID string

	Audience []string
	Nonce    string

	// TTL defaults to DefaultPresentationTTL
	TTL time.Duration

	// Now defaults to time.Now
	Now func() time.Time
}

// Presentation is the content of a verified presentation token
type Presentation struct {
	ID          string
	Holder      string
	Subject     string
	Nonce       string
	Audience    []string
	Credentials []string
	IssuedAt    time.Time
	Expiration  time.Time
}

// SignPresentation wraps a credential (a VC encoded as a JWT) into a verifiable
// presentation signed by the holder, returned as a compact JWT.
func SignPresentation(vcJWT string, holder Holder, opts PresentationOptions) (string, error) {
	if err := ValidateDID(holder.DID); err != nil {
		return "", err
	}
	if holder.Key == nil {
		return "", NewInvalidSigningKeyError(nil)
	}

	subject, err := credentialSubject(vcJWT)
	if err != nil {
		return "", err
	}

	key, err := holderKey(holder)
	if err != nil {
		return "", err
	}

	id := opts.ID
	if id == "" {
		id = "urn:uuid:" + uuid.NewString()
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultPresentationTTL
	}
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	iat := now().Truncate(time.Second)

	vp := map[string]any{
		"id":                   id,
		"type":                 "VerifiablePresentation",
		"holder":               holder.DID,
		"verifiableCredential": []string{vcJWT},
	}

	b := jwt.NewBuilder().
		Issuer(holder.DID).
		Subject(subject).
		JwtID(id).
		IssuedAt(iat).
		NotBefore(iat).
		Expiration(iat.Add(ttl)).
		Claim("vp", vp)
	if len(opts.Audience) > 0 {
		b = b.Audience(opts.Audience)
	}
	if opts.Nonce != "" {
		b = b.Claim("nonce", opts.Nonce)
	}
	tok, err := b.Build()
	if err != nil {
		return "", NewRuntimeError(err, "failed to build presentation")
	}

	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.EdDSA(), key))
	if err != nil {
		return "", NewInvalidSigningKeyError(err)
	}
	return string(signed), nil
}

// credentialSubject returns vc.credentialSubject.id of the credential JWT.
// The credential signature is not checked.
func credentialSubject(vcJWT string) (string, error) {
	tok, err := jwt.ParseInsecure([]byte(vcJWT))
	if err != nil {
		return "", NewInvalidDataTypeError(err, "invalid VC JWT")
	}

	var vc map[string]any
	if err := tok.Get("vc", &vc); err != nil {
		return "", NewInvalidDataTypeError(err, "the JWT does not contain a VC")
	}
	cs, ok := vc["credentialSubject"].(map[string]any)
	if !ok {
		return "", NewInvalidDataTypeError(nil, "the VC has no credentialSubject")
	}
	subject, ok := cs["id"].(string)
	if !ok || subject == "" {
		return "", NewInvalidDataTypeError(nil, "the VC credentialSubject has no id")
	}
	return subject, nil
}

func holderKey(holder Holder) (jwk.Key, error) {
	key, err := holder.Key.Clone()
	if err != nil {
		return nil, NewInvalidSigningKeyError(err)
	}
	if holder.MethodID == "" {
		if kid, ok := key.KeyID(); ok && kid != "" {
			return key, nil
		}
		return nil, NewInvalidDIDMethodError("holder key has no kid and no method id was given")
	}
	methodDID, _, err := SplitMethodRef(holder.MethodID)
	if err != nil {
		return nil, err
	}
	if methodDID != holder.DID {
		return nil, NewInvalidDIDMethodError(holder.MethodID)
	}

	// verifiers select the key by method id
	if err := key.Set(jwk.KeyIDKey, holder.MethodID); err != nil {
		return nil, NewRuntimeError(err, "failed to set key id")
	}
	return key, nil
}
