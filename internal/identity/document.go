package identity

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/lestrrat-go/jwx/v3/jwk"

	"github.com/jmcanterafonseca-iota/iota-anchor-channels/internal/crypto"
)

// MethodTypeJWK is the only verification method type accepted in documents
const MethodTypeJWK = "JsonWebKey2020"

// DefaultContext is set on documents created with NewDocument
const DefaultContext = "https://www.w3.org/ns/did/v1"

var didPattern = regexp.MustCompile(`^did:[a-z0-9]+:[A-Za-z0-9._%-]+(:[A-Za-z0-9._%-]+)*$`)

// ValidateDID checks the generic did:<method>:<id> syntax.
func ValidateDID(did string) error {
	if !didPattern.MatchString(did) {
		return NewInvalidDIDError(did)
	}
	return nil
}

// SplitMethodRef splits a verification method reference (did:example:123#key-1)
// into its DID and fragment.
func SplitMethodRef(ref string) (did, fragment string, err error) {
	did, fragment, found := strings.Cut(ref, "#")
	if !found || fragment == "" {
		return "", "", NewInvalidDIDMethodError(ref)
	}
	if err := ValidateDID(did); err != nil {
		return "", "", err
	}
	return did, fragment, nil
}

// VerificationMethod is a public key published in a DID document
type VerificationMethod struct {
	ID           string          `json:"id"`
	Type         string          `json:"type"`
	Controller   string          `json:"controller"`
	PublicKeyJWK json.RawMessage `json:"publicKeyJwk"`
}

// PublicKey parses the method key. Only Ed25519 public keys are supported.
// The returned key carries the method id as kid.
func (m *VerificationMethod) PublicKey() (jwk.Key, error) {
	key, err := jwk.ParseKey(m.PublicKeyJWK)
	if err != nil {
		return nil, NewNotSupportedSignatureError(fmt.Sprintf("method %s: unreadable publicKeyJwk", m.ID))
	}
	if private, err := jwk.IsPrivateKey(key); err != nil || private {
		return nil, NewNotSupportedSignatureError(fmt.Sprintf("method %s: publicKeyJwk must be an asymmetric public key", m.ID))
	}
	pub, err := crypto.Ed25519JWKToPublicKey(key)
	if err != nil {
		return nil, NewNotSupportedSignatureError(fmt.Sprintf("method %s: only Ed25519 keys are supported", m.ID))
	}
	out, err := crypto.Ed25519PublicKeyToJWK(pub, m.ID)
	if err != nil {
		return nil, NewRuntimeError(err, "failed to build method key")
	}
	return out, nil
}

// Document is a DID document as stored by the node identity plugin
type Document struct {
	Context            []string             `json:"@context,omitempty"`
	ID                 string               `json:"id"`
	VerificationMethod []VerificationMethod `json:"verificationMethod"`
	AssertionMethod    []string             `json:"assertionMethod,omitempty"`
	Authentication     []string             `json:"authentication,omitempty"`
}

// NewDocument returns an empty document for did.
func NewDocument(did string) (*Document, error) {
	if err := ValidateDID(did); err != nil {
		return nil, err
	}
	return &Document{Context: []string{DefaultContext}, ID: did}, nil
}

// ParseDocument decodes and verifies a JSON DID document.
func ParseDocument(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, NewDIDNotVerifiedError(err, "")
	}
	if err := doc.Verify(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// AddMethod publishes the public part of key as the verification method did#fragment.
// The method is referenced from assertionMethod and authentication.
func (d *Document) AddMethod(fragment string, key jwk.Key) (*VerificationMethod, error) {
	if fragment == "" || strings.ContainsAny(fragment, "#/?") {
		return nil, NewInvalidDIDMethodError(fragment)
	}
	id := d.ID + "#" + fragment
	if _, err := d.ResolveMethod(id); err == nil {
		return nil, NewError(ErrCodeInvalidDIDMethod, "method already exists: "+id)
	}

	pub, err := crypto.Ed25519JWKToPublicKey(key)
	if err != nil {
		return nil, NewNotSupportedSignatureError("only Ed25519 keys are supported")
	}
	pubKey, err := crypto.Ed25519PublicKeyToJWK(pub, id)
	if err != nil {
		return nil, NewRuntimeError(err, "failed to build method key")
	}
	raw, err := json.Marshal(pubKey)
	if err != nil {
		return nil, NewRuntimeError(err, "failed to encode method key")
	}

	d.VerificationMethod = append(d.VerificationMethod, VerificationMethod{
		ID:           id,
		Type:         MethodTypeJWK,
		Controller:   d.ID,
		PublicKeyJWK: raw,
	})
	d.AssertionMethod = append(d.AssertionMethod, id)
	d.Authentication = append(d.Authentication, id)
	return &d.VerificationMethod[len(d.VerificationMethod)-1], nil
}

// ResolveMethod finds a verification method by full id (did#fragment) or by fragment.
func (d *Document) ResolveMethod(ref string) (*VerificationMethod, error) {
	id := ref
	if !strings.Contains(ref, "#") {
		id = d.ID + "#" + ref
	}
	for i := range d.VerificationMethod {
		if d.VerificationMethod[i].ID == id {
			return &d.VerificationMethod[i], nil
		}
	}
	return nil, NewInvalidDIDMethodError(ref)
}

// Verify checks the integrity of the document: every method belongs to the DID,
// is controlled by it and carries a usable public key, and every relationship
// references an existing method.
func (d *Document) Verify() error {
	if err := ValidateDID(d.ID); err != nil {
		return NewDIDNotVerifiedError(err, d.ID)
	}
	if len(d.VerificationMethod) == 0 {
		return NewDIDNotVerifiedError(fmt.Errorf("no verification methods"), d.ID)
	}

	seen := make(map[string]bool, len(d.VerificationMethod))
	for i := range d.VerificationMethod {
		m := &d.VerificationMethod[i]
		did, _, err := SplitMethodRef(m.ID)
		if err != nil || did != d.ID {
			return NewDIDNotVerifiedError(fmt.Errorf("method %q does not belong to the DID", m.ID), d.ID)
		}
		if seen[m.ID] {
			return NewDIDNotVerifiedError(fmt.Errorf("duplicate method %q", m.ID), d.ID)
		}
		seen[m.ID] = true
		if m.Controller != d.ID {
			return NewDIDNotVerifiedError(fmt.Errorf("method %q has controller %q", m.ID, m.Controller), d.ID)
		}
		if m.Type != MethodTypeJWK {
			return NewDIDNotVerifiedError(fmt.Errorf("method %q has unsupported type %q", m.ID, m.Type), d.ID)
		}
		if _, err := m.PublicKey(); err != nil {
			return NewDIDNotVerifiedError(err, d.ID)
		}
	}

	for _, ref := range append(append([]string(nil), d.AssertionMethod...), d.Authentication...) {
		if !seen[ref] {
			return NewDIDNotVerifiedError(fmt.Errorf("relationship references unknown method %q", ref), d.ID)
		}
	}
	return nil
}

// KeySet returns the public keys of the document as a JWK set, keyed by method id.
func (d *Document) KeySet() (jwk.Set, error) {
	set := jwk.NewSet()
	for i := range d.VerificationMethod {
		key, err := d.VerificationMethod[i].PublicKey()
		if err != nil {
			return nil, err
		}
		if err := set.AddKey(key); err != nil {
			return nil, NewRuntimeError(err, "failed to build key set")
		}
	}
	return set, nil
}
