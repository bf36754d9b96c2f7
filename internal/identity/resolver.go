package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultTimeout is used by resolvers created without an HTTP client
const DefaultTimeout = 30 * time.Second

// IdentitiesPath is the route prefix of the node identity plugin
const IdentitiesPath = "/identities"

const maxDocumentBytes = 1 << 20

// errorBody holds the fields of the node error response used by the resolver
type errorBody struct {
	ErrorCode    string `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}

// nodeURL validates the node endpoint the identity plugin is served from.
func nodeURL(node string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimRight(node, "/"))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, NewInvalidNodeError(node)
	}
	return u, nil
}

// DocumentURL returns the identity plugin URL of the DID document.
func DocumentURL(node, did string) (string, error) {
	u, err := nodeURL(node)
	if err != nil {
		return "", err
	}
	return u.JoinPath(IdentitiesPath, did).String(), nil
}

// KeySetURL returns the identity plugin URL serving the DID verification keys as a JWK set.
func KeySetURL(node, did string) (string, error) {
	u, err := nodeURL(node)
	if err != nil {
		return "", err
	}
	return u.JoinPath(IdentitiesPath, did, "jwks.json").String(), nil
}

// Resolver resolves DID documents through the node identity plugin.
type Resolver struct {
	client *http.Client
}

// NewResolver returns a resolver using client, or a client with DefaultTimeout when nil.
func NewResolver(client *http.Client) *Resolver {
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	return &Resolver{client: client}
}

// Resolve fetches the DID document and verifies its integrity.
func (r *Resolver) Resolve(ctx context.Context, node, did string) (*Document, error) {
	if err := ValidateDID(did); err != nil {
		return nil, err
	}
	u, err := DocumentURL(node, did)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, NewRuntimeError(err, "failed to build request")
	}
	req.Header.Set("Accept", "application/json")

	body, err := r.do(req)
	if err != nil {
		return nil, NewDIDNotFoundError(err, did)
	}

	var doc Document
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, NewDIDNotVerifiedError(err, did)
	}
	if doc.ID != did {
		return nil, NewDIDNotVerifiedError(fmt.Errorf("document id %q does not match", doc.ID), did)
	}
	if err := doc.Verify(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// ResolveMethod resolves a verification method reference such as did:example:123#key-1.
func (r *Resolver) ResolveMethod(ctx context.Context, node, methodRef string) (*VerificationMethod, error) {
	did, _, err := SplitMethodRef(methodRef)
	if err != nil {
		return nil, err
	}
	doc, err := r.Resolve(ctx, node, did)
	if err != nil {
		return nil, err
	}
	m, err := doc.ResolveMethod(methodRef)
	if err != nil {
		return nil, NewDIDNotFoundError(err, methodRef)
	}
	return m, nil
}

// Register stores doc on the node, replacing any previous version.
func (r *Resolver) Register(ctx context.Context, node string, doc *Document) error {
	if err := doc.Verify(); err != nil {
		return err
	}
	u, err := DocumentURL(node, doc.ID)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return NewRuntimeError(err, "failed to encode document")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, u, bytes.NewReader(raw))
	if err != nil {
		return NewRuntimeError(err, "failed to build request")
	}
	req.Header.Set("Content-Type", "application/json")

	if _, err := r.do(req); err != nil {
		var idErr *IdentityError
		if errors.As(err, &idErr) {
			return err
		}
		return NewRuntimeError(err, "failed to register document")
	}
	return nil
}

// do sends req and returns the response body of a 2xx answer. Error bodies
// carrying an identity error code are turned back into IdentityErrors.
func (r *Resolver) do(req *http.Request) ([]byte, error) {
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return body, nil
	}

	var errResp errorBody
	if json.Unmarshal(body, &errResp) == nil && errResp.ErrorCode != "" {
		if isIdentityCode(ErrorCode(errResp.ErrorCode)) {
			return nil, NewError(ErrorCode(errResp.ErrorCode), errResp.ErrorMessage)
		}
		return nil, fmt.Errorf("node returned %d: %s", resp.StatusCode, errResp.ErrorMessage)
	}
	return nil, fmt.Errorf("node returned %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
}

func isIdentityCode(code ErrorCode) bool {
	switch code {
	case ErrCodeInvalidNode, ErrCodeInvalidDID, ErrCodeDIDNotFound, ErrCodeInvalidDIDMethod,
		ErrCodeDIDNotVerified, ErrCodeInvalidSigningKey, ErrCodeNotSupportedSignature,
		ErrCodeInvalidDataType, ErrCodeNotSigned, ErrCodeRuntime:
		return true
	}
	return false
}
