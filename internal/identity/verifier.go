package identity

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/lestrrat-go/httprc/v3"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jws"
	"github.com/lestrrat-go/jwx/v3/jwt"
)

// Verifier verifies presentations signed by DIDs registered on a node.
//
// The JWK set of every issuer seen is registered in a jwk.Cache and refreshed
// in the background, so repeated verifications do not hit the node.
type Verifier struct {
	cache    *jwk.Cache
	client   *http.Client
	resolver *Resolver
	logger   *slog.Logger

	// registration of a new key set URL is serialised
	mu sync.Mutex

	skew time.Duration
}

const registerTimeout = 10 * time.Second

// VerifyOptions are optional checks applied to the presentation claims
type VerifyOptions struct {
	Audience string
	Nonce    string
}

// NewVerifier creates the key set cache. The cache stops when ctx is cancelled.
func NewVerifier(ctx context.Context, client *http.Client, logger *slog.Logger) (*Verifier, error) {
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	cache, err := jwk.NewCache(ctx, httprc.NewClient())
	if err != nil {
		return nil, NewRuntimeError(err, "failed to create JWK cache")
	}
	return &Verifier{
		cache:    cache,
		client:   client,
		resolver: NewResolver(client),
		logger:   logger,
		skew:     30 * time.Second,
	}, nil
}

// VerifyPresentation checks the presentation signature against the key set published
// for its issuer on node, then validates the time based claims.
func (v *Verifier) VerifyPresentation(ctx context.Context, node, token string, opts VerifyOptions) (*Presentation, error) {
	unverified, err := jwt.ParseInsecure([]byte(token))
	if err != nil {
		return nil, NewInvalidDataTypeError(err, "invalid presentation JWT")
	}
	issuer, ok := unverified.Issuer()
	if !ok {
		return nil, NewInvalidDataTypeError(nil, "presentation has no issuer")
	}
	if err := ValidateDID(issuer); err != nil {
		return nil, err
	}

	// the issuer document must resolve and verify before its keys are trusted
	if _, err := v.resolver.Resolve(ctx, node, issuer); err != nil {
		return nil, err
	}

	keysURL, err := KeySetURL(node, issuer)
	if err != nil {
		return nil, err
	}
	set, err := v.keySet(ctx, keysURL)
	if err != nil {
		return nil, NewDIDNotFoundError(err, issuer)
	}

	parseOpts := []jwt.ParseOption{
		jwt.WithValidate(true),
		jwt.WithAcceptableSkew(v.skew),
		jwt.WithIssuer(issuer),
	}
	if opts.Audience != "" {
		parseOpts = append(parseOpts, jwt.WithAudience(opts.Audience))
	}
	if opts.Nonce != "" {
		parseOpts = append(parseOpts, jwt.WithClaimValue("nonce", opts.Nonce))
	}

	tok, err := jwt.Parse([]byte(token), append(parseOpts, jwt.WithKeySet(set, jws.WithInferAlgorithmFromKey(true)))...)
	if err != nil && !errors.Is(err, jwt.ValidateError()) {
		// the holder may have rotated its keys since the set was cached
		v.logger.Debug("presentation signature check failed, refreshing key set",
			slog.String("jwks_url", keysURL),
			slog.String("error", err.Error()))
		if set, rerr := v.cache.Refresh(ctx, keysURL); rerr == nil {
			tok, err = jwt.Parse([]byte(token), append(parseOpts, jwt.WithKeySet(set, jws.WithInferAlgorithmFromKey(true)))...)
		}
	}
	if err != nil {
		if errors.Is(err, jwt.ValidateError()) {
			return nil, NewInvalidDataTypeError(err, "presentation claims are not valid")
		}
		return nil, NewNotSignedError(err, "presentation is not signed by its issuer")
	}

	return presentationFromToken(tok, issuer)
}

// Close stops the background refresh of the cached key sets.
func (v *Verifier) Close(ctx context.Context) error {
	return v.cache.Shutdown(ctx)
}

func (v *Verifier) keySet(ctx context.Context, u string) (jwk.Set, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.cache.IsRegistered(ctx, u) {
		regCtx, cancel := context.WithTimeout(ctx, registerTimeout)
		defer cancel()
		err := v.cache.Register(regCtx, u,
			jwk.WithHTTPClient(v.client),
			jwk.WithMinInterval(time.Minute),
			jwk.WithMaxInterval(time.Hour),
			jwk.WithWaitReady(true),
		)
		if err != nil {
			_ = v.cache.Unregister(ctx, u)
			return nil, err
		}
		v.logger.Debug("registered DID key set", slog.String("jwks_url", u))
	}
	return v.cache.Lookup(ctx, u)
}

func presentationFromToken(tok jwt.Token, issuer string) (*Presentation, error) {
	p := &Presentation{Holder: issuer}
	p.ID, _ = tok.JwtID()
	p.Subject, _ = tok.Subject()
	p.Audience, _ = tok.Audience()
	p.IssuedAt, _ = tok.IssuedAt()
	p.Expiration, _ = tok.Expiration()
	_ = tok.Get("nonce", &p.Nonce)

	var vp map[string]any
	if err := tok.Get("vp", &vp); err != nil {
		return nil, NewInvalidDataTypeError(err, "the JWT does not contain a VP")
	}
	if holder, ok := vp["holder"].(string); ok && holder != issuer {
		return nil, NewInvalidDataTypeError(nil, "presentation holder does not match issuer")
	}
	if creds, ok := vp["verifiableCredential"].([]any); ok {
		for _, c := range creds {
			if s, ok := c.(string); ok {
				p.Credentials = append(p.Credentials, s)
			}
		}
	}
	return p, nil
}
