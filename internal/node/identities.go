package node

import (
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/jmcanterafonseca-iota/iota-anchor-channels/internal/identity"
	"github.com/jmcanterafonseca-iota/iota-anchor-channels/internal/logger"
	"github.com/jmcanterafonseca-iota/iota-anchor-channels/internal/node/api"
)

// didParam returns the {did} path parameter. Clients may percent-encode the DID.
func didParam(r *http.Request) (string, error) {
	did, err := url.PathUnescape(chi.URLParam(r, "did"))
	if err != nil {
		return "", identity.NewInvalidDIDError(chi.URLParam(r, "did"))
	}
	if err := identity.ValidateDID(did); err != nil {
		return "", err
	}
	return did, nil
}

// handlePutIdentity stores (or replaces) a DID document after verifying it.
//
//	PUT /identities/{did} -> 200 identity.Document
func (s *Server) handlePutIdentity(w http.ResponseWriter, r *http.Request) {
	did, err := didParam(r)
	if err != nil {
		api.RespondWithErrorResponse(w, r, err)
		return
	}

	var doc identity.Document
	if err := decodeJSON(r, &doc); err != nil {
		api.RespondWithErrorResponse(w, r, err)
		return
	}
	if doc.ID != did {
		api.RespondWithErrorResponse(w, r, identity.NewInvalidDIDError(doc.ID))
		return
	}

	if err := s.registry.PutDocument(r.Context(), &doc); err != nil {
		api.RespondWithErrorResponse(w, r, err)
		return
	}

	logger.ContextRequestLogger(r.Context()).Info("identity stored",
		slog.String("did", did),
		slog.Int("methods", len(doc.VerificationMethod)))

	api.RespondWithJSONPayload(w, http.StatusOK, &doc)
}

// handleGetIdentity returns the DID document.
//
//	GET /identities/{did} -> 200 identity.Document
func (s *Server) handleGetIdentity(w http.ResponseWriter, r *http.Request) {
	did, err := didParam(r)
	if err != nil {
		api.RespondWithErrorResponse(w, r, err)
		return
	}

	doc, err := s.registry.GetDocument(r.Context(), did)
	if err != nil {
		api.RespondWithErrorResponse(w, r, err)
		return
	}

	api.RespondWithJSONPayload(w, http.StatusOK, doc)
}

// handleGetIdentityKeys serves the verification methods of the DID as a JWK set,
// so presentation verifiers can cache them.
//
//	GET /identities/{did}/jwks.json -> 200 JWK set
func (s *Server) handleGetIdentityKeys(w http.ResponseWriter, r *http.Request) {
	did, err := didParam(r)
	if err != nil {
		api.RespondWithErrorResponse(w, r, err)
		return
	}

	doc, err := s.registry.GetDocument(r.Context(), did)
	if err != nil {
		api.RespondWithErrorResponse(w, r, err)
		return
	}
	set, err := doc.KeySet()
	if err != nil {
		api.RespondWithErrorResponse(w, r, err)
		return
	}

	w.Header().Set("Cache-Control", "public, max-age=300")
	api.RespondWithJSONPayload(w, http.StatusOK, set)
}
