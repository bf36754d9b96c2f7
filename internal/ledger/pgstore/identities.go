package pgstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jmcanterafonseca-iota/iota-anchor-channels/internal/identity"
)

var _ identity.Registry = (*Store)(nil)

// PutDocument stores a verified DID document, replacing any previous version.
func (s *Store) PutDocument(ctx context.Context, doc *identity.Document) error {
	if err := doc.Verify(); err != nil {
		return err
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return identity.NewRuntimeError(err, "failed to encode document")
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO identities (did, document, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (did) DO UPDATE SET document = EXCLUDED.document, updated_at = EXCLUDED.updated_at`,
		doc.ID, raw, time.Now().UTC())
	if err != nil {
		return identity.NewRuntimeError(err, "database error")
	}
	return nil
}

func (s *Store) GetDocument(ctx context.Context, did string) (*identity.Document, error) {
	if err := identity.ValidateDID(did); err != nil {
		return nil, err
	}

	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT document FROM identities WHERE did = $1`, did).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, identity.NewDIDNotFoundError(nil, did)
	}
	if err != nil {
		return nil, identity.NewRuntimeError(err, "database error")
	}

	var doc identity.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, identity.NewRuntimeError(err, "failed to decode document")
	}
	return &doc, nil
}
