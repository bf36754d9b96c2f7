package identity

import (
	"context"
	"encoding/json"
	"sync"
)

// Registry stores DID documents on the node. Documents are verified before they are stored.
//
// GetDocument returns a DID_Not_Found error for unknown DIDs.
type Registry interface {
	PutDocument(ctx context.Context, doc *Document) error
	GetDocument(ctx context.Context, did string) (*Document, error)
}

// MemoryRegistry is a Registry backed by a map. Documents are stored as JSON so
// callers never share state with the registry.
type MemoryRegistry struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{docs: make(map[string][]byte)}
}

func (r *MemoryRegistry) PutDocument(_ context.Context, doc *Document) error {
	if err := doc.Verify(); err != nil {
		return err
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return NewRuntimeError(err, "failed to encode document")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs[doc.ID] = raw
	return nil
}

func (r *MemoryRegistry) GetDocument(_ context.Context, did string) (*Document, error) {
	if err := ValidateDID(did); err != nil {
		return nil, err
	}

	r.mu.RLock()
	raw, ok := r.docs[did]
	r.mu.RUnlock()
	if !ok {
		return nil, NewDIDNotFoundError(nil, did)
	}

	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, NewRuntimeError(err, "failed to decode document")
	}
	return &doc, nil
}
