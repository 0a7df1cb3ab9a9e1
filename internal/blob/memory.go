package blob

import (
	"context"
	"sync"

	"github.com/MarcoPoloResearchLab/cloudvault/internal/ids"
)

const defaultMemoryBase = "memory://blobs"

// MemoryStore keeps blobs in process memory. It backs local development and tests.
type MemoryStore struct {
	mu         sync.RWMutex
	objects    map[string][]byte
	publicBase string
	ids        ids.Provider
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore(publicBase string, idProvider ids.Provider) *MemoryStore {
	if publicBase == "" {
		publicBase = defaultMemoryBase
	}
	if idProvider == nil {
		idProvider = ids.NewUUIDProvider()
	}
	return &MemoryStore{
		objects:    make(map[string][]byte),
		publicBase: publicBase,
		ids:        idProvider,
	}
}

func (s *MemoryStore) Upload(ctx context.Context, input UploadInput) (Object, error) {
	if err := ctx.Err(); err != nil {
		return Object{}, err
	}
	resource, externalID, key, err := prepare(input, s.ids)
	if err != nil {
		return Object{}, err
	}
	s.mu.Lock()
	s.objects[key] = append([]byte(nil), input.Data...)
	s.mu.Unlock()
	return Object{
		URL:          joinURL(s.publicBase, key),
		ExternalID:   externalID,
		ResourceType: resource.Type,
		Format:       resource.Format,
	}, nil
}

// Delete removes the blob; deleting an absent blob succeeds, as it does on S3.
func (s *MemoryStore) Delete(ctx context.Context, externalID, resourceType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key, err := objectKey(resourceType, externalID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.objects, key)
	s.mu.Unlock()
	return nil
}

// Lookup returns a copy of the stored bytes.
func (s *MemoryStore) Lookup(externalID, resourceType string) ([]byte, bool) {
	key, err := objectKey(resourceType, externalID)
	if err != nil {
		return nil, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), data...), true
}

// Len reports how many blobs are stored.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
