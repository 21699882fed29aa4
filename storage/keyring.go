package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/99designs/keyring"
	"github.com/ruteri/secret-service/interfaces"
	"github.com/ruteri/secret-service/secretservice"
)

// KeyringSource imports the entries of an OS or file keyring as one collection.
// Each entry becomes an item with attributes {"key", "label"} and the entry
// data as its secret. Keys that sanitize to the same item identifier are told
// apart by a numeric suffix in key order.
type KeyringSource struct {
	ring         keyring.Keyring
	serviceName  string
	collectionID string
	locked       bool
	log          *slog.Logger
}

// NewKeyringSource wraps an opened keyring.
func NewKeyringSource(ring keyring.Keyring, serviceName, collectionID string, locked bool, log *slog.Logger) *KeyringSource {
	if collectionID == "" {
		collectionID = secretservice.SanitizeIdentifier(serviceName)
	}
	return &KeyringSource{
		ring:         ring,
		serviceName:  serviceName,
		collectionID: collectionID,
		locked:       locked,
		log:          log,
	}
}

// OpenKeyringSource opens the keyring backend for serviceName and wraps it.
// For the file backend, dir holds the encrypted entries and password unlocks them.
func OpenKeyringSource(serviceName string, backend keyring.BackendType, dir, password, collectionID string, locked bool, log *slog.Logger) (*KeyringSource, error) {
	cfg := keyring.Config{
		ServiceName:     serviceName,
		AllowedBackends: []keyring.BackendType{backend},
	}
	if backend == keyring.FileBackend {
		cfg.FileDir = dir
		cfg.FilePasswordFunc = keyring.FixedStringPrompt(password)
	}

	ring, err := keyring.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open keyring %q: %w", serviceName, err)
	}
	return NewKeyringSource(ring, serviceName, collectionID, locked, log), nil
}

// Load reads every entry, ordered by key.
func (s *KeyringSource) Load(ctx context.Context) ([]interfaces.CollectionSpec, error) {
	keys, err := s.ring.Keys()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrSourceUnavailable, err)
	}
	sort.Strings(keys)

	collection := interfaces.CollectionSpec{
		ID:     s.collectionID,
		Label:  s.serviceName,
		Locked: s.locked,
	}
	ids := make(itemIDs, len(keys))
	for _, key := range keys {
		entry, err := s.ring.Get(key)
		if errors.Is(err, keyring.ErrKeyNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read keyring entry %q: %w", key, err)
		}

		label := entry.Label
		if label == "" {
			label = key
		}
		collection.Items = append(collection.Items, interfaces.ItemSpec{
			ID:         ids.next(key),
			Label:      label,
			Attributes: map[string]string{"key": key, "label": label},
			Secret:     string(entry.Data),
		})
	}

	s.log.Debug("Loaded collection from keyring",
		slog.String("service", s.serviceName),
		slog.Int("items", len(collection.Items)))

	return []interfaces.CollectionSpec{collection}, nil
}

// Available checks that the keyring can be enumerated.
func (s *KeyringSource) Available(ctx context.Context) bool {
	if _, err := s.ring.Keys(); err != nil {
		s.log.Debug("Keyring source unavailable", "err", err)
		return false
	}
	return true
}

// Name returns a unique identifier for this source.
func (s *KeyringSource) Name() string {
	return fmt.Sprintf("keyring-%s", s.serviceName)
}

// LocationURI returns the URI that identifies this source.
func (s *KeyringSource) LocationURI() string {
	return fmt.Sprintf("keyring://%s?collection=%s", s.serviceName, s.collectionID)
}
