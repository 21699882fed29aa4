package storage

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/vault/api"
	"github.com/ruteri/secret-service/interfaces"
	"github.com/ruteri/secret-service/secretservice"
)

// VaultSource turns one HashiCorp Vault KV v2 secret into a collection. Every
// key of the secret becomes an item with attributes {"key": <key>} holding the
// value as its secret. Colliding item identifiers get a numeric suffix as in
// KeyringSource.
type VaultSource struct {
	client       *api.Client
	mountPath    string
	dataPath     string
	collectionID string
	locked       bool
	log          *slog.Logger
	locationURI  string
}

// VaultOptions configures a VaultSource.
type VaultOptions struct {
	// Address is the Vault server address, e.g. https://vault.example.com:8200.
	Address string
	// MountPath is the KV v2 mount, e.g. "secret".
	MountPath string
	// DataPath is the secret path within the mount.
	DataPath string
	// Collection is the identifier of the resulting collection. Defaults to the
	// last element of DataPath.
	Collection string
	// Locked creates the collection locked.
	Locked bool
	// Token authenticates requests. When empty, VAULT_TOKEN is used.
	Token string
	// ClientCert, when set, is presented for TLS client certificate authentication.
	ClientCert *tls.Certificate
}

// NewVaultSource creates a Vault collection source.
func NewVaultSource(opts VaultOptions, log *slog.Logger) (*VaultSource, error) {
	config := api.DefaultConfig()
	config.Address = opts.Address
	if opts.ClientCert != nil {
		config.HttpClient = &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{Certificates: []tls.Certificate{*opts.ClientCert}},
			},
			Timeout: 30 * time.Second,
		}
	}

	client, err := api.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vault client: %w", err)
	}
	if opts.Token != "" {
		client.SetToken(opts.Token)
	}

	mountPath := strings.Trim(opts.MountPath, "/")
	dataPath := strings.Trim(opts.DataPath, "/")
	if mountPath == "" || dataPath == "" {
		return nil, fmt.Errorf("vault source needs both a mount and a secret path")
	}

	collectionID := opts.Collection
	if collectionID == "" {
		collectionID = secretservice.SanitizeIdentifier(dataPath[strings.LastIndex(dataPath, "/")+1:])
	}

	return &VaultSource{
		client:       client,
		mountPath:    mountPath,
		dataPath:     dataPath,
		collectionID: collectionID,
		locked:       opts.Locked,
		log:          log,
		locationURI:  fmt.Sprintf("vault://%s/%s/%s", hostOf(opts.Address), mountPath, dataPath),
	}, nil
}

// Load reads the secret and maps its keys to items, ordered by key.
func (s *VaultSource) Load(ctx context.Context) ([]interfaces.CollectionSpec, error) {
	start := time.Now()
	path := fmt.Sprintf("%s/data/%s", s.mountPath, s.dataPath)

	secret, err := s.client.Logical().ReadWithContext(ctx, path)
	if err != nil {
		s.log.Error("Failed to read from Vault", slog.String("path", path), "err", err)
		return nil, fmt.Errorf("%w: %v", interfaces.ErrSourceUnavailable, err)
	}
	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("%w: %s", interfaces.ErrSourceNotFound, path)
	}

	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("invalid data format in Vault response")
	}

	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	collection := interfaces.CollectionSpec{
		ID:     s.collectionID,
		Label:  s.dataPath,
		Locked: s.locked,
	}
	ids := make(itemIDs, len(keys))
	for _, k := range keys {
		value, ok := data[k].(string)
		if !ok {
			value = fmt.Sprint(data[k])
		}
		collection.Items = append(collection.Items, interfaces.ItemSpec{
			ID:         ids.next(k),
			Label:      k,
			Attributes: map[string]string{"key": k},
			Secret:     value,
		})
	}

	s.log.Info("Loaded collection from Vault",
		slog.String("path", path),
		slog.Int("items", len(collection.Items)),
		slog.Duration("duration", time.Since(start)))

	return []interfaces.CollectionSpec{collection}, nil
}

// Available uses the health endpoint to verify that Vault is initialized and unsealed.
func (s *VaultSource) Available(ctx context.Context) bool {
	health, err := s.client.Sys().HealthWithContext(ctx)
	if err != nil {
		s.log.Warn("Vault source unavailable", "err", err)
		return false
	}
	return health.Initialized && !health.Sealed
}

// Name returns a unique identifier for this source.
func (s *VaultSource) Name() string {
	return fmt.Sprintf("vault-%s-%s", s.mountPath, s.dataPath)
}

// LocationURI returns the URI that identifies this source.
func (s *VaultSource) LocationURI() string {
	return s.locationURI
}

func hostOf(address string) string {
	if _, rest, ok := strings.Cut(address, "://"); ok {
		return rest
	}
	return address
}
