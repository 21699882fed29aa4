package storage

import (
	"crypto/tls"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/99designs/keyring"
	"github.com/ruteri/secret-service/interfaces"
)

// SourceFactory creates collection sources from location URIs.
type SourceFactory struct {
	log *slog.Logger
}

// NewSourceFactory creates a new factory instance.
func NewSourceFactory(logger *slog.Logger) *SourceFactory {
	return &SourceFactory{log: logger}
}

// SourceFor creates a collection source from a location.
//
// Supported schemes:
//   - file:///path/to/collections.yaml
//   - s3://[ACCESS_KEY:SECRET_KEY@]bucket/key.yaml?region=us-east-1&endpoint=http://minio:9000
//   - vault://host:8200/mount/path?collection=id&locked=true&insecure=true&cert=c.pem&key=k.pem
//   - keyring://service?backend=file&dir=/path&password_env=VAR&collection=id&locked=true
func (sf *SourceFactory) SourceFor(location interfaces.SourceLocation) (interfaces.CollectionSource, error) {
	switch location.Scheme {
	case "file":
		return sf.createFileSource(location)
	case "s3":
		return sf.createS3Source(location)
	case "vault":
		return sf.createVaultSource(location)
	case "keyring":
		return sf.createKeyringSource(location)
	default:
		return nil, fmt.Errorf("%w: unsupported source scheme: %s", interfaces.ErrInvalidLocationURI, location.Scheme)
	}
}

// CreateMultiSource creates a merged source from a list of locations, skipping
// locations that cannot be turned into sources. Returns an error if none could.
func (sf *SourceFactory) CreateMultiSource(locations []interfaces.SourceLocation) (interfaces.CollectionSource, error) {
	sources := make([]interfaces.CollectionSource, 0, len(locations))

	for _, location := range locations {
		source, err := sf.SourceFor(location)
		if err != nil {
			sf.log.Warn("Failed to create collection source",
				"err", err,
				slog.String("locationURI", location.String()))
			continue
		}
		sources = append(sources, source)
	}

	if len(sources) == 0 {
		return nil, fmt.Errorf("no valid collection sources created")
	}

	return NewMultiSource(sources, sf.log), nil
}

// SourcesFor parses and creates a source for each URI.
func (sf *SourceFactory) SourcesFor(uris []string) ([]interfaces.CollectionSource, error) {
	sources := make([]interfaces.CollectionSource, 0, len(uris))
	for _, uri := range uris {
		location, err := interfaces.NewSourceLocation(uri)
		if err != nil {
			return nil, err
		}
		source, err := sf.SourceFor(location)
		if err != nil {
			return nil, fmt.Errorf("failed to create source for %s: %w", uri, err)
		}
		sources = append(sources, source)
	}
	return sources, nil
}

// createFileSource handles file:///absolute/path and file://./relative/path.
func (sf *SourceFactory) createFileSource(location interfaces.SourceLocation) (interfaces.CollectionSource, error) {
	sf.log.Debug("Creating file source", slog.String("uri", location.String()))

	path := location.Path
	if location.Host != "" {
		path = location.Host + "/" + strings.TrimPrefix(path, "/")
	}
	if path == "" {
		return nil, fmt.Errorf("%w: empty path in file URI: %s", interfaces.ErrInvalidLocationURI, location.String())
	}

	return NewFileSource(path, sf.log), nil
}

func (sf *SourceFactory) createS3Source(location interfaces.SourceLocation) (interfaces.CollectionSource, error) {
	sf.log.Debug("Creating S3 source", slog.String("uri", location.String()))

	key := strings.TrimPrefix(location.Path, "/")
	if location.Host == "" || key == "" {
		return nil, fmt.Errorf("%w: s3 URI needs a bucket and an object key", interfaces.ErrInvalidLocationURI)
	}

	var accessKey, secretKey string
	if location.Auth != "" {
		accessKey, secretKey, _ = strings.Cut(location.Auth, ":")
	}

	return NewS3Source(location.Host, key, location.GetParamOr("region", "us-east-1"), location.GetParam("endpoint"), accessKey, secretKey, sf.log)
}

func (sf *SourceFactory) createVaultSource(location interfaces.SourceLocation) (interfaces.CollectionSource, error) {
	sf.log.Debug("Creating Vault source", slog.String("uri", location.String()))

	mount, dataPath, ok := strings.Cut(strings.TrimPrefix(location.Path, "/"), "/")
	if location.Host == "" || !ok {
		return nil, fmt.Errorf("%w: vault URI format is vault://host:port/mount/path", interfaces.ErrInvalidLocationURI)
	}

	scheme := "https"
	if location.GetParamBool("insecure") {
		scheme = "http"
	}

	opts := VaultOptions{
		Address:    fmt.Sprintf("%s://%s", scheme, location.Host),
		MountPath:  mount,
		DataPath:   dataPath,
		Collection: location.GetParam("collection"),
		Locked:     location.GetParamBool("locked"),
	}

	if certFile, keyFile := location.GetParam("cert"), location.GetParam("key"); certFile != "" && keyFile != "" {
		cert, err := tls.LoadX509KeyPair(certFile, keyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load Vault client certificate: %w", err)
		}
		opts.ClientCert = &cert
	}

	return NewVaultSource(opts, sf.log)
}

func (sf *SourceFactory) createKeyringSource(location interfaces.SourceLocation) (interfaces.CollectionSource, error) {
	sf.log.Debug("Creating keyring source", slog.String("uri", location.String()))

	if location.Host == "" {
		return nil, fmt.Errorf("%w: keyring URI needs a service name", interfaces.ErrInvalidLocationURI)
	}

	backend := keyring.BackendType(location.GetParamOr("backend", string(keyring.FileBackend)))
	var password string
	if env := location.GetParam("password_env"); env != "" {
		password = os.Getenv(env)
	}

	return OpenKeyringSource(location.Host, backend, location.GetParam("dir"), password,
		location.GetParam("collection"), location.GetParamBool("locked"), sf.log)
}
