package interfaces

import (
	"context"
	"errors"
	"fmt"
	"net/url"
)

// SourceLocation represents the URI of an administrative collection source.
type SourceLocation struct {
	Raw    string     // Original URI
	Scheme string     // Protocol
	Host   string     // Hostname
	Path   string     // Resource path
	Query  url.Values // Query parameters
	Auth   string     // Authentication info
}

// NewSourceLocation creates a new source location from a URI string with validation.
func NewSourceLocation(uri string) (SourceLocation, error) {
	parsed, err := url.Parse(uri)
	if err != nil {
		return SourceLocation{}, fmt.Errorf("%w: %v", ErrInvalidLocationURI, err)
	}

	scheme := parsed.Scheme
	switch scheme {
	case "file", "s3", "vault", "keyring":
	default:
		return SourceLocation{}, fmt.Errorf("%w: unsupported source scheme: %q", ErrInvalidLocationURI, scheme)
	}

	var auth string
	if parsed.User != nil {
		auth = parsed.User.String()
	}

	return SourceLocation{
		Raw:    uri,
		Scheme: scheme,
		Host:   parsed.Host,
		Path:   parsed.Path,
		Query:  parsed.Query(),
		Auth:   auth,
	}, nil
}

// String returns the original URI string.
func (loc SourceLocation) String() string {
	return loc.Raw
}

// GetParam returns a query parameter value.
func (loc SourceLocation) GetParam(name string) string {
	return loc.Query.Get(name)
}

// GetParamOr returns a query parameter value, or def when it is absent.
func (loc SourceLocation) GetParamOr(name, def string) string {
	if v := loc.Query.Get(name); v != "" {
		return v
	}
	return def
}

// GetParamBool returns a boolean query parameter value.
func (loc SourceLocation) GetParamBool(name string) bool {
	value := loc.Query.Get(name)
	return value == "true" || value == "1" || value == "yes"
}

var (
	// ErrSourceNotFound is returned when the fixture document or secret does not exist.
	ErrSourceNotFound = errors.New("collection source not found")

	// ErrSourceUnavailable is returned when a collection source is not accessible.
	ErrSourceUnavailable = errors.New("collection source unavailable")

	// ErrInvalidLocationURI is returned when a source location URI is malformed or unsupported.
	// URIs must follow the format: [scheme]://[auth@]host[:port][/path][?params]
	ErrInvalidLocationURI = errors.New("invalid source location URI")
)

// CollectionSource provides collections to seed a service with. Collections are
// created administratively, never through the RPC surface.
type CollectionSource interface {
	// Load reads every collection the source describes.
	Load(ctx context.Context) ([]CollectionSpec, error)

	// Available checks if the source is accessible.
	Available(ctx context.Context) bool

	// Name returns identifier for logging.
	Name() string

	// LocationURI returns URI identifying this source.
	LocationURI() string
}

// CollectionSourceFactory creates collection sources.
type CollectionSourceFactory interface {
	// SourceFor creates a source from a URI.
	// Supports file://, s3://, vault://, keyring://
	SourceFor(location SourceLocation) (CollectionSource, error)

	// CreateMultiSource creates an aggregated source.
	CreateMultiSource(locations []SourceLocation) (CollectionSource, error)
}
