// Package interfaces defines the core interfaces and types shared by the secret
// service engine, its transports and its administrative collection sources.
package interfaces

import (
	"strings"
)

// ObjectPath is the RPC-addressable identifier of a Session, Prompt, Collection or Item.
type ObjectPath string

// NullPath is returned where an operation has no object to report, e.g. an item
// deletion that did not need a prompt.
const NullPath ObjectPath = "/"

// String returns the path as a plain string.
func (p ObjectPath) String() string {
	return string(p)
}

// IsNull reports whether the path is the null path sentinel (or empty).
func (p ObjectPath) IsNull() bool {
	return p == "" || p == NullPath
}

// HasPrefix reports whether p lives under prefix.
func (p ObjectPath) HasPrefix(prefix ObjectPath) bool {
	return strings.HasPrefix(string(p), string(prefix))
}

// Caller is an opaque token identifying the remote peer that issued an RPC call.
// On the session bus this is the unique connection name. Over HTTP it is the
// value of the caller header behind HTTPCallerPrefix.
type Caller string

// HTTPCallerPrefix namespaces HTTP callers. Bus unique names start with ':', so
// no header value can name a bus peer.
const HTTPCallerPrefix = "http:"

// HTTPCaller returns the caller for a caller header value.
func HTTPCaller(header string) Caller {
	return Caller(HTTPCallerPrefix + header)
}

// String returns the caller identity.
func (c Caller) String() string {
	return string(c)
}

// IsHTTP reports whether c was created by HTTPCaller.
func (c Caller) IsHTTP() bool {
	return strings.HasPrefix(string(c), HTTPCallerPrefix)
}

// Secret is an encoded secret as handed out by a session: the session that
// encoded it, the algorithm parameters (the IV for encrypted sessions, empty for
// plain ones), the possibly encrypted value and its content type.
type Secret struct {
	Session     ObjectPath `json:"session"`
	Parameters  []byte     `json:"parameters"`
	Value       []byte     `json:"value"`
	ContentType string     `json:"content_type"`
}

// ItemSpec describes an item to be created in a collection. It is the
// administrative (non-RPC) way items come into existence.
type ItemSpec struct {
	ID              string            `json:"id" yaml:"id"`
	Label           string            `json:"label,omitempty" yaml:"label,omitempty"`
	Attributes      map[string]string `json:"attributes,omitempty" yaml:"attributes,omitempty"`
	Secret          string            `json:"secret,omitempty" yaml:"secret,omitempty"`
	ContentType     string            `json:"content_type,omitempty" yaml:"content_type,omitempty"`
	ConfirmOnDelete bool              `json:"confirm_on_delete,omitempty" yaml:"confirm_on_delete,omitempty"`
}

// CollectionSpec describes a collection and its initial items.
type CollectionSpec struct {
	ID     string     `json:"id" yaml:"id"`
	Label  string     `json:"label,omitempty" yaml:"label,omitempty"`
	Locked bool       `json:"locked,omitempty" yaml:"locked,omitempty"`
	Items  []ItemSpec `json:"items,omitempty" yaml:"items,omitempty"`
}

// CollectionsDocument is the on-disk (and on-bucket) fixture format.
type CollectionsDocument struct {
	Collections []CollectionSpec `json:"collections" yaml:"collections"`
}
