package api

import (
	"fmt"

	"github.com/ruteri/secret-service/interfaces"
	"github.com/ruteri/secret-service/secretservice"
)

// CallerHeader carries the identity of the calling peer. Sessions and prompts
// belong to interfaces.HTTPCaller of its value.
const CallerHeader = "X-Secret-Caller"

// Variant type signatures understood by the HTTP binding.
const (
	VariantString = "s"
	VariantBytes  = "ay"
)

// Variant is the JSON form of a D-Bus style variant. Only strings and byte
// arrays are needed by the Secret Service methods.
type Variant struct {
	Type   string `json:"type"`
	String string `json:"string,omitempty"`
	Bytes  []byte `json:"bytes,omitempty"`
}

// StringVariant wraps a string.
func StringVariant(s string) Variant {
	return Variant{Type: VariantString, String: s}
}

// BytesVariant wraps a byte array.
func BytesVariant(b []byte) Variant {
	return Variant{Type: VariantBytes, Bytes: b}
}

// Value unwraps the variant into a string or []byte.
func (v Variant) Value() (any, error) {
	switch v.Type {
	case VariantString:
		return v.String, nil
	case VariantBytes:
		if v.Bytes == nil {
			return []byte{}, nil
		}
		return v.Bytes, nil
	default:
		return nil, fmt.Errorf("unsupported variant type %q", v.Type)
	}
}

// VariantOf wraps a string or []byte value.
func VariantOf(value any) (Variant, error) {
	switch v := value.(type) {
	case string:
		return StringVariant(v), nil
	case []byte:
		return BytesVariant(v), nil
	default:
		return Variant{}, fmt.Errorf("unsupported variant value %T", value)
	}
}

// OpenSessionRequest negotiates a transfer session.
type OpenSessionRequest struct {
	Algorithm string  `json:"algorithm"`
	Input     Variant `json:"input"`
}

// OpenSessionResponse carries the algorithm output and the new session path.
type OpenSessionResponse struct {
	Output  Variant               `json:"output"`
	Session interfaces.ObjectPath `json:"session"`
}

// SearchItemsRequest holds the attributes every result must carry.
type SearchItemsRequest struct {
	Attributes map[string]string `json:"attributes"`
}

// SearchItemsResponse splits matching items by their collection's lock state.
type SearchItemsResponse struct {
	Unlocked []interfaces.ObjectPath `json:"unlocked"`
	Locked   []interfaces.ObjectPath `json:"locked"`
}

// GetSecretsRequest asks for several secrets over one session.
type GetSecretsRequest struct {
	Items   []interfaces.ObjectPath `json:"items"`
	Session interfaces.ObjectPath   `json:"session"`
}

// GetSecretsResponse maps item paths to encoded secrets. Missing and locked
// items are absent.
type GetSecretsResponse struct {
	Secrets map[interfaces.ObjectPath]interfaces.Secret `json:"secrets"`
}

// GetSecretRequest asks for one item's secret.
type GetSecretRequest struct {
	Item    interfaces.ObjectPath `json:"item"`
	Session interfaces.ObjectPath `json:"session"`
}

// GetSecretResponse carries one encoded secret.
type GetSecretResponse struct {
	Secret interfaces.Secret `json:"secret"`
}

// DeleteItemRequest deletes an item.
type DeleteItemRequest struct {
	Item interfaces.ObjectPath `json:"item"`
}

// DeleteItemResponse carries the prompt path, or "/" when the item is already gone.
type DeleteItemResponse struct {
	Prompt interfaces.ObjectPath `json:"prompt"`
}

// CloseSessionRequest closes a session.
type CloseSessionRequest struct {
	Session interfaces.ObjectPath `json:"session"`
}

// PromptRequest drives a prompt.
type PromptRequest struct {
	Prompt   interfaces.ObjectPath `json:"prompt"`
	WindowID string                `json:"window_id"`
}

// DismissRequest dismisses a prompt.
type DismissRequest struct {
	Prompt interfaces.ObjectPath `json:"prompt"`
}

// SignalsResponse carries the Completed signals queued for the caller, oldest first.
type SignalsResponse struct {
	Signals []interfaces.CompletedSignal `json:"signals"`
}

// CollectionsResponse lists the collections and their items, without secrets.
type CollectionsResponse struct {
	Collections []secretservice.CollectionInfo `json:"collections"`
}

// FaultResponse is the body of every non-2xx response of the secret API.
type FaultResponse struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}
