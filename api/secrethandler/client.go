package secrethandler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ruteri/secret-service/api"
	"github.com/ruteri/secret-service/cryptoutils"
	"github.com/ruteri/secret-service/interfaces"
	"github.com/ruteri/secret-service/secretservice"
)

// Client talks to a Handler on behalf of one caller header value. Faults returned
// by the server come back as *interfaces.Fault, so errors.Is works against the
// interfaces sentinels.
type Client struct {
	BaseURL string
	Caller  string
	Client  *http.Client
}

// NewClient creates a client for caller.
func NewClient(baseURL, caller string) *Client {
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		Caller:  caller,
		Client:  http.DefaultClient,
	}
}

// OpenSession negotiates a session with a raw algorithm input (string or []byte).
func (c *Client) OpenSession(algorithm string, input any) (any, interfaces.ObjectPath, error) {
	variant, err := api.VariantOf(input)
	if err != nil {
		return nil, "", err
	}

	var resp api.OpenSessionResponse
	if err := c.do(http.MethodPost, "/api/service/open-session", api.OpenSessionRequest{Algorithm: algorithm, Input: variant}, &resp); err != nil {
		return nil, "", err
	}

	output, err := resp.Output.Value()
	if err != nil {
		return nil, "", fmt.Errorf("could not decode output: %w", err)
	}
	return output, resp.Session, nil
}

// OpenPlainSession opens a session transferring secrets unencrypted.
func (c *Client) OpenPlainSession() (*ClientSession, error) {
	_, path, err := c.OpenSession(secretservice.AlgorithmPlain, "")
	if err != nil {
		return nil, err
	}
	return &ClientSession{Path: path}, nil
}

// OpenDHSession runs the client half of the Diffie-Hellman exchange and keeps
// the derived key for decrypting secrets.
func (c *Client) OpenDHSession() (*ClientSession, error) {
	priv, pub, err := cryptoutils.GenerateDHPair(nil)
	if err != nil {
		return nil, err
	}

	output, path, err := c.OpenSession(secretservice.AlgorithmDHAES, cryptoutils.DHPublicBytes(pub))
	if err != nil {
		return nil, err
	}

	serverBytes, ok := output.([]byte)
	if !ok {
		return nil, fmt.Errorf("server returned %T instead of a public value", output)
	}
	serverPub, err := cryptoutils.ParseDHPublic(serverBytes)
	if err != nil {
		return nil, err
	}
	shared, err := cryptoutils.DeriveDHShared(priv, serverPub)
	if err != nil {
		return nil, err
	}
	key, err := cryptoutils.DeriveKey(shared, 16)
	if err != nil {
		return nil, err
	}

	return &ClientSession{Path: path, key: key}, nil
}

// ClientSession is the client side of an open session.
type ClientSession struct {
	Path interfaces.ObjectPath
	key  []byte
}

// NewClientSession restores a session opened earlier, e.g. by another process.
// A nil key means a plain session.
func NewClientSession(path interfaces.ObjectPath, key []byte) *ClientSession {
	return &ClientSession{Path: path, key: key}
}

// Key returns the negotiated AES key, nil for plain sessions.
func (s *ClientSession) Key() []byte {
	return s.key
}

// Decode recovers the plaintext of a secret encoded for this session.
func (s *ClientSession) Decode(secret interfaces.Secret) ([]byte, error) {
	if secret.Session != s.Path {
		return nil, fmt.Errorf("secret was encoded for session %s, not %s", secret.Session, s.Path)
	}
	if s.key == nil {
		return secret.Value, nil
	}
	return cryptoutils.DecryptCBC(s.key, secret.Parameters, secret.Value)
}

// SearchItems returns matching item paths split by lock state.
func (c *Client) SearchItems(attributes map[string]string) (unlocked, locked []interfaces.ObjectPath, err error) {
	var resp api.SearchItemsResponse
	if err := c.do(http.MethodPost, "/api/service/search-items", api.SearchItemsRequest{Attributes: attributes}, &resp); err != nil {
		return nil, nil, err
	}
	return resp.Unlocked, resp.Locked, nil
}

// GetSecrets fetches several secrets over one session.
func (c *Client) GetSecrets(items []interfaces.ObjectPath, session interfaces.ObjectPath) (map[interfaces.ObjectPath]interfaces.Secret, error) {
	var resp api.GetSecretsResponse
	if err := c.do(http.MethodPost, "/api/service/get-secrets", api.GetSecretsRequest{Items: items, Session: session}, &resp); err != nil {
		return nil, err
	}
	return resp.Secrets, nil
}

// GetSecret fetches one item's secret.
func (c *Client) GetSecret(item, session interfaces.ObjectPath) (interfaces.Secret, error) {
	var resp api.GetSecretResponse
	if err := c.do(http.MethodPost, "/api/item/get-secret", api.GetSecretRequest{Item: item, Session: session}, &resp); err != nil {
		return interfaces.Secret{}, err
	}
	return resp.Secret, nil
}

// DeleteItem deletes an item, returning a prompt path or the null path.
func (c *Client) DeleteItem(item interfaces.ObjectPath) (interfaces.ObjectPath, error) {
	var resp api.DeleteItemResponse
	if err := c.do(http.MethodPost, "/api/item/delete", api.DeleteItemRequest{Item: item}, &resp); err != nil {
		return "", err
	}
	return resp.Prompt, nil
}

// CloseSession closes a session.
func (c *Client) CloseSession(session interfaces.ObjectPath) error {
	return c.do(http.MethodPost, "/api/session/close", api.CloseSessionRequest{Session: session}, nil)
}

// Prompt drives a prompt.
func (c *Client) Prompt(prompt interfaces.ObjectPath, windowID string) error {
	return c.do(http.MethodPost, "/api/prompt/prompt", api.PromptRequest{Prompt: prompt, WindowID: windowID}, nil)
}

// Dismiss dismisses a prompt.
func (c *Client) Dismiss(prompt interfaces.ObjectPath) error {
	return c.do(http.MethodPost, "/api/prompt/dismiss", api.DismissRequest{Prompt: prompt}, nil)
}

// Signals fetches and clears the caller's queued Completed signals.
func (c *Client) Signals() ([]interfaces.CompletedSignal, error) {
	var resp api.SignalsResponse
	if err := c.do(http.MethodGet, "/api/signals", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Signals, nil
}

// Disconnect tells the server the caller is gone, closing all its sessions.
func (c *Client) Disconnect() error {
	return c.do(http.MethodPost, "/api/caller/disconnect", nil, nil)
}

// Collections lists collections and item metadata.
func (c *Client) Collections() ([]secretservice.CollectionInfo, error) {
	var resp api.CollectionsResponse
	if err := c.do(http.MethodGet, "/api/collections", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Collections, nil
}

func (c *Client) do(method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("could not encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.BaseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("could not initialize request: %w", err)
	}
	req.Header.Set(api.CallerHeader, c.Caller)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.Client == nil {
		c.Client = http.DefaultClient
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return fmt.Errorf("could not request secret service: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("could not read response: %w", err)
	}

	if resp.StatusCode >= 300 {
		var fault api.FaultResponse
		if json.Unmarshal(data, &fault) == nil {
			if kind, ok := interfaces.FaultKindFromName(fault.Name); ok {
				return &interfaces.Fault{Kind: kind, Message: fault.Message}
			}
		}
		return fmt.Errorf("secret service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("could not parse response: %w", err)
	}
	return nil
}
