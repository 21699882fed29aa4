package secrethandler

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/ruteri/secret-service/api"
	"github.com/ruteri/secret-service/interfaces"
	"github.com/ruteri/secret-service/secretservice"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	alice = "alice"
	bob   = "bob"

	itemOne    interfaces.ObjectPath = "/org/freedesktop/secrets/collection/collection/item_one"
	lockedOne  interfaces.ObjectPath = "/org/freedesktop/secrets/collection/second/item_one"
	confirmDel interfaces.ObjectPath = "/org/freedesktop/secrets/collection/todelete/confirm"
	plainDel   interfaces.ObjectPath = "/org/freedesktop/secrets/collection/todelete/item"
)

// MockSecretService stands in for the engine where its behavior must be forced.
type MockSecretService struct {
	mock.Mock
}

func (m *MockSecretService) OpenSession(caller interfaces.Caller, algorithm string, input any) (any, interfaces.ObjectPath, error) {
	args := m.Called(caller, algorithm, input)
	return args.Get(0), args.Get(1).(interfaces.ObjectPath), args.Error(2)
}

func (m *MockSecretService) SearchItems(query map[string]string) ([]interfaces.ObjectPath, []interfaces.ObjectPath) {
	args := m.Called(query)
	return args.Get(0).([]interfaces.ObjectPath), args.Get(1).([]interfaces.ObjectPath)
}

func (m *MockSecretService) GetSecrets(caller interfaces.Caller, items []interfaces.ObjectPath, session interfaces.ObjectPath) (map[interfaces.ObjectPath]interfaces.Secret, error) {
	args := m.Called(caller, items, session)
	secrets, _ := args.Get(0).(map[interfaces.ObjectPath]interfaces.Secret)
	return secrets, args.Error(1)
}

func (m *MockSecretService) GetSecret(caller interfaces.Caller, item, session interfaces.ObjectPath) (interfaces.Secret, error) {
	args := m.Called(caller, item, session)
	return args.Get(0).(interfaces.Secret), args.Error(1)
}

func (m *MockSecretService) DeleteItem(caller interfaces.Caller, item interfaces.ObjectPath) (interfaces.ObjectPath, error) {
	args := m.Called(caller, item)
	return args.Get(0).(interfaces.ObjectPath), args.Error(1)
}

func (m *MockSecretService) CloseSession(caller interfaces.Caller, session interfaces.ObjectPath) error {
	return m.Called(caller, session).Error(0)
}

func (m *MockSecretService) PromptPrompt(path interfaces.ObjectPath, windowID string) error {
	return m.Called(path, windowID).Error(0)
}

func (m *MockSecretService) DismissPrompt(path interfaces.ObjectPath) error {
	return m.Called(path).Error(0)
}

func (m *MockSecretService) CallerLost(caller interfaces.Caller) {
	m.Called(caller)
}

func (m *MockSecretService) Collections() []secretservice.CollectionInfo {
	return m.Called().Get(0).([]secretservice.CollectionInfo)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// setupTestServer runs a handler backed by a real engine loaded with the
// standard and delete fixtures.
func setupTestServer(t *testing.T, limits api.RateLimitConfig) (*httptest.Server, *secretservice.Service) {
	t.Helper()
	logger := testLogger()

	signals := NewSignalQueue(0, logger)
	svc := secretservice.New(logger, signals)
	require.NoError(t, svc.AddStandardObjects())
	require.NoError(t, svc.AddDeleteFixtures())

	r := chi.NewRouter()
	NewHandler(svc, signals, limits, logger).RegisterRoutes(r)

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	return server, svc
}

func TestClientPlainScenario(t *testing.T) {
	server, _ := setupTestServer(t, api.RateLimitConfig{})
	client := NewClient(server.URL, alice)

	session, err := client.OpenPlainSession()
	require.NoError(t, err)
	assert.Equal(t, interfaces.ObjectPath("/org/freedesktop/secrets/sessions/1"), session.Path)

	unlocked, locked, err := client.SearchItems(map[string]string{"number": "1", "string": "one", "parity": "odd"})
	require.NoError(t, err)
	assert.Equal(t, []interfaces.ObjectPath{itemOne}, unlocked)
	assert.Equal(t, []interfaces.ObjectPath{lockedOne}, locked)

	unlocked, locked, err = client.SearchItems(map[string]string{"number": "1"})
	require.NoError(t, err)
	assert.Equal(t, []interfaces.ObjectPath{itemOne, plainDel}, unlocked)
	assert.Equal(t, []interfaces.ObjectPath{lockedOne}, locked)

	secret, err := client.GetSecret(itemOne, session.Path)
	require.NoError(t, err)
	assert.Equal(t, session.Path, secret.Session)
	assert.Equal(t, "text/plain", secret.ContentType)

	plaintext, err := session.Decode(secret)
	require.NoError(t, err)
	assert.Equal(t, []byte("uno"), plaintext)

	secrets, err := client.GetSecrets([]interfaces.ObjectPath{itemOne, lockedOne, "/org/freedesktop/secrets/collection/nope/x"}, session.Path)
	require.NoError(t, err)
	require.Len(t, secrets, 1)
	assert.Equal(t, []byte("uno"), secrets[itemOne].Value)

	require.NoError(t, client.CloseSession(session.Path))
	_, err = client.GetSecret(itemOne, session.Path)
	assert.ErrorIs(t, err, interfaces.ErrInvalidArgs)
}

func TestClientDHSession(t *testing.T) {
	server, _ := setupTestServer(t, api.RateLimitConfig{})
	client := NewClient(server.URL, alice)

	session, err := client.OpenDHSession()
	require.NoError(t, err)

	secret, err := client.GetSecret(itemOne, session.Path)
	require.NoError(t, err)
	assert.Len(t, secret.Parameters, 16)
	assert.NotEqual(t, []byte("uno"), secret.Value)

	plaintext, err := session.Decode(secret)
	require.NoError(t, err)
	assert.Equal(t, []byte("uno"), plaintext)
}

func TestClientFaults(t *testing.T) {
	server, _ := setupTestServer(t, api.RateLimitConfig{})
	client := NewClient(server.URL, alice)

	_, _, err := client.OpenSession("rot13", "")
	assert.ErrorIs(t, err, interfaces.ErrNotSupported)

	_, _, err = client.OpenSession(secretservice.AlgorithmPlain, []byte{1})
	assert.ErrorIs(t, err, interfaces.ErrInvalidArgs)

	session, err := client.OpenPlainSession()
	require.NoError(t, err)

	_, err = client.GetSecret(lockedOne, session.Path)
	assert.ErrorIs(t, err, interfaces.ErrIsLocked)

	// Sessions belong to the caller that opened them.
	_, err = NewClient(server.URL, bob).GetSecret(itemOne, session.Path)
	assert.ErrorIs(t, err, interfaces.ErrInvalidArgs)
}

func TestFaultStatusCodes(t *testing.T) {
	server, _ := setupTestServer(t, api.RateLimitConfig{})

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantName   string
	}{
		{
			name:       "unknown algorithm",
			body:       `{"algorithm":"rot13","input":{"type":"s"}}`,
			wantStatus: http.StatusNotImplemented,
			wantName:   interfaces.NotSupportedErrorName,
		},
		{
			name:       "wrong input type",
			body:       `{"algorithm":"plain","input":{"type":"ay","bytes":"AQ=="}}`,
			wantStatus: http.StatusBadRequest,
			wantName:   interfaces.InvalidArgsErrorName,
		},
		{
			name:       "unknown variant",
			body:       `{"algorithm":"plain","input":{"type":"u"}}`,
			wantStatus: http.StatusBadRequest,
			wantName:   interfaces.InvalidArgsErrorName,
		},
		{
			name:       "malformed body",
			body:       `{`,
			wantStatus: http.StatusBadRequest,
			wantName:   interfaces.InvalidArgsErrorName,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(http.MethodPost, server.URL+"/api/service/open-session", bytes.NewBufferString(tt.body))
			require.NoError(t, err)
			req.Header.Set(api.CallerHeader, alice)

			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			var fault api.FaultResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&fault))
			assert.Equal(t, tt.wantName, fault.Name)
		})
	}
}

func TestMissingCallerHeader(t *testing.T) {
	logger := testLogger()
	svc := new(MockSecretService)

	r := chi.NewRouter()
	NewHandler(svc, NewSignalQueue(0, logger), api.RateLimitConfig{}, logger).RegisterRoutes(r)

	req := httptest.NewRequest(http.MethodGet, "/api/collections", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	var fault api.FaultResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &fault))
	assert.Equal(t, interfaces.InvalidArgsErrorName, fault.Name)
	svc.AssertNotCalled(t, "Collections")
}

func TestUnexpectedErrorIsFailed(t *testing.T) {
	logger := testLogger()
	svc := new(MockSecretService)
	svc.On("DeleteItem", interfaces.HTTPCaller(alice), itemOne).Return(interfaces.ObjectPath(""), errors.New("disk on fire"))

	r := chi.NewRouter()
	NewHandler(svc, NewSignalQueue(0, logger), api.RateLimitConfig{}, logger).RegisterRoutes(r)

	req := httptest.NewRequest(http.MethodPost, "/api/item/delete", bytes.NewBufferString(`{"item":"`+string(itemOne)+`"}`))
	req.Header.Set(api.CallerHeader, alice)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	var fault api.FaultResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &fault))
	assert.Equal(t, failedErrorName, fault.Name)
	assert.Equal(t, "disk on fire", fault.Message)
	svc.AssertExpectations(t)
}

func TestDeleteWithPrompt(t *testing.T) {
	server, svc := setupTestServer(t, api.RateLimitConfig{})
	client := NewClient(server.URL, alice)

	prompt, err := client.DeleteItem(plainDel)
	require.NoError(t, err)
	assert.Equal(t, interfaces.NullPath, prompt)
	assert.False(t, svc.HasObject(plainDel))

	prompt, err = client.DeleteItem(confirmDel)
	require.NoError(t, err)
	assert.True(t, prompt.HasPrefix(secretservice.PromptPrefix))
	assert.True(t, svc.HasObject(confirmDel))

	signals, err := client.Signals()
	require.NoError(t, err)
	assert.Empty(t, signals)

	require.NoError(t, client.Prompt(prompt, ""))
	assert.False(t, svc.HasObject(confirmDel))
	assert.False(t, svc.HasObject(prompt))

	signals, err = client.Signals()
	require.NoError(t, err)
	require.Len(t, signals, 1)
	assert.Equal(t, prompt, signals[0].Prompt)
	assert.False(t, signals[0].Dismissed)
	assert.Equal(t, "", signals[0].Result)

	// Signals are drained once fetched and the prompt is gone.
	signals, err = client.Signals()
	require.NoError(t, err)
	assert.Empty(t, signals)
	assert.ErrorIs(t, client.Prompt(prompt, ""), interfaces.ErrInvalidArgs)
}

func TestDismissPrompt(t *testing.T) {
	server, svc := setupTestServer(t, api.RateLimitConfig{})
	client := NewClient(server.URL, alice)

	prompt, err := client.DeleteItem(confirmDel)
	require.NoError(t, err)

	require.NoError(t, client.Dismiss(prompt))
	assert.True(t, svc.HasObject(confirmDel))

	signals, err := client.Signals()
	require.NoError(t, err)
	require.Len(t, signals, 1)
	assert.True(t, signals[0].Dismissed)

	// Completed goes to the prompt's owner only.
	other, err := NewClient(server.URL, bob).Signals()
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestDisconnectClosesSessions(t *testing.T) {
	server, svc := setupTestServer(t, api.RateLimitConfig{})
	client := NewClient(server.URL, alice)

	first, err := client.OpenPlainSession()
	require.NoError(t, err)
	second, err := client.OpenDHSession()
	require.NoError(t, err)
	bobSession, err := NewClient(server.URL, bob).OpenPlainSession()
	require.NoError(t, err)

	require.NoError(t, client.Disconnect())
	assert.False(t, svc.HasObject(first.Path))
	assert.False(t, svc.HasObject(second.Path))
	assert.Empty(t, svc.Sessions(interfaces.HTTPCaller(alice)))
	assert.True(t, svc.HasObject(bobSession.Path))
}

func TestHeaderCannotImpersonateBusPeer(t *testing.T) {
	server, svc := setupTestServer(t, api.RateLimitConfig{})
	const busPeer interfaces.Caller = ":1.10"

	_, busSession, err := svc.OpenSession(busPeer, secretservice.AlgorithmPlain, "")
	require.NoError(t, err)
	prompt, err := svc.DeleteItem(busPeer, confirmDel)
	require.NoError(t, err)

	client := NewClient(server.URL, string(busPeer))
	_, err = client.GetSecret(itemOne, busSession)
	assert.ErrorIs(t, err, interfaces.ErrInvalidArgs)
	_, err = client.GetSecrets([]interfaces.ObjectPath{itemOne}, busSession)
	assert.ErrorIs(t, err, interfaces.ErrInvalidArgs)
	assert.ErrorIs(t, client.CloseSession(busSession), interfaces.ErrInvalidArgs)

	require.NoError(t, client.Disconnect())
	assert.Equal(t, []interfaces.ObjectPath{busSession}, svc.Sessions(busPeer))
	assert.Equal(t, []interfaces.ObjectPath{prompt}, svc.Prompts(busPeer))

	// Signals of the bus peer's prompt are not queued for the header value.
	require.NoError(t, svc.DismissPrompt(prompt))
	signals, err := client.Signals()
	require.NoError(t, err)
	assert.Empty(t, signals)
}

func TestCollectionsListing(t *testing.T) {
	server, _ := setupTestServer(t, api.RateLimitConfig{})

	collections, err := NewClient(server.URL, alice).Collections()
	require.NoError(t, err)
	require.Len(t, collections, 4)

	ids := make([]string, 0, len(collections))
	for _, c := range collections {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []string{"collection", "second", "todelete", "twodelete"}, ids)
	assert.True(t, collections[1].Locked)
	assert.Len(t, collections[0].Items, 3)
}

func TestRateLimit(t *testing.T) {
	server, _ := setupTestServer(t, api.RateLimitConfig{RequestsPerSecond: 0.001, Burst: 2})
	client := NewClient(server.URL, alice)

	_, err := client.Collections()
	require.NoError(t, err)
	_, err = client.Collections()
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodGet, server.URL+"/api/collections", nil)
	require.NoError(t, err)
	req.Header.Set(api.CallerHeader, alice)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	var fault api.FaultResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&fault))
	assert.Equal(t, limitsExceededErrorName, fault.Name)

	// Buckets are per caller.
	_, err = NewClient(server.URL, bob).Collections()
	assert.NoError(t, err)
}

func TestCallerLimiterForgetsIdleCallers(t *testing.T) {
	start := time.Unix(1700000000, 0)
	now := start
	limiter := newCallerLimiter(1, 1, time.Minute)
	limiter.now = func() time.Time { return now }

	assert.True(t, limiter.allow("a"))
	assert.False(t, limiter.allow("a"))

	now = start.Add(59 * time.Second)
	assert.True(t, limiter.allow("b"))

	// Sweeps at start+60s. a was seen exactly one ttl ago and stays.
	now = start.Add(60 * time.Second)
	assert.True(t, limiter.allow("c"))
	assert.Equal(t, 3, limiter.size())

	// a is idle now, but the next sweep is not due for another ttl.
	now = start.Add(61 * time.Second)
	assert.True(t, limiter.allow("d"))
	assert.Equal(t, 4, limiter.size())

	now = start.Add(120 * time.Second)
	assert.True(t, limiter.allow("e"))
	assert.Equal(t, 3, limiter.size())

	now = now.Add(2 * time.Minute)
	assert.True(t, limiter.allow("f"))
	assert.Equal(t, 1, limiter.size())
}

func TestSignalQueueDropsOldest(t *testing.T) {
	q := NewSignalQueue(2, testLogger())
	caller := interfaces.HTTPCaller(alice)
	for _, p := range []interfaces.ObjectPath{"/p1", "/p2", "/p3"} {
		q.EmitCompleted(caller, interfaces.CompletedSignal{Prompt: p})
	}

	signals := q.Drain(caller)
	require.Len(t, signals, 2)
	assert.Equal(t, interfaces.ObjectPath("/p2"), signals[0].Prompt)
	assert.Equal(t, interfaces.ObjectPath("/p3"), signals[1].Prompt)
	assert.Empty(t, q.Drain(caller))

	q.EmitCompleted(interfaces.HTTPCaller(bob), interfaces.CompletedSignal{Prompt: "/p4"})
	q.Forget(interfaces.HTTPCaller(bob))
	assert.Empty(t, q.Drain(interfaces.HTTPCaller(bob)))

	q.EmitCompleted(":1.10", interfaces.CompletedSignal{Prompt: "/p5"})
	assert.Empty(t, q.Drain(":1.10"))
}
