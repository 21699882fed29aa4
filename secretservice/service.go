package secretservice

import (
	"crypto/rand"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/ruteri/secret-service/interfaces"
)

// Service is the root of one secret service instance. It owns the registry, the
// collections, the per-caller session and prompt sets and the algorithm table.
//
// All entry points serialize on a single lock, so at most one call mutates the
// service at a time. Delayed prompt completions re-enter through the same lock.
// Completed signals are emitted after the lock is released.
type Service struct {
	log         *slog.Logger
	emitter     interfaces.SignalEmitter
	clock       clock.Clock
	random      io.Reader
	promptDelay time.Duration
	algorithms  map[string]Algorithm
	metrics     *Metrics

	mu          sync.Mutex
	nextID      uint64
	registry    *Registry
	collections map[string]*Collection
	sessions    map[interfaces.Caller]map[interfaces.ObjectPath]*Session
	prompts     map[interfaces.Caller]map[interfaces.ObjectPath]*Prompt

	// namedPrompts holds every path handed out through WithPromptName.
	namedPrompts map[interfaces.ObjectPath]bool
}

// Option configures a Service.
type Option func(*Service)

// WithAlgorithms replaces the negotiation algorithm table. Passing only
// PlainAlgorithm yields a service that rejects encrypted sessions.
func WithAlgorithms(algorithms ...Algorithm) Option {
	return func(s *Service) {
		s.algorithms = make(map[string]Algorithm, len(algorithms))
		for _, a := range algorithms {
			s.algorithms[a.Name()] = a
		}
	}
}

// WithPromptDelay makes prompts complete after d instead of inline.
func WithPromptDelay(d time.Duration) Option {
	return func(s *Service) {
		s.promptDelay = d
	}
}

// WithClock sets the clock used to schedule delayed prompt completion.
func WithClock(c clock.Clock) Option {
	return func(s *Service) {
		s.clock = c
	}
}

// WithMetrics registers the service collectors with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(s *Service) {
		s.metrics = NewMetrics(reg)
	}
}

// WithRand sets the entropy source for key exchange and IV generation.
func WithRand(r io.Reader) Option {
	return func(s *Service) {
		s.random = r
	}
}

// New creates an empty service. Emitted Completed signals go to emitter, which
// may be nil when nobody listens.
func New(log *slog.Logger, emitter interfaces.SignalEmitter, opts ...Option) *Service {
	s := &Service{
		log:          log,
		emitter:      emitter,
		clock:        clock.New(),
		random:       rand.Reader,
		registry:     NewRegistry(),
		collections:  make(map[string]*Collection),
		sessions:     make(map[interfaces.Caller]map[interfaces.ObjectPath]*Session),
		prompts:      make(map[interfaces.Caller]map[interfaces.ObjectPath]*Prompt),
		namedPrompts: make(map[interfaces.ObjectPath]bool),
	}
	WithAlgorithms(DefaultAlgorithms()...)(s)

	for _, opt := range opts {
		opt(s)
	}

	if s.metrics == nil {
		s.metrics = NewMetrics(nil)
	}
	if s.log == nil {
		s.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return s
}

// Metrics returns the service collectors.
func (s *Service) Metrics() *Metrics {
	return s.metrics
}

// Algorithms returns the names of the registered algorithms, sorted.
func (s *Service) Algorithms() []string {
	names := make([]string, 0, len(s.algorithms))
	for name := range s.algorithms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// OpenSession negotiates a session for caller with the named algorithm and
// returns the algorithm output together with the new session's path.
func (s *Service) OpenSession(caller interfaces.Caller, algorithm string, input any) (any, interfaces.ObjectPath, error) {
	alg, ok := s.algorithms[algorithm]
	if !ok {
		return nil, "", s.fault(interfaces.NotSupported("algorithm %s is not supported", algorithm))
	}

	output, key, err := alg.Negotiate(s.random, input)
	if err != nil {
		return nil, "", s.fault(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	session := &Session{
		svc:       s,
		path:      sessionPath(s.nextIdentifierLocked()),
		caller:    caller,
		algorithm: alg,
		key:       key,
	}
	if err := s.registry.Register(session); err != nil {
		return nil, "", err
	}
	if s.sessions[caller] == nil {
		s.sessions[caller] = make(map[interfaces.ObjectPath]*Session)
	}
	s.sessions[caller][session.path] = session

	s.metrics.SessionsOpened.Inc()
	s.metrics.OpenSessions.Inc()
	s.log.Debug("Opened session", "path", session.path, "caller", caller, "algorithm", algorithm)

	return output, session.path, nil
}

// CloseSession closes the session at path on behalf of caller.
func (s *Service) CloseSession(caller interfaces.Caller, path interfaces.ObjectPath) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.registry.Session(path)
	if !ok {
		return s.fault(interfaces.InvalidArgs("no such session: %s", path))
	}
	return s.fault(session.closeLocked(caller))
}

// CallerLost closes every session owned by caller. It returns once all of them
// have been removed.
func (s *Service) CallerLost(caller interfaces.Caller) {
	s.mu.Lock()
	defer s.mu.Unlock()

	owned := s.sessions[caller]
	if len(owned) == 0 {
		return
	}
	paths := make([]interfaces.ObjectPath, 0, len(owned))
	for path := range owned {
		paths = append(paths, path)
	}
	sort.Slice(paths, func(i, j int) bool { return paths[i] < paths[j] })

	for _, path := range paths {
		if err := owned[path].closeLocked(caller); err != nil {
			s.log.Warn("Failed to close session of lost caller", "path", path, "caller", caller, "err", err)
		}
	}
	s.log.Debug("Caller lost", "caller", caller, "closedSessions", len(paths))
}

// GetSecret returns the secret of the item at itemPath encoded for session.
func (s *Service) GetSecret(caller interfaces.Caller, itemPath, session interfaces.ObjectPath) (interfaces.Secret, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.registry.Item(itemPath)
	if !ok {
		return interfaces.Secret{}, s.fault(interfaces.InvalidArgs("no such item: %s", itemPath))
	}
	secret, err := item.getSecretLocked(caller, session)
	return secret, s.fault(err)
}

// DeleteItem deletes the item at itemPath, or returns the path of a prompt that
// will delete it once driven to completion.
func (s *Service) DeleteItem(caller interfaces.Caller, itemPath interfaces.ObjectPath) (interfaces.ObjectPath, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.registry.Item(itemPath)
	if !ok {
		return "", s.fault(interfaces.InvalidArgs("no such item: %s", itemPath))
	}
	path, err := item.deleteLocked(caller)
	return path, s.fault(err)
}

// PromptPrompt drives the prompt at path.
func (s *Service) PromptPrompt(path interfaces.ObjectPath, windowID string) error {
	s.mu.Lock()
	prompt, ok := s.registry.Prompt(path)
	if !ok {
		s.mu.Unlock()
		return s.fault(interfaces.InvalidArgs("no such prompt: %s", path))
	}
	signal := prompt.promptLocked(windowID)
	s.mu.Unlock()

	s.emit(prompt.caller, signal)
	return nil
}

// DismissPrompt dismisses the prompt at path.
func (s *Service) DismissPrompt(path interfaces.ObjectPath) error {
	s.mu.Lock()
	prompt, ok := s.registry.Prompt(path)
	if !ok {
		s.mu.Unlock()
		return s.fault(interfaces.InvalidArgs("no such prompt: %s", path))
	}
	signal := prompt.dismissLocked()
	s.mu.Unlock()

	s.emit(prompt.caller, signal)
	return nil
}

// LookupSession returns the live session at path.
func (s *Service) LookupSession(path interfaces.ObjectPath) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registry.Session(path)
}

// LookupPrompt returns the live prompt at path.
func (s *Service) LookupPrompt(path interfaces.ObjectPath) (*Prompt, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registry.Prompt(path)
}

// LookupCollection returns the collection at path.
func (s *Service) LookupCollection(path interfaces.ObjectPath) (*Collection, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registry.Collection(path)
}

// LookupItem returns the live item at path.
func (s *Service) LookupItem(path interfaces.ObjectPath) (*Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registry.Item(path)
}

// HasObject reports whether path denotes a live object.
func (s *Service) HasObject(path interfaces.ObjectPath) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.registry.Lookup(path)
	return ok
}

// ObjectCount returns the number of live objects in the registry.
func (s *Service) ObjectCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registry.Len()
}

// Sessions returns the paths of caller's open sessions, sorted.
func (s *Service) Sessions(caller interfaces.Caller) []interfaces.ObjectPath {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedPaths(s.sessions[caller])
}

// Prompts returns the paths of caller's pending prompts, sorted.
func (s *Service) Prompts(caller interfaces.Caller) []interfaces.ObjectPath {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedPaths(s.prompts[caller])
}

func sortedPaths[T any](set map[interfaces.ObjectPath]T) []interfaces.ObjectPath {
	paths := make([]interfaces.ObjectPath, 0, len(set))
	for path := range set {
		paths = append(paths, path)
	}
	sort.Slice(paths, func(i, j int) bool { return paths[i] < paths[j] })
	return paths
}

// resolveSessionLocked returns the live session at path if it is owned by caller.
func (s *Service) resolveSessionLocked(caller interfaces.Caller, path interfaces.ObjectPath) (*Session, error) {
	session, ok := s.registry.Session(path)
	if !ok || session.caller != caller {
		return nil, interfaces.InvalidArgs("session invalid: %s", path)
	}
	return session, nil
}

func (s *Service) nextIdentifierLocked() uint64 {
	s.nextID++
	return s.nextID
}

func (s *Service) emit(caller interfaces.Caller, signal *interfaces.CompletedSignal) {
	if signal == nil {
		return
	}
	s.metrics.promptCompleted(signal.Dismissed)
	s.log.Debug("Prompt completed", "path", signal.Prompt, "caller", caller, "dismissed", signal.Dismissed)
	if s.emitter != nil {
		s.emitter.EmitCompleted(caller, *signal)
	}
}

// fault counts err when it is a Fault and returns it unchanged.
func (s *Service) fault(err error) error {
	if err == nil {
		return nil
	}
	if f, ok := interfaces.AsFault(err); ok {
		s.metrics.Faults.WithLabelValues(f.Kind.String()).Inc()
	}
	return err
}
