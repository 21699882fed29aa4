package secretservice

import (
	"github.com/ruteri/secret-service/interfaces"
)

// Session is one negotiated transfer context, usable only by the caller that
// opened it. A nil key means secrets are transferred in plain text.
type Session struct {
	svc       *Service
	path      interfaces.ObjectPath
	caller    interfaces.Caller
	algorithm Algorithm
	key       []byte

	closed bool
}

// Path returns the session's object path.
func (s *Session) Path() interfaces.ObjectPath { return s.path }

// Caller returns the identity that owns the session.
func (s *Session) Caller() interfaces.Caller { return s.caller }

// Algorithm returns the name of the negotiated algorithm.
func (s *Session) Algorithm() string { return s.algorithm.Name() }

// Encrypted reports whether secrets are encrypted under a negotiated key.
func (s *Session) Encrypted() bool { return s.key != nil }

// EncodeSecret encodes secret for transfer over this session. It does not
// modify the session.
func (s *Session) EncodeSecret(secret []byte, contentType string) (interfaces.Secret, error) {
	params, value, err := s.algorithm.Encrypt(s.svc.random, s.key, secret)
	if err != nil {
		return interfaces.Secret{}, err
	}
	return interfaces.Secret{
		Session:     s.path,
		Parameters:  params,
		Value:       value,
		ContentType: contentType,
	}, nil
}

// Close removes the session. Only the owner may close it; closing a session
// twice is a caller error and yields InvalidArgs.
func (s *Session) Close(caller interfaces.Caller) error {
	s.svc.mu.Lock()
	defer s.svc.mu.Unlock()
	return s.svc.fault(s.closeLocked(caller))
}

func (s *Session) closeLocked(caller interfaces.Caller) error {
	if s.closed {
		return interfaces.InvalidArgs("session already closed: %s", s.path)
	}
	if caller != s.caller {
		return interfaces.InvalidArgs("session %s does not belong to caller", s.path)
	}

	s.closed = true
	s.svc.registry.Remove(s.path)
	if owned := s.svc.sessions[s.caller]; owned != nil {
		delete(owned, s.path)
		if len(owned) == 0 {
			delete(s.svc.sessions, s.caller)
		}
	}

	s.svc.metrics.SessionsClosed.Inc()
	s.svc.metrics.OpenSessions.Dec()
	s.svc.log.Debug("Closed session", "path", s.path, "caller", s.caller)

	return nil
}
