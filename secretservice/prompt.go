package secretservice

import (
	"fmt"

	"github.com/benbjohnson/clock"
	"github.com/ruteri/secret-service/interfaces"
)

// PromptState is the lifecycle state of a prompt.
type PromptState int

const (
	// PromptCreated means the prompt exists but has not been driven yet.
	PromptCreated PromptState = iota
	// PromptPrompted means completion is scheduled after the configured delay.
	PromptPrompted
	// PromptCompleted means the action ran and Completed(false) was emitted.
	PromptCompleted
	// PromptDismissed means the action was discarded and Completed(true) was emitted.
	PromptDismissed
)

func (s PromptState) String() string {
	switch s {
	case PromptCreated:
		return "created"
	case PromptPrompted:
		return "prompted"
	case PromptCompleted:
		return "completed"
	case PromptDismissed:
		return "dismissed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transitions are possible.
func (s PromptState) Terminal() bool {
	return s == PromptCompleted || s == PromptDismissed
}

// ActionKind enumerates the deferred operations a prompt can carry.
type ActionKind int

const (
	// ActionNone completes without side effects.
	ActionNone ActionKind = iota
	// ActionDeleteItem removes Item from its collection and the registry.
	ActionDeleteItem
)

func (k ActionKind) String() string {
	switch k {
	case ActionNone:
		return "none"
	case ActionDeleteItem:
		return "delete_item"
	default:
		return "unknown"
	}
}

// PromptAction is the pending action of a prompt. It is fixed at creation.
type PromptAction struct {
	Kind ActionKind
	Item interfaces.ObjectPath
}

// PromptOption configures a prompt created with NewPrompt.
type PromptOption func(*Prompt)

// WithPromptName places the prompt at a fixed name under the prompts namespace
// instead of an allocated one. A name can be used once per service, so a path
// never denotes two prompts.
func WithPromptName(name string) PromptOption {
	return func(p *Prompt) {
		p.path = namedPromptPath(name)
	}
}

// WithPromptResult sets the result carried by Completed(false).
func WithPromptResult(result any) PromptOption {
	return func(p *Prompt) {
		p.result = result
	}
}

// Prompt is a deferred, confirmable action. It emits exactly one Completed
// signal over its lifetime and then leaves the registry.
type Prompt struct {
	svc    *Service
	path   interfaces.ObjectPath
	caller interfaces.Caller
	action PromptAction
	result any

	state PromptState
	timer *clock.Timer
}

// NewPrompt registers a prompt for caller carrying action.
func (s *Service) NewPrompt(caller interfaces.Caller, action PromptAction, opts ...PromptOption) (*Prompt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.newPromptLocked(caller, action, opts...)
}

func (s *Service) newPromptLocked(caller interfaces.Caller, action PromptAction, opts ...PromptOption) (*Prompt, error) {
	p := &Prompt{
		svc:    s,
		caller: caller,
		action: action,
		result: "",
	}
	for _, opt := range opts {
		opt(p)
	}
	named := p.path != ""
	if named && s.namedPrompts[p.path] {
		return nil, fmt.Errorf("%w: %s was used by an earlier prompt", ErrDuplicatePath, p.path)
	}
	if !named {
		p.path = promptPath(s.nextIdentifierLocked())
	}

	if err := s.registry.Register(p); err != nil {
		return nil, err
	}
	if named {
		s.namedPrompts[p.path] = true
	}
	if s.prompts[caller] == nil {
		s.prompts[caller] = make(map[interfaces.ObjectPath]*Prompt)
	}
	s.prompts[caller][p.path] = p

	s.log.Debug("Created prompt", "path", p.path, "caller", caller, "action", action.Kind)
	return p, nil
}

// Path returns the prompt's object path.
func (p *Prompt) Path() interfaces.ObjectPath { return p.path }

// Caller returns the identity the Completed signal is addressed to.
func (p *Prompt) Caller() interfaces.Caller { return p.caller }

// Action returns the pending action.
func (p *Prompt) Action() PromptAction { return p.action }

// State returns the current lifecycle state.
func (p *Prompt) State() PromptState {
	p.svc.mu.Lock()
	defer p.svc.mu.Unlock()
	return p.state
}

// Prompt drives the prompt. Without a configured delay the action runs and the
// prompt completes before Prompt returns; otherwise both happen when the delay
// elapses. Calls after the first, and calls on a finished prompt, are no-ops.
func (p *Prompt) Prompt(windowID string) error {
	p.svc.mu.Lock()
	signal := p.promptLocked(windowID)
	p.svc.mu.Unlock()

	p.svc.emit(p.caller, signal)
	return nil
}

// Dismiss discards the pending action, cancelling a scheduled completion, and
// emits Completed(true). It is a no-op once the prompt has finished.
func (p *Prompt) Dismiss() error {
	p.svc.mu.Lock()
	signal := p.dismissLocked()
	p.svc.mu.Unlock()

	p.svc.emit(p.caller, signal)
	return nil
}

func (p *Prompt) promptLocked(windowID string) *interfaces.CompletedSignal {
	if p.state != PromptCreated {
		return nil
	}

	if p.svc.promptDelay <= 0 {
		p.runActionLocked()
		return p.finishLocked(false)
	}

	p.state = PromptPrompted
	p.timer = p.svc.clock.AfterFunc(p.svc.promptDelay, p.fire)
	p.svc.log.Debug("Scheduled prompt", "path", p.path, "windowID", windowID, "delay", p.svc.promptDelay)
	return nil
}

// fire runs on the clock's timer.
func (p *Prompt) fire() {
	p.svc.mu.Lock()
	if p.state != PromptPrompted {
		p.svc.mu.Unlock()
		return
	}
	p.timer = nil
	p.runActionLocked()
	signal := p.finishLocked(false)
	p.svc.mu.Unlock()

	p.svc.emit(p.caller, signal)
}

func (p *Prompt) dismissLocked() *interfaces.CompletedSignal {
	if p.state.Terminal() {
		return nil
	}
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	return p.finishLocked(true)
}

func (p *Prompt) runActionLocked() {
	switch p.action.Kind {
	case ActionNone:
	case ActionDeleteItem:
		item, ok := p.svc.registry.Item(p.action.Item)
		if !ok {
			p.svc.log.Warn("Prompt action target is gone", "path", p.path, "item", p.action.Item)
			return
		}
		item.removeLocked()
	}
}

func (p *Prompt) finishLocked(dismissed bool) *interfaces.CompletedSignal {
	result := p.result
	if dismissed {
		p.state = PromptDismissed
		result = ""
	} else {
		p.state = PromptCompleted
	}

	p.svc.registry.Remove(p.path)
	if owned := p.svc.prompts[p.caller]; owned != nil {
		delete(owned, p.path)
		if len(owned) == 0 {
			delete(p.svc.prompts, p.caller)
		}
	}

	return &interfaces.CompletedSignal{Prompt: p.path, Dismissed: dismissed, Result: result}
}
