package interfaces

// CompletedSignal is the payload of a prompt's Completed signal.
type CompletedSignal struct {
	// Prompt is the path of the prompt that completed.
	Prompt ObjectPath `json:"prompt"`

	// Dismissed is true when the prompt was dismissed and its action discarded.
	Dismissed bool `json:"dismissed"`

	// Result is the variant result of the prompt (an empty string unless the
	// prompt was created with an explicit result).
	Result any `json:"result"`
}

// SignalEmitter is the signal facility of the transport collaborator. The engine
// calls it exactly once per prompt, with the identity of the caller that owns
// the prompt.
type SignalEmitter interface {
	EmitCompleted(caller Caller, signal CompletedSignal)
}

// SignalEmitterFunc adapts a function to SignalEmitter.
type SignalEmitterFunc func(caller Caller, signal CompletedSignal)

// EmitCompleted calls f.
func (f SignalEmitterFunc) EmitCompleted(caller Caller, signal CompletedSignal) {
	f(caller, signal)
}

// SignalEmitters fans a signal out to several emitters, e.g. when the engine
// is served over more than one transport.
type SignalEmitters []SignalEmitter

// EmitCompleted forwards the signal to every emitter in order.
func (e SignalEmitters) EmitCompleted(caller Caller, signal CompletedSignal) {
	for _, emitter := range e {
		emitter.EmitCompleted(caller, signal)
	}
}
