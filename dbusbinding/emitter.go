package dbusbinding

import (
	"log/slog"

	"github.com/godbus/dbus/v5"
	"github.com/ruteri/secret-service/interfaces"
)

// Emitter sends Completed signals from the prompt object on the bus. Prompts
// owned by HTTP callers are skipped.
type Emitter struct {
	conn Conn
	log  *slog.Logger
}

func NewEmitter(conn Conn, log *slog.Logger) *Emitter {
	return &Emitter{conn: conn, log: log}
}

func (e *Emitter) EmitCompleted(caller interfaces.Caller, signal interfaces.CompletedSignal) {
	if caller.IsHTTP() {
		return
	}

	result := signal.Result
	if result == nil {
		result = ""
	}

	err := e.conn.Emit(dbus.ObjectPath(signal.Prompt), CompletedSignal, signal.Dismissed, dbus.MakeVariant(result))
	if err != nil {
		e.log.Error("Failed to emit Completed", "err", err, "prompt", signal.Prompt, "caller", caller)
	}
}
