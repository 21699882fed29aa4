package dbusbinding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/godbus/dbus/v5"
	"github.com/ruteri/secret-service/interfaces"
	"github.com/ruteri/secret-service/secretservice"
)

// D-Bus interface names of the exported objects.
const (
	ServiceInterface = "org.freedesktop.Secret.Service"
	ItemInterface    = "org.freedesktop.Secret.Item"
	SessionInterface = "org.freedesktop.Secret.Session"
	PromptInterface  = "org.freedesktop.Secret.Prompt"

	// CompletedSignal is the fully qualified name of the prompt signal.
	CompletedSignal = PromptInterface + ".Completed"

	// DefaultBusName is the well-known name of the secret service.
	DefaultBusName = "org.freedesktop.secrets"

	failedErrorName = "org.freedesktop.DBus.Error.Failed"
)

// Engine is the secret service surface exported on the bus.
type Engine interface {
	OpenSession(caller interfaces.Caller, algorithm string, input any) (any, interfaces.ObjectPath, error)
	SearchItems(query map[string]string) (unlocked, locked []interfaces.ObjectPath)
	GetSecrets(caller interfaces.Caller, items []interfaces.ObjectPath, session interfaces.ObjectPath) (map[interfaces.ObjectPath]interfaces.Secret, error)
	GetSecret(caller interfaces.Caller, item, session interfaces.ObjectPath) (interfaces.Secret, error)
	DeleteItem(caller interfaces.Caller, item interfaces.ObjectPath) (interfaces.ObjectPath, error)
	CloseSession(caller interfaces.Caller, session interfaces.ObjectPath) error
	PromptPrompt(path interfaces.ObjectPath, windowID string) error
	DismissPrompt(path interfaces.ObjectPath) error
	CallerLost(caller interfaces.Caller)
}

// Conn is the part of *dbus.Conn the binding uses.
type Conn interface {
	Export(v interface{}, path dbus.ObjectPath, iface string) error
	ExportSubtree(v interface{}, path dbus.ObjectPath, iface string) error
	Emit(path dbus.ObjectPath, name string, values ...interface{}) error
}

// Secret is the (oayays) wire struct of an encoded secret.
type Secret struct {
	Session     dbus.ObjectPath
	Parameters  []byte
	Value       []byte
	ContentType string
}

func secretToWire(s interfaces.Secret) Secret {
	return Secret{
		Session:     dbus.ObjectPath(s.Session),
		Parameters:  nonNil(s.Parameters),
		Value:       nonNil(s.Value),
		ContentType: s.ContentType,
	}
}

func nonNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}

// Binding exports an Engine on a bus connection.
type Binding struct {
	svc Engine
	log *slog.Logger
}

func New(svc Engine, log *slog.Logger) *Binding {
	return &Binding{svc: svc, log: log}
}

// Export registers the service object and the item, session and prompt
// subtrees on conn.
func (b *Binding) Export(conn Conn) error {
	exports := []struct {
		v       interface{}
		path    interfaces.ObjectPath
		iface   string
		subtree bool
	}{
		{&serviceObject{b}, secretservice.ServicePath, ServiceInterface, false},
		{&itemObject{b}, subtreeRoot(secretservice.CollectionPrefix), ItemInterface, true},
		{&sessionObject{b}, subtreeRoot(secretservice.SessionPrefix), SessionInterface, true},
		{&promptObject{b}, subtreeRoot(secretservice.PromptPrefix), PromptInterface, true},
	}

	for _, e := range exports {
		var err error
		if e.subtree {
			err = conn.ExportSubtree(e.v, dbus.ObjectPath(e.path), e.iface)
		} else {
			err = conn.Export(e.v, dbus.ObjectPath(e.path), e.iface)
		}
		if err != nil {
			return fmt.Errorf("could not export %s at %s: %w", e.iface, e.path, err)
		}
	}
	return nil
}

// subtreeRoot strips the trailing slash of a path prefix.
func subtreeRoot(prefix interfaces.ObjectPath) interfaces.ObjectPath {
	return prefix[:len(prefix)-1]
}

// Serve claims busName on conn, exports the objects and closes the sessions of
// every caller that leaves the bus until ctx is done.
func (b *Binding) Serve(ctx context.Context, conn *dbus.Conn, busName string) error {
	reply, err := conn.RequestName(busName, dbus.NameFlagAllowReplacement|dbus.NameFlagReplaceExisting|dbus.NameFlagDoNotQueue)
	if err != nil {
		return fmt.Errorf("could not request bus name %s: %w", busName, err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return fmt.Errorf("bus name %s is already taken", busName)
	}

	if err := b.Export(conn); err != nil {
		return err
	}

	if err := conn.AddMatchSignal(
		dbus.WithMatchInterface("org.freedesktop.DBus"),
		dbus.WithMatchMember("NameOwnerChanged"),
	); err != nil {
		return fmt.Errorf("could not watch bus names: %w", err)
	}

	signals := make(chan *dbus.Signal, 16)
	conn.Signal(signals)
	defer conn.RemoveSignal(signals)

	b.log.Info("Serving secret service on the bus", "busName", busName)
	b.WatchCallers(ctx, signals)
	return nil
}

// WatchCallers consumes NameOwnerChanged signals and reports callers whose
// connection went away. It returns when ctx is done or signals is closed.
func (b *Binding) WatchCallers(ctx context.Context, signals <-chan *dbus.Signal) {
	for {
		select {
		case <-ctx.Done():
			return
		case sig, ok := <-signals:
			if !ok {
				return
			}
			if caller, lost := lostCaller(sig); lost {
				b.log.Debug("Caller left the bus", "caller", caller)
				b.svc.CallerLost(caller)
			}
		}
	}
}

func lostCaller(sig *dbus.Signal) (interfaces.Caller, bool) {
	if sig == nil || sig.Name != "org.freedesktop.DBus.NameOwnerChanged" || len(sig.Body) != 3 {
		return "", false
	}
	oldOwner, ok1 := sig.Body[1].(string)
	newOwner, ok2 := sig.Body[2].(string)
	if !ok1 || !ok2 || newOwner != "" || oldOwner == "" {
		return "", false
	}
	return interfaces.Caller(oldOwner), true
}

// dbusError converts engine errors to D-Bus errors with the fault's name.
func (b *Binding) dbusError(err error) *dbus.Error {
	if err == nil {
		return nil
	}
	var fault *interfaces.Fault
	if errors.As(err, &fault) {
		return dbus.NewError(fault.Kind.Name(), []interface{}{fault.Error()})
	}
	b.log.Error("Bus call failed", "err", err)
	return dbus.NewError(failedErrorName, []interface{}{err.Error()})
}

func messagePath(msg dbus.Message) interfaces.ObjectPath {
	v, ok := msg.Headers[dbus.FieldPath]
	if !ok {
		return ""
	}
	path, _ := v.Value().(dbus.ObjectPath)
	return interfaces.ObjectPath(path)
}

func toPaths(paths []dbus.ObjectPath) []interfaces.ObjectPath {
	out := make([]interfaces.ObjectPath, len(paths))
	for i, p := range paths {
		out[i] = interfaces.ObjectPath(p)
	}
	return out
}

func fromPaths(paths []interfaces.ObjectPath) []dbus.ObjectPath {
	out := make([]dbus.ObjectPath, len(paths))
	for i, p := range paths {
		out[i] = dbus.ObjectPath(p)
	}
	return out
}
