package dbusbinding

import (
	"github.com/godbus/dbus/v5"
	"github.com/ruteri/secret-service/interfaces"
)

// serviceObject is exported at /org/freedesktop/secrets.
type serviceObject struct {
	b *Binding
}

func (o *serviceObject) OpenSession(sender dbus.Sender, algorithm string, input dbus.Variant) (dbus.Variant, dbus.ObjectPath, *dbus.Error) {
	output, path, err := o.b.svc.OpenSession(interfaces.Caller(sender), algorithm, input.Value())
	if err != nil {
		return dbus.MakeVariant(""), "/", o.b.dbusError(err)
	}
	return dbus.MakeVariant(output), dbus.ObjectPath(path), nil
}

func (o *serviceObject) SearchItems(attributes map[string]string) ([]dbus.ObjectPath, []dbus.ObjectPath, *dbus.Error) {
	unlocked, locked := o.b.svc.SearchItems(attributes)
	return fromPaths(unlocked), fromPaths(locked), nil
}

func (o *serviceObject) GetSecrets(sender dbus.Sender, items []dbus.ObjectPath, session dbus.ObjectPath) (map[dbus.ObjectPath]Secret, *dbus.Error) {
	secrets, err := o.b.svc.GetSecrets(interfaces.Caller(sender), toPaths(items), interfaces.ObjectPath(session))
	if err != nil {
		return nil, o.b.dbusError(err)
	}

	out := make(map[dbus.ObjectPath]Secret, len(secrets))
	for path, secret := range secrets {
		out[dbus.ObjectPath(path)] = secretToWire(secret)
	}
	return out, nil
}

// itemObject serves every path under the collection prefix; the target item
// comes from the message header.
type itemObject struct {
	b *Binding
}

func (o *itemObject) GetSecret(sender dbus.Sender, msg dbus.Message, session dbus.ObjectPath) (Secret, *dbus.Error) {
	secret, err := o.b.svc.GetSecret(interfaces.Caller(sender), messagePath(msg), interfaces.ObjectPath(session))
	if err != nil {
		return Secret{Parameters: []byte{}, Value: []byte{}}, o.b.dbusError(err)
	}
	return secretToWire(secret), nil
}

func (o *itemObject) Delete(sender dbus.Sender, msg dbus.Message) (dbus.ObjectPath, *dbus.Error) {
	prompt, err := o.b.svc.DeleteItem(interfaces.Caller(sender), messagePath(msg))
	if err != nil {
		return "/", o.b.dbusError(err)
	}
	return dbus.ObjectPath(prompt), nil
}

type sessionObject struct {
	b *Binding
}

func (o *sessionObject) Close(sender dbus.Sender, msg dbus.Message) *dbus.Error {
	return o.b.dbusError(o.b.svc.CloseSession(interfaces.Caller(sender), messagePath(msg)))
}

type promptObject struct {
	b *Binding
}

func (o *promptObject) Prompt(msg dbus.Message, windowID string) *dbus.Error {
	return o.b.dbusError(o.b.svc.PromptPrompt(messagePath(msg), windowID))
}

func (o *promptObject) Dismiss(msg dbus.Message) *dbus.Error {
	return o.b.dbusError(o.b.svc.DismissPrompt(messagePath(msg)))
}
