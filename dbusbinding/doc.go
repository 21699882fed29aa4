/*
Package dbusbinding exports the secret service engine on a D-Bus connection
under the org.freedesktop.Secret interfaces.

The service object lives at /org/freedesktop/secrets. Items, sessions and
prompts are served by subtree handlers that read the target object from the
message path header, so objects created by the engine need no per-object
export. The caller identity of every call is its unique bus name.

Emitter publishes org.freedesktop.Secret.Prompt.Completed from the prompt's
path. Serve also watches NameOwnerChanged and closes the sessions of callers
that disconnect.
*/
package dbusbinding
