/*
Package api defines the HTTP binding of the secret service.

The binding mirrors the org.freedesktop.Secret D-Bus interfaces as JSON
endpoints. Subpackages:

1. secrethandler - Request handlers, the Completed signal queue, and a Go client

Shared request and response types, the caller header, and server configuration
live in this package so handlers and clients agree on the wire format.

# Caller Identity

Every request names its caller in the X-Secret-Caller header. The engine sees
the value behind the "http:" prefix, so a header can never name a session bus
peer. Sessions belong to the caller that opened them, and Completed signals are
queued per caller until fetched from /api/signals.

# Variants

OpenSession inputs and outputs are variants:

	{"type": "s", "string": ""}
	{"type": "ay", "bytes": "<base64>"}

# Faults

Faults are returned with a status code per kind (501 NotSupported,
400 InvalidArgs, 403 IsLocked) and a body naming the D-Bus error:

	{"name": "org.freedesktop.Secret.Error.IsLocked", "message": "secret is locked: ..."}
*/
package api
