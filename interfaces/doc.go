// Package interfaces defines core interfaces and types for the secret service,
// separating shared definitions from the engine and transport implementations.
//
// # Object Model
//
// ObjectPath: the RPC-addressable identifier of a session, prompt, collection or
// item. NullPath ("/") is the sentinel returned when there is nothing to report.
//
// Caller: the opaque identity of the peer issuing a call. Sessions are usable only
// by the caller that opened them.
//
// Secret: an encoded secret (session, parameters, value, content type) as returned
// by GetSecret and GetSecrets.
//
// # Faults
//
// Fault carries one of three kinds (NotSupported, InvalidArgs, IsLocked) and a
// human-readable message. Callers and tests match on kind through the sentinels:
//
//	if errors.Is(err, interfaces.ErrIsLocked) { ... }
//
// # Transport Collaborator
//
// SignalEmitter is implemented by each transport binding and receives the
// Completed signal of every prompt.
//
// # Collection Sources
//
// CollectionSource and CollectionSourceFactory describe administrative fixture
// backends (file, s3, vault, keyring) used to seed collections at startup.
package interfaces
