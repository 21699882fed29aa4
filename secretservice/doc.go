// Package secretservice implements the state machine behind the
// org.freedesktop.Secret API: session negotiation, collections and items,
// attribute search, secret retrieval, and confirmation prompts for destructive
// operations.
//
// A Service is transport agnostic. Transports call its entry points with the
// identity of the calling peer, deliver Completed signals through an
// interfaces.SignalEmitter, and report disconnected peers with CallerLost.
//
// # Objects
//
// Every live Session, Prompt, Collection and Item is registered under its
// object path:
//
//	/org/freedesktop/secrets/sessions/<n>
//	/org/freedesktop/secrets/prompts/p<n>
//	/org/freedesktop/secrets/collection/<collection>
//	/org/freedesktop/secrets/collection/<collection>/<item>
//
// Session and prompt numbers come from one counter per Service.
//
// # Faults
//
// Errors surfaced to callers are *interfaces.Fault values. Match them by kind:
//
//	errors.Is(err, interfaces.ErrIsLocked)
package secretservice
