// Package secrethandler implements the HTTP/JSON binding of the secret service.
//
// Handler routes every request to a SecretService with the caller identity from
// the X-Secret-Caller header. SignalQueue is the signal emitter for this
// transport: Completed signals wait per caller until fetched from /api/signals.
// Client is the matching Go client; OpenDHSession performs the client side of
// the Diffie-Hellman exchange so ClientSession.Decode can recover secrets.
//
// Routes:
//
//	POST /api/service/open-session
//	POST /api/service/search-items
//	POST /api/service/get-secrets
//	POST /api/item/get-secret
//	POST /api/item/delete
//	POST /api/session/close
//	POST /api/prompt/prompt
//	POST /api/prompt/dismiss
//	POST /api/caller/disconnect
//	GET  /api/signals
//	GET  /api/collections
package secrethandler
