// Package core implements the client-side session runtime: the session
// store and its lifecycle state machine, credential polling, tenant
// derivation, and the contracts the token, identity, transport, and store
// packages plug into.
//
// A process owns exactly one Session value. The SessionStore mediates all
// reads and writes to it through whole-value replacement: readers always
// observe either the fully-old or fully-new Session, never a partial
// update. Collaborators subscribe to session events to discard caches
// keyed by a tenant id that a credential swap invalidated.
package core
