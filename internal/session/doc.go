// Package session owns the credential lifecycle: acquire, persist, attach, clear.
//
// A Manager is created once per process, restored from durable storage via
// RestoreSession and injected into every component that issues privileged
// requests. Privileged HTTP traffic goes through Manager.Transport, which adds
// the bearer header and clears the session on any 401/403 response.
package session
