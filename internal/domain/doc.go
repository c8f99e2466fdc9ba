// Package domain defines the core domain types and interfaces.
//
// This package contains concept-oriented files (credential.go, job.go, errors.go, ports.go)
// with shared types and cross-cutting interfaces. No I/O lives here, only contracts.
// Keeping the interfaces here prevents circular imports between session, reconciler and adapters.
package domain
