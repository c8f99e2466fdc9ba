// Package tokenstore persists the bearer token between runs.
//
// File is the default for the CLI, Redis lets several gateway processes share
// one login, and Memory keeps the token for the life of the process only.
// Encrypted wraps any of them with AES-GCM. All implement domain.TokenStore.
package tokenstore
