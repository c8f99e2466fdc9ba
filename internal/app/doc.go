// Package app provides the application service layer.
//
// Service orchestrates the use cases shared by the CLI and the gateway: login,
// logout, registration, upload, history and watching pending jobs. It owns the
// polling schedule so that at most one poll loop runs per process. New builds
// the whole object graph from configuration.
package app
