// Package api is the HTTP client for the Resume Insider REST API.
//
// Client covers the public authentication endpoints and implements
// domain.AuthService. JobsClient covers the privileged upload and history
// endpoints and implements domain.JobAPI; it is built from a Client with the
// session's RoundTripper so every request carries the bearer credential.
package api
