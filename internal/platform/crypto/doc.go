// Package crypto encrypts the stored bearer token at rest.
//
// AesGcmCryptoService seals tokens with AES-256-GCM under a key from TOKEN_KEY.
// Tests that do not care about encryption use cryptotest.NoopService.
package crypto
