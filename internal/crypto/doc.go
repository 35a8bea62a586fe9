// Package crypto protects provider API keys at rest.
//
// Keys are encrypted with AES-CBC/PKCS7 under key material supplied by configuration and
// rendered to clients only in masked form.
package crypto
