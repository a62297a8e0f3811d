// Package sessions implements the credential and session lifecycle for the
// Pulsefit backend: password login with opaque refresh tokens, one-time-use
// refresh rotation, signed email-confirmation links, 6 digit password-reset
// codes, and forced logout across devices.
//
// All durable state lives in the credential store (users plus one
// refresh_tokens row per active session); every operation is a
// read-modify-write against a single user record, and list mutations are
// single conditional statements so concurrent logins and logouts never lose
// updates.
//
// The core entry points are Manager (the session state machine) and Facade
// (registration and email orchestration on top of Manager). Bun-backed
// repositories provide the default store; middleware/tokenware guards HTTP
// routes with bearer access tokens.
package sessions
