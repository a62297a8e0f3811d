// Package provider validates identity tokens issued by external OIDC
// providers and maps them onto local accounts. Externally created accounts
// carry no password hash and are rejected from every password based flow by
// the root package.
package provider
