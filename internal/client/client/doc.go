// Package client is the transport to the hosted identity provider.
//
// The package provides:
//  1. A transport-agnostic contract (see the Client interface) covering
//     sign-up, password and PKCE token grants, refresh, user lookup and
//     update, sign-out, recovery and resend e-mails, plus database RPCs.
//  2. A concrete HTTP/JSON implementation (see HTTPClient) speaking the
//     provider's REST dialect with the public API key on every request.
//  3. PKCE helpers (NewCodeVerifier, CodeChallengeS256).
//
// # Error Handling
//
// Every non-2xx response becomes a *ProviderError. Its Kind is chosen by
// Classify, the single place where provider codes and message fragments are
// translated into the sentinel errors of package common. Callers match with
// errors.Is against those sentinels and never inspect provider text.
//
// Implementations are safe for concurrent use. The client keeps no session
// state; access tokens are passed per call.
package client
