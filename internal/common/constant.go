package common

// AppName is used as the keyring service name and as the default deep link scheme.
const AppName = "xplit"

// APIKeyHeaderName carries the provider's public API key on every request.
const APIKeyHeaderName = "apikey"

// AuthorizationHeaderName carries the bearer access token.
const AuthorizationHeaderName = "Authorization"
