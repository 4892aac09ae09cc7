// Package config loads runtime configuration for the xplit client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected via flags: -c or -config.
//  3. Environment variables prefixed with XPLIT_ (caarlos0/env).
//  4. Command-line flags, which override earlier values.
//
// Supported flags
//
//	-u string   identity provider base URL
//	-k string   identity provider public API key
//	-d string   data directory for the local database
//	-l string   log level (debug|info|warn|error)
//
// # JSON schema
//
// Durations use timex.Duration, so values can be either strings like "2.5s"
// or integer nanoseconds:
//
//	{
//	  "provider_url": "https://abc.supabase.co",
//	  "provider_api_key": "public-anon-key",
//	  "app_scheme": "xplit",
//	  "fallback_wait": "2.5s",
//	  "avatars": {"bucket": "avatars", "region": "us-east-1"}
//	}
//
// A missing provider URL or key is fatal: Validate returns
// ErrMissingProviderConfig and the client refuses to start.
package config
