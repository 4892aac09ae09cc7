// Package deeplink turns an incoming app URL into the auth credential it
// carries, if any.
package deeplink

import (
	"net/url"
	"strings"
)

// Kind tags the variant held by a Payload.
type Kind int

const (
	KindNone Kind = iota
	KindPKCE
	KindFragment
)

func (k Kind) String() string {
	switch k {
	case KindPKCE:
		return "pkce"
	case KindFragment:
		return "fragment"
	default:
		return "none"
	}
}

// Payload is the credential extracted from a link. Only the fields of its
// Kind are set.
type Payload struct {
	Kind Kind

	// KindPKCE
	Code string

	// KindFragment
	AccessToken  string
	RefreshToken string
}

// Parse inspects raw and never fails: anything that does not carry a
// credential yields a KindNone payload.
//
// A code or token query parameter wins over fragment tokens. The fragment is
// read as key=value pairs separated by '&'.
func Parse(raw string) Payload {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Payload{}
	}

	beforeHash, fragment, _ := strings.Cut(raw, "#")

	if _, rawQuery, ok := strings.Cut(beforeHash, "?"); ok {
		// ParseQuery keeps every well-formed pair even when it reports an error
		q, _ := url.ParseQuery(rawQuery)
		code := q.Get("code")
		if code == "" {
			code = q.Get("token")
		}
		if code != "" {
			return Payload{Kind: KindPKCE, Code: code}
		}
	}

	if fragment == "" {
		return Payload{}
	}
	params := parseFragment(fragment)
	if at := params["access_token"]; at != "" {
		return Payload{Kind: KindFragment, AccessToken: at, RefreshToken: params["refresh_token"]}
	}
	return Payload{}
}

func parseFragment(fragment string) map[string]string {
	params := make(map[string]string)
	for _, pair := range strings.Split(fragment, "&") {
		if pair == "" {
			continue
		}
		k, v, _ := strings.Cut(pair, "=")
		k = unescape(k)
		if _, seen := params[k]; seen {
			continue
		}
		params[k] = unescape(v)
	}
	return params
}

// unescape percent-decodes s without treating '+' as a space. Malformed
// escapes are returned verbatim.
func unescape(s string) string {
	out, err := url.PathUnescape(s)
	if err != nil {
		return s
	}
	return out
}
