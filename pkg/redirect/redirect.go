// Package redirect extracts authorization response parameters from redirect URLs.
//
// Two delivery shapes are accepted. Web authorization appends the response to
// the fragment (myapp://callback#access_token=...), native app-switch
// authorization puts it in the query (myapp://callback?access_token=...).
package redirect

import (
	"net/url"
	"strings"
)

// Well-known response parameter names.
const (
	AccessTokenParam      = "access_token"
	ErrorParam            = "error"
	ErrorDescriptionParam = "error_description"
)

// Parameters maps response parameter names to their raw values.
type Parameters map[string]string

// Get returns the value for key and whether it was present.
func (p Parameters) Get(key string) (string, bool) {
	v, ok := p[key]
	return v, ok
}

// Parse returns the parameters carried by actual.
//
// When actual starts with the expected redirect URL followed by "#", the
// fragment holds the parameters; otherwise the raw query does. Values are the
// raw substrings, no further decoding is applied.
func Parse(expected, actual *url.URL) Parameters {
	if actual == nil {
		return Parameters{}
	}
	var raw string
	if expected != nil && strings.HasPrefix(canonical(actual), canonical(expected)+"#") {
		_, raw, _ = strings.Cut(actual.String(), "#")
	} else {
		raw = actual.RawQuery
	}
	return ParseQuery(raw)
}

// canonical renders u with its scheme and host lower-cased, which are
// case-insensitive in URLs.
func canonical(u *url.URL) string {
	c := *u
	c.Scheme = strings.ToLower(c.Scheme)
	c.Host = strings.ToLower(c.Host)
	return c.String()
}

// ParseQuery splits raw on "&" and each candidate on "=". Only candidates that
// produce exactly a key and a value are kept; everything else is dropped.
func ParseQuery(raw string) Parameters {
	params := Parameters{}
	if raw == "" {
		return params
	}
	for _, pair := range strings.Split(raw, "&") {
		kv := strings.Split(pair, "=")
		if len(kv) != 2 {
			continue
		}
		params[kv[0]] = kv[1]
	}
	return params
}

// Matches reports whether actual is a redirect to the expected URL: same
// scheme, same host and either the expected path or a path below it.
func Matches(expected, actual *url.URL) bool {
	if expected == nil || actual == nil {
		return false
	}
	if !strings.EqualFold(expected.Scheme, actual.Scheme) {
		return false
	}
	if !strings.EqualFold(expected.Host, actual.Host) {
		return false
	}
	want, got := expected.EscapedPath(), actual.EscapedPath()
	if got == want {
		return true
	}
	return strings.HasPrefix(got, strings.TrimSuffix(want, "/")+"/")
}
