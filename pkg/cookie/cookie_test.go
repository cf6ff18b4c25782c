package cookie

import (
	"net/http"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestJar_SetAndGetCookies(t *testing.T) {
	jar := NewJar()
	u := mustURL(t, "https://foursquare.com/oauth2/authenticate")

	jar.SetCookies(u, []*http.Cookie{
		{Name: "session", Value: "s1"},
		{Name: "pref", Value: "p1", Domain: ".foursquare.com", Path: "/oauth2"},
	})

	got := jar.Cookies(u)
	require.Len(t, got, 2)

	other := jar.Cookies(mustURL(t, "https://foursquare.com/"))
	require.Len(t, other, 1)
	assert.Equal(t, "session", other[0].Name)

	sub := jar.Cookies(mustURL(t, "https://api.foursquare.com/oauth2/x"))
	require.Len(t, sub, 1)
	assert.Equal(t, "pref", sub[0].Name)
}

func TestJar_RejectsForeignDomains(t *testing.T) {
	tests := []struct {
		name   string
		from   string
		domain string
		stored bool
	}{
		{name: "own host", from: "https://foursquare.com/", domain: "foursquare.com", stored: true},
		{name: "parent domain", from: "https://api.foursquare.com/", domain: ".foursquare.com", stored: true},
		{name: "unrelated host", from: "https://evil.example/", domain: "foursquare.com"},
		{name: "sibling host", from: "https://api.foursquare.com/", domain: "www.foursquare.com"},
		{name: "public suffix", from: "https://foursquare.com/", domain: "com"},
		{name: "multi label public suffix", from: "https://shop.example.co.uk/", domain: "co.uk"},
		{name: "ip address parent", from: "http://10.0.0.1/", domain: "0.0.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			jar := NewJar()
			jar.SetCookies(mustURL(t, tt.from), []*http.Cookie{
				{Name: "session", Value: "planted", Domain: tt.domain},
			})
			if tt.stored {
				assert.Equal(t, 1, jar.Len())
			} else {
				assert.Equal(t, 0, jar.Len())
			}
		})
	}
}

func TestJar_ForeignCookieNotSentToVictim(t *testing.T) {
	jar := NewJar()
	jar.SetCookies(mustURL(t, "https://evil.example/"), []*http.Cookie{
		{Name: "session", Value: "attacker", Domain: "foursquare.com"},
	})

	assert.Empty(t, jar.Cookies(mustURL(t, "https://foursquare.com/")))
}

func TestJar_ExpiredCookiesAreDropped(t *testing.T) {
	jar := NewJar()
	u := mustURL(t, "https://example.com/")

	jar.SetCookies(u, []*http.Cookie{{Name: "a", Value: "1"}})
	require.Equal(t, 1, jar.Len())

	jar.SetCookies(u, []*http.Cookie{{Name: "a", Value: "", MaxAge: -1}})
	assert.Equal(t, 0, jar.Len())

	jar.SetCookies(u, []*http.Cookie{{Name: "b", Value: "2", Expires: time.Now().Add(-time.Hour)}})
	assert.Equal(t, 0, jar.Len())
}

func TestJar_SecureCookieOnlyOverHTTPS(t *testing.T) {
	jar := NewJar()
	jar.SetCookies(mustURL(t, "https://example.com/"), []*http.Cookie{{Name: "s", Value: "1", Secure: true}})

	assert.Empty(t, jar.Cookies(mustURL(t, "http://example.com/")))
	assert.Len(t, jar.Cookies(mustURL(t, "https://example.com/")), 1)
}

func TestJar_Delete(t *testing.T) {
	jar := NewJar()
	jar.SetCookies(mustURL(t, "https://example.com/"), []*http.Cookie{{Name: "a", Value: "1"}})

	jar.Delete(&http.Cookie{Name: "a", Domain: ".example.com"})
	assert.Equal(t, 0, jar.Len())

	jar.Delete(nil)
}

func TestJanitor_CleanupHost(t *testing.T) {
	jar := NewJar()
	jar.SetCookies(mustURL(t, "https://foursquare.com/"), []*http.Cookie{
		{Name: "session", Value: "s1"},
		{Name: "dotted", Value: "d1", Domain: ".foursquare.com"},
	})
	jar.SetCookies(mustURL(t, "https://example.com/"), []*http.Cookie{{Name: "keep", Value: "k"}})

	NewJanitor(jar).CleanupHost("foursquare.com")

	all := jar.All()
	require.Len(t, all, 1)
	assert.Equal(t, "keep", all[0].Name)
}

func TestJanitor_CleanupURL(t *testing.T) {
	jar := NewJar()
	jar.SetCookies(mustURL(t, "https://foursquare.com/"), []*http.Cookie{{Name: "session", Value: "s1"}})

	NewJanitor(jar).CleanupURL(mustURL(t, "https://foursquare.com:443/oauth2/authenticate?client_id=x"))

	assert.Equal(t, 0, jar.Len())
}

type panickyStorage struct{}

func (panickyStorage) All() []*http.Cookie {
	return []*http.Cookie{{Name: "x", Domain: "example.com"}}
}

func (panickyStorage) Delete(*http.Cookie) { panic("storage unavailable") }

func TestJanitor_SwallowsStorageFailures(t *testing.T) {
	assert.NotPanics(t, func() {
		NewJanitor(panickyStorage{}).CleanupHost("example.com")
	})
	assert.NotPanics(t, func() {
		NewJanitor(nil).CleanupHost("example.com")
	})
	assert.NotPanics(t, func() {
		var j *Janitor
		j.CleanupURL(mustURL(t, "https://example.com"))
	})
}

func TestJar_ConcurrentAccess(t *testing.T) {
	jar := NewJar()
	u := mustURL(t, "https://example.com/")

	const numGoroutines = 50
	var wg sync.WaitGroup
	wg.Add(numGoroutines * 2)
	for i := 0; i < numGoroutines; i++ {
		go func(index int) {
			defer wg.Done()
			jar.SetCookies(u, []*http.Cookie{{Name: "c" + string(rune('A'+index)), Value: "v"}})
		}(i)
		go func() {
			defer wg.Done()
			_ = jar.Cookies(u)
			_ = jar.All()
		}()
	}
	wg.Wait()

	assert.Equal(t, numGoroutines, jar.Len())
}
