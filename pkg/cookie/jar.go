// Package cookie holds the cookie storage shared with authorization surfaces
// and the janitor that clears a host's session before a new attempt.
package cookie

import (
	"net"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/publicsuffix"
)

// Storage is the narrow contract the janitor needs from a cookie store.
type Storage interface {
	// All returns every cookie currently held.
	All() []*http.Cookie
	// Delete removes the cookie with the same domain, path and name.
	Delete(c *http.Cookie)
}

// Jar is an in-memory, concurrency-safe cookie store. It implements
// http.CookieJar so it can back the http.Client of an authorization surface,
// and Storage so the janitor can enumerate and delete its entries.
type Jar struct {
	mu      sync.RWMutex
	entries map[string]*entry
	now     func() time.Time
}

// entry is a stored cookie; hostOnly is set when the cookie carried no Domain
// attribute and must not be sent to subdomains.
type entry struct {
	cookie   *http.Cookie
	hostOnly bool
}

var (
	_ http.CookieJar = (*Jar)(nil)
	_ Storage        = (*Jar)(nil)
)

var shared = NewJar()

// Shared returns the process-wide jar.
func Shared() *Jar {
	return shared
}

// NewJar creates an empty jar.
func NewJar() *Jar {
	return &Jar{
		entries: make(map[string]*entry),
		now:     time.Now,
	}
}

func entryKey(c *http.Cookie) string {
	return strings.ToLower(c.Domain) + ";" + c.Path + ";" + c.Name
}

func normalizeDomain(domain string) string {
	return strings.ToLower(strings.TrimPrefix(domain, "."))
}

// SetCookies implements http.CookieJar. Cookies whose Domain attribute the
// request host does not domain-match, or that name a public suffix, are
// dropped.
func (j *Jar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	host := strings.ToLower(u.Hostname())

	j.mu.Lock()
	defer j.mu.Unlock()

	for _, c := range cookies {
		if c == nil || c.Name == "" {
			continue
		}
		stored := *c
		hostOnly := stored.Domain == ""
		if hostOnly {
			stored.Domain = host
		} else if !allowedDomain(host, normalizeDomain(stored.Domain)) {
			continue
		}
		stored.Domain = normalizeDomain(stored.Domain)
		if stored.Path == "" {
			stored.Path = "/"
		}
		key := entryKey(&stored)
		if j.expired(&stored) {
			delete(j.entries, key)
			continue
		}
		j.entries[key] = &entry{cookie: &stored, hostOnly: hostOnly}
	}
}

// Cookies implements http.CookieJar. Only name and value are returned, as
// required for outgoing requests.
func (j *Jar) Cookies(u *url.URL) []*http.Cookie {
	j.mu.RLock()
	defer j.mu.RUnlock()

	host := strings.ToLower(u.Hostname())
	path := u.Path
	if path == "" {
		path = "/"
	}

	var out []*http.Cookie
	for _, key := range j.sortedKeys() {
		e := j.entries[key]
		c := e.cookie
		if j.expired(c) || !strings.HasPrefix(path, c.Path) {
			continue
		}
		if e.hostOnly && host != c.Domain || !e.hostOnly && !domainMatch(host, c.Domain) {
			continue
		}
		if c.Secure && u.Scheme != "https" {
			continue
		}
		out = append(out, &http.Cookie{Name: c.Name, Value: c.Value})
	}
	return out
}

// All implements Storage. The returned cookies are copies.
func (j *Jar) All() []*http.Cookie {
	j.mu.RLock()
	defer j.mu.RUnlock()

	out := make([]*http.Cookie, 0, len(j.entries))
	for _, key := range j.sortedKeys() {
		c := *j.entries[key].cookie
		out = append(out, &c)
	}
	return out
}

// Delete implements Storage.
func (j *Jar) Delete(c *http.Cookie) {
	if c == nil {
		return
	}
	probe := *c
	probe.Domain = normalizeDomain(probe.Domain)
	if probe.Path == "" {
		probe.Path = "/"
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	delete(j.entries, entryKey(&probe))
}

// Len returns the number of stored cookies.
func (j *Jar) Len() int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return len(j.entries)
}

func (j *Jar) expired(c *http.Cookie) bool {
	if c.MaxAge < 0 {
		return true
	}
	return !c.Expires.IsZero() && c.Expires.Before(j.now())
}

func (j *Jar) sortedKeys() []string {
	keys := make([]string, 0, len(j.entries))
	for k := range j.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// allowedDomain reports whether a response from host may set a cookie for domain.
func allowedDomain(host, domain string) bool {
	if domain == "" {
		return false
	}
	if domain == host {
		return true
	}
	if net.ParseIP(host) != nil || !domainMatch(host, domain) {
		return false
	}
	suffix, _ := publicsuffix.PublicSuffix(domain)
	return suffix != domain
}

func domainMatch(host, domain string) bool {
	return host == domain || strings.HasSuffix(host, "."+domain)
}
