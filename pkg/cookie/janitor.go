package cookie

import (
	"log/slog"
	"net/url"
	"strings"
)

// Janitor deletes cookies scoped to a host so that a previous login session
// cannot skip the authorization prompt.
type Janitor struct {
	storage Storage
	logger  *slog.Logger
}

// NewJanitor returns a janitor over storage. A nil storage makes every
// cleanup a no-op.
func NewJanitor(storage Storage) *Janitor {
	return &Janitor{
		storage: storage,
		logger:  slog.Default(),
	}
}

// CleanupHost deletes every cookie whose domain equals host (a leading dot on
// the cookie domain is ignored). Failures inside the storage are logged and
// swallowed.
func (j *Janitor) CleanupHost(host string) {
	if j == nil || j.storage == nil || host == "" {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			j.logger.Warn("cookie cleanup failed", "host", host, "panic", r)
		}
	}()

	removed := 0
	for _, c := range j.storage.All() {
		if strings.EqualFold(strings.TrimPrefix(c.Domain, "."), host) {
			j.storage.Delete(c)
			removed++
		}
	}
	if removed > 0 {
		j.logger.Debug("removed cookies", "host", host, "count", removed)
	}
}

// CleanupURL deletes cookies scoped to the host of u.
func (j *Janitor) CleanupURL(u *url.URL) {
	if u == nil {
		return
	}
	j.CleanupHost(u.Hostname())
}
