package ratelimit

import (
	"net/http"
	"strconv"
	"time"

	"github.com/forksync/forksync/domain"
)

// Known quota header sets. GitHub uses X-RateLimit-*, GitLab uses
// RateLimit-*; both report the reset as epoch seconds.
var headerProfiles = []struct {
	remaining, limit, reset string
}{
	{"X-RateLimit-Remaining", "X-RateLimit-Limit", "X-RateLimit-Reset"},
	{"RateLimit-Remaining", "RateLimit-Limit", "RateLimit-Reset"},
}

// parseQuota extracts a quota triple from response headers, trying each
// known header profile in turn. A profile matches when its remaining
// header is present; limit and reset are filled in when available.
func parseQuota(h http.Header, now time.Time) (domain.Quota, bool) {
	for _, p := range headerProfiles {
		remaining := h.Get(p.remaining)
		if remaining == "" {
			continue
		}
		rem, err := strconv.Atoi(remaining)
		if err != nil {
			continue
		}

		quota := domain.Quota{Remaining: rem}
		if lim, convErr := strconv.Atoi(h.Get(p.limit)); convErr == nil {
			quota.Limit = lim
		}
		if epoch, convErr := strconv.ParseInt(h.Get(p.reset), 10, 64); convErr == nil {
			quota.ResetAt = time.Unix(epoch, 0)
		}
		return quota, true
	}
	return domain.Quota{}, false
}
