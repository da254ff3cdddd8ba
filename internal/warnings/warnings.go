// Package warnings evaluates advisory rules over inmate entries and
// package requests. The rules are pure: they read the entry and the clock
// and emit keyed human-readable messages, never touching storage.
package warnings

import (
	"fmt"
	"time"

	"ibp/internal/inmate/models"
)

// Config holds the thresholds the rules compare against.
type Config struct {
	// CacheTTL is the age past which a provider-confirmed entry is
	// considered out of date.
	CacheTTL time.Duration

	// MinReleaseDays is how close to a release date shipping a package
	// stops making sense.
	MinReleaseDays int

	// MinPostmarkDays is the minimum gap between two request postmarks.
	MinPostmarkDays int
}

// Warning keys. Each rule family emits at most one message under its key.
const (
	KeyEntryAge = "entry age"
	KeyRelease  = "release"
	KeyPostmark = "postmarkdate"
)

// ForInmate evaluates the entry-level rules and returns messages keyed by
// rule family. An empty map means nothing is wrong.
func ForInmate(inmate models.Inmate, now time.Time, cfg Config) map[string]string {
	found := make(map[string]string)

	if msg, ok := entryAge(inmate, now, cfg); ok {
		found[KeyEntryAge] = msg
	}
	if msg, ok := release(inmate, now, cfg); ok {
		found[KeyRelease] = msg
	}
	return found
}

// ForRequest evaluates the postmark rules for a request about to be added
// to an inmate, comparing against the postmarks already on file.
func ForRequest(inmate models.Inmate, postmark time.Time, cfg Config) map[string]string {
	found := make(map[string]string)
	if msg, ok := postmarkGap(inmate, postmark, cfg); ok {
		found[KeyPostmark] = msg
	}
	return found
}

func entryAge(inmate models.Inmate, now time.Time, cfg Config) (string, bool) {
	if inmate.FetchedAt == nil {
		return fmt.Sprintf("Data entry for %s inmate #%08d has never been verified",
			inmate.Jurisdiction, inmate.ID), true
	}

	age := now.Sub(*inmate.FetchedAt)
	if age < cfg.CacheTTL {
		return "", false
	}
	return fmt.Sprintf("Data entry for %s inmate #%08d is %d day(s) old",
		inmate.Jurisdiction, inmate.ID, int(age.Hours()/24)), true
}

func release(inmate models.Inmate, now time.Time, cfg Config) (string, bool) {
	date, ok := inmate.Release.Date()
	if !ok {
		// Text like "LIFE SENTENCE" carries no actionable date.
		return "", false
	}

	today := dateOf(now)
	if !today.Before(date) {
		return fmt.Sprintf("%s inmate #%08d is marked as released",
			inmate.Jurisdiction, inmate.ID), true
	}

	days := int(date.Sub(today).Hours() / 24)
	if days > cfg.MinReleaseDays {
		return "", false
	}
	return fmt.Sprintf("%s inmate #%08d is %d days from release.",
		inmate.Jurisdiction, inmate.ID, days), true
}

func postmarkGap(inmate models.Inmate, postmark time.Time, cfg Config) (string, bool) {
	// Only filled requests count; tossed ones never shipped anything.
	var last time.Time
	for _, request := range inmate.Requests {
		if request.Action != models.ActionFilled {
			continue
		}
		if request.DatePostmarked.After(last) {
			last = request.DatePostmarked
		}
	}
	if last.IsZero() {
		return "", false
	}

	postmarked := dateOf(postmark)
	latest := dateOf(last)

	if latest.After(postmarked) {
		return "There is a request with a postmark after this one.", true
	}

	days := int(postmarked.Sub(latest).Hours() / 24)
	switch {
	case days == 0:
		return "No time has transpired since the last postmark.", true
	case days < cfg.MinPostmarkDays:
		return fmt.Sprintf("Only %d days since last postmark.", days), true
	}
	return "", false
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
