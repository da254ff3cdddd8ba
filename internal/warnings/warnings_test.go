package warnings_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"ibp/internal/inmate/models"
	"ibp/internal/warnings"
	"ibp/pkg/domain"
)

var cfg = warnings.Config{
	CacheTTL:        12 * time.Hour,
	MinReleaseDays:  90,
	MinPostmarkDays: 60,
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestForInmateEntryAge(t *testing.T) {
	now := day(2024, 2, 1)

	t.Run("never verified", func(t *testing.T) {
		inmate := models.Inmate{Jurisdiction: domain.JurisdictionTexas, ID: 12345678}
		found := warnings.ForInmate(inmate, now, cfg)
		assert.Equal(t,
			"Data entry for Texas inmate #12345678 has never been verified",
			found[warnings.KeyEntryAge])
	})

	t.Run("stale entry reports its age in days", func(t *testing.T) {
		fetched := day(2024, 1, 1)
		inmate := models.Inmate{
			Jurisdiction: domain.JurisdictionTexas,
			ID:           12345678,
			FetchedAt:    &fetched,
		}
		found := warnings.ForInmate(inmate, now, cfg)
		assert.Equal(t,
			"Data entry for Texas inmate #12345678 is 31 day(s) old",
			found[warnings.KeyEntryAge])
	})

	t.Run("fresh entry warns about nothing", func(t *testing.T) {
		fetched := now.Add(-time.Hour)
		inmate := models.Inmate{
			Jurisdiction: domain.JurisdictionTexas,
			ID:           12345678,
			FetchedAt:    &fetched,
		}
		found := warnings.ForInmate(inmate, now, cfg)
		assert.NotContains(t, found, warnings.KeyEntryAge)
	})
}

func TestForInmateRelease(t *testing.T) {
	now := day(2024, 2, 1)
	fetched := now

	base := models.Inmate{
		Jurisdiction: domain.JurisdictionFederal,
		ID:           11111222,
		FetchedAt:    &fetched,
	}

	t.Run("released yesterday", func(t *testing.T) {
		inmate := base
		inmate.Release = domain.ReleaseDate(day(2024, 1, 31))
		found := warnings.ForInmate(inmate, now, cfg)
		assert.Equal(t,
			"Federal inmate #11111222 is marked as released",
			found[warnings.KeyRelease])
	})

	t.Run("released today", func(t *testing.T) {
		inmate := base
		inmate.Release = domain.ReleaseDate(now)
		found := warnings.ForInmate(inmate, now, cfg)
		assert.Equal(t,
			"Federal inmate #11111222 is marked as released",
			found[warnings.KeyRelease])
	})

	t.Run("release within the threshold", func(t *testing.T) {
		inmate := base
		inmate.Release = domain.ReleaseDate(now.AddDate(0, 0, 5))
		found := warnings.ForInmate(inmate, now, cfg)
		assert.Equal(t,
			"Federal inmate #11111222 is 5 days from release.",
			found[warnings.KeyRelease])
	})

	t.Run("release far in the future", func(t *testing.T) {
		inmate := base
		inmate.Release = domain.ReleaseDate(now.AddDate(1, 0, 0))
		found := warnings.ForInmate(inmate, now, cfg)
		assert.NotContains(t, found, warnings.KeyRelease)
	})

	t.Run("life sentence has no release warning", func(t *testing.T) {
		inmate := base
		inmate.Release = domain.ReleaseText("LIFE SENTENCE")
		found := warnings.ForInmate(inmate, now, cfg)
		assert.NotContains(t, found, warnings.KeyRelease)
	})
}

func TestForRequestPostmark(t *testing.T) {
	withPostmark := func(d time.Time) models.Inmate {
		return models.Inmate{
			Requests: []models.Request{
				{Index: 0, DatePostmarked: d, Action: models.ActionFilled},
			},
		}
	}

	t.Run("no prior requests", func(t *testing.T) {
		found := warnings.ForRequest(models.Inmate{}, day(2024, 2, 1), cfg)
		assert.Empty(t, found)
	})

	t.Run("a later postmark is on file", func(t *testing.T) {
		found := warnings.ForRequest(withPostmark(day(2024, 2, 2)), day(2024, 2, 1), cfg)
		assert.Equal(t,
			"There is a request with a postmark after this one.",
			found[warnings.KeyPostmark])
	})

	t.Run("same day as the last postmark", func(t *testing.T) {
		found := warnings.ForRequest(withPostmark(day(2024, 2, 1)), day(2024, 2, 1), cfg)
		assert.Equal(t,
			"No time has transpired since the last postmark.",
			found[warnings.KeyPostmark])
	})

	t.Run("too soon after the last postmark", func(t *testing.T) {
		found := warnings.ForRequest(withPostmark(day(2024, 1, 18)), day(2024, 2, 1), cfg)
		assert.Equal(t,
			"Only 14 days since last postmark.",
			found[warnings.KeyPostmark])
	})

	t.Run("enough time has passed", func(t *testing.T) {
		found := warnings.ForRequest(withPostmark(day(2023, 11, 1)), day(2024, 2, 1), cfg)
		assert.Empty(t, found)
	})

	t.Run("latest of several postmarks governs", func(t *testing.T) {
		inmate := models.Inmate{
			Requests: []models.Request{
				{Index: 0, DatePostmarked: day(2023, 10, 1), Action: models.ActionFilled},
				{Index: 1, DatePostmarked: day(2024, 1, 25), Action: models.ActionFilled},
			},
		}
		found := warnings.ForRequest(inmate, day(2024, 2, 1), cfg)
		assert.Equal(t,
			"Only 7 days since last postmark.",
			found[warnings.KeyPostmark])
	})

	t.Run("tossed requests are ignored", func(t *testing.T) {
		inmate := models.Inmate{
			Requests: []models.Request{
				{Index: 0, DatePostmarked: day(2024, 1, 31), Action: models.ActionTossed},
			},
		}
		found := warnings.ForRequest(inmate, day(2024, 2, 1), cfg)
		assert.Empty(t, found)
	})
}
