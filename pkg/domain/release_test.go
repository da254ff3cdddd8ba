package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseRelease(t *testing.T) {
	t.Run("date form yields a date", func(t *testing.T) {
		r := ParseRelease("2025-04-01")
		d, ok := r.Date()
		assert.True(t, ok)
		assert.Equal(t, time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC), d)
		assert.Equal(t, "2025-04-01", r.String())
	})

	t.Run("free text is kept verbatim", func(t *testing.T) {
		r := ParseRelease("LIFE SENTENCE")
		_, ok := r.Date()
		assert.False(t, ok)
		assert.Equal(t, "LIFE SENTENCE", r.String())
	})

	t.Run("empty string is the zero indicator", func(t *testing.T) {
		r := ParseRelease("")
		assert.True(t, r.IsZero())
		assert.Equal(t, "", r.String())
	})
}

func TestParseJurisdiction(t *testing.T) {
	for _, valid := range []string{"Texas", "Federal"} {
		j, err := ParseJurisdiction(valid)
		assert.NoError(t, err)
		assert.Equal(t, valid, j.String())
	}

	_, err := ParseJurisdiction("Oklahoma")
	assert.Error(t, err)
	assert.False(t, Jurisdiction("").IsValid())
}
