package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWinRate(t *testing.T) {
	tests := []struct {
		name     string
		accepted int
		rejected int
		expected int
	}{
		{"No decided quotes", 0, 0, -1},
		{"Two of three", 2, 1, 67},
		{"All won", 4, 0, 100},
		{"All lost", 0, 3, 0},
		{"Half", 1, 1, 50},
		{"One of three", 1, 2, 33},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, WinRate(tt.accepted, tt.rejected))
		})
	}
}

func TestRatio(t *testing.T) {
	assert.Equal(t, 0.0, Ratio(0, 0))
	assert.Equal(t, 0.67, Ratio(2, 3))
	assert.Equal(t, 1.0, Ratio(5, 5))
}

func TestTrailingMonths(t *testing.T) {
	now := time.Date(2026, time.February, 14, 10, 0, 0, 0, time.UTC)

	t.Run("Crosses year boundary", func(t *testing.T) {
		assert.Equal(t, []string{"2025-09", "2025-10", "2025-11", "2025-12", "2026-01", "2026-02"}, TrailingMonths(now, 6))
	})

	t.Run("Minimum one month", func(t *testing.T) {
		assert.Equal(t, []string{"2026-02"}, TrailingMonths(now, 0))
	})

	t.Run("Window start", func(t *testing.T) {
		assert.Equal(t, time.Date(2025, time.September, 1, 0, 0, 0, 0, time.UTC), WindowStart(now, 6))
	})
}

func TestAverageDays(t *testing.T) {
	assert.Equal(t, 0.0, AverageDays(nil))
	assert.Equal(t, 1.5, AverageDays([]time.Duration{24 * time.Hour, 48 * time.Hour}))
	assert.Equal(t, 0.25, AverageDays([]time.Duration{6 * time.Hour}))
}
