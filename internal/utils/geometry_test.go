package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistance(t *testing.T) {
	tests := []struct {
		name      string
		lat1      float64
		lon1      float64
		lat2      float64
		lon2      float64
		expected  float64
		tolerance float64
	}{
		{
			name: "Same point",
			lat1: 40.7128, lon1: -74.0060,
			lat2: 40.7128, lon2: -74.0060,
			expected:  0,
			tolerance: 0.001,
		},
		{
			name: "Times Sq to Grand Central (short fast path)",
			lat1: 40.755983, lon1: -73.986229,
			lat2: 40.752726, lon2: -73.977229,
			expected:  840,
			tolerance: 20,
		},
		{
			name: "New York to Los Angeles (exact path)",
			lat1: 40.7128, lon1: -74.0060,
			lat2: 34.0522, lon2: -118.2437,
			expected:  3935746,
			tolerance: 1000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Distance(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			assert.InDelta(t, tt.expected, d, tt.tolerance)
		})
	}
}

func TestDistanceIsSymmetric(t *testing.T) {
	forward := Distance(40.889248, -73.898583, 40.755983, -73.986229)
	backward := Distance(40.755983, -73.986229, 40.889248, -73.898583)
	assert.InDelta(t, forward, backward, 0.001)
}

func TestCalculateBounds(t *testing.T) {
	bounds := CalculateBounds(40.7128, -74.0060, 500)

	assert.InDelta(t, 0.00898, bounds.MaxLat-bounds.MinLat, 0.0001)
	// Longitude degrees shrink with latitude, so the lon span is wider.
	assert.Greater(t, bounds.MaxLon-bounds.MinLon, bounds.MaxLat-bounds.MinLat)

	// The center point is inside its own bounds.
	assert.Less(t, bounds.MinLat, 40.7128)
	assert.Greater(t, bounds.MaxLat, 40.7128)
	assert.Less(t, bounds.MinLon, -74.0060)
	assert.Greater(t, bounds.MaxLon, -74.0060)
}
