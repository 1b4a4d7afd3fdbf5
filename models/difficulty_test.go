package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRangeFor(t *testing.T) {
	tests := []struct {
		count int
		want  DifficultyRange
	}{
		{0, RangeEasy},
		{1, RangeEasy},
		{2, RangeEasy},
		{3, RangeEasy},
		{5, RangeEasy},
		{6, RangeMedium},
		{8, RangeMedium},
		{9, RangeHard},
		{10, RangeHard},
		{25, RangeHard},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RangeFor(tt.count), "count %d", tt.count)
	}
}

func TestDifficultyRange_Contains(t *testing.T) {
	tests := []struct {
		r     DifficultyRange
		count int
		want  bool
	}{
		{RangeEasy, 1, false},
		{RangeEasy, 2, false},
		{RangeEasy, 3, true},
		{RangeEasy, 5, true},
		{RangeEasy, 6, false},
		{RangeMedium, 5, false},
		{RangeMedium, 6, true},
		{RangeMedium, 8, true},
		{RangeMedium, 9, false},
		{RangeHard, 8, false},
		{RangeHard, 9, true},
		{RangeHard, 100, true},
		{DifficultyRange("10+"), 12, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.r.Contains(tt.count), "%s contains %d", tt.r, tt.count)
	}

	for count := 0; count < 3; count++ {
		for _, r := range AllRanges {
			assert.False(t, r.Contains(count), "%s contains %d", r, count)
		}
	}
}

func TestDifficultyRange_ContainsIsExclusive(t *testing.T) {
	for count := 3; count <= 12; count++ {
		matches := 0
		for _, r := range AllRanges {
			if r.Contains(count) {
				matches++
			}
		}
		assert.Equal(t, 1, matches, "count %d", count)
	}
}

func TestParseAnswer(t *testing.T) {
	tests := []struct {
		in      string
		want    DifficultyRange
		wantErr bool
	}{
		{"3-5 differences", RangeEasy, false},
		{"6-8 differences", RangeMedium, false},
		{"9+ differences", RangeHard, false},
		{"  9+  ", RangeHard, false},
		{"6-8", RangeMedium, false},
		{"", "", true},
		{"10 differences", "", true},
		{"lots", "", true},
		{"3-5 Differences", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAnswer(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDifficultyRange_Label(t *testing.T) {
	assert.Equal(t, "6-8 differences", RangeMedium.Label())
	for _, r := range AllRanges {
		parsed, err := ParseAnswer(r.Label())
		require.NoError(t, err)
		assert.Equal(t, r, parsed)
	}
}
