package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTitle(t *testing.T) {
	cases := []struct {
		needle, candidate string
		want              bool
	}{
		{"dentist", "Dentist appointment", true},
		{"DENTIST", "dentist", true},
		{"team sync", "Team  Sync", true},
		{"standup", "Stand-up", true},
		{"quartely review", "Quarterly Review", true},
		{"yoga", "Board meeting", false},
		{"", "anything", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Title(tc.needle, tc.candidate), "%q vs %q", tc.needle, tc.candidate)
	}
}

func TestRatio(t *testing.T) {
	assert.Equal(t, 1.0, Ratio("Dance", "dance"))
	assert.Equal(t, 0.0, Ratio("abc", "xyz"))
	assert.InDelta(t, 0.8, Ratio("abcd", "abce"), 0.26)
}

func TestBestPrefersExact(t *testing.T) {
	titles := []string{"Dance rehearsal", "Dance", "Dinner"}
	assert.Equal(t, 1, Best("dance", titles))
	assert.Equal(t, -1, Best("gym", titles))
}
