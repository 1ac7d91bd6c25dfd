package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseStatus(t *testing.T) {
	s, ok := ParseStatus(" WON ")
	assert.True(t, ok)
	assert.Equal(t, StatusWon, s)

	_, ok = ParseStatus("archived")
	assert.False(t, ok)
}

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		{StatusNew, StatusWon, true},
		{StatusNew, StatusLost, true},
		{StatusNew, StatusInProgress, false},
		{StatusInProgress, StatusWon, true},
		{StatusInProgress, StatusLost, true},
		{StatusInProgress, StatusNew, false},
		{StatusWon, StatusLost, false},
		{StatusLost, StatusInProgress, false},
		{StatusWon, StatusWon, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestCanAssign(t *testing.T) {
	assert.True(t, CanAssign(StatusNew))
	assert.True(t, CanAssign(StatusInProgress))
	assert.False(t, CanAssign(StatusWon))
	assert.False(t, CanAssign(StatusLost))
}

func TestTruncateDetailKeepsRunesWhole(t *testing.T) {
	long := strings.Repeat("é", 150)
	got := TruncateDetail(long, DetailMaxRunes)
	assert.Equal(t, 100, len([]rune(got)))
	assert.Equal(t, "short", TruncateDetail("  short  ", DetailMaxRunes))
}

func TestDetails(t *testing.T) {
	assert.Equal(t, "Ana assumed the lead", AssumedDetail("Ana"))
	assert.Equal(t, "Lead moved to WON", StatusDetail(StatusWon))
	assert.Equal(t, "Lead moved to IN_PROGRESS", StatusDetail(StatusInProgress))
}

func TestActorDisplayName(t *testing.T) {
	assert.Equal(t, "Agent", Actor{ID: 1}.DisplayName())
	assert.Equal(t, "Ana", Actor{ID: 1, Name: " Ana "}.DisplayName())
	assert.True(t, Actor{Role: RoleManager}.SeesAllLeads())
	assert.False(t, Actor{Role: RoleSalesperson}.SeesAllLeads())
}
