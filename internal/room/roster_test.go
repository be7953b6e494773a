package room

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func sessionsWithNumbers(nums ...int) map[string]*PlayerSession {
	m := make(map[string]*PlayerSession, len(nums))
	for _, n := range nums {
		id := string(rune('a' + n))
		m[id] = &PlayerSession{ConnID: id, Number: n}
	}
	return m
}

func TestLowestFreeNumber(t *testing.T) {
	tests := []struct {
		name   string
		held   []int
		want   int
		wantOK bool
	}{
		{"empty room", nil, 1, true},
		{"sequential", []int{1, 2}, 3, true},
		{"gap filled first", []int{1, 3, 4}, 2, true},
		{"only high numbers", []int{3, 4}, 1, true},
		{"full", []int{1, 2, 3, 4}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := lowestFreeNumber(sessionsWithNumbers(tt.held...))
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNextHost_PicksLowestNumber(t *testing.T) {
	sessions := sessionsWithNumbers(4, 2, 3)
	id, ok := nextHost(sessions)
	assert.True(t, ok)
	assert.Equal(t, 2, sessions[id].Number)

	_, ok = nextHost(map[string]*PlayerSession{})
	assert.False(t, ok)
}

func TestCanStart(t *testing.T) {
	solo := sessionsWithNumbers(1)
	assert.True(t, canStart(solo), "solo start allowed without ready")

	pair := sessionsWithNumbers(1, 2)
	assert.False(t, canStart(pair))

	for _, s := range pair {
		s.Ready = true
	}
	assert.True(t, canStart(pair))

	assert.False(t, canStart(map[string]*PlayerSession{}))
}
