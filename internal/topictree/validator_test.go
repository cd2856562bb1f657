package topictree

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCapacity(t *testing.T) {
	tests := []struct {
		degree, depth, want int
	}{
		{3, 2, 9},
		{10, 3, 1000},
		{5, 0, 1},
		{0, 0, 1},
		{0, 2, 0},
		{1, 50, 1},
		{2, 10, 1024},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Capacity(tt.degree, tt.depth), "degree=%d depth=%d", tt.degree, tt.depth)
	}
}

func TestCapacity_Saturates(t *testing.T) {
	assert.Equal(t, maxInt, Capacity(10, 400))
}

func TestCheck(t *testing.T) {
	v := Check(5, 2, 3, 2)
	assert.False(t, v.Valid)
	assert.Equal(t, 9, v.Capacity)
	assert.Equal(t, 10, v.Requested)
	assert.Equal(t, 4, v.SuggestedNumSteps)
	assert.Equal(t, 1, v.SuggestedBatchSize)
	assert.Len(t, v.Advice(), 3)
	assert.Equal(t, "Reduce num_steps to: 4", v.Advice()[0])

	v = Check(3, 3, 3, 2)
	assert.True(t, v.Valid)
	assert.Equal(t, 9, v.Requested)
	assert.Zero(t, v.SuggestedNumSteps)
	assert.Nil(t, v.Advice())
}

func TestCheck_ZeroDivisors(t *testing.T) {
	v := Check(0, 0, 0, 1)
	assert.True(t, v.Valid)

	v = Check(1, 5, 2, 1)
	assert.False(t, v.Valid)
	assert.Equal(t, 0, v.SuggestedNumSteps)
	assert.Equal(t, 2, v.SuggestedBatchSize)
}

func TestTreeCheck(t *testing.T) {
	tree := &Tree{Paths: [][]string{{"r", "a"}, {"r", "b"}, {"r", "c"}}}

	v := tree.Check(1, 3)
	assert.True(t, v.Valid)
	assert.Equal(t, 3, v.Capacity)

	v = tree.Check(2, 2)
	assert.False(t, v.Valid)
	assert.Equal(t, 1, v.SuggestedNumSteps)
	assert.Equal(t, 1, v.SuggestedBatchSize)

	var empty *Tree
	assert.False(t, empty.Check(1, 1).Valid)
}
