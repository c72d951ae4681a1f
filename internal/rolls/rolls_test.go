package rolls

import (
	"testing"

	"github.com/DoyleJ11/fate-bridge/internal/types"
	"github.com/stretchr/testify/assert"
)

func TestLadderLabel(t *testing.T) {
	cases := []struct {
		value int
		want  string
	}{
		{8, "Legendary"},
		{7, "Epic"},
		{6, "Fantastic"},
		{5, "Superb"},
		{4, "Great"},
		{3, "Good"},
		{2, "Fair"},
		{1, "Average"},
		{0, "Mediocre"},
		{-1, "Poor"},
		{-2, "Terrible"},
		{9, "Legendary+1"},
		{12, "Legendary+4"},
		{-3, "Terrible-1"},
		{-6, "Terrible-4"},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, LadderLabel(tc.value), "value %d", tc.value)
	}
}

func TestDescribe(t *testing.T) {
	roll := Describe(types.RollRecord{
		Formula: "4df+4",
		Total:   6,
		Dice:    []int{1, 0, 1, 0},
	})

	assert.Equal(t, 6, roll.Total)
	assert.Equal(t, "Fantastic", roll.Label)
	assert.Equal(t, "+ 0 + 0", roll.Dice)
	assert.Equal(t, "4df+4", roll.Formula)
}

func TestDescribeNegativeDice(t *testing.T) {
	roll := Describe(types.RollRecord{Total: -1, Dice: []int{-1, -1, 1, 0}})
	assert.Equal(t, "- - + 0", roll.Dice)
	assert.Equal(t, "Poor", roll.Label)
}

func TestDescribeAllEmpty(t *testing.T) {
	assert.Nil(t, DescribeAll(nil))
	assert.Len(t, DescribeAll([]types.RollRecord{{Total: 2}}), 1)
}
