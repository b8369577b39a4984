package loser_test

import (
	"iter"
	"math"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mendikup/flightlog/loser"
)

type list []uint64

func (l list) All() iter.Seq[uint64] {
	return slices.Values(l)
}

func merge(lists ...loser.Sequence[uint64]) []uint64 {
	tree := loser.New(lists, math.MaxUint64, func(a, b uint64) bool { return a < b })
	var out []uint64
	for v := range tree.All() {
		out = append(out, v)
	}
	return out
}

func TestTree_Merge(t *testing.T) {
	tests := []struct {
		name  string
		lists []loser.Sequence[uint64]
		want  []uint64
	}{
		{
			name:  "no sequences",
			lists: nil,
			want:  nil,
		},
		{
			name:  "single sequence",
			lists: []loser.Sequence[uint64]{list{1, 2, 3}},
			want:  []uint64{1, 2, 3},
		},
		{
			name:  "interleaved",
			lists: []loser.Sequence[uint64]{list{1, 4, 7}, list{2, 5, 8}, list{3, 6, 9}},
			want:  []uint64{1, 2, 3, 4, 5, 6, 7, 8, 9},
		},
		{
			name:  "empty inputs among full ones",
			lists: []loser.Sequence[uint64]{list{}, list{5, 10}, list{}, list{1}},
			want:  []uint64{1, 5, 10},
		},
		{
			name:  "duplicates survive",
			lists: []loser.Sequence[uint64]{list{1, 3}, list{1, 3}},
			want:  []uint64{1, 1, 3, 3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, merge(tt.lists...))
		})
	}
}

func TestTree_EarlyStop(t *testing.T) {
	tree := loser.New(
		[]loser.Sequence[uint64]{list{1, 2, 3}, list{4, 5, 6}},
		math.MaxUint64,
		func(a, b uint64) bool { return a < b },
	)

	count := 0
	for range tree.All() {
		count++
		if count == 2 {
			break
		}
	}
	assert.Equal(t, 2, count)
}
