// Package loser implements a loser-tree merge over record sequences,
// after https://github.com/bboreham/go-loser/blob/iter/tree.go.
package loser

import (
	"iter"
)

// Sequence is one sorted input to the merge.
type Sequence[E any] interface {
	All() iter.Seq[E]
}

// New builds a merge tree over sequences. maxVal must sort after every
// real element; less defines the merge order.
func New[E any](sequences []Sequence[E], maxVal E, less func(E, E) bool) *Tree[E] {
	return &Tree[E]{
		maxVal:    maxVal,
		nodes:     make([]node[E], len(sequences)*2),
		sequences: sequences,
		less:      less,
	}
}

// A loser tree is a binary tree laid out such that nodes N and N+1
// have parent N/2. The M leaf nodes live in positions M...2M-1, the
// M-1 internal nodes in positions 1..M-1. Node 0 holds the winner of
// the whole contest.
type Tree[E any] struct {
	maxVal    E
	nodes     []node[E]
	sequences []Sequence[E]
	less      func(E, E) bool
}

type node[E any] struct {
	index int              // loser of this subtree; winner for node 0
	value E                // value copied from the loser, or winner for node 0
	next  func() (E, bool) // only populated for leaf nodes
}

func (t *Tree[E]) moveNext(index int) bool {
	n := &t.nodes[index]
	if v, ok := n.next(); ok {
		n.value = v
		return true
	}
	n.value = t.maxVal
	n.index = -1
	return false
}

// All yields the merged elements in order. The sequence is single-use:
// it consumes the underlying inputs.
func (t *Tree[E]) All() iter.Seq[E] {
	return func(yield func(E) bool) {
		if len(t.nodes) == 0 {
			return
		}
		for i, s := range t.sequences {
			next, stop := iter.Pull(s.All())
			t.nodes[i+len(t.sequences)].next = next
			//nolint:gocritic // bounded by the sequence count, not a leak
			defer stop()
			t.moveNext(i + len(t.sequences))
		}
		t.initialize()
		for t.nodes[t.nodes[0].index].index != -1 &&
			yield(t.nodes[0].value) {
			t.moveNext(t.nodes[0].index)
			t.replayGames(t.nodes[0].index)
		}
	}
}

func (t *Tree[E]) initialize() {
	winner := t.playGame(1)
	t.nodes[0].index = winner
	t.nodes[0].value = t.nodes[winner].value
}

// playGame finds the winner at pos and stores losers on the way up.
// pos must be >= 1 and < len(t.nodes).
func (t *Tree[E]) playGame(pos int) int {
	nodes := t.nodes
	if pos >= len(nodes)/2 {
		return pos
	}
	left := t.playGame(pos * 2)
	right := t.playGame(pos*2 + 1)
	var loser, winner int
	if t.less(nodes[left].value, nodes[right].value) {
		loser, winner = right, left
	} else {
		loser, winner = left, right
	}
	nodes[pos].index = loser
	nodes[pos].value = nodes[loser].value
	return winner
}

// replayGames re-runs the contests from pos, a fresh winner, to the
// root.
func (t *Tree[E]) replayGames(pos int) {
	nodes := t.nodes
	winningValue := nodes[pos].value
	for n := parent(pos); n != 0; n = parent(n) {
		node := &nodes[n]
		if t.less(node.value, winningValue) {
			node.index, pos = pos, node.index
			node.value, winningValue = winningValue, node.value
		}
	}
	nodes[0].index = pos
	nodes[0].value = winningValue
}

func parent(i int) int { return i >> 1 }
