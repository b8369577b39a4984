package record

import (
	"testing"

	"github.com/Velocidex/ordereddict"
	"github.com/stretchr/testify/assert"
)

func TestRecord_Less(t *testing.T) {
	tests := []struct {
		name string
		a, b Record
		want bool
	}{
		{
			name: "earlier timestamp wins",
			a:    Record{TimeUS: 10},
			b:    Record{TimeUS: 20},
			want: true,
		},
		{
			name: "timestamp tie breaks on segment",
			a:    Record{TimeUS: 10, Segment: 0},
			b:    Record{TimeUS: 10, Segment: 1},
			want: true,
		},
		{
			name: "segment tie breaks on offset",
			a:    Record{TimeUS: 10, Segment: 1, Offset: 5},
			b:    Record{TimeUS: 10, Segment: 1, Offset: 9},
			want: true,
		},
		{
			name: "equal keys are not less",
			a:    Record{TimeUS: 10, Segment: 1, Offset: 5},
			b:    Record{TimeUS: 10, Segment: 1, Offset: 5},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Less(tt.b))
		})
	}
}

func TestMax_SortsLast(t *testing.T) {
	real := Record{TimeUS: ^uint64(0) - 1, Segment: 10_000, Offset: 1 << 60}
	assert.True(t, real.Less(Max))
	assert.False(t, Max.Less(real))
}

func TestRecord_Get(t *testing.T) {
	r := Record{Fields: ordereddict.NewDict().Set("TimeUS", uint64(5))}

	v, ok := r.Get("TimeUS")
	assert.True(t, ok)
	assert.Equal(t, uint64(5), v)

	_, ok = r.Get("Missing")
	assert.False(t, ok)

	_, ok = Record{}.Get("TimeUS")
	assert.False(t, ok)
}

func TestWarning_String(t *testing.T) {
	w := Warning{Segment: 2, Offset: 100, Kind: KindShortRead, Detail: "frame truncated"}
	assert.Equal(t, "segment 2 offset 100 [short-read]: frame truncated", w.String())
}
