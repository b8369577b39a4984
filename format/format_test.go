package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry_Bootstrap(t *testing.T) {
	reg := NewRegistry()

	s, ok := reg.Lookup(FMTTypeID)
	require.True(t, ok)
	assert.Equal(t, "FMT", s.Name)
	assert.Equal(t, uint8(FMTFrameLen), s.Length)
	assert.Equal(t, []string{"Type", "Length", "Name", "Format", "Columns"}, s.Columns)
	require.NotNil(t, s.Codec())
	assert.Equal(t, FMTFrameLen-HeaderLen, s.Codec().Width)
}

func TestRegistry_LookupName(t *testing.T) {
	reg := NewRegistry()
	codec, err := Compile("Q")
	require.NoError(t, err)
	reg.Insert(&Schema{TypeID: 0x10, Name: "GPS", Length: 11, Format: "Q", Columns: []string{"TimeUS"}, codec: codec})

	s, ok := reg.LookupName("GPS")
	require.True(t, ok)
	assert.Equal(t, uint8(0x10), s.TypeID)

	_, ok = reg.LookupName("IMU")
	assert.False(t, ok)
}

func TestRegistry_Snapshot(t *testing.T) {
	reg := NewRegistry()
	snap := reg.Snapshot()

	codec, err := Compile("Q")
	require.NoError(t, err)
	reg.Insert(&Schema{TypeID: 0x10, Name: "GPS", Length: 11, Format: "Q", Columns: []string{"TimeUS"}, codec: codec})

	_, ok := snap.Lookup(0x10)
	assert.False(t, ok, "snapshot should not see later inserts")
	_, ok = reg.Lookup(0x10)
	assert.True(t, ok)
	assert.Equal(t, 1, snap.Len())
	assert.Equal(t, 2, reg.Len())
}

func TestSchema_Scale(t *testing.T) {
	codec, err := Compile("QLc")
	require.NoError(t, err)

	tests := []struct {
		name        string
		multipliers []float64
		field       int
		want        float64
	}{
		{name: "no implicit no explicit", field: 0, want: 0},
		{name: "implicit lat/lon", field: 1, want: 1e-7},
		{name: "implicit centi", field: 2, want: 1e-2},
		{name: "explicit replaces implicit", multipliers: []float64{0, 1e-2, 1e-2}, field: 1, want: 1e-2},
		{name: "explicit zero falls back", multipliers: []float64{0, 0, 1e-2}, field: 1, want: 1e-7},
		{name: "explicit one means raw", multipliers: []float64{0, 1, 1e-2}, field: 1, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Schema{
				TypeID:      0x20,
				Name:        "POS",
				Length:      uint8(codec.Width + HeaderLen),
				Format:      "QLc",
				Columns:     []string{"TimeUS", "Lat", "Spd"},
				Multipliers: tt.multipliers,
				codec:       codec,
			}
			assert.Equal(t, tt.want, s.Scale(tt.field))
		})
	}
}

func TestMultiplierFor(t *testing.T) {
	assert.Equal(t, 1e-7, MultiplierFor('G'))
	assert.Equal(t, float64(0), MultiplierFor('-'))
	assert.Equal(t, float64(1), MultiplierFor('?'))
	assert.Equal(t, float64(0), MultiplierFor('z'), "unknown characters carry no information")
}
