package noise

import (
	"math"
	"testing"

	"github.com/annel0/endless-terrain/internal/vec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testParams() Params {
	return Params{
		Seed:        1,
		Scale:       50,
		Octaves:     4,
		Persistence: 0.5,
		Lacunarity:  2,
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	for _, alg := range []Algorithm{AlgorithmPerlin, AlgorithmSimplex} {
		p := testParams()
		p.Algorithm = alg

		a := Generate(64, 48, p)
		b := Generate(64, 48, p)

		require.Equal(t, len(a.Values), len(b.Values))
		for i := range a.Values {
			// сравниваем побитово, а не с допуском
			if math.Float64bits(a.Values[i]) != math.Float64bits(b.Values[i]) {
				t.Fatalf("%s: значение %d различается: %v != %v", alg, i, a.Values[i], b.Values[i])
			}
		}
	}
}

func TestGenerate_LocalNormalization(t *testing.T) {
	hm := Generate(100, 80, testParams())

	assert.Equal(t, 100, hm.Width)
	assert.Equal(t, 80, hm.Height)
	for _, v := range hm.Values {
		require.GreaterOrEqual(t, v, 0.0)
		require.LessOrEqual(t, v, 1.0)
	}

	min, max := hm.MinMax()
	assert.Equal(t, 0.0, min, "Минимум карты должен стать ровно 0")
	assert.Equal(t, 1.0, max, "Максимум карты должен стать ровно 1")
}

func TestGenerate_BoundedForAnyOctaveCount(t *testing.T) {
	for octaves := 1; octaves <= 10; octaves++ {
		p := testParams()
		p.Octaves = octaves
		p.Persistence = 0.6

		for _, mode := range []NormalizeMode{NormalizeLocal, NormalizeGlobal} {
			p.Normalize = mode
			hm := Generate(32, 32, p)
			for _, v := range hm.Values {
				require.False(t, math.IsNaN(v))
				require.GreaterOrEqual(t, v, 0.0, "octaves=%d mode=%s", octaves, mode)
				require.LessOrEqual(t, v, 1.0, "octaves=%d mode=%s", octaves, mode)
			}
		}
	}
}

func TestGenerate_OctavesChangeOutput(t *testing.T) {
	p := testParams()
	p.Octaves = 1
	one := Generate(32, 32, p)
	p.Octaves = 5
	five := Generate(32, 32, p)

	assert.NotEqual(t, one.Values, five.Values)
}

func TestGenerate_ZeroScaleAndDimensions(t *testing.T) {
	p := testParams()
	p.Scale = 0

	hm := Generate(0, -5, p)
	assert.Equal(t, 1, hm.Width)
	assert.Equal(t, 1, hm.Height)
	assert.False(t, math.IsNaN(hm.Values[0]))

	hm = Generate(16, 16, p)
	for _, v := range hm.Values {
		assert.False(t, math.IsNaN(v))
		assert.False(t, math.IsInf(v, 0))
	}
}

func TestGenerate_NoOctavesIsFlat(t *testing.T) {
	p := testParams()
	p.Octaves = -3

	hm := Generate(8, 8, p)
	for _, v := range hm.Values {
		assert.Equal(t, 0.0, v)
	}

	p.Normalize = NormalizeGlobal
	hm = Generate(8, 8, p)
	for _, v := range hm.Values {
		assert.Equal(t, 0.5, v)
	}
}

func TestGenerate_GlobalModeTilesAcrossOffsets(t *testing.T) {
	p := testParams()
	p.Normalize = NormalizeGlobal

	// Правый столбец левой карты совпадает с левым столбцом правой
	left := Generate(17, 17, p)
	right := Generate(17, 17, p.WithOffset(vec.Vec2Float{X: 16}))

	for y := 0; y < 17; y++ {
		assert.InDelta(t, left.At(16, y), right.At(0, y), 1e-12, "строка %d", y)
	}
}

func TestParams_Clamped(t *testing.T) {
	p := Params{Scale: -1, Octaves: -2, Lacunarity: 0.3, Persistence: 1.7}.Clamped()

	assert.Equal(t, MinScale, p.Scale)
	assert.Equal(t, 0, p.Octaves)
	assert.Equal(t, 1.0, p.Lacunarity)
	assert.Equal(t, 1.0, p.Persistence)
}

func TestOctaveOffsets(t *testing.T) {
	a := OctaveOffsets(42, 6)
	b := OctaveOffsets(42, 6)
	c := OctaveOffsets(43, 6)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	for _, o := range a {
		assert.True(t, o.X >= -OctaveJitter && o.X < OctaveJitter)
		assert.True(t, o.Y >= -OctaveJitter && o.Y < OctaveJitter)
	}
	assert.Empty(t, OctaveOffsets(1, -1))
}

func TestMaxAmplitude(t *testing.T) {
	assert.Equal(t, 0.0, MaxAmplitude(0, 0.5))
	assert.Equal(t, 1.875, MaxAmplitude(4, 0.5))
}

func TestParseHelpers(t *testing.T) {
	alg, err := ParseAlgorithm("Simplex")
	require.NoError(t, err)
	assert.Equal(t, AlgorithmSimplex, alg)

	_, err = ParseAlgorithm("value")
	assert.Error(t, err)

	mode, err := ParseNormalizeMode("global")
	require.NoError(t, err)
	assert.Equal(t, NormalizeGlobal, mode)

	_, err = ParseNormalizeMode("minmax")
	assert.Error(t, err)
}
