package chance_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lukman83/keepwarm/internal/chance"
)

func TestBetween(t *testing.T) {
	t.Parallel()

	r := chance.New()
	for i := 0; i < 1000; i++ {
		v := chance.Between(r, 0.5, 3.0)
		require.GreaterOrEqual(t, v, 0.5)
		require.Less(t, v, 3.0)
	}

	assert.Equal(t, 4.0, chance.Between(r, 4, 4))
	assert.Equal(t, 4.0, chance.Between(r, 4, 2))
}

func TestDuration(t *testing.T) {
	t.Parallel()

	r := &chance.Fixed{Floats: []float64{0.5}}
	assert.Equal(t, 150*time.Millisecond, chance.Duration(r, 100*time.Millisecond, 200*time.Millisecond))
}

func TestIntBetween(t *testing.T) {
	t.Parallel()

	r := chance.New()
	seen := map[int]bool{}
	for i := 0; i < 500; i++ {
		v := chance.IntBetween(r, 1, 3)
		require.GreaterOrEqual(t, v, 1)
		require.LessOrEqual(t, v, 3)
		seen[v] = true
	}
	assert.Len(t, seen, 3)
}

func TestSample(t *testing.T) {
	t.Parallel()

	r := chance.New()
	for i := 0; i < 200; i++ {
		got := chance.Sample(r, 4, 3)
		require.Len(t, got, 3)
		uniq := map[int]struct{}{}
		for _, v := range got {
			require.GreaterOrEqual(t, v, 0)
			require.Less(t, v, 4)
			uniq[v] = struct{}{}
		}
		require.Len(t, uniq, 3)
	}

	assert.Len(t, chance.Sample(r, 2, 5), 2)
}

func TestFixed(t *testing.T) {
	t.Parallel()

	t.Run("cycles floats", func(t *testing.T) {
		t.Parallel()
		f := &chance.Fixed{Floats: []float64{0.1, 0.9}}
		assert.Equal(t, 0.1, f.Float64())
		assert.Equal(t, 0.9, f.Float64())
		assert.Equal(t, 0.1, f.Float64())
	})

	t.Run("clamps ints", func(t *testing.T) {
		t.Parallel()
		f := &chance.Fixed{Ints: []int{7, -1}}
		assert.Equal(t, 2, f.IntN(3))
		assert.Equal(t, 0, f.IntN(3))
	})

	t.Run("zero value", func(t *testing.T) {
		t.Parallel()
		var f chance.Fixed
		assert.Equal(t, 0.0, f.Float64())
		assert.Equal(t, 0, f.IntN(10))
		assert.True(t, chance.Hit(&f, 0.7))
	})
}
