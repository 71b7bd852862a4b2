package tilecache

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLayoutAxisPowerOfTwoInteriorTiles(t *testing.T) {
	coords := layoutAxis(70, 64)
	require.Equal(t, []int{0, 64, 72}, coords)

	for i := 0; i < len(coords)-2; i++ {
		span := coords[i+1] - coords[i]
		require.Equal(t, 64, span, "interior span must equal the tile size")
	}
}

func TestLayoutAxisLastCoordReachesDimension(t *testing.T) {
	for _, dim := range []int{1, 63, 64, 65, 127, 128, 1000} {
		coords := layoutAxis(dim, 64)
		require.GreaterOrEqual(t, coords[len(coords)-1], dim)
		for i := 0; i < len(coords)-1; i++ {
			require.Greater(t, coords[i+1], coords[i], "coords must be strictly increasing")
		}
	}
}

type fixedProbeBackend struct {
	supported func(w, h int) bool
}

func (b fixedProbeBackend) ProbeMaxTileSize(w, h int) bool { return b.supported(w, h) }
func (b fixedProbeBackend) CreateTile(w, h int, fill RGB24) (Texture, error) {
	return &cpuTexture{img: nil}, nil
}

func TestProbeTileSizeAcceptsFirstSupportedPair(t *testing.T) {
	backend := fixedProbeBackend{supported: func(w, h int) bool { return w <= 256 && h <= 256 }}
	tw, th := probeTileSize(backend, 300, 300, 1024)
	require.LessOrEqual(t, tw, 256)
	require.LessOrEqual(t, th, 256)
	require.True(t, isPowerOfTwo(tw))
	require.True(t, isPowerOfTwo(th))
}

func TestProbeTileSizeShrinksUntilSupported(t *testing.T) {
	backend := fixedProbeBackend{supported: func(w, h int) bool { return w <= 16 && h <= 16 }}
	tw, th := probeTileSize(backend, 1000, 20, 2048)
	require.Equal(t, 16, tw)
	require.Equal(t, 16, th)
}

func isPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

func TestNewTileGridInvariants(t *testing.T) {
	backend := &CPUBackend{MaxDimension: 0}
	grid := NewTileGrid(backend, 150, 97, 256)

	require.Equal(t, 0, grid.XCoords[0])
	require.Equal(t, 0, grid.YCoords[0])
	require.GreaterOrEqual(t, grid.XCoords[len(grid.XCoords)-1], 150)
	require.GreaterOrEqual(t, grid.YCoords[len(grid.YCoords)-1], 97)

	for i := 0; i < len(grid.XCoords)-1; i++ {
		require.Greater(t, grid.XCoords[i+1], grid.XCoords[i])
	}
	for i := 0; i < len(grid.YCoords)-1; i++ {
		require.Greater(t, grid.YCoords[i+1], grid.YCoords[i])
	}

	for tx := 0; tx < grid.TileXCount()-1; tx++ {
		w, _ := grid.TileSize(tx, 0)
		require.True(t, isPowerOfTwo(w))
	}
	for ty := 0; ty < grid.TileYCount()-1; ty++ {
		_, h := grid.TileSize(0, ty)
		require.True(t, isPowerOfTwo(h))
	}
}

func TestEdgeFractionInteriorIsOne(t *testing.T) {
	coords := []int{0, 64, 128, 150}
	require.Equal(t, 1.0, edgeFraction(coords, 0, 150, 64))
	require.Equal(t, 1.0, edgeFraction(coords, 1, 150, 64))
}

func TestEdgeFractionLastTileIsClipped(t *testing.T) {
	coords := []int{0, 64, 128, 150}
	frac := edgeFraction(coords, 2, 150, 32)
	require.InDelta(t, float64(150-128)/32.0, frac, 1e-9)
}

func TestTileRangeCoversSpan(t *testing.T) {
	coords := []int{0, 64, 128, 192}
	first, last := tileRange(coords, 50, 100)
	require.Equal(t, 0, first)
	require.Equal(t, 3, last)

	first, last = tileRange(coords, 64, 32)
	require.Equal(t, 1, first)
	require.Equal(t, 2, last)
}
