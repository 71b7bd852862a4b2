package rfbcore

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quartzvnc/rfbcore/encodings"
)

func TestRectangleWithinFramebuffer(t *testing.T) {
	r := Rectangle{X: 10, Y: 10, W: 20, H: 20, Encoding: encodings.Raw}
	require.True(t, r.withinFramebuffer(40, 40))
	require.False(t, r.withinFramebuffer(20, 40))
	require.False(t, r.withinFramebuffer(40, 20))
}

func TestRectangleDesktopSizeExemptFromBounds(t *testing.T) {
	r := Rectangle{X: 0, Y: 0, W: 9999, H: 9999, Encoding: encodings.DesktopSizePseudo}
	require.True(t, r.withinFramebuffer(10, 10))
}

func TestRectangleArea(t *testing.T) {
	r := Rectangle{W: 4, H: 5}
	require.Equal(t, 20, r.Area())
}
