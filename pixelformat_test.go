package rfbcore

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestToRGB24ExtractsChannels(t *testing.T) {
	f := DefaultPixelFormat
	pixel := uint32(0x12)<<16 | uint32(0x34)<<8 | uint32(0x56)
	rgb := ToRGB24(f, pixel)
	require.Equal(t, uint8(0x12), rgb.R)
	require.Equal(t, uint8(0x34), rgb.G)
	require.Equal(t, uint8(0x56), rgb.B)
}

// TestCPixelScenarioCPIXEL24A checks the CPIXEL-24A case: 32bpp,
// bigEndian=false, shifts 16/8/0, payload
// 0x12,0x34,0x56 decodes to RGB [0x56, 0x34, 0x12].
func TestCPixelScenarioCPIXEL24A(t *testing.T) {
	f := PixelFormat{
		BitsPerPixel: 32, Depth: 24, BigEndian: false, TrueColor: true,
		RedMax: 255, GreenMax: 255, BlueMax: 255,
		RedShift: 16, GreenShift: 8, BlueShift: 0,
	}
	require.Equal(t, 3, CPixelWidth(f))

	placement := classifyCPixel(f)
	require.Equal(t, cpixelLow24, placement)

	pixel := cpixelBytesToPixel(placement, f.BigEndian, 0x12, 0x34, 0x56)
	rgb := ToRGB24(f, pixel)
	require.Equal(t, uint8(0x56), rgb.R)
	require.Equal(t, uint8(0x34), rgb.G)
	require.Equal(t, uint8(0x12), rgb.B)
}

func TestCPixelHighPlacement(t *testing.T) {
	f := PixelFormat{
		BitsPerPixel: 32, Depth: 24, BigEndian: true, TrueColor: true,
		RedMax: 255, GreenMax: 255, BlueMax: 255,
		RedShift: 24, GreenShift: 16, BlueShift: 8,
	}
	require.Equal(t, cpixelHigh24, classifyCPixel(f))
	require.Equal(t, 3, CPixelWidth(f))

	pixel := cpixelBytesToPixel(cpixelHigh24, f.BigEndian, 0x12, 0x34, 0x56)
	rgb := ToRGB24(f, pixel)
	require.Equal(t, uint8(0x12), rgb.R)
	require.Equal(t, uint8(0x34), rgb.G)
	require.Equal(t, uint8(0x56), rgb.B)
}

func TestCPixelNoneForStraddlingChannels(t *testing.T) {
	// Channels spanning bits 4..27: neither half holds all three.
	f := PixelFormat{
		BitsPerPixel: 32, Depth: 24, BigEndian: true, TrueColor: true,
		RedMax: 255, GreenMax: 255, BlueMax: 255,
		RedShift: 20, GreenShift: 12, BlueShift: 4,
	}
	require.Equal(t, cpixelNone, classifyCPixel(f))
	require.Equal(t, 4, CPixelWidth(f))
}

func TestCPixelWidthAtNativeDepths(t *testing.T) {
	f16 := PixelFormat{BitsPerPixel: 16, Depth: 16, TrueColor: true, RedMax: 31, GreenMax: 63, BlueMax: 31, RedShift: 11, GreenShift: 5, BlueShift: 0}
	require.Equal(t, 2, CPixelWidth(f16))

	f8 := PixelFormat{BitsPerPixel: 8, Depth: 8, TrueColor: true, RedMax: 7, GreenMax: 7, BlueMax: 3, RedShift: 5, GreenShift: 2, BlueShift: 0}
	require.Equal(t, 1, CPixelWidth(f8))
}
