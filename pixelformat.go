package rfbcore

import "github.com/quartzvnc/rfbcore/actionqueue"

// PixelFormat mirrors the RFB wire pixel-format record field-for-field,
// in the same field order as hduplooy-gorfb's PixelFormat struct.
type PixelFormat struct {
	BitsPerPixel uint8
	Depth        uint8
	BigEndian    bool
	TrueColor    bool
	RedMax       uint16
	GreenMax     uint16
	BlueMax      uint16
	RedShift     uint8
	GreenShift   uint8
	BlueShift    uint8
}

// DefaultPixelFormat is the format requested by ClientInit's
// SetPixelFormat when the host does not override it.
var DefaultPixelFormat = PixelFormat{
	BitsPerPixel: 32,
	Depth:        24,
	BigEndian:    true,
	TrueColor:    true,
	RedMax:       255,
	GreenMax:     255,
	BlueMax:      255,
	RedShift:     16,
	GreenShift:   8,
	BlueShift:    0,
}

// BytesPerPixel is BitsPerPixel/8.
func (f PixelFormat) BytesPerPixel() int {
	return int(f.BitsPerPixel) / 8
}

// ToRGB24 extracts the three channels of a host-order pixel value:
// component = (pixel >> shift) & max, mask used directly, not
// normalized to 8 bits.
func ToRGB24(f PixelFormat, pixel uint32) actionqueue.RGB24 {
	r := (pixel >> f.RedShift) & uint32(f.RedMax)
	g := (pixel >> f.GreenShift) & uint32(f.GreenMax)
	b := (pixel >> f.BlueShift) & uint32(f.BlueMax)
	return actionqueue.RGB24{R: uint8(r), G: uint8(g), B: uint8(b)}
}

// cpixelPlacement records where a 32bpp format's three channels land
// within a CPIXEL's expanded 32-bit quantity: the low 24 bits or the
// high 24 bits. It does not by itself say "24A" or "24B" — that naming
// also depends on the format's endianness, and only matters for
// documentation, not for decoding.
type cpixelPlacement int

const (
	cpixelNone cpixelPlacement = iota // not 32bpp, or channels straddle both halves: use native width
	cpixelLow24
	cpixelHigh24
)

// classifyCPixel determines whether f's 32-bit pixels can be carried
// as a 3-byte CPIXEL, and if so where the channels land once expanded
// back to 32 bits.
func classifyCPixel(f PixelFormat) cpixelPlacement {
	if f.BitsPerPixel != 32 {
		return cpixelNone
	}
	channelBits := func(max uint16) uint8 {
		bits := uint8(0)
		for m := max; m != 0; m >>= 1 {
			bits++
		}
		return bits
	}
	highestBit := f.RedShift + channelBits(f.RedMax)
	if b := f.GreenShift + channelBits(f.GreenMax); b > highestBit {
		highestBit = b
	}
	if b := f.BlueShift + channelBits(f.BlueMax); b > highestBit {
		highestBit = b
	}
	lowestShift := f.RedShift
	if f.GreenShift < lowestShift {
		lowestShift = f.GreenShift
	}
	if f.BlueShift < lowestShift {
		lowestShift = f.BlueShift
	}

	switch {
	case highestBit <= 24:
		return cpixelLow24
	case lowestShift >= 8:
		return cpixelHigh24
	default:
		return cpixelNone
	}
}

// cpixelBytesToPixel expands a 3-byte CPIXEL into a 32-bit pixel
// value. The three wire bytes are a truncation of the format's own
// 4-byte wire representation with the always-zero byte dropped, so
// they are interpreted using the format's own endianness before being
// placed into the low or high 24 bits.
func cpixelBytesToPixel(placement cpixelPlacement, bigEndian bool, b0, b1, b2 byte) uint32 {
	var v24 uint32
	if bigEndian {
		v24 = uint32(b0)<<16 | uint32(b1)<<8 | uint32(b2)
	} else {
		v24 = uint32(b0) | uint32(b1)<<8 | uint32(b2)<<16
	}
	if placement == cpixelHigh24 {
		return v24 << 8
	}
	return v24
}

// CPixelWidth is the number of wire bytes one ZRLE CPIXEL occupies
// under f: the native width at 8/16bpp, 3 bytes at 32bpp when the
// channels fit in one 24-bit half, otherwise the native 4 bytes.
func CPixelWidth(f PixelFormat) int {
	if f.BitsPerPixel == 32 && classifyCPixel(f) != cpixelNone {
		return 3
	}
	return f.BytesPerPixel()
}
