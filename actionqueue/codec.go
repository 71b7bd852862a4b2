package actionqueue

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// Encode and Decode implement the cluster broadcast wire format: a
// 1-byte item-type code followed by the body. Variable-length strings
// are a little-endian uint64 length followed by raw bytes;
// fixed-width fields are little-endian. This is a local-trust format
// between same-architecture Go replicas, not meant for
// cross-architecture compatibility.
//
// GetPassword items are not serializable: the password barrier is
// local to the master's I/O thread, so a GetPassword item is never
// broadcast (the session controller resolves it before any replica
// could meaningfully react to it).

func putString(buf *bytes.Buffer, s string) {
	var n [8]byte
	binary.LittleEndian.PutUint64(n[:], uint64(len(s)))
	buf.Write(n[:])
	buf.WriteString(s)
}

func getString(r *bytes.Reader) (string, error) {
	var n [8]byte
	if _, err := io.ReadFull(r, n[:]); err != nil {
		return "", err
	}
	length := binary.LittleEndian.Uint64(n[:])
	b := make([]byte, length)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}

func putUint16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

func putUint32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func putInt(buf *bytes.Buffer, v int) {
	putUint32(buf, uint32(int32(v)))
}

func getUint16(r *bytes.Reader) (uint16, error) {
	var b [2]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b[:]), nil
}

func getUint32(r *bytes.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

func getInt(r *bytes.Reader) (int, error) {
	v, err := getUint32(r)
	return int(int32(v)), err
}

func putBool(buf *bytes.Buffer, b bool) {
	if b {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}
}

func getBool(r *bytes.Reader) (bool, error) {
	b, err := r.ReadByte()
	return b != 0, err
}

// Encode serializes item per the wire format above.
func Encode(item Item) ([]byte, error) {
	if item.Type == TypeGetPassword {
		return nil, fmt.Errorf("actionqueue: GetPassword items are not broadcastable")
	}

	var buf bytes.Buffer
	buf.WriteByte(byte(item.Type))

	switch item.Type {
	case TypeInitDisplay:
		putUint16(&buf, item.Init.Width)
		putUint16(&buf, item.Init.Height)
		buf.WriteByte(item.Init.BitsPerPixel)
		buf.WriteByte(item.Init.Depth)
		putBool(&buf, item.Init.BigEndian)
		putBool(&buf, item.Init.TrueColor)
		putUint16(&buf, item.Init.RedMax)
		putUint16(&buf, item.Init.GreenMax)
		putUint16(&buf, item.Init.BlueMax)
		buf.WriteByte(item.Init.RedShift)
		buf.WriteByte(item.Init.GreenShift)
		buf.WriteByte(item.Init.BlueShift)
		putString(&buf, item.Init.DesktopName)
	case TypeWrite:
		putInt(&buf, item.DestX)
		putInt(&buf, item.DestY)
		putInt(&buf, item.W)
		putInt(&buf, item.H)
		var n [8]byte
		binary.LittleEndian.PutUint64(n[:], uint64(len(item.Pixels)))
		buf.Write(n[:])
		buf.Write(item.Pixels)
	case TypeCopy:
		putInt(&buf, item.DestX)
		putInt(&buf, item.DestY)
		putInt(&buf, item.W)
		putInt(&buf, item.H)
		putInt(&buf, item.SrcX)
		putInt(&buf, item.SrcY)
	case TypeFill:
		putInt(&buf, item.DestX)
		putInt(&buf, item.DestY)
		putInt(&buf, item.W)
		putInt(&buf, item.H)
		buf.WriteByte(item.Colour.R)
		buf.WriteByte(item.Colour.G)
		buf.WriteByte(item.Colour.B)
	case TypeInternalError, TypeError, TypeErrorFromServer:
		putString(&buf, item.Where)
		putString(&buf, item.Msg)
	case TypeInfoServerInitStarted, TypeInfoCloseStarted, TypeInfoCloseCompleted:
		// no body
	case TypeInfoProtocolVersion:
		putInt(&buf, item.ServerMajor)
		putInt(&buf, item.ServerMinor)
		putInt(&buf, item.ClientMajor)
		putInt(&buf, item.ClientMinor)
	case TypeInfoAuthResult:
		putBool(&buf, item.AuthOK)
		putUint32(&buf, item.AuthScheme)
		putUint32(&buf, item.AuthResult)
	case TypeInfoServerInitCompleted:
		putBool(&buf, item.InitOK)
	default:
		return nil, fmt.Errorf("actionqueue: unknown item type %v", item.Type)
	}

	return buf.Bytes(), nil
}

// Decode reverses Encode.
func Decode(data []byte) (Item, error) {
	r := bytes.NewReader(data)
	typeByte, err := r.ReadByte()
	if err != nil {
		return Item{}, err
	}
	t := Type(typeByte)
	item := Item{Type: t}

	switch t {
	case TypeInitDisplay:
		if item.Init.Width, err = getUint16(r); err != nil {
			return item, err
		}
		if item.Init.Height, err = getUint16(r); err != nil {
			return item, err
		}
		if item.Init.BitsPerPixel, err = r.ReadByte(); err != nil {
			return item, err
		}
		if item.Init.Depth, err = r.ReadByte(); err != nil {
			return item, err
		}
		if item.Init.BigEndian, err = getBool(r); err != nil {
			return item, err
		}
		if item.Init.TrueColor, err = getBool(r); err != nil {
			return item, err
		}
		if item.Init.RedMax, err = getUint16(r); err != nil {
			return item, err
		}
		if item.Init.GreenMax, err = getUint16(r); err != nil {
			return item, err
		}
		if item.Init.BlueMax, err = getUint16(r); err != nil {
			return item, err
		}
		if item.Init.RedShift, err = r.ReadByte(); err != nil {
			return item, err
		}
		if item.Init.GreenShift, err = r.ReadByte(); err != nil {
			return item, err
		}
		if item.Init.BlueShift, err = r.ReadByte(); err != nil {
			return item, err
		}
		item.Init.DesktopName, err = getString(r)
		return item, err
	case TypeWrite:
		if item.DestX, err = getInt(r); err != nil {
			return item, err
		}
		if item.DestY, err = getInt(r); err != nil {
			return item, err
		}
		if item.W, err = getInt(r); err != nil {
			return item, err
		}
		if item.H, err = getInt(r); err != nil {
			return item, err
		}
		var n [8]byte
		if _, err = io.ReadFull(r, n[:]); err != nil {
			return item, err
		}
		length := binary.LittleEndian.Uint64(n[:])
		item.Pixels = make([]byte, length)
		_, err = io.ReadFull(r, item.Pixels)
		return item, err
	case TypeCopy:
		if item.DestX, err = getInt(r); err != nil {
			return item, err
		}
		if item.DestY, err = getInt(r); err != nil {
			return item, err
		}
		if item.W, err = getInt(r); err != nil {
			return item, err
		}
		if item.H, err = getInt(r); err != nil {
			return item, err
		}
		if item.SrcX, err = getInt(r); err != nil {
			return item, err
		}
		item.SrcY, err = getInt(r)
		return item, err
	case TypeFill:
		if item.DestX, err = getInt(r); err != nil {
			return item, err
		}
		if item.DestY, err = getInt(r); err != nil {
			return item, err
		}
		if item.W, err = getInt(r); err != nil {
			return item, err
		}
		if item.H, err = getInt(r); err != nil {
			return item, err
		}
		if item.Colour.R, err = r.ReadByte(); err != nil {
			return item, err
		}
		if item.Colour.G, err = r.ReadByte(); err != nil {
			return item, err
		}
		item.Colour.B, err = r.ReadByte()
		return item, err
	case TypeInternalError, TypeError, TypeErrorFromServer:
		if item.Where, err = getString(r); err != nil {
			return item, err
		}
		item.Msg, err = getString(r)
		return item, err
	case TypeInfoServerInitStarted, TypeInfoCloseStarted, TypeInfoCloseCompleted:
		return item, nil
	case TypeInfoProtocolVersion:
		if item.ServerMajor, err = getInt(r); err != nil {
			return item, err
		}
		if item.ServerMinor, err = getInt(r); err != nil {
			return item, err
		}
		if item.ClientMajor, err = getInt(r); err != nil {
			return item, err
		}
		item.ClientMinor, err = getInt(r)
		return item, err
	case TypeInfoAuthResult:
		if item.AuthOK, err = getBool(r); err != nil {
			return item, err
		}
		if item.AuthScheme, err = getUint32(r); err != nil {
			return item, err
		}
		item.AuthResult, err = getUint32(r)
		return item, err
	case TypeInfoServerInitCompleted:
		item.InitOK, err = getBool(r)
		return item, err
	default:
		return item, fmt.Errorf("actionqueue: unknown wire item type %d", typeByte)
	}
}
