package rfbcore

import (
	"bytes"
	"compress/zlib"
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChannelReadExactAndWriteAll(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	sch := NewChannel(server)
	cch := NewChannel(client)

	go func() {
		require.NoError(t, sch.WriteAll([]byte{1, 2, 3, 4}))
	}()

	got, err := cch.ReadExact(4)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3, 4}, got)
}

func TestChannelReadUintHelpers(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	sch := NewChannel(server)
	cch := NewChannel(client)

	go func() {
		require.NoError(t, sch.WriteAll([]byte{0xAB, 0x00, 0x01, 0x00, 0x00, 0x01, 0x00}))
	}()

	b, err := cch.ReadUint8()
	require.NoError(t, err)
	require.Equal(t, uint8(0xAB), b)

	u16, err := cch.ReadUint16()
	require.NoError(t, err)
	require.Equal(t, uint16(1), u16)

	u32, err := cch.ReadUint32()
	require.NoError(t, err)
	require.Equal(t, uint32(0x00000100), u32)
}

func TestChannelOpenInflateView(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	sch := NewChannel(server)
	cch := NewChannel(client)

	payload := []byte("hello zrle sub-stream")
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	_, err := zw.Write(payload)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	compressed := buf.Bytes()

	go func() {
		require.NoError(t, sch.WriteAll(compressed))
	}()

	view, err := cch.OpenInflateView(len(compressed))
	require.NoError(t, err)
	defer view.Close()

	out := make([]byte, len(payload))
	n := 0
	for n < len(out) {
		got, err := view.Read(out[n:])
		n += got
		if err != nil {
			break
		}
	}
	require.Equal(t, payload, out)
}
