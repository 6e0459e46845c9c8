package scanner

import (
	"bytes"
	"context"
	"encoding/binary"
	"hash/crc32"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pngHeader devolve assinatura + IHDR de um PNG cinza com as dimensões dadas, sem pixels.
func pngHeader(width, height uint32) []byte {
	var buf bytes.Buffer
	buf.Write([]byte("\x89PNG\r\n\x1a\n"))

	data := make([]byte, 13)
	binary.BigEndian.PutUint32(data[0:4], width)
	binary.BigEndian.PutUint32(data[4:8], height)
	data[8] = 8

	chunk := append([]byte("IHDR"), data...)
	binary.Write(&buf, binary.BigEndian, uint32(len(data)))
	buf.Write(chunk)
	binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(chunk))
	return buf.Bytes()
}

func TestReadFrame(t *testing.T) {
	img, format, err := ReadFrame(bytes.NewReader(pngBytes(t, 40, 30)), maxFrameBytes)
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, 40, img.Bounds().Dx())

	_, _, err = ReadFrame(bytes.NewReader(pngHeader(60000, 60000)), maxFrameBytes)
	assert.ErrorIs(t, err, ErrFrameTooLarge)

	_, _, err = ReadFrame(bytes.NewReader(pngHeader(MaxFrameSide+1, 10)), maxFrameBytes)
	assert.ErrorIs(t, err, ErrFrameTooLarge)

	_, _, err = ReadFrame(bytes.NewReader([]byte("texto")), maxFrameBytes)
	assert.Error(t, err)
}

func TestHTTPSnapshotSource_OversizedSnapshotIsNoFrame(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(pngHeader(60000, 60000))
	}))
	defer srv.Close()

	stream, err := HTTPSnapshotSource{URL: srv.URL, Interval: 5 * time.Millisecond}.Open(context.Background(), DefaultConstraints)
	require.NoError(t, err)
	defer stream.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, stream.WaitReady(ctx), context.DeadlineExceeded)
}
