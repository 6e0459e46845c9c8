package scanner

import (
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, image.NewGray(image.Rect(0, 0, w, h))))
}

func TestImageSequenceSource_PlaysInOrder(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "02.png"), 20, 20)
	writePNG(t, filepath.Join(dir, "01.png"), 10, 10)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notas.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "03.jpg"), []byte("corrompido"), 0o644))

	stream, err := ImageSequenceSource{Dir: dir}.Open(context.Background(), DefaultConstraints)
	require.NoError(t, err)
	defer stream.Close()

	require.NoError(t, stream.WaitReady(context.Background()))
	assert.Nil(t, stream.Frame(), "sem Play não há quadro")

	require.NoError(t, stream.Play())
	assert.Equal(t, 10, stream.Frame().Bounds().Dx())
	assert.Equal(t, 20, stream.Frame().Bounds().Dx())
	assert.Nil(t, stream.Frame())
}

func TestImageSequenceSource_Loop(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "a.png"), 8, 8)

	stream, err := ImageSequenceSource{Dir: dir, Loop: true}.Open(context.Background(), DefaultConstraints)
	require.NoError(t, err)
	require.NoError(t, stream.Play())

	for i := 0; i < 3; i++ {
		assert.NotNil(t, stream.Frame())
	}

	require.NoError(t, stream.Close())
	assert.Nil(t, stream.Frame())
	assert.ErrorIs(t, stream.Play(), ErrStreamClosed)
}

func TestImageSequenceSource_MissingOrEmptyDir(t *testing.T) {
	_, err := ImageSequenceSource{Dir: filepath.Join(t.TempDir(), "nao-existe")}.Open(context.Background(), DefaultConstraints)
	assert.ErrorIs(t, err, ErrNoDevice)

	_, err = ImageSequenceSource{Dir: t.TempDir()}.Open(context.Background(), DefaultConstraints)
	assert.ErrorIs(t, err, ErrNoDevice)
}
