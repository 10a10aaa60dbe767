package services

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "patchpoint-api/internal/errors"
)

func buildZip(t *testing.T, entries map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range entries {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	return buf.Bytes()
}

func TestExtractMapArchive(t *testing.T) {
	svc := NewArchiveService(t.TempDir())

	data := buildZip(t, map[string]string{
		"run_01/pothole_map.html": "<html>map</html>",
		"run_01/tiles/0.png":      "png bytes",
	})

	extracted, err := svc.ExtractMapArchive("survey.zip", data)

	require.NoError(t, err)
	assert.Contains(t, extracted.MapUrl, "/uploads/pi_maps/")
	assert.Contains(t, extracted.MapUrl, "pothole_map.html")
	assert.NotEmpty(t, extracted.Timestamp)
}

func TestExtractMapArchiveWritesExtractedFiles(t *testing.T) {
	dir := t.TempDir()
	svc := NewArchiveService(dir)

	data := buildZip(t, map[string]string{
		"pothole_map.html": "<html>map</html>",
	})

	extracted, err := svc.ExtractMapArchive("survey.zip", data)
	require.NoError(t, err)

	content, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(extracted.ExtractDir)))
	require.NoError(t, err)
	assert.Equal(t, "<html>map</html>", string(content))
}

func TestExtractMapArchiveRejectsNonZipName(t *testing.T) {
	svc := NewArchiveService(t.TempDir())

	_, err := svc.ExtractMapArchive("survey.tar.gz", []byte("whatever"))

	require.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestExtractMapArchiveRejectsCorruptArchive(t *testing.T) {
	svc := NewArchiveService(t.TempDir())

	_, err := svc.ExtractMapArchive("survey.zip", []byte("this is not a zip"))

	require.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestExtractMapArchiveRejectsMissingMapFile(t *testing.T) {
	svc := NewArchiveService(t.TempDir())

	data := buildZip(t, map[string]string{
		"readme.txt": "no map here",
	})

	_, err := svc.ExtractMapArchive("survey.zip", data)

	require.ErrorIs(t, err, apperrors.ErrInvalidInput)
	assert.Contains(t, err.Error(), "pothole_map.html")
}

func TestExtractMapArchiveRejectsPathTraversal(t *testing.T) {
	dir := t.TempDir()
	svc := NewArchiveService(dir)

	data := buildZip(t, map[string]string{
		"../escape.html": "<html>evil</html>",
	})

	_, err := svc.ExtractMapArchive("survey.zip", data)

	require.ErrorIs(t, err, apperrors.ErrInvalidInput)
	_, statErr := os.Stat(filepath.Join(dir, "pi_maps", "..", "escape.html"))
	assert.True(t, os.IsNotExist(statErr))
}
