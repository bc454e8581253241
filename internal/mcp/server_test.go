package mcp

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hhpr/odot-converter/internal/config"
	"github.com/hhpr/odot-converter/internal/security"
)

func TestNewServerRequiresConverter(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.WorkDir = t.TempDir()

	_, err := NewServer(cfg, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "converter cannot be nil")
}

func testPathServer(t *testing.T, workDir string) *Server {
	t.Helper()
	paths, err := security.NewPathValidator(workDir)
	require.NoError(t, err)
	return &Server{paths: paths}
}

func TestReadWorkFile(t *testing.T) {
	workDir := t.TempDir()
	s := testPathServer(t, workDir)

	exportPath := filepath.Join(workDir, "export.json")
	require.NoError(t, os.WriteFile(exportPath, []byte(`{"Personnel":[]}`), 0o644))

	data, err := s.readWorkFile("export.json")
	require.NoError(t, err)
	assert.Equal(t, `{"Personnel":[]}`, string(data))

	_, err = s.readWorkFile(filepath.Join("..", "outside.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outside work directory")

	_, err = s.readWorkFile("absent.json")
	assert.Error(t, err)
}

func TestLoadPhotos(t *testing.T) {
	workDir := t.TempDir()
	s := testPathServer(t, workDir)

	photoDir := filepath.Join(workDir, "photos")
	require.NoError(t, os.Mkdir(photoDir, 0o755))

	// Name order decides slot order, non-images are ignored.
	for name, content := range map[string]string{
		"b_second.jpg": "second",
		"a_first.png":  "first",
		"notes.txt":    "not a photo",
		"c_third.jpeg": "third",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(photoDir, name), []byte(content), 0o644))
	}

	attachments, err := s.loadPhotos("photos")
	require.NoError(t, err)
	require.Len(t, attachments, 3)

	assert.Equal(t, "a_first.png", attachments[0].Name)
	assert.Equal(t, "b_second.jpg", attachments[1].Name)
	assert.Equal(t, "c_third.jpeg", attachments[2].Name)
	assert.Equal(t, []byte("first"), attachments[0].Data)
}

func TestLoadPhotosRejectsEscapingDir(t *testing.T) {
	s := testPathServer(t, t.TempDir())

	_, err := s.loadPhotos(filepath.Join("..", "elsewhere"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outside work directory")
}
