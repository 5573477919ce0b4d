package ttsutils_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/book-expert/doubao-tts-service/internal/tts/ttsutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestEnsureDir verifies that a directory is created if it doesn't exist.
func TestEnsureDir(t *testing.T) {
	t.Parallel()

	testPath := filepath.Join(t.TempDir(), "new", "dir")

	require.NoError(t, ttsutils.EnsureDir(testPath))

	info, err := os.Stat(testPath)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	// A second call on an existing directory is a no-op.
	require.NoError(t, ttsutils.EnsureDir(testPath))
}

func TestOutputPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		dir      string
		filename string
		ext      string
		want     string
	}{
		{name: "plain", dir: "out", filename: "chapter-1", ext: "mp3", want: filepath.Join("out", "chapter-1.mp3")},
		{name: "blank filename", dir: "", filename: "  ", ext: "mp3", want: "output.mp3"},
		{name: "dotted extension", dir: "", filename: "a", ext: ".ogg", want: "a.ogg"},
		{name: "unsafe characters", dir: "", filename: "a/b:c?", ext: "pcm", want: "a_b_c_.pcm"},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, testCase.want, ttsutils.OutputPath(testCase.dir, testCase.filename, testCase.ext))
		})
	}
}

func TestWriteFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "audio.mp3")

	require.NoError(t, ttsutils.WriteFile(path, []byte("AAAA")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("AAAA"), data)
}

func TestWriteFile_Failure(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	err := ttsutils.WriteFile(filepath.Join(blocker, "audio.mp3"), []byte("AAAA"))
	require.Error(t, err)
}

func TestFormatDuration(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "1.5s", ttsutils.FormatDuration(1.5))
	assert.Equal(t, "2m3.25s", ttsutils.FormatDuration(123.25))
	assert.Equal(t, "1h15m0s", ttsutils.FormatDuration(4500))
	assert.Equal(t, "0s", ttsutils.FormatDuration(0))
}

func TestFormatFileSize(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "512 B", ttsutils.FormatFileSize(512))
	assert.Equal(t, "1.5 KB", ttsutils.FormatFileSize(1536))
	assert.Equal(t, "2.0 MB", ttsutils.FormatFileSize(2*1024*1024))
	assert.Equal(t, "1.0 GB", ttsutils.FormatFileSize(1024*1024*1024))
	assert.Equal(t, "2048.0 TB", ttsutils.FormatFileSize(1<<51))
}

func TestSanitizeFilename(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "a_b_c_d_e_f_g_h_i_", ttsutils.SanitizeFilename(`a<b>c:d"e/f\g|h?i*`))
	assert.Equal(t, "语音 输出", ttsutils.SanitizeFilename("语音 输出"))
	assert.Equal(t, "a_b", ttsutils.SanitizeFilename("a\tb"))
}
