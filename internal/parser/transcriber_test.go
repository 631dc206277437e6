package parser

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"resume-parser-go/internal/config"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 创建一个模拟的Tika服务器
func createMockTikaServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		switch r.URL.Path {
		case "/tika":
			assert.Equal(t, "application/pdf", r.Header.Get("Content-Type"))
			assert.Equal(t, "text/plain", r.Header.Get("Accept"))
			w.Header().Set("Content-Type", "text/plain")
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("Jane Doe\njane@example.com\n"))
		case "/meta":
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{
				"Content-Type": "application/pdf",
				"pdf:PDFVersion": "1.5",
				"xmpTPg:NPages": 2,
				"X-TIKA:Parsed-By": "org.apache.tika.parser.DefaultParser"
			}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func writeFakePDF(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.5\nMock PDF content for testing\n"), 0o644))
	return path
}

func TestArtifactPath(t *testing.T) {
	assert.Equal(t, filepath.Join("out", "jane_doe.md"), ArtifactPath("/in/jane_doe.pdf", "out"))
	assert.Equal(t, filepath.Join("out", "batch.v2.md"), ArtifactPath("batch.v2.PDF", "out"))
}

func TestNewTikaTranscriberOptions(t *testing.T) {
	tr := NewTikaTranscriber("http://localhost:9998/")
	assert.Equal(t, "http://localhost:9998", tr.ServerURL)
	assert.Equal(t, 60*time.Second, tr.Client.Timeout)
	assert.False(t, tr.extractFullMetadata)
	assert.False(t, tr.extractMinimalMetadata)

	custom := NewTikaTranscriber("http://localhost:9998",
		WithFullMetadata(true),
		WithAnnotations(true),
		WithTimeout(30*time.Second),
	)
	assert.True(t, custom.extractFullMetadata)
	assert.True(t, custom.extractAnnotations)
	assert.Equal(t, 30*time.Second, custom.Client.Timeout)
}

func TestTikaTranscribeWritesArtifact(t *testing.T) {
	server := createMockTikaServer(t)
	in, out := t.TempDir(), filepath.Join(t.TempDir(), "nested")
	pdfPath := writeFakePDF(t, in, "jane.pdf")

	tr := NewTikaTranscriber(server.URL, WithMinimalMetadata(true))
	text, err := tr.Transcribe(context.Background(), pdfPath, out)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe\njane@example.com\n", text)

	written, err := os.ReadFile(filepath.Join(out, "jane.md"))
	require.NoError(t, err)
	assert.Equal(t, text, string(written))
}

func TestTikaMetadataModes(t *testing.T) {
	server := createMockTikaServer(t)
	ctx := context.Background()
	data := []byte("%PDF-1.5")

	minimal, err := NewTikaTranscriber(server.URL, WithMinimalMetadata(true)).Metadata(ctx, data, "a.pdf")
	require.NoError(t, err)
	assert.Contains(t, minimal, "pdf:PDFVersion")
	assert.Equal(t, float64(2), minimal["xmpTPg:NPages"])
	assert.NotContains(t, minimal, "X-TIKA:Parsed-By")

	full, err := NewTikaTranscriber(server.URL, WithFullMetadata(true)).Metadata(ctx, data, "a.pdf")
	require.NoError(t, err)
	assert.Contains(t, full, "X-TIKA:Parsed-By")
}

func TestTikaServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	out := t.TempDir()
	pdfPath := writeFakePDF(t, t.TempDir(), "broken.pdf")
	_, err := NewTikaTranscriber(server.URL).Transcribe(context.Background(), pdfPath, out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
	assert.NoFileExists(t, filepath.Join(out, "broken.md"))
}

func TestTikaMissingFile(t *testing.T) {
	_, err := NewTikaTranscriber("http://127.0.0.1:1").Transcribe(context.Background(), "/does/not/exist.pdf", t.TempDir())
	assert.Error(t, err)
}

func TestNewTranscriberByConfig(t *testing.T) {
	ctx := context.Background()

	tr, err := NewTranscriber(ctx, config.TranscriberConfig{Type: "tika", TikaServerURL: "http://tika:9998", MetadataMode: "minimal"}, zerolog.Nop())
	require.NoError(t, err)
	tika, ok := tr.(*TikaTranscriber)
	require.True(t, ok)
	assert.True(t, tika.extractMinimalMetadata)

	tr, err = NewTranscriber(ctx, config.TranscriberConfig{Type: "eino"}, zerolog.Nop())
	require.NoError(t, err)
	_, ok = tr.(*EinoPDFTranscriber)
	assert.True(t, ok)

	_, err = NewTranscriber(ctx, config.TranscriberConfig{Type: "zerox"}, zerolog.Nop())
	assert.Error(t, err)
}

func TestEinoTranscriberMissingFile(t *testing.T) {
	tr, err := NewEinoPDFTranscriber(context.Background(), WithEinoTimeout(5*time.Second))
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, tr.timeout)

	_, err = tr.Transcribe(context.Background(), "/does/not/exist.pdf", t.TempDir())
	assert.Error(t, err)
}
