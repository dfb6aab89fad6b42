package jobs

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vitrine/internal/pkg/geoip"
)

func tarGz(t *testing.T, files map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer
	gzw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gzw)
	for name, content := range files {
		require.NoError(t, tw.WriteHeader(&tar.Header{Name: name, Mode: 0644, Size: int64(len(content))}))
		_, err := tw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gzw.Close())
	return buf.Bytes()
}

func TestExtractMMDB(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "GeoLite2-Country.mmdb")
	archive := tarGz(t, map[string]string{
		"GeoLite2-Country_20240101/LICENSE.txt":          "license",
		"GeoLite2-Country_20240101/GeoLite2-Country.mmdb": "mmdb-bytes",
	})

	require.NoError(t, extractMMDB(bytes.NewReader(archive), dest))

	content, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "mmdb-bytes", string(content))

	_, err = os.Stat(dest + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestExtractMMDBWithoutDatabase(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "GeoLite2-Country.mmdb")
	archive := tarGz(t, map[string]string{"README.txt": "nothing here"})

	err := extractMMDB(bytes.NewReader(archive), dest)
	assert.ErrorContains(t, err, "no .mmdb file found")
}

func TestExtractMMDBRejectsPlainFiles(t *testing.T) {
	err := extractMMDB(bytes.NewReader([]byte("not gzip")), filepath.Join(t.TempDir(), "x.mmdb"))
	assert.Error(t, err)
}

func TestGeoLiteUpdaterSkipsWithoutLicenseKey(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	locator := geoip.NewLocator(filepath.Join(t.TempDir(), "GeoLite2-Country.mmdb"), logger)

	job := NewGeoLiteUpdaterJob(nil, logger, locator, "")
	assert.False(t, job.Configured())
	assert.NoError(t, job.Run())
}

func TestGeoLiteUpdaterDownload(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	dest := filepath.Join(t.TempDir(), "nested", "GeoLite2-Country.mmdb")
	archive := tarGz(t, map[string]string{"GeoLite2-Country.mmdb": "downloaded"})

	var gotKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.URL.Query().Get("license_key")
		w.Write(archive)
	}))
	defer server.Close()

	job := NewGeoLiteUpdaterJob(nil, logger, geoip.NewLocator(dest, logger), "secret-key")
	job.downloadURL = server.URL + "/download?license_key=%s"

	require.NoError(t, job.downloadAndExtract())
	assert.Equal(t, "secret-key", gotKey)

	content, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "downloaded", string(content))
}

func TestGeoLiteUpdaterDownloadFailure(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	job := NewGeoLiteUpdaterJob(nil, logger, geoip.NewLocator(filepath.Join(t.TempDir(), "db.mmdb"), logger), "bad-key")
	job.downloadURL = server.URL + "/?license_key=%s"

	assert.ErrorContains(t, job.downloadAndExtract(), "status: 401")
}
