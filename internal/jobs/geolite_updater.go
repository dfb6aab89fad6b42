package jobs

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/gorm"

	"vitrine/internal/pkg/geoip"
	"vitrine/internal/settings"
)

const (
	// GeoLite databases are published weekly by MaxMind
	GeoLiteUpdateInterval = 7 * 24 * time.Hour
	MaxMindDownloadURL    = "https://download.maxmind.com/app/geoip_download?edition_id=GeoLite2-Country&license_key=%s&suffix=tar.gz"
	downloadTimeout       = 5 * time.Minute
)

// GeoLiteUpdaterJob keeps the country database fresh and swaps it into the
// running locator.
type GeoLiteUpdaterJob struct {
	db          *gorm.DB
	logger      *slog.Logger
	locator     *geoip.Locator
	licenseKey  string
	downloadURL string
	client      *http.Client
	now         func() time.Time
}

func NewGeoLiteUpdaterJob(db *gorm.DB, logger *slog.Logger, locator *geoip.Locator, licenseKey string) *GeoLiteUpdaterJob {
	return &GeoLiteUpdaterJob{
		db:          db,
		logger:      logger,
		locator:     locator,
		licenseKey:  licenseKey,
		downloadURL: MaxMindDownloadURL,
		client:      &http.Client{Timeout: downloadTimeout},
		now:         time.Now,
	}
}

// Configured reports whether a license key is set.
func (j *GeoLiteUpdaterJob) Configured() bool {
	return j.licenseKey != "" && j.locator != nil && j.locator.Path() != ""
}

// Run downloads a new database when the current one is older than a week.
func (j *GeoLiteUpdaterJob) Run() error {
	if !j.Configured() {
		j.logger.Debug("GeoLite license key not configured, skipping update")
		return nil
	}

	lastUpdate := j.LastUpdate()
	if j.now().Sub(lastUpdate) < GeoLiteUpdateInterval && j.locator.Enabled() {
		j.logger.Debug("GeoLite database is up to date",
			slog.Time("last_update", lastUpdate))
		return nil
	}

	j.logger.Info("Starting GeoLite database update", slog.Time("last_update", lastUpdate))

	if err := j.downloadAndExtract(); err != nil {
		return fmt.Errorf("failed to update GeoLite database: %w", err)
	}
	if err := j.locator.Reload(); err != nil {
		return fmt.Errorf("failed to load downloaded GeoLite database: %w", err)
	}

	if err := settings.CreateOrUpdateSetting(j.db, settings.KeyGeoLiteLastUpdate, j.now().UTC().Format(time.RFC3339)); err != nil {
		j.logger.Error("Failed to record GeoLite update time", slog.Any("error", err))
	}

	j.logger.Info("GeoLite database updated successfully")
	return nil
}

// LastUpdate returns when the database was last downloaded, or the zero time.
func (j *GeoLiteUpdaterJob) LastUpdate() time.Time {
	value, err := settings.GetSetting(j.db, settings.KeyGeoLiteLastUpdate)
	if err != nil || value == "" {
		return time.Time{}
	}
	lastUpdate, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}
	}
	return lastUpdate
}

func (j *GeoLiteUpdaterJob) downloadAndExtract() error {
	destPath := j.locator.Path()
	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), downloadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf(j.downloadURL, j.licenseKey), nil)
	if err != nil {
		return err
	}
	resp, err := j.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed with status: %d", resp.StatusCode)
	}

	return extractMMDB(resp.Body, destPath)
}

// extractMMDB writes the first .mmdb entry of a tar.gz stream to destPath.
// The file is written next to destPath and renamed so readers never see a partial database.
func extractMMDB(r io.Reader, destPath string) error {
	gzr, err := gzip.NewReader(r)
	if err != nil {
		return fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gzr.Close()

	tr := tar.NewReader(gzr)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read tar: %w", err)
		}
		if !strings.HasSuffix(header.Name, ".mmdb") {
			continue
		}

		tmpPath := destPath + ".tmp"
		outFile, err := os.Create(tmpPath)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		if _, err := io.Copy(outFile, tr); err != nil {
			outFile.Close()
			os.Remove(tmpPath)
			return fmt.Errorf("failed to extract file: %w", err)
		}
		if err := outFile.Close(); err != nil {
			os.Remove(tmpPath)
			return err
		}
		return os.Rename(tmpPath, destPath)
	}

	return fmt.Errorf("no .mmdb file found in archive")
}
