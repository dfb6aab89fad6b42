package geoip

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"

	"github.com/oschwald/geoip2-golang"
)

// Locator resolves client IPs to ISO country codes using a MaxMind database.
// GeoIP is optional: without a database every lookup returns "".
type Locator struct {
	mu     sync.RWMutex
	path   string
	reader *geoip2.Reader
	logger *slog.Logger
}

// NewLocator opens the database at path when it exists.
func NewLocator(path string, logger *slog.Logger) *Locator {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Locator{path: path, logger: logger}
	if err := l.Reload(); err != nil {
		logger.Info("GeoIP lookups disabled",
			slog.String("path", path),
			slog.Any("reason", err))
	}
	return l
}

// Path returns the configured database location.
func (l *Locator) Path() string {
	return l.path
}

// Enabled reports whether a database is loaded.
func (l *Locator) Enabled() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.reader != nil
}

// Reload (re)opens the database from disk, replacing the current reader.
// Call this after downloading a new database file.
func (l *Locator) Reload() error {
	if l.path == "" {
		return errors.New("geoip database path not configured")
	}
	if _, err := os.Stat(l.path); err != nil {
		return fmt.Errorf("geoip database unavailable: %w", err)
	}

	reader, err := geoip2.Open(l.path)
	if err != nil {
		l.logger.Error("Failed to open GeoLite2 database",
			slog.String("path", l.path),
			slog.Any("error", err))
		return err
	}

	l.mu.Lock()
	previous := l.reader
	l.reader = reader
	l.mu.Unlock()

	if previous != nil {
		previous.Close()
	}

	l.logger.Info("GeoLite2 database loaded", slog.String("path", l.path))
	return nil
}

// Country returns the ISO country code for ip, or "" when unknown.
func (l *Locator) Country(ip string) string {
	parsed := net.ParseIP(ip)
	if parsed == nil || parsed.IsLoopback() || parsed.IsPrivate() {
		return ""
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.reader == nil {
		return ""
	}

	record, err := l.reader.Country(parsed)
	if err != nil {
		l.logger.Debug("GeoIP lookup failed", slog.String("ip", ip), slog.Any("error", err))
		return ""
	}
	return record.Country.IsoCode
}

// Close releases the database.
func (l *Locator) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.reader == nil {
		return nil
	}
	err := l.reader.Close()
	l.reader = nil
	return err
}
