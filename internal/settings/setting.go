package settings

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/karloscodes/cartridge/cache"
	"github.com/karloscodes/cartridge/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Setting represents a configuration item in the database
type Setting struct {
	ID        uint      `gorm:"primaryKey"`
	Key       string    `gorm:"uniqueIndex;not null"`
	Value     string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime:milli"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime:milli"`
}

// Well known keys.
const (
	KeyExcludedIPs       = "excluded_ips"
	KeyGeoLiteLastUpdate = "geolite_last_update"
)

// SetupDefaultSettings inserts the default keys without touching existing values.
func SetupDefaultSettings(dbConn *gorm.DB) error {
	defaults := []Setting{
		{Key: KeyExcludedIPs, Value: ""},
	}
	return sqlite.PerformWrite(slog.Default(), dbConn, func(tx *gorm.DB) error {
		for _, setting := range defaults {
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "key"}},
				DoNothing: true,
			}).Create(&setting).Error
			if err != nil {
				return fmt.Errorf("failed to upsert setting %s: %w", setting.Key, err)
			}
		}
		return nil
	})
}

// GetSetting retrieves a setting value from the database
func GetSetting(dbConn *gorm.DB, key string) (string, error) {
	var setting Setting
	if err := dbConn.Where("key = ?", key).First(&setting).Error; err != nil {
		return "", err
	}
	return setting.Value, nil
}

// CreateOrUpdateSetting stores value under key, creating the row when missing.
func CreateOrUpdateSetting(dbConn *gorm.DB, key string, value string) error {
	err := sqlite.PerformWrite(slog.Default(), dbConn, func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"value": value, "updated_at": time.Now().UTC()}),
		}).Create(&Setting{Key: key, Value: value}).Error
	})
	if err != nil {
		return fmt.Errorf("failed to save setting %s: %w", key, err)
	}
	return nil
}

// ParseIPList splits a comma separated list, trimming blanks.
func ParseIPList(value string) []string {
	var ips []string
	for _, ip := range strings.Split(value, ",") {
		if ip = strings.TrimSpace(ip); ip != "" {
			ips = append(ips, ip)
		}
	}
	return ips
}

// IPExclusions answers whether visits from an address should be ignored.
// The list is read through a short-lived cache.
type IPExclusions struct {
	cache *cache.Cache[string, []string]
}

// NewIPExclusions builds an exclusion checker backed by the settings table.
func NewIPExclusions(dbConn *gorm.DB, logger *slog.Logger) *IPExclusions {
	fetch := func(key string) ([]string, error) {
		value, err := GetSetting(dbConn, key)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return ParseIPList(value), nil
	}
	return &IPExclusions{cache: cache.NewCache[string, []string](logger, time.Minute, fetch)}
}

// IsExcluded reports whether ip is on the exclusion list.
func (e *IPExclusions) IsExcluded(ip string) (bool, error) {
	excluded, err := e.cache.Get(KeyExcludedIPs)
	if err != nil {
		return false, fmt.Errorf("failed to check excluded IPs: %w", err)
	}
	for _, candidate := range excluded {
		if candidate == ip {
			return true, nil
		}
	}
	return false, nil
}

// Refresh drops cached values so the next check reads the database.
func (e *IPExclusions) Refresh() {
	e.cache.Clear()
}
