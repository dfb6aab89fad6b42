package visits

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UnknownIP is stored when no client address can be determined.
const UnknownIP = "unknown"

// Visit is one recorded page view on a public endpoint. Rows are append-only.
type Visit struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Page      string    `gorm:"index;not null" json:"page"`
	Device    *string   `gorm:"index" json:"device"`
	Browser   *string   `gorm:"index" json:"browser"`
	Country   *string   `gorm:"index" json:"country"`
	Referrer  *string   `json:"referrer"`
	UserAgent *string   `gorm:"type:text" json:"userAgent"`
	IP        string    `gorm:"not null;default:unknown" json:"ip"`
	CreatedAt time.Time `gorm:"index;not null" json:"createdAt"`
}

// BeforeCreate assigns the id and stores the creation time in UTC.
func (v *Visit) BeforeCreate(tx *gorm.DB) error {
	if v.ID == "" {
		v.ID = uuid.New().String()
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now()
	}
	v.CreatedAt = v.CreatedAt.UTC()
	if v.IP == "" {
		v.IP = UnknownIP
	}
	return nil
}

// StringPtr returns nil for an empty string.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Deref returns the pointed-to string or "".
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
