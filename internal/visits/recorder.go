package visits

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/karloscodes/cartridge/sqlite"
	"gorm.io/gorm"

	"vitrine/internal/pkg/user_agent"
)

const defaultRecordTimeout = 5 * time.Second

// CountryResolver maps a client address to an ISO country code, or "".
type CountryResolver interface {
	Country(ip string) string
}

// Excluder reports addresses whose visits are not recorded.
type Excluder interface {
	IsExcluded(ip string) (bool, error)
}

// Hit is the request data a visit is built from.
type Hit struct {
	Page      string
	UserAgent string
	Referrer  string
	IP        string
}

// Recorder appends visits in the background. Failures are logged and never
// reach the request that produced the hit.
type Recorder struct {
	db         *gorm.DB
	logger     *slog.Logger
	countries  CountryResolver
	exclusions Excluder
	timeout    time.Duration
	enabled    bool
	wg         sync.WaitGroup
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithCountryResolver enables country lookup.
func WithCountryResolver(resolver CountryResolver) Option {
	return func(r *Recorder) { r.countries = resolver }
}

// WithExcluder skips hits from excluded addresses.
func WithExcluder(excluder Excluder) Option {
	return func(r *Recorder) { r.exclusions = excluder }
}

// WithTimeout bounds each background insert.
func WithTimeout(timeout time.Duration) Option {
	return func(r *Recorder) {
		if timeout > 0 {
			r.timeout = timeout
		}
	}
}

// WithEnabled toggles recording.
func WithEnabled(enabled bool) Option {
	return func(r *Recorder) { r.enabled = enabled }
}

// NewRecorder creates an enabled recorder.
func NewRecorder(db *gorm.DB, logger *slog.Logger, opts ...Option) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Recorder{
		db:      db,
		logger:  logger,
		timeout: defaultRecordTimeout,
		enabled: true,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record dispatches hit for storage and returns immediately.
func (r *Recorder) Record(hit Hit) {
	if r == nil || !r.enabled {
		return
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			if rec := recover(); rec != nil {
				r.logger.Error("Visit recording panicked",
					slog.String("page", hit.Page),
					slog.Any("panic", rec))
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()

		if err := r.RecordSync(ctx, hit); err != nil {
			r.logger.Error("Error tracking visit",
				slog.String("page", hit.Page),
				slog.Any("error", err))
		}
	}()
}

// Wait blocks until every dispatched hit has been handled.
func (r *Recorder) Wait() {
	r.wg.Wait()
}

// RecordSync classifies and stores hit on the calling goroutine.
func (r *Recorder) RecordSync(ctx context.Context, hit Hit) error {
	ip := strings.TrimSpace(hit.IP)
	if ip == "" {
		ip = UnknownIP
	}

	if r.exclusions != nil && ip != UnknownIP {
		excluded, err := r.exclusions.IsExcluded(ip)
		if err != nil {
			r.logger.Warn("Could not check excluded IPs", slog.Any("error", err))
		} else if excluded {
			r.logger.Debug("Skipping visit from excluded IP", slog.String("ip", ip))
			return nil
		}
	}

	ua := user_agent.ParseUserAgent(hit.UserAgent)
	visit := &Visit{
		Page:      hit.Page,
		Device:    StringPtr(ua.Device),
		Browser:   StringPtr(ua.Browser),
		Referrer:  StringPtr(hit.Referrer),
		UserAgent: StringPtr(hit.UserAgent),
		IP:        ip,
	}
	if r.countries != nil && ip != UnknownIP {
		visit.Country = StringPtr(r.countries.Country(ip))
	}

	err := sqlite.PerformWrite(r.logger, r.db.WithContext(ctx), func(tx *gorm.DB) error {
		return tx.Create(visit).Error
	})
	if err != nil {
		return fmt.Errorf("failed to insert visit for %s: %w", hit.Page, err)
	}
	return nil
}

// ClientIP picks the first X-Forwarded-For entry, then the socket address.
func ClientIP(forwardedFor, remoteAddr string) string {
	if forwardedFor != "" {
		first, _, _ := strings.Cut(forwardedFor, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	if remoteAddr = strings.TrimSpace(remoteAddr); remoteAddr != "" {
		return remoteAddr
	}
	return UnknownIP
}
