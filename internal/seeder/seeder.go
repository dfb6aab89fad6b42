package seeder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/karloscodes/cartridge"
	"github.com/karloscodes/cartridge/sqlite"
	"gorm.io/gorm"

	"vitrine/internal/banners"
	"vitrine/internal/contacts"
	"vitrine/internal/pkg/user_agent"
	"vitrine/internal/projects"
	"vitrine/internal/users"
	"vitrine/internal/visits"
)

const (
	DefaultAdminEmail    = "admin@vitrine.dev"
	DefaultAdminPassword = "vitrine-demo"
	batchSize            = 500
)

// Seeder fills an empty database with demo content and visit history.
type Seeder struct {
	DBManager  cartridge.DBManager
	Logger     *slog.Logger
	VisitCount int
	Days       int
	rng        *rand.Rand
	now        func() time.Time
}

// NewSeeder creates a new seeder. The same seed always produces the same data.
func NewSeeder(dbManager cartridge.DBManager, logger *slog.Logger, visitCount, days int, seed uint64) *Seeder {
	if logger == nil {
		logger = slog.Default()
	}
	if days <= 0 {
		days = 60
	}
	return &Seeder{
		DBManager:  dbManager,
		Logger:     logger,
		VisitCount: visitCount,
		Days:       days,
		rng:        rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		now:        time.Now,
	}
}

// Run seeds the admin user, portfolio content, contacts and visits.
func (s *Seeder) Run(ctx context.Context) error {
	start := time.Now()
	s.Logger.Info("Seeding database...", slog.Int("visits", s.VisitCount), slog.Int("days", s.Days))

	if err := s.seedAdmin(); err != nil {
		return err
	}
	if err := s.seedProjects(); err != nil {
		return err
	}
	if err := s.seedBanners(); err != nil {
		return err
	}
	if err := s.seedContacts(); err != nil {
		return err
	}
	if err := s.seedVisits(ctx); err != nil {
		return err
	}

	s.Logger.Info("Seeding completed", slog.Duration("elapsed", time.Since(start)))
	return nil
}

func (s *Seeder) seedAdmin() error {
	db := s.DBManager.GetConnection()
	err := users.CreateAdminUser(db, DefaultAdminEmail, "Admin", DefaultAdminPassword)
	if errors.Is(err, users.ErrUserExists) {
		s.Logger.Info("Admin user already exists", slog.String("email", DefaultAdminEmail))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to seed admin user: %w", err)
	}
	s.Logger.Info("Created admin user", slog.String("email", DefaultAdminEmail))
	return nil
}

func demoProjects() []projects.Project {
	demo := func(url string) *string { return &url }
	return []projects.Project{
		{Title: "Loja Aurora", Slug: "loja-aurora", Description: "E-commerce de cosméticos naturais", Category: "ecommerce", Status: projects.StatusPublished, Featured: true, Order: 1, DemoURL: demo("https://aurora.example.com")},
		{Title: "Painel Clínica", Slug: "painel-clinica", Description: "Agenda e prontuário para clínicas", Category: "saas", Status: projects.StatusPublished, Featured: true, Order: 2, GithubURL: demo("https://github.com/example/clinica")},
		{Title: "App Rotas", Slug: "app-rotas", Description: "Aplicativo de entregas com rastreio em tempo real", Category: "mobile", Status: projects.StatusPublished, Order: 3},
		{Title: "Site Institucional Vértice", Slug: "vertice", Description: "Site institucional para escritório de arquitetura", Category: "web", Status: projects.StatusPublished, Order: 4},
		{Title: "Landing Evento Tech", Slug: "evento-tech", Description: "Página de inscrição para conferência", Category: "web", Status: projects.StatusArchived, Order: 5},
		{Title: "CRM Interno", Slug: "crm-interno", Description: "Rascunho de CRM para equipe comercial", Category: "saas", Status: projects.StatusDraft, Order: 6},
	}
}

func (s *Seeder) seedProjects() error {
	db := s.DBManager.GetConnection()
	var existing int64
	if err := db.Model(&projects.Project{}).Count(&existing).Error; err != nil {
		return fmt.Errorf("failed to count projects: %w", err)
	}
	if existing > 0 {
		s.Logger.Info("Projects already seeded", slog.Int64("count", existing))
		return nil
	}

	list := demoProjects()
	for i := range list {
		list[i].Views = int64(s.rng.IntN(500))
	}

	return sqlite.PerformWrite(s.Logger, db, func(tx *gorm.DB) error {
		return tx.Create(&list).Error
	})
}

func (s *Seeder) seedBanners() error {
	db := s.DBManager.GetConnection()
	var existing int64
	if err := db.Model(&banners.Banner{}).Count(&existing).Error; err != nil {
		return fmt.Errorf("failed to count banners: %w", err)
	}
	if existing > 0 {
		return nil
	}

	now := s.now().UTC()
	ends := now.AddDate(0, 1, 0)
	list := []banners.Banner{
		{Title: "Novos projetos", Image: "/images/banner-home.jpg", Position: "home", Active: true, Order: 1},
		{Title: "Agenda aberta", Image: "/images/banner-contato.jpg", Position: "contact", Active: true, Order: 1, StartDate: &now, EndDate: &ends},
	}
	return sqlite.PerformWrite(s.Logger, db, func(tx *gorm.DB) error {
		return tx.Create(&list).Error
	})
}

func (s *Seeder) seedContacts() error {
	db := s.DBManager.GetConnection()
	var existing int64
	if err := db.Model(&contacts.Contact{}).Count(&existing).Error; err != nil {
		return fmt.Errorf("failed to count contacts: %w", err)
	}
	if existing > 0 {
		return nil
	}

	names := []string{"Ana Souza", "Bruno Lima", "Carla Mendes", "Diego Rocha", "Elisa Prado", "Fábio Nunes", "Gabriela Reis", "Hugo Martins"}
	now := s.now().UTC()

	list := make([]contacts.Contact, len(names))
	for i, name := range names {
		list[i] = contacts.Contact{
			Name:      name,
			Email:     fmt.Sprintf("contato%d@example.com", i+1),
			Message:   "Olá! Gostaria de conversar sobre um novo projeto.",
			Read:      i%3 == 0,
			CreatedAt: now.Add(-time.Duration(s.rng.IntN(s.Days*24)) * time.Hour),
		}
	}
	return sqlite.PerformWrite(s.Logger, db, func(tx *gorm.DB) error {
		return tx.Create(&list).Error
	})
}

func (s *Seeder) seedVisits(ctx context.Context) error {
	if s.VisitCount <= 0 {
		return nil
	}

	db := s.DBManager.GetConnection()
	var slugs []string
	if err := db.Model(&projects.Project{}).Where("status = ?", projects.StatusPublished).Pluck("slug", &slugs).Error; err != nil {
		return fmt.Errorf("failed to load project slugs: %w", err)
	}

	pages := []string{"/api/projects/public", "/api/banners/active"}
	for _, slug := range slugs {
		pages = append(pages, "/api/projects/public/"+slug)
	}
	agents := userAgents()
	refs := referrers()
	countries := []string{"BR", "BR", "BR", "PT", "US", "AR", ""}

	now := s.now().UTC()
	window := time.Duration(s.Days) * 24 * time.Hour
	batch := make([]visits.Visit, 0, batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		err := sqlite.PerformWrite(s.Logger, db.WithContext(ctx), func(tx *gorm.DB) error {
			return tx.CreateInBatches(&batch, batchSize).Error
		})
		batch = batch[:0]
		return err
	}

	for i := 0; i < s.VisitCount; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		ua := agents[s.rng.IntN(len(agents))]
		parsed := user_agent.ParseUserAgent(ua)
		batch = append(batch, visits.Visit{
			Page:      pages[s.rng.IntN(len(pages))],
			Device:    visits.StringPtr(parsed.Device),
			Browser:   visits.StringPtr(parsed.Browser),
			Country:   visits.StringPtr(countries[s.rng.IntN(len(countries))]),
			Referrer:  visits.StringPtr(refs[s.rng.IntN(len(refs))]),
			UserAgent: visits.StringPtr(ua),
			IP:        fmt.Sprintf("177.%d.%d.%d", s.rng.IntN(256), s.rng.IntN(256), 1+s.rng.IntN(254)),
			CreatedAt: now.Add(-time.Duration(s.rng.Int64N(int64(window)))),
		})

		if len(batch) == batchSize {
			if err := flush(); err != nil {
				return fmt.Errorf("failed to insert visits: %w", err)
			}
		}
	}
	if err := flush(); err != nil {
		return fmt.Errorf("failed to insert visits: %w", err)
	}

	s.Logger.Info("Seeded visits", slog.Int("count", s.VisitCount))
	return nil
}

func userAgents() []string {
	return []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15",
		"Mozilla/5.0 (iPhone; CPU iPhone OS 17_1 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Mobile/15E148 Safari/604.1",
		"Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Mobile Safari/537.36",
		"Mozilla/5.0 (X11; Ubuntu; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0",
		"Mozilla/5.0 (iPad; CPU OS 17_1 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Mobile/15E148 Safari/604.1",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 Edg/120.0.0.0",
	}
}

func referrers() []string {
	return []string{
		"",
		"",
		"https://www.google.com/",
		"https://www.linkedin.com/feed/",
		"https://github.com/example",
		"https://www.instagram.com/",
		"https://t.co/abc123",
	}
}
