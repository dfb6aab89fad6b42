package contacts

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/karloscodes/cartridge/sqlite"
	"gorm.io/gorm"
)

type Contact struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	Email     string    `gorm:"not null" json:"email"`
	Phone     *string   `json:"phone"`
	Message   string    `gorm:"not null" json:"message"`
	Read      bool      `gorm:"index;not null;default:false" json:"read"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BeforeCreate assigns a UUID.
func (c *Contact) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	c.CreatedAt = c.CreatedAt.UTC()
	return nil
}

// Input is the public contact form payload.
type Input struct {
	Name    string  `json:"name" validate:"min=2"`
	Email   string  `json:"email" validate:"required,email"`
	Phone   *string `json:"phone"`
	Message string  `json:"message" validate:"min=10"`
}

// ValidationError carries the first user-facing message of a rejected submission.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

var validate = validator.New(validator.WithRequiredStructEnabled())

var fieldMessages = map[string]string{
	"Name":    "Nome deve ter no mínimo 2 caracteres",
	"Email":   "Email inválido",
	"Message": "Mensagem deve ter no mínimo 10 caracteres",
}

// Validate checks in field order and reports the first failure.
func (in Input) Validate() error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		if msg, ok := fieldMessages[fieldErrs[0].StructField()]; ok {
			return &ValidationError{Message: msg}
		}
	}
	return &ValidationError{Message: "Dados inválidos"}
}

// Create validates in and stores a new unread contact.
func Create(logger *slog.Logger, db *gorm.DB, in Input) (*Contact, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	contact := &Contact{
		Name:    in.Name,
		Email:   strings.TrimSpace(in.Email),
		Message: in.Message,
	}
	if in.Phone != nil && strings.TrimSpace(*in.Phone) != "" {
		phone := strings.TrimSpace(*in.Phone)
		contact.Phone = &phone
	}

	err := sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		return tx.Create(contact).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create contact: %w", err)
	}
	return contact, nil
}
