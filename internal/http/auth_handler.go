package http

import (
	"errors"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"vitrine/internal/auth"
	"vitrine/internal/config"
	"vitrine/internal/http/middleware"
	"vitrine/internal/users"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type loginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

var loginMessages = map[string]string{
	"Email":    "Email inválido",
	"Password": "Senha é obrigatória",
}

// UserProfile is the public view of an admin user.
type UserProfile struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

func profileOf(user *users.User) UserProfile {
	return UserProfile{ID: user.ID, Email: user.Email, Name: user.Name, Role: user.Role}
}

// TokenIssuer builds the issuer for the configured secret and lifetime.
func TokenIssuer(cfg *config.Config) *auth.Issuer {
	return auth.NewIssuer(cfg.JWTSecret, time.Duration(cfg.JWTTTLHours)*time.Hour)
}

// LoginAction exchanges credentials for a bearer token.
func LoginAction(ctx *cartridge.Context) error {
	var input loginInput
	if err := ctx.BodyParser(&input); err != nil {
		return badRequest(ctx, "Dados inválidos")
	}

	if err := validate.Struct(input); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			if msg, ok := loginMessages[fieldErrs[0].StructField()]; ok {
				return badRequest(ctx, msg)
			}
		}
		return badRequest(ctx, "Dados inválidos")
	}

	user, err := users.Authenticate(ctx.DB(), input.Email, input.Password)
	if err != nil {
		if errors.Is(err, users.ErrInvalidCredentials) {
			ctx.Logger.Info("Failed login attempt", slog.String("email", input.Email))
			return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Credenciais inválidas"})
		}
		return serverError(ctx, "Erro ao fazer login", err)
	}

	token, err := TokenIssuer(config.GetConfig()).Issue(user)
	if err != nil {
		return serverError(ctx, "Erro ao fazer login", err)
	}

	ctx.Logger.Info("User logged in", slog.String("user_id", user.ID))
	return ctx.JSON(fiber.Map{
		"token": token,
		"user":  profileOf(user),
	})
}

// MeAction returns the profile of the authenticated user.
func MeAction(ctx *cartridge.Context) error {
	claims := middleware.Claims(ctx.Ctx)
	if claims == nil {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Token não fornecido"})
	}

	user, err := users.FindByID(ctx.DB(), claims.UserID)
	if err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Usuário não encontrado"})
		}
		return serverError(ctx, "Erro ao buscar usuário", err)
	}
	return ctx.JSON(profileOf(user))
}
