package http

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"vitrine/internal/banners"
	"vitrine/internal/contacts"
	"vitrine/internal/projects"
)

// PublicProjectsAction lists published projects for the portfolio site.
func PublicProjectsAction(ctx *cartridge.Context) error {
	list, err := projects.ListPublished(ctx.UserContext(), ctx.DB())
	if err != nil {
		return serverError(ctx, "Erro ao buscar projetos", err)
	}
	return ctx.JSON(list)
}

// PublicProjectAction returns one published project and counts the view.
func PublicProjectAction(ctx *cartridge.Context) error {
	db := ctx.DB()
	project, err := projects.FindPublishedBySlug(ctx.UserContext(), db, ctx.Params("slug"))
	if err != nil {
		if errors.Is(err, projects.ErrNotFound) {
			return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Projeto não encontrado"})
		}
		return serverError(ctx, "Erro ao buscar projeto", err)
	}

	updated, err := projects.RecordView(ctx.Logger, db, project)
	if err != nil {
		return serverError(ctx, "Erro ao buscar projeto", err)
	}
	return ctx.JSON(updated)
}

// ActiveBannersAction lists the banners scheduled for now, optionally for one ?position.
func ActiveBannersAction(ctx *cartridge.Context) error {
	list, err := banners.ListActive(ctx.UserContext(), ctx.DB(), ctx.Query("position"), time.Now())
	if err != nil {
		return serverError(ctx, "Erro ao buscar banners", err)
	}
	return ctx.JSON(list)
}

// CreateContactAction stores a message from the public contact form.
func CreateContactAction(ctx *cartridge.Context) error {
	var input contacts.Input
	if err := ctx.BodyParser(&input); err != nil {
		return badRequest(ctx, "Dados inválidos")
	}

	contact, err := contacts.Create(ctx.Logger, ctx.DB(), input)
	if err != nil {
		var validationErr *contacts.ValidationError
		if errors.As(err, &validationErr) {
			return badRequest(ctx, validationErr.Message)
		}
		return serverError(ctx, "Erro ao enviar mensagem", err)
	}
	return ctx.Status(fiber.StatusCreated).JSON(contact)
}
