package web

import (
	"errors"

	"github.com/dukex/flowedit/pkg/editor"
	"github.com/dukex/flowedit/pkg/generation"
	"github.com/dukex/flowedit/pkg/graph"
	"github.com/dukex/flowedit/pkg/merge"
	"github.com/dukex/flowedit/pkg/persistence"
	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"
)

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(400).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func notFound(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(404).
		WithInstance(c.Path()).
		WithType("not_found").
		WithDetail(detail)

	return c.Status(fiber.StatusNotFound).JSON(problem)
}

func sessionNotFound(c fiber.Ctx) error {
	problem := problems.NewStatusProblem(404).
		WithInstance(c.Path()).
		WithType("session_not_found").
		WithDetail("editor session not found")

	return c.Status(fiber.StatusNotFound).JSON(problem)
}

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(500).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

func statusProblem(c fiber.Ctx, status int, typ, detail string) error {
	problem := problems.NewStatusProblem(status).
		WithInstance(c.Path()).
		WithType(typ).
		WithDetail(detail)

	return c.Status(status).JSON(problem)
}

// handleEditorError maps editor, graph and store errors to problem responses.
func handleEditorError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, graph.ErrNodeNotFound):
		return statusProblem(c, fiber.StatusNotFound, "node_not_found", err.Error())

	case graph.IsValidationError(err),
		errors.Is(err, editor.ErrUnknownNodeType),
		errors.Is(err, editor.ErrEmptyName),
		errors.Is(err, generation.ErrEmptyPrompt):
		return badRequest(c, err.Error())

	case errors.Is(err, merge.ErrInvalidCandidate),
		errors.Is(err, generation.ErrEmptyResponse),
		errors.Is(err, editor.ErrUnsupportedGeneration):
		return statusProblem(c, fiber.StatusUnprocessableEntity, "invalid_generated_workflow", err.Error())

	case errors.Is(err, editor.ErrWorkflowNotSaved):
		return statusProblem(c, fiber.StatusConflict, "workflow_not_saved", "workflow must be saved before it can be executed")

	case errors.Is(err, editor.ErrClosed):
		return statusProblem(c, fiber.StatusGone, "session_closed", "editor session is closed")

	case persistence.IsWorkflowNotFound(err):
		return statusProblem(c, fiber.StatusNotFound, "workflow_not_found", "workflow not found")

	case persistence.IsInvalidWorkflow(err):
		return badRequest(c, err.Error())

	case errors.Is(err, persistence.ErrWorkflowAlreadyExists):
		return statusProblem(c, fiber.StatusConflict, "conflict", err.Error())

	case errors.Is(err, generation.ErrDisabled):
		return statusProblem(c, fiber.StatusNotImplemented, "generation_disabled", "workflow generation is not configured")

	case errors.Is(err, generation.ErrRateLimited):
		return statusProblem(c, fiber.StatusTooManyRequests, "rate_limited", err.Error())

	case persistence.IsUnavailable(err), errors.Is(err, generation.ErrUnavailable):
		return statusProblem(c, fiber.StatusBadGateway, "upstream_unavailable", err.Error())

	default:
		return internalError(c, err)
	}
}
