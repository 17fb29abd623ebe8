// Package web provides HTTP handlers exposing editor sessions to a browser canvas.
package web

import (
	"net/http"
	"time"

	"github.com/dukex/flowedit/pkg/editor"
	"github.com/dukex/flowedit/pkg/merge"
	"github.com/dukex/flowedit/pkg/models"
	"github.com/dukex/flowedit/pkg/persistence"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

type APIHandlers struct {
	sessions  *SessionManager
	store     persistence.Persistence
	validator *validator.Validate
}

func NewAPIHandlers(
	sessions *SessionManager,
	store persistence.Persistence,
	validator *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		sessions:  sessions,
		store:     store,
		validator: validator,
	}
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	status := "healthy"
	message := "Workflow editor is healthy"
	httpStatus := http.StatusOK
	storeCheck := "ok"

	if err := h.store.HealthCheck(c.Context()); err != nil {
		status = "unhealthy"
		message = "Workflow editor is unhealthy"
		httpStatus = http.StatusInternalServerError
		storeCheck = err.Error()
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"store":    storeCheck,
			"sessions": h.sessions.Len(),
		},
		"timestamp": time.Now().UTC(),
	})
}

func (h *APIHandlers) GetNodeTypes(c fiber.Ctx) error {
	catalog, err := h.store.GetNodeTypeCatalog(c.Context())
	if err != nil {
		return handleEditorError(c, err)
	}

	return c.JSON(catalog)
}

func (h *APIHandlers) CreateSession(c fiber.Ctx) error {
	var req CreateSessionRequest

	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "Invalid JSON format")
		}
	}

	session, err := h.sessions.Open(c.Context(), req.WorkflowID)
	if err != nil {
		return handleEditorError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(TransformSessionResponse(session))
}

func (h *APIHandlers) GetSession(c fiber.Ctx) error {
	session, ok := h.session(c)
	if !ok {
		return sessionNotFound(c)
	}

	return c.JSON(TransformSessionResponse(session))
}

func (h *APIHandlers) CloseSession(c fiber.Ctx) error {
	if !h.sessions.Close(c.Params("sessionId")) {
		return sessionNotFound(c)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) LoadWorkflow(c fiber.Ctx) error {
	session, ok := h.session(c)
	if !ok {
		return sessionNotFound(c)
	}

	var req LoadWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := session.Load(c.Context(), req.WorkflowID); err != nil {
		return handleEditorError(c, err)
	}

	return c.JSON(TransformSessionResponse(session))
}

func (h *APIHandlers) GetCatalog(c fiber.Ctx) error {
	session, ok := h.session(c)
	if !ok {
		return sessionNotFound(c)
	}

	catalog := session.Catalog()
	if catalog == nil {
		return notFound(c, "Node type catalog is not available for this session")
	}

	return c.JSON(catalog)
}

func (h *APIHandlers) GetNodes(c fiber.Ctx) error {
	session, ok := h.session(c)
	if !ok {
		return sessionNotFound(c)
	}

	return c.JSON(session.Nodes())
}

func (h *APIHandlers) AddNode(c fiber.Ctx) error {
	session, ok := h.session(c)
	if !ok {
		return sessionNotFound(c)
	}

	var req AddNodeRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	node, err := session.AddNode(req.Descriptor())
	if err != nil {
		return handleEditorError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(node)
}

func (h *APIHandlers) UpdateNode(c fiber.Ctx) error {
	session, ok := h.session(c)
	if !ok {
		return sessionNotFound(c)
	}

	nodeID := c.Params("nodeId")

	var req UpdateNodeRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	if err := session.UpdateNode(nodeID, req.Patch()); err != nil {
		return handleEditorError(c, err)
	}

	node := findNode(session.Nodes(), nodeID)
	if node == nil {
		return notFound(c, "Node not found")
	}

	return c.JSON(node)
}

func (h *APIHandlers) DeleteNode(c fiber.Ctx) error {
	session, ok := h.session(c)
	if !ok {
		return sessionNotFound(c)
	}

	if err := session.DeleteNode(c.Params("nodeId")); err != nil {
		return handleEditorError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) GetConnections(c fiber.Ctx) error {
	session, ok := h.session(c)
	if !ok {
		return sessionNotFound(c)
	}

	return c.JSON(session.Connections())
}

func (h *APIHandlers) Connect(c fiber.Ctx) error {
	session, ok := h.session(c)
	if !ok {
		return sessionNotFound(c)
	}

	var req ConnectRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	fromPort, toPort := req.FromPort, req.ToPort
	if fromPort == "" {
		fromPort = models.DefaultFromPort
	}

	if toPort == "" {
		toPort = models.DefaultToPort
	}

	conn, err := session.ConnectPorts(req.From, fromPort, req.To, toPort)
	if err != nil {
		return handleEditorError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(conn)
}

func (h *APIHandlers) Disconnect(c fiber.Ctx) error {
	session, ok := h.session(c)
	if !ok {
		return sessionNotFound(c)
	}

	if err := session.Disconnect(c.Params("connectionId")); err != nil {
		return handleEditorError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) Select(c fiber.Ctx) error {
	session, ok := h.session(c)
	if !ok {
		return sessionNotFound(c)
	}

	var req SelectRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	if err := session.Select(req.NodeID); err != nil {
		return handleEditorError(c, err)
	}

	return c.JSON(fiber.Map{"active_node_id": session.ActiveNodeID()})
}

func (h *APIHandlers) Deselect(c fiber.Ctx) error {
	session, ok := h.session(c)
	if !ok {
		return sessionNotFound(c)
	}

	if err := session.Deselect(); err != nil {
		return handleEditorError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) PointerDown(c fiber.Ctx) error {
	session, ok := h.session(c)
	if !ok {
		return sessionNotFound(c)
	}

	var req PointerRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if req.NodeID == "" {
		return badRequest(c, "node_id is required")
	}

	if !session.PointerDown(req.NodeID, models.Position{X: req.X, Y: req.Y}) {
		return c.JSON(PointerResponse{})
	}

	return c.JSON(PointerResponse{Dragging: true, NodeID: req.NodeID})
}

func (h *APIHandlers) PointerMove(c fiber.Ctx) error {
	session, ok := h.session(c)
	if !ok {
		return sessionNotFound(c)
	}

	var req PointerRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	pos, moved := session.PointerMove(models.Position{X: req.X, Y: req.Y})
	if !moved {
		return c.JSON(PointerResponse{})
	}

	return c.JSON(PointerResponse{Dragging: true, Position: &pos})
}

func (h *APIHandlers) PointerUp(c fiber.Ctx) error {
	session, ok := h.session(c)
	if !ok {
		return sessionNotFound(c)
	}

	return c.JSON(completionResponse(session.PointerUp()))
}

func (h *APIHandlers) PointerLeave(c fiber.Ctx) error {
	session, ok := h.session(c)
	if !ok {
		return sessionNotFound(c)
	}

	return c.JSON(completionResponse(session.PointerLeave()))
}

func (h *APIHandlers) SetDetails(c fiber.Ctx) error {
	session, ok := h.session(c)
	if !ok {
		return sessionNotFound(c)
	}

	var req DetailsRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	if err := session.SetDetails(req.Name, req.Description); err != nil {
		return handleEditorError(c, err)
	}

	return c.JSON(TransformSessionResponse(session))
}

func (h *APIHandlers) Save(c fiber.Ctx) error {
	session, ok := h.session(c)
	if !ok {
		return sessionNotFound(c)
	}

	saved, err := session.Save(c.Context())
	if err != nil {
		return handleEditorError(c, err)
	}

	return c.JSON(saved)
}

func (h *APIHandlers) Execute(c fiber.Ctx) error {
	session, ok := h.session(c)
	if !ok {
		return sessionNotFound(c)
	}

	result, err := session.Execute(c.Context())
	if err != nil {
		return handleEditorError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(result)
}

func (h *APIHandlers) Generate(c fiber.Ctx) error {
	session, ok := h.session(c)
	if !ok {
		return sessionNotFound(c)
	}

	var req GenerateRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	generated, err := session.GenerateFromPrompt(c.Context(), req.Prompt)
	if err != nil {
		return handleEditorError(c, err)
	}

	return c.JSON(TransformGenerateResponse(generated))
}

// ApplyGenerated replaces the graph with a generated workflow document posted as the body.
func (h *APIHandlers) ApplyGenerated(c fiber.Ctx) error {
	session, ok := h.session(c)
	if !ok {
		return sessionNotFound(c)
	}

	candidate, err := merge.DecodeCandidate(c.Body())
	if err != nil {
		return handleEditorError(c, err)
	}

	result, err := session.ApplyGeneratedWorkflow(candidate)
	if err != nil {
		return handleEditorError(c, err)
	}

	return c.JSON(TransformMergeResponse(result))
}

func (h *APIHandlers) ExportDOT(c fiber.Ctx) error {
	session, ok := h.session(c)
	if !ok {
		return sessionNotFound(c)
	}

	dot, err := session.ExportDOT()
	if err != nil {
		return internalError(c, err)
	}

	c.Set(fiber.HeaderContentType, "text/vnd.graphviz; charset=utf-8")

	return c.SendString(dot)
}

func (h *APIHandlers) GetCollaborators(c fiber.Ctx) error {
	session, ok := h.session(c)
	if !ok {
		return sessionNotFound(c)
	}

	return c.JSON(session.Collaborators())
}

func (h *APIHandlers) session(c fiber.Ctx) (*editor.Controller, bool) {
	id := c.Params("sessionId")
	if id == "" {
		return nil, false
	}

	return h.sessions.Get(id)
}

func findNode(nodes []*models.Node, id string) *models.Node {
	for _, node := range nodes {
		if node.ID == id {
			return node
		}
	}

	return nil
}
