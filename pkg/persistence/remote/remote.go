// Package remote implements the workflow store against a REST workflow server.
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dukex/flowedit/pkg/models"
	"github.com/dukex/flowedit/pkg/persistence"
	"github.com/gofiber/fiber/v3/client"
	"github.com/moogar0880/problems"
)

// IdempotencyKeyHeader carries the execute idempotency key.
const IdempotencyKeyHeader = "Idempotency-Key"

// DefaultTimeout bounds every request made by the client.
const DefaultTimeout = 30 * time.Second

var _ persistence.Persistence = (*Persistence)(nil)

// Persistence talks to a workflow server over HTTP.
type Persistence struct {
	baseURL string
	client  *client.Client
	logger  *slog.Logger
}

type Option func(*Persistence)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Persistence) {
		p.logger = logger
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(p *Persistence) {
		p.client.SetTimeout(timeout)
	}
}

// WithHeader adds a header sent on every request, e.g. Authorization.
func WithHeader(key, value string) Option {
	return func(p *Persistence) {
		p.client.SetHeader(key, value)
	}
}

// NewPersistence creates a client for the server rooted at baseURL.
func NewPersistence(baseURL string, opts ...Option) *Persistence {
	base := strings.TrimRight(baseURL, "/")

	p := &Persistence{
		baseURL: base,
		client:  client.New().SetBaseURL(base).SetTimeout(DefaultTimeout),
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

func (p *Persistence) GetWorkflow(ctx context.Context, id string) (*models.Workflow, error) {
	resp, err := p.client.Get("/workflows/"+url.PathEscape(id), client.Config{Ctx: ctx})
	if err != nil {
		return nil, p.transportError("GetWorkflow", id, err)
	}
	defer resp.Close()

	if resp.StatusCode() != http.StatusOK {
		return nil, statusError("GetWorkflow", id, resp)
	}

	var workflow models.Workflow
	if err := resp.JSON(&workflow); err != nil {
		return nil, persistence.NewWorkflowError("GetWorkflow", id, fmt.Errorf("failed to decode workflow: %w", err))
	}

	return &workflow, nil
}

func (p *Persistence) CreateWorkflow(ctx context.Context, workflow *models.Workflow) (*models.Workflow, error) {
	resp, err := p.client.Post("/workflows", client.Config{Ctx: ctx, Body: workflow})
	if err != nil {
		return nil, p.transportError("CreateWorkflow", "", err)
	}
	defer resp.Close()

	if resp.StatusCode() != http.StatusCreated && resp.StatusCode() != http.StatusOK {
		return nil, statusError("CreateWorkflow", "", resp)
	}

	var created models.Workflow
	if err := resp.JSON(&created); err != nil {
		return nil, persistence.NewWorkflowError("CreateWorkflow", "", fmt.Errorf("failed to decode workflow: %w", err))
	}

	if created.ID == "" {
		return nil, persistence.NewWorkflowError("CreateWorkflow", "", fmt.Errorf("%w: server returned no id", persistence.ErrInvalidWorkflow))
	}

	return &created, nil
}

func (p *Persistence) UpdateWorkflow(ctx context.Context, id string, workflow *models.Workflow) (*models.Workflow, error) {
	resp, err := p.client.Put("/workflows/"+url.PathEscape(id), client.Config{Ctx: ctx, Body: workflow})
	if err != nil {
		return nil, p.transportError("UpdateWorkflow", id, err)
	}
	defer resp.Close()

	if resp.StatusCode() != http.StatusOK {
		return nil, statusError("UpdateWorkflow", id, resp)
	}

	var updated models.Workflow
	if err := resp.JSON(&updated); err != nil {
		return nil, persistence.NewWorkflowError("UpdateWorkflow", id, fmt.Errorf("failed to decode workflow: %w", err))
	}

	return &updated, nil
}

func (p *Persistence) AutosaveWorkflow(ctx context.Context, id string, payload models.AutosavePayload) error {
	resp, err := p.client.Put("/workflows/"+url.PathEscape(id)+"/autosave", client.Config{Ctx: ctx, Body: payload})
	if err != nil {
		return p.transportError("AutosaveWorkflow", id, err)
	}
	defer resp.Close()

	switch resp.StatusCode() {
	case http.StatusOK, http.StatusAccepted, http.StatusNoContent:
		return nil
	default:
		return statusError("AutosaveWorkflow", id, resp)
	}
}

func (p *Persistence) ExecuteWorkflow(ctx context.Context, id, idempotencyKey string) (*models.ExecutionResult, error) {
	if idempotencyKey == "" {
		return nil, persistence.NewWorkflowError("ExecuteWorkflow", id, persistence.ErrIdempotencyKeyRequired)
	}

	resp, err := p.client.Post("/workflows/"+url.PathEscape(id)+"/execute", client.Config{
		Ctx:    ctx,
		Header: map[string]string{IdempotencyKeyHeader: idempotencyKey},
	})
	if err != nil {
		return nil, p.transportError("ExecuteWorkflow", id, err)
	}
	defer resp.Close()

	if resp.StatusCode() != http.StatusOK && resp.StatusCode() != http.StatusAccepted && resp.StatusCode() != http.StatusCreated {
		return nil, statusError("ExecuteWorkflow", id, resp)
	}

	var result models.ExecutionResult
	if err := resp.JSON(&result); err != nil {
		return nil, persistence.NewWorkflowError("ExecuteWorkflow", id, fmt.Errorf("failed to decode execution: %w", err))
	}

	if result.WorkflowID == "" {
		result.WorkflowID = id
	}

	if result.IdempotencyKey == "" {
		result.IdempotencyKey = idempotencyKey
	}

	return &result, nil
}

func (p *Persistence) GetNodeTypeCatalog(ctx context.Context) (*models.NodeTypeCatalog, error) {
	resp, err := p.client.Get("/node-types", client.Config{Ctx: ctx})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", persistence.ErrUnavailable, err)
	}
	defer resp.Close()

	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("%w: node types returned status %d", persistence.ErrUnavailable, resp.StatusCode())
	}

	var catalog models.NodeTypeCatalog
	if err := resp.JSON(&catalog); err != nil {
		return nil, fmt.Errorf("failed to decode node type catalog: %w", err)
	}

	return &catalog, nil
}

// HealthCheck calls the server's /health endpoint.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	resp, err := p.client.Get("/health", client.Config{Ctx: ctx})
	if err != nil {
		return fmt.Errorf("%w: %w", persistence.ErrUnavailable, err)
	}
	defer resp.Close()

	if resp.StatusCode() >= http.StatusInternalServerError {
		return fmt.Errorf("%w: health returned status %d", persistence.ErrUnavailable, resp.StatusCode())
	}

	return nil
}

func (p *Persistence) Close(_ context.Context) error {
	return nil
}

func (p *Persistence) transportError(op, id string, err error) error {
	p.logger.Warn("Workflow server request failed", "op", op, "workflow_id", id, "base_url", p.baseURL, "error", err)

	return &persistence.WorkflowError{
		Op:         op,
		WorkflowID: id,
		Err:        fmt.Errorf("%w: %w", persistence.ErrUnavailable, err),
	}
}

func statusError(op, id string, resp *client.Response) error {
	var sentinel error

	switch code := resp.StatusCode(); {
	case code == http.StatusNotFound:
		sentinel = persistence.ErrWorkflowNotFound
	case code == http.StatusConflict:
		sentinel = persistence.ErrWorkflowAlreadyExists
	case code == http.StatusBadRequest || code == http.StatusUnprocessableEntity:
		sentinel = persistence.ErrInvalidWorkflow
	case code >= http.StatusInternalServerError:
		sentinel = persistence.ErrUnavailable
	default:
		sentinel = fmt.Errorf("unexpected status %d", code)
	}

	wfErr := &persistence.WorkflowError{Op: op, WorkflowID: id, Err: sentinel}

	var body problems.Problem
	if err := json.Unmarshal(resp.Body(), &body); err == nil {
		wfErr.Message = body.Detail
		if wfErr.Message == "" {
			wfErr.Message = body.Title
		}
	}

	return wfErr
}
