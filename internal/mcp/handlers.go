package mcp

import (
	"context"
	stderrors "errors"
	"sync"

	"github.com/goccy/go-json"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/kifu/internal/config"
	"github.com/hpungsan/kifu/internal/errors"
	"github.com/hpungsan/kifu/internal/ops"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	cfg     *config.Config
	fetcher ops.Fetcher

	// mu runs one tool call at a time: one outstanding remote request and
	// one writer per store.
	mu sync.Mutex
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(cfg *config.Config, fetcher ops.Fetcher) *Handlers {
	return &Handlers{cfg: cfg, fetcher: fetcher}
}

// MirrorRequest represents the arguments for mirror_run.
type MirrorRequest struct {
	Names     []string `json:"names"`
	OutputDir string   `json:"output_dir,omitempty"`
	Limit     *int     `json:"limit,omitempty"`
	StopEarly *bool    `json:"stop_early,omitempty"`
	Backfill  bool     `json:"backfill,omitempty"`
}

// ResolveRequest represents the arguments for identity_resolve.
type ResolveRequest struct {
	Name      string `json:"name"`
	OutputDir string `json:"output_dir,omitempty"`
}

// LedgerRequest represents the arguments for ledger_list.
type LedgerRequest struct {
	OutputDir string `json:"output_dir,omitempty"`
	Limit     int    `json:"limit,omitempty"`
	Offset    int    `json:"offset,omitempty"`
	Bots      *bool  `json:"bots,omitempty"`
}

// StatusRequest represents the arguments for mirror_status.
type StatusRequest struct {
	OutputDir string `json:"output_dir,omitempty"`
}

// HandleMirror handles the mirror_run tool call.
func (h *Handlers) HandleMirror(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[MirrorRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	limit := h.cfg.DefaultLimit
	if input.Limit != nil {
		limit = *input.Limit
	}
	stopEarly := true
	if input.StopEarly != nil {
		stopEarly = *input.StopEarly
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	result, err := ops.Mirror(ctx, h.cfg, h.fetcher, ops.MirrorInput{
		Names:            input.Names,
		OutputDir:        input.OutputDir,
		Limit:            limit,
		StopOnNoNewSaves: stopEarly,
		Backfill:         input.Backfill,
	})
	if err != nil {
		// A cancelled run still reports what it managed to mirror.
		if result != nil && result.Cancelled {
			return successResult(result)
		}
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleResolve handles the identity_resolve tool call.
func (h *Handlers) HandleResolve(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ResolveRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	result, err := ops.ResolveName(ctx, h.cfg, h.fetcher, ops.ResolveInput{
		Name:      input.Name,
		OutputDir: input.OutputDir,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleLedger handles the ledger_list tool call.
func (h *Handlers) HandleLedger(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[LedgerRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	result, err := ops.ListLedger(h.cfg, ops.LedgerInput{
		OutputDir: input.OutputDir,
		Limit:     input.Limit,
		Offset:    input.Offset,
		IsBot:     input.Bots,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleStatus handles the mirror_status tool call.
func (h *Handlers) HandleStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[StatusRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	result, err := ops.Status(h.cfg, ops.StatusInput{OutputDir: input.OutputDir})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// errorResult converts an error to an MCP error result.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	var kifuErr *errors.KifuError
	if stderrors.As(err, &kifuErr) {
		msg := kifuErr.Message
		if err != error(kifuErr) {
			msg = err.Error()
		}
		errorObj := map[string]any{
			"code":    kifuErr.Code,
			"message": msg,
			"status":  kifuErr.Status,
		}
		// Internal errors may carry file paths or SQL text.
		if kifuErr.Code != errors.ErrInternal && kifuErr.Details != nil {
			errorObj["details"] = kifuErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates a successful MCP result with JSON content.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
