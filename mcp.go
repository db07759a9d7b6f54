package concurrence

import (
	"context"
	"encoding/json"

	"github.com/hazyhaar/concurrence/kit"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// RegisterMCP registers all concurrence tools on an MCP server.
func (svc *Service) RegisterMCP(srv *mcp.Server) {
	svc.registerCollect(srv)
	svc.registerFreshness(srv)
	svc.registerStrategy(srv)
	svc.registerScrapeCompetitor(srv)
	svc.registerListCompetitors(srv)
	svc.registerScrapeHistory(srv)
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

func (svc *Service) registerCollect(srv *mcp.Server) {
	type req struct {
		ProjectID        string `json:"project_id"`
		PriorityOverride string `json:"priority_override"`
		ForceFresh       bool   `json:"force_fresh"`
	}

	tool := &mcp.Tool{
		Name:        "concurrence_collect",
		Description: "Run a collection for a project: product snapshot plus per-competitor priority fallback, scored for completeness and freshness",
		InputSchema: inputSchema(map[string]any{
			"project_id":        map[string]any{"type": "string", "description": "Project ID"},
			"priority_override": map[string]any{"type": "string", "description": "Force a single priority level for all competitors"},
			"force_fresh":       map[string]any{"type": "boolean", "description": "Use the full fallback chain starting from fresh scrapes"},
		}, []string{"project_id"}),
	}

	endpoint := func(ctx context.Context, r any) (any, error) {
		p := r.(*req)
		return svc.CollectProjectData(ctx, p.ProjectID, &CollectOptions{
			PriorityOverride: Priority(p.PriorityOverride),
			ForceFreshData:   p.ForceFresh,
		})
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decodeJSON[req])
}

func (svc *Service) registerFreshness(srv *mcp.Server) {
	type req struct {
		ProjectID string `json:"project_id"`
	}

	tool := &mcp.Tool{
		Name:        "concurrence_freshness",
		Description: "Report stale vs fresh snapshot counts for a project without collecting anything",
		InputSchema: inputSchema(map[string]any{
			"project_id": map[string]any{"type": "string", "description": "Project ID"},
		}, []string{"project_id"}),
	}

	endpoint := func(ctx context.Context, r any) (any, error) {
		p := r.(*req)
		return svc.CheckDataFreshness(ctx, p.ProjectID)
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decodeJSON[req])
}

func (svc *Service) registerStrategy(srv *mcp.Server) {
	type req struct {
		ProjectID string `json:"project_id"`
	}

	tool := &mcp.Tool{
		Name:        "concurrence_strategy",
		Description: "Show the collection strategy the rule table would pick for a project",
		InputSchema: inputSchema(map[string]any{
			"project_id": map[string]any{"type": "string", "description": "Project ID"},
		}, []string{"project_id"}),
	}

	endpoint := func(ctx context.Context, r any) (any, error) {
		p := r.(*req)
		return svc.OptimizeStrategy(ctx, p.ProjectID), nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decodeJSON[req])
}

func (svc *Service) registerScrapeCompetitor(srv *mcp.Server) {
	type req struct {
		CompetitorID string `json:"competitor_id"`
	}

	tool := &mcp.Tool{
		Name:        "concurrence_scrape_competitor",
		Description: "Scrape a competitor's website now and persist a fresh snapshot",
		InputSchema: inputSchema(map[string]any{
			"competitor_id": map[string]any{"type": "string", "description": "Competitor ID"},
		}, []string{"competitor_id"}),
	}

	endpoint := func(ctx context.Context, r any) (any, error) {
		p := r.(*req)
		snapshotID, err := svc.ScrapeCompetitor(ctx, p.CompetitorID)
		if err != nil {
			return nil, err
		}
		return map[string]string{"snapshot_id": snapshotID}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decodeJSON[req])
}

func (svc *Service) registerListCompetitors(srv *mcp.Server) {
	type req struct {
		ProjectID string `json:"project_id"`
	}

	tool := &mcp.Tool{
		Name:        "concurrence_list_competitors",
		Description: "List the competitors linked to a project",
		InputSchema: inputSchema(map[string]any{
			"project_id": map[string]any{"type": "string", "description": "Project ID"},
		}, []string{"project_id"}),
	}

	endpoint := func(ctx context.Context, r any) (any, error) {
		p := r.(*req)
		return svc.ListCompetitors(ctx, p.ProjectID)
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decodeJSON[req])
}

func (svc *Service) registerScrapeHistory(srv *mcp.Server) {
	type req struct {
		CompetitorID string `json:"competitor_id"`
		Limit        int    `json:"limit"`
	}

	tool := &mcp.Tool{
		Name:        "concurrence_scrape_history",
		Description: "Show recent priority attempts for a competitor",
		InputSchema: inputSchema(map[string]any{
			"competitor_id": map[string]any{"type": "string", "description": "Competitor ID"},
			"limit":         map[string]any{"type": "integer", "description": "Max entries (default 50)"},
		}, []string{"competitor_id"}),
	}

	endpoint := func(ctx context.Context, r any) (any, error) {
		p := r.(*req)
		return svc.ScrapeHistory(ctx, p.CompetitorID, p.Limit)
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decodeJSON[req])
}

// decodeJSON builds a kit decode function for a plain JSON request type.
func decodeJSON[T any](r *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
	var p T
	if err := json.Unmarshal(r.Params.Arguments, &p); err != nil {
		return nil, err
	}
	return &kit.MCPDecodeResult{Request: &p}, nil
}
