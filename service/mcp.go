package service

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/chatgrab/kit"
)

// RegisterMCP registers all extraction tools on an MCP server.
func (s *Service) RegisterMCP(srv *mcp.Server) {
	s.registerExtract(srv)
	s.registerGetExtraction(srv)
	s.registerListExtractions(srv)
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	sc := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		sc["required"] = required
	}
	return sc
}

func (s *Service) registerExtract(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "chatgrab_extract",
		Description: "Extract an ordered, role-labeled transcript from a chat conversation page (snapshot markup or live URL)",
		InputSchema: inputSchema(map[string]any{
			"snapshot":   map[string]any{"type": "string", "description": "Raw page markup containing an embedded conversation payload"},
			"url":        map[string]any{"type": "string", "description": "Conversation page URL to fetch or render"},
			"force_live": map[string]any{"type": "boolean", "description": "Skip the snapshot probe and render in a browser directly"},
		}, nil),
	}

	endpoint := func(ctx context.Context, r any) (any, error) {
		return s.Extract(ctx, *r.(*ExtractRequest))
	}

	decode := func(r *mcp.CallToolRequest) (any, error) {
		var p ExtractRequest
		if err := json.Unmarshal(r.Params.Arguments, &p); err != nil {
			return nil, err
		}
		return &p, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

func (s *Service) registerGetExtraction(srv *mcp.Server) {
	type req struct {
		ID string `json:"id"`
	}

	tool := &mcp.Tool{
		Name:        "chatgrab_get",
		Description: "Get a previously persisted extraction by ID",
		InputSchema: inputSchema(map[string]any{
			"id": map[string]any{"type": "string", "description": "Extraction ID"},
		}, []string{"id"}),
	}

	endpoint := func(ctx context.Context, r any) (any, error) {
		p := r.(*req)
		rec, err := s.GetExtraction(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		if rec == nil {
			return map[string]string{"error": "not found"}, nil
		}
		return extractionBody(rec), nil
	}

	decode := func(r *mcp.CallToolRequest) (any, error) {
		var p req
		if err := json.Unmarshal(r.Params.Arguments, &p); err != nil {
			return nil, err
		}
		return &p, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

func (s *Service) registerListExtractions(srv *mcp.Server) {
	type req struct {
		Limit int `json:"limit"`
	}

	tool := &mcp.Tool{
		Name:        "chatgrab_list",
		Description: "List persisted extractions, newest first",
		InputSchema: inputSchema(map[string]any{
			"limit": map[string]any{"type": "integer", "description": "Maximum results (default 50)"},
		}, nil),
	}

	endpoint := func(ctx context.Context, r any) (any, error) {
		p := r.(*req)
		recs, err := s.ListExtractions(ctx, p.Limit)
		if err != nil {
			return nil, err
		}
		out := make([]map[string]any, 0, len(recs))
		for _, rec := range recs {
			out = append(out, map[string]any{
				"id":            rec.ID,
				"title":         rec.Title,
				"url":           rec.URL,
				"strategy":      rec.Strategy,
				"message_count": rec.MessageCount,
				"created_at":    rec.CreatedAt,
			})
		}
		return out, nil
	}

	decode := func(r *mcp.CallToolRequest) (any, error) {
		var p req
		if err := json.Unmarshal(r.Params.Arguments, &p); err != nil {
			return nil, err
		}
		return &p, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}
