package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Handler serves the tool requests by delegating to the query API.
type Handler struct {
	api *APIClient
}

func NewHandler(api *APIClient) *Handler {
	return &Handler{api: api}
}

// NewToolServer builds the MCP server with the four query tools registered.
func NewToolServer(h *Handler) *server.MCPServer {
	s := server.NewMCPServer("ruraldata", "1.0.0")

	s.AddTool(mcp.NewTool("query_investments",
		mcp.WithDescription("Search USDA rural investment records. All arguments are optional filters; results are paginated."),
		mcp.WithString("state", mcp.Description("State name or postal abbreviation, e.g. 'Washington' or 'WA'.")),
		mcp.WithString("program_area", mcp.Description("Program area, canonical or colloquial, e.g. 'broadband' or 'Water and Environmental'.")),
		mcp.WithNumber("fiscal_year", mcp.Description("Federal fiscal year, e.g. 2023.")),
		mcp.WithString("borrower", mcp.Description("Substring match on the borrower name.")),
		mcp.WithNumber("min_dollars", mcp.Description("Minimum investment amount in dollars.")),
		mcp.WithNumber("max_dollars", mcp.Description("Maximum investment amount in dollars.")),
		mcp.WithNumber("limit", mcp.Description("Page size, capped by the API.")),
		mcp.WithNumber("offset", mcp.Description("Number of matching records to skip.")),
	), h.HandleQueryInvestments)

	s.AddTool(mcp.NewTool("aggregate_investments",
		mcp.WithDescription("Group matching investments by a dimension, returning per-group counts and dollar sums sorted by dollar sum."),
		mcp.WithString("dimension", mcp.Required(), mcp.Description("Grouping dimension: state_name, program_area, or fiscal_year.")),
		mcp.WithString("state", mcp.Description("State name or postal abbreviation.")),
		mcp.WithString("program_area", mcp.Description("Program area, canonical or colloquial.")),
		mcp.WithNumber("fiscal_year", mcp.Description("Federal fiscal year.")),
		mcp.WithNumber("min_dollars", mcp.Description("Minimum investment amount in dollars.")),
		mcp.WithNumber("max_dollars", mcp.Description("Maximum investment amount in dollars.")),
	), h.HandleAggregateInvestments)

	s.AddTool(mcp.NewTool("get_schema",
		mcp.WithDescription("Describe the queryable fields, aggregation dimensions, and the distinct values of each categorical field."),
	), h.HandleGetSchema)

	s.AddTool(mcp.NewTool("health_check",
		mcp.WithDescription("Report whether the API has a record generation loaded, and which one."),
	), h.HandleHealthCheck)

	return s
}

// buildFilter assembles the API filter from the common tool arguments.
func buildFilter(args map[string]any) map[string]any {
	spec := map[string]any{}
	if state, ok := args["state"].(string); ok && state != "" {
		spec["state_name"] = ResolveState(state)
	}
	if area, ok := args["program_area"].(string); ok && area != "" {
		spec["program_area"] = ResolveProgramArea(area)
	}
	if year, ok := args["fiscal_year"].(float64); ok {
		spec["fiscal_year"] = year
	}
	if borrower, ok := args["borrower"].(string); ok && borrower != "" {
		spec["borrower_name"] = map[string]any{"contains": borrower}
	}
	dollars := map[string]any{}
	if min, ok := args["min_dollars"].(float64); ok {
		dollars["min"] = min
	}
	if max, ok := args["max_dollars"].(float64); ok {
		dollars["max"] = max
	}
	if len(dollars) > 0 {
		spec["investment_dollars"] = dollars
	}
	return spec
}

func toolResult(res apiResult, err error) (*mcp.CallToolResult, error) {
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if res.IsError {
		return mcp.NewToolResultError(res.Body), nil
	}
	return mcp.NewToolResultText(res.Body), nil
}

func (h *Handler) HandleQueryInvestments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	limit, _ := args["limit"].(float64)
	offset, _ := args["offset"].(float64)
	res, err := h.api.QueryInvestments(ctx, buildFilter(args), int(limit), int(offset))
	return toolResult(res, err)
}

func (h *Handler) HandleAggregateInvestments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	dimension, err := req.RequireString("dimension")
	if err != nil {
		return nil, err
	}
	res, err := h.api.AggregateInvestments(ctx, dimension, buildFilter(req.GetArguments()))
	return toolResult(res, err)
}

func (h *Handler) HandleGetSchema(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := h.api.Schema(ctx)
	return toolResult(res, err)
}

func (h *Handler) HandleHealthCheck(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := h.api.Health(ctx)
	return toolResult(res, err)
}
