// Package tools exposes the star query operations as MCP tools.
//
// Every call ingests a fresh star set through the configured Source, then
// applies one query operation. Failures are returned as tool error results so
// the protocol session survives them.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/spf13/cast"

	"starmap/internal/model"
	"starmap/internal/stars"
)

// Tool names.
const (
	SearchStars         = "search_stars"
	GetStarsByLanguage  = "get_stars_by_language"
	GetStarsByTopic     = "get_stars_by_topic"
	GetTopStars         = "get_top_stars"
	GetRecentStars      = "get_recent_stars"
	limitArg            = "limit"
	limitArgDescription = "Maximum number of results (default: 10)"
)

// ErrUnknownTool is returned by Query for names outside the tool set.
var ErrUnknownTool = errors.New("unknown tool")

// ArgumentError reports a missing required argument.
type ArgumentError struct {
	Name string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("'%s' is required", e.Name)
}

// StarTools serves the five star query tools for one user.
type StarTools struct {
	source   stars.Source
	username string
	logger   *slog.Logger
}

// NewStarTools creates StarTools reading username's stars from source.
func NewStarTools(source stars.Source, username string, logger *slog.Logger) *StarTools {
	return &StarTools{source: source, username: username, logger: logger}
}

// Definitions returns the MCP tool definitions, in registration order.
func (t *StarTools) Definitions() []mcp.Tool {
	return []mcp.Tool{
		mcp.NewTool(SearchStars,
			mcp.WithDescription("Search through your GitHub starred repositories using keywords"),
			mcp.WithString("query",
				mcp.Required(),
				mcp.Description("Search query (language, topic, keyword in name/description)"),
			),
			mcp.WithNumber(limitArg, mcp.Description(limitArgDescription), mcp.DefaultNumber(stars.DefaultLimit)),
		),
		mcp.NewTool(GetStarsByLanguage,
			mcp.WithDescription("Get starred repositories filtered by programming language"),
			mcp.WithString("language",
				mcp.Required(),
				mcp.Description("Programming language (e.g., Python, JavaScript, Go)"),
			),
			mcp.WithNumber(limitArg, mcp.Description(limitArgDescription), mcp.DefaultNumber(stars.DefaultLimit)),
		),
		mcp.NewTool(GetStarsByTopic,
			mcp.WithDescription("Get starred repositories filtered by topic/tag"),
			mcp.WithString("topic",
				mcp.Required(),
				mcp.Description("Topic/tag (e.g., machine-learning, api, docker)"),
			),
			mcp.WithNumber(limitArg, mcp.Description(limitArgDescription), mcp.DefaultNumber(stars.DefaultLimit)),
		),
		mcp.NewTool(GetTopStars,
			mcp.WithDescription("Get most starred repositories from your stars"),
			mcp.WithNumber(limitArg, mcp.Description("Number of top repos to return"), mcp.DefaultNumber(stars.DefaultLimit)),
		),
		mcp.NewTool(GetRecentStars,
			mcp.WithDescription("Get recently starred repositories"),
			mcp.WithNumber(limitArg, mcp.Description("Number of recent repos to return"), mcp.DefaultNumber(stars.DefaultLimit)),
		),
	}
}

// Handle is the MCP handler shared by all star tools.
func (t *StarTools) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return t.Call(ctx, req.Params.Name, req.GetArguments()), nil
}

// Call runs a tool and renders its outcome as a text result. Unknown names
// produce a plain text result rather than an error.
func (t *StarTools) Call(ctx context.Context, name string, args map[string]any) *mcp.CallToolResult {
	records, err := t.Query(ctx, name, args)
	switch {
	case errors.Is(err, ErrUnknownTool):
		return mcp.NewToolResultText(fmt.Sprintf("Unknown tool: %s", name))
	case err != nil:
		t.logger.Warn("Tool call failed", "tool", name, "error", err)
		return mcp.NewToolResultError(err.Error())
	}

	out, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encoding results: %v", err))
	}
	return mcp.NewToolResultText(string(out))
}

// Query validates arguments, ingests the star set and applies the operation
// named by name.
func (t *StarTools) Query(ctx context.Context, name string, args map[string]any) ([]model.StarRecord, error) {
	var op func([]model.StarRecord) []model.StarRecord
	limit := intArg(args, limitArg, stars.DefaultLimit)

	switch name {
	case SearchStars:
		query, err := requiredString(args, "query")
		if err != nil {
			return nil, err
		}
		op = func(r []model.StarRecord) []model.StarRecord { return stars.Search(r, query, limit) }
	case GetStarsByLanguage:
		language, err := requiredString(args, "language")
		if err != nil {
			return nil, err
		}
		op = func(r []model.StarRecord) []model.StarRecord { return stars.ByLanguage(r, language, limit) }
	case GetStarsByTopic:
		topic, err := requiredString(args, "topic")
		if err != nil {
			return nil, err
		}
		op = func(r []model.StarRecord) []model.StarRecord { return stars.ByTopic(r, topic, limit) }
	case GetTopStars:
		op = func(r []model.StarRecord) []model.StarRecord { return stars.TopStars(r, limit) }
	case GetRecentStars:
		op = func(r []model.StarRecord) []model.StarRecord { return stars.RecentStars(r, limit) }
	default:
		return nil, ErrUnknownTool
	}

	records, err := t.source.ListStarred(ctx, t.username)
	if err != nil {
		return nil, fmt.Errorf("fetching starred repositories: %w", err)
	}
	t.logger.Debug("Tool call", "tool", name, "records", len(records), "limit", limit)
	return op(records), nil
}

// requiredString rejects a missing or null argument. An empty string is a
// valid value: an empty search query matches every record.
func requiredString(args map[string]any, key string) (string, error) {
	v, ok := args[key]
	if !ok || v == nil {
		return "", &ArgumentError{Name: key}
	}
	return cast.ToString(v), nil
}

// intArg extracts an integer argument, returning defaultVal if the key is
// missing or not convertible. JSON numbers arrive as float64.
func intArg(args map[string]any, key string, defaultVal int) int {
	v, ok := args[key]
	if !ok || v == nil {
		return defaultVal
	}
	n, err := cast.ToIntE(v)
	if err != nil {
		return defaultVal
	}
	return n
}
