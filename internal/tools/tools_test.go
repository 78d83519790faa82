package tools

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"starmap/internal/model"
)

// stubSource returns a fixed star set and counts ingestions.
type stubSource struct {
	records []model.StarRecord
	err     error
	calls   int
}

func (s *stubSource) ListStarred(_ context.Context, username string) ([]model.StarRecord, error) {
	s.calls++
	if username != "octocat" {
		return nil, errors.New("unexpected username " + username)
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.records, nil
}

func testRecords() []model.StarRecord {
	return []model.StarRecord{
		{Name: "golang/go", Language: "Go", Topics: []string{"go"}, Stars: 100, StarredAt: "2024-01-01T00:00:00Z"},
		{Name: "pallets/flask", Language: "Python", Topics: []string{"web-framework"}, Stars: 60, StarredAt: ""},
		{Name: "gin-gonic/gin", Language: "Go", Topics: []string{"web-framework"}, Stars: 80, StarredAt: "2024-03-01T00:00:00Z"},
	}
}

func newTestTools(src *stubSource) *StarTools {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return NewStarTools(src, "octocat", logger)
}

// resultText extracts the text content from a tool result.
func resultText(r *mcp.CallToolResult) string {
	if r == nil || len(r.Content) == 0 {
		return ""
	}
	for _, c := range r.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func resultNames(t *testing.T, r *mcp.CallToolResult) []string {
	t.Helper()
	require.False(t, r.IsError, resultText(r))
	var records []model.StarRecord
	require.NoError(t, json.Unmarshal([]byte(resultText(r)), &records))
	names := make([]string, len(records))
	for i, rec := range records {
		names[i] = rec.Name
	}
	return names
}

func TestStarTools_Definitions(t *testing.T) {
	defs := newTestTools(&stubSource{}).Definitions()

	got := map[string]mcp.Tool{}
	for _, d := range defs {
		got[d.Name] = d
	}
	require.Len(t, got, 5)

	assert.Equal(t, []string{"query"}, got[SearchStars].InputSchema.Required)
	assert.Equal(t, []string{"language"}, got[GetStarsByLanguage].InputSchema.Required)
	assert.Equal(t, []string{"topic"}, got[GetStarsByTopic].InputSchema.Required)
	assert.Empty(t, got[GetTopStars].InputSchema.Required)
	assert.Empty(t, got[GetRecentStars].InputSchema.Required)
	for name, d := range got {
		assert.Contains(t, d.InputSchema.Properties, "limit", name)
	}
}

func TestStarTools_Call(t *testing.T) {
	ctx := context.Background()

	t.Run("search_stars filters by keyword", func(t *testing.T) {
		r := newTestTools(&stubSource{records: testRecords()}).Call(ctx, SearchStars, map[string]any{"query": "framework"})

		assert.Equal(t, []string{"pallets/flask", "gin-gonic/gin"}, resultNames(t, r))
	})

	t.Run("get_stars_by_language honors the limit", func(t *testing.T) {
		r := newTestTools(&stubSource{records: testRecords()}).Call(ctx, GetStarsByLanguage, map[string]any{"language": "go", "limit": float64(1)})

		assert.Equal(t, []string{"golang/go"}, resultNames(t, r))
	})

	t.Run("get_stars_by_topic matches substrings", func(t *testing.T) {
		r := newTestTools(&stubSource{records: testRecords()}).Call(ctx, GetStarsByTopic, map[string]any{"topic": "web"})

		assert.Equal(t, []string{"pallets/flask", "gin-gonic/gin"}, resultNames(t, r))
	})

	t.Run("get_top_stars sorts by stars", func(t *testing.T) {
		r := newTestTools(&stubSource{records: testRecords()}).Call(ctx, GetTopStars, map[string]any{"limit": "2"})

		assert.Equal(t, []string{"golang/go", "gin-gonic/gin"}, resultNames(t, r))
	})

	t.Run("get_recent_stars puts records without a timestamp last", func(t *testing.T) {
		r := newTestTools(&stubSource{records: testRecords()}).Call(ctx, GetRecentStars, nil)

		assert.Equal(t, []string{"gin-gonic/gin", "golang/go", "pallets/flask"}, resultNames(t, r))
	})

	t.Run("empty results serialize as an empty array", func(t *testing.T) {
		r := newTestTools(&stubSource{records: testRecords()}).Call(ctx, SearchStars, map[string]any{"query": "haskell"})

		assert.False(t, r.IsError)
		assert.Equal(t, "[]", resultText(r))
	})

	t.Run("unknown tools return plain text without ingesting", func(t *testing.T) {
		src := &stubSource{records: testRecords()}
		r := newTestTools(src).Call(ctx, "delete_stars", nil)

		assert.False(t, r.IsError)
		assert.Equal(t, "Unknown tool: delete_stars", resultText(r))
		assert.Equal(t, 0, src.calls)
	})

	t.Run("an empty search query matches every record", func(t *testing.T) {
		r := newTestTools(&stubSource{records: testRecords()}).Call(ctx, SearchStars, map[string]any{"query": ""})

		assert.Equal(t, []string{"golang/go", "pallets/flask", "gin-gonic/gin"}, resultNames(t, r))
	})

	t.Run("a null argument counts as missing", func(t *testing.T) {
		r := newTestTools(&stubSource{records: testRecords()}).Call(ctx, GetStarsByTopic, map[string]any{"topic": nil})

		assert.True(t, r.IsError)
		assert.Equal(t, "'topic' is required", resultText(r))
	})

	t.Run("missing required arguments are reported as error results", func(t *testing.T) {
		src := &stubSource{records: testRecords()}
		r := newTestTools(src).Call(ctx, SearchStars, map[string]any{})

		assert.True(t, r.IsError)
		assert.Equal(t, "'query' is required", resultText(r))
		assert.Equal(t, 0, src.calls)
	})

	t.Run("ingestion failures become error results", func(t *testing.T) {
		r := newTestTools(&stubSource{err: errors.New("upstream list starred failed with status 502")}).Call(ctx, GetTopStars, nil)

		assert.True(t, r.IsError)
		assert.Contains(t, resultText(r), "status 502")
	})

	t.Run("every call ingests again", func(t *testing.T) {
		src := &stubSource{records: testRecords()}
		tools := newTestTools(src)

		first := tools.Call(ctx, SearchStars, map[string]any{"query": "go"})
		second := tools.Call(ctx, SearchStars, map[string]any{"query": "go"})

		assert.Equal(t, resultText(first), resultText(second))
		assert.Equal(t, 2, src.calls)
	})
}

func TestStarTools_Handle(t *testing.T) {
	req := mcp.CallToolRequest{}
	req.Params.Name = GetTopStars
	req.Params.Arguments = map[string]any{"limit": float64(1)}

	r, err := newTestTools(&stubSource{records: testRecords()}).Handle(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, []string{"golang/go"}, resultNames(t, r))
}

type rpcResponse struct {
	Result struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		IsError bool `json:"isError"`
		Tools   []struct {
			Name string `json:"name"`
		} `json:"tools"`
	} `json:"result"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// rpc sends one JSON-RPC request through the server's message handler.
func rpc(t *testing.T, tools *StarTools, method string, params any) rpcResponse {
	t.Helper()
	msg, err := json.Marshal(map[string]any{"jsonrpc": "2.0", "id": 1, "method": method, "params": params})
	require.NoError(t, err)

	out, err := json.Marshal(NewMCPServer(tools, "test").HandleMessage(context.Background(), msg))
	require.NoError(t, err)

	var resp rpcResponse
	require.NoError(t, json.Unmarshal(out, &resp), string(out))
	return resp
}

func TestNewMCPServer(t *testing.T) {
	t.Run("lists the star tools only", func(t *testing.T) {
		resp := rpc(t, newTestTools(&stubSource{}), "tools/list", map[string]any{})

		require.Nil(t, resp.Error)
		names := make([]string, len(resp.Result.Tools))
		for i, tool := range resp.Result.Tools {
			names[i] = tool.Name
		}
		assert.ElementsMatch(t, []string{SearchStars, GetStarsByLanguage, GetStarsByTopic, GetTopStars, GetRecentStars}, names)
	})

	t.Run("answers a known tool with a JSON array", func(t *testing.T) {
		resp := rpc(t, newTestTools(&stubSource{records: testRecords()}), "tools/call",
			map[string]any{"name": GetTopStars, "arguments": map[string]any{"limit": 1}})

		require.Nil(t, resp.Error)
		require.Len(t, resp.Result.Content, 1)
		assert.False(t, resp.Result.IsError)
		var records []model.StarRecord
		require.NoError(t, json.Unmarshal([]byte(resp.Result.Content[0].Text), &records))
		require.Len(t, records, 1)
		assert.Equal(t, "golang/go", records[0].Name)
	})

	t.Run("answers an unknown tool with plain text", func(t *testing.T) {
		src := &stubSource{records: testRecords()}
		resp := rpc(t, newTestTools(src), "tools/call", map[string]any{"name": "frobnicate"})

		require.Nil(t, resp.Error)
		require.Len(t, resp.Result.Content, 1)
		assert.False(t, resp.Result.IsError)
		assert.Equal(t, "text", resp.Result.Content[0].Type)
		assert.Equal(t, "Unknown tool: frobnicate", resp.Result.Content[0].Text)
		assert.Equal(t, 0, src.calls)
	})

	t.Run("treats the hidden fallback name as unknown", func(t *testing.T) {
		resp := rpc(t, newTestTools(&stubSource{}), "tools/call", map[string]any{"name": unknownToolName})

		require.Nil(t, resp.Error)
		require.Len(t, resp.Result.Content, 1)
		assert.Equal(t, "Unknown tool: "+unknownToolName, resp.Result.Content[0].Text)
	})

	t.Run("flags a missing required argument as an error result", func(t *testing.T) {
		resp := rpc(t, newTestTools(&stubSource{records: testRecords()}), "tools/call",
			map[string]any{"name": GetStarsByLanguage, "arguments": map[string]any{}})

		require.Nil(t, resp.Error)
		require.Len(t, resp.Result.Content, 1)
		assert.True(t, resp.Result.IsError)
		assert.Equal(t, "'language' is required", resp.Result.Content[0].Text)
	})
}
