package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
)

func callTool(t *testing.T, apiURL string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Name = "search_resources"
	req.Params.Arguments = args

	res, err := handleSearch(apiURL, "secret", http.DefaultClient)(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	return res
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) == 0 {
		t.Fatal("empty tool result")
	}
	tc, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content type %T", res.Content[0])
	}
	return tc.Text
}

func TestHandleSearch(t *testing.T) {
	var gotQuery, gotToken string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		gotToken = r.Header.Get("X-AI-Eduminer-Token")
		w.Header().Set("X-Source-Status", "pbs=ok,khanacademy=empty,ck12=ok")
		_, _ = w.Write([]byte(`{"items":[{"title":"Volcanoes","description":null,"link":"https://www.pbslearningmedia.org/resource/v/","image":null,"grade":"6","type":"video","source":"pbs","relevance_score":9}]}`))
	}))
	defer srv.Close()

	res := callTool(t, srv.URL, map[string]any{
		"q":                   "volcano eruption",
		"grade":               "6",
		"page":                float64(2),
		"allow_ai_processing": true,
	})
	if res.IsError {
		t.Fatalf("tool error: %s", resultText(t, res))
	}

	for _, want := range []string{"q=volcano+eruption", "grade=6", "page=2", "allowAIProcessing=true"} {
		if !strings.Contains(gotQuery, want) {
			t.Errorf("query %q missing %s", gotQuery, want)
		}
	}
	if gotToken != "secret" {
		t.Errorf("token = %q", gotToken)
	}

	text := resultText(t, res)
	for _, want := range []string{"Found 1 resources", "Volcanoes [pbs] relevance 9/10", "Grade: 6", "pbs=ok"} {
		if !strings.Contains(text, want) {
			t.Errorf("result missing %q:\n%s", want, text)
		}
	}
}

func TestHandleSearch_PlainArray(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"title":"Rock Cycle","source":"ck12"},{"title":"Lava","source":"pbs"}]`))
	}))
	defer srv.Close()

	res := callTool(t, srv.URL, map[string]any{"q": "rocks"})
	text := resultText(t, res)
	if res.IsError || !strings.Contains(text, "Found 2 resources") || strings.Contains(text, "relevance") {
		t.Errorf("unexpected result:\n%s", text)
	}
}

func TestHandleSearch_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"success":false,"error":{"code":"RELEVANCE_SCORING_FAILED","message":"failed to fetch relevance scores"}}`))
	}))
	defer srv.Close()

	res := callTool(t, srv.URL, map[string]any{"q": "volcano", "allow_ai_processing": true})
	if !res.IsError {
		t.Fatal("expected tool error")
	}
	if text := resultText(t, res); !strings.Contains(text, "RELEVANCE_SCORING_FAILED") {
		t.Errorf("text = %s", text)
	}
}

func TestHandleSearch_MissingQuery(t *testing.T) {
	res := callTool(t, "http://127.0.0.1:1", map[string]any{})
	if !res.IsError {
		t.Fatal("expected tool error")
	}
}
