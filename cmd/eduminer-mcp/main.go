package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// searchItem mirrors one item of the eduminer search response.
type searchItem struct {
	Title          string  `json:"title"`
	Description    *string `json:"description"`
	Link           *string `json:"link"`
	Image          *string `json:"image"`
	Grade          *string `json:"grade"`
	Type           *string `json:"type"`
	Source         string  `json:"source"`
	RelevanceScore *int    `json:"relevance_score,omitempty"`
}

// errorResponse mirrors the eduminer error body.
type errorResponse struct {
	Success bool `json:"success"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func main() {
	apiURL := os.Getenv("EDUMINER_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:3000"
	}
	token := os.Getenv("AI_EDUMINER_TOKEN")
	if token == "" {
		fmt.Fprintln(os.Stderr, "AI_EDUMINER_TOKEN is required")
		os.Exit(1)
	}

	s := server.NewMCPServer(
		"eduminer",
		"0.1.0",
		server.WithToolCapabilities(false),
	)

	searchTool := mcp.NewTool("search_resources",
		mcp.WithDescription("Search PBS LearningMedia, Khan Academy and CK-12 for educational resources. Returns titles, links, images, grade levels and content types, optionally ranked by an LLM relevance score."),
		mcp.WithString("q",
			mcp.Required(),
			mcp.Description("Free-text search query, e.g. 'photosynthesis'"),
		),
		mcp.WithString("grade",
			mcp.Description("Grade level filter: 'all' (default), 'K', or '1' through '12'"),
			mcp.Enum("all", "K", "1", "2", "3", "4", "5", "6", "7", "8", "9", "10", "11", "12"),
		),
		mcp.WithNumber("page",
			mcp.Description("1-based results page (default: 1)"),
		),
		mcp.WithBoolean("allow_ai_processing",
			mcp.Description("Score each result's relevance (1-10) with an LLM (default: false)"),
		),
	)
	s.AddTool(searchTool, handleSearch(apiURL, token, &http.Client{Timeout: 120 * time.Second}))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func handleSearch(apiURL, token string, client *http.Client) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		q, err := request.RequireString("q")
		if err != nil || strings.TrimSpace(q) == "" {
			return mcp.NewToolResultError("q is required"), nil
		}

		params := url.Values{}
		params.Set("q", q)
		params.Set("page", strconv.Itoa(max(request.GetInt("page", 1), 1)))
		if g := request.GetString("grade", ""); g != "" {
			params.Set("grade", g)
		}
		if request.GetBool("allow_ai_processing", false) {
			params.Set("allowAIProcessing", "true")
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(apiURL, "/")+"/api/v1/scrape?"+params.Encode(), nil)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to create request: %v", err)), nil
		}
		req.Header.Set("X-AI-Eduminer-Token", token)

		resp, err := client.Do(req)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("API request failed: %v", err)), nil
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to read response: %v", err)), nil
		}

		if resp.StatusCode != http.StatusOK {
			var errResp errorResponse
			if json.Unmarshal(body, &errResp) == nil && errResp.Error != nil {
				return mcp.NewToolResultError(fmt.Sprintf("[%s] %s", errResp.Error.Code, errResp.Error.Message)), nil
			}
			return mcp.NewToolResultError(fmt.Sprintf("API returned %d", resp.StatusCode)), nil
		}

		items, err := decodeItems(body)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}
		return mcp.NewToolResultText(formatItems(items, resp.Header.Get("X-Source-Status"))), nil
	}
}

// decodeItems accepts both the plain array and the scored {"items": [...]}.
func decodeItems(body []byte) ([]searchItem, error) {
	var items []searchItem
	if err := json.Unmarshal(body, &items); err == nil {
		return items, nil
	}
	var wrapped struct {
		Items []searchItem `json:"items"`
	}
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, err
	}
	return wrapped.Items, nil
}

func formatItems(items []searchItem, sourceStatus string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Found %d resources", len(items))
	if sourceStatus != "" {
		fmt.Fprintf(&b, " (%s)", sourceStatus)
	}
	b.WriteString("\n")

	for i, it := range items {
		fmt.Fprintf(&b, "\n%d. %s [%s]", i+1, it.Title, it.Source)
		if it.RelevanceScore != nil {
			fmt.Fprintf(&b, " relevance %d/10", *it.RelevanceScore)
		}
		b.WriteString("\n")
		writeField(&b, "Link", it.Link)
		writeField(&b, "Grade", it.Grade)
		writeField(&b, "Type", it.Type)
		writeField(&b, "Description", it.Description)
	}
	return b.String()
}

func writeField(b *strings.Builder, name string, v *string) {
	if v == nil || *v == "" {
		return
	}
	fmt.Fprintf(b, "   %s: %s\n", name, *v)
}
