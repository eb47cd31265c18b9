package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/polisight/polisight/internal/similarity"
	"github.com/polisight/polisight/internal/storage"
)

// MCPCorpus is the stored-analysis access the MCP layer needs.
type MCPCorpus interface {
	Get(id int64) (storage.AnalysisRecord, error)
	Recent(limit int) ([]storage.AnalysisRecord, error)
	All() ([]storage.AnalysisRecord, error)
}

// MCPEmbedder produces a query embedding for similarity lookups.
type MCPEmbedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Analyzer PolicyAnalyzer
	Answerer QuestionAnswerer
	Corpus   MCPCorpus
	Embedder MCPEmbedder
	Index    similarity.Index
	// SimilarThreshold is the minimum cosine similarity for find_similar
	// results; zero falls back to 0.75.
	SimilarThreshold float64
}

// NewMCPServer creates an MCP server with all polisight tools and resources
// registered.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	if deps.SimilarThreshold <= 0 {
		deps.SimilarThreshold = 0.75
	}

	s := server.NewMCPServer(
		"polisight",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("polisight, a local insurance policy analyzer: extraction, risk scoring, summaries, and similarity over past analyses."),
		server.WithRecovery(),
	)

	// Tools
	s.AddTool(
		mcp.NewTool("analyze_policy",
			mcp.WithDescription("Run the full analysis pipeline on an insurance policy document and return the report."),
			mcp.WithString("content", mcp.Description("Policy text, or base64-encoded file bytes when base64 is true"), mcp.Required()),
			mcp.WithString("name", mcp.Description("Document file name, used for the document id")),
			mcp.WithBoolean("base64", mcp.Description("Set to true when content is base64-encoded binary (e.g. a PDF)")),
		),
		mcpAnalyzePolicy(deps),
	)

	s.AddTool(
		mcp.NewTool("list_analyses",
			mcp.WithDescription("List recent stored policy analyses, newest first."),
			mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 10)")),
		),
		mcpListAnalyses(deps),
	)

	s.AddTool(
		mcp.NewTool("ask_policy",
			mcp.WithDescription("Answer a question about a previously analyzed policy using its stored text."),
			mcp.WithNumber("id", mcp.Description("Analysis id"), mcp.Required()),
			mcp.WithString("question", mcp.Description("Question to answer"), mcp.Required()),
		),
		mcpAskPolicy(deps),
	)

	s.AddTool(
		mcp.NewTool("find_similar",
			mcp.WithDescription("Find stored analyses similar to a previously analyzed policy."),
			mcp.WithNumber("id", mcp.Description("Analysis id to compare against"), mcp.Required()),
			mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 5)")),
		),
		mcpFindSimilar(deps),
	)

	// Resources
	s.AddResource(
		mcp.NewResource(
			"analysis://recent",
			"Recent Analyses",
			mcp.WithResourceDescription("Last 10 stored policy analyses (summaries only)"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceRecent(deps),
	)

	return s
}

func mcpAnalyzePolicy(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		content, err := req.RequireString("content")
		if err != nil {
			return mcpError("content is required"), nil
		}

		name := req.GetString("name", "")

		data := []byte(content)
		if req.GetBool("base64", false) {
			decoded, err := base64.StdEncoding.DecodeString(content)
			if err != nil {
				return mcpError("invalid base64 content"), nil
			}
			data = decoded
		}

		report, err := deps.Analyzer.Analyze(ctx, data, name)
		if err != nil {
			return mcpError(fmt.Sprintf("analysis failed: %v", err)), nil
		}

		b, err := json.Marshal(report)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal report: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpListAnalyses(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		limit := req.GetInt("limit", 10)
		if limit <= 0 {
			limit = 10
		}
		if limit > 50 {
			limit = 50
		}

		records, err := deps.Corpus.Recent(limit)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to list analyses: %v", err)), nil
		}

		if len(records) == 0 {
			return mcpText("[]"), nil
		}

		summaries := make([]analysisSummary, len(records))
		for i, rec := range records {
			summaries[i] = summarizeRecord(rec)
		}

		b, err := json.Marshal(summaries)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal results: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpAskPolicy(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireInt("id")
		if err != nil {
			return mcpError("id is required"), nil
		}
		question, err := req.RequireString("question")
		if err != nil {
			return mcpError("question is required"), nil
		}

		rec, err := deps.Corpus.Get(int64(id))
		if errors.Is(err, storage.ErrNotFound) {
			return mcpError(fmt.Sprintf("analysis %d not found", id)), nil
		}
		if err != nil {
			return mcpError(fmt.Sprintf("failed to get analysis: %v", err)), nil
		}

		answer, err := deps.Answerer.Answer(ctx, question, rec.RawText)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to answer question: %v", err)), nil
		}
		return mcpText(answer), nil
	}
}

func mcpFindSimilar(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireInt("id")
		if err != nil {
			return mcpError("id is required"), nil
		}

		limit := req.GetInt("limit", 5)
		if limit <= 0 {
			limit = 5
		}

		rec, err := deps.Corpus.Get(int64(id))
		if errors.Is(err, storage.ErrNotFound) {
			return mcpError(fmt.Sprintf("analysis %d not found", id)), nil
		}
		if err != nil {
			return mcpError(fmt.Sprintf("failed to get analysis: %v", err)), nil
		}

		corpus, err := deps.Corpus.All()
		if err != nil {
			return mcpError(fmt.Sprintf("failed to load corpus: %v", err)), nil
		}

		// Compare against everything except the record itself.
		others := corpus[:0:0]
		for _, r := range corpus {
			if r.ID != rec.ID {
				others = append(others, r)
			}
		}

		vec, err := deps.Embedder.Embed(ctx, rec.RawText)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to embed policy text: %v", err)), nil
		}

		matches, err := deps.Index.RankAbove(ctx, vec, others, deps.SimilarThreshold)
		if err != nil {
			return mcpError(fmt.Sprintf("similarity search failed: %v", err)), nil
		}
		if len(matches) > limit {
			matches = matches[:limit]
		}

		type matchResult struct {
			analysisSummary
			Similarity float64 `json:"similarity"`
		}

		results := make([]matchResult, len(matches))
		for i, m := range matches {
			results[i] = matchResult{
				analysisSummary: summarizeRecord(m.Record),
				Similarity:      m.Similarity,
			}
		}

		b, err := json.Marshal(results)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal results: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpResourceRecent(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		records, err := deps.Corpus.Recent(10)
		if err != nil {
			return nil, fmt.Errorf("failed to get recent analyses: %w", err)
		}

		summaries := make([]analysisSummary, len(records))
		for i, rec := range records {
			summaries[i] = summarizeRecord(rec)
		}

		b, err := json.Marshal(summaries)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal analyses: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}

type analysisSummary struct {
	ID         int64  `json:"id"`
	DocumentID string `json:"document_id"`
	Verdict    string `json:"verdict"`
	Summary    string `json:"summary"`
	CreatedAt  string `json:"created_at"`
}

func summarizeRecord(rec storage.AnalysisRecord) analysisSummary {
	summary := rec.Summary
	if utf8.RuneCountInString(summary) > 200 {
		runes := []rune(summary)
		summary = string(runes[:200]) + "..."
	}
	return analysisSummary{
		ID:         rec.ID,
		DocumentID: rec.DocumentID,
		Verdict:    string(rec.Recommendation.Verdict),
		Summary:    summary,
		CreatedAt:  rec.CreatedAt.Format(time.RFC3339),
	}
}
