package domain

import (
	"context"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/assetsmith/assetsmith/internal/history"
	"github.com/assetsmith/assetsmith/internal/platform/errors"
)

// HistoryReader lists past jobs. Satisfied by the sqlite history store.
type HistoryReader interface {
	Recent(ctx context.Context, limit int) ([]history.Record, error)
}

// ListRecentJobsInput represents the MCP tool input for the job history.
type ListRecentJobsInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"maximum number of jobs to return, default 10"`
}

// JobHistoryEntry describes one past job.
type JobHistoryEntry struct {
	JobID          string `json:"job_id,omitempty"`
	Prompt         string `json:"prompt"`
	GenerationType string `json:"generation_type"`
	Status         string `json:"status"`
	OutputPath     string `json:"output_path,omitempty"`
	Warnings       int    `json:"warnings,omitempty"`
	ElapsedSeconds int64  `json:"elapsed_seconds"`
	CreatedAt      string `json:"created_at"`
}

// ListRecentJobsResult represents the MCP tool output for the job history.
type ListRecentJobsResult struct {
	Jobs  []JobHistoryEntry `json:"jobs" jsonschema:"past jobs, newest first"`
	Error *Failure          `json:"error,omitempty" jsonschema:"structured failure description when the call did not succeed"`
}

// ListRecentJobsTool defines the MCP tool schema for the job history.
func ListRecentJobsTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "list_recent_jobs",
		Description: "Lists recently run generation jobs with their terminal outcomes",
	}
}

// ListRecentJobsHandler lists past jobs from the history ledger.
func ListRecentJobsHandler(reader HistoryReader) mcp.ToolHandlerFor[ListRecentJobsInput, ListRecentJobsResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input ListRecentJobsInput) (*mcp.CallToolResult, ListRecentJobsResult, error) {
		if reader == nil {
			err := errors.New(errors.CodeStorage, "the job history is not available")
			return nil, ListRecentJobsResult{Error: failureFrom(err)}, nil
		}

		records, err := reader.Recent(ctx, input.Limit)
		if err != nil {
			return nil, ListRecentJobsResult{Error: failureFrom(err)}, nil
		}

		result := ListRecentJobsResult{Jobs: []JobHistoryEntry{}}
		for _, rec := range records {
			result.Jobs = append(result.Jobs, JobHistoryEntry{
				JobID:          rec.JobID,
				Prompt:         rec.Prompt,
				GenerationType: rec.GenerationType,
				Status:         rec.Status,
				OutputPath:     rec.OutputPath,
				Warnings:       rec.Warnings,
				ElapsedSeconds: rec.ElapsedMS / 1000,
				CreatedAt:      rec.CreatedAt.Format(time.RFC3339),
			})
		}
		return nil, result, nil
	}
}
