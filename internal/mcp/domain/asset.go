package domain

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/assetsmith/assetsmith/internal/forge"
)

// Generator runs generation jobs. Satisfied by forge.Orchestrator.
type Generator interface {
	Generate(ctx context.Context, params forge.GenerateParams) (forge.Outcome, error)
	Status(ctx context.Context, jobID string) (forge.Job, error)
}

// CreateAssetInput represents the MCP tool input for asset generation.
type CreateAssetInput struct {
	Prompt            string   `json:"prompt" jsonschema:"free-text description of the asset to generate"`
	GenerationType    string   `json:"generation_type,omitempty" jsonschema:"generation type (CREATE, EDIT, UPSCALE, IMAGE_TO_3D, TEXT_TO_VIDEO); defaults to CREATE"`
	Width             int      `json:"width,omitempty" jsonschema:"output width in pixels, clamped to [64,2048], default 512"`
	Height            int      `json:"height,omitempty" jsonschema:"output height in pixels, clamped to [64,2048], default 512"`
	Quality           string   `json:"quality,omitempty" jsonschema:"quality preset (LOW, MEDIUM, HIGH), default HIGH"`
	Steps             int      `json:"steps,omitempty" jsonschema:"inference steps, clamped to [1,100], default 20"`
	GuidanceScale     float64  `json:"guidance_scale,omitempty" jsonschema:"guidance scale, clamped to [1.0,20.0], default 7.5"`
	NegativePrompt    string   `json:"negative_prompt,omitempty" jsonschema:"features to avoid in the output"`
	Seed              *int64   `json:"seed,omitempty" jsonschema:"seed for reproducible output"`
	Creativity        *float64 `json:"creativity,omitempty" jsonschema:"creativity in [0.0,1.0] for edit and upscale types"`
	Resemblance       *float64 `json:"resemblance,omitempty" jsonschema:"resemblance in [0.0,1.0] for edit and upscale types"`
	UpscaleRatio      *float64 `json:"upscale_ratio,omitempty" jsonschema:"upscale factor in [1.0,8.0]"`
	DurationSeconds   *float64 `json:"duration_seconds,omitempty" jsonschema:"video duration in [1,60] seconds"`
	Transparency      *bool    `json:"transparency,omitempty" jsonschema:"request a transparent background"`
	Tileability       *bool    `json:"tileability,omitempty" jsonschema:"request a seamlessly tiling texture"`
	IncludeTextures   *bool    `json:"include_textures,omitempty" jsonschema:"include texture maps with 3D output"`
	FaceLimit         *int     `json:"face_limit,omitempty" jsonschema:"3D mesh face limit in [100,10000]"`
	InputFiles        []string `json:"input_files,omitempty" jsonschema:"local file paths uploaded as job inputs"`
	SavePath          string   `json:"save_path,omitempty" jsonschema:"where the artifact lands; a trailing slash means a directory"`
	WaitForCompletion *bool    `json:"wait_for_completion,omitempty" jsonschema:"wait for the job to finish and download the result; defaults to true"`
}

// CreateAssetResult represents the MCP tool output for asset generation.
type CreateAssetResult struct {
	JobID          string   `json:"job_id,omitempty" jsonschema:"remote job identifier"`
	Status         string   `json:"status,omitempty" jsonschema:"last observed job status"`
	OutputPath     string   `json:"output_path,omitempty" jsonschema:"local path of the downloaded artifact"`
	BytesWritten   int64    `json:"bytes_written,omitempty" jsonschema:"size of the downloaded artifact"`
	ElapsedSeconds float64  `json:"elapsed_seconds,omitempty" jsonschema:"wall-clock time spent on the job"`
	Warnings       []string `json:"warnings,omitempty" jsonschema:"non-fatal problems encountered along the way"`
	Error          *Failure `json:"error,omitempty" jsonschema:"structured failure description when the call did not succeed"`
}

// GetAssetStatusInput represents the MCP tool input for a status poll.
type GetAssetStatusInput struct {
	JobID string `json:"job_id" jsonschema:"remote job identifier returned by create_asset"`
}

// OutputFileEntry describes one remote output file of a job.
type OutputFileEntry struct {
	ID          string `json:"id"`
	URL         string `json:"url"`
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
}

// GetAssetStatusResult represents the MCP tool output for a status poll.
type GetAssetStatusResult struct {
	JobID  string            `json:"job_id,omitempty" jsonschema:"remote job identifier"`
	Status string            `json:"status,omitempty" jsonschema:"current job status"`
	Files  []OutputFileEntry `json:"files,omitempty" jsonschema:"output files available so far"`
	Error  *Failure          `json:"error,omitempty" jsonschema:"structured failure description when the call did not succeed"`
}

// CreateAssetTool defines the MCP tool schema for asset generation.
func CreateAssetTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "create_asset",
		Description: "Generates a game asset (image, video, or 3D model) from a text prompt, optionally waiting for completion and downloading the result",
	}
}

// GetAssetStatusTool defines the MCP tool schema for a single status poll.
func GetAssetStatusTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "get_asset_status",
		Description: "Checks the current status of a generation job without waiting",
	}
}

// CreateAssetHandler executes asset generation requests.
func CreateAssetHandler(generator Generator) mcp.ToolHandlerFor[CreateAssetInput, CreateAssetResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input CreateAssetInput) (*mcp.CallToolResult, CreateAssetResult, error) {
		wait := true
		if input.WaitForCompletion != nil {
			wait = *input.WaitForCompletion
		}

		outcome, err := generator.Generate(ctx, forge.GenerateParams{
			Prompt:            input.Prompt,
			GenerationType:    input.GenerationType,
			Width:             input.Width,
			Height:            input.Height,
			Quality:           input.Quality,
			Steps:             input.Steps,
			GuidanceScale:     input.GuidanceScale,
			NegativePrompt:    input.NegativePrompt,
			Seed:              input.Seed,
			Creativity:        input.Creativity,
			Resemblance:       input.Resemblance,
			UpscaleRatio:      input.UpscaleRatio,
			DurationSeconds:   input.DurationSeconds,
			Transparency:      input.Transparency,
			Tileability:       input.Tileability,
			IncludeTextures:   input.IncludeTextures,
			FaceLimit:         input.FaceLimit,
			InputFiles:        input.InputFiles,
			SavePath:          input.SavePath,
			WaitForCompletion: wait,
		})

		result := CreateAssetResult{
			JobID:          outcome.JobID,
			Status:         string(outcome.Status),
			OutputPath:     outcome.OutputPath,
			BytesWritten:   outcome.BytesWritten,
			ElapsedSeconds: outcome.Elapsed.Seconds(),
			Warnings:       outcome.Warnings,
			Error:          failureFrom(err),
		}
		return nil, result, nil
	}
}

// GetAssetStatusHandler executes single status polls.
func GetAssetStatusHandler(generator Generator) mcp.ToolHandlerFor[GetAssetStatusInput, GetAssetStatusResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input GetAssetStatusInput) (*mcp.CallToolResult, GetAssetStatusResult, error) {
		job, err := generator.Status(ctx, input.JobID)
		if err != nil {
			return nil, GetAssetStatusResult{JobID: input.JobID, Error: failureFrom(err)}, nil
		}

		result := GetAssetStatusResult{JobID: job.ID, Status: string(job.Status)}
		for _, file := range job.Files {
			result.Files = append(result.Files, OutputFileEntry{
				ID:          file.ID,
				URL:         file.URL,
				Name:        file.Name,
				ContentType: file.ContentType,
			})
		}
		return nil, result, nil
	}
}
