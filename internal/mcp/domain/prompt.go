package domain

import (
	"context"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/assetsmith/assetsmith/internal/platform/errors"
)

// Prompter expands base prompts. Satisfied by forge.Client.
type Prompter interface {
	GeneratePrompt(ctx context.Context, workspaceID, basePrompt, assetType string) (string, error)
}

// GeneratePromptInput represents the MCP tool input for prompt expansion.
type GeneratePromptInput struct {
	BasePrompt string `json:"base_prompt" jsonschema:"short description to expand into a full generation prompt"`
	AssetType  string `json:"asset_type,omitempty" jsonschema:"asset category hint (CHARACTER, ENVIRONMENT, PROP, TEXTURE, UI); defaults to PROP"`
}

// GeneratePromptResult represents the MCP tool output for prompt expansion.
type GeneratePromptResult struct {
	Prompt string   `json:"prompt,omitempty" jsonschema:"expanded generation prompt"`
	Error  *Failure `json:"error,omitempty" jsonschema:"structured failure description when the call did not succeed"`
}

// GeneratePromptTool defines the MCP tool schema for prompt expansion.
func GeneratePromptTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "generate_prompt",
		Description: "Expands a short description into an optimized asset-generation prompt",
	}
}

// GeneratePromptHandler executes prompt expansion requests.
func GeneratePromptHandler(prompter Prompter, workspaceID string) mcp.ToolHandlerFor[GeneratePromptInput, GeneratePromptResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input GeneratePromptInput) (*mcp.CallToolResult, GeneratePromptResult, error) {
		base := strings.TrimSpace(input.BasePrompt)
		if base == "" {
			err := errors.New(errors.CodeValidationPromptEmpty, "a base prompt is required")
			return nil, GeneratePromptResult{Error: failureFrom(err)}, nil
		}
		assetType := input.AssetType
		if assetType == "" {
			assetType = "PROP"
		}

		prompt, err := prompter.GeneratePrompt(ctx, workspaceID, base, assetType)
		if err != nil {
			return nil, GeneratePromptResult{Error: failureFrom(err)}, nil
		}
		return nil, GeneratePromptResult{Prompt: prompt}, nil
	}
}
