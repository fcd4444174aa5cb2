package domain

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// WorkspaceInfo captures the static facts about the configured workspace.
type WorkspaceInfo struct {
	WorkspaceID      string
	Endpoint         string
	CredentialSource string
}

// GetWorkspaceInfoInput represents the MCP tool input for workspace info.
type GetWorkspaceInfoInput struct{}

// GetWorkspaceInfoResult represents the MCP tool output for workspace info.
type GetWorkspaceInfoResult struct {
	WorkspaceID      string `json:"workspace_id" jsonschema:"configured workspace identifier"`
	Endpoint         string `json:"endpoint" jsonschema:"control-plane endpoint in use"`
	CredentialSource string `json:"credential_source" jsonschema:"where the credentials were resolved from (encrypted-store or environment)"`
}

// GetWorkspaceInfoTool defines the MCP tool schema for workspace info.
func GetWorkspaceInfoTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "get_workspace_info",
		Description: "Reports the configured workspace, endpoint, and credential source",
	}
}

// GetWorkspaceInfoHandler reports the configured workspace facts.
func GetWorkspaceInfoHandler(info WorkspaceInfo) mcp.ToolHandlerFor[GetWorkspaceInfoInput, GetWorkspaceInfoResult] {
	return func(_ context.Context, _ *mcp.CallToolRequest, _ GetWorkspaceInfoInput) (*mcp.CallToolResult, GetWorkspaceInfoResult, error) {
		return nil, GetWorkspaceInfoResult{
			WorkspaceID:      info.WorkspaceID,
			Endpoint:         info.Endpoint,
			CredentialSource: info.CredentialSource,
		}, nil
	}
}
