package service

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/assetsmith/assetsmith/internal/forge"
	"github.com/assetsmith/assetsmith/internal/mcp/domain"
)

func registerAssetTools(mcpServer *mcp.Server, orchestrator *forge.Orchestrator) {
	mcp.AddTool(mcpServer, domain.CreateAssetTool(), domain.CreateAssetHandler(orchestrator))
	mcp.AddTool(mcpServer, domain.GetAssetStatusTool(), domain.GetAssetStatusHandler(orchestrator))
}

func registerImageTools(mcpServer *mcp.Server, client *forge.Client, transfer *forge.Transfer, workspaceID string) {
	mcp.AddTool(mcpServer, domain.RemoveBackgroundTool(), domain.RemoveBackgroundHandler(client, transfer, workspaceID))
	mcp.AddTool(mcpServer, domain.DescribeImageTool(), domain.DescribeImageHandler(client, workspaceID))
	mcp.AddTool(mcpServer, domain.GeneratePromptTool(), domain.GeneratePromptHandler(client, workspaceID))
}

func registerWorkspaceTools(mcpServer *mcp.Server, info domain.WorkspaceInfo) {
	mcp.AddTool(mcpServer, domain.GetWorkspaceInfoTool(), domain.GetWorkspaceInfoHandler(info))
}

func registerHistoryTools(mcpServer *mcp.Server, reader domain.HistoryReader) {
	mcp.AddTool(mcpServer, domain.ListRecentJobsTool(), domain.ListRecentJobsHandler(reader))
}
