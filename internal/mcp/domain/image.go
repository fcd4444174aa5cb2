package domain

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/assetsmith/assetsmith/internal/forge"
)

// ImageService performs single-image operations. Satisfied by forge.Client.
type ImageService interface {
	RemoveBackground(ctx context.Context, in forge.RemoveBackgroundInput) (forge.RawImage, error)
	DescribeImage(ctx context.Context, in forge.DescribeImageInput) (string, error)
}

// Downloader persists a remote artifact locally. Satisfied by forge.Transfer.
type Downloader interface {
	Download(ctx context.Context, url, targetPath, declaredContentType, declaredName string) (string, int64, error)
}

// RemoveBackgroundInput represents the MCP tool input for background removal.
type RemoveBackgroundInput struct {
	ImagePath string `json:"image_path,omitempty" jsonschema:"local image file to process; mutually exclusive with image_url"`
	ImageURL  string `json:"image_url,omitempty" jsonschema:"remote image URL to process; mutually exclusive with image_path"`
	SavePath  string `json:"save_path,omitempty" jsonschema:"where the processed image lands; a trailing slash means a directory"`
}

// RemoveBackgroundResult represents the MCP tool output for background removal.
type RemoveBackgroundResult struct {
	OutputPath   string   `json:"output_path,omitempty" jsonschema:"local path of the processed image"`
	BytesWritten int64    `json:"bytes_written,omitempty" jsonschema:"size of the processed image"`
	Error        *Failure `json:"error,omitempty" jsonschema:"structured failure description when the call did not succeed"`
}

// DescribeImageInput represents the MCP tool input for image description.
type DescribeImageInput struct {
	ImagePath   string `json:"image_path,omitempty" jsonschema:"local image file to describe; mutually exclusive with image_url"`
	ImageURL    string `json:"image_url,omitempty" jsonschema:"remote image URL to describe; mutually exclusive with image_path"`
	DetailLevel string `json:"detail_level,omitempty" jsonschema:"description depth (BASIC, DETAILED, COMPREHENSIVE); defaults to DETAILED"`
}

// DescribeImageResult represents the MCP tool output for image description.
type DescribeImageResult struct {
	Description string   `json:"description,omitempty" jsonschema:"generated description of the image"`
	Error       *Failure `json:"error,omitempty" jsonschema:"structured failure description when the call did not succeed"`
}

// RemoveBackgroundTool defines the MCP tool schema for background removal.
func RemoveBackgroundTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "remove_background",
		Description: "Removes the background from an image and saves the result locally",
	}
}

// DescribeImageTool defines the MCP tool schema for image description.
func DescribeImageTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "describe_image",
		Description: "Generates a text description of an image at a chosen level of detail",
	}
}

// RemoveBackgroundHandler executes background removal requests.
func RemoveBackgroundHandler(service ImageService, downloader Downloader, workspaceID string) mcp.ToolHandlerFor[RemoveBackgroundInput, RemoveBackgroundResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input RemoveBackgroundInput) (*mcp.CallToolResult, RemoveBackgroundResult, error) {
		request := forge.RemoveBackgroundInput{WorkspaceID: workspaceID, ImageURL: input.ImageURL}
		if input.ImagePath != "" {
			encoded, err := forge.InlineBase64(input.ImagePath)
			if err != nil {
				return nil, RemoveBackgroundResult{Error: failureFrom(err)}, nil
			}
			request.ImageBase64 = encoded
			request.ImageURL = ""
		}

		image, err := service.RemoveBackground(ctx, request)
		if err != nil {
			return nil, RemoveBackgroundResult{Error: failureFrom(err)}, nil
		}

		savePath := input.SavePath
		if savePath == "" {
			savePath = "./assets/no_background.png"
		}
		path, written, err := downloader.Download(ctx, image.URI, savePath, image.ContentType, "no_background.png")
		if err != nil {
			return nil, RemoveBackgroundResult{Error: failureFrom(err)}, nil
		}
		return nil, RemoveBackgroundResult{OutputPath: path, BytesWritten: written}, nil
	}
}

// DescribeImageHandler executes image description requests.
func DescribeImageHandler(service ImageService, workspaceID string) mcp.ToolHandlerFor[DescribeImageInput, DescribeImageResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input DescribeImageInput) (*mcp.CallToolResult, DescribeImageResult, error) {
		detail := input.DetailLevel
		if detail == "" {
			detail = "DETAILED"
		}

		request := forge.DescribeImageInput{
			WorkspaceID: workspaceID,
			ImageURL:    input.ImageURL,
			DetailLevel: detail,
		}
		if input.ImagePath != "" {
			encoded, err := forge.InlineBase64(input.ImagePath)
			if err != nil {
				return nil, DescribeImageResult{Error: failureFrom(err)}, nil
			}
			request.ImageBase64 = encoded
			request.ImageURL = ""
		}

		description, err := service.DescribeImage(ctx, request)
		if err != nil {
			return nil, DescribeImageResult{Error: failureFrom(err)}, nil
		}
		return nil, DescribeImageResult{Description: description}, nil
	}
}
