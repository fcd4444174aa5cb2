package forge

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/assetsmith/assetsmith/internal/platform/errors"
)

// GraphQL documents for the control plane. Mutations that can be rejected at
// the application level return a union carrying either the payload or an
// Error object; the Error arm is data, not a transport failure.
const (
	createInferenceMutation = `
mutation CreateInference($input: CreateInferenceInput!) {
    createInference(input: $input) {
        ... on Inference {
            id
            status
            createdAt
        }
        ... on Error {
            message
        }
    }
}`

	inferenceStatusQuery = `
query GetInferenceStatus($input: GetInferencesByIdInput!) {
    getInferencesById(input: $input) {
        ... on InferencesResult {
            inferences {
                id
                status
                files {
                    id
                    url
                    name
                    contentType
                }
            }
        }
        ... on Error {
            message
        }
    }
}`

	createUploadURLsMutation = `
mutation CreateUploadUrls($input: CreateUploadUrlsInput!) {
    createUploadUrls(input: $input) {
        ... on UploadUrls {
            uploadUrls {
                url
                fileId
            }
        }
        ... on Error {
            message
        }
    }
}`

	removeBackgroundMutation = `
mutation RemoveBackground($input: RemoveBackgroundInput!) {
    removeBackground(input: $input) {
        ... on RawImage {
            uri
            contentType
        }
        ... on Error {
            message
        }
    }
}`

	describeImageMutation = `
mutation DescribeImage($input: DescribeImageInput!) {
    describeImage(input: $input) {
        ... on StringResponse {
            value
        }
        ... on Error {
            message
        }
    }
}`

	generatePromptMutation = `
mutation GeneratePrompt($input: GeneratePromptInput!) {
    generatePrompt(input: $input) {
        ... on StringResponse {
            value
        }
        ... on Error {
            message
        }
    }
}`
)

// decodeField extracts one named field from a GraphQL data payload.
func decodeField[T any](data json.RawMessage, field string) (T, error) {
	var out T
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return out, errors.Wrap(errors.CodeRemoteMalformedResponse, "decode graphql data", err)
	}
	raw, ok := fields[field]
	if !ok || len(raw) == 0 || string(raw) == "null" {
		return out, errors.New(errors.CodeRemoteMalformedResponse, "graphql response is missing "+field)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, errors.Wrap(errors.CodeRemoteMalformedResponse, "decode "+field, err)
	}
	return out, nil
}

type inferencePayload struct {
	ID      string       `json:"id"`
	Status  string       `json:"status"`
	Files   []OutputFile `json:"files"`
	Message string       `json:"message"`
}

func (p inferencePayload) job() Job {
	return Job{ID: p.ID, Status: ParseStatus(p.Status), Files: p.Files}
}

// CreateInference submits a generation job. A union Error in the mutation
// result is a terminal rejection surfaced verbatim.
func (c *Client) CreateInference(ctx context.Context, workspaceID string, parameters map[string]any) (Job, error) {
	data, err := c.Do(ctx, createInferenceMutation, map[string]any{
		"input": map[string]any{
			"workspaceId": workspaceID,
			"parameters":  parameters,
		},
	})
	if err != nil {
		return Job{}, err
	}

	payload, err := decodeField[inferencePayload](data, "createInference")
	if err != nil {
		return Job{}, err
	}
	if payload.Message != "" {
		return Job{}, errors.New(errors.CodeRemoteRejected, payload.Message)
	}
	if payload.ID == "" {
		return Job{}, errors.New(errors.CodeRemoteMalformedResponse, "inference response carries no id")
	}
	return payload.job(), nil
}

// InferenceByID polls the status of one job.
func (c *Client) InferenceByID(ctx context.Context, jobID string) (Job, error) {
	data, err := c.Do(ctx, inferenceStatusQuery, map[string]any{
		"input": map[string]any{
			"inferenceIds": []string{jobID},
		},
	})
	if err != nil {
		return Job{}, err
	}

	payload, err := decodeField[struct {
		Inferences []inferencePayload `json:"inferences"`
		Message    string             `json:"message"`
	}](data, "getInferencesById")
	if err != nil {
		return Job{}, err
	}
	if payload.Message != "" {
		return Job{}, errors.New(errors.CodeRemoteGraphQL, payload.Message)
	}
	if len(payload.Inferences) == 0 {
		return Job{}, errors.New(errors.CodeRemoteJobNotFound, "job "+jobID+" was not found")
	}
	return payload.Inferences[0].job(), nil
}

// CreateUploadSlot obtains one pre-authorized upload URL for filename.
func (c *Client) CreateUploadSlot(ctx context.Context, workspaceID, filename string) (UploadSlot, error) {
	data, err := c.Do(ctx, createUploadURLsMutation, map[string]any{
		"input": map[string]any{
			"workspaceId": workspaceID,
			"filenames":   []string{filename},
		},
	})
	if err != nil {
		return UploadSlot{}, err
	}

	payload, err := decodeField[struct {
		UploadURLs []UploadSlot `json:"uploadUrls"`
		Message    string       `json:"message"`
	}](data, "createUploadUrls")
	if err != nil {
		return UploadSlot{}, err
	}
	if payload.Message != "" {
		return UploadSlot{}, errors.New(errors.CodeRemoteRejected, payload.Message)
	}
	if len(payload.UploadURLs) == 0 || payload.UploadURLs[0].URL == "" || payload.UploadURLs[0].FileID == "" {
		return UploadSlot{}, errors.New(errors.CodeRemoteMalformedResponse, "no usable upload slot received")
	}
	return payload.UploadURLs[0], nil
}

// RemoveBackgroundInput selects the image source for background removal.
// Exactly one of ImageBase64 or ImageURL must be set.
type RemoveBackgroundInput struct {
	WorkspaceID string
	ImageBase64 string
	ImageURL    string
}

// RemoveBackground strips the background from one image and returns the
// resulting raw image reference.
func (c *Client) RemoveBackground(ctx context.Context, in RemoveBackgroundInput) (RawImage, error) {
	input := map[string]any{"workspaceId": in.WorkspaceID}
	switch {
	case in.ImageBase64 != "":
		input["imageBase64"] = in.ImageBase64
	case in.ImageURL != "":
		input["imageUrl"] = in.ImageURL
	default:
		return RawImage{}, errors.New(errors.CodeValidationImageSource, "an image path or image url is required")
	}

	data, err := c.Do(ctx, removeBackgroundMutation, map[string]any{"input": input})
	if err != nil {
		return RawImage{}, err
	}

	payload, err := decodeField[struct {
		URI         string `json:"uri"`
		ContentType string `json:"contentType"`
		Message     string `json:"message"`
	}](data, "removeBackground")
	if err != nil {
		return RawImage{}, err
	}
	if payload.Message != "" {
		return RawImage{}, errors.New(errors.CodeRemoteRejected, payload.Message)
	}
	if payload.URI == "" {
		return RawImage{}, errors.New(errors.CodeRemoteMalformedResponse, "background removal returned no image uri")
	}
	return RawImage{URI: payload.URI, ContentType: payload.ContentType}, nil
}

// DescribeImageInput selects the image source and description depth.
type DescribeImageInput struct {
	WorkspaceID string
	ImageBase64 string
	ImageURL    string
	DetailLevel string // BASIC, DETAILED, or COMPREHENSIVE
}

// DescribeImage returns a generated description of one image.
func (c *Client) DescribeImage(ctx context.Context, in DescribeImageInput) (string, error) {
	input := map[string]any{
		"workspaceId": in.WorkspaceID,
		"detailLevel": in.DetailLevel,
	}
	switch {
	case in.ImageBase64 != "":
		input["imageBase64"] = in.ImageBase64
	case in.ImageURL != "":
		input["imageUrl"] = in.ImageURL
	default:
		return "", errors.New(errors.CodeValidationImageSource, "an image path or image url is required")
	}

	data, err := c.Do(ctx, describeImageMutation, map[string]any{"input": input})
	if err != nil {
		return "", err
	}
	return decodeStringResponse(data, "describeImage")
}

// GeneratePrompt expands a base prompt into an optimized generation prompt.
func (c *Client) GeneratePrompt(ctx context.Context, workspaceID, basePrompt, assetType string) (string, error) {
	data, err := c.Do(ctx, generatePromptMutation, map[string]any{
		"input": map[string]any{
			"workspaceId": workspaceID,
			"basePrompt":  basePrompt,
			"assetType":   assetType,
		},
	})
	if err != nil {
		return "", err
	}
	return decodeStringResponse(data, "generatePrompt")
}

func decodeStringResponse(data json.RawMessage, field string) (string, error) {
	payload, err := decodeField[struct {
		Value   string `json:"value"`
		Message string `json:"message"`
	}](data, field)
	if err != nil {
		return "", err
	}
	if payload.Message != "" {
		return "", errors.New(errors.CodeRemoteRejected, payload.Message)
	}
	if payload.Value == "" {
		return "", errors.New(errors.CodeRemoteMalformedResponse, fmt.Sprintf("%s returned no value", field))
	}
	return payload.Value, nil
}
