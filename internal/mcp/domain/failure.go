// Package domain defines the MCP tool schemas and handlers exposed by the
// Assetsmith server. Handlers translate tool calls into orchestrator and
// client operations; failures come back to the caller as structured payloads
// with a stable classification, never as raw errors.
package domain

import "github.com/assetsmith/assetsmith/internal/platform/errors"

// Failure describes a failed tool call to the MCP client.
type Failure struct {
	Classification string `json:"classification" jsonschema:"failure class: validation, remote, transfer, timeout, configuration, storage, or unknown"`
	Code           string `json:"code" jsonschema:"machine-readable failure code"`
	Message        string `json:"message" jsonschema:"human-readable failure description"`
}

// failureFrom converts an error into its structured tool-facing form.
func failureFrom(err error) *Failure {
	if err == nil {
		return nil
	}
	return &Failure{
		Classification: string(errors.ClassOf(err)),
		Code:           string(errors.CodeOf(err)),
		Message:        err.Error(),
	}
}
