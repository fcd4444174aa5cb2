// Package errors provides structured error handling with machine-readable codes.
package errors

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Validation errors (bad local input, no network call was made)
	CodeValidationPromptEmpty    Code = "VALIDATION_PROMPT_EMPTY"
	CodeValidationPathEmpty      Code = "VALIDATION_PATH_EMPTY"
	CodeValidationFileNotFound   Code = "VALIDATION_FILE_NOT_FOUND"
	CodeValidationNotRegularFile Code = "VALIDATION_NOT_REGULAR_FILE"
	CodeValidationFileEmpty      Code = "VALIDATION_FILE_EMPTY"
	CodeValidationFileTooLarge   Code = "VALIDATION_FILE_TOO_LARGE"
	CodeValidationTokenShape     Code = "VALIDATION_TOKEN_SHAPE"
	CodeValidationWorkspaceShape Code = "VALIDATION_WORKSPACE_SHAPE"
	CodeValidationImageSource    Code = "VALIDATION_IMAGE_SOURCE"
	CodeValidationUploadsFailed  Code = "VALIDATION_UPLOADS_FAILED"

	// Remote errors (application-level rejection from the service, not retryable)
	CodeRemoteGraphQL           Code = "REMOTE_GRAPHQL_ERROR"
	CodeRemoteRejected          Code = "REMOTE_GENERATION_REJECTED"
	CodeRemoteMalformedResponse Code = "REMOTE_MALFORMED_RESPONSE"
	CodeRemoteJobNotFound       Code = "REMOTE_JOB_NOT_FOUND"

	// Transport errors (control-plane request failed after retries)
	CodeTransportExhausted Code = "TRANSPORT_RETRIES_EXHAUSTED"

	// Transfer errors (data-plane upload/download failure)
	CodeTransferUpload   Code = "TRANSFER_UPLOAD_FAILED"
	CodeTransferDownload Code = "TRANSFER_DOWNLOAD_FAILED"

	// Timeout errors
	CodeTimeoutGeneration Code = "TIMEOUT_GENERATION"
	CodePollAborted       Code = "TIMEOUT_POLL_ABORTED"

	// Configuration errors
	CodeConfigCredentialsMissing Code = "CONFIGURATION_CREDENTIALS_MISSING"
	CodeConfigCredentialStore    Code = "CONFIGURATION_CREDENTIAL_STORE"

	// Storage errors
	CodeNotFound Code = "NOT_FOUND"
	CodeStorage  Code = "STORAGE_ERROR"
)

// Class groups codes into the user-facing failure taxonomy. Every terminal
// outcome surfaced to a caller maps to exactly one class.
type Class string

const (
	ClassValidation    Class = "validation"
	ClassRemote        Class = "remote"
	ClassTransfer      Class = "transfer"
	ClassTimeout       Class = "timeout"
	ClassConfiguration Class = "configuration"
	ClassStorage       Class = "storage"
	ClassUnknown       Class = "unknown"
)

// Class returns the failure class for the code.
func (c Code) Class() Class {
	switch c {
	case CodeValidationPromptEmpty, CodeValidationPathEmpty, CodeValidationFileNotFound,
		CodeValidationNotRegularFile, CodeValidationFileEmpty, CodeValidationFileTooLarge,
		CodeValidationTokenShape, CodeValidationWorkspaceShape, CodeValidationImageSource,
		CodeValidationUploadsFailed:
		return ClassValidation
	case CodeRemoteGraphQL, CodeRemoteRejected, CodeRemoteMalformedResponse, CodeRemoteJobNotFound:
		return ClassRemote
	case CodeTransportExhausted, CodeTransferUpload, CodeTransferDownload:
		return ClassTransfer
	case CodeTimeoutGeneration, CodePollAborted:
		return ClassTimeout
	case CodeConfigCredentialsMissing, CodeConfigCredentialStore:
		return ClassConfiguration
	case CodeNotFound, CodeStorage:
		return ClassStorage
	default:
		return ClassUnknown
	}
}
