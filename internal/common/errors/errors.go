// Package errors provides standardized error handling for the mockup pipeline and its BPMN integration.
package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Fatal for the request.
	ErrCodeDesignFetchFailed ErrorCode = "DESIGN_FETCH_FAILED"

	// Template resolution degrades to "no template", never fatal.
	ErrCodeTemplateUnavailable ErrorCode = "TEMPLATE_UNAVAILABLE"

	// Per-attempt, recoverable by the orchestrator.
	ErrCodeLayerNotFound          ErrorCode = "LAYER_NOT_FOUND"
	ErrCodeAutomationLaunchFailed ErrorCode = "AUTOMATION_LAUNCH_FAILED"
	ErrCodeAutomationTimeout      ErrorCode = "AUTOMATION_TIMEOUT"
	ErrCodeExportFailed           ErrorCode = "EXPORT_FAILED"

	// Fatal when raised by the basic fallback.
	ErrCodeEncodeDecodeFailed ErrorCode = "ENCODE_DECODE_FAILED"

	ErrCodeInvalidMockupRequest ErrorCode = "INVALID_MOCKUP_REQUEST"
	ErrCodeWorkflowEngine       ErrorCode = "WORKFLOW_ENGINE_ERROR"
	ErrCodeInternal             ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error { return e.cause }

// Is matches any StandardError carrying the same code, so callers can test
// against the package sentinels with errors.Is.
func (e *StandardError) Is(target error) bool {
	t, ok := target.(*StandardError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithMetadata attaches a key/value to the error and returns it.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// Sentinels for errors.Is comparisons.
var (
	ErrDesignFetchFailed      = &StandardError{Code: ErrCodeDesignFetchFailed}
	ErrTemplateUnavailable    = &StandardError{Code: ErrCodeTemplateUnavailable}
	ErrLayerNotFound          = &StandardError{Code: ErrCodeLayerNotFound}
	ErrAutomationLaunchFailed = &StandardError{Code: ErrCodeAutomationLaunchFailed}
	ErrAutomationTimeout      = &StandardError{Code: ErrCodeAutomationTimeout}
	ErrExportFailed           = &StandardError{Code: ErrCodeExportFailed}
	ErrEncodeDecodeFailed     = &StandardError{Code: ErrCodeEncodeDecodeFailed}
	ErrInvalidMockupRequest   = &StandardError{Code: ErrCodeInvalidMockupRequest}
)

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}

	for k, v := range e.ErrorVariables {
		vars[k] = v
	}

	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

func newError(code ErrorCode, message, details string, retryable bool, cause error) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

func detailsOf(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// NewDesignFetchFailedError is raised once every download attempt for the design image failed.
func NewDesignFetchFailedError(url string, attempts int, err error) *StandardError {
	return newError(ErrCodeDesignFetchFailed, "Design image could not be downloaded",
		fmt.Sprintf("url: %s, attempts: %d, error: %s", url, attempts, detailsOf(err)), true, err).
		WithMetadata("url", url).
		WithMetadata("attempts", attempts)
}

// NewTemplateUnavailableError describes a template source that could not be used.
func NewTemplateUnavailableError(productID string, err error) *StandardError {
	return newError(ErrCodeTemplateUnavailable, "Template unavailable",
		fmt.Sprintf("productId: %s, error: %s", productID, detailsOf(err)), false, err)
}

// NewLayerNotFoundError reports that no layer matched the requested candidate name.
func NewLayerNotFoundError(candidate string) *StandardError {
	return newError(ErrCodeLayerNotFound, "Insertion layer not found",
		fmt.Sprintf("candidate: %s", candidate), false, nil).
		WithMetadata("candidate", candidate)
}

func NewAutomationLaunchFailedError(err error) *StandardError {
	return newError(ErrCodeAutomationLaunchFailed, "Browser automation could not be launched", detailsOf(err), true, err)
}

// NewAutomationTimeoutError reports a bounded wait in the remote editor that ran out.
func NewAutomationTimeoutError(stage string, err error) *StandardError {
	return newError(ErrCodeAutomationTimeout, "Remote editor timed out",
		fmt.Sprintf("stage: %s, error: %s", stage, detailsOf(err)), true, err).
		WithMetadata("stage", stage)
}

func NewExportFailedError(err error) *StandardError {
	return newError(ErrCodeExportFailed, "Composite export failed", detailsOf(err), true, err)
}

// NewEncodeDecodeFailedError wraps image I/O failures.
func NewEncodeDecodeFailedError(path string, err error) *StandardError {
	return newError(ErrCodeEncodeDecodeFailed, "Image encode/decode failed",
		fmt.Sprintf("path: %s, error: %s", path, detailsOf(err)), false, err)
}

func NewInvalidMockupRequestError(details string) *StandardError {
	return newError(ErrCodeInvalidMockupRequest, "Invalid mockup request", details, false, nil)
}

// NewWorkflowEngineError wraps a failed Zeebe operation.
func NewWorkflowEngineError(operation string, retryable bool, err error) *StandardError {
	return newError(ErrCodeWorkflowEngine, fmt.Sprintf("Zeebe operation '%s' failed", operation),
		detailsOf(err), retryable, err).
		WithMetadata("operation", operation)
}

// NewInternalError wraps anything that is not already a StandardError.
func NewInternalError(err error) *StandardError {
	return newError(ErrCodeInternal, "Unexpected error", detailsOf(err), false, err)
}

// AsStandardError extracts a StandardError from err's chain, or wraps err as internal.
func AsStandardError(err error) *StandardError {
	if err == nil {
		return nil
	}
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr
	}
	return NewInternalError(err)
}

// CodeOf returns the code of the first StandardError in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr.Code
	}
	return ""
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// BPMNErrorMapping maps internal error codes to the error codes modelled in the workflow.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeDesignFetchFailed:      "DESIGN_FETCH_FAILED",
	ErrCodeTemplateUnavailable:    "TEMPLATE_UNAVAILABLE",
	ErrCodeLayerNotFound:          "LAYER_NOT_FOUND",
	ErrCodeAutomationLaunchFailed: "AUTOMATION_LAUNCH_FAILED",
	ErrCodeAutomationTimeout:      "AUTOMATION_TIMEOUT",
	ErrCodeExportFailed:           "EXPORT_FAILED",
	ErrCodeEncodeDecodeFailed:     "ENCODE_DECODE_FAILED",
	ErrCodeInvalidMockupRequest:   "INVALID_MOCKUP_REQUEST",
}

// GetRetryCount returns the recommended job retry count for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeAutomationLaunchFailed:
		return 3
	case ErrCodeAutomationTimeout, ErrCodeExportFailed:
		return 2
	default:
		// The fetcher already retried; request and business errors are thrown.
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	vars := map[string]interface{}{
		"originalErrorCode": string(stdErr.Code),
		"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
	}
	for k, v := range stdErr.Metadata {
		vars[k] = v
	}

	return &BPMNError{
		Code:           bpmnCode,
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        retries,
		ErrorVariables: vars,
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "DESIGN"):
		return "INPUT"
	case strings.Contains(codeStr, "TEMPLATE"), strings.Contains(codeStr, "LAYER"):
		return "TEMPLATE"
	case strings.Contains(codeStr, "AUTOMATION"), strings.Contains(codeStr, "EXPORT"):
		return "REMOTE_EDITOR"
	case strings.Contains(codeStr, "ENCODE"):
		return "RASTER"
	case strings.Contains(codeStr, "INVALID"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
