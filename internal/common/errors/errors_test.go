package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Matching Tests
// ==========================

func TestStandardError_IsMatchesByCode(t *testing.T) {
	cause := fmt.Errorf("connection reset")
	err := fmt.Errorf("fetch design: %w", NewDesignFetchFailedError("http://x/y.png", 3, cause))

	assert.True(t, stderrors.Is(err, ErrDesignFetchFailed))
	assert.False(t, stderrors.Is(err, ErrLayerNotFound))
	assert.True(t, stderrors.Is(err, cause), "cause should stay reachable through Unwrap")
}

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected ErrorCode
	}{
		{name: "direct", err: NewLayerNotFoundError("Design"), expected: ErrCodeLayerNotFound},
		{name: "wrapped", err: fmt.Errorf("attempt: %w", NewExportFailedError(nil)), expected: ErrCodeExportFailed},
		{name: "plain error", err: fmt.Errorf("boom"), expected: ""},
		{name: "nil", err: nil, expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CodeOf(tt.err))
		})
	}
}

func TestAsStandardError_WrapsPlainErrors(t *testing.T) {
	plain := fmt.Errorf("disk full")
	stdErr := AsStandardError(plain)

	require.NotNil(t, stdErr)
	assert.Equal(t, ErrCodeInternal, stdErr.Code)
	assert.Equal(t, "disk full", stdErr.Details)
	assert.Nil(t, AsStandardError(nil))
}

// ==========================
// BPMN Conversion Tests
// ==========================

func TestConvertToBPMNError(t *testing.T) {
	tests := []struct {
		name            string
		err             *StandardError
		expectedCode    string
		expectedRetries int
	}{
		{
			name:            "design fetch failure is thrown without engine retries",
			err:             NewDesignFetchFailedError("http://x", 3, fmt.Errorf("404")),
			expectedCode:    "DESIGN_FETCH_FAILED",
			expectedRetries: 0,
		},
		{
			name:            "launch failure is retried",
			err:             NewAutomationLaunchFailedError(fmt.Errorf("no chrome")),
			expectedCode:    "AUTOMATION_LAUNCH_FAILED",
			expectedRetries: 3,
		},
		{
			name:            "invalid request is not retried",
			err:             NewInvalidMockupRequestError("designId is required"),
			expectedCode:    "INVALID_MOCKUP_REQUEST",
			expectedRetries: 0,
		},
		{
			name:            "unknown code falls back to the raw code",
			err:             NewInternalError(fmt.Errorf("x")),
			expectedCode:    "INTERNAL_ERROR",
			expectedRetries: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bpmnErr := ConvertToBPMNError(tt.err)
			assert.Equal(t, tt.expectedCode, bpmnErr.Code)
			assert.Equal(t, tt.expectedRetries, bpmnErr.Retries)
			assert.Equal(t, string(tt.err.Code), bpmnErr.ErrorVariables["originalErrorCode"])
		})
	}
}

func TestConvertToBPMNError_CarriesMetadata(t *testing.T) {
	bpmnErr := ConvertToBPMNError(NewLayerNotFoundError("Artwork"))
	vars := bpmnErr.ToErrorVariables()

	assert.Equal(t, "LAYER_NOT_FOUND", vars["errorCode"])
	assert.Equal(t, "Artwork", vars["candidate"])
}

func TestGetErrorCategory(t *testing.T) {
	tests := []struct {
		code     ErrorCode
		expected string
	}{
		{ErrCodeDesignFetchFailed, "INPUT"},
		{ErrCodeTemplateUnavailable, "TEMPLATE"},
		{ErrCodeLayerNotFound, "TEMPLATE"},
		{ErrCodeAutomationTimeout, "REMOTE_EDITOR"},
		{ErrCodeExportFailed, "REMOTE_EDITOR"},
		{ErrCodeEncodeDecodeFailed, "RASTER"},
		{ErrCodeInvalidMockupRequest, "VALIDATION"},
		{ErrCodeInternal, "OTHER"},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.expected, GetErrorCategory(tt.code))
		})
	}
}

func TestIsRetryableErrorCode(t *testing.T) {
	tests := []struct {
		code     ErrorCode
		expected bool
	}{
		{ErrCodeAutomationLaunchFailed, true},
		{ErrCodeAutomationTimeout, true},
		{ErrCodeDesignFetchFailed, false},
		{ErrCodeInvalidMockupRequest, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, IsRetryableErrorCode(tt.code), string(tt.code))
	}
}
