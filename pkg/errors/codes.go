package errors

import (
	"net/http"
	"strings"
)

// ErrorCode is a string representation of a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common error codes.
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeNotFound           ErrorCode = "COMMON_003"
	ErrCodeConflict           ErrorCode = "COMMON_004"
	ErrCodeTimeout            ErrorCode = "COMMON_005"
	ErrCodeValidation         ErrorCode = "COMMON_006"
	ErrCodeSerialization      ErrorCode = "COMMON_007"
	ErrCodeDatabaseError      ErrorCode = "COMMON_008"
	ErrCodeCacheError         ErrorCode = "COMMON_009"
	ErrCodeExternalService    ErrorCode = "COMMON_010"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_011"
)

// Engine error codes.
//
// Engine failures are deliberately non-fatal at the document level: a numeral
// that cannot be parsed drops one candidate, an unattributable amount lands on
// the synthetic unattributed claimant, and a document with no candidates at
// all yields an empty-but-valid result. These codes exist so callers and logs
// can still distinguish the conditions.
const (
	ErrCodeNumeralUnparseable   ErrorCode = "ENG_001"
	ErrCodeNoCandidatesFound    ErrorCode = "ENG_002"
	ErrCodeAmbiguousAttribution ErrorCode = "ENG_003"
	ErrCodeEmptyDocument        ErrorCode = "ENG_004"
	ErrCodeRulesInvalid         ErrorCode = "ENG_005"
)

// Retrieval / knowledge-graph error codes.
const (
	ErrCodeSearchUnavailable ErrorCode = "RET_001"
	ErrCodeSearchQueryFailed ErrorCode = "RET_002"
	ErrCodeGraphUnavailable  ErrorCode = "RET_003"
	ErrCodeGraphQueryFailed  ErrorCode = "RET_004"
)

// Batch / messaging error codes.
const (
	ErrCodeJobEncodeFailed   ErrorCode = "JOB_001"
	ErrCodeJobDecodeFailed   ErrorCode = "JOB_002"
	ErrCodeJobPublishFailed  ErrorCode = "JOB_003"
	ErrCodeObjectFetchFailed ErrorCode = "JOB_004"
)

// Drafting (LLM collaborator) error codes.
const (
	ErrCodeDraftingFailed      ErrorCode = "DRF_001"
	ErrCodeDraftingUnavailable ErrorCode = "DRF_002"
)

// Aliases used at call sites for readability.
const (
	CodeInternal     = ErrCodeInternal
	CodeInvalidParam = ErrCodeBadRequest
	CodeNotFound     = ErrCodeNotFound
	CodeConflict     = ErrCodeConflict
	CodeUnknown      = ErrorCode("UNKNOWN")
	CodeOK           = ErrorCode("OK")
)

// ErrorCodeHTTPStatus maps ErrorCodes to HTTP status codes for the API layer.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusUnprocessableEntity,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeDatabaseError:      http.StatusInternalServerError,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeExternalService:    http.StatusBadGateway,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,

	ErrCodeNumeralUnparseable:   http.StatusUnprocessableEntity,
	ErrCodeNoCandidatesFound:    http.StatusUnprocessableEntity,
	ErrCodeAmbiguousAttribution: http.StatusUnprocessableEntity,
	ErrCodeEmptyDocument:        http.StatusBadRequest,
	ErrCodeRulesInvalid:         http.StatusInternalServerError,

	ErrCodeSearchUnavailable: http.StatusServiceUnavailable,
	ErrCodeSearchQueryFailed: http.StatusBadGateway,
	ErrCodeGraphUnavailable:  http.StatusServiceUnavailable,
	ErrCodeGraphQueryFailed:  http.StatusBadGateway,

	ErrCodeJobEncodeFailed:   http.StatusInternalServerError,
	ErrCodeJobDecodeFailed:   http.StatusBadRequest,
	ErrCodeJobPublishFailed:  http.StatusServiceUnavailable,
	ErrCodeObjectFetchFailed: http.StatusBadGateway,

	ErrCodeDraftingFailed:      http.StatusBadGateway,
	ErrCodeDraftingUnavailable: http.StatusServiceUnavailable,
}

// ErrorCodeMessage maps ErrorCodes to default human-readable messages.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:           "internal error",
	ErrCodeBadRequest:         "bad request",
	ErrCodeNotFound:           "resource not found",
	ErrCodeConflict:           "resource conflict",
	ErrCodeTimeout:            "operation timed out",
	ErrCodeValidation:         "validation failed",
	ErrCodeSerialization:      "serialization failed",
	ErrCodeDatabaseError:      "database error",
	ErrCodeCacheError:         "cache error",
	ErrCodeExternalService:    "external service error",
	ErrCodeServiceUnavailable: "service unavailable",

	ErrCodeNumeralUnparseable:   "numeral text could not be normalized",
	ErrCodeNoCandidatesFound:    "no amount candidates found in document",
	ErrCodeAmbiguousAttribution: "amount could not be attributed to a claimant",
	ErrCodeEmptyDocument:        "document text is empty",
	ErrCodeRulesInvalid:         "classification rules are invalid",

	ErrCodeSearchUnavailable: "reference search unavailable",
	ErrCodeSearchQueryFailed: "reference search query failed",
	ErrCodeGraphUnavailable:  "knowledge graph unavailable",
	ErrCodeGraphQueryFailed:  "knowledge graph query failed",

	ErrCodeJobEncodeFailed:   "failed to encode analysis job",
	ErrCodeJobDecodeFailed:   "failed to decode analysis job",
	ErrCodeJobPublishFailed:  "failed to publish analysis job",
	ErrCodeObjectFetchFailed: "failed to fetch document object",

	ErrCodeDraftingFailed:      "draft generation failed",
	ErrCodeDraftingUnavailable: "draft generation service unavailable",
}

// HTTPStatusForCode returns the HTTP status code for an ErrorCode.
func HTTPStatusForCode(code ErrorCode) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DefaultMessageForCode returns the default message for an ErrorCode.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := ErrorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}

// IsClientError reports whether the ErrorCode maps to a 4xx HTTP status.
func IsClientError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 400 && status < 500
}

// IsServerError reports whether the ErrorCode maps to a 5xx HTTP status.
func IsServerError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 500 && status < 600
}

// ModuleForCode returns the module prefix of an ErrorCode ("ENG", "RET", ...).
func ModuleForCode(code ErrorCode) string {
	parts := strings.Split(string(code), "_")
	if len(parts) > 0 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}
