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

// Common error codes shared by every layer of the engine.
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeUnauthorized       ErrorCode = "COMMON_003"
	ErrCodeForbidden          ErrorCode = "COMMON_004"
	ErrCodeNotFound           ErrorCode = "COMMON_005"
	ErrCodeConflict           ErrorCode = "COMMON_006"
	ErrCodeTooManyRequests    ErrorCode = "COMMON_007"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_008"
	ErrCodeTimeout            ErrorCode = "COMMON_009"
	ErrCodeValidation         ErrorCode = "COMMON_010"
	ErrCodeSerialization      ErrorCode = "COMMON_011"
	ErrCodeDatabaseError      ErrorCode = "COMMON_012"
	ErrCodeCacheError         ErrorCode = "COMMON_013"
	ErrCodeExternalService    ErrorCode = "COMMON_014"
)

// Field module error codes.
const (
	ErrCodeFieldUnknown ErrorCode = "FLD_001"
)

// Correction module error codes.
const (
	ErrCodeCorrectionEmptyValue ErrorCode = "COR_001"
	ErrCodeCorrectionNotFound   ErrorCode = "COR_002"
	ErrCodeCorrectionArchive    ErrorCode = "COR_003"
)

// Synthesis module error codes.
const (
	ErrCodeInsufficientData    ErrorCode = "SYN_001"
	ErrCodeSynthesisFailed     ErrorCode = "SYN_002"
	ErrCodeSynthesisUnparsable ErrorCode = "SYN_003"
)

// Pattern registry / matcher error codes.
const (
	ErrCodePatternNotFound  ErrorCode = "PAT_001"
	ErrCodePatternCompile   ErrorCode = "PAT_002"
	ErrCodeNothingToRoll    ErrorCode = "PAT_003"
	ErrCodeDeployConflict   ErrorCode = "PAT_004"
	ErrCodeRegistrySnapshot ErrorCode = "PAT_005"
)

// Extraction module error codes.
const (
	ErrCodeNoMatch ErrorCode = "EXT_001"
)

// Aliases used pervasively at call sites.
const (
	CodeInternal     = ErrCodeInternal
	CodeInvalidParam = ErrCodeBadRequest
	CodeValidation   = ErrCodeValidation
	CodeNotFound     = ErrCodeNotFound
	CodeConflict     = ErrCodeConflict
	CodeOK           = ErrorCode("OK")
	CodeUnknown      = ErrorCode("")

	CodeDBConnectionError = ErrCodeDatabaseError
	CodeDBQueryError      = ErrCodeDatabaseError
	CodeCacheError        = ErrCodeCacheError
)

// ErrorCodeHTTPStatus maps ErrorCodes to HTTP status codes.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeUnauthorized:       http.StatusUnauthorized,
	ErrCodeForbidden:          http.StatusForbidden,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeTooManyRequests:    http.StatusTooManyRequests,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusBadRequest,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeDatabaseError:      http.StatusInternalServerError,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeExternalService:    http.StatusBadGateway,

	ErrCodeFieldUnknown: http.StatusBadRequest,

	ErrCodeCorrectionEmptyValue: http.StatusBadRequest,
	ErrCodeCorrectionNotFound:   http.StatusNotFound,
	ErrCodeCorrectionArchive:    http.StatusInternalServerError,

	ErrCodeInsufficientData:    http.StatusConflict,
	ErrCodeSynthesisFailed:     http.StatusBadGateway,
	ErrCodeSynthesisUnparsable: http.StatusBadGateway,

	ErrCodePatternNotFound:  http.StatusNotFound,
	ErrCodePatternCompile:   http.StatusBadRequest,
	ErrCodeNothingToRoll:    http.StatusNotFound,
	ErrCodeDeployConflict:   http.StatusConflict,
	ErrCodeRegistrySnapshot: http.StatusInternalServerError,
	ErrCodeNoMatch:          http.StatusNotFound,
}

// ErrorCodeMessage maps ErrorCodes to default messages.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:           "internal server error",
	ErrCodeBadRequest:         "bad request",
	ErrCodeUnauthorized:       "unauthorized",
	ErrCodeForbidden:          "forbidden",
	ErrCodeNotFound:           "resource not found",
	ErrCodeConflict:           "resource conflict",
	ErrCodeTooManyRequests:    "too many requests",
	ErrCodeServiceUnavailable: "service unavailable",
	ErrCodeTimeout:            "request timeout",
	ErrCodeValidation:         "validation failed",
	ErrCodeSerialization:      "serialization failed",
	ErrCodeDatabaseError:      "database error",
	ErrCodeCacheError:         "cache error",
	ErrCodeExternalService:    "external service error",

	ErrCodeFieldUnknown: "unknown extraction field",

	ErrCodeCorrectionEmptyValue: "corrected value must not be empty",
	ErrCodeCorrectionNotFound:   "correction not found",
	ErrCodeCorrectionArchive:    "failed to archive correction source text",

	ErrCodeInsufficientData:    "not enough corrections to synthesize patterns",
	ErrCodeSynthesisFailed:     "pattern synthesis failed",
	ErrCodeSynthesisUnparsable: "model returned unparseable candidates",

	ErrCodePatternNotFound:  "pattern not found",
	ErrCodePatternCompile:   "pattern does not compile",
	ErrCodeNothingToRoll:    "no deployed pattern to roll back",
	ErrCodeDeployConflict:   "concurrent deploy detected",
	ErrCodeRegistrySnapshot: "registry snapshot refresh failed",
	ErrCodeNoMatch:          "no pattern matched the document text",
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

// IsClientError returns true if the ErrorCode corresponds to a 4xx HTTP status.
func IsClientError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 400 && status < 500
}

// IsServerError returns true if the ErrorCode corresponds to a 5xx HTTP status.
func IsServerError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 500 && status < 600
}

// ModuleForCode returns the module prefix of an ErrorCode.
func ModuleForCode(code ErrorCode) string {
	parts := strings.Split(string(code), "_")
	if len(parts) > 0 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}
