package errors

import (
	"net/http"
	"strings"
)

// ErrorCode is a string representation of a specific error condition.
// Codes are "<MODULE>_<NNN>"; the module prefix is recoverable with ModuleForCode.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common Error Codes
const (
	ErrCodeInternal        ErrorCode = "COMMON_001"
	ErrCodeBadRequest      ErrorCode = "COMMON_002"
	ErrCodeNotFound        ErrorCode = "COMMON_005"
	ErrCodeConflict        ErrorCode = "COMMON_006"
	ErrCodeTooManyRequests ErrorCode = "COMMON_007"
	ErrCodeTimeout         ErrorCode = "COMMON_009"
	ErrCodeValidation      ErrorCode = "COMMON_010"
	ErrCodeSerialization   ErrorCode = "COMMON_011"
	ErrCodeCacheError      ErrorCode = "COMMON_013"
	ErrCodeNotImplemented  ErrorCode = "COMMON_016"
)

// Short aliases used at call sites.
const (
	CodeInternal     = ErrCodeInternal
	CodeInvalidParam = ErrCodeBadRequest
	CodeNotFound     = ErrCodeNotFound
	CodeConflict     = ErrCodeConflict
	CodeRateLimit    = ErrCodeTooManyRequests
	CodeOK           = ErrorCode("OK")
	CodeUnknown      = ErrorCode("UNKNOWN")

	CodeMoleculeInvalidSMILES = ErrCodeMoleculeInvalidSMILES
)

// Molecule toolkit error codes
const (
	ErrCodeMoleculeInvalidSMILES    ErrorCode = "MOL_001"
	ErrCodeMoleculeConversionFailed ErrorCode = "MOL_011"
	ErrCodeSubstructureSearchFailed ErrorCode = "MOL_012"
	ErrCodeMoleculeSanitizeFailed   ErrorCode = "MOL_016"
	ErrCodeInvalidSMARTS            ErrorCode = "MOL_017"
	ErrCodeInvalidReaction          ErrorCode = "MOL_018"
	ErrCodeAtomIndexOutOfRange      ErrorCode = "MOL_019"
)

// Stereo assignment error codes
const (
	ErrCodeEndpointNotFound      ErrorCode = "STR_001"
	ErrCodeBackboneUnavailable   ErrorCode = "STR_002"
	ErrCodeTerminationFailed     ErrorCode = "STR_003"
	ErrCodeInvalidDescriptor     ErrorCode = "STR_004"
	ErrCodeTacticityInvalidInput ErrorCode = "STR_005"
)

// Batch error codes
const (
	ErrCodeBatchJobInvalid ErrorCode = "BAT_001"
	ErrCodeBatchJobRead    ErrorCode = "BAT_002"
)

// ErrorCodeHTTPStatus maps ErrorCodes to HTTP status codes.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:        http.StatusInternalServerError,
	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeNotFound:        http.StatusNotFound,
	ErrCodeConflict:        http.StatusConflict,
	ErrCodeTooManyRequests: http.StatusTooManyRequests,
	ErrCodeTimeout:         http.StatusGatewayTimeout,
	ErrCodeValidation:      http.StatusUnprocessableEntity,
	ErrCodeSerialization:   http.StatusInternalServerError,
	ErrCodeCacheError:      http.StatusServiceUnavailable,
	ErrCodeNotImplemented:  http.StatusNotImplemented,

	ErrCodeMoleculeInvalidSMILES:    http.StatusBadRequest,
	ErrCodeMoleculeConversionFailed: http.StatusInternalServerError,
	ErrCodeSubstructureSearchFailed: http.StatusInternalServerError,
	ErrCodeMoleculeSanitizeFailed:   http.StatusUnprocessableEntity,
	ErrCodeInvalidSMARTS:            http.StatusBadRequest,
	ErrCodeInvalidReaction:          http.StatusBadRequest,
	ErrCodeAtomIndexOutOfRange:      http.StatusBadRequest,

	ErrCodeEndpointNotFound:      http.StatusUnprocessableEntity,
	ErrCodeBackboneUnavailable:   http.StatusUnprocessableEntity,
	ErrCodeTerminationFailed:     http.StatusUnprocessableEntity,
	ErrCodeInvalidDescriptor:     http.StatusBadRequest,
	ErrCodeTacticityInvalidInput: http.StatusBadRequest,

	ErrCodeBatchJobInvalid: http.StatusBadRequest,
	ErrCodeBatchJobRead:    http.StatusBadRequest,
}

// ErrorCodeMessage maps ErrorCodes to default messages.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:        "internal server error",
	ErrCodeBadRequest:      "bad request",
	ErrCodeNotFound:        "resource not found",
	ErrCodeConflict:        "resource conflict",
	ErrCodeTooManyRequests: "too many requests",
	ErrCodeTimeout:         "request timeout",
	ErrCodeValidation:      "validation failed",
	ErrCodeSerialization:   "serialization failed",
	ErrCodeCacheError:      "cache unavailable",
	ErrCodeNotImplemented:  "not implemented",

	ErrCodeMoleculeInvalidSMILES:    "invalid SMILES format",
	ErrCodeMoleculeConversionFailed: "molecule format conversion failed",
	ErrCodeSubstructureSearchFailed: "substructure search failed",
	ErrCodeMoleculeSanitizeFailed:   "molecule failed sanitization",
	ErrCodeInvalidSMARTS:            "invalid SMARTS pattern",
	ErrCodeInvalidReaction:          "invalid reaction SMARTS",
	ErrCodeAtomIndexOutOfRange:      "atom index out of range",

	ErrCodeEndpointNotFound:      "backbone endpoint pattern matched no atom",
	ErrCodeBackboneUnavailable:   "no backbone path between endpoints",
	ErrCodeTerminationFailed:     "termination produced no valid product",
	ErrCodeInvalidDescriptor:     "invalid CIP descriptor",
	ErrCodeTacticityInvalidInput: "invalid tacticity parameters",

	ErrCodeBatchJobInvalid: "invalid batch job",
	ErrCodeBatchJobRead:    "failed to read batch job",
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
