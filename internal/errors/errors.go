package errors

import "fmt"

// ErrorCode represents a Graft error code.
type ErrorCode string

const (
	ErrInvalidRequest    ErrorCode = "INVALID_REQUEST"    // 400
	ErrApprovalRequired  ErrorCode = "APPROVAL_REQUIRED"  // 403
	ErrNotFound          ErrorCode = "NOT_FOUND"          // 404
	ErrMismatch          ErrorCode = "MISMATCH"           // 404
	ErrDuplicateLabel    ErrorCode = "DUPLICATE_LABEL"    // 409
	ErrInvalidTransition ErrorCode = "INVALID_TRANSITION" // 409
	ErrUnsupportedType   ErrorCode = "UNSUPPORTED_TYPE"   // 422
	ErrPartialRollback   ErrorCode = "PARTIAL_ROLLBACK"   // 500, retryable
	ErrAnalysisFailed    ErrorCode = "ANALYSIS_FAILED"    // 502
	ErrInternal          ErrorCode = "INTERNAL"           // 500
)

// GraftError represents a structured error with code, status, and details.
type GraftError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *GraftError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *GraftError {
	return &GraftError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewApprovalRequired creates a 403 error for apply calls without an explicit
// approved=true. There is no configuration override for this gate.
func NewApprovalRequired() *GraftError {
	return &GraftError{
		Code:    ErrApprovalRequired,
		Status:  403,
		Message: "explicit approval required to apply suggestion (approved=true)",
	}
}

// NewNotFound creates a 404 error for an unknown snapshot, analysis, or
// suggestion identifier.
func NewNotFound(kind, id string) *GraftError {
	return &GraftError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("%s not found: %s", kind, id),
		Details: map[string]any{"kind": kind, "id": id},
	}
}

// NewMismatch creates a 404 error for a suggestion that exists but does not
// belong to the given analysis.
func NewMismatch(suggestionID, analysisID string) *GraftError {
	return &GraftError{
		Code:    ErrMismatch,
		Status:  404,
		Message: fmt.Sprintf("suggestion %q does not belong to analysis %q", suggestionID, analysisID),
		Details: map[string]any{"suggestion_id": suggestionID, "analysis_id": analysisID},
	}
}

// NewDuplicateLabel creates a 409 error for snapshot label collisions.
func NewDuplicateLabel(label string) *GraftError {
	return &GraftError{
		Code:    ErrDuplicateLabel,
		Status:  409,
		Message: fmt.Sprintf("snapshot with label %q already exists", label),
		Details: map[string]any{"label": label},
	}
}

// NewInvalidTransition creates a 409 error for a status change on a suggestion
// that is no longer pending. Terminal states are final.
func NewInvalidTransition(id, current string) *GraftError {
	return &GraftError{
		Code:    ErrInvalidTransition,
		Status:  409,
		Message: fmt.Sprintf("suggestion %s is %s; only pending suggestions can transition", id, current),
		Details: map[string]any{"id": id, "status": current},
	}
}

// NewUnsupportedType creates a 422 error for suggestion types the apply engine
// cannot automate.
func NewUnsupportedType(typ string) *GraftError {
	return &GraftError{
		Code:    ErrUnsupportedType,
		Status:  422,
		Message: fmt.Sprintf("suggestion type %q cannot be applied automatically; build it manually", typ),
		Details: map[string]any{"type": typ},
	}
}

// NewPartialRollback creates a 500 error for a rollback that restored only
// part of the tracked file set. Retrying the same rollback is safe.
func NewPartialRollback(versionID string, remaining []string, cause error) *GraftError {
	msg := fmt.Sprintf("rollback to %s incomplete; %d files not restored", versionID, len(remaining))
	if cause != nil {
		msg += ": " + cause.Error()
	}
	return &GraftError{
		Code:    ErrPartialRollback,
		Status:  500,
		Message: msg,
		Details: map[string]any{"version_id": versionID, "remaining": remaining},
	}
}

// NewAnalysisFailed creates a 502 error for analyzer failures.
func NewAnalysisFailed(err error) *GraftError {
	msg := "analysis failed"
	if err != nil {
		msg = "analysis failed: " + err.Error()
	}
	return &GraftError{
		Code:    ErrAnalysisFailed,
		Status:  502,
		Message: msg,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *GraftError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &GraftError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
	}
}

// Is checks if an error is a GraftError with the given code.
func Is(err error, code ErrorCode) bool {
	if gErr, ok := err.(*GraftError); ok {
		return gErr.Code == code
	}
	return false
}
