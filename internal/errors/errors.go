// Package errors provides the typed error taxonomy shared by the game core,
// the lobby and the transports.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Code is a machine-readable error code.
type Code string

const (
	CodeUnknown Code = "UNKNOWN"

	// Lookup errors
	CodeNotFound     Code = "NOT_FOUND"
	CodePageNotFound Code = "PAGE_NOT_FOUND"

	// Conflict errors
	CodeAlreadyExists Code = "ALREADY_EXISTS"
	CodeGameFull      Code = "GAME_FULL"

	// Input errors
	CodeInvalidInput     Code = "INVALID_INPUT"
	CodeInvalidFaction   Code = "INVALID_FACTION"
	CodeInvalidMoveIndex Code = "INVALID_MOVE_INDEX"
	CodeInvalidMove      Code = "INVALID_MOVE"
	CodeNotAParticipant  Code = "NOT_A_PARTICIPANT"
	CodePermissionDenied Code = "PERMISSION_DENIED"

	// Protocol errors
	CodeWrongState Code = "WRONG_STATE"
	CodeOutOfTurn  Code = "OUT_OF_TURN"

	// Invariant violations
	CodeInconsistentState Code = "INCONSISTENT_STATE"
)

// GRPCCode maps domain codes to gRPC status codes.
func (c Code) GRPCCode() codes.Code {
	switch c {
	case CodeNotFound, CodePageNotFound:
		return codes.NotFound
	case CodeAlreadyExists:
		return codes.AlreadyExists
	case CodeGameFull, CodeWrongState, CodeOutOfTurn:
		return codes.FailedPrecondition
	case CodeInvalidInput,
		CodeInvalidFaction,
		CodeInvalidMoveIndex,
		CodeInvalidMove,
		CodeNotAParticipant:
		return codes.InvalidArgument
	case CodePermissionDenied:
		return codes.PermissionDenied
	default:
		return codes.Internal
	}
}

// HTTPStatus maps domain codes to HTTP status codes.
func (c Code) HTTPStatus() int {
	switch c.GRPCCode() {
	case codes.NotFound:
		return http.StatusNotFound
	case codes.AlreadyExists, codes.FailedPrecondition:
		return http.StatusConflict
	case codes.InvalidArgument:
		return http.StatusBadRequest
	case codes.PermissionDenied:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// Error is a domain error carrying a Code.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a domain error with a formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a domain error that keeps cause in its chain.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// GetCode extracts the error code from any error.
// Returns CodeUnknown if the error is not a domain error.
func GetCode(err error) Code {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

// IsCode checks if the error has the specified code.
func IsCode(err error, code Code) bool {
	return GetCode(err) == code
}

// ToGRPC converts an error into a gRPC status error. Unknown errors are
// reported as Internal with a generic message.
func ToGRPC(err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if stderrors.As(err, &e) {
		return status.Error(e.Code.GRPCCode(), e.Error())
	}
	return status.Error(codes.Internal, "an unexpected error occurred")
}
