package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestCodeMappings(t *testing.T) {
	tests := []struct {
		code Code
		grpc codes.Code
		http int
	}{
		{CodeNotFound, codes.NotFound, http.StatusNotFound},
		{CodePageNotFound, codes.NotFound, http.StatusNotFound},
		{CodeAlreadyExists, codes.AlreadyExists, http.StatusConflict},
		{CodeGameFull, codes.FailedPrecondition, http.StatusConflict},
		{CodeWrongState, codes.FailedPrecondition, http.StatusConflict},
		{CodeOutOfTurn, codes.FailedPrecondition, http.StatusConflict},
		{CodeInvalidFaction, codes.InvalidArgument, http.StatusBadRequest},
		{CodeInvalidMoveIndex, codes.InvalidArgument, http.StatusBadRequest},
		{CodeNotAParticipant, codes.InvalidArgument, http.StatusBadRequest},
		{CodePermissionDenied, codes.PermissionDenied, http.StatusForbidden},
		{CodeInconsistentState, codes.Internal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.grpc, tt.code.GRPCCode())
			assert.Equal(t, tt.http, tt.code.HTTPStatus())
		})
	}
}

func TestGetCodeThroughWrapping(t *testing.T) {
	base := New(CodeGameFull, "game %q is full", "g1")
	wrapped := fmt.Errorf("join: %w", base)

	assert.Equal(t, CodeGameFull, GetCode(wrapped))
	assert.True(t, IsCode(wrapped, CodeGameFull))
	assert.Equal(t, CodeUnknown, GetCode(fmt.Errorf("plain")))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := fmt.Errorf("row 12 missing")
	err := Wrap(CodePageNotFound, cause, "load page %d", 12)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "load page 12: row 12 missing", err.Error())
}

func TestToGRPC(t *testing.T) {
	assert.NoError(t, ToGRPC(nil))

	st, ok := status.FromError(ToGRPC(New(CodeNotFound, "game not found")))
	require.True(t, ok)
	assert.Equal(t, codes.NotFound, st.Code())
	assert.Equal(t, "game not found", st.Message())

	st, ok = status.FromError(ToGRPC(fmt.Errorf("boom")))
	require.True(t, ok)
	assert.Equal(t, codes.Internal, st.Code())
}
