package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Error(t *testing.T) {
	t.Run("without cause", func(t *testing.T) {
		err := Unauthenticated("token rejected")
		assert.Equal(t, "token rejected", err.Error())
	})

	t.Run("with cause", func(t *testing.T) {
		cause := errors.New("signature mismatch")
		err := Wrap(cause, ErrCodeUnauthenticated, "token rejected")
		assert.Equal(t, "token rejected: signature mismatch", err.Error())
	})
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(cause, ErrCodeUpstreamUnavailable, "directory fetch failed")

	require.ErrorIs(t, err, cause)
	assert.Equal(t, cause, err.Unwrap())
}

func TestWrap_NilError(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrCodeInternal, "should not exist"))
	assert.Nil(t, Wrapf(nil, ErrCodeInternal, "should not exist %d", 1))
}

func TestCodePredicates(t *testing.T) {
	tests := []struct {
		name  string
		err   *AppError
		check func(error) bool
	}{
		{"malformed request", MalformedRequest("bad payload"), IsMalformedRequest},
		{"unauthenticated", Unauthenticated("bad token"), IsUnauthenticated},
		{"acl rejected", ACLRejected("ip not allowed"), IsACLRejected},
		{"permission denied", PermissionDenied("missing permission"), IsPermissionDenied},
		{"rate limited", RateLimited("too many requests"), IsRateLimited},
		{"upstream unavailable", UpstreamUnavailable("fetch failed"), IsUpstreamUnavailable},
		{"not found", NotFound("no such entry"), IsNotFound},
		{"internal", Internal("boom"), IsInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.check(tt.err))
			assert.False(t, tt.check(errors.New("plain error")))
		})
	}
}

func TestCodePredicates_WrappedChain(t *testing.T) {
	inner := RateLimited("limit exceeded")
	outer := fmt.Errorf("handling request: %w", inner)

	assert.True(t, IsRateLimited(outer))
	assert.Equal(t, ErrCodeRateLimited, GetCode(outer))
}

func TestGetCode_NotAppError(t *testing.T) {
	assert.Equal(t, ErrorCode(""), GetCode(errors.New("plain")))
	assert.Equal(t, ErrorCode(""), GetCode(nil))
}

func TestWithReason(t *testing.T) {
	err := PermissionDenied("permission missing").WithReason("permission_missing")

	assert.Equal(t, "permission_missing", GetReason(err))
	assert.Equal(t, "", GetReason(errors.New("plain")))
}
