package httpx

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	apperrors "github.com/pleasantco/authzd/internal/errors"
)

// DecodeJSON decodes JSON from the request body into the destination.
// Returns false when decoding failed; the error response is already written.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "malformed_request", Err: err})
		return false
	}
	return true
}

// DecodeOptionalJSON behaves like DecodeJSON but leaves the destination at
// its zero value when the request carries no body.
func DecodeOptionalJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return true
		}
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "malformed_request", Err: err})
		return false
	}
	return true
}

// WriteJSON writes a JSON response with the given status code and data.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := buf.WriteTo(w); err != nil {
		// Response writer errors (e.g. client disconnect) can't be recovered from here.
		return
	}
}

// ErrorParams groups parameters for WriteError.
type ErrorParams struct {
	Code    int
	ErrCode string
	Reason  string
	Err     error
}

// WriteError writes a JSON error response using ErrorParams.
func WriteError(w http.ResponseWriter, p ErrorParams) {
	body := map[string]string{"error": p.ErrCode, "message": p.Err.Error()}
	if p.Reason != "" {
		body["reason"] = p.Reason
	}
	WriteJSON(w, p.Code, body)
}

// ErrorWriter maps application errors to HTTP responses.
type ErrorWriter struct {
	// ACLRejectAs404 hides the service's existence from disallowed
	// networks by answering 404 instead of 403.
	ACLRejectAs404 bool
}

// Write renders err as a JSON error response with the mapped status code.
func (ew ErrorWriter) Write(w http.ResponseWriter, err error) {
	code := apperrors.GetCode(err)
	status := http.StatusInternalServerError

	switch code {
	case apperrors.ErrCodeMalformedRequest:
		status = http.StatusBadRequest
	case apperrors.ErrCodeUnauthenticated:
		status = http.StatusUnauthorized
	case apperrors.ErrCodeACLRejected:
		status = http.StatusForbidden
		if ew.ACLRejectAs404 {
			status = http.StatusNotFound
		}
	case apperrors.ErrCodePermissionDenied:
		status = http.StatusForbidden
	case apperrors.ErrCodeRateLimited:
		status = http.StatusTooManyRequests
	case apperrors.ErrCodeUpstreamUnavailable, apperrors.ErrCodeNotFound:
		status = http.StatusNotFound
	case apperrors.ErrCodeInternal:
		status = http.StatusInternalServerError
	}

	WriteError(w, ErrorParams{
		Code:    status,
		ErrCode: string(code),
		Reason:  apperrors.GetReason(err),
		Err:     err,
	})
}
