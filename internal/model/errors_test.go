package model

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestProblemDetails_Error_ReturnsFormattedMessage(t *testing.T) {
	t.Parallel()

	pd := &ProblemDetails{
		Status: http.StatusNotFound,
		Title:  "Not Found",
		Detail: "raid not found",
	}

	errMsg := pd.Error()
	for _, part := range []string{"404", "Not Found", "raid not found"} {
		if !strings.Contains(errMsg, part) {
			t.Errorf("error message should contain %q, got: %s", part, errMsg)
		}
	}
}

func TestProblemDetails_WriteJSON(t *testing.T) {
	t.Parallel()

	pd := NewBadRequestError("invalid input")
	rr := httptest.NewRecorder()

	pd.WriteJSON(rr)

	if ct := rr.Header().Get("Content-Type"); ct != "application/problem+json" {
		t.Errorf("expected Content-Type 'application/problem+json', got %q", ct)
	}
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rr.Code)
	}

	var decoded ProblemDetails
	if err := json.NewDecoder(rr.Body).Decode(&decoded); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if decoded.Detail != "invalid input" || decoded.Code != ErrCodeInvalidInput {
		t.Errorf("unexpected body %+v", decoded)
	}
}

func TestNewNotFoundError_FormatsResourceName(t *testing.T) {
	t.Parallel()

	pd := NewNotFoundError("raid")

	if pd.Status != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", pd.Status)
	}
	if pd.Detail != "raid not found" {
		t.Errorf("expected detail 'raid not found', got %q", pd.Detail)
	}
	if pd.Type != ProblemTypeBase+"not-found" {
		t.Errorf("unexpected type %q", pd.Type)
	}
}

func TestNewValidationError_MultipleFields_SummarizesCount(t *testing.T) {
	t.Parallel()

	pd := NewValidationError([]FieldError{
		{Field: "title", Message: "title is required"},
		{Field: "roles", Message: "at least one role is required"},
	})

	if pd.Status != http.StatusUnprocessableEntity {
		t.Errorf("expected status 422, got %d", pd.Status)
	}
	if !strings.Contains(pd.Detail, "title: title is required") || !strings.Contains(pd.Detail, "1 more") {
		t.Errorf("unexpected detail %q", pd.Detail)
	}
	if len(pd.Errors) != 2 {
		t.Errorf("expected 2 field errors, got %d", len(pd.Errors))
	}
}

func TestNewValidationError_EmptyErrors_ReturnsDefaultMessage(t *testing.T) {
	t.Parallel()

	pd := NewValidationError(nil)
	if pd.Detail != "One or more fields failed validation" {
		t.Errorf("unexpected detail %q", pd.Detail)
	}
}

func TestNewRosterError_CarriesCode(t *testing.T) {
	t.Parallel()

	pd := NewRosterError(ErrCodeRoleFull, "role is full")

	if pd.Status != http.StatusConflict {
		t.Errorf("expected status 409, got %d", pd.Status)
	}
	if pd.Code != ErrCodeRoleFull {
		t.Errorf("expected code %d, got %d", ErrCodeRoleFull, pd.Code)
	}
}

func TestNewInternalError_EmptyDetail_UsesDefault(t *testing.T) {
	t.Parallel()

	if pd := NewInternalError(""); pd.Detail != "An unexpected error occurred" {
		t.Errorf("unexpected detail %q", pd.Detail)
	}
}

func TestNewStorageError_IsUnavailable(t *testing.T) {
	t.Parallel()

	if pd := NewStorageError("snapshot write failed"); pd.Status != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", pd.Status)
	}
}

func TestErrorCodes_UniqueValues(t *testing.T) {
	t.Parallel()

	codes := []ErrorCode{
		ErrCodeForbidden,
		ErrCodeNotFound, ErrCodeAlreadyExists, ErrCodeConflict,
		ErrCodeRoleFull, ErrCodeCrossRoleConflict, ErrCodeAccountMissing,
		ErrCodeValidation, ErrCodeInvalidInput,
		ErrCodeInternal, ErrCodeStorage,
	}

	seen := make(map[ErrorCode]bool)
	for _, code := range codes {
		if seen[code] {
			t.Errorf("duplicate error code: %d", code)
		}
		seen[code] = true
	}
}
