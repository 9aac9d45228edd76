package handler

import (
	"errors"
	"net/http"

	"github.com/danifischer/raidbot/internal/model"
	"github.com/danifischer/raidbot/internal/service"
)

// MapServiceError converts a service error to a ProblemDetails response.
// Every handler goes through it so a given service error always produces the
// same status and code.
func MapServiceError(err error) *model.ProblemDetails {
	if err == nil {
		return nil
	}

	// ===== Validation Errors → 422 =====
	var ve *service.ValidationError
	if errors.As(err, &ve) {
		return model.NewValidationError(ve.Errors)
	}

	switch {
	// ===== Not Found Errors → 404 =====
	case errors.Is(err, service.ErrRaidNotFound):
		return model.NewNotFoundError("raid")
	case errors.Is(err, service.ErrUserNotFound):
		return model.NewNotFoundError("roster entry")
	case errors.Is(err, service.ErrNoPendingConversation):
		return model.NewNotFoundError("sign-up conversation")

	// ===== Input Errors → 422 =====
	case errors.Is(err, service.ErrTemplateNotFound):
		return model.NewValidationError([]model.FieldError{{Field: "template", Message: err.Error()}})
	case errors.Is(err, service.ErrRoleNotFound):
		return model.NewValidationError([]model.FieldError{{Field: "role", Message: err.Error()}})
	case errors.Is(err, service.ErrUnknownAccount):
		return model.NewValidationError([]model.FieldError{{Field: "account_name", Message: err.Error()}})
	case errors.Is(err, service.ErrInvalidAvailability):
		return model.NewValidationError([]model.FieldError{{Field: "availability", Message: err.Error()}})

	// ===== Roster Rule Errors → 409 =====
	case errors.Is(err, service.ErrRoleFull):
		return model.NewRosterError(model.ErrCodeRoleFull, err.Error())
	case errors.Is(err, service.ErrCrossRoleConflict):
		return model.NewRosterError(model.ErrCodeCrossRoleConflict, err.Error())
	case errors.Is(err, service.ErrAccountMissing):
		return model.NewRosterError(model.ErrCodeAccountMissing, err.Error())
	case errors.Is(err, service.ErrNoPlaceholderSlot):
		return model.NewRosterError(model.ErrCodeConflict, err.Error())

	// ===== Conflict Errors → 409 =====
	case errors.Is(err, service.ErrRaidExists):
		pd := model.NewConflictError(err.Error())
		pd.Code = model.ErrCodeAlreadyExists
		return pd
	case errors.Is(err, service.ErrConversationPending):
		return model.NewConflictError(err.Error())

	// ===== Storage Errors → 503 =====
	case errors.Is(err, service.ErrPersist):
		return model.NewStorageError(service.ErrPersist.Error())

	// ===== Platform Errors → 502 =====
	case errors.Is(err, service.ErrPlatform):
		return &model.ProblemDetails{
			Type:   model.ProblemTypeBase + "platform",
			Title:  "Chat Platform Error",
			Status: http.StatusBadGateway,
			Detail: err.Error(),
			Code:   model.ErrCodeInternal,
		}

	// ===== Default → 500 =====
	default:
		return model.NewInternalError("")
	}
}

// MapServiceErrorWithContext converts a service error to a ProblemDetails
// response, naming the operation when the error is unexpected
func MapServiceErrorWithContext(err error, operation string) *model.ProblemDetails {
	pd := MapServiceError(err)
	if pd != nil && pd.Status == http.StatusInternalServerError {
		pd.Detail = operation + ": an unexpected error occurred"
	}
	return pd
}
