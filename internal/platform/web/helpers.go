package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
)

// RespondJSON writes payload as JSON with the given status. A nil payload writes only the status.
func RespondJSON(w http.ResponseWriter, logger *slog.Logger, status int, payload any) {
	if payload == nil {
		w.WriteHeader(status)
		return
	}

	response, err := json.Marshal(payload)
	if err != nil {
		logger.Error("Error encoding response to JSON", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(response)
}

// RespondError writes {"error": message}.
func RespondError(w http.ResponseWriter, logger *slog.Logger, status int, message string) {
	RespondJSON(w, logger, status, map[string]string{"error": message})
}

// DecodeAndValidate reads a JSON body into dst and validates it.
// On failure the 400 response is already written and false is returned.
func DecodeAndValidate(w http.ResponseWriter, r *http.Request, logger *slog.Logger, validate *validator.Validate, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		logger.WarnContext(r.Context(), "Error decoding request body", "error", err)
		RespondError(w, logger, http.StatusBadRequest, "Invalid request body")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			errorResponse := make(map[string]string)
			for _, fieldErr := range validationErrors {
				errorResponse[fieldErr.Field()] = "failed on rule: " + fieldErr.Tag()
			}
			logger.WarnContext(r.Context(), "Validation errors occurred", "errors", errorResponse)
			RespondJSON(w, logger, http.StatusBadRequest, map[string]any{"validation_errors": errorResponse})
			return false
		}
		logger.ErrorContext(r.Context(), "Error validating request body", "error", err)
		RespondError(w, logger, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}
