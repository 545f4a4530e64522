package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/cryptobrief/internal/errors"
	"github.com/cryptobrief/internal/logging"
)

// ErrorResponse is the body of every non-2xx JSON response
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Code    string                 `json:"code"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// maxBodyBytes bounds request bodies
const maxBodyBytes = 1 << 20

var validate = validator.New()

// respondError sends err as {error, code} with its categorized status
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	catErr := apperrors.Categorize(err)

	logger := logging.FromContext(r.Context()).WithFields(map[string]interface{}{
		"method": r.Method,
		"path":   r.URL.Path,
		"status": catErr.StatusCode,
		"code":   catErr.Code,
	})
	switch {
	case catErr.StatusCode >= http.StatusInternalServerError:
		logger.WithError(err).Error("Request failed")
	case !apperrors.IsUserError(err):
		logger.WithError(err).Warn("Request rejected")
	}

	respondJSON(w, catErr.StatusCode, ErrorResponse{
		Error:   catErr.Message,
		Code:    catErr.Code,
		Details: catErr.Details,
	})
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// decodeAndValidate parses the JSON body into v and runs its validate tags.
// An empty body decodes as {}.
func decodeAndValidate(r *http.Request, v interface{}) error {
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return apperrors.NewValidationError("INVALID_INPUT", "Invalid request body")
	}

	if err := validate.StructCtx(r.Context(), v); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return apperrors.NewInvalidParameterError(fe.Field(), "failed '"+fe.Tag()+"' check")
		}
		return apperrors.NewValidationError("INVALID_INPUT", err.Error())
	}
	return nil
}
