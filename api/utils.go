package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"alertfilter/core"
	"alertfilter/service"
	"alertfilter/storage"
	"alertfilter/util"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// errorResponse is the body of every error response
type errorResponse struct {
	Error string `json:"error"`
}

// writeError logs the full error and writes a sanitized JSON error to the client
func writeError(w http.ResponseWriter, statusCode int, message string, err error, logger *zap.SugaredLogger) {
	if logger != nil {
		if err != nil {
			logger.Warnw(message, "error", err.Error(), "status_code", statusCode)
		} else {
			logger.Warnw(message, "status_code", statusCode)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: util.ClientMessage(message)})
}

// respondJSON writes a JSON response with proper error handling
func (a *API) respondJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		a.logger.Errorw("Failed to encode JSON response",
			"error", err,
			"data_type", fmt.Sprintf("%T", data))
	}
}

// writeServiceError maps service and storage errors to HTTP statuses
func (a *API) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrActorNotFound):
		writeError(w, http.StatusUnauthorized, "Authenticated user does not exist", err, a.logger)
	case errors.Is(err, service.ErrAccessDenied):
		writeError(w, http.StatusForbidden, "Access denied", err, a.logger)
	case errors.Is(err, storage.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "User not found", err, a.logger)
	case errors.Is(err, storage.ErrSettingNotFound):
		writeError(w, http.StatusNotFound, "Setting not found", err, a.logger)
	case errors.Is(err, core.ErrUnknownSetting):
		writeError(w, http.StatusBadRequest, err.Error(), err, a.logger)
	case errors.Is(err, service.ErrInvalidSettingValue),
		errors.Is(err, core.ErrInvalidRule),
		errors.Is(err, core.ErrRuleSyntax),
		errors.Is(err, core.ErrRuleTooDeep),
		errors.Is(err, core.ErrRuleTooLarge):
		writeError(w, http.StatusBadRequest, err.Error(), err, a.logger)
	default:
		a.logger.Errorw("Unhandled service error", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error", nil, nil)
	}
}

// readBody reads the request body up to the configured limit
func (a *API) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, a.config.API.MaxRequestBody))
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	return body, nil
}

// decodeJSONBody decodes the body into dst and validates it
func (a *API) decodeJSONBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	body, err := a.readBody(w, r)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	if err := a.validate.Struct(dst); err != nil {
		return fmt.Errorf("invalid request: %w", err)
	}
	return nil
}

// pathUserID parses the {id} route variable
func pathUserID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid user id %q", mux.Vars(r)["id"])
	}
	return id, nil
}

// ruleDocument returns the rule bytes of a request field. A JSON string
// holds a YAML or JSON document; any other JSON value is the rule itself.
func ruleDocument(raw json.RawMessage) ([]byte, error) {
	if len(raw) > 0 && raw[0] == '"' {
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return nil, err
		}
		return []byte(text), nil
	}
	return raw, nil
}
