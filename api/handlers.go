package api

import (
	"encoding/json"
	"net/http"
	"time"

	"alertfilter/core"
	"alertfilter/storage"

	"github.com/gorilla/mux"
)

// settingRequest is the body of PUT /api/v1/users/{id}/settings/{setting}
type settingRequest struct {
	Value json.RawMessage `json:"value"`
}

// evaluateRequest is the body of POST /api/v1/rules/evaluate
type evaluateRequest struct {
	Rule  json.RawMessage `json:"rule" validate:"required"`
	Event json.RawMessage `json:"event" validate:"required"`
}

// settingResponse is the wire form of a stored setting
type settingResponse struct {
	ID        int64           `json:"id"`
	UserID    int64           `json:"user_id"`
	Setting   string          `json:"setting"`
	Value     json.RawMessage `json:"value"`
	Timestamp int64           `json:"timestamp"`
}

func toSettingResponse(s *storage.UserSetting) settingResponse {
	return settingResponse{
		ID:        s.ID,
		UserID:    s.UserID,
		Setting:   s.Setting,
		Value:     s.Value,
		Timestamp: s.Timestamp.Unix(),
	}
}

// healthCheck reports liveness and database reachability
func (a *API) healthCheck(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	if a.health != nil {
		if err := a.health.HealthCheck(r.Context()); err != nil {
			a.logger.Warnw("Health check failed", "error", err)
			status["status"] = "unhealthy"
			a.respondJSON(w, status, http.StatusServiceUnavailable)
			return
		}
	}

	a.respondJSON(w, status, http.StatusOK)
}

// getValidSettings lists the settings users may store, with placeholders
func (a *API) getValidSettings(w http.ResponseWriter, r *http.Request) {
	a.respondJSON(w, a.settings.ValidSettings(), http.StatusOK)
}

func (a *API) listUserSettings(w http.ResponseWriter, r *http.Request) {
	actorID, _ := GetUserID(r.Context())
	userID, err := pathUserID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil, nil)
		return
	}

	settings, err := a.settings.ListSettings(r.Context(), actorID, userID)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}

	resp := make([]settingResponse, 0, len(settings))
	for i := range settings {
		resp = append(resp, toSettingResponse(&settings[i]))
	}
	a.respondJSON(w, resp, http.StatusOK)
}

func (a *API) getUserSetting(w http.ResponseWriter, r *http.Request) {
	actorID, _ := GetUserID(r.Context())
	userID, err := pathUserID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil, nil)
		return
	}

	setting, err := a.settings.GetSetting(r.Context(), actorID, userID, mux.Vars(r)["setting"])
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	a.respondJSON(w, toSettingResponse(setting), http.StatusOK)
}

func (a *API) setUserSetting(w http.ResponseWriter, r *http.Request) {
	actorID, _ := GetUserID(r.Context())
	userID, err := pathUserID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil, nil)
		return
	}

	var req settingRequest
	if err := a.decodeJSONBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), err, a.logger)
		return
	}

	value, err := ruleDocument(req.Value)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid setting value", err, a.logger)
		return
	}

	setting, err := a.settings.SetSetting(r.Context(), actorID, userID, mux.Vars(r)["setting"], value)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	a.respondJSON(w, toSettingResponse(setting), http.StatusOK)
}

func (a *API) deleteUserSetting(w http.ResponseWriter, r *http.Request) {
	actorID, _ := GetUserID(r.Context())
	userID, err := pathUserID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil, nil)
		return
	}

	if err := a.settings.DeleteSetting(r.Context(), actorID, userID, mux.Vars(r)["setting"]); err != nil {
		a.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// checkPublishFilter decides whether the user would be alerted about the
// event in the body. Any of the MISP event JSON forms is accepted.
func (a *API) checkPublishFilter(w http.ResponseWriter, r *http.Request) {
	actorID, _ := GetUserID(r.Context())
	userID, err := pathUserID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil, nil)
		return
	}

	if err := a.settings.Authorize(r.Context(), actorID, userID); err != nil {
		a.writeServiceError(w, err)
		return
	}

	body, err := a.readBody(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), err, a.logger)
		return
	}
	event, err := core.DecodeEvent(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid event", err, a.logger)
		return
	}

	publish, err := a.settings.CheckPublishFilter(r.Context(), userID, event)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	a.respondJSON(w, map[string]bool{"publish": publish}, http.StatusOK)
}

// evaluateRule evaluates a rule against an event without touching storage
func (a *API) evaluateRule(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if err := a.decodeJSONBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), err, a.logger)
		return
	}

	document, err := ruleDocument(req.Rule)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid rule", err, a.logger)
		return
	}
	event, err := core.DecodeEvent(req.Event)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid event", err, a.logger)
		return
	}

	match, err := a.settings.EvaluateDocument(document, event)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	a.respondJSON(w, map[string]bool{"match": match}, http.StatusOK)
}
