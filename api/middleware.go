package api

import (
	"fmt"
	"net/http"
	"runtime"
	"strconv"
	"strings"
	"time"

	"alertfilter/metrics"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// requestIDHeader carries the request ID in both directions
const requestIDHeader = "X-Request-ID"

// userIDHeader names the acting user when JWT auth is disabled
const userIDHeader = "X-User-ID"

// statusRecorder captures the status code written by a handler
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// recoveryMiddleware turns a handler panic into a 500. The stack trace is
// logged, never sent to the client.
func (a *API) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				stack := make([]byte, 4096)
				stack = stack[:runtime.Stack(stack, false)]

				requestID, _ := GetRequestID(r.Context())
				metrics.GoroutinePanics.WithLabelValues("http-handler").Inc()
				a.logger.Errorw("PANIC RECOVERED",
					"error", fmt.Sprintf("%v", err),
					"request_id", requestID,
					"method", r.Method,
					"path", r.URL.Path,
					"stack_trace", string(stack))

				writeError(w, http.StatusInternalServerError, "Internal server error", nil, nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// requestIDMiddleware propagates or assigns a request ID
func (a *API) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(requestIDHeader)
		if _, err := uuid.Parse(requestID); err != nil {
			requestID = uuid.New().String()
		}
		w.Header().Set(requestIDHeader, requestID)

		ctx := r.Context()
		ctx = contextWithRequestID(ctx, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// metricsMiddleware records request counts and latency by route template
func (a *API) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		route := "unmatched"
		if current := mux.CurrentRoute(r); current != nil {
			if tpl, err := current.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		elapsed := time.Since(start)

		metrics.HTTPRequests.WithLabelValues(route, r.Method, strconv.Itoa(rec.status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(route).Observe(elapsed.Seconds())

		requestID, _ := GetRequestID(r.Context())
		a.logger.Debugw("HTTP request",
			"method", r.Method,
			"route", route,
			"status", rec.status,
			"duration_ms", elapsed.Milliseconds(),
			"request_id", requestID)
	})
}

// authMiddleware resolves the acting user. With auth enabled it requires a
// valid bearer token; otherwise it trusts the X-User-ID header.
func (a *API) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var userID int64

		if a.config.Auth.Enabled {
			header := r.Header.Get("Authorization")
			tokenString, found := strings.CutPrefix(header, "Bearer ")
			if !found || tokenString == "" {
				w.Header().Set("WWW-Authenticate", `Bearer realm="alertfilter"`)
				writeError(w, http.StatusUnauthorized, "Missing bearer token", nil, nil)
				return
			}

			claims, err := validateJWT(tokenString, a.config.Auth.JWTSecret)
			if err != nil {
				w.Header().Set("WWW-Authenticate", `Bearer realm="alertfilter", error="invalid_token"`)
				writeError(w, http.StatusUnauthorized, "Invalid token", err, a.logger)
				return
			}
			userID = claims.UserID
		} else {
			id, err := strconv.ParseInt(r.Header.Get(userIDHeader), 10, 64)
			if err != nil || id <= 0 {
				writeError(w, http.StatusUnauthorized, "Missing or invalid "+userIDHeader+" header", nil, nil)
				return
			}
			userID = id
		}

		next.ServeHTTP(w, r.WithContext(withUserID(r.Context(), userID)))
	})
}
