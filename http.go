// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/rs/xid"
)

const (
	// maxReadBytes is the number of bytes to read
	// from a request body. It's intended to be used
	// with an io.LimitReader
	maxReadBytes = 1 * 1024 * 1024

	requestIDHeader = "X-Request-ID"
)

// read consumes an io.Reader (wrapping with io.LimitReader)
// and returns either the resulting bytes or a non-nil error.
func read(r io.Reader) ([]byte, error) {
	r = io.LimitReader(r, maxReadBytes)
	return io.ReadAll(r)
}

// decodeRequest reads a JSON body into v.
func decodeRequest(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return errors.New("empty body")
	}
	bs, err := read(r.Body)
	if err != nil {
		return err
	}
	return json.Unmarshal(bs, v)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// encodeError writes a JSON error with its category and a message that is
// safe to show to users. Internal errors are counted.
func encodeError(w http.ResponseWriter, status int, category, message string) {
	if status >= http.StatusInternalServerError {
		internalServerErrors.Add(1)
	}
	writeJSON(w, status, errorResponse{
		Error:   category,
		Message: message,
	})
}

// newRouter wires the API routes with CORS, panic recovery and request logging.
func newRouter(logger log.Logger, reg *registrationService, val *validationService, allowedOrigins []string) http.Handler {
	r := mux.NewRouter()
	addRegisterRoutes(r, reg)
	addValidateRoutes(r, val)

	var h http.Handler = r
	h = handlers.CORS(
		handlers.AllowedOrigins(allowedOrigins),
		handlers.AllowedMethods([]string{"POST", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", requestIDHeader}),
	)(h)
	h = handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{logger}),
		handlers.PrintRecoveryStack(false),
	)(h)
	return withRequestLogging(logger, h)
}

// recoveryLogger reports recovered panics through go-kit.
type recoveryLogger struct {
	logger log.Logger
}

func (l recoveryLogger) Println(v ...interface{}) {
	internalServerErrors.Add(1)
	l.logger.Log("http", "recovered panic", "error", fmt.Sprint(v...))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// withRequestLogging tags every request with an id (keeping one the client
// sent) and logs it once the handler returns. Bodies are never logged.
func withRequestLogging(logger log.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" {
			requestID = xid.New().String()
		}
		w.Header().Set(requestIDHeader, requestID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)

		logger.Log(
			"http", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"took", time.Since(start),
			"request_id", requestID,
		)
	})
}
