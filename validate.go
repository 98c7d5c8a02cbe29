// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"crypto/subtle"
	"net/http"

	"github.com/moov-io/keys/pkg/accounts"

	"github.com/go-kit/kit/log"
	"github.com/gorilla/mux"
)

type validateKeyRequest struct {
	Username  string `json:"username" validate:"required"`
	SecretKey string `json:"secretKey" validate:"required"`
}

type validateKeyResponse struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message"`
}

var validateMessages = map[string]string{
	categoryInvalidInput: "Username and secret key are required",
	categoryInternal:     "Internal server error during key validation",
}

// validationService checks a (username, secret key) pair for an external
// application. A mismatch is a normal negative answer, not an error.
type validationService struct {
	repo   accounts.Repository
	logger log.Logger
}

func newValidationService(repo accounts.Repository, logger log.Logger) *validationService {
	return &validationService{repo: repo, logger: logger}
}

func (s *validationService) validate(ctx context.Context, username, secretKey string) (bool, error) {
	if err := requestValidator.Struct(validateKeyRequest{Username: username, SecretKey: secretKey}); err != nil {
		return false, errInvalidInput
	}

	account, err := s.repo.FindByUsernameAndKey(ctx, username, secretKey)
	if err != nil {
		s.logger.Log("validate", "problem looking up account", "username", username, "error", err)
		return false, errInternal
	}
	if account == nil {
		return false, nil
	}
	return account.Username == username && subtle.ConstantTimeCompare([]byte(account.SecretKey), []byte(secretKey)) == 1, nil
}

func addValidateRoutes(router *mux.Router, svc *validationService) {
	router.Methods("POST").Path("/api/validate-key").HandlerFunc(validateKeyRoute(svc))
}

func validateKeyRoute(svc *validationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req validateKeyRequest
		if err := decodeRequest(r, &req); err != nil {
			keyValidations.With("result", categoryInvalidInput).Add(1)
			encodeError(w, http.StatusBadRequest, categoryInvalidInput, validateMessages[categoryInvalidInput])
			return
		}

		valid, err := svc.validate(r.Context(), req.Username, req.SecretKey)
		if err != nil {
			status, category := classify(err)
			keyValidations.With("result", category).Add(1)
			encodeError(w, status, category, validateMessages[category])
			return
		}

		if !valid {
			keyValidations.With("result", "invalid").Add(1)
			writeJSON(w, http.StatusUnauthorized, validateKeyResponse{
				Valid:   false,
				Message: "Invalid username or secret key",
			})
			return
		}

		keyValidations.With("result", "valid").Add(1)
		writeJSON(w, http.StatusOK, validateKeyResponse{
			Valid:   true,
			Message: "Authentication successful",
		})
	}
}
