// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"net/http"

	"github.com/moov-io/keys/pkg/accounts"

	"github.com/go-kit/kit/log"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
)

var requestValidator = newRequestValidator()

func newRequestValidator() *validator.Validate {
	v := validator.New()
	v.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		return longEnough(fl.Field().String())
	})
	return v
}

type registerRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required,password"`
}

type registerResponse struct {
	Message   string `json:"message"`
	SecretKey string `json:"secretKey"`
}

var registerMessages = map[string]string{
	categoryInvalidInput:  "Username and password are required",
	categoryWeakPassword:  "Password must be at least 8 characters long",
	categoryUsernameTaken: "Username already taken",
	categoryInternal:      "Internal server error during registration",
}

// checkRegistration enforces, in order: both fields present, then the
// password policy.
func checkRegistration(req registerRequest) error {
	if err := requestValidator.Struct(req); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return errInvalidInput
		}
		for _, fe := range fieldErrs {
			if fe.Tag() == "required" {
				return errInvalidInput
			}
		}
		return errWeakPassword
	}
	return nil
}

// registrationService creates accounts and issues their secret key.
type registrationService struct {
	repo   accounts.Repository
	hasher passwordHasher
	logger log.Logger

	// newKey is generateSecretKey outside of tests
	newKey func() (string, error)
}

func newRegistrationService(repo accounts.Repository, logger log.Logger) *registrationService {
	return &registrationService{
		repo:   repo,
		hasher: passwordHasher{cost: defaultHashCost},
		logger: logger,
		newKey: generateSecretKey,
	}
}

// register stores a new account and returns its secret key. The key is
// never retrievable again after this call.
func (s *registrationService) register(ctx context.Context, username, password string) (string, error) {
	if err := checkRegistration(registerRequest{Username: username, Password: password}); err != nil {
		return "", err
	}

	// Fast path only, the unique constraint on insert is authoritative.
	existing, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		s.logger.Log("register", "problem checking username", "username", username, "error", err)
		return "", errInternal
	}
	if existing != nil {
		return "", errUsernameTaken
	}

	hash, err := s.hasher.hash(password)
	if err != nil {
		s.logger.Log("register", "problem hashing password", "username", username, "error", err)
		return "", errInternal
	}

	for {
		key, err := s.unusedSecretKey(ctx)
		if err != nil {
			return "", err
		}

		account, err := s.repo.Insert(ctx, username, hash, key)
		if err == nil {
			accountsRegistered.Add(1)
			s.logger.Log("register", "account created", "username", username, "account_id", account.ID)
			return key, nil
		}

		var cv *accounts.ConstraintViolation
		if !errors.As(err, &cv) {
			s.logger.Log("register", "problem inserting account", "username", username, "error", err)
			return "", errInternal
		}
		if cv.Column != accounts.ColumnSecretKey {
			return "", errUsernameTaken
		}
		// lost a race on the key, draw another
		secretKeyCollisions.Add(1)
	}
}

// unusedSecretKey draws keys until one isn't present in the store.
func (s *registrationService) unusedSecretKey(ctx context.Context) (string, error) {
	for {
		key, err := s.newKey()
		if err != nil {
			s.logger.Log("register", "problem generating secret key", "error", err)
			return "", errInternal
		}
		existing, err := s.repo.FindBySecretKey(ctx, key)
		if err != nil {
			s.logger.Log("register", "problem checking secret key", "error", err)
			return "", errInternal
		}
		if existing == nil {
			return key, nil
		}
		secretKeyCollisions.Add(1)
	}
}

func addRegisterRoutes(router *mux.Router, svc *registrationService) {
	router.Methods("POST").Path("/api/register").HandlerFunc(registerRoute(svc))
}

func registerRoute(svc *registrationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerRequest
		if err := decodeRequest(r, &req); err != nil {
			registrationFailed(w, errInvalidInput)
			return
		}

		key, err := svc.register(r.Context(), req.Username, req.Password)
		if err != nil {
			registrationFailed(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, registerResponse{
			Message:   "User registered successfully. Save your secret key securely!",
			SecretKey: key,
		})
	}
}

func registrationFailed(w http.ResponseWriter, err error) {
	status, category := classify(err)
	registrationFailures.With("reason", category).Add(1)
	encodeError(w, status, category, registerMessages[category])
}
