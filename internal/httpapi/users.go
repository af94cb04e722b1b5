package httpapi

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/insituate/nova/internal/store"
)

type signUpRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type updateUserRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

func hashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

func passwordMatches(hash, password string) bool {
	return subtle.ConstantTimeCompare([]byte(hash), []byte(hashPassword(password))) == 1
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "email and password are required")
		return
	}

	if _, err := s.store.UserByEmail(r.Context(), req.Email); err == nil {
		respondError(w, http.StatusConflict, "email_taken", "an account with this email already exists")
		return
	} else if !errors.Is(err, store.ErrUserNotFound) {
		respondError(w, http.StatusInternalServerError, "store_failed", "could not create user")
		return
	}

	user := store.User{
		ID:           store.NewUserID(),
		Name:         strings.TrimSpace(req.Name),
		Email:        req.Email,
		PasswordHash: hashPassword(req.Password),
	}
	if err := s.store.CreateUser(r.Context(), user); err != nil {
		respondError(w, http.StatusInternalServerError, "store_failed", "could not create user")
		return
	}
	created, err := s.store.UserByID(r.Context(), user.ID)
	if err != nil {
		created = user
	}
	respondJSON(w, http.StatusCreated, created)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	user, err := s.store.UserByEmail(r.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil || !passwordMatches(user.PasswordHash, req.Password) {
		respondError(w, http.StatusUnauthorized, "invalid_credentials", "email or password is wrong")
		return
	}
	respondJSON(w, http.StatusOK, user)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	user, err := s.store.UserByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondUserError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, user)
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	var req updateUserRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	var passwordHash string
	if req.Password != "" {
		passwordHash = hashPassword(req.Password)
	}
	user, err := s.store.UpdateUser(r.Context(), chi.URLParam(r, "id"), strings.TrimSpace(req.Name), passwordHash)
	if err != nil {
		s.respondUserError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, user)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	user, err := s.store.DeleteUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondUserError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, user)
}

func (s *Server) respondUserError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrUserNotFound) {
		respondError(w, http.StatusNotFound, "user_not_found", "no such user")
		return
	}
	respondError(w, http.StatusInternalServerError, "store_failed", "user operation failed")
}
