package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jason-s-yu/bastion/internal/auth"
	"github.com/jason-s-yu/bastion/internal/database"
	"github.com/jason-s-yu/bastion/internal/models"
)

// EnsureEphemeralUser resolves the requesting user from the auth_token
// cookie, creating a guest account (and setting the cookie) when the request
// arrives without a usable token.
func EnsureEphemeralUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, error) {
	cookieHeader := r.Header.Get("Cookie")
	if !strings.Contains(cookieHeader, "auth_token=") {
		return createGuest(w)
	}

	token := extractTokenFromCookie(cookieHeader)
	userID, err := auth.AuthenticateJWT(token)
	if err != nil {
		return createGuest(w)
	}

	uuidVal, parseErr := uuid.Parse(userID)
	if parseErr != nil {
		return uuid.Nil, fmt.Errorf("invalid user ID in token: %w", parseErr)
	}
	return uuidVal, nil
}

func createGuest(w http.ResponseWriter) (uuid.UUID, error) {
	ephemeralUser := models.User{
		Username:    "Guest",
		IsEphemeral: true,
	}
	if err := database.CreateUser(context.Background(), &ephemeralUser); err != nil {
		return uuid.Nil, fmt.Errorf("failed to create ephemeral user: %w", err)
	}
	newToken, err := auth.CreateJWT(ephemeralUser.ID.String())
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create ephemeral JWT: %w", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     "auth_token",
		Value:    newToken,
		HttpOnly: true,
		Path:     "/",
	})
	return ephemeralUser.ID, nil
}

// CreateUserHandler registers a permanent account.
func CreateUserHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Username string `json:"username"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	user := models.User{
		Email:       req.Email,
		Password:    req.Password,
		Username:    req.Username,
		IsEphemeral: false,
		IsAdmin:     false,
	}

	if err := database.CreateUser(r.Context(), &user); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			http.Error(w, "email already exists", http.StatusConflict)
			return
		}
		http.Error(w, "error creating user", http.StatusInternalServerError)
		return
	}
	user.Password = ""
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(user)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// LoginHandler authenticates email+password and returns a session token,
// also set as an auth_token cookie.
func LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request payload", http.StatusBadRequest)
		return
	}

	token, err := database.AuthenticateUser(context.Background(), req.Email, req.Password)
	if err != nil {
		log.Printf("failed to authenticate user: %v", err)
		http.Error(w, "authentication failed", http.StatusForbidden)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "auth_token",
		Value:    token,
		HttpOnly: true,
		Path:     "/",
	})

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(loginResponse{Token: token}); err != nil {
		http.Error(w, "failed to write response", http.StatusInternalServerError)
		return
	}
}
