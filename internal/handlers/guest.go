package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/jason-s-yu/falseshow/internal/auth"
	"github.com/jason-s-yu/falseshow/internal/identity"
)

// AuthCookieName holds the guest session token.
const AuthCookieName = "auth_token"

type guestRequest struct {
	Name string `json:"name"`
}

type guestResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Token string `json:"token"`
}

// authenticate returns the guest behind the request's token.
func authenticate(r *http.Request) (auth.Guest, error) {
	tok := tokenFromRequest(r)
	if tok == "" {
		return auth.Guest{}, fmt.Errorf("no session token")
	}
	return auth.AuthenticateJWT(tok)
}

// newGuest mints a guest identity and sets its cookie.
func newGuest(w http.ResponseWriter, name string) (auth.Guest, string, error) {
	g := auth.Guest{UserID: uuid.NewString(), Name: identity.PlayerName(name)}
	tok, err := auth.CreateJWT(g.UserID, g.Name)
	if err != nil {
		return auth.Guest{}, "", fmt.Errorf("failed to create guest JWT: %w", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     AuthCookieName,
		Value:    tok,
		HttpOnly: true,
		Path:     "/",
	})
	return g, tok, nil
}

// EnsureGuest returns the caller's guest identity, minting one if the request
// carries no valid token.
func EnsureGuest(w http.ResponseWriter, r *http.Request) (auth.Guest, error) {
	if g, err := authenticate(r); err == nil {
		return g, nil
	}
	g, _, err := newGuest(w, r.URL.Query().Get("name"))
	return g, err
}

// GuestHandler serves POST /auth/guest.
func GuestHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req guestRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid payload")
			return
		}
	}
	g, tok, err := newGuest(w, req.Name)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not create guest")
		return
	}
	writeJSON(w, http.StatusCreated, guestResponse{ID: g.UserID, Name: g.Name, Token: tok})
}
