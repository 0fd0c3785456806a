package api

import (
	"net/http"

	"nightbite-be/internal/auth"
	"nightbite-be/internal/user"
)

type authResponse struct {
	Token string     `json:"token"`
	User  *user.User `json:"user"`
}

func (h *Handler) setTokenCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.AccessTokenCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.SecureCookies,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(auth.TokenTTL.Seconds()),
	})
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var in user.RegisterInput
	if !decode(w, r, &in) {
		return
	}

	token, u, err := h.Users.Register(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	h.setTokenCookie(w, token)
	writeJSON(w, http.StatusCreated, authResponse{Token: token, User: u})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var in user.LoginInput
	if !decode(w, r, &in) {
		return
	}

	token, u, err := h.Users.Login(r.Context(), in.Email, in.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	h.setTokenCookie(w, token)
	writeJSON(w, http.StatusOK, authResponse{Token: token, User: u})
}
