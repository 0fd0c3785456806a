package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"nightbite-be/internal/logger"
	"nightbite-be/internal/notification"
	"nightbite-be/internal/order"
	"nightbite-be/internal/user"

	"go.uber.org/zap"
)

const (
	codeInvalidRequestBody       = "invalid_request_body"
	codeValidationFailed         = "validation_failed"
	codeInvalidID                = "invalid_id"
	codeOrderNotFound            = "order_not_found"
	codeInvalidStatusTransition  = "invalid_status_transition"
	codeInvalidVerificationCode  = "invalid_verification_code"
	codeTooManyAttempts          = "too_many_attempts"
	codeConflict                 = "conflict"
	codeForbidden                = "forbidden"
	codeEmptyOrder               = "empty_order"
	codeMenuItemUnavailable      = "menu_item_unavailable"
	codeEmailExists              = "email_exists"
	codeInvalidCredentials       = "invalid_credentials"
	codeInvalidRole              = "invalid_role"
	codeUserNotFound             = "user_not_found"
	codeInvalidTarget            = "invalid_target"
	codeInvalidSchedule          = "invalid_schedule"
	codeSubscriptionNotFound     = "subscription_not_found"
	codeVerificationCodeNotReady = "verification_code_unavailable"
	codeInternalError            = "internal_error"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(errorResponse{
		Error: msg,
		Code:  code,
	})
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}

type errorMapping struct {
	target error
	status int
	code   string
}

// Checked in order; the first errors.Is match wins.
var errorMappings = []errorMapping{
	{order.ErrOrderNotFound, http.StatusNotFound, codeOrderNotFound},
	{order.ErrInvalidStatusTransition, http.StatusBadRequest, codeInvalidStatusTransition},
	{order.ErrInvalidVerificationCode, http.StatusForbidden, codeInvalidVerificationCode},
	{order.ErrTooManyAttempts, http.StatusTooManyRequests, codeTooManyAttempts},
	{order.ErrConflict, http.StatusConflict, codeConflict},
	{order.ErrForbidden, http.StatusForbidden, codeForbidden},
	{order.ErrEmptyOrder, http.StatusBadRequest, codeEmptyOrder},
	{order.ErrMenuItemUnavailable, http.StatusBadRequest, codeMenuItemUnavailable},
	{user.ErrEmailExists, http.StatusConflict, codeEmailExists},
	{user.ErrInvalidCredentials, http.StatusUnauthorized, codeInvalidCredentials},
	{user.ErrInvalidRole, http.StatusBadRequest, codeInvalidRole},
	{user.ErrUserNotFound, http.StatusNotFound, codeUserNotFound},
	{notification.ErrInvalidTarget, http.StatusBadRequest, codeInvalidTarget},
	{notification.ErrInvalidSchedule, http.StatusBadRequest, codeInvalidSchedule},
	{notification.ErrSubscriptionNotFound, http.StatusNotFound, codeSubscriptionNotFound},
}

// writeServiceError maps a service error to its HTTP status. Anything
// unmapped, including store failures, is a 500 with a generic message.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			writeError(w, m.status, m.code, err.Error())
			return
		}
	}

	logger.FromCtx(r.Context()).Error("request failed",
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
