package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"drivegate/internal/oauth/models"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeOAuthError(w http.ResponseWriter, status int, oerr *models.OAuthError) {
	writeJSON(w, status, oerr)
}

func writeServerError(w http.ResponseWriter) {
	writeJSON(w, http.StatusInternalServerError, &models.OAuthError{
		Code:        "server_error",
		Description: "The authorization server encountered an unexpected condition.",
	})
}

func asOAuthError(err error, target **models.OAuthError) bool {
	return errors.As(err, target)
}
