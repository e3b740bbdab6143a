package web

import (
	"encoding/json"
	"net/http"

	"assessment-activation/internal/domain"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// writeServerError hides the cause; infrastructure failures are all the
// client needs to distinguish from policy rejections.
func writeServerError(w http.ResponseWriter) {
	writeJSON(w, http.StatusInternalServerError, errorBody{Error: string(domain.ReasonServerError)})
}

func writeBadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: string(domain.ReasonInvalidFormat), Message: msg})
}

func writeUnauthorized(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusUnauthorized, errorBody{Error: "UNAUTHORIZED", Message: msg})
}
