package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/MrEthical07/goQuiz/internal/httpapi/apierror"
)

// envelope is the body of every JSON response.
type envelope struct {
	Data  any `json:"data,omitempty"`
	Error any `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(envelope{Data: data}); err != nil {
		http.Error(w, `{"error":{"code":"internal_error","message":"Failed to encode response"}}`, http.StatusInternalServerError)
	}
}

func ok(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, data)
}

func created(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusCreated, data)
}

func noContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

func writeError(w http.ResponseWriter, err error) {
	apiErr := apierror.AsAPIError(err)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apiErr.StatusCode)
	_ = json.NewEncoder(w).Encode(envelope{Error: apiErr})
}
