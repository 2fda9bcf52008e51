// internal/pkg/response/response.go
package response

import (
	"encoding/json"
	"net/http"
)

// RespondWithJSON writes payload as JSON with the given status code.
func RespondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	data, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(data)
}

func RespondWithError(w http.ResponseWriter, code int, message string) {
	RespondWithJSON(w, code, map[string]string{"error": message})
}

// Ok mirrors the mobile client's expected envelope: {"status":"ok", ...extra}.
func Ok(w http.ResponseWriter, code int, extra map[string]interface{}) {
	payload := map[string]interface{}{"status": "ok"}
	for k, v := range extra {
		payload[k] = v
	}
	RespondWithJSON(w, code, payload)
}

func Err(w http.ResponseWriter, code int, message string) {
	RespondWithJSON(w, code, map[string]interface{}{
		"status":  "error",
		"message": message,
	})
}
