// Package httpx provides JSON response utilities. Every endpoint answers with
// a stable action-state shape (success flag, message, optional field errors)
// so clients render outcomes without parsing free text.
package httpx

import (
	"encoding/json"
	"net/http"
)

// ActionState is the uniform response envelope.
type ActionState struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors,omitempty"`
	Data    map[string]any      `json:"-"`
}

// MarshalJSON flattens Data entries next to the envelope fields.
func (s ActionState) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, 3+len(s.Data))
	out["success"] = s.Success
	out["message"] = s.Message
	if len(s.Errors) > 0 {
		out["errors"] = s.Errors
	}
	for k, v := range s.Data {
		out[k] = v
	}
	return json.Marshal(out)
}

// JSON sends a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// OK sends a success envelope with extra payload fields.
func OK(w http.ResponseWriter, message string, data map[string]any) {
	JSON(w, http.StatusOK, ActionState{Success: true, Message: message, Data: data})
}

// Fail sends a failure envelope.
func Fail(w http.ResponseWriter, status int, message string, fieldErrors map[string][]string) {
	JSON(w, status, ActionState{Success: false, Message: message, Errors: fieldErrors})
}

// DecodeJSON decodes the JSON request body into target.
func DecodeJSON(r *http.Request, target any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(target)
}
