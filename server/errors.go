package server

import (
	"encoding/json"
	"net/http"
)

type APIError struct {
	Success bool        `json:"success"`
	Error   string      `json:"error"`
	Code    string      `json:"code,omitempty"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, code int, data interface{}) {
	writeJSON(w, code, APIResponse{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, code int, codeStr, errMsg string) {
	writeJSON(w, code, APIError{
		Error:   http.StatusText(code),
		Code:    codeStr,
		Message: errMsg,
	})
}
