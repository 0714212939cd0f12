package util

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
)

func LogError(message string, err error) error {
	log.Printf("%s: %v", message, err)
	return fmt.Errorf("%s: %w", message, err)
}

// HandleError пишет тело ошибки в формате OAuth2:
// {"error": "<код>", "error_description": "<описание>"}.
// Никакие внутренние детали (stack trace, текст исходной ошибки)
// клиенту не отдаются.
func HandleError(w http.ResponseWriter, statusCode int, errorCode string, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	errorResponse := struct {
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}{
		Error:            errorCode,
		ErrorDescription: description,
	}

	json.NewEncoder(w).Encode(errorResponse)
}
