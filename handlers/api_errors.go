package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/camden-git/mememanager/repository"
	"github.com/camden-git/mememanager/tags"
)

// ErrorResponse is the body of every failed API call.
type ErrorResponse struct {
	Error string `json:"error"`
}

// MessageResponse is the body of a successful mutation.
type MessageResponse struct {
	Msg string `json:"msg"`
}

// DataResponse wraps list payloads.
type DataResponse struct {
	Data interface{} `json:"data"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			log.Printf("Error encoding JSON response: %v", err)
		}
	}
}

func writeMessage(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusOK, MessageResponse{Msg: msg})
}

func writeBadRequest(w http.ResponseWriter, detail string) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: detail})
}

// statusForError maps store and codec errors onto HTTP status codes
func statusForError(err error) int {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, repository.ErrDuplicateName):
		return http.StatusConflict
	case errors.Is(err, repository.ErrImageTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, repository.ErrInvalidName),
		errors.Is(err, repository.ErrInvalidGroupReference),
		errors.Is(err, repository.ErrTagNotPresent),
		errors.Is(err, repository.ErrInvalidPage),
		errors.Is(err, tags.ErrInvalidTag):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeError reports err with its mapped status. Internal errors are logged
// and replaced by fallback so store details never reach the client.
func writeError(w http.ResponseWriter, err error, fallback string) {
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		log.Printf("%s: %v", fallback, err)
		writeJSON(w, status, ErrorResponse{Error: fallback})
		return
	}
	writeJSON(w, status, ErrorResponse{Error: err.Error()})
}
