package respond

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/hongminglow/cryptodesk-be/internal/apperr"
)

// Envelope is the standard API response wrapper used across handlers.
type Envelope struct {
	Code    int                 `json:"code"`
	Message string              `json:"message"`
	Data    any                 `json:"data,omitempty"`
	Errors  map[string][]string `json:"errors,omitempty"`
}

// JSON writes a success or informational response using the common envelope.
func JSON(w http.ResponseWriter, status int, message string, data any) {
	write(w, status, Envelope{Code: status, Message: message, Data: data})
}

// Error writes an error response with the shared envelope structure.
func Error(w http.ResponseWriter, status int, message string) {
	write(w, status, Envelope{Code: status, Message: message})
}

// NoContent writes a bare 204.
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// Problem maps err onto the envelope. Server-side causes are logged and never
// echoed to the client.
func Problem(w http.ResponseWriter, log zerolog.Logger, err error) {
	e := apperr.From(err)
	switch {
	case errors.Is(e, apperr.ErrInternal):
		log.Error().Err(err).Str("kind", string(e.Kind)).Msg("request failed")
	case e.Status >= http.StatusInternalServerError:
		log.Warn().Err(err).Str("kind", string(e.Kind)).Msg("upstream dependency failed")
	}
	write(w, e.Status, Envelope{Code: e.Status, Message: e.Message, Errors: e.Fields})
}

func write(w http.ResponseWriter, status int, payload Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zlog.Warn().Err(err).Msg("respond: encode payload failed")
	}
}
