package handle

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"genecross/api/internal/cross"
	"genecross/api/internal/submit"
)

type Handle struct {
	svc     submit.Service
	log     zerolog.Logger
	timeout time.Duration
}

// New serves the cross front on top of svc. timeout <= 0 leaves requests
// bounded only by the client connection.
func New(svc submit.Service, log zerolog.Logger, timeout time.Duration) *Handle {
	return &Handle{
		svc:     svc,
		log:     log.With().Str("component", "handle").Logger(),
		timeout: timeout,
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, cross.ErrorPayload{Error: msg})
}
