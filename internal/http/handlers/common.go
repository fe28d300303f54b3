package handlers

import (
	"encoding/json"
	"errors"
	"hash/fnv"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/iago/youtube-agent-back/internal/ai"
	"github.com/iago/youtube-agent-back/internal/http/middleware"
	"github.com/iago/youtube-agent-back/internal/queue"
	"github.com/iago/youtube-agent-back/internal/service"
	"github.com/iago/youtube-agent-back/internal/whatsapp"
)

var errInvalidPayload = errors.New("invalid payload")

type API struct {
	scheduler   *service.SchedulerService
	parser      *ai.QueryParser
	producer    queue.Producer
	sender      whatsapp.Sender
	logger      *log.Logger
	idempotency *idempotencyStore
}

type APIDependencies struct {
	Scheduler *service.SchedulerService
	Parser    *ai.QueryParser
	Producer  queue.Producer
	Sender    whatsapp.Sender
	Logger    *log.Logger
}

func NewAPI(deps APIDependencies) *API {
	return &API{
		scheduler:   deps.Scheduler,
		parser:      deps.Parser,
		producer:    deps.Producer,
		sender:      deps.Sender,
		logger:      deps.Logger,
		idempotency: newIdempotencyStore(),
	}
}

type errorPayload struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	RequestID string `json:"request_id"`
}

func writeJSON(w http.ResponseWriter, statusCode int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, r *http.Request, statusCode int, code, message string) {
	payload := errorPayload{RequestID: middleware.GetRequestID(r.Context())}
	payload.Error.Code = code
	payload.Error.Message = message
	writeJSON(w, statusCode, payload)
}

func decodeJSON(r *http.Request, value any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(value); err != nil {
		return errInvalidPayload
	}
	return nil
}

type idempotencyEntry struct {
	PayloadHash uint64
	ResourceID  string
	CreatedAt   time.Time
}

type idempotencyStore struct {
	mu      sync.Mutex
	entries map[string]idempotencyEntry
}

func newIdempotencyStore() *idempotencyStore {
	return &idempotencyStore{
		entries: make(map[string]idempotencyEntry),
	}
}

func (s *idempotencyStore) Get(key string) (idempotencyEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[key]
	return entry, ok
}

func (s *idempotencyStore) Put(key string, payloadHash uint64, resourceID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = idempotencyEntry{
		PayloadHash: payloadHash,
		ResourceID:  resourceID,
		CreatedAt:   time.Now().UTC(),
	}
}

func hashPayload(value any) uint64 {
	payload, _ := json.Marshal(value)
	hasher := fnv.New64a()
	_, _ = hasher.Write(payload)
	return hasher.Sum64()
}
