package receiver

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/klauspost/compress/gzip"
	"github.com/xeipuuv/gojsonschema"

	"github.com/monstersync/monstersync/pkg/types"
	"github.com/monstersync/monstersync/server/internal/sink"
	"github.com/monstersync/monstersync/server/internal/store"
)

// MaxBodyBytes bounds a push body, before and after decompression.
const MaxBodyBytes = 1 << 20

// publishTimeout bounds one sink write.
const publishTimeout = 5 * time.Second

// RequestIDHeader carries the request ID; generated when absent.
const RequestIDHeader = "X-Request-Id"

//go:embed push.schema.json
var pushSchema string

// Notifier is told about every session that received an accepted push.
type Notifier interface {
	Notify(sessionID string)
}

// Receiver accepts monster batches pushed by agents and records them in the
// session store.
type Receiver struct {
	store  *store.Store
	notify Notifier
	sink   sink.Publisher
	schema *gojsonschema.Schema // nil when validation is disabled

	wg sync.WaitGroup
}

// New creates a Receiver writing to st. With validate set, bodies are checked
// against the push JSON schema before decoding.
func New(st *store.Store, n Notifier, p sink.Publisher, validate bool) (*Receiver, error) {
	rc := &Receiver{store: st, notify: n, sink: p}
	if validate {
		schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(pushSchema))
		if err != nil {
			return nil, fmt.Errorf("receiver: compile schema: %w", err)
		}
		rc.schema = schema
	}
	return rc, nil
}

// Register mounts POST /api/v1/sessions/{session}/monsters on r, wrapped in
// middleware (outermost first).
func (rc *Receiver) Register(r *mux.Router, middleware ...func(http.Handler) http.Handler) {
	var h http.Handler = http.HandlerFunc(rc.push)
	for i := len(middleware) - 1; i >= 0; i-- {
		h = middleware[i](h)
	}
	r.Handle("/api/v1/sessions/{session}/monsters", h).Methods(http.MethodPost)
}

// Wait blocks until in-flight sink publishes have finished.
func (rc *Receiver) Wait() {
	rc.wg.Wait()
}

func (rc *Receiver) push(w http.ResponseWriter, r *http.Request) {
	session := mux.Vars(r)["session"]
	requestID := r.Header.Get(RequestIDHeader)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	w.Header().Set(RequestIDHeader, requestID)

	body, status, err := readBody(w, r)
	if err != nil {
		rc.reject(w, status, requestID, session, err)
		return
	}

	if rc.schema != nil {
		if err := rc.validate(body); err != nil {
			rc.reject(w, http.StatusBadRequest, requestID, session, err)
			return
		}
	}

	var req types.PushRequest
	if err := json.Unmarshal(body, &req); err != nil {
		rc.reject(w, http.StatusBadRequest, requestID, session, fmt.Errorf("decode body: %w", err))
		return
	}

	stored := rc.store.Put(session, req.Monsters)
	rc.notify.Notify(session)

	slog.Debug("receiver: batch stored",
		"session", session,
		"request_id", requestID,
		"monsters", len(req.Monsters),
		"stored", stored,
	)

	rc.publish(sink.Batch{
		SessionID:  session,
		RequestID:  requestID,
		ReceivedAt: time.Now().UTC(),
		Monsters:   req.Monsters,
	})

	writeJSON(w, http.StatusOK, types.PushResponse{OK: true, Accepted: stored})
}

// publish hands the batch to the sink without holding up the response.
func (rc *Receiver) publish(b sink.Batch) {
	rc.wg.Add(1)
	go func() {
		defer rc.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := rc.sink.Publish(ctx, b); err != nil {
			slog.Warn("receiver: sink publish failed",
				"session", b.SessionID, "request_id", b.RequestID, "err", err)
		}
	}()
}

func (rc *Receiver) validate(body []byte) error {
	result, err := rc.schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return fmt.Errorf("invalid json: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			msgs = append(msgs, desc.String())
		}
		return fmt.Errorf("schema validation failed: %s", strings.Join(msgs, "; "))
	}
	return nil
}

func (rc *Receiver) reject(w http.ResponseWriter, status int, requestID, session string, err error) {
	slog.Warn("receiver: push rejected",
		"session", session, "request_id", requestID, "status", status, "err", err)
	writeJSON(w, status, types.PushResponse{OK: false, Message: err.Error()})
}

// readBody reads the request body, inflating it when Content-Encoding is gzip.
// On failure it returns the HTTP status to answer with.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, int, error) {
	var body io.Reader = http.MaxBytesReader(w, r.Body, MaxBodyBytes)

	switch enc := strings.ToLower(r.Header.Get("Content-Encoding")); enc {
	case "", "identity":
	case "gzip":
		zr, err := gzip.NewReader(body)
		if err != nil {
			return nil, http.StatusBadRequest, fmt.Errorf("gzip: %w", err)
		}
		defer zr.Close()
		body = io.LimitReader(zr, MaxBodyBytes+1)
	default:
		return nil, http.StatusUnsupportedMediaType, fmt.Errorf("unsupported content encoding %q", enc)
	}

	data, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, http.StatusRequestEntityTooLarge, fmt.Errorf("body exceeds %d bytes", MaxBodyBytes)
		}
		return nil, http.StatusBadRequest, fmt.Errorf("read body: %w", err)
	}
	if len(data) > MaxBodyBytes {
		return nil, http.StatusRequestEntityTooLarge, fmt.Errorf("body exceeds %d bytes", MaxBodyBytes)
	}
	return data, 0, nil
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}
