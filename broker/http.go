// HTTP surface (§6.1): GET /health, POST /jobs, GET /jobs/next. Bound to
// loopback by default (§4.5.6); callers choose the listen address via
// config.BrokerConfig.ListenAddr, matching how every other domcast
// subcommand takes its settings from one config.Config rather than
// rediscovering ambient state.
package broker

import (
	"bytes"
	"compress/flate"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"domcast/common"
)

// Server wires a Queue and a ChunkAssembler behind the §6.1 HTTP surface.
type Server struct {
	Queue       *Queue
	Chunks      *ChunkAssembler
	APIKey      string
	MaxBody     int64
	PollTimeout time.Duration
	Log         *zap.Logger
}

// NewServer builds a Server with the given limits. apiKey == "" disables
// the key check (§4.5.6).
func NewServer(apiKey string, maxBody int64, pollTimeout time.Duration, log *zap.Logger) *Server {
	return &Server{
		Queue:       NewQueue(),
		Chunks:      NewChunkAssembler(),
		APIKey:      apiKey,
		MaxBody:     maxBody,
		PollTimeout: pollTimeout,
		Log:         log,
	}
}

// Handler returns the http.Handler implementing §6.1.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/jobs", s.handleSubmit)
	mux.HandleFunc("/jobs/next", s.handleNext)
	return mux
}

func (s *Server) checkAPIKey(w http.ResponseWriter, r *http.Request) bool {
	if s.APIKey == "" {
		return true
	}
	if r.Header.Get("x-api-key") != s.APIKey {
		writeError(w, http.StatusUnauthorized, "Unauthorized", "api key mismatch")
		return false
	}
	return true
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !s.checkAPIKey(w, r) {
		return
	}
	switch r.URL.Query().Get("source") {
	case "plugin":
		s.Queue.PingImporter()
	case "extension":
		s.Queue.PingExtension()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":          true,
		"queueLength": s.Queue.Len(),
		"telemetry":   s.Queue.Telemetry(),
	})
}

// submissionEnvelope covers all three §4.5.4 shapes. A raw full-schema body
// also unmarshals into this without error (unknown keys are ignored, and it
// has no chunkIndex/totalChunks/compressed keys at top level) — so the
// dispatch in handleSubmit distinguishes by presence of ChunkIndex/
// TotalChunks or Compressed, falling back to "the whole body is the
// schema" otherwise.
type submissionEnvelope struct {
	ChunkIndex  *int   `json:"chunkIndex"`
	TotalChunks *int   `json:"totalChunks"`
	TransferID  string `json:"transferId"`
	Data        string `json:"data"`
	Compressed  bool   `json:"compressed"`
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if !s.checkAPIKey(w, r) {
		return
	}
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "MethodNotAllowed", "POST required")
		return
	}

	limited := http.MaxBytesReader(w, r.Body, s.MaxBody+1)
	body, err := io.ReadAll(limited)
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "PayloadTooLarge", "body exceeds configured limit")
		return
	}
	if int64(len(body)) > s.MaxBody {
		writeError(w, http.StatusRequestEntityTooLarge, "PayloadTooLarge", "body exceeds configured limit")
		return
	}
	if len(body) == 0 {
		writeError(w, http.StatusBadRequest, "MissingBody", "empty request body")
		return
	}

	var env submissionEnvelope
	isEnvelope := json.Unmarshal(body, &env) == nil

	switch {
	case isEnvelope && env.ChunkIndex != nil && env.TotalChunks != nil:
		s.submitChunk(w, env)
	case isEnvelope && env.Compressed:
		s.submitCompressed(w, env)
	default:
		s.submitFull(w, body)
	}
}

func (s *Server) submitFull(w http.ResponseWriter, payload []byte) {
	job := s.Queue.Submit(payload)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "id": job.ID, "queueLength": s.Queue.Len()})
}

func (s *Server) submitChunk(w http.ResponseWriter, env submissionEnvelope) {
	data, err := base64.StdEncoding.DecodeString(env.Data)
	if err != nil {
		writeError(w, http.StatusBadRequest, "BadChunk", "chunk data is not valid base64")
		return
	}
	payload, done, err := s.Chunks.Add(Chunk{
		TransferID:  env.TransferID,
		ChunkIndex:  *env.ChunkIndex,
		TotalChunks: *env.TotalChunks,
		Data:        data,
	})
	if err != nil {
		if e, ok := err.(*common.Error); ok && e.Kind == common.ErrIncompleteTransfer {
			writeError(w, http.StatusGatewayTimeout, "IncompleteTransfer", e.Error())
			return
		}
		writeError(w, http.StatusBadRequest, "BadChunk", err.Error())
		return
	}
	if !done {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "queueLength": s.Queue.Len()})
		return
	}
	job := s.Queue.Submit(payload)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "id": job.ID, "queueLength": s.Queue.Len()})
}

func (s *Server) submitCompressed(w http.ResponseWriter, env submissionEnvelope) {
	compressed, err := base64.StdEncoding.DecodeString(env.Data)
	if err != nil {
		writeError(w, http.StatusBadRequest, "BadChunk", "compressed data is not valid base64")
		return
	}
	fr := flate.NewReader(bytes.NewReader(compressed))
	defer fr.Close()
	payload, err := io.ReadAll(fr)
	if err != nil {
		writeError(w, http.StatusBadRequest, "BadChunk", "failed to inflate compressed payload")
		return
	}
	if int64(len(payload)) > s.MaxBody {
		writeError(w, http.StatusRequestEntityTooLarge, "PayloadTooLarge", "decompressed body exceeds configured limit")
		return
	}
	s.submitFull(w, payload)
}

func (s *Server) handleNext(w http.ResponseWriter, r *http.Request) {
	if !s.checkAPIKey(w, r) {
		return
	}
	s.Queue.PingImporter()

	job, ok := s.Queue.Wait(s.PollTimeout)
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"job": nil, "telemetry": s.Queue.Telemetry()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"job": map[string]any{
			"id":        job.ID,
			"createdAt": job.CreatedAt,
			"payload":   json.RawMessage(job.Payload),
		},
		"telemetry": s.Queue.Telemetry(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{"ok": false, "error": map[string]any{"code": code, "message": message}})
}

// Deflate compresses data with DEFLATE, the counterpart to §4.5.4 shape 3's
// server-side inflate, used by capture-agent-side code and tests to build a
// `{compressed:true, data:...}` submission.
func Deflate(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	fw, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		return nil, err
	}
	if _, err := fw.Write(data); err != nil {
		return nil, err
	}
	if err := fw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
