package broker

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestServer() (*Server, *httptest.Server) {
	s := NewServer("", 1<<20, 200*time.Millisecond, nil)
	ts := httptest.NewServer(s.Handler())
	return s, ts
}

func TestHealthEndpoint(t *testing.T) {
	_, ts := newTestServer()
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health?source=plugin")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["ok"] != true {
		t.Fatalf("expected ok:true, got %v", body)
	}
}

func TestSubmitFullSchemaThenPollDelivers(t *testing.T) {
	_, ts := newTestServer()
	defer ts.Close()

	payload := `{"version":"1.0.0","root":{"type":"FRAME"}}`
	resp, err := http.Post(ts.URL+"/jobs", "application/json", bytes.NewBufferString(payload))
	if err != nil {
		t.Fatalf("POST /jobs: %v", err)
	}
	var submitResp map[string]any
	json.NewDecoder(resp.Body).Decode(&submitResp)
	resp.Body.Close()
	if submitResp["ok"] != true {
		t.Fatalf("expected successful submission, got %v", submitResp)
	}

	resp, err = http.Get(ts.URL + "/jobs/next")
	if err != nil {
		t.Fatalf("GET /jobs/next: %v", err)
	}
	defer resp.Body.Close()
	var nextResp map[string]any
	json.NewDecoder(resp.Body).Decode(&nextResp)
	job, ok := nextResp["job"].(map[string]any)
	if !ok {
		t.Fatalf("expected a job in response, got %v", nextResp)
	}
	payloadBytes, _ := json.Marshal(job["payload"])
	var got map[string]any
	json.Unmarshal(payloadBytes, &got)
	if got["version"] != "1.0.0" {
		t.Fatalf("expected reassembled payload, got %v", got)
	}
}

func TestSubmitChunkedReassembledExactly(t *testing.T) {
	_, ts := newTestServer()
	defer ts.Close()

	original := []byte(fmt.Sprintf(`{"version":"1.0.0","note":%q}`, bytes.Repeat([]byte("x"), 5000)))
	chunks := Split("transfer-1", original, 5)

	var lastResp map[string]any
	for _, c := range chunks {
		body, _ := json.Marshal(map[string]any{
			"transferId":  c.TransferID,
			"chunkIndex":  c.ChunkIndex,
			"totalChunks": c.TotalChunks,
			"data":        base64.StdEncoding.EncodeToString(c.Data),
		})
		resp, err := http.Post(ts.URL+"/jobs", "application/json", bytes.NewReader(body))
		if err != nil {
			t.Fatalf("POST chunk: %v", err)
		}
		json.NewDecoder(resp.Body).Decode(&lastResp)
		resp.Body.Close()
	}
	if lastResp["ok"] != true || lastResp["id"] == nil {
		t.Fatalf("expected final chunk submission to create a job, got %v", lastResp)
	}

	resp, _ := http.Get(ts.URL + "/jobs/next")
	defer resp.Body.Close()
	var nextResp map[string]any
	json.NewDecoder(resp.Body).Decode(&nextResp)
	job := nextResp["job"].(map[string]any)
	gotBytes, _ := json.Marshal(job["payload"])
	var got, want map[string]any
	json.Unmarshal(gotBytes, &got)
	json.Unmarshal(original, &want)
	if got["note"] != want["note"] {
		t.Fatalf("reassembled payload does not match original")
	}
}

func TestSubmitCompressed(t *testing.T) {
	_, ts := newTestServer()
	defer ts.Close()

	original := []byte(`{"version":"1.0.0","root":{"type":"FRAME"}}`)
	deflated, err := Deflate(original)
	if err != nil {
		t.Fatalf("deflate: %v", err)
	}
	body, _ := json.Marshal(map[string]any{
		"compressed": true,
		"data":       base64.StdEncoding.EncodeToString(deflated),
	})
	resp, err := http.Post(ts.URL+"/jobs", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST compressed: %v", err)
	}
	var submitResp map[string]any
	json.NewDecoder(resp.Body).Decode(&submitResp)
	resp.Body.Close()
	if submitResp["ok"] != true {
		t.Fatalf("expected successful submission, got %v", submitResp)
	}
}

func TestPayloadTooLargeRejected(t *testing.T) {
	s := NewServer("", 16, time.Second, nil)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/jobs", "application/json", bytes.NewReader(make([]byte, 17)))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", resp.StatusCode)
	}
}

func TestPayloadAtLimitAccepted(t *testing.T) {
	s := NewServer("", 16, time.Second, nil)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/jobs", "application/json", bytes.NewReader(make([]byte, 16)))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for a body exactly at the limit, got %d", resp.StatusCode)
	}
}

func TestAPIKeyMismatchRejected(t *testing.T) {
	s := NewServer("secret", 1<<20, time.Second, nil)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without api key, got %d", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/health", nil)
	req.Header.Set("x-api-key", "secret")
	resp2, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET with key: %v", err)
	}
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 with correct api key, got %d", resp2.StatusCode)
	}
}

func TestEmptyBodyRejected(t *testing.T) {
	_, ts := newTestServer()
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/jobs", "application/json", bytes.NewReader(nil))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty body, got %d", resp.StatusCode)
	}
}
