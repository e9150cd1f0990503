package broker

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"domcast/common"
)

// Client is the capture-agent side of the §6.1 HTTP surface: it submits a
// job, chunking it when it exceeds maxChunkBytes, the same threshold the
// service worker uses to decide between a single EXTRACTION_COMPLETE
// message and an EXTRACTION_CHUNK sequence (§6.2).
type Client struct {
	BaseURL       string
	APIKey        string
	MaxChunkBytes int
	HTTP          *http.Client
}

// NewClient returns a Client with a sane default *http.Client.
func NewClient(baseURL, apiKey string, maxChunkBytes int) *Client {
	if maxChunkBytes <= 0 {
		maxChunkBytes = 4 << 20
	}
	return &Client{BaseURL: baseURL, APIKey: apiKey, MaxChunkBytes: maxChunkBytes, HTTP: &http.Client{Timeout: 60 * time.Second}}
}

// Submit posts payload (already-marshaled scene JSON) to /jobs, splitting
// it into chunk messages via Split when it exceeds MaxChunkBytes (§4.5.4
// shape 2), or sending it whole otherwise (shape 1). Returns the assigned
// job id.
func (c *Client) Submit(ctx context.Context, payload []byte) (string, error) {
	if len(payload) <= c.MaxChunkBytes {
		return c.submitBody(ctx, payload)
	}

	k := (len(payload) + c.MaxChunkBytes - 1) / c.MaxChunkBytes
	transferID := fmt.Sprintf("xfer-%d", time.Now().UnixNano())
	chunks := Split(transferID, payload, k)

	var id string
	for _, ch := range chunks {
		resp, err := c.postEnvelope(ctx, submissionEnvelope{
			ChunkIndex:  &ch.ChunkIndex,
			TotalChunks: &ch.TotalChunks,
			TransferID:  ch.TransferID,
			Data:        base64.StdEncoding.EncodeToString(ch.Data),
		})
		if err != nil {
			return "", err
		}
		if jobID, ok := resp["id"].(string); ok {
			id = jobID
		}
	}
	return id, nil
}

func (c *Client) submitBody(ctx context.Context, payload []byte) (string, error) {
	resp, err := c.post(ctx, payload)
	if err != nil {
		return "", err
	}
	id, _ := resp["id"].(string)
	return id, nil
}

func (c *Client) postEnvelope(ctx context.Context, env submissionEnvelope) (map[string]any, error) {
	body, err := json.Marshal(env)
	if err != nil {
		return nil, err
	}
	return c.post(ctx, body)
}

func (c *Client) post(ctx context.Context, body []byte) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/jobs", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("x-api-key", c.APIKey)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, common.WrapError(common.ErrIncompleteTransfer, "submit to broker failed", err)
	}
	defer resp.Body.Close()

	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode broker response: %w", err)
	}
	if resp.StatusCode >= 400 {
		if resp.StatusCode == http.StatusRequestEntityTooLarge {
			return nil, common.NewError(common.ErrPayloadTooLarge, fmt.Sprint(out["error"]))
		}
		return nil, fmt.Errorf("broker rejected submission (%d): %v", resp.StatusCode, out["error"])
	}
	return out, nil
}
