package broker

import (
	"sync"
	"time"

	"domcast/common"
)

// ChunkInactivityTimeout is the §4.5.4 "Chunk transfer timeout" — 60s of
// inactivity on a reassembly in progress aborts it.
const ChunkInactivityTimeout = 60 * time.Second

// Chunk is one `{chunkIndex, totalChunks, data}` message of a chunked
// submission (§4.5.4 shape 2, §6.2 EXTRACTION_CHUNK). TransferID groups
// chunks belonging to the same submission; it is not named in spec.md's
// wire shape, but something must disambiguate interleaved transfers on one
// broker, so the capture agent's service worker stamps one per extraction
// and an empty TransferID is treated as a singleton transfer — the broker
// only ever serves one capture agent at a time in the common case.
type Chunk struct {
	TransferID  string
	ChunkIndex  int
	TotalChunks int
	Data        []byte
}

type transfer struct {
	total        int
	parts        map[int][]byte
	received     int
	lastActivity time.Time
	timer        *time.Timer
	timedOut     bool
}

// ChunkAssembler reassembles chunked submissions by index (§4.5.4, §8
// "Chunk reassembly": "submitting split(schema, k) yields the same schema
// ... for any k >= 1"). Gaps in chunkIndex never cause a short reassembly:
// Add only completes a transfer once every index 0..total-1 has arrived.
type ChunkAssembler struct {
	mu        sync.Mutex
	transfers map[string]*transfer
}

// NewChunkAssembler returns an empty assembler.
func NewChunkAssembler() *ChunkAssembler {
	return &ChunkAssembler{transfers: make(map[string]*transfer)}
}

// Add records one chunk. It returns (payload, true, nil) once the final
// chunk of a transfer arrives and all indices are present; (nil, false, nil)
// while a transfer is still incomplete; and a non-nil error (always
// ErrIncompleteTransfer) if this chunk belongs to a transfer already aborted
// by inactivity, or if totalChunks disagrees with an earlier chunk of the
// same transfer.
func (a *ChunkAssembler) Add(c Chunk) ([]byte, bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	t, ok := a.transfers[c.TransferID]
	if !ok {
		t = &transfer{total: c.TotalChunks, parts: make(map[int][]byte)}
		a.transfers[c.TransferID] = t
	}
	if t.timedOut {
		delete(a.transfers, c.TransferID)
		return nil, false, common.NewError(common.ErrIncompleteTransfer, "chunk arrived after inactivity timeout")
	}
	if t.total != c.TotalChunks {
		return nil, false, common.NewError(common.ErrIncompleteTransfer, "totalChunks mismatch within transfer")
	}

	if _, dup := t.parts[c.ChunkIndex]; !dup {
		t.parts[c.ChunkIndex] = c.Data
		t.received++
	}
	t.lastActivity = time.Now()

	if t.timer != nil {
		t.timer.Stop()
	}
	transferID := c.TransferID
	t.timer = time.AfterFunc(ChunkInactivityTimeout, func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		if cur, ok := a.transfers[transferID]; ok && cur == t && t.received < t.total {
			t.timedOut = true
		}
	})

	if t.received < t.total {
		return nil, false, nil
	}

	delete(a.transfers, c.TransferID)
	if t.timer != nil {
		t.timer.Stop()
	}

	payload := make([]byte, 0)
	for i := 0; i < t.total; i++ {
		part, ok := t.parts[i]
		if !ok {
			return nil, false, common.NewError(common.ErrIncompleteTransfer, "reassembly gap at chunk index")
		}
		payload = append(payload, part...)
	}
	return payload, true, nil
}

// Split is the inverse operation used by capture-agent-side code and tests
// (§8 "Chunk reassembly" property): it breaks payload into chunks of
// ceil(len(payload)/k) bytes, the last one possibly shorter, which gives at
// most k chunks (an empty payload yields one empty chunk).
func Split(transferID string, payload []byte, k int) []Chunk {
	if k < 1 {
		k = 1
	}
	if len(payload) == 0 {
		return []Chunk{{TransferID: transferID, ChunkIndex: 0, TotalChunks: 1, Data: nil}}
	}
	size := (len(payload) + k - 1) / k
	if size == 0 {
		size = 1
	}
	var chunks []Chunk
	for i, start := 0, 0; start < len(payload); i, start = i+1, start+size {
		end := start + size
		if end > len(payload) {
			end = len(payload)
		}
		chunks = append(chunks, Chunk{
			TransferID:  transferID,
			ChunkIndex:  i,
			TotalChunks: 0, // filled below
			Data:        payload[start:end],
		})
	}
	for i := range chunks {
		chunks[i].TotalChunks = len(chunks)
	}
	return chunks
}
