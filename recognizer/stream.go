package recognizer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"nhooyr.io/websocket"
)

const (
	streamChunkMs      = 200
	streamFinalizeIdle = 200 * time.Millisecond
	streamFinalizeMax  = 1000 * time.Millisecond
	streamDrainWait    = 2 * time.Second
)

// StreamFactory creates websocket streaming tasks against a
// Deepgram-shaped listen endpoint.
type StreamFactory struct {
	apiKey   string
	endpoint string
}

func NewStreamFactory(apiKey string) *StreamFactory {
	return &StreamFactory{
		apiKey:   apiKey,
		endpoint: "wss://api.deepgram.com/v1/listen",
	}
}

// SetEndpoint overrides the listen endpoint, for tests and self-hosted
// deployments.
func (f *StreamFactory) SetEndpoint(endpoint string) {
	f.endpoint = endpoint
}

func (f *StreamFactory) Name() string { return "stream" }

func (f *StreamFactory) Available() bool { return f.apiKey != "" }

func (f *StreamFactory) NewTask(ctx context.Context, cfg Config) (Task, error) {
	endpoint, err := url.Parse(f.endpoint)
	if err != nil {
		return nil, err
	}

	q := endpoint.Query()
	model := cfg.Model
	if model == "" {
		model = "nova-3"
	}
	q.Set("model", model)
	q.Set("encoding", "linear16")
	q.Set("interim_results", "true")
	if cfg.SampleRate > 0 {
		q.Set("sample_rate", fmt.Sprintf("%d", cfg.SampleRate))
	}
	if cfg.Channels > 0 {
		q.Set("channels", fmt.Sprintf("%d", cfg.Channels))
	}
	if cfg.Language != "" {
		q.Set("language", cfg.Language)
	}
	endpoint.RawQuery = q.Encode()

	headers := http.Header{}
	headers.Set("Authorization", "Token "+f.apiKey)

	taskCtx, cancel := context.WithCancel(ctx)
	conn, _, err := websocket.Dial(taskCtx, endpoint.String(), &websocket.DialOptions{HTTPHeader: headers})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%w: dial: %v", ErrNetwork, err)
	}

	chunkBytes := cfg.SampleRate * cfg.Channels * 2 * streamChunkMs / 1000
	if chunkBytes <= 0 {
		chunkBytes = 4096
	}

	task := &streamTask{
		conn:       conn,
		ctx:        taskCtx,
		cancel:     cancel,
		chunkBytes: chunkBytes,
		audioCh:    make(chan []byte, 128),
		results:    make(chan Result, 16),
		sendDone:   make(chan struct{}),
		recvDone:   make(chan struct{}),
		finalized:  make(chan struct{}),
	}
	go task.runSender()
	go task.runReceiver()
	return task, nil
}

type streamTask struct {
	conn       *websocket.Conn
	ctx        context.Context
	cancel     context.CancelFunc
	chunkBytes int

	audioCh       chan []byte
	results       chan Result
	sendDone      chan struct{}
	recvDone      chan struct{}
	finalized     chan struct{}
	finalizedOnce sync.Once

	// feedMu guards the PCM buffer, the feedDone flag and every send on
	// (and the close of) audioCh, so a Feed racing Close can never hit a
	// closed channel.
	feedMu   sync.Mutex
	feedBuf  []byte
	feedDone bool

	mu      sync.Mutex
	err     error
	closing bool

	closeOnce sync.Once
}

type streamResponse struct {
	Type         string `json:"type"`
	IsFinal      bool   `json:"is_final"`
	SpeechFinal  bool   `json:"speech_final"`
	FromFinalize bool   `json:"from_finalize"`
	Channel      struct {
		Alternatives []struct {
			Transcript string `json:"transcript"`
		} `json:"alternatives"`
	} `json:"channel"`
}

func decodeStreamResponse(data []byte) (text string, final bool, err error) {
	var resp streamResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", false, err
	}
	if len(resp.Channel.Alternatives) > 0 {
		text = strings.TrimSpace(resp.Channel.Alternatives[0].Transcript)
	}
	final = resp.IsFinal || resp.SpeechFinal || resp.FromFinalize
	return text, final, nil
}

func (t *streamTask) Feed(pcm []byte) {
	t.feedMu.Lock()
	defer t.feedMu.Unlock()
	if t.feedDone {
		return
	}

	t.feedBuf = append(t.feedBuf, pcm...)
	for len(t.feedBuf) >= t.chunkBytes {
		chunk := make([]byte, t.chunkBytes)
		copy(chunk, t.feedBuf[:t.chunkBytes])
		t.feedBuf = t.feedBuf[t.chunkBytes:]
		select {
		case t.audioCh <- chunk:
		default:
			// Audio thread must never block; a full queue means the
			// transport is already stalled and the chunk is lost.
			return
		}
	}
}

func (t *streamTask) Results() <-chan Result {
	return t.results
}

func (t *streamTask) Close() error {
	t.closeOnce.Do(func() {
		// Flush any buffered tail, then end the audio input. Both happen
		// under feedMu so no concurrent Feed can send past the close.
		t.feedMu.Lock()
		t.feedDone = true
		if len(t.feedBuf) > 0 {
			tail := make([]byte, len(t.feedBuf))
			copy(tail, t.feedBuf)
			t.feedBuf = nil
			select {
			case t.audioCh <- tail:
			default:
			}
		}
		close(t.audioCh)
		t.feedMu.Unlock()

		<-t.sendDone

		// Wait for the server's finalize acknowledgment, then a brief
		// quiet period for trailing results.
		select {
		case <-t.finalized:
			time.Sleep(streamFinalizeIdle)
		case <-time.After(streamFinalizeMax):
		}

		t.mu.Lock()
		t.closing = true
		t.mu.Unlock()
		t.conn.Close(websocket.StatusNormalClosure, "")
		t.cancel()
		select {
		case <-t.recvDone:
		case <-time.After(streamDrainWait):
		}
	})

	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

func (t *streamTask) runSender() {
	defer close(t.sendDone)
	for chunk := range t.audioCh {
		if err := t.conn.Write(t.ctx, websocket.MessageBinary, chunk); err != nil {
			t.setErr(fmt.Errorf("%w: send: %v", ErrNetwork, err))
			return
		}
	}
	msg := []byte(`{"type":"Finalize"}`)
	if err := t.conn.Write(t.ctx, websocket.MessageText, msg); err != nil {
		t.setErr(fmt.Errorf("%w: finalize: %v", ErrNetwork, err))
	}
}

func (t *streamTask) runReceiver() {
	defer close(t.recvDone)
	defer close(t.results)

	finalized := false
	for {
		_, data, err := t.conn.Read(t.ctx)
		if err != nil {
			t.mu.Lock()
			closing := t.closing
			t.mu.Unlock()
			if closing || finalized {
				return
			}
			wrapped := fmt.Errorf("%w: recv: %v", ErrNetwork, err)
			t.setErr(wrapped)
			t.results <- Result{Err: wrapped}
			return
		}

		var probe struct {
			Type         string `json:"type"`
			FromFinalize bool   `json:"from_finalize"`
		}
		_ = json.Unmarshal(data, &probe)
		if probe.FromFinalize {
			finalized = true
			t.finalizedOnce.Do(func() { close(t.finalized) })
		}

		text, final, err := decodeStreamResponse(data)
		if err != nil || text == "" {
			continue
		}
		select {
		case t.results <- Result{Text: text, Final: final}:
		case <-t.ctx.Done():
			return
		}
	}
}

func (t *streamTask) setErr(err error) {
	t.mu.Lock()
	if t.err == nil {
		t.err = err
	}
	t.mu.Unlock()
}
