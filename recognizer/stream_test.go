package recognizer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"nhooyr.io/websocket"
)

func TestDecodeStreamResponse(t *testing.T) {
	for _, tt := range []struct {
		name      string
		data      string
		wantText  string
		wantFinal bool
	}{
		{
			name:     "interim",
			data:     `{"type":"Results","is_final":false,"channel":{"alternatives":[{"transcript":"hello wor"}]}}`,
			wantText: "hello wor",
		},
		{
			name:      "final",
			data:      `{"type":"Results","is_final":true,"channel":{"alternatives":[{"transcript":"hello world"}]}}`,
			wantText:  "hello world",
			wantFinal: true,
		},
		{
			name:      "speech final counts as final",
			data:      `{"type":"Results","speech_final":true,"channel":{"alternatives":[{"transcript":"done"}]}}`,
			wantText:  "done",
			wantFinal: true,
		},
		{
			name:      "finalize ack counts as final",
			data:      `{"type":"Results","from_finalize":true,"channel":{"alternatives":[{"transcript":"tail"}]}}`,
			wantText:  "tail",
			wantFinal: true,
		},
		{
			name:     "whitespace trimmed",
			data:     `{"channel":{"alternatives":[{"transcript":"  padded  "}]}}`,
			wantText: "padded",
		},
		{
			name:     "no alternatives",
			data:     `{"type":"Metadata"}`,
			wantText: "",
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			text, final, err := decodeStreamResponse([]byte(tt.data))
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if text != tt.wantText {
				t.Errorf("text = %q, want %q", text, tt.wantText)
			}
			if final != tt.wantFinal {
				t.Errorf("final = %v, want %v", final, tt.wantFinal)
			}
		})
	}
}

func TestDecodeStreamResponseRejectsGarbage(t *testing.T) {
	if _, _, err := decodeStreamResponse([]byte("not json")); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestStreamFactoryAvailability(t *testing.T) {
	if NewStreamFactory("").Available() {
		t.Fatal("factory without key should be unavailable")
	}
	if !NewStreamFactory("key").Available() {
		t.Fatal("factory with key should be available")
	}
}

// newListenServer is a local stand-in for the listen endpoint: it swallows
// audio and acknowledges Finalize, keeping the connection open afterwards
// the way the real service does.
func newListenServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close(websocket.StatusNormalClosure, "")
		for {
			typ, data, err := c.Read(r.Context())
			if err != nil {
				return
			}
			if typ == websocket.MessageText && strings.Contains(string(data), "Finalize") {
				ack := `{"type":"Results","from_finalize":true,"channel":{"alternatives":[{"transcript":""}]}}`
				if err := c.Write(r.Context(), websocket.MessageText, []byte(ack)); err != nil {
					return
				}
			}
		}
	}))
}

func newListenTask(t *testing.T, srv *httptest.Server) Task {
	t.Helper()
	factory := NewStreamFactory("test-key")
	factory.SetEndpoint("ws" + strings.TrimPrefix(srv.URL, "http"))
	task, err := factory.NewTask(context.Background(), Config{SampleRate: 16000, Channels: 1})
	if err != nil {
		t.Fatalf("new task: %v", err)
	}
	return task
}

func TestCloseReturnsAfterFinalizeAck(t *testing.T) {
	srv := newListenServer(t)
	defer srv.Close()
	task := newListenTask(t, srv)

	task.Feed(make([]byte, 6400))
	start := time.Now()
	if err := task.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	// The server acks Finalize immediately, so Close waits only the short
	// quiet period, not the full fallback.
	if elapsed := time.Since(start); elapsed >= streamFinalizeMax {
		t.Fatalf("close took %v, finalize ack not honored", elapsed)
	}
}

func TestFeedDuringCloseIsSafe(t *testing.T) {
	srv := newListenServer(t)
	defer srv.Close()
	task := newListenTask(t, srv)

	stop := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			buf := make([]byte, 640)
			for {
				select {
				case <-stop:
					return
				default:
					task.Feed(buf)
				}
			}
		}()
	}

	// Close while the feeders are still running, as the audio thread does
	// on the native path.
	time.Sleep(10 * time.Millisecond)
	if err := task.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	close(stop)
	wg.Wait()

	// Feeding a closed task is a no-op.
	task.Feed(make([]byte, 640))
}
