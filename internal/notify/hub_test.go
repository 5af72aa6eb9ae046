package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func waitUntil(t *testing.T, d time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func dialHub(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(hub.Handler))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if !waitUntil(t, time.Second, func() bool { return hub.ClientCount() == 1 }) {
		t.Fatal("client never registered with the hub")
	}
	return conn
}

func TestHub_SendResult_NoReceivers(t *testing.T) {
	hub := NewHub(testLogger())

	err := hub.SendResult(context.Background(), Result{RequestID: "r1"})
	if !errors.Is(err, ErrNoReceivers) {
		t.Errorf("SendResult() error = %v, want ErrNoReceivers", err)
	}
}

func TestHub_SendFailure_NoReceivers(t *testing.T) {
	hub := NewHub(testLogger())

	err := hub.SendFailure(context.Background(), Failure{RequestID: "r1"})
	if !errors.Is(err, ErrNoReceivers) {
		t.Errorf("SendFailure() error = %v, want ErrNoReceivers", err)
	}
}

func TestHub_SendProgress_NoReceivers(t *testing.T) {
	hub := NewHub(testLogger())

	// Progress is best-effort and silently dropped.
	if err := hub.SendProgress(context.Background(), Progress{RequestID: "r1"}); err != nil {
		t.Errorf("SendProgress() error = %v, want nil", err)
	}
}

func TestHub_DeliversResultToClient(t *testing.T) {
	hub := NewHub(testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	conn := dialHub(t, hub)

	want := Result{
		RequestID:   "r1",
		Target:      "chan-42",
		Title:       "A Clip",
		FilePath:    "/data/downloads/youtube_A_Clip.mp4",
		FileSize:    4096,
		Platform:    "youtube",
		ContentType: "video",
	}
	if err := hub.SendResult(ctx, want); err != nil {
		t.Fatalf("SendResult() error = %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage() error = %v", err)
	}

	var got Result
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if got.Type != "result" {
		t.Errorf("Type = %q, want %q", got.Type, "result")
	}
	if got.RequestID != want.RequestID || got.Title != want.Title || got.FileSize != want.FileSize {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestHub_DeliversProgressToClient(t *testing.T) {
	hub := NewHub(testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	conn := dialHub(t, hub)

	if err := hub.SendProgress(ctx, Progress{RequestID: "r1", Stage: "queued", Position: 2}); err != nil {
		t.Fatalf("SendProgress() error = %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage() error = %v", err)
	}

	var got Progress
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if got.Type != "progress" || got.Stage != "queued" || got.Position != 2 {
		t.Errorf("got %+v, want progress/queued/2", got)
	}
}

func TestHub_ClientCountTracksDisconnects(t *testing.T) {
	hub := NewHub(testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	conn := dialHub(t, hub)

	conn.Close()
	if !waitUntil(t, time.Second, func() bool { return hub.ClientCount() == 0 }) {
		t.Errorf("ClientCount = %d after disconnect, want 0", hub.ClientCount())
	}
}

func TestHub_SendResult_BufferFull(t *testing.T) {
	hub := NewHub(testLogger())
	// No Run loop, so nothing drains the buffer.
	dialHub(t, hub)

	for i := 0; i < broadcastBuffer; i++ {
		if err := hub.SendProgress(context.Background(), Progress{RequestID: "fill"}); err != nil {
			t.Fatalf("SendProgress() #%d error = %v", i, err)
		}
	}

	err := hub.SendResult(context.Background(), Result{RequestID: "r1"})
	if !errors.Is(err, ErrBufferFull) {
		t.Errorf("SendResult() error = %v, want ErrBufferFull", err)
	}
}

func TestHub_MultipleClients(t *testing.T) {
	hub := NewHub(testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(hub.Handler))
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	conns := make([]*websocket.Conn, 3)
	for i := range conns {
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		if err != nil {
			t.Fatalf("Dial() #%d error = %v", i, err)
		}
		defer conn.Close()
		conns[i] = conn
	}
	if !waitUntil(t, time.Second, func() bool { return hub.ClientCount() == 3 }) {
		t.Fatalf("ClientCount = %d, want 3", hub.ClientCount())
	}

	if err := hub.SendResult(ctx, Result{RequestID: "r1", Title: "shared"}); err != nil {
		t.Fatalf("SendResult() error = %v", err)
	}

	for i, conn := range conns {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("client %d ReadMessage() error = %v", i, err)
		}
		if !strings.Contains(string(data), `"shared"`) {
			t.Errorf("client %d payload = %s, want title %q", i, data, "shared")
		}
	}
}

var (
	_ Notifier = (*Hub)(nil)
	_ Notifier = (*LogNotifier)(nil)
	_ Notifier = (*Fanout)(nil)
)
