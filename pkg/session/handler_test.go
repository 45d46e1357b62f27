package session

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/afero"

	"github.com/astromechza/ramblathon/pkg/deltabuf"
	"github.com/astromechza/ramblathon/pkg/docstore"
	"github.com/astromechza/ramblathon/pkg/gate"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type fixture struct {
	handler *Handler
	store   *docstore.Store
	server  *httptest.Server
	url     string
}

func newFixture(t *testing.T, initial string) *fixture {
	t.Helper()
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/out/buffer.txt", []byte(initial), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	store := docstore.New(fs, "/out/buffer.txt", "/out/backup")
	h := &Handler{Gate: new(gate.Gate), Buffer: deltabuf.New(), Store: store, Logger: discard}
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return &fixture{handler: h, store: store, server: srv, url: "ws" + strings.TrimPrefix(srv.URL, "http")}
}

func (f *fixture) dial(t *testing.T) (*websocket.Conn, string) {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(f.url, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	mt, p, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("failed to read initial document: %v", err)
	}
	if mt != websocket.TextMessage {
		t.Fatalf("expected initial document as text message, got type %d", mt)
	}
	return conn, string(p)
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestInitialDocument(t *testing.T) {
	f := newFixture(t, "persisted text")
	f.handler.Buffer.Append(" still pending")

	conn, initial := f.dial(t)
	defer conn.Close()

	if initial != "persisted text" {
		t.Errorf("expected initial document %q, got %q", "persisted text", initial)
	}
}

func TestDeltasAreBufferedInOrder(t *testing.T) {
	f := newFixture(t, "")
	conn, _ := f.dial(t)
	defer conn.Close()

	for _, d := range []string{"foo", "bar", "\n", "baz"} {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(d)); err != nil {
			t.Fatalf("WriteMessage failed: %v", err)
		}
	}
	eventually(t, "deltas to arrive", func() bool { return f.handler.Buffer.Len() == len("foobar\nbaz") })

	if got := f.handler.Buffer.DrainAndClear(); got != "foobar\nbaz" {
		t.Errorf("expected %q, got %q", "foobar\nbaz", got)
	}
	if got, _ := f.store.ReadAll(); got != "" {
		t.Errorf("expected file untouched before flush, got %q", got)
	}
}

func TestNonTextFramesAreIgnored(t *testing.T) {
	f := newFixture(t, "")
	conn, _ := f.dial(t)
	defer conn.Close()

	if err := conn.WriteMessage(websocket.BinaryMessage, []byte{0x00, 0x01}); err != nil {
		t.Fatalf("WriteMessage failed: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, []byte{0xff, 0xfe}); err != nil {
		t.Fatalf("WriteMessage failed: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, []byte("after")); err != nil {
		t.Fatalf("WriteMessage failed: %v", err)
	}
	eventually(t, "text delta to arrive", func() bool { return f.handler.Buffer.Len() > 0 })

	if got := f.handler.Buffer.DrainAndClear(); got != "after" {
		t.Errorf("expected only the text delta, got %q", got)
	}
}

func TestSecondConnectionIsRejected(t *testing.T) {
	f := newFixture(t, "doc")
	conn, _ := f.dial(t)
	defer conn.Close()

	_, resp, err := websocket.DefaultDialer.Dial(f.url, nil)
	if !errors.Is(err, websocket.ErrBadHandshake) {
		t.Fatalf("expected bad handshake, got %v", err)
	}
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Errorf("expected status 429, got %d", resp.StatusCode)
	}
	if f.handler.Buffer.Len() != 0 {
		t.Error("expected rejected attempt to leave the buffer alone")
	}
	if got, _ := f.store.ReadAll(); got != "doc" {
		t.Errorf("expected rejected attempt to leave the file alone, got %q", got)
	}
}

func TestReconnectAfterSessionEnds(t *testing.T) {
	f := newFixture(t, "")
	conn, _ := f.dial(t)
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	conn.Close()

	eventually(t, "gate release", func() bool { return !f.handler.Gate.Held() })

	again, _ := f.dial(t)
	again.Close()
}

// With a sticky gate the first session blocks every later one, even after it
// has disconnected.
func TestStickyGateBlocksReconnect(t *testing.T) {
	f := newFixture(t, "")
	f.handler.StickyGate = true

	conn, _ := f.dial(t)
	conn.Close()

	time.Sleep(50 * time.Millisecond)
	if !f.handler.Gate.Held() {
		t.Fatal("expected sticky gate to stay held after disconnect")
	}
	_, resp, err := websocket.DefaultDialer.Dial(f.url, nil)
	if err == nil {
		t.Fatal("expected reconnect to be rejected")
	}
	if resp == nil || resp.StatusCode != http.StatusTooManyRequests {
		t.Errorf("expected status 429 on reconnect, got %v", resp)
	}
}

func TestConcurrentAdmission(t *testing.T) {
	f := newFixture(t, "shared")

	const attempts = 8
	var (
		mu       sync.Mutex
		winners  []*websocket.Conn
		payloads []string
		rejected int
		other    []error
	)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			conn, resp, err := websocket.DefaultDialer.Dial(f.url, nil)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				winners = append(winners, conn)
				payloads = append(payloads, fmt.Sprintf("payload-%d", i))
			case resp != nil && resp.StatusCode == http.StatusTooManyRequests:
				rejected++
			default:
				other = append(other, err)
			}
		}(i)
	}
	close(start)
	wg.Wait()

	if len(other) > 0 {
		t.Fatalf("unexpected dial errors: %v", other)
	}
	if len(winners) != 1 || rejected != attempts-1 {
		t.Fatalf("expected 1 admitted and %d rejected, got %d and %d", attempts-1, len(winners), rejected)
	}

	conn := winners[0]
	defer conn.Close()
	if _, p, err := conn.ReadMessage(); err != nil || string(p) != "shared" {
		t.Fatalf("expected initial document %q, got %q (%v)", "shared", p, err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, []byte(payloads[0])); err != nil {
		t.Fatalf("WriteMessage failed: %v", err)
	}
	eventually(t, "winner payload", func() bool { return f.handler.Buffer.Len() == len(payloads[0]) })
	if got := f.handler.Buffer.DrainAndClear(); got != payloads[0] {
		t.Errorf("expected buffer to hold only %q, got %q", payloads[0], got)
	}
}

func TestDocumentReadFailureIsFatal(t *testing.T) {
	fatal := make(chan error, 1)
	store := docstore.New(afero.NewMemMapFs(), "/missing/buffer.txt", "/missing/backup")
	h := &Handler{
		Gate:   new(gate.Gate),
		Buffer: deltabuf.New(),
		Store:  store,
		Logger: discard,
		Fatal:  func(err error) { fatal <- err },
	}
	srv := httptest.NewServer(h)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()

	select {
	case err := <-fatal:
		if !errors.Is(err, docstore.ErrIO) {
			t.Errorf("expected ErrIO, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("expected fatal error to be escalated")
	}
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("expected connection to be closed without an initial document")
	}
}
