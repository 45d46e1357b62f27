// Package session serves the websocket endpoint that writers connect to.
//
// A connection is admitted only if no other session holds the gate. An
// admitted session first receives the whole persisted document as one text
// message, then every text message it sends is appended to the delta buffer
// in arrival order. Nothing is acknowledged.
package session

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/astromechza/ramblathon/pkg/deltabuf"
	"github.com/astromechza/ramblathon/pkg/docstore"
	"github.com/astromechza/ramblathon/pkg/gate"
)

// The listener is bound to loopback, so any origin is accepted.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type Handler struct {
	Gate   *gate.Gate
	Buffer *deltabuf.Buffer
	Store  *docstore.Store
	Logger *slog.Logger

	// StickyGate keeps the gate closed after the first session ends, so no
	// later connection is ever admitted.
	StickyGate bool

	// Fatal receives i/o errors on the document file. They are not
	// recoverable at this level.
	Fatal func(error)
}

var _ http.Handler = (*Handler)(nil)

func (h *Handler) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	log := h.Logger
	if log == nil {
		log = slog.Default()
	}

	if !h.Gate.TryAcquire() {
		log.Warn("rejected connection, a session is already active", "remote", request.RemoteAddr)
		http.Error(writer, "a session is already active", http.StatusTooManyRequests)
		return
	}
	if !h.StickyGate {
		defer h.Gate.Release()
	}

	log = log.With("session", uuid.NewString())
	log.Info("admitted session", "remote", request.RemoteAddr)

	conn, err := upgrader.Upgrade(writer, request, nil)
	if err != nil {
		log.Error("failed to upgrade", "err", err)
		return
	}
	defer conn.Close()

	if err := h.serve(conn, log); err != nil {
		if errors.Is(err, docstore.ErrIO) {
			log.Error("session aborted on document i/o failure", "err", err)
			if h.Fatal != nil {
				h.Fatal(err)
			}
			return
		}
		var closeErr *websocket.CloseError
		if errors.As(err, &closeErr) && websocket.IsCloseError(closeErr, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			log.Info("session closed")
			return
		}
		log.Warn("session ended", "err", err)
	}
}

func (h *Handler) serve(conn *websocket.Conn, log *slog.Logger) error {
	doc, err := h.Store.ReadAll()
	if err != nil {
		return err
	}
	if err := conn.WriteMessage(websocket.TextMessage, []byte(doc)); err != nil {
		return fmt.Errorf("failed to send initial document: %w", err)
	}
	log.Info("sent initial document", "bytes", len(doc))

	for {
		if err := h.receive(conn, log); err != nil {
			return err
		}
	}
}

func (h *Handler) receive(conn *websocket.Conn, log *slog.Logger) error {
	mt, p, err := conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("failed to read message: %w", err)
	}
	switch mt {
	case websocket.TextMessage:
		if !utf8.Valid(p) {
			log.Warn("ignoring malformed text message", "bytes", len(p))
			return nil
		}
		h.Buffer.Append(string(p))
		log.Debug("processed delta into delta buffer", "bytes", len(p))
	default:
		log.Warn("ignoring non-text message", "type", mt, "bytes", len(p))
	}
	return nil
}
