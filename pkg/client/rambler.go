package client

import (
	"context"
	"log/slog"
	"time"

	"github.com/astromechza/ramblathon/pkg/deltabuf"
)

const (
	DefaultSendInterval      = 5 * time.Second
	DefaultReconnectInterval = 10 * time.Second
)

// Rambler batches whatever is written to it and ships the batch to the server
// every SendInterval, reconnecting every ReconnectInterval while
// disconnected. Input written while disconnected is kept for the next
// session.
type Rambler struct {
	URL               string
	SendInterval      time.Duration
	ReconnectInterval time.Duration
	Logger            *slog.Logger
	// OnDocument is called with the initial document of every session.
	OnDocument func(doc string)

	batch  *deltabuf.Buffer
	unsent string
}

func NewRambler(rawURL string, logger *slog.Logger) *Rambler {
	return &Rambler{
		URL:               rawURL,
		SendInterval:      DefaultSendInterval,
		ReconnectInterval: DefaultReconnectInterval,
		Logger:            logger,
		batch:             deltabuf.New(),
	}
}

func (r *Rambler) Write(p []byte) (int, error) {
	r.batch.Append(string(p))
	return len(p), nil
}

// Run keeps a session going until ctx is done, then sends what is left.
func (r *Rambler) Run(ctx context.Context) error {
	var conn *Conn
	defer func() {
		if conn != nil {
			_ = conn.Close()
		}
	}()

	connect := func() {
		c, doc, err := Dial(ctx, r.URL)
		if err != nil {
			r.Logger.Warn("failed to connect", "err", err)
			return
		}
		r.Logger.Info("connected", "url", r.URL, "document_bytes", len(doc))
		if r.OnDocument != nil {
			r.OnDocument(doc)
		}
		conn = c
	}

	send := func() {
		text := r.unsent + r.batch.DrainAndClear()
		r.unsent = ""
		if text == "" {
			return
		}
		if err := conn.Send(text); err != nil {
			r.Logger.Warn("failed to send batch", "err", err)
			r.unsent = text
			return
		}
		r.Logger.Debug("sent batch", "bytes", len(text))
	}

	connect()

	sendTicker := time.NewTicker(r.SendInterval)
	defer sendTicker.Stop()
	reconnectTicker := time.NewTicker(r.ReconnectInterval)
	defer reconnectTicker.Stop()

	for {
		var done <-chan struct{}
		if conn != nil {
			done = conn.Done()
		}
		select {
		case <-ctx.Done():
			if conn != nil {
				send()
			}
			return nil
		case <-done:
			r.Logger.Warn("disconnected")
			_ = conn.Close()
			conn = nil
		case <-reconnectTicker.C:
			if conn == nil {
				connect()
			}
		case <-sendTicker.C:
			if conn != nil {
				send()
			}
		}
	}
}
