package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	respond "github.com/FrithiofJensen/openproject/internal/api/respond"
	"github.com/FrithiofJensen/openproject/internal/auth"
	"github.com/FrithiofJensen/openproject/internal/feed"
	"github.com/FrithiofJensen/openproject/internal/metrics"
	"github.com/FrithiofJensen/openproject/internal/services"
)

// StreamConfig tunes the push stream.
type StreamConfig struct {
	PollInterval     time.Duration
	PingInterval     time.Duration
	WriteTimeout     time.Duration
	HandshakeTimeout time.Duration
}

func (c StreamConfig) withDefaults() StreamConfig {
	if c.PollInterval <= 0 {
		c.PollInterval = 2 * time.Second
	}
	if c.PingInterval <= 0 {
		c.PingInterval = 30 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = 10 * time.Second
	}
	return c
}

// StreamSubscribe is the first message a client sends after the upgrade.
type StreamSubscribe struct {
	LastUpdateTimestamp string `json:"lastUpdateTimestamp"`
	Filter              string `json:"filter"`
	SortDirection       string `json:"sortDirection"`
}

// StreamMessage is pushed to the client. The first message after a
// subscription is always sent, later ones only when operations exist.
type StreamMessage struct {
	Operations []feed.Operation       `json:"operations"`
	LastUpdate time.Time              `json:"lastUpdateTimestamp"`
	Error      *respond.ErrorResponse `json:"error,omitempty"`
}

// StreamHandler pushes feed operations over a websocket.
type StreamHandler struct {
	svc      *services.ActivityService
	cfg      StreamConfig
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

func NewStreamHandler(svc *services.ActivityService, cfg StreamConfig, log zerolog.Logger) *StreamHandler {
	cfg = cfg.withDefaults()
	return &StreamHandler{
		svc: svc,
		cfg: cfg,
		log: log.With().Str("component", "stream").Logger(),
		upgrader: websocket.Upgrader{
			HandshakeTimeout: cfg.HandshakeTimeout,
			// authenticated by bearer key, not cookies
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Stream GET /api/subjects/{subjectId}/activities/stream
func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	actor := auth.ActorFrom(r.Context())
	subjectID := mux.Vars(r)["subjectId"]
	if !auth.CanView(actor) {
		respond.WriteError(w, http.StatusForbidden, "view_activity permission required")
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader has already answered
		h.log.Debug().Err(err).Msg("upgrade failed")
		return
	}
	defer ws.Close()
	metrics.StreamConnections.Inc()
	defer metrics.StreamConnections.Dec()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	ws.SetReadDeadline(time.Now().Add(h.cfg.HandshakeTimeout))
	var sub StreamSubscribe
	if err := ws.ReadJSON(&sub); err != nil {
		h.log.Debug().Err(err).Str("subject_id", subjectID).Msg("no subscription received")
		h.close(ws, websocket.CloseProtocolError, "expected subscription")
		return
	}

	cursor, err := h.svc.ResolveCursor(ctx, actor, subjectID, services.CursorParams{
		LastUpdateTimestamp: sub.LastUpdateTimestamp,
		Filter:              sub.Filter,
		SortDirection:       sub.SortDirection,
	})
	if err != nil {
		h.fail(ws, err)
		return
	}

	pongWait := 2 * h.cfg.PingInterval
	ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	// reader: clients send nothing after subscribing; a read error means the
	// peer went away
	go func() {
		defer cancel()
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	log := h.log.With().Str("subject_id", subjectID).Str("actor_id", actor.ID).Logger()
	log.Info().Time("since", cursor.LastUpdate).Str("filter", string(cursor.Filter)).Msg("stream opened")
	defer log.Info().Msg("stream closed")

	poll := func(always bool) error {
		ops, next, err := h.svc.Poll(ctx, subjectID, cursor)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// keep the cursor so the next tick retries the same window
			log.Warn().Err(err).Msg("poll failed")
			return nil
		}
		cursor = next
		if len(ops) == 0 && !always {
			return nil
		}
		if ops == nil {
			ops = []feed.Operation{}
		}
		return h.write(ws, StreamMessage{Operations: ops, LastUpdate: next.LastUpdate})
	}

	if err := poll(true); err != nil {
		return
	}

	pollTicker := time.NewTicker(h.cfg.PollInterval)
	defer pollTicker.Stop()
	pingTicker := time.NewTicker(h.cfg.PingInterval)
	defer pingTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.close(ws, websocket.CloseNormalClosure, "")
			return
		case <-pollTicker.C:
			if err := poll(false); err != nil {
				return
			}
		case <-pingTicker.C:
			if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(h.cfg.WriteTimeout)); err != nil {
				log.Debug().Err(err).Msg("ping failed")
				return
			}
		}
	}
}

func (h *StreamHandler) write(ws *websocket.Conn, msg StreamMessage) error {
	ws.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
	return ws.WriteJSON(msg)
}

// fail reports err to the client and closes the stream.
func (h *StreamHandler) fail(ws *websocket.Conn, err error) {
	code := respond.StatusFor(err)
	msg := err.Error()
	closeCode := websocket.ClosePolicyViolation
	if code == http.StatusInternalServerError {
		h.log.Error().Stack().Err(err).Msg("stream subscription failed")
		msg = "internal error"
		closeCode = websocket.CloseInternalServerErr
	}
	_ = h.write(ws, StreamMessage{
		Operations: []feed.Operation{},
		Error:      &respond.ErrorResponse{Error: http.StatusText(code), Code: code, Message: msg},
	})
	h.close(ws, closeCode, http.StatusText(code))
}

func (h *StreamHandler) close(ws *websocket.Conn, code int, text string) {
	_ = ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), time.Now().Add(h.cfg.WriteTimeout))
}
