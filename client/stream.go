package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
)

// Subscribe opens the push stream for a subject and calls handle for every
// batch, starting with the one answering the subscription. It returns when
// ctx is done, the server closes the stream or handle fails.
func (c *Client) Subscribe(ctx context.Context, subjectID string, cursor Cursor, handle func(StreamMessage) error) error {
	u, err := url.Parse(c.baseURL + subjectPath(subjectID) + "/activities/stream")
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.apiKey)
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: 10 * time.Second,
	}
	ws, resp, err := dialer.DialContext(ctx, u.String(), header)
	if err != nil {
		requestsTotal.WithLabelValues("subscribe", "error").Inc()
		if resp != nil {
			return fmt.Errorf("subscribe: %w", decodeAPIError(resp))
		}
		return fmt.Errorf("subscribe: %w", err)
	}
	defer ws.Close()
	requestsTotal.WithLabelValues("subscribe", "ok").Inc()

	sub := map[string]string{
		"lastUpdateTimestamp": formatCursorTime(cursor.LastUpdate),
		"filter":              string(cursor.Filter),
		"sortDirection":       string(cursor.SortDirection),
	}
	ws.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if err := ws.WriteJSON(sub); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			_ = ws.Close()
		case <-done:
		}
	}()

	for {
		var msg StreamMessage
		if err := ws.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("stream: %w", err)
		}
		if msg.Error != nil {
			return fmt.Errorf("stream: %w", msg.Error)
		}
		if err := handle(msg); err != nil {
			return err
		}
	}
}

// errViewClosed is returned by handlers once a followed view stops.
var errViewClosed = errors.New("view closed")
