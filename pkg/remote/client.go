package remote

import (
	"context"
	"encoding/json"
	"time"

	log "log/slog"

	ws "github.com/gorilla/websocket"
)

// Client keeps one connection to the hub alive, redialing on close. Frames
// that pass validation are handed to the handler; its reply, when non-nil,
// is written back.
type Client struct {
	url     string
	name    string
	redial  time.Duration
	handler func(*Message) *Message

	conn *ws.Conn
}

type Config struct {
	URL    string
	Name   string        // the daemon's hub identity, stamped on replies
	Redial time.Duration // pause between reconnect attempts
}

func Dial(cfg Config, handler func(*Message) *Message) (*Client, error) {
	if cfg.Redial <= 0 {
		cfg.Redial = 3 * time.Second
	}

	conn, _, err := ws.DefaultDialer.Dial(cfg.URL, nil)
	if err != nil {
		return nil, err
	}

	log.Info("connected to hub", "url", cfg.URL)

	return &Client{
		url:     cfg.URL,
		name:    cfg.Name,
		redial:  cfg.Redial,
		handler: handler,
		conn:    conn,
	}, nil
}

// Run reads hub frames until ctx ends, reconnecting after any close.
func (c *Client) Run(ctx context.Context) {
	for ctx.Err() == nil {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			if !isClosed(err) {
				log.Error("hub read failed", "err", err)
			}
			log.Warn("hub connection lost, redialing", "url", c.url)
			c.conn.Close()
			c.reconnect(ctx)
			continue
		}

		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			log.Warn("bad hub frame", "err", err)
			continue
		}
		if err := msg.Validate(); err != nil {
			log.Warn("rejected hub frame", "err", err)
			continue
		}

		reply := c.handler(&msg)
		if reply == nil {
			continue
		}
		reply.From = c.name
		reply.To = msg.From
		reply.Kind = KindReply
		if err := c.write(reply); err != nil {
			log.Error("hub write failed", "err", err)
		}
	}

	c.conn.Close()
}

func (c *Client) write(m *Message) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return c.conn.WriteMessage(ws.TextMessage, data)
}

func (c *Client) reconnect(ctx context.Context) {
	for ctx.Err() == nil {
		conn, _, err := ws.DefaultDialer.Dial(c.url, nil)
		if err == nil {
			c.conn = conn
			log.Info("reconnected to hub", "url", c.url)
			return
		}

		select {
		case <-ctx.Done():
		case <-time.After(c.redial):
		}
	}
}

func isClosed(err error) bool {
	return ws.IsCloseError(err,
		ws.CloseNormalClosure,
		ws.CloseGoingAway,
		ws.CloseAbnormalClosure) || ws.IsUnexpectedCloseError(err)
}
