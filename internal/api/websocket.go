package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/dgallion1/profilesite/internal/session"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	maxMessage = 64 * 1024
)

// clientMessage is sent by the browser.
type clientMessage struct {
	Type string             `json:"type"` // load, visible, toggle, toggle_all, copy
	Key  string             `json:"key,omitempty"`
	Gen  session.Generation `json:"gen,omitempty"`
	IDs  []string           `json:"ids,omitempty"`
	ID   string             `json:"id,omitempty"`
}

// serverMessage is sent to the browser.
type serverMessage struct {
	Type      string             `json:"type"` // hello, view, mount, remove, toggled, toggled_all, copy, error
	Session   string             `json:"session,omitempty"`
	Gen       session.Generation `json:"gen,omitempty"`
	ID        string             `json:"id,omitempty"`
	HTML      string             `json:"html,omitempty"`
	Collapsed *bool              `json:"collapsed,omitempty"`
	Label     string             `json:"label,omitempty"`
	Text      string             `json:"text,omitempty"`
	Message   string             `json:"message,omitempty"`
	Fatal     bool               `json:"fatal,omitempty"` // Connection is no longer usable
}

// liveClient is one WebSocket connection bound to one session.
type liveClient struct {
	conn    *websocket.Conn
	sess    *session.Session
	loader  *session.Loader
	limiter *rate.Limiter
	send    chan []byte
	done    chan struct{}
	ctx     context.Context
	log     *slog.Logger
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "error", err)
		return
	}

	sess := s.sessions.Create()
	sess.Attach()
	ctx, cancel := context.WithCancel(context.Background())
	c := &liveClient{
		conn:    conn,
		sess:    sess,
		loader:  s.loader,
		limiter: rate.NewLimiter(rate.Limit(s.cfg.WSMessagesPerSecond), s.cfg.WSBurst),
		send:    make(chan []byte, 64),
		done:    make(chan struct{}),
		ctx:     ctx,
		log:     s.log.With("session", sess.ID()),
	}
	c.log.Info("live session opened")

	go c.writePump()
	c.push(serverMessage{Type: "hello", Session: sess.ID()})
	c.load(session.WelcomeKey)

	c.readPump()

	cancel()
	close(c.done)
	s.sessions.Remove(sess.ID())
	c.log.Info("live session closed")
}

func (c *liveClient) readPump() {
	defer c.conn.Close()

	c.conn.SetReadLimit(maxMessage)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		c.sess.Touch()
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Warn("websocket unexpected close", "error", err)
			}
			return
		}
		if !c.limiter.Allow() {
			c.push(serverMessage{Type: "error", Message: "rate limit exceeded"})
			continue
		}
		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.push(serverMessage{Type: "error", Message: "invalid message"})
			continue
		}
		c.handle(msg)
	}
}

func (c *liveClient) handle(msg clientMessage) {
	switch msg.Type {
	case "load":
		c.load(msg.Key)

	case "visible":
		trs, err := c.sess.Visible(msg.Gen, msg.IDs)
		if err != nil {
			if !errors.Is(err, session.ErrStale) {
				c.push(serverMessage{Type: "error", Message: err.Error()})
			}
			return
		}
		for _, tr := range trs {
			if tr.Removed {
				c.push(serverMessage{Type: "remove", Gen: msg.Gen, ID: tr.ID})
				continue
			}
			c.push(serverMessage{Type: "mount", Gen: msg.Gen, ID: tr.ID, HTML: tr.HTML})
		}

	case "toggle":
		collapsed, err := c.sess.Toggle(msg.ID)
		if err != nil {
			c.push(serverMessage{Type: "error", Message: err.Error()})
			return
		}
		c.push(serverMessage{Type: "toggled", ID: msg.ID, Collapsed: &collapsed})

	case "toggle_all":
		label, err := c.sess.ToggleAll()
		if err != nil {
			c.push(serverMessage{Type: "error", Message: err.Error()})
			return
		}
		c.push(serverMessage{Type: "toggled_all", Label: label})

	case "copy":
		text, err := c.sess.CopyText()
		if err != nil {
			c.push(serverMessage{Type: "error", Message: err.Error()})
			return
		}
		c.push(serverMessage{Type: "copy", Text: text})

	default:
		c.push(serverMessage{Type: "error", Message: "unknown message type: " + msg.Type})
	}
}

// load claims a generation in arrival order and finishes the load in the
// background. The view is sent only while its generation is current.
func (c *liveClient) load(key string) {
	job := c.loader.Begin(c.ctx, c.sess, key)
	go func() {
		markup, err := c.loader.Run(job)
		switch {
		case errors.Is(err, session.ErrStale):
			return
		case errors.Is(err, session.ErrClosed):
			c.push(serverMessage{Type: "error", Message: "session expired, reload the page", Fatal: true})
			return
		}
		c.push(serverMessage{Type: "view", Gen: job.Gen, HTML: markup})
		if err != nil {
			c.push(serverMessage{Type: "error", Gen: job.Gen, Message: err.Error()})
		}
	}()
}

func (c *liveClient) push(msg serverMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.log.Error("marshal message", "error", err)
		return
	}
	select {
	case c.send <- data:
	case <-c.done:
	}
}

func (c *liveClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case data := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
