package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/bitterfly/go-chaos/fabrica/database"
	"github.com/bitterfly/go-chaos/fabrica/embed"
	"github.com/bitterfly/go-chaos/fabrica/server/message"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const writeWait = 10 * time.Second

// wsWindow is the host page on the other end of an embed bridge.
type wsWindow struct {
	conn    *websocket.Conn
	origin  string
	logger  *zap.SugaredLogger
	writeMu sync.Mutex

	mu        sync.Mutex
	next      int
	listeners map[int]func(embed.Event)
}

func newWSWindow(conn *websocket.Conn, origin string, logger *zap.SugaredLogger) *wsWindow {
	return &wsWindow{
		conn:      conn,
		origin:    origin,
		logger:    logger,
		listeners: make(map[int]func(embed.Event)),
	}
}

func (w *wsWindow) Origin() string {
	return w.origin
}

func (w *wsWindow) Listen(fn func(embed.Event)) func() {
	w.mu.Lock()
	defer w.mu.Unlock()
	id := w.next
	w.next++
	w.listeners[id] = fn
	return func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		delete(w.listeners, id)
	}
}

func (w *wsWindow) write(msg message.Message) error {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()
	if err := w.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return w.conn.WriteJSON(msg)
}

func (w *wsWindow) Render(frame embed.Frame) error {
	return w.write(message.Message{Type: message.Frame, ID: frame.ID, Src: frame.Src})
}

func (w *wsWindow) Post(frameID, data, targetOrigin string) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return w.write(message.Message{Type: message.Post, ID: frameID, Target: targetOrigin, Data: raw})
}

func (w *wsWindow) Fail(reason string) error {
	return w.write(message.Message{Type: message.Error, Msg: reason})
}

func (w *wsWindow) close() {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()
	_ = w.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
	w.conn.Close()
}

func (w *wsWindow) dispatch(ev embed.Event) {
	w.mu.Lock()
	fns := make([]func(embed.Event), 0, len(w.listeners))
	for _, fn := range w.listeners {
		fns = append(fns, fn)
	}
	w.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

// readLoop relays page events until the connection closes.
func (w *wsWindow) readLoop() {
	for {
		msg := message.Message{}
		if err := w.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				w.logger.Debugf("[readLoop] %s", err)
			}
			return
		}
		if msg.Type != message.Event {
			w.logger.Debugf("[readLoop] ignoring %q frame", msg.Type)
			continue
		}
		w.dispatch(embed.Event{Origin: msg.Origin, Data: msg.Data})
	}
}

func (s *Server) handleEmbed(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindVar(w, r)
	if !ok {
		return
	}
	slug, ok := slugVar(w, r)
	if !ok {
		return
	}
	obj, derr := database.GetGameBySlug(s.DB, kind, slug)
	if derr != nil {
		s.writeDatabaseError(w, "handleEmbed", derr)
		return
	}

	ctx := embed.FromQuery(r.URL.Query())
	ctx.GameAddress = s.Config.GameAddress
	ctx.Slug = obj.Slug

	ws, err := s.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.Logger.Warnf("[handleEmbed] Could not upgrade to ws: %s", err)
		return
	}

	window := newWSWindow(ws, r.Header.Get("Origin"), s.Logger)
	host := embed.NewHost(kind.EmbedID(), ctx, window, embed.Options{
		Delay:   time.Duration(s.Config.Handshake.Delay),
		Timeout: time.Duration(s.Config.Handshake.Timeout),
		Format:  embed.Format(s.Config.Handshake.Format),
		Clock:   s.Clock,
		Logger:  s.Logger,
	})
	host.Mount()
	go func() {
		<-host.Done()
		window.close()
	}()

	window.readLoop()
	host.Unmount()
	s.Logger.Debugf("[handleEmbed] %s %s finished in state %s", kind, obj.Slug, host.State())
}
