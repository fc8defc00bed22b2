package embed

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
)

const (
	// FrameID is the element id of the rendered iframe.
	FrameID = "frame"
	// TargetOrigin is the origin the context is posted to.
	TargetOrigin = "*"

	DefaultDelay = time.Second
)

var ErrHandshakeTimeout = errors.New("embedded game did not report loaded in time")

type State int

const (
	Unmounted State = iota
	Waiting
	Listening
	Handshaked
	Failed
)

func (s State) String() string {
	switch s {
	case Unmounted:
		return "unmounted"
	case Waiting:
		return "waiting"
	case Listening:
		return "listening"
	case Handshaked:
		return "handshaked"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Event is a message event received by the host page.
type Event struct {
	Origin string
	Data   json.RawMessage
}

// Frame describes the iframe to render.
type Frame struct {
	ID  string
	Src string
}

// Window is the page the host is mounted in.
type Window interface {
	Origin() string
	// Listen registers fn for message events and returns its removal.
	Listen(fn func(Event)) (remove func())
	Render(frame Frame) error
	Post(frameID, data, targetOrigin string) error
	Fail(reason string) error
}

type Options struct {
	Delay   time.Duration
	Timeout time.Duration
	Format  Format
	Clock   clock.Clock
	Logger  *zap.SugaredLogger
}

// Host renders the game iframe and hands the session context to it once the
// game reports it has loaded.
type Host struct {
	mu      sync.Mutex
	id      string
	ctx     Context
	window  Window
	options Options

	state   State
	err     error
	delay   *clock.Timer
	timeout *clock.Timer
	remove  func()
	done    chan struct{}
}

func NewHost(id string, ctx Context, window Window, options Options) *Host {
	if options.Clock == nil {
		options.Clock = clock.New()
	}
	if options.Logger == nil {
		options.Logger = zap.NewNop().Sugar()
	}
	if options.Format == "" {
		options.Format = FormatLegacy
	}
	if options.Delay < 0 {
		options.Delay = 0
	}
	return &Host{
		id:      id,
		ctx:     ctx,
		window:  window,
		options: options,
		done:    make(chan struct{}),
	}
}

func (h *Host) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Err is ErrHandshakeTimeout when the host failed.
func (h *Host) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

// Done is closed when the host reaches a terminal state or is unmounted.
func (h *Host) Done() <-chan struct{} {
	return h.done
}

// Mount starts the delay before listening. A host mounts at most once.
func (h *Host) Mount() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state != Unmounted || h.closed() {
		return
	}
	h.state = Waiting
	h.delay = h.options.Clock.AfterFunc(h.options.Delay, h.listen)
}

// Unmount stops pending timers and removes the listener.
func (h *Host) Unmount() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state == Waiting || h.state == Listening {
		h.state = Unmounted
	}
	h.stop()
}

func (h *Host) listen() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state != Waiting {
		return
	}
	h.state = Listening
	h.remove = h.window.Listen(h.handle)

	src := Resolve(h.id)
	if src == "" {
		h.options.Logger.Debugf("[host] no bundle for %q, iframe not rendered", h.id)
	} else if err := h.window.Render(Frame{ID: FrameID, Src: src}); err != nil {
		h.options.Logger.Warnf("[host] render error: %s", err)
	}

	if h.options.Timeout > 0 {
		h.timeout = h.options.Clock.AfterFunc(h.options.Timeout, h.expire)
	}
}

func (h *Host) handle(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state != Listening {
		return
	}
	if ev.Origin == h.window.Origin() {
		return
	}
	loaded, err := IsLoaded(ev.Data)
	if err != nil {
		h.options.Logger.Debugf("[host] ignoring message from %s: %s", ev.Origin, err)
		return
	}
	if !loaded {
		return
	}

	data, err := h.options.Format.Encode(h.ctx)
	if err != nil {
		h.options.Logger.Errorf("[host] encode context error: %s", err)
		return
	}
	h.state = Handshaked
	if err := h.window.Post(FrameID, data, TargetOrigin); err != nil {
		h.options.Logger.Warnf("[host] post error: %s", err)
	}
	h.stop()
}

func (h *Host) expire() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state != Listening {
		return
	}
	h.state = Failed
	h.err = ErrHandshakeTimeout
	if err := h.window.Fail(ErrHandshakeTimeout.Error()); err != nil {
		h.options.Logger.Warnf("[host] fail error: %s", err)
	}
	h.stop()
}

// stop must be called with mu held.
func (h *Host) stop() {
	if h.delay != nil {
		h.delay.Stop()
		h.delay = nil
	}
	if h.timeout != nil {
		h.timeout.Stop()
		h.timeout = nil
	}
	if h.remove != nil {
		h.remove()
		h.remove = nil
	}
	if !h.closed() {
		close(h.done)
	}
}

func (h *Host) closed() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}
