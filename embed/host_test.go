package embed

import (
	"encoding/json"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pageOrigin = "https://fabricadejogos.portaleducacional.tec.br"

type post struct {
	frameID string
	data    string
	target  string
}

type fakeWindow struct {
	mu        sync.Mutex
	next      int
	listeners map[int]func(Event)
	frames    []Frame
	posts     []post
	failures  []string
}

func newFakeWindow() *fakeWindow {
	return &fakeWindow{listeners: map[int]func(Event){}}
}

func (w *fakeWindow) Origin() string { return pageOrigin }

func (w *fakeWindow) Listen(fn func(Event)) func() {
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

func (w *fakeWindow) Render(frame Frame) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.frames = append(w.frames, frame)
	return nil
}

func (w *fakeWindow) Post(frameID, data, target string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.posts = append(w.posts, post{frameID, data, target})
	return nil
}

func (w *fakeWindow) Fail(reason string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.failures = append(w.failures, reason)
	return nil
}

func (w *fakeWindow) dispatch(origin, data string) {
	w.mu.Lock()
	fns := make([]func(Event), 0, len(w.listeners))
	for _, fn := range w.listeners {
		fns = append(fns, fn)
	}
	w.mu.Unlock()
	for _, fn := range fns {
		fn(Event{Origin: origin, Data: json.RawMessage(data)})
	}
}

func (w *fakeWindow) listenerCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.listeners)
}

func (w *fakeWindow) snapshot() ([]Frame, []post, []string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]Frame(nil), w.frames...), append([]post(nil), w.posts...), append([]string(nil), w.failures...)
}

func testContext() Context {
	ctx := FromQuery(url.Values{"token": {"tok"}, "origin": {"https://escola.example.com"}})
	ctx.GameAddress = pageOrigin
	ctx.Slug = "capitais-0a1b2c3d"
	return ctx
}

func mountedHost(t *testing.T, id string, w Window, mock *clock.Mock, opts Options) *Host {
	t.Helper()
	opts.Clock = mock
	if opts.Delay == 0 {
		opts.Delay = DefaultDelay
	}
	h := NewHost(id, testContext(), w, opts)
	h.Mount()
	t.Cleanup(h.Unmount)
	return h
}

func waitState(t *testing.T, h *Host, want State) {
	t.Helper()
	require.Eventually(t, func() bool { return h.State() == want }, time.Second, time.Millisecond)
}

func TestResolve(t *testing.T) {
	for _, id := range []string{"quiz", "wordSearch", "anagram", "trueOrFalse", "matchUp", "memoryGame"} {
		assert.NotEmpty(t, Resolve(id), id)
	}
	assert.Equal(t,
		"https://nyc3.digitaloceanspaces.com/metech/API-ATUALIZADA/JogoDaMemória%20%281%29/index.html",
		Resolve("memoryGame"))
	assert.Empty(t, Resolve("groupSort"))
	assert.Empty(t, Resolve("Quiz"))
	assert.Empty(t, Resolve(""))
}

func TestHost_RendersAfterDelay(t *testing.T) {
	w := newFakeWindow()
	mock := clock.NewMock()
	h := mountedHost(t, "quiz", w, mock, Options{})

	assert.Equal(t, Waiting, h.State())
	mock.Add(999 * time.Millisecond)
	frames, _, _ := w.snapshot()
	assert.Empty(t, frames)
	assert.Zero(t, w.listenerCount())

	mock.Add(time.Millisecond)
	waitState(t, h, Listening)
	frames, posts, _ := w.snapshot()
	require.Len(t, frames, 1)
	assert.Equal(t, Frame{ID: "frame", Src: Resolve("quiz")}, frames[0])
	assert.Empty(t, posts)
	assert.Equal(t, 1, w.listenerCount())
}

func TestHost_UnknownIdentifierRendersNothing(t *testing.T) {
	w := newFakeWindow()
	mock := clock.NewMock()
	h := mountedHost(t, "groupSort", w, mock, Options{})

	mock.Add(DefaultDelay)
	waitState(t, h, Listening)
	frames, _, _ := w.snapshot()
	assert.Empty(t, frames)
}

func TestHost_SameOriginIgnored(t *testing.T) {
	w := newFakeWindow()
	mock := clock.NewMock()
	h := mountedHost(t, "quiz", w, mock, Options{})
	mock.Add(DefaultDelay)
	waitState(t, h, Listening)

	w.dispatch(pageOrigin, `{"loaded":true}`)
	w.dispatch("https://bundle.example.com", `{"loaded":false}`)
	w.dispatch("https://bundle.example.com", `"loaded"`)
	w.dispatch("https://bundle.example.com", `{"loaded":`)

	_, posts, _ := w.snapshot()
	assert.Empty(t, posts)
	assert.Equal(t, Listening, h.State())
}

func TestHost_HandshakeFlatByDefault(t *testing.T) {
	w := newFakeWindow()
	mock := clock.NewMock()
	h := mountedHost(t, "quiz", w, mock, Options{})
	mock.Add(DefaultDelay)
	waitState(t, h, Listening)

	w.dispatch("https://nyc3.digitaloceanspaces.com", `{"loaded":true}`)
	w.dispatch("https://nyc3.digitaloceanspaces.com", `{"loaded":true}`)

	assert.Equal(t, Handshaked, h.State())
	_, posts, _ := w.snapshot()
	require.Len(t, posts, 1)
	assert.Equal(t, "frame", posts[0].frameID)
	assert.Equal(t, "*", posts[0].target)
	assert.JSONEq(t, `{
		"user_token": "tok",
		"origin": "https://escola.example.com",
		"game_address": "https://fabricadejogos.portaleducacional.tec.br",
		"slug": "capitais-0a1b2c3d",
		"aula_id": 0,
		"conteudo_id": 0
	}`, posts[0].data)
	assert.Zero(t, w.listenerCount())
	<-h.Done()
}

func TestHost_HandshakeEnvelope(t *testing.T) {
	w := newFakeWindow()
	mock := clock.NewMock()
	h := mountedHost(t, "anagram", w, mock, Options{Format: FormatEnvelope})
	mock.Add(DefaultDelay)
	waitState(t, h, Listening)

	w.dispatch("https://nyc3.digitaloceanspaces.com", `{"v":1,"kind":"loaded"}`)

	_, posts, _ := w.snapshot()
	require.Len(t, posts, 1)
	var env Envelope
	require.NoError(t, json.Unmarshal([]byte(posts[0].data), &env))
	assert.Equal(t, 1, env.V)
	assert.Equal(t, "context", env.Kind)

	var ctx map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Payload, &ctx))
	assert.Equal(t, "tok", ctx["user_token"])
	assert.Equal(t, "capitais-0a1b2c3d", ctx["slug"])
}

func TestHost_QueryIDs(t *testing.T) {
	ctx := FromQuery(url.Values{"aula_id": {"42"}})
	data, err := FormatLegacy.Encode(ctx)
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(data), &got))
	assert.Equal(t, "42", got["aula_id"])
	assert.Equal(t, float64(0), got["conteudo_id"])

	ctx = FromQuery(url.Values{"conteudo_id": {""}})
	data, err = FormatLegacy.Encode(ctx)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(data), &got))
	assert.Equal(t, "", got["conteudo_id"])
}

func TestHost_LoadedBeforeDelayIgnored(t *testing.T) {
	w := newFakeWindow()
	mock := clock.NewMock()
	h := mountedHost(t, "quiz", w, mock, Options{})

	w.dispatch("https://nyc3.digitaloceanspaces.com", `{"loaded":true}`)
	mock.Add(DefaultDelay)
	waitState(t, h, Listening)

	_, posts, _ := w.snapshot()
	assert.Empty(t, posts)
}

func TestHost_UnmountBeforeDelay(t *testing.T) {
	w := newFakeWindow()
	mock := clock.NewMock()
	h := mountedHost(t, "quiz", w, mock, Options{})

	h.Unmount()
	mock.Add(2 * DefaultDelay)
	assert.Equal(t, Unmounted, h.State())
	frames, _, _ := w.snapshot()
	assert.Empty(t, frames)
	assert.Zero(t, w.listenerCount())

	h.Mount()
	assert.Equal(t, Unmounted, h.State())
}

func TestHost_UnmountRemovesListener(t *testing.T) {
	w := newFakeWindow()
	mock := clock.NewMock()
	h := mountedHost(t, "quiz", w, mock, Options{})
	mock.Add(DefaultDelay)
	waitState(t, h, Listening)
	require.Equal(t, 1, w.listenerCount())

	h.Unmount()
	assert.Zero(t, w.listenerCount())
	w.dispatch("https://nyc3.digitaloceanspaces.com", `{"loaded":true}`)
	_, posts, _ := w.snapshot()
	assert.Empty(t, posts)
}

func TestHost_TwoHostsTwoListeners(t *testing.T) {
	w := newFakeWindow()
	mock := clock.NewMock()
	first := mountedHost(t, "quiz", w, mock, Options{Format: FormatLegacy})
	second := mountedHost(t, "quiz", w, mock, Options{Format: FormatLegacy})
	mock.Add(DefaultDelay)
	waitState(t, first, Listening)
	waitState(t, second, Listening)
	assert.Equal(t, 2, w.listenerCount())

	w.dispatch("https://nyc3.digitaloceanspaces.com", `{"loaded":true}`)
	_, posts, _ := w.snapshot()
	assert.Len(t, posts, 2)
}

func TestHost_Timeout(t *testing.T) {
	w := newFakeWindow()
	mock := clock.NewMock()
	h := mountedHost(t, "quiz", w, mock, Options{Timeout: 30 * time.Second})
	mock.Add(DefaultDelay)
	waitState(t, h, Listening)

	mock.Add(30 * time.Second)
	waitState(t, h, Failed)
	assert.ErrorIs(t, h.Err(), ErrHandshakeTimeout)
	_, _, failures := w.snapshot()
	assert.Len(t, failures, 1)
	assert.Zero(t, w.listenerCount())

	w.dispatch("https://nyc3.digitaloceanspaces.com", `{"loaded":true}`)
	_, posts, _ := w.snapshot()
	assert.Empty(t, posts)
}

func TestHost_NoTimeoutWaitsIndefinitely(t *testing.T) {
	w := newFakeWindow()
	mock := clock.NewMock()
	h := mountedHost(t, "quiz", w, mock, Options{})
	mock.Add(DefaultDelay)
	waitState(t, h, Listening)

	mock.Add(24 * time.Hour)
	assert.Equal(t, Listening, h.State())
}

func TestIsLoaded(t *testing.T) {
	tests := []struct {
		in      string
		want    bool
		wantErr bool
	}{
		{`{"loaded":true}`, true, false},
		{`{"loaded":1}`, true, false},
		{`{"loaded":"yes"}`, true, false},
		{`{"loaded":0}`, false, false},
		{`{"loaded":null}`, false, false},
		{`{}`, false, false},
		{`{"v":1,"kind":"loaded"}`, true, false},
		{`{"v":1,"kind":"score"}`, false, false},
		{`{"v":2,"kind":"loaded"}`, false, true},
		{`{"v":"x","kind":"loaded"}`, false, true},
		{`{"loaded":true,"v":3}`, true, false},
		{`{"loaded":true,"v":"x"}`, true, false},
		{`{"loaded":false,"v":1,"kind":"loaded"}`, false, false},
		{`"{\"loaded\":true}"`, false, false},
		{`[1]`, false, false},
		{``, false, false},
		{`{"loaded"`, false, true},
	}
	for _, tt := range tests {
		got, err := IsLoaded(json.RawMessage(tt.in))
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		assert.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}
