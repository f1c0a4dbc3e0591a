package presence_test

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/presencechat/internal/presence"
)

var errSendFailed = errors.New("send buffer full")

// fakeSocket records every frame it is asked to send and lets tests fire
// inbound events and connection loss by hand.
type fakeSocket struct {
	id string

	mu       sync.Mutex
	frames   []presence.Envelope
	fail     bool
	handlers map[string]presence.Handler
	onClose  func()
}

func newFakeSocket(id string) *fakeSocket {
	return &fakeSocket{id: id, handlers: make(map[string]presence.Handler)}
}

func (s *fakeSocket) ID() string { return s.id }

func (s *fakeSocket) Send(payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errSendFailed
	}
	var env presence.Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return err
	}
	s.frames = append(s.frames, env)
	return nil
}

func (s *fakeSocket) OnMessage(event string, handler presence.Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[event] = handler
}

func (s *fakeSocket) OnClose(handler func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onClose = handler
}

func (s *fakeSocket) setFailing(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = fail
}

func (s *fakeSocket) emit(t *testing.T, event string, data any) {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)

	s.mu.Lock()
	handler, ok := s.handlers[event]
	s.mu.Unlock()
	require.True(t, ok, "no handler for %q", event)
	handler(raw)
}

func (s *fakeSocket) emitRaw(t *testing.T, event string, raw string) {
	t.Helper()
	s.mu.Lock()
	handler, ok := s.handlers[event]
	s.mu.Unlock()
	require.True(t, ok, "no handler for %q", event)
	handler(json.RawMessage(raw))
}

func (s *fakeSocket) drop() {
	s.mu.Lock()
	handler := s.onClose
	s.mu.Unlock()
	if handler != nil {
		handler()
	}
}

func (s *fakeSocket) received() []presence.Envelope {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]presence.Envelope(nil), s.frames...)
}

func (s *fakeSocket) receivedEvent(event string) []presence.Envelope {
	var out []presence.Envelope
	for _, env := range s.received() {
		if env.Event == event {
			out = append(out, env)
		}
	}
	return out
}

func (s *fakeSocket) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = nil
}

func decodeStatus(t *testing.T, env presence.Envelope) presence.StatusChange {
	t.Helper()
	var sc presence.StatusChange
	require.NoError(t, json.Unmarshal(env.Data, &sc))
	return sc
}

// recordingObserver keeps every transition in order.
type recordingObserver struct {
	mu          sync.Mutex
	transitions []presence.StatusChange
	relayed     map[string][2]int
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{relayed: make(map[string][2]int)}
}

func (o *recordingObserver) StatusChanged(id presence.Identity, status presence.Status) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.transitions = append(o.transitions, presence.StatusChange{UserID: id, Status: status})
}

func (o *recordingObserver) Relayed(event string, delivered bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	counts := o.relayed[event]
	if delivered {
		counts[0]++
	} else {
		counts[1]++
	}
	o.relayed[event] = counts
}

func (o *recordingObserver) history() []presence.StatusChange {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]presence.StatusChange(nil), o.transitions...)
}
