package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flight-dynamics/internal/sim"
)

type fakeSim struct {
	mu     sync.Mutex
	cmds   []sim.Command
	state  sim.AircraftState
	err    error
	states chan sim.AircraftState
}

func newFakeSim() *fakeSim {
	return &fakeSim{
		state:  sim.AircraftState{Aircraft: "test-1", Throttle: 25},
		states: make(chan sim.AircraftState, 8),
	}
}

func (f *fakeSim) Submit(cmd sim.Command) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cmds = append(f.cmds, cmd)
}

func (f *fakeSim) GetState(ctx context.Context) (sim.AircraftState, error) {
	return f.state, f.err
}

func (f *fakeSim) Subscribe(ctx context.Context) (<-chan sim.AircraftState, func()) {
	return f.states, func() {}
}

func (f *fakeSim) commands() []sim.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sim.Command(nil), f.cmds...)
}

func newTestServer(f *fakeSim) *Server {
	return NewServer(f, zerolog.Nop())
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	rec := do(t, newTestServer(newFakeSim()), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok\n", rec.Body.String())
}

func TestState(t *testing.T) {
	f := newFakeSim()
	rec := do(t, newTestServer(f), http.MethodGet, "/state", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got sim.AircraftState
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "test-1", got.Aircraft)
	assert.Equal(t, 25.0, got.Throttle)
}

func TestState_Error(t *testing.T) {
	f := newFakeSim()
	f.err = errors.New("engine busy")

	rec := do(t, newTestServer(f), http.MethodGet, "/state", "")
	assert.Equal(t, http.StatusRequestTimeout, rec.Code)
	assert.Contains(t, rec.Body.String(), "engine busy")
}

func TestCommands(t *testing.T) {
	tests := []struct {
		name   string
		method string
		path   string
		body   string
		code   int
		want   sim.Command
	}{
		{
			name: "controls", method: http.MethodPost, path: "/command/controls",
			body: `{"roll":0.5,"pitch":-0.25,"yaw":1}`, code: http.StatusOK,
			want: sim.ControlsCommand{Roll: 0.5, Pitch: -0.25, Yaw: 1},
		},
		{
			name: "throttle steps", method: http.MethodPost, path: "/command/throttle",
			body: `{"steps":-3}`, code: http.StatusOK,
			want: sim.ThrottleCommand{Steps: -3},
		},
		{
			name: "throttle percent", method: http.MethodPost, path: "/command/throttle",
			body: `{"percent":65}`, code: http.StatusOK,
			want: sim.SetThrottleCommand{Percent: 65},
		},
		{
			name: "throttle both", method: http.MethodPost, path: "/command/throttle",
			body: `{"steps":1,"percent":65}`, code: http.StatusBadRequest,
		},
		{
			name: "throttle neither", method: http.MethodPost, path: "/command/throttle",
			body: `{}`, code: http.StatusBadRequest,
		},
		{
			name: "stop", method: http.MethodPost, path: "/command/stop",
			code: http.StatusOK, want: sim.StopCommand{},
		},
		{
			name: "reset", method: http.MethodPost, path: "/command/reset",
			code: http.StatusOK, want: sim.ResetCommand{},
		},
		{
			name: "controls bad json", method: http.MethodPost, path: "/command/controls",
			body: `{"roll":`, code: http.StatusBadRequest,
		},
		{
			name: "controls wrong method", method: http.MethodGet, path: "/command/controls",
			code: http.StatusMethodNotAllowed,
		},
		{
			name: "reset wrong method", method: http.MethodGet, path: "/command/reset",
			code: http.StatusMethodNotAllowed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeSim()
			rec := do(t, newTestServer(f), tt.method, tt.path, tt.body)
			require.Equal(t, tt.code, rec.Code, rec.Body.String())

			cmds := f.commands()
			if tt.want == nil {
				assert.Empty(t, cmds)
				return
			}
			require.Len(t, cmds, 1)
			assert.Equal(t, tt.want.Type(), cmds[0].Type())
			assert.False(t, cmds[0].ReceivedAt().IsZero())
			assert.Equal(t, tt.want, withoutTime(cmds[0]))

			var resp map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, "accepted", resp["status"])
			assert.Equal(t, string(tt.want.Type()), resp["type"])
		})
	}
}

// withoutTime zeroes the receive time so commands compare by payload.
func withoutTime(c sim.Command) sim.Command {
	switch v := c.(type) {
	case sim.ControlsCommand:
		v.At = time.Time{}
		return v
	case sim.ThrottleCommand:
		v.At = time.Time{}
		return v
	case sim.SetThrottleCommand:
		v.At = time.Time{}
		return v
	case sim.StopCommand:
		v.At = time.Time{}
		return v
	case sim.ResetCommand:
		v.At = time.Time{}
		return v
	}
	return c
}

func TestStreamSSE(t *testing.T) {
	f := newFakeSim()
	srv := httptest.NewServer(newTestServer(f).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/stream")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	f.states <- sim.AircraftState{Aircraft: "test-1", Tick: 7}

	r := bufio.NewReader(resp.Body)
	var event, data string
	for data == "" {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		switch {
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event: "))
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimSpace(strings.TrimPrefix(line, "data: "))
		}
	}

	assert.Equal(t, "state", event)
	var st sim.AircraftState
	require.NoError(t, json.Unmarshal([]byte(data), &st))
	assert.Equal(t, uint64(7), st.Tick)
}

func TestStreamSSE_WrongMethod(t *testing.T) {
	rec := do(t, newTestServer(newFakeSim()), http.MethodPost, "/stream", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

type wsFrame struct {
	Type  string             `json:"type"`
	Data  *sim.AircraftState `json:"data"`
	Error string             `json:"error"`
}

func dialWS(t *testing.T, f *fakeSim) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(newTestServer(f).Handler())
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestStreamWS_PushesState(t *testing.T) {
	f := newFakeSim()
	conn := dialWS(t, f)

	f.states <- sim.AircraftState{Aircraft: "test-1", Tick: 3, HUDText: "Throttle: 0%"}

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var frame wsFrame
	require.NoError(t, conn.ReadJSON(&frame))

	assert.Equal(t, MessageTypeState, frame.Type)
	require.NotNil(t, frame.Data)
	assert.Equal(t, uint64(3), frame.Data.Tick)
	assert.Equal(t, "Throttle: 0%", frame.Data.HUDText)
}

func TestStreamWS_Commands(t *testing.T) {
	f := newFakeSim()
	conn := dialWS(t, f)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "controls", "roll": -0.5, "pitch": 0.1}))
	require.NoError(t, conn.WriteJSON(map[string]any{"type": "throttle", "percent": 80}))
	require.NoError(t, conn.WriteJSON(map[string]any{"type": "throttle", "steps": 2}))
	require.NoError(t, conn.WriteJSON(map[string]any{"type": "reset"}))

	require.Eventually(t, func() bool { return len(f.commands()) == 4 }, 2*time.Second, 10*time.Millisecond)

	cmds := f.commands()
	assert.Equal(t, sim.ControlsCommand{Roll: -0.5, Pitch: 0.1}, withoutTime(cmds[0]))
	assert.Equal(t, sim.SetThrottleCommand{Percent: 80}, withoutTime(cmds[1]))
	assert.Equal(t, sim.ThrottleCommand{Steps: 2}, withoutTime(cmds[2]))
	assert.Equal(t, sim.ResetCommand{}, withoutTime(cmds[3]))
}

func TestStreamWS_RejectsBadMessages(t *testing.T) {
	tests := []struct {
		name string
		msg  string
		want string
	}{
		{name: "unknown type", msg: `{"type":"barrel-roll"}`, want: "unknown message type: barrel-roll"},
		{name: "invalid json", msg: `{"type":`, want: "invalid json"},
		{name: "throttle without value", msg: `{"type":"throttle"}`, want: errThrottleBody.Error()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeSim()
			conn := dialWS(t, f)

			require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(tt.msg)))
			require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

			var frame wsFrame
			require.NoError(t, conn.ReadJSON(&frame))
			assert.Equal(t, MessageTypeError, frame.Type)
			assert.Equal(t, tt.want, frame.Error)
			assert.Empty(t, f.commands())
		})
	}
}
