package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"flight-dynamics/internal/sim"
)

// Simulator is the part of the engine the API drives.
type Simulator interface {
	Submit(cmd sim.Command)
	GetState(ctx context.Context) (sim.AircraftState, error)
	Subscribe(ctx context.Context) (<-chan sim.AircraftState, func())
}

type Server struct {
	eng      Simulator
	mux      *http.ServeMux
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

func NewServer(eng Simulator, log zerolog.Logger) *Server {
	s := &Server{
		eng: eng,
		mux: http.NewServeMux(),
		log: log.With().Str("component", "api").Logger(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler { return s.mux }

func (s *Server) routes() {
	s.mux.HandleFunc("/health", s.health)
	s.mux.HandleFunc("/state", s.state)

	s.mux.HandleFunc("/command/controls", s.controlsCmd)
	s.mux.HandleFunc("/command/throttle", s.throttleCmd)
	s.mux.HandleFunc("/command/stop", s.stopCmd)
	s.mux.HandleFunc("/command/reset", s.resetCmd)

	s.mux.HandleFunc("/stream", s.streamSSE)
	s.mux.HandleFunc("/ws", s.streamWS)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Server) state(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	st, err := s.eng.GetState(ctx)
	if err != nil {
		http.Error(w, err.Error(), http.StatusRequestTimeout)
		return
	}
	writeJSON(w, st)
}

func (s *Server) controlsCmd(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}

	var body controlsBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	s.eng.Submit(body.command(time.Now()))
	writeJSON(w, map[string]any{"status": "accepted", "type": sim.CmdControls})
}

func (s *Server) throttleCmd(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}

	var body throttleBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	cmd, err := body.command(time.Now())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.eng.Submit(cmd)
	writeJSON(w, map[string]any{"status": "accepted", "type": cmd.Type()})
}

func (s *Server) stopCmd(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}
	s.eng.Submit(sim.StopCommand{At: time.Now()})
	writeJSON(w, map[string]any{"status": "accepted", "type": sim.CmdStop})
}

func (s *Server) resetCmd(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}
	s.eng.Submit(sim.ResetCommand{At: time.Now()})
	writeJSON(w, map[string]any{"status": "accepted", "type": sim.CmdReset})
}

func (s *Server) streamSSE(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "GET only", http.StatusMethodNotAllowed)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ctx := r.Context()
	ch, unsub := s.eng.Subscribe(ctx)
	defer unsub()

	fmt.Fprintf(w, ": connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-ctx.Done():
			return
		case st, ok := <-ch:
			if !ok {
				return
			}
			b, err := json.Marshal(st)
			if err != nil {
				s.log.Error().Err(err).Msg("encoding state")
				return
			}
			fmt.Fprintf(w, "event: state\n")
			fmt.Fprintf(w, "data: %s\n\n", b)
			flusher.Flush()
		}
	}
}

type controlsBody struct {
	Roll  float64 `json:"roll"`
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
}

func (b controlsBody) command(at time.Time) sim.Command {
	return sim.ControlsCommand{At: at, Roll: b.Roll, Pitch: b.Pitch, Yaw: b.Yaw}
}

// throttleBody carries exactly one of a relative step count or an absolute percent.
type throttleBody struct {
	Steps   *float64 `json:"steps,omitempty"`
	Percent *float64 `json:"percent,omitempty"`
}

var errThrottleBody = errors.New("exactly one of steps or percent required")

func (b throttleBody) command(at time.Time) (sim.Command, error) {
	switch {
	case b.Steps != nil && b.Percent == nil:
		return sim.ThrottleCommand{At: at, Steps: *b.Steps}, nil
	case b.Percent != nil && b.Steps == nil:
		return sim.SetThrottleCommand{At: at, Percent: *b.Percent}, nil
	default:
		return nil, errThrottleBody
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
