package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"flight-dynamics/internal/sim"
)

const (
	MessageTypeState    = "state"
	MessageTypeError    = "error"
	MessageTypeControls = "controls"
	MessageTypeThrottle = "throttle"
	MessageTypeStop     = "stop"
	MessageTypeReset    = "reset"

	wsWriteWait = 5 * time.Second
)

// wsOut is a server to client frame.
type wsOut struct {
	Type  string             `json:"type"`
	Data  *sim.AircraftState `json:"data,omitempty"`
	Error string             `json:"error,omitempty"`
}

// wsIn is a client to server frame. Fields not used by Type are ignored.
type wsIn struct {
	Type string `json:"type"`
	controlsBody
	throttleBody
}

func (s *Server) streamWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	log := s.log.With().Str("remote", conn.RemoteAddr().String()).Logger()
	log.Info().Msg("websocket client connected")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	ch, unsub := s.eng.Subscribe(ctx)
	defer unsub()

	// errors from the reader go back through the writer, the connection's only writer
	replies := make(chan wsOut, 8)

	go func() {
		defer cancel()
		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					log.Debug().Err(err).Msg("websocket read ended")
				}
				return
			}
			if msg, ok := s.handleWSMessage(raw); !ok {
				select {
				case replies <- msg:
				default:
				}
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("websocket client disconnected")
			return
		case msg := <-replies:
			if err := writeWS(conn, msg); err != nil {
				return
			}
		case st, ok := <-ch:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "simulation stopped"),
					time.Now().Add(wsWriteWait))
				return
			}
			if err := writeWS(conn, wsOut{Type: MessageTypeState, Data: &st}); err != nil {
				log.Debug().Err(err).Msg("websocket write failed")
				return
			}
		}
	}
}

// handleWSMessage submits the command carried by raw. It returns an error frame
// and false when the message is rejected.
func (s *Server) handleWSMessage(raw []byte) (wsOut, bool) {
	var in wsIn
	if err := json.Unmarshal(raw, &in); err != nil {
		return wsOut{Type: MessageTypeError, Error: "invalid json"}, false
	}

	now := time.Now()
	switch in.Type {
	case MessageTypeControls:
		s.eng.Submit(in.controlsBody.command(now))
	case MessageTypeThrottle:
		cmd, err := in.throttleBody.command(now)
		if err != nil {
			return wsOut{Type: MessageTypeError, Error: err.Error()}, false
		}
		s.eng.Submit(cmd)
	case MessageTypeStop:
		s.eng.Submit(sim.StopCommand{At: now})
	case MessageTypeReset:
		s.eng.Submit(sim.ResetCommand{At: now})
	default:
		return wsOut{Type: MessageTypeError, Error: "unknown message type: " + in.Type}, false
	}
	return wsOut{}, true
}

func writeWS(conn *websocket.Conn, msg wsOut) error {
	if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
		return err
	}
	return conn.WriteJSON(msg)
}
