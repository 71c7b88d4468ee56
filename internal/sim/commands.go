package sim

import "time"

type CommandType string

const (
	CmdControls    CommandType = "controls"
	CmdThrottle    CommandType = "throttle"
	CmdSetThrottle CommandType = "set-throttle"
	CmdStop        CommandType = "stop"
	CmdReset       CommandType = "reset"
)

type Command interface {
	Type() CommandType
	ReceivedAt() time.Time
}

// ControlsCommand sets the stick and pedal deflections. Values are clamped to [-1, 1].
type ControlsCommand struct {
	At    time.Time
	Roll  float64 `json:"roll"`
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
}

func (c ControlsCommand) Type() CommandType     { return CmdControls }
func (c ControlsCommand) ReceivedAt() time.Time { return c.At }

// ThrottleCommand moves the throttle by Steps increments; negative steps close it.
type ThrottleCommand struct {
	At    time.Time
	Steps float64 `json:"steps"`
}

func (c ThrottleCommand) Type() CommandType     { return CmdThrottle }
func (c ThrottleCommand) ReceivedAt() time.Time { return c.At }

// SetThrottleCommand sets the throttle to an absolute percent.
type SetThrottleCommand struct {
	At      time.Time
	Percent float64 `json:"percent"`
}

func (c SetThrottleCommand) Type() CommandType     { return CmdSetThrottle }
func (c SetThrottleCommand) ReceivedAt() time.Time { return c.At }

// StopCommand closes the throttle and centres the controls.
type StopCommand struct{ At time.Time }

func (c StopCommand) Type() CommandType     { return CmdStop }
func (c StopCommand) ReceivedAt() time.Time { return c.At }

// ResetCommand respawns the aircraft at its start pose.
type ResetCommand struct{ At time.Time }

func (c ResetCommand) Type() CommandType     { return CmdReset }
func (c ResetCommand) ReceivedAt() time.Time { return c.At }
