package animation

import (
	"fmt"
	"time"

	"github.com/go-drift/lattice/pkg/core"
)

// Status is where a controller stands.
type Status int

const (
	// Dismissed is stopped at 0.
	Dismissed Status = iota
	// Forward is running toward 1.
	Forward
	// Reverse is running toward 0.
	Reverse
	// Completed is stopped at 1.
	Completed
)

func (s Status) String() string {
	switch s {
	case Dismissed:
		return "dismissed"
	case Forward:
		return "forward"
	case Reverse:
		return "reverse"
	case Completed:
		return "completed"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Controller moves a value between 0 and 1 over Duration, writing it to a
// StateCell on every tick. Writes happen on the UI goroutine inside the
// frame, before the build phase, so readers rebuild in the same frame.
type Controller struct {
	// Duration of a full 0 to 1 run. Partial runs scale with the distance.
	Duration time.Duration
	// Curve eases progress. Nil is Linear.
	Curve func(float64) float64

	value  *core.StateCell[float64]
	ticker *Ticker
	status Status
	from   float64
	to     float64
	span   time.Duration
}

// NewController returns a dismissed controller driving value.
func NewController(s *Scheduler, value *core.StateCell[float64], duration time.Duration) *Controller {
	c := &Controller{Duration: duration, value: value}
	c.ticker = s.NewTicker(c.tick)
	return c
}

// Value returns the current value.
func (c *Controller) Value() float64 { return c.value.Peek() }

// Status returns the controller's status.
func (c *Controller) Status() Status { return c.status }

// Forward runs the value toward 1.
func (c *Controller) Forward() { c.animateTo(1, Forward) }

// Reverse runs the value toward 0.
func (c *Controller) Reverse() { c.animateTo(0, Reverse) }

// Stop halts the controller at its current value. Stopped between the
// bounds, the status keeps the last direction.
func (c *Controller) Stop() {
	c.ticker.Stop()
	c.settle()
}

// Dispose stops the ticker. The cell stays owned by the caller.
func (c *Controller) Dispose() {
	c.ticker.Stop()
}

func (c *Controller) animateTo(target float64, status Status) {
	c.ticker.Stop()
	c.from = c.value.Peek()
	c.to = target
	dist := target - c.from
	if dist < 0 {
		dist = -dist
	}
	c.span = time.Duration(float64(c.Duration) * dist)
	if c.span <= 0 {
		c.value.Write(target)
		c.settle()
		return
	}
	c.status = status
	c.ticker.Start()
}

func (c *Controller) tick(elapsed time.Duration) {
	t := min(1, float64(elapsed)/float64(c.span))
	curve := c.Curve
	if curve == nil {
		curve = Linear
	}
	c.value.Write(c.from + (c.to-c.from)*curve(t))
	if t >= 1 {
		c.ticker.Stop()
		c.settle()
	}
}

// settle derives a resting status from the value.
func (c *Controller) settle() {
	switch v := c.value.Peek(); {
	case v >= 1:
		c.status = Completed
	case v <= 0:
		c.status = Dismissed
	}
}
