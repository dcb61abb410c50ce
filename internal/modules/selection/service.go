// README: Selection controller; marker tap handling, camera focus and the selection pulse.
package selection

import (
	"log"
	"sync"
	"time"

	"ridemap/internal/config"
	"ridemap/internal/modules/fleet"
	"ridemap/internal/modules/geo"
	"ridemap/internal/types"
)

const (
	// FocusSpanFactor frames a selected vehicle tighter than the default view.
	FocusSpanFactor = 0.5
	FocusAnimation  = 500 * time.Millisecond
)

// CameraFocus asks the map renderer to animate to Region over Animate.
type CameraFocus struct {
	Region  geo.Region
	Animate time.Duration
}

// Fleet is the read side of the vehicle fleet the controller resolves ids against.
type Fleet interface {
	Get(id types.ID) (fleet.Vehicle, bool)
}

// Hooks are invoked after the controller's state has changed.
type Hooks struct {
	OnSelect func(id types.ID) // empty id means cleared
	OnCamera func(CameraFocus)
	OnPulse  func(value float64)
}

type Controller struct {
	fleet    Fleet
	viewport geo.Viewport
	hooks    Hooks
	pulse    *Pulse

	mu       sync.Mutex
	selected types.ID
}

func NewController(f Fleet, viewport geo.Viewport, pulseCfg config.PulseConfig, hooks Hooks) *Controller {
	return &Controller{
		fleet:    f,
		viewport: viewport,
		hooks:    hooks,
		pulse:    NewPulse(pulseCfg, hooks.OnPulse),
	}
}

// Select makes id the selection, restarts the pulse and focuses the camera
// on the vehicle's current coordinate. Unknown ids are ignored.
func (c *Controller) Select(id types.ID) bool {
	v, ok := c.fleet.Get(id)
	if !ok {
		log.Printf("selection ignored: vehicle %s not in fleet", id)
		return false
	}

	c.mu.Lock()
	c.selected = id
	c.mu.Unlock()

	log.Printf("vehicle %s selected", id)

	if c.hooks.OnSelect != nil {
		c.hooks.OnSelect(id)
	}
	if c.hooks.OnCamera != nil {
		c.hooks.OnCamera(CameraFocus{
			Region:  c.viewport.For(v.Coordinate, FocusSpanFactor),
			Animate: FocusAnimation,
		})
	}
	c.pulse.Start()
	return true
}

// Clear drops the selection. The pulse is left to finish on its own.
func (c *Controller) Clear() {
	c.mu.Lock()
	if c.selected == "" {
		c.mu.Unlock()
		return
	}
	c.selected = ""
	c.mu.Unlock()

	log.Println("selection cleared")
	if c.hooks.OnSelect != nil {
		c.hooks.OnSelect("")
	}
}

// Selected resolves the selection against the fleet. A selection whose
// vehicle has left the fleet is cleared.
func (c *Controller) Selected() (fleet.Vehicle, bool) {
	c.mu.Lock()
	id := c.selected
	c.mu.Unlock()
	if id == "" {
		return fleet.Vehicle{}, false
	}
	if v, ok := c.fleet.Get(id); ok {
		return v, true
	}

	c.mu.Lock()
	vanished := c.selected == id
	if vanished {
		c.selected = ""
	}
	c.mu.Unlock()
	if vanished {
		log.Printf("selected vehicle %s left the fleet; selection cleared", id)
		if c.hooks.OnSelect != nil {
			c.hooks.OnSelect("")
		}
	}
	return fleet.Vehicle{}, false
}

func (c *Controller) SelectedID() types.ID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selected
}

func (c *Controller) Pulse() *Pulse { return c.pulse }

// Close cancels the pulse.
func (c *Controller) Close() {
	c.pulse.Cancel()
}
