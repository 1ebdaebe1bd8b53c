package infusion

import (
	"fmt"
	"sync"
	"time"
)

// relayPulseWait bounds the pause between the "100" and "0" halves of
// a relay pulse. The correlator releases it as soon as the relay
// acknowledges, so the full wait only applies when the reply is lost.
const relayPulseWait = 250 * time.Millisecond

// Shade3Spec describes a composite shade's constituent device vids.
// All constituents must share one area; the builder enforces that
// before construction.
type Shade3Spec struct {
	Area int
	Name string

	// OpenVID and CloseVID are the relay loads that drive the shade.
	OpenVID  int
	CloseVID int

	// StopVID is the optional stop relay; zero when absent.
	StopVID int

	// IsOpenVID is the optional position sense contact; zero when
	// absent. When present it is the sole authority for the open
	// state.
	IsOpenVID int
}

// Shade3 is one logical window covering built from separate open,
// close, and optional stop relays plus an optional is-open sense
// contact. There is no addressable position device, so it has no
// queryable level: the cached open state is optimistic unless the
// sense contact exists.
type Shade3 struct {
	entityBase
	openVID   int
	closeVID  int
	stopVID   int
	isOpenVID int

	mu   sync.Mutex
	open bool

	waiters queryWaiter
}

// NewShade3 constructs and registers a composite shade. The open relay
// vid is the entity's primary id; every relay routes to the composite
// through the load table, and the sense contact through the button
// tables.
func (c *Client) NewShade3(spec Shade3Spec) (*Shade3, error) {
	if spec.OpenVID == 0 || spec.CloseVID == 0 {
		return nil, fmt.Errorf("infusion: composite shade %q: open and close relays are required", spec.Name)
	}
	s := &Shade3{
		entityBase: entityBase{client: c, vid: spec.OpenVID, area: spec.Area},
		openVID:    spec.OpenVID,
		closeVID:   spec.CloseVID,
		stopVID:    spec.StopVID,
		isOpenVID:  spec.IsOpenVID,
	}

	if err := c.register(s, spec.Name, CommandLoad); err != nil {
		return nil, err
	}
	constituents := []int{spec.CloseVID}
	if spec.StopVID != 0 {
		constituents = append(constituents, spec.StopVID)
	}
	for _, vid := range constituents {
		if err := c.registerConstituent(CommandLoad, vid, s); err != nil {
			return nil, err
		}
	}
	if spec.IsOpenVID != 0 {
		for _, t := range []CommandType{CommandButton, CommandLED} {
			if err := c.registerConstituent(t, spec.IsOpenVID, s); err != nil {
				return nil, err
			}
		}
	}
	return s, nil
}

// IsOpen returns the cached open state. Without a sense contact this
// is optimistic and can diverge from reality if a command is lost.
func (s *Shade3) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

// HasSenseContact reports whether an is-open contact drives the open
// state.
func (s *Shade3) HasSenseContact() bool { return s.isOpenVID != 0 }

// Open pulses the open relay.
func (s *Shade3) Open() error {
	if err := s.pulse(s.openVID); err != nil {
		return err
	}
	s.setOptimistic(true)
	return nil
}

// Close pulses the close relay.
func (s *Shade3) Close() error {
	if err := s.pulse(s.closeVID); err != nil {
		return err
	}
	s.setOptimistic(false)
	return nil
}

// Stop pulses the stop relay, when fitted.
func (s *Shade3) Stop() error {
	if s.stopVID == 0 {
		return nil
	}
	return s.pulse(s.stopVID)
}

// pulse drives one relay to 100 and back to 0 after a short pause
// gated by the correlator.
func (s *Shade3) pulse(vid int) error {
	ch := s.waiters.request(func() {
		_ = s.client.send("LOAD", vid, "100")
	})
	await(ch, relayPulseWait)
	return s.client.send("LOAD", vid, "0")
}

// setOptimistic updates the cached open state unless the sense contact
// is authoritative.
func (s *Shade3) setOptimistic(open bool) {
	if s.isOpenVID != 0 {
		return
	}
	s.mu.Lock()
	s.open = open
	s.mu.Unlock()
}

// HandleUpdate disambiguates by constituent vid: relay level reports
// release a pending pulse; sense contact PRESS/RELEASE events are the
// authoritative open state.
func (s *Shade3) HandleUpdate(_ CommandType, vid int, args []string) Entity {
	if vid == s.isOpenVID && s.isOpenVID != 0 {
		if len(args) < 1 {
			return nil
		}
		switch args[0] {
		case "PRESS":
			s.mu.Lock()
			s.open = true
			s.mu.Unlock()
		case "RELEASE":
			s.mu.Lock()
			s.open = false
			s.mu.Unlock()
		default:
			return nil
		}
		return s
	}

	// Relay acknowledgement; lets a pending pulse finish early.
	s.waiters.notify()
	return nil
}
