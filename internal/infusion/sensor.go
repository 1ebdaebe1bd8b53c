package infusion

import (
	"strconv"
	"sync"
)

// SensorKind distinguishes the sensor families.
type SensorKind string

const (
	// SensorOmni is a multi-channel OmniSensor reporting a primary
	// value plus power and current channels.
	SensorOmni SensorKind = "omni"

	// SensorLight is a light-level sensor.
	SensorLight SensorKind = "light"
)

// Sensor is a polling-only device: the controller never pushes its
// readings, so every value is fetched with an explicit refresh.
type Sensor struct {
	entityBase
	kind SensorKind

	mu      sync.Mutex
	value   float64
	power   float64
	current float64

	waiters        queryWaiter
	powerWaiters   queryWaiter
	currentWaiters queryWaiter
}

// NewSensor constructs and registers a sensor under the response
// tables its queries answer on.
func (c *Client) NewSensor(vid, area int, name string, kind SensorKind) (*Sensor, error) {
	s := &Sensor{
		entityBase: entityBase{client: c, vid: vid, area: area},
		kind:       kind,
	}

	types := []CommandType{CommandLight}
	if kind == SensorOmni {
		types = []CommandType{CommandSensor, CommandPower, CommandCurrent}
	}
	if err := c.register(s, name, types...); err != nil {
		return nil, err
	}

	c.mu.Lock()
	a := c.areas[area]
	c.mu.Unlock()
	if a != nil {
		a.addSensor(s)
	}
	return s, nil
}

// Kind returns the sensor family.
func (s *Sensor) Kind() SensorKind { return s.kind }

// LastValue returns the cached primary reading without querying.
func (s *Sensor) LastValue() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// Refresh polls the primary reading and returns it, falling back to
// the cached value on timeout.
func (s *Sensor) Refresh() float64 {
	verb := "GETSENSOR"
	if s.kind == SensorLight {
		verb = "GETLIGHT"
	}
	ch := s.waiters.request(func() {
		_ = s.client.send(verb, s.vid)
	})
	await(ch, s.client.queryTimeout)
	return s.LastValue()
}

// RefreshPower polls the OmniSensor power channel.
func (s *Sensor) RefreshPower() float64 {
	ch := s.powerWaiters.request(func() {
		_ = s.client.send("GETPOWER", s.vid)
	})
	await(ch, s.client.queryTimeout)

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.power
}

// RefreshCurrent polls the OmniSensor current channel.
func (s *Sensor) RefreshCurrent() float64 {
	ch := s.currentWaiters.request(func() {
		_ = s.client.send("GETCURRENT", s.vid)
	})
	await(ch, s.client.queryTimeout)

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// HandleUpdate applies a poll response; the routed command type picks
// the channel the reading belongs to.
func (s *Sensor) HandleUpdate(t CommandType, _ int, args []string) Entity {
	if len(args) < 1 {
		return nil
	}
	v, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		s.client.logger.Warn("unparseable sensor reading", "vid", s.vid, "args", args)
		return nil
	}

	s.mu.Lock()
	switch t {
	case CommandPower:
		s.power = v
	case CommandCurrent:
		s.current = v
	default:
		s.value = v
	}
	s.mu.Unlock()

	switch t {
	case CommandPower:
		s.powerWaiters.notify()
	case CommandCurrent:
		s.currentWaiters.notify()
	default:
		s.waiters.notify()
	}
	return s
}
