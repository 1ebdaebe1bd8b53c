package infusion

import (
	"strconv"
	"sync"
)

// Shade is a single-vid window covering: 0 is closed, 100 is open. The
// level becomes indeterminate after a STOP until the next position
// report.
type Shade struct {
	entityBase

	mu         sync.Mutex
	level      float64
	levelKnown bool

	waiters queryWaiter
}

// NewShade constructs and registers a shade.
func (c *Client) NewShade(vid, area int, name string) (*Shade, error) {
	s := &Shade{
		entityBase: entityBase{client: c, vid: vid, area: area},
		level:      100,
		levelKnown: true,
	}
	if err := c.register(s, name, CommandBlind); err != nil {
		return nil, err
	}
	return s, nil
}

// Level queries the current position and returns it with ok true, or
// the cached value; ok is false while the position is indeterminate
// after a stop. Concurrent callers coalesce onto one GETBLIND.
func (s *Shade) Level() (level float64, ok bool) {
	ch := s.waiters.request(func() {
		_ = s.client.send("GETBLIND", s.vid)
	})
	await(ch, s.client.queryTimeout)

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.level, s.levelKnown
}

// LastLevel returns the cached position without querying.
func (s *Shade) LastLevel() (level float64, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.level, s.levelKnown
}

// SetLevel moves the shade: 0 closes, 100 opens, anything between is
// an absolute position write.
func (s *Shade) SetLevel(level float64) error {
	s.mu.Lock()
	same := s.levelKnown && s.level == level
	s.level = level
	s.levelKnown = true
	s.mu.Unlock()
	if same {
		return nil
	}

	switch level {
	case 0:
		return s.Close()
	case 100:
		return s.Open()
	default:
		return s.client.send("BLIND", s.vid, "POS", formatLevel(level))
	}
}

// Open fully opens the shade.
func (s *Shade) Open() error {
	return s.client.send("BLIND", s.vid, "OPEN")
}

// Close fully closes the shade.
func (s *Shade) Close() error {
	return s.client.send("BLIND", s.vid, "CLOSE")
}

// Stop halts movement; the position is indeterminate afterwards.
func (s *Shade) Stop() error {
	s.mu.Lock()
	s.levelKnown = false
	s.mu.Unlock()
	return s.client.send("BLIND", s.vid, "STOP")
}

// HandleUpdate applies a blind status or GETBLIND response. Args are
// OPEN, CLOSE, STOP, `POS <n>`, or a bare number.
func (s *Shade) HandleUpdate(_ CommandType, _ int, args []string) Entity {
	if len(args) < 1 {
		return nil
	}

	var level float64
	known := true
	switch args[0] {
	case "OPEN":
		level = 100
	case "CLOSE":
		level = 0
	case "STOP":
		known = false
	case "POS":
		if len(args) < 2 {
			return nil
		}
		v, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			s.client.logger.Warn("unparseable position", "vid", s.vid, "args", args)
			return nil
		}
		level = v
	default:
		v, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			s.client.logger.Warn("unparseable position", "vid", s.vid, "args", args)
			return nil
		}
		level = v
	}

	s.mu.Lock()
	s.levelKnown = known
	if known {
		s.level = level
	}
	s.mu.Unlock()

	s.waiters.notify()
	return s
}
