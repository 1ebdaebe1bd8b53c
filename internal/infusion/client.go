package infusion

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
)

// defaultQueryTimeout bounds a cached-value query waiting on the
// request correlator before falling back to the last cached value.
const defaultQueryTimeout = 30 * time.Millisecond

// maxLineageDepth caps the area parent-chain walk during name
// construction.
const maxLineageDepth = 10

// ClientConfig holds Client settings beyond the transport.
type ClientConfig struct {
	// Pool is the command-port transport configuration.
	Pool PoolConfig

	// QueryTimeout is the bounded wait on a level/position query
	// before returning the cached value. Default: 30ms.
	QueryTimeout time.Duration

	// AreaAbbreviations maps lowercased area names to replacements
	// used in hierarchical name construction. An empty replacement
	// drops the lineage segment entirely.
	AreaAbbreviations map[string]string
}

// transport is the connection-pool surface the client depends on,
// narrow enough to fake in tests.
type transport interface {
	Connect(ctx context.Context) error
	Close()
	Send(verb string, vid int, args ...string) error
	Lines() <-chan inbound
	Done() <-chan struct{}
	popPending(conn int) (pendingCommand, bool)
}

var _ transport = (*Pool)(nil)

// Client is the top-level controller client: it owns the connection
// pool, the typed vid registry, and the dispatch worker that routes
// inbound lines to entities.
//
// Entities are added by the topology builder before Connect; the
// registry is read-mostly afterwards.
//
// Thread Safety:
//   - Registration methods are not safe concurrently with Connect.
//   - Everything else is safe for concurrent use.
type Client struct {
	pool   transport
	logger Logger

	queryTimeout  time.Duration
	abbreviations map[string]string

	mu       sync.RWMutex
	registry map[CommandType]map[int]Entity
	names    map[string]int
	areas    map[int]*Area
	loads    map[int]*Output
	groups   []*LoadGroup
	tasks    map[string]*Task

	onUpdate func(Entity)

	wg sync.WaitGroup
}

// NewClient creates a client with an unconnected pool. Populate it via
// the New* registration methods (normally done by the topology
// builder), then call Connect.
func NewClient(cfg ClientConfig, logger Logger) *Client {
	if logger == nil {
		logger = noopLogger{}
	}
	if cfg.QueryTimeout == 0 {
		cfg.QueryTimeout = defaultQueryTimeout
	}
	abbr := make(map[string]string, len(cfg.AreaAbbreviations))
	for k, v := range cfg.AreaAbbreviations {
		abbr[strings.ToLower(strings.TrimSpace(k))] = v
	}
	return &Client{
		pool:          NewPool(cfg.Pool, logger),
		logger:        logger,
		queryTimeout:  cfg.QueryTimeout,
		abbreviations: abbr,
		registry:      make(map[CommandType]map[int]Entity),
		names:         make(map[string]int),
		areas:         make(map[int]*Area),
		loads:         make(map[int]*Output),
		tasks:         make(map[string]*Task),
	}
}

// Connect establishes the connection pool and starts the dispatch
// worker. Blocks until all connections are up or ctx is cancelled.
func (c *Client) Connect(ctx context.Context) error {
	if err := c.pool.Connect(ctx); err != nil {
		return err
	}
	c.wg.Add(1)
	go c.dispatchLoop()
	return nil
}

// Close shuts down the pool and the dispatch worker. Idempotent.
func (c *Client) Close() {
	c.pool.Close()
	c.wg.Wait()
}

// SetOnUpdate registers the subscriber callback invoked, on the
// dispatch worker, after an entity's state changes from a routed line.
func (c *Client) SetOnUpdate(fn func(Entity)) {
	c.mu.Lock()
	c.onUpdate = fn
	c.mu.Unlock()
}

// send formats and writes one command line through the pool.
func (c *Client) send(verb string, vid int, args ...string) error {
	return c.pool.Send(verb, vid, args...)
}

// dispatchLoop is the single worker that consumes inbound lines. All
// entity mutation driven by the network happens here, so those
// transitions are serialized.
func (c *Client) dispatchLoop() {
	defer c.wg.Done()
	for {
		select {
		case in := <-c.pool.Lines():
			c.dispatch(in)
		case <-c.pool.Done():
			return
		}
	}
}

// splitWire tokenizes the remainder of an inbound line on spaces and
// colons.
func splitWire(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == ':'
	})
}

// dispatch classifies and routes one inbound line. Malformed lines are
// logged and dropped; nothing here is fatal.
func (c *Client) dispatch(in inbound) {
	line := in.line
	if len(line) < 2 || line[1] != ':' {
		c.logger.Warn("unparseable line", "line", line)
		return
	}

	var allowed map[string]bool
	marker := line[0]
	switch marker {
	case 'R':
		allowed = responseTypes
	case 'S':
		allowed = statusTypes
	default:
		c.logger.Warn("unknown line marker", "line", line)
		return
	}

	fields := splitWire(line[2:])
	if len(fields) < 2 {
		c.logger.Warn("short line", "line", line)
		return
	}
	typ := fields[0]
	if !allowed[typ] {
		c.logger.Warn("unknown command type", "type", typ, "line", line)
		return
	}

	// Responses consume the oldest pending command on their
	// connection. The FIFO correlates errors to commands for
	// diagnostics only; it never decides routing.
	var pending pendingCommand
	var hasPending bool
	if marker == 'R' {
		pending, hasPending = c.pool.popPending(in.conn)
	}

	if typ == "ERROR" {
		if hasPending {
			c.logger.Error("controller error response", "line", line,
				"command", pending.verb, "vid", pending.vid)
		} else {
			c.logger.Error("controller error response", "line", line)
		}
		return
	}

	// Only status lines and value-bearing responses route to
	// entities. GET responses are normalized to their push-update
	// counterpart so both route through the same table.
	deliver := marker == 'S'
	if marker == 'R' {
		switch {
		case strings.HasPrefix(typ, "GET"):
			typ = strings.TrimPrefix(typ, "GET")
			deliver = true
		case typ == "LOAD":
			deliver = true
		case responseAcks[typ]:
			deliver = false
		}
	}
	if !deliver {
		c.logger.Debug("ack dropped", "line", line)
		return
	}

	vid, err := strconv.Atoi(fields[1])
	if err != nil {
		c.logger.Warn("non-numeric vid", "vid", fields[1], "line", line)
		return
	}

	c.mu.RLock()
	e := c.registry[CommandType(typ)][vid]
	fn := c.onUpdate
	c.mu.RUnlock()
	if e == nil {
		c.logger.Warn("unregistered vid", "type", typ, "vid", vid, "line", line)
		return
	}

	target := e.HandleUpdate(CommandType(typ), vid, fields[2:])
	if target != nil && fn != nil {
		fn(target)
	}
}

// register assigns the entity's hierarchical display name and inserts
// it into the routing table under each given command type. A duplicate
// vid under any of the types fails the whole registration.
func (c *Client) register(e Entity, base string, types ...CommandType) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, t := range types {
		if _, exists := c.registry[t][e.VID()]; exists {
			return fmt.Errorf("%w: vid %d under %s", ErrVIDExists, e.VID(), t)
		}
	}

	name := c.hierarchicalName(base, e.Area())
	if _, taken := c.names[name]; taken {
		c.logger.Warn("repeated name, appending vid", "name", name, "vid", e.VID())
		name = fmt.Sprintf("%s (%d)", name, e.VID())
	}
	e.setName(name)
	c.names[name] = e.VID()

	for _, t := range types {
		if c.registry[t] == nil {
			c.registry[t] = make(map[int]Entity)
		}
		c.registry[t][e.VID()] = e
	}
	return nil
}

// registerConstituent inserts an additional physical vid owned by an
// already-registered composite entity, so lines addressed to any
// constituent route to the composite.
func (c *Client) registerConstituent(t CommandType, vid int, e Entity) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.registry[t][vid]; exists {
		return fmt.Errorf("%w: vid %d under %s", ErrVIDExists, vid, t)
	}
	if c.registry[t] == nil {
		c.registry[t] = make(map[int]Entity)
	}
	c.registry[t][vid] = e
	return nil
}

// hierarchicalName prefixes a display name with the reversed area
// lineage, root-most segment dropped, skipping auxiliary container
// areas and applying the abbreviation map. A leading repeat of the
// prefix inside the base name is collapsed so "GH Bedroom East" under
// prefix "GH-" becomes "GH-Bedroom East", not "GH-GH Bedroom East".
//
// Caller holds c.mu.
func (c *Client) hierarchicalName(base string, areaVID int) string {
	lineage := c.lineage(areaVID)
	if len(lineage) < 2 {
		return base
	}

	// Drop the root-most area (the whole-project container) and walk
	// the rest root-first.
	segs := lineage[:len(lineage)-1]
	var prefix strings.Builder
	for i := len(segs) - 1; i >= 0; i-- {
		s := strings.TrimSpace(segs[i])
		if strings.HasPrefix(s, "Station Load ") || strings.HasPrefix(s, "Color Load ") {
			continue
		}
		if mapped, ok := c.abbreviations[strings.ToLower(s)]; ok {
			if mapped == "" {
				continue
			}
			s = mapped
		}
		prefix.WriteString(s)
		prefix.WriteString("-")
	}

	p := prefix.String()
	if p == "" {
		return base
	}
	if strings.HasPrefix(base, strings.TrimSuffix(p, "-")) && len(base) >= len(p) {
		return p + base[len(p):]
	}
	return p + base
}

// lineage returns area names from the entity's own area up to the
// root, leaf first, bounded by maxLineageDepth.
//
// Caller holds c.mu.
func (c *Client) lineage(areaVID int) []string {
	var names []string
	vid := areaVID
	for depth := 0; depth < maxLineageDepth; depth++ {
		area := c.areas[vid]
		if area == nil {
			break
		}
		names = append(names, area.name)
		if area.parent == 0 {
			break
		}
		vid = area.parent
	}
	return names
}

// AreaByVID returns a registered area, or nil.
func (c *Client) AreaByVID(vid int) *Area {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.areas[vid]
}

// OutputByVID returns a registered output or load group, or nil.
func (c *Client) OutputByVID(vid int) *Output {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loads[vid]
}

// Outputs returns every registered output, load groups included.
func (c *Client) Outputs() []*Output {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Output, 0, len(c.loads))
	for _, o := range c.loads {
		out = append(out, o)
	}
	return out
}

// LoadGroups returns every registered load group.
func (c *Client) LoadGroups() []*LoadGroup {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.groups
}

// EntityByTypeVID resolves a vid in one routing table, or nil.
func (c *Client) EntityByTypeVID(t CommandType, vid int) Entity {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.registry[t][vid]
}

// TaskByName returns the task registered under the given hierarchical
// name.
//
// Returns:
//   - *Task: The matching task
//   - error: ErrTaskNotFound when the name matches nothing
func (c *Client) TaskByName(name string) (*Task, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t := c.tasks[name]
	if t == nil {
		return nil, fmt.Errorf("%w: %q", ErrTaskNotFound, name)
	}
	return t, nil
}

// InvokeTaskByName fires the named task.
func (c *Client) InvokeTaskByName(name string) error {
	t, err := c.TaskByName(name)
	if err != nil {
		return err
	}
	return t.Invoke()
}
