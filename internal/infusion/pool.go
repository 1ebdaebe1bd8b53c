package infusion

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Defaults for command-port communication.
const (
	// defaultConnections is the number of command sockets held open.
	defaultConnections = 3

	// defaultConnectTimeout is the maximum time for one dial+login.
	defaultConnectTimeout = 10 * time.Second

	// defaultWriteTimeout bounds a single line write.
	defaultWriteTimeout = 5 * time.Second

	// reconnectInterval is the fixed delay between reconnection
	// attempts. Connection establishment is the only unbounded retry
	// in the system.
	reconnectInterval = 3 * time.Second

	// lineQueueSize buffers inbound lines between the per-connection
	// readers and the dispatch worker.
	lineQueueSize = 256
)

// closeOnce wraps a channel with sync.Once to prevent double-close panics.
type closeOnce struct {
	ch   chan struct{}
	once sync.Once
}

func newCloseOnce() *closeOnce {
	return &closeOnce{ch: make(chan struct{})}
}

func (c *closeOnce) Close() {
	c.once.Do(func() { close(c.ch) })
}

func (c *closeOnce) Done() <-chan struct{} {
	return c.ch
}

// PoolConfig holds command-port connection settings.
type PoolConfig struct {
	// Host is the controller hostname or IP address.
	Host string

	// Port is the command port. Default: 3001.
	Port int

	// Username and Password for the LOGIN handshake. Both empty skips
	// the handshake (unauthenticated controllers).
	Username string
	Password string

	// Connections is the pool size. Default: 3.
	Connections int

	// ConnectTimeout bounds one dial+login attempt. Default: 10s.
	ConnectTimeout time.Duration
}

// pendingCommand records a sent command for response-error diagnostics.
type pendingCommand struct {
	verb string
	vid  int
}

// poolConn is one TCP connection in the pool.
type poolConn struct {
	index int
	tcp   net.Conn
	rd    *bufio.Reader

	// pending is the FIFO of commands sent on this connection, popped
	// as responses arrive. Diagnostics only, never used for routing.
	mu      sync.Mutex
	pending []pendingCommand
}

func (c *poolConn) pushPending(verb string, vid int) {
	c.mu.Lock()
	c.pending = append(c.pending, pendingCommand{verb: verb, vid: vid})
	c.mu.Unlock()
}

func (c *poolConn) popPending() (pendingCommand, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.pending) == 0 {
		return pendingCommand{}, false
	}
	cmd := c.pending[0]
	c.pending = c.pending[1:]
	return cmd, true
}

// inbound is a received line tagged with its originating connection.
type inbound struct {
	conn int
	line string
}

// Pool maintains N command connections to one controller.
//
// All connections log in; connection 0 additionally performs the
// one-time status subscription handshake. Writes distribute round-robin
// except for pinned query verbs. Any read failure tears down and
// re-establishes every connection, because the controller's session and
// subscriptions are connection-set wide.
//
// Thread Safety:
//   - All exported methods are safe for concurrent use.
type Pool struct {
	cfg    PoolConfig
	logger Logger

	// writeMu serializes writes and guards the round-robin cursor.
	writeMu sync.Mutex
	cursor  int

	// connMu guards conns and connected.
	connMu    sync.RWMutex
	conns     []*poolConn
	connected bool

	lines     chan inbound
	failures  chan struct{}
	ready     chan struct{}
	readyOnce sync.Once

	started bool
	done    *closeOnce
	wg      sync.WaitGroup
}

// NewPool creates an unconnected pool. Call Connect to establish the
// connections.
func NewPool(cfg PoolConfig, logger Logger) *Pool {
	if cfg.Port == 0 {
		cfg.Port = 3001
	}
	if cfg.Connections <= 0 {
		cfg.Connections = defaultConnections
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = defaultConnectTimeout
	}
	if logger == nil {
		logger = noopLogger{}
	}
	return &Pool{
		cfg:      cfg,
		logger:   logger,
		lines:    make(chan inbound, lineQueueSize),
		failures: make(chan struct{}, 1),
		ready:    make(chan struct{}),
		done:     newCloseOnce(),
	}
}

// Connect starts the connection supervisor and blocks until every
// connection has logged in and the subscription handshake on connection
// 0 has completed, or ctx is cancelled.
//
// After the first successful establishment the supervisor keeps the
// pool alive in the background, reconnecting all connections at a fixed
// interval whenever any of them fails.
func (p *Pool) Connect(ctx context.Context) error {
	p.connMu.Lock()
	if p.started {
		p.connMu.Unlock()
		return ErrAlreadyConnected
	}
	p.started = true
	p.connMu.Unlock()

	p.wg.Add(1)
	go p.supervise()

	select {
	case <-p.ready:
		return nil
	case <-ctx.Done():
		p.Close()
		return fmt.Errorf("infusion: connect: %w", ctx.Err())
	case <-p.done.Done():
		return ErrNotConnected
	}
}

// supervise establishes the connection set and re-establishes it after
// any failure, until Close.
func (p *Pool) supervise() {
	defer p.wg.Done()

	for {
		if err := p.establish(); err != nil {
			p.logger.Warn("connection attempt failed",
				"host", p.cfg.Host, "error", err)
			select {
			case <-time.After(reconnectInterval):
				continue
			case <-p.done.Done():
				return
			}
		}

		p.readyOnce.Do(func() { close(p.ready) })
		p.logger.Info("connected", "host", p.cfg.Host,
			"connections", p.cfg.Connections)

		select {
		case <-p.failures:
			p.logger.Warn("connection lost, reconnecting all connections")
			p.teardown()
		case <-p.done.Done():
			p.teardown()
			return
		}
	}
}

// establish dials and logs in every connection, runs the subscription
// handshake on connection 0, and starts the reader goroutines.
func (p *Pool) establish() error {
	conns := make([]*poolConn, p.cfg.Connections)
	for i := range conns {
		c, err := p.dialOne(i)
		if err != nil {
			for _, open := range conns[:i] {
				open.tcp.Close()
			}
			return err
		}
		conns[i] = c
	}

	// Drain any stale failure signal from the previous generation.
	select {
	case <-p.failures:
	default:
	}

	p.connMu.Lock()
	p.conns = conns
	p.connected = true
	p.connMu.Unlock()

	for _, c := range conns {
		p.wg.Add(1)
		go p.readLoop(c)
	}
	return nil
}

// dialOne opens and logs in connection i. Connection 0 additionally
// subscribes to the unsolicited status stream; the subscription is
// session-wide, so issuing it once is sufficient.
func (p *Pool) dialOne(i int) (*poolConn, error) {
	d := net.Dialer{Timeout: p.cfg.ConnectTimeout}
	addr := net.JoinHostPort(p.cfg.Host, strconv.Itoa(p.cfg.Port))
	tcp, err := d.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}

	c := &poolConn{index: i, tcp: tcp}
	rd := bufio.NewReader(tcp)
	deadline := time.Now().Add(p.cfg.ConnectTimeout)

	handshake := func(line string) error {
		if err := tcp.SetDeadline(deadline); err != nil {
			return err
		}
		if _, err := tcp.Write([]byte(line + "\r\n")); err != nil {
			return fmt.Errorf("write %q: %w", line, err)
		}
		ack, err := rd.ReadString('\n')
		if err != nil {
			return fmt.Errorf("read ack for %q: %w", line, err)
		}
		if strings.HasPrefix(ack, "R:ERROR") {
			return fmt.Errorf("%w: %s", ErrLoginFailed, strings.TrimSpace(ack))
		}
		return nil
	}

	if p.cfg.Username != "" || p.cfg.Password != "" {
		login := "LOGIN " + p.cfg.Username + " " + p.cfg.Password
		if err := handshake(login); err != nil {
			tcp.Close()
			return nil, err
		}
	}

	if i == 0 {
		for _, sub := range []string{"STATUS LOAD", "STATUS BLIND", "STATUS BTN", "STATUS VARIABLE"} {
			if err := handshake(sub); err != nil {
				tcp.Close()
				return nil, fmt.Errorf("subscribe: %w", err)
			}
		}
	}

	// Handshake done; reads are blocking from here on.
	if err := tcp.SetDeadline(time.Time{}); err != nil {
		tcp.Close()
		return nil, err
	}

	// The handshake reads consumed whole lines, so handing the socket
	// to a fresh reader is safe only if the bufio buffer is empty.
	// Carry the reader over instead.
	c.rd = rd
	return c, nil
}

// readLoop reads lines from one connection and forwards them, tagged
// with the connection index, to the dispatch channel. Any read error or
// EOF signals a pool-wide failure.
func (p *Pool) readLoop(c *poolConn) {
	defer p.wg.Done()

	for {
		line, err := c.rd.ReadString('\n')
		if err != nil {
			select {
			case <-p.done.Done():
			default:
				p.signalFailure()
			}
			return
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			continue
		}
		select {
		case p.lines <- inbound{conn: c.index, line: line}:
		case <-p.done.Done():
			return
		}
	}
}

// signalFailure wakes the supervisor at most once per generation.
func (p *Pool) signalFailure() {
	p.connMu.Lock()
	already := !p.connected
	p.connected = false
	p.connMu.Unlock()
	if already {
		return
	}
	select {
	case p.failures <- struct{}{}:
	default:
	}
}

// teardown closes every connection; readers exit on their own read
// errors.
func (p *Pool) teardown() {
	p.connMu.Lock()
	conns := p.conns
	p.conns = nil
	p.connected = false
	p.connMu.Unlock()

	for _, c := range conns {
		c.tcp.Close()
	}
}

// Send formats and writes `<VERB> <vid> <args...>` to a pool
// connection chosen by the verb's write affinity: round-robin for
// commands, pinned to the current slot for GET queries so a request and
// its reply use a connection consistently.
//
// Returns ErrNotConnected while the pool is down; the caller's command
// is not queued.
func (p *Pool) Send(verb string, vid int, args ...string) error {
	line := verb + " " + strconv.Itoa(vid)
	if len(args) > 0 {
		line += " " + strings.Join(args, " ")
	}

	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	p.connMu.RLock()
	conns := p.conns
	ok := p.connected
	p.connMu.RUnlock()
	if !ok || len(conns) == 0 {
		return ErrNotConnected
	}

	idx := p.cursor
	if verbAffinity[verb] == affinityRoundRobin {
		idx = (p.cursor + 1) % len(conns)
		p.cursor = idx
	}
	c := conns[idx]

	if err := c.tcp.SetWriteDeadline(time.Now().Add(defaultWriteTimeout)); err != nil {
		p.signalFailure()
		return fmt.Errorf("infusion: send: %w", err)
	}
	if _, err := c.tcp.Write([]byte(line + "\r\n")); err != nil {
		// Peer reset. The supervisor reconnects everything.
		p.signalFailure()
		return fmt.Errorf("infusion: send %q: %w", line, err)
	}

	c.pushPending(verb, vid)
	p.logger.Debug("sent", "line", line, "conn", idx)
	return nil
}

// popPending removes and returns the oldest pending command recorded on
// connection i.
func (p *Pool) popPending(i int) (pendingCommand, bool) {
	p.connMu.RLock()
	conns := p.conns
	p.connMu.RUnlock()
	if i < 0 || i >= len(conns) {
		return pendingCommand{}, false
	}
	return conns[i].popPending()
}

// Lines returns the channel of inbound lines consumed by the dispatch
// worker.
func (p *Pool) Lines() <-chan inbound {
	return p.lines
}

// Done returns a channel closed when the pool shuts down.
func (p *Pool) Done() <-chan struct{} {
	return p.done.Done()
}

// IsConnected reports whether the full connection set is currently up.
func (p *Pool) IsConnected() bool {
	p.connMu.RLock()
	defer p.connMu.RUnlock()
	return p.connected
}

// Close shuts the pool down. Idempotent.
func (p *Pool) Close() {
	p.done.Close()
	p.teardown()
	p.wg.Wait()
}
