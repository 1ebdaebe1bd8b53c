package infusion

import (
	"bufio"
	"context"
	"net"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakePanel accepts pool connections, answers handshake commands, and
// records everything else per connection in accept order.
type fakePanel struct {
	t  *testing.T
	ln net.Listener

	mu       sync.Mutex
	conns    []net.Conn
	received [][]string
	accepted int
}

func startFakePanel(t *testing.T) *fakePanel {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	p := &fakePanel{t: t, ln: ln}
	go p.acceptLoop()
	t.Cleanup(func() { ln.Close(); p.closeAll() })
	return p
}

func (p *fakePanel) port() int {
	return p.ln.Addr().(*net.TCPAddr).Port
}

func (p *fakePanel) acceptLoop() {
	for {
		conn, err := p.ln.Accept()
		if err != nil {
			return
		}
		p.mu.Lock()
		idx := p.accepted
		p.accepted++
		p.conns = append(p.conns, conn)
		p.received = append(p.received, nil)
		p.mu.Unlock()
		go p.serve(conn, idx)
	}
}

func (p *fakePanel) serve(conn net.Conn, idx int) {
	rd := bufio.NewReader(conn)
	for {
		line, err := rd.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimRight(line, "\r\n")
		switch {
		case strings.HasPrefix(line, "LOGIN "):
			conn.Write([]byte("R:LOGIN\r\n"))
		case strings.HasPrefix(line, "STATUS "):
			conn.Write([]byte("R:STATUS\r\n"))
		default:
			p.mu.Lock()
			p.received[idx] = append(p.received[idx], line)
			p.mu.Unlock()
		}
	}
}

func (p *fakePanel) acceptedCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.accepted
}

func (p *fakePanel) receivedOn(idx int) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if idx >= len(p.received) {
		return nil
	}
	out := make([]string, len(p.received[idx]))
	copy(out, p.received[idx])
	return out
}

func (p *fakePanel) closeConn(idx int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if idx < len(p.conns) {
		p.conns[idx].Close()
	}
}

func (p *fakePanel) closeAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range p.conns {
		c.Close()
	}
}

func (p *fakePanel) writeOn(idx int, line string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if idx < len(p.conns) {
		p.conns[idx].Write([]byte(line + "\r\n"))
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func newTestPool(t *testing.T, panel *fakePanel) *Pool {
	t.Helper()
	pool := NewPool(PoolConfig{
		Host:        "127.0.0.1",
		Port:        panel.port(),
		Username:    "user",
		Password:    "pass",
		Connections: 3,
	}, nil)
	t.Cleanup(pool.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	return pool
}

func TestPoolConnectsAndSubscribes(t *testing.T) {
	panel := startFakePanel(t)
	pool := newTestPool(t, panel)

	if !pool.IsConnected() {
		t.Error("pool not connected after Connect")
	}
	if got := panel.acceptedCount(); got != 3 {
		t.Errorf("panel accepted %d connections, want 3", got)
	}
}

func TestPoolRoundRobinAndPinnedWrites(t *testing.T) {
	panel := startFakePanel(t)
	pool := newTestPool(t, panel)

	// Round-robin commands spread across all three connections.
	for n := 0; n < 3; n++ {
		if err := pool.Send("LOAD", 1, "50"); err != nil {
			t.Fatalf("Send: %v", err)
		}
	}
	waitFor(t, "round-robin delivery", func() bool {
		total := 0
		for i := 0; i < 3; i++ {
			total += len(panel.receivedOn(i))
		}
		return total == 3
	})
	for i := 0; i < 3; i++ {
		if got := len(panel.receivedOn(i)); got != 1 {
			t.Errorf("connection %d received %d commands, want 1", i, got)
		}
	}

	// Pinned queries all land on the current connection.
	for n := 0; n < 3; n++ {
		if err := pool.Send("GETLOAD", 2); err != nil {
			t.Fatalf("Send: %v", err)
		}
	}
	waitFor(t, "pinned delivery", func() bool {
		total := 0
		for i := 0; i < 3; i++ {
			total += len(panel.receivedOn(i))
		}
		return total == 6
	})

	pinnedOn := -1
	for i := 0; i < 3; i++ {
		queries := 0
		for _, line := range panel.receivedOn(i) {
			if line == "GETLOAD 2" {
				queries++
			}
		}
		if queries == 3 {
			pinnedOn = i
		} else if queries != 0 {
			t.Errorf("connection %d received %d pinned queries, want 0 or 3", i, queries)
		}
	}
	if pinnedOn == -1 {
		t.Error("pinned queries did not stay on one connection")
	}
}

func TestPoolForwardsTaggedLines(t *testing.T) {
	panel := startFakePanel(t)
	pool := newTestPool(t, panel)

	panel.writeOn(1, "S:LOAD 5 50.0")

	select {
	case in := <-pool.Lines():
		if in.line != "S:LOAD 5 50.0" {
			t.Errorf("line = %q, want %q", in.line, "S:LOAD 5 50.0")
		}
		if in.conn != 1 {
			t.Errorf("conn tag = %d, want 1", in.conn)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("line never forwarded")
	}
}

func TestPoolReconnectsAllOnOneFailure(t *testing.T) {
	panel := startFakePanel(t)
	pool := newTestPool(t, panel)

	// Killing one socket must tear down and re-establish all three:
	// the controller's session and subscriptions are connection-set
	// wide.
	panel.closeConn(1)

	waitFor(t, "full reconnect", func() bool {
		return panel.acceptedCount() == 6 && pool.IsConnected()
	})

	if err := pool.Send("LOAD", 1, "50"); err != nil {
		t.Errorf("Send after reconnect: %v", err)
	}
}

func TestPoolSendWhileDisconnected(t *testing.T) {
	pool := NewPool(PoolConfig{Host: "127.0.0.1", Port: 1, Connections: 1}, nil)
	defer pool.Close()

	if err := pool.Send("LOAD", 1, "50"); err == nil {
		t.Error("Send on unconnected pool succeeded, want error")
	}
}

func TestPoolConnectHonoursContext(t *testing.T) {
	// Nothing listens on this port; Connect must give up when the
	// context expires rather than retrying forever in the caller.
	pool := NewPool(PoolConfig{Host: "127.0.0.1", Port: 1, Connections: 1}, nil)
	defer pool.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := pool.Connect(ctx); err == nil {
		t.Error("Connect succeeded with nothing listening, want error")
	}
}
