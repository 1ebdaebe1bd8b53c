package infusion

import "testing"

func newTestShade3(t *testing.T, c *Client, isOpenVID int) *Shade3 {
	t.Helper()
	s, err := c.NewShade3(Shade3Spec{
		Name: "Patio Shade", OpenVID: 70, CloseVID: 71, StopVID: 72,
		IsOpenVID: isOpenVID,
	})
	if err != nil {
		t.Fatalf("NewShade3: %v", err)
	}
	return s
}

func TestShade3PulsesRelay(t *testing.T) {
	c, ft := newTestClient(t)
	s := newTestShade3(t, c, 0)

	// Ack the relay from another goroutine so the pulse pause releases
	// through the correlator instead of its timeout.
	go func() {
		for {
			for _, line := range ft.sentLines() {
				if line == "LOAD 70 100" {
					c.dispatch(inbound{conn: 0, line: "S:LOAD 70 100.0"})
					return
				}
			}
		}
	}()

	if err := s.Open(); err != nil {
		t.Fatalf("Open: %v", err)
	}

	sent := ft.sentLines()
	if len(sent) != 2 || sent[0] != "LOAD 70 100" || sent[1] != "LOAD 70 0" {
		t.Errorf("sent = %v, want pulse [LOAD 70 100, LOAD 70 0]", sent)
	}
}

func TestShade3OptimisticState(t *testing.T) {
	c, _ := newTestClient(t)
	s := newTestShade3(t, c, 0)

	if err := s.Open(); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !s.IsOpen() {
		t.Error("optimistic state not open after Open")
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if s.IsOpen() {
		t.Error("optimistic state still open after Close")
	}
}

func TestShade3SenseContactIsAuthoritative(t *testing.T) {
	c, _ := newTestClient(t)
	s := newTestShade3(t, c, 73)

	// With a sense contact, commands never touch the open state.
	if err := s.Open(); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if s.IsOpen() {
		t.Error("open state changed optimistically despite sense contact")
	}

	c.dispatch(inbound{conn: 0, line: "S:BTN 73 PRESS"})
	if !s.IsOpen() {
		t.Error("sense contact PRESS did not mark shade open")
	}

	c.dispatch(inbound{conn: 0, line: "S:BTN 73 RELEASE"})
	if s.IsOpen() {
		t.Error("sense contact RELEASE did not mark shade closed")
	}
}

func TestShade3ConstituentsRouteToComposite(t *testing.T) {
	c, _ := newTestClient(t)
	s := newTestShade3(t, c, 73)

	for _, vid := range []int{70, 71, 72} {
		if got := c.EntityByTypeVID(CommandLoad, vid); got != Entity(s) {
			t.Errorf("load vid %d routes to %v, want the composite", vid, got)
		}
	}
	if got := c.EntityByTypeVID(CommandButton, 73); got != Entity(s) {
		t.Errorf("contact vid routes to %v, want the composite", got)
	}
}

func TestShade3RequiresBothRelays(t *testing.T) {
	c, _ := newTestClient(t)
	if _, err := c.NewShade3(Shade3Spec{Name: "Broken", OpenVID: 70}); err == nil {
		t.Error("composite without close relay built successfully, want error")
	}
}
