package infusion

import "testing"

func TestShadeSetLevelCommands(t *testing.T) {
	tests := []struct {
		name  string
		level float64
		want  string
	}{
		{"close", 0, "BLIND 55 CLOSE"},
		{"open", 100, "BLIND 55 OPEN"},
		{"position", 40, "BLIND 55 POS 40"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, ft := newTestClient(t)
			s, err := c.NewShade(55, 0, "Blind")
			if err != nil {
				t.Fatalf("NewShade: %v", err)
			}

			if err := s.SetLevel(tt.level); err != nil {
				t.Fatalf("SetLevel: %v", err)
			}
			sent := ft.sentLines()
			if len(sent) != 1 || sent[0] != tt.want {
				t.Errorf("sent = %v, want [%s]", sent, tt.want)
			}
		})
	}
}

func TestShadeUpdateParsing(t *testing.T) {
	tests := []struct {
		name      string
		line      string
		wantLevel float64
		wantKnown bool
	}{
		{"open word", "S:BLIND 55 OPEN", 100, true},
		{"close word", "S:BLIND 55 CLOSE", 0, true},
		{"position pair", "S:BLIND 55 POS 62.5", 62.5, true},
		{"bare number", "R:GETBLIND 55 37.0", 37, true},
		{"stop is indeterminate", "S:BLIND 55 STOP", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t)
			s, err := c.NewShade(55, 0, "Blind")
			if err != nil {
				t.Fatalf("NewShade: %v", err)
			}

			c.dispatch(inbound{conn: 0, line: tt.line})

			level, known := s.LastLevel()
			if known != tt.wantKnown {
				t.Fatalf("known = %v, want %v", known, tt.wantKnown)
			}
			if known && level != tt.wantLevel {
				t.Errorf("level = %v, want %v", level, tt.wantLevel)
			}
		})
	}
}

func TestShadeExplicitLevelQueries(t *testing.T) {
	c, ft := newTestClient(t)
	s, err := c.NewShade(55, 0, "Blind")
	if err != nil {
		t.Fatalf("NewShade: %v", err)
	}

	s.Level()

	sent := ft.sentLines()
	if len(sent) != 1 || sent[0] != "GETBLIND 55" {
		t.Errorf("sent = %v, want [GETBLIND 55]", sent)
	}
}
