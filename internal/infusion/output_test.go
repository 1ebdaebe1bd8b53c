package infusion

import (
	"testing"
)

func TestOutputClassification(t *testing.T) {
	tests := []struct {
		name          string
		spec          OutputSpec
		dimmable      bool
		colorTempable bool
		fullColor     bool
	}{
		{
			name:     "plain dimmer",
			spec:     OutputSpec{VID: 1, Name: "A", Kind: OutputLight, LoadType: "Incandescent"},
			dimmable: true,
		},
		{
			name: "non-dim relay",
			spec: OutputSpec{VID: 2, Name: "B", Kind: OutputRelay, LoadType: "Non-Dim Relay"},
		},
		{
			name:          "paired color temp",
			spec:          OutputSpec{VID: 3, Name: "C", Kind: OutputLight, LoadType: "Incandescent", PairedVID: 30},
			dimmable:      true,
			colorTempable: true,
		},
		{
			name:          "dynamic white",
			spec:          OutputSpec{VID: 4, Name: "D", Kind: OutputLight, LoadType: "DW"},
			dimmable:      true,
			colorTempable: true,
		},
		{
			name:          "full color",
			spec:          OutputSpec{VID: 5, Name: "E", Kind: OutputLight, LoadType: "RGBW", DMXColor: true},
			dimmable:      true,
			colorTempable: true,
			fullColor:     true,
		},
		{
			name:          "full color with non-RGB subtype",
			spec:          OutputSpec{VID: 6, Name: "F", Kind: OutputLight, LoadType: "DMX Fixture", DMXColor: true},
			dimmable:      true,
			colorTempable: true,
			fullColor:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t)
			o, err := c.NewOutput(tt.spec)
			if err != nil {
				t.Fatalf("NewOutput: %v", err)
			}
			if got := o.IsDimmable(); got != tt.dimmable {
				t.Errorf("IsDimmable = %v, want %v", got, tt.dimmable)
			}
			if got := o.SupportsColorTemp(); got != tt.colorTempable {
				t.Errorf("SupportsColorTemp = %v, want %v", got, tt.colorTempable)
			}
			if got := o.SupportsColor(); got != tt.fullColor {
				t.Errorf("SupportsColor = %v, want %v", got, tt.fullColor)
			}
		})
	}
}

func TestSetLevelCommands(t *testing.T) {
	c, ft := newTestClient(t)

	dim, err := c.NewOutput(OutputSpec{VID: 10, Name: "Dim", Kind: OutputLight, LoadType: "Incandescent"})
	if err != nil {
		t.Fatalf("NewOutput: %v", err)
	}
	relay, err := c.NewOutput(OutputSpec{VID: 11, Name: "Relay", Kind: OutputRelay, LoadType: "Non-Dim Relay"})
	if err != nil {
		t.Fatalf("NewOutput: %v", err)
	}

	if err := dim.SetLevel(75); err != nil {
		t.Fatalf("SetLevel: %v", err)
	}
	if err := dim.SetLevel(20); err != nil {
		t.Fatalf("SetLevel: %v", err)
	}
	if err := relay.SetLevel(100); err != nil {
		t.Fatalf("SetLevel: %v", err)
	}
	// Writing the same level again is a no-op.
	if err := relay.SetLevel(100); err != nil {
		t.Fatalf("SetLevel: %v", err)
	}

	want := []string{
		"RAMPLOAD 10 75 2",
		"RAMPLOAD 10 20 2",
		"LOAD 11 100",
	}
	sent := ft.sentLines()
	if len(sent) != len(want) {
		t.Fatalf("sent %v, want %v", sent, want)
	}
	for i := range want {
		if sent[i] != want[i] {
			t.Errorf("sent[%d] = %q, want %q", i, sent[i], want[i])
		}
	}
}

func TestDeferredColorFlush(t *testing.T) {
	c, ft := newTestClient(t)
	o, err := c.NewOutput(OutputSpec{VID: 99, Name: "Strip", Kind: OutputLight, LoadType: "RGBW", DMXColor: true})
	if err != nil {
		t.Fatalf("NewOutput: %v", err)
	}

	// Light is off: the color write must be stored, not flushed.
	if err := o.SetRGB(250, 100, 50); err != nil {
		t.Fatalf("SetRGB: %v", err)
	}
	if sent := ft.sentLines(); len(sent) != 0 {
		t.Fatalf("color flushed at zero brightness: %v", sent)
	}

	// The next level update above zero flushes, scaled by brightness.
	c.dispatch(inbound{conn: 0, line: "S:LOAD 99 60.0"})

	sent := ft.sentLines()
	if len(sent) != 1 {
		t.Fatalf("sent %v, want one INVOKE", sent)
	}
	if sent[0] != "INVOKE 99 RGBLoad.SetRGBW 150 60 30 0" {
		t.Errorf("flush = %q, want %q", sent[0], "INVOKE 99 RGBLoad.SetRGBW 150 60 30 0")
	}
}

func TestImmediateColorFlushWhenOn(t *testing.T) {
	c, ft := newTestClient(t)
	o, err := c.NewOutput(OutputSpec{VID: 99, Name: "Strip", Kind: OutputLight, LoadType: "RGBW", DMXColor: true})
	if err != nil {
		t.Fatalf("NewOutput: %v", err)
	}

	c.dispatch(inbound{conn: 0, line: "S:LOAD 99 100.0"})
	if err := o.SetRGB(10, 20, 30); err != nil {
		t.Fatalf("SetRGB: %v", err)
	}

	sent := ft.sentLines()
	if len(sent) != 1 || sent[0] != "INVOKE 99 RGBLoad.SetRGBW 10 20 30 0" {
		t.Errorf("sent = %v, want immediate full-brightness flush", sent)
	}
}

func TestColorControlLevelUpdatesPairedLoad(t *testing.T) {
	c, _ := newTestClient(t)
	light, err := c.NewOutput(OutputSpec{VID: 10, Name: "Spot", Kind: OutputLight, LoadType: "Incandescent", PairedVID: 20})
	if err != nil {
		t.Fatalf("NewOutput light: %v", err)
	}
	if _, err := c.NewOutput(OutputSpec{VID: 20, Name: "Spot COLOR", Kind: OutputColor, LoadType: "HID", PairedVID: 10}); err != nil {
		t.Fatalf("NewOutput color: %v", err)
	}

	var notified Entity
	c.SetOnUpdate(func(e Entity) { notified = e })

	c.dispatch(inbound{conn: 0, line: "S:LOAD 20 50.0"})

	if notified != Entity(light) {
		t.Fatalf("notified = %v, want the paired light", notified)
	}
	want := levelToKelvin(50)
	if got := light.ColorTemp(); got != want {
		t.Errorf("color temp = %d, want %d", got, want)
	}
}

func TestColorTempOnDiscreteDeviceRampsColorControl(t *testing.T) {
	c, ft := newTestClient(t)
	light, err := c.NewOutput(OutputSpec{VID: 10, Name: "Spot", Kind: OutputLight, LoadType: "Incandescent", PairedVID: 20})
	if err != nil {
		t.Fatalf("NewOutput: %v", err)
	}

	if err := light.SetColorTemp(4100); err != nil {
		t.Fatalf("SetColorTemp: %v", err)
	}

	sent := ft.sentLines()
	if len(sent) != 1 || sent[0] != "RAMPLOAD 20 50 2" {
		t.Errorf("sent = %v, want [RAMPLOAD 20 50 2]", sent)
	}
}

func TestAddStatusSentOncePerColorLoad(t *testing.T) {
	c, ft := newTestClient(t)
	o, err := c.NewOutput(OutputSpec{VID: 99, Name: "Strip", Kind: OutputLight, LoadType: "RGBW", DMXColor: true})
	if err != nil {
		t.Fatalf("NewOutput: %v", err)
	}

	o.Level()
	o.Level()

	var addStatus, getLoad int
	for _, line := range ft.sentLines() {
		switch line {
		case "ADDSTATUS 99":
			addStatus++
		case "GETLOAD 99":
			getLoad++
		}
	}
	if addStatus != 1 {
		t.Errorf("ADDSTATUS sent %d times, want 1", addStatus)
	}
	if getLoad != 2 {
		t.Errorf("GETLOAD sent %d times, want 2", getLoad)
	}
}

func TestExtendedStatusChannelReadback(t *testing.T) {
	c, _ := newTestClient(t)
	o, err := c.NewOutput(OutputSpec{VID: 99, Name: "Strip", Kind: OutputLight, LoadType: "RGB", DMXColor: true})
	if err != nil {
		t.Fatalf("NewOutput: %v", err)
	}

	c.dispatch(inbound{conn: 0, line: "S:STATUS 99 RGBLoad.GetRGB 120 0"})
	c.dispatch(inbound{conn: 0, line: "S:STATUS 99 RGBLoad.GetRGB 80 1"})
	c.dispatch(inbound{conn: 0, line: "S:STATUS 99 RGBLoad.GetRGB 40 2"})

	r, g, b := o.RGB()
	if r != 120 || g != 80 || b != 40 {
		t.Errorf("rgb = (%d,%d,%d), want (120,80,40)", r, g, b)
	}
}
