package dcimport

import (
	"errors"
	"testing"

	"github.com/nerrad567/infusion-core/internal/infusion"
)

func build(t *testing.T, xmlDoc string) *infusion.Client {
	t.Helper()
	b := NewBuilder(infusion.ClientConfig{}, nil)
	client, err := b.Build([]byte(xmlDoc))
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return client
}

func TestBuildEmptyDocument(t *testing.T) {
	b := NewBuilder(infusion.ClientConfig{}, nil)
	_, err := b.Build([]byte(`<?xml version="1.0"?><Project></Project>`))
	if !errors.Is(err, ErrEmptyDocument) {
		t.Errorf("Build = %v, want ErrEmptyDocument", err)
	}
}

func TestBuildMalformedXML(t *testing.T) {
	b := NewBuilder(infusion.ClientConfig{}, nil)
	_, err := b.Build([]byte(`<Project><Area VID="1"><Name>Home`))
	if !errors.Is(err, ErrMalformedXML) {
		t.Errorf("Build = %v, want ErrMalformedXML", err)
	}
}

func TestClassifyLoad(t *testing.T) {
	tests := []struct {
		name     string
		loadType string
		color    string
		ch1, ch2 string
		wantKind infusion.OutputKind
		wantDMX  bool
		wantType string
	}{
		{"incandescent", "Incandescent", "", "", "", infusion.OutputLight, false, "Incandescent"},
		{"high voltage relay", "High Voltage Relay", "", "", "", infusion.OutputRelay, false, "High Voltage Relay"},
		{"low voltage relay", "Low Voltage Relay", "", "", "", infusion.OutputRelay, false, "Low Voltage Relay"},
		{"hid color control", "HID", "", "", "", infusion.OutputColor, false, "HID"},
		{"rgbw subtype", "RGBW", "", "1", "2", infusion.OutputLight, true, "RGBW"},
		{"rgb with second channel", "RGB", "", "1", "2", infusion.OutputLight, true, "RGB"},
		{"rgb single channel is dim-to-warm", "RGB", "", "1", "", infusion.OutputLight, false, "DW"},
		{"color type fallback when load type absent", "", "RGBW", "1", "2", infusion.OutputLight, true, "RGBW"},
		{"color type ignored when load type present", "DMX", "RGBW", "1", "2", infusion.OutputLight, false, "DMX"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &loadRecord{loadType: tt.loadType, kind: string(infusion.OutputLight)}
			classifyLoad(r, xmlLoad{ColorType: tt.color, Channel1: tt.ch1, Channel2: tt.ch2})
			if r.kind != string(tt.wantKind) {
				t.Errorf("kind = %q, want %q", r.kind, tt.wantKind)
			}
			if r.dmxColor != tt.wantDMX {
				t.Errorf("dmxColor = %v, want %v", r.dmxColor, tt.wantDMX)
			}
			if r.loadType != tt.wantType {
				t.Errorf("loadType = %q, want %q", r.loadType, tt.wantType)
			}
		})
	}
}

func TestExcludedLoad(t *testing.T) {
	tests := []struct {
		name     string
		loadName string
		areaName string
		want     bool
	}{
		{"plain load kept", "Pendant", "Kitchen", false},
		{"empty name", "", "Kitchen", true},
		{"not used marker", "NOT USED", "Kitchen", true},
		{"not used marker padded", "  NOT USED  ", "Kitchen", true},
		{"not used as part of a longer name kept", "NOT USED 3", "Kitchen", false},
		{"station load artifact", "Station Load 12", "Kitchen", true},
		{"color load artifact", "Color Load 3", "Kitchen", true},
		{"dimload artifact", "Hall DIMLOAD", "Kitchen", true},
		{"excluded wiring area", "Channel 4", "0-10V Relays", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := excludedLoad(tt.loadName, tt.areaName); got != tt.want {
				t.Errorf("excludedLoad(%q, %q) = %v, want %v",
					tt.loadName, tt.areaName, got, tt.want)
			}
		})
	}
}

func TestBuildPairsColorControls(t *testing.T) {
	doc := `<?xml version="1.0"?>
<Project>
  <Area VID="1"><Name>Home</Name><Area>0</Area></Area>
  <Area VID="2"><Name>Kitchen</Name><Area>1</Area></Area>
  <Load VID="10"><Name>Pendant</Name><Area>2</Area><LoadType>Incandescent</LoadType></Load>
  <Load VID="11"><Name>Pendant COLOR</Name><Area>2</Area><LoadType>HID</LoadType></Load>
  <Load VID="12"><Name>Orphan COLOR</Name><Area>2</Area><LoadType>HID</LoadType></Load>
</Project>`

	client := build(t, doc)

	light := client.OutputByVID(10)
	if light == nil {
		t.Fatal("light not registered")
	}
	if light.PairedVID() != 11 {
		t.Errorf("light paired vid = %d, want 11", light.PairedVID())
	}
	if !light.SupportsColorTemp() {
		t.Error("paired light should support color temperature")
	}

	ctrl := client.OutputByVID(11)
	if ctrl == nil {
		t.Fatal("color control not registered")
	}
	if ctrl.Kind() != infusion.OutputColor {
		t.Errorf("control kind = %q, want %q", ctrl.Kind(), infusion.OutputColor)
	}
	if ctrl.PairedVID() != 10 {
		t.Errorf("control paired vid = %d, want 10", ctrl.PairedVID())
	}

	orphan := client.OutputByVID(12)
	if orphan == nil {
		t.Fatal("orphan control should still be registered")
	}
	if orphan.PairedVID() != 0 {
		t.Errorf("orphan paired vid = %d, want 0", orphan.PairedVID())
	}
}

func TestBuildColorPairingRequiresSameArea(t *testing.T) {
	doc := `<?xml version="1.0"?>
<Project>
  <Area VID="1"><Name>Home</Name><Area>0</Area></Area>
  <Area VID="2"><Name>Kitchen</Name><Area>1</Area></Area>
  <Area VID="3"><Name>Hall</Name><Area>1</Area></Area>
  <Load VID="10"><Name>Pendant</Name><Area>2</Area><LoadType>Incandescent</LoadType></Load>
  <Load VID="11"><Name>Pendant COLOR</Name><Area>3</Area><LoadType>HID</LoadType></Load>
</Project>`

	client := build(t, doc)
	if got := client.OutputByVID(10).PairedVID(); got != 0 {
		t.Errorf("cross-area pairing: paired vid = %d, want 0", got)
	}
}

func TestBuildAssemblesTripleRelayShade(t *testing.T) {
	doc := `<?xml version="1.0"?>
<Project>
  <Area VID="1"><Name>Home</Name><Area>0</Area></Area>
  <Area VID="2"><Name>Garage</Name><Area>1</Area></Area>
  <Load VID="70"><Name>Door Open</Name><Area>2</Area><LoadType>Low Voltage Relay</LoadType></Load>
  <Load VID="71"><Name>Door Close</Name><Area>2</Area><LoadType>Low Voltage Relay</LoadType></Load>
  <Load VID="72"><Name>Door Stop</Name><Area>2</Area><LoadType>Low Voltage Relay</LoadType></Load>
  <DryContact VID="73"><Name>Door Is Open</Name><Area>2</Area></DryContact>
</Project>`

	client := build(t, doc)

	s, ok := client.EntityByTypeVID(infusion.CommandLoad, 70).(*infusion.Shade3)
	if !ok {
		t.Fatalf("vid 70 = %T, want *infusion.Shade3", client.EntityByTypeVID(infusion.CommandLoad, 70))
	}
	if !s.HasSenseContact() {
		t.Error("composite should have claimed the sense contact")
	}

	// Constituent relays route to the composite, not standalone outputs.
	if client.OutputByVID(71) != nil {
		t.Error("close relay should not be a standalone output")
	}
	if client.OutputByVID(72) != nil {
		t.Error("stop relay should not be a standalone output")
	}
	if got := client.EntityByTypeVID(infusion.CommandLoad, 71); got != infusion.Entity(s) {
		t.Errorf("close relay routes to %T, want the composite", got)
	}
}

func TestBuildRejectsCrossAreaShadeComposite(t *testing.T) {
	doc := `<?xml version="1.0"?>
<Project>
  <Area VID="1"><Name>Home</Name><Area>0</Area></Area>
  <Area VID="2"><Name>Garage</Name><Area>1</Area></Area>
  <Area VID="3"><Name>Yard</Name><Area>1</Area></Area>
  <Load VID="70"><Name>Door Open</Name><Area>2</Area><LoadType>Low Voltage Relay</LoadType></Load>
  <Load VID="71"><Name>Door Close</Name><Area>3</Area><LoadType>Low Voltage Relay</LoadType></Load>
</Project>`

	client := build(t, doc)

	if _, ok := client.EntityByTypeVID(infusion.CommandLoad, 70).(*infusion.Shade3); ok {
		t.Fatal("cross-area constituents must not assemble a composite")
	}
	if client.OutputByVID(70) == nil || client.OutputByVID(71) == nil {
		t.Error("rejected constituents should remain plain outputs")
	}
}

func TestBuildFullColorCapabilities(t *testing.T) {
	doc := `<?xml version="1.0"?>
<Project>
  <Area VID="1"><Name>Home</Name><Area>0</Area></Area>
  <Area VID="2"><Name>Lounge</Name><Area>1</Area></Area>
  <Load VID="40"><Name>Strip</Name><Area>2</Area><LoadType>RGB</LoadType><Channel1>1</Channel1><Channel2>2</Channel2></Load>
  <Load VID="41"><Name>Cove</Name><Area>2</Area><LoadType>RGB</LoadType><Channel1>1</Channel1></Load>
</Project>`

	client := build(t, doc)

	strip := client.OutputByVID(40)
	if strip == nil {
		t.Fatal("strip not registered")
	}
	if !strip.SupportsColor() {
		t.Error("multi-channel RGB load should support full color")
	}
	if !strip.SupportsColorTemp() {
		t.Error("multi-channel RGB load should support color temperature")
	}

	// A single-channel RGB fixture is dim-to-warm: temperature only.
	cove := client.OutputByVID(41)
	if cove == nil {
		t.Fatal("cove not registered")
	}
	if cove.SupportsColor() {
		t.Error("single-channel RGB load should not support full color")
	}
	if !cove.SupportsColorTemp() {
		t.Error("single-channel RGB load should support color temperature")
	}
	if got := cove.LoadType(); got != "DW" {
		t.Errorf("cove load type = %q, want %q", got, "DW")
	}
}

func TestBuildOmitsCrossAreaStopRelay(t *testing.T) {
	doc := `<?xml version="1.0"?>
<Project>
  <Area VID="1"><Name>Home</Name><Area>0</Area></Area>
  <Area VID="2"><Name>Garage</Name><Area>1</Area></Area>
  <Area VID="3"><Name>Yard</Name><Area>1</Area></Area>
  <Load VID="70"><Name>Door Open</Name><Area>2</Area><LoadType>Low Voltage Relay</LoadType></Load>
  <Load VID="71"><Name>Door Close</Name><Area>2</Area><LoadType>Low Voltage Relay</LoadType></Load>
  <Load VID="72"><Name>Door Stop</Name><Area>3</Area><LoadType>Low Voltage Relay</LoadType></Load>
</Project>`

	client := build(t, doc)

	// Open and close share an area, so the composite still assembles;
	// the stray stop relay stays a plain output.
	if _, ok := client.EntityByTypeVID(infusion.CommandLoad, 70).(*infusion.Shade3); !ok {
		t.Fatalf("vid 70 = %T, want *infusion.Shade3", client.EntityByTypeVID(infusion.CommandLoad, 70))
	}
	if client.OutputByVID(72) == nil {
		t.Error("cross-area stop relay should remain a plain output")
	}
}

func TestGroupDelegation(t *testing.T) {
	records := map[int]*loadRecord{
		10: {vid: 10, kind: string(infusion.OutputLight), loadType: "Incandescent"},
		11: {vid: 11, kind: string(infusion.OutputColor), loadType: "HID"},
		20: {vid: 20, kind: string(infusion.OutputLight), dmxColor: true},
		21: {vid: 21, kind: string(infusion.OutputLight), dmxColor: true},
	}

	t.Run("dimmer plus color control delegates brightness", func(t *testing.T) {
		spec := groupDelegation([]int{10, 11}, records)
		if spec.BrightnessVID != 10 {
			t.Errorf("BrightnessVID = %d, want 10", spec.BrightnessVID)
		}
		if len(spec.ColorVIDs) != 1 || spec.ColorVIDs[0] != 11 {
			t.Errorf("ColorVIDs = %v, want [11]", spec.ColorVIDs)
		}
		if spec.DMXColor {
			t.Error("mixed group must not advertise full color")
		}
	})

	t.Run("all dmx members make a full-color group", func(t *testing.T) {
		spec := groupDelegation([]int{20, 21}, records)
		if !spec.DMXColor {
			t.Error("uniform DMX group should advertise full color")
		}
		if len(spec.ColorVIDs) != 2 {
			t.Errorf("ColorVIDs = %v, want both members", spec.ColorVIDs)
		}
		if spec.BrightnessVID != 0 {
			t.Errorf("BrightnessVID = %d, want 0", spec.BrightnessVID)
		}
	})

	t.Run("two dimmers delegate nothing", func(t *testing.T) {
		spec := groupDelegation([]int{10, 10}, records)
		if spec.BrightnessVID != 0 || len(spec.ColorVIDs) != 0 {
			t.Errorf("plain group delegated: %+v", spec)
		}
	})
}

func TestBuildVariableKinds(t *testing.T) {
	doc := `<?xml version="1.0"?>
<Project>
  <Area VID="1"><Name>Home</Name><Area>0</Area></Area>
  <GMem VID="100"><Name>Counter</Name><Tag>Number</Tag></GMem>
  <GMem VID="101"><Name>Armed</Name><Tag>Bool</Tag></GMem>
  <GMem VID="102"><Name>Message</Name><Tag>Text</Tag></GMem>
  <GMem VID="103"><Name>Untagged</Name></GMem>
</Project>`

	client := build(t, doc)

	tests := []struct {
		vid  int
		want infusion.VariableKind
	}{
		{100, infusion.VariableNumber},
		{101, infusion.VariableBool},
		{102, infusion.VariableText},
		{103, infusion.VariableNumber},
	}
	for _, tt := range tests {
		v, ok := client.EntityByTypeVID(infusion.CommandVariable, tt.vid).(*infusion.Variable)
		if !ok {
			t.Fatalf("vid %d not registered as a variable", tt.vid)
		}
		if v.Kind() != tt.want {
			t.Errorf("vid %d kind = %q, want %q", tt.vid, v.Kind(), tt.want)
		}
	}
}

func TestBuildNamePrefersDisplayName(t *testing.T) {
	doc := `<?xml version="1.0"?>
<Project>
  <Area VID="1"><Name>Home</Name><Area>0</Area></Area>
  <Area VID="2"><Name>Kitchen</Name><Area>1</Area></Area>
  <Load VID="10"><Name>LD-K-01</Name><DName>Pendant</DName><Area>2</Area><LoadType>Incandescent</LoadType></Load>
</Project>`

	client := build(t, doc)
	if got := client.OutputByVID(10).Name(); got != "Kitchen-Pendant" {
		t.Errorf("name = %q, want %q", got, "Kitchen-Pendant")
	}
}

func TestBuildSkipsMalformedObject(t *testing.T) {
	doc := `<?xml version="1.0"?>
<Project>
  <Area VID="1"><Name>Home</Name><Area>0</Area></Area>
  <Area VID="2"><Name>Kitchen</Name><Area>1</Area></Area>
  <Load VID="bogus"><Name>Broken</Name><Area>2</Area><LoadType>Incandescent</LoadType></Load>
  <Load VID="10"><Name>Pendant</Name><Area>2</Area><LoadType>Incandescent</LoadType></Load>
</Project>`

	client := build(t, doc)
	if len(client.Outputs()) != 1 {
		t.Fatalf("outputs = %d, want 1", len(client.Outputs()))
	}
	if client.OutputByVID(10) == nil {
		t.Error("well-formed sibling should survive a malformed object")
	}
}

func TestBuildProjectName(t *testing.T) {
	doc := `<?xml version="1.0"?>
<Project>
  <Area VID="1"><Name>Smith Residence</Name><Area>0</Area></Area>
  <Load VID="10"><Name>Pendant</Name><Area>1</Area><LoadType>Incandescent</LoadType></Load>
</Project>`

	b := NewBuilder(infusion.ClientConfig{}, nil)
	if _, err := b.Build([]byte(doc)); err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if b.ProjectName() != "Smith Residence" {
		t.Errorf("ProjectName = %q, want %q", b.ProjectName(), "Smith Residence")
	}
}
