package infusion

import (
	"strconv"
	"strings"
	"sync"
)

// OutputKind classifies an output at parse time.
type OutputKind string

const (
	// OutputLight is a dimmable or switched lighting circuit.
	OutputLight OutputKind = "LIGHT"

	// OutputRelay is a high or low voltage relay circuit.
	OutputRelay OutputKind = "RELAY"

	// OutputColor is the auxiliary color-control load paired to a
	// lighting circuit; level updates on it carry color temperature.
	OutputColor OutputKind = "COLOR"

	// OutputGroup is a controller-side aggregate of loads.
	OutputGroup OutputKind = "GROUP"
)

// Default ramp durations in seconds. The project file does not carry
// per-load ramps, so these apply uniformly unless overridden.
const (
	defaultRampUp    = 2.0
	defaultRampDown  = 2.0
	defaultRampColor = 2.0
)

// OutputSpec describes an output to construct.
type OutputSpec struct {
	VID      int
	Area     int
	Name     string
	Kind     OutputKind
	LoadType string

	// PairedVID links a dimmable load to its auxiliary color-control
	// load, and a color-control load back to its paired light. Zero
	// means unpaired.
	PairedVID int

	// DMXColor marks a full-color (RGB/RGBW channel) load.
	DMXColor bool

	// Ramp durations in seconds; zero selects the defaults.
	RampUp    float64
	RampDown  float64
	RampColor float64
}

// Output is a controllable load: a light, relay, color control, or
// (via LoadGroup) an aggregate.
//
// Classification is derived once at parse time and never recomputed:
// exactly one of plain dimmer, color-temperature-capable, or full
// DMX-color-capable applies. Cached state is guarded by a narrow
// mutex; network-driven writes all happen on the dispatch worker.
type Output struct {
	entityBase
	kind      OutputKind
	loadType  string
	pairedVID int
	dmxColor  bool
	rampUp    float64
	rampDown  float64
	rampColor float64

	mu          sync.Mutex
	level       float64
	levelKnown  bool
	rgb         [3]int
	hs          [2]float64
	colorTemp   int
	dirty       bool
	addedStatus bool

	waiters queryWaiter
}

// NewOutput constructs and registers an output. Color-capable loads
// additionally register under the STATUS table to receive extended
// RGBLoad updates.
func (c *Client) NewOutput(spec OutputSpec) (*Output, error) {
	o := &Output{
		entityBase: entityBase{client: c, vid: spec.VID, area: spec.Area},
		kind:       spec.Kind,
		loadType:   spec.LoadType,
		pairedVID:  spec.PairedVID,
		dmxColor:   spec.DMXColor,
		rampUp:     spec.RampUp,
		rampDown:   spec.RampDown,
		rampColor:  spec.RampColor,
	}
	if o.rampUp == 0 {
		o.rampUp = defaultRampUp
	}
	if o.rampDown == 0 {
		o.rampDown = defaultRampDown
	}
	if o.rampColor == 0 {
		o.rampColor = defaultRampColor
	}

	types := []CommandType{CommandLoad}
	if o.dmxColor {
		types = append(types, CommandStatus)
	}
	if err := c.register(o, spec.Name, types...); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.loads[o.vid] = o
	a := c.areas[o.area]
	c.mu.Unlock()
	if a != nil {
		a.addOutput(o)
	}
	return o, nil
}

// Kind returns the parse-time output classification.
func (o *Output) Kind() OutputKind { return o.kind }

// LoadType returns the raw load subtype string from the project file.
func (o *Output) LoadType() string { return o.loadType }

// PairedVID returns the linked color-control (or parent light) vid,
// zero when unpaired.
func (o *Output) PairedVID() int { return o.pairedVID }

// IsDimmable reports whether the load accepts ramped level writes.
func (o *Output) IsDimmable() bool {
	return !strings.Contains(strings.ToLower(o.loadType), "non-dim")
}

// SupportsColorTemp reports whether the load accepts a color
// temperature: it has a paired color control, is a dynamic-white or
// RGB-channel load, or is full-color (served via the Kelvin to RGB
// path).
func (o *Output) SupportsColorTemp() bool {
	return o.pairedVID != 0 || o.dmxColor || o.loadType == "DW" ||
		strings.HasPrefix(o.loadType, "RGB")
}

// SupportsColor reports whether the load is full-color.
func (o *Output) SupportsColor() bool { return o.dmxColor }

// LastLevel returns the cached level without querying.
func (o *Output) LastLevel() float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.level
}

// Level queries the controller for the current level and returns it,
// falling back to the cached value when the reply does not arrive
// within the query timeout. Concurrent callers coalesce onto one
// outstanding GETLOAD.
func (o *Output) Level() float64 {
	ch := o.waiters.request(o.queryLevel)
	await(ch, o.client.queryTimeout)
	return o.LastLevel()
}

// queryLevel issues the level query, enabling extended status once per
// color-capable device first.
func (o *Output) queryLevel() {
	o.mu.Lock()
	needStatus := o.dmxColor && !o.addedStatus
	if needStatus {
		o.addedStatus = true
	}
	o.mu.Unlock()

	if needStatus {
		_ = o.client.send("ADDSTATUS", o.vid)
	}
	_ = o.client.send("GETLOAD", o.vid)
}

// SetLevel writes a new level. Dimmable loads ramp with distinct
// durations for up and down; others switch with a plain load write.
func (o *Output) SetLevel(level float64) error {
	o.mu.Lock()
	if o.levelKnown && o.level == level {
		o.mu.Unlock()
		return nil
	}
	ramp := o.rampUp
	if level < o.level {
		ramp = o.rampDown
	}
	o.level = level
	o.levelKnown = true
	o.mu.Unlock()

	if o.IsDimmable() {
		return o.client.send("RAMPLOAD", o.vid, formatLevel(level), formatLevel(ramp))
	}
	return o.client.send("LOAD", o.vid, formatLevel(level))
}

// RGB returns the cached color triple.
func (o *Output) RGB() (r, g, b int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.rgb[0], o.rgb[1], o.rgb[2]
}

// HS returns the cached hue (0-360) and saturation (0-100).
func (o *Output) HS() (hue, sat float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.hs[0], o.hs[1]
}

// ColorTemp returns the cached color temperature in Kelvin.
func (o *Output) ColorTemp() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.colorTemp
}

// SetRGB stores a new color target and flushes it scaled by the
// current brightness. At zero brightness the flush is deferred to the
// next level update above zero, so the effect is visible when the
// light turns on.
func (o *Output) SetRGB(r, g, b int) error {
	o.mu.Lock()
	if o.rgb == [3]int{r, g, b} {
		o.mu.Unlock()
		return nil
	}
	o.rgb = [3]int{r, g, b}
	h, s := rgbToHS(r, g, b)
	o.hs = [2]float64{h, s}
	o.dirty = true
	level := o.level
	o.mu.Unlock()

	if level > 0 {
		return o.flushColor()
	}
	return nil
}

// SetHS stores a new hue/saturation target; the write path is shared
// with SetRGB.
func (o *Output) SetHS(hue, sat float64) error {
	r, g, b := hsToRGB(hue, sat)
	o.mu.Lock()
	if o.hs == [2]float64{hue, sat} {
		o.mu.Unlock()
		return nil
	}
	o.hs = [2]float64{hue, sat}
	o.rgb = [3]int{r, g, b}
	o.dirty = true
	level := o.level
	o.mu.Unlock()

	if level > 0 {
		return o.flushColor()
	}
	return nil
}

// SetColorTemp writes a color temperature. On a DMX or dynamic-white
// load the Kelvin value is expressed as an RGB triple through the
// normal color path; on a discrete device it ramps the paired
// color-control load to the mapped level.
func (o *Output) SetColorTemp(kelvin int) error {
	o.mu.Lock()
	if o.colorTemp == kelvin {
		o.mu.Unlock()
		return nil
	}
	o.colorTemp = kelvin
	o.mu.Unlock()

	if o.dmxColor || o.loadType == "DW" {
		r, g, b := kelvinToRGB(kelvin)
		return o.SetRGB(r, g, b)
	}
	if o.pairedVID != 0 {
		return o.client.send("RAMPLOAD", o.pairedVID,
			formatLevel(kelvinToLevel(kelvin)), formatLevel(o.rampColor))
	}
	o.client.logger.Debug("color temp write on incapable load", "vid", o.vid)
	return nil
}

// flushColor sends the stored color target scaled by brightness and
// clears the dirty flag.
func (o *Output) flushColor() error {
	o.mu.Lock()
	scale := o.level / 100
	r := int(float64(o.rgb[0]) * scale)
	g := int(float64(o.rgb[1]) * scale)
	b := int(float64(o.rgb[2]) * scale)
	o.dirty = false
	o.mu.Unlock()

	return o.client.send("INVOKE", o.vid, "RGBLoad.SetRGBW",
		strconv.Itoa(r), strconv.Itoa(g), strconv.Itoa(b), "0")
}

// HandleUpdate applies a routed line.
//
// A plain level on a COLOR output is a color-temperature change for
// its paired light: the paired load's cache is updated and returned as
// the notify target. Extended STATUS updates carry per-channel RGB
// readback. A level update above zero flushes a deferred color write.
func (o *Output) HandleUpdate(t CommandType, _ int, args []string) Entity {
	if t == CommandStatus {
		return o.handleExtendedStatus(args)
	}
	if len(args) < 1 {
		return nil
	}
	level, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		o.client.logger.Warn("unparseable level", "vid", o.vid, "args", args)
		return nil
	}

	if o.kind == OutputColor {
		return o.handleColorControlLevel(level)
	}

	o.mu.Lock()
	o.level = level
	o.levelKnown = true
	flush := o.dirty && level > 0
	o.mu.Unlock()

	if flush {
		_ = o.flushColor()
	}
	o.waiters.notify()
	return o
}

// handleColorControlLevel translates a color-control level into a
// color temperature on the paired light.
func (o *Output) handleColorControlLevel(level float64) Entity {
	kelvin := levelToKelvin(level)
	light := o.client.OutputByVID(o.pairedVID)
	if light == nil {
		o.client.logger.Warn("color change with no paired load",
			"vid", o.vid, "paired", o.pairedVID)
		return o
	}
	light.mu.Lock()
	light.colorTemp = kelvin
	light.mu.Unlock()
	light.waiters.notify()
	return light
}

// handleExtendedStatus applies RGBLoad channel readback, e.g.
// `S:STATUS <vid> RGBLoad.GetRGB <value> <channel>`.
func (o *Output) handleExtendedStatus(args []string) Entity {
	if len(args) < 3 || !strings.HasPrefix(args[0], "RGBLoad.Get") {
		return nil
	}
	val, err1 := strconv.Atoi(args[1])
	ch, err2 := strconv.Atoi(args[2])
	if err1 != nil || err2 != nil {
		return nil
	}

	o.mu.Lock()
	if ch >= 0 && ch < 3 {
		o.rgb[ch] = val
	}
	last := ch == 2
	o.mu.Unlock()

	if last {
		o.waiters.notify()
	}
	return o
}

// formatLevel renders a level or duration without trailing zeros.
func formatLevel(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
