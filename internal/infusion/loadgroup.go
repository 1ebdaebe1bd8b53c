package infusion

// LoadGroupSpec describes a controller-side load aggregate.
type LoadGroupSpec struct {
	VID        int
	Area       int
	Name       string
	MemberVIDs []int

	// BrightnessVID designates the member that level reads and writes
	// delegate to; zero means the group addresses its own vid.
	BrightnessVID int

	// ColorVIDs are the color-capable members that color writes fan
	// out to.
	ColorVIDs []int

	// DMXColor marks a group whose members are all full-color.
	DMXColor bool
}

// LoadGroup is a named aggregate of loads controlled as one logical
// output.
//
// When the group is exactly one dimmer plus one paired color load, the
// dimmer becomes the brightness delegate: level reads and writes
// transparently forward to it. Color writes fan out additively to
// every color-capable member.
type LoadGroup struct {
	Output
	memberVIDs    []int
	brightnessVID int
	colorVIDs     []int
}

// NewLoadGroup constructs and registers a load group.
func (c *Client) NewLoadGroup(spec LoadGroupSpec) (*LoadGroup, error) {
	g := &LoadGroup{
		Output: Output{
			entityBase: entityBase{client: c, vid: spec.VID, area: spec.Area},
			kind:       OutputGroup,
			loadType:   "GROUP",
			dmxColor:   spec.DMXColor,
			rampUp:     defaultRampUp,
			rampDown:   defaultRampDown,
			rampColor:  defaultRampColor,
		},
		memberVIDs:    spec.MemberVIDs,
		brightnessVID: spec.BrightnessVID,
		colorVIDs:     spec.ColorVIDs,
	}

	types := []CommandType{CommandLoad}
	if spec.DMXColor {
		types = append(types, CommandStatus)
	}
	if err := c.register(g, spec.Name, types...); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.groups = append(c.groups, g)
	a := c.areas[g.area]
	c.mu.Unlock()
	if a != nil {
		a.addOutput(&g.Output)
	}
	return g, nil
}

// MemberVIDs returns the aggregated member vids.
func (g *LoadGroup) MemberVIDs() []int { return g.memberVIDs }

// BrightnessVID returns the delegate member vid, zero when none.
func (g *LoadGroup) BrightnessVID() int { return g.brightnessVID }

// HandleUpdate keeps group-addressed status updates attributed to the
// group: the embedded output does the parsing, but subscribers see the
// group entity, not its inner output.
func (g *LoadGroup) HandleUpdate(t CommandType, vid int, args []string) Entity {
	target := g.Output.HandleUpdate(t, vid, args)
	if target == &g.Output {
		return g
	}
	return target
}

// delegate resolves the brightness member, or nil.
func (g *LoadGroup) delegate() *Output {
	if g.brightnessVID == 0 {
		return nil
	}
	return g.client.OutputByVID(g.brightnessVID)
}

// Level reads through the brightness delegate when one is designated.
func (g *LoadGroup) Level() float64 {
	if d := g.delegate(); d != nil {
		return d.Level()
	}
	return g.Output.Level()
}

// LastLevel reads the delegate's cache when one is designated.
func (g *LoadGroup) LastLevel() float64 {
	if d := g.delegate(); d != nil {
		return d.LastLevel()
	}
	return g.Output.LastLevel()
}

// SetLevel writes through the brightness delegate when one is
// designated.
func (g *LoadGroup) SetLevel(level float64) error {
	if d := g.delegate(); d != nil {
		return d.SetLevel(level)
	}
	return g.Output.SetLevel(level)
}

// SetRGB fans the color write out to every color-capable member; a
// fully-color group also writes its own vid.
func (g *LoadGroup) SetRGB(r, gr, b int) error {
	var firstErr error
	for _, vid := range g.colorVIDs {
		if m := g.client.OutputByVID(vid); m != nil {
			if err := m.SetRGB(r, gr, b); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	if g.dmxColor {
		if err := g.Output.SetRGB(r, gr, b); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// SetHS fans out like SetRGB.
func (g *LoadGroup) SetHS(hue, sat float64) error {
	r, gr, b := hsToRGB(hue, sat)
	return g.SetRGB(r, gr, b)
}

// SetColorTemp fans the temperature write out to every color-capable
// member.
func (g *LoadGroup) SetColorTemp(kelvin int) error {
	var firstErr error
	for _, vid := range g.colorVIDs {
		if m := g.client.OutputByVID(vid); m != nil {
			if err := m.SetColorTemp(kelvin); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	if g.dmxColor {
		if err := g.Output.SetColorTemp(kelvin); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
