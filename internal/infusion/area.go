package infusion

// Area is a room or zone in the controller's topology. The parent chain
// terminates at 0 within a small bounded depth and is used only for
// display-name construction, never for command routing.
type Area struct {
	vid    int
	name   string
	parent int
	note   string

	outputs []*Output
	keypads []*Keypad
	buttons []*Button
	sensors []*Sensor
}

// NewArea registers an area. Areas receive no wire updates; they exist
// for lineage naming and child grouping.
func (c *Client) NewArea(vid int, name string, parent int, note string) *Area {
	a := &Area{vid: vid, name: name, parent: parent, note: note}
	c.mu.Lock()
	c.areas[vid] = a
	c.mu.Unlock()
	return a
}

func (a *Area) VID() int     { return a.vid }
func (a *Area) Name() string { return a.name }
func (a *Area) Parent() int  { return a.parent }
func (a *Area) Note() string { return a.note }

// Children, in registration order.
func (a *Area) Outputs() []*Output { return a.outputs }
func (a *Area) Keypads() []*Keypad { return a.keypads }
func (a *Area) Buttons() []*Button { return a.buttons }
func (a *Area) Sensors() []*Sensor { return a.sensors }

func (a *Area) addOutput(o *Output) { a.outputs = append(a.outputs, o) }
func (a *Area) addKeypad(k *Keypad) { a.keypads = append(a.keypads, k) }
func (a *Area) addButton(b *Button) { a.buttons = append(a.buttons, b) }
func (a *Area) addSensor(s *Sensor) { a.sensors = append(a.sensors, s) }
