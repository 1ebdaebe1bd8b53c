package dcimport

// Raw XML object shapes. Every addressable object carries its vid as a
// VID attribute; cross-references (parent area, keypad) are element
// text holding the referenced vid.

type xmlArea struct {
	VID  string `xml:"VID,attr"`
	Name string `xml:"Name"`
	Area string `xml:"Area"`
	Note string `xml:"Note"`
}

type xmlLoad struct {
	VID       string `xml:"VID,attr"`
	Name      string `xml:"Name"`
	DName     string `xml:"DName"`
	Area      string `xml:"Area"`
	LoadType  string `xml:"LoadType"`
	ColorType string `xml:"ColorType"`
	Channel1  string `xml:"Channel1"`
	Channel2  string `xml:"Channel2"`
	Channel3  string `xml:"Channel3"`
}

type xmlLoadGroup struct {
	VID   string   `xml:"VID,attr"`
	Name  string   `xml:"Name"`
	DName string   `xml:"DName"`
	Area  string   `xml:"Area"`
	Loads []string `xml:"LoadTable>Load"`
}

type xmlKeypad struct {
	VID  string `xml:"VID,attr"`
	Name string `xml:"Name"`
	Area string `xml:"Area"`
}

type xmlButton struct {
	VID    string `xml:"VID,attr"`
	Name   string `xml:"Name"`
	Parent struct {
		VID      string `xml:",chardata"`
		Position string `xml:"Position,attr"`
	} `xml:"Parent"`
}

type xmlDryContact struct {
	VID  string `xml:"VID,attr"`
	Name string `xml:"Name"`
	Area string `xml:"Area"`
}

type xmlGMem struct {
	VID  string `xml:"VID,attr"`
	Name string `xml:"Name"`
	Tag  string `xml:"Tag"`
}

type xmlSensor struct {
	VID  string `xml:"VID,attr"`
	Name string `xml:"Name"`
	Area string `xml:"Area"`
}

type xmlTask struct {
	VID  string `xml:"VID,attr"`
	Name string `xml:"Name"`
}

type xmlShade struct {
	VID   string `xml:"VID,attr"`
	Name  string `xml:"Name"`
	DName string `xml:"DName"`
	Area  string `xml:"Area"`
}

// document is the raw object inventory in document order, before the
// dependency-ordered build.
type document struct {
	areas        []xmlArea
	loads        []xmlLoad
	loadGroups   []xmlLoadGroup
	keypads      []xmlKeypad
	buttons      []xmlButton
	dryContacts  []xmlDryContact
	variables    []xmlGMem
	omniSensors  []xmlSensor
	lightSensors []xmlSensor
	tasks        []xmlTask
	shades       []xmlShade
}

func (d *document) empty() bool {
	return len(d.areas) == 0 && len(d.loads) == 0 && len(d.loadGroups) == 0 &&
		len(d.keypads) == 0 && len(d.variables) == 0 && len(d.tasks) == 0 &&
		len(d.shades) == 0
}

// loadRecord is a load after name/type resolution, before
// construction. Pairing and composite assembly mutate these records in
// place; construction happens only when the whole set is resolved.
type loadRecord struct {
	vid      int
	area     int
	name     string
	kind     string // LIGHT, RELAY, COLOR
	loadType string
	dmxColor bool

	// pairedVID links lights and their color controls both ways.
	pairedVID int

	// consumed marks records claimed by a composite shade.
	consumed bool
}

// contactRecord is a dry contact before construction.
type contactRecord struct {
	vid      int
	area     int
	name     string
	consumed bool
}
