package infusion

// Entity is implemented by every addressable object in the controller's
// topology. Entities are registered once, at construction, into the
// owning Client's typed registry.
type Entity interface {
	// VID returns the controller's integer identifier for this entity.
	VID() int

	// Name returns the hierarchical display name assigned at
	// registration.
	Name() string

	// Area returns the vid of the entity's owning area (0 for
	// area-less objects such as variables and tasks).
	Area() int

	// HandleUpdate applies a routed status or response line. t is the
	// normalized command type the line routed under; vid is the
	// physical device id it addressed, which composite entities use to
	// disambiguate constituents. The return value is the entity whose
	// subscribers must be notified, which may differ from the receiver
	// (a color control updates its paired load, a button re-dispatches
	// to its keypad), or nil when nobody should be notified.
	HandleUpdate(t CommandType, vid int, args []string) Entity

	setName(string)
}

// entityBase carries the identity fields common to every entity. The
// name is written once during registration, before the dispatch worker
// starts, and is read-only afterwards.
type entityBase struct {
	client *Client
	vid    int
	area   int
	name   string
}

func (e *entityBase) VID() int         { return e.vid }
func (e *entityBase) Name() string     { return e.name }
func (e *entityBase) Area() int        { return e.area }
func (e *entityBase) setName(n string) { e.name = n }
