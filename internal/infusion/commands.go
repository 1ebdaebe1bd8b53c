package infusion

// CommandType identifies the routing table an entity is registered
// under. It matches the TYPE token of inbound `R:<TYPE>` / `S:<TYPE>`
// lines after GET normalization.
type CommandType string

// Routing command types.
const (
	CommandLoad     CommandType = "LOAD"
	CommandBlind    CommandType = "BLIND"
	CommandButton   CommandType = "BTN"
	CommandLED      CommandType = "LED"
	CommandVariable CommandType = "VARIABLE"
	CommandTask     CommandType = "TASK"
	CommandStatus   CommandType = "STATUS"
	CommandSensor   CommandType = "SENSOR"
	CommandPower    CommandType = "POWER"
	CommandCurrent  CommandType = "CURRENT"
	CommandLight    CommandType = "LIGHT"

	// CommandKeypad is a registry-only table for keypad lookup during
	// topology construction; no wire line carries it.
	CommandKeypad CommandType = "KEYPAD"
)

// responseTypes is the allow-list for `R:` lines. The controller echoes
// some command types only as responses, others only as status.
var responseTypes = map[string]bool{
	"LOGIN":       true,
	"LOAD":        true,
	"RAMPLOAD":    true,
	"STATUS":      true,
	"ADDSTATUS":   true,
	"DELSTATUS":   true,
	"GETLOAD":     true,
	"VARIABLE":    true,
	"GETVARIABLE": true,
	"TASK":        true,
	"BLIND":       true,
	"GETBLIND":    true,
	"INVOKE":      true,
	"BTN":         true,
	"ERROR":       true,
	"GETPOWER":    true,
	"GETCURRENT":  true,
	"GETSENSOR":   true,
	"GETLIGHT":    true,
}

// statusTypes is the allow-list for `S:` lines.
var statusTypes = map[string]bool{
	"LOAD":     true,
	"TASK":     true,
	"BTN":      true,
	"LED":      true,
	"VARIABLE": true,
	"BLIND":    true,
	"STATUS":   true,
	"RAMPLOAD": true,
}

// responseAcks are `R:` types that acknowledge a command without
// carrying routable state. They are dropped after the pending-command
// FIFO pop.
var responseAcks = map[string]bool{
	"LOGIN":     true,
	"STATUS":    true,
	"ADDSTATUS": true,
	"DELSTATUS": true,
	"INVOKE":    true,
	"RAMPLOAD":  true,
	"TASK":      true,
	"BLIND":     true,
	"VARIABLE":  true,
}

// affinity selects which connection a verb is written to.
type affinity int

const (
	// affinityRoundRobin advances the pool cursor, spreading writes
	// across connections.
	affinityRoundRobin affinity = iota

	// affinityPinned reuses the current connection without advancing
	// the cursor, so a query and its reply use a slot consistently.
	affinityPinned
)

// verbAffinity maps outbound verbs to their write affinity. Verbs not
// listed default to round-robin.
var verbAffinity = map[string]affinity{
	"GETLOAD":     affinityPinned,
	"GETBLIND":    affinityPinned,
	"GETVARIABLE": affinityPinned,
	"GETSENSOR":   affinityPinned,
	"GETPOWER":    affinityPinned,
	"GETCURRENT":  affinityPinned,
	"GETLIGHT":    affinityPinned,
}
