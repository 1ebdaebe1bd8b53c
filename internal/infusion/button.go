package infusion

import (
	"strconv"
	"sync"
)

// Button is a keypad button or a standalone dry contact. Buttons owned
// by a keypad re-dispatch their events to it; standalone contacts
// deliver to their own subscribers.
type Button struct {
	entityBase
	position  int
	keypadVID int
	keypad    *Keypad

	mu      sync.Mutex
	pressed bool
}

// NewButton constructs and registers a button. keypadVID of zero makes
// it a standalone dry contact.
func (c *Client) NewButton(vid, area int, name string, position, keypadVID int) (*Button, error) {
	b := &Button{
		entityBase: entityBase{client: c, vid: vid, area: area},
		position:   position,
		keypadVID:  keypadVID,
	}
	if keypadVID != 0 {
		b.keypad = c.KeypadByVID(keypadVID)
		if b.keypad == nil {
			c.logger.Warn("button with unknown parent keypad",
				"vid", vid, "keypad", keypadVID)
		}
	}

	// The controller reports button events as BTN status and LED
	// responses; both route here.
	if err := c.register(b, name, CommandButton, CommandLED); err != nil {
		return nil, err
	}

	if b.keypad != nil {
		b.keypad.addButton(b)
	}
	c.mu.Lock()
	a := c.areas[area]
	c.mu.Unlock()
	if a != nil {
		a.addButton(b)
	}
	return b, nil
}

// Position returns the button's position on its keypad.
func (b *Button) Position() int { return b.position }

// KeypadVID returns the owning keypad vid, zero for a dry contact.
func (b *Button) KeypadVID() int { return b.keypadVID }

// IsPressed returns the cached contact state.
func (b *Button) IsPressed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pressed
}

// HandleUpdate applies a button event. Events arrive either as
// PRESS/RELEASE words or as numeric component/action pairs; owned
// buttons re-dispatch to their keypad so that keypad subscribers are
// notified instead.
func (b *Button) HandleUpdate(_ CommandType, _ int, args []string) Entity {
	if len(args) < 1 {
		return nil
	}

	action := args[0]
	if _, err := strconv.Atoi(action); err == nil {
		// Numeric component/action form; the action code follows.
		if len(args) < 2 {
			return nil
		}
		if args[1] == "1" {
			action = "PRESS"
		} else {
			action = "RELEASE"
		}
	}

	b.mu.Lock()
	b.pressed = action == "PRESS"
	b.mu.Unlock()

	if b.keypad != nil {
		b.keypad.recordAction(b, action)
		return b.keypad
	}
	return b
}
