package infusion

import "sync"

// Keypad is a wall station owning an ordered set of buttons. It is
// itself value-bearing: its value is the name of the most recently
// actioned button, so keypad-level subscribers see one unified stream
// regardless of which physical button fired.
type Keypad struct {
	entityBase

	mu      sync.Mutex
	buttons []*Button
	value   string
}

// NewKeypad constructs and registers a keypad. The KEYPAD table is
// lookup-only; keypads receive updates through button re-dispatch, not
// from the wire directly.
func (c *Client) NewKeypad(vid, area int, name string) (*Keypad, error) {
	k := &Keypad{entityBase: entityBase{client: c, vid: vid, area: area}}
	if err := c.register(k, name, CommandKeypad); err != nil {
		return nil, err
	}

	c.mu.Lock()
	a := c.areas[area]
	c.mu.Unlock()
	if a != nil {
		a.addKeypad(k)
	}
	return k, nil
}

// KeypadByVID resolves a registered keypad, or nil.
func (c *Client) KeypadByVID(vid int) *Keypad {
	k, _ := c.EntityByTypeVID(CommandKeypad, vid).(*Keypad)
	return k
}

// Buttons returns the keypad's buttons in registration order.
func (k *Keypad) Buttons() []*Button {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.buttons
}

// Value returns the name of the most recently actioned button.
func (k *Keypad) Value() string {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.value
}

func (k *Keypad) addButton(b *Button) {
	k.mu.Lock()
	k.buttons = append(k.buttons, b)
	k.mu.Unlock()
}

// recordAction is the button re-dispatch path: a press on an owned
// button becomes the keypad's value change.
func (k *Keypad) recordAction(b *Button, action string) {
	if action != "PRESS" {
		return
	}
	k.mu.Lock()
	k.value = b.Name()
	k.mu.Unlock()
}

// HandleUpdate exists to satisfy Entity; keypads are never addressed
// by the wire.
func (k *Keypad) HandleUpdate(_ CommandType, _ int, _ []string) Entity {
	return nil
}
