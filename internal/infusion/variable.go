package infusion

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// VariableKind is a variable's value subtype.
type VariableKind string

const (
	VariableNumber VariableKind = "number"
	VariableBool   VariableKind = "bool"
	VariableText   VariableKind = "text"
)

// Variable is a controller-side global value. Writes always go to the
// wire; reads are push-only, the controller emits an update whenever
// the value changes.
type Variable struct {
	entityBase
	kind VariableKind

	mu    sync.Mutex
	value any
}

// NewVariable constructs and registers a variable. Variables have no
// area; their names pick up no lineage prefix.
func (c *Client) NewVariable(vid int, name string, kind VariableKind) (*Variable, error) {
	v := &Variable{
		entityBase: entityBase{client: c, vid: vid},
		kind:       kind,
	}
	if err := c.register(v, name, CommandVariable); err != nil {
		return nil, err
	}
	return v, nil
}

// Kind returns the value subtype.
func (v *Variable) Kind() VariableKind { return v.kind }

// Value returns the cached value: int for numeric, bool for boolean,
// string for text, nil before the first update.
func (v *Variable) Value() any {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.value
}

// SetNumber writes a numeric value.
func (v *Variable) SetNumber(n int) error {
	v.mu.Lock()
	v.value = n
	v.mu.Unlock()
	return v.client.send("VARIABLE", v.vid, strconv.Itoa(n))
}

// SetBool writes a boolean value as 1 or 0.
func (v *Variable) SetBool(b bool) error {
	v.mu.Lock()
	v.value = b
	v.mu.Unlock()
	n := "0"
	if b {
		n = "1"
	}
	return v.client.send("VARIABLE", v.vid, n)
}

// SetText writes a text value, quoted with embedded quotes doubled.
// Newlines and carriage returns cannot be carried on the wire and are
// rejected.
func (v *Variable) SetText(s string) error {
	quoted, err := quoteText(s)
	if err != nil {
		return err
	}
	v.mu.Lock()
	v.value = s
	v.mu.Unlock()
	return v.client.send("VARIABLE", v.vid, quoted)
}

// HandleUpdate applies a variable change pushed by the controller.
// Text values arrive quoted with doubled embedded quotes; everything
// else is numeric.
func (v *Variable) HandleUpdate(_ CommandType, _ int, args []string) Entity {
	if len(args) < 1 {
		return nil
	}
	raw := strings.Join(args, " ")

	v.mu.Lock()
	defer v.mu.Unlock()

	if strings.HasPrefix(raw, `"`) {
		v.value = unquoteText(raw)
		return v
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		v.client.logger.Warn("unparseable variable value", "vid", v.vid, "args", args)
		return nil
	}
	if v.kind == VariableBool {
		v.value = n != 0
	} else {
		v.value = n
	}
	return v
}

// quoteText wraps s in quotes, doubling embedded quotes.
func quoteText(s string) (string, error) {
	if strings.ContainsAny(s, "\n\r") {
		return "", fmt.Errorf("%w: %q", ErrInvalidText, s)
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`, nil
}

// unquoteText reverses quoteText.
func unquoteText(s string) string {
	s = strings.TrimPrefix(s, `"`)
	s = strings.TrimSuffix(s, `"`)
	return strings.ReplaceAll(s, `""`, `"`)
}
