package infusion

import (
	"errors"
	"testing"
)

func TestVariableTextRoundTrip(t *testing.T) {
	c, ft := newTestClient(t)
	v, err := c.NewVariable(2721, "Message", VariableText)
	if err != nil {
		t.Fatalf("NewVariable: %v", err)
	}

	const text = `he said "hi"`
	if err := v.SetText(text); err != nil {
		t.Fatalf("SetText: %v", err)
	}

	want := `VARIABLE 2721 "he said ""hi"""`
	sent := ft.sentLines()
	if len(sent) != 1 || sent[0] != want {
		t.Fatalf("sent = %v, want [%s]", sent, want)
	}

	// An inbound echo of the doubled-quote form decodes back to the
	// original string.
	c.dispatch(inbound{conn: 0, line: `S:VARIABLE 2721 "he said ""hi"""`})
	if got := v.Value(); got != text {
		t.Errorf("decoded value = %q, want %q", got, text)
	}
}

func TestVariableTextRejectsNewlines(t *testing.T) {
	c, ft := newTestClient(t)
	v, err := c.NewVariable(2721, "Message", VariableText)
	if err != nil {
		t.Fatalf("NewVariable: %v", err)
	}

	for _, bad := range []string{"line\nbreak", "line\rbreak"} {
		if err := v.SetText(bad); !errors.Is(err, ErrInvalidText) {
			t.Errorf("SetText(%q) = %v, want ErrInvalidText", bad, err)
		}
	}
	if sent := ft.sentLines(); len(sent) != 0 {
		t.Errorf("rejected writes reached the wire: %v", sent)
	}
}

func TestVariableNumericAndBool(t *testing.T) {
	c, ft := newTestClient(t)

	num, err := c.NewVariable(100, "Counter", VariableNumber)
	if err != nil {
		t.Fatalf("NewVariable: %v", err)
	}
	flag, err := c.NewVariable(101, "Armed", VariableBool)
	if err != nil {
		t.Fatalf("NewVariable: %v", err)
	}

	if err := num.SetNumber(42); err != nil {
		t.Fatalf("SetNumber: %v", err)
	}
	if err := flag.SetBool(true); err != nil {
		t.Fatalf("SetBool: %v", err)
	}

	sent := ft.sentLines()
	if len(sent) != 2 || sent[0] != "VARIABLE 100 42" || sent[1] != "VARIABLE 101 1" {
		t.Errorf("sent = %v", sent)
	}

	// Push updates are the only read path for numeric and boolean.
	c.dispatch(inbound{conn: 0, line: "S:VARIABLE 100 7"})
	if got := num.Value(); got != 7 {
		t.Errorf("numeric value = %v, want 7", got)
	}
	c.dispatch(inbound{conn: 0, line: "S:VARIABLE 101 0"})
	if got := flag.Value(); got != false {
		t.Errorf("bool value = %v, want false", got)
	}
}
