package dcimport

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nerrad567/infusion-core/internal/infusion"
)

// Logger is the minimal logging interface the builder depends on.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Builder constructs a populated infusion.Client from a Design Center
// project file.
type Builder struct {
	cfg    infusion.ClientConfig
	logger Logger

	projectName string
}

// NewBuilder creates a builder. The client config is handed through to
// the constructed client unchanged.
func NewBuilder(cfg infusion.ClientConfig, logger Logger) *Builder {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Builder{cfg: cfg, logger: logger}
}

// ProjectName returns the project name discovered during the last
// Build: the name of the first area in the document.
func (b *Builder) ProjectName() string { return b.projectName }

// Build parses the project XML and returns a client populated with the
// full entity graph. Stages run in fixed dependency order: areas,
// loads, composite shades, load groups, keypads, buttons, dry
// contacts, variables, sensors, tasks, shade drivers. A single
// malformed object is logged and omitted; the parse continues.
func (b *Builder) Build(data []byte) (*infusion.Client, error) {
	doc, err := b.scan(data)
	if err != nil {
		return nil, err
	}
	if doc.empty() {
		return nil, ErrEmptyDocument
	}

	client := infusion.NewClient(b.cfg, b.logger)

	areaNames := b.buildAreas(client, doc)
	records := b.resolveLoads(doc, areaNames)
	b.pairColorLoads(records)
	contacts := b.resolveDryContacts(doc)
	composites := b.assembleShade3s(records, contacts)

	b.buildOutputs(client, records)
	b.buildShade3s(client, composites)
	b.buildLoadGroups(client, doc, records)
	b.buildKeypads(client, doc)
	b.buildButtons(client, doc)
	b.buildContacts(client, contacts)
	b.buildVariables(client, doc)
	b.buildSensors(client, doc)
	b.buildTasks(client, doc)
	b.buildShades(client, doc)

	return client, nil
}

// scan tokenizes the document into per-type object lists. Objects nest
// arbitrarily deep under the Objects element, so the scan walks every
// start element and decodes the ones it recognizes by name and VID
// attribute.
func (b *Builder) scan(data []byte) (*document, error) {
	doc := &document{}
	dec := xml.NewDecoder(bytes.NewReader(data))

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedXML, err)
		}
		se, ok := tok.(xml.StartElement)
		if !ok || !hasVID(se) {
			continue
		}

		switch se.Name.Local {
		case "Area":
			decodeInto(dec, &se, &doc.areas)
		case "Load", "Vantage.DDGColorLoad":
			decodeInto(dec, &se, &doc.loads)
		case "LoadGroup":
			decodeInto(dec, &se, &doc.loadGroups)
		case "Keypad":
			decodeInto(dec, &se, &doc.keypads)
		case "Button":
			decodeInto(dec, &se, &doc.buttons)
		case "DryContact":
			decodeInto(dec, &se, &doc.dryContacts)
		case "GMem":
			decodeInto(dec, &se, &doc.variables)
		case "OmniSensor":
			decodeInto(dec, &se, &doc.omniSensors)
		case "LightSensor":
			decodeInto(dec, &se, &doc.lightSensors)
		case "Task":
			decodeInto(dec, &se, &doc.tasks)
		case "MechoShade.IQ2_Shade_Node_CHILD", "MechoShade.IQ2_Group_CHILD",
			"QISBlind", "BlindGroup", "QMotion.QIS_Channel_CHILD",
			"Somfy.URTSI_2_Shade_CHILD", "Somfy.RS-485_Shade_CHILD":
			decodeInto(dec, &se, &doc.shades)
		}
	}
	return doc, nil
}

func hasVID(se xml.StartElement) bool {
	for _, a := range se.Attr {
		if a.Name.Local == "VID" {
			return true
		}
	}
	return false
}

// decodeInto decodes the current element into a new entry of list.
// Decode failures skip the element; the scan continues past it.
func decodeInto[T any](dec *xml.Decoder, se *xml.StartElement, list *[]T) {
	var v T
	if err := dec.DecodeElement(&v, se); err != nil {
		return
	}
	*list = append(*list, v)
}

// buildAreas registers every area and returns vid→name for the load
// exclusion heuristics. The first area names the project.
func (b *Builder) buildAreas(client *infusion.Client, doc *document) map[int]string {
	names := make(map[int]string, len(doc.areas))
	for _, a := range doc.areas {
		vid, err := strconv.Atoi(a.VID)
		if err != nil {
			b.logger.Warn("area with unparseable vid", "vid", a.VID)
			continue
		}
		parent, _ := strconv.Atoi(a.Area)
		if b.projectName == "" {
			b.projectName = a.Name
		}
		client.NewArea(vid, a.Name, parent, a.Note)
		names[vid] = strings.TrimSpace(a.Name)
	}
	return names
}

// buildOutputs constructs every load record not claimed by a composite
// shade.
func (b *Builder) buildOutputs(client *infusion.Client, records []*loadRecord) {
	for _, r := range records {
		if r.consumed {
			continue
		}
		_, err := client.NewOutput(infusion.OutputSpec{
			VID:       r.vid,
			Area:      r.area,
			Name:      r.name,
			Kind:      infusion.OutputKind(r.kind),
			LoadType:  r.loadType,
			PairedVID: r.pairedVID,
			DMXColor:  r.dmxColor,
		})
		if err != nil {
			b.logger.Warn("load omitted", "vid", r.vid, "error", err)
		}
	}
}

// buildShade3s constructs the assembled composites.
func (b *Builder) buildShade3s(client *infusion.Client, composites []infusion.Shade3Spec) {
	for _, spec := range composites {
		if _, err := client.NewShade3(spec); err != nil {
			b.logger.Warn("composite shade omitted", "vid", spec.OpenVID, "error", err)
		}
	}
}

// buildLoadGroups constructs groups, wiring the delegation heuristic
// from the resolved member records.
func (b *Builder) buildLoadGroups(client *infusion.Client, doc *document, records []*loadRecord) {
	byVID := make(map[int]*loadRecord, len(records))
	for _, r := range records {
		byVID[r.vid] = r
	}

	for _, g := range doc.loadGroups {
		vid, err := strconv.Atoi(g.VID)
		if err != nil {
			b.logger.Warn("load group with unparseable vid", "vid", g.VID)
			continue
		}
		area, _ := strconv.Atoi(g.Area)
		name := displayName(g.DName, g.Name)

		var memberVIDs []int
		for _, m := range g.Loads {
			mv, err := strconv.Atoi(strings.TrimSpace(m))
			if err != nil {
				continue
			}
			memberVIDs = append(memberVIDs, mv)
		}

		spec := groupDelegation(memberVIDs, byVID)
		spec.VID = vid
		spec.Area = area
		spec.Name = name

		if _, err := client.NewLoadGroup(spec); err != nil {
			b.logger.Warn("load group omitted", "vid", vid, "error", err)
		}
	}
}

func (b *Builder) buildKeypads(client *infusion.Client, doc *document) {
	for _, k := range doc.keypads {
		vid, err := strconv.Atoi(k.VID)
		if err != nil {
			b.logger.Warn("keypad with unparseable vid", "vid", k.VID)
			continue
		}
		area, _ := strconv.Atoi(k.Area)
		if _, err := client.NewKeypad(vid, area, k.Name); err != nil {
			b.logger.Warn("keypad omitted", "vid", vid, "error", err)
		}
	}
}

func (b *Builder) buildButtons(client *infusion.Client, doc *document) {
	for _, btn := range doc.buttons {
		vid, err := strconv.Atoi(btn.VID)
		if err != nil {
			b.logger.Warn("button with unparseable vid", "vid", btn.VID)
			continue
		}
		parentVID, _ := strconv.Atoi(strings.TrimSpace(btn.Parent.VID))
		position, _ := strconv.Atoi(btn.Parent.Position)

		// Buttons carry no area of their own; inherit the keypad's.
		area := 0
		if kp := client.KeypadByVID(parentVID); kp != nil {
			area = kp.Area()
		}

		if _, err := client.NewButton(vid, area, btn.Name, position, parentVID); err != nil {
			b.logger.Warn("button omitted", "vid", vid, "error", err)
		}
	}
}

// buildContacts registers the dry contacts not claimed as composite
// shade sense inputs, as standalone buttons.
func (b *Builder) buildContacts(client *infusion.Client, contacts []*contactRecord) {
	for _, dc := range contacts {
		if dc.consumed {
			continue
		}
		if _, err := client.NewButton(dc.vid, dc.area, dc.name, 0, 0); err != nil {
			b.logger.Warn("dry contact omitted", "vid", dc.vid, "error", err)
		}
	}
}

func (b *Builder) buildVariables(client *infusion.Client, doc *document) {
	for _, v := range doc.variables {
		vid, err := strconv.Atoi(v.VID)
		if err != nil {
			b.logger.Warn("variable with unparseable vid", "vid", v.VID)
			continue
		}
		if _, err := client.NewVariable(vid, v.Name, variableKind(v.Tag)); err != nil {
			b.logger.Warn("variable omitted", "vid", vid, "error", err)
		}
	}
}

func (b *Builder) buildSensors(client *infusion.Client, doc *document) {
	add := func(s xmlSensor, kind infusion.SensorKind) {
		vid, err := strconv.Atoi(s.VID)
		if err != nil {
			b.logger.Warn("sensor with unparseable vid", "vid", s.VID)
			return
		}
		area, _ := strconv.Atoi(s.Area)
		if _, err := client.NewSensor(vid, area, s.Name, kind); err != nil {
			b.logger.Warn("sensor omitted", "vid", vid, "error", err)
		}
	}
	for _, s := range doc.omniSensors {
		add(s, infusion.SensorOmni)
	}
	for _, s := range doc.lightSensors {
		add(s, infusion.SensorLight)
	}
}

func (b *Builder) buildTasks(client *infusion.Client, doc *document) {
	for _, task := range doc.tasks {
		vid, err := strconv.Atoi(task.VID)
		if err != nil {
			b.logger.Warn("task with unparseable vid", "vid", task.VID)
			continue
		}
		if _, err := client.NewTask(vid, task.Name); err != nil {
			b.logger.Warn("task omitted", "vid", vid, "error", err)
		}
	}
}

func (b *Builder) buildShades(client *infusion.Client, doc *document) {
	for _, s := range doc.shades {
		vid, err := strconv.Atoi(s.VID)
		if err != nil {
			b.logger.Warn("shade with unparseable vid", "vid", s.VID)
			continue
		}
		area, _ := strconv.Atoi(s.Area)
		if _, err := client.NewShade(vid, area, displayName(s.DName, s.Name)); err != nil {
			b.logger.Warn("shade omitted", "vid", vid, "error", err)
		}
	}
}

// resolveDryContacts parses the raw contacts into records the
// composite assembly can claim.
func (b *Builder) resolveDryContacts(doc *document) []*contactRecord {
	out := make([]*contactRecord, 0, len(doc.dryContacts))
	for _, dc := range doc.dryContacts {
		vid, err := strconv.Atoi(dc.VID)
		if err != nil {
			b.logger.Warn("dry contact with unparseable vid", "vid", dc.VID)
			continue
		}
		area, _ := strconv.Atoi(dc.Area)
		out = append(out, &contactRecord{vid: vid, area: area, name: dc.Name})
	}
	return out
}

// displayName prefers the explicit display name, falling back to the
// raw name. Both are trimmed.
func displayName(dname, name string) string {
	if d := strings.TrimSpace(dname); d != "" {
		return d
	}
	return strings.TrimSpace(name)
}

// variableKind maps a GMem tag onto the variable subtype.
func variableKind(tag string) infusion.VariableKind {
	switch strings.ToLower(strings.TrimSpace(tag)) {
	case "text":
		return infusion.VariableText
	case "bool", "boolean":
		return infusion.VariableBool
	default:
		return infusion.VariableNumber
	}
}
