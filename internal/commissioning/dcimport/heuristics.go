package dcimport

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/nerrad567/infusion-core/internal/infusion"
)

// colorSuffix strips the trailing COLOR marker a color-control load
// carries after its paired light's name.
var colorSuffix = regexp.MustCompile(`(?i)\s+COLOR\s*$`)

// excludedArea holds loads that exist only as wiring artifacts.
const excludedArea = "0-10V RELAYS"

// resolveLoads turns the raw loads into classified records, applying
// the exclusion and type heuristics. Excluded loads are dropped here
// and never reach the client.
func (b *Builder) resolveLoads(doc *document, areaNames map[int]string) []*loadRecord {
	records := make([]*loadRecord, 0, len(doc.loads))
	for _, l := range doc.loads {
		vid, err := strconv.Atoi(l.VID)
		if err != nil {
			b.logger.Warn("load with unparseable vid", "vid", l.VID)
			continue
		}
		area, _ := strconv.Atoi(l.Area)
		name := displayName(l.DName, l.Name)

		if excludedLoad(name, areaNames[area]) {
			b.logger.Debug("load excluded", "vid", vid, "name", name)
			continue
		}

		r := &loadRecord{
			vid:      vid,
			area:     area,
			name:     name,
			loadType: strings.TrimSpace(l.LoadType),
			kind:     string(infusion.OutputLight),
		}
		classifyLoad(r, l)
		records = append(records, r)
	}
	return records
}

// excludedLoad reports whether a load is a placeholder or wiring
// artifact rather than a real circuit.
func excludedLoad(name, areaName string) bool {
	upper := strings.ToUpper(name)
	switch {
	case name == "":
		return true
	case strings.TrimSpace(name) == "NOT USED":
		return true
	case strings.HasPrefix(name, "Station Load "):
		return true
	case strings.HasPrefix(name, "Color Load "):
		return true
	case strings.HasSuffix(upper, "DIMLOAD"):
		return true
	case strings.EqualFold(strings.TrimSpace(areaName), excludedArea):
		return true
	}
	return false
}

// classifyLoad applies the kind and color heuristics to the load's
// subtype string (LoadType, falling back to ColorType when absent):
//
//   - relay subtypes become relays
//   - HID loads are color controls, paired later by name
//   - RGBW, or an RGB* subtype with a populated second channel, marks
//     a full-color DMX load
//   - RGB* with only the first or third channel is a dynamic-white
//     fixture, reclassified as subtype DW
func classifyLoad(r *loadRecord, l xmlLoad) {
	if r.loadType == "" {
		r.loadType = strings.TrimSpace(l.ColorType)
	}

	lt := strings.ToLower(r.loadType)
	if strings.Contains(lt, "high voltage relay") || strings.Contains(lt, "low voltage relay") {
		r.kind = string(infusion.OutputRelay)
		return
	}
	if strings.Contains(lt, "hid") {
		r.kind = string(infusion.OutputColor)
		return
	}

	subtype := strings.ToUpper(r.loadType)
	if !strings.HasPrefix(subtype, "RGB") {
		return
	}
	switch {
	case subtype == "RGBW":
		r.dmxColor = true
	case strings.TrimSpace(l.Channel2) != "":
		r.dmxColor = true
	default:
		r.loadType = "DW"
	}
}

// pairColorLoads links each color control to the light it modulates.
// The control's name is the light's name plus a COLOR suffix; the
// match requires the same area. Both records learn the pairing, so a
// level update on either side can find the other. Unmatched controls
// are kept but warned: they still respond to direct level commands.
func (b *Builder) pairColorLoads(records []*loadRecord) {
	type key struct {
		area int
		name string
	}
	lights := make(map[key]*loadRecord)
	for _, r := range records {
		if r.kind != string(infusion.OutputColor) {
			lights[key{r.area, strings.ToLower(r.name)}] = r
		}
	}

	for _, r := range records {
		if r.kind != string(infusion.OutputColor) {
			continue
		}
		base := strings.TrimSpace(colorSuffix.ReplaceAllString(r.name, ""))
		light, ok := lights[key{r.area, strings.ToLower(base)}]
		if !ok {
			b.logger.Warn("color control without matching light",
				"vid", r.vid, "name", r.name)
			continue
		}
		r.pairedVID = light.vid
		light.pairedVID = r.vid
	}
}

// assembleShade3s finds triple-relay shade composites by name
// convention: a load named "<base> open" groups with "<base> close",
// optionally "<base> stop", and optionally a dry contact named
// "<base> is open". All constituents must share the open relay's area;
// a mismatch rejects the composite and leaves the relays as plain
// outputs. Claimed records are marked consumed.
func (b *Builder) assembleShade3s(records []*loadRecord, contacts []*contactRecord) []infusion.Shade3Spec {
	byName := make(map[string][]*loadRecord, len(records))
	for _, r := range records {
		byName[strings.ToLower(r.name)] = append(byName[strings.ToLower(r.name)], r)
	}
	contactsByName := make(map[string][]*contactRecord, len(contacts))
	for _, dc := range contacts {
		contactsByName[strings.ToLower(dc.name)] = append(contactsByName[strings.ToLower(dc.name)], dc)
	}

	// matchOne returns the single same-area record for a name, or nil
	// when absent or ambiguous.
	matchOne := func(name string, area int) *loadRecord {
		var found *loadRecord
		for _, r := range byName[name] {
			if r.area != area || r.consumed {
				continue
			}
			if found != nil {
				return nil
			}
			found = r
		}
		return found
	}

	var specs []infusion.Shade3Spec
	for _, open := range records {
		lower := strings.ToLower(open.name)
		if open.consumed || !strings.HasSuffix(lower, " open") {
			continue
		}
		base := strings.TrimSuffix(lower, " open")

		closers := byName[base+" close"]
		if len(closers) == 0 {
			continue
		}
		cls := matchOne(base+" close", open.area)
		if cls == nil {
			b.logger.Warn("shade composite rejected, close relay missing or ambiguous in area",
				"vid", open.vid, "name", open.name)
			continue
		}

		spec := infusion.Shade3Spec{
			Area:     open.area,
			Name:     strings.TrimSpace(open.name[:len(open.name)-len(" open")]),
			OpenVID:  open.vid,
			CloseVID: cls.vid,
		}
		open.consumed = true
		cls.consumed = true

		if stop := matchOne(base+" stop", open.area); stop != nil {
			spec.StopVID = stop.vid
			stop.consumed = true
		} else if len(byName[base+" stop"]) > 0 {
			b.logger.Warn("stop relay missing or ambiguous in composite area, omitted",
				"vid", open.vid, "name", open.name)
		}
		for _, dc := range contactsByName[base+" is open"] {
			if dc.area == open.area && !dc.consumed {
				spec.IsOpenVID = dc.vid
				dc.consumed = true
				break
			}
		}

		specs = append(specs, spec)
	}
	return specs
}

// groupDelegation derives a group's brightness and color wiring from
// its members. A group of exactly one plain dimmer plus color-capable
// members delegates brightness to the dimmer; color commands fan out
// to the color-capable members. The group advertises full-color only
// when every member does.
func groupDelegation(memberVIDs []int, byVID map[int]*loadRecord) infusion.LoadGroupSpec {
	spec := infusion.LoadGroupSpec{MemberVIDs: memberVIDs}

	var dimmers, colorVIDs []int
	allDMX := len(memberVIDs) > 0
	for _, vid := range memberVIDs {
		r, ok := byVID[vid]
		if !ok {
			allDMX = false
			continue
		}
		switch {
		case r.dmxColor:
			colorVIDs = append(colorVIDs, vid)
		case r.kind == string(infusion.OutputColor):
			colorVIDs = append(colorVIDs, vid)
			allDMX = false
		default:
			dimmers = append(dimmers, vid)
			allDMX = false
		}
	}

	spec.DMXColor = allDMX
	if len(dimmers) == 1 && len(colorVIDs) > 0 {
		spec.BrightnessVID = dimmers[0]
		spec.ColorVIDs = colorVIDs
	} else if allDMX {
		spec.ColorVIDs = colorVIDs
	}
	return spec
}
