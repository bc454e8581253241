// Package mapping translates a parsed HeadLight record into an assignment
// for the target form's field catalog. The Mapper is a pure function of
// its inputs: identical record and catalog always yield an identical
// assignment, and nothing is mutated along the way.
package mapping

import (
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hhpr/odot-converter/internal/catalog"
	"github.com/hhpr/odot-converter/internal/headlight"
)

// Value is one resolved target-field value, tagged with the strategy
// that produced it.
type Value struct {
	Strategy Strategy
	// Text carries text, date, and narrative values.
	Text string
	// Label carries the winning choice, bucket, or weekday label. It is
	// always a member of the field's declared set.
	Label string
	// Rows carries table cells; an empty cell leaves its target untouched.
	Rows [][]string
}

// SlottedPhoto binds one attachment (by received order) to a photo slot.
type SlottedPhoto struct {
	Slot  catalog.PhotoSlot
	Index int
}

// Assignment is the result of mapping one record. Every key in Values
// exists in the catalog; fields that could not be resolved appear in
// Unresolved instead of raising.
type Assignment struct {
	Values        map[string]Value
	Unresolved    []string
	Photos        []SlottedPhoto
	DroppedPhotos int
}

// Mapper resolves catalog fields against a record. Stateless and safe
// for concurrent use.
type Mapper struct {
	catalog *catalog.Catalog
}

// NewMapper creates a mapper for the given catalog.
func NewMapper(c *catalog.Catalog) *Mapper {
	return &Mapper{catalog: c}
}

// Map produces the field assignment for a record. It fails only on a
// structurally unusable record; individual fields degrade to unset.
func (m *Mapper) Map(rec *headlight.Record) (*Assignment, error) {
	if err := rec.RequireSections(m.catalog.RequiredSections); err != nil {
		return nil, err
	}

	out := &Assignment{Values: make(map[string]Value, len(m.catalog.Fields))}
	for i := range m.catalog.Fields {
		f := &m.catalog.Fields[i]
		if v, ok := m.resolve(rec, f); ok {
			out.Values[f.ID] = v
		} else {
			out.Unresolved = append(out.Unresolved, f.ID)
		}
	}
	return out, nil
}

// SlotPhotos assigns n attachments to the catalog's photo slots in
// received order and reports how many did not fit.
func (m *Mapper) SlotPhotos(n int) (slotted []SlottedPhoto, dropped int) {
	slots := m.catalog.PhotoSlots
	for i := 0; i < n && i < len(slots); i++ {
		slotted = append(slotted, SlottedPhoto{Slot: slots[i], Index: i})
	}
	if n > len(slots) {
		dropped = n - len(slots)
	}
	return slotted, dropped
}

// resolve runs the field's strategies in declared order; the first
// success wins.
func (m *Mapper) resolve(rec *headlight.Record, f *catalog.Field) (Value, bool) {
	for _, s := range strategiesFor(f.Kind) {
		var (
			v  Value
			ok bool
		)
		switch s {
		case StrategyDirect:
			v, ok = m.resolveDirect(rec, f)
		case StrategyBucketed:
			v, ok = m.resolveBucketed(rec, f)
		case StrategySetMembership:
			v, ok = m.resolveSetMembership(rec, f)
		case StrategyConcatenated:
			v, ok = m.resolveConcatenated(rec, f)
		case StrategyTabulated:
			v, ok = m.resolveTabulated(rec, f)
		}
		if ok {
			return v, true
		}
	}
	return Value{}, false
}

// sourceText yields the field's raw source text: dotted path, derived
// value, or declared constant, in that order of preference.
func (m *Mapper) sourceText(rec *headlight.Record, f *catalog.Field) (string, bool) {
	if f.Source != "" {
		if s, ok := rec.LookupString(f.Source); ok {
			return s, true
		}
	}
	if f.Derive != "" {
		if s, ok := deriveValue(rec, f.Derive); ok {
			return s, true
		}
	}
	if f.Const != "" {
		return f.Const, true
	}
	return "", false
}

func (m *Mapper) resolveDirect(rec *headlight.Record, f *catalog.Field) (Value, bool) {
	switch f.Kind {
	case catalog.FieldDate:
		raw, ok := m.sourceText(rec, f)
		if !ok {
			return Value{}, false
		}
		t, ok := parseExportDate(raw, rec.Timezone())
		if !ok {
			return Value{}, false
		}
		layout := f.Format
		if layout == "" {
			layout = "01/02/06"
		}
		return Value{Strategy: StrategyDirect, Text: t.Format(layout)}, true
	case catalog.FieldChoice:
		// Direct succeeds only when the source value is already a declared
		// option label, verbatim.
		raw, ok := m.sourceText(rec, f)
		if !ok {
			return Value{}, false
		}
		for i := range f.Options {
			if f.Options[i].Label == raw {
				return Value{Strategy: StrategyDirect, Label: raw}, true
			}
		}
		return Value{}, false
	default:
		raw, ok := m.sourceText(rec, f)
		if !ok {
			return Value{}, false
		}
		text := truncateAtWord(raw, f.MaxLen)
		return Value{Strategy: StrategyDirect, Text: text}, true
	}
}

func (m *Mapper) resolveBucketed(rec *headlight.Record, f *catalog.Field) (Value, bool) {
	n, ok := m.sourceNumber(rec, f)
	if !ok {
		return Value{}, false
	}
	b, ok := f.MatchBucket(n)
	if !ok {
		// Outside all declared ranges resolves to unset, never an error.
		return Value{}, false
	}
	return Value{Strategy: StrategyBucketed, Label: b.Label}, true
}

// sourceNumber resolves the field's source as a number, consulting the
// field's number synonyms for free-text values like humidity "low".
func (m *Mapper) sourceNumber(rec *headlight.Record, f *catalog.Field) (float64, bool) {
	if f.Source == "" {
		return 0, false
	}
	if n, ok := rec.LookupNumber(f.Source); ok {
		return n, true
	}
	if len(f.NumberSynonyms) == 0 {
		return 0, false
	}
	s, ok := rec.LookupString(f.Source)
	if !ok {
		return 0, false
	}
	s = strings.ToLower(s)
	if n, ok := f.NumberSynonyms[s]; ok {
		return n, true
	}
	// Substring match covers values like "very low humidity". Keys are
	// walked in sorted order so resolution stays deterministic.
	syns := make([]string, 0, len(f.NumberSynonyms))
	for syn := range f.NumberSynonyms {
		syns = append(syns, syn)
	}
	sort.Strings(syns)
	for _, syn := range syns {
		if strings.Contains(s, syn) {
			return f.NumberSynonyms[syn], true
		}
	}
	return 0, false
}

func (m *Mapper) resolveSetMembership(rec *headlight.Record, f *catalog.Field) (Value, bool) {
	if f.Kind == catalog.FieldWeekday {
		return m.resolveWeekday(rec, f)
	}
	raw, ok := m.sourceText(rec, f)
	if !ok {
		return Value{}, false
	}
	opt, ok := f.MatchOption(raw)
	if !ok {
		return Value{}, false
	}
	return Value{Strategy: StrategySetMembership, Label: opt.Label}, true
}

func (m *Mapper) resolveWeekday(rec *headlight.Record, f *catalog.Field) (Value, bool) {
	raw, ok := m.sourceText(rec, f)
	if !ok {
		return Value{}, false
	}
	t, ok := parseExportDate(raw, rec.Timezone())
	if !ok {
		return Value{}, false
	}
	day := t.Weekday().String()
	if _, ok := f.OptionByLabel(day); !ok {
		return Value{}, false
	}
	return Value{Strategy: StrategySetMembership, Label: day}, true
}

func (m *Mapper) resolveConcatenated(rec *headlight.Record, f *catalog.Field) (Value, bool) {
	var lines []string
	seen := make(map[string]bool)
	for _, src := range f.Sources {
		for _, line := range rec.Lines(src) {
			// The DailyReport envelope often repeats the top-level section.
			if seen[line] {
				continue
			}
			seen[line] = true
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return Value{}, false
	}
	text := truncateAtWord(strings.Join(lines, "\n"), f.MaxLen)
	return Value{Strategy: StrategyConcatenated, Text: text}, true
}

func (m *Mapper) resolveTabulated(rec *headlight.Record, f *catalog.Field) (Value, bool) {
	build, ok := tableBuilders[f.Table.Builder]
	if !ok {
		return Value{}, false
	}
	rows := build(rec)
	if len(rows) == 0 {
		return Value{}, false
	}
	if f.Table.MaxRows > 0 && len(rows) > f.Table.MaxRows {
		rows = rows[:f.Table.MaxRows]
	}
	return Value{Strategy: StrategyTabulated, Rows: rows}, true
}

// deriveValue computes the named derived source.
func deriveValue(rec *headlight.Record, name string) (string, bool) {
	switch name {
	case "superintendent_name":
		return rec.Superintendent()
	case "superintendent_present":
		if _, ok := rec.Superintendent(); ok {
			return "Yes", true
		}
		return "No", true
	}
	return "", false
}

// parseExportDate handles the export's two date shapes: RFC 3339
// timestamps (converted into the export's timezone) and bare
// "2006-01-02" dates (taken as-is).
func parseExportDate(raw, timezone string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	if strings.Contains(raw, "T") {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return time.Time{}, false
		}
		if loc, lerr := time.LoadLocation(timezone); lerr == nil {
			t = t.In(loc)
		}
		return t, true
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// truncateAtWord cuts s to at most max bytes without splitting inside a
// word: the cut lands on the last space or newline at or before the
// limit. A single word longer than the limit is hard-cut on a rune
// boundary. max <= 0 means no limit.
func truncateAtWord(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	cut := strings.LastIndexAny(s[:max+1], " \n\t")
	if cut <= 0 {
		cut = max
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
	}
	return strings.TrimRight(s[:cut], " \n\t")
}
