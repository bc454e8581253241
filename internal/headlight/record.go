// Package headlight parses HeadLight inspection-export JSON into a
// read-only record the mapping layer can query. Individual fields are
// tolerated missing or mistyped; only a structurally unusable document
// (not JSON, not an object, or a declared-required section absent) is an
// error.
package headlight

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ParseError reports that the uploaded document is not valid JSON or not
// an object at the top level. It aborts conversion before mapping runs.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("export parse error: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("export parse error: %s", e.Reason)
}

func (e *ParseError) Unwrap() error { return e.Err }

// StructuralError reports that a required top-level section is missing
// entirely. It aborts conversion; field-level gaps never do.
type StructuralError struct {
	Section string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("export is missing required section %q", e.Section)
}

// Record is a parsed export. Read-only once constructed; owned by a
// single request.
type Record struct {
	raw map[string]any
}

// Parse decodes export JSON. The document must be a JSON object.
func Parse(data []byte) (*Record, error) {
	if len(data) == 0 {
		return nil, &ParseError{Reason: "empty document"}
	}
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &ParseError{Reason: "invalid JSON", Err: err}
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, &ParseError{Reason: "top level is not an object"}
	}
	return &Record{raw: obj}, nil
}

// RequireSections returns a StructuralError for the first named section
// absent from the record. Sections nested under the DailyReport envelope
// count as present.
func (r *Record) RequireSections(sections []string) error {
	for _, s := range sections {
		if !r.HasSection(s) {
			return &StructuralError{Section: s}
		}
	}
	return nil
}

// HasSection reports whether a top-level section exists, checking the
// DailyReport envelope as a fallback.
func (r *Record) HasSection(name string) bool {
	if _, ok := r.raw[name]; ok {
		return true
	}
	if dr, ok := r.raw["DailyReport"].(map[string]any); ok {
		_, ok := dr[name]
		return ok
	}
	return false
}

// Lookup resolves a dotted path ("Weather.Conditions") against the
// record. Paths not rooted at DailyReport are also tried under the
// DailyReport envelope, matching how exports wrap sections.
func (r *Record) Lookup(path string) (any, bool) {
	if v, ok := lookupPath(r.raw, path); ok {
		return v, true
	}
	if !strings.HasPrefix(path, "DailyReport.") {
		if dr, ok := r.raw["DailyReport"].(map[string]any); ok {
			return lookupPath(dr, path)
		}
	}
	return nil, false
}

func lookupPath(m map[string]any, path string) (any, bool) {
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = obj[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// LookupString resolves a path to a trimmed string. Numbers are
// formatted; other types fail.
func (r *Record) LookupString(path string) (string, bool) {
	v, ok := r.Lookup(path)
	if !ok {
		return "", false
	}
	s, ok := asString(v)
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}

// LookupNumber resolves a path to a float64, accepting numeric strings.
func (r *Record) LookupNumber(path string) (float64, bool) {
	v, ok := r.Lookup(path)
	if !ok {
		return 0, false
	}
	return asNumber(v)
}

// Person is one personnel entry.
type Person struct {
	Name       string
	Contractor string
	Trade      string
	Count      int
}

// Personnel returns the personnel list, merged from the top level and the
// DailyReport envelope. Malformed entries are skipped.
func (r *Record) Personnel() []Person {
	var people []Person
	for _, v := range r.sectionLists("Personnel") {
		entry, ok := v.(map[string]any)
		if !ok {
			continue
		}
		p := Person{
			Name:       stringField(entry, "Name"),
			Contractor: stringField(entry, "Contractor"),
			Trade:      stringField(entry, "Trade"),
			Count:      1,
		}
		if n, ok := asNumber(entry["Count"]); ok && n > 0 {
			p.Count = int(n)
		}
		people = append(people, p)
	}
	return people
}

// WorkItem is one work-item entry.
type WorkItem struct {
	Description string
	Quantity    float64
	HasQuantity bool
	Units       string
	Location    string
}

// WorkItems returns the work-item list, merged from both locations.
func (r *Record) WorkItems() []WorkItem {
	var items []WorkItem
	for _, v := range r.sectionLists("WorkItems") {
		entry, ok := v.(map[string]any)
		if !ok {
			continue
		}
		item := WorkItem{
			Description: stringField(entry, "Description"),
			Units:       stringField(entry, "Units"),
			Location:    stringField(entry, "Location"),
		}
		if q, ok := asNumber(entry["Quantity"]); ok {
			item.Quantity = q
			item.HasQuantity = q != 0
		}
		items = append(items, item)
	}
	return items
}

// Superintendent returns the name of the first personnel entry whose
// trade contains "Superintendent".
func (r *Record) Superintendent() (string, bool) {
	for _, p := range r.Personnel() {
		if p.Name != "" && strings.Contains(p.Trade, "Superintendent") {
			return p.Name, true
		}
	}
	return "", false
}

// Lines flattens the value at path into display lines: a plain string is
// one line, narrative entries render as "[timestamp] text", and named
// entries (equipment) contribute their Name.
func (r *Record) Lines(path string) []string {
	v, ok := r.Lookup(path)
	if !ok {
		return nil
	}
	switch val := v.(type) {
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return nil
		}
		return []string{s}
	case []any:
		var lines []string
		for _, item := range val {
			entry, ok := item.(map[string]any)
			if !ok {
				if s, ok := asString(item); ok && strings.TrimSpace(s) != "" {
					lines = append(lines, strings.TrimSpace(s))
				}
				continue
			}
			if text := stringField(entry, "Text"); text != "" {
				if ts := stringField(entry, "Timestamp"); ts != "" {
					lines = append(lines, fmt.Sprintf("[%s] %s", ts, text))
				} else {
					lines = append(lines, text)
				}
				continue
			}
			if name := stringField(entry, "Name"); name != "" {
				lines = append(lines, name)
			}
		}
		return lines
	}
	return nil
}

// DocumentDate returns the raw export date string.
func (r *Record) DocumentDate() (string, bool) {
	return r.LookupString("DocumentDate")
}

// Timezone returns the export's IANA timezone, defaulting to the Pacific
// zone HeadLight exports carry when unset.
func (r *Record) Timezone() string {
	if tz, ok := r.LookupString("Timezone"); ok {
		return tz
	}
	return "America/Los_Angeles"
}

// sectionLists collects list values for a section from the top level and
// the DailyReport envelope, in that order.
func (r *Record) sectionLists(name string) []any {
	var out []any
	if list, ok := r.raw[name].([]any); ok {
		out = append(out, list...)
	}
	if dr, ok := r.raw["DailyReport"].(map[string]any); ok {
		if list, ok := dr[name].([]any); ok {
			out = append(out, list...)
		}
	}
	return out
}

func stringField(m map[string]any, key string) string {
	s, _ := asString(m[key])
	return strings.TrimSpace(s)
}

func asString(v any) (string, bool) {
	switch val := v.(type) {
	case string:
		return val, true
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(val), true
	}
	return "", false
}

func asNumber(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}
