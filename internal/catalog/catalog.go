// Package catalog defines the target form's field catalog: the fixed,
// typed enumeration of ODOT form fields, their bucket ranges, synonym
// tables, and PDF field-name bindings. The catalog is loaded once from a
// versioned YAML artifact and never mutated afterwards.
package catalog

import (
	"fmt"
	"math"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// FieldKind identifies how a catalog field is resolved and rendered.
type FieldKind string

const (
	// FieldText is a plain text field filled from a source path or constant.
	FieldText FieldKind = "text"
	// FieldChoice selects one option from a fixed set via the synonym table.
	FieldChoice FieldKind = "choice"
	// FieldBucket classifies a numeric value into ordered range buckets.
	FieldBucket FieldKind = "bucket"
	// FieldNarrative concatenates one or more source sections in order.
	FieldNarrative FieldKind = "narrative"
	// FieldDate formats a source timestamp in the export's timezone.
	FieldDate FieldKind = "date"
	// FieldWeekday selects a day-of-week radio from a source timestamp.
	FieldWeekday FieldKind = "weekday"
	// FieldTable fills a repeating row/column region via a named builder.
	FieldTable FieldKind = "table"
)

// Option is one permitted value of a choice field, bound to a PDF
// checkbox or radio appearance state.
type Option struct {
	Label    string   `yaml:"label"`
	PDFField string   `yaml:"pdf_field,omitempty"`
	State    string   `yaml:"state,omitempty"` // radio appearance state name
	Synonyms []string `yaml:"synonyms,omitempty"`
}

// Bucket is one named numeric sub-range. The lower bound is inclusive,
// the upper bound exclusive; a nil bound leaves that side open.
type Bucket struct {
	Label    string   `yaml:"label"`
	Min      *float64 `yaml:"min,omitempty"`
	Max      *float64 `yaml:"max,omitempty"`
	PDFField string   `yaml:"pdf_field"`
}

// Contains reports whether v falls inside the bucket's range.
func (b Bucket) Contains(v float64) bool {
	if b.Min != nil && v < *b.Min {
		return false
	}
	if b.Max != nil && v >= *b.Max {
		return false
	}
	return true
}

// Table describes a repeating region of the form. Rows are produced by a
// named builder in the mapping layer; Columns are PDF field-name patterns
// with a single %d placeholder for the row (or column) index.
type Table struct {
	Builder string   `yaml:"builder"`
	MaxRows int      `yaml:"max_rows"`
	Base    int      `yaml:"base"` // first index substituted into Columns
	Columns []string `yaml:"columns"`
}

// Field is one target form field.
type Field struct {
	ID   string    `yaml:"id"`
	Kind FieldKind `yaml:"kind"`

	// Source is a dotted path into the export, e.g. "Weather.Conditions".
	// Derive names a computed source (e.g. "superintendent_name") instead.
	Source string `yaml:"source,omitempty"`
	Derive string `yaml:"derive,omitempty"`
	// Const fills the field with a fixed value when no source applies.
	Const string `yaml:"const,omitempty"`

	// Targets are the PDF field names written for text-like fields. Footer
	// fields repeat on every page master, hence a list.
	Targets []string `yaml:"targets,omitempty"`
	MaxLen  int      `yaml:"max_len,omitempty"`
	Format  string   `yaml:"format,omitempty"` // date fields, Go layout

	Options []Option `yaml:"options,omitempty"`
	Buckets []Bucket `yaml:"buckets,omitempty"`
	// NumberSynonyms pre-map free-text values onto the bucket axis
	// (e.g. humidity "low" -> 35).
	NumberSynonyms map[string]float64 `yaml:"number_synonyms,omitempty"`

	// Sources lists the sections concatenated for narrative fields.
	Sources []string `yaml:"sources,omitempty"`

	Table *Table `yaml:"table,omitempty"`
}

// PhotoSlot is one image placement target on the photographs page.
type PhotoSlot struct {
	Name   string  `yaml:"name"`
	Page   int     `yaml:"page"`
	X      float64 `yaml:"x"`
	Y      float64 `yaml:"y"`
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

// Catalog is the complete target form description. Immutable after Load.
type Catalog struct {
	Version          string      `yaml:"version"`
	Form             string      `yaml:"form"`
	RequiredSections []string    `yaml:"required_sections"`
	Fields           []Field     `yaml:"fields"`
	PhotoSlots       []PhotoSlot `yaml:"photo_slots"`

	byID map[string]*Field
}

// Load parses and validates a catalog from YAML bytes.
func Load(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if err := c.init(); err != nil {
		return nil, err
	}
	return &c, nil
}

// LoadFile loads a catalog artifact from disk.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	return Load(data)
}

// Default returns the embedded ODOT daily-report catalog.
func Default() *Catalog {
	c, err := Load(defaultCatalogYAML)
	if err != nil {
		// The embedded artifact is validated by tests; a failure here is a
		// packaging defect, not a runtime condition.
		panic(fmt.Sprintf("embedded catalog is invalid: %v", err))
	}
	return c
}

func (c *Catalog) init() error {
	c.byID = make(map[string]*Field, len(c.Fields))
	for i := range c.Fields {
		f := &c.Fields[i]
		if f.ID == "" {
			return fmt.Errorf("catalog field %d has no id", i)
		}
		if _, dup := c.byID[f.ID]; dup {
			return fmt.Errorf("duplicate catalog field id %q", f.ID)
		}
		if err := validateField(f); err != nil {
			return fmt.Errorf("catalog field %q: %w", f.ID, err)
		}
		c.byID[f.ID] = f
	}
	for i, slot := range c.PhotoSlots {
		if slot.Page < 1 {
			return fmt.Errorf("photo slot %d: page must be >= 1", i)
		}
		if slot.Width <= 0 || slot.Height <= 0 {
			return fmt.Errorf("photo slot %d: zero-sized rectangle", i)
		}
	}
	return nil
}

func validateField(f *Field) error {
	switch f.Kind {
	case FieldText, FieldDate:
		if f.Source == "" && f.Derive == "" && f.Const == "" {
			// No declared source: the field stays unset, which is legal.
			return nil
		}
	case FieldChoice, FieldWeekday:
		if len(f.Options) == 0 {
			return fmt.Errorf("%s field needs options", f.Kind)
		}
		seen := make(map[string]bool, len(f.Options))
		for _, opt := range f.Options {
			if opt.Label == "" {
				return fmt.Errorf("option without label")
			}
			key := strings.ToLower(opt.Label)
			if seen[key] {
				return fmt.Errorf("duplicate option label %q", opt.Label)
			}
			seen[key] = true
		}
	case FieldBucket:
		if len(f.Buckets) == 0 {
			return fmt.Errorf("bucket field needs buckets")
		}
		if err := validateBuckets(f.Buckets); err != nil {
			return err
		}
	case FieldNarrative:
		if len(f.Sources) == 0 {
			return fmt.Errorf("narrative field needs sources")
		}
	case FieldTable:
		if f.Table == nil {
			return fmt.Errorf("table field needs a table spec")
		}
		if f.Table.Builder == "" {
			return fmt.Errorf("table field needs a builder name")
		}
		if len(f.Table.Columns) == 0 {
			return fmt.Errorf("table field needs column patterns")
		}
		for _, col := range f.Table.Columns {
			if !strings.Contains(col, "%d") {
				return fmt.Errorf("column pattern %q has no index placeholder", col)
			}
		}
	default:
		return fmt.Errorf("unknown field kind %q", f.Kind)
	}
	return nil
}

// validateBuckets enforces ordered, non-overlapping ranges. Buckets are
// declared high-to-low or low-to-high; adjacent bounds must meet exactly.
func validateBuckets(buckets []Bucket) error {
	for i, b := range buckets {
		if b.Label == "" {
			return fmt.Errorf("bucket %d without label", i)
		}
		if b.Min != nil && b.Max != nil && *b.Min >= *b.Max {
			return fmt.Errorf("bucket %q: min %v >= max %v", b.Label, *b.Min, *b.Max)
		}
	}
	for i := 0; i < len(buckets); i++ {
		for j := i + 1; j < len(buckets); j++ {
			if bucketsOverlap(buckets[i], buckets[j]) {
				return fmt.Errorf("buckets %q and %q overlap", buckets[i].Label, buckets[j].Label)
			}
		}
	}
	return nil
}

func bucketsOverlap(a, b Bucket) bool {
	// Bounds are [min, max). Open sides stretch to infinity.
	aMin, aMax := boundOr(a.Min, math.Inf(-1)), boundOr(a.Max, math.Inf(1))
	bMin, bMax := boundOr(b.Min, math.Inf(-1)), boundOr(b.Max, math.Inf(1))
	return aMin < bMax && bMin < aMax
}

func boundOr(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}

// Field returns the catalog field with the given id.
func (c *Catalog) Field(id string) (*Field, bool) {
	f, ok := c.byID[id]
	return f, ok
}

// FieldIDs returns all field ids in declaration order.
func (c *Catalog) FieldIDs() []string {
	ids := make([]string, 0, len(c.Fields))
	for i := range c.Fields {
		ids = append(ids, c.Fields[i].ID)
	}
	return ids
}

// MaxPhotos returns the number of declared photo slots.
func (c *Catalog) MaxPhotos() int {
	return len(c.PhotoSlots)
}

// MatchOption resolves a free-text source value against the field's
// options: case-insensitive exact label or synonym match first, then
// case-insensitive substring containment. Returns the matched option.
func (f *Field) MatchOption(value string) (*Option, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, false
	}
	for i := range f.Options {
		opt := &f.Options[i]
		if strings.EqualFold(opt.Label, value) {
			return opt, true
		}
		for _, syn := range opt.Synonyms {
			if strings.EqualFold(syn, value) {
				return opt, true
			}
		}
	}
	lower := strings.ToLower(value)
	for i := range f.Options {
		opt := &f.Options[i]
		for _, syn := range opt.Synonyms {
			if strings.Contains(lower, strings.ToLower(syn)) {
				return opt, true
			}
		}
	}
	return nil, false
}

// MatchBucket classifies v into the field's buckets.
func (f *Field) MatchBucket(v float64) (*Bucket, bool) {
	for i := range f.Buckets {
		if f.Buckets[i].Contains(v) {
			return &f.Buckets[i], true
		}
	}
	return nil, false
}

// OptionByLabel returns the option with the given label, case-insensitively.
func (f *Field) OptionByLabel(label string) (*Option, bool) {
	for i := range f.Options {
		if strings.EqualFold(f.Options[i].Label, label) {
			return &f.Options[i], true
		}
	}
	return nil, false
}
