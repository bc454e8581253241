// Package form fills the ODOT AcroForm template from a field assignment
// and stamps uploaded photos onto the photographs page. It is the only
// package that knows PDF field names and geometry; mapping semantics
// live one layer up.
package form

import (
	"fmt"

	"github.com/hhpr/odot-converter/internal/catalog"
	"github.com/hhpr/odot-converter/internal/mapping"
)

// FillPlan is the flattened set of concrete PDF field operations for one
// conversion: text values and checkbox states keyed by fully qualified
// field name, plus the day-of-week radio selection.
type FillPlan struct {
	Text   map[string]string
	Checks map[string]bool

	// WeekdayLabel/WeekdayState drive the day-of-week radio group. The
	// template's radios carry the weekday in their field names, so the
	// filler matches by name rather than by a declared binding.
	WeekdayLabel string
	WeekdayState string
}

// Plan flattens a field assignment into the fill plan. Values for
// unknown catalog fields cannot occur by construction; a value whose
// label is not in the field's declared set is rejected here as a final
// guard on the assignment invariant.
func Plan(c *catalog.Catalog, a *mapping.Assignment) (*FillPlan, error) {
	plan := &FillPlan{
		Text:   make(map[string]string),
		Checks: make(map[string]bool),
	}
	for id, v := range a.Values {
		f, ok := c.Field(id)
		if !ok {
			return nil, fmt.Errorf("assignment references unknown field %q", id)
		}
		if err := planField(plan, f, v); err != nil {
			return nil, fmt.Errorf("field %q: %w", id, err)
		}
	}
	return plan, nil
}

func planField(plan *FillPlan, f *catalog.Field, v mapping.Value) error {
	switch f.Kind {
	case catalog.FieldText, catalog.FieldDate, catalog.FieldNarrative:
		for _, target := range f.Targets {
			plan.Text[target] = v.Text
		}
	case catalog.FieldChoice:
		winner, ok := f.OptionByLabel(v.Label)
		if !ok {
			return fmt.Errorf("value %q is not a declared option", v.Label)
		}
		// The winner is checked; its siblings are explicitly cleared so a
		// template default cannot survive (the Yes/No pairs rely on this).
		for i := range f.Options {
			opt := &f.Options[i]
			if opt.PDFField == "" {
				continue
			}
			plan.Checks[opt.PDFField] = opt.Label == winner.Label
		}
	case catalog.FieldBucket:
		matched := false
		for i := range f.Buckets {
			b := &f.Buckets[i]
			if b.Label == v.Label {
				plan.Checks[b.PDFField] = true
				matched = true
			}
		}
		if !matched {
			return fmt.Errorf("value %q is not a declared bucket", v.Label)
		}
	case catalog.FieldWeekday:
		opt, ok := f.OptionByLabel(v.Label)
		if !ok {
			return fmt.Errorf("value %q is not a declared weekday", v.Label)
		}
		plan.WeekdayLabel = opt.Label
		plan.WeekdayState = opt.State
	case catalog.FieldTable:
		for i, row := range v.Rows {
			idx := f.Table.Base + i
			for j, cell := range row {
				if cell == "" || j >= len(f.Table.Columns) {
					continue
				}
				plan.Text[fmt.Sprintf(f.Table.Columns[j], idx)] = cell
			}
		}
	default:
		return fmt.Errorf("unsupported field kind %q", f.Kind)
	}
	return nil
}
