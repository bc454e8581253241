package form

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// Filler populates the AcroForm fields of the ODOT template from a
// FillPlan using pdfcpu primitives.
type Filler struct {
	templatePath string
}

// NewFiller creates a filler for the given template file.
func NewFiller(templatePath string) *Filler {
	return &Filler{templatePath: templatePath}
}

// Fill reads the template, applies the plan, and writes the filled PDF
// to w. Nothing is written on error.
func (f *Filler) Fill(plan *FillPlan, w io.Writer) error {
	file, err := os.Open(f.templatePath)
	if err != nil {
		return fmt.Errorf("failed to open template: %w", err)
	}
	defer file.Close()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(file, conf)
	if err != nil {
		return fmt.Errorf("failed to read template: %w", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return fmt.Errorf("failed to ensure page count: %w", err)
	}

	if err := applyPlan(ctx, plan); err != nil {
		return fmt.Errorf("failed to apply fill plan: %w", err)
	}

	if err := api.WriteContext(ctx, w); err != nil {
		return fmt.Errorf("failed to write filled form: %w", err)
	}
	return nil
}

// applyPlan walks the AcroForm field tree and applies matching
// operations from the plan.
func applyPlan(ctx *model.Context, plan *FillPlan) error {
	rootDict, err := ctx.Catalog()
	if err != nil {
		return fmt.Errorf("failed to get catalog: %w", err)
	}

	acroFormObj, found := rootDict.Find("AcroForm")
	if !found {
		return fmt.Errorf("template has no AcroForm dictionary")
	}
	acroFormDict, err := ctx.DereferenceDict(acroFormObj)
	if err != nil || acroFormDict == nil {
		return fmt.Errorf("failed to dereference AcroForm: %w", err)
	}

	fieldsObj, found := acroFormDict.Find("Fields")
	if !found {
		return fmt.Errorf("template AcroForm has no Fields array")
	}
	fieldsArray, err := ctx.DereferenceArray(fieldsObj)
	if err != nil {
		return fmt.Errorf("failed to dereference Fields array: %w", err)
	}

	for _, fieldRef := range fieldsArray {
		if err := applyToField(ctx, fieldRef, "", plan); err != nil {
			return err
		}
	}

	// Values are set without regenerating widget appearance streams, so
	// viewers must rebuild them on open.
	acroFormDict["NeedAppearances"] = types.Boolean(true)
	return nil
}

// applyToField descends one node of the field tree. prefix is the
// qualified name of the parent chain.
func applyToField(ctx *model.Context, fieldObj types.Object, prefix string, plan *FillPlan) error {
	fieldDict, err := ctx.DereferenceDict(fieldObj)
	if err != nil {
		return fmt.Errorf("failed to dereference field: %w", err)
	}
	if fieldDict == nil {
		return nil
	}

	qualified := prefix
	if nameObj, found := fieldDict.Find("T"); found {
		if name, err := ctx.DereferenceStringOrHexLiteral(nameObj, model.V10, nil); err == nil {
			if qualified == "" {
				qualified = name
			} else {
				qualified = qualified + "." + name
			}
		}
	}

	kids, hasNamedKids := namedKids(ctx, fieldDict)
	if hasNamedKids {
		for _, kid := range kids {
			if err := applyToField(ctx, kid, qualified, plan); err != nil {
				return err
			}
		}
		return nil
	}

	return applyTerminal(ctx, fieldDict, kids, qualified, plan)
}

// namedKids returns the field's Kids array and whether those kids are
// themselves named fields (as opposed to bare widget annotations).
func namedKids(ctx *model.Context, fieldDict types.Dict) ([]types.Object, bool) {
	kidsObj, found := fieldDict.Find("Kids")
	if !found {
		return nil, false
	}
	kidsArray, err := ctx.DereferenceArray(kidsObj)
	if err != nil || len(kidsArray) == 0 {
		return nil, false
	}
	for _, kid := range kidsArray {
		kidDict, err := ctx.DereferenceDict(kid)
		if err != nil || kidDict == nil {
			continue
		}
		if _, named := kidDict.Find("T"); named {
			return kidsArray, true
		}
	}
	return kidsArray, false
}

// applyTerminal applies the plan to one terminal field. widgets are the
// field's widget annotations when they are separate from the field dict.
func applyTerminal(ctx *model.Context, fieldDict types.Dict, widgets []types.Object, qualified string, plan *FillPlan) error {
	fieldType := terminalFieldType(ctx, fieldDict)

	switch fieldType {
	case "Tx", "Sig":
		if text, ok := plan.Text[qualified]; ok {
			literal, err := textLiteral(text)
			if err != nil {
				return fmt.Errorf("field %q: %w", qualified, err)
			}
			fieldDict["V"] = literal
		}
	case "Btn":
		if plan.WeekdayLabel != "" && strings.Contains(qualified, "Day") {
			applyWeekday(ctx, fieldDict, widgets, qualified, plan)
			return nil
		}
		if on, ok := plan.Checks[qualified]; ok {
			state := types.Name("Off")
			if on {
				state = types.Name("Yes")
			}
			fieldDict["V"] = state
			setAppearanceState(ctx, fieldDict, widgets, state)
		}
	}
	return nil
}

// textLiteral encodes user text for a /V entry. Values go out as escaped
// UTF-16 so parentheses, backslashes, and non-ASCII text survive PDF
// string serialization.
func textLiteral(s string) (types.StringLiteral, error) {
	escaped, err := types.EscapedUTF16String(s)
	if err != nil {
		return "", fmt.Errorf("failed to encode field value: %w", err)
	}
	return types.StringLiteral(*escaped), nil
}

// applyWeekday handles the day-of-week radios: the template names each
// radio after its weekday, so the matching one gets the selected
// appearance state and the others are cleared.
func applyWeekday(ctx *model.Context, fieldDict types.Dict, widgets []types.Object, qualified string, plan *FillPlan) {
	if strings.Contains(qualified, plan.WeekdayLabel) {
		fieldDict["V"] = types.Name(plan.WeekdayLabel)
		setAppearanceState(ctx, fieldDict, widgets, types.Name(plan.WeekdayState))
		return
	}
	for _, label := range weekdayLabels {
		if strings.Contains(qualified, label) {
			fieldDict["V"] = types.Name("Off")
			setAppearanceState(ctx, fieldDict, widgets, types.Name("Off"))
			return
		}
	}
}

var weekdayLabels = []string{
	"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday",
}

// setAppearanceState sets /AS on the field's widget annotations, or on
// the field dict itself for merged widgets.
func setAppearanceState(ctx *model.Context, fieldDict types.Dict, widgets []types.Object, state types.Name) {
	if len(widgets) == 0 {
		fieldDict["AS"] = state
		return
	}
	for _, widget := range widgets {
		widgetDict, err := ctx.DereferenceDict(widget)
		if err != nil || widgetDict == nil {
			continue
		}
		widgetDict["AS"] = state
	}
}

// terminalFieldType resolves FT, following Parent for inherited types.
func terminalFieldType(ctx *model.Context, fieldDict types.Dict) string {
	ftObj, found := fieldDict.Find("FT")
	if !found {
		if parentObj, found := fieldDict.Find("Parent"); found {
			if parentDict, err := ctx.DereferenceDict(parentObj); err == nil && parentDict != nil {
				return terminalFieldType(ctx, parentDict)
			}
		}
		return ""
	}
	ftName, err := ctx.DereferenceName(ftObj, model.V10, nil)
	if err != nil {
		return ""
	}
	return string(ftName)
}
