package form

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hhpr/odot-converter/internal/catalog"
	"github.com/hhpr/odot-converter/internal/mapping"
)

func TestPlanTextTargets(t *testing.T) {
	c := catalog.Default()
	a := &mapping.Assignment{Values: map[string]mapping.Value{
		"shift": {Strategy: mapping.StrategyDirect, Text: "Day"},
	}}

	plan, err := Plan(c, a)
	require.NoError(t, err)

	// Footer fields repeat on every page master.
	shift, _ := c.Field("shift")
	require.Len(t, shift.Targets, 3)
	for _, target := range shift.Targets {
		assert.Equal(t, "Day", plan.Text[target])
	}
}

func TestPlanChoiceClearsSiblings(t *testing.T) {
	c := catalog.Default()
	a := &mapping.Assignment{Values: map[string]mapping.Value{
		"supervisor_present": {Strategy: mapping.StrategyDirect, Label: "Yes"},
	}}

	plan, err := Plan(c, a)
	require.NoError(t, err)

	f, _ := c.Field("supervisor_present")
	yes, _ := f.OptionByLabel("Yes")
	no, _ := f.OptionByLabel("No")

	assert.True(t, plan.Checks[yes.PDFField])
	checked, present := plan.Checks[no.PDFField]
	assert.True(t, present, "losing option must be explicitly cleared")
	assert.False(t, checked)
}

func TestPlanBucket(t *testing.T) {
	c := catalog.Default()
	a := &mapping.Assignment{Values: map[string]mapping.Value{
		"temperature": {Strategy: mapping.StrategyBucketed, Label: "50-69"},
	}}

	plan, err := Plan(c, a)
	require.NoError(t, err)

	f, _ := c.Field("temperature")
	var want string
	for _, b := range f.Buckets {
		if b.Label == "50-69" {
			want = b.PDFField
		}
	}
	require.NotEmpty(t, want)
	assert.True(t, plan.Checks[want])
	assert.Len(t, plan.Checks, 1)
}

func TestPlanWeekday(t *testing.T) {
	c := catalog.Default()
	a := &mapping.Assignment{Values: map[string]mapping.Value{
		"day_of_week": {Strategy: mapping.StrategySetMembership, Label: "Tuesday"},
	}}

	plan, err := Plan(c, a)
	require.NoError(t, err)

	assert.Equal(t, "Tuesday", plan.WeekdayLabel)
	assert.Equal(t, "2", plan.WeekdayState)
}

func TestPlanTable(t *testing.T) {
	c := catalog.Default()
	a := &mapping.Assignment{Values: map[string]mapping.Value{
		"contractor_hours": {
			Strategy: mapping.StrategyTabulated,
			Rows: [][]string{
				{"Acme Paving", "8"},
				{"Delta Excavation", "8"},
			},
		},
		"trade_counts": {
			Strategy: mapping.StrategyTabulated,
			Rows:     [][]string{{""}, {"1"}},
		},
	}}

	plan, err := Plan(c, a)
	require.NoError(t, err)

	assert.Equal(t, "Acme Paving",
		plan.Text["form1[0].Page1[0].TableSub1[0].Table1[0].PersGroup[0].ContractorTable[0].Row0[0].Cell1[0]"])
	assert.Equal(t, "8",
		plan.Text["form1[0].Page1[0].TableSub1[0].Table1[0].PersGroup[0].ContractorTable[0].Row1[0].Cell2[0]"])

	// trade_counts starts at base 1; the empty first cell is skipped so
	// the template cell stays untouched.
	_, ok := plan.Text["form1[0].Page1[0].TableSub1[0].Table1[0].PersGroup[0].PersonnelTable1[0].Row2[0].Cell1[0]"]
	assert.False(t, ok)
	assert.Equal(t, "1",
		plan.Text["form1[0].Page1[0].TableSub1[0].Table1[0].PersGroup[0].PersonnelTable1[0].Row2[0].Cell2[0]"])
}

func TestPlanRejectsUndeclaredLabels(t *testing.T) {
	c := catalog.Default()

	tests := []struct {
		name  string
		field string
		value mapping.Value
	}{
		{name: "unknown_choice", field: "wind", value: mapping.Value{Label: "Hurricane"}},
		{name: "unknown_bucket", field: "temperature", value: mapping.Value{Label: "hot"}},
		{name: "unknown_weekday", field: "day_of_week", value: mapping.Value{Label: "Someday"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &mapping.Assignment{Values: map[string]mapping.Value{tt.field: tt.value}}
			_, err := Plan(c, a)
			assert.Error(t, err)
		})
	}
}

func TestPlanRejectsUnknownField(t *testing.T) {
	c := catalog.Default()
	a := &mapping.Assignment{Values: map[string]mapping.Value{
		"no_such_field": {Text: "x"},
	}}

	_, err := Plan(c, a)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown field")
}
