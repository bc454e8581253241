package mapping

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hhpr/odot-converter/internal/catalog"
)

func TestBuildContractorHours(t *testing.T) {
	rec := parseRecord(t, `{
		"Personnel": [
			{"Name": "A", "Contractor": "Acme Paving", "Trade": "Operator"},
			{"Name": "B", "Contractor": "Delta Excavation", "Trade": "Laborer"},
			{"Name": "C", "Contractor": "Acme Paving", "Trade": "Laborer"},
			{"Name": "D", "Trade": "Laborer"}
		]
	}`)

	rows := buildContractorHours(rec)
	require.Len(t, rows, 2)

	// One row per contractor in first-seen order, fixed 8-hour shift.
	assert.Equal(t, []string{"Acme Paving", "8"}, rows[0])
	assert.Equal(t, []string{"Delta Excavation", "8"}, rows[1])
}

func TestBuildTradeCounts(t *testing.T) {
	rec := parseRecord(t, `{
		"Personnel": [
			{"Name": "A", "Contractor": "Acme", "Trade": "Supervisor"},
			{"Name": "B", "Contractor": "Acme", "Trade": "Superintendent"},
			{"Name": "C", "Contractor": "Acme", "Trade": "Operator"},
			{"Name": "D", "Contractor": "Acme", "Trade": "Truck Driver", "Count": 2},
			{"Name": "E", "Contractor": "Acme", "Trade": ""},
			{"Name": "F", "Contractor": "Acme", "Trade": "Surveyor"},
			{"Name": "G", "Contractor": "", "Trade": "Laborer"}
		]
	}`)

	rows := buildTradeCounts(rec)
	require.Len(t, rows, 5)

	// Positional layout: column base+i. Superintendents count under
	// Supervisors; a blank trade counts as Laborer; unknown trades take
	// the next free column. Entries without a contractor are skipped.
	assert.Equal(t, []string{"2"}, rows[0]) // Supervisor + Superintendent
	assert.Equal(t, []string{"1"}, rows[1]) // Operator
	assert.Equal(t, []string{"2"}, rows[2]) // Truck Driver, head count 2
	assert.Equal(t, []string{"1"}, rows[3]) // blank trade -> Laborer
	assert.Equal(t, []string{"1"}, rows[4]) // Surveyor, first free column
}

func TestBuildTradeCountsSparse(t *testing.T) {
	rec := parseRecord(t, `{
		"Personnel": [
			{"Name": "A", "Contractor": "Acme", "Trade": "Laborer", "Count": 5}
		]
	}`)

	rows := buildTradeCounts(rec)
	require.Len(t, rows, 4)

	// Unoccupied columns stay empty so their cells are left untouched.
	assert.Equal(t, []string{""}, rows[0])
	assert.Equal(t, []string{""}, rows[1])
	assert.Equal(t, []string{""}, rows[2])
	assert.Equal(t, []string{"5"}, rows[3])
}

func TestBuildTradeCountsEmpty(t *testing.T) {
	rec := parseRecord(t, `{"Personnel": []}`)
	assert.Nil(t, buildTradeCounts(rec))

	noContractors := parseRecord(t, `{"Personnel": [{"Name": "A", "Trade": "Laborer"}]}`)
	assert.Nil(t, buildTradeCounts(noContractors))
}

func TestBuildWorkItems(t *testing.T) {
	rec := parseRecord(t, `{
		"WorkItems": [
			{"Description": "0010: MOBILIZATION", "Quantity": 1, "Units": "LS", "Location": "Sta 10+00"},
			{"Description": "0405: AGGREGATE BASE", "Quantity": 120.5, "Units": "TON", "Location": "North ramp"},
			{"Description": "Hand grading", "Location": "Shoulder"}
		]
	}`)

	rows := buildWorkItems(rec)
	require.Len(t, rows, 3)

	assert.Equal(t, []string{"Sta 10+00", "0010", "1 LS", "MOBILIZATION"}, rows[0])
	assert.Equal(t, []string{"North ramp", "0405", "120.5 TON", "AGGREGATE BASE"}, rows[1])
	// No "NNNN:" prefix and no quantity: item number and total stay empty.
	assert.Equal(t, []string{"Shoulder", "", "", "Hand grading"}, rows[2])
}

func TestWorkItemsRowCap(t *testing.T) {
	doc := `{"Personnel": [{"Name": "A", "Contractor": "Acme", "Trade": "Laborer"}], "WorkItems": [`
	for i := 0; i < 25; i++ {
		if i > 0 {
			doc += ","
		}
		doc += fmt.Sprintf(`{"Description": "item %d", "Location": "loc"}`, i)
	}
	doc += `]}`

	m := NewMapper(catalog.Default())
	a, err := m.Map(parseRecord(t, doc))
	require.NoError(t, err)

	v, ok := a.Values["work_items"]
	require.True(t, ok)
	assert.Len(t, v.Rows, 20)
}

func TestSplitItemNumber(t *testing.T) {
	tests := []struct {
		in       string
		wantNo   string
		wantDesc string
	}{
		{in: "0010: MOBILIZATION", wantNo: "0010", wantDesc: "MOBILIZATION"},
		{in: "0010:MOBILIZATION", wantNo: "0010", wantDesc: "MOBILIZATION"},
		{in: "Hand grading", wantNo: "", wantDesc: "Hand grading"},
		{in: "", wantNo: "", wantDesc: ""},
	}

	for _, tt := range tests {
		no, desc := splitItemNumber(tt.in)
		assert.Equal(t, tt.wantNo, no)
		assert.Equal(t, tt.wantDesc, desc)
	}
}
