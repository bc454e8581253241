package mapping

import (
	"strconv"
	"strings"

	"github.com/hhpr/odot-converter/internal/headlight"
)

// tableBuilder produces the rows for one repeating form region. Cell
// [i][j] lands in the catalog's j-th column pattern at index base+i; an
// empty cell leaves its target untouched.
type tableBuilder func(*headlight.Record) [][]string

var tableBuilders = map[string]tableBuilder{
	"contractor_hours": buildContractorHours,
	"trade_counts":     buildTradeCounts,
	"work_items":       buildWorkItems,
}

// hoursPerContractor is the fixed shift length credited to a contractor
// with any personnel on site; the export carries no per-contractor hours.
const hoursPerContractor = 8

// buildContractorHours aggregates personnel by contractor, one row per
// contractor in first-seen order.
func buildContractorHours(rec *headlight.Record) [][]string {
	var order []string
	seen := make(map[string]bool)
	for _, p := range rec.Personnel() {
		if p.Contractor == "" || seen[p.Contractor] {
			continue
		}
		seen[p.Contractor] = true
		order = append(order, p.Contractor)
	}
	rows := make([][]string, 0, len(order))
	for _, contractor := range order {
		rows = append(rows, []string{contractor, strconv.Itoa(hoursPerContractor)})
	}
	return rows
}

// tradeColumns is the fixed trade-to-column table of the personnel count
// header row. Superintendents count under Supervisors; a blank trade
// counts as Laborer; unknown trades take the next free column.
var tradeColumns = map[string]int{
	"Supervisor":     1,
	"Superintendent": 1,
	"Operator":       2,
	"Truck Driver":   3,
	"Laborer":        4,
}

const lastFixedTradeColumn = 4

// buildTradeCounts sums personnel head counts per trade and lays them
// out positionally: row i holds the count for column base+i.
func buildTradeCounts(rec *headlight.Record) [][]string {
	people := rec.Personnel()
	if len(people) == 0 {
		return nil
	}

	columnFor := make(map[string]int, len(tradeColumns))
	for trade, col := range tradeColumns {
		columnFor[trade] = col
	}
	nextColumn := lastFixedTradeColumn + 1

	counts := make(map[int]int)
	maxCol := 0
	for _, p := range people {
		if p.Contractor == "" {
			continue
		}
		trade := strings.TrimSpace(p.Trade)
		if trade == "" {
			trade = "Laborer"
		}
		col, ok := columnFor[trade]
		if !ok {
			col = nextColumn
			columnFor[trade] = col
			nextColumn++
		}
		counts[col] += p.Count
		if col > maxCol {
			maxCol = col
		}
	}
	if maxCol == 0 {
		return nil
	}

	rows := make([][]string, maxCol)
	for col := 1; col <= maxCol; col++ {
		cell := ""
		if n, ok := counts[col]; ok {
			cell = strconv.Itoa(n)
		}
		rows[col-1] = []string{cell}
	}
	return rows
}

// buildWorkItems renders one row per work item: location, item number,
// total, description. Descriptions shaped "0010: MOBILIZATION" split
// into item number and description.
func buildWorkItems(rec *headlight.Record) [][]string {
	items := rec.WorkItems()
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		itemNo, desc := splitItemNumber(item.Description)
		rows = append(rows, []string{item.Location, itemNo, formatTotal(item), desc})
	}
	return rows
}

func splitItemNumber(description string) (itemNo, desc string) {
	before, after, found := strings.Cut(description, ":")
	if !found {
		return "", description
	}
	return strings.TrimSpace(before), strings.TrimSpace(after)
}

func formatTotal(item headlight.WorkItem) string {
	if !item.HasQuantity {
		return ""
	}
	qty := strconv.FormatFloat(item.Quantity, 'f', -1, 64)
	if item.Units == "" {
		return qty
	}
	return qty + " " + item.Units
}
