package mapping

import (
	"github.com/hhpr/odot-converter/internal/catalog"
)

// Strategy identifies how a field value was (or may be) resolved.
type Strategy string

const (
	// StrategyDirect copies a source value verbatim after type checking.
	StrategyDirect Strategy = "direct"
	// StrategyBucketed classifies a numeric value into range buckets.
	StrategyBucketed Strategy = "bucketed"
	// StrategySetMembership matches free text against a synonym table.
	StrategySetMembership Strategy = "set_membership"
	// StrategyConcatenated joins narrative sections in declared order.
	StrategyConcatenated Strategy = "concatenated"
	// StrategyTabulated fills a repeating table region via a named builder.
	StrategyTabulated Strategy = "tabulated"
)

// strategiesFor returns the ordered resolution strategies for a field
// kind. The order is the contract: strategies run first to last and the
// first success wins; any remaining failures degrade the field to unset.
func strategiesFor(kind catalog.FieldKind) []Strategy {
	switch kind {
	case catalog.FieldText, catalog.FieldDate:
		return []Strategy{StrategyDirect}
	case catalog.FieldChoice:
		return []Strategy{StrategyDirect, StrategySetMembership}
	case catalog.FieldBucket:
		return []Strategy{StrategyBucketed}
	case catalog.FieldNarrative:
		return []Strategy{StrategyConcatenated}
	case catalog.FieldWeekday:
		return []Strategy{StrategySetMembership}
	case catalog.FieldTable:
		return []Strategy{StrategyTabulated}
	default:
		return nil
	}
}
