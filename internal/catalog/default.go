package catalog

import _ "embed"

// defaultCatalogYAML is the catalog artifact for the ODOT daily inspection
// report form (734-3474). Field names are the fully qualified AcroForm
// names from the ODOT template.
//
//go:embed odot_daily_report.yaml
var defaultCatalogYAML []byte
