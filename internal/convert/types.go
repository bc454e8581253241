package convert

// Attachment is one uploaded photo: the raw image bytes plus the
// original file name for reporting. Ownership passes to the service at
// hand-off.
type Attachment struct {
	Name string `json:"name"`
	Data []byte `json:"-"`
}

// Request Types

// ConvertRequest carries one export document and its photos.
type ConvertRequest struct {
	ExportJSON  []byte       `json:"-"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// ValidateExportRequest asks whether an export document is convertible.
type ValidateExportRequest struct {
	ExportJSON []byte `json:"-"`
}

// Response Types

// ConvertResult is the outcome of one conversion.
type ConvertResult struct {
	PDF            []byte   `json:"-"`
	CatalogVersion string   `json:"catalog_version"`
	ResolvedFields int      `json:"resolved_fields"`
	Unresolved     []string `json:"unresolved,omitempty"`
	PhotosPlaced   int      `json:"photos_placed"`
	PhotosDropped  int      `json:"photos_dropped"`
}

// ValidateExportResult reports whether an export parses and which
// required sections it carries.
type ValidateExportResult struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message,omitempty"`
}
