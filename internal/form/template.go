package form

import (
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// FieldInfo describes one AcroForm field of the template.
type FieldInfo struct {
	Name     string `json:"name"` // fully qualified
	Type     string `json:"type"` // text, checkbox, radio, select, signature
	MaxLen   int    `json:"max_len,omitempty"`
	ReadOnly bool   `json:"read_only"`
}

// Template wraps the ODOT form template file.
type Template struct {
	path        string
	maxFileSize int64
}

// NewTemplate creates a template handle for the given file.
func NewTemplate(path string, maxFileSize int64) *Template {
	return &Template{path: path, maxFileSize: maxFileSize}
}

// Path returns the template file path.
func (t *Template) Path() string { return t.path }

// Validate checks that the template is a readable PDF within the size
// limit. Called once at startup and by the validation tool.
func (t *Template) Validate() error {
	if t.path == "" {
		return fmt.Errorf("template path cannot be empty")
	}

	fileInfo, err := os.Stat(t.path)
	if os.IsNotExist(err) {
		return fmt.Errorf("template does not exist: %s", t.path)
	}
	if err != nil {
		return fmt.Errorf("cannot access template: %w", err)
	}
	if fileInfo.IsDir() {
		return fmt.Errorf("template path is a directory: %s", t.path)
	}
	if !strings.HasSuffix(strings.ToLower(t.path), ".pdf") {
		return fmt.Errorf("template is not a PDF: %s", t.path)
	}
	if fileInfo.Size() == 0 {
		return fmt.Errorf("template is empty: %s", t.path)
	}
	if t.maxFileSize > 0 && fileInfo.Size() > t.maxFileSize {
		return fmt.Errorf("template too large: %d bytes (max: %d bytes)",
			fileInfo.Size(), t.maxFileSize)
	}

	f, _, err := pdf.Open(t.path)
	if err != nil {
		return fmt.Errorf("invalid PDF template: %w", err)
	}
	defer f.Close()

	return nil
}

// PageCount returns the template's page count.
func (t *Template) PageCount() (int, error) {
	f, r, err := pdf.Open(t.path)
	if err != nil {
		return 0, fmt.Errorf("failed to open template: %w", err)
	}
	defer f.Close()
	return r.NumPage(), nil
}

// ListFields enumerates the template's AcroForm fields with their fully
// qualified names.
func (t *Template) ListFields() ([]FieldInfo, error) {
	file, err := os.Open(t.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open template: %w", err)
	}
	defer file.Close()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(file, conf)
	if err != nil {
		return nil, fmt.Errorf("failed to read template: %w", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, fmt.Errorf("failed to ensure page count: %w", err)
	}

	rootDict, err := ctx.Catalog()
	if err != nil {
		return nil, fmt.Errorf("failed to get catalog: %w", err)
	}
	acroFormObj, found := rootDict.Find("AcroForm")
	if !found {
		return nil, nil
	}
	acroFormDict, err := ctx.DereferenceDict(acroFormObj)
	if err != nil || acroFormDict == nil {
		return nil, fmt.Errorf("failed to dereference AcroForm: %w", err)
	}
	fieldsObj, found := acroFormDict.Find("Fields")
	if !found {
		return nil, nil
	}
	fieldsArray, err := ctx.DereferenceArray(fieldsObj)
	if err != nil {
		return nil, fmt.Errorf("failed to dereference Fields array: %w", err)
	}

	var fields []FieldInfo
	for _, fieldRef := range fieldsArray {
		fields = collectFields(ctx, fieldRef, "", fields)
	}
	return fields, nil
}

// collectFields walks the field tree accumulating terminal fields.
func collectFields(ctx *model.Context, fieldObj types.Object, prefix string, acc []FieldInfo) []FieldInfo {
	fieldDict, err := ctx.DereferenceDict(fieldObj)
	if err != nil || fieldDict == nil {
		return acc
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

	if kids, named := namedKids(ctx, fieldDict); named {
		for _, kid := range kids {
			acc = collectFields(ctx, kid, qualified, acc)
		}
		return acc
	}

	info := FieldInfo{
		Name: qualified,
		Type: describeFieldType(ctx, fieldDict),
	}
	if maxLenObj, found := fieldDict.Find("MaxLen"); found {
		if maxLen, err := ctx.DereferenceInteger(maxLenObj); err == nil && maxLen != nil {
			info.MaxLen = int(*maxLen)
		}
	}
	if flagsObj, found := fieldDict.Find("Ff"); found {
		if flags, err := ctx.DereferenceInteger(flagsObj); err == nil && flags != nil {
			info.ReadOnly = (*flags & 1) != 0
		}
	}
	return append(acc, info)
}

// describeFieldType maps the FT entry (with button flags) to a readable
// type name.
func describeFieldType(ctx *model.Context, fieldDict types.Dict) string {
	switch terminalFieldType(ctx, fieldDict) {
	case "Tx":
		return "text"
	case "Ch":
		return "select"
	case "Sig":
		return "signature"
	case "Btn":
		if flagsObj, found := fieldDict.Find("Ff"); found {
			if flags, err := ctx.DereferenceInteger(flagsObj); err == nil && flags != nil {
				if (*flags & (1 << 15)) != 0 {
					return "radio"
				}
				if (*flags & (1 << 16)) != 0 {
					return "button"
				}
			}
		}
		return "checkbox"
	default:
		return "unknown"
	}
}
