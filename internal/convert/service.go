// Package convert orchestrates one conversion: parse the export, map it
// against the catalog, fill the template, stamp the photos. Stateless
// per request; the catalog and template are read-only after startup.
package convert

import (
	"bytes"
	"context"
	"fmt"

	"github.com/hhpr/odot-converter/internal/catalog"
	"github.com/hhpr/odot-converter/internal/form"
	"github.com/hhpr/odot-converter/internal/headlight"
	"github.com/hhpr/odot-converter/internal/mapping"
)

// Service converts HeadLight exports into filled ODOT forms.
type Service struct {
	catalog  *catalog.Catalog
	mapper   *mapping.Mapper
	template *form.Template
	filler   *form.Filler

	maxExportSize int64
}

// NewService creates the conversion service and validates the template
// up front so a bad deployment fails at startup, not per request.
func NewService(cat *catalog.Catalog, templatePath string, maxExportSize int64) (*Service, error) {
	if cat == nil {
		return nil, fmt.Errorf("catalog cannot be nil")
	}
	tmpl := form.NewTemplate(templatePath, 0)
	if err := tmpl.Validate(); err != nil {
		return nil, fmt.Errorf("template validation failed: %w", err)
	}
	return &Service{
		catalog:       cat,
		mapper:        mapping.NewMapper(cat),
		template:      tmpl,
		filler:        form.NewFiller(templatePath),
		maxExportSize: maxExportSize,
	}, nil
}

// CatalogVersion returns the loaded catalog artifact version.
func (s *Service) CatalogVersion() string {
	return s.catalog.Version
}

// MaxPhotos returns how many photo slots the form offers.
func (s *Service) MaxPhotos() int {
	return s.catalog.MaxPhotos()
}

// Convert runs one conversion. Structural failures abort before any
// output; field-level gaps are reported in the result instead.
func (s *Service) Convert(ctx context.Context, req ConvertRequest) (*ConvertResult, error) {
	if s.maxExportSize > 0 && int64(len(req.ExportJSON)) > s.maxExportSize {
		return nil, fmt.Errorf("export too large: %d bytes (max: %d bytes)",
			len(req.ExportJSON), s.maxExportSize)
	}

	rec, err := headlight.Parse(req.ExportJSON)
	if err != nil {
		return nil, err
	}

	assignment, err := s.mapper.Map(rec)
	if err != nil {
		return nil, err
	}
	slotted, dropped := s.mapper.SlotPhotos(len(req.Attachments))

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	plan, err := form.Plan(s.catalog, assignment)
	if err != nil {
		return nil, fmt.Errorf("failed to plan form fill: %w", err)
	}

	var filled bytes.Buffer
	if err := s.filler.Fill(plan, &filled); err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	photos := make([]form.Photo, 0, len(slotted))
	for _, sp := range slotted {
		photos = append(photos, form.Photo{
			Slot: sp.Slot,
			Data: req.Attachments[sp.Index].Data,
		})
	}

	var out bytes.Buffer
	if err := form.StampPhotos(bytes.NewReader(filled.Bytes()), &out, photos); err != nil {
		return nil, err
	}

	return &ConvertResult{
		PDF:            out.Bytes(),
		CatalogVersion: s.catalog.Version,
		ResolvedFields: len(assignment.Values),
		Unresolved:     assignment.Unresolved,
		PhotosPlaced:   len(photos),
		PhotosDropped:  dropped,
	}, nil
}

// ValidateExport checks that an export document would be accepted by
// Convert, without producing output.
func (s *Service) ValidateExport(req ValidateExportRequest) (*ValidateExportResult, error) {
	rec, err := headlight.Parse(req.ExportJSON)
	if err != nil {
		return &ValidateExportResult{Valid: false, Message: err.Error()}, nil
	}
	if err := rec.RequireSections(s.catalog.RequiredSections); err != nil {
		return &ValidateExportResult{Valid: false, Message: err.Error()}, nil
	}
	return &ValidateExportResult{Valid: true}, nil
}

// TemplateFields lists the template's form fields.
func (s *Service) TemplateFields() ([]form.FieldInfo, error) {
	return s.template.ListFields()
}
