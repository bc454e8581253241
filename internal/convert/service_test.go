package convert

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hhpr/odot-converter/internal/catalog"
)

// testTemplate points at a real ODOT form template. Conversion tests
// that need one skip when it is not checked out.
const testTemplate = "testdata/ODOT Template.pdf"

func newTestService(t *testing.T) *Service {
	t.Helper()
	if _, err := os.Stat(testTemplate); os.IsNotExist(err) {
		t.Skipf("template fixture %s not present", testTemplate)
	}
	svc, err := NewService(catalog.Default(), testTemplate, 32*1024*1024)
	require.NoError(t, err)
	return svc
}

func TestNewServiceRejectsNilCatalog(t *testing.T) {
	_, err := NewService(nil, "template.pdf", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "catalog cannot be nil")
}

func TestNewServiceValidatesTemplate(t *testing.T) {
	_, err := NewService(catalog.Default(), filepath.Join(t.TempDir(), "absent.pdf"), 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "template validation failed")
}

func TestConvert(t *testing.T) {
	svc := newTestService(t)

	export := `{
		"DocumentDate": "2024-03-12",
		"Weather": {"Conditions": "clear", "Temperature": 72},
		"Personnel": [
			{"Name": "A. Smith", "Contractor": "Acme Paving", "Trade": "Operator"}
		]
	}`

	result, err := svc.Convert(context.Background(), ConvertRequest{ExportJSON: []byte(export)})
	require.NoError(t, err)

	assert.NotEmpty(t, result.PDF)
	assert.Equal(t, "%PDF", string(result.PDF[:4]))
	assert.Equal(t, svc.CatalogVersion(), result.CatalogVersion)
	assert.Positive(t, result.ResolvedFields)
	assert.Zero(t, result.PhotosPlaced)
	assert.Zero(t, result.PhotosDropped)
}

func TestConvertRejectsOversizedExport(t *testing.T) {
	svc := newTestService(t)
	svc.maxExportSize = 16

	_, err := svc.Convert(context.Background(), ConvertRequest{
		ExportJSON: []byte(`{"Personnel": [{"Name": "A"}]}`),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "export too large")
}

func TestConvertHonorsCancellation(t *testing.T) {
	svc := newTestService(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Convert(ctx, ConvertRequest{
		ExportJSON: []byte(`{"Personnel": [{"Name": "A", "Contractor": "Acme", "Trade": "Laborer"}]}`),
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestValidateExport(t *testing.T) {
	svc := newTestService(t)

	tests := []struct {
		name        string
		export      string
		wantValid   bool
		wantMessage string
	}{
		{
			name:      "valid",
			export:    `{"Personnel": []}`,
			wantValid: true,
		},
		{
			name:        "invalid_json",
			export:      `{"Personnel":`,
			wantValid:   false,
			wantMessage: "invalid JSON",
		},
		{
			name:        "missing_required_section",
			export:      `{"Weather": {}}`,
			wantValid:   false,
			wantMessage: "Personnel",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := svc.ValidateExport(ValidateExportRequest{ExportJSON: []byte(tt.export)})
			require.NoError(t, err)
			assert.Equal(t, tt.wantValid, result.Valid)
			if tt.wantMessage != "" {
				assert.Contains(t, result.Message, tt.wantMessage)
			}
		})
	}
}
