package form

import (
	"strings"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextLiteral(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{name: "plain", in: "Crew on site"},
		{name: "unbalanced_paren", in: "patched joint (south side"},
		{name: "closing_paren_only", in: "mile marker 12)"},
		{name: "backslash", in: `C:\reports\daily`},
		{name: "non_ascii", in: "Señor Muñoz — 7°C"},
		{name: "newlines", in: "[07:30] Crew on site\n[10:15] Paving began"},
		{name: "empty", in: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			literal, err := textLiteral(tt.in)
			require.NoError(t, err)

			// The serialized object must be a well-formed parenthesized
			// string regardless of the input bytes.
			pdfStr := literal.PDFString()
			assert.True(t, strings.HasPrefix(pdfStr, "("))
			assert.True(t, strings.HasSuffix(pdfStr, ")"))

			depth := 0
			escaped := false
			for i := 0; i < len(pdfStr); i++ {
				if escaped {
					escaped = false
					continue
				}
				switch pdfStr[i] {
				case '\\':
					escaped = true
				case '(':
					depth++
				case ')':
					depth--
				}
				assert.GreaterOrEqual(t, depth, 0, "unbalanced at byte %d of %q", i, pdfStr)
			}
			assert.Zero(t, depth, "unbalanced parens in %q", pdfStr)

			// And it must decode back to the original text.
			decoded, err := types.StringLiteralToString(literal)
			require.NoError(t, err)
			assert.Equal(t, tt.in, decoded)
		})
	}
}
