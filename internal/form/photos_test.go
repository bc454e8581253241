package form

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hhpr/odot-converter/internal/catalog"
)

func testSlot() catalog.PhotoSlot {
	return catalog.PhotoSlot{Name: "photo_1", Page: 4, X: 21.6, Y: 573.2, Width: 189, Height: 142}
}

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 255, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestNormalizePhotoScalesDown(t *testing.T) {
	data := encodePNG(t, 1890, 1420)

	out, w, h, err := normalizePhoto(data, testSlot())
	require.NoError(t, err)

	assert.LessOrEqual(t, w, 189)
	assert.LessOrEqual(t, h, 142)

	// Output is JPEG regardless of the upload format.
	img, err := jpeg.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, w, img.Bounds().Dx())
	assert.Equal(t, h, img.Bounds().Dy())
}

func TestNormalizePhotoKeepsSmallImages(t *testing.T) {
	data := encodePNG(t, 100, 80)

	_, w, h, err := normalizePhoto(data, testSlot())
	require.NoError(t, err)

	// Within bounds, so no upscaling.
	assert.Equal(t, 100, w)
	assert.Equal(t, 80, h)
}

func TestNormalizePhotoRejectsGarbage(t *testing.T) {
	_, _, _, err := normalizePhoto([]byte("not an image"), testSlot())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode image")
}

func TestFitWithin(t *testing.T) {
	tests := []struct {
		name           string
		w, h           int
		maxW, maxH     int
		wantW, wantH   int
	}{
		{name: "fits", w: 100, h: 80, maxW: 189, maxH: 142, wantW: 100, wantH: 80},
		{name: "wide", w: 400, h: 100, maxW: 200, maxH: 200, wantW: 200, wantH: 50},
		{name: "tall", w: 100, h: 400, maxW: 200, maxH: 200, wantW: 50, wantH: 200},
		{name: "both", w: 1890, h: 1420, maxW: 189, maxH: 142, wantW: 189, wantH: 142},
		{name: "degenerate", w: 10000, h: 1, maxW: 10, maxH: 10, wantW: 10, wantH: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := fitWithin(tt.w, tt.h, tt.maxW, tt.maxH)
			assert.Equal(t, tt.wantW, w)
			assert.Equal(t, tt.wantH, h)
		})
	}
}

func TestWatermarkDescCentersInSlot(t *testing.T) {
	desc := watermarkDesc(testSlot(), 189, 142)
	assert.Equal(t, "pos:bl, off:21.6 573.2, scale:1 abs, rot:0", desc)

	// A smaller image is centered inside the slot rectangle.
	desc = watermarkDesc(testSlot(), 89, 42)
	assert.Equal(t, "pos:bl, off:71.6 623.2, scale:1 abs, rot:0", desc)
}

func TestStampPhotosCopiesThroughWithoutPhotos(t *testing.T) {
	src := []byte("%PDF-1.7 stub")
	var out bytes.Buffer

	err := StampPhotos(bytes.NewReader(src), &out, nil)
	require.NoError(t, err)
	assert.Equal(t, src, out.Bytes())
}
