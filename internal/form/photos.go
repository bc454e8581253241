package form

import (
	"bytes"
	"fmt"
	"image"
	"io"
	"strconv"

	// Decoders for the photo formats the upload form accepts.
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"golang.org/x/image/draw"

	"github.com/hhpr/odot-converter/internal/catalog"
)

const photoJPEGQuality = 85

// Photo is one uploaded image bound to a catalog slot.
type Photo struct {
	Slot catalog.PhotoSlot
	Data []byte
}

// StampPhotos places photos onto their slots, reading the filled PDF
// from rs and writing the result to w. Photos are scaled to fit their
// slot rectangle and re-encoded as JPEG before stamping.
func StampPhotos(rs io.ReadSeeker, w io.Writer, photos []Photo) error {
	if len(photos) == 0 {
		_, err := io.Copy(w, rs)
		return err
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	current, err := io.ReadAll(rs)
	if err != nil {
		return fmt.Errorf("failed to read filled form: %w", err)
	}

	// pdfcpu applies one watermark per pass, so photos are stamped in
	// sequence over the previous result.
	for i, photo := range photos {
		normalized, width, height, err := normalizePhoto(photo.Data, photo.Slot)
		if err != nil {
			return fmt.Errorf("photo %d (%s): %w", i+1, photo.Slot.Name, err)
		}

		desc := watermarkDesc(photo.Slot, width, height)
		wm, err := api.ImageWatermarkForReader(bytes.NewReader(normalized), desc, true, false, types.POINTS)
		if err != nil {
			return fmt.Errorf("photo %d (%s): failed to build stamp: %w", i+1, photo.Slot.Name, err)
		}

		var out bytes.Buffer
		pages := []string{strconv.Itoa(photo.Slot.Page)}
		if err := api.AddWatermarks(bytes.NewReader(current), &out, pages, wm, conf); err != nil {
			return fmt.Errorf("photo %d (%s): failed to stamp: %w", i+1, photo.Slot.Name, err)
		}
		current = out.Bytes()
	}

	_, err = w.Write(current)
	return err
}

// watermarkDesc positions the stamp at the slot's lower-left corner,
// offsets measured from the page's lower-left in points.
func watermarkDesc(slot catalog.PhotoSlot, width, height int) string {
	x := slot.X + (slot.Width-float64(width))/2
	y := slot.Y + (slot.Height-float64(height))/2
	return fmt.Sprintf("pos:bl, off:%.1f %.1f, scale:1 abs, rot:0", x, y)
}

// normalizePhoto decodes an uploaded image, scales it down to fit the
// slot rectangle preserving aspect ratio, and re-encodes it as JPEG.
// Images already within bounds keep their pixel size.
func normalizePhoto(data []byte, slot catalog.PhotoSlot) (jpegData []byte, width, height int, err error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := src.Bounds()
	width, height = fitWithin(bounds.Dx(), bounds.Dy(), int(slot.Width), int(slot.Height))

	if width != bounds.Dx() || height != bounds.Dy() {
		dst := image.NewRGBA(image.Rect(0, 0, width, height))
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)
		src = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, src, &jpeg.Options{Quality: photoJPEGQuality}); err != nil {
		return nil, 0, 0, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), width, height, nil
}

// fitWithin scales (w, h) down to fit (maxW, maxH), never up.
func fitWithin(w, h, maxW, maxH int) (int, int) {
	if w <= maxW && h <= maxH {
		return w, h
	}
	scaleW := float64(maxW) / float64(w)
	scaleH := float64(maxH) / float64(h)
	scale := scaleW
	if scaleH < scale {
		scale = scaleH
	}
	outW := int(float64(w) * scale)
	outH := int(float64(h) * scale)
	if outW < 1 {
		outW = 1
	}
	if outH < 1 {
		outH = 1
	}
	return outW, outH
}
