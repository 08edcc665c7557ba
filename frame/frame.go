// Package frame reads scanlines out of still frame images. It is the
// image-facing side of the extraction pipeline: the decoder only ever
// sees a row of luma samples, and this package produces them.
package frame

import (
	"fmt"
	"image"
	"image/color"
	"os"

	// Frame grabs arrive in whatever format the capture tool emits;
	// register the common still-image codecs.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

// Files reads scanlines from image files on the local filesystem. The
// zero value is ready to use; it satisfies the batch driver's Sampler
// contract.
type Files struct{}

// ReadScanline opens the frame image at path and returns the samples of
// the given row.
func (Files) ReadScanline(path string, row int) ([]uint8, error) {
	return ReadScanline(path, row)
}

// ReadScanline decodes the image file at path and extracts row as 8-bit
// luma samples, one per pixel column. A file that cannot be opened or
// decoded, or a row outside the image, is an error: it means the input is
// missing or corrupt, not that the frame carries no caption.
func ReadScanline(path string, row int) ([]uint8, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open frame: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode frame %s: %w", path, err)
	}
	return Scanline(img, row)
}

// Scanline extracts row from a decoded image as 8-bit luma samples.
// Grayscale images are copied directly; everything else goes through the
// standard luma conversion. Exact luma coefficients do not matter
// downstream, since the decoder classifies samples relative to the row's
// own peak.
func Scanline(img image.Image, row int) ([]uint8, error) {
	b := img.Bounds()
	if row < 0 || row >= b.Dy() {
		return nil, fmt.Errorf("row %d outside image height %d", row, b.Dy())
	}
	y := b.Min.Y + row

	samples := make([]uint8, b.Dx())
	if g, ok := img.(*image.Gray); ok {
		copy(samples, g.Pix[g.PixOffset(b.Min.X, y):])
		return samples, nil
	}
	for i := range samples {
		samples[i] = color.GrayModel.Convert(img.At(b.Min.X+i, y)).(color.Gray).Y
	}
	return samples, nil
}
