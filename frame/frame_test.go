package frame

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// grayFrame builds a 16x4 grayscale image whose row 2 ramps upward in
// steps of 16, so a scanline read has a position-dependent signature.
func grayFrame() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, 16, 4))
	for x := 0; x < 16; x++ {
		img.SetGray(x, 2, color.Gray{Y: uint8(x * 16)})
	}
	return img
}

// writeImage encodes img into a temp file using enc and returns its path.
func writeImage(t *testing.T, name string, enc func(f *os.File) error) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", name, err)
	}
	defer f.Close()
	if err := enc(f); err != nil {
		t.Fatalf("encode %s: %v", name, err)
	}
	return path
}

func checkRamp(t *testing.T, samples []uint8) {
	t.Helper()
	if len(samples) != 16 {
		t.Fatalf("length: got %d, want 16", len(samples))
	}
	for x, s := range samples {
		if s != uint8(x*16) {
			t.Errorf("column %d: got %d, want %d", x, s, x*16)
		}
	}
}

func TestReadScanlinePNG(t *testing.T) {
	t.Parallel()

	img := grayFrame()
	path := writeImage(t, "frame.png", func(f *os.File) error { return png.Encode(f, img) })

	samples, err := ReadScanline(path, 2)
	if err != nil {
		t.Fatalf("ReadScanline: %v", err)
	}
	checkRamp(t, samples)
}

func TestReadScanlineBMP(t *testing.T) {
	t.Parallel()

	img := grayFrame()
	path := writeImage(t, "frame.bmp", func(f *os.File) error { return bmp.Encode(f, img) })

	samples, err := ReadScanline(path, 2)
	if err != nil {
		t.Fatalf("ReadScanline: %v", err)
	}
	checkRamp(t, samples)
}

func TestReadScanlineTIFF(t *testing.T) {
	t.Parallel()

	img := grayFrame()
	path := writeImage(t, "frame.tif", func(f *os.File) error { return tiff.Encode(f, img, nil) })

	samples, err := ReadScanline(path, 2)
	if err != nil {
		t.Fatalf("ReadScanline: %v", err)
	}
	checkRamp(t, samples)
}

func TestScanlineColorLuma(t *testing.T) {
	t.Parallel()

	// Equal RGB channels convert to the same 8-bit luma value, so a color
	// frame holding a grayscale picture samples identically to a gray one.
	img := image.NewNRGBA(image.Rect(0, 0, 16, 4))
	for x := 0; x < 16; x++ {
		v := uint8(x * 16)
		img.SetNRGBA(x, 2, color.NRGBA{R: v, G: v, B: v, A: 255})
	}
	samples, err := Scanline(img, 2)
	if err != nil {
		t.Fatalf("Scanline: %v", err)
	}
	checkRamp(t, samples)
}

func TestScanlineNonZeroOrigin(t *testing.T) {
	t.Parallel()

	img := image.NewGray(image.Rect(4, 8, 20, 12))
	for x := 4; x < 20; x++ {
		img.SetGray(x, 10, color.Gray{Y: uint8((x - 4) * 16)})
	}
	samples, err := Scanline(img, 2)
	if err != nil {
		t.Fatalf("Scanline: %v", err)
	}
	checkRamp(t, samples)
}

func TestScanlineRowOutOfBounds(t *testing.T) {
	t.Parallel()

	img := image.NewGray(image.Rect(0, 0, 16, 4))
	for _, row := range []int{-1, 4, 100} {
		if _, err := Scanline(img, row); err == nil {
			t.Errorf("row %d: expected error", row)
		}
	}
}

func TestReadScanlineMissingFile(t *testing.T) {
	t.Parallel()

	if _, err := ReadScanline(filepath.Join(t.TempDir(), "nope.png"), 0); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestReadScanlineCorruptFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "junk.png")
	if err := os.WriteFile(path, []byte("not an image"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadScanline(path, 0); err == nil {
		t.Error("expected error for corrupt file")
	}
}
