// Package imageio loads, saves and generates the raster images used by the
// drivers.
//
// Decoding supports PNG, JPEG, GIF, BMP, TIFF and WebP. Encoding picks the
// format from the output file extension.
package imageio

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"

	"github.com/hupe1980/kmeansbench"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp" // register decoder
)

// Format identifies an output encoding.
type Format string

const (
	PNG  Format = "png"
	JPEG Format = "jpeg"
	GIF  Format = "gif"
	BMP  Format = "bmp"
	TIFF Format = "tiff"
)

// ErrUnsupportedFormat is returned for unknown output extensions.
var ErrUnsupportedFormat = errors.New("unsupported image format")

// ErrImageTooLarge is returned when a header announces more than MaxPixels.
var ErrImageTooLarge = errors.New("image too large")

// MaxPixels bounds the decoded image area (1 GiB as RGBA).
const MaxPixels = 1 << 28

// JPEGQuality is the quality used when encoding JPEG output.
const JPEGQuality = 95

// FormatFromPath derives the output format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return PNG, nil
	case ".jpg", ".jpeg":
		return JPEG, nil
	case ".gif":
		return GIF, nil
	case ".bmp":
		return BMP, nil
	case ".tif", ".tiff":
		return TIFF, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// Load reads and decodes the image at path. Failures match
// kmeansbench.ErrInputLoadFailure.
func Load(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, kmeansbench.NewLoadError(path, err)
	}
	defer f.Close()

	img, err := Decode(bufio.NewReader(f))
	if err != nil {
		return nil, kmeansbench.NewLoadError(path, err)
	}
	return img, nil
}

// Decode decodes any registered format and rejects empty images. The header
// is checked against MaxPixels before any pixel buffer is allocated.
func Decode(r io.Reader) (image.Image, error) {
	var header bytes.Buffer
	cfg, _, err := image.DecodeConfig(io.TeeReader(r, &header))
	if err != nil {
		return nil, err
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, errors.New("image is empty")
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrImageTooLarge, cfg.Width, cfg.Height, MaxPixels)
	}

	img, _, err := image.Decode(io.MultiReader(&header, r))
	if err != nil {
		return nil, err
	}
	if img.Bounds().Empty() {
		return nil, errors.New("image is empty")
	}
	return img, nil
}

// Encode writes img to w in the given format.
func Encode(w io.Writer, img image.Image, format Format) error {
	switch format {
	case PNG:
		return png.Encode(w, img)
	case JPEG:
		return jpeg.Encode(w, img, &jpeg.Options{Quality: JPEGQuality})
	case GIF:
		return gif.Encode(w, img, nil)
	case BMP:
		return bmp.Encode(w, img)
	case TIFF:
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// Save encodes img to path, choosing the format from the extension.
func Save(path string, img image.Image) (err error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	w := bufio.NewWriter(f)
	if err := Encode(w, img, format); err != nil {
		return err
	}
	return w.Flush()
}

// Random returns a width×height opaque image with uniformly distributed
// channel values in 0–255. The same seed always yields the same image.
func Random(seed int64, width, height int) *image.RGBA {
	s := uint64(seed)
	rng := rand.New(rand.NewPCG(s, s^0xda942042e4dd58b5))

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for i := 0; i < len(img.Pix); i += 4 {
		v := rng.Uint32()
		img.Pix[i] = uint8(v)
		img.Pix[i+1] = uint8(v >> 8)
		img.Pix[i+2] = uint8(v >> 16)
		img.Pix[i+3] = 0xff
	}
	return img
}
