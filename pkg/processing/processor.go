package processing

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"math"
	"os"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"github.com/menta2k/id-cropper/pkg/types"
)

// Processor handles image loading, conversion and encoding
type Processor struct{}

// NewProcessor creates a new image processor
func NewProcessor() *Processor {
	return &Processor{}
}

// LoadImage loads an image from a file path with WebP support. A decode
// failure wraps the error of the registered decoders.
func (p *Processor) LoadImage(path string) (image.Image, error) {
	// Try imaging.Open (registered decoders)
	img, decodeErr := imaging.Open(path)
	if decodeErr == nil {
		return img, nil
	}

	// Fallback: explicit WebP decode
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if strings.HasSuffix(strings.ToLower(path), ".webp") {
		if img, err := webp.Decode(f); err == nil {
			return img, nil
		}
	}
	return nil, fmt.Errorf("failed to decode %s: %w", path, decodeErr)
}

// LoadImageRGB loads an image from a file path and converts it to opaque RGB
func (p *Processor) LoadImageRGB(path string) (*image.NRGBA, error) {
	img, err := p.LoadImage(path)
	if err != nil {
		return nil, err
	}
	return ToRGB(img), nil
}

// DecodeImage decodes encoded image data with WebP support
func (p *Processor) DecodeImage(data []byte) (image.Image, error) {
	// Try standard image.Decode first
	img, _, decodeErr := image.Decode(bytes.NewReader(data))
	if decodeErr == nil {
		return img, nil
	}

	if img, err := webp.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}

	return nil, fmt.Errorf("unsupported image data: %w", decodeErr)
}

// ImageFromBuffer wraps a raw pixel buffer in an image. Single-channel buffers
// become *image.Gray; 3 and 4 channel buffers become opaque *image.NRGBA, the
// alpha channel of a 4 channel buffer is dropped.
func (p *Processor) ImageFromBuffer(buf types.Buffer) (image.Image, error) {
	if err := buf.Validate(); err != nil {
		return nil, err
	}

	if buf.Channels == 1 {
		gray := image.NewGray(image.Rect(0, 0, buf.Width, buf.Height))
		copy(gray.Pix, buf.Pix)
		return gray, nil
	}

	dst := image.NewNRGBA(image.Rect(0, 0, buf.Width, buf.Height))
	n := buf.Width * buf.Height
	for i := 0; i < n; i++ {
		s := i * buf.Channels
		d := i * 4
		dst.Pix[d+0] = buf.Pix[s+0]
		dst.Pix[d+1] = buf.Pix[s+1]
		dst.Pix[d+2] = buf.Pix[s+2]
		dst.Pix[d+3] = 0xff
	}
	return dst, nil
}

// ToRGB returns an opaque copy of img with bounds starting at (0, 0).
// Alpha is discarded, not composited.
func ToRGB(img image.Image) *image.NRGBA {
	nrgba := imaging.Clone(img)
	for i := 3; i < len(nrgba.Pix); i += 4 {
		nrgba.Pix[i] = 0xff
	}
	return nrgba
}

// SaveImage saves an image to a file with the specified format and quality
func (p *Processor) SaveImage(img image.Image, path, format string, quality int, lossless bool) error {
	switch strings.ToLower(format) {
	case "webp":
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		opts := &webp.Options{Lossless: lossless, Quality: float32(quality)}
		if err := webp.Encode(f, img, opts); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	case "jpg", "jpeg":
		return imaging.Save(img, path, imaging.JPEGQuality(quality))
	default: // png, gif, bmp, tif, tiff
		return imaging.Save(img, path)
	}
}

// CreateDebugOverlay returns a copy of img with each box outlined
func (p *Processor) CreateDebugOverlay(img image.Image, boxes []types.BBox) image.Image {
	nrgba := imaging.Clone(img)
	w := nrgba.Bounds().Dx()
	h := nrgba.Bounds().Dy()

	gold := color.NRGBA{255, 204, 0, 255}
	stroke := int(math.Max(2, 0.004*float64(min(w, h)))) // ~0.4% of min side

	for _, b := range boxes {
		if b.Degenerate() {
			continue
		}
		drawBox(nrgba, b, gold, stroke)
	}
	return nrgba
}

func drawBox(img *image.NRGBA, b types.BBox, c color.NRGBA, stroke int) {
	for s := 0; s < stroke; s++ {
		drawHLine(img, b.Y1+s, b.X1, b.X2, c)
		drawHLine(img, b.Y2-1-s, b.X1, b.X2, c)
		drawVLine(img, b.X1+s, b.Y1, b.Y2, c)
		drawVLine(img, b.X2-1-s, b.Y1, b.Y2, c)
	}
}

func drawHLine(img *image.NRGBA, y, x0, x1 int, c color.NRGBA) {
	if y < 0 || y >= img.Bounds().Dy() {
		return
	}
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	if x1 <= 0 || x0 >= img.Bounds().Dx() {
		return
	}
	x0 = max(x0, 0)
	x1 = min(x1, img.Bounds().Dx())
	i := y*img.Stride + x0*4
	for x := x0; x < x1; x++ {
		img.Pix[i+0] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
		i += 4
	}
}

func drawVLine(img *image.NRGBA, x, y0, y1 int, c color.NRGBA) {
	if x < 0 || x >= img.Bounds().Dx() {
		return
	}
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	if y1 <= 0 || y0 >= img.Bounds().Dy() {
		return
	}
	y0 = max(y0, 0)
	y1 = min(y1, img.Bounds().Dy())
	i := y0*img.Stride + x*4
	for y := y0; y < y1; y++ {
		img.Pix[i+0] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
		i += img.Stride
	}
}
