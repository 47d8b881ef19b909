package cropper

import (
	"fmt"
	"image"
	"image/draw"
	"math"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/menta2k/id-cropper/internal/utils"
	"github.com/menta2k/id-cropper/pkg/processing"
	"github.com/menta2k/id-cropper/pkg/types"
)

// DefaultFormat is the output format used by SaveCrops when none is given
const DefaultFormat = "jpg"

// DefaultBaseName prefixes saved crops of sources that have no file name
const DefaultBaseName = "crop"

// Service crops bounding boxes out of images. Its operations return an error
// for a NaN or infinite expand ratio. It holds no state between
// calls and is safe for concurrent use.
type Service struct {
	processor *processing.Processor
	config    Config
}

// Config holds encoder settings used when crops are written to disk
type Config struct {
	Quality  int  // JPEG/WebP quality (1-100)
	Lossless bool // WebP lossless mode
}

// SaveOptions controls naming and expansion for SaveCrops
type SaveOptions struct {
	// BaseName prefixes every file. Empty means the source file stem, or
	// DefaultBaseName when the source is not a path.
	BaseName string
	// Format is the file extension and encoder, e.g. "jpg", "png", "webp".
	Format      string
	ExpandRatio float64
}

// New creates a Service with default configuration
func New() *Service {
	return &Service{
		processor: processing.NewProcessor(),
		config: Config{
			Quality:  90,
			Lossless: false,
		},
	}
}

// NewWithConfig creates a Service with custom configuration
func NewWithConfig(config Config) *Service {
	return &Service{
		processor: processing.NewProcessor(),
		config:    config,
	}
}

// ExpandAndClamp grows box by ratio around its center and clamps it to a
// width x height image. A ratio <= 0 or NaN only clamps. Edges are clamped
// before they are rounded half to even, so very large ratios cover the whole
// image. The result always has x1 <= x2 and y1 <= y2.
func ExpandAndClamp(box types.BBox, ratio float64, width, height int) types.BBox {
	if ratio <= 0 || math.IsNaN(ratio) {
		return clampBox(box, width, height)
	}

	w := float64(box.X2 - box.X1)
	h := float64(box.Y2 - box.Y1)
	cx := float64(box.X1) + w/2
	cy := float64(box.Y1) + h/2
	wNew := w * (1 + ratio)
	hNew := h * (1 + ratio)

	expanded := types.BBox{
		X1: roundEdge(cx-wNew/2, width),
		Y1: roundEdge(cy-hNew/2, height),
		X2: roundEdge(cx+wNew/2, width),
		Y2: roundEdge(cy+hNew/2, height),
	}
	return clampBox(expanded, width, height)
}

// roundEdge clamps v into [0, limit] and rounds it. A NaN edge, from a
// zero-sized box under an infinite ratio, collapses to 0.
func roundEdge(v float64, limit int) int {
	if math.IsNaN(v) {
		return 0
	}
	return int(math.RoundToEven(math.Max(0, math.Min(v, float64(limit)))))
}

// checkRatio rejects expand ratios that cannot describe a box size
func checkRatio(ratio float64) error {
	if math.IsNaN(ratio) || math.IsInf(ratio, 0) {
		return fmt.Errorf("invalid expand ratio %v", ratio)
	}
	return nil
}

func clampBox(b types.BBox, width, height int) types.BBox {
	b.X1 = clampInt(b.X1, 0, width)
	b.Y1 = clampInt(b.Y1, 0, height)
	b.X2 = clampInt(b.X2, 0, width)
	b.Y2 = clampInt(b.Y2, 0, height)
	if b.X2 < b.X1 {
		b.X1, b.X2 = b.X2, b.X1
	}
	if b.Y2 < b.Y1 {
		b.Y1, b.Y2 = b.Y2, b.Y1
	}
	return b
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// CropBoxes crops every box from src in input order. Boxes that are empty
// after expansion and clamping are skipped, so the result can be shorter than
// boxes and carries no index mapping. Use SaveCrops when positions matter.
func (s *Service) CropBoxes(src Source, boxes []types.BBox, expandRatio float64) ([]image.Image, error) {
	if err := checkRatio(expandRatio); err != nil {
		return nil, err
	}
	img, err := src.load(s.processor)
	if err != nil {
		return nil, err
	}

	width, height := img.Bounds().Dx(), img.Bounds().Dy()
	crops := make([]image.Image, 0, len(boxes))
	for _, box := range boxes {
		final := ExpandAndClamp(box, expandRatio, width, height)
		if final.Degenerate() {
			continue
		}
		crops = append(crops, cropRegion(img, final))
	}
	return crops, nil
}

// SaveCrops crops every box from src and writes it to outputDir, creating the
// directory if needed. Files are named {base}_crop_{i:03d}.{format} where i
// is the box position in boxes, so skipped boxes leave gaps in the numbering.
// Files written before an error are left in place.
func (s *Service) SaveCrops(src Source, boxes []types.BBox, outputDir string, opts SaveOptions) ([]types.SavedCrop, error) {
	if err := checkRatio(opts.ExpandRatio); err != nil {
		return nil, err
	}
	if err := utils.EnsureDir(outputDir); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	img, err := src.load(s.processor)
	if err != nil {
		return nil, err
	}

	baseName := opts.BaseName
	if baseName == "" {
		baseName = DefaultBaseName
		if stem, ok := src.Stem(); ok {
			baseName = stem
		}
	}
	format := strings.ToLower(opts.Format)
	if format == "" {
		format = DefaultFormat
	}

	width, height := img.Bounds().Dx(), img.Bounds().Dy()
	var saved []types.SavedCrop
	for i, box := range boxes {
		final := ExpandAndClamp(box, opts.ExpandRatio, width, height)
		if final.Degenerate() {
			continue
		}

		dest := filepath.Join(outputDir, utils.CropFilename(baseName, i, format))
		if err := s.processor.SaveImage(cropRegion(img, final), dest, format, s.config.Quality, s.config.Lossless); err != nil {
			return saved, fmt.Errorf("failed to save crop %d to %s: %w", i, dest, err)
		}
		saved = append(saved, types.SavedCrop{Path: dest, BBox: final, Index: i})
	}
	return saved, nil
}

// CropSingle crops one box. ok is false when the box is empty after
// expansion and clamping.
func (s *Service) CropSingle(src Source, box types.BBox, expandRatio float64) (crop image.Image, ok bool, err error) {
	if err := checkRatio(expandRatio); err != nil {
		return nil, false, err
	}
	img, err := src.load(s.processor)
	if err != nil {
		return nil, false, err
	}

	final := ExpandAndClamp(box, expandRatio, img.Bounds().Dx(), img.Bounds().Dy())
	if final.Degenerate() {
		return nil, false, nil
	}
	return cropRegion(img, final), true, nil
}

// cropRegion copies the pixels of box, given relative to the image origin,
// into a new image whose bounds start at (0, 0).
func cropRegion(img image.Image, box types.BBox) image.Image {
	r := box.Rect().Add(img.Bounds().Min)

	if gray, ok := img.(*image.Gray); ok {
		dst := image.NewGray(image.Rect(0, 0, r.Dx(), r.Dy()))
		draw.Draw(dst, dst.Bounds(), gray, r.Min, draw.Src)
		return dst
	}
	return imaging.Crop(img, r)
}
