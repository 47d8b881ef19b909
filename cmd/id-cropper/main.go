package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/menta2k/id-cropper/internal/config"
	"github.com/menta2k/id-cropper/internal/utils"
	"github.com/menta2k/id-cropper/pkg/cropper"
	"github.com/menta2k/id-cropper/pkg/processing"
	"github.com/menta2k/id-cropper/pkg/types"
)

func main() {
	var in, boxesArg, boxesFile, cfgPath string
	var outDir, ext, base string
	var expand float64
	var quality int
	var lossless, debug bool

	flag.StringVar(&in, "in", "", "input image path (jpg/png/webp/...)")
	flag.StringVar(&boxesArg, "boxes", "", `boxes as "x1,y1,x2,y2;x1,y1,x2,y2"`)
	flag.StringVar(&boxesFile, "boxes-file", "", "JSON file with boxes: [[x1,y1,x2,y2],...] or [{\"x1\":..},...]")
	flag.StringVar(&cfgPath, "config", "", "config file (default: "+config.GetConfigPath()+" if present)")

	flag.StringVar(&outDir, "out", "", "output directory")
	flag.StringVar(&ext, "ext", "", "output format for crops: jpg|png|webp|bmp|gif|tiff")
	flag.StringVar(&base, "base", "", "base file name for crops (default: input file stem)")
	flag.Float64Var(&expand, "expand", 0, "expand each box by this fraction around its center")
	flag.IntVar(&quality, "quality", 0, "JPEG/WebP quality for crops (1-100)")
	flag.BoolVar(&lossless, "lossless", false, "WebP lossless mode for crops")
	flag.BoolVar(&debug, "debug", false, "write an overlay image with the final boxes")

	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	defer logger.Sync()

	if in == "" || (boxesArg == "" && boxesFile == "") {
		logger.Fatal(fmt.Sprintf("usage: %s -in card.jpg -boxes \"x1,y1,x2,y2;...\" | -boxes-file boxes.json [-out dir] [-ext jpg|png|webp] [-expand 0.1] [-base name] [-debug]", filepath.Base(os.Args[0])))
	}
	if !utils.FileExists(in) {
		logger.Fatal("Input does not exist", zap.String("path", in))
	}
	if !utils.IsImageFile(in) {
		logger.Warn("Input has no image extension, trying to decode anyway", zap.String("path", in))
	}

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	// Flags override config file and environment
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "out":
			cfg.Output.OutputDir = outDir
		case "ext":
			cfg.Output.Format = ext
		case "base":
			cfg.Output.BaseName = base
		case "expand":
			cfg.Cropper.ExpandRatio = expand
		case "quality":
			cfg.Output.Quality = quality
		case "lossless":
			cfg.Output.Lossless = lossless
		case "debug":
			cfg.Debug.Overlay = debug
		}
	})
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}

	boxes, err := loadBoxes(boxesArg, boxesFile)
	if err != nil {
		logger.Fatal("Failed to read boxes", zap.Error(err))
	}
	if len(boxes) == 0 {
		logger.Fatal("No boxes given")
	}

	svc := cropper.NewWithConfig(cropper.Config{
		Quality:  cfg.Output.Quality,
		Lossless: cfg.Output.Lossless,
	})
	src := cropper.FromPath(in)

	saved, err := svc.SaveCrops(src, boxes, cfg.Output.OutputDir, cropper.SaveOptions{
		BaseName:    cfg.Output.BaseName,
		Format:      cfg.Output.Format,
		ExpandRatio: cfg.Cropper.ExpandRatio,
	})
	for _, sc := range saved {
		fields := []zap.Field{
			zap.String("path", sc.Path),
			zap.Stringer("box", sc.BBox),
			zap.Int("index", sc.Index),
		}
		if info, statErr := os.Stat(sc.Path); statErr == nil {
			fields = append(fields, zap.String("size", utils.FormatFileSize(info.Size())))
		}
		logger.Info("Wrote crop", fields...)
	}
	if err != nil {
		logger.Fatal("Failed to save crops", zap.Error(err))
	}
	if dropped := len(boxes) - len(saved); dropped > 0 {
		logger.Warn("Skipped boxes that are empty after clamping",
			zap.Int("skipped", dropped),
			zap.Int("total", len(boxes)),
		)
	}

	baseName := cfg.Output.BaseName
	if baseName == "" {
		baseName = utils.FileStem(in)
	}

	if cfg.Debug.Overlay {
		dbgPath, err := writeOverlay(in, saved, cfg, baseName)
		if err != nil {
			logger.Warn("Debug overlay save failed", zap.Error(err))
		} else {
			logger.Info("Wrote debug overlay", zap.String("path", dbgPath))
		}
	}

	// Save the manifest of written crops
	js, _ := json.MarshalIndent(saved, "", "  ")
	manifest := filepath.Join(cfg.Output.OutputDir, baseName+"_crops.json")
	if err := os.WriteFile(manifest, js, 0o644); err != nil {
		logger.Warn("Manifest save failed", zap.Error(err))
	} else {
		logger.Info("Wrote manifest", zap.String("path", manifest))
	}
}

func loadConfig(path string) (*config.Config, error) {
	cfg := config.Default()
	if path == "" && utils.FileExists(config.GetConfigPath()) {
		path = config.GetConfigPath()
	}
	if path != "" {
		loaded, err := config.LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if err := cfg.LoadEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// boxObject is the object form of a box in a boxes file. Every coordinate is
// required.
type boxObject struct {
	X1 *int `json:"x1"`
	Y1 *int `json:"y1"`
	X2 *int `json:"x2"`
	Y2 *int `json:"y2"`
}

// loadBoxes merges boxes from the -boxes flag and the -boxes-file JSON file.
// Each file entry is either a 4 element array or an object with x1, y1, x2
// and y2; anything else is an error.
func loadBoxes(arg, file string) ([]types.BBox, error) {
	boxes, err := types.ParseBoxes(arg)
	if err != nil {
		return nil, err
	}
	if file == "" {
		return boxes, nil
	}

	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read boxes file: %w", err)
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse boxes file: %w", err)
	}

	for i, raw := range entries {
		b, err := parseBoxEntry(raw)
		if err != nil {
			return nil, fmt.Errorf("boxes file entry %d: %w", i, err)
		}
		boxes = append(boxes, b)
	}
	return boxes, nil
}

func parseBoxEntry(raw json.RawMessage) (types.BBox, error) {
	raw = bytes.TrimSpace(raw)
	switch {
	case bytes.HasPrefix(raw, []byte("[")):
		var coords []int
		if err := json.Unmarshal(raw, &coords); err != nil {
			return types.BBox{}, err
		}
		if len(coords) != 4 {
			return types.BBox{}, fmt.Errorf("expected 4 coordinates, got %d", len(coords))
		}
		return types.Box(coords[0], coords[1], coords[2], coords[3]), nil
	case bytes.HasPrefix(raw, []byte("{")):
		var obj boxObject
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&obj); err != nil {
			return types.BBox{}, err
		}
		if obj.X1 == nil || obj.Y1 == nil || obj.X2 == nil || obj.Y2 == nil {
			return types.BBox{}, fmt.Errorf("box object needs x1, y1, x2 and y2")
		}
		return types.Box(*obj.X1, *obj.Y1, *obj.X2, *obj.Y2), nil
	default:
		return types.BBox{}, fmt.Errorf("expected an array or object, got %s", raw)
	}
}

func writeOverlay(in string, saved []types.SavedCrop, cfg *config.Config, baseName string) (string, error) {
	p := processing.NewProcessor()
	img, err := p.LoadImageRGB(in)
	if err != nil {
		return "", err
	}

	final := make([]types.BBox, 0, len(saved))
	for _, sc := range saved {
		final = append(final, sc.BBox)
	}

	format := strings.ToLower(cfg.Debug.Format)
	dbgPath := filepath.Join(cfg.Output.OutputDir, fmt.Sprintf("%s_boxes.%s", baseName, format))
	if err := p.SaveImage(p.CreateDebugOverlay(img, final), dbgPath, format, cfg.Output.Quality, cfg.Output.Lossless); err != nil {
		return "", err
	}
	return dbgPath, nil
}
