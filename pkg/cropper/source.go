package cropper

import (
	"fmt"
	"image"

	"github.com/menta2k/id-cropper/internal/utils"
	"github.com/menta2k/id-cropper/pkg/processing"
	"github.com/menta2k/id-cropper/pkg/types"
)

type sourceKind int

const (
	sourcePath sourceKind = iota + 1
	sourceImage
	sourceBuffer
	sourceBytes
)

// Source is the image a crop operation reads from. Build one with FromPath,
// FromImage, FromBuffer or FromBytes. The zero value is not usable.
type Source struct {
	kind sourceKind
	path string
	img  image.Image
	buf  types.Buffer
	data []byte
}

// FromPath reads the image from a file. It is decoded on every operation and
// converted to opaque RGB.
func FromPath(path string) Source {
	return Source{kind: sourcePath, path: path}
}

// FromImage uses an already decoded image as-is. It is never modified.
func FromImage(img image.Image) Source {
	return Source{kind: sourceImage, img: img}
}

// FromBuffer wraps raw pixels. See types.Buffer for the accepted layouts.
func FromBuffer(buf types.Buffer) Source {
	return Source{kind: sourceBuffer, buf: buf}
}

// FromBytes decodes JPEG, PNG, GIF, BMP, TIFF or WebP data and converts it to
// opaque RGB, like FromPath.
func FromBytes(data []byte) Source {
	return Source{kind: sourceBytes, data: data}
}

// Stem returns the file name of a path source without directory or extension
// and false for every other kind of source.
func (s Source) Stem() (string, bool) {
	if s.kind != sourcePath {
		return "", false
	}
	return utils.FileStem(s.path), true
}

func (s Source) load(p *processing.Processor) (image.Image, error) {
	switch s.kind {
	case sourcePath:
		img, err := p.LoadImageRGB(s.path)
		if err != nil {
			return nil, fmt.Errorf("failed to load image %s: %w", s.path, err)
		}
		return img, nil
	case sourceImage:
		if s.img == nil {
			return nil, fmt.Errorf("nil image source")
		}
		return s.img, nil
	case sourceBuffer:
		img, err := p.ImageFromBuffer(s.buf)
		if err != nil {
			return nil, fmt.Errorf("invalid pixel buffer: %w", err)
		}
		return img, nil
	case sourceBytes:
		img, err := p.DecodeImage(s.data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode image data: %w", err)
		}
		return processing.ToRGB(img), nil
	default:
		return nil, fmt.Errorf("empty image source")
	}
}
