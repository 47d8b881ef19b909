// Package idcropper cuts field regions out of scanned ID card images.
//
// A detector upstream finds where the fields of a card are (name, ID number,
// date of birth) and hands over pixel boxes; this package turns those boxes
// into crops ready for text recognition, either in memory or on disk.
//
// Basic usage:
//
//	package main
//
//	import (
//		"log"
//
//		idcropper "github.com/menta2k/id-cropper"
//		"github.com/menta2k/id-cropper/pkg/cropper"
//		"github.com/menta2k/id-cropper/pkg/types"
//	)
//
//	func main() {
//		boxes := []types.BBox{
//			types.Box(420, 130, 980, 190), // name
//			types.Box(420, 260, 860, 320), // ID number
//		}
//
//		saved, err := idcropper.SaveCrops(cropper.FromPath("card.jpg"), boxes, "crops",
//			cropper.SaveOptions{ExpandRatio: 0.1})
//		if err != nil {
//			log.Fatal(err)
//		}
//		for _, sc := range saved {
//			log.Printf("box %d -> %s", sc.Index, sc.Path)
//		}
//	}
//
// The package consists of three main components:
//
// 1. Types (pkg/types): boxes, saved crop records and raw pixel buffers
// 2. Processing (pkg/processing): image loading, conversion and encoding
// 3. Cropper (pkg/cropper): box expansion, clamping, cropping and saving
//
// Boxes that are empty after clamping to the image are dropped without an
// error, so the number of crops can be lower than the number of boxes.
// SavedCrop.Index always refers back to the position of the input box.
package idcropper

import (
	"image"

	"github.com/menta2k/id-cropper/pkg/cropper"
	"github.com/menta2k/id-cropper/pkg/types"
)

// Version of the id-cropper library
const Version = "1.0.0"

var defaultService = cropper.New()

// CropBoxes crops boxes from src with the default service
func CropBoxes(src cropper.Source, boxes []types.BBox, expandRatio float64) ([]image.Image, error) {
	return defaultService.CropBoxes(src, boxes, expandRatio)
}

// SaveCrops crops boxes from src and writes them to outputDir with the default service
func SaveCrops(src cropper.Source, boxes []types.BBox, outputDir string, opts cropper.SaveOptions) ([]types.SavedCrop, error) {
	return defaultService.SaveCrops(src, boxes, outputDir, opts)
}

// CropSingle crops one box from src with the default service
func CropSingle(src cropper.Source, box types.BBox, expandRatio float64) (image.Image, bool, error) {
	return defaultService.CropSingle(src, box, expandRatio)
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}
