// Package derivative validates uploaded images and produces the fixed ladder
// of resized JPEG derivatives for a shot. It writes files only; it performs no
// database access.
package derivative

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"math"

	"github.com/disintegration/imaging"
	"github.com/shotbox/shotbox/internal/model"
	"github.com/shotbox/shotbox/internal/storage"
)

// Admission gate for source images. This is a hard gate on the original
// resolution, not a resize target.
const (
	MinWidth  = 1280
	MaxWidth  = 5120
	MinHeight = 720
	MaxHeight = 2880
)

const jpegQuality = 95

// Tier is one resolution level of the derivative ladder. Width and Height
// describe the target box; derivatives are resized to fit outside the box,
// preserving aspect ratio.
type Tier struct {
	Name   string
	Width  int
	Height int
}

// Ladder is the fixed derivative ladder, smallest first.
var Ladder = []Tier{
	{Name: "720p", Width: 1280, Height: 720},
	{Name: "1080p", Width: 1920, Height: 1080},
	{Name: "1440p", Width: 2560, Height: 1440},
	{Name: "2160p", Width: 3840, Height: 2160},
}

// DimensionError reports a source image rejected by the admission gate.
type DimensionError struct {
	Width  int
	Height int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("image dimensions %dx%d outside accepted range %d-%dx%d-%d",
		e.Width, e.Height, MinWidth, MaxWidth, MinHeight, MaxHeight)
}

// Set describes the derivatives produced for one shot.
type Set struct {
	Hash   string
	Width  int
	Height int
	// Tiers actually generated, smallest first.
	Tiers []string
	// Files written, relative to the uploads root.
	Files []string
}

// Pipeline generates derivative sets onto a storage sink.
type Pipeline struct {
	store storage.Storage

	// fullLadder generates all four tiers regardless of source resolution
	// (upscaling where needed). When false, only tiers the source covers
	// natively are generated; 720p is always generated because the admission
	// gate guarantees the source covers it.
	fullLadder bool
}

// NewPipeline creates a Pipeline writing to store. fullLadder selects the tier
// policy, see Pipeline.
func NewPipeline(store storage.Storage, fullLadder bool) *Pipeline {
	return &Pipeline{store: store, fullLadder: fullLadder}
}

// Ingest validates the source image and writes the derivative ladder for hash.
// Re-invocation with the same hash overwrites identically-named files. On a
// mid-ladder failure the already-written files are left in place; the caller
// owns the compensating cleanup (remove files for this hash, create no row).
func (p *Pipeline) Ingest(ctx context.Context, sourcePath, hash string) (*Set, error) {
	src, err := imaging.Open(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("decoding source image: %w", err)
	}

	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w < MinWidth || w > MaxWidth || h < MinHeight || h > MaxHeight {
		return nil, &DimensionError{Width: w, Height: h}
	}

	set := &Set{Hash: hash, Width: w, Height: h}
	for _, tier := range Ladder {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("generating %s derivative: %w", tier.Name, err)
		}
		if !p.fullLadder && (w < tier.Width || h < tier.Height) {
			continue
		}

		resized := coverResize(src, tier.Width, tier.Height)

		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, resized, &jpeg.Options{Quality: jpegQuality}); err != nil {
			return nil, fmt.Errorf("encoding %s derivative: %w", tier.Name, err)
		}

		rel := fmt.Sprintf("%s/%s.%s.jpg", model.Shard(hash), hash, tier.Name)
		if _, err := p.store.Write(rel, &buf); err != nil {
			return nil, fmt.Errorf("writing %s derivative: %w", tier.Name, err)
		}

		set.Tiers = append(set.Tiers, tier.Name)
		set.Files = append(set.Files, rel)
	}

	return set, nil
}

// coverResize scales the image so it fits outside the target box while
// preserving aspect ratio: both output dimensions are at least the box
// dimensions.
func coverResize(img image.Image, boxW, boxH int) image.Image {
	w := img.Bounds().Dx()
	h := img.Bounds().Dy()

	scaleW := float64(boxW) / float64(w)
	scaleH := float64(boxH) / float64(h)
	scale := scaleW
	if scaleH > scaleW {
		scale = scaleH
	}

	newW := int(math.Round(float64(w) * scale))
	newH := int(math.Round(float64(h) * scale))
	if newW < boxW {
		newW = boxW
	}
	if newH < boxH {
		newH = boxH
	}

	return imaging.Resize(img, newW, newH, imaging.Lanczos)
}
