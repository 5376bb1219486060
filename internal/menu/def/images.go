package def

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// MaxImageSide bounds decoded images; every pixel becomes a text glyph.
const MaxImageSide = 64

// Image is a decoded picture in row-major NRGBA pixels.
type Image struct {
	Width, Height int
	Pix           []color.NRGBA
	// Opaque formats (jpeg) ignore alpha.
	Opaque bool
}

func (im *Image) At(x, y int) color.NRGBA {
	return im.Pix[y*im.Width+x]
}

func fromImage(src image.Image, opaque bool) *Image {
	b := src.Bounds()
	out := &Image{Width: b.Dx(), Height: b.Dy(), Opaque: opaque}
	out.Pix = make([]color.NRGBA, 0, out.Width*out.Height)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			out.Pix = append(out.Pix, color.NRGBAModel.Convert(src.At(x, y)).(color.NRGBA))
		}
	}
	return out
}

// Images decodes and caches pictures under a base directory.
type Images struct {
	dir string

	mu     sync.Mutex
	single map[string]imageResult
	frames map[string]framesResult
}

type imageResult struct {
	img *Image
	err error
}

type framesResult struct {
	imgs []*Image
	err  error
}

func NewImages(dir string) *Images {
	return &Images{dir: dir, single: map[string]imageResult{}, frames: map[string]framesResult{}}
}

func (s *Images) resolve(rel string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(rel))
	if filepath.IsAbs(clean) || strings.HasPrefix(clean, "..") {
		return "", fmt.Errorf("image %q: path escapes image directory", rel)
	}
	return filepath.Join(s.dir, clean), nil
}

// Load decodes one picture (png, jpeg, gif, bmp, webp).
func (s *Images) Load(rel string) (*Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.single[rel]; ok {
		return r.img, r.err
	}
	img, err := s.decode(rel)
	s.single[rel] = imageResult{img, err}
	return img, err
}

func (s *Images) decode(rel string) (*Image, error) {
	path, err := s.resolve(rel)
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("image %q: %w", rel, err)
	}
	src, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("image %q: %w", rel, err)
	}
	if err := checkSize(rel, src.Bounds()); err != nil {
		return nil, err
	}
	return fromImage(src, format == "jpeg"), nil
}

// LoadFrames decodes an animation: every frame of a GIF, composited onto
// the previous frame, or a single still image.
func (s *Images) LoadFrames(rel string) ([]*Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.frames[rel]; ok {
		return r.imgs, r.err
	}
	imgs, err := s.decodeFrames(rel)
	s.frames[rel] = framesResult{imgs, err}
	return imgs, err
}

func (s *Images) decodeFrames(rel string) ([]*Image, error) {
	if !strings.EqualFold(filepath.Ext(rel), ".gif") {
		img, err := s.decode(rel)
		if err != nil {
			return nil, err
		}
		return []*Image{img}, nil
	}
	path, err := s.resolve(rel)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("image %q: %w", rel, err)
	}
	defer f.Close()
	g, err := gif.DecodeAll(f)
	if err != nil {
		return nil, fmt.Errorf("image %q: %w", rel, err)
	}
	if len(g.Image) == 0 {
		return nil, fmt.Errorf("image %q: no frames", rel)
	}
	bounds := image.Rect(0, 0, g.Config.Width, g.Config.Height)
	if bounds.Empty() {
		bounds = g.Image[0].Bounds()
	}
	if err := checkSize(rel, bounds); err != nil {
		return nil, err
	}
	canvas := image.NewNRGBA(bounds)
	out := make([]*Image, 0, len(g.Image))
	for _, frame := range g.Image {
		draw.Draw(canvas, frame.Bounds(), frame, frame.Bounds().Min, draw.Over)
		out = append(out, fromImage(canvas, false))
	}
	return out, nil
}

func checkSize(rel string, b image.Rectangle) error {
	if b.Dx() == 0 || b.Dy() == 0 {
		return fmt.Errorf("image %q: empty", rel)
	}
	if b.Dx() > MaxImageSide || b.Dy() > MaxImageSide {
		return fmt.Errorf("image %q: %dx%d exceeds %dx%d", rel, b.Dx(), b.Dy(), MaxImageSide, MaxImageSide)
	}
	return nil
}
