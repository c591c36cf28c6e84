package assemble

import (
	"fmt"
	"math"
	"strings"

	"binder/pkg/imgutil"
)

// AssumedDPI sizes fit pages for images that do not declare a resolution:
// one pixel becomes one point.
const AssumedDPI = 72.0

type PageMode string

const (
	PageFit   PageMode = "fit"
	PageFixed PageMode = "fixed"
)

func ParsePageMode(s string) (PageMode, error) {
	switch PageMode(strings.ToLower(s)) {
	case "", PageFit:
		return PageFit, nil
	case PageFixed:
		return PageFixed, nil
	default:
		return "", fmt.Errorf("unknown page mode %q (want fit or fixed)", s)
	}
}

// PageSize is measured in PDF points.
type PageSize struct {
	Width  float64
	Height float64
}

var presets = map[string]PageSize{
	"a3":     {841.89, 1190.55},
	"a4":     {595.28, 841.89},
	"a5":     {419.53, 595.28},
	"letter": {612, 792},
	"legal":  {612, 1008},
}

// Preset looks up a named paper size.
func Preset(name string) (PageSize, bool) {
	size, ok := presets[strings.ToLower(strings.TrimSpace(name))]
	return size, ok
}

// Policy decides the size of every page.
type Policy struct {
	Mode  PageMode
	Fixed PageSize
}

func (p Policy) Validate() error {
	switch p.Mode {
	case PageFit, "":
		return nil
	case PageFixed:
		if p.Fixed.Width <= 0 || p.Fixed.Height <= 0 {
			return fmt.Errorf("fixed page size needs a positive width and height, got %gx%g", p.Fixed.Width, p.Fixed.Height)
		}
		return nil
	default:
		return fmt.Errorf("unknown page mode %q", p.Mode)
	}
}

// Rect is a placement on a page in points, origin top left.
type Rect struct {
	X, Y, W, H float64
}

// Layout returns the page size and image placement for an image of
// pxW x pxH pixels.
func (p Policy) Layout(pxW, pxH int, res imgutil.Resolution, hasRes bool) (PageSize, Rect) {
	dpiX, dpiY := AssumedDPI, AssumedDPI
	if hasRes && res.Valid() {
		dpiX, dpiY = res.X, res.Y
	}
	natW := float64(pxW) * 72 / dpiX
	natH := float64(pxH) * 72 / dpiY

	if p.Mode != PageFixed {
		return PageSize{Width: natW, Height: natH}, Rect{W: natW, H: natH}
	}

	page := p.Fixed
	scale := math.Min(page.Width/natW, page.Height/natH)
	w, h := natW*scale, natH*scale
	return page, Rect{
		X: (page.Width - w) / 2,
		Y: (page.Height - h) / 2,
		W: w,
		H: h,
	}
}
