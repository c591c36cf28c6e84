// Package assemble renders an ordered image sequence into a single PDF.
package assemble

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"

	"github.com/jung-kurt/gofpdf"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"binder/internal/errkind"
	"binder/internal/scan"
	"binder/pkg/imgutil"
)

type Options struct {
	Policy Policy
	// StopOnDecodeError fails the whole document on the first unreadable
	// image instead of skipping its page.
	StopOnDecodeError bool
	Title             string
	// OnPage runs after every entry, rendered or skipped.
	OnPage func(done, total int)
}

// Failure records an entry whose page was skipped.
type Failure struct {
	Path string
	Err  error
}

type Result struct {
	Path     string
	Pages    int
	Total    int
	Failures []Failure
}

// Partial reports whether some entries did not make it into the document.
func (r Result) Partial() bool {
	return len(r.Failures) > 0
}

// Assemble writes the document for entries to dest. The PDF is rendered to a
// temporary file next to dest, synced and renamed into place, so dest is
// never left half written.
func Assemble(ctx context.Context, entries []scan.Entry, dest string, opts Options) (Result, error) {
	destDir := filepath.Dir(dest)
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return Result{Path: dest, Total: len(entries)}, errkind.New(errkind.Assemble, dest, err)
	}

	doc, res, err := render(ctx, entries, opts)
	res.Path = dest
	if err != nil {
		return res, err
	}

	tmpFile, err := os.CreateTemp(destDir, ".binder-*.pdf.tmp")
	if err != nil {
		return res, errkind.New(errkind.Assemble, dest, err)
	}
	defer os.Remove(tmpFile.Name())

	if err := doc.Output(tmpFile); err != nil {
		_ = tmpFile.Close()
		return res, errkind.New(errkind.Assemble, dest, err)
	}
	if err := tmpFile.Sync(); err != nil {
		_ = tmpFile.Close()
		return res, errkind.New(errkind.Assemble, dest, err)
	}
	if err := tmpFile.Close(); err != nil {
		return res, errkind.New(errkind.Assemble, dest, err)
	}
	if err := replaceFile(tmpFile.Name(), dest); err != nil {
		return res, errkind.New(errkind.Assemble, dest, err)
	}
	return res, nil
}

// Render writes the document for entries to w.
func Render(ctx context.Context, entries []scan.Entry, w io.Writer, opts Options) (Result, error) {
	doc, res, err := render(ctx, entries, opts)
	if err != nil {
		return res, err
	}
	if err := doc.Output(w); err != nil {
		return res, errkind.New(errkind.Assemble, "", err)
	}
	return res, nil
}

func render(ctx context.Context, entries []scan.Entry, opts Options) (*gofpdf.Fpdf, Result, error) {
	res := Result{Total: len(entries)}
	if err := opts.Policy.Validate(); err != nil {
		return nil, res, errkind.New(errkind.Assemble, "", err)
	}

	doc := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           gofpdf.SizeType{Wd: presets["a4"].Width, Ht: presets["a4"].Height},
	})
	doc.SetMargins(0, 0, 0)
	doc.SetAutoPageBreak(false, 0)
	doc.SetCreator("binder", true)
	if opts.Title != "" {
		doc.SetTitle(opts.Title, true)
	}

	for i, entry := range entries {
		if ctx != nil {
			if err := ctx.Err(); err != nil {
				return nil, res, err
			}
		}

		pg, err := loadPage(entry)
		if err != nil {
			res.Failures = append(res.Failures, Failure{Path: entry.Path, Err: err})
			if opts.StopOnDecodeError {
				return nil, res, errkind.New(errkind.Assemble, entry.Path, err)
			}
		} else {
			placePage(doc, fmt.Sprintf("page%d", i), pg, opts.Policy)
			if err := doc.Error(); err != nil {
				return nil, res, errkind.New(errkind.Assemble, entry.Path, err)
			}
			res.Pages++
		}

		if opts.OnPage != nil {
			opts.OnPage(i+1, len(entries))
		}
	}

	if res.Pages == 0 {
		return nil, res, errkind.Errorf(errkind.Assemble, "", "no renderable pages among %d images", len(entries))
	}
	return doc, res, nil
}

// page is one decoded image ready for embedding.
type page struct {
	data      []byte
	imageType string
	width     int
	height    int
	res       imgutil.Resolution
	hasRes    bool
}

// loadPage opens, decodes and closes one image. Everything but baseline
// YCbCr JPEGs is redrawn onto an opaque white RGB canvas and re-encoded as
// PNG.
func loadPage(entry scan.Entry) (page, error) {
	raw, err := os.ReadFile(entry.Path)
	if err != nil {
		return page{}, errkind.New(errkind.Decode, entry.Path, err)
	}

	img, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return page{}, errkind.New(errkind.Decode, entry.Path, err)
	}
	bounds := img.Bounds()
	if bounds.Empty() {
		return page{}, errkind.Errorf(errkind.Decode, entry.Path, "image has no pixels")
	}

	pg := page{width: bounds.Dx(), height: bounds.Dy()}
	// A missing or unreadable resolution only means the 72 dpi fallback.
	pg.res, pg.hasRes, _ = imgutil.ReadResolution(bytes.NewReader(raw), entry.Format())

	if _, ok := img.(*image.YCbCr); ok && format == "jpeg" {
		pg.data = raw
		pg.imageType = "JPG"
		return pg, nil
	}

	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(&buf, flatten(img)); err != nil {
		return page{}, errkind.New(errkind.Decode, entry.Path, err)
	}
	pg.data = buf.Bytes()
	pg.imageType = "PNG"
	return pg, nil
}

func flatten(img image.Image) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Over)
	return dst
}

func placePage(doc *gofpdf.Fpdf, name string, pg page, policy Policy) {
	size, rect := policy.Layout(pg.width, pg.height, pg.res, pg.hasRes)

	opts := gofpdf.ImageOptions{ImageType: pg.imageType}
	doc.RegisterImageOptionsReader(name, opts, bytes.NewReader(pg.data))
	doc.AddPageFormat("P", gofpdf.SizeType{Wd: size.Width, Ht: size.Height})
	doc.ImageOptions(name, rect.X, rect.Y, rect.W, rect.H, false, opts, 0, "")
}

func replaceFile(tmpPath, destPath string) error {
	if err := os.Rename(tmpPath, destPath); err == nil {
		return nil
	}
	if err := os.Remove(destPath); err != nil && !os.IsNotExist(err) {
		return err
	}
	return os.Rename(tmpPath, destPath)
}
