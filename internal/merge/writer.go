package merge

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/disintegration/imaging"
	"github.com/jung-kurt/gofpdf"

	"github.com/aliskhannn/pdf-merger/internal/model"
)

// Resolution is the DPI at which page bitmaps are placed in the PDF.
const Resolution = 200.0

// ErrNoPages is returned when asked to write an empty document.
var ErrNoPages = errors.New("no pages to write")

// pointsFor converts a pixel length at Resolution into PDF points.
func pointsFor(px int) float64 {
	return float64(px) * 72.0 / Resolution
}

// WriteDocument writes pages as a single multi-page PDF at path. Each page is
// embedded as a JPEG encoded at quality and sized to fill the whole page.
func WriteDocument(path string, pages []model.PageImage, quality int) error {
	if len(pages) == 0 {
		return ErrNoPages
	}

	first := gofpdf.SizeType{Wd: pointsFor(pages[0].Width()), Ht: pointsFor(pages[0].Height())}
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           first,
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCompression(true)
	pdf.SetCreator("pdf-merger", true)

	opts := gofpdf.ImageOptions{ImageType: "JPG", ReadDpi: false}

	for i, page := range pages {
		buf := new(bytes.Buffer)
		if err := imaging.Encode(buf, page.Image, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
			return fmt.Errorf("encode page %d: %w", i+1, err)
		}

		size := gofpdf.SizeType{Wd: pointsFor(page.Width()), Ht: pointsFor(page.Height())}
		name := fmt.Sprintf("page-%d", i)

		pdf.AddPageFormat("P", size)
		pdf.RegisterImageOptionsReader(name, opts, buf)
		pdf.ImageOptions(name, 0, 0, size.Wd, size.Ht, false, opts, 0, "")

		if pdf.Err() {
			return fmt.Errorf("place page %d: %w", i+1, pdf.Error())
		}
	}

	if err := pdf.OutputFileAndClose(path); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}

	return nil
}
