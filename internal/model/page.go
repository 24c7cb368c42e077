package model

import "image"

// PageImage is one normalised RGB page, scaled to the job's target width.
type PageImage struct {
	Source string // input path the page came from
	Index  int    // zero-based page index within Source
	Image  image.Image
}

// Width returns the pixel width of the page.
func (p PageImage) Width() int {
	return p.Image.Bounds().Dx()
}

// Height returns the pixel height of the page.
func (p PageImage) Height() int {
	return p.Image.Bounds().Dy()
}
