package export

import (
	"bytes"
	"fmt"

	ppt "github.com/VantageDataChat/GoPPT"

	"textdeck/slides"
)

// GoPPTService composes decks without a template using GoPPT (pure Go, zero dependencies)
type GoPPTService struct{}

// NewGoPPTService creates a new GoPPT service
func NewGoPPTService() *GoPPTService {
	return &GoPPTService{}
}

// Title and Content composition, 16:9
const (
	emuPerInch = 914400

	gopptMarginLeft    = int64(0.4 * emuPerInch)
	gopptContentWidth  = int64(9.2 * emuPerInch)
	gopptSlideWidth    = int64(10.0 * emuPerInch)
	gopptBodyTop       = int64(1.1 * emuPerInch)
	gopptBodyHeight    = int64(4.2 * emuPerInch)
	gopptFontHeading   = 28
	gopptFontBody      = 18
	gopptBulletChar    = "•"
	gopptDocumentTitle = "Generated Presentation"
)

// helper: create a solid fill
func solidFill(argb string) *ppt.Fill {
	return ppt.NewFill().SetSolid(ppt.NewColor(argb))
}

// BuildDeck renders one slide per record and returns the .pptx bytes.
func (s *GoPPTService) BuildDeck(deck slides.Deck) ([]byte, error) {
	p := ppt.New()
	p.GetDocumentProperties().Title = gopptDocumentTitle
	if len(deck) > 0 {
		p.GetDocumentProperties().Title = deck[0].Title
	}
	p.GetDocumentProperties().Creator = "textdeck"

	for i, rec := range deck {
		// ppt.New starts with one empty slide
		slide := p.GetActiveSlide()
		if i > 0 {
			slide = p.CreateSlide()
		}
		s.addSlideHeader(slide, rec.Title)
		s.addBody(slide, rec.Points)
	}

	w, err := ppt.NewWriter(p, ppt.WriterPowerPoint2007)
	if err != nil {
		return nil, fmt.Errorf("failed to create PPT writer: %w", err)
	}

	var buf bytes.Buffer
	if err := w.(*ppt.PPTXWriter).WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to save PPT: %w", err)
	}
	return buf.Bytes(), nil
}

// addSlideHeader adds the accent bar and the title placeholder
func (s *GoPPTService) addSlideHeader(slide *ppt.Slide, title string) {
	topBar := slide.CreateRichTextShape()
	topBar.SetOffsetX(0).SetOffsetY(0)
	topBar.SetWidth(gopptSlideWidth).SetHeight(int64(0.08 * emuPerInch))
	topBar.SetFill(solidFill("FF3B82F6"))

	titleShape := slide.CreatePlaceholderShape(ppt.PlaceholderTitle)
	titleShape.SetOffsetX(gopptMarginLeft).SetOffsetY(int64(0.3 * emuPerInch))
	titleShape.SetWidth(gopptContentWidth).SetHeight(int64(0.6 * emuPerInch))
	tr := titleShape.CreateTextRun(title)
	tr.GetFont().SetSize(gopptFontHeading).SetBold(true).SetColor(ppt.NewColor("FF1E40AF"))
}

// addBody fills a body placeholder with one bulleted paragraph per point.
// Title-only slides get no body.
func (s *GoPPTService) addBody(slide *ppt.Slide, points []string) {
	if len(points) == 0 {
		return
	}

	body := slide.CreatePlaceholderShape(ppt.PlaceholderBody)
	body.SetPlaceholderIndex(1)
	body.SetOffsetX(gopptMarginLeft).SetOffsetY(gopptBodyTop)
	body.SetWidth(gopptContentWidth).SetHeight(gopptBodyHeight)

	for i, point := range points {
		para := body.GetActiveParagraph()
		if i > 0 {
			para = body.CreateParagraph()
		}
		para.SetBullet(ppt.NewBullet().SetCharBullet(gopptBulletChar))
		tr := para.CreateTextRun(point)
		tr.GetFont().SetSize(gopptFontBody).SetColor(ppt.NewColor("FF334155"))
	}
}
