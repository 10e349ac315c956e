package export

import (
	"encoding/xml"
	"fmt"
	"strings"

	ppt "github.com/VantageDataChat/GoPPT"

	"textdeck/slides"
)

type slideXML struct {
	CSld struct {
		Shapes []slideShape `xml:"spTree>sp"`
	} `xml:"cSld"`
}

type slideShape struct {
	NvSpPr struct {
		NvPr struct {
			Ph *struct {
				Type string `xml:"type,attr"`
			} `xml:"ph"`
		} `xml:"nvPr"`
	} `xml:"nvSpPr"`
	TxBody *struct {
		Paragraphs []struct {
			Runs   []textRun `xml:"r"`
			Fields []textRun `xml:"fld"`
		} `xml:"p"`
	} `xml:"txBody"`
}

type textRun struct {
	Text string `xml:"t"`
}

func (s slideShape) placeholderType() string {
	if s.NvSpPr.NvPr.Ph == nil {
		return ""
	}
	if s.NvSpPr.NvPr.Ph.Type == "" {
		return PlaceholderObject
	}
	return s.NvSpPr.NvPr.Ph.Type
}

// paragraphs returns the non-blank paragraph texts of the shape.
func (s slideShape) paragraphs() []string {
	if s.TxBody == nil {
		return nil
	}
	var out []string
	for _, p := range s.TxBody.Paragraphs {
		var sb strings.Builder
		for _, r := range p.Runs {
			sb.WriteString(r.Text)
		}
		for _, f := range p.Fields {
			sb.WriteString(f.Text)
		}
		if text := strings.TrimSpace(sb.String()); text != "" {
			out = append(out, text)
		}
	}
	return out
}

// ReadDeck reads the slides of a .pptx back into records, in presentation order.
// The title is the title placeholder or else the first shape with text; the
// points are the paragraphs of the first other shape with text. Bullet glyphs written
// by the blank renderer are removed.
func ReadDeck(filePath string) (slides.Deck, error) {
	pkg, err := readPackage(filePath)
	if err != nil {
		return nil, err
	}
	presPart := pkg.mainDocumentPart()
	presData, err := pkg.part(presPart)
	if err != nil {
		return nil, err
	}
	var pres presentationXML
	if err := xml.Unmarshal(presData, &pres); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", presPart, err)
	}
	rels, err := pkg.relationships(presPart)
	if err != nil {
		return nil, err
	}

	deck := make(slides.Deck, 0, len(pres.Slides))
	for _, ref := range pres.Slides {
		slidePart, ok := targetByID(presPart, rels, attrValue(ref.Attrs, nsRelationships, "id"))
		if !ok {
			return nil, fmt.Errorf("slide %s has no relationship", attrValue(ref.Attrs, "", "id"))
		}
		data, err := pkg.part(slidePart)
		if err != nil {
			return nil, err
		}
		rec, err := readSlide(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", slidePart, err)
		}
		deck = append(deck, rec)
	}
	return deck, nil
}

func readSlide(data []byte) (slides.Record, error) {
	var doc slideXML
	if err := xml.Unmarshal(data, &doc); err != nil {
		return slides.Record{}, err
	}

	type textShape struct {
		phType string
		paras  []string
	}
	var shapes []textShape
	for _, sp := range doc.CSld.Shapes {
		phType := sp.placeholderType()
		if phType == PlaceholderDate || phType == PlaceholderFooter || phType == PlaceholderSlideNumber {
			continue
		}
		if paras := sp.paragraphs(); len(paras) > 0 {
			shapes = append(shapes, textShape{phType: phType, paras: paras})
		}
	}

	rec := slides.Record{Points: []string{}}
	titleAt := -1
	for i, s := range shapes {
		if s.phType == PlaceholderTitle || s.phType == PlaceholderCenterTitle {
			titleAt = i
			break
		}
	}
	if titleAt < 0 && len(shapes) > 0 {
		titleAt = 0
	}
	if titleAt < 0 {
		return rec, nil
	}
	rec.Title = strings.Join(shapes[titleAt].paras, " ")

	for i, s := range shapes {
		if i == titleAt {
			continue
		}
		for _, p := range s.paras {
			rec.Points = append(rec.Points, p)
		}
		break
	}
	return rec, nil
}

// CountSlides opens the file with the GoPPT reader and reports its slide count.
func CountSlides(filePath string) (int, error) {
	reader, err := ppt.NewReader(ppt.ReaderPowerPoint2007)
	if err != nil {
		return 0, fmt.Errorf("failed to create PPT reader: %w", err)
	}
	pres, err := reader.Read(filePath)
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", filePath, err)
	}
	return pres.GetSlideCount(), nil
}
