package export

import (
	"encoding/xml"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"textdeck/slides"
)

// Placeholder types as written in p:ph/@type. A placeholder without a type is obj.
const (
	PlaceholderTitle       = "title"
	PlaceholderCenterTitle = "ctrTitle"
	PlaceholderBody        = "body"
	PlaceholderObject      = "obj"
	PlaceholderDate        = "dt"
	PlaceholderFooter      = "ftr"
	PlaceholderSlideNumber = "sldNum"

	fallbackLayoutIndex = 1
	firstSlideID        = 256
)

// Placeholder is one typed region of a layout.
type Placeholder struct {
	Type   string
	Idx    string
	Orient string
	Size   string
	Name   string
}

func (p Placeholder) isTitle() bool {
	return p.Type == PlaceholderTitle || p.Type == PlaceholderCenterTitle
}

func (p Placeholder) isBodyLike() bool {
	return p.Type == PlaceholderBody || p.Type == PlaceholderObject
}

func (p Placeholder) isChrome() bool {
	return p.Type == PlaceholderDate || p.Type == PlaceholderFooter || p.Type == PlaceholderSlideNumber
}

// Layout describes one slide layout of a loaded template. It borrows from the
// TemplatePackage and is only meaningful for it.
type Layout struct {
	Index        int
	Part         string
	Name         string
	Placeholders []Placeholder
}

// Qualifies reports whether the layout has a title plus a body or object placeholder.
func (l Layout) Qualifies() bool {
	var title, body bool
	for _, ph := range l.Placeholders {
		switch {
		case ph.Type == PlaceholderTitle:
			title = true
		case ph.isBodyLike():
			body = true
		}
	}
	return title && body
}

// BodyPlaceholder returns the first non-title placeholder a slide cloned from
// this layout would carry.
func (l Layout) BodyPlaceholder() (Placeholder, bool) {
	for _, ph := range l.Placeholders {
		if !ph.isTitle() && !ph.isChrome() {
			return ph, true
		}
	}
	return Placeholder{}, false
}

type pendingSlide struct {
	part   string
	layout Layout
	record slides.Record
}

// TemplatePackage is a .pptx template opened for appending slides.
type TemplatePackage struct {
	pkg              *opcPackage
	presentationPart string
	layouts          []Layout
	pending          []pendingSlide
}

// OpenTemplate loads the template and discovers its layouts in document order.
func OpenTemplate(filePath string) (*TemplatePackage, error) {
	pkg, err := readPackage(filePath)
	if err != nil {
		return nil, err
	}
	tp := &TemplatePackage{pkg: pkg, presentationPart: pkg.mainDocumentPart()}
	if !pkg.has(contentTypesPart) {
		return nil, fmt.Errorf("missing %s", contentTypesPart)
	}
	if err := tp.discoverLayouts(); err != nil {
		return nil, err
	}
	return tp, nil
}

// Layouts returns the discovered layouts in document order.
func (t *TemplatePackage) Layouts() []Layout {
	return t.layouts
}

// SelectLayout picks the first qualifying layout, else the layout at index 1
// without validating it.
func (t *TemplatePackage) SelectLayout() (Layout, error) {
	for _, l := range t.layouts {
		if l.Qualifies() {
			return l, nil
		}
	}
	if len(t.layouts) <= fallbackLayoutIndex {
		return Layout{}, fmt.Errorf("%w: found %d layouts", ErrNoLayouts, len(t.layouts))
	}
	return t.layouts[fallbackLayoutIndex], nil
}

type idAttrs struct {
	Attrs []xml.Attr `xml:",any,attr"`
}

type presentationXML struct {
	Masters []idAttrs `xml:"sldMasterIdLst>sldMasterId"`
	Slides  []idAttrs `xml:"sldIdLst>sldId"`
}

type masterXML struct {
	Layouts []idAttrs `xml:"sldLayoutIdLst>sldLayoutId"`
}

type layoutXML struct {
	CSld struct {
		Name   string        `xml:"name,attr"`
		Shapes []layoutShape `xml:"spTree>sp"`
	} `xml:"cSld"`
}

type layoutShape struct {
	NvSpPr struct {
		CNvPr struct {
			Name string `xml:"name,attr"`
		} `xml:"cNvPr"`
		NvPr struct {
			Ph *struct {
				Type   string `xml:"type,attr"`
				Idx    string `xml:"idx,attr"`
				Orient string `xml:"orient,attr"`
				Sz     string `xml:"sz,attr"`
			} `xml:"ph"`
		} `xml:"nvPr"`
	} `xml:"nvSpPr"`
}

func (t *TemplatePackage) discoverLayouts() error {
	data, err := t.pkg.part(t.presentationPart)
	if err != nil {
		return err
	}
	var pres presentationXML
	if err := xml.Unmarshal(data, &pres); err != nil {
		return fmt.Errorf("failed to parse %s: %w", t.presentationPart, err)
	}
	presRels, err := t.pkg.relationships(t.presentationPart)
	if err != nil {
		return err
	}

	for _, m := range pres.Masters {
		masterPart, ok := targetByID(t.presentationPart, presRels, attrValue(m.Attrs, nsRelationships, "id"))
		if !ok {
			continue
		}
		masterData, err := t.pkg.part(masterPart)
		if err != nil {
			return err
		}
		var master masterXML
		if err := xml.Unmarshal(masterData, &master); err != nil {
			return fmt.Errorf("failed to parse %s: %w", masterPart, err)
		}
		masterRels, err := t.pkg.relationships(masterPart)
		if err != nil {
			return err
		}
		for _, ref := range master.Layouts {
			layoutPart, ok := targetByID(masterPart, masterRels, attrValue(ref.Attrs, nsRelationships, "id"))
			if !ok {
				continue
			}
			layout, err := t.parseLayout(layoutPart)
			if err != nil {
				return err
			}
			layout.Index = len(t.layouts)
			t.layouts = append(t.layouts, layout)
		}
	}
	return nil
}

func (t *TemplatePackage) parseLayout(part string) (Layout, error) {
	data, err := t.pkg.part(part)
	if err != nil {
		return Layout{}, err
	}
	var doc layoutXML
	if err := xml.Unmarshal(data, &doc); err != nil {
		return Layout{}, fmt.Errorf("failed to parse %s: %w", part, err)
	}

	layout := Layout{Part: part, Name: doc.CSld.Name}
	for _, sp := range doc.CSld.Shapes {
		ph := sp.NvSpPr.NvPr.Ph
		if ph == nil {
			continue
		}
		typ := ph.Type
		if typ == "" {
			typ = PlaceholderObject
		}
		layout.Placeholders = append(layout.Placeholders, Placeholder{
			Type:   typ,
			Idx:    ph.Idx,
			Orient: ph.Orient,
			Size:   ph.Sz,
			Name:   sp.NvSpPr.CNvPr.Name,
		})
	}
	return layout, nil
}

func targetByID(source string, rels []relationship, id string) (string, bool) {
	for _, rel := range rels {
		if rel.ID == id && rel.TargetMode != "External" {
			return resolveTarget(source, rel.Target), true
		}
	}
	return "", false
}

// AddSlide queues one slide built from layout. It reports whether the
// record's points had a body placeholder to go to.
func (t *TemplatePackage) AddSlide(layout Layout, rec slides.Record) bool {
	t.pending = append(t.pending, pendingSlide{layout: layout, record: rec})
	_, hasBody := layout.BodyPlaceholder()
	return hasBody
}

// Save writes the template plus every queued slide to dest. Errors wrap
// ErrTemplate when the package cannot take the slides and ErrOutput when
// dest cannot be written.
func (t *TemplatePackage) Save(dest string) error {
	if err := t.commit(); err != nil {
		return fmt.Errorf("%w: %w", ErrTemplate, err)
	}
	if err := t.pkg.saveAtomic(dest); err != nil {
		return fmt.Errorf("%w: %w", ErrOutput, err)
	}
	return nil
}

var (
	slidePartPattern = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)
	relIDPattern     = regexp.MustCompile(`^rId(\d+)$`)
	rootPrefix       = regexp.MustCompile(`<(\w+:)?presentation[\s>]`)
)

// commit writes the queued slide parts and registers them in the presentation,
// its relationships and the content types.
func (t *TemplatePackage) commit() error {
	if len(t.pending) == 0 {
		return nil
	}

	presData, err := t.pkg.part(t.presentationPart)
	if err != nil {
		return err
	}
	var pres presentationXML
	if err := xml.Unmarshal(presData, &pres); err != nil {
		return fmt.Errorf("failed to parse %s: %w", t.presentationPart, err)
	}
	presRels, err := t.pkg.relationships(t.presentationPart)
	if err != nil {
		return err
	}

	nextSlideID := firstSlideID
	for _, s := range pres.Slides {
		if id, err := strconv.Atoi(attrValue(s.Attrs, "", "id")); err == nil && id >= nextSlideID {
			nextSlideID = id + 1
		}
	}
	nextRelID := 1
	for _, rel := range presRels {
		if m := relIDPattern.FindStringSubmatch(rel.ID); m != nil {
			if n, _ := strconv.Atoi(m[1]); n >= nextRelID {
				nextRelID = n + 1
			}
		}
	}
	nextPartNum := 1
	for name := range t.pkg.parts {
		if m := slidePartPattern.FindStringSubmatch(name); m != nil {
			if n, _ := strconv.Atoi(m[1]); n >= nextPartNum {
				nextPartNum = n + 1
			}
		}
	}

	var sldIDs, relEntries, overrides strings.Builder
	prefix := elementPrefix(presData)
	for i := range t.pending {
		ps := &t.pending[i]
		ps.part = fmt.Sprintf("ppt/slides/slide%d.xml", nextPartNum)
		nextPartNum++
		relID := "rId" + strconv.Itoa(nextRelID)
		nextRelID++

		t.pkg.put(ps.part, buildSlideXML(ps.layout, ps.record))
		t.pkg.put(relsPartName(ps.part), buildSlideRels(ps.part, ps.layout.Part))

		fmt.Fprintf(&sldIDs, `<%ssldId id="%d" r:id="%s"/>`, prefix, nextSlideID, relID)
		nextSlideID++
		fmt.Fprintf(&relEntries, `<Relationship Id="%s" Type="%s" Target="%s"/>`,
			relID, relTypeSlide, relativeTarget(t.presentationPart, ps.part))
		fmt.Fprintf(&overrides, `<Override PartName="/%s" ContentType="%s"/>`, ps.part, contentTypeSlide)
	}

	newPres, err := insertSlideIDs(string(presData), prefix, sldIDs.String())
	if err != nil {
		return err
	}
	t.pkg.put(t.presentationPart, []byte(newPres))

	relsName := relsPartName(t.presentationPart)
	relsData, ok := t.pkg.parts[relsName]
	if !ok {
		relsData = []byte(xml.Header + `<Relationships xmlns="` + nsPackageRels + `"></Relationships>`)
	}
	newRels, err := insertBefore(string(relsData), "</Relationships>", relEntries.String())
	if err != nil {
		return fmt.Errorf("%s: %w", relsName, err)
	}
	t.pkg.put(relsName, []byte(newRels))

	newTypes, err := insertBefore(string(t.pkg.parts[contentTypesPart]), "</Types>", overrides.String())
	if err != nil {
		return fmt.Errorf("%s: %w", contentTypesPart, err)
	}
	t.pkg.put(contentTypesPart, []byte(newTypes))

	t.pending = nil
	return nil
}

// elementPrefix returns the namespace prefix of the presentation root, e.g. "p:".
func elementPrefix(presData []byte) string {
	if m := rootPrefix.FindSubmatch(presData); m != nil {
		return string(m[1])
	}
	return ""
}

// insertSlideIDs appends entries to sldIdLst, creating the list ahead of
// sldSz/notesSz when the template has none.
func insertSlideIDs(doc, prefix, entries string) (string, error) {
	closeTag := "</" + prefix + "sldIdLst>"
	if strings.Contains(doc, closeTag) {
		return insertBefore(doc, closeTag, entries)
	}
	for _, empty := range []string{"<" + prefix + "sldIdLst/>", "<" + prefix + "sldIdLst />"} {
		if strings.Contains(doc, empty) {
			return strings.Replace(doc, empty, "<"+prefix+"sldIdLst>"+entries+closeTag, 1), nil
		}
	}
	list := "<" + prefix + "sldIdLst>" + entries + closeTag
	for _, anchor := range []string{"<" + prefix + "sldSz", "<" + prefix + "notesSz"} {
		if strings.Contains(doc, anchor) {
			return insertBefore(doc, anchor, list)
		}
	}
	return "", fmt.Errorf("cannot place slide list in presentation part")
}

// insertBefore inserts text ahead of the first opening anchor or the last closing one.
func insertBefore(doc, anchor, text string) (string, error) {
	i := strings.Index(doc, anchor)
	if strings.HasPrefix(anchor, "</") {
		i = strings.LastIndex(doc, anchor)
	}
	if i < 0 {
		return "", fmt.Errorf("anchor %q not found", anchor)
	}
	return doc[:i] + text + doc[i:], nil
}

// buildSlideXML clones the layout's placeholders, leaving out date, footer and
// slide number. The title goes to the title placeholder, the points to the
// first other placeholder, one paragraph each.
func buildSlideXML(layout Layout, rec slides.Record) []byte {
	var sb strings.Builder
	sb.WriteString(xml.Header)
	sb.WriteString(`<p:sld xmlns:a="` + nsDrawingML + `" xmlns:r="` + nsRelationships + `" xmlns:p="` + nsPresentationML + `">`)
	sb.WriteString(`<p:cSld><p:spTree>`)
	sb.WriteString(`<p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr>`)
	sb.WriteString(`<p:grpSpPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="0" cy="0"/><a:chOff x="0" y="0"/><a:chExt cx="0" cy="0"/></a:xfrm></p:grpSpPr>`)

	shapeID := 2
	bodyFilled := false
	for _, ph := range layout.Placeholders {
		if ph.isChrome() {
			continue
		}
		var paragraphs []string
		switch {
		case ph.isTitle():
			paragraphs = []string{rec.Title}
		case !bodyFilled:
			bodyFilled = true
			paragraphs = rec.Points
		}
		writePlaceholderShape(&sb, shapeID, ph, paragraphs)
		shapeID++
	}

	sb.WriteString(`</p:spTree></p:cSld>`)
	sb.WriteString(`<p:clrMapOvr><a:masterClrMapping/></p:clrMapOvr>`)
	sb.WriteString(`</p:sld>`)
	return []byte(sb.String())
}

func writePlaceholderShape(sb *strings.Builder, id int, ph Placeholder, paragraphs []string) {
	name := ph.Name
	if name == "" {
		name = "Placeholder " + strconv.Itoa(id-1)
	}
	fmt.Fprintf(sb, `<p:sp><p:nvSpPr><p:cNvPr id="%d" name="%s"/>`, id, escapeXML(name))
	sb.WriteString(`<p:cNvSpPr><a:spLocks noGrp="1"/></p:cNvSpPr><p:nvPr>`)
	sb.WriteString(placeholderElement(ph))
	sb.WriteString(`</p:nvPr></p:nvSpPr><p:spPr/>`)
	sb.WriteString(`<p:txBody><a:bodyPr/><a:lstStyle/>`)
	if len(paragraphs) == 0 {
		sb.WriteString(`<a:p><a:endParaRPr lang="en-US"/></a:p>`)
	}
	for _, text := range paragraphs {
		sb.WriteString(`<a:p><a:r><a:rPr lang="en-US" dirty="0"/><a:t>`)
		sb.WriteString(escapeXML(text))
		sb.WriteString(`</a:t></a:r></a:p>`)
	}
	sb.WriteString(`</p:txBody></p:sp>`)
}

func placeholderElement(ph Placeholder) string {
	var attrs []string
	if ph.Type != PlaceholderObject {
		attrs = append(attrs, `type="`+escapeXML(ph.Type)+`"`)
	}
	if ph.Orient != "" {
		attrs = append(attrs, `orient="`+escapeXML(ph.Orient)+`"`)
	}
	if ph.Size != "" {
		attrs = append(attrs, `sz="`+escapeXML(ph.Size)+`"`)
	}
	if ph.Idx != "" {
		attrs = append(attrs, `idx="`+escapeXML(ph.Idx)+`"`)
	}
	if len(attrs) == 0 {
		return `<p:ph/>`
	}
	return `<p:ph ` + strings.Join(attrs, " ") + `/>`
}

func buildSlideRels(slidePart, layoutPart string) []byte {
	return []byte(xml.Header +
		`<Relationships xmlns="` + nsPackageRels + `">` +
		`<Relationship Id="rId1" Type="` + relTypeSlideLayout + `" Target="` + relativeTarget(slidePart, layoutPart) + `"/>` +
		`</Relationships>`)
}
