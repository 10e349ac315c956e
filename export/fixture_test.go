package export

import (
	"archive/zip"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// fixtureLayout is a slide layout of a generated test template. Each entry of
// placeholders is a p:ph type; "" writes a placeholder without a type.
type fixtureLayout struct {
	name         string
	placeholders []string
}

var (
	layoutTitleSlide = fixtureLayout{"Title Slide", []string{"ctrTitle", "subTitle", "dt", "ftr", "sldNum"}}
	layoutTitleOnly  = fixtureLayout{"Title Only", []string{"title", "dt", "ftr", "sldNum"}}
	layoutContent    = fixtureLayout{"Title and Content", []string{"title", "", "dt", "ftr", "sldNum"}}
	layoutBlank      = fixtureLayout{"Blank", []string{"dt", "ftr", "sldNum"}}
)

const fixturePresNS = `xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" ` +
	`xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" ` +
	`xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"`

// writeFixtureTemplate builds a minimal .pptx with one master, the given
// layouts and existingSlides slides titled "Existing N".
func writeFixtureTemplate(t *testing.T, layouts []fixtureLayout, existingSlides int) string {
	t.Helper()
	parts := map[string]string{}
	var order []string
	add := func(name, body string) {
		parts[name] = body
		order = append(order, name)
	}

	var overrides strings.Builder
	overrides.WriteString(`<Override PartName="/ppt/presentation.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.presentation.main+xml"/>`)
	overrides.WriteString(`<Override PartName="/ppt/slideMasters/slideMaster1.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.slideMaster+xml"/>`)
	for i := range layouts {
		fmt.Fprintf(&overrides, `<Override PartName="/ppt/slideLayouts/slideLayout%d.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.slideLayout+xml"/>`, i+1)
	}
	for i := 0; i < existingSlides; i++ {
		fmt.Fprintf(&overrides, `<Override PartName="/ppt/slides/slide%d.xml" ContentType="%s"/>`, i+1, contentTypeSlide)
	}
	add(contentTypesPart, `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`+
		`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">`+
		`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>`+
		`<Default Extension="xml" ContentType="application/xml"/>`+
		overrides.String()+`</Types>`)

	add(rootRelsPart, `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`+
		`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`+
		`<Relationship Id="rId1" Type="`+relTypeOfficeDoc+`" Target="ppt/presentation.xml"/>`+
		`</Relationships>`)

	var sldIDs, presRels strings.Builder
	presRels.WriteString(`<Relationship Id="rId1" Type="` + nsRelationships + `/slideMaster" Target="slideMasters/slideMaster1.xml"/>`)
	for i := 0; i < existingSlides; i++ {
		fmt.Fprintf(&sldIDs, `<p:sldId id="%d" r:id="rId%d"/>`, 256+i, i+2)
		fmt.Fprintf(&presRels, `<Relationship Id="rId%d" Type="%s" Target="slides/slide%d.xml"/>`, i+2, relTypeSlide, i+1)
	}
	sldIDList := ""
	if existingSlides > 0 {
		sldIDList = `<p:sldIdLst>` + sldIDs.String() + `</p:sldIdLst>`
	}
	add("ppt/presentation.xml", `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`+
		`<p:presentation `+fixturePresNS+`>`+
		`<p:sldMasterIdLst><p:sldMasterId id="2147483648" r:id="rId1"/></p:sldMasterIdLst>`+
		sldIDList+
		`<p:sldSz cx="9144000" cy="6858000"/><p:notesSz cx="6858000" cy="9144000"/>`+
		`</p:presentation>`)
	add("ppt/_rels/presentation.xml.rels", `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`+
		`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`+
		presRels.String()+`</Relationships>`)

	var layoutIDs, masterRels strings.Builder
	for i := range layouts {
		fmt.Fprintf(&layoutIDs, `<p:sldLayoutId id="%d" r:id="rId%d"/>`, 2147483649+i, i+1)
		fmt.Fprintf(&masterRels, `<Relationship Id="rId%d" Type="%s" Target="../slideLayouts/slideLayout%d.xml"/>`, i+1, relTypeSlideLayout, i+1)
	}
	add("ppt/slideMasters/slideMaster1.xml", `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`+
		`<p:sldMaster `+fixturePresNS+`><p:cSld><p:spTree/></p:cSld>`+
		`<p:sldLayoutIdLst>`+layoutIDs.String()+`</p:sldLayoutIdLst></p:sldMaster>`)
	add("ppt/slideMasters/_rels/slideMaster1.xml.rels", `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`+
		`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`+
		masterRels.String()+`</Relationships>`)

	for i, l := range layouts {
		var shapes strings.Builder
		for j, typ := range l.placeholders {
			ph := `<p:ph idx="` + fmt.Sprint(j+1) + `"/>`
			if typ != "" {
				ph = `<p:ph type="` + typ + `"/>`
			}
			fmt.Fprintf(&shapes, `<p:sp><p:nvSpPr><p:cNvPr id="%d" name="%s %d"/><p:cNvSpPr/><p:nvPr>%s</p:nvPr></p:nvSpPr>`+
				`<p:spPr/><p:txBody><a:bodyPr/><a:p><a:r><a:t>Click to edit</a:t></a:r></a:p></p:txBody></p:sp>`, j+2, typ, j+1, ph)
		}
		add(fmt.Sprintf("ppt/slideLayouts/slideLayout%d.xml", i+1), `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`+
			`<p:sldLayout `+fixturePresNS+`><p:cSld name="`+l.name+`"><p:spTree>`+
			`<p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr><p:grpSpPr/>`+
			shapes.String()+`</p:spTree></p:cSld></p:sldLayout>`)
	}

	for i := 0; i < existingSlides; i++ {
		add(fmt.Sprintf("ppt/slides/slide%d.xml", i+1), `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`+
			`<p:sld `+fixturePresNS+`><p:cSld><p:spTree>`+
			`<p:sp><p:nvSpPr><p:cNvPr id="2" name="Title"/><p:cNvSpPr/><p:nvPr><p:ph type="title"/></p:nvPr></p:nvSpPr><p:spPr/>`+
			fmt.Sprintf(`<p:txBody><a:bodyPr/><a:p><a:r><a:t>Existing %d</a:t></a:r></a:p></p:txBody></p:sp>`, i+1)+
			`</p:spTree></p:cSld></p:sld>`)
		add(fmt.Sprintf("ppt/slides/_rels/slide%d.xml.rels", i+1), `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`+
			`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`+
			`<Relationship Id="rId1" Type="`+relTypeSlideLayout+`" Target="../slideLayouts/slideLayout1.xml"/></Relationships>`)
	}

	path := filepath.Join(t.TempDir(), "template.pptx")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for _, name := range order {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(parts[name]))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	return path
}
