package export

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// OOXML namespaces and relationship types used by the template engine.
const (
	nsRelationships     = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	nsPackageRels       = "http://schemas.openxmlformats.org/package/2006/relationships"
	nsDrawingML         = "http://schemas.openxmlformats.org/drawingml/2006/main"
	nsPresentationML    = "http://schemas.openxmlformats.org/presentationml/2006/main"
	relTypeOfficeDoc    = nsRelationships + "/officeDocument"
	relTypeSlide        = nsRelationships + "/slide"
	relTypeSlideLayout  = nsRelationships + "/slideLayout"
	contentTypeSlide    = "application/vnd.openxmlformats-officedocument.presentationml.slide+xml"
	contentTypesPart    = "[Content_Types].xml"
	rootRelsPart        = "_rels/.rels"
	defaultPresentation = "ppt/presentation.xml"
)

// opcPackage is an in-memory Open Packaging Conventions zip: part name to bytes.
// Part names have no leading slash. Zip entry order is kept on write.
type opcPackage struct {
	parts map[string][]byte
	order []string
}

func readPackage(filePath string) (*opcPackage, error) {
	reader, err := zip.OpenReader(filePath)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	pkg := &opcPackage{parts: make(map[string][]byte, len(reader.File))}
	for _, file := range reader.File {
		if file.FileInfo().IsDir() {
			continue
		}
		data, err := readZipFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read part %s: %w", file.Name, err)
		}
		pkg.parts[file.Name] = data
		pkg.order = append(pkg.order, file.Name)
	}
	return pkg, nil
}

func readZipFile(zf *zip.File) ([]byte, error) {
	rc, err := zf.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func (p *opcPackage) part(name string) ([]byte, error) {
	data, ok := p.parts[name]
	if !ok {
		return nil, fmt.Errorf("part %s not found", name)
	}
	return data, nil
}

func (p *opcPackage) has(name string) bool {
	_, ok := p.parts[name]
	return ok
}

func (p *opcPackage) put(name string, data []byte) {
	if !p.has(name) {
		p.order = append(p.order, name)
	}
	p.parts[name] = data
}

// writeTo emits the package with [Content_Types].xml first.
func (p *opcPackage) writeTo(w io.Writer) error {
	zw := zip.NewWriter(w)
	names := make([]string, 0, len(p.order))
	if p.has(contentTypesPart) {
		names = append(names, contentTypesPart)
	}
	for _, name := range p.order {
		if name != contentTypesPart {
			names = append(names, name)
		}
	}
	for _, name := range names {
		fw, err := zw.Create(name)
		if err != nil {
			return err
		}
		if _, err := fw.Write(p.parts[name]); err != nil {
			return err
		}
	}
	return zw.Close()
}

// saveAtomic writes the package to a temp file next to dest and renames it into place.
func (p *opcPackage) saveAtomic(dest string) error {
	var buf bytes.Buffer
	if err := p.writeTo(&buf); err != nil {
		return err
	}
	return writeFileAtomic(dest, buf.Bytes())
}

func writeFileAtomic(dest string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, dest); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

type relationship struct {
	ID         string `xml:"Id,attr"`
	Type       string `xml:"Type,attr"`
	Target     string `xml:"Target,attr"`
	TargetMode string `xml:"TargetMode,attr"`
}

type relationshipList struct {
	XMLName xml.Name       `xml:"Relationships"`
	Items   []relationship `xml:"Relationship"`
}

// relsPartName maps ppt/presentation.xml to ppt/_rels/presentation.xml.rels.
func relsPartName(partName string) string {
	dir, file := path.Split(partName)
	return dir + "_rels/" + file + ".rels"
}

// relationships parses the rels of partName. A missing rels part is an empty list.
func (p *opcPackage) relationships(partName string) ([]relationship, error) {
	data, ok := p.parts[relsPartName(partName)]
	if !ok {
		return nil, nil
	}
	var list relationshipList
	if err := xml.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("failed to parse relationships of %s: %w", partName, err)
	}
	return list.Items, nil
}

// resolveTarget turns a relationship target into a part name.
func resolveTarget(sourcePart, target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(path.Clean(target), "/")
	}
	return path.Join(path.Dir(sourcePart), target)
}

// relativeTarget is the inverse of resolveTarget for parts in the same package.
func relativeTarget(sourcePart, targetPart string) string {
	from := strings.Split(path.Dir(sourcePart), "/")
	to := strings.Split(targetPart, "/")
	common := 0
	for common < len(from) && common < len(to)-1 && from[common] == to[common] {
		common++
	}
	var parts []string
	for i := common; i < len(from); i++ {
		if from[i] != "." && from[i] != "" {
			parts = append(parts, "..")
		}
	}
	parts = append(parts, to[common:]...)
	return strings.Join(parts, "/")
}

// mainDocumentPart follows the package root relationship to the presentation part.
func (p *opcPackage) mainDocumentPart() string {
	data, ok := p.parts[rootRelsPart]
	if !ok {
		return defaultPresentation
	}
	var list relationshipList
	if err := xml.Unmarshal(data, &list); err != nil {
		return defaultPresentation
	}
	for _, rel := range list.Items {
		if rel.Type == relTypeOfficeDoc {
			return resolveTarget("", rel.Target)
		}
	}
	return defaultPresentation
}

// attrValue finds an attribute by namespace and local name.
func attrValue(attrs []xml.Attr, space, local string) string {
	for _, a := range attrs {
		if a.Name.Space == space && a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

func escapeXML(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}
