package renderer

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

const (
	// DocxFont is the body font of exported documents.
	DocxFont = "Garamond"
	// DocxFontSize is the body size in points.
	DocxFontSize = 11
	// DocxContentType is the media type of a .docx package.
	DocxContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

//nolint:gochecknoglobals // compiled once
var blankLine = regexp.MustCompile(`\n[ \t\r]*\n`)

// Paragraphs splits text on blank lines, dropping empty blocks.
func Paragraphs(text string) (paragraphs []string) {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	for _, block := range blankLine.Split(text, -1) {
		block = strings.TrimSpace(block)
		if block != "" {
			paragraphs = append(paragraphs, block)
		}
	}
	return paragraphs
}

// WriteDocx writes text to outputPath as a Word document, one left-aligned paragraph per
// blank-line-separated block. Line breaks inside a block are kept.
func WriteDocx(text, outputPath string) (err error) {
	outputDir := filepath.Dir(outputPath)
	err = os.MkdirAll(outputDir, 0750)
	if err != nil {
		err = errors.Wrapf(err, "failed to create output directory: %s", outputDir)
		return err
	}

	var buf bytes.Buffer
	err = EncodeDocx(&buf, text)
	if err != nil {
		return err
	}

	err = os.WriteFile(outputPath, buf.Bytes(), 0600)
	if err != nil {
		err = errors.Wrapf(err, "failed to write document: %s", outputPath)
		return err
	}

	return err
}

// EncodeDocx writes the document package for text to w.
func EncodeDocx(w io.Writer, text string) (err error) {
	parts := []struct {
		name    string
		content string
	}{
		{name: "[Content_Types].xml", content: contentTypesXML},
		{name: "_rels/.rels", content: packageRelsXML},
		{name: "word/_rels/document.xml.rels", content: documentRelsXML},
		{name: "word/styles.xml", content: stylesXML()},
		{name: "word/document.xml", content: documentXML(Paragraphs(text))},
	}

	zw := zip.NewWriter(w)
	for _, part := range parts {
		var fw io.Writer
		fw, err = zw.Create(part.name)
		if err != nil {
			err = errors.Wrapf(err, "failed to add %s to document", part.name)
			return err
		}

		_, err = io.WriteString(fw, part.content)
		if err != nil {
			err = errors.Wrapf(err, "failed to write %s", part.name)
			return err
		}
	}

	err = zw.Close()
	if err != nil {
		err = errors.Wrap(err, "failed to finish document")
		return err
	}

	return err
}

const contentTypesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
<Override PartName="/word/styles.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.styles+xml"/>
</Types>`

const packageRelsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`

const documentRelsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles" Target="styles.xml"/>
</Relationships>`

const wordNamespace = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"

// stylesXML sets the Normal style; sizes are in half-points.
func stylesXML() (doc string) {
	doc = fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:styles xmlns:w="%s">
<w:docDefaults><w:rPrDefault><w:rPr><w:rFonts w:ascii="%s" w:hAnsi="%s" w:cs="%s"/><w:sz w:val="%d"/><w:szCs w:val="%d"/></w:rPr></w:rPrDefault></w:docDefaults>
<w:style w:type="paragraph" w:default="1" w:styleId="Normal"><w:name w:val="Normal"/><w:pPr><w:jc w:val="left"/><w:spacing w:after="200"/></w:pPr></w:style>
</w:styles>`, wordNamespace, DocxFont, DocxFont, DocxFont, DocxFontSize*2, DocxFontSize*2)
	return doc
}

func documentXML(paragraphs []string) (doc string) {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`)
	b.WriteString("\n")
	fmt.Fprintf(&b, `<w:document xmlns:w="%s"><w:body>`, wordNamespace)

	for _, para := range paragraphs {
		b.WriteString(`<w:p><w:pPr><w:pStyle w:val="Normal"/><w:jc w:val="left"/></w:pPr>`)
		for i, line := range strings.Split(para, "\n") {
			b.WriteString("<w:r>")
			if i > 0 {
				b.WriteString("<w:br/>")
			}
			b.WriteString(`<w:t xml:space="preserve">`)
			_ = xml.EscapeText(&b, []byte(line))
			b.WriteString("</w:t></w:r>")
		}
		b.WriteString("</w:p>")
	}

	b.WriteString("<w:sectPr/></w:body></w:document>")
	doc = b.String()
	return doc
}
