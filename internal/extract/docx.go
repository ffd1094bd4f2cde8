package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"regexp"
	"strings"

	"github.com/hyperjump/shiori/internal/models"
)

const (
	defaultDocxBody  = "word/document.xml"
	contentTypesPart = "[Content_Types].xml"
	docxBodyType     = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"
)

var (
	// <w:p> or <w:p attr="..."> up to its closing tag; self-closing paragraphs are empty.
	paragraphRe = regexp.MustCompile(`(?s)<w:p(?:\s[^>]*[^/])?>(.*?)</w:p>`)
	// <w:t> runs, with or without xml:space and other attributes.
	textRunRe = regexp.MustCompile(`<w:t(?:\s[^>]*)?>([^<]*)</w:t>`)
)

type contentTypes struct {
	Overrides []struct {
		PartName    string `xml:"PartName,attr"`
		ContentType string `xml:"ContentType,attr"`
	} `xml:"Override"`
}

// extractDOCX returns the non-empty paragraphs of a .docx as one unit on
// page 1, one paragraph per line. Word does not store page breaks reliably, so
// no pagination is attempted.
func extractDOCX(content []byte) ([]models.TextUnit, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("not a zip: %w", err)
	}

	body := docxBodyPart(zr)
	docXML, err := readZipEntry(zr, body)
	if err != nil {
		return nil, err
	}

	var paras []string
	for _, p := range paragraphRe.FindAllSubmatch(docXML, -1) {
		var b strings.Builder
		for _, run := range textRunRe.FindAllSubmatch(p[1], -1) {
			b.WriteString(html.UnescapeString(string(run[1])))
		}
		if text := strings.TrimSpace(b.String()); text != "" {
			paras = append(paras, text)
		}
	}
	return []models.TextUnit{{Page: 1, Text: strings.Join(paras, "\n")}}, nil
}

// docxBodyPart names the main document part declared in [Content_Types].xml,
// falling back to word/document.xml.
func docxBodyPart(zr *zip.Reader) string {
	raw, err := readZipEntry(zr, contentTypesPart)
	if err != nil {
		return defaultDocxBody
	}
	var ct contentTypes
	if err := xml.Unmarshal(raw, &ct); err != nil {
		return defaultDocxBody
	}
	for _, o := range ct.Overrides {
		if o.ContentType == docxBodyType && o.PartName != "" {
			return strings.TrimPrefix(o.PartName, "/")
		}
	}
	return defaultDocxBody
}

func readZipEntry(zr *zip.Reader, name string) ([]byte, error) {
	f, err := zr.Open(name)
	if err != nil {
		return nil, fmt.Errorf("%s not found: %w", name, err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return data, nil
}
