package extract

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path"
	"strconv"
	"strings"
)

// officeText pulls the visible text out of an Office Open XML or
// OpenDocument file by reading the character data of its XML parts.
func officeText(p string) (string, error) {
	zr, err := zip.OpenReader(p)
	if err != nil {
		return "", err
	}
	defer zr.Close()

	var b strings.Builder
	for _, f := range zr.File {
		if !isTextPart(f.Name) {
			continue
		}
		if err := xmlText(f, &b); err != nil {
			return "", err
		}
		if b.Len() >= MaxTextBytes {
			break
		}
	}
	text := b.String()
	if len(text) > MaxTextBytes {
		text = strings.ToValidUTF8(text[:MaxTextBytes], "")
	}
	return strings.TrimSpace(text), nil
}

func isTextPart(name string) bool {
	switch {
	case name == "word/document.xml", name == "content.xml", name == "xl/sharedStrings.xml":
		return true
	case strings.HasPrefix(name, "ppt/slides/slide") && strings.HasSuffix(name, ".xml"):
		return true
	}
	return false
}

func xmlText(f *zip.File, b *strings.Builder) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	dec := xml.NewDecoder(io.LimitReader(rc, 4*MaxTextBytes))
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.CharData:
			if s := strings.TrimSpace(string(t)); s != "" {
				b.WriteString(s)
				b.WriteByte(' ')
			}
		case xml.EndElement:
			if t.Name.Local == "p" {
				b.WriteByte('\n')
			}
		}
	}
}

// zipListing returns the entry names of an archive, one per line.
func zipListing(p string) (string, error) {
	zr, err := zip.OpenReader(p)
	if err != nil {
		return "", err
	}
	defer zr.Close()

	var names []string
	for _, f := range zr.File {
		if strings.HasSuffix(f.Name, "/") {
			continue
		}
		names = append(names, path.Base(f.Name))
		if len(names) == 200 {
			break
		}
	}
	return strings.Join(names, "\n"), nil
}

// imageMetadata records the pixel dimensions of decodable images.
func imageMetadata(p string, meta map[string]string) {
	f, err := os.Open(p)
	if err != nil {
		return
	}
	defer f.Close()

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return
	}
	meta["width"] = strconv.Itoa(cfg.Width)
	meta["height"] = strconv.Itoa(cfg.Height)
	meta["format"] = format
}
