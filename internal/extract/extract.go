// Package extract derives classification signals from files on disk.
package extract

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"

	"sift-go/internal/sift"
)

// MaxTextBytes caps how much of a file is read as text.
const MaxTextBytes = 64 << 10

var typesByExt = map[string]sift.FileType{}

func register(ft sift.FileType, exts ...string) {
	for _, e := range exts {
		typesByExt[e] = ft
	}
}

func init() {
	register(sift.FileTypeDocument,
		".txt", ".md", ".json", ".xml", ".html", ".css", ".js", ".py", ".java", ".cpp", ".go", ".csv",
		".pdf", ".docx", ".doc", ".xlsx", ".xls", ".pptx", ".ppt", ".rtf", ".odt")
	register(sift.FileTypeImage, ".jpg", ".jpeg", ".png", ".gif", ".bmp", ".tiff", ".webp", ".psd", ".svg", ".heic")
	register(sift.FileTypeAudio, ".mp3", ".wav", ".m4a", ".flac", ".ogg", ".wma", ".aac")
	register(sift.FileTypeVideo, ".mp4", ".avi", ".mov", ".mkv", ".webm", ".m4v")
}

// plainText are extensions read verbatim as text.
var plainText = map[string]bool{
	".txt": true, ".md": true, ".json": true, ".xml": true, ".html": true, ".css": true,
	".js": true, ".py": true, ".java": true, ".cpp": true, ".go": true, ".csv": true, ".svg": true,
}

// Extractor reads text from text-like files and archive listings from
// office documents, and records basic metadata for media. Types switched
// off in the settings contribute only their filename.
type Extractor struct {
	settings sift.SettingsProvider
	logger   sift.Logger
}

var _ sift.Extractor = (*Extractor)(nil)

func NewExtractor(settings sift.SettingsProvider, logger sift.Logger) *Extractor {
	return &Extractor{settings: settings, logger: logger}
}

// DetectType returns the coarse type of path from its extension, sniffing
// the content when the extension is unknown.
func DetectType(path string) (sift.FileType, string) {
	ext := strings.ToLower(filepath.Ext(path))
	if ft, ok := typesByExt[ext]; ok {
		return ft, ""
	}
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return sift.FileTypeOther, ""
	}
	return typeFromMIME(mt.String()), mt.String()
}

func typeFromMIME(mime string) sift.FileType {
	switch {
	case strings.HasPrefix(mime, "text/"), mime == "application/pdf", mime == "application/json":
		return sift.FileTypeDocument
	case strings.HasPrefix(mime, "image/"):
		return sift.FileTypeImage
	case strings.HasPrefix(mime, "audio/"):
		return sift.FileTypeAudio
	case strings.HasPrefix(mime, "video/"):
		return sift.FileTypeVideo
	default:
		return sift.FileTypeOther
	}
}

func (x *Extractor) Extract(ctx context.Context, path string) (*sift.ExtractedContent, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	ft, mime := DetectType(path)
	content := &sift.ExtractedContent{
		Filename: filepath.Base(path),
		FileType: ft,
		Metadata: map[string]string{
			"size":      strconv.FormatInt(info.Size(), 10),
			"extension": ext,
		},
	}
	if mime != "" {
		content.Metadata["mime"] = mime
	}

	if !x.settings.Settings().Models.Enabled(ft) {
		content.Metadata["extraction"] = "disabled"
		return content, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch {
	case plainText[ext] || strings.HasPrefix(mime, "text/"):
		text, err := readText(path)
		if err != nil {
			return nil, err
		}
		content.Text = text
	case ext == ".docx" || ext == ".pptx" || ext == ".xlsx" || ext == ".odt":
		text, err := officeText(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", filepath.Base(path), err)
		}
		content.Text = text
	case ext == ".zip" || mime == "application/zip":
		names, err := zipListing(path)
		if err != nil {
			return nil, fmt.Errorf("listing %s: %w", filepath.Base(path), err)
		}
		content.Text = names
	case ft == sift.FileTypeImage:
		imageMetadata(path, content.Metadata)
	default:
		x.logger.Debug("no content extractor, classifying by name", "path", path, "type", ft)
		content.Metadata["extraction"] = "unsupported"
	}

	return content, nil
}

// readText reads up to MaxTextBytes and drops invalid UTF-8.
func readText(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxTextBytes))
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	if !utf8.Valid(data) {
		return strings.ToValidUTF8(string(data), ""), nil
	}
	return string(data), nil
}
