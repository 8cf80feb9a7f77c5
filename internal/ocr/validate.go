package ocr

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/rotisserie/eris"
)

// Page counting needs no user fonts or config files.
func init() {
	api.DisableConfigDir()
}

// DefaultMaxFileBytes is the largest document accepted by default.
const DefaultMaxFileBytes int64 = 50 << 20

// Kind is the document format, decided by file extension.
type Kind string

const (
	KindPDF  Kind = "pdf"
	KindText Kind = "txt"
)

// Validation errors. A document that fails validation is rejected before
// any extraction is attempted.
var (
	ErrNotFound        = eris.New("ocr: document not found")
	ErrUnsupportedType = eris.New("ocr: unsupported document type")
	ErrFileTooLarge    = eris.New("ocr: document too large")
	ErrUnreadablePDF   = eris.New("ocr: unreadable PDF")
)

// DocumentInfo describes a validated document.
type DocumentInfo struct {
	Path  string `json:"path"`
	Kind  Kind   `json:"kind"`
	Size  int64  `json:"size"`
	Pages int    `json:"pages,omitempty"`
}

// Validate checks that path exists, is a .pdf or .txt file no larger than
// maxBytes, and for PDFs that pdfcpu can count its pages. maxBytes <= 0
// means DefaultMaxFileBytes.
func Validate(path string, maxBytes int64) (DocumentInfo, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxFileBytes
	}

	info := DocumentInfo{Path: path}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		info.Kind = KindPDF
	case ".txt":
		info.Kind = KindText
	default:
		return info, eris.Wrapf(ErrUnsupportedType, "ocr: %s", filepath.Base(path))
	}

	st, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return info, eris.Wrapf(ErrNotFound, "ocr: %s", path)
		}
		return info, eris.Wrapf(err, "ocr: stat %s", path)
	}
	if st.IsDir() {
		return info, eris.Wrapf(ErrUnsupportedType, "ocr: %s is a directory", path)
	}
	info.Size = st.Size()
	if info.Size > maxBytes {
		return info, eris.Wrapf(ErrFileTooLarge, "ocr: %s is %d bytes, limit %d", path, info.Size, maxBytes)
	}

	if info.Kind == KindPDF {
		data, err := os.ReadFile(path)
		if err != nil {
			return info, eris.Wrapf(err, "ocr: read %s", path)
		}
		pages, err := api.PageCount(bytes.NewReader(data), nil)
		if err != nil || pages < 1 {
			return info, eris.Wrapf(ErrUnreadablePDF, "ocr: %s", path)
		}
		info.Pages = pages
	}
	return info, nil
}
