package render

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"strings"

	wkhtmltopdf "github.com/SebastiaanKlippert/go-wkhtmltopdf"
	"github.com/rs/zerolog/log"
)

// Messages the engine prints when its shared libraries or display stack are absent
var missingLibraryHints = []string{
	"error while loading shared libraries",
	"cannot open shared object file",
	"could not connect to display",
	"permission denied",
	"executable file not found",
	"no such file or directory",
}

// pageMarginMM is applied by the engine, which ignores @page margins
const pageMarginMM = 15

// WKHTMLToPDF converts pages with the wkhtmltopdf binary
type WKHTMLToPDF struct {
	binPath string
	dpi     uint
}

// NewWKHTMLToPDF uses the executable at binPath, or searches PATH when it is empty
func NewWKHTMLToPDF(binPath string, dpi uint) *WKHTMLToPDF {
	if dpi == 0 {
		dpi = 300
	}
	return &WKHTMLToPDF{binPath: binPath, dpi: dpi}
}

func (w *WKHTMLToPDF) Convert(html []byte) ([]byte, error) {
	if w.binPath != "" {
		if _, err := exec.LookPath(w.binPath); err != nil {
			return nil, fmt.Errorf("%w: wkhtmltopdf not usable at %s: %v", ErrDependencyMissing, w.binPath, err)
		}
		wkhtmltopdf.SetPath(w.binPath)
	}

	pdfg, err := wkhtmltopdf.NewPDFGenerator()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDependencyMissing, err)
	}
	pdfg.Dpi.Set(w.dpi)
	pdfg.PageSize.Set(wkhtmltopdf.PageSizeA4)
	pdfg.Orientation.Set(wkhtmltopdf.OrientationPortrait)
	pdfg.MarginTop.Set(pageMarginMM)
	pdfg.MarginBottom.Set(pageMarginMM)
	pdfg.MarginLeft.Set(pageMarginMM)
	pdfg.MarginRight.Set(pageMarginMM)
	pdfg.AddPage(wkhtmltopdf.NewPageReader(bytes.NewReader(html)))

	if err := pdfg.Create(); err != nil {
		return nil, classify(err)
	}
	log.Debug().Int("bytes", pdfg.Buffer().Len()).Msg("pdf generated")
	return pdfg.Bytes(), nil
}

// classify marks engine failures caused by a broken installation as ErrDependencyMissing
func classify(err error) error {
	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
		return fmt.Errorf("%w: %v", ErrDependencyMissing, err)
	}
	msg := strings.ToLower(err.Error())
	for _, hint := range missingLibraryHints {
		if strings.Contains(msg, hint) {
			return fmt.Errorf("%w: %v", ErrDependencyMissing, err)
		}
	}
	return fmt.Errorf("wkhtmltopdf failed: %w", err)
}
