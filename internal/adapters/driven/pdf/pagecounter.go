// Package pdf reads rendered PDFs.
package pdf

import (
	"fmt"
	"os"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/custodia-labs/scoresync/internal/core/ports/driven"
)

// Ensure PageCounter implements the interface.
var _ driven.PageCounter = (*PageCounter)(nil)

var disableConfigDir sync.Once

// PageCounter counts pages with pdfcpu.
type PageCounter struct {
	conf *model.Configuration
}

// NewPageCounter creates a page counter. pdfcpu's user config directory is
// disabled so counting never writes outside the work directory.
func NewPageCounter() *PageCounter {
	disableConfigDir.Do(api.DisableConfigDir)

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &PageCounter{conf: conf}
}

// PageCount returns the number of pages in the PDF at path.
func (p *PageCounter) PageCount(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	n, err := api.PageCount(f, p.conf)
	if err != nil {
		return 0, fmt.Errorf("count pages of %s: %w", path, err)
	}
	return n, nil
}
