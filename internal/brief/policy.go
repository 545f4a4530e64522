// Package brief selects the daily PDF brief from the workspace file listing
// and serves it as a URL, a byte stream or an Atom feed.
package brief

import (
	"sort"

	"github.com/cryptobrief/internal/models"
)

// NoPDFMessage is the user-facing not-found message
const NoPDFMessage = "No PDF file found."

// SelectLatestPDF returns the PDF with the numerically highest id. ok is
// false when the listing holds no PDF.
func SelectLatestPDF(files []models.WorkspaceFile) (models.WorkspaceFile, bool) {
	var (
		best  models.WorkspaceFile
		found bool
	)
	for _, f := range files {
		if !f.IsPDF() {
			continue
		}
		if !found || f.ID > best.ID {
			best = f
			found = true
		}
	}
	return best, found
}

// PDFsNewestFirst returns every PDF in the listing ordered by descending id
func PDFsNewestFirst(files []models.WorkspaceFile) []models.WorkspaceFile {
	pdfs := make([]models.WorkspaceFile, 0, len(files))
	for _, f := range files {
		if f.IsPDF() {
			pdfs = append(pdfs, f)
		}
	}
	sort.SliceStable(pdfs, func(i, j int) bool { return pdfs[i].ID > pdfs[j].ID })
	return pdfs
}
