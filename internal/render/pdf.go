package render

import (
	"bytes"
	"context"
	"fmt"

	"github.com/jung-kurt/gofpdf"

	"github.com/dunamismax/deckrender/internal/artifacts"
	"github.com/dunamismax/deckrender/internal/domain"
)

// Document renders (PDF, PPTX) report per-slide progress across a shared
// band: 10 at processing start, 90 once the last slide lands.
const (
	docProgressBase = 10
	docProgressSpan = 80
)

// PDFRenderer captures each slide as a bitmap and lays the captures out one
// per page on a canvas-sized document.
type PDFRenderer struct {
	raster    Rasterizer
	artifacts *artifacts.Manager
}

func NewPDFRenderer(raster Rasterizer, artifacts *artifacts.Manager) *PDFRenderer {
	return &PDFRenderer{raster: raster, artifacts: artifacts}
}

func (r *PDFRenderer) Format() string { return domain.FormatPDF }

func (r *PDFRenderer) Render(ctx context.Context, jobID string, pres domain.Presentation, opts domain.ExportOptions, progress ProgressFunc) (string, error) {
	doc := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: domain.CanvasWidth, Ht: domain.CanvasHeight},
	})
	doc.SetAutoPageBreak(false, 0)

	start, end, empty := opts.Range(len(pres.Slides))
	if empty {
		// Nothing to capture, but a PDF with zero pages is invalid.
		doc.AddPage()
	} else {
		session, err := r.raster.NewSession(ctx)
		if err != nil {
			return "", err
		}
		defer session.Close()

		scale := opts.QualityScale()
		total := end - start + 1
		for i := start; i <= end; i++ {
			if err := ctx.Err(); err != nil {
				return "", err
			}

			shot, err := session.CapturePNG(slideDocument(pres, pres.Slides[i]))
			if err != nil {
				return "", fmt.Errorf("render slide %d: %w", i+1, err)
			}
			shot, err = scalePNG(shot, scale)
			if err != nil {
				return "", fmt.Errorf("render slide %d: %w", i+1, err)
			}

			doc.AddPage()
			imgName := fmt.Sprintf("slide_%d", i)
			doc.RegisterImageOptionsReader(imgName, gofpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(shot))
			doc.ImageOptions(imgName, 0, 0, domain.CanvasWidth, domain.CanvasHeight, false, gofpdf.ImageOptions{ImageType: "PNG"}, 0, "")

			if opts.IncludeNotes && pres.Slides[i].Notes != "" {
				addNotesPage(doc, i+1, pres.Slides[i].Notes)
			}

			if progress != nil {
				progress(docProgressBase + (i-start+1)*docProgressSpan/total)
			}
		}
	}

	outPath := r.artifacts.ArtifactPath(pres.Title, jobID, ".pdf")
	if err := doc.OutputFileAndClose(outPath); err != nil {
		return "", fmt.Errorf("write pdf: %w", err)
	}
	return outPath, nil
}

func addNotesPage(doc *gofpdf.Fpdf, slideNumber int, notes string) {
	doc.AddPage()
	doc.SetFont("Helvetica", "B", 28)
	doc.SetTextColor(0, 0, 0)
	doc.SetXY(72, 72)
	doc.CellFormat(0, 36, fmt.Sprintf("Notes for slide %d", slideNumber), "", 1, "L", false, 0, "")
	doc.SetFont("Helvetica", "", 20)
	doc.SetXY(72, 130)
	doc.MultiCell(domain.CanvasWidth-144, 28, notes, "", "L", false)
}
