package render

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	ppt "github.com/VantageDataChat/GoPPT"

	"github.com/dunamismax/deckrender/internal/artifacts"
	"github.com/dunamismax/deckrender/internal/domain"
)

// PPTX geometry. Decks target a 16:9 layout of 10 x 5.625 inches; the logical
// canvas maps linearly onto it.
const (
	emuPerInch       = 914400
	pptxSlideWidthIn = 10.0
	pptxSlideHghtIn  = 5.625

	pptxSlideWidthEMU = int64(pptxSlideWidthIn * emuPerInch)
	pptxSlideHghtEMU  = int64(pptxSlideHghtIn * emuPerInch)

	pptxDefaultFontSize  = 18
	pptxDefaultTextColor = "FF000000"
	pptxDefaultShapeFill = "FFCCCCCC"

	// Canvas pixels; used when a stroked shape carries no explicit width.
	defaultStrokeWidth = 2.0
)

// PPTXRenderer rebuilds each slide as native PowerPoint shapes instead of
// rasterizing, so the output stays editable.
type PPTXRenderer struct {
	artifacts *artifacts.Manager
	images    *imageLoader
}

func NewPPTXRenderer(artifacts *artifacts.Manager) *PPTXRenderer {
	return &PPTXRenderer{artifacts: artifacts, images: newImageLoader()}
}

func (r *PPTXRenderer) Format() string { return domain.FormatPPTX }

func (r *PPTXRenderer) Render(ctx context.Context, jobID string, pres domain.Presentation, opts domain.ExportOptions, progress ProgressFunc) (string, error) {
	deck := ppt.New()
	deck.GetDocumentProperties().Title = pres.Title
	deck.GetDocumentProperties().Creator = "deckrender"

	start, end, empty := opts.Range(len(pres.Slides))
	if !empty {
		total := end - start + 1
		first := true
		for i := start; i <= end; i++ {
			if err := ctx.Err(); err != nil {
				return "", err
			}

			// A new document already carries one empty slide.
			var slide *ppt.Slide
			if first {
				slide = deck.GetActiveSlide()
				first = false
			} else {
				slide = deck.CreateSlide()
			}

			if err := r.buildSlide(ctx, slide, pres, pres.Slides[i]); err != nil {
				return "", fmt.Errorf("build slide %d: %w", i+1, err)
			}

			if opts.IncludeNotes && pres.Slides[i].Notes != "" {
				buildNotesSlide(deck.CreateSlide(), i+1, pres.Slides[i].Notes)
			}

			if progress != nil {
				progress(docProgressBase + (i-start+1)*docProgressSpan/total)
			}
		}
	}

	w, err := ppt.NewWriter(deck, ppt.WriterPowerPoint2007)
	if err != nil {
		return "", fmt.Errorf("create pptx writer: %w", err)
	}
	var buf bytes.Buffer
	if err := w.(*ppt.PPTXWriter).WriteTo(&buf); err != nil {
		return "", fmt.Errorf("serialize pptx: %w", err)
	}

	outPath := r.artifacts.ArtifactPath(pres.Title, jobID, ".pptx")
	if err := os.WriteFile(outPath, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("write pptx: %w", err)
	}
	return outPath, nil
}

func (r *PPTXRenderer) buildSlide(ctx context.Context, slide *ppt.Slide, pres domain.Presentation, src domain.Slide) error {
	r.buildBackground(ctx, slide, pres, src)

	// Shape z-order in the deck is creation order, so stack elements before
	// emitting them.
	elements := append([]domain.SlideElement(nil), src.Elements...)
	sort.SliceStable(elements, func(a, b int) bool {
		return elements[a].ZIndex < elements[b].ZIndex
	})

	for _, el := range elements {
		switch el.Type {
		case domain.ElementTypeText:
			buildTextShape(slide, pres, el)
		case domain.ElementTypeImage:
			r.buildImageShape(ctx, slide, el)
		case domain.ElementTypeShape:
			buildRectShape(slide, el)
		}
	}
	return nil
}

func (r *PPTXRenderer) buildBackground(ctx context.Context, slide *ppt.Slide, pres domain.Presentation, src domain.Slide) {
	bg := src.Background
	if bg != nil && bg.Type == domain.BackgroundTypeImage {
		if data, mime, err := r.images.Load(ctx, bg.Value); err == nil {
			img := slide.CreateDrawingShape()
			img.SetImageData(data, mime)
			img.SetOffsetX(0).SetOffsetY(0)
			img.SetWidth(pptxSlideWidthEMU).SetHeight(pptxSlideHghtEMU)
			return
		}
		// Unloadable background image degrades to the theme color.
	}

	color := pres.Theme.Colors.Background
	if bg != nil && bg.Type == domain.BackgroundTypeColor {
		color = bg.Value
	}
	fill := slide.CreateRichTextShape()
	fill.SetOffsetX(0).SetOffsetY(0)
	fill.SetWidth(pptxSlideWidthEMU).SetHeight(pptxSlideHghtEMU)
	fill.SetFill(ppt.NewFill().SetSolid(ppt.NewColor(pptxColor(color, "FFFFFFFF"))))
}

func buildTextShape(slide *ppt.Slide, pres domain.Presentation, el domain.SlideElement) {
	shape := slide.CreateRichTextShape()
	shape.SetOffsetX(emuX(el.Position.X)).SetOffsetY(emuY(el.Position.Y))
	shape.SetWidth(emuX(el.Size.Width)).SetHeight(emuY(el.Size.Height))

	size := pptxDefaultFontSize
	if el.Style.FontSize > 0 {
		size = int(el.Style.FontSize)
	}
	color := pptxColor(el.Style.Color, pptxColor(pres.Theme.Colors.Text, pptxDefaultTextColor))
	bold := el.Style.FontWeight == "bold"

	lines := strings.Split(el.Content.Text, "\n")
	for i, line := range lines {
		if i > 0 {
			shape.CreateParagraph()
		}
		tr := shape.CreateTextRun(line)
		tr.GetFont().SetSize(size).SetBold(bold).SetColor(ppt.NewColor(color))
		applyAlignment(shape.GetActiveParagraph(), el.Style.TextAlign)
	}
}

func (r *PPTXRenderer) buildImageShape(ctx context.Context, slide *ppt.Slide, el domain.SlideElement) {
	data, mime, err := r.images.Load(ctx, el.Content.Src)
	if err != nil {
		// Unresolvable assets become a labeled placeholder rather than
		// failing the whole deck.
		buildImagePlaceholder(slide, el)
		return
	}
	img := slide.CreateDrawingShape()
	img.SetImageData(data, mime)
	img.SetOffsetX(emuX(el.Position.X)).SetOffsetY(emuY(el.Position.Y))
	img.SetWidth(emuX(el.Size.Width)).SetHeight(emuY(el.Size.Height))
}

func buildImagePlaceholder(slide *ppt.Slide, el domain.SlideElement) {
	ph := slide.CreateRichTextShape()
	ph.SetOffsetX(emuX(el.Position.X)).SetOffsetY(emuY(el.Position.Y))
	ph.SetWidth(emuX(el.Size.Width)).SetHeight(emuY(el.Size.Height))
	ph.SetFill(ppt.NewFill().SetSolid(ppt.NewColor("FFEEEEEE")))
	tr := ph.CreateTextRun("[image unavailable]")
	tr.GetFont().SetSize(12).SetColor(ppt.NewColor("FF888888"))
	applyAlignment(ph.GetActiveParagraph(), "center")
}

func buildRectShape(slide *ppt.Slide, el domain.SlideElement) {
	x, y := el.Position.X, el.Position.Y
	w, h := el.Size.Width, el.Size.Height

	// An outline is a stroke-colored rectangle with the fill inset on top of
	// it, so it only appears when a stroke color is set.
	if el.Style.Stroke != "" {
		sw := el.Style.StrokeWidth
		if sw <= 0 {
			sw = defaultStrokeWidth
		}
		border := slide.CreateRichTextShape()
		border.SetOffsetX(emuX(x)).SetOffsetY(emuY(y))
		border.SetWidth(emuX(w)).SetHeight(emuY(h))
		border.SetFill(ppt.NewFill().SetSolid(ppt.NewColor(pptxColor(el.Style.Stroke, pptxDefaultShapeFill))))

		x += sw
		y += sw
		w = max(w-2*sw, 1)
		h = max(h-2*sw, 1)
	}

	shape := slide.CreateRichTextShape()
	shape.SetOffsetX(emuX(x)).SetOffsetY(emuY(y))
	shape.SetWidth(emuX(w)).SetHeight(emuY(h))
	shape.SetFill(ppt.NewFill().SetSolid(ppt.NewColor(pptxColor(el.Style.Fill, pptxDefaultShapeFill))))
}

func buildNotesSlide(slide *ppt.Slide, slideNumber int, notes string) {
	heading := slide.CreateRichTextShape()
	heading.SetOffsetX(int64(0.4 * emuPerInch)).SetOffsetY(int64(0.3 * emuPerInch))
	heading.SetWidth(int64(9.2 * emuPerInch)).SetHeight(int64(0.6 * emuPerInch))
	tr := heading.CreateTextRun(fmt.Sprintf("Notes for slide %d", slideNumber))
	tr.GetFont().SetSize(24).SetBold(true).SetColor(ppt.NewColor(pptxDefaultTextColor))

	body := slide.CreateRichTextShape()
	body.SetOffsetX(int64(0.4 * emuPerInch)).SetOffsetY(int64(1.1 * emuPerInch))
	body.SetWidth(int64(9.2 * emuPerInch)).SetHeight(int64(4.2 * emuPerInch))
	for i, line := range strings.Split(notes, "\n") {
		if i > 0 {
			body.CreateParagraph()
		}
		btr := body.CreateTextRun(line)
		btr.GetFont().SetSize(14).SetColor(ppt.NewColor(pptxDefaultTextColor))
	}
}

func applyAlignment(para *ppt.Paragraph, align string) {
	switch align {
	case "center":
		para.SetAlignment(ppt.NewAlignment().SetHorizontal(ppt.HorizontalCenter))
	case "right":
		para.SetAlignment(ppt.NewAlignment().SetHorizontal(ppt.HorizontalRight))
	}
}

func emuX(px float64) int64 {
	return int64(px / domain.CanvasWidth * pptxSlideWidthIn * emuPerInch)
}

func emuY(px float64) int64 {
	return int64(px / domain.CanvasHeight * pptxSlideHghtIn * emuPerInch)
}

// pptxColor normalizes a CSS hex color to the deck's AARRGGBB form.
func pptxColor(css, fallback string) string {
	c := strings.TrimSpace(strings.TrimPrefix(css, "#"))
	switch len(c) {
	case 3:
		var b strings.Builder
		for _, r := range c {
			b.WriteRune(r)
			b.WriteRune(r)
		}
		c = b.String()
	case 6:
	case 8:
		return strings.ToUpper(c)
	default:
		return fallback
	}
	for _, r := range c {
		if !isHexDigit(r) {
			return fallback
		}
	}
	return "FF" + strings.ToUpper(c)
}

func isHexDigit(r rune) bool {
	switch {
	case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
		return true
	}
	return false
}
