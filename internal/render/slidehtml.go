package render

import (
	"fmt"
	"html"
	"strings"

	"github.com/dunamismax/deckrender/internal/domain"
)

// slideMarkup renders one slide as a positioned div subtree. The same markup
// feeds both the headless-browser capture path and the standalone HTML
// artifact, so the two outputs cannot drift apart.
func slideMarkup(pres domain.Presentation, slide domain.Slide) string {
	var b strings.Builder

	b.WriteString(`<div class="slide" style="`)
	b.WriteString(fmt.Sprintf("width:%dpx;height:%dpx;", domain.CanvasWidth, domain.CanvasHeight))
	b.WriteString("position:relative;overflow:hidden;")
	b.WriteString(backgroundCSS(pres, slide))
	b.WriteString(`">`)

	for _, el := range slide.Elements {
		b.WriteString(elementMarkup(pres, el))
	}

	b.WriteString("</div>")
	return b.String()
}

func backgroundCSS(pres domain.Presentation, slide domain.Slide) string {
	bg := slide.Background
	if bg == nil {
		color := pres.Theme.Colors.Background
		if color == "" {
			color = "#ffffff"
		}
		return fmt.Sprintf("background-color:%s;", cssValue(color))
	}
	switch bg.Type {
	case domain.BackgroundTypeImage:
		return fmt.Sprintf("background-image:url('%s');background-size:cover;background-position:center;", cssURL(bg.Value))
	default:
		return fmt.Sprintf("background-color:%s;", cssValue(bg.Value))
	}
}

func elementMarkup(pres domain.Presentation, el domain.SlideElement) string {
	var style strings.Builder
	style.WriteString("position:absolute;")
	style.WriteString(fmt.Sprintf("left:%gpx;top:%gpx;width:%gpx;height:%gpx;", el.Position.X, el.Position.Y, el.Size.Width, el.Size.Height))
	if el.Rotation != 0 {
		style.WriteString(fmt.Sprintf("transform:rotate(%gdeg);", el.Rotation))
	}
	if el.ZIndex != 0 {
		style.WriteString(fmt.Sprintf("z-index:%d;", el.ZIndex))
	}
	if el.Style.Opacity > 0 && el.Style.Opacity < 1 {
		style.WriteString(fmt.Sprintf("opacity:%g;", el.Style.Opacity))
	}

	switch el.Type {
	case domain.ElementTypeText:
		style.WriteString(textCSS(pres, el.Style))
		return fmt.Sprintf(`<div class="element text" style="%s">%s</div>`, style.String(), textHTML(el.Content.Text))
	case domain.ElementTypeImage:
		return fmt.Sprintf(`<div class="element image" style="%s"><img src="%s" style="width:100%%;height:100%%;object-fit:contain;" alt=""></div>`,
			style.String(), html.EscapeString(el.Content.Src))
	case domain.ElementTypeShape:
		style.WriteString(shapeCSS(el.Style))
		return fmt.Sprintf(`<div class="element shape" style="%s"></div>`, style.String())
	}
	return ""
}

func textCSS(pres domain.Presentation, s domain.ElementStyle) string {
	var b strings.Builder
	if s.FontSize > 0 {
		b.WriteString(fmt.Sprintf("font-size:%gpx;", s.FontSize))
	}
	family := s.FontFamily
	if family == "" {
		family = pres.Theme.Fonts.Body
	}
	if family != "" {
		b.WriteString(fmt.Sprintf("font-family:%s;", cssValue(family)))
	}
	if s.FontWeight != "" {
		b.WriteString(fmt.Sprintf("font-weight:%s;", cssValue(s.FontWeight)))
	}
	color := s.Color
	if color == "" {
		color = pres.Theme.Colors.Text
	}
	if color != "" {
		b.WriteString(fmt.Sprintf("color:%s;", cssValue(color)))
	}
	if s.TextAlign != "" {
		b.WriteString(fmt.Sprintf("text-align:%s;", cssValue(s.TextAlign)))
	}
	return b.String()
}

func shapeCSS(s domain.ElementStyle) string {
	var b strings.Builder
	if s.Fill != "" {
		b.WriteString(fmt.Sprintf("background-color:%s;", cssValue(s.Fill)))
	}
	if s.Stroke != "" && s.StrokeWidth > 0 {
		b.WriteString(fmt.Sprintf("border:%gpx solid %s;", s.StrokeWidth, cssValue(s.Stroke)))
	}
	return b.String()
}

// textHTML escapes user text and preserves authored line breaks.
func textHTML(text string) string {
	escaped := html.EscapeString(text)
	return strings.ReplaceAll(escaped, "\n", "<br>")
}

// cssValue strips characters that could break out of an inline style
// declaration. Values are author-controlled, not arbitrary CSS.
func cssValue(v string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ';', '{', '}', '<', '>', '"', '\'':
			return -1
		}
		return r
	}, v)
}

func cssURL(v string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '\'', '"', '(', ')', '<', '>':
			return -1
		}
		return r
	}, v)
}

// slideDocument wraps one slide's markup in a standalone page sized exactly
// to the canvas, for headless capture.
func slideDocument(pres domain.Presentation, slide domain.Slide) string {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html><html><head><meta charset=\"utf-8\"><style>")
	b.WriteString("html,body{margin:0;padding:0;}")
	if pres.Theme.Fonts.Body != "" {
		b.WriteString(fmt.Sprintf("body{font-family:%s;}", cssValue(pres.Theme.Fonts.Body)))
	}
	b.WriteString("</style></head><body>")
	b.WriteString(slideMarkup(pres, slide))
	b.WriteString("</body></html>")
	return b.String()
}
