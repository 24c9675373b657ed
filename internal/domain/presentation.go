package domain

// Slides are authored against a fixed logical canvas; every renderer maps
// element coordinates out of this space.
const (
	CanvasWidth  = 1920
	CanvasHeight = 1080
)

const (
	BackgroundTypeColor = "color"
	BackgroundTypeImage = "image"

	ElementTypeText  = "text"
	ElementTypeImage = "image"
	ElementTypeShape = "shape"
)

// Presentation is a fully materialized deck: slides already loaded, never a
// lazy reference. The export pipeline treats it as read-only.
type Presentation struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Theme       Theme   `json:"theme"`
	Slides      []Slide `json:"slides"`
}

type Theme struct {
	Colors ThemeColors `json:"colors"`
	Fonts  ThemeFonts  `json:"fonts"`
}

type ThemeColors struct {
	Background string `json:"background"`
	Text       string `json:"text"`
}

type ThemeFonts struct {
	Heading string `json:"heading"`
	Body    string `json:"body"`
}

type Slide struct {
	ID         string         `json:"id"`
	Background *Background    `json:"background,omitempty"`
	Elements   []SlideElement `json:"elements"`
	Notes      string         `json:"notes,omitempty"`
}

type Background struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type SlideElement struct {
	ID       string         `json:"id"`
	Type     string         `json:"type"`
	Position Point          `json:"position"`
	Size     Dimensions     `json:"size"`
	Rotation float64        `json:"rotation,omitempty"`
	ZIndex   int            `json:"zIndex,omitempty"`
	Content  ElementContent `json:"content"`
	Style    ElementStyle   `json:"style"`
}

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Dimensions struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ElementContent carries the payload for whichever element type is set:
// Text for text elements, Src for image elements.
type ElementContent struct {
	Text string `json:"text,omitempty"`
	Src  string `json:"src,omitempty"`
}

type ElementStyle struct {
	FontSize    float64 `json:"fontSize,omitempty"`
	FontFamily  string  `json:"fontFamily,omitempty"`
	FontWeight  string  `json:"fontWeight,omitempty"`
	Color       string  `json:"color,omitempty"`
	TextAlign   string  `json:"textAlign,omitempty"`
	Opacity     float64 `json:"opacity,omitempty"`
	Fill        string  `json:"fill,omitempty"`
	Stroke      string  `json:"stroke,omitempty"`
	StrokeWidth float64 `json:"strokeWidth,omitempty"`
}
