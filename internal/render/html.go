package render

import (
	"context"
	"fmt"
	"html/template"
	"os"

	"github.com/dunamismax/deckrender/internal/artifacts"
	"github.com/dunamismax/deckrender/internal/domain"
)

// HTMLRenderer emits a single self-contained player page: all slides inline,
// keyboard and button navigation with wrap-around, scaled to fit the window.
type HTMLRenderer struct {
	artifacts *artifacts.Manager
}

func NewHTMLRenderer(artifacts *artifacts.Manager) *HTMLRenderer {
	return &HTMLRenderer{artifacts: artifacts}
}

func (r *HTMLRenderer) Format() string { return domain.FormatHTML }

func (r *HTMLRenderer) Render(ctx context.Context, jobID string, pres domain.Presentation, opts domain.ExportOptions, progress ProgressFunc) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	start, end, empty := opts.Range(len(pres.Slides))
	var layers []template.HTML
	if !empty {
		for i := start; i <= end; i++ {
			layers = append(layers, template.HTML(slideMarkup(pres, pres.Slides[i])))
		}
	}

	outPath := r.artifacts.ArtifactPath(pres.Title, jobID, ".html")
	out, err := os.Create(outPath)
	if err != nil {
		return "", fmt.Errorf("create html artifact: %w", err)
	}
	defer out.Close()

	data := playerData{
		Title:      pres.Title,
		BodyFont:   pres.Theme.Fonts.Body,
		Slides:     layers,
		SlideCount: len(layers),
	}
	if err := playerTemplate.Execute(out, data); err != nil {
		return "", fmt.Errorf("render html artifact: %w", err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("flush html artifact: %w", err)
	}
	return outPath, nil
}

type playerData struct {
	Title      string
	BodyFont   string
	Slides     []template.HTML
	SlideCount int
}

var playerTemplate = template.Must(template.New("player").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>{{.Title}}</title>
<style>
* { margin: 0; padding: 0; box-sizing: border-box; }
body { {{if .BodyFont}}font-family: {{.BodyFont}};{{end}} background: #000; overflow: hidden; }
#presentation { width: 100vw; height: 100vh; display: flex; align-items: center; justify-content: center; }
#presentation > .slide { display: none; transform-origin: center; }
#presentation > .slide.active { display: block; }
#controls { position: fixed; bottom: 20px; left: 50%; transform: translateX(-50%); background: rgba(0, 0, 0, 0.7); padding: 10px 20px; border-radius: 5px; display: flex; gap: 10px; z-index: 10000; }
#controls button { background: #fff; border: none; padding: 10px 20px; border-radius: 3px; cursor: pointer; font-size: 14px; }
#controls button:hover { background: #eee; }
#slide-number { color: #fff; line-height: 40px; padding: 0 15px; }
</style>
</head>
<body>
<div id="presentation">
{{range .Slides}}{{.}}
{{end}}</div>
<div id="controls">
<button id="prev">&larr; Previous</button>
<span id="slide-number">1 / {{.SlideCount}}</span>
<button id="next">Next &rarr;</button>
</div>
<script>
let currentSlide = 0;
const slides = document.querySelectorAll('#presentation > .slide');
const slideNumber = document.getElementById('slide-number');

function showSlide(n) {
  if (slides.length === 0) return;
  slides[currentSlide].classList.remove('active');
  currentSlide = (n + slides.length) % slides.length;
  slides[currentSlide].classList.add('active');
  slideNumber.textContent = (currentSlide + 1) + ' / ' + slides.length;
  scaleSlide();
}

function scaleSlide() {
  if (slides.length === 0) return;
  const container = document.getElementById('presentation');
  const slide = slides[currentSlide];
  const scale = Math.min(container.clientWidth / 1920, container.clientHeight / 1080);
  slide.style.transform = 'scale(' + scale + ')';
}

document.getElementById('prev').addEventListener('click', () => showSlide(currentSlide - 1));
document.getElementById('next').addEventListener('click', () => showSlide(currentSlide + 1));
document.addEventListener('keydown', (e) => {
  if (e.key === 'ArrowLeft') showSlide(currentSlide - 1);
  if (e.key === 'ArrowRight') showSlide(currentSlide + 1);
});
window.addEventListener('resize', scaleSlide);
showSlide(0);
</script>
</body>
</html>
`))
