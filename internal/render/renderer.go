package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"log/slog"

	"github.com/sozercan/vision-results/internal/actions"
	"github.com/sozercan/vision-results/internal/handoff"
)

// AlertDisplayFailed is shown when the results view could not be fully built.
const AlertDisplayFailed = "Error displaying results. Please try again."

//go:embed templates/*.html
var templateFS embed.FS

type Renderer struct {
	tmpl *template.Template
}

func New() (*Renderer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// ResultsPage is the data of the results view. Panel fields hold already
// rendered fragments so that a failure in one panel leaves the earlier ones
// intact.
type ResultsPage struct {
	Flash string
	Alert string

	Description string
	Images      template.HTML
	Objects     template.HTML
	Faces       template.HTML
	Lens        template.HTML
	Shopping    template.HTML

	Translations template.HTML
	Audio        template.HTML

	Languages   []actions.Language
	AutoNarrate bool
}

type IndexPage struct {
	Flash string
}

type imagesData struct {
	Original  ImagePanel
	Annotated *ImagePanel
}

// Results builds every panel of the results view in display order. Any
// error or panic stops the remaining panels and sets the page alert.
func (r *Renderer) Results(view *handoff.ViewState) (page *ResultsPage) {
	page = &ResultsPage{Languages: actions.SelectorLanguages}

	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("panic while rendering results", "panic", rec)
			page.Alert = AlertDisplayFailed
		}
	}()

	if err := r.fillPanels(page, view); err != nil {
		slog.Error("failed to render results", "error", err)
		page.Alert = AlertDisplayFailed
	}
	return page
}

func (r *Renderer) fillPanels(page *ResultsPage, view *handoff.ViewState) error {
	result := view.Result()
	var err error

	original, annotated := Images(view)
	if page.Images, err = r.fragment("images", imagesData{Original: original, Annotated: annotated}); err != nil {
		return err
	}
	if page.Objects, err = r.fragment("objects", Objects(result)); err != nil {
		return err
	}
	if page.Faces, err = r.fragment("faces", Faces(result)); err != nil {
		return err
	}

	page.Description = Description(result)

	if page.Shopping, err = r.fragment("shopping", Shopping(result)); err != nil {
		return err
	}
	page.Lens, err = r.fragment("lens", BuildLensInsights(result, page.Description, ImageURL(view)))
	return err
}

func (r *Renderer) fragment(name string, data any) (template.HTML, error) {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to render %s panel: %w", name, err)
	}
	return template.HTML(buf.String()), nil
}

func (r *Renderer) WriteResults(w io.Writer, page *ResultsPage) error {
	return r.tmpl.ExecuteTemplate(w, "results.html", page)
}

func (r *Renderer) WriteIndex(w io.Writer, page IndexPage) error {
	return r.tmpl.ExecuteTemplate(w, "index.html", page)
}

// WriteTranslateResult writes the refreshed translations and audio panels.
func (r *Renderer) WriteTranslateResult(w io.Writer, result *actions.TranslateResult) error {
	return r.tmpl.ExecuteTemplate(w, "translate_result", result)
}

// WriteAudio writes the refreshed audio panel.
func (r *Renderer) WriteAudio(w io.Writer, panel actions.AudioPanel) error {
	return r.tmpl.ExecuteTemplate(w, "audio", panel)
}

// AttachTranslation fills the translations and audio panels of a page.
func (r *Renderer) AttachTranslation(page *ResultsPage, result *actions.TranslateResult) error {
	var err error
	if page.Translations, err = r.fragment("translations", result.Translations); err != nil {
		return err
	}
	page.Audio, err = r.fragment("audio", result.Audio)
	return err
}
