package render

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/sozercan/vision-results/apimodels"
	"github.com/sozercan/vision-results/internal/handoff"
)

const uploadsPath = "/uploads/"

// Placeholders for empty panels.
const (
	NoObjects  = "No objects detected"
	NoFaces    = "No faces detected"
	NoShopping = "No shopping suggestions available"
)

// Filename returns the last element of a path written with either forward
// or backward slashes.
func Filename(path string) string {
	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		return path[i+1:]
	}
	return path
}

// UploadURL is the site-relative location of an uploaded file.
func UploadURL(path string) string {
	return uploadsPath + url.PathEscape(Filename(path))
}

// ImageURL is the absolute public URL of the uploaded image, or "" when the
// origin is unknown.
func ImageURL(view *handoff.ViewState) string {
	if view.Origin() == "" || Filename(view.ImagePath()) == "" {
		return ""
	}
	return strings.TrimRight(view.Origin(), "/") + UploadURL(view.ImagePath())
}

type ImagePanel struct {
	Src string
	Alt string
}

// Images returns the source image panel and, when the result names one, the
// annotated image panel.
func Images(view *handoff.ViewState) (ImagePanel, *ImagePanel) {
	original := ImagePanel{Src: UploadURL(view.ImagePath()), Alt: "Uploaded image"}
	if view.Result().AnnotatedImage == "" {
		return original, nil
	}
	return original, &ImagePanel{Src: UploadURL(view.Result().AnnotatedImage), Alt: "Annotated image"}
}

type ObjectRow struct {
	Name       string
	Confidence string
}

func Objects(r *apimodels.AnalysisResult) []ObjectRow {
	rows := make([]ObjectRow, 0, len(r.Objects))
	for _, obj := range r.Objects {
		rows = append(rows, ObjectRow{Name: obj.Class, Confidence: FormatConfidence(obj)})
	}
	return rows
}

// FormatConfidence renders a 0–1 confidence as a percentage with one decimal.
func FormatConfidence(obj apimodels.DetectedObject) string {
	if !obj.HasConfidence {
		return "n/a"
	}
	return fmt.Sprintf("%.1f%%", obj.Confidence*100)
}

// FaceCard is either a celebrity card or a plain card. The celebrity fields
// are left empty on plain cards.
type FaceCard struct {
	Celebrity bool

	Gender  string
	Age     string
	Emotion string

	Name       string
	Category   string
	Confidence string
	Summary    string
	ArticleURL string
}

func Faces(r *apimodels.AnalysisResult) []FaceCard {
	cards := make([]FaceCard, 0, len(r.Faces))
	for _, face := range r.Faces {
		card := FaceCard{Gender: face.Gender, Age: face.Age, Emotion: face.Emotion}
		if face.IsCelebrity && face.CelebrityInfo != nil {
			card.Celebrity = true
			card.Name = face.CelebrityName
			card.Category = face.CelebrityCategory
			if card.Category == "" {
				card.Category = "⭐ Celebrity"
			}
			card.Confidence = face.CelebrityConfidence
			card.Summary = face.CelebrityInfo.Summary
			card.ArticleURL = face.CelebrityInfo.URL
		}
		cards = append(cards, card)
	}
	return cards
}

type ShoppingSection struct {
	Title       string
	Count       int
	Description string
	Links       []apimodels.ShoppingLink
}

// ShowCount reports whether the count is worth printing next to the title.
func (s ShoppingSection) ShowCount() bool {
	return s.Count > 1
}

func Shopping(r *apimodels.AnalysisResult) []ShoppingSection {
	sections := make([]ShoppingSection, 0, len(r.ShoppingLinks))
	for _, entry := range r.ShoppingLinks {
		sections = append(sections, ShoppingSection{
			Title:       entry.Name,
			Count:       entry.Count,
			Description: entry.Description,
			Links:       entry.Links,
		})
	}
	return sections
}
