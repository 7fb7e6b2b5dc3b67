package render

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/sozercan/vision-results/apimodels"
)

const (
	maxLensObjects = 6
	maxLensChips   = 8
)

// LensQueries builds the de-duplicated search queries for a result:
// celebrity names, then face attribute phrases, then the most common object
// labels. When nothing was detected the description is the only query.
func LensQueries(r *apimodels.AnalysisResult, description string) []string {
	var queries []string
	seen := make(map[string]bool)
	add := func(q string) {
		if q == "" || seen[q] {
			return
		}
		seen[q] = true
		queries = append(queries, q)
	}

	for _, face := range r.Faces {
		if face.IsCelebrity && face.CelebrityName != "" {
			add(strings.TrimSpace(face.CelebrityName))
			continue
		}
		add(facePhrase(face))
	}

	counts := countClasses(r.Objects, true)
	if len(counts) > maxLensObjects {
		counts = counts[:maxLensObjects]
	}
	for _, c := range counts {
		if c.count > 1 {
			add(fmt.Sprintf("%d %ss", c.count, c.name))
		} else {
			add(c.name)
		}
	}

	if len(queries) == 0 && description != "" {
		queries = append(queries, description)
	}
	return queries
}

func facePhrase(face apimodels.FaceRecord) string {
	var parts []string
	if face.Emotion != "" {
		parts = append(parts, face.Emotion)
	}
	if face.Gender != "" {
		parts = append(parts, face.Gender)
	}
	if face.Age != "" {
		parts = append(parts, "around "+face.Age+" years old")
	}
	return strings.Join(parts, " ")
}

// LensLink is an outbound search link.
type LensLink struct {
	Icon  string
	Label string
	URL   string
}

type CelebrityRef struct {
	Name  string
	Links []LensLink
}

// LensInsights is the content of the lens insight cards.
type LensInsights struct {
	Summary     string
	Chips       []string
	Searches    []LensLink
	Celebrities []CelebrityRef
}

// BuildLensInsights derives the lens cards. imageURL is the public URL of the
// uploaded image and may be empty.
func BuildLensInsights(r *apimodels.AnalysisResult, description, imageURL string) LensInsights {
	insights := LensInsights{Summary: description}
	if insights.Summary == "" {
		insights.Summary = fallbackDescription + "."
	}

	queries := LensQueries(r, description)
	if len(queries) > 0 {
		insights.Chips = queries
		if len(insights.Chips) > maxLensChips {
			insights.Chips = insights.Chips[:maxLensChips]
		}
		insights.Searches = searchLinks(queries[0], imageURL)
	}

	for _, face := range r.Faces {
		if !face.IsCelebrity || face.CelebrityName == "" || face.CelebrityInfo == nil || face.CelebrityInfo.URL == "" {
			continue
		}
		q := escapeComponent(face.CelebrityName)
		insights.Celebrities = append(insights.Celebrities, CelebrityRef{
			Name: face.CelebrityName,
			Links: []LensLink{
				{Icon: "📖", Label: "Wikipedia", URL: face.CelebrityInfo.URL},
				{Icon: "🔍", Label: "Google", URL: "https://www.google.com/search?q=" + q},
				{Icon: "🖼️", Label: "Images", URL: "https://www.google.com/search?tbm=isch&q=" + q},
			},
		})
	}
	return insights
}

func searchLinks(query, imageURL string) []LensLink {
	q := escapeComponent(query)

	similar := "https://www.google.com/search?tbm=isch&q=" + q
	if imageURL != "" {
		similar = "https://www.google.com/searchbyimage?image_url=" + escapeComponent(imageURL)
	}

	return []LensLink{
		{Icon: "🔍", Label: "Google search", URL: "https://www.google.com/search?q=" + q},
		{Icon: "🖼️", Label: "Similar images (by image)", URL: similar},
		{Icon: "▶️", Label: "Related videos", URL: "https://www.youtube.com/results?search_query=" + q},
		{Icon: "🛒", Label: "Shopping results", URL: "https://www.google.com/search?tbm=shop&q=" + q},
	}
}

// escapeComponent percent-encodes s for use as a query value, encoding
// spaces as %20.
func escapeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
