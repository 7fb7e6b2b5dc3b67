package render

import (
	"fmt"
	"strings"

	"github.com/sozercan/vision-results/apimodels"
)

const (
	fallbackDescription = "Image analyzed successfully"
	maxDescribedObjects = 5
)

// Description picks the description text for a result: the detailed
// description, then the short description, then a synthesized one.
func Description(r *apimodels.AnalysisResult) string {
	if text := r.DetailedDescription.Text(); text != "" {
		return text
	}
	if r.Description != "" {
		return r.Description
	}
	return Synthesize(r)
}

// Synthesize describes a result from its faces and objects.
func Synthesize(r *apimodels.AnalysisResult) string {
	var b strings.Builder

	switch n := len(r.Faces); {
	case n == 1:
		face := r.Faces[0]
		if name := strings.TrimSpace(face.CelebrityName); face.IsCelebrity && name != "" {
			fmt.Fprintf(&b, "There is %s in the image", name)
		} else {
			gender := face.Gender
			if gender == "" {
				gender = "person"
			}
			b.WriteString("There is a")
			for _, part := range []string{face.Emotion, gender} {
				if part != "" {
					b.WriteString(" " + part)
				}
			}
			if face.Age != "" {
				fmt.Fprintf(&b, " around %s years old", face.Age)
			}
		}
	case n > 1:
		fmt.Fprintf(&b, "There are %d persons in the image", n)
	}

	if counts := countClasses(r.Objects, false); len(counts) > 0 {
		if len(counts) > maxDescribedObjects {
			counts = counts[:maxDescribedObjects]
		}
		parts := make([]string, len(counts))
		for i, c := range counts {
			if c.count > 1 {
				parts[i] = fmt.Sprintf("%d %ss", c.count, c.name)
			} else {
				parts[i] = "a " + c.name
			}
		}
		if b.Len() > 0 {
			b.WriteString(" with ")
		} else {
			b.WriteString("I can see ")
		}
		b.WriteString(strings.Join(parts, ", "))
	}

	if b.Len() == 0 {
		b.WriteString(fallbackDescription)
	}
	b.WriteString(".")
	return b.String()
}

type classCount struct {
	name  string
	count int
}

// countClasses counts objects per class in first-seen order. Objects without
// a class are ignored.
func countClasses(objects []apimodels.DetectedObject, lower bool) []classCount {
	var counts []classCount
	index := make(map[string]int)
	for _, obj := range objects {
		name := obj.Class
		if lower {
			name = strings.ToLower(name)
		}
		if name == "" {
			continue
		}
		if i, ok := index[name]; ok {
			counts[i].count++
			continue
		}
		index[name] = len(counts)
		counts = append(counts, classCount{name: name, count: 1})
	}
	return counts
}
