package apimodels

import (
	"encoding/json"
	"errors"
	"fmt"
)

// AnalysisResult is the analysis document produced by the backend for one
// uploaded image. Every member is optional; members with an unexpected
// shape decode as absent.
type AnalysisResult struct {
	// Detected objects in detection order
	Objects []DetectedObject

	// Faces found in the image
	Faces []FaceRecord

	// Long form description, either a plain string or {full_description}
	DetailedDescription *DetailedDescription

	// Short description used when no detailed description is present
	Description string

	// Path of the image with bounding boxes drawn, if any
	AnnotatedImage string

	// Path of the analysed image as seen by the backend
	OriginalImage string

	PersonDetected bool
	Timestamp      string

	// Shopping suggestions in document order
	ShoppingLinks []ShoppingEntry

	raw json.RawMessage
}

type DetectedObject struct {
	Class         string
	Confidence    float64
	HasConfidence bool
}

// FaceRecord describes one face. Celebrity fields are only meaningful when
// IsCelebrity is set.
type FaceRecord struct {
	Gender  string
	Age     string
	Emotion string

	IsCelebrity         bool
	CelebrityName       string
	CelebrityCategory   string
	CelebrityConfidence string
	CelebrityInfo       *CelebrityInfo
}

type CelebrityInfo struct {
	Summary string
	URL     string
}

// DetailedDescription keeps track of which of the two accepted shapes was
// received.
type DetailedDescription struct {
	Plain           string
	FullDescription string
	Structured      bool
}

// Text returns the usable description text, or "" when there is none.
func (d *DetailedDescription) Text() string {
	if d == nil {
		return ""
	}
	if d.Structured {
		return d.FullDescription
	}
	return d.Plain
}

type ShoppingEntry struct {
	Name        string
	Count       int
	Description string
	Links       []ShoppingLink
}

type ShoppingLink struct {
	URL         string
	Icon        string
	Name        string
	Description string
}

// ParseAnalysisResult decodes an analysis document. It fails only when data
// is not a JSON object.
func ParseAnalysisResult(data []byte) (*AnalysisResult, error) {
	var r AnalysisResult
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (r *AnalysisResult) UnmarshalJSON(data []byte) error {
	_, m, err := decodeObject(data)
	if err != nil {
		return fmt.Errorf("analysis result: %w", err)
	}

	*r = AnalysisResult{raw: append(json.RawMessage(nil), data...)}

	if items, ok := asArray(m["objects"]); ok {
		for _, item := range items {
			if obj, ok := parseObject(item); ok {
				r.Objects = append(r.Objects, obj)
			}
		}
	}
	if items, ok := asArray(m["faces"]); ok {
		for _, item := range items {
			if face, ok := parseFace(item); ok {
				r.Faces = append(r.Faces, face)
			}
		}
	}
	r.DetailedDescription = parseDetailedDescription(m["detailed_description"])
	r.Description, _ = asString(m["description"])
	r.AnnotatedImage, _ = asString(m["annotated_image"])
	r.OriginalImage, _ = asString(m["original_image"])
	r.Timestamp, _ = asString(m["timestamp"])
	r.PersonDetected = asBool(m["person_detected"])

	if keys, members, ok := asObject(m["shopping_links"]); ok {
		for _, key := range keys {
			r.ShoppingLinks = append(r.ShoppingLinks, parseShoppingEntry(key, members[key]))
		}
	}
	return nil
}

// ErrNoDocument is returned when encoding a result that was not decoded
// from a backend document.
var ErrNoDocument = errors.New("analysis result has no source document")

// MarshalJSON re-emits the document exactly as it was received.
func (r AnalysisResult) MarshalJSON() ([]byte, error) {
	if len(r.raw) == 0 {
		return nil, ErrNoDocument
	}
	return r.raw, nil
}

func parseObject(raw json.RawMessage) (DetectedObject, bool) {
	_, m, ok := asObject(raw)
	if !ok {
		return DetectedObject{}, false
	}
	var obj DetectedObject
	obj.Class, _ = asString(m["class"])
	obj.Confidence, obj.HasConfidence = asFloat(m["confidence"])
	return obj, true
}

func parseFace(raw json.RawMessage) (FaceRecord, bool) {
	_, m, ok := asObject(raw)
	if !ok {
		return FaceRecord{}, false
	}
	var face FaceRecord
	face.Gender, _ = asString(m["gender"])
	face.Age, _ = asString(m["age"])
	face.Emotion, _ = asString(m["emotion"])
	face.IsCelebrity = asBool(m["is_celebrity"])
	face.CelebrityName, _ = asString(m["celebrity_name"])
	face.CelebrityCategory, _ = asString(m["celebrity_category"])
	face.CelebrityConfidence, _ = asString(m["celebrity_confidence"])
	if _, info, ok := asObject(m["celebrity_info"]); ok {
		face.CelebrityInfo = &CelebrityInfo{}
		face.CelebrityInfo.Summary, _ = asString(info["summary"])
		face.CelebrityInfo.URL, _ = asString(info["url"])
	}
	return face, true
}

func parseDetailedDescription(raw json.RawMessage) *DetailedDescription {
	if s, ok := asString(raw); ok {
		return &DetailedDescription{Plain: s}
	}
	if _, m, ok := asObject(raw); ok {
		d := &DetailedDescription{Structured: true}
		d.FullDescription, _ = asString(m["full_description"])
		return d
	}
	return nil
}

func parseShoppingEntry(name string, raw json.RawMessage) ShoppingEntry {
	entry := ShoppingEntry{Name: name}
	_, m, ok := asObject(raw)
	if !ok {
		return entry
	}
	if n, ok := asFloat(m["count"]); ok {
		entry.Count = int(n)
	}
	entry.Description, _ = asString(m["description"])
	if items, ok := asArray(m["shopping_links"]); ok {
		for _, item := range items {
			_, l, ok := asObject(item)
			if !ok {
				continue
			}
			var link ShoppingLink
			link.URL, _ = asString(l["url"])
			link.Icon, _ = asString(l["icon"])
			link.Name, _ = asString(l["name"])
			link.Description, _ = asString(l["description"])
			entry.Links = append(entry.Links, link)
		}
	}
	return entry
}
