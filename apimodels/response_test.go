package apimodels

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAnalysisResult(t *testing.T) {
	doc := `{
  "objects": [{"class": "cup", "confidence": 0.923}, {"class": "dog"}],
  "faces": [
    {"gender": "woman", "age": 30, "emotion": "happy", "is_celebrity": false},
    {"gender": "man", "age": "41", "emotion": "neutral", "is_celebrity": true,
     "celebrity_name": "Jane Roe", "celebrity_category": "Actor", "celebrity_confidence": 87.5,
     "celebrity_info": {"summary": "An actor.", "url": "https://en.wikipedia.org/wiki/Jane_Roe"}}
  ],
  "detailed_description": {"full_description": "A dog", "line_count": 1},
  "description": "ignored",
  "annotated_image": "uploads/annotated_x.png",
  "person_detected": true,
  "shopping_links": {
    "zebra": {"count": 2, "description": "2 zebras detected.", "shopping_links": [
      {"name": "Amazon", "url": "https://www.amazon.com/s?k=zebra", "icon": "🛒", "description": "Search"}
    ]},
    "apple": {"count": 1, "description": "One apple detected.", "shopping_links": []}
  }
}`

	r, err := ParseAnalysisResult([]byte(doc))
	require.NoError(t, err)

	require.Len(t, r.Objects, 2)
	assert.Equal(t, "cup", r.Objects[0].Class)
	assert.InDelta(t, 0.923, r.Objects[0].Confidence, 1e-9)
	assert.True(t, r.Objects[0].HasConfidence)
	assert.False(t, r.Objects[1].HasConfidence)

	require.Len(t, r.Faces, 2)
	assert.Equal(t, "30", r.Faces[0].Age)
	assert.False(t, r.Faces[0].IsCelebrity)
	assert.Nil(t, r.Faces[0].CelebrityInfo)
	assert.Equal(t, "41", r.Faces[1].Age)
	assert.Equal(t, "87.5", r.Faces[1].CelebrityConfidence)
	require.NotNil(t, r.Faces[1].CelebrityInfo)
	assert.Equal(t, "https://en.wikipedia.org/wiki/Jane_Roe", r.Faces[1].CelebrityInfo.URL)

	assert.Equal(t, "A dog", r.DetailedDescription.Text())
	assert.True(t, r.PersonDetected)

	// shopping sections keep document order, not alphabetical order
	require.Len(t, r.ShoppingLinks, 2)
	assert.Equal(t, "zebra", r.ShoppingLinks[0].Name)
	assert.Equal(t, 2, r.ShoppingLinks[0].Count)
	assert.Len(t, r.ShoppingLinks[0].Links, 1)
	assert.Equal(t, "apple", r.ShoppingLinks[1].Name)
}

func TestParseAnalysisResult_DegradesBadFields(t *testing.T) {
	doc := `{"objects": "nope", "faces": [42, {"gender": "man"}], "detailed_description": 7,
	         "shopping_links": [], "description": {"x": 1}}`

	r, err := ParseAnalysisResult([]byte(doc))
	require.NoError(t, err)

	assert.Empty(t, r.Objects)
	require.Len(t, r.Faces, 1)
	assert.Equal(t, "man", r.Faces[0].Gender)
	assert.Empty(t, r.ShoppingLinks)
	assert.Empty(t, r.Description)
	// a bare number is accepted as a plain string description
	assert.Equal(t, "7", r.DetailedDescription.Text())
}

func TestParseAnalysisResult_Malformed(t *testing.T) {
	for _, doc := range []string{"", "not json", "[1,2]", `"text"`, `{"objects": [`} {
		_, err := ParseAnalysisResult([]byte(doc))
		assert.Error(t, err, "expected error for %q", doc)
	}
}

func TestAnalysisResult_MarshalKeepsReceivedDocument(t *testing.T) {
	doc := `{"objects":[],"custom_field":{"kept":true}}`
	r, err := ParseAnalysisResult([]byte(doc))
	require.NoError(t, err)

	out, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, doc, string(out))
}

func TestAnalysisResult_MarshalWithoutDocumentFails(t *testing.T) {
	r := AnalysisResult{Description: "a cup"}

	_, err := json.Marshal(r)
	assert.ErrorIs(t, err, ErrNoDocument)
}

func TestTranslationMap_KeepsOrder(t *testing.T) {
	var resp TranslateResponse
	err := json.Unmarshal([]byte(`{"original":"hi","translations":{"te":"a","es":"b","de":"c"}}`), &resp)
	require.NoError(t, err)

	require.Len(t, resp.Translations, 3)
	assert.Equal(t, "te", resp.Translations[0].Language)
	assert.Equal(t, "es", resp.Translations[1].Language)
	assert.Equal(t, "de", resp.Translations[2].Language)

	assert.Equal(t, "b", resp.Translations[1].Text)

	out, err := json.Marshal(resp.Translations)
	require.NoError(t, err)
	assert.Equal(t, `{"te":"a","es":"b","de":"c"}`, string(out))
}
