package render

import (
	"bytes"
	"html/template"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sozercan/vision-results/apimodels"
	"github.com/sozercan/vision-results/internal/actions"
	"github.com/sozercan/vision-results/internal/handoff"
)

func parse(t *testing.T, doc string) *apimodels.AnalysisResult {
	t.Helper()
	r, err := apimodels.ParseAnalysisResult([]byte(doc))
	require.NoError(t, err)
	return r
}

func newRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := New()
	require.NoError(t, err)
	return r
}

func TestFilename(t *testing.T) {
	tests := map[string]string{
		`C:\tmp\x.png`: "x.png",
		"/tmp/x.png":   "x.png",
		"x.png":        "x.png",
		"uploads/":     "",
	}
	for in, want := range tests {
		assert.Equal(t, want, Filename(in), in)
	}
	assert.Equal(t, "/uploads/my%20photo.png", UploadURL("/data/my photo.png"))
}

func TestImageURL(t *testing.T) {
	view := handoff.NewViewState(&apimodels.AnalysisResult{}, `C:\up\cat.png`, "https://vision.example.com/")
	assert.Equal(t, "https://vision.example.com/uploads/cat.png", ImageURL(view))

	view = handoff.NewViewState(&apimodels.AnalysisResult{}, "cat.png", "")
	assert.Empty(t, ImageURL(view))
}

func TestDescription_Precedence(t *testing.T) {
	r := parse(t, `{"detailed_description":{"full_description":"A dog"},"description":"ignored"}`)
	assert.Equal(t, "A dog", Description(r))

	r = parse(t, `{"detailed_description":"Plain text","description":"ignored"}`)
	assert.Equal(t, "Plain text", Description(r))

	r = parse(t, `{"detailed_description":{"full_description":""},"description":"Short"}`)
	assert.Equal(t, "Short", Description(r))

	r = parse(t, `{"objects":[{"class":"cat"}]}`)
	assert.Equal(t, "I can see a cat.", Description(r))
}

func TestSynthesize(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{
			name: "single face with objects",
			doc:  `{"faces":[{"gender":"woman","age":30,"emotion":"happy"}],"objects":[{"class":"cup"},{"class":"cup"}]}`,
			want: "There is a happy woman around 30 years old with 2 cups.",
		},
		{
			name: "celebrity",
			doc:  `{"faces":[{"is_celebrity":true,"celebrity_name":"Ada Lovelace"}]}`,
			want: "There is Ada Lovelace in the image.",
		},
		{
			name: "face without attributes",
			doc:  `{"faces":[{}],"objects":[{"class":"cup"}]}`,
			want: "There is a person with a cup.",
		},
		{
			name: "face with age only",
			doc:  `{"faces":[{"age":40}]}`,
			want: "There is a person around 40 years old.",
		},
		{
			name: "celebrity without a name",
			doc:  `{"faces":[{"is_celebrity":true,"celebrity_name":"  ","emotion":"calm"}]}`,
			want: "There is a calm person.",
		},
		{
			name: "several faces",
			doc:  `{"faces":[{},{},{}]}`,
			want: "There are 3 persons in the image.",
		},
		{
			name: "objects only",
			doc:  `{"objects":[{"class":"dog"},{"class":"ball"},{"class":"dog"}]}`,
			want: "I can see 2 dogs, a ball.",
		},
		{
			name: "at most five classes",
			doc:  `{"objects":[{"class":"a"},{"class":"b"},{"class":"c"},{"class":"d"},{"class":"e"},{"class":"f"}]}`,
			want: "I can see a a, a b, a c, a d, a e.",
		},
		{
			name: "nothing detected",
			doc:  `{}`,
			want: "Image analyzed successfully.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Synthesize(parse(t, tt.doc)))
		})
	}
}

func TestFormatConfidence(t *testing.T) {
	assert.Equal(t, "87.6%", FormatConfidence(apimodels.DetectedObject{Confidence: 0.876, HasConfidence: true}))
	assert.Equal(t, "100.0%", FormatConfidence(apimodels.DetectedObject{Confidence: 1, HasConfidence: true}))
	assert.Equal(t, "n/a", FormatConfidence(apimodels.DetectedObject{}))
}

func TestLensQueries(t *testing.T) {
	r := parse(t, `{
		"faces":[
			{"gender":"woman","age":30,"emotion":"happy"},
			{"gender":"woman","age":30,"emotion":"happy"},
			{"is_celebrity":true,"celebrity_name":" Ada Lovelace "}
		],
		"objects":[{"class":"Cup"},{"class":"cup"},{"class":"laptop"}]
	}`)
	assert.Equal(t, []string{"happy woman around 30 years old", "Ada Lovelace", "2 cups", "laptop"}, LensQueries(r, "ignored"))

	assert.Equal(t, []string{"A quiet street"}, LensQueries(parse(t, `{}`), "A quiet street"))
}

func TestBuildLensInsights(t *testing.T) {
	r := parse(t, `{
		"faces":[{"is_celebrity":true,"celebrity_name":"Ada Lovelace","celebrity_info":{"url":"https://en.wikipedia.org/wiki/Ada_Lovelace"}}],
		"objects":[{"class":"book"}]
	}`)
	insights := BuildLensInsights(r, "desc", "https://vision.example.com/uploads/a b.png")

	assert.Equal(t, "desc", insights.Summary)
	assert.Equal(t, []string{"Ada Lovelace", "book"}, insights.Chips)
	require.Len(t, insights.Searches, 4)
	assert.Equal(t, "https://www.google.com/search?q=Ada%20Lovelace", insights.Searches[0].URL)
	assert.Equal(t, "https://www.google.com/searchbyimage?image_url=https%3A%2F%2Fvision.example.com%2Fuploads%2Fa%20b.png", insights.Searches[1].URL)
	require.Len(t, insights.Celebrities, 1)
	assert.Equal(t, "https://en.wikipedia.org/wiki/Ada_Lovelace", insights.Celebrities[0].Links[0].URL)

	noImage := BuildLensInsights(r, "desc", "")
	assert.Equal(t, "https://www.google.com/search?tbm=isch&q=Ada%20Lovelace", noImage.Searches[1].URL)
}

func TestBuildLensInsights_ChipLimit(t *testing.T) {
	r := parse(t, `{
		"faces":[{"gender":"a"},{"gender":"b"},{"gender":"c"}],
		"objects":[{"class":"o1"},{"class":"o2"},{"class":"o3"},{"class":"o4"},{"class":"o5"},{"class":"o6"},{"class":"o7"}]
	}`)
	insights := BuildLensInsights(r, "desc", "")
	assert.Len(t, insights.Chips, 8)
	assert.Equal(t, "o5", insights.Chips[7])
}

func TestEscapeComponent(t *testing.T) {
	assert.Equal(t, "a%20b%2Bc%26d", escapeComponent("a b+c&d"))
}

func TestResults_EmptyPanels(t *testing.T) {
	page := newRenderer(t).Results(handoff.NewViewState(parse(t, `{}`), "/tmp/x.png", ""))

	assert.Empty(t, page.Alert)
	assert.Contains(t, string(page.Objects), `<p class="placeholder">`+NoObjects+`</p>`)
	assert.NotContains(t, string(page.Objects), "object-item")
	assert.Contains(t, string(page.Faces), NoFaces)
	assert.Contains(t, string(page.Shopping), NoShopping)
	assert.Contains(t, string(page.Images), `src="/uploads/x.png"`)
	assert.NotContains(t, string(page.Images), "annotatedImage")
	assert.Equal(t, "Image analyzed successfully.", page.Description)
	assert.Equal(t, actions.SelectorLanguages, page.Languages)
}

func TestResults_Panels(t *testing.T) {
	r := parse(t, `{
		"objects":[{"class":"cup","confidence":0.876}],
		"faces":[
			{"gender":"man","age":"40","emotion":"calm","is_celebrity":false,"celebrity_name":"Hidden Name"},
			{"gender":"woman","age":36,"emotion":"happy","is_celebrity":true,"celebrity_name":"Ada Lovelace",
			 "celebrity_confidence":"97","celebrity_info":{"summary":"Mathematician","url":"https://en.wikipedia.org/wiki/Ada_Lovelace"}}
		],
		"annotated_image":"out/annotated_x.png",
		"shopping_links":{
			"cup":{"count":2,"description":"Mugs","shopping_links":[{"url":"https://shop.example.com/cup","icon":"🛒","name":"Shop","description":"Buy cups"}]},
			"lamp":{"count":1,"description":"Lights","shopping_links":[]}
		}
	}`)
	page := newRenderer(t).Results(handoff.NewViewState(r, "x.png", ""))

	require.Empty(t, page.Alert)
	assert.Contains(t, string(page.Objects), "87.6%")
	assert.Contains(t, string(page.Images), `src="/uploads/annotated_x.png"`)

	faces := string(page.Faces)
	assert.NotContains(t, faces, "Hidden Name")
	assert.Contains(t, faces, "Not recognized as a celebrity")
	assert.Contains(t, faces, "⭐ Ada Lovelace")
	assert.Contains(t, faces, "⭐ Celebrity • 97% match")
	assert.Contains(t, faces, "Mathematician")

	shopping := string(page.Shopping)
	assert.Contains(t, shopping, "cup (2)")
	assert.NotContains(t, shopping, "lamp (1)")
	assert.Less(t, strings.Index(shopping, "cup"), strings.Index(shopping, "lamp"))
}

func TestResults_PanelFailureKeepsEarlierPanels(t *testing.T) {
	tmpl := template.Must(template.New("broken").Parse(
		`{{define "images"}}<img id="originalImage">{{end}}{{define "objects"}}{{.Missing}}{{end}}`))
	rr := &Renderer{tmpl: tmpl}

	page := rr.Results(handoff.NewViewState(parse(t, `{"objects":[{"class":"cup"}]}`), "x.png", ""))
	assert.Equal(t, AlertDisplayFailed, page.Alert)
	assert.Equal(t, `<img id="originalImage">`, string(page.Images))
	assert.Empty(t, page.Objects)
	assert.Empty(t, page.Faces)
	assert.Empty(t, page.Description)
}

func TestWriteResults(t *testing.T) {
	rr := newRenderer(t)
	page := rr.Results(handoff.NewViewState(parse(t, `{"description":"A <b>cat</b>"}`), "x.png", ""))
	page.Flash = "Welcome back"
	page.AutoNarrate = true

	var buf bytes.Buffer
	require.NoError(t, rr.WriteResults(&buf, page))
	out := buf.String()

	assert.Contains(t, out, `<p id="description">A &lt;b&gt;cat&lt;/b&gt;</p>`)
	assert.Contains(t, out, "Welcome back")
	assert.Contains(t, out, `name="languages" value="te"`)
	assert.Contains(t, out, `<div id="translationsContainer"></div>`)
}

func TestWriteIndex(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, newRenderer(t).WriteIndex(&buf, IndexPage{Flash: "No analysis results found. Please upload an image first."}))
	assert.Equal(t, 1, strings.Count(buf.String(), "No analysis results found."))
	assert.Contains(t, buf.String(), `action="/upload" enctype="multipart/form-data"`)
	assert.Contains(t, buf.String(), `name="file" type="file"`)
}

func TestWriteTranslateResult(t *testing.T) {
	result := &actions.TranslateResult{
		Translations: []actions.TranslationBlock{{Language: "es", Label: "Spanish", Text: "Un gato"}},
		Audio: actions.AudioPanel{Players: []actions.AudioPlayer{{
			Language: "es", Label: "Spanish", Src: "/static/audio/a.mp3", FallbackSrc: "/api/audio/a.mp3",
		}}},
	}
	var buf bytes.Buffer
	require.NoError(t, newRenderer(t).WriteTranslateResult(&buf, result))
	out := buf.String()

	assert.Contains(t, out, "Un gato")
	assert.Contains(t, out, `src="/static/audio/a.mp3"`)
	assert.Contains(t, out, `data-fallback="/api/audio/a.mp3"`)
	assert.Contains(t, out, "Failed to load Spanish audio")

	buf.Reset()
	require.NoError(t, newRenderer(t).WriteAudio(&buf, actions.AudioPanel{Message: actions.AlertAudioFailed}))
	assert.Contains(t, buf.String(), actions.AlertAudioFailed)
}
