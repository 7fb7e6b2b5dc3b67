package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/sozercan/vision-results/apimodels"
	"github.com/sozercan/vision-results/internal/actions"
	"github.com/sozercan/vision-results/internal/handoff"
	"github.com/sozercan/vision-results/internal/render"
)

// Messages for failures of the hand-off producer routes.
const (
	AlertAnalyzeFailed  = "Error analyzing image. Please try again."
	AlertNoImagePath    = "Please upload an image first."
	AlertNoFile         = "Please select an image to upload."
	AlertUploadTooLarge = "Image is too large."
	AlertUploadFailed   = "Error uploading image. Please try again."
)

const (
	maxBodyBytes   = 8 << 20
	maxUploadBytes = 16 << 20
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	flash := s.bridge.TakeFlash(r.Context(), sessionID(r.Context()))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.renderer.WriteIndex(w, render.IndexPage{Flash: flash}); err != nil {
		slog.Error("Failed to write index page", "error", err)
	}
}

// handleHandoff stores analysis results produced elsewhere for this session.
func (s *Server) handleHandoff(w http.ResponseWriter, r *http.Request) {
	var req apimodels.HandoffRequest
	if isJSONBody(r) {
		if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
			s.respondAlert(w, r, http.StatusBadRequest, handoff.AlertMalformedData, "/")
			return
		}
		// A string value holds the document as text
		var text string
		if err := json.Unmarshal(req.AnalysisResults, &text); err == nil {
			req.AnalysisResults = json.RawMessage(text)
		}
	} else {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		if err := r.ParseForm(); err != nil {
			s.respondAlert(w, r, http.StatusBadRequest, handoff.AlertMalformedData, "/")
			return
		}
		req.AnalysisResults = json.RawMessage(r.PostForm.Get("analysisResults"))
		req.ImagePath = r.PostForm.Get("imagePath")
	}

	if len(req.AnalysisResults) == 0 || req.ImagePath == "" {
		s.respondAlert(w, r, http.StatusBadRequest, handoff.AlertMissingData, "/")
		return
	}

	if err := s.bridge.Put(r.Context(), sessionID(r.Context()), req.AnalysisResults, req.ImagePath); err != nil {
		slog.Error("Failed to store hand-off", "error", err)
		s.respondAlert(w, r, http.StatusInternalServerError, handoff.AlertMalformedData, "/")
		return
	}
	s.respondSuccess(w, r, "/results")
}

// handleAnalyze runs the backend analysis for an uploaded file and hands the
// result to the results view.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req apimodels.AnalyzeRequest
	if isJSONBody(r) {
		if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
			s.respondAlert(w, r, http.StatusBadRequest, AlertNoImagePath, "/")
			return
		}
	} else {
		req.Filepath = r.PostFormValue("filepath")
	}
	req.Filepath = strings.TrimSpace(req.Filepath)
	if req.Filepath == "" {
		s.respondAlert(w, r, http.StatusBadRequest, AlertNoImagePath, "/")
		return
	}

	slog.Debug("Received analysis request", "filepath", req.Filepath)
	s.analyzeAndHandOff(w, r, req.Filepath)
}

// handleUpload relays a multipart "file" to the backend, then analyzes the
// stored image like handleAnalyze.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondAlert(w, r, http.StatusRequestEntityTooLarge, AlertUploadTooLarge, "/")
			return
		}
		s.respondAlert(w, r, http.StatusBadRequest, AlertNoFile, "/")
		return
	}
	defer file.Close()
	if header.Filename == "" {
		s.respondAlert(w, r, http.StatusBadRequest, AlertNoFile, "/")
		return
	}

	uploaded, err := s.uploader.Upload(r.Context(), header.Filename, file)
	if err != nil {
		slog.Error("Upload failed", "filename", header.Filename, "error", err)
		s.respondAlert(w, r, http.StatusBadGateway, AlertUploadFailed, "/")
		return
	}
	s.analyzeAndHandOff(w, r, uploaded.Filepath)
}

// analyzeAndHandOff analyzes the image at path and stores the result for the
// results view.
func (s *Server) analyzeAndHandOff(w http.ResponseWriter, r *http.Request, path string) {
	raw, err := s.analyzer.Analyze(r.Context(), path)
	if err != nil {
		slog.Error("Analysis request failed", "error", err)
		s.respondAlert(w, r, http.StatusBadGateway, AlertAnalyzeFailed, "/")
		return
	}

	if err := s.bridge.Put(r.Context(), sessionID(r.Context()), raw, path); err != nil {
		slog.Error("Failed to store analysis results", "error", err)
		s.respondAlert(w, r, http.StatusInternalServerError, AlertAnalyzeFailed, "/")
		return
	}
	s.respondSuccess(w, r, "/results")
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session := sessionID(ctx)

	view, err := s.bridge.Load(ctx, session, s.origin(r))
	if err != nil {
		s.redirectWithFlash(w, r, handoff.AlertFor(err), "/")
		return
	}

	page := s.renderer.Results(view)
	page.Flash = s.bridge.TakeFlash(ctx, session)
	page.AutoNarrate = s.autoNarrate
	s.writePage(w, page)
}

func (s *Server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	view, ok := s.loadView(w, r)
	if !ok {
		return
	}

	languages, err := requestedLanguages(w, r)
	if err != nil {
		s.respondAlert(w, r, http.StatusBadRequest, actions.AlertTranslateFailed, "/results")
		return
	}

	result, err := s.actions.Translate(r.Context(), render.Description(view.Result()), languages)
	switch {
	case errors.Is(err, actions.ErrNoLanguages):
		s.respondAlert(w, r, http.StatusBadRequest, actions.AlertNoLanguages, "/results")
		return
	case err != nil:
		slog.Error("Translation failed", "error", err)
		s.respondAlert(w, r, http.StatusBadGateway, actions.AlertTranslateFailed, "/results")
		return
	}

	switch {
	case wantsJSON(r):
		writeJSON(w, http.StatusOK, result)
	case isFetch(r):
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := s.renderer.WriteTranslateResult(w, result); err != nil {
			slog.Error("Failed to write translation fragment", "error", err)
		}
	default:
		page := s.renderer.Results(view)
		if err := s.renderer.AttachTranslation(page, result); err != nil {
			slog.Error("Failed to render translation", "error", err)
			page.Alert = render.AlertDisplayFailed
		}
		page.AutoNarrate = false
		s.writePage(w, page)
	}
}

// handleSpeak generates audio for a posted set of translations.
func (s *Server) handleSpeak(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.loadView(w, r); !ok {
		return
	}

	var req apimodels.SpeakBatchRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil || len(req.Translations) == 0 {
		s.respondAlert(w, r, http.StatusBadRequest, actions.AlertAudioFailed, "/results")
		return
	}
	s.writeAudio(w, r, s.actions.GenerateAudio(r.Context(), req.Translations))
}

// handleNarrate reads the description aloud in English.
func (s *Server) handleNarrate(w http.ResponseWriter, r *http.Request) {
	view, ok := s.loadView(w, r)
	if !ok {
		return
	}

	narration := apimodels.TranslationMap{{Language: "en", Text: render.Description(view.Result())}}
	s.writeAudio(w, r, s.actions.GenerateAudio(r.Context(), narration))
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	view, ok := s.loadView(w, r)
	if !ok {
		return
	}

	if err := s.actions.Save(r.Context(), view.Result()); err != nil {
		slog.Error("Save failed", "error", err)
		s.respondAlert(w, r, http.StatusBadGateway, actions.AlertSaveFailed, "/results")
		return
	}
	if scriptCaller(r) {
		writeJSON(w, http.StatusOK, apimodels.ActionResponse{Success: true, Alert: actions.AlertSaved})
		return
	}
	s.redirectWithFlash(w, r, actions.AlertSaved, "/results")
}

// handleNew clears the hand-off and starts over.
func (s *Server) handleNew(w http.ResponseWriter, r *http.Request) {
	if err := s.bridge.Clear(r.Context(), sessionID(r.Context())); err != nil {
		slog.Error("Failed to clear hand-off", "error", err)
	}
	s.respondSuccess(w, r, "/")
}

// loadView loads the hand-off for an action. On failure it answers the
// request with the load alert and a redirect to the entry page.
func (s *Server) loadView(w http.ResponseWriter, r *http.Request) (*handoff.ViewState, bool) {
	view, err := s.bridge.Load(r.Context(), sessionID(r.Context()), s.origin(r))
	if err == nil {
		return view, true
	}
	s.respondAlert(w, r, http.StatusConflict, handoff.AlertFor(err), "/")
	return nil, false
}

// origin is the public scheme://host of uploaded images. Without
// PUBLIC_ORIGIN it comes from the request; X-Forwarded-Proto is only
// honoured behind a trusted proxy. An unusable Host gives "".
func (s *Server) origin(r *http.Request) string {
	if s.cfg.PublicOrigin != "" {
		return s.cfg.PublicOrigin
	}
	if r.Host == "" || strings.ContainsAny(r.Host, "/\\?#@ \t\r\n") {
		return ""
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if s.cfg.TrustProxy {
		switch proto := strings.ToLower(r.Header.Get("X-Forwarded-Proto")); proto {
		case "http", "https":
			scheme = proto
		}
	}
	return scheme + "://" + r.Host
}

func (s *Server) writePage(w http.ResponseWriter, page *render.ResultsPage) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.renderer.WriteResults(w, page); err != nil {
		slog.Error("Failed to write results page", "error", err)
	}
}

func (s *Server) writeAudio(w http.ResponseWriter, r *http.Request, panel actions.AudioPanel) {
	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, panel)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.renderer.WriteAudio(w, panel); err != nil {
		slog.Error("Failed to write audio fragment", "error", err)
	}
}

// respondAlert reports a failed action: script callers get the alert as
// JSON, form posts get it as a flash on the redirect target.
func (s *Server) respondAlert(w http.ResponseWriter, r *http.Request, status int, alert, redirect string) {
	if scriptCaller(r) {
		resp := apimodels.ActionResponse{Alert: alert}
		// Script callers stay on the results view unless it is unusable
		if redirect == "/" {
			resp.Redirect = redirect
		}
		writeJSON(w, status, resp)
		return
	}
	s.redirectWithFlash(w, r, alert, redirect)
}

// respondSuccess sends script callers the next location and redirects form
// posts to it.
func (s *Server) respondSuccess(w http.ResponseWriter, r *http.Request, redirect string) {
	if scriptCaller(r) {
		writeJSON(w, http.StatusOK, apimodels.ActionResponse{Success: true, Redirect: redirect})
		return
	}
	http.Redirect(w, r, redirect, http.StatusSeeOther)
}

func (s *Server) redirectWithFlash(w http.ResponseWriter, r *http.Request, message, target string) {
	if message != "" {
		if err := s.bridge.SetFlash(r.Context(), sessionID(r.Context()), message); err != nil {
			slog.Error("Failed to store flash message", "error", err)
		}
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func requestedLanguages(w http.ResponseWriter, r *http.Request) ([]string, error) {
	if isJSONBody(r) {
		var req apimodels.TranslateRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
			return nil, err
		}
		return req.Languages, nil
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		return nil, err
	}
	return r.PostForm["languages"], nil
}

func isJSONBody(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "application/json"
}

// scriptCaller reports whether the request came from script rather than a
// plain form post.
func scriptCaller(r *http.Request) bool {
	return isFetch(r) || wantsJSON(r) || isJSONBody(r)
}

func isFetch(r *http.Request) bool {
	return r.Header.Get("X-Requested-With") == "fetch"
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}
