// Package handlers contains the HTTP handlers for the public API.
package handlers

import (
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/localmind-ai/localmind/errors"
	"github.com/localmind-ai/localmind/server/gemini"
	"github.com/localmind-ai/localmind/server/middleware"
	"github.com/localmind-ai/localmind/server/processing"
)

// maxMultipartMemory bounds the in-memory portion of an upload; larger
// parts spill to temporary files.
const maxMultipartMemory = 32 << 20

// defaultAudioMIME is assumed for audio uploads that carry no
// Content-Type, matching what mobile recorders typically produce.
const defaultAudioMIME = "audio/mp4"

// AnalyzeHandler handles the multipart analyze endpoint. A nil processor
// means the server came up without a Gemini credential; requests are
// answered with a misconfiguration error instead of refusing to start.
type AnalyzeHandler struct {
	processor *processing.Processor
	validate  *validator.Validate
	logger    *zap.Logger
}

// NewAnalyzeHandler creates the analyze handler. processor may be nil
// when the upstream credential is not configured.
func NewAnalyzeHandler(processor *processing.Processor, logger *zap.Logger) *AnalyzeHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalyzeHandler{
		processor: processor,
		validate:  validator.New(),
		logger:    logger,
	}
}

// ServeHTTP implements http.Handler
func (h *AnalyzeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		errors.ErrorWithType(w, "Method not allowed", errors.ValidationError, http.StatusMethodNotAllowed)
		return
	}

	requestID := middleware.GetRequestID(r.Context())

	// The credential check comes before any look at the request body: a
	// misconfigured server answers 500 regardless of what was sent.
	if h.processor == nil {
		errors.WriteError(w, errors.NewConfigError(requestID,
			"server misconfiguration: GEMINI_API_KEY is not set"))
		return
	}

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		errors.WriteError(w, errors.NewValidationError(requestID,
			"invalid multipart form: "+err.Error()))
		return
	}

	req := processing.Request{
		Text:         strings.TrimSpace(r.FormValue("text")),
		Location:     strings.TrimSpace(r.FormValue("location")),
		LanguageCode: strings.TrimSpace(r.FormValue("language_code")),
	}
	if req.LanguageCode == "" {
		req.LanguageCode = "en"
	}
	if err := h.validate.Var(req.LanguageCode, "bcp47_language_tag"); err != nil {
		errors.WriteError(w, errors.NewValidationError(requestID,
			"invalid language_code: "+req.LanguageCode))
		return
	}

	image, ok, apiErr := h.readImage(r, requestID)
	if apiErr != nil {
		errors.WriteError(w, apiErr)
		return
	}
	if ok {
		req.Media = append(req.Media, image)
	}

	audio, ok, apiErr := h.readAudio(r, requestID)
	if apiErr != nil {
		errors.WriteError(w, apiErr)
		return
	}
	if ok {
		req.Media = append(req.Media, audio)
	}

	if req.Text == "" && len(req.Media) == 0 {
		errors.WriteError(w, errors.NewValidationError(requestID,
			"either text, image, or audio must be provided"))
		return
	}

	result, err := h.processor.Process(r.Context(), req)
	if err != nil {
		h.logger.Error("analyze request failed",
			zap.Error(err),
			zap.String("request_id", requestID),
		)
		errors.WriteError(w, errors.NewProviderError(requestID, err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(result); err != nil {
		h.logger.Error("failed to encode response",
			zap.Error(err),
			zap.String("request_id", requestID),
		)
	}
}

// readImage extracts the optional image part. The bytes must sniff as an
// image; anything else is rejected rather than forwarded upstream.
func (h *AnalyzeHandler) readImage(r *http.Request, requestID string) (gemini.Media, bool, *errors.APIError) {
	data, header, ok, apiErr := h.readFile(r, "image", requestID)
	if apiErr != nil || !ok {
		return gemini.Media{}, false, apiErr
	}

	mimeType := http.DetectContentType(data)
	if !strings.HasPrefix(mimeType, "image/") {
		return gemini.Media{}, false, errors.NewValidationError(requestID, "invalid image file")
	}

	h.logger.Debug("image part accepted",
		zap.String("filename", header.Filename),
		zap.String("mime_type", mimeType),
		zap.Int("size", len(data)),
	)
	return gemini.Media{MIMEType: mimeType, Data: data}, true, nil
}

// readAudio extracts the optional audio part. Audio formats do not sniff
// reliably, so the declared Content-Type is trusted with a default.
func (h *AnalyzeHandler) readAudio(r *http.Request, requestID string) (gemini.Media, bool, *errors.APIError) {
	data, header, ok, apiErr := h.readFile(r, "audio", requestID)
	if apiErr != nil || !ok {
		return gemini.Media{}, false, apiErr
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = defaultAudioMIME
	}

	h.logger.Debug("audio part accepted",
		zap.String("filename", header.Filename),
		zap.String("mime_type", mimeType),
		zap.Int("size", len(data)),
	)
	return gemini.Media{MIMEType: mimeType, Data: data}, true, nil
}

// readFile reads one named file part in full. A missing part is not an
// error; the second return reports presence.
func (h *AnalyzeHandler) readFile(r *http.Request, field, requestID string) ([]byte, *multipart.FileHeader, bool, *errors.APIError) {
	file, header, err := r.FormFile(field)
	if err == http.ErrMissingFile {
		return nil, nil, false, nil
	}
	if err != nil {
		return nil, nil, false, errors.NewValidationError(requestID,
			"invalid "+field+" upload: "+err.Error())
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, nil, false, errors.NewValidationError(requestID,
			"failed to read "+field+" upload: "+err.Error())
	}
	return data, header, true, nil
}
