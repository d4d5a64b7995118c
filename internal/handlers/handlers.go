package handlers

import (
	"encoding/json"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/http"

	"github.com/rs/zerolog"
	_ "golang.org/x/image/webp"

	"github.com/dumasj/fastai-v3/internal/analysis"
	apierrors "github.com/dumasj/fastai-v3/internal/errors"
	"github.com/dumasj/fastai-v3/internal/web"
)

const uploadField = "file"

// RequestObserver records served requests. It may be nil.
type RequestObserver interface {
	ObserveRequest(route, method string, code int)
}

type Handler struct {
	analyzer       *analysis.Analyzer
	maxUploadBytes int64
	observer       RequestObserver
}

func NewHandler(analyzer *analysis.Analyzer, maxUploadBytes int64, observer RequestObserver) *Handler {
	return &Handler{
		analyzer:       analyzer,
		maxUploadBytes: maxUploadBytes,
		observer:       observer,
	}
}

func (h *Handler) Homepage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(web.Index())
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// Analyze classifies the uploaded image and answers {"result": message}.
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	img, err := h.readImage(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	result, err := h.analyzer.Analyze(r.Context(), img)
	if err != nil {
		h.fail(w, r, apierrors.NewInternalError(err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"result": result.Message})
}

func (h *Handler) readImage(r *http.Request) (image.Image, error) {
	logger := zerolog.Ctx(r.Context())

	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		return nil, apierrors.NewValidationError("Failed to parse form", err)
	}

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		return nil, apierrors.NewValidationError("No image file provided. Use 'file' as the form field name", err)
	}
	defer file.Close()

	logger.Debug().Str("filename", header.Filename).Int64("size", header.Size).Msg("received file")

	img, format, err := image.Decode(file)
	if err != nil {
		return nil, apierrors.NewDecodeError(err)
	}
	if img.Bounds().Empty() {
		return nil, apierrors.NewDecodeError(fmt.Errorf("%s image has no pixels: %v", format, img.Bounds()))
	}

	logger.Debug().
		Str("format", format).
		Int("width", img.Bounds().Dx()).
		Int("height", img.Bounds().Dy()).
		Msg("image decoded")

	return img, nil
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := apierrors.Status(err)
	event := zerolog.Ctx(r.Context()).Error()
	if status < http.StatusInternalServerError {
		event = zerolog.Ctx(r.Context()).Warn()
	}
	event.Err(err).Int("status", status).Msg("analyze failed")

	http.Error(w, apierrors.Message(err), status)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
