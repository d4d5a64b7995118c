package handlers

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	_ "image/gif"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dumasj/fastai-v3/internal/analysis"
	"github.com/dumasj/fastai-v3/internal/catalog"
	"github.com/dumasj/fastai-v3/internal/metrics"
	"github.com/dumasj/fastai-v3/internal/model"
)

type fakeClassifier struct {
	pred  *model.Prediction
	calls int
}

func (f *fakeClassifier) Predict(image.Image) (*model.Prediction, error) {
	f.calls++
	return f.pred, nil
}

func (f *fakeClassifier) Classes() []string { return model.ShoeClasses }

func (f *fakeClassifier) Close() {}

func newTestRouter(t *testing.T, pred *model.Prediction) (http.Handler, *fakeClassifier, *metrics.Prometheus) {
	t.Helper()
	router, clf, prom, _ := newLoggedRouter(t, pred)
	return router, clf, prom
}

func newLoggedRouter(t *testing.T, pred *model.Prediction) (http.Handler, *fakeClassifier, *metrics.Prometheus, *bytes.Buffer) {
	t.Helper()
	var logs bytes.Buffer
	clf := &fakeClassifier{pred: pred}
	prom := metrics.NewPrometheusMetrics()
	a := analysis.NewAnalyzer(clf, catalog.Default(), analysis.DefaultThreshold, prom)
	h := NewHandler(a, 10<<20, prom)
	return NewRouter(h, prom.Handler(), zerolog.New(&logs)), clf, prom, &logs
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 200, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// emptyGIF is a well-formed GIF whose logical screen and only frame are 0x0.
var emptyGIF = []byte{
	'G', 'I', 'F', '8', '9', 'a',
	0x00, 0x00, 0x00, 0x00, // 0x0 screen
	0x80, 0x00, 0x00, // 2-entry global color table
	0x00, 0x00, 0x00, 0xff, 0xff, 0xff,
	0x2c, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, // 0x0 frame
	0x02, 0x01, 0x2c, 0x00, // LZW: clear, end of information
	0x3b,
}

func TestEmptyGIFDecodes(t *testing.T) {
	img, format, err := image.Decode(bytes.NewReader(emptyGIF))
	require.NoError(t, err)
	assert.Equal(t, "gif", format)
	assert.True(t, img.Bounds().Empty())
}

func multipartRequest(t *testing.T, field string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile(field, "shoe.png")
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/analyze", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodeResult(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp["result"]
}

func TestAnalyze_Match(t *testing.T) {
	router, clf, _ := newTestRouter(t, &model.Prediction{
		Label:        "air_jordan_1",
		Confidence:   0.92,
		Distribution: []float64{0.05, 0.92, 0.03},
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, multipartRequest(t, "file", pngBytes(t)))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "air_jordan_1 (probability 0.92), current market value is 120.00-500.00 USD.", decodeResult(t, rec))
	assert.Equal(t, 1, clf.calls)
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
}

func TestAnalyze_NoMatch(t *testing.T) {
	router, _, _ := newTestRouter(t, &model.Prediction{
		Label:        "vans_old_skool",
		Confidence:   0.40,
		Distribution: []float64{0.35, 0.25, 0.40},
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, multipartRequest(t, "file", pngBytes(t)))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, analysis.NoMatchMessage, decodeResult(t, rec))
}

func TestAnalyze_Failures(t *testing.T) {
	tests := map[string]struct {
		req    func(t *testing.T) *http.Request
		status int
	}{
		"missing-field": {
			req:    func(t *testing.T) *http.Request { return multipartRequest(t, "image", pngBytes(t)) },
			status: http.StatusBadRequest,
		},
		"not-multipart": {
			req: func(t *testing.T) *http.Request {
				return httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader(`{"file":"x"}`))
			},
			status: http.StatusBadRequest,
		},
		"empty-image": {
			req:    func(t *testing.T) *http.Request { return multipartRequest(t, "file", emptyGIF) },
			status: http.StatusInternalServerError,
		},
		"undecodable-image": {
			req:    func(t *testing.T) *http.Request { return multipartRequest(t, "file", []byte("not an image")) },
			status: http.StatusInternalServerError,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			router, clf, _ := newTestRouter(t, &model.Prediction{Label: "air_jordan_1", Confidence: 0.9})

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, tt.req(t))

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, 0, clf.calls, "classifier must not run")
			assert.NotContains(t, rec.Header().Get("Content-Type"), "json")
		})
	}
}

func TestAnalyze_UnknownLabelIsServerError(t *testing.T) {
	router, _, _ := newTestRouter(t, &model.Prediction{Label: "yeezy_350", Confidence: 0.99})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, multipartRequest(t, "file", pngBytes(t)))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal server error\n", rec.Body.String())
}

func TestAnalyze_MethodNotAllowed(t *testing.T) {
	router, _, _ := newTestRouter(t, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/analyze", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestCORS_Preflight(t *testing.T) {
	router, _, _ := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/analyze", nil)
	req.Header.Set("Origin", "https://example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "X-Requested-With, X-Custom")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "X-Requested-With, X-Custom", rec.Header().Get("Access-Control-Allow-Headers"))
}

func TestStaticRoutes(t *testing.T) {
	router, _, _ := newTestRouter(t, nil)

	tests := map[string]struct {
		path     string
		contains string
	}{
		"homepage":   {"/", "<form"},
		"stylesheet": {"/static/style.css", ".card"},
		"script":     {"/static/client.js", "/analyze"},
		"health":     {"/health", `"healthy"`},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			require.Equal(t, http.StatusOK, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.contains)
			assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestMetricsRoute(t *testing.T) {
	router, _, _ := newTestRouter(t, &model.Prediction{Label: "Lebron_15", Confidence: 0.7})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, multipartRequest(t, "file", pngBytes(t)))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `appraiser_predictions_total{label="Lebron_15",outcome="match"} 1`)
	assert.Contains(t, body, `appraiser_http_requests_total{code="200",method="POST",route="/analyze"} 1`)
}

func TestRequestIDIsPropagated(t *testing.T) {
	router, _, _, logs := newLoggedRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, "abc-123", rec.Header().Get(requestIDHeader))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(logs.Bytes(), &entry))
	assert.Equal(t, "abc-123", entry["request_id"])
	assert.Equal(t, "/health", entry["path"])
	assert.Equal(t, float64(http.StatusOK), entry["status"])
	assert.Equal(t, "request served", entry["message"])
}

func TestAccessLog_FailedRequestCarriesRequestID(t *testing.T) {
	router, _, _, logs := newLoggedRouter(t, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, multipartRequest(t, "image", pngBytes(t)))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	id := rec.Header().Get(requestIDHeader)
	require.NotEmpty(t, id)

	lines := bytes.Split(bytes.TrimSpace(logs.Bytes()), []byte("\n"))
	require.Len(t, lines, 2, "one failure entry and one access entry")
	for _, line := range lines {
		var entry map[string]any
		require.NoError(t, json.Unmarshal(line, &entry))
		assert.Equal(t, id, entry["request_id"])
	}
}
