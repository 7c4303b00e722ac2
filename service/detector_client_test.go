package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/TIANLI0/LeafScan/model"
	"github.com/TIANLI0/LeafScan/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const predictBody = `{
	"image": {"width": 1000, "height": 500},
	"predictions": [
		{"box": {"x1": 100, "y1": 100, "x2": 200, "y2": 200}, "confidence": 0.4, "class_id": 8, "label": "Mealybug", "is_disease": true, "advice": {"thai_name": "เพลี้ยแป้ง", "treatment": ["t"], "control": ["c"]}},
		{"box": {"x1": 300, "y1": 100, "x2": 400, "y2": 200}, "confidence": 0.9, "class_id": 8, "label": "Mealybug", "is_disease": true},
		{"box": {"x1": 0, "y1": 0, "x2": 50, "y2": 50}, "confidence": 0.6, "class_id": 12, "label": "non-disease", "is_disease": false}
	],
	"summary": {"top_label": "Mealybug", "by_label": {}},
	"elapsed_ms": 12
}`

func newDetector(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *atomic.Int32) {
	t.Helper()

	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	return server, &hits
}

func jpegFile(size int) *model.ImageFile {
	return &model.ImageFile{
		Name:        "leaf.jpg",
		ContentType: "image/jpeg",
		Content:     make([]byte, size),
	}
}

func TestPredictImageRejectsNonImage(t *testing.T) {
	server, hits := newDetector(t, func(w http.ResponseWriter, r *http.Request) {})
	c := service.NewDetectorClient(server.URL)

	file := &model.ImageFile{Name: "notes.txt", ContentType: "text/plain", Content: []byte("hi")}

	_, err := c.PredictImage(context.Background(), file, nil)
	require.ErrorIs(t, err, service.ErrNotImage)
	assert.True(t, service.IsValidationError(err))
	assert.Zero(t, hits.Load())
}

func TestPredictImageRejectsLargeFile(t *testing.T) {
	server, hits := newDetector(t, func(w http.ResponseWriter, r *http.Request) {})
	c := service.NewDetectorClient(server.URL)

	_, err := c.PredictImage(context.Background(), jpegFile(8*1024*1024+1), nil)
	require.ErrorIs(t, err, service.ErrFileTooLarge)
	assert.Contains(t, err.Error(), "8 MB")
	assert.Zero(t, hits.Load())
}

func TestPredictImageAcceptsExactLimit(t *testing.T) {
	server, hits := newDetector(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"predictions": []}`))
	})
	c := service.NewDetectorClient(server.URL)

	_, err := c.PredictImage(context.Background(), jpegFile(8*1024*1024), nil)
	require.NoError(t, err)
	assert.Equal(t, int32(1), hits.Load())
}

func TestPredictImageRejectsMissingFile(t *testing.T) {
	server, hits := newDetector(t, func(w http.ResponseWriter, r *http.Request) {})
	c := service.NewDetectorClient(server.URL)

	_, err := c.PredictImage(context.Background(), nil, nil)
	require.ErrorIs(t, err, service.ErrNoFile)
	assert.Zero(t, hits.Load())
}

func TestPredictImageRequest(t *testing.T) {
	server, _ := newDetector(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/predict", r.URL.Path)
		assert.Equal(t, "0.35", r.URL.Query().Get("conf"))
		assert.Equal(t, "0.45", r.URL.Query().Get("iou"))

		f, header, err := r.FormFile("image")
		if !assert.NoError(t, err) {
			return
		}
		defer f.Close()

		data, _ := io.ReadAll(f)

		assert.Equal(t, "leaf.jpg", header.Filename)
		assert.Equal(t, "image/jpeg", header.Header.Get("Content-Type"))
		assert.Equal(t, []byte("jpeg-bytes"), data)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(predictBody))
	})

	c := service.NewDetectorClient(server.URL + "///")
	assert.Equal(t, server.URL, c.BaseURL())

	file := &model.ImageFile{Name: "leaf.jpg", ContentType: "image/jpeg", Content: []byte("jpeg-bytes")}

	resp, err := c.PredictImage(context.Background(), file, &service.PredictOptions{ConfidenceThreshold: 0.35})
	require.NoError(t, err)

	require.Len(t, resp.Predictions, 3)
	assert.Equal(t, "Mealybug", resp.Predictions[0].Label)
	assert.Equal(t, int64(12), resp.ElapsedMS)
}

func TestPredictImageDefaults(t *testing.T) {
	server, _ := newDetector(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "0.25", r.URL.Query().Get("conf"))
		assert.Equal(t, "0.5", r.URL.Query().Get("iou"))
		w.Write([]byte(`{}`))
	})

	c := service.NewDetectorClient(server.URL, service.WithDefaultIoU(0.5))

	resp, err := c.PredictImage(context.Background(), jpegFile(10), nil)
	require.NoError(t, err)
	assert.Empty(t, resp.Predictions)
}

func TestPredictImageErrorStatus(t *testing.T) {
	server, _ := newDetector(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"Unreadable image"}`, http.StatusBadRequest)
	})
	c := service.NewDetectorClient(server.URL)

	_, err := c.PredictImage(context.Background(), jpegFile(10), nil)
	require.Error(t, err)

	var apiErr *service.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, `API 400: {"detail":"Unreadable image"}`, err.Error())
	assert.False(t, service.IsValidationError(err))
}

func TestPredictImageErrorStatusText(t *testing.T) {
	server, _ := newDetector(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	c := service.NewDetectorClient(server.URL)

	_, err := c.PredictImage(context.Background(), jpegFile(10), nil)
	require.Error(t, err)
	assert.Equal(t, "API 503: Service Unavailable", err.Error())
}

func TestPredictImageNetworkError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	c := service.NewDetectorClient(url)

	_, err := c.PredictImage(context.Background(), jpegFile(10), nil)
	require.Error(t, err)
	assert.False(t, service.IsValidationError(err))
}

func TestCheckHealth(t *testing.T) {
	server, _ := newDetector(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]string{"status": "ok", "model_path": "best.pt"})
	})
	c := service.NewDetectorClient(server.URL)

	body, err := c.CheckHealth(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"status": "ok", "model_path": "best.pt"}, body)
}

func TestCheckHealthArrayBody(t *testing.T) {
	server, _ := newDetector(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`["ok"]`))
	})
	c := service.NewDetectorClient(server.URL)

	body, err := c.CheckHealth(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []any{"ok"}, body)
}

func TestCheckHealthInvalidJSON(t *testing.T) {
	server, _ := newDetector(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>"))
	})
	c := service.NewDetectorClient(server.URL)

	_, err := c.CheckHealth(context.Background())
	require.Error(t, err)
}

func TestClasses(t *testing.T) {
	server, _ := newDetector(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/classes", r.URL.Path)
		w.Write([]byte(`{"classes": {"0": "Durian Leaf Blight Disease", "12": "non-disease"}, "advice_keys": ["Durian Leaf Blight Disease"]}`))
	})
	c := service.NewDetectorClient(server.URL)

	result, err := c.Classes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "non-disease", result.Classes["12"])
	assert.Equal(t, []string{"Durian Leaf Blight Disease"}, result.AdviceKeys)
}

func TestPredictImageRateLimitCanceled(t *testing.T) {
	server, hits := newDetector(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"predictions": []}`))
	})
	c := service.NewDetectorClient(server.URL, service.WithRateLimit(0.001, 1))

	_, err := c.PredictImage(context.Background(), jpegFile(10), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = c.PredictImage(ctx, jpegFile(10), nil)
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "rate limit"))
	assert.Equal(t, int32(1), hits.Load())
}
