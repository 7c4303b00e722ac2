package service_test

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/TIANLI0/LeafScan/config"
	"github.com/TIANLI0/LeafScan/model"
	"github.com/TIANLI0/LeafScan/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngFile(t *testing.T, w, h int) *model.ImageFile {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{40, 160, 60, 255})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	return &model.ImageFile{Name: "leaf.png", ContentType: "image/png", Content: buf.Bytes()}
}

func TestAnnotate(t *testing.T) {
	a := service.NewAnnotator(&config.AnnotateConfig{Thickness: 2, MaxSize: 100, MaxConcurrent: 1, QueueTimeout: 5})

	preds := []model.Prediction{
		{ClassID: model.NewClassID(0), Label: "Durian Leaf Blight Disease", Confidence: 0.9, Box: model.Box{X1: 20, Y1: 20, X2: 120, Y2: 80}},
		{Label: "inverted", Confidence: 0.5, Box: model.Box{X1: 150, Y1: 90, X2: 100, Y2: 40}},
	}

	data, err := a.Annotate(context.Background(), pngFile(t, 200, 100), preds)
	require.NoError(t, err)

	img, err := jpeg.Decode(bytes.NewReader(data))
	require.NoError(t, err)

	// 最长边缩放到 100
	assert.Equal(t, 100, img.Bounds().Dx())
	assert.Equal(t, 50, img.Bounds().Dy())
}

func TestAnnotateInvalidImage(t *testing.T) {
	a := service.NewAnnotator(&config.AnnotateConfig{MaxConcurrent: 1, QueueTimeout: 5})

	_, err := a.Annotate(context.Background(), &model.ImageFile{ContentType: "image/png", Content: []byte("nope")}, nil)
	require.Error(t, err)

	_, err = a.Annotate(context.Background(), nil, nil)
	require.ErrorIs(t, err, service.ErrNoFile)
}
