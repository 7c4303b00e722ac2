package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/TIANLI0/LeafScan/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionStoreGet(t *testing.T) {
	previews := service.NewPreviewStore()
	store := service.NewSessionStore(time.Hour, func() *service.Controller {
		return service.NewController(&fakePredictor{}, previews, nil)
	})

	c1, id := store.Get("")
	require.NotEmpty(t, id)

	c2, id2 := store.Get(id)
	assert.Equal(t, id, id2)
	assert.Same(t, c1, c2)

	c3, id3 := store.Get("unknown")
	assert.NotEqual(t, id, id3)
	assert.NotSame(t, c1, c3)
	assert.Equal(t, 2, store.Len())

	got, ok := store.Lookup(id)
	require.True(t, ok)
	assert.Same(t, c1, got)
}

func TestSessionStoreSweepReleasesPreviews(t *testing.T) {
	previews := service.NewPreviewStore()
	store := service.NewSessionStore(10*time.Millisecond, func() *service.Controller {
		return service.NewController(&fakePredictor{}, previews, nil)
	})

	c, id := store.Get("")
	_, err := c.SelectFile(jpegFile(1))
	require.NoError(t, err)
	require.Equal(t, 1, previews.Len())

	time.Sleep(20 * time.Millisecond)

	_, ok := store.Lookup(id)
	assert.False(t, ok)

	assert.Equal(t, 1, store.Sweep())
	assert.Zero(t, store.Len())
	assert.Zero(t, previews.Len())
}

func TestSessionStoreRunClosesOnCancel(t *testing.T) {
	previews := service.NewPreviewStore()
	store := service.NewSessionStore(time.Hour, func() *service.Controller {
		return service.NewController(&fakePredictor{}, previews, nil)
	})

	c, _ := store.Get("")
	_, err := c.SelectFile(jpegFile(1))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		store.Run(ctx, time.Hour)
		close(done)
	}()

	cancel()
	<-done

	assert.Zero(t, store.Len())
	assert.Zero(t, previews.Len())
}

func TestSessionStoreRunZeroInterval(t *testing.T) {
	store := service.NewSessionStore(time.Hour, func() *service.Controller {
		return service.NewController(&fakePredictor{}, service.NewPreviewStore(), nil)
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		store.Run(ctx, 0)
		close(done)
	}()

	cancel()
	<-done
}
