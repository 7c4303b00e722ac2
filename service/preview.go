package service

import (
	"sync"

	"github.com/TIANLI0/LeafScan/model"
	"github.com/TIANLI0/LeafScan/utils"
	"go.uber.org/zap"
)

// PreviewStore 保存待预览的图片，每个条目由获取方负责释放
type PreviewStore struct {
	mu      sync.RWMutex
	entries map[string]*model.ImageFile
}

func NewPreviewStore() *PreviewStore {
	return &PreviewStore{
		entries: make(map[string]*model.ImageFile),
	}
}

// Acquire 登记图片并返回 ID 和释放函数，释放函数可重复调用
func (s *PreviewStore) Acquire(file *model.ImageFile) (string, func()) {
	id := utils.NewID()

	s.mu.Lock()
	s.entries[id] = file
	s.mu.Unlock()

	var once sync.Once
	release := func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.entries, id)
			s.mu.Unlock()

			utils.Logger.Debug("preview released", zap.String("id", id))
		})
	}

	return id, release
}

func (s *PreviewStore) Get(id string) (*model.ImageFile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.entries[id]
	return f, ok
}

// Len 当前未释放的预览数量
func (s *PreviewStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.entries)
}
