package service

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/TIANLI0/LeafScan/config"
	"github.com/TIANLI0/LeafScan/model"
	"github.com/TIANLI0/LeafScan/utils"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// PredictionCache 以图片内容和阈值为键缓存检测结果
type PredictionCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewPredictionCache(cfg *config.RedisConfig) *PredictionCache {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	return &PredictionCache{
		client: client,
		ttl:    cfg.TTL,
	}
}

func (s *PredictionCache) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// CacheKey predict:<md5>:<conf>:<iou>
func CacheKey(file *model.ImageFile, conf, iou float64) string {
	return "predict:" + utils.ContentMD5(file.Content) +
		":" + strconv.FormatFloat(conf, 'f', -1, 64) +
		":" + strconv.FormatFloat(iou, 'f', -1, 64)
}

// Get 缓存未命中时返回 nil, nil
func (s *PredictionCache) Get(ctx context.Context, key string) (*model.PredictResponse, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var result model.PredictResponse
	if err := json.Unmarshal(data, &result); err != nil {
		utils.Logger.Error("failed to unmarshal cached prediction",
			zap.String("key", key), zap.Error(err))
		return nil, err
	}

	return &result, nil
}

func (s *PredictionCache) Set(ctx context.Context, key string, result *model.PredictResponse) error {
	data, err := json.Marshal(result)
	if err != nil {
		return err
	}

	return s.client.Set(ctx, key, data, s.ttl).Err()
}

func (s *PredictionCache) Close() error {
	return s.client.Close()
}

// ResultCache 由 PredictionCache 实现，未命中时返回 nil, nil
type ResultCache interface {
	Get(ctx context.Context, key string) (*model.PredictResponse, error)
	Set(ctx context.Context, key string, result *model.PredictResponse) error
}

var _ ResultCache = &PredictionCache{}

// CachedPredictor 在 DetectorClient 前加一层缓存，缓存故障时直接请求检测服务
type CachedPredictor struct {
	client *DetectorClient
	cache  ResultCache
}

var _ Predictor = &CachedPredictor{}

func NewCachedPredictor(client *DetectorClient, cache ResultCache) *CachedPredictor {
	return &CachedPredictor{
		client: client,
		cache:  cache,
	}
}

func (p *CachedPredictor) ValidateImage(file *model.ImageFile) error {
	return p.client.ValidateImage(file)
}

func (p *CachedPredictor) PredictImage(ctx context.Context, file *model.ImageFile, options *PredictOptions) (*model.PredictResponse, error) {
	// 校验必须在查缓存之前
	if err := p.ValidateImage(file); err != nil {
		return nil, err
	}

	conf, iou := p.client.thresholds(options)
	key := CacheKey(file, conf, iou)

	cached, err := p.cache.Get(ctx, key)
	if err != nil {
		utils.Logger.Warn("failed to get cache", zap.Error(err))
	}
	if cached != nil {
		utils.Logger.Info("cache hit", zap.String("cache_key", key))
		return cached, nil
	}

	result, err := p.client.PredictImage(ctx, file, &PredictOptions{ConfidenceThreshold: conf, IoUThreshold: iou})
	if err != nil {
		return nil, err
	}

	if err := p.cache.Set(ctx, key, result); err != nil {
		utils.Logger.Warn("failed to set cache", zap.Error(err))
	}

	return result, nil
}
