package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"newsfactor/pkg/logger"
	"newsfactor/pkg/model"
)

// RedisConfig 评分缓存配置
type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

const scoreKeyPrefix = "newsfactor:score:"

// ScoreCache 基于 Redis 的跨运行评分缓存。
// 命中时跳过协作方调用；缓存故障只降级为未命中，不影响评分流程。
type ScoreCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *logrus.Entry
}

// NewScoreCache 创建评分缓存并验证连接
func NewScoreCache(config RedisConfig) (*ScoreCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}

	return &ScoreCache{
		client: client,
		ttl:    config.TTL,
		log:    logger.WithComponent("ScoreCache"),
	}, nil
}

// Get 查询任务 id 对应的缓存评分
func (c *ScoreCache) Get(ctx context.Context, id string) (model.FactorScore, bool) {
	var score model.FactorScore

	data, err := c.client.Get(ctx, scoreKeyPrefix+id).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.Warnf("读取缓存失败 (id=%s): %v", id, err)
		}
		return score, false
	}
	if err := json.Unmarshal(data, &score); err != nil {
		c.log.Warnf("缓存内容损坏 (id=%s): %v", id, err)
		return score, false
	}
	if err := score.Validate(); err != nil {
		return score, false
	}
	return score, true
}

// Set 写入评分缓存，失败只记日志
func (c *ScoreCache) Set(ctx context.Context, id string, score model.FactorScore) {
	data, err := json.Marshal(score)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, scoreKeyPrefix+id, data, c.ttl).Err(); err != nil {
		c.log.Warnf("写入缓存失败 (id=%s): %v", id, err)
	}
}

// Close 关闭 Redis 连接
func (c *ScoreCache) Close() error {
	return c.client.Close()
}
