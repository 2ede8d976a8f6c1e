package service

import (
	"DevTinder/internal/pkg/redis"
)

// Redis 副作用的间接层，单测中替换为内存实现
var (
	publishFn = redis.Publish
	cacheZAdd = redis.ZAdd
	cacheGet  = redis.GetValue
	cacheSet  = redis.SetWithExpiration
	cacheDel  = redis.DeleteKey
)

// SwipeEmitter 滑动事件出口，生产实现为 Kafka 生产者
type SwipeEmitter interface {
	Emit(eventType string, actorID, targetID uint64)
}
