package audit

import (
	"encoding/json"
	"log"

	"github.com/garyburd/redigo/redis"
)

// RedisMirror publishes every committed audit event on a redis pub/sub
// channel, for operators who want to tail the audit trail without
// reading the log file directly. Grounded on the teacher's
// redisdata.RedisData.LogCommand (`LPUSH "joblog"`), generalized from a
// queue push to a PUBLISH since a mirror has no consumer that dequeues
// it — every subscriber should see every event, not compete for one.
type RedisMirror struct {
	pool    *redis.Pool
	channel string
}

func NewRedisMirror(pool *redis.Pool, channel string) *RedisMirror {
	return &RedisMirror{pool: pool, channel: channel}
}

func (m *RedisMirror) Publish(event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Println("audit: failed to marshal event for redis mirror:", err)
		return
	}

	db := m.pool.Get()
	defer db.Close()

	if _, err := db.Do("PUBLISH", m.channel, data); err != nil {
		log.Println("audit: redis mirror publish failed:", err)
	}
}
