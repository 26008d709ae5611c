package cache

import (
	"log"
	"strconv"

	"github.com/go-redis/redis"

	"github.com/devflowhq/devflow/backend/internal/config"
)

const hotQuestionsKey = "rank:question:views"

// Cache wraps the Redis client used for view counting and the hot-question
// ranking. A nil Cache is valid and turns every call into a no-op, so the
// service runs without Redis in development.
type Cache struct {
	client *redis.Client
}

func New(cfg *config.Config) *Cache {
	if cfg.Redis.Addr == "" {
		log.Println("redis addr empty, view tracking disabled")
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	if err := client.Ping().Err(); err != nil {
		log.Fatalf("Failed to connect to redis: %v", err)
	}

	log.Println("✅ Redis connected successfully")
	return &Cache{client: client}
}

// RecordView bumps the question's view counter and its rank score. The first
// return value is false when this user already viewed the question, decided
// by a set membership add.
func (c *Cache) RecordView(questionID, userID int) (bool, int64, error) {
	if c == nil {
		return true, 0, nil
	}

	qid := strconv.Itoa(questionID)

	if userID != 0 {
		viewerKey := "question:" + qid + ":viewers"
		added, err := c.client.SAdd(viewerKey, strconv.Itoa(userID)).Result()
		if err != nil {
			return false, 0, err
		}
		if added == 0 {
			views, _ := c.client.Get("question:" + qid + ":views").Int64()
			return false, views, nil
		}
	}

	pipe := c.client.TxPipeline()
	incr := pipe.Incr("question:" + qid + ":views")
	pipe.ZIncrBy(hotQuestionsKey, 1, qid)
	if _, err := pipe.Exec(); err != nil {
		return false, 0, err
	}

	return true, incr.Val(), nil
}

// HotQuestions returns up to n question ids ordered by view score, hottest
// first.
func (c *Cache) HotQuestions(n int) ([]int, error) {
	if c == nil {
		return nil, nil
	}

	zres, err := c.client.ZRevRangeWithScores(hotQuestionsKey, 0, int64(n-1)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	ids := make([]int, 0, len(zres))
	for _, z := range zres {
		member, _ := z.Member.(string)
		if id, err := strconv.Atoi(member); err == nil {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// ForgetQuestion drops a deleted question from the ranking and its counters.
func (c *Cache) ForgetQuestion(questionID int) error {
	if c == nil {
		return nil
	}
	qid := strconv.Itoa(questionID)
	pipe := c.client.TxPipeline()
	pipe.ZRem(hotQuestionsKey, qid)
	pipe.Del("question:"+qid+":views", "question:"+qid+":viewers")
	_, err := pipe.Exec()
	return err
}

func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}
