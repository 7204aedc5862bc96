package throttle

import (
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// Config selects the throttle store backend
type Config struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	Dir           string
}

// Open returns a RedisStore when a redis address is configured and a
// BadgerStore otherwise
func Open(conf Config) (fiber.Storage, error) {
	if conf.RedisAddr != "" {
		s, err := NewRedisStore(
			&redis.Options{
				Addr:     conf.RedisAddr,
				Password: conf.RedisPassword,
				DB:       conf.RedisDB,
			}, "",
		)
		if err != nil {
			return nil, err
		}
		log.WithField("addr", conf.RedisAddr).Info("Using redis throttle store")
		return s, nil
	}
	s, err := NewBadgerStore(conf.Dir)
	if err != nil {
		return nil, err
	}
	if conf.Dir == "" {
		log.Info("Using in-memory throttle store")
	} else {
		log.WithField("dir", conf.Dir).Info("Using badger throttle store")
	}
	return s, nil
}
