package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/soctools/lurelab/internal/domain"
)

// FeedChannel is the redis channel every accepted record is published to.
const FeedChannel = "lurelab:feed"

type SignalService struct {
	rdb *redis.Client
}

func NewSignalService(redisClient *redis.Client) *SignalService {
	return &SignalService{
		rdb: redisClient,
	}
}

func (s *SignalService) Publish(ctx context.Context, item domain.FeedItem) error {

	jsonstr, err := json.Marshal(item)
	if err != nil {
		return err
	}

	err = s.rdb.Publish(ctx, FeedChannel, jsonstr).Err()
	if err != nil {
		return err
	}

	return nil
}

// Realtime subscribes to the feed channel and forwards matching items to
// output until ctx is cancelled or input is closed. input carries identity
// prefix lists; an empty list matches everything.
func (s *SignalService) Realtime(ctx context.Context, input chan []string, output chan domain.FeedItem) {
	sub := s.rdb.Subscribe(ctx, FeedChannel)
	defer sub.Close()

	ch := sub.Channel()
	var prefixes []string

	for {
		select {
		case <-ctx.Done():
			return
		case p, ok := <-input:
			if !ok {
				return
			}
			prefixes = p
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var item domain.FeedItem
			if err := json.Unmarshal([]byte(msg.Payload), &item); err != nil {
				slog.ErrorContext(
					ctx, "Bad feed payload",
					slog.String("error", err.Error()),
					slog.String("module", "signal"),
				)
				continue
			}
			if matchesPrefix(prefixes, string(item.Identity)) {
				output <- item
			}
		}
	}
}

func matchesPrefix(prefixes []string, identity string) bool {
	if len(prefixes) == 0 {
		return true
	}
	for _, p := range prefixes {
		if strings.HasPrefix(identity, strings.ToLower(p)) {
			return true
		}
	}
	return false
}
