// Package redis publishes produced signals to Redis so that other services
// can read the latest recommendation per ticker and a short run history.
//
// Keys:
//
//	signal:latest:{ticker}  JSON Signal, expires after latestTTL
//	signal:history          list of JSON RunEntry, newest first, capped
//	pub:signals             pub/sub channel receiving each RunEntry
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"stock-signal/internal/model"
)

const (
	historyKey     = "signal:history"
	updatesChannel = "pub:signals"
	latestPrefix   = "signal:latest:"

	// HistoryLimit matches the dashboard history cap.
	HistoryLimit = 30
	latestTTL    = 7 * 24 * time.Hour
)

// Config configures the Redis publisher.
type Config struct {
	Addr     string // e.g. "localhost:6379"
	Password string
	DB       int
}

// Publisher writes signals through a circuit breaker.
type Publisher struct {
	client *goredis.Client
	cb     *CircuitBreaker
}

// New connects to Redis and pings the server.
func New(cfg Config) (*Publisher, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Printf("[redis] connected to %s", cfg.Addr)
	return NewWithClient(client, NewCircuitBreaker(3, 30*time.Second)), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *goredis.Client, cb *CircuitBreaker) *Publisher {
	cb.OnStateChange = func(from, to State) {
		log.Printf("[redis] circuit %s -> %s", from, to)
	}
	return &Publisher{client: client, cb: cb}
}

// Breaker exposes the circuit breaker for state reporting.
func (p *Publisher) Breaker() *CircuitBreaker { return p.cb }

// LatestKey returns the key holding the newest signal of ticker.
func LatestKey(ticker string) string { return latestPrefix + ticker }

// Publish writes every signal to its latest key and pushes one history
// entry dated after the newest signal. All commands go in one pipeline.
func (p *Publisher) Publish(ctx context.Context, signals []model.Signal) error {
	if len(signals) == 0 {
		return nil
	}

	entry := model.RunEntry{Date: runDate(signals), Signals: signals}
	entryJSON, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("redis marshal entry: %w", err)
	}

	return p.cb.Execute(func() error {
		pipe := p.client.TxPipeline()
		for i := range signals {
			data, err := json.Marshal(&signals[i])
			if err != nil {
				return fmt.Errorf("redis marshal signal: %w", err)
			}
			pipe.Set(ctx, LatestKey(signals[i].Ticker), data, latestTTL)
		}
		pipe.LPush(ctx, historyKey, entryJSON)
		pipe.LTrim(ctx, historyKey, 0, HistoryLimit-1)
		pipe.Publish(ctx, updatesChannel, entryJSON)

		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("redis publish %d signals: %w", len(signals), err)
		}
		return nil
	})
}

// Latest returns the newest signal stored for ticker.
func (p *Publisher) Latest(ctx context.Context, ticker string) (model.Signal, bool, error) {
	raw, err := p.client.Get(ctx, LatestKey(ticker)).Bytes()
	if err == goredis.Nil {
		return model.Signal{}, false, nil
	}
	if err != nil {
		return model.Signal{}, false, fmt.Errorf("redis GET %s: %w", LatestKey(ticker), err)
	}
	var sig model.Signal
	if err := json.Unmarshal(raw, &sig); err != nil {
		return model.Signal{}, false, fmt.Errorf("redis decode signal: %w", err)
	}
	return sig, true, nil
}

// History returns the stored run entries, newest first.
func (p *Publisher) History(ctx context.Context) ([]model.RunEntry, error) {
	items, err := p.client.LRange(ctx, historyKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis LRANGE %s: %w", historyKey, err)
	}
	out := make([]model.RunEntry, 0, len(items))
	for _, it := range items {
		var e model.RunEntry
		if err := json.Unmarshal([]byte(it), &e); err != nil {
			log.Printf("[redis] skipping undecodable history entry: %v", err)
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// Close closes the client.
func (p *Publisher) Close() error { return p.client.Close() }

func runDate(signals []model.Signal) string {
	date := signals[0].Date
	for _, s := range signals[1:] {
		if s.Date > date {
			date = s.Date
		}
	}
	return date
}
