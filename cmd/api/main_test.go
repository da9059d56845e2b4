package main

import (
	"io"
	"log/slog"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	"github.com/flicky/bakery-api/internal/notify"
)

func TestOrderEvents_NeedBrokerAndRedis(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	hub := notify.NewHub(log)
	rdb := redis.NewClient(&redis.Options{Addr: "localhost:0"})
	defer rdb.Close()

	cases := []struct {
		name  string
		ch    *amqp.Channel
		redis *redis.Client
	}{
		{"nothing", nil, nil},
		{"redis only", nil, rdb},
		{"broker only", &amqp.Channel{}, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			events, w := orderEvents(tc.ch, tc.redis, hub, log)
			assert.Nil(t, events, "no publisher without a consumer")
			assert.Nil(t, w)
		})
	}

	events, w := orderEvents(&amqp.Channel{}, rdb, hub, log)
	assert.NotNil(t, events)
	assert.NotNil(t, w)
}
