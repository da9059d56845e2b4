package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
)

type HealthHandler struct {
	dbPool      *pgxpool.Pool
	redisClient *redis.Client
	amqpConn    *amqp.Connection
}

func NewHealthHandler(dbPool *pgxpool.Pool, redisClient *redis.Client, amqpConn *amqp.Connection) *HealthHandler {
	return &HealthHandler{dbPool: dbPool, redisClient: redisClient, amqpConn: amqpConn}
}

func (h *HealthHandler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readyz reports PostgreSQL as required; Redis and RabbitMQ only degrade
// caching and the live order feed.
func (h *HealthHandler) Readyz(c *gin.Context) {
	ctx := c.Request.Context()

	if err := h.dbPool.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "postgres": "unavailable"})
		return
	}

	resp := gin.H{"status": "ok", "postgres": "connected", "redis": "disabled", "rabbitmq": "disabled"}
	if h.redisClient != nil {
		resp["redis"] = "connected"
		if err := h.redisClient.Ping(ctx).Err(); err != nil {
			resp["redis"] = "unavailable"
		}
	}
	if h.amqpConn != nil {
		resp["rabbitmq"] = "connected"
		if h.amqpConn.IsClosed() {
			resp["rabbitmq"] = "unavailable"
		}
	}
	c.JSON(http.StatusOK, resp)
}
