package api

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"taskrelay/internal/metrics"
	"taskrelay/internal/middleware"
)

func RegisterRoutes(taskHandler *TaskHandler, rdb *redis.Client, requestsPerSecond int) *gin.Engine {
	r := gin.New()

	r.Use(
		middleware.CorsMiddleware(),
		middleware.RequestID(),
		middleware.GinZapLogger(),
		middleware.GinZapRecovery(),
		middleware.HttpMiddleware(),
		middleware.TraceMiddleware(),
	)
	r.SetTrustedProxies(nil)

	r.GET("/health", taskHandler.HealthCheck)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	// Rate limiter protects the write path only.
	writeLimiter := middleware.RateLimitMiddleware(rdb, requestsPerSecond)

	v1 := r.Group("/api/v1")
	{
		v1.POST("/tasks", writeLimiter, taskHandler.CreateTask)
		v1.GET("/tasks", taskHandler.ListTasks)
		v1.GET("/tasks/:id", taskHandler.GetTask)
		v1.DELETE("/tasks/:id", taskHandler.CancelTask)
		v1.GET("/tasks/:id/status", taskHandler.GetTaskStatus)
	}
	return r
}
