package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/rss-radio/app/cfg"
	"github.com/lysyi3m/rss-radio/app/metrics"
)

type ServerOptions struct {
	APIAccessKey  string
	Events        http.Handler // SSE hub, served at /events
	StoragePrefix string       // URL prefix of the audio bucket
	StorageDir    string
}

// NewServer creates a new HTTP server with all routes configured
func NewServer(handler *Handler, opts ServerOptions) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
		SkipPaths: []string{"/health", "/metrics"},
	}))

	r.Use(gin.Recovery())

	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-API-Key")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	setupRoutes(r, handler, opts)

	return r
}

func setupRoutes(r *gin.Engine, handler *Handler, opts ServerOptions) {
	r.GET("/feeds/:id/podcast.xml", handler.GetPodcast)

	r.GET("/health", handler.GetHealth)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	if opts.Events != nil {
		r.GET("/events", gin.WrapH(opts.Events))
	}
	if opts.StoragePrefix != "" && opts.StorageDir != "" {
		r.Static(opts.StoragePrefix, opts.StorageDir)
	}

	api := r.Group("/api")
	if opts.APIAccessKey != "" {
		api.Use(authMiddleware(opts.APIAccessKey))
		slog.Info("API authentication enabled")
	} else {
		slog.Warn("API authentication disabled (API_ACCESS_KEY not set)")
	}
	{
		api.GET("/feeds", handler.ListFeeds)
		api.POST("/feeds", handler.CreateFeed)
		api.GET("/feeds/:id", handler.GetFeed)
		api.PUT("/feeds/:id", handler.UpdateFeed)
		api.PATCH("/feeds/:id", handler.UpdateFeed)
		api.DELETE("/feeds/:id", handler.DeleteFeed)
		api.POST("/feeds/:id/fetch", handler.FetchFeed)

		api.GET("/stations", handler.ListStations)
		api.POST("/stations", handler.CreateStation)
		api.GET("/stations/:id", handler.GetStation)
		api.PUT("/stations/:id", handler.UpdateStation)
		api.PATCH("/stations/:id", handler.UpdateStation)
		api.DELETE("/stations/:id", handler.DeleteStation)

		api.GET("/articles", handler.ListArticles)
		api.DELETE("/articles", handler.DeleteArticles)
		api.GET("/articles/:id", handler.GetArticle)
		api.POST("/articles/:id/transcript", handler.GenerateTranscript)
		api.POST("/articles/:id/audio", handler.GenerateAudio)
		api.DELETE("/articles/:id/audio", handler.ClearAudio)

		api.GET("/credentials", handler.GetCredentials)
		api.PUT("/credentials", handler.UpdateCredentials)

		api.GET("/catalog", handler.ListCatalog)
		api.POST("/catalog/:name/subscribe", handler.SubscribeCatalog)

		api.GET("/voices", handler.ListVoices)

		api.POST("/radio/start", handler.StartRadio)
		api.POST("/radio/stop", handler.StopRadio)
		api.GET("/radio/status", handler.GetRadioStatus)

		api.GET("/player", handler.GetPlayer)
		api.POST("/player/play-all", handler.PlayAll)
		api.POST("/player/next", handler.PlayerNext)
		api.POST("/player/previous", handler.PlayerPrevious)
		api.POST("/player/ended", handler.PlayerEnded)
		api.POST("/player/seek", handler.PlayerSeek)
		api.POST("/player/duration", handler.PlayerDuration)
	}

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service":     "RSS Radio",
			"version":     cfg.GetVersion(),
			"description": "Turns RSS articles into narrated audio and plays them as a radio",
			"endpoints": map[string]string{
				"podcast": "/feeds/<id>/podcast.xml",
				"health":  "/health",
				"metrics": "/metrics",
				"events":  "/events?stream=player|radio",
				"api":     "/api",
			},
			"api_status": map[string]interface{}{
				"auth_required": opts.APIAccessKey != "",
				"header":        "X-API-Key",
			},
		})
	})

	r.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
}

// authMiddleware accepts the key in X-API-Key or as a Bearer token
func authMiddleware(apiAccessKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		providedKey := c.GetHeader("X-API-Key")

		if providedKey == "" {
			authHeader := c.GetHeader("Authorization")
			if strings.HasPrefix(authHeader, "Bearer ") {
				providedKey = strings.TrimPrefix(authHeader, "Bearer ")
			}
		}

		if providedKey == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "API key required",
				"message": "Provide API key in X-API-Key header or Authorization: Bearer <key>",
			})
			c.Abort()
			return
		}

		if providedKey != apiAccessKey {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "Invalid API key",
				"message": "The provided API key is not valid",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
