// Package httpapi is the JSON-over-HTTP transport. Routes keep the paths and
// payloads the onechat web client expects.
package httpapi

import (
	"net/http"
	"time"

	"github.com/dmitrijs2005/onechat/internal/logging"
	"github.com/dmitrijs2005/onechat/internal/server/metrics"
	"github.com/dmitrijs2005/onechat/internal/server/services"
	"github.com/gin-gonic/gin"
)

type Deps struct {
	Users    *services.UserService
	Groups   *services.GroupService
	Messages *services.MessageService
	// Metrics may be nil; /metrics is then not served.
	Metrics *metrics.Metrics
	Logger  logging.Logger
	Env     string
}

func NewRouter(d Deps) *gin.Engine {
	h := &Handler{
		users:    d.Users,
		groups:   d.Groups,
		messages: d.Messages,
		metrics:  d.Metrics,
		log:      d.Logger.With("module", "http"),
	}

	r := gin.New()
	r.Use(gin.Recovery())
	if d.Metrics != nil {
		r.Use(d.Metrics.GinMiddleware())
	}
	r.Use(requestLogger(h.log))
	r.Use(CORS(d.Env))

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}

	r.POST("/signup", h.Signup)
	r.POST("/login", h.Login)
	r.POST("/logout", h.Logout)
	r.POST("/create_group", h.CreateGroup)
	r.POST("/join_group", h.JoinGroup)
	r.POST("/group_info/:group_number", h.GroupInfo)
	r.POST("/profile", h.Profile)
	r.POST("/update_profile", h.UpdateProfile)
	r.POST("/send_message", h.SendMessage)
	r.POST("/get_messages/:group_number", h.GetMessages)

	return r
}

func requestLogger(log logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug(c.Request.Context(), "request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"took", time.Since(start).String(),
		)
	}
}
