package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"hunter-web/internal/auth"
	"hunter-web/internal/mirror"
	"hunter-web/internal/service"
	"hunter-web/internal/site"
	"hunter-web/internal/storage"
)

// Deps are the collaborators the HTTP layer is built from. Mirror and
// Storage are nil when object storage is not configured.
type Deps struct {
	Users         service.UserService
	Uploads       service.UploadService
	Sessions      *auth.Sessions
	Site          *site.Site
	Mirror        mirror.Manager
	Storage       storage.Service
	Bucket        string
	KeyPrefix     string
	MaxConcurrent int
	Metrics       *Metrics
	Logger        *logrus.Logger
}

// Handler wires HTTP routes to domain services.
type Handler struct {
	users         service.UserService
	uploads       service.UploadService
	sessions      *auth.Sessions
	site          *site.Site
	mirror        mirror.Manager
	storage       storage.Service
	bucket        string
	keyPrefix     string
	urlTTL        time.Duration
	maxConcurrent int
	metrics       *Metrics
	logger        *logrus.Logger
}

func NewHandler(deps Deps) *Handler {
	setupValidators()
	if deps.Logger == nil {
		deps.Logger = logrus.New()
	}
	if deps.Metrics == nil {
		deps.Metrics = NewMetrics()
	}
	return &Handler{
		users:         deps.Users,
		uploads:       deps.Uploads,
		sessions:      deps.Sessions,
		site:          deps.Site,
		mirror:        deps.Mirror,
		storage:       deps.Storage,
		bucket:        deps.Bucket,
		keyPrefix:     deps.KeyPrefix,
		urlTTL:        15 * time.Minute,
		maxConcurrent: deps.MaxConcurrent,
		metrics:       deps.Metrics,
		logger:        deps.Logger,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(
		requestLogger(h.logger),
		h.metrics.middleware(),
		poweredByMiddleware(),
		corsMiddleware(),
	)

	// probes and the favicon stay outside the request limit
	router.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusAccepted, gin.H{"ok": "ok"})
	})
	router.GET("/metrics", gin.WrapH(h.metrics.handler()))
	router.GET("/favicon.ico", func(ctx *gin.Context) {
		ctx.Status(http.StatusNoContent)
	})

	limit := concurrencyLimit(h.maxConcurrent)
	app := router.Group("", limit)
	app.GET("/", h.index)
	app.HEAD("/", h.index)

	users := app.Group("/users")
	{
		users.GET("", newQueryRoutes(h.listUsers).
			on("?id=int", h.getUserByID).
			on("?username=*", h.getUserByName).
			handle)
		users.POST("/create-user", h.createUser)
		users.POST("/update-user", h.updateUser)
		users.POST("/login", h.login)

		session := users.Group("/me", h.requireSession)
		session.GET("", h.me)
	}

	app.POST("/file", h.appendChunk)
	uploads := app.Group("/uploads")
	{
		uploads.GET("", newQueryRoutes(h.listUploads).
			on("?status=str", h.listUploadsByStatus).
			handle)
		uploads.GET("/:id", h.getUpload)
		uploads.GET("/:id/url", h.uploadURL)
		uploads.DELETE("/:id", h.deleteUpload)
	}

	app.GET("/storage/objects", h.listObjects)

	router.NoRoute(limit, h.notFound)
}

func (h *Handler) listObjects(c *gin.Context) {
	if !h.storageEnabled() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage service not configured"})
		return
	}

	prefix := c.Query("prefix")
	objects, err := h.storage.ListObjects(c.Request.Context(), h.bucket, prefix)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]StorageObjectResponse, len(objects))
	for i := range objects {
		resp[i] = objectToResponse(objects[i])
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) storageEnabled() bool {
	return h.storage != nil && h.bucket != ""
}
