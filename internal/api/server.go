package api

import (
	"net/http"
	"reflect"
	"strings"

	"divdataset/app"
	"divdataset/internal"
	"divdataset/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"golang.org/x/time/rate"
)

// Server exposes the dataset service over HTTP
type Server struct {
	router      *gin.Engine
	service     *app.DatasetService
	maxFileSize int64
	limiter     *rate.Limiter
	logger      *internal.Logger
}

// NewServer builds the gin engine with all routes under cfg.Server.APIPrefix
func NewServer(cfg *config.Config, service *app.DatasetService, logger *internal.Logger) *Server {
	if logger == nil {
		logger = internal.Discard()
	}
	registerJSONFieldNames()

	s := &Server{
		router:      gin.New(),
		service:     service,
		maxFileSize: cfg.Upload.MaxFileSize,
		limiter:     newUploadLimiter(cfg.Upload.RateLimitRPS, cfg.Upload.RateLimitBurst),
		logger:      logger,
	}
	s.router.MaxMultipartMemory = 8 << 20

	s.setupMiddleware()
	s.setupRoutes(cfg.Server.APIPrefix)
	return s
}

// Handler returns the HTTP handler serving the API
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(requestLogger(s.logger))
}

func (s *Server) setupRoutes(prefix string) {
	api := s.router.Group(strings.TrimSuffix(prefix, "/"))

	api.GET("/health/", s.handleHealth)

	api.POST("/datasets/upload/", rateLimit(s.limiter), s.handleUpload)
	api.POST("/datasets/split/", s.handleSplit)
	api.GET("/datasets/:session_id/info/", s.handleInfo)
	api.GET("/datasets/:session_id/columns/", s.handleColumns)
	api.GET("/datasets/:session_id/export/", s.handleExport)

	api.DELETE("/sessions/:session_id/clear/", s.handleClear)
}

// registerJSONFieldNames makes validation errors report json field names
func registerJSONFieldNames() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})
}
