package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/MarcoPoloResearchLab/cloudvault/internal/activity"
	"github.com/MarcoPoloResearchLab/cloudvault/internal/auth"
	"github.com/MarcoPoloResearchLab/cloudvault/internal/files"
	"github.com/MarcoPoloResearchLab/cloudvault/internal/texts"
	"github.com/MarcoPoloResearchLab/cloudvault/internal/users"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const (
	userIDContextKey    = "cloudvault_user_id"
	userEmailContextKey = "cloudvault_user_email"

	accessTokenQueryParam = "access_token"

	defaultMaxUploadBytes    = 32 << 20
	defaultHeartbeatInterval = 30 * time.Second
)

var (
	errMissingTokenManager    = errors.New("token manager dependency required")
	errMissingUserService     = errors.New("user service dependency required")
	errMissingFileService     = errors.New("file service dependency required")
	errMissingTextService     = errors.New("text service dependency required")
	errMissingActivityService = errors.New("activity service dependency required")
	errMissingAccountService  = errors.New("account service dependency required")
	errMissingAllowedOrigin   = errors.New("allowed origin required")
)

type TokenManager interface {
	IssueToken(ctx context.Context, identity auth.Identity) (string, int64, error)
	ValidateToken(token string) (auth.Claims, error)
}

type UserService interface {
	Register(ctx context.Context, email, password string) (users.User, error)
	Authenticate(ctx context.Context, email, password string) (users.User, error)
	ResetPassword(ctx context.Context, userID, newPassword string) error
}

type FileService interface {
	Upload(ctx context.Context, request files.UploadRequest) (files.File, error)
	List(ctx context.Context, userID string) ([]files.File, error)
	Delete(ctx context.Context, userID, externalID string) (files.File, error)
}

type TextService interface {
	Save(ctx context.Context, userID, content string) (texts.Text, error)
	List(ctx context.Context, userID string) ([]texts.Text, error)
	Delete(ctx context.Context, userID, textID string) error
}

type ActivityService interface {
	Record(ctx context.Context, userID, action string)
	List(ctx context.Context, userID string) ([]activity.LogEntry, error)
	Clear(ctx context.Context, userID string) error
}

type AccountService interface {
	Delete(ctx context.Context, userID string) error
}

// ActivityStream hands out live feeds of a user's activity entries.
type ActivityStream interface {
	Subscribe(ctx context.Context, userID string) (<-chan activity.LogEntry, func())
}

type Dependencies struct {
	TokenManager    TokenManager
	Users           UserService
	Files           FileService
	Texts           TextService
	Activity        ActivityService
	Accounts        AccountService
	Stream          ActivityStream
	Metrics         *Metrics
	AllowedOrigin   string
	MaxUploadBytes  int64
	HeartbeatPeriod time.Duration
	Logger          *zap.Logger
}

func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	switch {
	case deps.TokenManager == nil:
		return nil, errMissingTokenManager
	case deps.Users == nil:
		return nil, errMissingUserService
	case deps.Files == nil:
		return nil, errMissingFileService
	case deps.Texts == nil:
		return nil, errMissingTextService
	case deps.Activity == nil:
		return nil, errMissingActivityService
	case deps.Accounts == nil:
		return nil, errMissingAccountService
	case deps.AllowedOrigin == "":
		return nil, errMissingAllowedOrigin
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := deps.Metrics
	if metrics == nil {
		metrics = NewMetrics()
	}
	maxUploadBytes := deps.MaxUploadBytes
	if maxUploadBytes <= 0 {
		maxUploadBytes = defaultMaxUploadBytes
	}
	heartbeat := deps.HeartbeatPeriod
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeatInterval
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(metrics.middleware())
	router.Use(corsMiddleware(deps.AllowedOrigin))

	handler := &httpHandler{
		tokens:            deps.TokenManager,
		users:             deps.Users,
		files:             deps.Files,
		texts:             deps.Texts,
		activity:          deps.Activity,
		accounts:          deps.Accounts,
		stream:            deps.Stream,
		metrics:           metrics,
		maxUploadBytes:    maxUploadBytes,
		heartbeatInterval: heartbeat,
		logger:            logger,
	}

	router.GET("/healthz", handler.handleHealth)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))
	router.POST("/register", handler.handleRegister)
	router.POST("/login", handler.handleLogin)

	protected := router.Group("/")
	protected.Use(handler.authorizeRequest)
	protected.POST("/reset-password", handler.handleResetPassword)
	protected.POST("/upload", handler.handleUpload)
	protected.GET("/files", handler.handleListFiles)
	protected.DELETE("/delete/:public_id", handler.handleDeleteFile)
	protected.POST("/text", handler.handleSaveText)
	protected.GET("/texts", handler.handleListTexts)
	protected.DELETE("/text", handler.handleDeleteText)
	protected.DELETE("/text/:id", handler.handleDeleteText)
	protected.GET("/logs", handler.handleListLogs)
	protected.DELETE("/logs/clear", handler.handleClearLogs)
	protected.DELETE("/account/delete", handler.handleDeleteAccount)

	if deps.Stream != nil {
		router.GET("/logs/stream", handler.authorizeStream, handler.handleActivityStream)
	}

	return router, nil
}

type httpHandler struct {
	tokens            TokenManager
	users             UserService
	files             FileService
	texts             TextService
	activity          ActivityService
	accounts          AccountService
	stream            ActivityStream
	metrics           *Metrics
	maxUploadBytes    int64
	heartbeatInterval time.Duration
	logger            *zap.Logger
}

func corsMiddleware(allowedOrigin string) gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOrigins:     []string{allowedOrigin},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}

func (h *httpHandler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *httpHandler) authorizeRequest(c *gin.Context) {
	token, err := auth.BearerToken(c.Request)
	if errors.Is(err, auth.ErrMissingCredentials) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "No token"})
		return
	}
	if err != nil {
		h.logger.Warn("token validation failed", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Invalid token"})
		return
	}
	h.authorizeToken(c, token)
}

// authorizeStream also accepts the token as a query parameter because
// EventSource clients cannot set headers.
func (h *httpHandler) authorizeStream(c *gin.Context) {
	if c.GetHeader("Authorization") == "" {
		if token := c.Query(accessTokenQueryParam); token != "" {
			h.authorizeToken(c, token)
			return
		}
	}
	h.authorizeRequest(c)
}

func (h *httpHandler) authorizeToken(c *gin.Context, token string) {
	claims, err := h.tokens.ValidateToken(token)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			h.logger.Info("token validation failed", zap.Error(err))
		} else {
			h.logger.Warn("token validation failed", zap.Error(err))
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Invalid token"})
		return
	}
	c.Set(userIDContextKey, claims.UserID)
	c.Set(userEmailContextKey, claims.Email)
	c.Next()
}

func (h *httpHandler) respondServiceError(c *gin.Context, message string, err error) {
	h.logger.Error(message, zap.Error(err), zap.String("path", c.FullPath()))
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
