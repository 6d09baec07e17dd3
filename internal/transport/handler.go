package transport

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/DirkDigglerz/waracle-cat-project/internal/catapi"
	"github.com/DirkDigglerz/waracle-cat-project/internal/config"
	apperrors "github.com/DirkDigglerz/waracle-cat-project/internal/errors"
	"github.com/DirkDigglerz/waracle-cat-project/internal/logger"
	"github.com/DirkDigglerz/waracle-cat-project/internal/service"
	"github.com/DirkDigglerz/waracle-cat-project/internal/user"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type VoteRequest struct {
	ImageID string `json:"image_id" binding:"required"`
	Value   string `json:"value" binding:"required,oneof=up down"`
}

type FavouriteRequest struct {
	ImageID string `json:"image_id" binding:"required"`
}

type ClickVoteRequest struct {
	Value string `json:"value" binding:"required,oneof=up down"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Type    string `json:"type,omitempty"`
	Message string `json:"message,omitempty"`
}

// NewHandler builds the gallery's HTTP surface
func NewHandler(svc *service.CatService, cfg *config.Config) http.Handler {
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(requestSizeLimiter(cfg.MaxUploadSize))

	r.GET("/health", healthCheck)

	api := r.Group("/api", user.EnsureIdentity())
	{
		api.GET("/cats", listCats(svc))
		api.POST("/cats/upload", uploadCat(svc))

		// Click-style endpoints: optimistic state applies synchronously,
		// the network mutation is coalesced. They answer 202 with the
		// reflected cache.
		api.POST("/cats/:image_id/vote", clickVote(svc))
		api.POST("/cats/:image_id/favourite", clickFavourite(svc))

		// Direct mutations settle before answering.
		api.GET("/votes", listVotes(svc))
		api.POST("/votes", submitVote(svc))
		api.DELETE("/votes/:image_id", removeVote(svc))

		api.GET("/favourites", listFavourites(svc))
		api.POST("/favourites", submitFavourite(svc))
		api.DELETE("/favourites/:id", removeFavourite(svc))
	}

	return r
}

func listCats(svc *service.CatService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := user.FromContext(c)
		limit := intQuery(c, "limit", 20)
		page := intQuery(c, "page", 0)

		images, err := svc.ListImages(c.Request.Context(), userID, limit, page)
		if err != nil {
			respondError(c, "failed to fetch cats", err)
			return
		}
		c.JSON(http.StatusOK, images)
	}
}

func uploadCat(svc *service.CatService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := user.FromContext(c)

		fileHeader, err := c.FormFile("file")
		if err != nil {
			respondError(c, "no file uploaded or invalid file", apperrors.NewValidationError("file field is required", err))
			return
		}

		file, err := fileHeader.Open()
		if err != nil {
			respondError(c, "failed to read upload", apperrors.NewInternalError("failed to open upload", err))
			return
		}
		defer file.Close()

		image, err := svc.UploadImage(c.Request.Context(), userID, fileHeader.Filename, file)
		if err != nil {
			respondError(c, "upload failed", err)
			return
		}

		logger.WithFields(logrus.Fields{
			"user_id":  userID,
			"image_id": image.ID,
			"filename": fileHeader.Filename,
		}).Info("Image uploaded")
		c.JSON(http.StatusOK, image)
	}
}

func listVotes(svc *service.CatService) gin.HandlerFunc {
	return func(c *gin.Context) {
		votes, err := svc.UserVotes(c.Request.Context(), user.FromContext(c))
		if err != nil {
			respondError(c, "failed to fetch votes", err)
			return
		}
		c.JSON(http.StatusOK, votes)
	}
}

func listFavourites(svc *service.CatService) gin.HandlerFunc {
	return func(c *gin.Context) {
		favourites, err := svc.UserFavourites(c.Request.Context(), user.FromContext(c))
		if err != nil {
			respondError(c, "failed to fetch favourites", err)
			return
		}
		c.JSON(http.StatusOK, favourites)
	}
}

func submitVote(svc *service.CatService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req VoteRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, "invalid request format", apperrors.NewValidationError("invalid vote request", err))
			return
		}

		userID := user.FromContext(c)
		if err := svc.VoteCat(c.Request.Context(), userID, req.ImageID, catapi.VoteValue(req.Value)); err != nil {
			respondError(c, "failed to vote", err)
			return
		}
		c.JSON(http.StatusOK, svc.CachedVotes(userID))
	}
}

func removeVote(svc *service.CatService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := user.FromContext(c)
		if err := svc.RemoveVote(c.Request.Context(), userID, c.Param("image_id")); err != nil {
			respondError(c, "failed to remove vote", err)
			return
		}
		c.JSON(http.StatusOK, svc.CachedVotes(userID))
	}
}

func submitFavourite(svc *service.CatService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req FavouriteRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, "invalid request format", apperrors.NewValidationError("invalid favourite request", err))
			return
		}

		userID := user.FromContext(c)
		if err := svc.FavouriteCat(c.Request.Context(), userID, req.ImageID); err != nil {
			respondError(c, "failed to favourite", err)
			return
		}
		c.JSON(http.StatusOK, svc.CachedFavourites(userID))
	}
}

func removeFavourite(svc *service.CatService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := user.FromContext(c)
		if err := svc.UnfavouriteCat(c.Request.Context(), userID, c.Param("id")); err != nil {
			respondError(c, "failed to unfavourite", err)
			return
		}
		c.JSON(http.StatusOK, svc.CachedFavourites(userID))
	}
}

func clickVote(svc *service.CatService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ClickVoteRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, "invalid request format", apperrors.NewValidationError("invalid vote request", err))
			return
		}

		userID := user.FromContext(c)
		if err := svc.HandleVote(userID, c.Param("image_id"), catapi.VoteValue(req.Value)); err != nil {
			respondError(c, "failed to vote", err)
			return
		}
		c.JSON(http.StatusAccepted, svc.CachedVotes(userID))
	}
}

func clickFavourite(svc *service.CatService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := user.FromContext(c)
		if err := svc.ToggleFavourite(userID, c.Param("image_id")); err != nil {
			respondError(c, "failed to toggle favourite", err)
			return
		}
		c.JSON(http.StatusAccepted, svc.CachedFavourites(userID))
	}
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "available",
		"version": "1.0.0",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// Middleware and helper functions
func requestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

func intQuery(c *gin.Context, key string, fallback int) int {
	if raw := c.Query(key); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil {
			return value
		}
	}
	return fallback
}

func respondError(c *gin.Context, message string, err error) {
	code := apperrors.GetStatusCode(err)

	logger.WithError(err).WithFields(logrus.Fields{
		"status_code": code,
		"message":     message,
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"ip":          c.ClientIP(),
	}).Error("Request failed")

	response := ErrorResponse{
		Error:   http.StatusText(code),
		Message: fmt.Sprintf("%s: %v", message, err),
	}
	if appErr, ok := err.(*apperrors.AppError); ok {
		response.Type = string(appErr.Type)
		// The UI distinguishes "already favourited" from generic failure.
		if appErr.Type == apperrors.ErrorTypeAlreadyFavourited {
			response.Message = "image is already in your favourites"
		}
	}
	c.AbortWithStatusJSON(code, response)
}
