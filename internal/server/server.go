// Package server exposes the core operations as callable-style RPC over
// HTTP.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/agenthands/notalone/internal/apperr"
	"github.com/agenthands/notalone/internal/auth"
	"github.com/agenthands/notalone/internal/core"
	"github.com/agenthands/notalone/internal/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Server struct {
	Core    *core.Orchestrator
	Auth    *auth.JWTService
	Limiter *RateLimiter
	Log     *zap.Logger
}

func New(o *core.Orchestrator, jwt *auth.JWTService, limiter *RateLimiter, log *zap.Logger) *Server {
	return &Server{Core: o, Auth: jwt, Limiter: limiter, Log: logger.OrNop(log)}
}

// Router builds the gin engine. Every operation is POST /rpc/<name> with a
// {"data": ...} body and answers {"result": ...} or {"error": ...}.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(ginLogger(s.Log))
	r.Use(gin.Recovery())
	r.Use(cors())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	rpc := r.Group("/rpc", s.authenticate())
	{
		rpc.POST("/sendMessage", s.rateLimit(), handle(s, s.Core.SendMessage))
		rpc.POST("/getChatHistory", handle(s, s.Core.GetChatHistory))
		rpc.POST("/saveChatHistory", handle(s, s.Core.SaveChatHistory))
		rpc.POST("/deleteChatHistory", handle(s, s.Core.DeleteChatHistory))
		rpc.POST("/saveProfileHistory", handle(s, s.Core.SaveProfileHistory))
		rpc.POST("/analyzeProfileFromChat", s.rateLimit(), handle(s, s.Core.AnalyzeProfileFromChat))
		rpc.POST("/getSuggestions", handle(s, func(ctx context.Context, uid string, _ struct{}) (*core.SuggestionsResponse, error) {
			return s.Core.GetSuggestions(ctx, uid)
		}))
		rpc.POST("/getProfileGraph", handle(s, s.Core.GetProfileGraph))
		rpc.POST("/getRelationshipCircles", handle(s, s.Core.GetRelationshipCircles))
	}

	r.NoRoute(func(c *gin.Context) {
		s.writeError(c, apperr.NotFound("Unknown operation"))
	})

	return r
}

// handle adapts an orchestrator operation to a gin handler.
func handle[Req, Resp any](s *Server, op func(context.Context, string, Req) (*Resp, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req Req
		if err := bindData(c, &req); err != nil {
			s.writeError(c, err)
			return
		}

		ctx := c.Request.Context()
		resp, err := op(ctx, auth.UserIDFromContext(ctx), req)
		if err != nil {
			s.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"result": resp})
	}
}

// authenticate requires a valid bearer token and stores the caller's uid in
// the request context.
func (s *Server) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := s.Auth.ValidateToken(c.GetHeader("Authorization"))
		if err != nil {
			s.Log.Debug("Rejected token", zap.Error(err))
			s.writeError(c, apperr.Unauthenticated("The function must be called while authenticated."))
			return
		}

		c.Request = c.Request.WithContext(auth.WithUserID(c.Request.Context(), claims.UserID()))
		c.Next()
	}
}

func (s *Server) rateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.Limiter.Allow(auth.UserIDFromContext(c.Request.Context())) {
			s.writeError(c, apperr.ResourceExhausted("Too many requests. Please slow down and try again in a minute.", nil))
			return
		}
		c.Next()
	}
}

func (s *Server) writeError(c *gin.Context, err error) {
	appErr := apperr.As(err)
	if appErr.Code == apperr.CodeInternal {
		s.Log.Error("Request failed",
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
		)
	}

	c.AbortWithStatusJSON(appErr.Code.HTTPStatus(), gin.H{
		"error": gin.H{
			"status":  appErr.Code.Status(),
			"code":    appErr.Code,
			"message": appErr.ClientMessage(),
		},
	})
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func ginLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		log.Info("HTTP Request",
			zap.Int("status", c.Writer.Status()),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		)
	}
}
