package server

import (
	"fmt"
	"os"
	"time"

	ratelimit "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func (s *Server) setupRouter() *gin.Engine {
	ginMode := os.Getenv("GIN_MODE")
	if ginMode == "test" {
		r := gin.New()
		s.defineRoutes(r)
		return r
	}

	r := gin.New()

	// LoggerWithFormatter middleware will write the logs to gin.DefaultWriter
	// By default gin.DefaultWriter = os.Stdout
	r.Use(gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
			param.ClientIP,
			param.TimeStamp.Format(time.RFC1123),
			param.Method,
			param.Path,
			param.Request.Proto,
			param.StatusCode,
			param.Latency,
			param.Request.UserAgent(),
			param.ErrorMessage,
		)
	}))
	r.Use(gin.Recovery())

	r.Use(cors.New(cors.Config{
		AllowAllOrigins:  true,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.MaxMultipartMemory = 32 << 20
	s.defineRoutes(r)

	return r
}

func (s *Server) defineRoutes(router *gin.Engine) {
	store := ratelimit.InMemoryStore(&ratelimit.InMemoryOptions{
		Rate:  time.Minute,
		Limit: 5,
	})
	limitRate := limitRateForPasswordReset(store)

	apirouter := router.Group("/api/v1")
	apirouter.POST("/auth/signup", s.handleSignup())
	apirouter.POST("/auth/login", s.handleLogin())
	apirouter.POST("/password/forgot", limitRate, s.HandleForgotPassword())

	authorized := apirouter.Group("/")
	authorized.Use(s.Authorize())
	authorized.GET("/logout", s.handleLogout())

	authorized.GET("/me", s.handleShowProfile())
	authorized.PUT("/me/updateUserProfile", s.handleEditUserProfile())
	authorized.PUT("/me/credentials", s.handleUpdateCredentials())
	authorized.POST("/me/deactivate", s.handleDeactivateAccount())
	authorized.DELETE("/me", s.handleDeleteAccount())

	authorized.GET("/messages", s.handleGetMessages())
	authorized.POST("/messages", s.handleSendMessage())
	authorized.POST("/messages/retry", s.handleRetrySend())
	authorized.POST("/messages/:messageID/reactions", s.handleAddReaction())

	authorized.POST("/typing", s.handleTyping())
	authorized.DELETE("/typing", s.handleLeaveConversation())

	authorized.POST("/capture/start", s.handleStartCapture())
	authorized.POST("/capture/chunk", s.handleCaptureChunk())
	authorized.POST("/capture/stop", s.handleStopCapture())

	authorized.GET("/ws", s.handleWebsocket())
}
