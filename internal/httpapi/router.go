package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// NewRouter wires the handlers behind JWT auth. Release mode is the
// caller's choice via gin.SetMode before building the router.
func NewRouter(h *Handler, jwtSecret string) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	api.Use(Auth(jwtSecret))
	{
		games := api.Group("/games")
		{
			games.POST("", h.CreateSession)
			games.GET("/active", h.ListActive)
			games.GET("/history", h.ListHistory)
			games.GET("/:id", h.GetSession)
			games.POST("/:id/move", h.ApplyMove)
			games.POST("/:id/resign", h.Resign)
		}
		api.GET("/wallet", h.Wallet)
	}
	return router
}
