package server

import (
	"fmt"
	"os"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/gatherly/gatherly/config"
	"github.com/gatherly/gatherly/internal/handlers"
	"github.com/gatherly/gatherly/internal/hub"
	"github.com/gatherly/gatherly/internal/middleware"
)

func Start() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %v", err)
	}

	db, err := config.InitDatabase(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %v", err)
	}

	r := NewRouter(db, hub.New())

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	return r.Run(":" + port)
}

// NewRouter wires the full route table onto a gin engine.
func NewRouter(db *gorm.DB, h *hub.Hub) *gin.Engine {
	r := gin.Default()

	r.Use(corsMiddleware())
	r.Use(middleware.DatabaseMiddleware(db))
	r.Use(middleware.HubMiddleware(h))

	r.GET("/ws", func(c *gin.Context) {
		h.Serve(c.Writer, c.Request)
	})
	r.Static("/uploads", "./uploads")

	public := r.Group("/api")
	{
		users := public.Group("/users")
		{
			users.POST("/register", handlers.Register)
			users.POST("/login", handlers.Login)
		}

		eventPublic := public.Group("/events")
		{
			eventPublic.GET("", handlers.ListEvents)
			eventPublic.GET("/:id", handlers.GetEvent)
		}
	}

	protected := r.Group("/api")
	protected.Use(middleware.JWTAuthMiddleware())
	{
		eventProtected := protected.Group("/events")
		{
			eventProtected.POST("", handlers.CreateEvent)
			eventProtected.PUT("/:id", handlers.UpdateEvent)
			eventProtected.DELETE("/:id", handlers.DeleteEvent)
			eventProtected.POST("/:id/attend", handlers.AttendEvent)
			eventProtected.POST("/:id/image", handlers.UploadEventImage)
			eventProtected.GET("/user/:id", handlers.ListUserEvents)
		}
	}

	return r
}

func corsMiddleware() gin.HandlerFunc {
	corsCfg := cors.DefaultConfig()
	corsCfg.AllowMethods = []string{"GET", "POST", "PUT", "DELETE"}
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "Authorization")

	if origin := os.Getenv("FRONTEND_URL"); origin != "" {
		corsCfg.AllowOrigins = []string{origin}
		corsCfg.AllowCredentials = true
	} else {
		corsCfg.AllowAllOrigins = true
	}

	return cors.New(corsCfg)
}
