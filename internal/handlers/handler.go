package handlers

import (
	"controlling_fluidics/internal/logger"
	"controlling_fluidics/internal/service"

	"github.com/gin-gonic/gin"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Handler wires HTTP layer to services and logging.
type Handler struct {
	services *service.Service
	log      *logger.Logger
}

// NewHandler constructs a new HTTP handler with dependencies.
func NewHandler(services *service.Service, log *logger.Logger) *Handler {
	return &Handler{services: services, log: log}
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/health", h.health)

	h.registerAuthRoutes(router)
	h.registerAPIRoutes(router)

	// run status stream, same port
	router.GET("/ws", h.wsConnect)

	return router
}

func (h *Handler) registerAuthRoutes(r *gin.Engine) {
	auth := r.Group("/auth")
	{
		auth.POST("/sign-up", h.signUp)
		auth.POST("/sign-in", h.signIn)
	}
}

func (h *Handler) registerAPIRoutes(r *gin.Engine) {
	api := r.Group("/api/v1", h.userIdMiddleware)
	{
		h.registerValveRoutes(api)
		h.registerScriptRoutes(api)
		h.registerRunRoutes(api)
		h.registerLogRoutes(api)
	}
}

func (h *Handler) registerValveRoutes(api *gin.RouterGroup) {
	v := api.Group("/valves")
	{
		v.GET("", h.listValves)
		v.POST("/open-all", h.openAllValves)
		v.POST("/close-all", h.closeAllValves)
		v.POST("/reset", h.resetValves)
		v.POST("/:id/open", h.openValve)
		v.POST("/:id/close", h.closeValve)
		v.POST("/:id/toggle", h.toggleValve)
	}
}

func (h *Handler) registerScriptRoutes(api *gin.RouterGroup) {
	s := api.Group("/scripts")
	{
		// Body: plain text script, or {"text":"..."}
		s.POST("/validate", h.validateScript)
		s.GET("", h.listScripts)
		s.GET("/:name", h.getScript)
		s.PUT("/:name", h.saveScript)
		s.DELETE("/:name", h.deleteScript)
	}
}

func (h *Handler) registerRunRoutes(api *gin.RouterGroup) {
	run := api.Group("/run")
	{
		// Body example: {"name":"prime"} or {"text":"open waste\nwait 5 s"}
		run.POST("/load", h.loadScript)
		run.POST("/start-pause", h.startPause)
		run.POST("/skip", h.skipStep)
		run.POST("/stop", h.stopRun)
		run.POST("/unload", h.unloadScript)
		run.GET("/status", h.runStatus)
	}
}

func (h *Handler) registerLogRoutes(api *gin.RouterGroup) {
	logs := api.Group("/logs")
	{
		logs.GET("", h.getLogs)
	}
}
