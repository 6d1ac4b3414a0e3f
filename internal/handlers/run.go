package handlers

import (
	"net/http"

	"controlling_fluidics/internal/sequencer"
	"controlling_fluidics/internal/service"

	"github.com/gin-gonic/gin"
)

// LoadRequest is an exported model for Swagger docs of the load payload.
// Give either a stored script name or inline script text.
type LoadRequest struct {
	// Name of a stored script
	Name string `json:"name,omitempty" example:"prime"`
	// Inline script text
	Text string `json:"text,omitempty" example:"open waste\nwait 5 s\nclose waste"`
}

// @Summary      Load script
// @Description  Parses the script and creates an idle session. Only one session may be loaded.
// @Tags         run
// @Accept       json
// @Produce      json
// @Param        body  body      LoadRequest  true  "Script to load"
// @Success      200   {object}  map[string]interface{}  "status, run"
// @Failure      400   {object}  map[string]interface{}
// @Failure      401   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /api/v1/run/load [post]
// @Security     BearerAuth
func (h *Handler) loadScript(c *gin.Context) {
	var req LoadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	st, err := h.services.Runner.Load(c.Request.Context(), service.LoadParams{Name: req.Name, Text: req.Text})
	if err != nil {
		h.respondError(c, "run_load_failed", err, "name", req.Name)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusLoaded, "run": st})
}

// @Summary      Start or pause
// @Description  Starts an idle run, pauses a running one and resumes a paused one.
// @Tags         run
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Router       /api/v1/run/start-pause [post]
// @Security     BearerAuth
func (h *Handler) startPause(c *gin.Context) {
	h.signal(c, sequencer.SignalStartPause)
}

// @Summary      Skip step
// @Description  Ends the current wait early and moves on to the next step.
// @Tags         run
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Router       /api/v1/run/skip [post]
// @Security     BearerAuth
func (h *Handler) skipStep(c *gin.Context) {
	h.signal(c, sequencer.SignalSkip)
}

// @Summary      Stop run
// @Description  Stops the run and ends the session. Stopping a run that never started unloads it.
// @Tags         run
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Router       /api/v1/run/stop [post]
// @Security     BearerAuth
func (h *Handler) stopRun(c *gin.Context) {
	h.signal(c, sequencer.SignalStop)
}

func (h *Handler) signal(c *gin.Context, sig sequencer.Signal) {
	st, err := h.services.Runner.Signal(c.Request.Context(), sig)
	if err != nil {
		h.respondError(c, "run_signal_failed", err, "signal", sig)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusSignaled, "signal": sig, "run": st})
}

// @Summary      Unload script
// @Description  Terminates the loaded session.
// @Tags         run
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/run/unload [post]
// @Security     BearerAuth
func (h *Handler) unloadScript(c *gin.Context) {
	if err := h.services.Runner.Unload(c.Request.Context()); err != nil {
		h.respondError(c, "run_unload_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusUnloaded, "run": h.services.Runner.Status()})
}

// @Summary      Run status
// @Tags         run
// @Produce      json
// @Success      200  {object}  models.RunStatus
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/run/status [get]
// @Security     BearerAuth
func (h *Handler) runStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.Runner.Status())
}
