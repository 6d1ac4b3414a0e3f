package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": statusOK,
	})
}

// @Summary      List valves
// @Description  Every configured valve with its solenoid and current state, in configuration order.
// @Tags         valves
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "count, valves"
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/valves [get]
// @Security     BearerAuth
func (h *Handler) listValves(c *gin.Context) {
	states := h.services.Valves.List()
	c.JSON(http.StatusOK, gin.H{
		"count":  len(states),
		"valves": states,
	})
}

// @Summary      Open valve
// @Tags         valves
// @Produce      json
// @Param        id   path      string  true  "Valve alias"
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/valves/{id}/open [post]
// @Security     BearerAuth
func (h *Handler) openValve(c *gin.Context) {
	id := c.Param("id")
	if err := h.services.Valves.Open(c.Request.Context(), id); err != nil {
		h.respondError(c, "valve_open_failed", err, "valve", id)
		return
	}
	h.respondWithValves(c, statusOpened, gin.H{"valve": id})
}

// @Summary      Close valve
// @Tags         valves
// @Produce      json
// @Param        id   path      string  true  "Valve alias"
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/valves/{id}/close [post]
// @Security     BearerAuth
func (h *Handler) closeValve(c *gin.Context) {
	id := c.Param("id")
	if err := h.services.Valves.Close(c.Request.Context(), id); err != nil {
		h.respondError(c, "valve_close_failed", err, "valve", id)
		return
	}
	h.respondWithValves(c, statusClosed, gin.H{"valve": id})
}

// @Summary      Toggle valve
// @Tags         valves
// @Produce      json
// @Param        id   path      string  true  "Valve alias"
// @Success      200  {object}  map[string]interface{}  "status, valve, state, valves"
// @Failure      401  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/valves/{id}/toggle [post]
// @Security     BearerAuth
func (h *Handler) toggleValve(c *gin.Context) {
	id := c.Param("id")
	state, err := h.services.Valves.Toggle(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, "valve_toggle_failed", err, "valve", id)
		return
	}
	h.respondWithValves(c, state, gin.H{"valve": id})
}

// @Summary      Open all valves
// @Tags         valves
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/valves/open-all [post]
// @Security     BearerAuth
func (h *Handler) openAllValves(c *gin.Context) {
	if err := h.services.Valves.OpenAll(c.Request.Context()); err != nil {
		h.respondError(c, "valve_open_all_failed", err)
		return
	}
	h.respondWithValves(c, statusOpened, nil)
}

// @Summary      Close all valves
// @Tags         valves
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/valves/close-all [post]
// @Security     BearerAuth
func (h *Handler) closeAllValves(c *gin.Context) {
	if err := h.services.Valves.CloseAll(c.Request.Context()); err != nil {
		h.respondError(c, "valve_close_all_failed", err)
		return
	}
	h.respondWithValves(c, statusClosed, nil)
}

// @Summary      Reset valves
// @Description  Puts every valve back into its configured default state.
// @Tags         valves
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/valves/reset [post]
// @Security     BearerAuth
func (h *Handler) resetValves(c *gin.Context) {
	if err := h.services.Valves.Reset(c.Request.Context()); err != nil {
		h.respondError(c, "valve_reset_failed", err)
		return
	}
	h.respondWithValves(c, statusReset, nil)
}

// Respond with a status and the valve states after the change.
func (h *Handler) respondWithValves(c *gin.Context, status string, extra gin.H) {
	resp := gin.H{"status": status}
	for k, v := range extra {
		resp[k] = v
	}
	resp["valves"] = h.services.Valves.List()
	c.JSON(http.StatusOK, resp)
}
