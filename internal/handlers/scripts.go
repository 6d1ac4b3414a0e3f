package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const maxScriptBytes = 1 << 20 // 1 MB

var errEmptyScriptBody = errors.New("script text is required")

// ScriptRequest is an exported model for Swagger docs of script payloads.
// Plain text bodies are accepted as well.
type ScriptRequest struct {
	// Script text, one operation per line
	Text string `json:"text" example:"open waste\nwait 5 s\nclose waste"`
}

// readScriptText accepts either a text/plain body or {"text": "..."}.
func readScriptText(c *gin.Context) (string, error) {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxScriptBytes))
	if err != nil {
		return "", err
	}
	if strings.HasPrefix(c.ContentType(), "application/json") {
		var req ScriptRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			return "", err
		}
		raw = []byte(req.Text)
	}
	if strings.TrimSpace(string(raw)) == "" {
		return "", errEmptyScriptBody
	}
	return string(raw), nil
}

// @Summary      Validate script
// @Description  Parses a script without storing it. Syntax errors report the 1-based line and the offending token.
// @Tags         scripts
// @Accept       json,plain
// @Produce      json
// @Param        body  body      ScriptRequest  true  "Script payload"
// @Success      200   {object}  map[string]interface{}  "valid, steps, expected_seconds"
// @Failure      400   {object}  map[string]interface{}
// @Failure      401   {object}  map[string]string
// @Router       /api/v1/scripts/validate [post]
// @Security     BearerAuth
func (h *Handler) validateScript(c *gin.Context) {
	text, err := readScriptText(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	summary, err := h.services.Scripts.Validate(text)
	if err != nil {
		h.respondError(c, "script_validate_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"valid":            true,
		"steps":            summary.Steps,
		"expected_seconds": summary.ExpectedSeconds,
	})
}

// @Summary      List scripts
// @Tags         scripts
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "count, scripts"
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/scripts [get]
// @Security     BearerAuth
func (h *Handler) listScripts(c *gin.Context) {
	scripts, err := h.services.Scripts.List(c.Request.Context())
	if err != nil {
		h.respondError(c, "script_list_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":   len(scripts),
		"scripts": scripts,
	})
}

// @Summary      Get script
// @Tags         scripts
// @Produce      json
// @Param        name  path      string  true  "Script name"
// @Success      200   {object}  models.StoredScript
// @Failure      401   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /api/v1/scripts/{name} [get]
// @Security     BearerAuth
func (h *Handler) getScript(c *gin.Context) {
	name := c.Param("name")
	sc, err := h.services.Scripts.Get(c.Request.Context(), name)
	if err != nil {
		h.respondError(c, "script_get_failed", err, "name", name)
		return
	}
	c.JSON(http.StatusOK, sc)
}

// @Summary      Save script
// @Description  Validates and stores a script under a name, replacing any previous version.
// @Tags         scripts
// @Accept       json,plain
// @Produce      json
// @Param        name  path      string         true  "Script name"
// @Param        body  body      ScriptRequest  true  "Script payload"
// @Success      200   {object}  map[string]interface{}  "status, script"
// @Failure      400   {object}  map[string]interface{}
// @Failure      401   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/v1/scripts/{name} [put]
// @Security     BearerAuth
func (h *Handler) saveScript(c *gin.Context) {
	name := c.Param("name")
	text, err := readScriptText(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	stored, err := h.services.Scripts.Save(c.Request.Context(), name, text)
	if err != nil {
		h.respondError(c, "script_save_failed", err, "name", name)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusSaved, "script": stored})
}

// @Summary      Delete script
// @Tags         scripts
// @Produce      json
// @Param        name  path      string  true  "Script name"
// @Success      200   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /api/v1/scripts/{name} [delete]
// @Security     BearerAuth
func (h *Handler) deleteScript(c *gin.Context) {
	name := c.Param("name")
	if err := h.services.Scripts.Delete(c.Request.Context(), name); err != nil {
		h.respondError(c, "script_delete_failed", err, "name", name)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusDeleted, "name": name})
}
