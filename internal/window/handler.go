package window

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"ATLAS-backend/internal/platform/apperr"
	"ATLAS-backend/internal/platform/auth"
)

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}

	teacherOnly := auth.RequireRole(auth.RoleTeacher, auth.RoleAdmin)

	// POST /sessions/:id/windows — open a new verification round
	r.POST("/sessions/:id/windows", teacherOnly, h.OpenWindow)

	// POST /windows/:ulid/close — manual close (round stops counting)
	r.POST("/windows/:ulid/close", teacherOnly, h.CloseWindow)

	// GET /sessions/:id/windows/current
	r.GET("/sessions/:id/windows/current", h.CurrentWindow)
}

func (h *Handler) OpenWindow(c *gin.Context) {
	sessionID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || sessionID == 0 {
		c.JSON(http.StatusBadRequest, apperr.ErrInvalid("invalid session id"))
		return
	}

	var req OpenWindowRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, apperr.ErrInvalid("invalid json"))
			return
		}
	}

	actorID := c.GetString(auth.CtxUserIDKey)
	res, err := h.svc.Open(c.Request.Context(), sessionID, actorID, req.DurationMinutes)
	if err != nil {
		c.JSON(apperr.ToHTTPStatus(err), err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) CloseWindow(c *gin.Context) {
	windowULID := c.Param("ulid")
	actorID := c.GetString(auth.CtxUserIDKey)

	if err := h.svc.Close(c.Request.Context(), windowULID, actorID); err != nil {
		c.JSON(apperr.ToHTTPStatus(err), err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) CurrentWindow(c *gin.Context) {
	sessionID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || sessionID == 0 {
		c.JSON(http.StatusBadRequest, apperr.ErrInvalid("invalid session id"))
		return
	}

	res, err := h.svc.CurrentDTO(c.Request.Context(), sessionID)
	if err != nil {
		c.JSON(apperr.ToHTTPStatus(err), err)
		return
	}
	if res == nil {
		c.JSON(http.StatusOK, gin.H{"current": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"current": res})
}
