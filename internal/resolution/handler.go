package resolution

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"ATLAS-backend/internal/platform/apperr"
)

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}

	// GET /sessions/:id/students/:student_id/status — one resolved pair
	r.GET("/sessions/:id/students/:student_id/status", h.StudentStatus)

	// GET /sessions/:id/summary — live roster-wide buckets
	r.GET("/sessions/:id/summary", h.SessionSummary)
}

func (h *Handler) StudentStatus(c *gin.Context) {
	sessionID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, apperr.ErrInvalid("session id must be a number"))
		return
	}

	res, err := h.svc.StudentStatus(c.Request.Context(), sessionID, c.Param("student_id"))
	if err != nil {
		c.JSON(apperr.ToHTTPStatus(err), err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) SessionSummary(c *gin.Context) {
	sessionID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, apperr.ErrInvalid("session id must be a number"))
		return
	}

	res, err := h.svc.SessionSummary(c.Request.Context(), sessionID)
	if err != nil {
		c.JSON(apperr.ToHTTPStatus(err), err)
		return
	}
	c.JSON(http.StatusOK, res)
}
