package history

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ATLAS-backend/internal/platform/apperr"
	"ATLAS-backend/internal/platform/auth"
)

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}

	// POST /history/aggregate — manual trigger, same path the ticker takes
	r.POST("/history/aggregate", auth.RequireRole(auth.RoleAdmin), h.Aggregate)

	r.GET("/history/daily_stats", h.DailyStats)
	r.GET("/history/students/:student_id/summary", h.StudentSummary)
}

func (h *Handler) Aggregate(c *gin.Context) {
	var req AggregateRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, apperr.ErrInvalid("invalid json"))
			return
		}
	}

	res, err := h.svc.Aggregate(c.Request.Context(), req)
	if err != nil {
		c.JSON(apperr.ToHTTPStatus(err), err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) DailyStats(c *gin.Context) {
	statDate := c.Query("stat_date")
	if statDate == "" {
		c.JSON(http.StatusBadRequest, apperr.ErrInvalid("stat_date is required"))
		return
	}

	items, err := h.svc.DailyStats(c.Request.Context(), statDate)
	if err != nil {
		c.JSON(apperr.ToHTTPStatus(err), err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) StudentSummary(c *gin.Context) {
	res, err := h.svc.StudentSummary(c.Request.Context(), c.Param("student_id"), c.Query("semester"))
	if err != nil {
		c.JSON(apperr.ToHTTPStatus(err), err)
		return
	}
	c.JSON(http.StatusOK, res)
}
