package schedule

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"ATLAS-backend/internal/platform/apperr"
)

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}

	// sync feed surface
	r.PUT("/schedule/sessions", h.IngestSessions)
	r.PUT("/schedule/rosters/:course_code", h.ReplaceRoster)

	// reads
	r.GET("/schedule/sessions", h.ListSessions)
	r.GET("/schedule/sessions/:id", h.GetSession)
	r.GET("/schedule/rosters/:course_code", h.GetRoster)

	// soft delete only
	r.DELETE("/schedule/sessions/:id", h.DeleteSession)
}

func (h *Handler) IngestSessions(c *gin.Context) {
	var req IngestSessionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apperr.ErrInvalid("invalid json or missing required fields"))
		return
	}
	n, err := h.svc.IngestSessions(c.Request.Context(), req)
	if err != nil {
		c.JSON(apperr.ToHTTPStatus(err), err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ingested": n})
}

func (h *Handler) GetSession(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, apperr.ErrInvalid("invalid id"))
		return
	}
	resp, err := h.svc.GetSession(c.Request.Context(), id)
	if err != nil {
		c.JSON(apperr.ToHTTPStatus(err), err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) ListSessions(c *gin.Context) {
	q := ListQuery{}
	if v := c.Query("semester"); v != "" {
		q.Semester = &v
	}
	if v := c.Query("course_code"); v != "" {
		q.CourseCode = &v
	}
	if v := c.Query("teaching_week"); v != "" {
		if w, err := strconv.Atoi(v); err == nil {
			q.TeachingWeek = &w
		}
	}
	q.Limit = parseIntDefault(c.Query("limit"), DefaultPageLimit)
	q.Offset = parseIntDefault(c.Query("offset"), 0)

	items, total, err := h.svc.ListSessions(c.Request.Context(), q)
	if err != nil {
		c.JSON(apperr.ToHTTPStatus(err), err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "total": total})
}

func (h *Handler) DeleteSession(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, apperr.ErrInvalid("invalid id"))
		return
	}
	if err := h.svc.DeleteSession(c.Request.Context(), id); err != nil {
		c.JSON(apperr.ToHTTPStatus(err), err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) ReplaceRoster(c *gin.Context) {
	code := c.Param("course_code")
	var req ReplaceRosterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apperr.ErrInvalid("invalid json"))
		return
	}
	if err := h.svc.ReplaceRoster(c.Request.Context(), code, req); err != nil {
		c.JSON(apperr.ToHTTPStatus(err), err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"course_code": code, "count": len(req.StudentIDs)})
}

func (h *Handler) GetRoster(c *gin.Context) {
	code := c.Param("course_code")
	resp, err := h.svc.GetRoster(c.Request.Context(), code)
	if err != nil {
		c.JSON(apperr.ToHTTPStatus(err), err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func parseIntDefault(s string, d int) int {
	if s == "" {
		return d
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return d
	}
	return v
}
