package attendance

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

	// POST /attendance/checkins — raw signal, always recorded
	r.POST("/attendance/checkins", h.Checkin)

	// POST /attendance/overrides — teacher correction, appended as a new row
	r.POST("/attendance/overrides", auth.RequireRole(auth.RoleTeacher, auth.RoleAdmin), h.Override)

	// GET /attendance/records?session_id=&student_id=
	r.GET("/attendance/records", h.ListRecords)
}

func (h *Handler) Checkin(c *gin.Context) {
	var req CheckinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apperr.ErrInvalid("invalid json or missing required fields"))
		return
	}

	studentID := c.GetString(auth.CtxUserIDKey)
	res, err := h.svc.RecordCheckin(c.Request.Context(), req, studentID, c.ClientIP())
	if err != nil {
		c.JSON(apperr.ToHTTPStatus(err), err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) Override(c *gin.Context) {
	var req OverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apperr.ErrInvalid("invalid json or missing required fields"))
		return
	}

	actorID := c.GetString(auth.CtxUserIDKey)
	res, err := h.svc.OverrideStatus(c.Request.Context(), req, actorID)
	if err != nil {
		c.JSON(apperr.ToHTTPStatus(err), err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) ListRecords(c *gin.Context) {
	sessionID, err := strconv.ParseUint(c.Query("session_id"), 10, 64)
	if err != nil || sessionID == 0 {
		c.JSON(http.StatusBadRequest, apperr.ErrInvalid("session_id is required"))
		return
	}

	q := ListQuery{SessionID: sessionID}
	if v := c.Query("student_id"); v != "" {
		q.StudentID = &v
	}
	q.Limit = parseIntDefault(c.Query("limit"), DefaultPageLimit)
	q.Offset = parseIntDefault(c.Query("offset"), 0)

	items, total, err := h.svc.List(c.Request.Context(), q)
	if err != nil {
		c.JSON(apperr.ToHTTPStatus(err), err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "total": total})
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
