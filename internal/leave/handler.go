package leave

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

	// POST /leave/applications — student files a leave request
	r.POST("/leave/applications", h.Submit)

	// POST /leave/applications/:ulid/decisions — one approver decides
	r.POST("/leave/applications/:ulid/decisions", auth.RequireRole(auth.RoleTeacher, auth.RoleAdmin), h.Decide)

	// POST /leave/applications/:ulid/cancel — applicant withdraws
	r.POST("/leave/applications/:ulid/cancel", h.Cancel)

	r.GET("/leave/applications", h.List)
	r.GET("/leave/applications/:ulid", h.Get)
}

func (h *Handler) Submit(c *gin.Context) {
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apperr.ErrInvalid("invalid json or missing required fields"))
		return
	}

	studentID := c.GetString(auth.CtxUserIDKey)
	res, err := h.svc.Submit(c.Request.Context(), req, studentID)
	if err != nil {
		c.JSON(apperr.ToHTTPStatus(err), err)
		return
	}
	c.Header("Location", "/leave/applications/"+res.ApplicationULID)
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) Decide(c *gin.Context) {
	var req DecideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apperr.ErrInvalid("invalid json or missing required fields"))
		return
	}

	approverID := c.GetString(auth.CtxUserIDKey)
	res, err := h.svc.Decide(c.Request.Context(), c.Param("ulid"), approverID, req)
	if err != nil {
		c.JSON(apperr.ToHTTPStatus(err), err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Cancel(c *gin.Context) {
	studentID := c.GetString(auth.CtxUserIDKey)
	if err := h.svc.Cancel(c.Request.Context(), c.Param("ulid"), studentID); err != nil {
		c.JSON(apperr.ToHTTPStatus(err), err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) Get(c *gin.Context) {
	res, err := h.svc.Get(c.Request.Context(), c.Param("ulid"))
	if err != nil {
		c.JSON(apperr.ToHTTPStatus(err), err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) List(c *gin.Context) {
	q := ListQuery{}
	if v := c.Query("session_id"); v != "" {
		if id, err := strconv.ParseUint(v, 10, 64); err == nil {
			q.SessionID = &id
		}
	}
	if v := c.Query("student_id"); v != "" {
		q.StudentID = &v
	}
	if v := c.Query("approver_id"); v != "" {
		q.ApproverID = &v
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
