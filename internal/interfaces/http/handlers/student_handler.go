package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	appservice "github.com/edusight/edusight/internal/application/service"
	"github.com/edusight/edusight/internal/application/dto"
	"github.com/edusight/edusight/internal/domain/models"
	"github.com/edusight/edusight/pkg/constants"
	"github.com/edusight/edusight/pkg/errors"
)

// StudentHandler serves the student listing, detail, mutation, and ingestion
// endpoints. 学生记录 HTTP 处理器。
type StudentHandler struct {
	students    appservice.StudentAppService
	aggregation appservice.AggregationService
}

// NewStudentHandler creates the handler.
func NewStudentHandler(students appservice.StudentAppService, aggregation appservice.AggregationService) *StudentHandler {
	return &StudentHandler{students: students, aggregation: aggregation}
}

// ListStudents handles GET /api/v1/students.
// Query: tenant_id, department, risk_level, institution_type, limit, offset.
func (h *StudentHandler) ListStudents(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}

	filter := models.StudentFilter{
		Department:      c.Query("department"),
		RiskLevel:       constants.RiskLevel(c.Query("risk_level")),
		InstitutionType: c.Query("institution_type"),
	}
	page := pageFromQuery(c)

	resp, err := h.aggregation.StudentsForPrincipal(c.Request.Context(), principal, c.Query("tenant_id"), filter, page)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetStudentDetail handles GET /api/v1/students/:student_id.
func (h *StudentHandler) GetStudentDetail(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}

	resp, err := h.students.GetStudentDetail(c.Request.Context(), principal,
		c.Query("tenant_id"), c.Param("student_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// UpdateStudent handles PUT /api/v1/students/:student_id.
func (h *StudentHandler) UpdateStudent(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}

	var req dto.UpdateStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.ErrValidation("invalid request body").WithCause(err))
		return
	}

	resp, err := h.students.UpdateStudent(c.Request.Context(), principal,
		c.Query("tenant_id"), c.Param("student_id"), &req.Fields)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// BulkUpdate handles POST /api/v1/students/bulk-update.
func (h *StudentHandler) BulkUpdate(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}

	var req dto.BulkUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.ErrValidation("invalid request body").WithCause(err))
		return
	}

	resp, err := h.students.BulkUpdate(c.Request.Context(), principal, c.Query("tenant_id"), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// IngestBatch handles POST /api/v1/tenants/:tenant_id/ingest.
func (h *StudentHandler) IngestBatch(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}

	var req dto.IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.ErrValidation("invalid request body").WithCause(err))
		return
	}

	resp, err := h.students.IngestBatch(c.Request.Context(), principal, c.Param("tenant_id"), req.Records)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, resp)
}

func pageFromQuery(c *gin.Context) models.Page {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	return models.Page{Limit: limit, Offset: offset}.Normalize()
}
