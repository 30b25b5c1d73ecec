package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/edupulse/learning-center-api/internal/models"
	"github.com/edupulse/learning-center-api/internal/service"
	appErrors "github.com/edupulse/learning-center-api/pkg/errors"
	"github.com/edupulse/learning-center-api/pkg/response"
)

// HomeworkHandler exposes homework submission endpoints.
type HomeworkHandler struct {
	homeworks   *service.HomeworkService
	students    *service.StudentService
	teachers    *service.TeacherService
	maxFileSize int64
}

// NewHomeworkHandler constructs HomeworkHandler.
func NewHomeworkHandler(homeworks *service.HomeworkService, students *service.StudentService, teachers *service.TeacherService, maxFileSize int64) *HomeworkHandler {
	if maxFileSize <= 0 {
		maxFileSize = 10 << 20
	}
	return &HomeworkHandler{homeworks: homeworks, students: students, teachers: teachers, maxFileSize: maxFileSize}
}

func (h *HomeworkHandler) actorStudent(c *gin.Context) (*models.Student, error) {
	claims := claimsFromContext(c)
	if claims == nil {
		return nil, appErrors.ErrUnauthorized
	}
	return h.students.GetByUser(c.Request.Context(), claims.UserID)
}

// Submit godoc
// @Summary Submit homework
// @Description Students submit work for a lesson; resubmitting before rating replaces the payload
// @Tags Homeworks
// @Accept json
// @Produce json
// @Param payload body service.SubmitHomeworkRequest true "Submission payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /homeworks [post]
func (h *HomeworkHandler) Submit(c *gin.Context) {
	student, err := h.actorStudent(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req service.SubmitHomeworkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	homework, err := h.homeworks.Submit(c.Request.Context(), student, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, homework)
}

// Get godoc
// @Summary Get homework detail
// @Tags Homeworks
// @Produce json
// @Param id path string true "Homework ID"
// @Success 200 {object} response.Envelope
// @Router /homeworks/{id} [get]
func (h *HomeworkHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var actorStudentID, actorTeacherID string
	switch claims.Role {
	case models.RoleStudent:
		student, err := h.students.GetByUser(c.Request.Context(), claims.UserID)
		if err != nil {
			response.Error(c, err)
			return
		}
		actorStudentID = student.ID
	case models.RoleTeacher:
		teacher, err := h.teachers.GetByUser(c.Request.Context(), claims.UserID)
		if err != nil {
			response.Error(c, err)
			return
		}
		actorTeacherID = teacher.ID
	}

	homework, err := h.homeworks.Get(c.Request.Context(), c.Param("id"), actorStudentID, actorTeacherID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, homework, nil)
}

// List godoc
// @Summary List homeworks
// @Description Admins see everything; teachers see work for their lessons; students see their own
// @Tags Homeworks
// @Produce json
// @Param lesson_id query string false "Filter by lesson"
// @Param status query string false "Filter by status"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /homeworks [get]
func (h *HomeworkHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var filter models.HomeworkFilter
	if lessonID := c.Query("lesson_id"); lessonID != "" {
		filter.LessonID = &lessonID
	}
	if status := c.Query("status"); status != "" {
		s := models.HomeworkStatus(status)
		filter.Status = &s
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	switch claims.Role {
	case models.RoleStudent:
		student, err := h.students.GetByUser(c.Request.Context(), claims.UserID)
		if err != nil {
			response.Error(c, err)
			return
		}
		filter.StudentID = &student.ID
	case models.RoleTeacher:
		teacher, err := h.teachers.GetByUser(c.Request.Context(), claims.UserID)
		if err != nil {
			response.Error(c, err)
			return
		}
		filter.TeacherID = &teacher.ID
	}

	homeworks, pagination, err := h.homeworks.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, homeworks, pagination)
}

// Mine godoc
// @Summary List own homeworks
// @Tags Homeworks
// @Produce json
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /homeworks/mine [get]
func (h *HomeworkHandler) Mine(c *gin.Context) {
	student, err := h.actorStudent(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var filter models.HomeworkFilter
	filter.StudentID = &student.ID
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	homeworks, pagination, err := h.homeworks.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, homeworks, pagination)
}

// Attach godoc
// @Summary Upload homework attachment
// @Tags Homeworks
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Homework ID"
// @Param file formData file true "Attachment"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /homeworks/{id}/attachment [post]
func (h *HomeworkHandler) Attach(c *gin.Context) {
	student, err := h.actorStudent(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "file is required"))
		return
	}
	if fileHeader.Size > h.maxFileSize {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file exceeds the maximum allowed size"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read upload"))
		return
	}
	defer file.Close()

	homework, err := h.homeworks.Attach(c.Request.Context(), c.Param("id"), student.ID, fileHeader.Filename, file)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, homework, nil)
}

// Delete godoc
// @Summary Withdraw homework
// @Tags Homeworks
// @Param id path string true "Homework ID"
// @Success 204 {object} response.Envelope
// @Router /homeworks/{id} [delete]
func (h *HomeworkHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var actorStudentID string
	if claims.Role == models.RoleStudent {
		student, err := h.students.GetByUser(c.Request.Context(), claims.UserID)
		if err != nil {
			response.Error(c, err)
			return
		}
		actorStudentID = student.ID
	}

	if err := h.homeworks.Delete(c.Request.Context(), c.Param("id"), actorStudentID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
