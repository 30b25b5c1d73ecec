package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/edupulse/learning-center-api/internal/models"
	"github.com/edupulse/learning-center-api/internal/service"
	appErrors "github.com/edupulse/learning-center-api/pkg/errors"
	"github.com/edupulse/learning-center-api/pkg/response"
)

// RatingHandler exposes homework scoring endpoints.
type RatingHandler struct {
	ratings  *service.RatingService
	teachers *service.TeacherService
	students *service.StudentService
}

// NewRatingHandler constructs RatingHandler.
func NewRatingHandler(ratings *service.RatingService, teachers *service.TeacherService, students *service.StudentService) *RatingHandler {
	return &RatingHandler{ratings: ratings, teachers: teachers, students: students}
}

// Create godoc
// @Summary Score a homework
// @Description Teachers score a submitted homework from 1 to 10; scoring twice is rejected
// @Tags Ratings
// @Accept json
// @Produce json
// @Param payload body service.CreateRatingRequest true "Rating payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /ratings [post]
func (h *RatingHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	teacher, err := h.teachers.GetByUser(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req service.CreateRatingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	rating, err := h.ratings.Create(c.Request.Context(), teacher, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, rating)
}

// Get godoc
// @Summary Get rating detail
// @Tags Ratings
// @Produce json
// @Param id path string true "Rating ID"
// @Success 200 {object} response.Envelope
// @Router /ratings/{id} [get]
func (h *RatingHandler) Get(c *gin.Context) {
	rating, err := h.ratings.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rating, nil)
}

// List godoc
// @Summary List ratings
// @Description Admins see everything; teachers see ratings they issued; students see their own
// @Tags Ratings
// @Produce json
// @Param date query string false "Filter by rating date (YYYY-MM-DD)"
// @Param min_score query int false "Minimum score"
// @Param max_score query int false "Maximum score"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /ratings [get]
func (h *RatingHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var filter models.RatingFilter
	if dateStr := c.Query("date"); dateStr != "" {
		date, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrInvalidDate, "date must use the YYYY-MM-DD format"))
			return
		}
		filter.Date = &date
	}
	if minStr := c.Query("min_score"); minStr != "" {
		if v, err := strconv.Atoi(minStr); err == nil {
			filter.MinScore = &v
		}
	}
	if maxStr := c.Query("max_score"); maxStr != "" {
		if v, err := strconv.Atoi(maxStr); err == nil {
			filter.MaxScore = &v
		}
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

	ratings, pagination, err := h.ratings.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, ratings, pagination)
}

// Update godoc
// @Summary Revise a rating
// @Tags Ratings
// @Accept json
// @Produce json
// @Param id path string true "Rating ID"
// @Param payload body service.UpdateRatingRequest true "Rating payload"
// @Success 200 {object} response.Envelope
// @Router /ratings/{id} [put]
func (h *RatingHandler) Update(c *gin.Context) {
	actorID, err := h.actorTeacherID(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req service.UpdateRatingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	rating, err := h.ratings.Update(c.Request.Context(), c.Param("id"), actorID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rating, nil)
}

// Delete godoc
// @Summary Delete a rating
// @Description Removes a rating; the homework keeps its RATED status
// @Tags Ratings
// @Param id path string true "Rating ID"
// @Success 204 {object} response.Envelope
// @Router /ratings/{id} [delete]
func (h *RatingHandler) Delete(c *gin.Context) {
	actorID, err := h.actorTeacherID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.ratings.Delete(c.Request.Context(), c.Param("id"), actorID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func (h *RatingHandler) actorTeacherID(c *gin.Context) (string, error) {
	claims := claimsFromContext(c)
	if claims == nil {
		return "", appErrors.ErrUnauthorized
	}
	if claims.Role != models.RoleTeacher {
		return "", nil
	}
	teacher, err := h.teachers.GetByUser(c.Request.Context(), claims.UserID)
	if err != nil {
		return "", err
	}
	return teacher.ID, nil
}
