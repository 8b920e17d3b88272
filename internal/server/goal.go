package server

import (
	"net/http"

	"github.com/bwmarrin/snowflake"
	goaldomain "github.com/smallbiznis/tandem/internal/goal/domain"
	"github.com/smallbiznis/tandem/pkg/db/pagination"
	"github.com/gin-gonic/gin"
)

type createGoalRequest struct {
	Title string `json:"title"`
	Notes string `json:"notes"`
}

func (s *Server) CreateGoal(c *gin.Context) {
	var req createGoalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	goal, err := s.goalSvc.Create(c.Request.Context(), goaldomain.CreateRequest{
		OwnerID: s.userID(c),
		Title:   req.Title,
		Notes:   req.Notes,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, goal)
}

func (s *Server) ListGoals(c *gin.Context) {
	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	goals, pageInfo, err := s.goalSvc.List(c.Request.Context(), s.userID(c), page)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"goals": goals, "page_info": pageInfo})
}

func (s *Server) ShareGoal(c *gin.Context) {
	goalID, ok := s.goalIDParam(c)
	if !ok {
		return
	}
	goal, err := s.goalSvc.Share(c.Request.Context(), s.userID(c), goalID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, goal)
}

func (s *Server) CompleteGoal(c *gin.Context) {
	goalID, ok := s.goalIDParam(c)
	if !ok {
		return
	}
	goal, err := s.goalSvc.Complete(c.Request.Context(), s.userID(c), goalID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, goal)
}

func (s *Server) goalIDParam(c *gin.Context) (snowflake.ID, bool) {
	id, err := snowflake.ParseString(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid goal id"))
		return 0, false
	}
	return id, true
}
