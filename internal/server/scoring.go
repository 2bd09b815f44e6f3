package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	scoringdomain "github.com/santemut/vigie/internal/scoring/domain"
)

func (s *Server) ScoreMember(c *gin.Context) {
	memberID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	record, err := s.scoringSvc.ScoreMember(c.Request.Context(), memberID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": record})
}

type listScoresQuery struct {
	PageToken string `form:"page_token"`
	PageSize  int    `form:"page_size"`
}

func (s *Server) ListScores(c *gin.Context) {
	memberID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var query listScoresQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.scoringSvc.ListScores(c.Request.Context(), scoringdomain.ListScoresRequest{
		MemberID:  memberID,
		PageToken: query.PageToken,
		PageSize:  query.PageSize,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) LatestScore(c *gin.Context) {
	memberID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	record, err := s.scoringSvc.LatestScore(c.Request.Context(), memberID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": record})
}

type createScoringRuleRequest struct {
	Name      string  `json:"name" binding:"required"`
	Criterion string  `json:"criterion" binding:"required"`
	Weight    float64 `json:"weight"`
	Active    *bool   `json:"active"`
}

func (s *Server) CreateScoringRule(c *gin.Context) {
	var req createScoringRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	rule, err := s.scoringSvc.CreateRule(c.Request.Context(), scoringdomain.CreateRuleRequest{
		Name:      strings.TrimSpace(req.Name),
		Criterion: strings.TrimSpace(req.Criterion),
		Weight:    req.Weight,
		Active:    active,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": rule})
}

type listScoringRulesQuery struct {
	IncludeInactive bool `form:"include_inactive"`
}

func (s *Server) ListScoringRules(c *gin.Context) {
	var query listScoringRulesQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	rules, err := s.scoringSvc.ListRules(c.Request.Context(), query.IncludeInactive)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": rules})
}

type updateScoringRuleRequest struct {
	Name   *string  `json:"name"`
	Weight *float64 `json:"weight"`
	Active *bool    `json:"active"`
}

func (s *Server) UpdateScoringRule(c *gin.Context) {
	ruleID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req updateScoringRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	rule, err := s.scoringSvc.UpdateRule(c.Request.Context(), scoringdomain.UpdateRuleRequest{
		RuleID: ruleID,
		Name:   req.Name,
		Weight: req.Weight,
		Active: req.Active,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": rule})
}
