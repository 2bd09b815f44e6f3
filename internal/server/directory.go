package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	directorydomain "github.com/santemut/vigie/internal/directory/domain"
)

type createMemberRequest struct {
	InsurerID string `json:"insurer_id" binding:"required"`
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
	JoinedAt  string `json:"joined_at"`
}

func (s *Server) CreateMember(c *gin.Context) {
	var req createMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	insurerID, err := snowflake.ParseString(req.InsurerID)
	if err != nil {
		AbortWithError(c, newValidationError("insurer_id", "invalid_id", "invalid insurer identifier"))
		return
	}

	joinedAt, err := parseOptionalDate(req.JoinedAt)
	if err != nil {
		AbortWithError(c, newValidationError("joined_at", "invalid_date", "invalid joined_at date"))
		return
	}

	member, err := s.directorySvc.CreateMember(c.Request.Context(), directorydomain.CreateMemberRequest{
		InsurerID: insurerID,
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Phone:     strings.TrimSpace(req.Phone),
		Email:     strings.TrimSpace(req.Email),
		JoinedAt:  joinedAt,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": member})
}

type listMembersQuery struct {
	InsurerID string `form:"insurer_id"`
	Status    string `form:"status"`
	PageToken string `form:"page_token"`
	PageSize  int    `form:"page_size"`
}

func (s *Server) ListMembers(c *gin.Context) {
	var query listMembersQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	var insurerID snowflake.ID
	if query.InsurerID != "" {
		parsed, err := snowflake.ParseString(query.InsurerID)
		if err != nil {
			AbortWithError(c, newValidationError("insurer_id", "invalid_id", "invalid insurer identifier"))
			return
		}
		insurerID = parsed
	}

	resp, err := s.directorySvc.ListMembers(c.Request.Context(), directorydomain.ListMembersRequest{
		InsurerID: insurerID,
		Status:    directorydomain.MemberStatus(query.Status),
		PageToken: query.PageToken,
		PageSize:  query.PageSize,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetMember(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	member, err := s.directorySvc.GetMember(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": member})
}

type updateMemberContactRequest struct {
	Phone *string `json:"phone"`
	Email *string `json:"email"`
}

func (s *Server) UpdateMemberContact(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req updateMemberContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	member, err := s.directorySvc.UpdateMemberContact(c.Request.Context(), directorydomain.UpdateMemberContactRequest{
		MemberID: id,
		Phone:    req.Phone,
		Email:    req.Email,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": member})
}

func (s *Server) DeactivateMember(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	member, err := s.directorySvc.DeactivateMember(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": member})
}

type createAgentRequest struct {
	InsurerID         string `json:"insurer_id" binding:"required"`
	FullName          string `json:"full_name" binding:"required"`
	DailyVoucherLimit int    `json:"daily_voucher_limit"`
	HiredAt           string `json:"hired_at"`
}

func (s *Server) CreateAgent(c *gin.Context) {
	var req createAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	insurerID, err := snowflake.ParseString(req.InsurerID)
	if err != nil {
		AbortWithError(c, newValidationError("insurer_id", "invalid_id", "invalid insurer identifier"))
		return
	}

	hiredAt, err := parseOptionalDate(req.HiredAt)
	if err != nil {
		AbortWithError(c, newValidationError("hired_at", "invalid_date", "invalid hired_at date"))
		return
	}

	agent, err := s.directorySvc.CreateAgent(c.Request.Context(), directorydomain.CreateAgentRequest{
		InsurerID:         insurerID,
		FullName:          strings.TrimSpace(req.FullName),
		DailyVoucherLimit: req.DailyVoucherLimit,
		HiredAt:           hiredAt,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": agent})
}

func (s *Server) GetAgent(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	agent, err := s.directorySvc.GetAgent(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": agent})
}

type setAgentVoucherLimitRequest struct {
	DailyVoucherLimit int `json:"daily_voucher_limit" binding:"required"`
}

func (s *Server) SetAgentVoucherLimit(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req setAgentVoucherLimitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	agent, err := s.directorySvc.SetAgentVoucherLimit(c.Request.Context(), id, req.DailyVoucherLimit)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": agent})
}

func (s *Server) DeactivateAgent(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	agent, err := s.directorySvc.DeactivateAgent(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": agent})
}
