package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	voucherdomain "github.com/santemut/vigie/internal/voucher/domain"
)

type issueVoucherRequest struct {
	AgentID      string         `json:"agent_id" binding:"required"`
	MemberID     string         `json:"member_id" binding:"required"`
	MaxAmount    int64          `json:"max_amount" binding:"required"`
	CareType     string         `json:"care_type"`
	Reason       string         `json:"reason"`
	Urgency      string         `json:"urgency"`
	Facility     string         `json:"facility"`
	Metadata     map[string]any `json:"metadata"`
	ValidityDays int            `json:"validity_days"`
}

func (s *Server) IssueVoucher(c *gin.Context) {
	var req issueVoucherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	agentID, err := snowflake.ParseString(req.AgentID)
	if err != nil {
		AbortWithError(c, newValidationError("agent_id", "invalid_id", "invalid agent identifier"))
		return
	}

	memberID, err := snowflake.ParseString(req.MemberID)
	if err != nil {
		AbortWithError(c, newValidationError("member_id", "invalid_id", "invalid member identifier"))
		return
	}

	voucher, err := s.voucherSvc.Issue(c.Request.Context(), voucherdomain.IssueRequest{
		AgentID:      agentID,
		MemberID:     memberID,
		MaxAmount:    req.MaxAmount,
		CareType:     strings.TrimSpace(req.CareType),
		Reason:       strings.TrimSpace(req.Reason),
		Urgency:      voucherdomain.Urgency(req.Urgency),
		Facility:     strings.TrimSpace(req.Facility),
		Metadata:     req.Metadata,
		ValidityDays: req.ValidityDays,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": voucher})
}

func (s *Server) GetVoucher(c *gin.Context) {
	code := strings.TrimSpace(c.Param("code"))
	if code == "" {
		AbortWithError(c, newValidationError("code", "invalid_code", "invalid voucher code"))
		return
	}

	voucher, err := s.voucherSvc.Get(c.Request.Context(), code)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": voucher})
}

type redeemVoucherRequest struct {
	Amount int64 `json:"amount" binding:"required"`
}

func (s *Server) RedeemVoucher(c *gin.Context) {
	code := strings.TrimSpace(c.Param("code"))
	if code == "" {
		AbortWithError(c, newValidationError("code", "invalid_code", "invalid voucher code"))
		return
	}

	var req redeemVoucherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	voucher, err := s.voucherSvc.Redeem(c.Request.Context(), code, req.Amount)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": voucher})
}

type setVoucherStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (s *Server) SetVoucherStatus(c *gin.Context) {
	code := strings.TrimSpace(c.Param("code"))
	if code == "" {
		AbortWithError(c, newValidationError("code", "invalid_code", "invalid voucher code"))
		return
	}

	var req setVoucherStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	voucher, err := s.voucherSvc.SetStatus(c.Request.Context(), code, voucherdomain.Status(req.Status))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": voucher})
}

type listMemberVouchersQuery struct {
	PageToken string `form:"page_token"`
	PageSize  int    `form:"page_size"`
}

func (s *Server) ListMemberVouchers(c *gin.Context) {
	memberID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var query listMemberVouchersQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.voucherSvc.ListByMember(c.Request.Context(), voucherdomain.ListVouchersRequest{
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
