package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	cotisationdomain "github.com/santemut/vigie/internal/cotisation/domain"
)

type recordVerificationRequest struct {
	AgentID           string `json:"agent_id" binding:"required"`
	NextDueDate       string `json:"next_due_date" binding:"required"`
	LastPaymentDate   string `json:"last_payment_date"`
	LastPaymentAmount *int64 `json:"last_payment_amount"`
	AmountOwed        *int64 `json:"amount_owed"`
	Notes             string `json:"notes"`
	DocumentRef       string `json:"document_ref"`
	ExemptOverride    bool   `json:"exempt_override"`
}

func (s *Server) RecordVerification(c *gin.Context) {
	memberID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req recordVerificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	agentID, err := snowflake.ParseString(req.AgentID)
	if err != nil {
		AbortWithError(c, newValidationError("agent_id", "invalid_id", "invalid agent identifier"))
		return
	}

	nextDueDate, err := parseOptionalDate(req.NextDueDate)
	if err != nil || nextDueDate == nil {
		AbortWithError(c, newValidationError("next_due_date", "invalid_date", "invalid next_due_date"))
		return
	}

	lastPaymentDate, err := parseOptionalDate(req.LastPaymentDate)
	if err != nil {
		AbortWithError(c, newValidationError("last_payment_date", "invalid_date", "invalid last_payment_date"))
		return
	}

	verification, err := s.cotisationSvc.RecordVerification(c.Request.Context(), cotisationdomain.RecordVerificationRequest{
		MemberID:          memberID,
		AgentID:           agentID,
		NextDueDate:       *nextDueDate,
		LastPaymentDate:   lastPaymentDate,
		LastPaymentAmount: req.LastPaymentAmount,
		AmountOwed:        req.AmountOwed,
		Notes:             strings.TrimSpace(req.Notes),
		DocumentRef:       strings.TrimSpace(req.DocumentRef),
		ExemptOverride:    req.ExemptOverride,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": verification})
}

type listVerificationsQuery struct {
	PageToken string `form:"page_token"`
	PageSize  int    `form:"page_size"`
}

func (s *Server) ListVerifications(c *gin.Context) {
	memberID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var query listVerificationsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.cotisationSvc.History(c.Request.Context(), cotisationdomain.ListVerificationsRequest{
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

func (s *Server) CurrentVerification(c *gin.Context) {
	memberID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	verification, err := s.cotisationSvc.CurrentStatus(c.Request.Context(), memberID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": verification})
}
