package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/santemut/vigie/pkg/db/pagination"
)

type CreateRuleRequest struct {
	Name      string
	Criterion string
	Weight    float64
	Active    bool
}

type UpdateRuleRequest struct {
	RuleID snowflake.ID
	Name   *string
	Weight *float64
	Active *bool
}

type ListScoresRequest struct {
	MemberID  snowflake.ID
	PageToken string
	PageSize  int
}

type ListScoresResponse struct {
	pagination.PageInfo
	Scores []ScoreRecord `json:"scores"`
}

type Service interface {
	ScoreMember(ctx context.Context, memberID snowflake.ID) (ScoreRecord, error)
	ListScores(ctx context.Context, req ListScoresRequest) (ListScoresResponse, error)
	LatestScore(ctx context.Context, memberID snowflake.ID) (ScoreRecord, error)

	CreateRule(ctx context.Context, req CreateRuleRequest) (ScoringRule, error)
	UpdateRule(ctx context.Context, req UpdateRuleRequest) (ScoringRule, error)
	ListRules(ctx context.Context, includeInactive bool) ([]ScoringRule, error)
}

var (
	ErrInvalidMember = errors.New("invalid_member")
	ErrNoActiveRules = errors.New("no_active_rules")
	ErrInvalidWeight = errors.New("invalid_weight")
	ErrInvalidRule   = errors.New("invalid_rule")
	ErrRuleNotFound  = errors.New("rule_not_found")
	ErrScoreNotFound = errors.New("score_not_found")
)
