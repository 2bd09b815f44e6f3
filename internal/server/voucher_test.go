package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	voucherdomain "github.com/santemut/vigie/internal/voucher/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeVoucherService struct {
	issueErr  error
	redeemErr error
	voucher   voucherdomain.Voucher
	lastCode  string
	lastAmt   int64
}

func (f *fakeVoucherService) Issue(ctx context.Context, req voucherdomain.IssueRequest) (voucherdomain.Voucher, error) {
	if f.issueErr != nil {
		return voucherdomain.Voucher{}, f.issueErr
	}
	return f.voucher, nil
}

func (f *fakeVoucherService) Redeem(ctx context.Context, code string, amount int64) (voucherdomain.Voucher, error) {
	f.lastCode = code
	f.lastAmt = amount
	if f.redeemErr != nil {
		return voucherdomain.Voucher{}, f.redeemErr
	}
	return f.voucher, nil
}

func (f *fakeVoucherService) SetStatus(ctx context.Context, code string, to voucherdomain.Status) (voucherdomain.Voucher, error) {
	return f.voucher, nil
}

func (f *fakeVoucherService) Get(ctx context.Context, code string) (voucherdomain.Voucher, error) {
	return f.voucher, nil
}

func (f *fakeVoucherService) ListByMember(ctx context.Context, req voucherdomain.ListVouchersRequest) (voucherdomain.ListVouchersResponse, error) {
	return voucherdomain.ListVouchersResponse{}, nil
}

func (f *fakeVoucherService) ExpireOverdue(ctx context.Context, batchSize int) (int, error) {
	return 0, nil
}

func newTestRouter(vouchers voucherdomain.Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(ErrorHandlingMiddleware())

	s := &Server{log: zap.NewNop(), voucherSvc: vouchers}
	r.POST("/api/v1/vouchers", s.IssueVoucher)
	r.POST("/api/v1/vouchers/:code/redeem", s.RedeemVoucher)
	return r
}

func TestIssueVoucherHandler(t *testing.T) {
	fake := &fakeVoucherService{voucher: voucherdomain.Voucher{Code: "BS-TEST", MaxAmount: 15000}}
	r := newTestRouter(fake)

	body, _ := json.Marshal(map[string]any{
		"agent_id":   "100",
		"member_id":  "200",
		"max_amount": 15000,
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/vouchers", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		Data voucherdomain.Voucher `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "BS-TEST", resp.Data.Code)
}

func TestIssueVoucherHandlerQuotaExceeded(t *testing.T) {
	fake := &fakeVoucherService{issueErr: voucherdomain.ErrQuotaExceeded}
	r := newTestRouter(fake)

	body, _ := json.Marshal(map[string]any{
		"agent_id":   "100",
		"member_id":  "200",
		"max_amount": 15000,
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/vouchers", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "quota_exceeded", resp.Error.Type)
}

func TestIssueVoucherHandlerRejectsBadBody(t *testing.T) {
	fake := &fakeVoucherService{}
	r := newTestRouter(fake)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/vouchers", bytes.NewReader([]byte(`{"agent_id": 5}`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRedeemVoucherHandler(t *testing.T) {
	fake := &fakeVoucherService{voucher: voucherdomain.Voucher{Code: "BS-TEST", MaxAmount: 15000, UsedAmount: 10000}}
	r := newTestRouter(fake)

	body, _ := json.Marshal(map[string]any{"amount": 10000})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/vouchers/BS-TEST/redeem", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "BS-TEST", fake.lastCode)
	assert.EqualValues(t, 10000, fake.lastAmt)
}

func TestRedeemVoucherHandlerInsufficientBalance(t *testing.T) {
	fake := &fakeVoucherService{redeemErr: voucherdomain.ErrInsufficientBalance}
	r := newTestRouter(fake)

	body, _ := json.Marshal(map[string]any{"amount": 6000})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/vouchers/BS-TEST/redeem", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
}
