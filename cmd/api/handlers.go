package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/mcclellann/repayplan/pkg/calendar"
	"github.com/mcclellann/repayplan/pkg/ledger"
	"github.com/mcclellann/repayplan/pkg/models"
	"github.com/mcclellann/repayplan/pkg/product"
	"github.com/mcclellann/repayplan/pkg/service"
	"github.com/mcclellann/repayplan/pkg/store"
	"github.com/shopspring/decimal"
)

type productRequest struct {
	Name                string          `json:"name"`
	Rate                decimal.Decimal `json:"rate"`
	LoanTerm            int             `json:"loan_term"`
	TermUnit            string          `json:"term_unit"`
	RepayMode           int             `json:"repay_mode"`
	FoundDate           string          `json:"found_date"`
	RepayDay            int             `json:"repay_day"`
	RepayMonth          int             `json:"repay_month"`
	AdvanceInterest     bool            `json:"advance_interest"`
	AdvanceInterestType string          `json:"advance_interest_type"`
	DelayDays           *int            `json:"delay_days"`
	DaysOfYear          int             `json:"days_of_year"`
	Holidays            []string        `json:"holidays"`
}

// record applies the product defaults to omitted fields.
func (p productRequest) record() (models.ProductRecord, error) {
	found, err := calendar.Parse(p.FoundDate)
	if err != nil {
		return models.ProductRecord{}, fmt.Errorf("%w: found_date %q", product.ErrInvalidArgument, p.FoundDate)
	}
	rec := models.ProductRecord{
		Name:                p.Name,
		Rate:                p.Rate,
		LoanTerm:            p.LoanTerm,
		TermUnit:            product.TermUnit(p.TermUnit),
		RepayMode:           product.RepayMode(p.RepayMode),
		FoundDate:           found,
		RepayDay:            p.RepayDay,
		RepayMonth:          p.RepayMonth,
		AdvanceInterest:     p.AdvanceInterest,
		AdvanceInterestType: product.AdvanceInterestType(p.AdvanceInterestType),
		DelayDays:           1,
		DaysOfYear:          p.DaysOfYear,
		Holidays:            p.Holidays,
	}
	if rec.TermUnit == "" {
		rec.TermUnit = product.TermUnitDay
	}
	if p.DelayDays != nil {
		rec.DelayDays = *p.DelayDays
	}
	if rec.DaysOfYear == 0 {
		rec.DaysOfYear = 365
	}
	return rec, nil
}

type productResponse struct {
	*models.ProductRecord
	RepayModeName string `json:"repay_mode_name"`
	FoundDate     string `json:"found_date"`
}

func newProductResponse(rec *models.ProductRecord) productResponse {
	return productResponse{
		ProductRecord: rec,
		RepayModeName: rec.RepayMode.Label(),
		FoundDate:     calendar.Format(rec.FoundDate),
	}
}

type investmentRequest struct {
	InvestDateTime time.Time         `json:"invest_date_time"`
	Amount         int64             `json:"amount"`
	Extra          map[string]string `json:"extra"`
}

type repaymentResponse struct {
	RepaymentDate             string          `json:"repayment_date"`
	Days                      int             `json:"days"`
	RepaymentInterest         decimal.Decimal `json:"repayment_interest"`
	ExtraDays                 int             `json:"extra_days"`
	ExtraRepaymentInterest    decimal.Decimal `json:"extra_repayment_interest"`
	RepaymentInvestmentAmount decimal.Decimal `json:"repayment_investment_amount"`
	TotalDays                 int             `json:"total_days"`
	TotalRepaymentAmount      decimal.Decimal `json:"total_repayment_amount"`
}

func newRepaymentResponses(list []ledger.Repayment) []repaymentResponse {
	out := make([]repaymentResponse, len(list))
	for i, r := range list {
		out[i] = repaymentResponse{
			RepaymentDate:             calendar.Format(r.RepaymentDate),
			Days:                      r.Days,
			RepaymentInterest:         r.RepaymentInterest,
			ExtraDays:                 r.ExtraDays,
			ExtraRepaymentInterest:    r.ExtraRepaymentInterest,
			RepaymentInvestmentAmount: r.RepaymentInvestmentAmount,
			TotalDays:                 r.TotalDays,
			TotalRepaymentAmount:      r.TotalRepaymentAmount,
		}
	}
	return out
}

type summaryResponse struct {
	EndDate       string          `json:"end_date"`
	TotalInterest decimal.Decimal `json:"total_interest"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
}

func newSummaryResponse(s ledger.Summary) summaryResponse {
	return summaryResponse{
		EndDate:       calendar.Format(s.EndDate),
		TotalInterest: s.TotalInterest,
		TotalAmount:   s.TotalAmount,
	}
}

type quoteRequest struct {
	Product    productRequest    `json:"product"`
	Investment investmentRequest `json:"investment"`
}

type quoteResponse struct {
	EndDate      string              `json:"end_date"`
	LoanTermDays int                 `json:"loan_term_days"`
	Timeline     []string            `json:"timeline"`
	Repayments   []repaymentResponse `json:"repayments"`
	Summary      summaryResponse     `json:"summary"`
}

func formatDates(dates []time.Time) []string {
	out := make([]string, len(dates))
	for i, d := range dates {
		out[i] = calendar.Format(d)
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// writeError maps domain errors onto status codes.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		http.Error(w, "Not found", http.StatusNotFound)
	case errors.Is(err, product.ErrInvalidArgument):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		slog.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func pathID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: id %q", product.ErrInvalidArgument, mux.Vars(r)["id"])
	}
	return id, nil
}

func (s *Server) createProductHandler(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	rec, err := req.record()
	if err != nil {
		writeError(w, r, err)
		return
	}

	created, err := s.service.CreateProduct(r.Context(), rec)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newProductResponse(created))
}

func (s *Server) listProductsHandler(w http.ResponseWriter, r *http.Request) {
	products, err := s.service.ListProducts(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]productResponse, len(products))
	for i, p := range products {
		out[i] = newProductResponse(p)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getProductHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := s.service.GetProduct(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newProductResponse(p))
}

func (s *Server) deleteProductHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.service.DeleteProduct(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) productTimelineHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	timeline, err := s.service.ProductTimeline(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, formatDates(timeline))
}

func (s *Server) createInvestmentHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req investmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	inv, err := s.service.CreateInvestment(r.Context(), id, req.InvestDateTime, req.Amount, req.Extra)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, inv)
}

func (s *Server) listInvestmentsHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	list, err := s.service.ListInvestments(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if list == nil {
		list = []*models.InvestmentRecord{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) getInvestmentHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	inv, err := s.service.GetInvestment(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

func (s *Server) repaymentsHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	list, err := s.service.RepaymentList(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newRepaymentResponses(list))
}

func (s *Server) summaryHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	summary, err := s.service.RepaymentSummary(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newSummaryResponse(summary))
}

func (s *Server) quoteHandler(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	rec, err := req.Product.record()
	if err != nil {
		writeError(w, r, err)
		return
	}

	q, err := s.service.Quote(r.Context(), rec, req.Investment.InvestDateTime, req.Investment.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newQuoteResponse(q))
}

func newQuoteResponse(q *service.Quote) quoteResponse {
	return quoteResponse{
		EndDate:      calendar.Format(q.EndDate),
		LoanTermDays: q.LoanTermDays,
		Timeline:     formatDates(q.Timeline),
		Repayments:   newRepaymentResponses(q.Repayments),
		Summary:      newSummaryResponse(q.Summary),
	}
}

func (s *Server) healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
