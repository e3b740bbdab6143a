package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"assessment-activation/internal/domain"
	"assessment-activation/internal/domain/model"
	"assessment-activation/internal/domain/ports/repository"
	"assessment-activation/internal/usecase"
)

type codeView struct {
	ID           string           `json:"id"`
	Code         string           `json:"code"`
	MaxUses      int              `json:"maxUses"`
	DailyLimit   int              `json:"dailyLimit"`
	ValidityDays int              `json:"validityDays"`
	Status       model.CodeStatus `json:"status"`
	CurrentUses  int              `json:"currentUses"`
	Notes        string           `json:"notes"`
	CreatedAt    time.Time        `json:"createdAt"`
}

func toCodeView(c *model.ActivationCode) codeView {
	return codeView{
		ID:           c.ID,
		Code:         c.Code,
		MaxUses:      c.MaxUses,
		DailyLimit:   c.DailyLimit,
		ValidityDays: c.ValidityDays,
		Status:       c.Status,
		CurrentUses:  c.CurrentUses,
		Notes:        c.Notes,
		CreatedAt:    c.CreatedAt,
	}
}

type codeSummaryView struct {
	codeView
	TodayUsed        int                  `json:"todayUsed"`
	TodayRemaining   int                  `json:"todayRemaining"`
	ActivatedDevices int                  `json:"activatedDevices"`
	TimeRemaining    *model.TimeRemaining `json:"timeRemaining,omitempty"`
}

func (s *Server) handleListCodes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	pageSize, _ := strconv.Atoi(q.Get("pageSize"))
	filter := repository.CodeFilter{
		Status:   q.Get("status"),
		Query:    q.Get("q"),
		Page:     page,
		PageSize: pageSize,
	}

	items, total, err := s.adminUC.List(r.Context(), filter)
	if err != nil {
		writeServerError(w)
		return
	}

	views := make([]codeSummaryView, 0, len(items))
	for _, item := range items {
		views = append(views, codeSummaryView{
			codeView:         toCodeView(item.ActivationCode),
			TodayUsed:        item.TodayUsed,
			TodayRemaining:   item.TodayRemaining,
			ActivatedDevices: item.ActivatedDevices,
			TimeRemaining:    item.TimeRemaining,
		})
	}
	writeJSON(w, http.StatusOK, struct {
		Items []codeSummaryView `json:"items"`
		Total int               `json:"total"`
	}{Items: views, Total: total})
}

type createCodeRequest struct {
	Code         string `json:"code"`
	MaxUses      int    `json:"maxUses"`
	DailyLimit   int    `json:"dailyLimit"`
	ValidityDays int    `json:"validityDays"`
	Notes        string `json:"notes"`
}

func (req createCodeRequest) input() usecase.CreateCodeInput {
	return usecase.CreateCodeInput{
		Code:         req.Code,
		MaxUses:      req.MaxUses,
		DailyLimit:   req.DailyLimit,
		ValidityDays: req.ValidityDays,
		Notes:        req.Notes,
	}
}

func (s *Server) handleCreateCode(w http.ResponseWriter, r *http.Request) {
	var req createCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	code, err := s.adminUC.Create(r.Context(), req.input())
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		writeBadRequest(w, "invalid code format")
	case errors.Is(err, domain.ErrAlreadyExists):
		writeJSON(w, http.StatusConflict, errorBody{Error: "ALREADY_EXISTS", Message: "code already exists"})
	case err != nil:
		writeServerError(w)
	default:
		writeJSON(w, http.StatusCreated, toCodeView(code))
	}
}

type bulkCreateRequest struct {
	Items []createCodeRequest `json:"items"`
	// Count generates N random codes with the shared policy below when
	// Items is empty.
	Count        int    `json:"count"`
	MaxUses      int    `json:"maxUses"`
	DailyLimit   int    `json:"dailyLimit"`
	ValidityDays int    `json:"validityDays"`
	Notes        string `json:"notes"`
}

func (s *Server) handleCreateCodesBulk(w http.ResponseWriter, r *http.Request) {
	var req bulkCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	inputs := make([]usecase.CreateCodeInput, 0, len(req.Items))
	for _, item := range req.Items {
		inputs = append(inputs, item.input())
	}
	for i := 0; i < req.Count; i++ {
		inputs = append(inputs, usecase.CreateCodeInput{
			MaxUses:      req.MaxUses,
			DailyLimit:   req.DailyLimit,
			ValidityDays: req.ValidityDays,
			Notes:        req.Notes,
		})
	}
	if len(inputs) == 0 {
		writeBadRequest(w, "nothing to create")
		return
	}

	res, err := s.adminUC.CreateBulk(r.Context(), inputs)
	if err != nil {
		writeServerError(w)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type updateCodeRequest struct {
	Code         *string `json:"code"`
	MaxUses      *int    `json:"maxUses"`
	DailyLimit   *int    `json:"dailyLimit"`
	ValidityDays *int    `json:"validityDays"`
	Notes        *string `json:"notes"`
}

func (s *Server) handleUpdateCode(w http.ResponseWriter, r *http.Request) {
	var req updateCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	err := s.adminUC.Update(r.Context(), chi.URLParam(r, "id"), repository.CodePatch{
		Code:         req.Code,
		MaxUses:      req.MaxUses,
		DailyLimit:   req.DailyLimit,
		ValidityDays: req.ValidityDays,
		Notes:        req.Notes,
	})
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		writeBadRequest(w, "invalid code format")
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "NOT_FOUND"})
	case errors.Is(err, domain.ErrAlreadyExists):
		writeJSON(w, http.StatusConflict, errorBody{Error: "ALREADY_EXISTS"})
	case err != nil:
		writeServerError(w)
	default:
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	}
}

func (s *Server) handleRevokeCode(w http.ResponseWriter, r *http.Request) {
	err := s.adminUC.Revoke(r.Context(), chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "NOT_FOUND"})
	case err != nil:
		writeServerError(w)
	default:
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	}
}

func (s *Server) handleDeleteCode(w http.ResponseWriter, r *http.Request) {
	err := s.adminUC.Delete(r.Context(), chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "NOT_FOUND"})
	case err != nil:
		writeServerError(w)
	default:
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	}
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.adminUC.Stats(r.Context())
	if err != nil {
		writeServerError(w)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

type recordView struct {
	ID          string    `json:"id"`
	Code        string    `json:"code"`
	DeviceID    string    `json:"deviceId"`
	ExpiresAt   time.Time `json:"expiresAt"`
	ActivatedAt time.Time `json:"activatedAt"`
	TotalUsage  int       `json:"totalUsage"`
	TodayUsage  int       `json:"todayUsage"`

	UsageByDate model.UsageByDate `json:"usageByDate"`
}

func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	records, err := s.adminUC.ListRecords(r.Context(), chi.URLParam(r, "code"), limit)
	if err != nil {
		writeServerError(w)
		return
	}

	today := model.Today(time.Now())
	views := make([]recordView, 0, len(records))
	for _, rec := range records {
		views = append(views, recordView{
			ID:          rec.ID,
			Code:        rec.Code,
			DeviceID:    rec.DeviceID,
			ExpiresAt:   rec.ExpiresAt,
			ActivatedAt: rec.ActivatedAt,
			TotalUsage:  rec.Usage.Total(),
			TodayUsage:  rec.Usage.On(today),
			UsageByDate: rec.Usage,
		})
	}
	writeJSON(w, http.StatusOK, struct {
		Items []recordView `json:"items"`
	}{Items: views})
}
