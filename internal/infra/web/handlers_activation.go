package web

import (
	"encoding/json"
	"net/http"
	"time"

	"assessment-activation/internal/infra/logging"
)

type verifyRequest struct {
	Code     string `json:"code"`
	DeviceID string `json:"deviceId"`
}

type verifyResponse struct {
	Valid          bool       `json:"valid"`
	Error          string     `json:"error,omitempty"`
	RecordID       string     `json:"recordId,omitempty"`
	ExpiresAt      *time.Time `json:"expiresAt,omitempty"`
	IsActivated    bool       `json:"isActivated"`
	DailyLimit     int        `json:"dailyLimit,omitempty"`
	DailyRemaining int        `json:"dailyRemaining,omitempty"`
	DaysLeft       int        `json:"daysLeft,omitempty"`
	TodayUsage     int        `json:"todayUsage,omitempty"`
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	ctx := logging.WithDeviceID(r.Context(), req.DeviceID)

	res, err := s.activationUC.Redeem(ctx, req.Code, req.DeviceID)
	if err != nil {
		writeServerError(w)
		return
	}

	resp := verifyResponse{
		Valid:          res.Valid,
		Error:          string(res.Reason),
		RecordID:       res.RecordID,
		IsActivated:    res.IsActivated,
		DailyLimit:     res.DailyLimit,
		DailyRemaining: res.DailyRemaining,
		DaysLeft:       res.DaysLeft,
		TodayUsage:     res.TodayUsage,
	}
	if !res.ExpiresAt.IsZero() {
		resp.ExpiresAt = &res.ExpiresAt
	}
	writeJSON(w, http.StatusOK, resp)
}

type recordUsageRequest struct {
	RecordID string `json:"recordId"`
}

type recordUsageResponse struct {
	Success        bool       `json:"success"`
	Error          string     `json:"error,omitempty"`
	Expired        bool       `json:"expired,omitempty"`
	ExpiresAt      *time.Time `json:"expiresAt,omitempty"`
	DailyLimit     int        `json:"dailyLimit,omitempty"`
	DailyRemaining int        `json:"dailyRemaining"`
	DaysLeft       int        `json:"daysLeft"`
}

func (s *Server) handleRecordUsage(w http.ResponseWriter, r *http.Request) {
	var req recordUsageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RecordID == "" {
		writeBadRequest(w, "recordId is required")
		return
	}

	res, err := s.activationUC.RecordUsage(r.Context(), req.RecordID)
	if err != nil {
		writeServerError(w)
		return
	}

	resp := recordUsageResponse{
		Success:        res.Success,
		Error:          string(res.Reason),
		Expired:        res.Expired,
		DailyLimit:     res.DailyLimit,
		DailyRemaining: res.DailyRemaining,
		DaysLeft:       res.DaysLeft,
	}
	if !res.ExpiresAt.IsZero() {
		resp.ExpiresAt = &res.ExpiresAt
	}
	writeJSON(w, http.StatusOK, resp)
}

type statusResponse struct {
	Success        bool       `json:"success"`
	Error          string     `json:"error,omitempty"`
	Expired        bool       `json:"expired"`
	ExpiresAt      *time.Time `json:"expiresAt,omitempty"`
	DailyLimit     int        `json:"dailyLimit,omitempty"`
	DailyRemaining int        `json:"dailyRemaining"`
	DaysLeft       int        `json:"daysLeft"`
	TotalUsage     int        `json:"totalUsage"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	deviceID := r.URL.Query().Get("deviceId")
	if code == "" || deviceID == "" {
		writeBadRequest(w, "code and deviceId are required")
		return
	}

	res, err := s.activationUC.StatusByCode(r.Context(), code, deviceID)
	if err != nil {
		writeServerError(w)
		return
	}

	resp := statusResponse{
		Success:        res.Success,
		Error:          string(res.Reason),
		Expired:        res.Expired,
		DailyLimit:     res.DailyLimit,
		DailyRemaining: res.DailyRemaining,
		DaysLeft:       res.DaysLeft,
		TotalUsage:     res.TotalUsage,
	}
	if !res.ExpiresAt.IsZero() {
		resp.ExpiresAt = &res.ExpiresAt
	}
	writeJSON(w, http.StatusOK, resp)
}
