package service

import (
	"context"
	"time"

	"backend/internal/model"
	"backend/internal/workflow"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type StatusCount struct {
	Status      string `json:"status"`
	CurrentStep string `json:"current_step"`
	Count       int64  `json:"count"`
}

type StatisticsResponse struct {
	TimeRangeStartDate time.Time       `json:"time_range_start_date"`
	TimeRangeEndDate   time.Time       `json:"time_range_end_date"`
	TotalRequests      int64           `json:"total_requests"`
	ByStatus           []StatusCount   `json:"by_status"`
	TotalFundedAmount  decimal.Decimal `json:"total_funded_amount"`
	RejectedCount      int64           `json:"rejected_count"`
	DeliveredCount     int64           `json:"delivered_count"`
}

type StatisticsService interface {
	GetStatistics(ctx context.Context, startDate, endDate time.Time) (StatisticsResponse, error)
}

type statisticsService struct {
	db *gorm.DB
}

func NewStatisticsService(db *gorm.DB) StatisticsService {
	return &statisticsService{db: db}
}

// GetStatistics aggregates request workflow metrics for the dashboard within the time range
func (s *statisticsService) GetStatistics(ctx context.Context, startDate, endDate time.Time) (StatisticsResponse, error) {
	var response StatisticsResponse
	response.TimeRangeStartDate = startDate
	response.TimeRangeEndDate = endDate
	response.TotalFundedAmount = decimal.Zero

	base := s.db.WithContext(ctx).Model(&model.InternalRequest{}).
		Where("created_at >= ? AND created_at <= ?", startDate, endDate)

	if err := base.Session(&gorm.Session{}).Count(&response.TotalRequests).Error; err != nil {
		return response, err
	}

	// Requests per status
	var rows []struct {
		Status string
		Count  int64
	}
	if err := s.db.WithContext(ctx).Model(&model.InternalRequest{}).
		Select("status, COUNT(*) as count").
		Where("created_at >= ? AND created_at <= ?", startDate, endDate).
		Group("status").
		Scan(&rows).Error; err != nil {
		return response, err
	}
	for _, row := range rows {
		status := workflow.Status(row.Status)
		response.ByStatus = append(response.ByStatus, StatusCount{
			Status:      row.Status,
			CurrentStep: status.Label(),
			Count:       row.Count,
		})
		switch status {
		case workflow.StatusRejected:
			response.RejectedCount = row.Count
		case workflow.StatusDelivered:
			response.DeliveredCount = row.Count
		}
	}

	// Total released funds: everything the accountant has funded
	var funded struct {
		Value decimal.Decimal
	}
	if err := s.db.WithContext(ctx).Model(&model.InternalRequest{}).
		Select("COALESCE(SUM(total_amount), 0) as value").
		Where("accountant_approved = ? AND created_at >= ? AND created_at <= ?", true, startDate, endDate).
		Scan(&funded).Error; err != nil {
		return response, err
	}
	response.TotalFundedAmount = funded.Value

	return response, nil
}
