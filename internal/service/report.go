package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/flicky/bakery-api/internal/dto"
	"github.com/flicky/bakery-api/internal/model"
	"github.com/flicky/bakery-api/internal/report"
	"github.com/flicky/bakery-api/internal/repository"
)

type ReportService struct {
	orderRepo    repository.OrderRepository
	categoryRepo repository.CategoryRepository
	loc          *time.Location
}

func NewReportService(orderRepo repository.OrderRepository, categoryRepo repository.CategoryRepository, loc *time.Location) *ReportService {
	return &ReportService{orderRepo: orderRepo, categoryRepo: categoryRepo, loc: loc}
}

func (s *ReportService) Summary(ctx context.Context, req dto.ReportRangeRequest) (*report.Summary, error) {
	orders, err := s.load(ctx, req)
	if err != nil {
		return nil, err
	}
	summary := report.Summarize(orders)
	return &summary, nil
}

func (s *ReportService) Sales(ctx context.Context, req dto.ReportRangeRequest) ([]report.PeriodSales, error) {
	orders, err := s.load(ctx, req)
	if err != nil {
		return nil, err
	}
	return report.SalesByPeriod(orders, report.Period(req.Group), s.loc), nil
}

func (s *ReportService) TopProducts(ctx context.Context, req dto.ReportRangeRequest) ([]report.ItemSales, error) {
	orders, err := s.load(ctx, req)
	if err != nil {
		return nil, err
	}
	return report.TopProducts(orders, req.Limit), nil
}

func (s *ReportService) TopCategories(ctx context.Context, req dto.ReportRangeRequest) ([]report.ItemSales, error) {
	orders, err := s.load(ctx, req)
	if err != nil {
		return nil, err
	}
	categories, err := s.categoryRepo.List(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	names := make(map[uuid.UUID]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}
	return report.TopCategories(orders, names, req.Limit), nil
}

// ExportSales writes the period series and product ranking as an XLSX workbook.
func (s *ReportService) ExportSales(ctx context.Context, req dto.ReportRangeRequest, w io.Writer) error {
	orders, err := s.load(ctx, req)
	if err != nil {
		return err
	}
	sales := report.SalesByPeriod(orders, report.Period(req.Group), s.loc)
	return report.WriteXLSX(w, sales, report.TopProducts(orders, req.Limit))
}

func (s *ReportService) load(ctx context.Context, req dto.ReportRangeRequest) ([]model.Order, error) {
	from, to, err := dayRange(req.From, req.To, s.loc)
	if err != nil {
		return nil, err
	}
	if from == nil || to == nil {
		return nil, invalid("Debe indicar las fechas desde y hasta")
	}
	orders, err := s.orderRepo.ListForReport(ctx, *from, *to)
	if err != nil {
		return nil, fmt.Errorf("load report orders: %w", err)
	}
	return orders, nil
}
