package service

import (
	"context"
	"errors"
	"fmt"

	"pms-backend/internal/repository"
	"pms-backend/pkg/apperr"

	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// ExportService renders a purchase request as a formatted spreadsheet for
// printing. The sheet receives the recomputed total, never the raw cache.
type ExportService interface {
	ExportPR(ctx context.Context, actor Actor, prID uint) (*excelize.File, string, error)
}

type exportService struct {
	prRepo     repository.PurchaseRequestRepository
	lineRepo   repository.LineItemRepository
	userRepo   repository.UserRepository
	reconciler BalanceService
}

func NewExportService(
	prRepo repository.PurchaseRequestRepository,
	lineRepo repository.LineItemRepository,
	userRepo repository.UserRepository,
	reconciler BalanceService,
) ExportService {
	return &exportService{
		prRepo:     prRepo,
		lineRepo:   lineRepo,
		userRepo:   userRepo,
		reconciler: reconciler,
	}
}

func (s *exportService) ExportPR(ctx context.Context, actor Actor, prID uint) (*excelize.File, string, error) {
	pr, err := s.prRepo.GetByID(ctx, prID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", apperr.NotFound("purchase request %d not found", prID)
		}
		return nil, "", fmt.Errorf("failed to load purchase request: %w", err)
	}

	if !actor.CanModerate() && actor.UserID != pr.CreatedBy {
		return nil, "", apperr.Forbidden("purchase request %d belongs to another requester", prID)
	}

	// Reconcile first so the exported total matches the line items.
	result, err := s.reconciler.Reconcile(ctx, prID)
	if err != nil {
		return nil, "", err
	}

	lineItems, err := s.lineRepo.ListByPR(ctx, prID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load line items: %w", err)
	}

	creatorName := "Unknown"
	if creator, err := s.userRepo.GetByID(ctx, pr.CreatedBy); err == nil {
		creatorName = creator.Username
	}

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	title := pr.Title
	if pr.Description != "" {
		title = pr.Title + " - " + pr.Description
	}
	_ = f.SetCellValue(sheet, "A1", "PURCHASE REQUEST")
	_ = f.SetCellValue(sheet, "A2", title)
	_ = f.SetCellValue(sheet, "A3", "Requested by")
	_ = f.SetCellValue(sheet, "B3", creatorName)
	_ = f.SetCellValue(sheet, "A4", "Date")
	_ = f.SetCellValue(sheet, "B4", pr.CreatedAt.Format("2006-01-02"))

	headerRow := 6
	headers := []string{"No.", "Item", "Qty", "Unit", "Unit Price", "Subtotal"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, headerRow)
		_ = f.SetCellValue(sheet, cell, h)
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		first, _ := excelize.CoordinatesToCellName(1, headerRow)
		last, _ := excelize.CoordinatesToCellName(len(headers), headerRow)
		_ = f.SetCellStyle(sheet, first, last, style)
	}

	row := headerRow + 1
	for i, li := range lineItems {
		_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", row), i+1)
		_ = f.SetCellValue(sheet, fmt.Sprintf("B%d", row), li.ItemName)
		_ = f.SetCellValue(sheet, fmt.Sprintf("C%d", row), li.Quantity)
		_ = f.SetCellValue(sheet, fmt.Sprintf("D%d", row), li.Unit)
		_ = f.SetCellValue(sheet, fmt.Sprintf("E%d", row), li.UnitPrice)
		_ = f.SetCellValue(sheet, fmt.Sprintf("F%d", row), li.Subtotal())
		row++
	}

	_ = f.SetCellValue(sheet, fmt.Sprintf("E%d", row), "TOTAL")
	_ = f.SetCellValue(sheet, fmt.Sprintf("F%d", row), result.PRTotal)

	filename := fmt.Sprintf("PR_%d.xlsx", pr.ID)
	return f, filename, nil
}
