package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"shareit/internal/models"
	"shareit/internal/service"

	"github.com/xuri/excelize/v2"
)

const (
	exportSheet    = "Bookings"
	exportPageSize = 100
	xlsxMediaType  = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var exportHeaders = []string{"ID", "Item", "Booker", "Start", "End", "Status"}

func (s *HTTPServer) handleExportOwnerBookings(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromHeader(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	state, err := service.ParseState(r.URL.Query().Get("state"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	bookings, err := s.collectOwnerBookings(r.Context(), userID, state)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	f, err := buildBookingsWorkbook(bookings)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	defer f.Close()

	fileName := fmt.Sprintf("bookings_%d_%s.xlsx", userID, time.Now().UTC().Format("20060102"))
	w.Header().Set("Content-Type", xlsxMediaType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	w.WriteHeader(http.StatusOK)
	if err := f.Write(w); err != nil {
		s.logger.Error().Err(err).Int64("user_id", userID).Msg("Failed to write export")
	}
}

func (s *HTTPServer) collectOwnerBookings(ctx context.Context, userID int64, state models.BookingState) ([]*models.BookingView, error) {
	var all []*models.BookingView
	now := s.svc.Bookings.Now()
	for from := 0; ; from += exportPageSize {
		page, err := s.svc.Bookings.ListByOwnerAt(ctx, userID, state, models.NewPage(from, exportPageSize), now)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < exportPageSize {
			return all, nil
		}
	}
}

func buildBookingsWorkbook(bookings []*models.BookingView) (*excelize.File, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(exportSheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)
	_ = f.DeleteSheet("Sheet1")

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font: &excelize.Font{Bold: true},
	})
	for i, h := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(exportSheet, cell, h)
		_ = f.SetCellStyle(exportSheet, cell, cell, headerStyle)
	}

	for i, b := range bookings {
		row := []any{
			b.ID,
			b.Item.Name,
			b.Booker.Name,
			b.Start.UTC().Format(time.RFC3339),
			b.End.UTC().Format(time.RFC3339),
			string(b.Status),
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			f.Close()
			return nil, fmt.Errorf("error writing row %d: %w", i+2, err)
		}
	}

	_ = f.SetColWidth(exportSheet, "B", "C", 25)
	_ = f.SetColWidth(exportSheet, "D", "E", 22)
	return f, nil
}
