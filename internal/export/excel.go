package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"dataikos/internal/domain"
	"dataikos/internal/models"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

// Exporter renders the booking schedule and the order list as Excel files
// for the admin.
type Exporter struct {
	store  domain.Store
	path   string
	logger *zerolog.Logger
}

func NewExporter(store domain.Store, path string, logger *zerolog.Logger) *Exporter {
	return &Exporter{store: store, path: path, logger: logger}
}

// ExportSchedule создает Excel файл с расписанием слотов: даты по колонкам,
// время начала по строкам, в ячейках занятость слота.
func (e *Exporter) ExportSchedule(ctx context.Context, startDate, endDate time.Time) (string, error) {
	if err := os.MkdirAll(e.path, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %v", err)
	}

	slots, err := e.store.GetSlotsByDateRange(ctx, startDate, endDate)
	if err != nil {
		return "", fmt.Errorf("error getting slots: %v", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Расписание"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return "", fmt.Errorf("error creating sheet: %v", err)
	}
	f.SetActiveSheet(index)

	_ = f.SetCellValue(sheetName, "A1", fmt.Sprintf("Период: %s - %s",
		startDate.Format("02.01.2006"), endDate.Format("02.01.2006")))

	dateCols := e.writeDateHeaders(f, sheetName, startDate, endDate)
	timeRows := e.writeTimeHeaders(f, sheetName, slots)
	e.writeSlotCells(f, sheetName, slots, dateCols, timeRows)

	_ = f.SetColWidth(sheetName, "A", "A", 12)
	for i := 'B'; i <= 'Z'; i++ {
		_ = f.SetColWidth(sheetName, string(i), string(i), 16)
	}

	lastCol, _ := excelize.ColumnNumberToName(len(dateCols) + 1)
	_ = f.MergeCell(sheetName, "A1", lastCol+"1")

	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	_ = f.SetCellStyle(sheetName, "A1", "A1", titleStyle)

	_ = f.DeleteSheet("Sheet1")

	fileName := fmt.Sprintf("schedule_%s_to_%s.xlsx",
		startDate.Format("2006-01-02"),
		endDate.Format("2006-01-02"))
	filePath := filepath.Join(e.path, fileName)

	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("error saving file: %v", err)
	}

	e.logger.Info().Str("file_path", filePath).Msg("schedule export created")
	return filePath, nil
}

func (e *Exporter) writeDateHeaders(f *excelize.File, sheetName string, startDate, endDate time.Time) map[string]int {
	col := 2
	currentDate := startDate
	dateCols := make(map[string]int)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})

	for !currentDate.After(endDate) {
		cell, _ := excelize.CoordinatesToCellName(col, 2)
		_ = f.SetCellValue(sheetName, cell, currentDate.Format("02.01"))
		_ = f.SetCellStyle(sheetName, cell, cell, headerStyle)
		dateCols[currentDate.Format("2006-01-02")] = col

		col++
		currentDate = currentDate.AddDate(0, 0, 1)
	}
	return dateCols
}

func (e *Exporter) writeTimeHeaders(f *excelize.File, sheetName string, slots []*models.TimeSlot) map[string]int {
	seen := make(map[string]bool)
	var times []string
	for _, slot := range slots {
		if !seen[slot.StartTime] {
			seen[slot.StartTime] = true
			times = append(times, slot.StartTime)
		}
	}
	sort.Strings(times)

	rowStyle, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E2EFDA"}, Pattern: 1},
		Font: &excelize.Font{Bold: true},
	})

	timeRows := make(map[string]int)
	row := 3
	for _, startTime := range times {
		cell, _ := excelize.CoordinatesToCellName(1, row)
		_ = f.SetCellValue(sheetName, cell, startTime)
		_ = f.SetCellStyle(sheetName, cell, cell, rowStyle)
		timeRows[startTime] = row
		row++
	}
	return timeRows
}

func (e *Exporter) writeSlotCells(f *excelize.File, sheetName string, slots []*models.TimeSlot, dateCols, timeRows map[string]int) {
	for _, slot := range slots {
		col, okCol := dateCols[slot.Date.Format("2006-01-02")]
		row, okRow := timeRows[slot.StartTime]
		if !okCol || !okRow {
			continue
		}

		cell, _ := excelize.CoordinatesToCellName(col, row)

		var cellValue string
		if slot.CurrentBookings > 0 {
			cellValue = fmt.Sprintf("Занято: %d/%d", slot.CurrentBookings, slot.MaxCapacity)
		} else {
			cellValue = fmt.Sprintf("Свободно: %d/%d", slot.MaxCapacity, slot.MaxCapacity)
		}
		if !slot.IsActive {
			cellValue = "Закрыт"
		}
		_ = f.SetCellValue(sheetName, cell, cellValue)

		if styleID, err := e.slotCellStyle(f, slot); err == nil {
			_ = f.SetCellStyle(sheetName, cell, cell, styleID)
		}
	}
}

// slotCellStyle: без заливки для свободного слота, желтый для частично
// занятого, красный для заполненного.
func (e *Exporter) slotCellStyle(f *excelize.File, slot *models.TimeSlot) (int, error) {
	color := "#FFFFFF"
	switch {
	case !slot.IsActive:
		color = "#D9D9D9"
	case slot.CurrentBookings >= slot.MaxCapacity:
		color = "#FFC7CE"
	case slot.CurrentBookings > 0:
		color = "#FFEB9C"
	}

	return f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "left",
			Vertical:   "top",
			WrapText:   true,
		},
	})
}

// ExportOrders создает Excel файл со списком заказов.
func (e *Exporter) ExportOrders(ctx context.Context, status string) (string, error) {
	if err := os.MkdirAll(e.path, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %v", err)
	}

	orders, err := e.store.ListOrders(ctx, status, 10000, 0)
	if err != nil {
		return "", fmt.Errorf("error getting orders: %v", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Заказы"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return "", fmt.Errorf("error creating sheet: %v", err)
	}
	f.SetActiveSheet(index)

	headers := []string{
		"ID", "Услуга", "Формула", "Цена", "Клиент", "Email", "Телефон",
		"Статус", "Запись", "Создан",
	}
	headerStyle, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheetName, cell, header)
		_ = f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	for i, order := range orders {
		row := i + 2
		_ = f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), order.ID)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), order.Service)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), order.Formula)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), order.Price)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), order.ClientName)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("F%d", row), order.ClientEmail)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("G%d", row), order.ClientPhone)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("H%d", row), order.Status)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("I%d", row), order.AppointmentID)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("J%d", row), order.CreatedAt.Format("02.01.2006 15:04"))
	}

	_ = f.SetColWidth(sheetName, "A", "A", 38)
	_ = f.SetColWidth(sheetName, "B", "C", 20)
	_ = f.SetColWidth(sheetName, "E", "G", 22)
	_ = f.SetColWidth(sheetName, "I", "I", 38)
	_ = f.SetColWidth(sheetName, "J", "J", 18)

	_ = f.DeleteSheet("Sheet1")

	fileName := fmt.Sprintf("orders_export_%s.xlsx", time.Now().Format("2006-01-02_15-04-05"))
	filePath := filepath.Join(e.path, fileName)

	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("error saving file: %v", err)
	}

	e.logger.Info().Str("file_path", filePath).Int("orders", len(orders)).Msg("orders export created")
	return filePath, nil
}
