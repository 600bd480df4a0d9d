package export

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"dataikos/internal/database"
	"dataikos/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func newTestExporter(t *testing.T) (*Exporter, *database.DB, string) {
	t.Helper()
	logger := zerolog.Nop()
	tmpDir := t.TempDir()

	db, err := database.NewDB(filepath.Join(tmpDir, "test.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	exportDir := filepath.Join(tmpDir, "exports")
	return NewExporter(db, exportDir, &logger), db, exportDir
}

func TestExportSchedule(t *testing.T) {
	exporter, db, exportDir := newTestExporter(t)
	ctx := context.Background()

	start := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	slots, err := db.GenerateSlots(ctx, start, start, 60, 9, 12, 2)
	require.NoError(t, err)
	require.Len(t, slots, 3)

	require.NoError(t, db.ReserveSlot(ctx, slots[0].ID))

	filePath, err := exporter.ExportSchedule(ctx, start, start.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, exportDir, filepath.Dir(filePath))

	f, err := excelize.OpenFile(filePath)
	require.NoError(t, err)
	defer f.Close()

	title, err := f.GetCellValue("Расписание", "A1")
	require.NoError(t, err)
	assert.Contains(t, title, "07.09.2026")

	// Row 3 is the earliest start time; column B is the first date.
	timeCell, err := f.GetCellValue("Расписание", "A3")
	require.NoError(t, err)
	assert.Equal(t, "09:00", timeCell)

	occupancy, err := f.GetCellValue("Расписание", "B3")
	require.NoError(t, err)
	assert.Contains(t, occupancy, "1/2")
}

func TestExportOrders(t *testing.T) {
	exporter, db, _ := newTestExporter(t)
	ctx := context.Background()

	order := &models.Order{
		Service:     "consultation",
		Price:       150,
		ClientName:  "Anna",
		ClientEmail: "anna@example.com",
	}
	require.NoError(t, db.CreateOrder(ctx, order))

	filePath, err := exporter.ExportOrders(ctx, "")
	require.NoError(t, err)

	_, err = os.Stat(filePath)
	require.NoError(t, err)

	f, err := excelize.OpenFile(filePath)
	require.NoError(t, err)
	defer f.Close()

	id, err := f.GetCellValue("Заказы", "A2")
	require.NoError(t, err)
	assert.Equal(t, order.ID, id)

	email, err := f.GetCellValue("Заказы", "F2")
	require.NoError(t, err)
	assert.Equal(t, "anna@example.com", email)
}
