package journal

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCSVJournalHeaders(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	fillsPath := filepath.Join(dir, "fills.csv")
	equityPath := filepath.Join(dir, "equity.csv")

	j, err := NewCSV(fillsPath, equityPath)
	assert.NoError(t, err)
	assert.NoError(t, j.Close())

	fillsData, err := os.ReadFile(fillsPath)
	assert.NoError(t, err)
	equityData, err := os.ReadFile(equityPath)
	assert.NoError(t, err)

	fillsReader := csv.NewReader(strings.NewReader(string(fillsData)))
	fillsHeader, err := fillsReader.Read()
	assert.NoError(t, err)

	equityReader := csv.NewReader(strings.NewReader(string(equityData)))
	equityHeader, err := equityReader.Read()
	assert.NoError(t, err)

	wantFills := []string{"order_id", "date", "symbol", "direction", "volume", "price", "amount", "fee", "realized_pl", "holding_days"}
	assert.Equal(t, wantFills, fillsHeader)

	wantEquity := []string{"time", "total_equity", "total_cash", "available_cash", "market_value"}
	assert.Equal(t, wantEquity, equityHeader)
}

func TestCSVJournalRecordFill(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	fillsPath := filepath.Join(dir, "fills.csv")
	equityPath := filepath.Join(dir, "equity.csv")

	j, err := NewCSV(fillsPath, equityPath)
	assert.NoError(t, err)

	err = j.RecordFill(FillRecord{
		OrderID:     "01JD3X5E8PXYZ",
		Date:        time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC),
		Symbol:      "600000",
		Direction:   "BUY",
		Volume:      1000,
		Price:       10.5,
		Amount:      10500,
		Fee:         5,
		RealizedPL:  0,
		HoldingDays: 0,
	})
	assert.NoError(t, err)
	assert.NoError(t, j.Close())

	data, err := os.ReadFile(fillsPath)
	assert.NoError(t, err)

	r := csv.NewReader(strings.NewReader(string(data)))
	rows, err := r.ReadAll()
	assert.NoError(t, err)
	assert.Len(t, rows, 2)

	row := rows[1]
	assert.Equal(t, "01JD3X5E8PXYZ", row[0])
	assert.Equal(t, "2026-08-31", row[1])
	assert.Equal(t, "600000", row[2])
	assert.Equal(t, "BUY", row[3])
	assert.Equal(t, "1000", row[4])
	assert.Equal(t, "10.5", row[5])
	assert.Equal(t, "10500", row[6])
	assert.Equal(t, "5", row[7])
}

func TestCSVJournalRecordEquity(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	fillsPath := filepath.Join(dir, "fills.csv")
	equityPath := filepath.Join(dir, "equity.csv")

	j, err := NewCSV(fillsPath, equityPath)
	assert.NoError(t, err)

	err = j.RecordEquity(EquityRecord{
		Time:          time.Date(2026, 8, 31, 15, 0, 0, 0, time.UTC),
		TotalEquity:   105000,
		TotalCash:     45000,
		AvailableCash: 40000,
		MarketValue:   60000,
	})
	assert.NoError(t, err)
	assert.NoError(t, j.Close())

	data, err := os.ReadFile(equityPath)
	assert.NoError(t, err)

	r := csv.NewReader(strings.NewReader(string(data)))
	rows, err := r.ReadAll()
	assert.NoError(t, err)
	assert.Len(t, rows, 2)

	row := rows[1]
	assert.Equal(t, "2026-08-31T15:00:00Z", row[0])
	assert.Equal(t, "105000", row[1])
	assert.Equal(t, "45000", row[2])
	assert.Equal(t, "40000", row[3])
	assert.Equal(t, "60000", row[4])
}

func TestDiscardJournal(t *testing.T) {
	t.Parallel()

	assert.NoError(t, Discard.RecordFill(FillRecord{}))
	assert.NoError(t, Discard.RecordEquity(EquityRecord{}))
	assert.NoError(t, Discard.Close())
}
