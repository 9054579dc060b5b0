package journal

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"
)

type CSVJournal struct {
	fills  *csv.Writer
	equity *csv.Writer
	ff, ef *os.File
}

func NewCSV(fillsPath, equityPath string) (*CSVJournal, error) {
	ff, err := os.Create(fillsPath)
	if err != nil {
		return nil, err
	}
	ef, err := os.Create(equityPath)
	if err != nil {
		ff.Close()
		return nil, err
	}

	fw := csv.NewWriter(ff)
	ew := csv.NewWriter(ef)

	if err := fw.Write([]string{"order_id", "date", "symbol", "direction", "volume", "price", "amount", "fee", "realized_pl", "holding_days"}); err != nil {
		return nil, err
	}
	if err := ew.Write([]string{"time", "total_equity", "total_cash", "available_cash", "market_value"}); err != nil {
		return nil, err
	}

	fw.Flush()
	if err := fw.Error(); err != nil {
		return nil, err
	}
	ew.Flush()
	if err := ew.Error(); err != nil {
		return nil, err
	}

	return &CSVJournal{fw, ew, ff, ef}, nil
}

func (j *CSVJournal) RecordFill(r FillRecord) error {
	j.fills.Write([]string{
		r.OrderID,
		r.Date.Format("2006-01-02"),
		r.Symbol,
		r.Direction,
		strconv.FormatInt(r.Volume, 10),
		f(r.Price),
		f(r.Amount),
		f(r.Fee),
		f(r.RealizedPL),
		strconv.Itoa(r.HoldingDays),
	})
	j.fills.Flush()
	return j.fills.Error()
}

func (j *CSVJournal) RecordEquity(r EquityRecord) error {
	j.equity.Write([]string{
		r.Time.Format(time.RFC3339),
		f(r.TotalEquity),
		f(r.TotalCash),
		f(r.AvailableCash),
		f(r.MarketValue),
	})
	j.equity.Flush()
	return j.equity.Error()
}

func (j *CSVJournal) Close() error {
	j.fills.Flush()
	j.equity.Flush()
	if err := j.ff.Close(); err != nil {
		j.ef.Close()
		return err
	}
	return j.ef.Close()
}

func f(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
