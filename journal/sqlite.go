package journal

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		return nil, err
	}

	return &SQLite{db: db}, nil
}

func (j *SQLite) RecordFill(r FillRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO fills
		(order_id, date, symbol, direction, volume, price, amount, fee, realized_pl, holding_days)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.OrderID, r.Date, r.Symbol, r.Direction, r.Volume,
		r.Price, r.Amount, r.Fee, r.RealizedPL, r.HoldingDays,
	)
	return err
}

func (j *SQLite) RecordEquity(r EquityRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO equity
		(time, total_equity, total_cash, available_cash, market_value)
		VALUES (?, ?, ?, ?, ?)`,
		r.Time, r.TotalEquity, r.TotalCash, r.AvailableCash, r.MarketValue,
	)
	return err
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
