package journal

const Schema = `
CREATE TABLE IF NOT EXISTS fills (
	order_id TEXT NOT NULL,
	date DATETIME NOT NULL,
	symbol TEXT NOT NULL,
	direction TEXT NOT NULL,
	volume INTEGER NOT NULL,
	price REAL NOT NULL,
	amount REAL NOT NULL,
	fee REAL NOT NULL,
	realized_pl REAL NOT NULL,
	holding_days INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS equity (
	time DATETIME NOT NULL,
	total_equity REAL NOT NULL,
	total_cash REAL NOT NULL,
	available_cash REAL NOT NULL,
	market_value REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_fills_date ON fills(date);
CREATE INDEX IF NOT EXISTS idx_equity_time ON equity(time);
`
