package snapshot

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rustyeddy/livetrader/portfolio"
)

const (
	// Version is written into every document. Loads with a different
	// version are logged and still applied best-effort; there is no
	// migration path.
	Version = "0.3"

	// Prefix names snapshot files: <prefix>_<YYYYMMDD_HHMMSS>[_<tag>].json.gz
	Prefix = "portfolio_snapshot"
)

// Document is the on-disk snapshot: gzip-compressed, indented JSON so a
// decompressed pair of snapshots diffs cleanly.
type Document struct {
	Version       string                 `json:"version"`
	Timestamp     time.Time              `json:"timestamp"`
	AvailableCash float64                `json:"available_cash"`
	TotalCash     float64                `json:"total_cash"`
	Positions     map[string]PositionDoc `json:"positions"`
}

type PositionDoc struct {
	TotalVolume     int64   `json:"total_volume"`
	AvailableVolume int64   `json:"available_volume"`
	AvgPrice        float64 `json:"avg_price"`
	CurPrice        float64 `json:"cur_price"`
	MarketValue     float64 `json:"market_value"`
	FloatPnL        float64 `json:"float_pnl"`
	EntryDate       string  `json:"entry_date"`
}

// Store writes and reads ledger snapshots under one directory.
type Store struct {
	dir string
	log *slog.Logger
}

func NewStore(dir string, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{dir: dir, log: log}
}

// Save serializes the view to a new timestamped snapshot file and returns
// its path. tag, when non-empty, is appended to the file name.
func (s *Store) Save(v portfolio.View, tag string) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}

	now := time.Now()
	doc := Document{
		Version:       Version,
		Timestamp:     now,
		AvailableCash: v.AvailableCash,
		TotalCash:     v.TotalCash,
		Positions:     make(map[string]PositionDoc, len(v.Positions)),
	}
	for _, p := range v.Positions {
		doc.Positions[p.Symbol] = PositionDoc{
			TotalVolume:     p.TotalVolume,
			AvailableVolume: p.AvailableVolume,
			AvgPrice:        p.AvgPrice,
			CurPrice:        p.CurPrice,
			MarketValue:     math.Round(p.MarketValue*100) / 100,
			FloatPnL:        p.FloatPnL,
			EntryDate:       p.EntryDate.Format("2006-01-02"),
		}
	}

	name := fmt.Sprintf("%s_%s", Prefix, now.Format("20060102_150405"))
	if tag != "" {
		name += "_" + tag
	}
	path := filepath.Join(s.dir, name+".json.gz")

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create snapshot: %w", err)
	}

	zw := gzip.NewWriter(f)
	enc := json.NewEncoder(zw)
	enc.SetIndent("", "    ")
	if err := enc.Encode(doc); err != nil {
		f.Close()
		return "", fmt.Errorf("encode snapshot: %w", err)
	}
	if err := zw.Close(); err != nil {
		f.Close()
		return "", fmt.Errorf("compress snapshot: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}

	s.log.Info("saved snapshot", "path", path)
	return path, nil
}

// Load reads a snapshot into a ledger view. With an empty path and latest
// set, the newest file matching the prefix is chosen. A missing file is a
// logged no-op, not an error: the caller's state stays untouched and (nil,
// nil) is returned. A version mismatch is logged and the document is still
// applied best-effort.
func (s *Store) Load(path string, latest bool) (*portfolio.View, error) {
	if path == "" && latest {
		path = s.Latest()
	}
	if path == "" {
		s.log.Warn("no snapshot found", "dir", s.dir)
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			s.log.Warn("snapshot file does not exist", "path", path)
			return nil, nil
		}
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()

	zr, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("decompress snapshot %s: %w", path, err)
	}
	defer zr.Close()

	var doc Document
	if err := json.NewDecoder(zr).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", path, err)
	}

	if doc.Version != Version {
		s.log.Error("snapshot version mismatch, loading best-effort",
			"path", path, "got", doc.Version, "want", Version)
	}

	v := &portfolio.View{
		AvailableCash: doc.AvailableCash,
		TotalCash:     doc.TotalCash,
		Positions:     make([]portfolio.PositionView, 0, len(doc.Positions)),
	}
	for sym, pd := range doc.Positions {
		entry, err := time.Parse("2006-01-02", pd.EntryDate)
		if err != nil {
			s.log.Warn("bad entry date in snapshot", "symbol", sym, "value", pd.EntryDate)
		}
		v.Positions = append(v.Positions, portfolio.PositionView{
			Symbol:          sym,
			TotalVolume:     pd.TotalVolume,
			AvailableVolume: pd.AvailableVolume,
			AvgPrice:        pd.AvgPrice,
			CurPrice:        pd.CurPrice,
			MarketValue:     pd.MarketValue,
			FloatPnL:        pd.FloatPnL,
			EntryDate:       entry,
		})
	}

	s.log.Info("loaded snapshot", "path", path, "positions", len(v.Positions))
	return v, nil
}

// Latest returns the most recently written snapshot path, or "" when none
// exist.
func (s *Store) Latest() string {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return ""
	}
	var (
		newest    string
		newestMod time.Time
	)
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), Prefix) || !strings.HasSuffix(e.Name(), ".json.gz") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if newest == "" || info.ModTime().After(newestMod) {
			newest = filepath.Join(s.dir, e.Name())
			newestMod = info.ModTime()
		}
	}
	return newest
}
