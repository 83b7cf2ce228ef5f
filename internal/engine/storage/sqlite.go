package storage

import (
	"database/sql"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"

	"placetap/internal/model"
)

// Store is a local sqlite archive of every accepted listing. The canonical
// URL is UNIQUE, so re-inserting a listing is a no-op.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening db: %w", err)
	}

	// Optimize for write throughput
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return nil, fmt.Errorf("setting pragma %q: %w", p, err)
		}
	}

	if err := createSchema(db); err != nil {
		return nil, err
	}

	return &Store{db: db}, nil
}

func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS listings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		uuid TEXT NOT NULL,
		name TEXT NOT NULL,
		phone TEXT,
		address TEXT,
		gmaps_url TEXT NOT NULL UNIQUE,
		website TEXT,
		rating TEXT,
		rating_count INTEGER,
		opening_hours TEXT,
		price_tier TEXT,
		photo_count INTEGER,
		amenities TEXT,
		social_media TEXT,
		delivery_options TEXT,
		business_type TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_listings_name ON listings(name);
	CREATE INDEX IF NOT EXISTS idx_listings_type ON listings(business_type);
	`
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

// InsertBatch archives a batch, ignoring listings already present.
// Returns the number of rows actually inserted.
func (s *Store) InsertBatch(records []model.BusinessRecord) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("beginning tx: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT OR IGNORE INTO listings
		(uuid, name, phone, address, gmaps_url, website, rating, rating_count,
		 opening_hours, price_tier, photo_count, amenities, social_media,
		 delivery_options, business_type)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
	`)
	if err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("preparing stmt: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, r := range records {
		res, err := stmt.Exec(
			r.UUID, r.Name, r.Phone, r.Address, r.GMapsURL, r.Website,
			r.Rating, r.RatingCount, r.OpeningHours, r.PriceTier, r.PhotoCount,
			model.JoinList(r.Amenities), model.JoinPairs(r.SocialMedia),
			model.JoinList(r.DeliveryOptions), r.BusinessType,
		)
		if err != nil {
			continue
		}
		n, _ := res.RowsAffected()
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing tx: %w", err)
	}

	return inserted, nil
}

// LoadAll returns every archived listing in insertion order.
func (s *Store) LoadAll() ([]model.BusinessRecord, error) {
	rows, err := s.db.Query(`
		SELECT uuid, name, phone, address, gmaps_url, website, rating, rating_count,
		       opening_hours, price_tier, photo_count, amenities, social_media,
		       delivery_options, business_type
		FROM listings ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []model.BusinessRecord
	for rows.Next() {
		var r model.BusinessRecord
		var amenities, social, delivery string
		err := rows.Scan(
			&r.UUID, &r.Name, &r.Phone, &r.Address, &r.GMapsURL, &r.Website,
			&r.Rating, &r.RatingCount, &r.OpeningHours, &r.PriceTier, &r.PhotoCount,
			&amenities, &social, &delivery, &r.BusinessType,
		)
		if err != nil {
			continue
		}
		r.Amenities = model.SplitList(amenities)
		r.SocialMedia = model.SplitPairs(social)
		r.DeliveryOptions = model.SplitList(delivery)
		records = append(records, r)
	}
	return records, rows.Err()
}

func (s *Store) Count() (int, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM listings").Scan(&count)
	return count, err
}

func (s *Store) Close() error {
	return s.db.Close()
}
