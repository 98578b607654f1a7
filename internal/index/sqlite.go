package index

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"datatime/internal/index/migrations"
	"datatime/internal/timeline"
)

// Decoder rebuilds a record from the fields stored in the spill database.
type Decoder func(fields []string) timeline.Record

// commitEvery bounds how many inserts share one transaction.
const commitEvery = 10000

// SQLiteIndex spills timeline entries to a temporary SQLite database so that
// the in-memory footprint does not grow with the input. Each record is
// stored once; consecutive inserts of the same record reuse its row.
type SQLiteIndex struct {
	db         *sql.DB
	path       string // temporary database file, removed on Close; "" for :memory:
	decode     Decoder
	maxEntries int

	tx         *sql.Tx
	stmtRecord *sql.Stmt
	stmtEntry  *sql.Stmt
	pending    int
	count      int
	lastRec    timeline.Record
	lastRecID  int64
}

var _ timeline.Index = (*SQLiteIndex)(nil)

// NewSQLiteIndex creates a spill index in a new temporary file under dir,
// creating dir if needed (os.TempDir when dir is ""). Records must be
// pointer-like values so that repeated inserts of one record can be
// recognised.
func NewSQLiteIndex(dir string, decode Decoder, maxEntries int) (*SQLiteIndex, error) {
	if dir != "" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("creating spill directory: %w", err)
		}
	}
	f, err := os.CreateTemp(dir, "datatime-index-*.db")
	if err != nil {
		return nil, fmt.Errorf("creating spill file: %w", err)
	}
	path := f.Name()
	f.Close()

	idx, err := openSQLiteIndex(path, decode, maxEntries)
	if err != nil {
		os.Remove(path)
		return nil, err
	}
	idx.path = path
	return idx, nil
}

// NewMemorySQLiteIndex creates a spill index backed by an in-memory database.
func NewMemorySQLiteIndex(decode Decoder, maxEntries int) (*SQLiteIndex, error) {
	return openSQLiteIndex(":memory:", decode, maxEntries)
}

func openSQLiteIndex(dsn string, decode Decoder, maxEntries int) (*SQLiteIndex, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open index database: %w", err)
	}
	// One connection: an in-memory database exists per connection, and the
	// open write transaction must be visible to the final query.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = OFF",
		"PRAGMA synchronous = OFF",
		"PRAGMA temp_store = FILE",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating index schema: %w", err)
	}
	if err := migrations.CheckStatus(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("verifying index schema: %w", err)
	}

	return &SQLiteIndex{
		db:         db,
		decode:     decode,
		maxEntries: maxEntries,
	}, nil
}

// Insert stores one entry. Inserts are batched in transactions.
func (s *SQLiteIndex) Insert(key int64, rec timeline.Record) error {
	if s.maxEntries > 0 && s.count >= s.maxEntries {
		return timeline.ErrIndexFull
	}
	if err := s.begin(); err != nil {
		return err
	}

	if rec != s.lastRec {
		fields, err := json.Marshal(rec.Fields())
		if err != nil {
			return fmt.Errorf("encoding record: %w", err)
		}
		res, err := s.stmtRecord.Exec(string(fields))
		if err != nil {
			return fmt.Errorf("inserting record: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("reading record id: %w", err)
		}
		s.lastRec, s.lastRecID = rec, id
	}

	if _, err := s.stmtEntry.Exec(key, s.lastRecID); err != nil {
		return fmt.Errorf("inserting entry: %w", err)
	}
	s.count++
	s.pending++

	if s.pending >= commitEvery {
		return s.commit()
	}
	return nil
}

func (s *SQLiteIndex) Len() int { return s.count }

// Each commits pending inserts and streams entries ordered by key, then by
// insertion sequence.
func (s *SQLiteIndex) Each(fn func(key int64, rec timeline.Record) error) error {
	if err := s.commit(); err != nil {
		return err
	}

	rows, err := s.db.Query(`
		SELECT e.key, r.id, r.fields
		FROM entries e JOIN records r ON r.id = e.record_id
		ORDER BY e.key, e.seq`)
	if err != nil {
		return fmt.Errorf("querying entries: %w", err)
	}
	defer rows.Close()

	var (
		lastID  int64 = -1
		lastRec timeline.Record
	)
	for rows.Next() {
		var (
			key, id int64
			raw     string
		)
		if err := rows.Scan(&key, &id, &raw); err != nil {
			return fmt.Errorf("scanning entry: %w", err)
		}
		if id != lastID {
			var fields []string
			if err := json.Unmarshal([]byte(raw), &fields); err != nil {
				return fmt.Errorf("decoding record %d: %w", id, err)
			}
			lastID, lastRec = id, s.decode(fields)
		}
		if err := fn(key, lastRec); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Close closes the database and removes its temporary file.
func (s *SQLiteIndex) Close() error {
	var firstErr error
	if s.tx != nil {
		s.closeStmts()
		if err := s.tx.Rollback(); err != nil {
			firstErr = fmt.Errorf("rolling back index transaction: %w", err)
		}
		s.tx = nil
	}
	if err := s.db.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("closing index database: %w", err)
	}
	if s.path != "" {
		if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) && firstErr == nil {
			firstErr = fmt.Errorf("removing spill file: %w", err)
		}
	}
	return firstErr
}

func (s *SQLiteIndex) begin() error {
	if s.tx != nil {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	stmtRecord, err := tx.Prepare("INSERT INTO records (fields) VALUES (?)")
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("preparing record insert: %w", err)
	}
	stmtEntry, err := tx.Prepare("INSERT INTO entries (key, record_id) VALUES (?, ?)")
	if err != nil {
		stmtRecord.Close()
		tx.Rollback()
		return fmt.Errorf("preparing entry insert: %w", err)
	}
	s.tx, s.stmtRecord, s.stmtEntry = tx, stmtRecord, stmtEntry
	return nil
}

func (s *SQLiteIndex) commit() error {
	if s.tx == nil {
		return nil
	}
	s.closeStmts()
	err := s.tx.Commit()
	s.tx = nil
	s.pending = 0
	if err != nil {
		return fmt.Errorf("committing entries: %w", err)
	}
	return nil
}

func (s *SQLiteIndex) closeStmts() {
	s.stmtRecord.Close()
	s.stmtEntry.Close()
	s.stmtRecord, s.stmtEntry = nil, nil
}
