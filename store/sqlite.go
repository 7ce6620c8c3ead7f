package store

import (
	"database/sql"
	"fmt"

	"github.com/MystenLabs/sparse-nodes/sncore"
	_ "modernc.org/sqlite"
)

// DB is a sqlite-backed StreamStore.
type DB struct {
	db *sql.DB
}

func NewDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// a single writer commits checkpoints; sqlite's default locking is
	// enough, but concurrent readers shouldn't block it.
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS streams (
			stream_id         INTEGER PRIMARY KEY,
			count             BIGINT NOT NULL,
			batch             BIGINT NOT NULL,
			head              BLOB,
			leaf              BLOB NOT NULL
		);
		CREATE TABLE IF NOT EXISTS checkpoints (
			epoch             INTEGER PRIMARY KEY,
			digest            BLOB NOT NULL,
			link              BLOB NOT NULL,
			sig               BLOB NOT NULL,
			timestamp         TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("store: create schema: %w", err)
	}

	return &DB{db: db}, nil
}

func (s *DB) LoadStates() ([]*sncore.StreamState, error) {
	rows, err := s.db.Query(
		`SELECT stream_id, count, batch, head, leaf FROM streams ORDER BY stream_id`)
	if err != nil {
		return nil, fmt.Errorf("store: load states: %w", err)
	}
	defer rows.Close()

	var out []*sncore.StreamState
	for rows.Next() {
		st := &sncore.StreamState{}
		var id, count, batch int64
		if err := rows.Scan(&id, &count, &batch, &st.Head, &st.Leaf); err != nil {
			return nil, fmt.Errorf("store: scan stream: %w", err)
		}
		st.Stream = uint64(id)
		st.Count = uint64(count)
		st.Batch = uint64(batch)
		out = append(out, st)
	}
	return out, rows.Err()
}

func (s *DB) LastCheckpoint() (*Checkpoint, bool, error) {
	cp := &Checkpoint{}
	var epoch int64
	err := s.db.QueryRow(
		`SELECT epoch, digest, link, sig FROM checkpoints
		 ORDER BY epoch DESC LIMIT 1`).
		Scan(&epoch, &cp.Digest, &cp.Link, &cp.Sig)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("store: last checkpoint: %w", err)
	}
	cp.Epoch = uint64(epoch)
	return cp, true, nil
}

func (s *DB) Checkpoints(fromEpoch uint64) ([]*Checkpoint, error) {
	rows, err := s.db.Query(
		`SELECT epoch, digest, link, sig FROM checkpoints
		 WHERE epoch >= ? ORDER BY epoch`, int64(fromEpoch))
	if err != nil {
		return nil, fmt.Errorf("store: checkpoints: %w", err)
	}
	defer rows.Close()

	var out []*Checkpoint
	for rows.Next() {
		cp := &Checkpoint{}
		var epoch int64
		if err := rows.Scan(&epoch, &cp.Digest, &cp.Link, &cp.Sig); err != nil {
			return nil, fmt.Errorf("store: scan checkpoint: %w", err)
		}
		cp.Epoch = uint64(epoch)
		out = append(out, cp)
	}
	return out, rows.Err()
}

func (s *DB) Commit(cp *Checkpoint, touched []*sncore.StreamState) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("store: begin commit: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO checkpoints (epoch, digest, link, sig) VALUES (?, ?, ?, ?)`,
		int64(cp.Epoch), cp.Digest, cp.Link, cp.Sig)
	if err != nil {
		return fmt.Errorf("store: insert checkpoint %d: %w", cp.Epoch, err)
	}

	for _, st := range touched {
		_, err = tx.Exec(
			`INSERT INTO streams (stream_id, count, batch, head, leaf)
			 VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT(stream_id) DO UPDATE SET
			 count = excluded.count, batch = excluded.batch,
			 head = excluded.head, leaf = excluded.leaf`,
			int64(st.Stream), int64(st.Count), int64(st.Batch), st.Head, st.Leaf)
		if err != nil {
			return fmt.Errorf("store: upsert stream %d: %w", st.Stream, err)
		}
	}

	return tx.Commit()
}

func (s *DB) Close() error {
	return s.db.Close()
}
