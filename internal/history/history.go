// Package history keeps an audit log of handled commands in SQLite.
package history

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/sweeney/motor-switch/internal/logic"
)

// DefaultLimit is the number of entries Recent returns for limit <= 0.
const DefaultLimit = 50

// Entry is one handled request.
type Entry struct {
	ID      string
	Time    time.Time
	Source  logic.Source
	Command string
	Result  logic.Result
	State   logic.State
	Message string
}

// Recorder stores handled requests.
type Recorder interface {
	Record(e Entry) error
}

// Store is a SQLite-backed Recorder.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the history database at path.
// ":memory:" gives a private in-memory database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open history %s: %w", path, err)
	}
	// One connection: keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.createTable(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) createTable() error {
	_, err := s.db.Exec(`
		create table if not exists commands
		(
			id       varchar(20)  not null primary key,
			time     integer      not null,
			source   varchar(16)  not null,
			command  varchar(256) not null default '',
			result   varchar(16)  not null,
			state    varchar(8)   not null,
			message  text         not null default ''
		);
		create index if not exists commands_time_index on commands (time);
	`)
	if err != nil {
		return fmt.Errorf("create history table: %w", err)
	}
	return nil
}

// Record inserts e.
func (s *Store) Record(e Entry) error {
	_, err := s.db.Exec(
		`insert into commands (id, time, source, command, result, state, message) values (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Time.UTC().UnixNano(), string(e.Source), e.Command, string(e.Result), string(e.State), e.Message,
	)
	if err != nil {
		return fmt.Errorf("record command %s: %w", e.ID, err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	rows, err := s.db.Query(
		`select id, time, source, command, result, state, message from commands order by time desc, rowid desc limit ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e                     Entry
			nanos                 int64
			source, result, state string
		)
		if err := rows.Scan(&e.ID, &nanos, &source, &e.Command, &result, &state, &e.Message); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		e.Time = time.Unix(0, nanos).UTC()
		e.Source = logic.Source(source)
		e.Result = logic.Result(result)
		e.State = logic.State(state)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	return entries, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
