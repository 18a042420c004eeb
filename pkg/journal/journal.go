package journal

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	_ "github.com/mattn/go-sqlite3"
)

// Entry is one recorded reconcile invocation. The reconciler itself stays
// stateless, the journal is write-only reporting.
type Entry struct {
	ID       string    `json:"id"`
	Time     time.Time `json:"time"`
	State    string    `json:"state"`
	Scope    []string  `json:"scope"`
	Changed  bool      `json:"changed"`
	Found    int       `json:"found"`
	Updated  int       `json:"updated"`
	Canceled int       `json:"canceled"`
	Msg      string    `json:"msg"`
}

type dbEntry struct {
	ID       string `db:"id"`
	Ts       int64  `db:"ts"`
	State    string `db:"state"`
	Scope    string `db:"scope"`
	Changed  bool   `db:"changed"`
	Found    int    `db:"found"`
	Updated  int    `db:"updated"`
	Canceled int    `db:"canceled"`
	Msg      string `db:"msg"`
}

type Journal struct {
	db *sqlx.DB
}

func NewJournal(dbpath string) (*Journal, error) {
	db, err := sqlx.Open("sqlite3", dbpath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}
	return &Journal{db: db}, nil
}

func (j *Journal) Initialize() error {
	createSQL := `CREATE TABLE IF NOT EXISTS invocation (
	  "id" TEXT PRIMARY KEY,
	  "ts" INTEGER NOT NULL,
	  "state" TEXT NOT NULL,
	  "scope" TEXT NOT NULL,
	  "changed" INTEGER,
	  "found" INTEGER,
	  "updated" INTEGER,
	  "canceled" INTEGER,
	  "msg" TEXT
	)`

	statement, err := j.db.Prepare(createSQL)
	if err != nil {
		return fmt.Errorf("failed to initialize journal: %w", err)
	}
	_, err = statement.Exec()
	if err != nil {
		return fmt.Errorf("failed to initialize journal: %w", err)
	}
	return nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}

func (j *Journal) Record(e Entry) (Entry, error) {
	if e.State == "" {
		return Entry{}, errors.New("validation error: state must be set")
	}

	st, err := convertToDbEntry(&e)
	if err != nil {
		return Entry{}, fmt.Errorf("unable to convert journal entry: %w", err)
	}

	q := `INSERT INTO invocation (id, ts, state, scope, changed, found, updated, canceled, msg) VALUES (:id, :ts, :state, :scope, :changed, :found, :updated, :canceled, :msg)`
	_, err = j.db.NamedExec(q, st)
	if err != nil {
		return Entry{}, fmt.Errorf("unable to record journal entry: %w", err)
	}

	rv, err := convertFromDbEntry(&st)
	if err != nil {
		return Entry{}, fmt.Errorf("unable to convert record result: %w", err)
	}
	return *rv, nil
}

func (j *Journal) List(from time.Time, to time.Time) ([]Entry, error) {
	results := []dbEntry{}
	err := j.db.Select(&results, "SELECT * FROM invocation WHERE ts >= ? AND ts <= ? ORDER BY ts", from.Unix(), to.Unix())
	if err != nil {
		return nil, fmt.Errorf("error while querying journal entries: %w", err)
	}

	converted := make([]Entry, len(results))
	for i, r := range results {
		c, err := convertFromDbEntry(&r)
		if err != nil {
			return nil, fmt.Errorf("error while converting journal entry list: %w", err)
		}
		converted[i] = *c
	}
	return converted, nil
}

func convertToDbEntry(e *Entry) (dbEntry, error) {
	scope, err := json.Marshal(e.Scope)
	if err != nil {
		return dbEntry{}, fmt.Errorf("could not convert journal entry: %w", err)
	}
	ne := dbEntry{
		ID:       e.ID,
		Ts:       e.Time.Unix(),
		State:    e.State,
		Scope:    string(scope),
		Changed:  e.Changed,
		Found:    e.Found,
		Updated:  e.Updated,
		Canceled: e.Canceled,
		Msg:      e.Msg,
	}

	if e.Time.IsZero() {
		ne.Ts = time.Now().Unix()
	}
	if len(ne.ID) == 0 {
		ne.ID = uuid.New().String()
	}

	return ne, nil
}

func convertFromDbEntry(e *dbEntry) (*Entry, error) {
	scope := []string{}
	if err := json.Unmarshal([]byte(e.Scope), &scope); err != nil {
		return nil, fmt.Errorf("could not convert journal entry: %w", err)
	}
	return &Entry{
		ID:       e.ID,
		Time:     time.Unix(e.Ts, 0),
		State:    e.State,
		Scope:    scope,
		Changed:  e.Changed,
		Found:    e.Found,
		Updated:  e.Updated,
		Canceled: e.Canceled,
		Msg:      e.Msg,
	}, nil
}
