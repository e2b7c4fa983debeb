// Package journal persists operation outcomes to a sqlite database
// for post-mortem diagnostics.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"git.tatikoma.dev/corpix/strand/errors"
)

type (
	Tx = sql.Tx
	DB = sql.DB

	Outcome string

	Record struct {
		ID        int64
		Service   string
		Operation string
		Outcome   Outcome
		Result    string
		Error     string
		At        time.Time
	}

	Journal struct {
		db *DB
	}
)

// Hooks journal only settled successes and failures, cancellations
// fire no hook and leave no record. OutcomeCanceled is for callers
// appending their own records, e.g. when draining handles on shutdown.
const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
	OutcomeCanceled  Outcome = "canceled"
)

var DefaultPragmas = []string{
	"journal_mode=WAL",
	"foreign_keys=1",
	"busy_timeout=5000",
	"synchronous=NORMAL",
}

const schema = `
create table if not exists operations (
	id        integer primary key autoincrement,
	service   text not null,
	operation text not null,
	outcome   text not null,
	result    text not null default '',
	error     text not null default '',
	at        timestamp not null
);
create index if not exists operations_service on operations (service);
`

func newDB(dsn string, timeout time.Duration) (*DB, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open sqlite database: %s", dsn)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	for _, pragma := range DefaultPragmas {
		_, err = db.ExecContext(ctx, fmt.Sprintf("PRAGMA %s;", pragma))
		if err != nil {
			_ = db.Close()
			return nil, errors.Wrapf(err, "failed to execute pragma: %s", pragma)
		}
	}

	err = db.PingContext(ctx)
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "failed to ping sqlite database")
	}

	return db, nil
}

// Open opens (creating when missing) the journal database at dsn.
func Open(dsn string, timeout time.Duration) (*Journal, error) {
	db, err := newDB(dsn, timeout)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	_, err = db.ExecContext(ctx, schema)
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "failed to migrate journal schema")
	}

	return &Journal{db: db}, nil
}

func withTx[T any](ctx context.Context, db *DB, fn func(tx *Tx) (T, error)) (T, error) {
	var result T
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return result, errors.Wrap(err, errors.ErrBeginTx)
	}

	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback()
			panic(r)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				errors.Log(rbErr, errors.ErrRollbackTx)
			}
			return
		}
		if cmtErr := tx.Commit(); cmtErr != nil {
			errors.Log(cmtErr, errors.ErrCommitTx)
		}
	}()

	result, err = fn(tx)
	return result, err
}

// Append stores one outcome record and returns its id.
func (j *Journal) Append(ctx context.Context, r Record) (int64, error) {
	if r.At.IsZero() {
		r.At = time.Now()
	}
	return withTx(ctx, j.db, func(tx *Tx) (int64, error) {
		res, err := tx.ExecContext(ctx,
			`insert into operations (service, operation, outcome, result, error, at)
			 values (?, ?, ?, ?, ?, ?)`,
			r.Service, r.Operation, r.Outcome, r.Result, r.Error, r.At,
		)
		if err != nil {
			return 0, errors.Wrap(err, "failed to insert record")
		}
		return res.LastInsertId()
	})
}

// Tail returns the n most recent records, newest first.
func (j *Journal) Tail(ctx context.Context, n int) ([]Record, error) {
	rows, err := j.db.QueryContext(ctx,
		`select id, service, operation, outcome, result, error, at
		 from operations order by id desc limit ?`, n,
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query records")
	}
	defer func() { _ = rows.Close() }()

	var rs []Record
	for rows.Next() {
		var r Record
		err = rows.Scan(&r.ID, &r.Service, &r.Operation, &r.Outcome, &r.Result, &r.Error, &r.At)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan record")
		}
		rs = append(rs, r)
	}
	return rs, rows.Err()
}

func (j *Journal) Close() error {
	return j.db.Close()
}
