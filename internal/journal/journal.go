// Package journal stores executor job events in SQLite so finished runs
// can be listed after the process exits.
package journal

import (
	"context"
	"database/sql"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"github.com/funvibe/jiffle/internal/executor"
)

const schema = `
CREATE TABLE IF NOT EXISTS job_events (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	executor    TEXT    NOT NULL,
	job_id      INTEGER NOT NULL,
	completed   INTEGER NOT NULL,
	error       TEXT    NOT NULL DEFAULT '',
	images      TEXT    NOT NULL DEFAULT '',
	recorded_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS job_events_executor ON job_events (executor, job_id);
`

// Event is one stored job result.
type Event struct {
	Executor   string
	JobID      int
	Completed  bool
	Error      string
	Images     []string
	RecordedAt time.Time
}

type Journal struct {
	db  *sql.DB
	now func() time.Time
}

// Open creates or opens the journal at path; ":memory:" keeps it in memory.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "opening journal")
	}
	// One connection: every ":memory:" connection would be its own database.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "creating journal schema")
	}
	return &Journal{db: db, now: time.Now}, nil
}

func (j *Journal) Close() error { return j.db.Close() }

// Record stores r for the executor with the given id.
func (j *Journal) Record(ctx context.Context, executorID string, r executor.Result) error {
	var msg string
	if r.Err != nil {
		msg = r.Err.Error()
	}
	var names []string
	if r.Runner != nil {
		for name := range r.Images() {
			names = append(names, name)
		}
		sort.Strings(names)
	}
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO job_events (executor, job_id, completed, error, images, recorded_at) VALUES (?, ?, ?, ?, ?, ?)`,
		executorID, r.JobID, r.Completed, msg, strings.Join(names, ","), j.now().UnixNano())
	return errors.Wrapf(err, "recording job %d", r.JobID)
}

// Events lists the stored events of one executor ordered by job id. An
// empty executorID lists every event.
func (j *Journal) Events(ctx context.Context, executorID string) ([]Event, error) {
	query := `SELECT executor, job_id, completed, error, images, recorded_at FROM job_events`
	var args []interface{}
	if executorID != "" {
		query += ` WHERE executor = ?`
		args = append(args, executorID)
	}
	query += ` ORDER BY executor, job_id, id`

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying journal")
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var (
			ev     Event
			images string
			nanos  int64
		)
		if err := rows.Scan(&ev.Executor, &ev.JobID, &ev.Completed, &ev.Error, &images, &nanos); err != nil {
			return nil, errors.Wrap(err, "reading journal")
		}
		if images != "" {
			ev.Images = strings.Split(images, ",")
		}
		ev.RecordedAt = time.Unix(0, nanos)
		out = append(out, ev)
	}
	return out, errors.Wrap(rows.Err(), "reading journal")
}

// Listener returns an executor listener that records every event.
// Storage errors are logged, never returned to the executor.
func (j *Journal) Listener(executorID string, logger *slog.Logger) executor.Listener {
	if logger == nil {
		logger = slog.Default()
	}
	return &listener{journal: j, executor: executorID, logger: logger}
}

type listener struct {
	journal  *Journal
	executor string
	logger   *slog.Logger
}

func (l *listener) OnCompletionEvent(r executor.Result) { l.record(r) }
func (l *listener) OnFailureEvent(r executor.Result)    { l.record(r) }

func (l *listener) record(r executor.Result) {
	if err := l.journal.Record(context.Background(), l.executor, r); err != nil {
		l.logger.Error("journal write failed", "job", r.JobID, "error", err)
	}
}
