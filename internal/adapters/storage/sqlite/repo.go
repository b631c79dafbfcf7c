package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hylla/vettrack/internal/domain"
	_ "modernc.org/sqlite"
)

// driverName defines a package constant value.
const driverName = "sqlite"

// Repository stores report completion records and votes in sqlite.
type Repository struct {
	db *sql.DB
}

// Open opens (and migrates) the database file at path.
func Open(path string) (*Repository, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	return newRepository(db)
}

// OpenInMemory opens a private in-memory database.
func OpenInMemory() (*Repository, error) {
	db, err := sql.Open(driverName, ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open sqlite memory: %w", err)
	}
	return newRepository(db)
}

// newRepository pins the pool to one connection and migrates the schema.
// A single connection keeps in-memory databases alive and serializes writers.
func newRepository(db *sql.DB) (*Repository, error) {
	db.SetMaxOpenConns(1)
	repo := &Repository{db: db}
	if err := repo.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// Close closes the database.
func (r *Repository) Close() error {
	return r.db.Close()
}

// Ping reports whether the database is reachable.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// migrate handles migrate.
func (r *Repository) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS report_status (
			user_id TEXT NOT NULL,
			locale TEXT NOT NULL,
			report_kind TEXT NOT NULL,
			marked INTEGER NOT NULL DEFAULT 0,
			acceptable INTEGER NOT NULL DEFAULT 0,
			completed_at TEXT NOT NULL,
			completed_unix_nano INTEGER NOT NULL,
			PRIMARY KEY(user_id, locale, report_kind)
		);`,
		`CREATE TABLE IF NOT EXISTS votes (
			user_id TEXT NOT NULL,
			locale TEXT NOT NULL,
			path TEXT NOT NULL,
			value TEXT NOT NULL DEFAULT '',
			vote_type TEXT NOT NULL DEFAULT 'direct',
			voted_at TEXT NOT NULL,
			PRIMARY KEY(user_id, locale, path)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_report_status_locale ON report_status(locale, user_id);`,
		`CREATE INDEX IF NOT EXISTS idx_votes_locale ON votes(locale, user_id);`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate sqlite: %w", err)
		}
	}
	return nil
}

// GetReports returns every record for one (user, locale); unknown pairs yield an empty set.
func (r *Repository) GetReports(ctx context.Context, user domain.UserID, locale domain.LocaleID) (domain.UserLocaleReports, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id, locale, report_kind, marked, acceptable, completed_at
		FROM report_status
		WHERE user_id = ? AND locale = ?
	`, string(user), string(locale))
	if err != nil {
		return domain.UserLocaleReports{}, err
	}
	defer rows.Close()

	grouped, err := scanReportRows(rows)
	if err != nil {
		return domain.UserLocaleReports{}, err
	}
	if len(grouped) == 0 {
		return domain.NewUserLocaleReports(user, locale), nil
	}
	return grouped[0], nil
}

// ApplyReportMark upserts one record when it is not older than the stored one.
func (r *Repository) ApplyReportMark(ctx context.Context, mark domain.ReportMark) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO report_status(user_id, locale, report_kind, marked, acceptable, completed_at, completed_unix_nano)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, locale, report_kind) DO UPDATE SET
			marked = excluded.marked,
			acceptable = excluded.acceptable,
			completed_at = excluded.completed_at,
			completed_unix_nano = excluded.completed_unix_nano
		WHERE excluded.completed_unix_nano >= report_status.completed_unix_nano
	`, string(mark.User), string(mark.Locale), string(mark.Kind), boolToInt(mark.Marked), boolToInt(mark.Acceptable), ts(mark.CompletedAt), mark.CompletedAt.UnixNano())
	if err != nil {
		return false, fmt.Errorf("upsert report_status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// ListUserReports returns one record set per locale the user touched, ordered by locale.
func (r *Repository) ListUserReports(ctx context.Context, user domain.UserID) ([]domain.UserLocaleReports, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id, locale, report_kind, marked, acceptable, completed_at
		FROM report_status
		WHERE user_id = ?
		ORDER BY locale ASC, user_id ASC
	`, string(user))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanReportRows(rows)
}

// ListLocaleReports returns one record set per user of the locale, ordered by user.
func (r *Repository) ListLocaleReports(ctx context.Context, locale domain.LocaleID) ([]domain.UserLocaleReports, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id, locale, report_kind, marked, acceptable, completed_at
		FROM report_status
		WHERE locale = ?
		ORDER BY locale ASC, user_id ASC
	`, string(locale))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanReportRows(rows)
}

// ResetReports deletes every report record.
func (r *Repository) ResetReports(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM report_status`)
	return err
}

// RecordVote stores one vote, replacing the user's earlier vote on the same path.
func (r *Repository) RecordVote(ctx context.Context, vote domain.Vote) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO votes(user_id, locale, path, value, vote_type, voted_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, locale, path) DO UPDATE SET
			value = excluded.value,
			vote_type = excluded.vote_type,
			voted_at = excluded.voted_at
	`, string(vote.User), string(vote.Locale), vote.Path, vote.Value, string(vote.Type), ts(vote.VotedAt))
	if err != nil {
		return fmt.Errorf("upsert vote: %w", err)
	}
	return nil
}

// ListVotes returns one user's votes in one locale, ordered by path.
func (r *Repository) ListVotes(ctx context.Context, user domain.UserID, locale domain.LocaleID) ([]domain.Vote, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id, locale, path, value, vote_type, voted_at
		FROM votes
		WHERE user_id = ? AND locale = ?
		ORDER BY path ASC
	`, string(user), string(locale))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Vote{}
	for rows.Next() {
		var (
			v         domain.Vote
			userRaw   string
			localeRaw string
			typeRaw   string
			votedRaw  string
		)
		if err := rows.Scan(&userRaw, &localeRaw, &v.Path, &v.Value, &typeRaw, &votedRaw); err != nil {
			return nil, err
		}
		vt, err := domain.ParseVoteType(typeRaw)
		if err != nil {
			return nil, fmt.Errorf("decode votes.vote_type: %w", err)
		}
		v.User = domain.UserID(userRaw)
		v.Locale = domain.LocaleID(localeRaw)
		v.Type = vt
		v.VotedAt = parseTS(votedRaw)
		out = append(out, v)
	}
	return out, rows.Err()
}

// scanReportRows groups report rows into per-(user, locale) record sets.
// Rows must arrive ordered by (locale, user_id) or filtered to one pair.
func scanReportRows(rows *sql.Rows) ([]domain.UserLocaleReports, error) {
	out := []domain.UserLocaleReports{}
	for rows.Next() {
		var (
			userRaw      string
			localeRaw    string
			kindRaw      string
			marked       int
			acceptable   int
			completedRaw string
		)
		if err := rows.Scan(&userRaw, &localeRaw, &kindRaw, &marked, &acceptable, &completedRaw); err != nil {
			return nil, err
		}
		kind, err := domain.ParseReportKind(kindRaw)
		if err != nil {
			return nil, fmt.Errorf("decode report_status.report_kind: %w", err)
		}
		user, locale := domain.UserID(userRaw), domain.LocaleID(localeRaw)
		if n := len(out); n == 0 || out[n-1].User != user || out[n-1].Locale != locale {
			out = append(out, domain.NewUserLocaleReports(user, locale))
		}
		out[len(out)-1].Statuses[kind] = domain.ReportStatus{
			Marked:      marked != 0,
			Acceptable:  acceptable != 0,
			CompletedAt: parseTS(completedRaw),
		}
	}
	return out, rows.Err()
}

// boolToInt encodes a bool as a sqlite integer.
func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

// ts handles ts.
func ts(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTS parses input into a normalized form.
func parseTS(v string) time.Time {
	ts, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return ts.UTC()
}
