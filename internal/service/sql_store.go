package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
	_ "modernc.org/sqlite"             // driver: sqlite
)

type Driver string

const (
	DriverMemory   Driver = "memory"
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// OpenDB открывает базу и создает таблицы, если их нет
func OpenDB(ctx context.Context, driver Driver, dsn string) (*sql.DB, error) {
	var drvName string
	switch driver {
	case DriverSQLite:
		drvName = "sqlite" // modernc driver
		if dsn == "" {
			dsn = "file:quizbot.db?cache=shared&mode=rwc&_pragma=busy_timeout(5000)"
		}
	case DriverPostgres:
		drvName = "pgx" // pgx stdlib driver
		if dsn == "" {
			dsn = "postgres://localhost:5432/quizbot?sslmode=disable"
		}
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}

	db, err := sql.Open(drvName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return db, nil
}

// Одна схема подходит и для sqlite, и для postgres
const schema = `
CREATE TABLE IF NOT EXISTS quizzes (
  id TEXT PRIMARY KEY,
  question TEXT NOT NULL,
  options_json TEXT NOT NULL,
  correct_index INTEGER NOT NULL,
  owner BIGINT NOT NULL,
  source TEXT NOT NULL,
  created_at BIGINT NOT NULL,
  updated_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS approved_users (
  user_id BIGINT PRIMARY KEY,
  approved_at BIGINT NOT NULL
);
`

type SQLQuizStore struct {
	db *sql.DB
}

func NewSQLQuizStore(db *sql.DB) *SQLQuizStore {
	return &SQLQuizStore{db: db}
}

func (s *SQLQuizStore) Put(ctx context.Context, quiz Quiz) error {
	if err := quiz.Validate(); err != nil {
		return fmt.Errorf("put quiz: %w", err)
	}
	oj, err := json.Marshal(quiz.Options)
	if err != nil {
		return fmt.Errorf("failed to encode options: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO quizzes (id,question,options_json,correct_index,owner,source,created_at,updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (id) DO UPDATE SET question=EXCLUDED.question, options_json=EXCLUDED.options_json,
		correct_index=EXCLUDED.correct_index, source=EXCLUDED.source, updated_at=EXCLUDED.updated_at`,
		quiz.ID, quiz.Question, string(oj), quiz.CorrectIndex, quiz.Owner, string(quiz.Source),
		quiz.CreatedAt.UnixMilli(), quiz.UpdatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to put quiz: %w", err)
	}
	return nil
}

func (s *SQLQuizStore) Get(ctx context.Context, id string) (Quiz, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id,question,options_json,correct_index,owner,source,created_at,updated_at
		FROM quizzes WHERE id=$1`, id)
	quiz, err := scanQuiz(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Quiz{}, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return Quiz{}, fmt.Errorf("failed to get quiz: %w", err)
	}
	return quiz, nil
}

func (s *SQLQuizStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM quizzes WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete quiz: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete quiz: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

func (s *SQLQuizStore) List(ctx context.Context) ([]Quiz, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id,question,options_json,correct_index,owner,source,created_at,updated_at
		FROM quizzes ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list quizzes: %w", err)
	}
	defer rows.Close()

	var list []Quiz
	for rows.Next() {
		quiz, err := scanQuiz(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan quiz: %w", err)
		}
		list = append(list, quiz)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating quizzes: %w", err)
	}
	return list, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuiz(row rowScanner) (Quiz, error) {
	var (
		q                Quiz
		optionsJSON      string
		source           string
		created, updated int64
	)
	if err := row.Scan(&q.ID, &q.Question, &optionsJSON, &q.CorrectIndex, &q.Owner, &source, &created, &updated); err != nil {
		return Quiz{}, err
	}
	if err := json.Unmarshal([]byte(optionsJSON), &q.Options); err != nil {
		return Quiz{}, err
	}
	q.Source = Source(source)
	q.CreatedAt = time.UnixMilli(created).UTC()
	q.UpdatedAt = time.UnixMilli(updated).UTC()
	return q, nil
}

type SQLApprovalStore struct {
	db *sql.DB
}

func NewSQLApprovalStore(db *sql.DB) *SQLApprovalStore {
	return &SQLApprovalStore{db: db}
}

func (s *SQLApprovalStore) Add(ctx context.Context, userID int64) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO approved_users (user_id, approved_at) VALUES ($1,$2)
		ON CONFLICT (user_id) DO NOTHING`, userID, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to approve user: %w", err)
	}
	return nil
}

func (s *SQLApprovalStore) Remove(ctx context.Context, userID int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM approved_users WHERE user_id=$1`, userID); err != nil {
		return fmt.Errorf("failed to remove user: %w", err)
	}
	return nil
}

func (s *SQLApprovalStore) Has(ctx context.Context, userID int64) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM approved_users WHERE user_id=$1`, userID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check user: %w", err)
	}
	return true, nil
}

func (s *SQLApprovalStore) List(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT user_id FROM approved_users ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
