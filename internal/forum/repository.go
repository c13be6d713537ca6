package forum

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrQuestionNotFound is returned when a question lookup finds nothing.
var ErrQuestionNotFound = errors.New("question not found")

// Repository provides forum persistence against PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a forum Repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// CreateQuestion inserts a new question. Sets ID, CreatedAt, UpdatedAt.
func (r *Repository) CreateQuestion(ctx context.Context, q *Question) error {
	q.ID = uuid.New()
	now := time.Now().UTC()
	q.CreatedAt = now
	q.UpdatedAt = now

	sql := `
		INSERT INTO questions (id, user_id, username, user_email, user_image,
		                       content, answer_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.db.Exec(ctx, sql,
		q.ID, q.UserID, q.Username, q.UserEmail, q.UserImage,
		q.Content, q.AnswerCount, q.CreatedAt, q.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create question: %w", err)
	}
	return nil
}

// GetQuestion retrieves a question by ID.
func (r *Repository) GetQuestion(ctx context.Context, id uuid.UUID) (*Question, error) {
	sql := `
		SELECT id, user_id, username, user_email, user_image, content,
		       answer_count, created_at, updated_at
		FROM questions WHERE id = $1`

	var q Question
	err := r.db.QueryRow(ctx, sql, id).Scan(
		&q.ID, &q.UserID, &q.Username, &q.UserEmail, &q.UserImage, &q.Content,
		&q.AnswerCount, &q.CreatedAt, &q.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrQuestionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get question: %w", err)
	}
	return &q, nil
}

// ListQuestions returns one page of questions, newest first, with the total
// count.
func (r *Repository) ListQuestions(ctx context.Context, page, limit int) ([]*Question, int, error) {
	var total int
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM questions`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count questions: %w", err)
	}

	sql := `
		SELECT id, user_id, username, user_email, user_image, content,
		       answer_count, created_at, updated_at
		FROM questions
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`
	rows, err := r.db.Query(ctx, sql, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()

	out := make([]*Question, 0)
	for rows.Next() {
		var q Question
		if err := rows.Scan(
			&q.ID, &q.UserID, &q.Username, &q.UserEmail, &q.UserImage, &q.Content,
			&q.AnswerCount, &q.CreatedAt, &q.UpdatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scan question: %w", err)
		}
		out = append(out, &q)
	}
	return out, total, rows.Err()
}

// CreateAnswer inserts an answer and bumps the question's answer counter in
// one transaction.
func (r *Repository) CreateAnswer(ctx context.Context, a *Answer) error {
	a.ID = uuid.New()
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	sql := `
		INSERT INTO answers (id, question_id, user_id, username, user_email,
		                     user_image, content, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	if _, err := tx.Exec(ctx, sql,
		a.ID, a.QuestionID, a.UserID, a.Username, a.UserEmail,
		a.UserImage, a.Content, a.CreatedAt, a.UpdatedAt,
	); err != nil {
		return fmt.Errorf("create answer: %w", err)
	}

	tag, err := tx.Exec(ctx,
		`UPDATE questions SET answer_count = answer_count + 1, updated_at = $2 WHERE id = $1`,
		a.QuestionID, now,
	)
	if err != nil {
		return fmt.Errorf("bump answer count: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrQuestionNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ListAnswers returns a question's answers, oldest first.
func (r *Repository) ListAnswers(ctx context.Context, questionID uuid.UUID) ([]*Answer, error) {
	sql := `
		SELECT id, question_id, user_id, username, user_email, user_image,
		       content, created_at, updated_at
		FROM answers
		WHERE question_id = $1
		ORDER BY created_at`
	rows, err := r.db.Query(ctx, sql, questionID)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	defer rows.Close()

	out := make([]*Answer, 0)
	for rows.Next() {
		var a Answer
		if err := rows.Scan(
			&a.ID, &a.QuestionID, &a.UserID, &a.Username, &a.UserEmail, &a.UserImage,
			&a.Content, &a.CreatedAt, &a.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan answer: %w", err)
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

// CreateBuildReply inserts a build reply and bumps the build's reply counter
// in one transaction.
func (r *Repository) CreateBuildReply(ctx context.Context, br *BuildReply) error {
	br.ID = uuid.New()
	now := time.Now().UTC()
	br.CreatedAt = now
	br.UpdatedAt = now

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	sql := `
		INSERT INTO build_replies (id, build_id, user_id, username, user_image,
		                           content, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	if _, err := tx.Exec(ctx, sql,
		br.ID, br.BuildID, br.UserID, br.Username, br.UserImage,
		br.Content, br.CreatedAt, br.UpdatedAt,
	); err != nil {
		return fmt.Errorf("create build reply: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE builds SET reply_count = reply_count + 1 WHERE id = $1`,
		br.BuildID,
	); err != nil {
		return fmt.Errorf("bump reply count: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ListBuildReplies returns a build's replies, oldest first.
func (r *Repository) ListBuildReplies(ctx context.Context, buildID uuid.UUID) ([]*BuildReply, error) {
	sql := `
		SELECT id, build_id, user_id, username, user_image, content,
		       created_at, updated_at
		FROM build_replies
		WHERE build_id = $1
		ORDER BY created_at`
	rows, err := r.db.Query(ctx, sql, buildID)
	if err != nil {
		return nil, fmt.Errorf("list build replies: %w", err)
	}
	defer rows.Close()

	out := make([]*BuildReply, 0)
	for rows.Next() {
		var br BuildReply
		if err := rows.Scan(
			&br.ID, &br.BuildID, &br.UserID, &br.Username, &br.UserImage, &br.Content,
			&br.CreatedAt, &br.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan build reply: %w", err)
		}
		out = append(out, &br)
	}
	return out, rows.Err()
}
