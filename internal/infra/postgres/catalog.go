package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"adaptive-quiz-engine/internal/domain"
)

// CatalogLoader reads chapters and questions from Postgres over pgx. It is
// the lean read path behind the catalog caches; the engine never writes
// these tables.
type CatalogLoader struct {
	pool *pgxpool.Pool
}

func NewCatalogLoader(pool *pgxpool.Pool) *CatalogLoader {
	return &CatalogLoader{pool: pool}
}

func (l *CatalogLoader) LoadChapters(ctx context.Context) ([]domain.Chapter, error) {
	rows, err := l.pool.Query(ctx,
		`SELECT chapter_id, name, COALESCE(description, ''), COALESCE(created_by, 0), created_at
		 FROM chapters ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("load chapters: %w", err)
	}
	defer rows.Close()

	var chapters []domain.Chapter
	for rows.Next() {
		var c domain.Chapter
		if err := rows.Scan(&c.ChapterID, &c.Name, &c.Description, &c.CreatedBy, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan chapter: %w", err)
		}
		chapters = append(chapters, c)
	}
	return chapters, rows.Err()
}

func (l *CatalogLoader) LoadQuestions(ctx context.Context, chapterID int64, difficulty int) ([]domain.Question, error) {
	query := `SELECT question_id, chapter_id, question_text, option_a, option_b, option_c, option_d,
	                 correct_option, difficulty, COALESCE(explanation, '')
	          FROM questions WHERE chapter_id = $1`
	args := []interface{}{chapterID}
	if difficulty != 0 {
		query += ` AND difficulty = $2`
		args = append(args, difficulty)
	}
	query += ` ORDER BY question_id`

	rows, err := l.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	var questions []domain.Question
	for rows.Next() {
		var q domain.Question
		if err := rows.Scan(&q.QuestionID, &q.ChapterID, &q.Text, &q.OptionA, &q.OptionB, &q.OptionC, &q.OptionD,
			&q.CorrectOption, &q.Difficulty, &q.Explanation); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

func (l *CatalogLoader) LoadQuestion(ctx context.Context, questionID int64) (domain.Question, error) {
	var q domain.Question
	err := l.pool.QueryRow(ctx,
		`SELECT question_id, chapter_id, question_text, option_a, option_b, option_c, option_d,
		        correct_option, difficulty, COALESCE(explanation, '')
		 FROM questions WHERE question_id = $1`, questionID).
		Scan(&q.QuestionID, &q.ChapterID, &q.Text, &q.OptionA, &q.OptionB, &q.OptionC, &q.OptionD,
			&q.CorrectOption, &q.Difficulty, &q.Explanation)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	if err != nil {
		return domain.Question{}, fmt.Errorf("load question: %w", err)
	}
	return q, nil
}
