package repos

import (
	"github.com/jmoiron/sqlx"

	"storefront/internal/domain"
)

type CommentRepo struct{ db *sqlx.DB }

func NewCommentRepo(db *sqlx.DB) *CommentRepo { return &CommentRepo{db: db} }

const commentSelect = `
	SELECT c.id, c.user_id, TRIM(u.first_name || ' ' || u.last_name) AS author,
	       c.body, c.rating, c.status, c.created_at
	FROM comments c
	JOIN users u ON u.id = c.user_id`

func (r *CommentRepo) Create(c *domain.Comment) error {
	_, err := r.db.Exec(`
		INSERT INTO comments(id,user_id,body,rating,status,created_at)
		VALUES(?,?,?,?,?,CURRENT_TIMESTAMP)`, c.ID, c.UserID, c.Body, c.Rating, c.Status)
	return err
}

// Active lists visible comments, newest first.
func (r *CommentRepo) Active(limit int) ([]domain.Comment, error) {
	out := []domain.Comment{}
	err := r.db.Select(&out, commentSelect+`
		WHERE c.status='active'
		ORDER BY c.created_at DESC, c.rowid DESC
		LIMIT ?`, limit)
	return out, err
}

func (r *CommentRepo) ByUser(userID string) ([]domain.Comment, error) {
	out := []domain.Comment{}
	err := r.db.Select(&out, commentSelect+`
		WHERE c.user_id=?
		ORDER BY c.created_at DESC, c.rowid DESC`, userID)
	return out, err
}

func (r *CommentRepo) CountActive() (int, error) {
	var n int
	err := r.db.Get(&n, `SELECT COUNT(*) FROM comments WHERE status='active'`)
	return n, err
}
