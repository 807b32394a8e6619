package repos

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"

	"storefront/internal/domain"
)

const userCols = `id,email,first_name,last_name,password_hash,role,age,created_at`

type UserRepo struct{ DB *sqlx.DB }

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{DB: db} }

func notFound(err error, kind, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NotFound(kind, id)
	}
	return err
}

func (r *UserRepo) ByEmail(email string) (*domain.User, error) {
	var u domain.User
	err := r.DB.Get(&u, `SELECT `+userCols+` FROM users WHERE LOWER(email)=LOWER(?)`, email)
	if err != nil {
		return nil, notFound(err, "user", email)
	}
	return &u, nil
}

func (r *UserRepo) ByID(id string) (*domain.User, error) {
	var u domain.User
	err := r.DB.Get(&u, `SELECT `+userCols+` FROM users WHERE id=?`, id)
	if err != nil {
		return nil, notFound(err, "user", id)
	}
	return &u, nil
}

// Create inserts u. A taken email is reported as a ValidationError.
func (r *UserRepo) Create(u *domain.User) error {
	_, err := r.DB.Exec(`
		INSERT INTO users(id,email,first_name,last_name,password_hash,role,age,updated_at)
		VALUES(?,?,?,?,?,?,?,CURRENT_TIMESTAMP)`,
		u.ID, strings.ToLower(u.Email), u.FirstName, u.LastName, u.Hash, u.Role, u.Age)
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return domain.Invalid("email", "an account with this email already exists")
	}
	return err
}

func (r *UserRepo) UpdateProfile(id, first, last string, age sql.NullInt64) error {
	res, err := r.DB.Exec(`
		UPDATE users SET first_name=?, last_name=?, age=?, updated_at=CURRENT_TIMESTAMP
		WHERE id=?`, first, last, age, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NotFound("user", id)
	}
	return nil
}

func (r *UserRepo) BindSession(sid, userID string) error {
	_, err := r.DB.Exec(`INSERT INTO sessions(id,user_id,last_seen) 
                          VALUES(?,?,CURRENT_TIMESTAMP)
                          ON CONFLICT(id) DO UPDATE SET user_id=excluded.user_id,last_seen=CURRENT_TIMESTAMP`, sid, userID)
	return err
}

func (r *UserRepo) SessionUser(sid string) (*domain.User, error) {
	var u domain.User
	err := r.DB.Get(&u, `
      SELECT u.id,u.email,u.first_name,u.last_name,u.password_hash,u.role,u.age,u.created_at
      FROM sessions s 
      JOIN users u ON u.id=s.user_id
      WHERE s.id=?`, sid)
	if err != nil {
		return nil, notFound(err, "session", sid)
	}
	return &u, nil
}

func (r *UserRepo) UnbindSession(sid string) error {
	_, err := r.DB.Exec(`UPDATE sessions SET user_id=NULL,last_seen=CURRENT_TIMESTAMP WHERE id=?`, sid)
	return err
}

// Ping is used by the health check.
func (r *UserRepo) Ping() error { return r.DB.Ping() }
