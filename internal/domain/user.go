package domain

import (
	"database/sql"
	"strings"
)

const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

type User struct {
	ID        string        `db:"id" json:"id"`
	Email     string        `db:"email" json:"email"`
	FirstName string        `db:"first_name" json:"first_name"`
	LastName  string        `db:"last_name" json:"last_name"`
	Hash      string        `db:"password_hash" json:"-"`
	Role      string        `db:"role" json:"role"`
	Age       sql.NullInt64 `db:"age" json:"-"`
	CreatedAt string        `db:"created_at" json:"created_at"`
}

// IsStaff reports whether the user may use the admin surface.
func (u *User) IsStaff() bool { return u != nil && u.Role == RoleAdmin }

func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

type Comment struct {
	ID        string `db:"id" json:"id"`
	UserID    string `db:"user_id" json:"user_id"`
	Author    string `db:"author" json:"author"`
	Body      string `db:"body" json:"body"`
	Rating    int    `db:"rating" json:"rating"`
	Status    string `db:"status" json:"status"` // active | inactive
	CreatedAt string `db:"created_at" json:"created_at"`
}
