package repos_test

import (
	"database/sql"
	"errors"
	"strings"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"storefront/internal/domain"
	"storefront/internal/repos"
)

func openSeeded(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := repos.OpenDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, repos.SeedUsers(db, repos.DemoUsers()))
	return db
}

func TestPasswordsSeededAreHashed(t *testing.T) {
	db := openSeeded(t)
	var hashes []string
	require.NoError(t, db.Select(&hashes, `SELECT password_hash FROM users`))
	require.Len(t, hashes, len(repos.DemoUsers()))
	for _, h := range hashes {
		assert.False(t, strings.Contains(h, "Passw0rd!"), "hash contains plaintext password")
		assert.True(t, strings.HasPrefix(h, "$2"), "unexpected hash format: %s", h)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(h), []byte("Passw0rd!")))
	}

	// idempotent
	require.NoError(t, repos.SeedUsers(db, repos.DemoUsers()))
	var n int
	require.NoError(t, db.Get(&n, `SELECT COUNT(*) FROM users`))
	assert.Equal(t, len(repos.DemoUsers()), n)
}

func TestUserRepo(t *testing.T) {
	db := openSeeded(t)
	users := repos.NewUserRepo(db)

	alice, err := users.ByEmail("ALICE@storefront.test")
	require.NoError(t, err)
	assert.Equal(t, "Alice", alice.FirstName)
	assert.Equal(t, domain.RoleUser, alice.Role)
	assert.False(t, alice.Age.Valid)

	_, err = users.ByEmail("nobody@storefront.test")
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	u := &domain.User{ID: "u-new", Email: "New@Example.test", FirstName: "Nia", Hash: "$2a$x", Role: domain.RoleUser}
	require.NoError(t, users.Create(u))
	got, err := users.ByID("u-new")
	require.NoError(t, err)
	assert.Equal(t, "new@example.test", got.Email)

	dup := &domain.User{ID: "u-dup", Email: "new@example.test", FirstName: "X", Hash: "h", Role: domain.RoleUser}
	err = users.Create(dup)
	assert.True(t, errors.Is(err, domain.ErrValidation), "got %v", err)

	require.NoError(t, users.UpdateProfile("u-new", "Nia", "Park", sql.NullInt64{Int64: 31, Valid: true}))
	got, _ = users.ByID("u-new")
	assert.Equal(t, "Nia Park", got.FullName())
	assert.EqualValues(t, 31, got.Age.Int64)
	assert.True(t, errors.Is(users.UpdateProfile("ghost", "a", "b", sql.NullInt64{}), domain.ErrNotFound))
}

func TestSessions(t *testing.T) {
	db := openSeeded(t)
	users := repos.NewUserRepo(db)
	alice, err := users.ByEmail("alice@storefront.test")
	require.NoError(t, err)

	require.NoError(t, users.BindSession("sid-1", alice.ID))
	got, err := users.SessionUser("sid-1")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, got.ID)

	require.NoError(t, users.UnbindSession("sid-1"))
	_, err = users.SessionUser("sid-1")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestCommentRepo(t *testing.T) {
	db := openSeeded(t)
	users := repos.NewUserRepo(db)
	comments := repos.NewCommentRepo(db)
	alice, _ := users.ByEmail("alice@storefront.test")
	bob, _ := users.ByEmail("bob@storefront.test")

	require.NoError(t, comments.Create(&domain.Comment{ID: "c1", UserID: alice.ID, Body: "great", Rating: 5, Status: "active"}))
	require.NoError(t, comments.Create(&domain.Comment{ID: "c2", UserID: bob.ID, Body: "meh", Rating: 3, Status: "active"}))
	require.NoError(t, comments.Create(&domain.Comment{ID: "c3", UserID: bob.ID, Body: "hidden", Rating: 1, Status: "inactive"}))

	err := comments.Create(&domain.Comment{ID: "c4", UserID: bob.ID, Body: "x", Rating: 9, Status: "active"})
	assert.Error(t, err)

	active, err := comments.Active(10)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "c2", active[0].ID)
	assert.Equal(t, "Bob Lane", active[0].Author)

	mine, err := comments.ByUser(bob.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	n, err := comments.CountActive()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
