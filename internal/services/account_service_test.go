package services_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/domain"
	"storefront/internal/repos"
	"storefront/internal/services"
)

func openUsers(t *testing.T) *repos.UserRepo {
	t.Helper()
	db, err := repos.OpenDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, repos.SeedUsers(db, repos.DemoUsers()))
	return repos.NewUserRepo(db)
}

func TestRegisterLoginLogout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	users := openUsers(t)
	auth := services.NewAuthService(users, f.audit, "test-secret", time.Hour)

	_, err := auth.Register(ctx, services.RegisterInput{Email: "bad", FirstName: "X", Password: "Passw0rd!"})
	assert.True(t, errors.Is(err, domain.ErrValidation))
	_, err = auth.Register(ctx, services.RegisterInput{Email: "x@storefront.test", FirstName: "X", Password: "short"})
	assert.True(t, errors.Is(err, domain.ErrValidation))
	_, err = auth.Register(ctx, services.RegisterInput{Email: "alice@storefront.test", FirstName: "A", Password: "Passw0rd!"})
	assert.True(t, errors.Is(err, domain.ErrValidation), "duplicate email")

	u, err := auth.Register(ctx, services.RegisterInput{Email: "Carol@Storefront.test", FirstName: "Carol", LastName: "Diaz", Password: "S3cure!pw"})
	require.NoError(t, err)
	assert.Equal(t, "carol@storefront.test", u.Email)
	assert.Equal(t, domain.RoleUser, u.Role)

	_, _, err = auth.Login(ctx, "sid-1", "carol@storefront.test", "wrong")
	assert.ErrorIs(t, err, services.ErrBadCreds)
	_, _, err = auth.Login(ctx, "sid-1", "nobody@storefront.test", "S3cure!pw")
	assert.ErrorIs(t, err, services.ErrBadCreds)

	got, tok, err := auth.Login(ctx, "sid-1", "carol@storefront.test", "S3cure!pw")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.NotEmpty(t, tok)

	cur, err := auth.CurrentUser("sid-1")
	require.NoError(t, err)
	assert.Equal(t, u.ID, cur.ID)
	fromTok, err := auth.UserFromToken(tok)
	require.NoError(t, err)
	assert.Equal(t, u.ID, fromTok.ID)

	require.NoError(t, auth.Logout(ctx, "sid-1", cur))
	_, err = auth.CurrentUser("sid-1")
	assert.Error(t, err)

	assert.EqualValues(t, 1, f.auditCount(t, domain.ActionRegister))
	assert.EqualValues(t, 1, f.auditCount(t, domain.ActionLogin))
	assert.EqualValues(t, 1, f.auditCount(t, domain.ActionLogout))
}

func TestTokens(t *testing.T) {
	f := newFixture(t)
	users := openUsers(t)
	auth := services.NewAuthService(users, f.audit, "test-secret", time.Hour)
	admin, err := users.ByEmail("admin@storefront.test")
	require.NoError(t, err)

	tok, err := auth.IssueToken(admin)
	require.NoError(t, err)
	u, err := auth.UserFromToken(tok)
	require.NoError(t, err)
	assert.True(t, u.IsStaff())

	other := services.NewAuthService(users, f.audit, "other-secret", time.Hour)
	_, err = other.UserFromToken(tok)
	assert.ErrorIs(t, err, services.ErrBadToken)

	_, err = auth.UserFromToken("not-a-token")
	assert.ErrorIs(t, err, services.ErrBadToken)

	auth.Now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = auth.UserFromToken(tok)
	assert.ErrorIs(t, err, services.ErrBadToken, "expired")

	ghost := &domain.User{ID: "gone", Role: domain.RoleAdmin}
	tok, err = auth.IssueToken(ghost)
	require.NoError(t, err)
	_, err = auth.UserFromToken(tok)
	assert.ErrorIs(t, err, services.ErrBadToken)
}

func TestProfileAndAvatar(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	users := openUsers(t)
	acct := services.NewAccountService(users, f.store.Avatars, f.audit)
	u, err := users.ByEmail("alice@storefront.test")
	require.NoError(t, err)

	age := 200
	_, err = acct.UpdateProfile(ctx, u, services.ProfileInput{FirstName: "Al", Age: &age})
	assert.True(t, errors.Is(err, domain.ErrValidation))
	age = 31
	got, err := acct.UpdateProfile(ctx, u, services.ProfileInput{FirstName: "Ali", LastName: "M", Age: &age})
	require.NoError(t, err)
	assert.Equal(t, "Ali", got.FirstName)
	assert.EqualValues(t, 31, got.Age.Int64)

	img, err := acct.Avatar(ctx, u)
	require.NoError(t, err)
	assert.True(t, img.IsZero())

	_, err = acct.SetAvatar(ctx, u, []byte("not an image"))
	assert.True(t, errors.Is(err, domain.ErrValidation))
	_, err = acct.SetAvatar(ctx, u, []byte(strings.Repeat("x", 2<<20)))
	assert.True(t, errors.Is(err, domain.ErrValidation))

	_, err = acct.SetAvatar(ctx, u, pngHeader)
	require.NoError(t, err)
	img, err = acct.Avatar(ctx, u)
	require.NoError(t, err)
	assert.Equal(t, domain.ImageEmbedded, img.Kind)
	assert.True(t, strings.HasPrefix(img.DisplayURL(), "data:image/png;base64,"))

	require.NoError(t, acct.RemoveAvatar(ctx, u))
	img, err = acct.Avatar(ctx, u)
	require.NoError(t, err)
	assert.True(t, img.IsZero())

	assert.EqualValues(t, 1, f.auditCount(t, domain.ActionUpdateProfile))
	assert.EqualValues(t, 1, f.auditCount(t, domain.ActionUpdateAvatar))
	assert.EqualValues(t, 1, f.auditCount(t, domain.ActionRemoveAvatar))
}

func TestComments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	db, err := repos.OpenDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, repos.SeedUsers(db, repos.DemoUsers()))
	u, err := repos.NewUserRepo(db).ByEmail("bob@storefront.test")
	require.NoError(t, err)
	cs := services.NewCommentService(repos.NewCommentRepo(db), f.audit)

	_, err = cs.Post(ctx, u, "great shop", 6)
	assert.True(t, errors.Is(err, domain.ErrValidation))
	_, err = cs.Post(ctx, u, "   ", 4)
	assert.True(t, errors.Is(err, domain.ErrValidation))

	c, err := cs.Post(ctx, u, "  great shop ", 5)
	require.NoError(t, err)
	assert.Equal(t, "great shop", c.Body)

	list, err := cs.Active(0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Bob Lane", list[0].Author)
	mine, err := cs.ByUser(u)
	require.NoError(t, err)
	assert.Len(t, mine, 1)
	n, err := cs.CountActive()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.EqualValues(t, 1, f.auditCount(t, domain.ActionCreateComment))
}

func TestPurgeEmptyCarts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pid := f.product(t, "Game A", 10, 5)
	_, err := f.cart.View(ctx, alice.ID)
	require.NoError(t, err)
	_, err = f.cart.AddItem(ctx, bob, pid, 1)
	require.NoError(t, err)

	m := services.NewMaintenanceService(f.store.Carts, f.audit)
	n, err := m.PurgeEmptyCarts(ctx, staff)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	v, err := f.cart.View(ctx, bob.ID)
	require.NoError(t, err)
	assert.Len(t, v.Cart.Lines, 1)
	assert.EqualValues(t, 1, f.auditCount(t, domain.ActionPurgeCarts))
}

func TestAuditOverview(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pid := f.product(t, "Game A", 10, 5)
	for i := 0; i < 3; i++ {
		_, err := f.cart.AddItem(ctx, alice, pid, 1)
		require.NoError(t, err)
	}
	_, err := f.cart.Clear(ctx, bob)
	require.NoError(t, err)

	ov, err := f.audit.Overview(ctx, domain.AuditFilter{Actor: "ALICE"}, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 3, ov.Total)
	assert.Len(t, ov.Records, 3)
	require.NotEmpty(t, ov.TopActions)
	assert.Equal(t, domain.ActionAddToCart, ov.TopActions[0].Action)
	assert.Equal(t, []domain.Action{domain.ActionAddToCart, domain.ActionClearCart}, ov.Actions)

	var nilAudit *services.AuditService
	nilAudit.Record(ctx, domain.ActionLogin, "", "", nil)
}
