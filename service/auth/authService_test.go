package authsvc

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"booklibrary/model"
	userrepo "booklibrary/repository/user"
	"booklibrary/util/hash"
	jwtutil "booklibrary/util/jwt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

type mockRepo struct {
	createFn  func(ctx context.Context, u *model.User) error
	byEmailFn func(ctx context.Context, email string) (*model.User, error)
}

var _ userrepo.Repo = (*mockRepo)(nil)

func (m *mockRepo) Create(ctx context.Context, u *model.User) error {
	if m.createFn == nil {
		return nil
	}
	return m.createFn(ctx, u)
}

func (m *mockRepo) ByEmail(ctx context.Context, email string) (*model.User, error) {
	if m.byEmailFn == nil {
		return nil, sql.ErrNoRows
	}
	return m.byEmailFn(ctx, email)
}

func (m *mockRepo) ByID(ctx context.Context, id int64) (*model.User, error) {
	return nil, sql.ErrNoRows
}

func mustHash(t *testing.T, plain string) string {
	t.Helper()

	h, err := hash.HashPassword(plain)
	require.NoError(t, err)
	return h
}

const secret = "test-secret"

// --- tests ---

func TestRegister_NormalizesEmailAndIssuesToken(t *testing.T) {
	ctx := context.Background()
	var stored *model.User
	m := &mockRepo{createFn: func(ctx context.Context, u *model.User) error {
		u.ID = 1
		stored = u
		return nil
	}}
	svc := New(m, secret)

	u, tok, err := svc.Register(ctx, model.RegisterReq{
		FirstName: "Paul",
		LastName:  "Atreides",
		Email:     "  Paul@Example.COM ",
		Password:  "secret1",
	})
	require.NoError(t, err)
	require.NotNil(t, u)
	require.NotEmpty(t, tok)
	require.Equal(t, "paul@example.com", stored.Email)
	require.True(t, stored.NotificationsEnabled, "new users must default to notifications on")
	require.True(t, hash.Check(stored.PasswordHash, "secret1"))

	claims, err := jwtutil.ParseAuth("Bearer "+tok, secret)
	require.NoError(t, err)
	sub, ok := claims["sub"].(float64)
	require.True(t, ok)
	require.Equal(t, u.ID, int64(sub))
	require.Equal(t, "user", claims["role"])
}

func TestRegister_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	m := &mockRepo{createFn: func(ctx context.Context, u *model.User) error {
		return &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "users_email_key"}
	}}
	svc := New(m, secret)

	_, _, err := svc.Register(ctx, model.RegisterReq{
		FirstName: "A", LastName: "B", Email: "a@b.c", Password: "secret1",
	})
	require.ErrorIs(t, err, ErrEmailTaken)
}

func TestLogin_IssuesAdminRoleForStaff(t *testing.T) {
	ctx := context.Background()
	hashed := mustHash(t, "secret1")
	m := &mockRepo{byEmailFn: func(ctx context.Context, email string) (*model.User, error) {
		return &model.User{ID: 9, Email: email, PasswordHash: hashed, IsStaff: true}, nil
	}}
	svc := New(m, secret)

	_, tok, err := svc.Login(ctx, model.LoginReq{Email: "a@b.c", Password: "secret1"})
	require.NoError(t, err)

	claims, err := jwtutil.ParseAuth("Bearer "+tok, secret)
	require.NoError(t, err)
	require.Equal(t, "admin", claims["role"])
}

func TestLogin_UnknownEmail(t *testing.T) {
	ctx := context.Background()
	svc := New(&mockRepo{}, secret)

	_, _, err := svc.Login(ctx, model.LoginReq{Email: "unknown@b.c", Password: "whatever"})
	require.ErrorIs(t, err, ErrInvalidCreds)
}

func TestLogin_WrongPassword(t *testing.T) {
	ctx := context.Background()
	hashed := mustHash(t, "right")
	m := &mockRepo{byEmailFn: func(ctx context.Context, email string) (*model.User, error) {
		return &model.User{ID: 1, Email: email, PasswordHash: hashed}, nil
	}}
	svc := New(m, secret)

	_, _, err := svc.Login(ctx, model.LoginReq{Email: "known@b.c", Password: "wrong"})
	require.ErrorIs(t, err, ErrInvalidCreds)
}

func TestMapDuplicateErr_NonPgError(t *testing.T) {
	require.NoError(t, mapDuplicateErr(errors.New("plain")))
}
