package auth

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"devmatch/internal/errs"
	"devmatch/internal/model"
	"devmatch/pkg/util"
)

type fakeUsers struct {
	byEmail map[string]*model.User
	nextID  int
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byEmail: map[string]*model.User{}, nextID: 1}
}

func (f *fakeUsers) CreateUser(_ context.Context, u *model.User) error {
	u.ID = f.nextID
	f.nextID++
	u.CreatedAt = time.Now()
	f.byEmail[u.Email] = u
	return nil
}

func (f *fakeUsers) FindByEmail(_ context.Context, email string) (*model.User, error) {
	u, ok := f.byEmail[email]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return u, nil
}

func (f *fakeUsers) FindByID(_ context.Context, id int) (*model.User, error) {
	for _, u := range f.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, pgx.ErrNoRows
}

type fakeDenylist struct {
	revoked map[string]bool
}

func newFakeDenylist() *fakeDenylist {
	return &fakeDenylist{revoked: map[string]bool{}}
}

func (f *fakeDenylist) Revoke(_ context.Context, token string, _ time.Time) error {
	f.revoked[token] = true
	return nil
}

func (f *fakeDenylist) IsRevoked(_ context.Context, token string) bool {
	return f.revoked[token]
}

const testSecret = "test-secret"

func newTestService() (*Service, *fakeUsers, *fakeDenylist) {
	users := newFakeUsers()
	denylist := newFakeDenylist()
	return NewService(users, denylist, testSecret, zap.NewNop()), users, denylist
}

func validRegister() RegisterInput {
	return RegisterInput{
		Email:    "dev@example.com",
		Password: "secret123",
		Name:     "Dana",
		Role:     model.RoleDeveloper,
	}
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _, _ := newTestService()

	u, token, err := svc.Register(context.Background(), validRegister())
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.NotEqual(t, "secret123", u.PasswordHash)

	claims, err := util.ParseJWT(token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UserID)
	assert.Equal(t, model.RoleDeveloper, claims.Role)

	logged, _, err := svc.Login(context.Background(), LoginInput{
		Email:    "dev@example.com",
		Password: "secret123",
	})
	require.NoError(t, err)
	assert.Equal(t, u.ID, logged.ID)
}

func TestRegisterValidation(t *testing.T) {
	svc, _, _ := newTestService()

	_, _, err := svc.Register(context.Background(), RegisterInput{
		Email:    "not-an-email",
		Password: "123",
		Name:     "D",
		Role:     "admin",
	})
	ve, ok := errs.AsValidation(err)
	require.True(t, ok)
	assert.Len(t, ve.Fields, 4)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _, _ := newTestService()

	_, _, err := svc.Register(context.Background(), validRegister())
	require.NoError(t, err)

	_, _, err = svc.Register(context.Background(), validRegister())
	_, ok := errs.AsValidation(err)
	assert.True(t, ok)
}

func TestRegisterNormalizesEmail(t *testing.T) {
	svc, users, _ := newTestService()

	in := validRegister()
	in.Email = "  Dev@Example.COM "
	_, _, err := svc.Register(context.Background(), in)
	require.NoError(t, err)

	_, ok := users.byEmail["dev@example.com"]
	assert.True(t, ok)
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _, _ := newTestService()

	_, _, err := svc.Register(context.Background(), validRegister())
	require.NoError(t, err)

	_, _, err = svc.Login(context.Background(), LoginInput{
		Email:    "dev@example.com",
		Password: "wrong",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = svc.Login(context.Background(), LoginInput{
		Email:    "nobody@example.com",
		Password: "secret123",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogoutRevokesToken(t *testing.T) {
	svc, _, denylist := newTestService()

	_, token, err := svc.Register(context.Background(), validRegister())
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), token))
	assert.True(t, denylist.IsRevoked(context.Background(), token))
}

func TestLogoutGarbageTokenIsNoop(t *testing.T) {
	svc, _, denylist := newTestService()

	require.NoError(t, svc.Logout(context.Background(), "not-a-jwt"))
	assert.Empty(t, denylist.revoked)
}
