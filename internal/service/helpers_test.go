package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"

	"github.com/Leganyst/legal-marketplace/internal/access"
	"github.com/Leganyst/legal-marketplace/internal/domainerr"
	"github.com/Leganyst/legal-marketplace/internal/model"
	"github.com/Leganyst/legal-marketplace/internal/repository"
	"github.com/Leganyst/legal-marketplace/internal/testutil"
)

type env struct {
	db    *gorm.DB
	svc   *Services
	clock *testutil.Clock
}

func newEnv(t *testing.T) *env {
	t.Helper()
	gdb := testutil.NewDB(t)
	clock := testutil.NewClock(time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC))
	svc := New(repository.NewStore(gdb), Options{
		Logger: zaptest.NewLogger(t),
		Now:    clock.Now,
	})
	return &env{db: gdb, svc: svc, clock: clock}
}

func (e *env) user(t *testing.T, role model.Role, name string) model.User {
	t.Helper()
	return testutil.SeedUser(t, e.db, role, name)
}

func (e *env) provider(t *testing.T, name string) (model.User, model.ProviderProfile) {
	t.Helper()
	u := e.user(t, model.RoleProvider, name)
	return u, testutil.SeedProfile(t, e.db, u)
}

func as(u model.User) context.Context {
	return access.WithActor(context.Background(), access.Actor{ID: u.ID, Role: u.Role, DisplayName: u.DisplayName})
}

func requireCode(t *testing.T, err error, code domainerr.Code) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, code, domainerr.CodeOf(err), "error: %v", err)
}
