package access

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/Leganyst/legal-marketplace/internal/domainerr"
	"github.com/Leganyst/legal-marketplace/internal/model"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// mockIdentityStore: простой мок справочника для тестов.
type mockIdentityStore struct {
	users map[uuid.UUID]*model.User
	err   error
}

func (m *mockIdentityStore) LookupIdentity(ctx context.Context, id uuid.UUID) (*model.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	u, ok := m.users[id]
	if !ok {
		return nil, domainerr.New(domainerr.CodeNotFound, "identity not found")
	}
	return u, nil
}

func TestValidateActor(t *testing.T) {
	ctx := context.Background()
	good := &model.User{ID: uuid.New(), Role: model.RoleProvider, DisplayName: "P. Singh"}
	odd := &model.User{ID: uuid.New(), Role: "admin"}
	store := &mockIdentityStore{users: map[uuid.UUID]*model.User{good.ID: good, odd.ID: odd}}

	a, err := ValidateActor(ctx, store, good.ID)
	require.NoError(t, err)
	assert.Equal(t, Actor{ID: good.ID, Role: model.RoleProvider, DisplayName: "P. Singh"}, *a)

	_, err = ValidateActor(ctx, store, uuid.Nil)
	assert.True(t, domainerr.Is(err, domainerr.CodeUnauthorized))

	_, err = ValidateActor(ctx, store, uuid.New())
	assert.True(t, domainerr.Is(err, domainerr.CodeUnauthorized))

	_, err = ValidateActor(ctx, store, odd.ID)
	assert.True(t, domainerr.Is(err, domainerr.CodeUnauthorized))
}

func TestValidateActor_StoreFailurePassesThrough(t *testing.T) {
	boom := domainerr.Wrap(errors.New("conn reset"), domainerr.CodeTimeout, "store timeout")
	_, err := ValidateActor(context.Background(), &mockIdentityStore{err: boom}, uuid.New())
	assert.True(t, domainerr.Is(err, domainerr.CodeTimeout))
}

func TestActorContext(t *testing.T) {
	ctx := context.Background()

	_, ok := ActorFrom(ctx)
	assert.False(t, ok)
	_, err := CurrentActor(ctx)
	assert.True(t, domainerr.Is(err, domainerr.CodeUnauthorized))

	want := Actor{ID: uuid.New(), Role: model.RoleClient}
	got, err := CurrentActor(WithActor(ctx, want))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestCapabilities(t *testing.T) {
	cases := []struct {
		role model.Role
		cap  Capability
		want bool
	}{
		{model.RoleClient, CapCreateCase, true},
		{model.RoleProvider, CapCreateCase, false},
		{model.RoleProvider, CapTakeCase, true},
		{model.RoleClient, CapTakeCase, false},
		{model.RoleCoordinator, CapTakeCase, false},
		{model.RoleClient, CapBookConsultation, true},
		{model.RoleProvider, CapBookConsultation, true},
		{model.RoleCoordinator, CapVerifyProvider, true},
		{model.RoleProvider, CapVerifyProvider, false},
		{model.RoleClient, Capability("unknown"), false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Allowed(tc.role, tc.cap), "%s/%s", tc.role, tc.cap)
	}
}

func TestRequire(t *testing.T) {
	ctx := WithActor(context.Background(), Actor{ID: uuid.New(), Role: model.RoleClient})

	_, err := Require(ctx, CapCreateCase)
	assert.NoError(t, err)

	_, err = Require(ctx, CapTakeCase)
	assert.True(t, domainerr.Is(err, domainerr.CodeForbidden))

	_, err = Require(context.Background(), CapCreateCase)
	assert.True(t, domainerr.Is(err, domainerr.CodeUnauthorized))
}
