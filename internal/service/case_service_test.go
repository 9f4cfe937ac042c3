package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Leganyst/legal-marketplace/internal/domainerr"
	"github.com/Leganyst/legal-marketplace/internal/model"
	"github.com/Leganyst/legal-marketplace/internal/repository"
)

func TestCaseService_CreateValidation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice := e.user(t, model.RoleClient, "alice")

	_, err := e.svc.Cases.Create(ctx, alice.ID, CaseInput{Title: "  ", Category: "Property Law"})
	requireCode(t, err, domainerr.CodeValidation)

	_, err = e.svc.Cases.Create(ctx, alice.ID, CaseInput{Title: "Lease", Category: ""})
	requireCode(t, err, domainerr.CodeValidation)

	_, err = e.svc.Cases.Create(ctx, alice.ID, CaseInput{Title: "Lease", Category: "Property Law", Priority: "Critical"})
	requireCode(t, err, domainerr.CodeValidation)

	_, err = e.svc.Cases.Create(ctx, uuid.New(), CaseInput{Title: "Lease", Category: "Property Law"})
	requireCode(t, err, domainerr.CodeNotFound)

	c, err := e.svc.Cases.Create(ctx, alice.ID, CaseInput{Title: "Lease", Category: "Property Law"})
	require.NoError(t, err)
	assert.Equal(t, model.CasePriorityMedium, c.Priority)
	assert.Equal(t, model.CaseStatusOpen, c.Status)
	assert.Nil(t, c.ProviderProfileID)
}

func TestCaseService_AssignPaths(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	alice := e.user(t, model.RoleClient, "alice")
	singh, profile := e.provider(t, "p_singh")
	rao, _ := e.provider(t, "p_rao")
	newcomer := e.user(t, model.RoleProvider, "no_profile")

	c, err := e.svc.Cases.Create(ctx, alice.ID, CaseInput{Title: "Property dispute", Category: "Property Law", Priority: model.CasePriorityHigh})
	require.NoError(t, err)

	// assignment never provisions a profile
	_, err = e.svc.Cases.Assign(ctx, c.ID, newcomer.ID)
	requireCode(t, err, domainerr.CodeNotFound)
	_, err = e.svc.Providers.Resolve(ctx, newcomer.ID)
	requireCode(t, err, domainerr.CodeNotFound)

	_, err = e.svc.Cases.Assign(ctx, uuid.New(), singh.ID)
	requireCode(t, err, domainerr.CodeNotFound)

	got, err := e.svc.Cases.Assign(ctx, c.ID, singh.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ProviderProfileID)
	assert.Equal(t, profile.ID, *got.ProviderProfileID)
	assert.Equal(t, model.CaseStatusInProgress, got.Status)

	_, err = e.svc.Cases.Assign(ctx, c.ID, rao.ID)
	requireCode(t, err, domainerr.CodeConflict)

	// the loser's attempt leaves the winner in place
	again, err := e.svc.Cases.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, profile.ID, *again.ProviderProfileID)

	avail, err := e.svc.Cases.ListAvailable(ctx)
	require.NoError(t, err)
	assert.Empty(t, avail)
}

func TestCaseService_WithdrawnCaseCannotBeTaken(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice := e.user(t, model.RoleClient, "alice")
	singh, _ := e.provider(t, "p_singh")

	c, err := e.svc.Cases.Create(ctx, alice.ID, CaseInput{Title: "Lease", Category: "Property Law"})
	require.NoError(t, err)
	_, err = e.svc.Cases.UpdateStatus(ctx, c.ID, model.CaseStatusClosed, &alice.ID)
	require.NoError(t, err)

	_, err = e.svc.Cases.Assign(ctx, c.ID, singh.ID)
	requireCode(t, err, domainerr.CodeConflict)

	got, err := e.svc.Cases.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CaseStatusClosed, got.Status)
	assert.Nil(t, got.ProviderProfileID)

	// открыто снова: можно брать
	_, err = e.svc.Cases.UpdateStatus(ctx, c.ID, model.CaseStatusOpen, &alice.ID)
	require.NoError(t, err)
	got, err = e.svc.Cases.Assign(ctx, c.ID, singh.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CaseStatusInProgress, got.Status)
}

func TestCaseService_ListAvailableIsRepeatable(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice := e.user(t, model.RoleClient, "alice")
	singh, _ := e.provider(t, "p_singh")

	var ids []uuid.UUID
	for _, title := range []string{"Lease", "Custody", "Deposit"} {
		e.clock.Advance(time.Minute)
		c, err := e.svc.Cases.Create(ctx, alice.ID, CaseInput{Title: title, Category: "Property Law"})
		require.NoError(t, err)
		ids = append(ids, c.ID)
	}
	_, err := e.svc.Cases.Assign(ctx, ids[1], singh.ID)
	require.NoError(t, err)

	first, err := e.svc.Cases.ListAvailable(ctx)
	require.NoError(t, err)
	second, err := e.svc.Cases.ListAvailable(ctx)
	require.NoError(t, err)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("repeated read without writes differs (-first +second):\n%s", diff)
	}

	got := make([]uuid.UUID, 0, len(first))
	for _, c := range first {
		got = append(got, c.ID)
	}
	if diff := cmp.Diff([]uuid.UUID{ids[2], ids[0]}, got); diff != "" {
		t.Fatalf("available cases mismatch (-want +got):\n%s", diff)
	}
}

func TestCaseService_UpdateStatusIsUnguarded(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice := e.user(t, model.RoleClient, "alice")

	c, err := e.svc.Cases.Create(ctx, alice.ID, CaseInput{Title: "Lease", Category: "Property Law"})
	require.NoError(t, err)

	for _, st := range []model.CaseStatus{model.CaseStatusClosed, model.CaseStatusOpen, model.CaseStatusPending} {
		e.clock.Advance(time.Minute)
		got, err := e.svc.Cases.UpdateStatus(ctx, c.ID, st, &alice.ID)
		require.NoError(t, err)
		assert.Equal(t, st, got.Status)
		assert.True(t, got.UpdatedAt.Equal(e.clock.Now()), "updatedAt must follow the write")
	}

	_, err = e.svc.Cases.UpdateStatus(ctx, c.ID, "Archived", nil)
	requireCode(t, err, domainerr.CodeValidation)

	_, err = e.svc.Cases.UpdateStatus(ctx, uuid.New(), model.CaseStatusClosed, nil)
	requireCode(t, err, domainerr.CodeNotFound)

	history, err := e.svc.Cases.History(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, history, 4)
	assert.Equal(t, model.EventTypeCaseCreated, history[0].EventType)
	assert.Equal(t, model.EventTypeCaseStatusChanged, history[3].EventType)
	assert.Equal(t, string(model.CaseStatusPending), history[3].Details)
}

func TestCaseService_ListFilters(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice := e.user(t, model.RoleClient, "alice")
	singh, _ := e.provider(t, "p_singh")

	inputs := []CaseInput{
		{Title: "Lease", Category: "Property Law", Priority: model.CasePriorityHigh},
		{Title: "Custody", Category: "Family Law", Priority: model.CasePriorityHigh},
		{Title: "Deposit", Category: "Property Law", Priority: model.CasePriorityLow},
	}
	var created []*model.Case
	for _, in := range inputs {
		e.clock.Advance(time.Minute)
		c, err := e.svc.Cases.Create(ctx, alice.ID, in)
		require.NoError(t, err)
		created = append(created, c)
	}
	_, err := e.svc.Cases.Assign(ctx, created[0].ID, singh.ID)
	require.NoError(t, err)

	got, err := e.svc.Cases.ListForClient(ctx, alice.ID, repository.CaseFilter{Category: "Property Law"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	for _, c := range got {
		assert.Equal(t, "Property Law", c.Category)
	}

	got, err = e.svc.Cases.ListForClient(ctx, alice.ID, repository.CaseFilter{Priority: model.CasePriorityHigh, Status: model.CaseStatusOpen})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Custody", got[0].Title)

	mine, err := e.svc.Cases.ListForProvider(ctx, singh.ID, repository.CaseFilter{})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "Lease", mine[0].Title)

	stranger := e.user(t, model.RoleProvider, "stranger")
	none, err := e.svc.Cases.ListForProvider(ctx, stranger.ID, repository.CaseFilter{})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestCaseService_Statistics(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice := e.user(t, model.RoleClient, "alice")
	bob := e.user(t, model.RoleClient, "bob")
	coord := e.user(t, model.RoleCoordinator, "coord")
	singh, _ := e.provider(t, "p_singh")

	a1, err := e.svc.Cases.Create(ctx, alice.ID, CaseInput{Title: "A1", Category: "Property Law"})
	require.NoError(t, err)
	_, err = e.svc.Cases.Create(ctx, alice.ID, CaseInput{Title: "A2", Category: "Family Law"})
	require.NoError(t, err)
	b1, err := e.svc.Cases.Create(ctx, bob.ID, CaseInput{Title: "B1", Category: "Labour Law"})
	require.NoError(t, err)

	_, err = e.svc.Cases.Assign(ctx, a1.ID, singh.ID)
	require.NoError(t, err)
	_, err = e.svc.Cases.Assign(ctx, b1.ID, singh.ID)
	require.NoError(t, err)
	_, err = e.svc.Cases.UpdateStatus(ctx, b1.ID, model.CaseStatusClosed, nil)
	require.NoError(t, err)

	ps, err := e.svc.Cases.Statistics(ctx, singh.ID, model.RoleProvider)
	require.NoError(t, err)
	assert.Equal(t, CaseStats{TotalCases: 2, ActiveCases: 1, Correspondents: 2, AvailableCases: 1}, ps)

	cs, err := e.svc.Cases.Statistics(ctx, alice.ID, model.RoleClient)
	require.NoError(t, err)
	assert.Equal(t, CaseStats{TotalCases: 2, ActiveCases: 2, Correspondents: 1}, cs)

	all, err := e.svc.Cases.Statistics(ctx, coord.ID, model.RoleCoordinator)
	require.NoError(t, err)
	assert.Equal(t, CaseStats{TotalCases: 3, ActiveCases: 2, Correspondents: 2, AvailableCases: 1}, all)
}

func TestCaseService_TimeoutSurfacesAsTimeout(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	_, err := e.svc.Cases.Get(ctx, uuid.New())
	requireCode(t, err, domainerr.CodeTimeout)
	assert.NotContains(t, err.Error(), "sqlite")
}
