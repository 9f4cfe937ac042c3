// Package access carries the calling identity through a request and decides
// which workflow operations each role may perform.
package access

import (
	"context"

	"github.com/google/uuid"

	"github.com/Leganyst/legal-marketplace/internal/domainerr"
	"github.com/Leganyst/legal-marketplace/internal/model"
)

// Actor: проверенный участник, от имени которого выполняется запрос.
type Actor struct {
	ID          uuid.UUID
	Role        model.Role
	DisplayName string
}

// Источник данных об идентичностях.
// В реале это справочник пользователей, в тестах мок.
type IdentityStore interface {
	LookupIdentity(ctx context.Context, id uuid.UUID) (*model.User, error)
}

// ValidateActor:
//   - проверяет идентификатор;
//   - вытаскивает идентичность из справочника;
//   - проверяет, что роль известна;
//   - возвращает Actor или Unauthorized.
func ValidateActor(ctx context.Context, store IdentityStore, id uuid.UUID) (*Actor, error) {
	if id == uuid.Nil {
		return nil, domainerr.New(domainerr.CodeUnauthorized, "invalid identity id")
	}

	u, err := store.LookupIdentity(ctx, id)
	if err != nil {
		if domainerr.Is(err, domainerr.CodeNotFound) {
			return nil, domainerr.Wrap(err, domainerr.CodeUnauthorized, "unknown identity")
		}
		return nil, err
	}
	if u == nil {
		return nil, domainerr.New(domainerr.CodeUnauthorized, "unknown identity")
	}
	if !u.Role.Valid() {
		return nil, domainerr.Newf(domainerr.CodeUnauthorized, "identity has unknown role %q", u.Role)
	}

	return &Actor{
		ID:          u.ID,
		Role:        u.Role,
		DisplayName: u.DisplayName,
	}, nil
}

type actorKey struct{}

// WithActor returns a copy of ctx carrying a.
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

// ActorFrom returns the actor stored by WithActor.
func ActorFrom(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(actorKey{}).(Actor)
	return a, ok
}

// CurrentActor is ActorFrom that fails with Unauthorized when nobody is signed in.
func CurrentActor(ctx context.Context) (Actor, error) {
	a, ok := ActorFrom(ctx)
	if !ok {
		return Actor{}, domainerr.New(domainerr.CodeUnauthorized, "no authenticated actor")
	}
	return a, nil
}
