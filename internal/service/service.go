package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"shopstack/backend/internal/dashboard"
	"shopstack/backend/internal/domain"
	"shopstack/backend/internal/store"
)

var (
	ErrUnauthenticated  = errors.New("authentication required")
	ErrPermissionDenied = errors.New("admin role required")
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok && actor.UserID != ""
}

// LogoStore persists shop logos and returns their public URL.
type LogoStore interface {
	Put(ctx context.Context, key string, data []byte) (string, error)
	Delete(ctx context.Context, key string) error
}

type Service struct {
	repo      store.Repository
	dashboard *dashboard.Aggregator
	logos     LogoStore
	loc       *time.Location
	now       func() time.Time
}

func New(repo store.Repository, aggregator *dashboard.Aggregator, logos LogoStore, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	if aggregator == nil {
		aggregator = dashboard.NewAggregator(repo, nil, 0, loc)
	}

	return &Service{
		repo:      repo,
		dashboard: aggregator,
		logos:     logos,
		loc:       loc,
		now:       time.Now,
	}
}

type accessLevel int

const (
	accessMember accessLevel = iota + 1
	accessAdmin
	accessOwner
)

// shopAccess resolves what the actor may do in shopID. Shops the actor has
// no relation to are reported as not found.
func (s *Service) shopAccess(ctx context.Context, shopID string) (domain.Shop, domain.Actor, accessLevel, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.Shop{}, domain.Actor{}, 0, ErrUnauthenticated
	}
	shopID = strings.TrimSpace(shopID)
	if shopID == "" {
		return domain.Shop{}, actor, 0, fmt.Errorf("%w: shop is required", store.ErrInvalidInput)
	}

	shop, err := s.repo.GetShop(ctx, shopID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Shop{}, actor, 0, fmt.Errorf("%w: shop", store.ErrNotFound)
		}
		return domain.Shop{}, actor, 0, err
	}
	if shop.OwnerID == actor.UserID {
		return shop, actor, accessOwner, nil
	}

	profile, err := s.repo.GetProfile(ctx, actor.UserID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return domain.Shop{}, actor, 0, err
	}
	if err == nil && profile.ShopID == shop.ID {
		if profile.IsAdmin {
			return shop, actor, accessAdmin, nil
		}
		return shop, actor, accessMember, nil
	}
	return domain.Shop{}, actor, 0, fmt.Errorf("%w: shop", store.ErrNotFound)
}

func (s *Service) requireShop(ctx context.Context, shopID string) (domain.Shop, domain.Actor, error) {
	shop, actor, _, err := s.shopAccess(ctx, shopID)
	return shop, actor, err
}

func (s *Service) requireShopAdmin(ctx context.Context, shopID string) (domain.Shop, domain.Actor, error) {
	shop, actor, level, err := s.shopAccess(ctx, shopID)
	if err != nil {
		return domain.Shop{}, actor, err
	}
	if level < accessAdmin {
		return domain.Shop{}, actor, ErrPermissionDenied
	}
	return shop, actor, nil
}

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", store.ErrInvalidInput, msg)
}
