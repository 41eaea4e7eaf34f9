package service

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"

	"shopstack/backend/internal/domain"
	"shopstack/backend/internal/store"
	"shopstack/backend/internal/xid"
)

func (s *Service) CreateShop(ctx context.Context, req domain.ShopCreateRequest) (domain.Shop, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.Shop{}, ErrUnauthenticated
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Shop{}, invalid("shop name is required")
	}
	shop := domain.Shop{
		ID:        xid.New("shop"),
		OwnerID:   actor.UserID,
		Name:      name,
		Address:   strings.TrimSpace(req.Address),
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.CreateShop(ctx, shop); err != nil {
		return domain.Shop{}, err
	}

	log.Info().Str("shop_id", shop.ID).Str("owner", actor.UserID).Msg("shop created")
	return shop, nil
}

// ListShops returns the shops the actor owns followed by the shop the actor
// is a member of, if any.
func (s *Service) ListShops(ctx context.Context) ([]domain.Shop, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return nil, ErrUnauthenticated
	}

	shops, err := s.repo.ListShopsByOwner(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}

	profile, err := s.repo.GetProfile(ctx, actor.UserID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	if err == nil && profile.ShopID != "" {
		owned := false
		for _, shop := range shops {
			if shop.ID == profile.ShopID {
				owned = true
				break
			}
		}
		if !owned {
			member, err := s.repo.GetShop(ctx, profile.ShopID)
			if err == nil {
				shops = append(shops, member)
			} else if !errors.Is(err, store.ErrNotFound) {
				return nil, err
			}
		}
	}
	return shops, nil
}

func (s *Service) GetShop(ctx context.Context, shopID string) (domain.Shop, error) {
	shop, _, err := s.requireShop(ctx, shopID)
	return shop, err
}

func (s *Service) UpdateShop(ctx context.Context, shopID string, req domain.ShopUpdateRequest) (domain.Shop, error) {
	shop, _, err := s.requireShopAdmin(ctx, shopID)
	if err != nil {
		return domain.Shop{}, err
	}

	if req.Name != nil {
		shop.Name = strings.TrimSpace(*req.Name)
	}
	if req.Address != nil {
		shop.Address = strings.TrimSpace(*req.Address)
	}
	if shop.Name == "" {
		return domain.Shop{}, invalid("shop name is required")
	}
	if err := s.repo.UpdateShop(ctx, shop); err != nil {
		return domain.Shop{}, err
	}
	return shop, nil
}

// DeleteShop removes a shop and everything recorded in it. Only the owner
// may do this.
func (s *Service) DeleteShop(ctx context.Context, shopID string) error {
	shop, actor, level, err := s.shopAccess(ctx, shopID)
	if err != nil {
		return err
	}
	if level != accessOwner {
		return ErrPermissionDenied
	}

	if err := s.repo.DeleteShop(ctx, shop.ID); err != nil {
		return err
	}
	s.dashboard.Invalidate(ctx, shop.ID)
	if s.logos != nil {
		if err := s.logos.Delete(ctx, shop.ID); err != nil {
			log.Warn().Err(err).Str("shop_id", shop.ID).Msg("failed to remove logo of deleted shop")
		}
	}

	log.Info().Str("shop_id", shop.ID).Str("actor", actor.UserID).Msg("shop deleted")
	return nil
}

// UploadLogo stores data as the shop logo, replacing any previous one.
func (s *Service) UploadLogo(ctx context.Context, shopID string, data []byte) (domain.Shop, error) {
	shop, _, err := s.requireShopAdmin(ctx, shopID)
	if err != nil {
		return domain.Shop{}, err
	}
	if s.logos == nil {
		return domain.Shop{}, invalid("logo uploads are not configured")
	}

	url, err := s.logos.Put(ctx, shop.ID, data)
	if err != nil {
		return domain.Shop{}, err
	}
	shop.LogoURL = url
	if err := s.repo.UpdateShop(ctx, shop); err != nil {
		return domain.Shop{}, err
	}
	return shop, nil
}
