package service

import (
	"context"
	"fmt"
	"strings"

	"shopstack/backend/internal/domain"
	"shopstack/backend/internal/store"
)

func (s *Service) GetMyProfile(ctx context.Context) (domain.Profile, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.Profile{}, ErrUnauthenticated
	}
	return s.repo.GetProfile(ctx, actor.UserID)
}

func (s *Service) UpdateMyProfile(ctx context.Context, req domain.ProfileUpdateRequest) (domain.Profile, error) {
	profile, err := s.GetMyProfile(ctx)
	if err != nil {
		return domain.Profile{}, err
	}
	fullName := strings.TrimSpace(req.FullName)
	if fullName == "" {
		return domain.Profile{}, invalid("full name is required")
	}
	profile.FullName = fullName
	if err := s.repo.UpdateProfile(ctx, profile); err != nil {
		return domain.Profile{}, err
	}
	return profile, nil
}

func (s *Service) ListMembers(ctx context.Context, shopID string) ([]domain.Profile, error) {
	shop, _, err := s.requireShop(ctx, shopID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListProfilesByShop(ctx, shop.ID)
}

// AddMember attaches the account registered under email to the shop as a
// regular member. An account belongs to at most one shop.
func (s *Service) AddMember(ctx context.Context, shopID string, email string) (domain.Profile, error) {
	shop, _, err := s.requireShopAdmin(ctx, shopID)
	if err != nil {
		return domain.Profile{}, err
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return domain.Profile{}, invalid("email is required")
	}

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return domain.Profile{}, err
	}
	if user.ID == shop.OwnerID {
		return domain.Profile{}, invalid("the owner already manages this shop")
	}
	profile, err := s.repo.GetProfile(ctx, user.ID)
	if err != nil {
		return domain.Profile{}, err
	}
	if profile.ShopID == shop.ID {
		return profile, nil
	}
	if profile.ShopID != "" {
		return domain.Profile{}, fmt.Errorf("%w: account is a member of another shop", store.ErrDuplicate)
	}

	profile.ShopID = shop.ID
	profile.IsAdmin = false
	if err := s.repo.UpdateProfile(ctx, profile); err != nil {
		return domain.Profile{}, err
	}
	return profile, nil
}

func (s *Service) SetAdmin(ctx context.Context, shopID string, userID string, isAdmin bool) (domain.Profile, error) {
	shop, _, err := s.requireShopAdmin(ctx, shopID)
	if err != nil {
		return domain.Profile{}, err
	}
	profile, err := s.memberOf(ctx, shop, userID)
	if err != nil {
		return domain.Profile{}, err
	}

	profile.IsAdmin = isAdmin
	if err := s.repo.UpdateProfile(ctx, profile); err != nil {
		return domain.Profile{}, err
	}
	return profile, nil
}

func (s *Service) RemoveMember(ctx context.Context, shopID string, userID string) error {
	shop, _, err := s.requireShopAdmin(ctx, shopID)
	if err != nil {
		return err
	}
	profile, err := s.memberOf(ctx, shop, userID)
	if err != nil {
		return err
	}

	profile.ShopID = ""
	profile.IsAdmin = false
	return s.repo.UpdateProfile(ctx, profile)
}

func (s *Service) memberOf(ctx context.Context, shop domain.Shop, userID string) (domain.Profile, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.Profile{}, invalid("user is required")
	}
	if userID == shop.OwnerID {
		return domain.Profile{}, invalid("the shop owner cannot be changed")
	}
	profile, err := s.repo.GetProfile(ctx, userID)
	if err != nil {
		return domain.Profile{}, err
	}
	if profile.ShopID != shop.ID {
		return domain.Profile{}, fmt.Errorf("%w: member", store.ErrNotFound)
	}
	return profile, nil
}
