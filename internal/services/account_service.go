package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"storefront/internal/docstore"
	"storefront/internal/domain"
	"storefront/internal/repos"
	"storefront/internal/validate"
)

type AccountService struct {
	Users   *repos.UserRepo
	Avatars docstore.AvatarStore
	Audit   *AuditService
	Now     func() time.Time
}

func NewAccountService(users *repos.UserRepo, avatars docstore.AvatarStore, audit *AuditService) *AccountService {
	return &AccountService{Users: users, Avatars: avatars, Audit: audit}
}

type ProfileInput struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Age       *int   `json:"age"`
}

func (s *AccountService) UpdateProfile(ctx context.Context, u *domain.User, in ProfileInput) (*domain.User, error) {
	first, ok := validate.Name(in.FirstName)
	if !ok {
		return nil, domain.Invalid("first_name", "is required (max 50 characters)")
	}
	last, ok := validate.OptionalName(in.LastName)
	if !ok {
		return nil, domain.Invalid("last_name", "must be at most 50 characters")
	}
	var age sql.NullInt64
	if in.Age != nil {
		if !validate.Age(*in.Age) {
			return nil, domain.Invalid("age", "must be between 1 and 150")
		}
		age = sql.NullInt64{Int64: int64(*in.Age), Valid: true}
	}
	if err := s.Users.UpdateProfile(u.ID, first, last, age); err != nil {
		return nil, err
	}
	s.Audit.Record(ctx, domain.ActionUpdateProfile, u.Email, "Profile updated", map[string]any{"user_id": u.ID})
	return s.Users.ByID(u.ID)
}

// SetAvatar stores data inline after sniffing its content type.
func (s *AccountService) SetAvatar(ctx context.Context, u *domain.User, data []byte) (*domain.Avatar, error) {
	ct, ok := validate.Image(data)
	if !ok {
		return nil, domain.Invalid("avatar", "must be a jpeg, png, gif or webp of at most 1 MiB")
	}
	a := &domain.Avatar{
		UserID:    u.ID,
		Email:     u.Email,
		Image:     domain.EmbeddedImage(data, ct),
		UpdatedAt: clock(s.Now).now(),
	}
	if err := s.Avatars.Put(ctx, a); err != nil {
		return nil, err
	}
	s.Audit.Record(ctx, domain.ActionUpdateAvatar, u.Email, "Avatar updated",
		map[string]any{"content_type": ct, "bytes": len(data)})
	return a, nil
}

// Avatar returns the stored picture, or a zero ImageRef when there is none.
func (s *AccountService) Avatar(ctx context.Context, u *domain.User) (domain.ImageRef, error) {
	a, err := s.Avatars.Get(ctx, u.ID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.ImageRef{}, nil
	}
	if err != nil {
		return domain.ImageRef{}, err
	}
	return a.Image, nil
}

func (s *AccountService) RemoveAvatar(ctx context.Context, u *domain.User) error {
	if err := s.Avatars.Clear(ctx, u.ID); err != nil {
		return err
	}
	s.Audit.Record(ctx, domain.ActionRemoveAvatar, u.Email, "Avatar removed", nil)
	return nil
}
