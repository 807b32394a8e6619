package services

import (
	"time"

	"storefront/internal/domain"
)

type clock func() time.Time

func (c clock) now() time.Time {
	if c == nil {
		return time.Now().UTC()
	}
	return c().UTC()
}

func actorEmail(u *domain.User) string {
	if u == nil || u.Email == "" {
		return domain.AnonymousActor
	}
	return u.Email
}
