package services

import (
	"context"

	"github.com/google/uuid"

	"storefront/internal/domain"
	"storefront/internal/repos"
	"storefront/internal/validate"
)

const DefaultCommentLimit = 20

type CommentService struct {
	Comments *repos.CommentRepo
	Audit    *AuditService
}

func NewCommentService(comments *repos.CommentRepo, audit *AuditService) *CommentService {
	return &CommentService{Comments: comments, Audit: audit}
}

func (s *CommentService) Post(ctx context.Context, u *domain.User, body string, rating int) (*domain.Comment, error) {
	body, ok := validate.Text(body, 1000)
	if !ok {
		return nil, domain.Invalid("body", "is required (max 1000 characters)")
	}
	if !validate.Rating(rating) {
		return nil, domain.Invalid("rating", "must be between 1 and 5")
	}
	c := &domain.Comment{
		ID:     uuid.NewString(),
		UserID: u.ID,
		Author: u.FullName(),
		Body:   body,
		Rating: rating,
		Status: "active",
	}
	if err := s.Comments.Create(c); err != nil {
		return nil, err
	}
	s.Audit.Record(ctx, domain.ActionCreateComment, u.Email, "Comment posted",
		map[string]any{"comment_id": c.ID, "rating": rating})
	return c, nil
}

func (s *CommentService) Active(limit int) ([]domain.Comment, error) {
	if limit <= 0 || limit > 100 {
		limit = DefaultCommentLimit
	}
	return s.Comments.Active(limit)
}

func (s *CommentService) ByUser(u *domain.User) ([]domain.Comment, error) {
	return s.Comments.ByUser(u.ID)
}

func (s *CommentService) CountActive() (int, error) { return s.Comments.CountActive() }
