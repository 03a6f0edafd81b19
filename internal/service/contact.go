package service

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/transport"
)

type ContactService struct {
	Repo *repo.GormRepo
}

func (s *ContactService) Submit(ctx context.Context, req transport.ContactRequest) (*models.ContactSubmission, error) {
	name := strings.TrimSpace(req.Name)
	email := strings.TrimSpace(req.Email)
	message := strings.TrimSpace(req.Message)
	if name == "" || email == "" || message == "" {
		return nil, fmt.Errorf("%w: name, email and message are required", ErrValidation)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: invalid email", ErrValidation)
	}

	var phone *string
	if req.Phone != nil {
		if p := strings.TrimSpace(*req.Phone); p != "" {
			phone = &p
		}
	}

	sub := &models.ContactSubmission{Name: name, Email: email, Phone: phone, Message: message}
	if err := s.Repo.CreateContactSubmission(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

func (s *ContactService) List(ctx context.Context, offset, limit int) (int64, []models.ContactSubmission, error) {
	return s.Repo.ListContactSubmissions(ctx, offset, limit)
}
