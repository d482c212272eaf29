package service

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/iliyamo/movie-review-api/internal/apperr"
	"github.com/iliyamo/movie-review-api/internal/model"
)

const msgContactFailed = "Failed to send message"

// ContactStore persists contact form messages.
type ContactStore interface {
	Create(ctx context.Context, c model.Contact) (uint64, error)
}

// ContactInput is a contact form submission.  No field is required.
type ContactInput struct {
	Name        string
	Email       string
	Issue       string
	Description string
}

type ContactService struct {
	contacts ContactStore
	log      zerolog.Logger
}

func NewContactService(contacts ContactStore, log zerolog.Logger) *ContactService {
	return &ContactService{contacts: contacts, log: log}
}

// Submit stores the message.  Blank fields are stored as NULL.
func (s *ContactService) Submit(ctx context.Context, in ContactInput) (model.Contact, error) {
	c := model.Contact{
		Name:        optional(in.Name),
		Email:       optional(strings.ToLower(in.Email)),
		Issue:       optional(in.Issue),
		Description: optional(in.Description),
	}
	id, err := s.contacts.Create(ctx, c)
	if err != nil {
		return model.Contact{}, apperr.Infra(msgContactFailed, err)
	}
	c.ID = id
	s.log.Info().Uint64("contact_id", id).Msg("contact message stored")
	return c, nil
}
