package service

import (
	"context"
	"fmt"
	"time"

	"github.com/stayserve/hotel-orders/internal/domain"
	"github.com/stayserve/hotel-orders/internal/repository"
	"github.com/stayserve/hotel-orders/pkg/events"
	"github.com/stayserve/hotel-orders/pkg/logger"
	"github.com/stayserve/hotel-orders/pkg/token"
)

type GuestService interface {
	// Login upserts the guest identity and mints a session token. Repeat
	// logins with the same email keep the guest id and refresh the name.
	Login(ctx context.Context, req *domain.GuestLoginRequest) (*domain.Guest, string, error)
}

type guestService struct {
	guestRepo repository.GuestRepository
	tokens    *token.Service
	eventBus  events.Publisher
}

func NewGuestService(guestRepo repository.GuestRepository, tokens *token.Service, eventBus events.Publisher) GuestService {
	return &guestService{
		guestRepo: guestRepo,
		tokens:    tokens,
		eventBus:  eventBus,
	}
}

func (s *guestService) Login(ctx context.Context, req *domain.GuestLoginRequest) (*domain.Guest, string, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, "", err
	}

	guest, created, err := s.guestRepo.FindOrCreateByEmail(ctx, req.Email, req.Name)
	if err != nil {
		return nil, "", fmt.Errorf("failed to upsert guest: %w", err)
	}

	sessionToken, err := s.tokens.Mint(token.GuestPayload{
		GuestID: guest.ID,
		Email:   guest.Email,
	})
	if err != nil {
		return nil, "", fmt.Errorf("failed to mint guest token: %w", err)
	}

	if err := s.eventBus.Publish(ctx, events.GuestLoginSucceeded, events.GuestLoginSucceededEvent{
		GuestID:  guest.ID,
		Email:    guest.Email,
		NewGuest: created,
		LoggedAt: time.Now(),
	}); err != nil {
		logger.WarnContext(ctx, "Failed to publish guest login event", "error", err, "guest_id", guest.ID)
	}

	return guest, sessionToken, nil
}
