package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/stayserve/hotel-orders/internal/domain"
	"github.com/stayserve/hotel-orders/internal/mailer"
	"github.com/stayserve/hotel-orders/internal/repository"
	"github.com/stayserve/hotel-orders/pkg/config"
	"github.com/stayserve/hotel-orders/pkg/events"
	"github.com/stayserve/hotel-orders/pkg/logger"
	"github.com/stayserve/hotel-orders/pkg/token"
)

type MFAService interface {
	// RequestVerification resolves the admin by email, issues a fresh
	// passcode, and delivers it by email. Previously issued unexpired
	// passcodes stay valid.
	RequestVerification(ctx context.Context, email string) (*domain.CreateVerificationResult, error)
	// CreateVerification issues a passcode for a known admin id.
	CreateVerification(ctx context.Context, adminID int64, expiry time.Duration) (*domain.CreateVerificationResult, error)
	// VerifyPasscode consumes the newest matching live passcode exactly
	// once and returns the admin's identity claims.
	VerifyPasscode(ctx context.Context, email, passcode string) (*domain.VerifyPasscodeResult, error)
	// MintAdminToken issues a session token for a verified admin.
	MintAdminToken(res *domain.VerifyPasscodeResult, email string) (string, error)
}

type mfaService struct {
	adminRepo  repository.AdminRepository
	verifyRepo repository.VerificationRepository
	tokens     *token.Service
	mailer     mailer.Service
	eventBus   events.Publisher
	config     *config.Config
}

func NewMFAService(
	adminRepo repository.AdminRepository,
	verifyRepo repository.VerificationRepository,
	tokens *token.Service,
	mailer mailer.Service,
	eventBus events.Publisher,
	config *config.Config,
) MFAService {
	return &mfaService{
		adminRepo:  adminRepo,
		verifyRepo: verifyRepo,
		tokens:     tokens,
		mailer:     mailer,
		eventBus:   eventBus,
		config:     config,
	}
}

// GeneratePasscode draws a 6-digit code uniformly from [100000, 999999]
// using a cryptographically secure source.
func GeneratePasscode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("failed to generate passcode: %w", err)
	}
	return strconv.FormatInt(n.Int64()+100000, 10), nil
}

func (s *mfaService) RequestVerification(ctx context.Context, email string) (*domain.CreateVerificationResult, error) {
	admin, err := s.adminRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to find admin: %w", err)
	}
	if admin == nil {
		return nil, fmt.Errorf("%w: no admin with this email", domain.ErrNotFound)
	}

	result, err := s.createForAdmin(ctx, admin, s.config.Auth.PasscodeExpiry)
	if err != nil {
		return nil, err
	}

	expiryMinutes := int(s.config.Auth.PasscodeExpiry.Minutes())
	if err := s.mailer.SendAdminPasscode(admin.Email, admin.Name, result.Passcode, expiryMinutes); err != nil {
		// The record exists; the caller can retry delivery
		logger.ErrorContext(ctx, "Failed to send passcode email", "error", err, "admin_id", admin.ID)
	}

	if err := s.eventBus.Publish(ctx, events.AdminVerificationRequested, events.AdminVerificationRequestedEvent{
		AdminID:   admin.ID,
		HotelID:   admin.HotelID,
		Email:     admin.Email,
		ExpiresAt: result.ExpiresAt,
		CreatedAt: time.Now(),
	}); err != nil {
		logger.WarnContext(ctx, "Failed to publish verification event", "error", err, "admin_id", admin.ID)
	}

	return result, nil
}

func (s *mfaService) CreateVerification(ctx context.Context, adminID int64, expiry time.Duration) (*domain.CreateVerificationResult, error) {
	admin, err := s.adminRepo.FindByID(ctx, adminID)
	if err != nil {
		return nil, fmt.Errorf("failed to find admin: %w", err)
	}
	if admin == nil {
		return nil, fmt.Errorf("%w: no admin with id %d", domain.ErrNotFound, adminID)
	}
	return s.createForAdmin(ctx, admin, expiry)
}

func (s *mfaService) createForAdmin(ctx context.Context, admin *domain.Admin, expiry time.Duration) (*domain.CreateVerificationResult, error) {
	passcode, err := GeneratePasscode()
	if err != nil {
		return nil, err
	}

	expiresAt := time.Now().Add(expiry)
	if _, err := s.verifyRepo.Create(ctx, admin.ID, passcode, expiresAt); err != nil {
		return nil, fmt.Errorf("failed to store verification record: %w", err)
	}

	return &domain.CreateVerificationResult{
		Passcode:  passcode,
		ExpiresAt: expiresAt,
	}, nil
}

func (s *mfaService) VerifyPasscode(ctx context.Context, email, passcode string) (*domain.VerifyPasscodeResult, error) {
	admin, err := s.adminRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to find admin: %w", err)
	}
	if admin == nil {
		return nil, fmt.Errorf("%w: no admin with this email", domain.ErrNotFound)
	}

	consumed, err := s.verifyRepo.ConsumeLatestValid(ctx, admin.ID, passcode)
	if err != nil {
		return nil, fmt.Errorf("failed to verify passcode: %w", err)
	}
	if !consumed {
		return nil, fmt.Errorf("%w: passcode", domain.ErrInvalidOrExpired)
	}

	// Opportunistic cleanup; never flips the verification result
	if _, err := s.verifyRepo.DeleteStaleUsed(ctx, admin.ID, domain.StaleUsedRetention); err != nil {
		logger.WarnContext(ctx, "Failed to clean up stale passcode records", "error", err, "admin_id", admin.ID)
	}

	if err := s.eventBus.Publish(ctx, events.AdminLoginSucceeded, events.AdminLoginSucceededEvent{
		AdminID:  admin.ID,
		HotelID:  admin.HotelID,
		Email:    admin.Email,
		LoggedAt: time.Now(),
	}); err != nil {
		logger.WarnContext(ctx, "Failed to publish login event", "error", err, "admin_id", admin.ID)
	}

	return &domain.VerifyPasscodeResult{
		AdminID: admin.ID,
		HotelID: admin.HotelID,
	}, nil
}

func (s *mfaService) MintAdminToken(res *domain.VerifyPasscodeResult, email string) (string, error) {
	return s.tokens.Mint(token.AdminPayload{
		AdminID: res.AdminID,
		HotelID: res.HotelID,
		Email:   email,
	})
}
