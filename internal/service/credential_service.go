package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/foyerhq/home-api/internal/model"
)

// Refreshed tokens are considered expired slightly early so a grant never
// dies mid-flight.
const expirySafetyMargin = 30 * time.Second

// tokenExchanger is the slice of the brokerage client the credential
// store needs.
type tokenExchanger interface {
	RefreshToken(ctx context.Context, refreshToken string) (*model.TokenGrant, error)
}

type credentialStore interface {
	ListActive(ctx context.Context) ([]model.Credential, error)
	Upsert(ctx context.Context, cred *model.Credential) error
}

// CredentialService hands out usable brokerage credentials, transparently
// rotating any expired grant before returning it.
type CredentialService struct {
	repo      credentialStore
	exchanger tokenExchanger
	logger    *zap.Logger
}

// NewCredentialService creates a new credential service
func NewCredentialService(repo credentialStore, exchanger tokenExchanger, logger *zap.Logger) *CredentialService {
	return &CredentialService{
		repo:      repo,
		exchanger: exchanger,
		logger:    logger,
	}
}

// ListActive returns all active credentials with valid access tokens.
// Expired grants are exchanged and persisted before the list is returned;
// a single failed exchange aborts the whole listing, no partial results.
func (s *CredentialService) ListActive(ctx context.Context) ([]model.Credential, error) {
	creds, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	for i := range creds {
		if !creds[i].Expired(now) {
			continue
		}
		if err := s.refresh(ctx, &creds[i]); err != nil {
			return nil, err
		}
	}

	return creds, nil
}

// refresh rotates one credential in place and persists it.
func (s *CredentialService) refresh(ctx context.Context, cred *model.Credential) error {
	grant, err := s.exchanger.RefreshToken(ctx, cred.RefreshToken)
	if err != nil {
		s.logger.Error("credential refresh failed",
			zap.String("owner", cred.Owner),
			zap.Error(err))
		return err
	}

	cred.AccessToken = grant.AccessToken
	cred.RefreshToken = grant.RefreshToken
	if grant.APIServer != "" {
		cred.APIServer = grant.APIServer
	}
	cred.ExpiresAt = time.Now().UTC().Add(time.Duration(grant.ExpiresIn)*time.Second - expirySafetyMargin)

	if err := s.repo.Upsert(ctx, cred); err != nil {
		return err
	}

	s.logger.Info("credential refreshed",
		zap.String("owner", cred.Owner),
		zap.Time("expiresAt", cred.ExpiresAt))

	return nil
}
