package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/sakif/qi-research/internal/apperror"
	"github.com/sakif/qi-research/internal/model"
	"github.com/sakif/qi-research/internal/repository"
)

// KeyService manages the two kinds of API key: the per-user literature
// ("PubMed") key and the application-wide GPT key. Keys are stored and
// returned verbatim.
type KeyService struct {
	users  repository.UserRepository
	gpt    repository.GPTKeyRepository
	logger *slog.Logger
}

func NewKeyService(users repository.UserRepository, gpt repository.GPTKeyRepository, logger *slog.Logger) *KeyService {
	return &KeyService{users: users, gpt: gpt, logger: logger}
}

func (s *KeyService) PubMedKey(ctx context.Context, userID string) (string, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}
	return user.APIKey, nil
}

func (s *KeyService) UpdatePubMedKey(ctx context.Context, userID, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return apperror.ValidationFailed("key", "PubMed Key is required")
	}
	if err := s.users.UpdateAPIKey(ctx, userID, key); err != nil {
		return err
	}
	s.logger.Info("pubmed key updated", slog.String("userID", userID))
	return nil
}

func (s *KeyService) GPTKey(ctx context.Context) (*model.GPTKey, error) {
	return s.gpt.Get(ctx)
}

// SetGPTKey creates or replaces the shared GPT key.
func (s *KeyService) SetGPTKey(ctx context.Context, userID, key string) (*model.GPTKey, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, apperror.ValidationFailed("key", "GPT Key is required")
	}
	k, err := s.gpt.Upsert(ctx, key, userID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("gpt key set", slog.String("userID", userID))
	return k, nil
}

// UpdateGPTKey replaces the shared GPT key; NotFound if it was never set.
func (s *KeyService) UpdateGPTKey(ctx context.Context, userID, key string) (*model.GPTKey, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, apperror.ValidationFailed("key", "GPT Key is required")
	}
	k, err := s.gpt.Update(ctx, key, userID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("gpt key updated", slog.String("userID", userID))
	return k, nil
}
