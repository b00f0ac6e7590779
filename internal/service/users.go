package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mmeshcher/pickers-market/internal/model"
	"github.com/mmeshcher/pickers-market/internal/repository"
	"github.com/mmeshcher/pickers-market/internal/validation"
)

// Register регистрирует пользователя и отправляет ему код подтверждения.
func (s *Service) Register(ctx context.Context, email, name, role string) (*model.User, error) {
	email = strings.TrimSpace(email)
	if !validation.IsValidEmail(email) {
		return nil, model.BadRequest("invalid email format")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, model.BadRequest("user name is required")
	}
	userRole, ok := model.ParseUserRole(role)
	if !ok {
		return nil, model.BadRequest("invalid user type")
	}

	_, err := s.repo.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, model.Conflict("email already registered")
	case !errors.Is(err, repository.ErrUserNotFound):
		return nil, storeError(err)
	}

	wallet, err := newWalletAddress()
	if err != nil {
		return nil, err
	}

	u := &model.User{
		ID:            uuid.New(),
		Email:         email,
		Name:          name,
		Role:          userRole,
		WalletAddress: wallet,
	}
	if err := s.repo.CreateUser(ctx, u); err != nil {
		return nil, storeError(err)
	}

	if err := s.issueCode(ctx, email); err != nil {
		return nil, err
	}

	s.logger.Info("user registered", zap.String("user_id", u.ID.String()), zap.String("role", string(u.Role)))
	return u, nil
}

// ResendCode выдаёт новый код подтверждения существующему пользователю.
// Прежний код перестаёт действовать сразу.
func (s *Service) ResendCode(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if !validation.IsValidEmail(email) {
		return model.BadRequest("invalid email format")
	}
	if _, err := s.repo.GetUserByEmail(ctx, email); err != nil {
		return storeError(err)
	}
	return s.issueCode(ctx, email)
}

func (s *Service) issueCode(ctx context.Context, email string) error {
	code, err := newVerificationCode()
	if err != nil {
		return err
	}
	s.creds.PutCode(email, code, s.opts.VerificationCodeTTL)

	if err := s.mailer.SendVerificationCode(ctx, email, code); err != nil {
		s.creds.RemoveCode(email)
		return err
	}
	return nil
}

// Verify проверяет код подтверждения и выдаёт токен доступа.
func (s *Service) Verify(ctx context.Context, email, code string) (string, *model.User, error) {
	email = strings.TrimSpace(email)
	invalid := model.BadRequest("invalid or expired verification code")
	if !validation.IsValidVerificationCode(code) {
		return "", nil, invalid
	}
	if c, ok := s.creds.GetCode(email); !ok || !c.Matches(code, s.clock.Now()) {
		return "", nil, invalid
	}

	// Код гасится только после успешного чтения пользователя.
	u, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return "", nil, storeError(err)
	}
	if !s.creds.ConsumeCode(email, code) {
		return "", nil, invalid
	}

	token, err := s.tokens.Issue(u.ID)
	if err != nil {
		return "", nil, err
	}
	return token, u, nil
}

// Login выдаёт токен доступа зарегистрированному пользователю по email.
func (s *Service) Login(ctx context.Context, email string) (string, *model.User, error) {
	email = strings.TrimSpace(email)
	if !validation.IsValidEmail(email) {
		return "", nil, model.BadRequest("invalid email format")
	}

	u, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return "", nil, storeError(err)
	}

	token, err := s.tokens.Issue(u.ID)
	if err != nil {
		return "", nil, err
	}
	return token, u, nil
}

// Profile возвращает профиль пользователя.
func (s *Service) Profile(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	u, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, storeError(err)
	}
	return u, nil
}
