// Package service реализует бизнес-логику маркетплейса пикеров.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mmeshcher/pickers-market/internal/clock"
	"github.com/mmeshcher/pickers-market/internal/credstore"
	"github.com/mmeshcher/pickers-market/internal/model"
	"github.com/mmeshcher/pickers-market/internal/repository"
	"github.com/mmeshcher/pickers-market/internal/storage"
)

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error
	CreateUser(ctx context.Context, u *model.User) error
	GetUserByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	CreatePicker(ctx context.Context, p *model.Picker) error
	GetPicker(ctx context.Context, id uuid.UUID, activeOnly bool) (*model.Picker, error)
	ListActivePickers(ctx context.Context, keyword string, page model.Page) ([]model.Picker, int64, error)
	DeactivatePicker(ctx context.Context, developerID, pickerID uuid.UUID) error
	GetOrder(ctx context.Context, buyerID, orderID uuid.UUID) (*model.OrderView, error)
	ListOrders(ctx context.Context, buyerID uuid.UUID, status *model.OrderStatus, page model.Page) ([]model.OrderView, int64, error)
	GetCompletedOrderPicker(ctx context.Context, orderID uuid.UUID) (*model.Picker, error)
}

// Purchaser оформляет покупку пикера.
type Purchaser interface {
	Purchase(ctx context.Context, buyerID, pickerID uuid.UUID, method model.PaymentMethod) (*model.Order, error)
}

// TokenIssuer выпускает токены доступа пользователя.
type TokenIssuer interface {
	Issue(userID uuid.UUID) (string, error)
}

// Mailer доставляет пользователю код подтверждения.
type Mailer interface {
	SendVerificationCode(ctx context.Context, email, code string) error
}

// Options параметры сроков жизни учётных данных.
type Options struct {
	VerificationCodeTTL    time.Duration
	DownloadTokenTTL       time.Duration
	DownloadTokenSingleUse bool
}

// Deps зависимости сервиса.
type Deps struct {
	Repo        Repository
	Orders      Purchaser
	Credentials *credstore.Store
	Tokens      TokenIssuer
	Files       storage.ArtifactStore
	Mailer      Mailer
	Clock       clock.Clock
	Logger      *zap.Logger
}

// Service содержит бизнес-логику маркетплейса.
type Service struct {
	repo   Repository
	orders Purchaser
	creds  *credstore.Store
	tokens TokenIssuer
	files  storage.ArtifactStore
	mailer Mailer
	clock  clock.Clock
	logger *zap.Logger
	opts   Options
}

// NewService создаёт новый сервис.
func NewService(d Deps, opts Options) *Service {
	if opts.VerificationCodeTTL <= 0 {
		opts.VerificationCodeTTL = 5 * time.Minute
	}
	if opts.DownloadTokenTTL <= 0 {
		opts.DownloadTokenTTL = time.Hour
	}
	if d.Clock == nil {
		d.Clock = clock.Real()
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	return &Service{
		repo:   d.Repo,
		orders: d.Orders,
		creds:  d.Credentials,
		tokens: d.Tokens,
		files:  d.Files,
		mailer: d.Mailer,
		clock:  d.Clock,
		logger: d.Logger,
		opts:   opts,
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// storeError переводит ошибку репозитория в прикладную.
func storeError(err error) error {
	var appErr *model.AppError
	switch {
	case errors.As(err, &appErr):
		return err
	case errors.Is(err, repository.ErrUserNotFound):
		return model.NotFound("user not found")
	case errors.Is(err, repository.ErrPickerNotFound):
		return model.NotFound("picker not found")
	case errors.Is(err, repository.ErrOrderNotFound):
		return model.NotFound("order not found")
	case errors.Is(err, repository.ErrUserExists):
		return model.Conflict("email already registered")
	default:
		return model.Persistence(err)
	}
}
