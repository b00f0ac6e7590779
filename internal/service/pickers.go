package service

import (
	"context"
	"io"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mmeshcher/pickers-market/internal/model"
	"github.com/mmeshcher/pickers-market/internal/storage"
	"github.com/mmeshcher/pickers-market/internal/validation"
)

// Upload файл, приложенный к загрузке пикера.
type Upload struct {
	Name   string
	Reader io.Reader
}

// PickerUpload данные нового пикера.
type PickerUpload struct {
	Alias       string
	Description string
	Version     string
	Price       int64
	Image       *Upload
	File        *Upload
}

// UploadPicker публикует пикер разработчика.
func (s *Service) UploadPicker(ctx context.Context, developerID uuid.UUID, in PickerUpload) (*model.Picker, error) {
	dev, err := s.repo.GetUserByID(ctx, developerID)
	if err != nil {
		return nil, storeError(err)
	}
	if dev.Role != model.UserRoleDeveloper {
		return nil, model.Forbidden("only developers can upload pickers")
	}

	in.Alias = strings.TrimSpace(in.Alias)
	in.Description = strings.TrimSpace(in.Description)
	if in.Alias == "" || in.Description == "" || in.File == nil {
		return nil, model.BadRequest("missing required fields")
	}
	if !validation.IsValidVersion(in.Version) {
		return nil, model.BadRequest("invalid version")
	}
	if in.Price < 0 {
		return nil, model.BadRequest("price must not be negative")
	}

	p := &model.Picker{
		ID:          uuid.New(),
		DeveloperID: developerID,
		Alias:       in.Alias,
		Description: in.Description,
		Price:       in.Price,
		Version:     in.Version,
		Status:      model.PickerStatusActive,
	}

	p.FilePath, err = s.files.Save(ctx, storage.KindArtifact, in.File.Name, in.File.Reader)
	if err != nil {
		return nil, err
	}
	if in.Image != nil {
		p.ImagePath, err = s.files.Save(ctx, storage.KindImage, in.Image.Name, in.Image.Reader)
		if err != nil {
			return nil, err
		}
	}

	if err := s.repo.CreatePicker(ctx, p); err != nil {
		return nil, storeError(err)
	}

	s.logger.Info("picker uploaded",
		zap.String("picker_id", p.ID.String()),
		zap.String("developer_id", developerID.String()),
		zap.Int64("price", p.Price),
	)
	return p, nil
}

// PickerList страница активных пикеров.
type PickerList struct {
	Pickers []model.Picker `json:"pickers"`
	Total   int64          `json:"total"`
	Page    int            `json:"page"`
	Size    int            `json:"size"`
	HasNext bool           `json:"has_next"`
}

// ListPickers возвращает страницу активных пикеров с поиском по keyword.
func (s *Service) ListPickers(ctx context.Context, keyword string, page model.Page) (*PickerList, error) {
	pickers, total, err := s.repo.ListActivePickers(ctx, strings.TrimSpace(keyword), page)
	if err != nil {
		return nil, storeError(err)
	}
	if pickers == nil {
		pickers = []model.Picker{}
	}
	return &PickerList{
		Pickers: pickers,
		Total:   total,
		Page:    page.Number,
		Size:    page.Size,
		HasNext: page.HasNext(total),
	}, nil
}

// GetPicker возвращает активный пикер.
func (s *Service) GetPicker(ctx context.Context, id uuid.UUID) (*model.Picker, error) {
	p, err := s.repo.GetPicker(ctx, id, true)
	if err != nil {
		return nil, storeError(err)
	}
	return p, nil
}

// DeactivatePicker снимает пикер разработчика с продажи.
func (s *Service) DeactivatePicker(ctx context.Context, developerID, pickerID uuid.UUID) error {
	if err := s.repo.DeactivatePicker(ctx, developerID, pickerID); err != nil {
		return storeError(err)
	}
	s.logger.Info("picker deactivated", zap.String("picker_id", pickerID.String()))
	return nil
}
