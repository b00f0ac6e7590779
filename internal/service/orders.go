package service

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mmeshcher/pickers-market/internal/credstore"
	"github.com/mmeshcher/pickers-market/internal/model"
	"github.com/mmeshcher/pickers-market/internal/storage"
)

// CreateOrder оформляет покупку пикера.
func (s *Service) CreateOrder(ctx context.Context, buyerID, pickerID uuid.UUID, method string) (*model.Order, error) {
	m, ok := model.ParsePaymentMethod(method)
	if !ok {
		return nil, model.BadRequest("invalid payment method")
	}
	return s.orders.Purchase(ctx, buyerID, pickerID, m)
}

// OrderList страница заказов пользователя.
type OrderList struct {
	Orders  []model.OrderView `json:"orders"`
	Total   int64             `json:"total"`
	Page    int               `json:"page"`
	Size    int               `json:"size"`
	HasNext bool              `json:"has_next"`
}

// ListOrders возвращает заказы пользователя. Пустой status означает все статусы.
func (s *Service) ListOrders(ctx context.Context, buyerID uuid.UUID, status string, page model.Page) (*OrderList, error) {
	var filter *model.OrderStatus
	if strings.TrimSpace(status) != "" {
		st, ok := model.ParseOrderStatus(status)
		if !ok {
			return nil, model.BadRequest("invalid order status")
		}
		filter = &st
	}

	orders, total, err := s.repo.ListOrders(ctx, buyerID, filter, page)
	if err != nil {
		return nil, storeError(err)
	}
	if orders == nil {
		orders = []model.OrderView{}
	}
	return &OrderList{
		Orders:  orders,
		Total:   total,
		Page:    page.Number,
		Size:    page.Size,
		HasNext: page.HasNext(total),
	}, nil
}

// GetOrder возвращает заказ пользователя.
func (s *Service) GetOrder(ctx context.Context, buyerID, orderID uuid.UUID) (*model.OrderView, error) {
	o, err := s.repo.GetOrder(ctx, buyerID, orderID)
	if err != nil {
		return nil, storeError(err)
	}
	return o, nil
}

// IssueDownloadToken выдаёт токен скачивания для завершённого заказа.
// Пока прежний токен заказа действует, возвращается он же.
func (s *Service) IssueDownloadToken(ctx context.Context, buyerID, orderID uuid.UUID) (*credstore.DownloadToken, error) {
	o, err := s.repo.GetOrder(ctx, buyerID, orderID)
	if err != nil {
		return nil, storeError(err)
	}
	if o.Status != model.OrderStatusCompleted {
		return nil, model.BadRequest("order is not completed")
	}

	t, err := s.creds.IssueToken(orderID, newDownloadToken, s.opts.DownloadTokenTTL)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("download token issued", zap.String("order_id", orderID.String()))
	return &t, nil
}

// ResolveDownload возвращает пикер, файл которого разрешает скачать token.
func (s *Service) ResolveDownload(ctx context.Context, token string) (*model.Picker, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, model.BadRequest("download token is required")
	}

	t, ok := s.creds.ResolveToken(token, s.opts.DownloadTokenSingleUse)
	if !ok {
		return nil, model.Unauthorized("invalid or expired download token")
	}

	p, err := s.repo.GetCompletedOrderPicker(ctx, t.OrderID)
	if err != nil {
		return nil, storeError(err)
	}
	return p, nil
}

// ServeDownload отдаёт файл пикера через хранилище артефактов.
func (s *Service) ServeDownload(w http.ResponseWriter, r *http.Request, p *model.Picker) error {
	if err := s.files.Serve(w, r, p.FilePath); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return model.NotFound("file not found")
		}
		return err
	}
	return nil
}
