package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/mbelenkov/microshop/internal/product/models"
	"github.com/mbelenkov/microshop/internal/product/repo"
	"github.com/mbelenkov/microshop/internal/product/transport"
	"github.com/mbelenkov/microshop/pkg/broker"
	"github.com/mbelenkov/microshop/pkg/logging"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

type ProductService struct {
	Repo         *repo.GormRepo
	Producer     *broker.Producer
	ProductTopic string
}

// First violated rule wins; the caller gets one field back.
func validate(req *transport.CreateProductRequest) *ValidationError {
	if req.Name == "" {
		return &ValidationError{Field: "name", Message: "name is required"}
	}
	if req.Price == nil {
		return &ValidationError{Field: "price", Message: "price is required"}
	}
	if *req.Price < 0 {
		return &ValidationError{Field: "price", Message: "price must not be negative"}
	}
	return nil
}

func (s *ProductService) CreateProduct(ctx context.Context, req *transport.CreateProductRequest) (*models.Product, error) {
	l := logging.FromContext(ctx).With("svc", "product.create")

	if verr := validate(req); verr != nil {
		l.Warn("create rejected", "field", verr.Field, "reason", verr.Message)
		return nil, verr
	}

	prod := &models.Product{
		ID:          uuid.New(),
		Name:        req.Name,
		Description: req.Description,
		Price:       *req.Price,
	}
	prod, err := s.Repo.CreateProduct(ctx, prod)
	if err != nil {
		l.Error("create failed", "error", err)
		return nil, err
	}

	// The write is durable at this point. Event delivery is best effort and
	// must not change the outcome, so publish errors stay in the logs.
	if s.Producer != nil {
		event := broker.Event{Type: "product.created", Payload: prod}
		if err := s.Producer.Publish(ctx, s.ProductTopic, prod.ID.String(), event); err != nil {
			l.Warn("event publish failed", "type", "product.created", "error", err)
		}
	}

	return prod, nil
}
