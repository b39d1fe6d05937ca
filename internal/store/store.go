package store

import (
	"context"
	"errors"
	"time"

	"tillpoint/backend/internal/domain"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidTransaction = errors.New("invalid transaction")
)

type Repository interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	GetProductByCode(ctx context.Context, code string) (*domain.Product, error)
	GetProductsByCodes(ctx context.Context, codes []string) (map[string]domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	CreatePriceHistory(ctx context.Context, entry domain.ProductPriceHistory) error
	ListPriceHistory(ctx context.Context, code string, limit int) ([]domain.ProductPriceHistory, error)
	CreateRuleConfig(ctx context.Context, cfg domain.RuleConfig) (*domain.RuleConfig, error)
	ListRuleConfigs(ctx context.Context) ([]domain.RuleConfig, error)
	SetRuleConfigActive(ctx context.Context, ruleID string, active bool) (*domain.RuleConfig, error)
	FindTransactionByIdempotency(ctx context.Context, key string) (*domain.Transaction, error)
	FindTransactionByID(ctx context.Context, id string) (*domain.Transaction, error)
	CreateCheckout(ctx context.Context, tx domain.Transaction) (*domain.Transaction, error)
	VoidTransaction(ctx context.Context, id string, reason string, at time.Time) (*domain.Transaction, error)
	CreateAuditLog(ctx context.Context, entry domain.AuditLog) error
	ListAuditLogs(ctx context.Context, storeID string, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error)
	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}
