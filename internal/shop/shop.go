package shop

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"spinwheel/internal/ledger"
	"spinwheel/internal/logger"
)

// Catalog maps item ids to their price in points.
type Catalog map[string]int64

type Item struct {
	Id    string `json:"id"`
	Price int64  `json:"price"`
}

// Items lists the catalog sorted by price, then id.
func (c Catalog) Items() []Item {
	items := make([]Item, 0, len(c))
	for id, price := range c {
		items = append(items, Item{Id: id, Price: price})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Price != items[j].Price {
			return items[i].Price < items[j].Price
		}
		return items[i].Id < items[j].Id
	})
	return items
}

type Engine struct {
	Storage ledger.Storage
	Catalog Catalog
}

func NewEngine(storage ledger.Storage, catalog Catalog) *Engine {
	return &Engine{Storage: storage, Catalog: catalog}
}

// Purchase spends points on a catalog item. The debit and the purchase row
// are written under the user's lock, like a withdrawal.
func (e *Engine) Purchase(ctx context.Context, userId string, item string) (*ledger.Purchase, error) {
	if userId == "" {
		return nil, ledger.NotAuthenticated("not authenticated")
	}
	item = strings.TrimSpace(item)
	price, ok := e.Catalog[item]
	if !ok || price <= 0 {
		return nil, ledger.InvalidInput("Unknown item.")
	}
	purchase := &ledger.Purchase{
		UserId: userId,
		Item:   item,
		Points: price,
	}
	err := e.Storage.Transaction(ctx, func(tx ledger.Storage) error {
		if _, err := tx.LockUser(ctx, userId); err != nil {
			if errors.Is(err, ledger.ErrNotFound) {
				return ledger.NotAuthenticated("unknown user")
			}
			return fmt.Errorf("lock user: %w", err)
		}
		balance, err := tx.Balance(ctx, userId)
		if err != nil {
			return fmt.Errorf("balance: %w", err)
		}
		if balance < price {
			return &ledger.InsufficientBalanceError{Requested: price, Available: balance}
		}
		if err := tx.CreatePurchase(ctx, purchase); err != nil {
			return fmt.Errorf("create purchase: %w", err)
		}
		return tx.AppendEvent(ctx, &ledger.PointEvent{
			UserId:    userId,
			Kind:      ledger.KindPurchase,
			Points:    -price,
			Reference: fmt.Sprintf("purchase:%d", purchase.Id),
		})
	})
	if err != nil {
		return nil, ledger.StoreFailure("purchase", err)
	}
	logger.Info("item purchased", zap.String("user", userId), zap.String("item", item), zap.Int64("points", price))
	return purchase, nil
}

func (e *Engine) ListPurchases(ctx context.Context, userId string) ([]ledger.Purchase, error) {
	purchases, err := e.Storage.ListPurchases(ctx, userId)
	if err != nil {
		return nil, ledger.StoreFailure("list purchases", err)
	}
	return purchases, nil
}
