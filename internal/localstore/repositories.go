package localstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"kasirinaja/backoffice/internal/domain"
)

type (
	SalesRepository         = Collection[domain.Sale, *domain.Sale]
	ExpenseRepository       = Collection[domain.Expense, *domain.Expense]
	ProductRepository       = Collection[domain.Product, *domain.Product]
	UserRepository          = Collection[domain.User, *domain.User]
	StockMovementRepository = Collection[domain.StockMovement, *domain.StockMovement]
	SystemLogRepository     = Collection[domain.SystemLog, *domain.SystemLog]
)

// Document is a single JSON object stored under one key.
type Document[T any] struct {
	store Store
	key   string
}

func NewDocument[T any](store Store, key string) *Document[T] {
	return &Document[T]{store: store, key: key}
}

// Load returns ErrNoData when the key is absent or cannot be parsed.
func (d *Document[T]) Load(ctx context.Context) (T, error) {
	var value T
	raw, ok, err := d.store.Get(ctx, d.key)
	if err != nil {
		return value, fmt.Errorf("read %s: %w", d.key, err)
	}
	if !ok || domain.IsNullJSON(raw) {
		return value, ErrNoData
	}
	if err := json.Unmarshal(raw, &value); err != nil {
		log.Printf("[localstore] WARN: %s holds malformed JSON: %v", d.key, err)
		return value, ErrNoData
	}
	return value, nil
}

func (d *Document[T]) Save(ctx context.Context, value T) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", d.key, err)
	}
	return d.store.Set(ctx, d.key, payload)
}

type InventoryCleared struct {
	Cleared   bool             `json:"cleared"`
	ClearedAt domain.Timestamp `json:"cleared_at"`
}

// Repositories groups every local collection the gateway falls back to.
type Repositories struct {
	Sales        *SalesRepository
	Expenses     *ExpenseRepository
	Products     *ProductRepository
	ProductsData *ProductRepository
	Users        *UserRepository
	Movements    *StockMovementRepository
	SystemLogs   *SystemLogRepository

	AppSettings    *Document[domain.Settings]
	LegacySettings *Document[domain.Settings]
	Cleared        *Document[InventoryCleared]

	store Store
}

func NewRepositories(store Store) *Repositories {
	return &Repositories{
		Sales:          NewCollection[domain.Sale](store, KeySales),
		Expenses:       NewCollection[domain.Expense](store, KeyExpenses),
		Products:       NewCollection[domain.Product](store, KeyProducts),
		ProductsData:   NewCollection[domain.Product](store, KeyProductsData),
		Users:          NewCollection[domain.User](store, KeyUsers),
		Movements:      NewCollection[domain.StockMovement](store, KeyStockMovements),
		SystemLogs:     NewCollection[domain.SystemLog](store, KeySystemLogs),
		AppSettings:    NewDocument[domain.Settings](store, KeyAppSettingsCache),
		LegacySettings: NewDocument[domain.Settings](store, KeySettings),
		Cleared:        NewDocument[InventoryCleared](store, KeyInventoryCleared),
		store:          store,
	}
}

// ListProducts reads barbershop_products and falls back to the older
// barbershop_products_data key when the first is empty. Once the inventory
// has been cleared the older key is no longer read.
func (r *Repositories) ListProducts(ctx context.Context) ([]domain.Product, error) {
	products, err := r.Products.List(ctx, nil)
	if err != nil {
		return nil, err
	}
	if len(products) > 0 || r.InventoryCleared(ctx) {
		return products, nil
	}
	return r.ProductsData.List(ctx, nil)
}

// WritableProducts returns the collection product writes go to. While it is
// still empty the barbershop_products_data records are copied into it first,
// so the first write does not hide them from ListProducts.
func (r *Repositories) WritableProducts(ctx context.Context) (*ProductRepository, error) {
	if r.InventoryCleared(ctx) {
		return r.Products, nil
	}
	legacy, err := r.ProductsData.List(ctx, nil)
	if err != nil {
		return nil, err
	}
	migrated, err := r.Products.Seed(ctx, legacy)
	if err != nil {
		return nil, fmt.Errorf("migrate %s: %w", KeyProductsData, err)
	}
	if migrated {
		log.Printf("[localstore] migrated %d products from %s to %s", len(legacy), KeyProductsData, KeyProducts)
	}
	return r.Products, nil
}

// ClearInventory empties both product keys and remembers when it happened.
func (r *Repositories) ClearInventory(ctx context.Context, at time.Time) error {
	if err := r.Products.Replace(ctx, nil); err != nil {
		return err
	}
	if err := r.ProductsData.Replace(ctx, nil); err != nil {
		return err
	}
	return r.Cleared.Save(ctx, InventoryCleared{Cleared: true, ClearedAt: domain.At(at)})
}

func (r *Repositories) InventoryCleared(ctx context.Context) bool {
	state, err := r.Cleared.Load(ctx)
	return err == nil && state.Cleared
}

// FindUser matches a login name against email or name, case-insensitively.
func (r *Repositories) FindUser(ctx context.Context, login string) (domain.User, error) {
	login = strings.TrimSpace(login)
	users, err := r.Users.List(ctx, func(u domain.User) bool {
		return strings.EqualFold(u.Email, login) || strings.EqualFold(u.Name, login)
	})
	if err != nil {
		return domain.User{}, err
	}
	if len(users) == 0 {
		return domain.User{}, fmt.Errorf("user %q: %w", login, ErrNotFound)
	}
	return users[0], nil
}

// Keys lists the keys present in the underlying store.
func (r *Repositories) Keys(ctx context.Context) ([]string, error) {
	return r.store.Keys(ctx)
}
