package localstore

import (
	"context"
	"errors"
)

var (
	ErrNotFound = errors.New("not found")
	ErrNoData   = errors.New("no local data")
)

const (
	KeySales            = "barbershop_sales"
	KeyExpenses         = "barbershop_expenses"
	KeyProducts         = "barbershop_products"
	KeyProductsData     = "barbershop_products_data"
	KeyUsers            = "barbershop_users"
	KeySettings         = "barbershop_settings"
	KeyInventoryCleared = "barbershop_inventory_cleared"
	KeyAppSettingsCache = "app_settings_cache"
	KeyStockMovements   = "barbershop_stock_movements"
	KeySystemLogs       = "barbershop_system_logs"
)

// Store is the key-value surface the gateway keeps its offline copy in. A
// missing key is reported with ok=false, never as an error.
type Store interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
}
