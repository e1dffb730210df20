package service

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"kasirinaja/backoffice/internal/domain"
	"kasirinaja/backoffice/internal/localstore"
)

const (
	defaultPerPage = 20
	maxPerPage     = 100
	barcodeFormat  = "CODE128"
)

func normalisePaging(filter domain.ProductFilter) domain.ProductFilter {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PerPage <= 0 {
		filter.PerPage = defaultPerPage
	}
	if filter.PerPage > maxPerPage {
		filter.PerPage = maxPerPage
	}
	filter.Search = strings.TrimSpace(filter.Search)
	filter.Category = strings.TrimSpace(filter.Category)
	return filter
}

func productPath(id domain.ID, suffix string) string {
	return "/admin/products/" + url.PathEscape(id.String()) + suffix
}

func (s *Service) ListProducts(ctx context.Context, filter domain.ProductFilter) (domain.Sourced[domain.Page[domain.Product]], error) {
	filter = normalisePaging(filter)
	return withFallback(ctx, s, "products",
		func(ctx context.Context) (domain.Page[domain.Product], error) {
			query := url.Values{}
			query.Set("page", strconv.Itoa(filter.Page))
			query.Set("per_page", strconv.Itoa(filter.PerPage))
			if filter.Search != "" {
				query.Set("search", filter.Search)
			}
			if filter.Category != "" {
				query.Set("category", filter.Category)
			}

			var items []domain.Product
			meta, err := s.api.GetPage(ctx, "/admin/products", query, &items)
			if err != nil {
				return domain.Page[domain.Product]{}, err
			}
			s.refreshProducts(ctx, items)

			page := domain.Page[domain.Product]{Items: items, Total: meta.Total, Page: filter.Page, PerPage: filter.PerPage}
			if meta.Empty() {
				page.Total = len(items)
			}
			if page.Items == nil {
				page.Items = []domain.Product{}
			}
			return page, nil
		},
		func(ctx context.Context) (domain.Page[domain.Product], error) {
			products, err := s.local.ListProducts(ctx)
			if err != nil {
				return domain.Page[domain.Product]{}, err
			}
			return paginate(filterProducts(products, filter), filter), nil
		},
	)
}

// refreshProducts writes API products through to the local copy. Fresh data
// from the backend supersedes an earlier local clear.
func (s *Service) refreshProducts(ctx context.Context, items []domain.Product) {
	if len(items) == 0 {
		return
	}
	writeThrough(ctx, s.localProducts(ctx), items)
	if s.local.InventoryCleared(ctx) {
		if err := s.local.Cleared.Save(ctx, localstore.InventoryCleared{}); err != nil {
			log.Printf("[service] WARN: reset inventory cleared flag: %v", err)
		}
	}
}

// localProducts is the local product collection, with any legacy
// barbershop_products_data records moved into it.
func (s *Service) localProducts(ctx context.Context) *localstore.ProductRepository {
	products, err := s.local.WritableProducts(ctx)
	if err != nil {
		log.Printf("[service] WARN: %v", err)
		return s.local.Products
	}
	return products
}

func filterProducts(products []domain.Product, filter domain.ProductFilter) []domain.Product {
	search := strings.ToLower(filter.Search)
	out := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if filter.Category != "" && !strings.EqualFold(p.Category.String(), filter.Category) {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(p.Name), search) &&
			!strings.Contains(strings.ToLower(p.SKU), search) {
			continue
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out
}

func paginate(products []domain.Product, filter domain.ProductFilter) domain.Page[domain.Product] {
	page := domain.Page[domain.Product]{Total: len(products), Page: filter.Page, PerPage: filter.PerPage}
	start := (filter.Page - 1) * filter.PerPage
	if start >= len(products) {
		page.Items = []domain.Product{}
		return page
	}
	end := start + filter.PerPage
	if end > len(products) {
		end = len(products)
	}
	page.Items = products[start:end]
	return page
}

func (s *Service) GetProduct(ctx context.Context, id domain.ID) (domain.Sourced[domain.Product], error) {
	return withFallback(ctx, s, "products",
		func(ctx context.Context) (domain.Product, error) {
			var product domain.Product
			err := s.api.Get(ctx, productPath(id, ""), nil, &product)
			return product, err
		},
		func(ctx context.Context) (domain.Product, error) {
			return s.findLocalProduct(ctx, id)
		},
	)
}

func (s *Service) findLocalProduct(ctx context.Context, id domain.ID) (domain.Product, error) {
	products, err := s.local.ListProducts(ctx)
	if err != nil {
		return domain.Product{}, err
	}
	for _, p := range products {
		if p.ID == id {
			return p, nil
		}
	}
	return domain.Product{}, fmt.Errorf("product %s: %w", id, localstore.ErrNotFound)
}

func validateProduct(req domain.ProductRequest, creating bool) error {
	if creating && (req.Name == nil || strings.TrimSpace(*req.Name) == "") {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		return fmt.Errorf("%w: name must not be empty", ErrInvalidInput)
	}
	if req.Price != nil && req.Price.IsNegative() {
		return fmt.Errorf("%w: price must not be negative", ErrInvalidInput)
	}
	if req.CostPrice != nil && req.CostPrice.IsNegative() {
		return fmt.Errorf("%w: cost_price must not be negative", ErrInvalidInput)
	}
	if req.Stock != nil && *req.Stock < 0 {
		return fmt.Errorf("%w: stock must not be negative", ErrInvalidInput)
	}
	return nil
}

// applyProduct copies the non-nil request fields onto p.
func applyProduct(p *domain.Product, req domain.ProductRequest) {
	if req.Name != nil {
		p.Name = strings.TrimSpace(*req.Name)
	}
	if req.SKU != nil {
		p.SKU = strings.TrimSpace(*req.SKU)
	}
	if req.Category != nil {
		p.Category = domain.Label(strings.TrimSpace(*req.Category))
	}
	if req.Price != nil {
		p.Price = *req.Price
	}
	if req.Stock != nil {
		p.Stock = domain.Quantity(*req.Stock)
	}
	if req.Active != nil {
		p.Active = *req.Active
	}
	if req.ImageURL != nil {
		p.ImageURL = *req.ImageURL
	}
	if req.CostPrice != nil {
		p.CostPrice = *req.CostPrice
	}
	if req.MarginPercentage != nil {
		p.MarginPercentage = *req.MarginPercentage
	}
	if req.Brand != nil {
		p.Brand = domain.Label(*req.Brand)
	}
	if req.Supplier != nil {
		p.Supplier = domain.Label(*req.Supplier)
	}
	if req.DynamicFields != nil {
		p.DynamicFields = req.DynamicFields
	}
	if req.MarginPercentage == nil && p.Price.IsPositive() && p.CostPrice.IsPositive() {
		p.MarginPercentage = p.Price.Sub(p.CostPrice).Div(p.Price).Mul(decimal.NewFromInt(100)).Round(2)
	}
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductRequest) (domain.Sourced[domain.Product], error) {
	if err := validateProduct(req, true); err != nil {
		return domain.Sourced[domain.Product]{}, err
	}
	return withFallback(ctx, s, "products",
		func(ctx context.Context) (domain.Product, error) {
			var created domain.Product
			if err := s.api.Post(ctx, "/admin/products", req, &created); err != nil {
				return created, err
			}
			writeThrough(ctx, s.localProducts(ctx), []domain.Product{created})
			return created, nil
		},
		func(ctx context.Context) (domain.Product, error) {
			product := domain.Product{Active: true}
			applyProduct(&product, req)
			created, err := s.localProducts(ctx).Create(ctx, product)
			if err == nil {
				s.logLocal(ctx, "create", "product", created.ID, created.Name)
			}
			return created, err
		},
	)
}

func (s *Service) UpdateProduct(ctx context.Context, id domain.ID, req domain.ProductRequest) (domain.Sourced[domain.Product], error) {
	if err := validateProduct(req, false); err != nil {
		return domain.Sourced[domain.Product]{}, err
	}
	return withFallback(ctx, s, "products",
		func(ctx context.Context) (domain.Product, error) {
			var updated domain.Product
			if err := s.api.Put(ctx, productPath(id, ""), req, &updated); err != nil {
				return updated, err
			}
			writeThrough(ctx, s.localProducts(ctx), []domain.Product{updated})
			return updated, nil
		},
		func(ctx context.Context) (domain.Product, error) {
			updated, err := s.localProducts(ctx).Modify(ctx, id, func(p *domain.Product) error {
				applyProduct(p, req)
				return nil
			})
			if err == nil {
				s.logLocal(ctx, "update", "product", id, updated.Name)
			}
			return updated, err
		},
	)
}

func (s *Service) DeleteProduct(ctx context.Context, id domain.ID) (domain.Source, error) {
	result, err := withFallback(ctx, s, "products",
		func(ctx context.Context) (struct{}, error) {
			if err := s.api.Delete(ctx, productPath(id, "")); err != nil {
				return struct{}{}, err
			}
			forget(ctx, s.localProducts(ctx), id)
			return struct{}{}, nil
		},
		func(ctx context.Context) (struct{}, error) {
			if err := s.localProducts(ctx).Delete(ctx, id); err != nil {
				return struct{}{}, err
			}
			s.logLocal(ctx, "delete", "product", id, "")
			return struct{}{}, nil
		},
	)
	return result.Source, err
}

// AdjustStock moves a product's stock by a signed delta. Locally the
// adjustment is recorded as a stock movement; stock may not go below zero.
func (s *Service) AdjustStock(ctx context.Context, id domain.ID, req domain.StockAdjustRequest) (domain.Sourced[domain.Product], error) {
	if req.Delta == 0 {
		return domain.Sourced[domain.Product]{}, fmt.Errorf("%w: delta must not be zero", ErrInvalidInput)
	}
	req.Reason = defaultString(strings.TrimSpace(req.Reason), "adjustment")

	return withFallback(ctx, s, "products",
		func(ctx context.Context) (domain.Product, error) {
			var product domain.Product
			if err := s.api.Post(ctx, productPath(id, "/adjust-stock"), req, &product); err != nil {
				return product, err
			}
			writeThrough(ctx, s.localProducts(ctx), []domain.Product{product})
			return product, nil
		},
		func(ctx context.Context) (domain.Product, error) {
			product, err := s.localProducts(ctx).Modify(ctx, id, func(p *domain.Product) error {
				if p.Stock.Int()+req.Delta < 0 {
					return fmt.Errorf("%w: stock of %s would drop below zero", ErrInvalidInput, p.Name)
				}
				p.Stock += domain.Quantity(req.Delta)
				return nil
			})
			if err != nil {
				return product, err
			}
			movement := domain.StockMovement{
				ProductID:   product.ID,
				ProductName: product.Name,
				Delta:       domain.Quantity(req.Delta),
				StockAfter:  product.Stock,
				Reason:      req.Reason,
			}
			if _, err := s.local.Movements.Create(ctx, movement); err != nil {
				log.Printf("[service] WARN: record stock movement for %s: %v", id, err)
			}
			s.logLocal(ctx, "adjust stock", "product", id, fmt.Sprintf("%+d %s", req.Delta, req.Reason))
			return product, nil
		},
	)
}

func (s *Service) ProductBarcode(ctx context.Context, id domain.ID) (domain.Sourced[domain.Barcode], error) {
	return withFallback(ctx, s, "products",
		func(ctx context.Context) (domain.Barcode, error) {
			var barcode domain.Barcode
			err := s.api.Get(ctx, productPath(id, "/barcode"), nil, &barcode)
			if barcode.ProductID == "" {
				barcode.ProductID = id
			}
			return barcode, err
		},
		func(ctx context.Context) (domain.Barcode, error) {
			product, err := s.findLocalProduct(ctx, id)
			if err != nil {
				return domain.Barcode{}, err
			}
			return code128(product)
		},
	)
}

// code128 derives the barcode payload from the SKU, or the id when the
// product has none. CODE128 set B only carries printable ASCII.
func code128(p domain.Product) (domain.Barcode, error) {
	value := defaultString(strings.TrimSpace(p.SKU), p.ID.String())
	for _, r := range value {
		if r < 32 || r > 126 {
			return domain.Barcode{}, fmt.Errorf("%w: %q cannot be encoded as %s", ErrInvalidInput, value, barcodeFormat)
		}
	}
	return domain.Barcode{ProductID: p.ID, Format: barcodeFormat, Value: value}, nil
}

func (s *Service) LowStockAlerts(ctx context.Context) (domain.Sourced[[]domain.LowStockAlert], error) {
	threshold := s.opts.Reports.LowStockThreshold
	return withFallback(ctx, s, "products",
		func(ctx context.Context) ([]domain.LowStockAlert, error) {
			var alerts []domain.LowStockAlert
			if err := s.api.Get(ctx, "/admin/products/low-stock-alerts", nil, &alerts); err != nil {
				return nil, err
			}
			if alerts == nil {
				alerts = []domain.LowStockAlert{}
			}
			return alerts, nil
		},
		func(ctx context.Context) ([]domain.LowStockAlert, error) {
			products, err := s.local.ListProducts(ctx)
			if err != nil {
				return nil, err
			}
			alerts := []domain.LowStockAlert{}
			for _, p := range products {
				if p.Stock.Int() > threshold {
					continue
				}
				alerts = append(alerts, domain.LowStockAlert{ProductID: p.ID, Name: p.Name, SKU: p.SKU, Stock: p.Stock, Threshold: threshold})
			}
			sort.SliceStable(alerts, func(i, j int) bool { return alerts[i].Stock < alerts[j].Stock })
			return alerts, nil
		},
	)
}

// StockHistory lists stock movements, newest first, optionally for a single
// product.
func (s *Service) StockHistory(ctx context.Context, productID domain.ID) (domain.Sourced[[]domain.StockMovement], error) {
	return withFallback(ctx, s, "stock_history",
		func(ctx context.Context) ([]domain.StockMovement, error) {
			query := url.Values{}
			if productID != "" {
				query.Set("product_id", productID.String())
			}
			var movements []domain.StockMovement
			if err := s.api.Get(ctx, "/admin/products/stock-history", query, &movements); err != nil {
				return nil, err
			}
			if movements == nil {
				movements = []domain.StockMovement{}
			}
			return movements, nil
		},
		func(ctx context.Context) ([]domain.StockMovement, error) {
			movements, err := s.local.Movements.List(ctx, func(m domain.StockMovement) bool {
				return productID == "" || m.ProductID == productID
			})
			if err != nil {
				return nil, err
			}
			sort.SliceStable(movements, func(i, j int) bool {
				return movements[i].CreatedAt.After(movements[j].CreatedAt.Time)
			})
			return movements, nil
		},
	)
}

func (s *Service) Categories(ctx context.Context) (domain.Sourced[[]domain.Category], error) {
	return withFallback(ctx, s, "categories",
		func(ctx context.Context) ([]domain.Category, error) {
			var categories []domain.Category
			if err := s.api.GetWithSetupFallback(ctx, "/categories", nil, &categories); err != nil {
				return nil, err
			}
			if categories == nil {
				categories = []domain.Category{}
			}
			return categories, nil
		},
		func(ctx context.Context) ([]domain.Category, error) {
			products, err := s.local.ListProducts(ctx)
			if err != nil {
				return nil, err
			}
			seen := map[string]bool{}
			categories := []domain.Category{}
			for _, p := range products {
				name := strings.TrimSpace(p.Category.String())
				if name == "" || seen[strings.ToLower(name)] {
					continue
				}
				seen[strings.ToLower(name)] = true
				categories = append(categories, domain.Category{Name: name})
			}
			sort.Slice(categories, func(i, j int) bool { return categories[i].Name < categories[j].Name })
			return categories, nil
		},
	)
}

// ClearInventory empties the local product copy. The backend is not touched.
func (s *Service) ClearInventory(ctx context.Context) error {
	if err := s.local.ClearInventory(ctx, s.now()); err != nil {
		return err
	}
	s.logLocal(ctx, "clear", "inventory", "", "local products emptied")
	return nil
}
