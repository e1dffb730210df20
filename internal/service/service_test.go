package service

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"kasirinaja/backoffice/internal/apiclient"
	"kasirinaja/backoffice/internal/cache"
	"kasirinaja/backoffice/internal/domain"
	"kasirinaja/backoffice/internal/localstore"
	"kasirinaja/backoffice/internal/localstore/memory"
	"kasirinaja/backoffice/internal/report"
	"kasirinaja/backoffice/internal/transfer"
)

const (
	localSales    = `[{"id":"s1","date":"2024-01-01 09:00:00","grand_total":"50000","items":[{"name":"Haircut","qty":1,"unit_price":50000,"barber":"Budi"}]},{"id":"s2","date":"2024-01-01T15:00:00Z","grand_total":30000}]`
	localExpenses = `[{"id":"e1","date":"2024-01-01","category":"supplies","description":"Pomade","amount":"20000"}]`
)

func downHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
}

func newTestService(t *testing.T, handler http.Handler, seed map[string]string) (*Service, *localstore.Repositories) {
	t.Helper()
	if handler == nil {
		handler = downHandler()
	}
	upstream := httptest.NewServer(handler)
	t.Cleanup(upstream.Close)

	local := localstore.NewRepositories(memory.NewSeeded(seed))
	api := apiclient.New(apiclient.Config{BaseURL: upstream.URL, Timeout: 2 * time.Second})
	svc := New(api, local, cache.NewMemoryReportCache(), nil, Options{
		Reports:        report.DefaultConfig(),
		Location:       time.UTC,
		ReportCacheTTL: time.Minute,
		Now:            func() time.Time { return time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC) },
	})
	return svc, local
}

func january(t *testing.T, svc *Service) report.DateRange {
	t.Helper()
	rng, err := svc.ParseRange("2024-01-01", "2024-01-31")
	if err != nil {
		t.Fatalf("parse range: %v", err)
	}
	return rng
}

func TestCashflowFallsBackToLocalData(t *testing.T) {
	svc, _ := newTestService(t, nil, map[string]string{
		localstore.KeySales:    localSales,
		localstore.KeyExpenses: localExpenses,
	})

	got, err := svc.CashflowReport(context.Background(), january(t, svc))
	if err != nil {
		t.Fatalf("cashflow failed: %v", err)
	}
	if got.Source != domain.SourceLocal {
		t.Fatalf("expected local source, got %s", got.Source)
	}
	if got.FallbackReason != "api status 503" {
		t.Fatalf("unexpected fallback reason %q", got.FallbackReason)
	}
	summary := got.Data.Summary
	if !summary.CashIn.Equal(decimal.NewFromInt(80000)) || !summary.CashOut.Equal(decimal.NewFromInt(20000)) || !summary.Net.Equal(decimal.NewFromInt(60000)) {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if len(got.Data.Daily) != 1 || got.Data.Daily[0].Date != "2024-01-01" {
		t.Fatalf("expected a single 2024-01-01 entry, got %+v", got.Data.Daily)
	}
}

func TestCashflowFromAPIAcceptsFlatShapeAndIsCached(t *testing.T) {
	var calls atomic.Int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/reports/cashflow" {
			http.NotFound(w, r)
			return
		}
		calls.Add(1)
		if r.URL.Query().Get("from") != "2024-01-01" || r.URL.Query().Get("to") != "2024-01-31" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		_, _ = io.WriteString(w, `{"data":{"cash_in":"1000","cash_out":"400","net":"600"}}`)
	})
	svc, _ := newTestService(t, handler, nil)

	for i := 0; i < 2; i++ {
		got, err := svc.CashflowReport(context.Background(), january(t, svc))
		if err != nil {
			t.Fatalf("cashflow failed: %v", err)
		}
		if got.Source != domain.SourceAPI {
			t.Fatalf("expected api source, got %s", got.Source)
		}
		if !got.Data.Summary.Net.Equal(decimal.NewFromInt(600)) {
			t.Fatalf("expected net 600, got %s", got.Data.Summary.Net)
		}
		if got.Data.Period.From != "2024-01-01" {
			t.Fatalf("expected period filled from range, got %+v", got.Data.Period)
		}
	}
	if calls.Load() != 1 {
		t.Fatalf("expected second read from the report cache, got %d upstream calls", calls.Load())
	}
}

func TestProfitLossWithNoSalesIsZero(t *testing.T) {
	svc, _ := newTestService(t, nil, nil)

	got, err := svc.ProfitLossReport(context.Background(), january(t, svc))
	if err != nil {
		t.Fatalf("profit loss failed: %v", err)
	}
	if !got.Data.Summary.RevenueGross.IsZero() || !got.Data.Summary.NetProfit.IsZero() || len(got.Data.Estimated) != 0 {
		t.Fatalf("expected all-zero report, got %+v", got.Data)
	}
}

func TestConfiguredZeroRatiosAreKept(t *testing.T) {
	upstream := httptest.NewServer(downHandler())
	t.Cleanup(upstream.Close)
	local := localstore.NewRepositories(memory.NewSeeded(map[string]string{localstore.KeySales: localSales}))
	api := apiclient.New(apiclient.Config{BaseURL: upstream.URL, Timeout: 2 * time.Second})
	svc := New(api, local, nil, nil, Options{
		Reports:  report.Config{LowStockThreshold: 3, InputTaxCategories: []string{"supplies"}},
		Location: time.UTC,
		Now:      func() time.Time { return time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC) },
	})
	if svc.opts.Reports.LowStockThreshold != 3 || len(svc.opts.Reports.InputTaxCategories) != 1 || svc.opts.Reports.TopItems == 0 {
		t.Fatalf("unexpected report config %+v", svc.opts.Reports)
	}

	got, err := svc.ProfitLossReport(context.Background(), january(t, svc))
	if err != nil {
		t.Fatalf("profit loss failed: %v", err)
	}
	if len(got.Data.Estimated) != 0 || !got.Data.Summary.COGS.IsZero() || !got.Data.Summary.TaxOutput.IsZero() {
		t.Fatalf("expected zero ratios to estimate nothing, got %+v", got.Data)
	}
	if !got.Data.Summary.RevenueGross.Equal(decimal.NewFromInt(80000)) {
		t.Fatalf("expected local revenue 80000, got %s", got.Data.Summary.RevenueGross)
	}
}

func TestListSalesWritesThroughForLaterFallback(t *testing.T) {
	var down atomic.Bool
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if down.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = io.WriteString(w, `{"data":{"current_page":1,"last_page":1,"total":1,"data":[{"id":"api-1","date":"2024-01-10","grand_total":12000}]}}`)
	})
	svc, local := newTestService(t, handler, map[string]string{localstore.KeySales: localSales})
	rng := january(t, svc)

	first, err := svc.ListSales(context.Background(), rng)
	if err != nil {
		t.Fatalf("list sales failed: %v", err)
	}
	if first.Source != domain.SourceAPI || len(first.Data) != 1 {
		t.Fatalf("unexpected api result %+v", first)
	}

	stored, err := local.Sales.List(context.Background(), nil)
	if err != nil {
		t.Fatalf("read local sales: %v", err)
	}
	if len(stored) != 3 {
		t.Fatalf("expected api sale merged next to local ones, got %d", len(stored))
	}

	down.Store(true)
	second, err := svc.ListSales(context.Background(), rng)
	if err != nil {
		t.Fatalf("list sales during outage failed: %v", err)
	}
	if second.Source != domain.SourceLocal || len(second.Data) != 3 {
		t.Fatalf("expected 3 local sales, got %d from %s", len(second.Data), second.Source)
	}
}

func TestRejectedExpenseIsNotStoredLocally(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = io.WriteString(w, `{"message":"category is closed"}`)
	})
	svc, local := newTestService(t, handler, nil)

	_, err := svc.CreateExpense(context.Background(), domain.ExpenseRequest{
		Category: "supplies",
		Amount:   decimal.NewFromInt(5000),
	})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	expenses, _ := local.Expenses.List(context.Background(), nil)
	if len(expenses) != 0 {
		t.Fatalf("expected no local expense, got %d", len(expenses))
	}
}

func TestCreateExpenseFallbackIsLogged(t *testing.T) {
	svc, local := newTestService(t, nil, nil)
	ctx := WithActor(context.Background(), domain.Actor{Username: "admin", Role: domain.RoleAdmin})

	got, err := svc.CreateExpense(ctx, domain.ExpenseRequest{
		Date:        "2024-01-03",
		Category:    "utilities",
		Description: "Electricity",
		Amount:      decimal.NewFromInt(150000),
	})
	if err != nil {
		t.Fatalf("create expense failed: %v", err)
	}
	if got.Source != domain.SourceLocal || got.Data.ID == "" {
		t.Fatalf("expected locally created expense with id, got %+v", got)
	}

	logs, err := svc.SystemLogs(ctx, "", 10)
	if err != nil {
		t.Fatalf("system logs failed: %v", err)
	}
	if len(logs.Data) != 1 || !strings.Contains(logs.Data[0].Message, "expense") {
		t.Fatalf("expected one local change entry, got %+v", logs.Data)
	}

	if _, err := svc.CreateExpense(ctx, domain.ExpenseRequest{Category: "x", Amount: decimal.Zero}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected zero amount to be rejected, got %v", err)
	}
	if n, _ := local.Expenses.List(ctx, nil); len(n) != 1 {
		t.Fatalf("expected one stored expense, got %d", len(n))
	}
}

func TestAdjustStockLocallyRecordsMovement(t *testing.T) {
	svc, _ := newTestService(t, nil, map[string]string{
		localstore.KeyProducts: `[{"id":"p1","name":"Pomade","sku":"POM-1","stock":4,"price":"45000","active":true}]`,
	})
	ctx := context.Background()

	got, err := svc.AdjustStock(ctx, "p1", domain.StockAdjustRequest{Delta: 6, Reason: "restock"})
	if err != nil {
		t.Fatalf("adjust stock failed: %v", err)
	}
	if got.Data.Stock != 10 {
		t.Fatalf("expected stock 10, got %d", got.Data.Stock)
	}

	if _, err := svc.AdjustStock(ctx, "p1", domain.StockAdjustRequest{Delta: -11}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected negative stock to be rejected, got %v", err)
	}

	history, err := svc.StockHistory(ctx, "p1")
	if err != nil {
		t.Fatalf("stock history failed: %v", err)
	}
	if len(history.Data) != 1 || history.Data[0].StockAfter != 10 || history.Data[0].Reason != "restock" {
		t.Fatalf("unexpected history %+v", history.Data)
	}

	barcode, err := svc.ProductBarcode(ctx, "p1")
	if err != nil {
		t.Fatalf("barcode failed: %v", err)
	}
	if barcode.Data.Format != "CODE128" || barcode.Data.Value != "POM-1" {
		t.Fatalf("unexpected barcode %+v", barcode.Data)
	}
}

func TestListProductsFiltersAndPaginatesLocally(t *testing.T) {
	svc, _ := newTestService(t, nil, map[string]string{
		localstore.KeyProductsData: `[
			{"id":1,"name":"Pomade Strong","category":"styling","stock":2},
			{"id":2,"name":"Pomade Light","category":{"name":"Styling"},"stock":9},
			{"id":3,"name":"Shampoo","category":"care","stock":0}
		]`,
	})
	ctx := context.Background()

	page, err := svc.ListProducts(ctx, domain.ProductFilter{Category: "styling", PerPage: 1, Page: 2})
	if err != nil {
		t.Fatalf("list products failed: %v", err)
	}
	if page.Data.Total != 2 || len(page.Data.Items) != 1 || page.Data.Items[0].Name != "Pomade Strong" {
		t.Fatalf("unexpected page %+v", page.Data)
	}

	alerts, err := svc.LowStockAlerts(ctx)
	if err != nil {
		t.Fatalf("low stock failed: %v", err)
	}
	if len(alerts.Data) != 2 || alerts.Data[0].Name != "Shampoo" {
		t.Fatalf("unexpected alerts %+v", alerts.Data)
	}

	categories, err := svc.Categories(ctx)
	if err != nil {
		t.Fatalf("categories failed: %v", err)
	}
	if len(categories.Data) != 2 {
		t.Fatalf("expected 2 distinct categories, got %+v", categories.Data)
	}

	if err := svc.ClearInventory(ctx); err != nil {
		t.Fatalf("clear inventory failed: %v", err)
	}
	page, err = svc.ListProducts(ctx, domain.ProductFilter{})
	if err != nil || page.Data.Total != 0 {
		t.Fatalf("expected no products after clear, got %+v (%v)", page.Data, err)
	}
}

func TestLocalProductWritesKeepLegacyProducts(t *testing.T) {
	svc, local := newTestService(t, nil, map[string]string{
		localstore.KeyProductsData: `[{"id":"p1","name":"Wax","stock":5,"price":"30000"}]`,
	})
	ctx := context.Background()

	name := "Pomade"
	if _, err := svc.CreateProduct(ctx, domain.ProductRequest{Name: &name}); err != nil {
		t.Fatalf("create product failed: %v", err)
	}
	page, err := svc.ListProducts(ctx, domain.ProductFilter{})
	if err != nil {
		t.Fatalf("list products failed: %v", err)
	}
	if page.Data.Total != 2 {
		t.Fatalf("expected legacy product next to the new one, got %+v", page.Data.Items)
	}

	renamed := "Wax Matte"
	updated, err := svc.UpdateProduct(ctx, "p1", domain.ProductRequest{Name: &renamed})
	if err != nil || updated.Data.Name != renamed {
		t.Fatalf("expected legacy product to be updatable, got %+v (%v)", updated.Data, err)
	}
	adjusted, err := svc.AdjustStock(ctx, "p1", domain.StockAdjustRequest{Delta: -2})
	if err != nil || adjusted.Data.Stock != 3 {
		t.Fatalf("expected legacy product stock to be adjustable, got %+v (%v)", adjusted.Data, err)
	}
	stored, err := local.Products.Get(ctx, "p1")
	if err != nil || stored.Name != renamed {
		t.Fatalf("expected migrated product in %s, got %+v (%v)", localstore.KeyProducts, stored, err)
	}
}

func transferHandler(status string, posts *atomic.Int32) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			posts.Add(1)
			w.WriteHeader(http.StatusNoContent)
			return
		}
		_, _ = io.WriteString(w, `{"data":{"id":7,"number":"TRF-7","status":"`+status+`","items":[{"id":1,"product_id":2,"quantity":3}]}}`)
	})
}

func TestIllegalTransferTransitionIsNeverSent(t *testing.T) {
	var posts atomic.Int32
	svc, _ := newTestService(t, transferHandler("received", &posts), nil)

	_, err := svc.TransitionTransfer(context.Background(), "7", domain.TransferStatusRequest{Status: domain.TransferShipped})
	if !errors.Is(err, transfer.ErrIllegalTransition) {
		t.Fatalf("expected ErrIllegalTransition, got %v", err)
	}
	_, err = svc.UpdateTransferItem(context.Background(), "7", "1", 5)
	if !errors.Is(err, transfer.ErrTransferLocked) {
		t.Fatalf("expected ErrTransferLocked, got %v", err)
	}
	if posts.Load() != 0 {
		t.Fatalf("expected no mutation to reach the api, got %d", posts.Load())
	}
}

func TestApprovedTransferItemsAreLocked(t *testing.T) {
	var posts atomic.Int32
	svc, _ := newTestService(t, transferHandler("approved", &posts), nil)
	ctx := context.Background()

	if _, err := svc.AddTransferItem(ctx, "7", domain.TransferItemRequest{ProductID: "9", Quantity: 1}); !errors.Is(err, transfer.ErrTransferLocked) {
		t.Fatalf("add: expected ErrTransferLocked, got %v", err)
	}
	if _, err := svc.UpdateTransferItem(ctx, "7", "1", 4); !errors.Is(err, transfer.ErrTransferLocked) {
		t.Fatalf("update: expected ErrTransferLocked, got %v", err)
	}
	if _, err := svc.RemoveTransferItem(ctx, "7", "1"); !errors.Is(err, transfer.ErrTransferLocked) {
		t.Fatalf("remove: expected ErrTransferLocked, got %v", err)
	}
	if posts.Load() != 0 {
		t.Fatalf("expected no item edit to reach the api, got %d", posts.Load())
	}
}

func TestDraftTransferTransitionIsSent(t *testing.T) {
	var posts atomic.Int32
	svc, _ := newTestService(t, transferHandler("draft", &posts), nil)

	got, err := svc.TransitionTransfer(context.Background(), "7", domain.TransferStatusRequest{Status: "APPROVED"})
	if err != nil {
		t.Fatalf("transition failed: %v", err)
	}
	if posts.Load() != 1 {
		t.Fatalf("expected one status post, got %d", posts.Load())
	}
	if len(got.Data.NextActions) != 2 {
		t.Fatalf("expected draft next actions, got %v", got.Data.NextActions)
	}
}

func TestLoginFallsBackToSeededLocalUser(t *testing.T) {
	svc, _ := newTestService(t, nil, nil)
	ctx := context.Background()

	if err := svc.EnsureSeedUsers(ctx, "admin-secret-1", "cashier-secret-1"); err != nil {
		t.Fatalf("seed users failed: %v", err)
	}

	got, err := svc.Login(ctx, domain.LoginRequest{Username: "admin", Password: "admin-secret-1"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if got.Source != domain.SourceLocal || got.Data.Role != domain.RoleAdmin {
		t.Fatalf("unexpected identity %+v", got)
	}

	if _, err := svc.Login(ctx, domain.LoginRequest{Username: "admin", Password: "wrong-password"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLoginRejectedByAPIDoesNotFallBack(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	svc, _ := newTestService(t, handler, nil)
	ctx := context.Background()
	if err := svc.EnsureSeedUsers(ctx, "admin-secret-1", "cashier-secret-1"); err != nil {
		t.Fatalf("seed users failed: %v", err)
	}

	if _, err := svc.Login(ctx, domain.LoginRequest{Username: "admin", Password: "admin-secret-1"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected api rejection to be final, got %v", err)
	}
}

func TestUserWriteThroughKeepsLocalPasswordHash(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"data":[{"id":"u1","name":"Admin Renamed","email":"admin@shop.test","roles":[{"name":"admin"}]}]}`)
	})
	svc, local := newTestService(t, handler, map[string]string{
		localstore.KeyUsers: `[{"id":"u1","name":"admin","email":"admin@shop.test","roles":["admin"],"password_hash":"$2a$10$hash"}]`,
	})

	got, err := svc.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("list users failed: %v", err)
	}
	if got.Data[0].PasswordHash != "" {
		t.Fatalf("password hash leaked to caller")
	}
	stored, err := local.Users.Get(context.Background(), "u1")
	if err != nil {
		t.Fatalf("read local user: %v", err)
	}
	if stored.Name != "Admin Renamed" || stored.PasswordHash != "$2a$10$hash" {
		t.Fatalf("unexpected stored user %+v", stored)
	}
}

func TestAssignRoleRejectsUnknownRole(t *testing.T) {
	svc, _ := newTestService(t, nil, nil)
	_, err := svc.AssignRole(context.Background(), "u1", domain.AssignRoleRequest{Role: "owner"})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestOnlySuperAdminGrantsSuperAdmin(t *testing.T) {
	var calls atomic.Int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	svc, local := newTestService(t, handler, map[string]string{
		localstore.KeyUsers: `[{"id":"u1","name":"root","email":"root@shop.test","roles":["super_admin"]},{"id":"u2","name":"ani","email":"ani@shop.test","roles":["cashier"]}]`,
	})
	admin := WithActor(context.Background(), domain.Actor{Username: "admin@shop.test", Role: domain.RoleAdmin})

	_, err := svc.CreateUser(admin, domain.UserRequest{Name: "Eve", Email: "eve@shop.test", Password: "eve-pass-123", Roles: []domain.Role{"SUPER_ADMIN"}})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected admin creating a super_admin to be forbidden, got %v", err)
	}
	if _, err := local.FindUser(context.Background(), "eve@shop.test"); err == nil {
		t.Fatalf("forbidden user was stored locally")
	}

	_, err = svc.UpdateUser(admin, "u2", domain.UserRequest{Name: "ani", Email: "ani@shop.test", Roles: []domain.Role{domain.RoleSuperAdmin}})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected admin promoting to super_admin to be forbidden, got %v", err)
	}
	_, err = svc.UpdateUser(admin, "u1", domain.UserRequest{Name: "root", Email: "root@shop.test", Roles: []domain.Role{domain.RoleCashier}})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected admin demoting a super_admin to be forbidden, got %v", err)
	}
	if _, err := svc.DeleteUser(admin, "u1"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected admin deleting a super_admin to be forbidden, got %v", err)
	}
	if _, err := svc.AssignRole(admin, "u2", domain.AssignRoleRequest{Role: domain.RoleSuperAdmin}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected admin assigning super_admin to be forbidden, got %v", err)
	}
	if calls.Load() != 0 {
		t.Fatalf("expected forbidden changes never to reach the api, got %d calls", calls.Load())
	}
	stored, err := local.Users.Get(context.Background(), "u1")
	if err != nil || !stored.HasRole(domain.RoleSuperAdmin) {
		t.Fatalf("expected super_admin to be untouched, got %+v (%v)", stored, err)
	}

	root := WithActor(context.Background(), domain.Actor{Username: "root@shop.test", Role: domain.RoleSuperAdmin})
	got, err := svc.UpdateUser(root, "u2", domain.UserRequest{Name: "ani", Email: "ani@shop.test", Roles: []domain.Role{domain.RoleSuperAdmin}})
	if err != nil {
		t.Fatalf("expected super_admin to promote, got %v", err)
	}
	if got.Source != domain.SourceLocal || !got.Data.HasRole(domain.RoleSuperAdmin) {
		t.Fatalf("unexpected promoted user %+v", got)
	}

	if _, err := svc.UpdateUser(admin, "u2", domain.UserRequest{Name: "ani", Email: "ani@shop.test", Roles: []domain.Role{domain.RoleCashier}}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected promoted user to be guarded, got %v", err)
	}
}

func TestSettingsFallBackToLegacyDocument(t *testing.T) {
	svc, _ := newTestService(t, nil, map[string]string{
		localstore.KeySettings: `{"business_name":"Barber Jaya","tax_rate":"0.11","rounding":{"rule":"nearest_100","mode":"normal"}}`,
	})

	got, err := svc.GetSettings(context.Background())
	if err != nil {
		t.Fatalf("get settings failed: %v", err)
	}
	if got.Source != domain.SourceLocal || got.Data.BusinessName != "Barber Jaya" {
		t.Fatalf("unexpected settings %+v", got)
	}

	_, err = svc.UpdateSettings(context.Background(), domain.Settings{BusinessName: "X", Rounding: domain.RoundingPolicy{Rule: "nearest_7"}})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid rounding rule to be rejected, got %v", err)
	}
}

func TestInvoiceFallsBackToSale(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/invoices/") {
			http.NotFound(w, r)
			return
		}
		_, _ = io.WriteString(w, `{"data":{"id":"s9","number":"INV-9","grand_total":"15050"}}`)
	})
	svc, _ := newTestService(t, handler, nil)

	got, err := svc.GetInvoice(context.Background(), "s9")
	if err != nil {
		t.Fatalf("get invoice failed: %v", err)
	}
	if got.Data.Number != "INV-9" || got.Source != domain.SourceAPI {
		t.Fatalf("unexpected invoice %+v", got)
	}
}

func TestBackupsListIsEmptyWhenAPIDown(t *testing.T) {
	svc, _ := newTestService(t, nil, nil)
	got, err := svc.ListBackups(context.Background())
	if err != nil {
		t.Fatalf("list backups failed: %v", err)
	}
	if got.Source != domain.SourceLocal || len(got.Data) != 0 {
		t.Fatalf("unexpected backups %+v", got)
	}
}

func TestReferenceListRejectsUnknownKind(t *testing.T) {
	svc, _ := newTestService(t, nil, map[string]string{localstore.KeySales: localSales})

	if _, err := svc.ReferenceList(context.Background(), "warehouses"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	barbers, err := svc.ReferenceList(context.Background(), ReferenceBarbers)
	if err != nil {
		t.Fatalf("barbers failed: %v", err)
	}
	if len(barbers.Data) != 1 || barbers.Data[0]["name"] != "Budi" {
		t.Fatalf("unexpected barbers %+v", barbers.Data)
	}
}
