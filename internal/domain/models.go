package domain

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Role string

const (
	RoleSuperAdmin Role = "super_admin"
	RoleAdmin      Role = "admin"
	RoleManager    Role = "manager"
	RoleCashier    Role = "cashier"
	RoleBarber     Role = "barber"
)

var AllRoles = []Role{RoleSuperAdmin, RoleAdmin, RoleManager, RoleCashier, RoleBarber}

func ParseRole(raw string) (Role, bool) {
	role := Role(strings.ToLower(strings.TrimSpace(raw)))
	return role, role.Valid()
}

func (r Role) Valid() bool {
	for _, known := range AllRoles {
		if r == known {
			return true
		}
	}
	return false
}

// UnmarshalJSON accepts "admin" as well as {"name": "admin"}.
func (r *Role) UnmarshalJSON(data []byte) error {
	var label Label
	if err := label.UnmarshalJSON(data); err != nil {
		return err
	}
	*r = Role(strings.ToLower(string(label)))
	return nil
}

type TransferStatus string

const (
	TransferDraft     TransferStatus = "draft"
	TransferApproved  TransferStatus = "approved"
	TransferShipped   TransferStatus = "shipped"
	TransferReceived  TransferStatus = "received"
	TransferCancelled TransferStatus = "cancelled"
)

const (
	PaymentStatusPaid      = "paid"
	PaymentStatusPartial   = "partial"
	PaymentStatusUnpaid    = "unpaid"
	PaymentStatusVoid      = "void"
	PaymentStatusCancelled = "cancelled"
	PaymentStatusRefunded  = "refunded"
)

type SaleItem struct {
	ProductID ID              `json:"product_id,omitempty"`
	Name      string          `json:"name"`
	Qty       Quantity        `json:"qty"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Barber    string          `json:"barber,omitempty"`
}

// LineTotal prefers the recorded subtotal and derives it from qty and price
// when the API left it empty.
func (i SaleItem) LineTotal() decimal.Decimal {
	if !i.Subtotal.IsZero() {
		return i.Subtotal
	}
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Qty)))
}

type Payment struct {
	Method    string          `json:"method"`
	Amount    decimal.Decimal `json:"amount"`
	Reference string          `json:"reference,omitempty"`
}

type Sale struct {
	ID                 ID              `json:"id"`
	Number             string          `json:"number,omitempty"`
	Date               Timestamp       `json:"date"`
	CreatedAt          Timestamp       `json:"created_at"`
	UpdatedAt          Timestamp       `json:"updated_at"`
	Items              []SaleItem      `json:"items"`
	Subtotal           decimal.Decimal `json:"subtotal"`
	Discount           decimal.Decimal `json:"discount"`
	Tax                decimal.Decimal `json:"tax"`
	GrandTotal         decimal.Decimal `json:"grand_total"`
	PaidAmount         decimal.Decimal `json:"paid_amount"`
	ChangeAmount       decimal.Decimal `json:"change_amount"`
	PaymentStatus      string          `json:"payment_status,omitempty"`
	Payments           []Payment       `json:"payments,omitempty"`
	Cashier            string          `json:"cashier,omitempty"`
	RoundingAdjustment decimal.Decimal `json:"rounding_adjustment"`
	RoundingMode       string          `json:"rounding_mode,omitempty"`
	Currency           string          `json:"currency,omitempty"`
	FXRate             decimal.Decimal `json:"fx_rate"`
	FXAmount           decimal.Decimal `json:"fx_amount"`
}

// OccurredAt is the business date of the sale, falling back to created_at.
func (s Sale) OccurredAt() time.Time {
	if !s.Date.IsZero() {
		return s.Date.Time
	}
	return s.CreatedAt.Time
}

// Counted reports whether the sale contributes to revenue figures.
func (s Sale) Counted() bool {
	switch strings.ToLower(strings.TrimSpace(s.PaymentStatus)) {
	case PaymentStatusVoid, PaymentStatusCancelled, PaymentStatusRefunded:
		return false
	default:
		return true
	}
}

// Total is grand_total, or subtotal - discount + tax when the API omitted it.
func (s Sale) Total() decimal.Decimal {
	if !s.GrandTotal.IsZero() {
		return s.GrandTotal
	}
	subtotal := s.Subtotal
	if subtotal.IsZero() {
		for _, item := range s.Items {
			subtotal = subtotal.Add(item.LineTotal())
		}
	}
	return subtotal.Sub(s.Discount).Add(s.Tax)
}

type Expense struct {
	ID          ID              `json:"id"`
	Date        Timestamp       `json:"date"`
	Category    Label           `json:"category"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Notes       string          `json:"notes,omitempty"`
	CreatedAt   Timestamp       `json:"created_at"`
	UpdatedAt   Timestamp       `json:"updated_at"`
}

func (e Expense) OccurredAt() time.Time {
	if !e.Date.IsZero() {
		return e.Date.Time
	}
	return e.CreatedAt.Time
}

type ExpenseRequest struct {
	Date        string          `json:"date"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Notes       string          `json:"notes,omitempty"`
}

type Product struct {
	ID               ID              `json:"id"`
	Name             string          `json:"name"`
	SKU              string          `json:"sku"`
	Category         Label           `json:"category"`
	Price            decimal.Decimal `json:"price"`
	Stock            Quantity        `json:"stock"`
	Active           bool            `json:"active"`
	ImageURL         string          `json:"image_url,omitempty"`
	CostPrice        decimal.Decimal `json:"cost_price"`
	MarginPercentage decimal.Decimal `json:"margin_percentage"`
	Brand            Label           `json:"brand,omitempty"`
	Supplier         Label           `json:"supplier,omitempty"`
	DynamicFields    map[string]any  `json:"dynamic_fields,omitempty"`
	CreatedAt        Timestamp       `json:"created_at"`
	UpdatedAt        Timestamp       `json:"updated_at"`
}

// ProductRequest is the create/update payload. Nil fields are left untouched
// on update.
type ProductRequest struct {
	Name             *string          `json:"name,omitempty"`
	SKU              *string          `json:"sku,omitempty"`
	Category         *string          `json:"category,omitempty"`
	Price            *decimal.Decimal `json:"price,omitempty"`
	Stock            *int             `json:"stock,omitempty"`
	Active           *bool            `json:"active,omitempty"`
	ImageURL         *string          `json:"image_url,omitempty"`
	CostPrice        *decimal.Decimal `json:"cost_price,omitempty"`
	MarginPercentage *decimal.Decimal `json:"margin_percentage,omitempty"`
	Brand            *string          `json:"brand,omitempty"`
	Supplier         *string          `json:"supplier,omitempty"`
	DynamicFields    map[string]any   `json:"dynamic_fields,omitempty"`
}

type ProductFilter struct {
	Search   string
	Category string
	Page     int
	PerPage  int
}

type StockAdjustRequest struct {
	Delta  int    `json:"delta"`
	Reason string `json:"reason"`
}

type StockMovement struct {
	ID          ID        `json:"id"`
	ProductID   ID        `json:"product_id"`
	ProductName string    `json:"product_name"`
	Delta       Quantity  `json:"delta"`
	StockAfter  Quantity  `json:"stock_after"`
	Reason      string    `json:"reason"`
	CreatedAt   Timestamp `json:"created_at"`
	UpdatedAt   Timestamp `json:"updated_at"`
}

type LowStockAlert struct {
	ProductID ID       `json:"product_id"`
	Name      string   `json:"name"`
	SKU       string   `json:"sku"`
	Stock     Quantity `json:"stock"`
	Threshold int      `json:"threshold"`
}

type Barcode struct {
	ProductID ID     `json:"product_id"`
	Format    string `json:"format"`
	Value     string `json:"value"`
}

type Category struct {
	ID   ID     `json:"id,omitempty"`
	Name string `json:"name"`
}

type TransferItem struct {
	ID          ID       `json:"id"`
	ProductID   ID       `json:"product_id"`
	ProductName string   `json:"product_name,omitempty"`
	Quantity    Quantity `json:"quantity"`
}

type StockTransfer struct {
	ID           ID             `json:"id"`
	Number       string         `json:"number"`
	Status       TransferStatus `json:"status"`
	FromLocation string         `json:"from_location,omitempty"`
	ToLocation   string         `json:"to_location,omitempty"`
	FromBranchID ID             `json:"from_branch_id,omitempty"`
	ToBranchID   ID             `json:"to_branch_id,omitempty"`
	Items        []TransferItem `json:"items"`
	Notes        string         `json:"notes,omitempty"`
	CreatedAt    Timestamp      `json:"created_at"`
	UpdatedAt    Timestamp      `json:"updated_at"`
}

type TransferCreateRequest struct {
	FromLocation string                `json:"from_location,omitempty"`
	ToLocation   string                `json:"to_location,omitempty"`
	FromBranchID string                `json:"from_branch_id,omitempty"`
	ToBranchID   string                `json:"to_branch_id,omitempty"`
	Notes        string                `json:"notes,omitempty"`
	Items        []TransferItemRequest `json:"items,omitempty"`
}

type TransferItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type TransferStatusRequest struct {
	Status TransferStatus `json:"status"`
}

type User struct {
	ID           ID        `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Roles        []Role    `json:"roles"`
	PasswordHash string    `json:"password_hash,omitempty"`
	CreatedAt    Timestamp `json:"created_at"`
	UpdatedAt    Timestamp `json:"updated_at"`
}

// Public strips credentials before a user leaves the process.
func (u User) Public() User {
	u.PasswordHash = ""
	return u
}

func (u User) HasRole(role Role) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// PrimaryRole is the most privileged role the user holds.
func (u User) PrimaryRole() Role {
	for _, role := range AllRoles {
		if u.HasRole(role) {
			return role
		}
	}
	return ""
}

type UserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password,omitempty"`
	Roles    []Role `json:"roles,omitempty"`
}

type AssignRoleRequest struct {
	Role Role `json:"role"`
}

type Backup struct {
	ID        ID        `json:"id"`
	Filename  string    `json:"filename"`
	Size      int64     `json:"size"`
	CreatedAt Timestamp `json:"created_at"`
}

const (
	RoundingNone        = "none"
	RoundingNearest100  = "nearest_100"
	RoundingNearest1000 = "nearest_1000"

	RoundingModeNormal   = "normal"
	RoundingModeDiscount = "discount"
)

type RoundingPolicy struct {
	Rule string `json:"rule"`
	Mode string `json:"mode"`
}

type Settings struct {
	BusinessName  string          `json:"business_name"`
	Address       string          `json:"address,omitempty"`
	Phone         string          `json:"phone,omitempty"`
	ReceiptFooter string          `json:"receipt_footer,omitempty"`
	TaxRate       decimal.Decimal `json:"tax_rate"`
	Rounding      RoundingPolicy  `json:"rounding"`
	Currency      string          `json:"currency,omitempty"`
	PrinterName   string          `json:"printer_name,omitempty"`
	PaperWidth    int             `json:"paper_width,omitempty"`
	UpdatedAt     Timestamp       `json:"updated_at"`
}

type SystemLog struct {
	ID        ID             `json:"id"`
	Level     string         `json:"level"`
	Message   string         `json:"message"`
	Context   map[string]any `json:"context,omitempty"`
	CreatedAt Timestamp      `json:"created_at"`
}

// ReferenceItem is a branch, barber, service or payable row. Only id and name
// are interpreted; the rest is passed through.
type ReferenceItem map[string]any

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        Role   `json:"role"`
	ExpiresAt   string `json:"expires_at"`
	Source      Source `json:"source"`
}

type Actor struct {
	Username string
	Role     Role
	Token    string
}

type PrinterTest struct {
	HTML         string `json:"html"`
	EscposBase64 string `json:"escpos_base64"`
	PreviewText  string `json:"preview_text"`
}

// RawJSON is used when a payload is forwarded without interpretation.
type RawJSON = json.RawMessage

func IsNullJSON(data []byte) bool {
	return len(bytes.TrimSpace(data)) == 0 || bytes.Equal(bytes.TrimSpace(data), []byte("null"))
}
