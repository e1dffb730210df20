package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestSaleDecodesLooseAPIShapes(t *testing.T) {
	raw := `{"id":42,"date":"2024-01-01 09:30:00","grand_total":"50000","items":[{"name":"Haircut","qty":2,"unit_price":25000},{"name":"Wax","qty":"2","unit_price":"10000"}],"payment_status":"PAID"}`

	var sale Sale
	if err := json.Unmarshal([]byte(raw), &sale); err != nil {
		t.Fatalf("decode sale: %v", err)
	}
	if sale.ID != "42" {
		t.Fatalf("expected numeric id to decode as \"42\", got %q", sale.ID)
	}
	want := time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC)
	if !sale.OccurredAt().Equal(want) {
		t.Fatalf("expected %s, got %s", want, sale.OccurredAt())
	}
	if !sale.Total().Equal(decimal.NewFromInt(50000)) {
		t.Fatalf("expected total 50000, got %s", sale.Total())
	}
	if !sale.Items[0].LineTotal().Equal(decimal.NewFromInt(50000)) {
		t.Fatalf("expected derived line total 50000, got %s", sale.Items[0].LineTotal())
	}
	if sale.Items[1].Qty != 2 || !sale.Items[1].LineTotal().Equal(decimal.NewFromInt(20000)) {
		t.Fatalf("expected string qty to decode, got %+v", sale.Items[1])
	}
	if !sale.Counted() {
		t.Fatalf("expected paid sale to count")
	}
}

func TestQuantityAcceptsNumbersAndStrings(t *testing.T) {
	cases := map[string]Quantity{
		`3`:      3,
		`"7"`:    7,
		`" 12 "`: 12,
		`"4.0"`:  4,
		`2.9`:    2,
		`null`:   0,
		`""`:     0,
		`-1`:     -1,
	}
	for raw, want := range cases {
		var q Quantity
		if err := json.Unmarshal([]byte(raw), &q); err != nil {
			t.Fatalf("decode %s: %v", raw, err)
		}
		if q != want {
			t.Fatalf("decode %s: expected %d, got %d", raw, want, q)
		}
	}

	var q Quantity
	if err := json.Unmarshal([]byte(`"lots"`), &q); err == nil {
		t.Fatalf("expected non-numeric quantity to fail")
	}

	var transfer StockTransfer
	if err := json.Unmarshal([]byte(`{"id":7,"status":"draft","items":[{"id":1,"product_id":2,"quantity":"5"}]}`), &transfer); err != nil {
		t.Fatalf("decode transfer: %v", err)
	}
	if transfer.Items[0].Quantity != 5 {
		t.Fatalf("expected quantity 5, got %d", transfer.Items[0].Quantity)
	}
}

func TestSaleTotalDerivedWhenGrandTotalMissing(t *testing.T) {
	sale := Sale{
		Items:         []SaleItem{{Name: "Pomade", Qty: 1, UnitPrice: decimal.NewFromInt(40000)}},
		Discount:      decimal.NewFromInt(5000),
		Tax:           decimal.NewFromInt(1000),
		PaymentStatus: "Void",
	}
	if !sale.Total().Equal(decimal.NewFromInt(36000)) {
		t.Fatalf("expected 36000, got %s", sale.Total())
	}
	if sale.Counted() {
		t.Fatalf("expected void sale to be excluded")
	}
}

func TestTimestampFormats(t *testing.T) {
	jakarta := time.FixedZone("WIB", 7*3600)
	previous := Location
	Location = jakarta
	t.Cleanup(func() { Location = previous })

	cases := map[string]time.Time{
		`"2024-01-02"`:                time.Date(2024, 1, 2, 0, 0, 0, 0, jakarta),
		`"2024-01-02T08:00:00Z"`:      time.Date(2024, 1, 2, 8, 0, 0, 0, time.UTC),
		`"2024-01-02 10:15:00"`:       time.Date(2024, 1, 2, 10, 15, 0, 0, jakarta),
		`1704182400`:                  time.Unix(1704182400, 0),
		`"2024-01-02T10:15:00+07:00"`: time.Date(2024, 1, 2, 3, 15, 0, 0, time.UTC),
	}
	for raw, want := range cases {
		var ts Timestamp
		if err := json.Unmarshal([]byte(raw), &ts); err != nil {
			t.Fatalf("decode %s: %v", raw, err)
		}
		if !ts.Equal(want) {
			t.Fatalf("decode %s: expected %s, got %s", raw, want, ts.Time)
		}
	}

	var ts Timestamp
	if err := json.Unmarshal([]byte(`"yesterday"`), &ts); err == nil {
		t.Fatalf("expected unknown format to fail")
	}
	if out, _ := json.Marshal(Timestamp{}); string(out) != "null" {
		t.Fatalf("expected zero timestamp to encode as null, got %s", out)
	}
}

func TestLabelAndRoleAcceptObjects(t *testing.T) {
	var product Product
	if err := json.Unmarshal([]byte(`{"id":"p1","category":{"id":3,"name":" Grooming "},"brand":"Layrite"}`), &product); err != nil {
		t.Fatalf("decode product: %v", err)
	}
	if product.Category != "Grooming" || product.Brand != "Layrite" {
		t.Fatalf("unexpected labels %q %q", product.Category, product.Brand)
	}

	var user User
	if err := json.Unmarshal([]byte(`{"id":1,"roles":[{"name":"Manager"},"cashier"]}`), &user); err != nil {
		t.Fatalf("decode user: %v", err)
	}
	if user.PrimaryRole() != RoleManager || !user.HasRole(RoleCashier) {
		t.Fatalf("unexpected roles %v", user.Roles)
	}
	if _, ok := ParseRole("owner"); ok {
		t.Fatalf("expected unknown role to be rejected")
	}
}
