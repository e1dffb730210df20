package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Location is used for timestamps that arrive without a zone ("2024-01-01" or
// "2024-01-01 10:00:00"). main sets it from TIMEZONE.
var Location = time.UTC

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// Timestamp decodes the date formats the tenant API emits and always encodes
// as RFC 3339.
type Timestamp struct {
	time.Time
}

func At(t time.Time) Timestamp {
	return Timestamp{Time: t}
}

func ParseTimestamp(raw string) (Timestamp, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Timestamp{}, nil
	}
	for _, layout := range timestampLayouts {
		var (
			parsed time.Time
			err    error
		)
		if strings.Contains(layout, "Z07") {
			parsed, err = time.Parse(layout, raw)
		} else {
			parsed, err = time.ParseInLocation(layout, raw, Location)
		}
		if err == nil {
			return Timestamp{Time: parsed}, nil
		}
	}
	return Timestamp{}, fmt.Errorf("unrecognised timestamp %q", raw)
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = Timestamp{}
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		// Unix seconds.
		secs, convErr := strconv.ParseInt(string(data), 10, 64)
		if convErr != nil {
			return err
		}
		*t = Timestamp{Time: time.Unix(secs, 0).UTC()}
		return nil
	}
	parsed, err := ParseTimestamp(raw)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.Format(time.RFC3339Nano))
}

// ID accepts both numeric and string identifiers.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string {
	return string(id)
}

// Label is a display name that the API sends either as a plain string or as
// an object carrying a "name" field (categories, suppliers, brands).
type Label string

func (l *Label) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*l = ""
		return nil
	}
	if len(data) > 0 && data[0] == '{' {
		var obj struct {
			Name  string `json:"name"`
			Title string `json:"title"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		name := obj.Name
		if name == "" {
			name = obj.Title
		}
		*l = Label(strings.TrimSpace(name))
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*l = Label(strings.TrimSpace(s))
	return nil
}

func (l Label) String() string {
	return string(l)
}

// Quantity is a whole count (item qty, stock on hand) that the API sends as
// a number or as a numeric string. Fractions are truncated.
type Quantity int

func (q *Quantity) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*q = 0
		return nil
	}
	raw := string(data)
	if data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			*q = 0
			return nil
		}
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return fmt.Errorf("quantity %s is not a number", data)
	}
	*q = Quantity(value.IntPart())
	return nil
}

func (q Quantity) Int() int {
	return int(q)
}
