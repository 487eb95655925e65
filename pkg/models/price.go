package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/shopspring/decimal"
)

// Price is a monetary amount for zone pricing and ticket purchases.
//
// The relational schema stores it as NUMERIC through decimal's Valuer/Scanner.
// Documents store it as a plain CBOR number so that price fields stay numeric
// regardless of how the caller supplied them. JSON input accepts numbers and
// numeric strings ("75", "75.50"); JSON output is always a number.
type Price struct {
	decimal.Decimal
}

func NewPrice(value float64) Price {
	return Price{Decimal: decimal.NewFromFloat(value)}
}

func NewPriceFromDecimal(d decimal.Decimal) Price {
	return Price{Decimal: d}
}

func ParsePrice(s string) (Price, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return Price{}, fmt.Errorf("invalid price %q: %w", s, err)
	}
	return Price{Decimal: d}, nil
}

// Equal reports whether two prices hold the same amount.
func (p Price) Equal(other Price) bool {
	return p.Decimal.Equal(other.Decimal)
}

func (p Price) MarshalJSON() ([]byte, error) {
	return []byte(p.Decimal.String()), nil
}

func (p *Price) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		p.Decimal = decimal.Zero
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
	}
	parsed, err := ParsePrice(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

func (p Price) MarshalCBOR() ([]byte, error) {
	f, _ := p.Decimal.Float64()
	return cbor.Marshal(f)
}

func (p *Price) UnmarshalCBOR(data []byte) error {
	var raw any
	if err := cbor.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to unmarshal price: %w", err)
	}
	d, err := decimalFromAny(raw)
	if err != nil {
		return err
	}
	p.Decimal = d
	return nil
}

func (p Price) Value() (driver.Value, error) {
	return p.Decimal.Value()
}

func (p *Price) Scan(value any) error {
	if value == nil {
		p.Decimal = decimal.Zero
		return nil
	}
	return p.Decimal.Scan(value)
}

func (Price) GormDataType() string { return "numeric" }

func decimalFromAny(raw any) (decimal.Decimal, error) {
	switch v := raw.(type) {
	case nil:
		return decimal.Zero, nil
	case float64:
		return decimal.NewFromFloat(v), nil
	case float32:
		return decimal.NewFromFloat32(v), nil
	case uint64:
		return decimal.NewFromString(strconv.FormatUint(v, 10))
	case int64:
		return decimal.NewFromInt(v), nil
	case string:
		return decimal.NewFromString(strings.TrimSpace(v))
	case cbor.Tag:
		// SurrealDB decimals arrive as a tagged string
		if s, ok := v.Content.(string); ok {
			return decimal.NewFromString(s)
		}
		return decimal.Zero, fmt.Errorf("unsupported price tag %d", v.Number)
	default:
		return decimal.Zero, fmt.Errorf("cannot convert %T to price", raw)
	}
}
