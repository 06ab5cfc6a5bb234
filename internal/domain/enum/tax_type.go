package enum

import (
	"database/sql/driver"
	"encoding/json"
)

// TaxType represents a product's VAT classification, used when building
// itemized gateway invoices and the tax receipt lines.
type TaxType int

const (
	TaxTypeVATable TaxType = 0
	TaxTypeVATFree TaxType = 1
)

func (t TaxType) String() string {
	names := [...]string{"VATable", "VATFree"}
	if int(t) < 0 || int(t) >= len(names) {
		return "VATable"
	}
	return names[t]
}

func (t TaxType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *TaxType) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		var i int
		if err := json.Unmarshal(data, &i); err != nil {
			return err
		}
		*t = TaxType(i)
		return nil
	}
	switch str {
	case "VATable":
		*t = TaxTypeVATable
	case "VATFree":
		*t = TaxTypeVATFree
	}
	return nil
}

func (t TaxType) Value() (driver.Value, error) {
	return int64(t), nil
}

func (t *TaxType) Scan(value interface{}) error {
	if value == nil {
		*t = TaxTypeVATable
		return nil
	}
	switch v := value.(type) {
	case int64:
		*t = TaxType(v)
	case int:
		*t = TaxType(v)
	}
	return nil
}
