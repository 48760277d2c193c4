package resources

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/Urientropy/centavo/internal/utils"
	"github.com/pkg/errors"
)

// Decimal is a fixed point value as the server serializes it: a JSON string
// such as "12.50". Plain JSON numbers are accepted too.
type Decimal string

func NewDecimal(f float64) Decimal {
	return Decimal(strconv.FormatFloat(f, 'f', 2, 64))
}

func (d *Decimal) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*d = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*d = Decimal(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return errors.Wrap(err, "decimal")
	}
	*d = Decimal(n.String())
	return nil
}

func (d Decimal) MarshalJSON() ([]byte, error) {
	if d == "" {
		return []byte("null"), nil
	}
	return json.Marshal(string(d))
}

// Float64 returns the value, or zero if it does not parse.
func (d Decimal) Float64() float64 {
	f, err := utils.ToFloat64(string(d))
	if err != nil {
		return 0
	}
	return f
}

func (d Decimal) String() string {
	return string(d)
}
