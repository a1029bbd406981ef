package warehouse

import (
	"fmt"
	"strings"
)

// Instrument classes a warehouse object can belong to. They double as the
// directory names of the cold storage layout.
const (
	InstrumentIndex   = "Index"
	InstrumentOptions = "Options"
	InstrumentFutures = "Futures"
	InstrumentStocks  = "Stocks"
	InstrumentUnknown = "Unknown"
)

// Components identify one warehouse object: NSE_Options_NIFTY_20240125_21000_call
// breaks down into exchange NSE, instrument Options, underlying NIFTY and so on.
type Components struct {
	Exchange   string
	Instrument string
	Underlying string
	Expiry     string
	Strike     string
	OptionType string
}

// TableName renders the canonical relation name for a set of components,
// without the schema qualifier.
func (c Components) TableName() string {
	switch {
	case c.Instrument == InstrumentOptions && c.Expiry != "" && c.Strike != "" && c.OptionType != "":
		return fmt.Sprintf("%s_Options_%s_%s_%s_%s", c.Exchange, c.Underlying, c.Expiry, c.Strike, c.OptionType)
	case c.Instrument == InstrumentFutures:
		return fmt.Sprintf("%s_Futures_%s", c.Exchange, c.Underlying)
	case c.Instrument == InstrumentIndex:
		return fmt.Sprintf("%s_Index_%s", c.Exchange, c.Underlying)
	case c.Instrument == InstrumentStocks:
		return fmt.Sprintf("%s_Stocks_%s", c.Exchange, c.Underlying)
	default:
		return fmt.Sprintf("%s_%s_%s", c.Exchange, c.Instrument, c.Underlying)
	}
}

// ParseSymbol splits a feed symbol such as NSE_NIFTY_20240125_21000_CE into
// its components. The segment decides the instrument for ambiguous symbols.
func ParseSymbol(symbol, segment string) Components {
	parts := strings.Split(symbol, "_")
	part := func(i int) string {
		if i < len(parts) {
			return parts[i]
		}
		return ""
	}

	looksLikeOption := len(parts) >= 5 && (isDigits(part(2)) || len(part(2)) == 8)
	switch {
	case segment == "fo" || segment == "bsefo" || looksLikeOption:
		return Components{
			Exchange:   part(0),
			Instrument: InstrumentOptions,
			Underlying: part(1),
			Expiry:     part(2),
			Strike:     part(3),
			OptionType: NormalizeOptionType(part(4)),
		}
	case segment == "eq" || segment == "bseeq":
		return Components{Exchange: part(0), Instrument: InstrumentStocks, Underlying: part(1)}
	case segment == "ind" || segment == "bseind":
		return Components{Exchange: part(0), Instrument: InstrumentIndex, Underlying: part(1)}
	default:
		return Components{Exchange: part(0), Instrument: InstrumentUnknown, Underlying: part(1)}
	}
}

// NormalizeOptionType folds the venue spellings of an option side into the
// canonical call/put used in relation names. Unknown spellings map to "".
func NormalizeOptionType(raw string) string {
	switch strings.ToLower(raw) {
	case "ce", "call":
		return "call"
	case "pe", "put":
		return "put"
	default:
		return ""
	}
}

// SanitizeName makes an arbitrary label safe for use inside a relation name.
// Separators become underscores, anything else non-alphanumeric is dropped,
// and names starting with a digit get an S_ prefix.
func SanitizeName(name string) string {
	if name == "" {
		return "UNKNOWN"
	}
	replaced := strings.NewReplacer("-", "_", ".", "_", " ", "_").Replace(name)

	var b strings.Builder
	for _, r := range replaced {
		if r == '_' || (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			b.WriteRune(r)
		}
	}
	sanitized := b.String()
	if sanitized == "" {
		return "UNKNOWN"
	}
	if sanitized[0] >= '0' && sanitized[0] <= '9' {
		sanitized = "S_" + sanitized
	}
	return sanitized
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
