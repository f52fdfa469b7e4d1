package listings

import (
	"strings"

	"marketlens/pkg/model"
)

// WorldIndices is the catalog of global benchmark indices offered for
// comparison, keyed by their quote symbols.
var WorldIndices = []model.IndexInfo{
	{Symbol: "^GSPC", Name: "S&P 500", Region: "USA"},
	{Symbol: "^NDX", Name: "Nasdaq 100", Region: "USA"},
	{Symbol: "^NSEI", Name: "Nifty 50", Region: "India"},
	{Symbol: "^BSESN", Name: "Sensex", Region: "India"},
	{Symbol: "^FTSE", Name: "FTSE 100", Region: "UK"},
	{Symbol: "^N225", Name: "Nikkei 225", Region: "Japan"},
	{Symbol: "^GDAXI", Name: "DAX", Region: "Germany"},
	{Symbol: "000001.SS", Name: "Shanghai Composite", Region: "China"},
	{Symbol: "399001.SZ", Name: "Shenzhen Composite", Region: "China"},
	{Symbol: "^HSI", Name: "Hang Seng Index", Region: "Hong Kong"},
	{Symbol: "^AXJO", Name: "S&P/ASX 200", Region: "Australia"},
}

// NiftyBank is offered as an index filter for India on top of the
// world catalog.
var NiftyBank = model.IndexInfo{Symbol: "^NSEBANK", Name: "Nifty Bank", Region: "India"}

// markets are the stock-selection markets, with the quote-symbol
// suffix and display currency for each.
var markets = []model.MarketConfig{
	{Name: "India", Suffix: ".NS", Currency: "INR", Glyph: "₹"},
	{Name: "USA", Suffix: "", Currency: "USD", Glyph: "$"},
	{Name: "UK", Suffix: ".L", Currency: "GBP", Glyph: "£"},
	{Name: "Germany", Suffix: ".DE", Currency: "EUR", Glyph: "€"},
}

// Markets returns the supported stock markets.
func Markets() []model.MarketConfig {
	out := make([]model.MarketConfig, len(markets))
	copy(out, markets)
	return out
}

// MarketFor looks a market up by name (case-insensitive).
func MarketFor(name string) (model.MarketConfig, bool) {
	for _, m := range markets {
		if strings.EqualFold(m.Name, name) {
			return m, true
		}
	}
	return model.MarketConfig{}, false
}

// IndicesForMarket returns the index filters offered for one market.
func IndicesForMarket(market string) []model.IndexInfo {
	var out []model.IndexInfo
	for _, idx := range WorldIndices {
		if strings.EqualFold(idx.Region, market) {
			out = append(out, idx)
		}
	}
	if strings.EqualFold(market, NiftyBank.Region) {
		out = append(out, NiftyBank)
	}
	return out
}

// IndexFor resolves an index symbol against the catalog.
func IndexFor(symbol string) (model.IndexInfo, bool) {
	for _, idx := range WorldIndices {
		if idx.Symbol == symbol {
			return idx, true
		}
	}
	if NiftyBank.Symbol == symbol {
		return NiftyBank, true
	}
	return model.IndexInfo{}, false
}

// applySuffix appends the market suffix to a local symbol unless the
// symbol already carries it.
func applySuffix(symbol, suffix string) string {
	if suffix == "" || strings.HasSuffix(symbol, suffix) {
		return symbol
	}
	return symbol + suffix
}

// builtinListings are the fallback stock tables served when the live
// listing source for a market cannot be reached. Symbols are stored
// without the market suffix; Builtin applies it.
var builtinListings = map[string][]model.Listing{
	"India": {
		{Symbol: "RELIANCE", Name: "Reliance Industries", Indices: []string{"^NSEI"}},
		{Symbol: "TCS", Name: "Tata Consultancy Services", Indices: []string{"^NSEI"}},
		{Symbol: "INFY", Name: "Infosys", Indices: []string{"^NSEI"}},
		{Symbol: "HDFCBANK", Name: "HDFC Bank", Indices: []string{"^NSEI", "^NSEBANK"}},
		{Symbol: "ICICIBANK", Name: "ICICI Bank", Indices: []string{"^NSEI", "^NSEBANK"}},
		{Symbol: "TATAMOTORS", Name: "Tata Motors", Indices: []string{"^NSEI"}},
		{Symbol: "SBIN", Name: "State Bank of India", Indices: []string{"^NSEI", "^NSEBANK"}},
	},
	"USA": {
		{Symbol: "AAPL", Name: "Apple Inc.", Indices: []string{"^GSPC", "^NDX"}},
		{Symbol: "MSFT", Name: "Microsoft Corporation", Indices: []string{"^GSPC", "^NDX"}},
		{Symbol: "GOOGL", Name: "Alphabet Inc.", Indices: []string{"^GSPC", "^NDX"}},
		{Symbol: "AMZN", Name: "Amazon.com Inc.", Indices: []string{"^GSPC", "^NDX"}},
		{Symbol: "TSLA", Name: "Tesla Inc.", Indices: []string{"^GSPC", "^NDX"}},
		{Symbol: "NVDA", Name: "NVIDIA Corporation", Indices: []string{"^GSPC", "^NDX"}},
		{Symbol: "META", Name: "Meta Platforms Inc.", Indices: []string{"^GSPC", "^NDX"}},
	},
	"UK": {
		{Symbol: "RR", Name: "Rolls-Royce Holdings", Indices: []string{"^FTSE"}},
		{Symbol: "HSBA", Name: "HSBC Holdings", Indices: []string{"^FTSE"}},
		{Symbol: "BP", Name: "BP plc", Indices: []string{"^FTSE"}},
		{Symbol: "SHEL", Name: "Shell plc", Indices: []string{"^FTSE"}},
		{Symbol: "VOD", Name: "Vodafone Group", Indices: []string{"^FTSE"}},
	},
	"Germany": {
		{Symbol: "SIE", Name: "Siemens", Indices: []string{"^GDAXI"}},
		{Symbol: "BMW", Name: "BMW", Indices: []string{"^GDAXI"}},
		{Symbol: "VOW3", Name: "Volkswagen", Indices: []string{"^GDAXI"}},
		{Symbol: "SAP", Name: "SAP", Indices: []string{"^GDAXI"}},
		{Symbol: "ALV", Name: "Allianz", Indices: []string{"^GDAXI"}},
	},
}

// Builtin returns the fallback table for a market with the market
// suffix applied, or nil for an unknown market.
func Builtin(market string) []model.Listing {
	cfg, ok := MarketFor(market)
	if !ok {
		return nil
	}
	src := builtinListings[cfg.Name]
	out := make([]model.Listing, len(src))
	for i, l := range src {
		out[i] = model.Listing{
			Symbol:  applySuffix(l.Symbol, cfg.Suffix),
			Name:    l.Name,
			Indices: l.Indices,
		}
	}
	return out
}
