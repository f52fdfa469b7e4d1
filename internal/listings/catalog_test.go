package listings

import (
	"testing"

	"marketlens/pkg/model"
)

func TestMarketFor(t *testing.T) {
	tests := []struct {
		name       string
		market     string
		wantOK     bool
		wantSuffix string
	}{
		{"exact name", "India", true, ".NS"},
		{"case insensitive", "india", true, ".NS"},
		{"usa has no suffix", "USA", true, ""},
		{"unknown market", "Mars", false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, ok := MarketFor(tt.market)
			if ok != tt.wantOK {
				t.Fatalf("Expected ok=%v for %q, got %v", tt.wantOK, tt.market, ok)
			}
			if ok && cfg.Suffix != tt.wantSuffix {
				t.Errorf("Expected suffix %q, got %q", tt.wantSuffix, cfg.Suffix)
			}
		})
	}
}

func TestIndicesForMarket(t *testing.T) {
	india := IndicesForMarket("India")
	if !containsIndex(india, "^NSEI") || !containsIndex(india, "^BSESN") {
		t.Errorf("Expected India to include ^NSEI and ^BSESN, got %v", indexSymbols(india))
	}
	if !containsIndex(india, "^NSEBANK") {
		t.Errorf("Expected India to include ^NSEBANK, got %v", indexSymbols(india))
	}

	usa := IndicesForMarket("USA")
	if !containsIndex(usa, "^GSPC") || !containsIndex(usa, "^NDX") {
		t.Errorf("Expected USA to include ^GSPC and ^NDX, got %v", indexSymbols(usa))
	}
	if containsIndex(usa, "^NSEBANK") {
		t.Error("Expected ^NSEBANK to be offered only for India")
	}

	if got := IndicesForMarket("Mars"); len(got) != 0 {
		t.Errorf("Expected no indices for unknown market, got %v", indexSymbols(got))
	}
}

func TestIndexFor(t *testing.T) {
	idx, ok := IndexFor("^GSPC")
	if !ok {
		t.Fatal("Expected ^GSPC to resolve")
	}
	if idx.Region != "USA" {
		t.Errorf("Expected region USA, got %q", idx.Region)
	}

	if _, ok := IndexFor("^NSEBANK"); !ok {
		t.Error("Expected ^NSEBANK to resolve")
	}
	if _, ok := IndexFor("^NOPE"); ok {
		t.Error("Expected unknown index to not resolve")
	}
}

func TestApplySuffix(t *testing.T) {
	tests := []struct {
		symbol, suffix, want string
	}{
		{"RELIANCE", ".NS", "RELIANCE.NS"},
		{"RELIANCE.NS", ".NS", "RELIANCE.NS"},
		{"AAPL", "", "AAPL"},
		{"SAP", ".DE", "SAP.DE"},
	}
	for _, tt := range tests {
		if got := applySuffix(tt.symbol, tt.suffix); got != tt.want {
			t.Errorf("applySuffix(%q, %q): expected %q, got %q", tt.symbol, tt.suffix, tt.want, got)
		}
	}
}

func TestBuiltin(t *testing.T) {
	india := Builtin("India")
	if len(india) == 0 {
		t.Fatal("Expected builtin India listings")
	}
	for _, l := range india {
		if len(l.Symbol) < 3 || l.Symbol[len(l.Symbol)-3:] != ".NS" {
			t.Errorf("Expected .NS suffix on builtin India symbol, got %q", l.Symbol)
		}
	}

	usa := Builtin("USA")
	if len(usa) == 0 {
		t.Fatal("Expected builtin USA listings")
	}
	if usa[0].Symbol != "AAPL" {
		t.Errorf("Expected unsuffixed USA symbol AAPL, got %q", usa[0].Symbol)
	}

	if got := Builtin("Mars"); got != nil {
		t.Errorf("Expected nil for unknown market, got %v", got)
	}
}

func containsIndex(indices []model.IndexInfo, symbol string) bool {
	for _, idx := range indices {
		if idx.Symbol == symbol {
			return true
		}
	}
	return false
}

func indexSymbols(indices []model.IndexInfo) []string {
	out := make([]string, len(indices))
	for i, idx := range indices {
		out[i] = idx.Symbol
	}
	return out
}
