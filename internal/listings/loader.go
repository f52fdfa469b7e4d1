package listings

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"

	"marketlens/internal/ratelimit"
	"marketlens/pkg/model"
)

// sourceURLs collects the upstream endpoints so tests can point the
// loader at local servers.
type sourceURLs struct {
	nseEquity    string
	nseNifty50   string
	nseNiftyBank string
	wikiSP500    string
	wikiDAX      string
	wikiFTSE     string
}

var defaultSources = sourceURLs{
	nseEquity:    "https://archives.nseindia.com/content/equities/EQUITY_L.csv",
	nseNifty50:   "https://archives.nseindia.com/content/indices/ind_nifty50list.csv",
	nseNiftyBank: "https://archives.nseindia.com/content/indices/ind_niftybanklist.csv",
	wikiSP500:    "https://en.wikipedia.org/wiki/List_of_S%26P_500_companies",
	wikiDAX:      "https://en.wikipedia.org/wiki/DAX",
	wikiFTSE:     "https://en.wikipedia.org/wiki/FTSE_100_Index",
}

// Table columns recognized in Wikipedia constituent tables.
var (
	wikiSymbolCols = []string{"Symbol", "Ticker"}
	wikiNameCols   = []string{"Security", "Company"}
)

type listingEntry struct {
	listings  []model.Listing
	fetchedAt time.Time
}

type constituentEntry struct {
	symbols   []string
	fetchedAt time.Time
}

// Loader fetches live ticker listings and index constituents from the
// NSE archive (CSV) and Wikipedia (HTML tables), memoizing results.
// When a live source fails, the built-in catalog tables are served
// instead so the dashboard keeps working offline.
type Loader struct {
	client   *resty.Client
	limiters *ratelimit.MultiLimiter
	ttl      time.Duration
	sources  sourceURLs

	mu       sync.Mutex
	listMemo map[string]listingEntry
	consMemo map[string]constituentEntry
}

// NewLoader creates a listings loader. ttl bounds memo freshness;
// perHostPerMin rate-limits each upstream host separately.
func NewLoader(timeout, ttl time.Duration, perHostPerMin int) *Loader {
	client := resty.New()
	client.SetTimeout(timeout)
	client.SetHeader("User-Agent", "Mozilla/5.0")

	limiters := ratelimit.NewMultiLimiter()
	limiters.Add("nse", perHostPerMin)
	limiters.Add("wikipedia", perHostPerMin)

	return &Loader{
		client:   client,
		limiters: limiters,
		ttl:      ttl,
		sources:  defaultSources,
		listMemo: make(map[string]listingEntry),
		consMemo: make(map[string]constituentEntry),
	}
}

// Listings returns the full ticker table for a market, scraped live
// when possible and memoized for the TTL. On scrape failure the
// built-in table is returned with SourceBuiltin; the failure is not
// memoized, so the next call retries the live source.
func (l *Loader) Listings(ctx context.Context, market string) ([]model.Listing, model.ListingSource, error) {
	cfg, ok := MarketFor(market)
	if !ok {
		return nil, "", fmt.Errorf("unknown market %q", market)
	}

	l.mu.Lock()
	if entry, ok := l.listMemo[cfg.Name]; ok && time.Since(entry.fetchedAt) < l.ttl {
		l.mu.Unlock()
		return entry.listings, model.SourceLive, nil
	}
	l.mu.Unlock()

	listings, err := l.scrapeListings(ctx, cfg)
	if err != nil {
		log.Printf("[LISTINGS] %s: live fetch failed (%v), serving builtin table", cfg.Name, err)
		return Builtin(cfg.Name), model.SourceBuiltin, nil
	}

	l.mu.Lock()
	l.listMemo[cfg.Name] = listingEntry{listings: listings, fetchedAt: time.Now()}
	l.mu.Unlock()

	return listings, model.SourceLive, nil
}

// Constituents returns the member symbols of an index, suffixed for
// the quote provider. Unknown indices and markets are errors; scrape
// failures fall back to the built-in tables where they cover the index.
func (l *Loader) Constituents(ctx context.Context, indexSymbol string) ([]string, model.ListingSource, error) {
	idx, ok := IndexFor(indexSymbol)
	if !ok {
		return nil, "", fmt.Errorf("unknown index %q", indexSymbol)
	}

	l.mu.Lock()
	if entry, ok := l.consMemo[indexSymbol]; ok && time.Since(entry.fetchedAt) < l.ttl {
		l.mu.Unlock()
		return entry.symbols, model.SourceLive, nil
	}
	l.mu.Unlock()

	symbols, err := l.scrapeConstituents(ctx, indexSymbol)
	if err != nil {
		builtin := builtinConstituents(idx)
		if len(builtin) == 0 {
			return nil, "", err
		}
		log.Printf("[LISTINGS] %s: constituent fetch failed (%v), serving builtin subset", indexSymbol, err)
		return builtin, model.SourceBuiltin, nil
	}

	l.mu.Lock()
	l.consMemo[indexSymbol] = constituentEntry{symbols: symbols, fetchedAt: time.Now()}
	l.mu.Unlock()

	return symbols, model.SourceLive, nil
}

// Refresh re-scrapes every market and index, replacing memo entries.
// Failures are logged and leave the previous entries in place.
func (l *Loader) Refresh(ctx context.Context) {
	for _, cfg := range Markets() {
		listings, err := l.scrapeListings(ctx, cfg)
		if err != nil {
			log.Printf("[LISTINGS] refresh %s: %v", cfg.Name, err)
			continue
		}
		l.mu.Lock()
		l.listMemo[cfg.Name] = listingEntry{listings: listings, fetchedAt: time.Now()}
		l.mu.Unlock()
		log.Printf("[LISTINGS] refreshed %s (%d symbols)", cfg.Name, len(listings))
	}

	for _, symbol := range []string{"^NSEI", "^NSEBANK", "^GSPC", "^GDAXI", "^FTSE"} {
		symbols, err := l.scrapeConstituents(ctx, symbol)
		if err != nil {
			log.Printf("[LISTINGS] refresh %s: %v", symbol, err)
			continue
		}
		l.mu.Lock()
		l.consMemo[symbol] = constituentEntry{symbols: symbols, fetchedAt: time.Now()}
		l.mu.Unlock()
	}
}

// scrapeListings pulls the live ticker table for one market.
func (l *Loader) scrapeListings(ctx context.Context, cfg model.MarketConfig) ([]model.Listing, error) {
	switch cfg.Name {
	case "India":
		body, err := l.fetch(ctx, "nse", l.sources.nseEquity)
		if err != nil {
			return nil, err
		}
		return parseCSVListings(strings.NewReader(body), "SYMBOL", "NAME OF COMPANY", cfg.Suffix)
	case "USA":
		body, err := l.fetch(ctx, "wikipedia", l.sources.wikiSP500)
		if err != nil {
			return nil, err
		}
		return parseWikiConstituents(body, cfg.Suffix)
	case "Germany":
		body, err := l.fetch(ctx, "wikipedia", l.sources.wikiDAX)
		if err != nil {
			return nil, err
		}
		return parseWikiConstituents(body, cfg.Suffix)
	case "UK":
		body, err := l.fetch(ctx, "wikipedia", l.sources.wikiFTSE)
		if err != nil {
			return nil, err
		}
		return parseWikiConstituents(body, cfg.Suffix)
	default:
		return nil, fmt.Errorf("no live source for market %q", cfg.Name)
	}
}

// scrapeConstituents pulls the live member list for one index.
func (l *Loader) scrapeConstituents(ctx context.Context, indexSymbol string) ([]string, error) {
	switch indexSymbol {
	case "^NSEI":
		body, err := l.fetch(ctx, "nse", l.sources.nseNifty50)
		if err != nil {
			return nil, err
		}
		return parseCSVSymbols(strings.NewReader(body), "Symbol", ".NS")
	case "^NSEBANK":
		body, err := l.fetch(ctx, "nse", l.sources.nseNiftyBank)
		if err != nil {
			return nil, err
		}
		return parseCSVSymbols(strings.NewReader(body), "Symbol", ".NS")
	case "^GSPC":
		return l.wikiSymbols(ctx, l.sources.wikiSP500, "")
	case "^GDAXI":
		return l.wikiSymbols(ctx, l.sources.wikiDAX, ".DE")
	case "^FTSE":
		return l.wikiSymbols(ctx, l.sources.wikiFTSE, ".L")
	default:
		return nil, fmt.Errorf("no constituent source for index %q", indexSymbol)
	}
}

func (l *Loader) wikiSymbols(ctx context.Context, url, suffix string) ([]string, error) {
	body, err := l.fetch(ctx, "wikipedia", url)
	if err != nil {
		return nil, err
	}
	listings, err := parseWikiConstituents(body, suffix)
	if err != nil {
		return nil, err
	}
	symbols := make([]string, len(listings))
	for i, listing := range listings {
		symbols[i] = listing.Symbol
	}
	return symbols, nil
}

// fetch performs one rate-limited GET and returns the body.
func (l *Loader) fetch(ctx context.Context, host, url string) (string, error) {
	if err := l.limiters.Wait(ctx, host); err != nil {
		return "", err
	}
	resp, err := l.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return "", fmt.Errorf("fetching %s: %w", url, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return "", fmt.Errorf("fetching %s: status %d", url, resp.StatusCode())
	}
	return resp.String(), nil
}

// builtinConstituents filters the fallback tables for members of idx.
func builtinConstituents(idx model.IndexInfo) []string {
	var symbols []string
	for _, listing := range Builtin(idx.Region) {
		for _, member := range listing.Indices {
			if member == idx.Symbol {
				symbols = append(symbols, listing.Symbol)
				break
			}
		}
	}
	return symbols
}

// parseCSVListings reads a header-keyed CSV into listings, applying
// the market suffix to each symbol.
func parseCSVListings(r io.Reader, symbolCol, nameCol, suffix string) ([]model.Listing, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading csv header: %w", err)
	}
	symIdx, nameIdx := -1, -1
	for i, col := range header {
		switch strings.TrimSpace(col) {
		case symbolCol:
			symIdx = i
		case nameCol:
			nameIdx = i
		}
	}
	if symIdx == -1 || nameIdx == -1 {
		return nil, fmt.Errorf("csv missing %q or %q column", symbolCol, nameCol)
	}

	var listings []model.Listing
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading csv row: %w", err)
		}
		if len(record) <= symIdx || len(record) <= nameIdx {
			continue
		}
		symbol := strings.TrimSpace(record[symIdx])
		if symbol == "" {
			continue
		}
		listings = append(listings, model.Listing{
			Symbol: applySuffix(symbol, suffix),
			Name:   strings.TrimSpace(record[nameIdx]),
		})
	}
	if len(listings) == 0 {
		return nil, fmt.Errorf("csv contained no rows")
	}
	return listings, nil
}

// parseCSVSymbols reads just the symbol column of an index CSV.
func parseCSVSymbols(r io.Reader, symbolCol, suffix string) ([]string, error) {
	listings, err := parseCSVListings(r, symbolCol, symbolCol, suffix)
	if err != nil {
		return nil, err
	}
	symbols := make([]string, len(listings))
	for i, listing := range listings {
		symbols[i] = listing.Symbol
	}
	return symbols, nil
}

// parseWikiConstituents finds the first wikitable carrying both a
// ticker column and a company-name column and extracts its rows.
func parseWikiConstituents(html, suffix string) ([]model.Listing, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parsing html: %w", err)
	}

	var listings []model.Listing
	doc.Find("table.wikitable").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		symIdx, nameIdx := -1, -1
		table.Find("tr").First().Find("th").Each(func(i int, th *goquery.Selection) {
			text := headerText(th)
			if symIdx == -1 && matchesAny(text, wikiSymbolCols) {
				symIdx = i
			}
			if nameIdx == -1 && matchesAny(text, wikiNameCols) {
				nameIdx = i
			}
		})
		if symIdx == -1 || nameIdx == -1 {
			return true // not the constituents table, keep scanning
		}

		table.Find("tr").Each(func(i int, row *goquery.Selection) {
			if i == 0 {
				return
			}
			cells := row.Find("td")
			if cells.Length() <= symIdx || cells.Length() <= nameIdx {
				return
			}
			symbol := strings.TrimSpace(cells.Eq(symIdx).Text())
			if symbol == "" {
				return
			}
			listings = append(listings, model.Listing{
				Symbol: applySuffix(symbol, suffix),
				Name:   strings.TrimSpace(cells.Eq(nameIdx).Text()),
			})
		})
		return false // first matching table wins
	})

	if len(listings) == 0 {
		return nil, fmt.Errorf("no constituent table found")
	}
	return listings, nil
}

// headerText returns a th cell's text with footnote markers removed.
func headerText(th *goquery.Selection) string {
	text := strings.TrimSpace(th.Text())
	if i := strings.Index(text, "["); i >= 0 {
		text = strings.TrimSpace(text[:i])
	}
	return text
}

func matchesAny(text string, candidates []string) bool {
	for _, c := range candidates {
		if strings.EqualFold(text, c) {
			return true
		}
	}
	return false
}
