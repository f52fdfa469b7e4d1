package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"marketlens/internal/analytics"
	"marketlens/internal/compare"
	"marketlens/internal/config"
	"marketlens/internal/listings"
	"marketlens/internal/provider"
	"marketlens/pkg/model"
)

func main() {
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println("=== MarketLens Data Source Test ===")

	// 1. Provider availability
	fmt.Println("\n[1] Providers")
	yahoo := provider.NewYahooProvider(cfg.API.Yahoo.RateLimit)
	providers := []provider.Provider{yahoo}
	if cfg.API.Finnhub.Key != "" {
		providers = append(providers, provider.NewFinnhubProvider(cfg.API.Finnhub.Key, cfg.API.Finnhub.RateLimit))
	}
	if cfg.API.AlphaVantage.Key != "" {
		providers = append(providers, provider.NewAlphaVantageProvider(cfg.API.AlphaVantage.Key, cfg.API.AlphaVantage.RateLimit))
	}
	for _, p := range providers {
		fmt.Printf("    %s: available=%v rate=%d/min\n", p.Name(), p.IsAvailable(), p.RateLimit())
	}

	ctx := context.Background()
	from, to, _ := compare.RangeForPeriod("1mo", time.Now().UTC())

	// 2. Raw candle fetch
	fmt.Println("\n[2] Yahoo - GetDailyCandles for ^GSPC (S&P 500)")
	start := time.Now()
	candles, err := yahoo.GetDailyCandles(ctx, "^GSPC", from, to)
	elapsed := time.Since(start)
	if err != nil {
		fmt.Printf("    ERROR: %v\n", err)
	} else {
		fmt.Printf("    OK: %d candles in %s\n", len(candles), elapsed)
		if len(candles) > 0 {
			last := candles[len(candles)-1]
			fmt.Printf("    Last: %s O=%.2f H=%.2f L=%.2f C=%.2f V=%d\n",
				last.Time.Format("2006-01-02"), last.Open, last.High, last.Low, last.Close, last.Volume)
		}
	}

	// 3. Analytics pipeline on a few world indices
	fmt.Println("\n[3] Return pipeline test")
	normalizer := analytics.NewNormalizer()
	for _, sym := range []string{"^NSEI", "^GSPC", "^FTSE"} {
		start := time.Now()
		candles, err := yahoo.GetDailyCandles(ctx, sym, from, to)
		elapsed := time.Since(start)
		if err != nil {
			fmt.Printf("    %s: FETCH ERROR - %v (%.1fs)\n", sym, err, elapsed.Seconds())
			continue
		}

		series := model.PriceSeries{Symbol: sym, Candles: candles}
		ret, err := normalizer.Returns(series)
		if err != nil {
			fmt.Printf("    %s: NORMALIZE ERROR - %v\n", sym, err)
			continue
		}
		stats, err := analytics.Summarize(series)
		if err != nil {
			fmt.Printf("    %s: STATS ERROR - %v\n", sym, err)
			continue
		}
		fmt.Printf("    %s: %d points, return=%+.2f%% avg_move=%.2f%% (%.1fs)\n",
			sym, len(ret.Points), stats.TotalReturn, stats.AvgDailyVolatility, elapsed.Seconds())
	}

	// 4. Listings scrape
	fmt.Println("\n[4] Listings scrape test")
	loader := listings.NewLoader(
		time.Duration(cfg.Listings.TimeoutSeconds)*time.Second,
		time.Hour,
		cfg.Listings.RateLimit,
	)
	for _, market := range []string{"India", "USA"} {
		start := time.Now()
		list, source, err := loader.Listings(ctx, market)
		elapsed := time.Since(start)
		if err != nil {
			fmt.Printf("    %s: ERROR - %v (%.1fs)\n", market, err, elapsed.Seconds())
			continue
		}
		fmt.Printf("    %s: %d symbols from %s source (%.1fs)\n", market, len(list), source, elapsed.Seconds())
	}

	fmt.Println("\n=== Test Complete ===")
}
