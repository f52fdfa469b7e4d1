package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/olekukonko/tablewriter"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"marketlens/internal/compare"
	"marketlens/internal/config"
	"marketlens/internal/listings"
	"marketlens/internal/provider"
	"marketlens/internal/scheduler"
	"marketlens/internal/session"
	"marketlens/internal/web"
	"marketlens/pkg/model"
)

const version = "1.0.0"

var (
	cfgFile   string
	period    string
	startDate string
	endDate   string
	market    string
	indexSym  string
	format    string
	port      int
	verbose   bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "marketlens",
		Short: "Global market comparator and analyzer",
		Long: `MarketLens compares indices and stocks across world markets on a
common percent-return scale and drills into single symbols.

Examples:
  marketlens serve
  marketlens compare ^NSEI ^GSPC --period 1y
  marketlens compare RELIANCE.NS TCS.NS INFY.NS --start 2024-01-01
  marketlens deepdive AAPL --period 6mo
  marketlens listings --market India --index ^NSEI`,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "show detailed output")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newCompareCmd())
	rootCmd.AddCommand(newDeepDiveCmd())
	rootCmd.AddCommand(newListingsCmd())
	rootCmd.AddCommand(newIndicesCmd())
	rootCmd.AddCommand(newVersionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the dashboard web server",
		RunE:  runServe,
	}
	cmd.Flags().IntVar(&port, "port", 0, "listen port (overrides config)")
	return cmd
}

func newCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare SYMBOL...",
		Short: "Compare symbols on a common percent-return scale",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runCompare,
	}
	addRangeFlags(cmd)
	cmd.Flags().StringVar(&format, "format", "table", "output format: table, json")
	return cmd
}

func newDeepDiveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deepdive SYMBOL",
		Short: "Show price highlights and recent candles for one symbol",
		Args:  cobra.ExactArgs(1),
		RunE:  runDeepDive,
	}
	addRangeFlags(cmd)
	cmd.Flags().StringVar(&format, "format", "table", "output format: table, json")
	return cmd
}

func newListingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "listings",
		Short: "Show the ticker table for a market",
		RunE:  runListings,
	}
	cmd.Flags().StringVar(&market, "market", "", "market name (default from config)")
	cmd.Flags().StringVar(&indexSym, "index", "", "restrict to an index's constituents, e.g. ^NSEI")
	return cmd
}

func newIndicesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "indices",
		Short: "List the supported world indices",
		RunE:  runIndices,
	}
	cmd.Flags().StringVar(&market, "market", "", "only indices of this market")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("MarketLens v%s\n", version)
			fmt.Println("Global market comparator and analyzer")
		},
	}
}

func addRangeFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&period, "period", "", "period preset: 1mo, 3mo, 6mo, 1y, 2y, 5y, 10y, max")
	cmd.Flags().StringVar(&startDate, "start", "", "range start (YYYY-MM-DD), overrides --period")
	cmd.Flags().StringVar(&endDate, "end", "", "range end (YYYY-MM-DD), defaults to today")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if port > 0 {
		cfg.Server.Port = port
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	quotes := provider.NewFallbackProvider(createProviders(cfg)...)
	if !quotes.IsAvailable() {
		return fmt.Errorf("no available data providers")
	}
	if verbose {
		names := make([]string, 0, len(quotes.Providers()))
		for _, p := range quotes.Providers() {
			names = append(names, p.Name())
		}
		log.Printf("Using providers: %s", strings.Join(names, ", "))
	}

	secret := cfg.Server.SessionSecret
	if secret == "" {
		secret = uuid.NewString()
		log.Printf("[SESSION] no session secret configured, using an ephemeral one (sessions reset on restart)")
	}

	sessions := session.NewManager(
		[]byte(secret),
		time.Duration(cfg.Server.SessionTTLMin)*time.Minute,
		quotes,
		time.Duration(cfg.Cache.PriceTTLSeconds)*time.Second,
	)
	loader := listings.NewLoader(
		time.Duration(cfg.Listings.TimeoutSeconds)*time.Second,
		time.Duration(cfg.Cache.ListingTTLSeconds)*time.Second,
		cfg.Listings.RateLimit,
	)
	comparer := compare.New(60 * time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sched := scheduler.New(ctx, loader, sessions)
	if err := sched.Register(cfg.Listings.RefreshCron); err != nil {
		return fmt.Errorf("scheduling refresh: %w", err)
	}
	sched.Start()
	defer sched.Stop()

	// Warm the listings memo so the first page load doesn't wait on
	// the scrapers.
	go sched.RunRefreshNow()

	srv := web.NewServer(cfg, sessions, loader, comparer)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Println("Shutting down...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Shutdown error: %v", err)
		}
		cancel()
	}()

	if err := srv.Start(cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}

func runCompare(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	symbols := make([]string, 0, len(args))
	for _, a := range args {
		symbols = append(symbols, strings.ToUpper(strings.TrimSpace(a)))
	}

	from, to, err := resolveRange(cfg)
	if err != nil {
		return err
	}

	quotes := provider.NewFallbackProvider(createProviders(cfg)...)
	if !quotes.IsAvailable() {
		return fmt.Errorf("no available data providers")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nInterrupted.")
		cancel()
	}()

	comparer := compare.New(60 * time.Second)

	bar := newProgressBar(len(symbols), "Fetching")
	comparer.SetProgress(func(done, total int) {
		bar.Set(done)
	})

	result, err := comparer.Compare(ctx, quotes, symbols, from, to)
	if err != nil {
		return fmt.Errorf("comparing: %w", err)
	}
	bar.Finish()
	fmt.Println()

	if format == "json" {
		return outputCompareJSON(result, from, to)
	}
	return outputCompareTable(result, from, to)
}

func runDeepDive(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	symbol := strings.ToUpper(strings.TrimSpace(args[0]))

	from, to, err := resolveRange(cfg)
	if err != nil {
		return err
	}

	quotes := provider.NewFallbackProvider(createProviders(cfg)...)
	if !quotes.IsAvailable() {
		return fmt.Errorf("no available data providers")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	comparer := compare.New(60 * time.Second)
	dive, err := comparer.Dive(ctx, quotes, symbol, from, to)
	if err != nil {
		return fmt.Errorf("deep dive: %w", err)
	}

	if format == "json" {
		out := struct {
			From    string             `json:"from"`
			To      string             `json:"to"`
			Series  model.PriceSeries  `json:"series"`
			Returns model.ReturnSeries `json:"returns"`
			Stats   model.SummaryStats `json:"stats"`
			Elapsed string             `json:"elapsed"`
		}{
			From:    from.Format("2006-01-02"),
			To:      to.Format("2006-01-02"),
			Series:  dive.Series,
			Returns: dive.Returns,
			Stats:   dive.Stats,
			Elapsed: dive.Elapsed.String(),
		}
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(out)
	}

	s := dive.Stats
	fmt.Printf("[%s] %s .. %s\n", symbol, from.Format("2006-01-02"), to.Format("2006-01-02"))
	fmt.Printf("  Current: %.2f (%+.2f%% over period)\n", s.CurrentPrice, s.TotalReturn)
	fmt.Printf("  High: %.2f on %s | Low: %.2f on %s\n",
		s.PeriodHigh, s.PeriodHighDate.Format("02 Jan 06"),
		s.PeriodLow, s.PeriodLowDate.Format("02 Jan 06"))
	fmt.Printf("  Best day: %+.2f%% | Worst day: %+.2f%% | Avg daily move: %.2f%%\n",
		s.BestDayReturn, s.WorstDayReturn, s.AvgDailyVolatility)

	candles := dive.Series.Candles
	tail := candles
	if len(tail) > 10 {
		tail = tail[len(tail)-10:]
		fmt.Printf("\nLast %d of %d sessions:\n", len(tail), len(candles))
	} else {
		fmt.Printf("\n%d sessions:\n", len(tail))
	}

	table := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeader([]string{"Date", "Open", "High", "Low", "Close", "Volume"}),
	)
	for _, c := range tail {
		table.Append([]string{
			c.Time.Format("2006-01-02"),
			fmt.Sprintf("%.2f", c.Open),
			fmt.Sprintf("%.2f", c.High),
			fmt.Sprintf("%.2f", c.Low),
			fmt.Sprintf("%.2f", c.Close),
			fmt.Sprintf("%d", c.Volume),
		})
	}
	table.Render()

	fmt.Printf("\nFetched in %s\n", dive.Elapsed.Round(time.Millisecond))
	return nil
}

func runListings(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if market == "" {
		market = cfg.Defaults.Market
	}
	mcfg, ok := listings.MarketFor(market)
	if !ok {
		return fmt.Errorf("unknown market %q", market)
	}

	loader := listings.NewLoader(
		time.Duration(cfg.Listings.TimeoutSeconds)*time.Second,
		time.Duration(cfg.Cache.ListingTTLSeconds)*time.Second,
		cfg.Listings.RateLimit,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	list, source, err := loader.Listings(ctx, mcfg.Name)
	if err != nil {
		return fmt.Errorf("loading listings: %w", err)
	}

	if indexSym != "" {
		members, _, err := loader.Constituents(ctx, indexSym)
		if err != nil {
			return fmt.Errorf("loading constituents of %s: %w", indexSym, err)
		}
		keep := make(map[string]bool, len(members))
		for _, m := range members {
			keep[m] = true
		}
		filtered := list[:0]
		for _, l := range list {
			if keep[l.Symbol] {
				filtered = append(filtered, l)
			}
		}
		list = filtered
	}

	fmt.Printf("%s listings (%d symbols, source: %s)\n\n", mcfg.Name, len(list), source)

	table := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeader([]string{"Symbol", "Name", "Indices"}),
	)
	for _, l := range list {
		name := l.Name
		if len(name) > 40 {
			name = name[:40] + "..."
		}
		table.Append([]string{l.Symbol, name, strings.Join(l.Indices, ", ")})
	}
	table.Render()
	return nil
}

func runIndices(cmd *cobra.Command, args []string) error {
	var indices []model.IndexInfo
	if market != "" {
		if _, ok := listings.MarketFor(market); !ok {
			return fmt.Errorf("unknown market %q", market)
		}
		indices = listings.IndicesForMarket(market)
	} else {
		indices = append(indices, listings.WorldIndices...)
		indices = append(indices, listings.NiftyBank)
	}

	table := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeader([]string{"Symbol", "Name", "Region"}),
	)
	for _, idx := range indices {
		table.Append([]string{idx.Symbol, idx.Name, idx.Region})
	}
	table.Render()
	return nil
}

func outputCompareTable(result *compare.Result, from, to time.Time) error {
	if len(result.Returns) == 0 && len(result.Errors) == 0 {
		fmt.Println("No data for the requested symbols.")
		return nil
	}

	if len(result.Returns) > 0 {
		type row struct {
			symbol string
			stats  model.SummaryStats
		}
		rows := make([]row, 0, len(result.Returns))
		for _, series := range result.Returns {
			rows = append(rows, row{series.Symbol, result.Stats[series.Symbol]})
		}
		sort.Slice(rows, func(i, j int) bool {
			return rows[i].stats.TotalReturn > rows[j].stats.TotalReturn
		})

		fmt.Printf("Performance %s .. %s:\n\n", from.Format("2006-01-02"), to.Format("2006-01-02"))

		table := tablewriter.NewTable(os.Stdout,
			tablewriter.WithHeader([]string{"Symbol", "Return", "Best Day", "Worst Day", "Avg Move", "Current"}),
		)
		for _, r := range rows {
			table.Append([]string{
				r.symbol,
				fmt.Sprintf("%+.2f%%", r.stats.TotalReturn),
				fmt.Sprintf("%+.2f%%", r.stats.BestDayReturn),
				fmt.Sprintf("%+.2f%%", r.stats.WorstDayReturn),
				fmt.Sprintf("%.2f%%", r.stats.AvgDailyVolatility),
				fmt.Sprintf("%.2f", r.stats.CurrentPrice),
			})
		}
		table.Render()

		best, worst := rows[0], rows[len(rows)-1]
		fmt.Printf("\nBest performer:  %s (%+.2f%%)\n", best.symbol, best.stats.TotalReturn)
		fmt.Printf("Worst performer: %s (%+.2f%%)\n", worst.symbol, worst.stats.TotalReturn)
	}

	if t := result.Truncation; t != nil {
		fmt.Printf("\nNote: late listings in range (%d day gap): %s\n",
			t.GapDays, strings.Join(t.LateSymbols, ", "))
		fmt.Println("Each series is anchored to its own first close.")
	}

	if len(result.Errors) > 0 {
		fmt.Printf("\n%d symbol(s) failed:\n", len(result.Errors))
		symbols := make([]string, 0, len(result.Errors))
		for sym := range result.Errors {
			symbols = append(symbols, sym)
		}
		sort.Strings(symbols)
		for _, sym := range symbols {
			e := result.Errors[sym]
			fmt.Printf("  %s: %s (%s)\n", sym, e.Reason, e.Kind)
		}
	}

	fmt.Printf("\nFetched %d symbol(s) in %s\n",
		len(result.Returns)+len(result.Errors), result.Elapsed.Round(time.Millisecond))
	return nil
}

func outputCompareJSON(result *compare.Result, from, to time.Time) error {
	out := struct {
		From       string                         `json:"from"`
		To         string                         `json:"to"`
		Returns    []model.ReturnSeries           `json:"returns"`
		Stats      map[string]model.SummaryStats  `json:"stats"`
		Errors     map[string]compare.SymbolError `json:"errors,omitempty"`
		Truncation interface{}                    `json:"truncation,omitempty"`
		Elapsed    string                         `json:"elapsed"`
	}{
		From:    from.Format("2006-01-02"),
		To:      to.Format("2006-01-02"),
		Returns: result.Returns,
		Stats:   result.Stats,
		Errors:  result.Errors,
		Elapsed: result.Elapsed.String(),
	}
	if result.Truncation != nil {
		out.Truncation = result.Truncation
	}
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(out)
}

// resolveRange turns the range flags into concrete dates. Explicit
// start/end win over the period preset.
func resolveRange(cfg *config.Config) (time.Time, time.Time, error) {
	if startDate != "" {
		from, err := time.Parse("2006-01-02", startDate)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --start %q (want YYYY-MM-DD)", startDate)
		}
		to := time.Now().UTC()
		if endDate != "" {
			to, err = time.Parse("2006-01-02", endDate)
			if err != nil {
				return time.Time{}, time.Time{}, fmt.Errorf("invalid --end %q (want YYYY-MM-DD)", endDate)
			}
		}
		if to.Before(from) {
			return time.Time{}, time.Time{}, fmt.Errorf("--end is before --start")
		}
		return from, to, nil
	}
	if endDate != "" {
		return time.Time{}, time.Time{}, fmt.Errorf("--end requires --start")
	}

	p := period
	if p == "" {
		p = cfg.Defaults.Period
	}
	return compare.RangeForPeriod(p, time.Now().UTC())
}

func newProgressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]█[reset]",
			SaucerHead:    "[green]█[reset]",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}

func createProviders(cfg *config.Config) []provider.Provider {
	var providers []provider.Provider

	// Finnhub (primary when configured - higher rate limit)
	if cfg.API.Finnhub.Key != "" {
		providers = append(providers, provider.NewFinnhubProvider(cfg.API.Finnhub.Key, cfg.API.Finnhub.RateLimit))
	}

	// Alpha Vantage (secondary)
	if cfg.API.AlphaVantage.Key != "" {
		providers = append(providers, provider.NewAlphaVantageProvider(cfg.API.AlphaVantage.Key, cfg.API.AlphaVantage.RateLimit))
	}

	// Yahoo Finance (fallback - needs no key)
	providers = append(providers, provider.NewYahooProvider(cfg.API.Yahoo.RateLimit))

	return providers
}
