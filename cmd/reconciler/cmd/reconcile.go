package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"consignment-reconciliation-service/cmd/reconciler/config"
	"consignment-reconciliation-service/internal/models"
	"consignment-reconciliation-service/internal/reconciler"
	"consignment-reconciliation-service/internal/reporter"
	"consignment-reconciliation-service/internal/sources"
	"consignment-reconciliation-service/internal/store"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flags for the reconcile command
var (
	settlementFile string
	salesFile      string
	promoSalesFile string
	breakageFile   string
	promoProducts  string
	mode           string
	priceTolerance string
	outputFormat   string
	outputFile     string
	includeOK      bool
	saveSession    bool
	storeBackend   string
	sessionDir     string
	redisAddr      string
)

// reconcileCmd represents the reconcile command
var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Reconcile a settlement statement against sales and breakage records",
	Long: `Reconcile joins a consignment settlement statement with the sales,
promotional-sales and inventory-breakage records for the same period,
classifies quantity and price divergences per (branch, product) line,
and computes the bounded settlement quantities and their values.

This command requires a settlement file (.xlsx, .xls or .csv). The sales,
promotional-sales and breakage files are optional; an absent source simply
contributes zero quantities.

Examples:
  # Basic reconciliation
  reconciler reconcile --settlement-file acerto.xlsx --sales-file vendas.xls

  # Promotional action settlement
  reconciler reconcile --settlement-file acerto.xlsx \
    --promo-sales-file vendas_acao.xls --mode promotional \
    --promo-products 9781111111111,9782222222222

  # Full set of sources, xlsx report
  reconciler reconcile --settlement-file acerto.xlsx --sales-file vendas.xls \
    --breakage-file contagem.xlsx --output-format xlsx --output-file report.xlsx

  # Save a session for later overrides
  reconciler reconcile --settlement-file acerto.xlsx --sales-file vendas.xls \
    --save-session`,

	PreRunE: validateReconcileFlags,
	RunE:    runReconcile,
}

func init() {
	rootCmd.AddCommand(reconcileCmd)

	// Source flags
	reconcileCmd.Flags().StringVarP(&settlementFile, "settlement-file", "s", "", "path to the settlement statement file (required)")
	reconcileCmd.Flags().StringVar(&salesFile, "sales-file", "", "path to the sales extract file")
	reconcileCmd.Flags().StringVar(&promoSalesFile, "promo-sales-file", "", "path to the promotional sales extract file")
	reconcileCmd.Flags().StringVar(&breakageFile, "breakage-file", "", "path to the inventory count file")

	// Engine flags
	reconcileCmd.Flags().StringVarP(&mode, "mode", "m", "standard", "reconciliation mode: standard, promotional")
	reconcileCmd.Flags().StringVar(&promoProducts, "promo-products", "", "comma-separated product ids in the promotional set")
	reconcileCmd.Flags().StringVar(&priceTolerance, "price-tolerance", "", "price divergence tolerance (default 0.01)")

	// Output flags
	reconcileCmd.Flags().StringVarP(&outputFormat, "output-format", "f", "console", "output format: console, json, csv, xlsx")
	reconcileCmd.Flags().StringVarP(&outputFile, "output-file", "o", "", "output file path (default: stdout)")
	reconcileCmd.Flags().BoolVar(&includeOK, "include-ok", false, "include non-divergent lines in the report")

	// Session flags
	reconcileCmd.Flags().BoolVar(&saveSession, "save-session", false, "persist the result as a session for later overrides")
	reconcileCmd.Flags().StringVar(&storeBackend, "store", "file", "session store backend: file, redis")
	reconcileCmd.Flags().StringVar(&sessionDir, "session-dir", "", "directory for file-backed sessions")
	reconcileCmd.Flags().StringVar(&redisAddr, "redis-addr", "localhost:6379", "redis address for the redis store backend")

	// Mark required flags
	reconcileCmd.MarkFlagRequired("settlement-file")

	// Bind flags to viper
	viper.BindPFlag("settlement-file", reconcileCmd.Flags().Lookup("settlement-file"))
	viper.BindPFlag("sales-file", reconcileCmd.Flags().Lookup("sales-file"))
	viper.BindPFlag("promo-sales-file", reconcileCmd.Flags().Lookup("promo-sales-file"))
	viper.BindPFlag("breakage-file", reconcileCmd.Flags().Lookup("breakage-file"))
	viper.BindPFlag("mode", reconcileCmd.Flags().Lookup("mode"))
	viper.BindPFlag("promo-products", reconcileCmd.Flags().Lookup("promo-products"))
	viper.BindPFlag("price-tolerance", reconcileCmd.Flags().Lookup("price-tolerance"))
	viper.BindPFlag("output-format", reconcileCmd.Flags().Lookup("output-format"))
	viper.BindPFlag("output-file", reconcileCmd.Flags().Lookup("output-file"))
	viper.BindPFlag("include-ok", reconcileCmd.Flags().Lookup("include-ok"))
	viper.BindPFlag("save-session", reconcileCmd.Flags().Lookup("save-session"))
	viper.BindPFlag("store", reconcileCmd.Flags().Lookup("store"))
	viper.BindPFlag("session-dir", reconcileCmd.Flags().Lookup("session-dir"))
	viper.BindPFlag("redis-addr", reconcileCmd.Flags().Lookup("redis-addr"))
}

func validateReconcileFlags(cmd *cobra.Command, args []string) error {
	// Get values from viper (allows override from config file)
	settlementFile = viper.GetString("settlement-file")
	salesFile = viper.GetString("sales-file")
	promoSalesFile = viper.GetString("promo-sales-file")
	breakageFile = viper.GetString("breakage-file")
	mode = viper.GetString("mode")
	promoProducts = viper.GetString("promo-products")
	priceTolerance = viper.GetString("price-tolerance")
	outputFormat = viper.GetString("output-format")
	outputFile = viper.GetString("output-file")
	includeOK = viper.GetBool("include-ok")
	saveSession = viper.GetBool("save-session")
	storeBackend = viper.GetString("store")
	sessionDir = viper.GetString("session-dir")
	redisAddr = viper.GetString("redis-addr")

	// Validate required flags
	if settlementFile == "" {
		return fmt.Errorf("settlement-file is required")
	}

	// Validate file existence
	if err := validateFileExists(settlementFile, "settlement file"); err != nil {
		return err
	}
	for _, optional := range []struct {
		path, description string
	}{
		{salesFile, "sales file"},
		{promoSalesFile, "promotional sales file"},
		{breakageFile, "breakage file"},
	} {
		if optional.path == "" {
			continue
		}
		if err := validateFileExists(optional.path, optional.description); err != nil {
			return err
		}
	}

	// Validate mode
	if !reconciler.Mode(mode).IsValid() {
		return fmt.Errorf("invalid mode '%s'. Valid modes: standard, promotional", mode)
	}

	// Validate output format
	validFormats := map[string]bool{"console": true, "json": true, "csv": true, "xlsx": true}
	if !validFormats[outputFormat] {
		return fmt.Errorf("invalid output format '%s'. Valid formats: console, json, csv, xlsx", outputFormat)
	}

	// Validate output file directory exists if specified
	if outputFile != "" {
		dir := filepath.Dir(outputFile)
		if dir != "." {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				return fmt.Errorf("output directory does not exist: %s", dir)
			}
		}
	}

	return nil
}

func validateFileExists(filePath, description string) error {
	if filePath == "" {
		return fmt.Errorf("%s path cannot be empty", description)
	}

	info, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return fmt.Errorf("%s does not exist: %s", description, filePath)
	}
	if err != nil {
		return fmt.Errorf("error accessing %s: %w", description, err)
	}

	if info.IsDir() {
		return fmt.Errorf("%s is a directory, expected a file: %s", description, filePath)
	}

	// Check if file is readable
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("%s is not readable: %w", description, err)
	}
	file.Close()

	return nil
}

// loadSource reads and parses an optional positional-layout source file.
func loadSource(path string, schema *sources.SalesSchema) ([]models.CanonicalLine, error) {
	if path == "" {
		return nil, nil
	}
	table, err := sources.ReadWorkbookFile(path)
	if err != nil {
		return nil, err
	}
	return sources.ParseSales(table, schema), nil
}

func runReconcile(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	if viper.GetBool("verbose") {
		fmt.Fprintf(os.Stderr, "Starting reconciliation...\n")
		fmt.Fprintf(os.Stderr, "Settlement file: %s\n", settlementFile)
		if salesFile != "" {
			fmt.Fprintf(os.Stderr, "Sales file: %s\n", salesFile)
		}
		fmt.Fprintf(os.Stderr, "Mode: %s\n", mode)
	}

	// Create configurations
	engineConfig, err := config.CreateEngineConfig(mode, priceTolerance)
	if err != nil {
		return fmt.Errorf("failed to create engine config: %w", err)
	}

	engine, err := reconciler.NewEngine(engineConfig)
	if err != nil {
		return fmt.Errorf("failed to create engine: %w", err)
	}

	// Parse sources
	settlementTable, err := sources.ReadWorkbookFile(settlementFile)
	if err != nil {
		return err
	}
	settlement, err := sources.ParseSettlement(settlementTable, config.CreateSettlementSchema())
	if err != nil {
		return err
	}

	salesSchema := config.CreateSalesSchema()
	sales, err := loadSource(salesFile, salesSchema)
	if err != nil {
		return err
	}
	promoSales, err := loadSource(promoSalesFile, salesSchema)
	if err != nil {
		return err
	}

	var breakage []models.CanonicalLine
	if breakageFile != "" {
		breakageTable, err := sources.ReadWorkbookFile(breakageFile)
		if err != nil {
			return err
		}
		breakage = sources.ParseBreakage(breakageTable, config.CreateBreakageSchema())
	}

	// Build and settle the table
	inputs := &reconciler.Inputs{
		Settlement:    settlement.Lines,
		Sales:         sales,
		PromoSales:    promoSales,
		Breakage:      breakage,
		PromoProducts: models.ParsePromoSet(promoProducts),
	}

	table, err := engine.BuildTable(inputs)
	if err != nil {
		return err
	}

	states := engine.Settle(table, nil, engine.DefaultPolicy())
	summaries, totals := engine.Summarize(states, sources.BranchGrossTotals(sales))

	report := &reporter.Report{
		Mode:        mode,
		Supplier:    settlement.Supplier,
		GeneratedAt: time.Now(),
		Table:       states,
		Summaries:   summaries,
		Totals:      totals,
	}

	// Persist the session before rendering so the id can be reported
	if saveSession {
		session, err := persistSession(ctx, states, summaries, totals, settlement)
		if err != nil {
			return err
		}
		report.SessionID = session.ID
		fmt.Fprintf(os.Stderr, "Session saved: %s\n", session.ID)
	}

	return renderReport(report, outputFormat, outputFile, includeOK)
}

// persistSession writes the settled table to the configured store.
func persistSession(ctx context.Context, states []models.SettlementState,
	summaries []models.BranchSummary, totals models.GrandTotals,
	settlement *sources.SettlementResult) (*store.Session, error) {

	settings := config.DefaultStoreSettings()
	settings.Backend = storeBackend
	settings.RedisAddr = redisAddr
	if sessionDir != "" {
		settings.SessionDir = sessionDir
	}

	sessionStore, err := config.CreateStore(ctx, settings)
	if err != nil {
		return nil, err
	}
	defer sessionStore.Close()

	session := store.NewSession(mode, store.DefaultTTL)
	session.Supplier = settlement.Supplier
	session.Branch = settlement.Branch
	session.Table = states

	// Keep the gross sales totals so later resettles can rebuild summaries.
	session.GrossSales = make(map[string]decimal.Decimal, len(summaries))
	for _, s := range summaries {
		session.GrossSales[s.Branch] = s.GrossSalesTotal
	}

	if err := sessionStore.Save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// renderReport writes the report to the configured destination.
func renderReport(report *reporter.Report, format, path string, withOK bool) error {
	reportConfig, err := config.CreateReportConfig(format, withOK)
	if err != nil {
		return err
	}
	reportGenerator, err := reporter.NewReportGenerator(reportConfig)
	if err != nil {
		return fmt.Errorf("failed to create report generator: %w", err)
	}

	var output *os.File
	if path != "" {
		output, err = os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer output.Close()
	} else {
		output = os.Stdout
	}

	if err := reportGenerator.GenerateReport(report, output); err != nil {
		return fmt.Errorf("failed to generate report: %w", err)
	}

	if viper.GetBool("verbose") {
		divergent := 0
		for i := range report.Table {
			if report.Table[i].QtyStatus != models.QtyStatusOK {
				divergent++
			}
		}
		fmt.Fprintf(os.Stderr, "\nReconciliation completed successfully.\n")
		fmt.Fprintf(os.Stderr, "Processed %d lines across %d branches; %d need attention.\n",
			len(report.Table), len(report.Summaries), divergent)
	}

	return nil
}
