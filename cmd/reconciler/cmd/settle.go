package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"consignment-reconciliation-service/cmd/reconciler/config"
	"consignment-reconciliation-service/internal/reconciler"
	"consignment-reconciliation-service/internal/reporter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flags for the settle command
var (
	settleSessionID    string
	overridesFile      string
	settleOutputFormat string
	settleOutputFile   string
	settleIncludeOK    bool
	dropSession        bool
)

// settleCmd represents the settle command
var settleCmd = &cobra.Command{
	Use:   "settle",
	Short: "Apply operator overrides to a saved session and resettle",
	Long: `Settle loads a previously saved reconciliation session, applies the
operator's settlement-quantity overrides, recomputes every derived field
and saves the session back. Recomputation is idempotent: applying the same
overrides twice yields the same table.

The overrides file is either a CSV with branch,product_id,quantity columns
or a JSON object keyed by "branch|product_id". Overrides referencing a key
that is not in the session table are silently ignored.

Examples:
  reconciler settle --session 6f1b6e9a-... --overrides-file ajustes.csv
  reconciler settle --session 6f1b6e9a-... --overrides-file ajustes.json \
    --output-format xlsx --output-file acerto_final.xlsx
  reconciler settle --session 6f1b6e9a-... --overrides-file ajustes.csv --drop`,

	PreRunE: validateSettleFlags,
	RunE:    runSettle,
}

func init() {
	rootCmd.AddCommand(settleCmd)

	settleCmd.Flags().StringVar(&settleSessionID, "session", "", "session id returned by reconcile --save-session (required)")
	settleCmd.Flags().StringVar(&overridesFile, "overrides-file", "", "path to the overrides file (required)")
	settleCmd.Flags().StringVarP(&settleOutputFormat, "output-format", "f", "console", "output format: console, json, csv, xlsx")
	settleCmd.Flags().StringVarP(&settleOutputFile, "output-file", "o", "", "output file path (default: stdout)")
	settleCmd.Flags().BoolVar(&settleIncludeOK, "include-ok", false, "include non-divergent lines in the report")
	settleCmd.Flags().BoolVar(&dropSession, "drop", false, "delete the session after settling")

	settleCmd.Flags().StringVar(&storeBackend, "store", "file", "session store backend: file, redis")
	settleCmd.Flags().StringVar(&sessionDir, "session-dir", "", "directory for file-backed sessions")
	settleCmd.Flags().StringVar(&redisAddr, "redis-addr", "localhost:6379", "redis address for the redis store backend")

	settleCmd.MarkFlagRequired("session")
	settleCmd.MarkFlagRequired("overrides-file")
}

func validateSettleFlags(cmd *cobra.Command, args []string) error {
	if settleSessionID == "" {
		return fmt.Errorf("session is required")
	}
	if overridesFile == "" {
		return fmt.Errorf("overrides-file is required")
	}
	if err := validateFileExists(overridesFile, "overrides file"); err != nil {
		return err
	}

	validFormats := map[string]bool{"console": true, "json": true, "csv": true, "xlsx": true}
	if !validFormats[settleOutputFormat] {
		return fmt.Errorf("invalid output format '%s'. Valid formats: console, json, csv, xlsx", settleOutputFormat)
	}
	return nil
}

func runSettle(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	overrides, err := config.LoadOverrides(overridesFile)
	if err != nil {
		return err
	}

	settings := config.DefaultStoreSettings()
	settings.Backend = storeBackend
	settings.RedisAddr = redisAddr
	if sessionDir != "" {
		settings.SessionDir = sessionDir
	}

	sessionStore, err := config.CreateStore(ctx, settings)
	if err != nil {
		return err
	}
	defer sessionStore.Close()

	session, err := sessionStore.Load(ctx, settleSessionID)
	if err != nil {
		return err
	}

	engineConfig, err := config.CreateEngineConfig(session.Mode, "")
	if err != nil {
		return fmt.Errorf("failed to create engine config: %w", err)
	}
	engine, err := reconciler.NewEngine(engineConfig)
	if err != nil {
		return fmt.Errorf("failed to create engine: %w", err)
	}

	// Merge the new overrides over any the session already carries, then
	// resettle the whole table from its immutable lines.
	if session.Overrides == nil {
		session.Overrides = overrides
	} else {
		for key, quantity := range overrides {
			session.Overrides[key] = quantity
		}
	}

	states := engine.Resettle(session.Table, session.Overrides, engine.DefaultPolicy())
	summaries, totals := engine.Summarize(states, session.GrossSales)

	session.Table = states
	if dropSession {
		if err := sessionStore.Delete(ctx, session.ID); err != nil {
			return err
		}
	} else {
		if err := sessionStore.Update(ctx, session); err != nil {
			return err
		}
	}

	if viper.GetBool("verbose") {
		fmt.Fprintf(os.Stderr, "Applied %d overrides to session %s.\n", len(overrides), session.ID)
	}

	report := &reporter.Report{
		SessionID:   session.ID,
		Mode:        session.Mode,
		Supplier:    session.Supplier,
		GeneratedAt: time.Now(),
		Table:       states,
		Summaries:   summaries,
		Totals:      totals,
	}

	return renderReport(report, settleOutputFormat, settleOutputFile, settleIncludeOK)
}
