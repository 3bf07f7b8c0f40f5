// Package config builds component configurations from CLI flags and
// environment settings.
package config

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"consignment-reconciliation-service/internal/models"
	"consignment-reconciliation-service/internal/reconciler"
	"consignment-reconciliation-service/internal/reporter"
	"consignment-reconciliation-service/internal/sources"
	"consignment-reconciliation-service/internal/store"

	"github.com/shopspring/decimal"
)

// CreateEngineConfig creates an engine configuration from CLI values
func CreateEngineConfig(mode string, priceTolerance string) (*reconciler.Config, error) {
	config := reconciler.DefaultConfig()

	if mode != "" {
		config.Mode = reconciler.Mode(mode)
	}
	if priceTolerance != "" {
		tolerance, err := decimal.NewFromString(priceTolerance)
		if err != nil {
			return nil, fmt.Errorf("invalid price tolerance %q: %w", priceTolerance, err)
		}
		config.PriceTolerance = tolerance
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// CreateSettlementSchema returns the settlement upload layout
func CreateSettlementSchema() *sources.SettlementSchema {
	return sources.DefaultSettlementSchema()
}

// CreateSalesSchema returns the sales extract layout
func CreateSalesSchema() *sources.SalesSchema {
	return sources.DefaultSalesSchema()
}

// CreateBreakageSchema returns the inventory count layout
func CreateBreakageSchema() *sources.BreakageSchema {
	return sources.DefaultBreakageSchema()
}

// CreateReportConfig creates a report configuration for the specified output format
func CreateReportConfig(format string, includeOK bool) (*reporter.ReportConfig, error) {
	config := reporter.DefaultReportConfig()
	config.IncludeOKLines = includeOK

	switch format {
	case "console":
		config.Format = reporter.FormatConsole
	case "json":
		config.Format = reporter.FormatJSON
	case "csv":
		config.Format = reporter.FormatCSV
		// CSV is line-level data; summaries live in the other formats.
		config.IncludeSummaries = false
	case "xlsx":
		config.Format = reporter.FormatXLSX
	default:
		return nil, fmt.Errorf("invalid output format %q. Valid formats: console, json, csv, xlsx", format)
	}

	return config, nil
}

// StoreSettings selects and configures a session store backend.
type StoreSettings struct {
	Backend       string
	SessionDir    string
	SweepSchedule string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// DefaultStoreSettings returns file-backed sessions under the user cache
// directory.
func DefaultStoreSettings() StoreSettings {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return StoreSettings{
		Backend:       "file",
		SessionDir:    filepath.Join(dir, "reconciler", "sessions"),
		SweepSchedule: "@every 15m",
		RedisAddr:     "localhost:6379",
	}
}

// CreateStore opens the configured session store backend
func CreateStore(ctx context.Context, settings StoreSettings) (store.Store, error) {
	switch settings.Backend {
	case "file", "":
		return store.NewFileStore(settings.SessionDir, store.FileStoreOptions{
			SweepSchedule: settings.SweepSchedule,
		})
	case "redis":
		return store.NewRedisStore(ctx, store.RedisStoreOptions{
			Addr:     settings.RedisAddr,
			Password: settings.RedisPassword,
			DB:       settings.RedisDB,
		})
	default:
		return nil, fmt.Errorf("invalid store backend %q. Valid backends: file, redis", settings.Backend)
	}
}

// LoadOverrides reads an operator override file into an OverrideMap. Two
// formats are accepted by extension: a CSV with branch,product_id,quantity
// columns (header optional) and a JSON object keyed by "branch|product_id".
func LoadOverrides(path string) (models.OverrideMap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open overrides file: %w", err)
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".json") {
		return parseOverridesJSON(f)
	}
	return parseOverridesCSV(f)
}

func parseOverridesJSON(r io.Reader) (models.OverrideMap, error) {
	var overrides models.OverrideMap
	if err := json.NewDecoder(r).Decode(&overrides); err != nil {
		return nil, fmt.Errorf("cannot parse overrides json: %w", err)
	}
	return overrides.Normalized(), nil
}

func parseOverridesCSV(r io.Reader) (models.OverrideMap, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("cannot parse overrides csv: %w", err)
	}

	overrides := make(models.OverrideMap)
	for i, record := range records {
		if len(record) < 3 {
			continue
		}
		quantity, err := strconv.ParseInt(strings.TrimSpace(record[2]), 10, 64)
		if err != nil {
			// A non-numeric quantity on the first row is a header.
			if i == 0 {
				continue
			}
			return nil, fmt.Errorf("invalid override quantity %q on row %d", record[2], i+1)
		}
		key, ok := models.NormalizeKey(record[0], record[1])
		if !ok {
			continue
		}
		overrides[key] = quantity
	}
	return overrides, nil
}
