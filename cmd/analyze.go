package cmd

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mpaulson/sqlsentinel/internal/baseline"
	"github.com/mpaulson/sqlsentinel/internal/diagnostic"
	"github.com/mpaulson/sqlsentinel/internal/driver"
	"github.com/mpaulson/sqlsentinel/internal/indexsynth"
	"github.com/mpaulson/sqlsentinel/internal/memory"
	"github.com/mpaulson/sqlsentinel/internal/metrics"
	"github.com/mpaulson/sqlsentinel/internal/mysqldriver"
	"github.com/mpaulson/sqlsentinel/internal/output"
)

var analyzeCmd = &cobra.Command{
	Use:          "analyze [SQL statement]",
	Short:        "Score an EXPLAIN/EXPLAIN ANALYZE plan and recommend fixes",
	SilenceUsage: true,
	Long: `Analyze a MySQL EXPLAIN or EXPLAIN ANALYZE plan and report:
  - Access path, complexity class, and a composite letter grade
  - Scalability projection as the table grows
  - Memory pressure, lock scope, and cardinality drift
  - Plan stability and anti-pattern detection
  - Concrete missing-index recommendations (DDL included)
  - Confidence in the analysis itself`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sqlText, err := getSQLInput(cmd, args)
		if err != nil {
			return err
		}
		planText, err := getPlanInput(cmd)
		if err != nil {
			return err
		}

		live, _ := cmd.Flags().GetBool("live")
		storeDir, _ := cmd.Flags().GetString("store-dir")
		budgetMs, _ := cmd.Flags().GetInt64("budget-ms")
		targetRows, _ := cmd.Flags().GetInt64("target-rows")
		intentionalScan, _ := cmd.Flags().GetBool("intentional-scan")
		coldCache, _ := cmd.Flags().GetBool("cold-cache")

		cfg := diagnostic.DefaultConfig()
		if budgetMs > 0 {
			cfg.AnalysisBudgetMs = budgetMs
		}
		if targetRows > 0 {
			cfg.ScalabilityTargetRows = targetRows
		}

		var introspector driver.SchemaIntrospector = driver.PermissiveIntrospector{}
		supportsAnalyze := false

		if live {
			d, conn, err := connectLiveDriver(cmd)
			if err != nil {
				return err
			}
			defer conn.Close()
			introspector = d
			supportsAnalyze = d.GetCapabilities().ExplainAnalyze
		}

		store, err := baseline.NewFileStore(storeDir)
		if err != nil {
			return fmt.Errorf("opening baseline store: %w", err)
		}

		existing, err := loadExistingIndexes(cmd.Context(), introspector, sqlText)
		if err != nil && viper.GetBool("verbose") {
			fmt.Fprintf(os.Stderr, "warning: could not introspect existing indexes: %v\n", err)
		}

		in := diagnostic.Inputs{
			PlanText:          planText,
			SQL:               sqlText,
			QueryHash:         queryHash(sqlText),
			Store:             store,
			Env:               &metrics.EnvironmentContext{IsColdCache: coldCache},
			IsIntentionalScan: intentionalScan,
			SupportsAnalyze:   supportsAnalyze,
			MemoryInputs:      memoryInputsFromFlags(cmd),
			ExistingIndexes:   existing,
		}

		ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.AnalysisBudgetMs+5000)*time.Millisecond)
		defer cancel()

		rep, err := diagnostic.Run(ctx, in, cfg)
		if err != nil && err != diagnostic.Timeout {
			return fmt.Errorf("analysis failed: %w", err)
		}
		if rep == nil {
			return fmt.Errorf("analysis cancelled")
		}

		format := viper.GetString("format")
		renderer := output.NewRenderer(format, os.Stdout)
		renderer.RenderReport(rep, sqlText)

		if !rep.Passed {
			os.Exit(1)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().String("plan-file", "", "Read the EXPLAIN/EXPLAIN ANALYZE plan text from a file")
	analyzeCmd.Flags().String("sql-file", "", "Read the SQL statement from a file instead of an argument")
	analyzeCmd.Flags().Bool("live", false, "Connect to MySQL to introspect existing indexes and detect server capabilities")
	analyzeCmd.Flags().String("store-dir", defaultStoreDir(), "Directory for the baseline history store")
	analyzeCmd.Flags().Int64("budget-ms", 0, "Override the analysis time budget in milliseconds (0 = use default)")
	analyzeCmd.Flags().Int64("target-rows", 0, "Override the scalability projection's target row count (0 = use default)")
	analyzeCmd.Flags().Bool("intentional-scan", false, "Mark the scan as intentional (e.g. a nightly export), suppressing scan-shaped findings")
	analyzeCmd.Flags().Bool("cold-cache", false, "Treat the buffer pool as cold for confidence scoring and the recorded regression baseline")
	analyzeCmd.Flags().Int64("sort-buffer-size", 256*1024, "sort_buffer_size in bytes, for memory pressure estimation")
	analyzeCmd.Flags().Int64("join-buffer-size", 256*1024, "join_buffer_size in bytes")
	analyzeCmd.Flags().Int64("tmp-table-size", 16*1024*1024, "tmp_table_size in bytes")
	analyzeCmd.Flags().Int64("buffer-pool-size", 128*1024*1024, "innodb_buffer_pool_size in bytes")
}

func defaultStoreDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".sentinel/baselines"
	}
	return filepath.Join(home, ".sentinel", "baselines")
}

func memoryInputsFromFlags(cmd *cobra.Command) memory.Inputs {
	sortBuf, _ := cmd.Flags().GetInt64("sort-buffer-size")
	joinBuf, _ := cmd.Flags().GetInt64("join-buffer-size")
	tmpTable, _ := cmd.Flags().GetInt64("tmp-table-size")
	bufferPool, _ := cmd.Flags().GetInt64("buffer-pool-size")
	return memory.Inputs{
		SortBufferSize: sortBuf,
		JoinBufferSize: joinBuf,
		TmpTableSize:   tmpTable,
		BufferPoolSize: bufferPool,
		PageSize:       16 * 1024,
	}
}

func connectLiveDriver(cmd *cobra.Command) (*mysqldriver.MySQLDriver, connCloser, error) {
	connCfg := mysqldriver.ConnectionConfig{
		Host:     viper.GetString("host"),
		Port:     viper.GetInt("port"),
		User:     viper.GetString("user"),
		Password: viper.GetString("password"),
		Database: viper.GetString("database"),
		Socket:   viper.GetString("socket"),
	}
	if connCfg.Host == "" && connCfg.Socket == "" {
		connCfg.Host = "127.0.0.1"
	}
	if connCfg.User == "" {
		connCfg.User = "sentinel"
	}
	if connCfg.Password == "" {
		connCfg.Password = mysqldriver.PromptPassword()
	}

	conn, err := mysqldriver.Connect(connCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("connection failed: %w", err)
	}
	d, err := mysqldriver.NewDriver(conn)
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("driver initialization failed: %w", err)
	}
	return d, conn, nil
}

// connCloser abstracts *sql.DB's Close method so this file doesn't need to
// import database/sql directly just for the defer in the caller.
type connCloser interface {
	Close() error
}

func loadExistingIndexes(ctx context.Context, introspector driver.SchemaIntrospector, sql string) (map[string][]indexsynth.ExistingIndex, error) {
	tables := tableNamesFromSQL(sql)
	if len(tables) == 0 {
		return nil, nil
	}
	out := make(map[string][]indexsynth.ExistingIndex)
	for _, t := range tables {
		exists, err := introspector.TableExists(ctx, t)
		if err != nil || !exists {
			continue
		}
		cols, err := introspector.ListColumns(ctx, t)
		if err != nil || len(cols) == 0 {
			continue
		}
		// The permissive introspector and a bare information_schema column
		// listing can't reconstruct real composite index definitions; a
		// single-column PRIMARY-shaped placeholder is the best a generic
		// ListColumns call can offer without a dedicated index-listing call.
		out[t] = []indexsynth.ExistingIndex{{Name: "PRIMARY", Table: t, Columns: cols[:1]}}
	}
	return out, nil
}

var reTableName = regexp.MustCompile(`(?i)\b(?:from|join|into|update)\s+` + "`?" + `([a-zA-Z_][a-zA-Z0-9_]*)` + "`?")

func tableNamesFromSQL(sql string) []string {
	matches := reTableName.FindAllStringSubmatch(sql, -1)
	seen := map[string]bool{}
	var out []string
	for _, m := range matches {
		name := strings.ToLower(m[1])
		if !seen[name] {
			seen[name] = true
			out = append(out, m[1])
		}
	}
	return out
}

func queryHash(sql string) string {
	normalized := strings.Join(strings.Fields(sql), " ")
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])[:16]
}

func getPlanInput(cmd *cobra.Command) (string, error) {
	planFile, _ := cmd.Flags().GetString("plan-file")
	if planFile == "" {
		return "", fmt.Errorf("provide the EXPLAIN/EXPLAIN ANALYZE plan text via --plan-file")
	}
	if err := validateSQLFilePath(planFile); err != nil {
		return "", fmt.Errorf("plan file validation failed: %w", err)
	}
	data, err := os.ReadFile(planFile)
	if err != nil {
		return "", fmt.Errorf("could not read plan file %s: %w", planFile, err)
	}
	return string(data), nil
}

func getSQLInput(cmd *cobra.Command, args []string) (string, error) {
	filePath, _ := cmd.Flags().GetString("sql-file")

	if filePath != "" {
		if err := validateSQLFilePath(filePath); err != nil {
			return "", fmt.Errorf("file validation failed: %w", err)
		}
		data, err := os.ReadFile(filePath)
		if err != nil {
			return "", fmt.Errorf("could not read file %s: %w", filePath, err)
		}
		return strings.TrimSpace(string(data)), nil
	}

	if len(args) > 0 {
		return strings.TrimSpace(args[0]), nil
	}

	return "", fmt.Errorf("provide a SQL statement as argument or use --sql-file flag")
}

// validateSQLFilePath checks if the file path is safe to read, preventing
// path traversal and accidental reads of oversized or non-regular files.
func validateSQLFilePath(filePath string) error {
	cleanPath := filepath.Clean(filePath)

	absPath, err := filepath.Abs(cleanPath)
	if err != nil {
		return fmt.Errorf("invalid file path: %w", err)
	}

	fileInfo, err := os.Stat(absPath)
	if err != nil {
		return fmt.Errorf("cannot access file: %w", err)
	}

	if !fileInfo.Mode().IsRegular() {
		return fmt.Errorf("not a regular file: %s", absPath)
	}

	const maxFileSize = 10 * 1024 * 1024 // 10 MB
	if fileInfo.Size() > maxFileSize {
		return fmt.Errorf("file too large (>10MB): %s - this may not be a SQL or plan file", absPath)
	}

	sensitivePaths := []string{"/etc/", "/sys/", "/proc/", "/dev/"}
	for _, sensitive := range sensitivePaths {
		if strings.HasPrefix(absPath, sensitive) {
			fmt.Fprintf(os.Stderr, "⚠️  Warning: Reading from system path %s\n", absPath)
			break
		}
	}

	return nil
}
