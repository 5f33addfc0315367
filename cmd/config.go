package cmd

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage sentinel configuration",
}

var configInitCmd = &cobra.Command{
	Use:          "init",
	Short:        "Create config file interactively",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}

		configDir := filepath.Join(home, ".sentinel")
		configPath := filepath.Join(configDir, "config.yaml")

		// Check if config already exists
		if _, err := os.Stat(configPath); err == nil {
			fmt.Fprintf(cmd.OutOrStdout(), "Config file already exists at %s\n", configPath)
			fmt.Fprint(cmd.OutOrStdout(), "Overwrite? [y/N]: ")
			reader := bufio.NewReader(os.Stdin)
			answer, _ := reader.ReadString('\n')
			if strings.TrimSpace(strings.ToLower(answer)) != "y" {
				fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
				return nil
			}
		}

		// Create config directory
		if err := os.MkdirAll(configDir, 0700); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		reader := bufio.NewReader(os.Stdin)

		fmt.Println("sentinel configuration setup")
		fmt.Println("─────────────────────────")
		fmt.Println()

		fmt.Print("MySQL host (only used with --live) [127.0.0.1]: ")
		host, _ := reader.ReadString('\n')
		host = strings.TrimSpace(host)
		if host == "" {
			host = "127.0.0.1"
		}

		fmt.Print("MySQL port [3306]: ")
		port, _ := reader.ReadString('\n')
		port = strings.TrimSpace(port)
		if port == "" {
			port = "3306"
		}

		fmt.Print("MySQL user [sentinel]: ")
		user, _ := reader.ReadString('\n')
		user = strings.TrimSpace(user)
		if user == "" {
			user = "sentinel"
		}

		fmt.Print("Default database (optional): ")
		database, _ := reader.ReadString('\n')
		database = strings.TrimSpace(database)

		fmt.Print("Default output format [text]: ")
		format, _ := reader.ReadString('\n')
		format = strings.TrimSpace(format)
		if format == "" {
			format = "text"
		}

		fmt.Print("Scalability target rows [10000000]: ")
		targetRows, _ := reader.ReadString('\n')
		targetRows = strings.TrimSpace(targetRows)
		if targetRows == "" {
			targetRows = "10000000"
		}

		// Build config
		var config strings.Builder
		config.WriteString("# sentinel configuration\n\n")

		config.WriteString("connections:\n")
		config.WriteString("  default:\n")
		config.WriteString(fmt.Sprintf("    host: %s\n", host))
		config.WriteString(fmt.Sprintf("    port: %s\n", port))
		config.WriteString(fmt.Sprintf("    user: %s\n", user))
		config.WriteString("    # password: omitted for security, will prompt\n")
		if database != "" {
			config.WriteString(fmt.Sprintf("    database: %s\n", database))
		}

		config.WriteString("\ndefaults:\n")
		config.WriteString(fmt.Sprintf("  format: %s\n", format))

		config.WriteString("\nscoring:\n")
		config.WriteString("  weights:\n")
		config.WriteString("    execution_time: 0.35\n")
		config.WriteString("    scan_efficiency: 0.20\n")
		config.WriteString("    index_quality: 0.15\n")
		config.WriteString("    join_efficiency: 0.10\n")
		config.WriteString("    scalability: 0.20\n")

		config.WriteString("\nscalability:\n")
		config.WriteString(fmt.Sprintf("  target_rows: %s\n", targetRows))

		config.WriteString("\nmemory:\n")
		config.WriteString("  sort_buffer_size: 262144\n")
		config.WriteString("  join_buffer_size: 262144\n")
		config.WriteString("  tmp_table_size: 16777216\n")
		config.WriteString("  buffer_pool_size: 134217728\n")

		config.WriteString("\ndrift:\n")
		config.WriteString("  warning_threshold: 0.5\n")
		config.WriteString("  critical_threshold: 0.9\n")

		config.WriteString("\nantipattern:\n")
		config.WriteString("  enabled: true\n")

		config.WriteString("\nindexsynth:\n")
		config.WriteString("  max_recommendations: 3\n")

		config.WriteString("\nworkload:\n")
		config.WriteString("  baseline_dir: ~/.sentinel/baselines\n")

		config.WriteString("\nregression:\n")
		config.WriteString("  max_snapshots_per_hash: 200\n")

		config.WriteString("\nbaseline:\n")
		config.WriteString("  max_age_days: 90\n")

		if err := os.WriteFile(configPath, []byte(config.String()), 0600); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "\n✅ Config written to %s\n", configPath)

		// Don't recommend creating root user
		if user != "root" {
			fmt.Fprintln(cmd.OutOrStdout(), "\nRecommended: create a read-only MySQL user for sentinel's --live mode:")
			fmt.Fprintln(cmd.OutOrStdout())
			fmt.Fprintf(cmd.OutOrStdout(), "  CREATE USER '%s'@'%%' IDENTIFIED BY '<password>';\n", user)
			fmt.Fprintf(cmd.OutOrStdout(), "  GRANT SELECT ON *.* TO '%s'@'%%';\n", user)
			fmt.Fprintf(cmd.OutOrStdout(), "  GRANT PROCESS ON *.* TO '%s'@'%%';\n", user)
			fmt.Fprintln(cmd.OutOrStdout())
		}

		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		configFile := viper.ConfigFileUsed()
		if configFile == "" {
			fmt.Fprintln(cmd.OutOrStdout(), "No config file found.")
			fmt.Fprintln(cmd.OutOrStdout(), "Run 'sentinel config init' to create one.")
			return nil
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Config file: %s\n\n", configFile)

		data, err := os.ReadFile(configFile)
		if err != nil {
			return fmt.Errorf("reading config: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
}
