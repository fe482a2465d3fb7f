package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/andreyvit/stagedb"
	"github.com/andreyvit/stagedb/tables"
)

const Version = "0.3.0"

var (
	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "stagedb",
		Short: "inspect a node database",
		Long: fmt.Sprintf(`stagedb (v%s)

Inspects the typed tables and stage checkpoints of a node database. Flags can
also be set via environment variables of the form STAGEDB_<flag>
(e.g. STAGEDB_DATADIR=/var/lib/node), or in .env and .env.local files.`, Version),
		SilenceUsage:      true,
		PersistentPreRunE: processConfig,
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of stagedb",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "stagedb v%s\n", Version)
		},
	}

	metricsCmd = &cobra.Command{
		Use:   "metrics",
		Short: "Count every table and print the resulting metrics",
		RunE:  runMetrics,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	RootCmd.AddCommand(versionCmd)
	RootCmd.AddCommand(metricsCmd)
	RootCmd.AddCommand(tablesCmd)
	RootCmd.AddCommand(listCmd)
	RootCmd.AddCommand(getCmd)
	RootCmd.AddCommand(dumpCmd)
	RootCmd.AddCommand(stagesCmd)

	key := "datadir"
	RootCmd.PersistentFlags().String(key, "", WrapString("Directory holding the database"))
	key = "engine"
	RootCmd.PersistentFlags().String(key, string(stagedb.Bolt), WrapString("Storage engine the database was created with (bolt, leveldb)"))
	key = "log-level"
	RootCmd.PersistentFlags().String(key, "warn", WrapString("Level at which logs are written to stderr (debug, info, warn, error)"))
	key = "verbose"
	RootCmd.PersistentFlags().Bool(key, false, WrapString("Log every table operation at debug level"))
}

// initConfig loads env files and makes viper read STAGEDB_* variables.
func initConfig() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	viper.SetEnvPrefix("stagedb")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func processConfig(cmd *cobra.Command, _ []string) error {
	return viper.BindPFlags(cmd.Flags())
}

func newLogger(cmd *cobra.Command) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(viper.GetString("log-level"))); err != nil {
		return nil, fmt.Errorf("invalid log level %q", viper.GetString("log-level"))
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})), nil
}

// dbPath returns where the engine keeps its files inside datadir.
func dbPath(datadir string, engine stagedb.Engine) string {
	switch engine {
	case stagedb.LevelDB:
		return filepath.Join(datadir, "leveldb")
	default:
		return filepath.Join(datadir, "stagedb.bolt")
	}
}

func openDB(cmd *cobra.Command) (*stagedb.DB, error) {
	datadir := viper.GetString("datadir")
	if datadir == "" {
		return nil, fmt.Errorf("--datadir is required")
	}
	engine := stagedb.Engine(viper.GetString("engine"))
	switch engine {
	case stagedb.Bolt, stagedb.LevelDB:
		break
	default:
		return nil, fmt.Errorf("invalid engine %s", engine)
	}
	logger, err := newLogger(cmd)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(datadir, 0o755); err != nil {
		return nil, err
	}
	return stagedb.Open(dbPath(datadir, engine), tables.Schema, stagedb.Options{
		Engine:  engine,
		Logger:  logger,
		Verbose: viper.GetBool("verbose"),
	})
}

func runMetrics(cmd *cobra.Command, _ []string) error {
	db, err := openDB(cmd)
	if err != nil {
		return err
	}
	defer db.Close()
	err = db.View(cmd.Context(), func(tx *stagedb.Tx) error {
		return tx.RecordTableStats()
	})
	if err != nil {
		return err
	}
	stagedb.WriteMetrics(cmd.OutOrStdout())
	return nil
}
