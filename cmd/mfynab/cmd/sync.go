package cmd

import (
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/mfynab/mfynab/pkg/config"
	"github.com/mfynab/mfynab/pkg/db"
	"github.com/mfynab/mfynab/pkg/importer"
	"github.com/mfynab/mfynab/pkg/moneyforward"
	"github.com/mfynab/mfynab/pkg/pathutil"
	"github.com/mfynab/mfynab/pkg/ynab"
)

var (
	skipDownload bool
	dryRun       bool
	showBrowser  bool
)

// syncCmd represents the sync command.
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync MoneyForward transactions to YNAB",
	Long: `Sync transactions from MoneyForward to YNAB.

This command:
1. Logs in to MoneyForward and downloads the monthly CSV exports
2. Normalizes the rows and groups them by account
3. Maps each configured account to its YNAB account
4. Submits one create-transactions batch per account
5. Records submitted transactions in the local history database

YNAB deduplicates on import_id, so re-running a sync on the same data
creates no additional transactions.

Example:
  mfynab sync --config mfynab.yml
  mfynab sync --config mfynab.yml --skip-download --dry-run`,
	Run: runSync,
}

func init() {
	// Flags
	syncCmd.Flags().BoolVar(&skipDownload, "skip-download", false, "reuse the latest downloaded CSV files")
	syncCmd.Flags().BoolVar(&dryRun, "dry-run", false, "dry run mode (no API calls, no history writes)")
	syncCmd.Flags().BoolVar(&showBrowser, "show-browser", false, "run the browser with a visible window")
}

func runSync(cmd *cobra.Command, args []string) {
	slog.Info("Starting sync", "config", cfgFile, "skip_download", skipDownload, "dry_run", dryRun)

	// Load configuration
	cfg, err := config.Load(cfgFile, envFile)
	exitOnError(err, "failed to load configuration")

	required := [][]string{
		{"ynab", "budget"},
		{"ynab", "accessToken"},
		{"accounts"},
	}
	if !skipDownload {
		required = append(required,
			[]string{"moneyforward", "username"},
			[]string{"moneyforward", "password"},
		)
	}
	exitOnError(cfg.Validate(required...), "invalid configuration")

	pathResolver := pathutil.New(pathutil.Config{DataDir: cfg.DataDir})
	ctx := cmd.Context()

	// Download CSV exports, or reuse the previous session
	var csvDir string
	if skipDownload {
		csvDir, err = pathResolver.LatestSessionDir()
		exitOnError(err, "no previous download to reuse")
		slog.Info("Reusing downloaded CSV files", "dir", csvDir)
	} else {
		csvDir, err = pathResolver.NewSessionDir(time.Now())
		exitOnError(err, "failed to create download directory")

		downloader := moneyforward.NewDownloader(moneyforward.DownloaderConfig{
			BaseURL:  cfg.MoneyForward.BaseURL,
			Username: cfg.MoneyForward.Username,
			Password: cfg.MoneyForward.Password,
			SavePath: csvDir,
			Months:   cfg.MoneyForward.Months,
			Headless: !showBrowser,
		})

		sessionID, err := downloader.SignIn(ctx)
		exitOnError(err, "failed to sign in to MoneyForward")

		files, err := downloader.DownloadCSV(ctx, sessionID)
		exitOnError(err, "failed to download CSV exports")
		slog.Info("Downloaded CSV exports", "count", len(files), "dir", csvDir)
	}

	// Ingest and group transactions
	data := moneyforward.NewData(slog.Default())
	if err := data.ReadAllCSV(csvDir); err != nil {
		// Malformed files are skipped; valid files were still ingested.
		slog.Warn("Some CSV files could not be read", "error", err)
	}
	slog.Info("Grouped transactions", "accounts", len(data.Accounts()))

	// Initialize YNAB client
	client := ynab.NewClient(ynab.ClientConfig{
		AccessToken: cfg.YNAB.AccessToken,
	})

	opts := []importer.Option{
		importer.WithLogger(slog.Default()),
		importer.WithDryRun(dryRun),
	}

	// Open history database (not in dry-run mode)
	if !dryRun {
		conn, err := db.Open(pathResolver.DatabasePath())
		exitOnError(err, "failed to open database")
		defer conn.Close()

		opts = append(opts, importer.WithHistory(db.NewHistory(conn)))
	}

	imp := importer.New(client, cfg.YNAB.BudgetName, cfg.Accounts, opts...)
	exitOnError(imp.Run(ctx, data.Grouped()), "import failed")

	slog.Info("Sync completed")
}
