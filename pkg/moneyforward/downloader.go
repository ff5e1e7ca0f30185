package moneyforward

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"
	"unicode/utf8"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

const (
	// DefaultBaseURL is the MoneyForward portal.
	DefaultBaseURL = "https://moneyforward.com"

	signInPath        = "/sign_in"
	csvPath           = "/cf/csv"
	sessionCookieName = "_moneybook_session"

	userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36"

	// DefaultMonths is how many monthly exports a run downloads,
	// counting backwards from the current month.
	DefaultMonths = 3
)

// DownloaderConfig configures a Downloader.
type DownloaderConfig struct {
	BaseURL  string // default: DefaultBaseURL
	Username string
	Password string
	SavePath string // directory where CSV files are written
	Months   int    // default: DefaultMonths
	Headless bool

	// HTTPClient is used for the CSV downloads. Default: 30s timeout client.
	HTTPClient *http.Client

	Logger *slog.Logger
}

// Downloader signs in to MoneyForward with a headless browser and downloads
// the monthly CSV exports over plain HTTP using the captured session cookie.
type Downloader struct {
	baseURL    string
	username   string
	password   string
	savePath   string
	months     int
	headless   bool
	httpClient *http.Client
	logger     *slog.Logger
}

// NewDownloader creates a new Downloader.
func NewDownloader(cfg DownloaderConfig) *Downloader {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	months := cfg.Months
	if months == 0 {
		months = DefaultMonths
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Downloader{
		baseURL:    baseURL,
		username:   cfg.Username,
		password:   cfg.Password,
		savePath:   cfg.SavePath,
		months:     months,
		headless:   cfg.Headless,
		httpClient: httpClient,
		logger:     logger,
	}
}

// SignIn drives the MoneyForward sign-in flow in a headless browser and
// returns the session cookie value.
func (d *Downloader) SignIn(ctx context.Context) (string, error) {
	allocCtx, cancel := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", d.headless),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.WindowSize(1200, 800),
			chromedp.UserAgent(userAgent),
		)...,
	)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	browserCtx, cancel = context.WithTimeout(browserCtx, 2*time.Minute)
	defer cancel()

	var sessionID string

	err := chromedp.Run(browserCtx,
		network.Enable(),
		network.SetExtraHTTPHeaders(network.Headers{
			"Accept-Language": "en-US,en;q=0.2,ja;q=0.8,fr;q=0.7,ja-JP;q=0.6",
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			d.logger.Info("Visiting login page")
			return chromedp.Navigate(d.baseURL + signInPath).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			d.logger.Info("Filling in username")
			return nil
		}),
		chromedp.WaitVisible(`input[type="email"]`, chromedp.ByQuery),
		chromedp.SendKeys(`input[type="email"]`, d.username, chromedp.ByQuery),
		chromedp.Click(`button[type="submit"]`, chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			d.logger.Info("Filling in password")
			return nil
		}),
		chromedp.WaitVisible(`input[type="password"]`, chromedp.ByQuery),
		chromedp.SendKeys(`input[type="password"]`, d.password, chromedp.ByQuery),
		chromedp.Click(`button[type="submit"]`, chromedp.ByQuery),
		d.skipPasskeyDialog(),
		chromedp.ActionFunc(func(ctx context.Context) error {
			d.logger.Info("Waiting for login to complete")
			return chromedp.WaitReady("body", chromedp.ByQuery).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			cookies, err := network.GetCookies().Do(ctx)
			if err != nil {
				return fmt.Errorf("failed to read cookies: %w", err)
			}
			for _, cookie := range cookies {
				if cookie.Name == sessionCookieName {
					sessionID = cookie.Value
					return nil
				}
			}
			return fmt.Errorf("session cookie %s not found after login", sessionCookieName)
		}),
	)
	if err != nil {
		return "", fmt.Errorf("moneyforward sign-in failed: %w", err)
	}

	return sessionID, nil
}

// skipPasskeyDialog dismisses the passkey prompt when MoneyForward shows one
// after login. Absence of the dialog is not an error.
func (d *Downloader) skipPasskeyDialog() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		clickCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		err := chromedp.Click(`//button[contains(text(), "スキップする")]`, chromedp.BySearch).Do(clickCtx)
		if err == nil {
			d.logger.Info("Skipped passkey dialog")
		}
		return nil
	})
}

// DownloadCSV fetches the monthly CSV exports using sessionID, transcodes
// them from Shift_JIS to UTF-8 and writes one YYYY-MM.csv file per month
// into the save path. It returns the written file paths.
func (d *Downloader) DownloadCSV(ctx context.Context, sessionID string) ([]string, error) {
	now := time.Now()
	month := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.Local)

	var files []string
	for i := 0; i < d.months; i++ {
		file, err := d.downloadMonth(ctx, sessionID, month)
		if err != nil {
			return files, err
		}
		files = append(files, file)
		month = month.AddDate(0, -1, 0)
	}

	return files, nil
}

func (d *Downloader) downloadMonth(ctx context.Context, sessionID string, month time.Time) (string, error) {
	dateString := month.Format("2006-01")
	d.logger.Info("Downloading CSV", "month", dateString)

	url := fmt.Sprintf("%s%s?from=%s", d.baseURL, csvPath, month.Format("2006/01/02"))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Cookie", fmt.Sprintf("%s=%s", sessionCookieName, sessionID))
	req.Header.Set("User-Agent", userAgent)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download CSV for %s: %w", dateString, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to download CSV for %s: status %d", dateString, resp.StatusCode)
	}

	body, err := io.ReadAll(transform.NewReader(resp.Body, japanese.ShiftJIS.NewDecoder()))
	if err != nil {
		return "", fmt.Errorf("failed to decode CSV for %s: %w", dateString, err)
	}
	if !utf8.Valid(body) {
		return "", fmt.Errorf("CSV for %s is not valid UTF-8 after decoding", dateString)
	}

	file := filepath.Join(d.savePath, dateString+".csv")
	if err := os.WriteFile(file, body, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", file, err)
	}

	return file, nil
}
