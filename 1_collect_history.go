package dailyai

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/annie444/daily-ai/classify"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// macOSEpochOffset is the number of seconds between the Unix epoch and 2001-01-01 UTC
const macOSEpochOffset = 978307200.0

// historyOptions are the flags shared by every command that reads Safari history
type historyOptions struct {
	Since  string
	DBPath string
}

func (o *historyOptions) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.Since, "since", "1d", "how far back to read history (ISO-8601 like P1D, or 30m/6h/1d/2w)")
	cmd.Flags().StringVar(&o.DBPath, "db", "", "path to Safari History.db (default: auto-detect)")
}

// load reads the history items selected by the flags
func (o *historyOptions) load(ctx context.Context) ([]classify.HistoryItem, time.Time, error) {
	since, err := ParseSince(o.Since, time.Now())
	if err != nil {
		return nil, time.Time{}, err
	}
	path := o.DBPath
	if path == "" {
		if path, err = FindSafariHistoryDB(); err != nil {
			return nil, time.Time{}, err
		}
	}
	items, err := SafariHistory(ctx, path, since)
	if err != nil {
		return nil, time.Time{}, err
	}
	return items, since, nil
}

var safariOpts historyOptions
var safariOutput string

// SafariHistoryCmd dumps the recent Safari history as JSON
var SafariHistoryCmd = &cobra.Command{
	Use:   "safari",
	Short: "Print recent Safari history as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		items, _, err := safariOpts.load(cmd.Context())
		if err != nil {
			return err
		}

		data, err := json.MarshalIndent(items, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal history: %w", err)
		}
		if safariOutput == "" || safariOutput == "-" {
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return err
		}
		if err := os.WriteFile(safariOutput, data, 0644); err != nil {
			return fmt.Errorf("failed to write history file: %w", err)
		}
		log.Info().Int("items", len(items)).Str("path", safariOutput).Msg("history written")
		return nil
	},
}

func init() {
	safariOpts.register(SafariHistoryCmd)
	SafariHistoryCmd.Flags().StringVarP(&safariOutput, "output", "o", "-", "output file, - for stdout")
}

// FindSafariHistoryDB looks for History.db in the working directory, then at
// the configured path, then in the user's Safari profile.
func FindSafariHistoryDB() (string, error) {
	candidates := []string{"History.db"}
	if Config.SafariHistoryDBPath != "" {
		candidates = append(candidates, Config.SafariHistoryDBPath)
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, "Library", "Safari", "History.db"))
	}

	for _, path := range candidates {
		info, err := os.Stat(path)
		if err == nil && info.Mode().IsRegular() {
			return path, nil
		}
	}
	return "", fmt.Errorf("safari History.db not found (tried %v)", candidates)
}

// SafariHistory reads every URL visited after since from a Safari History.db.
// Items are ordered by their latest visit, newest first, and carry the title
// of that visit.
func SafariHistory(ctx context.Context, dbPath string, since time.Time) ([]classify.HistoryItem, error) {
	if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	db, err := sql.Open("sqlite3", "file:"+dbPath+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close history database")
		}
	}()

	rows, err := db.QueryContext(ctx, `
	SELECT i.url, i.visit_count, v.title, v.visit_time
	FROM history_items i
	JOIN history_visits v ON v.history_item = i.id
	WHERE v.visit_time > ?
	ORDER BY v.visit_time DESC`, timeToMacOS(since))
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var items []classify.HistoryItem
	seen := make(map[string]bool)
	for rows.Next() {
		var (
			url        string
			visitCount int64
			title      sql.NullString
			visitTime  float64
		)
		if err := rows.Scan(&url, &visitCount, &title, &visitTime); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		if seen[url] {
			continue
		}
		seen[url] = true

		item := classify.HistoryItem{
			URL:         url,
			VisitCount:  visitCount,
			LastVisited: macOSToTime(visitTime),
		}
		if title.Valid {
			t := title.String
			item.Title = &t
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read history rows: %w", err)
	}

	log.Debug().Int("items", len(items)).Time("since", since).Msg("read Safari history")
	return items, nil
}

// macOSToTime converts Core Data seconds into a UTC time
func macOSToTime(seconds float64) time.Time {
	unix := seconds + macOSEpochOffset
	secs, frac := math.Modf(unix)
	return time.Unix(int64(secs), int64(frac*1e9)).UTC()
}

// timeToMacOS converts a time into Core Data seconds
func timeToMacOS(t time.Time) float64 {
	return float64(t.UnixNano())/1e9 - macOSEpochOffset
}
