package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/foxzi/textry/internal/app"
	"github.com/foxzi/textry/internal/history"
)

var (
	historyStatus string
	historySearch string
	historyLimit  int
	historyOut    string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect and export the send history log",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List past send attempts, newest first",
	RunE:  runHistoryList,
}

var historyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the history log as CSV",
	RunE:  runHistoryExport,
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all history entries",
	RunE:  runHistoryClear,
}

func init() {
	historyListCmd.Flags().StringVar(&historyStatus, "status", "", "filter by status (sent, failed, cancelled)")
	historyListCmd.Flags().StringVar(&historySearch, "search", "", "filter by name, phone or message")
	historyListCmd.Flags().IntVar(&historyLimit, "limit", 0, "maximum entries to show")
	historyExportCmd.Flags().StringVarP(&historyOut, "out", "o", "", "output file (default stdout)")

	historyCmd.AddCommand(historyListCmd, historyExportCmd, historyClearCmd)
	rootCmd.AddCommand(historyCmd)
}

// openHistory opens the store from the configured database path.
func openHistory() (*history.Store, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	db, err := app.OpenStorage(cfg.Storage.Path)
	if err != nil {
		return nil, nil, err
	}

	store, err := history.NewStore(db)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return store, func() { db.Close() }, nil
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	store, closeDB, err := openHistory()
	if err != nil {
		return err
	}
	defer closeDB()

	entries := store.List(history.Filter{
		Status: history.Status(historyStatus),
		Search: historySearch,
		Limit:  historyLimit,
	})

	for _, e := range entries {
		fmt.Printf("%s  %-9s  %-20s  %s\n",
			e.Timestamp.Format(time.RFC3339), e.Status, e.RecipientName, e.Phone)
	}
	fmt.Printf("%d entries\n", len(entries))
	return nil
}

func runHistoryExport(cmd *cobra.Command, args []string) error {
	store, closeDB, err := openHistory()
	if err != nil {
		return err
	}
	defer closeDB()

	out := os.Stdout
	if historyOut != "" {
		f, err := os.Create(historyOut)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	return history.ExportCSV(out, store.Load())
}

func runHistoryClear(cmd *cobra.Command, args []string) error {
	store, closeDB, err := openHistory()
	if err != nil {
		return err
	}
	defer closeDB()

	if err := store.Clear(); err != nil {
		return err
	}
	fmt.Println("History cleared")
	return nil
}
