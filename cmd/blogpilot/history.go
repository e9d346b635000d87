package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"blogpilot/internal/config"
	"blogpilot/internal/history"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recently published posts",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum number of entries to show")
}

var (
	historyTitleStyle = lipgloss.NewStyle().Bold(true)
	historyMetaStyle  = lipgloss.NewStyle().Faint(true)
)

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	store, err := history.Open(cfg.History.DatabasePath)
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.Recent(historyLimit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("No published posts recorded.")
		return nil
	}

	for _, e := range entries {
		title := e.Title
		if title == "" {
			// Imported legacy summaries carry only a slug and URL.
			title = e.Slug
		}
		fmt.Println(historyTitleStyle.Render(title))
		fmt.Println(historyMetaStyle.Render(fmt.Sprintf("  %s  %s  %s",
			e.PublishedAt.Format("2006-01-02"), e.Provider, e.URL)))
	}
	return nil
}
