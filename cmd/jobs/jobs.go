// Package jobs implements the jobs command for inspecting scrape jobs from
// the terminal.
package jobs

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/jonesrussell/leadscraper/internal/config"
	"github.com/jonesrussell/leadscraper/internal/database"
	"github.com/jonesrussell/leadscraper/internal/domain"
)

var (
	statusFilter string
	limit        int
)

// Command returns the jobs command.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect scrape jobs",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List recent scrape jobs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runList(cmd.Context())
		},
	}
	listCmd.Flags().StringVar(&statusFilter, "status", "", "filter by status (pending, running, completed, failed)")
	listCmd.Flags().IntVar(&limit, "limit", 20, "maximum number of jobs to show")

	cmd.AddCommand(listCmd)
	return cmd
}

func runList(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	db, err := database.NewPostgresConnection(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	jobs, err := database.NewJobRepository(db).List(ctx, statusFilter, limit)
	if err != nil {
		return err
	}

	if len(jobs) == 0 {
		fmt.Println("No jobs found.")
		return nil
	}

	renderJobs(jobs)
	return nil
}

func renderJobs(jobs []*domain.Job) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"ID", "Area", "Status", "Assigned", "Found", "Time (s)", "Error", "Updated"})

	for _, j := range jobs {
		t.AppendRow(table.Row{
			j.ID,
			j.AreaID,
			j.Status,
			strOrDash(j.AssignedTo),
			j.BusinessesFound,
			fmt.Sprintf("%.2f", j.ProcessingTimeSeconds),
			truncate(strOrDash(j.ErrorMessage), 40),
			j.UpdatedAt.Format(time.RFC3339),
		})
	}

	t.SetStyle(table.StyleLight)
	t.Render()
}

func strOrDash(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
