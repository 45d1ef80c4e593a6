package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/taskdeck-dev/taskdeck/internal/api"
	"github.com/taskdeck-dev/taskdeck/internal/cli/guard"
	"github.com/taskdeck-dev/taskdeck/internal/models"
)

// NewReportCmd creates the report command group
func NewReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Generate and manage reports",
	}

	cmd.AddCommand(newReportListCmd())
	cmd.AddCommand(newReportTemplatesCmd())
	cmd.AddCommand(newReportGenerateCmd())
	cmd.AddCommand(newReportExportCmd())
	cmd.AddCommand(newReportDeleteCmd())

	return cmd
}

var reportRequirement = guard.Requirement{
	Permissions: []string{models.PermGenerateReports},
}

func newReportListCmd() *cobra.Command {
	var serverAlias string

	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List generated reports",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context(), serverAlias)
			if err != nil {
				return err
			}

			if err := a.requireAccess("/reports", reportRequirement); err != nil {
				return err
			}

			reports, err := a.client.ListReports(cmd.Context())
			if err != nil {
				return err
			}

			if len(reports) == 0 {
				fmt.Println("No reports yet.")
				fmt.Println("\nGenerate one with: taskdeck report generate <template>")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTEMPLATE\tDEPARTMENT\tCREATED AT")
			fmt.Fprintln(w, "──\t────────\t──────────\t──────────")
			for _, report := range reports {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
					report.ID, report.Template, report.Department, report.CreatedAt)
			}
			w.Flush()
			return nil
		},
	}

	cmd.Flags().StringVar(&serverAlias, "server", "", "Server alias from taskdeck.json")

	return cmd
}

func newReportTemplatesCmd() *cobra.Command {
	var serverAlias string

	cmd := &cobra.Command{
		Use:   "templates",
		Short: "List available report templates",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context(), serverAlias)
			if err != nil {
				return err
			}

			if err := a.requireAccess("/reports/templates", reportRequirement); err != nil {
				return err
			}

			templates, err := a.client.ReportTemplates(cmd.Context())
			if err != nil {
				return err
			}

			for _, tmpl := range templates {
				fmt.Printf("%-24s %s\n", tmpl.Name, tmpl.Description)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&serverAlias, "server", "", "Server alias from taskdeck.json")

	return cmd
}

func newReportGenerateCmd() *cobra.Command {
	var serverAlias string
	var filters api.SearchFilters

	cmd := &cobra.Command{
		Use:   "generate <template>",
		Short: "Generate a report from a template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context(), serverAlias)
			if err != nil {
				return err
			}

			if err := a.requireAccess("/reports/generate", reportRequirement); err != nil {
				return err
			}

			report, err := a.client.GenerateReport(cmd.Context(), args[0], filters)
			if err != nil {
				return fmt.Errorf("failed to generate report: %w", err)
			}

			if store, err := openHistory(); err == nil {
				_ = store.RecordReport(args[0], report.ID)
			}

			fmt.Printf("✓ Generated report %s from template %s\n", report.ID, report.Template)
			fmt.Printf("Export it with: taskdeck report export %s\n", report.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&serverAlias, "server", "", "Server alias from taskdeck.json")
	cmd.Flags().StringVar(&filters.Department, "department", "", "Limit to a department")
	cmd.Flags().StringVar(&filters.Status, "status", "", "Limit to a status")

	return cmd
}

func newReportExportCmd() *cobra.Command {
	var serverAlias, outPath string

	cmd := &cobra.Command{
		Use:   "export <report-id>",
		Short: "Download a report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context(), serverAlias)
			if err != nil {
				return err
			}

			if err := a.requireAccess("/reports/export", reportRequirement); err != nil {
				return err
			}

			data, err := a.client.ExportReport(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to export report: %w", err)
			}

			if outPath == "" {
				outPath = fmt.Sprintf("report-%s.html", args[0])
			}
			if err := os.WriteFile(outPath, data, 0644); err != nil {
				return fmt.Errorf("failed to write report file: %w", err)
			}

			fmt.Printf("✓ Wrote %s (%d bytes)\n", outPath, len(data))
			return nil
		},
	}

	cmd.Flags().StringVar(&serverAlias, "server", "", "Server alias from taskdeck.json")
	cmd.Flags().StringVar(&outPath, "out", "", "Output file path")

	return cmd
}

func newReportDeleteCmd() *cobra.Command {
	var serverAlias string

	cmd := &cobra.Command{
		Use:   "delete <report-id>",
		Short: "Delete a generated report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context(), serverAlias)
			if err != nil {
				return err
			}

			if err := a.requireAccess("/reports/delete", reportRequirement); err != nil {
				return err
			}

			if err := a.client.DeleteReport(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("failed to delete report: %w", err)
			}

			fmt.Printf("✓ Deleted report %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&serverAlias, "server", "", "Server alias from taskdeck.json")

	return cmd
}
