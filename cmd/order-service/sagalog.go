package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/jcmexdev/oms-sagas/internal/coordinator/sagalog"
	"github.com/jcmexdev/oms-sagas/internal/coordinator/sagalog/sqlite"
	"github.com/jcmexdev/oms-sagas/internal/pkg/config"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	stepStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	statusStyle = map[sagalog.Status]lipgloss.Style{
		sagalog.StatusStarted:      lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
		sagalog.StatusStepDone:     lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		sagalog.StatusCompleted:    lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true),
		sagalog.StatusCompensating: lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		sagalog.StatusFailed:       lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
	}
)

func newSagaLogCmd() *cobra.Command {
	var dbPath string
	cmd := &cobra.Command{
		Use:   "sagalog <orderId>",
		Short: "Print the saga log of one order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if dbPath == "" {
				dbPath = config.Default().SagaLog.Path
				if v := os.Getenv("OMS_SAGALOG_PATH"); v != "" {
					dbPath = v
				}
			}
			repo, err := sqlite.Open(dbPath)
			if err != nil {
				return err
			}
			defer repo.Close()

			entries, err := repo.History(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				return fmt.Errorf("no saga log for order %s", args[0])
			}
			printHistory(cmd.OutOrStdout(), args[0], entries)
			return nil
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "saga log database (default: sagalog.path)")
	return cmd
}

func printHistory(w io.Writer, orderID string, entries []sagalog.Entry) {
	fmt.Fprintln(w, headerStyle.Render("saga "+orderID))
	for _, e := range entries {
		line := fmt.Sprintf("%s  %-12s", e.At.Format("2006-01-02T15:04:05.000Z"), statusStyle[e.Status].Render(string(e.Status)))
		if e.Step != "" {
			line += "  " + stepStyle.Render(e.Step)
		}
		if e.TraceID != "" {
			line += "  trace=" + e.TraceID
		}
		fmt.Fprintln(w, line)
		if len(e.Errors) > 0 {
			fmt.Fprintln(w, "    errors: "+strings.Join(e.Errors, "; "))
		}
	}
}
