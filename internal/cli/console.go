package cli

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/sandeepkv93/schedd/internal/update"
)

func newConsoleCmd(a *app) *cobra.Command {
	var noPoll bool
	cmd := &cobra.Command{
		Use:   "console",
		Short: "Open the interactive console",
		Args:  cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, _ []string) error {
			eng, err := a.open()
			if err != nil {
				return err
			}
			cfg := update.Config{
				Location:    a.location,
				Now:         a.now,
				HistoryPath: a.cfg.Console.History,
				Notify:      a.cfg.Console.Notify,
				Notifier:    update.ExecDesktopNotifier{},
			}
			if !noPoll {
				r, err := a.runner(eng)
				if err != nil {
					return err
				}
				r.Start()
				defer r.Stop()
				cfg.Reminders = r.C()
			}
			program := tea.NewProgram(
				update.NewModel(eng, cfg),
				tea.WithAltScreen(),
				tea.WithContext(cmd.Context()),
				tea.WithInput(cmd.InOrStdin()),
				tea.WithOutput(cmd.OutOrStdout()),
			)
			_, err = program.Run()
			return err
		}),
	}
	cmd.Flags().BoolVar(&noPoll, "no-poll", false, "Do not deliver reminders while the console is open")
	return cmd
}
