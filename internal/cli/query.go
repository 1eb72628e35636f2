package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sandeepkv93/schedd/internal/commands"
	"github.com/sandeepkv93/schedd/internal/engine"
)

func newQueryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "query <text...>",
		Aliases: []string{"q"},
		Short:   "Run a plain-text request",
		Example: `  schedd query schedule dentist tomorrow at 3pm
  schedd query "when am i free friday for 45 minutes"`,
		Args: cobra.MinimumNArgs(1),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			eng, err := a.open()
			if err != nil {
				return err
			}
			res := eng.Query(cmd.Context(), strings.Join(args, " "))
			return a.printResult(cmd.OutOrStdout(), res)
		}),
	}
}

func newActionCmd(a *app) *cobra.Command {
	var (
		payload string
		file    string
	)
	cmd := &cobra.Command{
		Use:   "action [name]",
		Short: "Run a structured request given as JSON",
		Long: "Runs one structured request. The JSON body uses the request field names " +
			"(title, date, start, duration, weekdays, trigger_at, ...). A name argument sets the action.",
		Example: `  schedd action create --json '{"title":"Dentist","date":"2025-10-02","start":"15:00"}'
  echo '{"action":"free_slots","date":"2025-10-02"}' | schedd action --file -`,
		Args: cobra.MaximumNArgs(1),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			req, err := readRequest(cmd.InOrStdin(), payload, file)
			if err != nil {
				return err
			}
			if len(args) == 1 {
				req.Action = args[0]
			}
			if req.Action == "" && req.Query == "" {
				return fmt.Errorf("no action given; known actions: %s", actionNames())
			}
			eng, err := a.open()
			if err != nil {
				return err
			}
			return a.printResult(cmd.OutOrStdout(), eng.Dispatch(cmd.Context(), req))
		}),
	}
	cmd.Flags().StringVar(&payload, "json", "", "Request body as JSON")
	cmd.Flags().StringVar(&file, "file", "", "Read the request body from a file, - for stdin")
	cmd.MarkFlagsMutuallyExclusive("json", "file")
	return cmd
}

func readRequest(stdin io.Reader, payload, file string) (engine.Request, error) {
	var raw []byte
	switch {
	case payload != "":
		raw = []byte(payload)
	case file == "-":
		b, err := io.ReadAll(stdin)
		if err != nil {
			return engine.Request{}, fmt.Errorf("read stdin: %w", err)
		}
		raw = b
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return engine.Request{}, err
		}
		raw = b
	default:
		return engine.Request{}, nil
	}
	var req engine.Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return engine.Request{}, fmt.Errorf("decode request: %w", err)
	}
	return req, nil
}

func actionNames() string {
	names := make([]string, 0, len(engine.Actions))
	for _, a := range engine.Actions {
		names = append(names, string(a))
	}
	return strings.Join(names, ", ")
}

func newTemplatesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "templates",
		Short: "List plan templates",
		Args:  cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, _ []string) error {
			eng, err := a.open()
			if err != nil {
				return err
			}
			res := eng.Dispatch(cmd.Context(), engine.Request{Action: string(commands.IntentTemplateList)})
			return a.printResult(cmd.OutOrStdout(), res)
		}),
	}
}
