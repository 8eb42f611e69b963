package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	agentmanus "github.com/dugongyete-ui/agent-manus"
	"github.com/dugongyete-ui/agent-manus/config"
	"github.com/dugongyete-ui/agent-manus/core"
	"github.com/dugongyete-ui/agent-manus/internal/idgen"
)

var (
	version = "0.1.0"
	cfgFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "agent-manus",
		Short: "Autonomous AI agent with real tool execution",
		Long: `Agent-manus runs an autonomous reasoning loop that plans, executes
tools (shell, files, web search, scheduling) and streams its progress.
Serve the HTTP API for the web UI, or chat directly from the terminal.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./agent-manus.yaml)")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newChatCmd())
	rootCmd.AddCommand(newModelsCmd())
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("agent-manus version %s\n", version)
		},
	})

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}

			app, err := agentmanus.New(cfg)
			if err != nil {
				return err
			}
			defer app.Close()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return app.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	return cmd
}

func newChatCmd() *cobra.Command {
	var (
		modelID string
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "chat [message]",
		Short: "Chat with the agent from the terminal",
		Long: `Chat runs the agent loop locally against the configured session store.
With a message argument it answers once and exits; without one it starts
an interactive session (/exit to leave).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}

			app, err := agentmanus.New(cfg)
			if err != nil {
				return err
			}
			defer app.Close()

			if modelID != "" {
				if err := app.Router().Select(modelID); err != nil {
					return err
				}
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			sessionID := idgen.New()
			if len(args) > 0 {
				return chatOnce(ctx, app, sessionID, strings.Join(args, " "), verbose)
			}
			return chatLoop(ctx, app, sessionID, verbose)
		},
	}

	cmd.Flags().StringVar(&modelID, "model", "", "model to use (overrides the configured default)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "show thinking and reflection events")
	return cmd
}

func chatLoop(ctx context.Context, app *agentmanus.App, sessionID string, verbose bool) error {
	current := app.Router().Current()
	fmt.Printf("agent-manus %s / model %s (%s)\n", version, current.ID, current.Category)
	fmt.Println("Type a message, /exit to leave.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "/exit" || input == "/quit" {
			return nil
		}
		if err := chatOnce(ctx, app, sessionID, input, verbose); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			fmt.Fprintln(os.Stderr, "error:", err)
		}
	}
}

func chatOnce(ctx context.Context, app *agentmanus.App, sessionID, message string, verbose bool) error {
	run, err := app.Runner().Start(ctx, sessionID, message)
	if err != nil {
		return err
	}
	printEvents(run.Events, verbose)
	return nil
}

// printEvents renders the run's event stream for a terminal: progress notes
// on their own lines, the answer streamed inline.
func printEvents(events <-chan core.Event, verbose bool) {
	for ev := range events {
		switch ev.Type {
		case core.EventChunk:
			fmt.Print(ev.Content)
		case core.EventPhase, core.EventPlanning, core.EventStatus:
			fmt.Printf("· %s\n", ev.Content)
		case core.EventPlan:
			fmt.Printf("· plan: %s\n", ev.Goal)
			for i, step := range ev.Steps {
				fmt.Printf("    %d. %s\n", i+1, step)
			}
		case core.EventToolStart:
			fmt.Printf("· [%s] running...\n", ev.Tool)
		case core.EventToolResult:
			fmt.Printf("· [%s] %s (%dms)\n", ev.Tool, ev.Status, ev.DurationMS)
		case core.EventThinking, core.EventReflection:
			if verbose {
				fmt.Printf("· %s\n", ev.Content)
			}
		case core.EventDone:
			fmt.Println()
		case core.EventError:
			fmt.Fprintln(os.Stderr, ev.Content)
		}
	}
}

func newModelsCmd() *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "models",
		Short: "List the configured model catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tCATEGORY\tPROVIDER\tNAME")
			for _, entry := range cfg.Models.Catalog {
				if category != "" && entry.Category != category {
					continue
				}
				marker := ""
				if entry.ID == cfg.Models.Default {
					marker = " (default)"
				}
				fmt.Fprintf(w, "%s%s\t%s\t%s\t%s\n", entry.ID, marker, entry.Category, entry.Provider, entry.Name)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "filter by category")
	return cmd
}
