package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"syscall"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/aika-bot/aika/pkg/agent"
	"github.com/aika-bot/aika/pkg/bus"
	"github.com/aika-bot/aika/pkg/channels"
	"github.com/aika-bot/aika/pkg/config"
	"github.com/aika-bot/aika/pkg/knowledge"
	"github.com/aika-bot/aika/pkg/logger"
	"github.com/aika-bot/aika/pkg/persona"
	"github.com/aika-bot/aika/pkg/providers"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func executeCLI() error {
	root := buildRootCommand()
	return root.Execute()
}

func buildRootCommand() *cobra.Command {
	var showVersion bool

	root := &cobra.Command{
		Use:   "aika",
		Short: "Persona-driven conversational companion with affection and layered memory",
		Long: strings.TrimSpace(`aika runs a character with a persistent relationship model.

Every conversation moves an affection score through relationship levels,
feeds a short-term and vector-backed long-term memory, and grows a
knowledge base the character folds into her replies. Run her on Discord
or chat locally in the terminal.`),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				printVersion()
				return nil
			}
			_ = cmd.Help()
			return fmt.Errorf("a subcommand is required")
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.Flags().BoolVarP(&showVersion, "version", "v", false, "Show build/version metadata")
	root.PersistentFlags().String("config", config.DefaultConfigPath(), "Path to the JSON config file")

	root.AddCommand(newInitCommand())
	root.AddCommand(newRunCommand())
	root.AddCommand(newChatCommand())
	root.AddCommand(newImportCommand())
	root.AddCommand(newStatusCommand())
	root.AddCommand(newVersionCommand())

	return root
}

func configPathFlag(cmd *cobra.Command) string {
	path, _ := cmd.Flags().GetString("config")
	return path
}

func newInitCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "init",
		Short:   "Write a default config file and persona",
		Long:    "Create the config file with defaults filled in and seed the default persona YAML next to it. Existing persona files are left alone.",
		Example: "  aika init\n  aika init --config ./aika.json",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := configPathFlag(cmd)
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("config already exists at %s", path)
			}

			cfg, err := config.Load("")
			if err != nil {
				return err
			}
			if err := cfg.Save(path); err != nil {
				return err
			}
			if err := persona.EnsureDefault(cfg.Agent.PersonaPath); err != nil {
				return err
			}

			fmt.Printf("Config written to %s\n", path)
			fmt.Printf("Persona written to %s\n", cfg.Agent.PersonaPath)
			fmt.Println("Set a provider API key (AIKA_PROVIDERS_OPENROUTER_API_KEY) and run `aika chat`.")
			return nil
		},
	}
}

func newRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "run",
		Short:   "Run the Discord gateway",
		Long:    "Start the Discord channel, the conversation loop, the initiative ticker, and the decay/consolidation scheduler. Runs until interrupted.",
		Example: "  aika run",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := buildRuntime(configPathFlag(cmd), true)
			if err != nil {
				return err
			}
			defer rt.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			messageBus := bus.NewMessageBus()
			defer messageBus.Close()

			manager, err := channels.NewManager(rt.cfg, messageBus)
			if err != nil {
				return err
			}

			initiative := agent.NewInitiative(rt.affection, rt.memory.ShortTerm(), nil, nil)
			loop := agent.NewLoop(messageBus, rt.generator, rt.affection, initiative, 180)
			go loop.Run(ctx)
			go loop.RunInitiative(ctx)

			scheduler := agent.NewScheduler(rt.affection, rt.memory, rt.provider, rt.cfg.Schedule.DecayCron, rt.cfg.Schedule.ConsolidateCron)
			scheduler.Start(ctx)
			defer scheduler.Stop()

			if err := manager.StartAll(ctx); err != nil {
				return err
			}
			defer manager.StopAll(context.Background())

			logger.InfoCF("cli", "gateway running", map[string]interface{}{
				"persona": rt.persona.Persona().BasicInfo.Name,
			})
			fmt.Println("aika is online. Ctrl+C to stop.")

			<-ctx.Done()
			fmt.Println("\nShutting down...")
			return nil
		},
	}
}

func newChatCommand() *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:     "chat",
		Short:   "Chat with the character in the terminal",
		Long:    "Interactive local session against the same memory, knowledge, and affection state the gateway uses.",
		Example: "  aika chat\n  aika chat --user alice",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := buildRuntime(configPathFlag(cmd), true)
			if err != nil {
				return err
			}
			defer rt.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			name := rt.persona.Persona().BasicInfo.Name
			status := rt.affection.RelationshipStatus(userID)
			fmt.Printf("%s (%s, %.0f/100)\n", name, status.Level, status.Score)
			fmt.Printf("%s> %s\n\n", name, status.Greeting)

			rl, err := readline.NewEx(&readline.Config{
				Prompt:          "あなた> ",
				HistoryFile:     filepath.Join(os.TempDir(), ".aika_history"),
				HistoryLimit:    100,
				InterruptPrompt: "^C",
				EOFPrompt:       "exit",
			})
			if err != nil {
				return fmt.Errorf("initialize readline: %w", err)
			}
			defer rl.Close()

			for {
				line, err := rl.Readline()
				if err != nil {
					if err == readline.ErrInterrupt || err == io.EOF {
						fmt.Println("\nまたね！")
						return nil
					}
					return err
				}
				input := strings.TrimSpace(line)
				if input == "" {
					continue
				}
				if input == "/status" {
					printRelationship(rt, userID)
					continue
				}

				fmt.Printf("%s> ", name)
				var streamed strings.Builder
				reply, err := rt.generator.RespondStream(ctx, userID, input, 0, func(chunk string) {
					streamed.WriteString(chunk)
					fmt.Print(chunk)
				})
				if err != nil {
					fmt.Printf("(error: %v)\n", err)
					continue
				}
				// Chunks carry raw provider output. When styling merely
				// appended to it, print the remainder.
				raw := strings.TrimSpace(streamed.String())
				if strings.HasPrefix(reply.Text, raw) {
					fmt.Print(reply.Text[len(raw):])
				}
				fmt.Println()
				if reply.Feedback != "" {
					fmt.Printf("  %s\n", reply.Feedback)
				}
				fmt.Println()

				if ctx.Err() != nil {
					return nil
				}
			}
		},
	}

	cmd.Flags().StringVarP(&userID, "user", "u", "local", "User ID to chat as")
	return cmd
}

func printRelationship(rt *app, userID string) {
	status := rt.affection.RelationshipStatus(userID)
	fmt.Printf("  score:        %.1f/100\n", status.Score)
	fmt.Printf("  level:        %s", status.Level)
	if status.NextLevel != "" {
		fmt.Printf(" (%.0f%% to %s)", status.ProgressToNext, status.NextLevel)
	}
	fmt.Println()
	fmt.Printf("  mood:         %s\n", status.Mood)
	fmt.Printf("  interactions: %d\n", status.InteractionCount)
	if status.IsIgnoring {
		fmt.Println("  she is sulking right now")
	}
}

func newImportCommand() *cobra.Command {
	var (
		text     string
		category string
	)

	cmd := &cobra.Command{
		Use:   "import [path]",
		Short: "Import knowledge from a file, directory, or raw text",
		Long:  "Feed documents into the knowledge base. Items are segmented, indexed for retrieval, and mined for insights that reshape the persona prompt.",
		Example: strings.Join([]string{
			"  aika import notes.md",
			"  aika import ./docs --category hobbies",
			"  aika import --text \"彼は毎朝コーヒーを飲む習慣がある\"",
		}, "\n"),
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && strings.TrimSpace(text) == "" {
				return fmt.Errorf("provide a path or --text")
			}

			rt, err := buildRuntime(configPathFlag(cmd), false)
			if err != nil {
				return err
			}
			defer rt.Close()

			source := text
			kind := knowledge.KindText
			if len(args) > 0 {
				source = args[0]
				kind = knowledge.KindFile
				info, err := os.Stat(source)
				if err != nil {
					return err
				}
				if info.IsDir() {
					kind = knowledge.KindDirectory
				}
			}

			result, err := rt.knowledge.ImportAndLearn(cmd.Context(), source, kind, category)
			if err != nil {
				return err
			}

			fmt.Printf("Imported %d knowledge items, extracted %d insights\n", result.ImportedCount, result.InsightsCount)
			kinds := make([]string, 0, len(result.InsightsByType))
			for k := range result.InsightsByType {
				kinds = append(kinds, k)
			}
			sort.Strings(kinds)
			for _, k := range kinds {
				fmt.Printf("  %-14s %d\n", k, result.InsightsByType[k])
			}
			if rt.provider == nil {
				fmt.Println("(no provider configured; heuristic extraction only)")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&text, "text", "t", "", "Raw text to import instead of a path")
	cmd.Flags().StringVarP(&category, "category", "c", "", "Category label for the imported items")
	return cmd
}

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "status",
		Short:   "Show configuration, provider, and relationship state",
		Example: "  aika status",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := buildRuntime(configPathFlag(cmd), false)
			if err != nil {
				return err
			}
			defer rt.Close()
			cfg := rt.cfg

			fmt.Println("aika status")
			fmt.Println("===========")
			fmt.Printf("persona:    %s (%s)\n", rt.persona.Persona().BasicInfo.Name, cfg.Agent.PersonaPath)
			fmt.Printf("data dir:   %s\n", cfg.Agent.DataDir)

			providerName := providers.ActiveProviderName(cfg)
			if err := providers.ValidateProviderConfig(cfg); err != nil {
				fmt.Printf("provider:   %s (NOT READY: %v)\n", providerName, err)
			} else {
				fmt.Printf("provider:   %s (ready)\n", providerName)
			}
			if cfg.Agent.Model != "" {
				fmt.Printf("model:      %s\n", cfg.Agent.Model)
			}

			if strings.TrimSpace(cfg.Channels.Discord.Token) != "" {
				fmt.Printf("discord:    token set, allow_from=%d entries\n", len(cfg.Channels.Discord.AllowFrom))
			} else {
				fmt.Println("discord:    not configured")
			}

			summary := rt.knowledge.LearningSummary()
			fmt.Printf("knowledge:  %d facts, %d preferences, %d patterns, %d rules\n",
				summary["total_facts"], summary["total_preferences"], summary["total_patterns"], summary["total_emotional_rules"])
			if indexed, err := rt.knowledge.IndexedCount(cmd.Context()); err == nil {
				fmt.Printf("indexed:    %d knowledge items\n", indexed)
			}

			users := rt.affection.UserIDs()
			sort.Strings(users)
			if len(users) == 0 {
				fmt.Println("users:      none yet")
			} else {
				fmt.Printf("users:      %d\n", len(users))
				for _, userID := range users {
					status := rt.affection.RelationshipStatus(userID)
					fmt.Printf("  %-20s %s (%.1f/100, %d interactions)\n", userID, status.Level, status.Score, status.InteractionCount)
				}
			}
			return nil
		},
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "version",
		Short:   "Show build/version metadata",
		Example: "  aika version",
		RunE: func(cmd *cobra.Command, args []string) error {
			printVersion()
			return nil
		},
	}
}

func printVersion() {
	fmt.Printf("aika %s\n", version)
	fmt.Printf("  commit:     %s\n", commit)
	fmt.Printf("  built:      %s\n", buildDate)
	fmt.Printf("  go runtime: %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
