package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"codepair/internal/agent"
	"codepair/internal/protocol"
	"codepair/internal/services"
	"codepair/internal/tui"
	"codepair/internal/utils"
	"codepair/internal/workspace"
)

var (
	verbose       bool
	dbPath        string
	workspacePath string
	convTitle     string
	modelKey      string
	generation    string
	remoteAddr    string
	agentAddr     string
)

var rootCmd = &cobra.Command{
	Use:   "codepair",
	Short: "AI pair-programming shell with reviewed edits",
	Long: `codepair runs an AI pairing session on a workspace: the agent streams
its response into a transcript, proposed file changes land in a review
ledger, and nothing touches disk until you accept it.

Run without arguments to open the interactive shell on the current
directory.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runShell(cmd.Context())
	},
}

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Run the agent as a standalone websocket server",
	Long: `Serves the agent over websocket so shells on other processes can attach
with --remote. Each connection gets its own session over the configured
workspace root.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAgent(cmd.Context())
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the stored transcript and applied edits of a conversation",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runHistory(cmd.Context())
	},
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all stored conversations, transcripts, and applied edits",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runHistoryClear(cmd.Context())
	},
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete one conversation with its transcript and applied edits",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runHistoryDelete(cmd.Context())
	},
}

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage provider API keys in the OS keyring",
}

var keysSetCmd = &cobra.Command{
	Use:   "set <provider>",
	Short: "Store an API key for a provider (read from stdin)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runKeysSet(args[0])
	},
}

var keysDeleteCmd = &cobra.Command{
	Use:   "delete <provider>",
	Short: "Remove a provider's API key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return services.NewKeyringService().DeleteApiKey(args[0])
	},
}

var keysListCmd = &cobra.Command{
	Use:   "list",
	Short: "List providers with stored keys",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runKeysList()
	},
}

var snapshotsCmd = &cobra.Command{
	Use:   "snapshots",
	Short: "Show repository state relevant to edit recovery",
	Long: `Accepted edits are preceded by a working-tree snapshot commit on the
current branch, so a batch can be unwound with normal git tooling. This
command shows HEAD, local branches, and uncommitted changes for the
workspace.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSnapshots()
	},
}

var snapshotsDiffCmd = &cobra.Command{
	Use:   "diff <commit> <commit>",
	Short: "Print the patch between two commits",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSnapshotsDiff(args[0], args[1])
	},
}

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List and configure the model catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runModelsList(cmd.Context())
	},
}

var modelsUseCmd = &cobra.Command{
	Use:   "use <model-key>",
	Short: "Set the active model",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runModelsUse(cmd.Context(), args[0])
	},
}

var modelsEnableCmd = &cobra.Command{
	Use:   "enable <model-key>",
	Short: "Enable a model",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runModelsEnable(cmd.Context(), args[0], true)
	},
}

var modelsDisableCmd = &cobra.Command{
	Use:   "disable <model-key>",
	Short: "Disable a model",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runModelsEnable(cmd.Context(), args[0], false)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Database path (default: per-environment location)")

	rootCmd.Flags().StringVarP(&workspacePath, "workspace", "w", ".", "Workspace directory to pair on")
	rootCmd.Flags().StringVarP(&convTitle, "conversation", "c", "", "Conversation title (default: \"default\")")
	rootCmd.Flags().StringVarP(&modelKey, "model", "m", "", "Model key (default: active model from settings)")
	rootCmd.Flags().StringVar(&generation, "generation", "", "Protocol generation: flat or rich")
	rootCmd.Flags().StringVar(&remoteAddr, "remote", "", "Attach to a standalone agent at host:port instead of running in-process")

	agentCmd.Flags().StringVar(&agentAddr, "addr", agent.DefaultAddr, "Listen address")
	agentCmd.Flags().StringVarP(&workspacePath, "workspace", "w", ".", "Workspace directory the agent may inspect")
	agentCmd.Flags().StringVarP(&modelKey, "model", "m", "", "Model key (default: active model from settings)")
	agentCmd.Flags().StringVar(&generation, "generation", "", "Protocol generation: flat or rich")

	historyCmd.Flags().StringVarP(&workspacePath, "workspace", "w", ".", "Workspace directory")
	historyCmd.Flags().StringVarP(&convTitle, "conversation", "c", "", "Conversation title (default: \"default\")")
	historyDeleteCmd.Flags().StringVarP(&workspacePath, "workspace", "w", ".", "Workspace directory")
	historyDeleteCmd.Flags().StringVarP(&convTitle, "conversation", "c", "", "Conversation title (default: \"default\")")

	snapshotsCmd.PersistentFlags().StringVarP(&workspacePath, "workspace", "w", ".", "Workspace directory")

	historyCmd.AddCommand(historyClearCmd, historyDeleteCmd)
	keysCmd.AddCommand(keysSetCmd, keysDeleteCmd, keysListCmd)
	modelsCmd.AddCommand(modelsUseCmd, modelsEnableCmd, modelsDisableCmd)
	snapshotsCmd.AddCommand(snapshotsDiffCmd)
	rootCmd.AddCommand(agentCmd, historyCmd, keysCmd, modelsCmd, snapshotsCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// buildLogger returns a debug logger when -v is set. Interactive commands
// log to a file so the alternate screen stays clean.
func buildLogger(interactive bool) (*zap.Logger, error) {
	if !verbose {
		return zap.NewNop(), nil
	}
	cfg := zap.NewDevelopmentConfig()
	if interactive {
		cfg.OutputPaths = []string{"codepair.log"}
		cfg.ErrorOutputPaths = []string{"codepair.log"}
	}
	return cfg.Build()
}

func bootApp(ctx context.Context, logger *zap.Logger) (*App, error) {
	_ = utils.LoadEnv()
	app := NewApp(logger)
	if err := app.Startup(ctx, dbPath); err != nil {
		return nil, err
	}
	return app, nil
}

func runShell(ctx context.Context) error {
	logger, err := buildLogger(true)
	if err != nil {
		return err
	}
	app, err := bootApp(ctx, logger)
	if err != nil {
		return err
	}
	defer app.Shutdown()

	updates := make(chan struct{}, 1)
	session, err := app.Sessions.StartSession(services.StartSessionOptions{
		WorkspacePath:     workspacePath,
		ConversationTitle: convTitle,
		ModelKey:          modelKey,
		Generation:        generation,
		RemoteAddr:        remoteAddr,
		OnUpdate: func() {
			select {
			case updates <- struct{}{}:
			default:
			}
		},
	})
	if err != nil {
		return errors.New(services.FriendlyMessage(err))
	}
	defer func() { _ = session.Close() }()

	return tui.Run(tui.Options{
		Session: session,
		Emitter: app.Emitter,
		Updates: updates,
		Logger:  logger,
	})
}

func runAgent(ctx context.Context) error {
	logger, err := buildLogger(false)
	if err != nil {
		return err
	}
	app, err := bootApp(ctx, logger)
	if err != nil {
		return err
	}
	defer app.Shutdown()

	key, err := resolveModelKey(app)
	if err != nil {
		return err
	}
	client, model, err := app.Sessions.NewAgentClient(key)
	if err != nil {
		return errors.New(services.FriendlyMessage(err))
	}

	root, err := workspace.NewRoot(workspacePath)
	if err != nil {
		return fmt.Errorf("open workspace: %w", err)
	}

	gen := protocol.Generation(strings.TrimSpace(generation))
	if gen == "" {
		if settings, sErr := app.Db.Settings.Get(); sErr == nil {
			gen = protocol.Generation(settings.Generation)
		}
	}

	srv, err := agent.NewServer(agent.ServerConfig{
		Addr:       agentAddr,
		Client:     client,
		Root:       root,
		Generation: gen,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Agent serving %s on %s (%s)\n", root.Base(), srv.Addr(), model.DisplayName)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	return srv.Start()
}

func runHistory(ctx context.Context) error {
	logger, err := buildLogger(false)
	if err != nil {
		return err
	}
	app, err := bootApp(ctx, logger)
	if err != nil {
		return err
	}
	defer app.Shutdown()

	ws, _, err := app.Db.Workspaces.Open(ctx, workspacePath)
	if err != nil {
		return fmt.Errorf("open workspace: %w", err)
	}

	title := strings.TrimSpace(convTitle)
	if title == "" {
		title = services.DefaultConversationTitle
	}

	conversations, err := app.Db.Conversations.ListByWorkspace(ctx, ws.ID)
	if err != nil {
		return err
	}
	if len(conversations) == 0 {
		fmt.Printf("No conversations stored for %s\n", ws.RootPath)
		return nil
	}

	for _, conv := range conversations {
		if conv.Title != title {
			continue
		}
		return printConversation(ctx, app, conv.ID, conv.Title, conv.Provider, conv.ModelKey, conv.Generation)
	}

	fmt.Printf("No conversation %q here. Stored conversations:\n", title)
	for _, conv := range conversations {
		fmt.Printf("  %s (%s/%s, updated %s)\n", conv.Title, conv.Provider, conv.ModelKey, conv.UpdatedAt.Format("2006-01-02 15:04"))
	}
	return nil
}

func printConversation(ctx context.Context, app *App, id uint, title, provider, model, gen string) error {
	fmt.Printf("Conversation %q — %s/%s (%s)\n\n", title, provider, model, gen)

	entries, err := app.Db.Conversations.Transcript(ctx, id)
	if err != nil {
		return err
	}
	for _, e := range entries {
		label := e.Role
		if e.Intent != "" {
			label += " " + e.Intent
		}
		fmt.Printf("[%s] %s\n\n", label, e.Content)
	}

	applied, err := app.Db.Conversations.AppliedEdits(ctx, id)
	if err != nil {
		return err
	}
	if len(applied) > 0 {
		fmt.Println("Applied edits:")
		for _, a := range applied {
			fmt.Printf("  +%d -%d  %s  %s", a.LinesAdded, a.LinesRemoved, a.FilePath, a.Action)
			if a.Explanation != "" {
				fmt.Printf("  %s", firstHistoryLine(a.Explanation))
			}
			fmt.Println()
		}
	}
	return nil
}

func firstHistoryLine(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		s = s[:idx]
	}
	return s
}

func runHistoryDelete(ctx context.Context) error {
	logger, err := buildLogger(false)
	if err != nil {
		return err
	}
	app, err := bootApp(ctx, logger)
	if err != nil {
		return err
	}
	defer app.Shutdown()

	ws, _, err := app.Db.Workspaces.Open(ctx, workspacePath)
	if err != nil {
		return fmt.Errorf("open workspace: %w", err)
	}
	if err := app.Db.Conversations.DeleteThread(ctx, ws.ID, convTitle); err != nil {
		return err
	}

	title := strings.TrimSpace(convTitle)
	if title == "" {
		title = services.DefaultConversationTitle
	}
	fmt.Printf("Deleted conversation %q\n", title)
	return nil
}

func runHistoryClear(ctx context.Context) error {
	logger, err := buildLogger(false)
	if err != nil {
		return err
	}
	app, err := bootApp(ctx, logger)
	if err != nil {
		return err
	}
	defer app.Shutdown()

	if err := app.Db.Conversations.ClearHistory(ctx); err != nil {
		return err
	}
	fmt.Println("History cleared")
	return nil
}

func runKeysSet(provider string) error {
	fmt.Fprintf(os.Stderr, "Paste the API key for %s and press Enter: ", provider)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("read key: %w", err)
	}
	key := strings.TrimSpace(line)
	if key == "" {
		return errors.New("no key entered")
	}
	if err := services.NewKeyringService().StoreApiKey(provider, []byte(key)); err != nil {
		return err
	}
	fmt.Printf("Stored key for %s\n", provider)
	return nil
}

func runKeysList() error {
	providers, err := services.NewKeyringService().ListApiKeys()
	if err != nil {
		return err
	}
	if len(providers) == 0 {
		fmt.Println("No keys stored")
		return nil
	}
	for _, p := range providers {
		fmt.Printf("%s  %s\n", p["provider"], p["label"])
	}
	return nil
}

func runModelsList(ctx context.Context) error {
	logger, err := buildLogger(false)
	if err != nil {
		return err
	}
	app, err := bootApp(ctx, logger)
	if err != nil {
		return err
	}
	defer app.Shutdown()

	settings, err := app.Db.Settings.Get()
	if err != nil {
		return err
	}
	groups, err := app.Db.Models.ListModelGroups()
	if err != nil {
		return err
	}

	for _, g := range groups {
		fmt.Printf("%s\n", g.ProviderName)
		for _, m := range g.Models {
			mark := " "
			if m.Key == settings.ActiveModelKey {
				mark = "*"
			}
			state := "enabled"
			if !m.Enabled {
				state = "disabled"
			}
			fmt.Printf("  %s %-32s %-24s %s\n", mark, m.Key, m.DisplayName, state)
		}
	}
	return nil
}

func runModelsUse(ctx context.Context, key string) error {
	logger, err := buildLogger(false)
	if err != nil {
		return err
	}
	app, err := bootApp(ctx, logger)
	if err != nil {
		return err
	}
	defer app.Shutdown()

	model, err := app.Db.Models.GetModel(key)
	if err != nil {
		return err
	}
	if _, err := app.Db.Settings.SetActiveModel(model.ProviderID, model.Key); err != nil {
		return err
	}
	fmt.Printf("Active model: %s (%s)\n", model.DisplayName, model.Key)
	return nil
}

func runModelsEnable(ctx context.Context, key string, enabled bool) error {
	logger, err := buildLogger(false)
	if err != nil {
		return err
	}
	app, err := bootApp(ctx, logger)
	if err != nil {
		return err
	}
	defer app.Shutdown()

	model, err := app.Db.Models.SetModelEnabled(key, enabled)
	if err != nil {
		return err
	}
	state := "enabled"
	if !enabled {
		state = "disabled"
	}
	fmt.Printf("%s %s\n", model.DisplayName, state)
	return nil
}

func runSnapshots() error {
	logger, err := buildLogger(false)
	if err != nil {
		return err
	}
	svc := services.NewSnapshotService(logger)

	root, err := workspace.NewRoot(workspacePath)
	if err != nil {
		return fmt.Errorf("open workspace: %w", err)
	}
	if err := svc.ValidateRepository(root.Base()); err != nil {
		return err
	}

	head, err := svc.LatestCommit(root.Base())
	if err != nil {
		return err
	}
	fmt.Printf("Workspace %s\nHEAD %s\n", root.Base(), head)

	branches, err := svc.ListBranchesByPath(root.Base())
	if err != nil {
		return err
	}
	if len(branches) > 0 {
		fmt.Println("\nBranches:")
		for _, b := range branches {
			marker := " "
			if b.Head {
				marker = "*"
			}
			fmt.Printf("%s %-28s %s %s\n", marker, b.Name, b.Commit, b.LastCommitDate.Format("2006-01-02 15:04"))
		}
	}

	dirty, err := svc.DirtyFiles(root.Base())
	if err != nil {
		return err
	}
	if len(dirty) == 0 {
		fmt.Println("\nWorking tree clean")
		return nil
	}
	fmt.Println("\nUncommitted changes:")
	for _, p := range dirty {
		fmt.Printf("  %s\n", p)
	}
	return nil
}

func runSnapshotsDiff(from, to string) error {
	logger, err := buildLogger(false)
	if err != nil {
		return err
	}
	svc := services.NewSnapshotService(logger)

	root, err := workspace.NewRoot(workspacePath)
	if err != nil {
		return fmt.Errorf("open workspace: %w", err)
	}
	repo, err := svc.Open(root.Base())
	if err != nil {
		return err
	}
	patch, err := svc.DiffBetweenCommits(repo, from, to)
	if err != nil {
		return err
	}
	fmt.Print(patch)
	return nil
}

func resolveModelKey(app *App) (string, error) {
	if key := strings.TrimSpace(modelKey); key != "" {
		return key, nil
	}
	settings, err := app.Db.Settings.Get()
	if err != nil {
		return "", err
	}
	if settings.ActiveModelKey != "" {
		return settings.ActiveModelKey, nil
	}
	if def, err := app.Db.Models.DefaultModelForProvider(settings.ActiveProvider); err == nil && def != nil {
		return def.Key, nil
	}
	return "", errors.New("no model selected; run: codepair models use <model-key>")
}
