package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"tfpilot/internal/agent"
	"tfpilot/internal/client"
	"tfpilot/internal/config"
	"tfpilot/internal/filetree"
	"tfpilot/internal/logging"
	"tfpilot/internal/pubsub"
	"tfpilot/internal/tools"
)

var (
	version  = "0.1.0"
	cfgFile  string
	provider string
	model    string
	workDir  string
	logLevel string
)

const systemPrompt = `You are tfpilot, an assistant that edits a project's template file tree on the user's behalf.
You can list, read, edit, and delete files using the provided tools.
Edits and deletions require user approval; prefer small, reviewable changes.
When editing, read the file first and match existing content exactly.`

func main() {
	rootCmd := &cobra.Command{
		Use:   "tfpilot",
		Short: "AI assistant for template file trees",
		Long: `Tfpilot drives a conversational agent over a project's file tree.
The model can list and read files freely; edits and deletions pause
for your approval before anything is changed.`,
		RunE: runApp,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/tfpilot/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&provider, "provider", "", "model provider: gemini or ollama")
	rootCmd.PersistentFlags().StringVar(&model, "model", "", "model to use")
	rootCmd.PersistentFlags().StringVar(&workDir, "workdir", "", "directory to load the file tree from (default: current directory)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("tfpilot version %s\n", version)
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "models",
		Short: "List known models",
		Run: func(cmd *cobra.Command, args []string) {
			for _, m := range client.AvailableModels {
				fmt.Printf("%-24s %-8s %s\n", m.ID, m.Provider, m.Description)
			}
		},
	})

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func runApp(cmd *cobra.Command, args []string) error {
	if cfgFile == "" {
		if home, err := os.UserHomeDir(); err == nil {
			cfgFile = filepath.Join(home, ".config", "tfpilot", "config.yaml")
		}
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if provider != "" {
		cfg.Provider = provider
	}
	if model != "" {
		cfg.Model.Name = model
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if workDir != "" {
		cfg.WorkDir = workDir
	}
	if cfg.WorkDir == "" {
		cfg.WorkDir, err = os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get working directory: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if cfg.Logging.File {
		if err := logging.EnableFileLogging(cfg.WorkDir, logging.ParseLevel(cfg.Logging.Level)); err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		defer logging.Close()
	}

	tree, err := loadTree(cfg.WorkDir)
	if err != nil {
		return fmt.Errorf("failed to load file tree: %w", err)
	}
	store := filetree.NewStore(tree)
	registry := tools.DefaultRegistry(store)

	ctx := context.Background()
	modelClient, err := client.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer modelClient.Close()
	modelClient.SetSystemInstruction(systemPrompt)

	runner := client.NewTurnRunner(modelClient, registry, cfg.Agent.MaxSteps)
	broker := pubsub.NewBroker()
	defer broker.Close()
	conv := agent.NewConversation(runner, registry, broker)
	defer conv.Close()

	repl, err := newREPL(conv, broker, store, cfg)
	if err != nil {
		return err
	}
	return repl.run()
}

// loadTree reads the working directory into an in-memory snapshot. Hidden
// directories, .git, and files that are not valid UTF-8 text are skipped.
func loadTree(dir string) (filetree.Tree, error) {
	const maxFileSize = 512 * 1024

	files := make(map[string]string)
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if path != dir && (strings.HasPrefix(name, ".") || name == "node_modules") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") {
			return nil
		}

		info, err := d.Info()
		if err != nil || info.Size() > maxFileSize {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		if !isText(data) {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return nil
		}
		files[filepath.ToSlash(rel)] = string(data)
		return nil
	})
	if err != nil {
		return filetree.Tree{}, err
	}
	return filetree.FromMap(files), nil
}

func isText(data []byte) bool {
	for _, b := range data {
		if b == 0 {
			return false
		}
	}
	return true
}
