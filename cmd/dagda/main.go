package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"dagda/internal/app"
	"dagda/internal/config"
	"dagda/internal/db"
	"dagda/internal/domain"
	"dagda/internal/engine"
	"dagda/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "dagda",
	Short: "Dagda campaign keeper",
	Long: `Dagda keeps the record of a solo tabletop campaign on your machine.
- Party: one character plus the campaign around it (mode, chapter, status).
- Modes: NARRATIVE and SIMPLIFIED forgive 0 HP; MORTAL ends the party (or resets it, see rules.mortal_death).
- Saves: three slots per party; SIMPLIFIED may only restore the newest one.
- Timeline: every change is logged, view it with 'dagda log tail'.
- Outbox: the subset of events a future sync would send, see 'dagda outbox pending'.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("DAGDA")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().StringP("party", "p", "", "party id")
	rootCmd.PersistentFlags().Int64("seed", 0, "seed the dice for a reproducible session")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("party", rootCmd.PersistentFlags().Lookup("party"))
	_ = viper.BindPFlag("seed", rootCmd.PersistentFlags().Lookup("seed"))
}

func registerCommands() {
	rootCmd.AddCommand(partyCmd())
	rootCmd.AddCommand(chapterCmd())
	rootCmd.AddCommand(hpCmd())
	rootCmd.AddCommand(luckCmd())
	rootCmd.AddCommand(noteCmd())
	rootCmd.AddCommand(actionCmd())
	rootCmd.AddCommand(inventoryCmd())
	rootCmd.AddCommand(saveCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(importCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(outboxCmd())
	rootCmd.AddCommand(combatCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(tokenCmd())
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{
		Use:   "config",
		Short: "Manage dagda.yml",
		Long:  "dagda.yml is optional. It picks the death policy for MORTAL parties, the dice source and the API listen address.",
	}
	cfg.AddCommand(configInitCmd())
	cfg.AddCommand(configShowCmd())
	return cfg
}

func configInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default dagda.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path(viper.GetString("workspace"))
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
				return err
			}
			fmt.Println("wrote", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOptional(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(cfg)
			}
			tw := table.NewWriter()
			tw.SetOutputMirror(os.Stdout)
			tw.AppendHeader(table.Row{"Key", "Value"})
			tw.AppendRow(table.Row{"rules.mortal_death", cfg.Rules.MortalDeath})
			tw.AppendRow(table.Row{"dice.source", cfg.Dice.Source})
			tw.AppendRow(table.Row{"dice.seed", cfg.Dice.Seed})
			tw.AppendRow(table.Row{"server.addr", cfg.Server.Addr})
			tw.AppendRow(table.Row{"server.base_path", cfg.Server.BasePath})
			tw.Render()
			return nil
		},
	}
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the local HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd.Context(), func(ctx context.Context, ws *app.Workspace) error {
				if addr == "" {
					addr = ws.Config.Server.Addr
				}
				if basePath == "" {
					basePath = ws.Config.Server.BasePath
				}
				authCfg := server.AuthConfig{JWTSecret: viper.GetString("jwt-secret")}
				if authCfg.JWTSecret == "" {
					log.Printf("WARNING: DAGDA_JWT_SECRET not set, API is open to anyone who can reach %s", addr)
				}
				handler, err := server.New(server.Config{Engine: ws.Engine, BasePath: basePath, Auth: authCfg})
				if err != nil {
					return err
				}
				srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
				go func() {
					<-ctx.Done()
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					srv.Shutdown(shutdownCtx)
				}()
				fmt.Printf("Serving Dagda API on http://%s%s (OpenAPI at %s/openapi.json)\n", addr, basePath, basePath)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from dagda.yml)")
	cmd.Flags().StringVar(&basePath, "base-path", "", "API base path (default from dagda.yml)")
	return cmd
}

func tokenCmd() *cobra.Command {
	var subject string
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for the API",
		Long:  "Signs an HS256 token with DAGDA_JWT_SECRET. A zero --ttl never expires.",
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := server.SignToken(viper.GetString("jwt-secret"), subject, ttl)
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(map[string]any{"token": token, "subject": subject})
			}
			fmt.Println(token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "solo", "token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}

// --- helpers ---

func withWorkspace(ctx context.Context, fn func(context.Context, *app.Workspace) error) error {
	ws, err := app.Open(viper.GetString("workspace"), app.Options{Seed: viper.GetInt64("seed"), Logger: log.Default()})
	if err != nil {
		return err
	}
	defer ws.Close()
	return fn(ctx, ws)
}

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	return withWorkspace(ctx, func(ctx context.Context, ws *app.Workspace) error {
		return fn(ctx, ws.Engine)
	})
}

func currentParty() (string, error) {
	id := strings.TrimSpace(viper.GetString("party"))
	if id == "" {
		return "", fmt.Errorf("--party required (or set DAGDA_PARTY)")
	}
	return id, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printParty(p domain.Party) error {
	if viper.GetBool("json") {
		return printJSON(p)
	}
	c := p.Character
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.SetTitle(p.Name)
	tw.AppendRows([]table.Row{
		{"ID", p.ID},
		{"Mode", p.Mode},
		{"Status", p.Status},
		{"Chapter", p.CurrentChapter},
		{"Character", fmt.Sprintf("%s (%s)", c.Name, c.Talent)},
		{"HP", fmt.Sprintf("%d / %d", c.HPCurrent, c.HPMax)},
		{"Luck", c.Luck},
		{"Dexterity", c.Dexterity},
		{"Bolts", c.Inventory.Currency.Bolts},
		{"Updated", p.UpdatedAt},
	})
	tw.Render()
	return nil
}

func printEvents(events []domain.TimelineEvent) error {
	if viper.GetBool("json") {
		return printJSON(events)
	}
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"When", "Type", "Label"})
	for _, e := range events {
		tw.AppendRow(table.Row{e.CreatedAt, e.Type, e.Label})
	}
	tw.Render()
	return nil
}
