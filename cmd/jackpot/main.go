package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/abrezinsky/jackpot/internal/app"
	"github.com/abrezinsky/jackpot/internal/auth"
	"github.com/abrezinsky/jackpot/internal/browser"
	"github.com/abrezinsky/jackpot/internal/config"
	"github.com/abrezinsky/jackpot/internal/logger"
	"github.com/abrezinsky/jackpot/internal/services"
	"github.com/abrezinsky/jackpot/web"
)

// ANSI escape codes
const (
	reset  = "\033[0m"
	yellow = "\033[33m"
	red    = "\033[31m"
	green  = "\033[32m"
	cyan   = "\033[36m"
	bold   = "\033[1m"
)

var version = "dev"

var (
	configFile string
	envFile    string
)

var logo = []string{
	`       _            _               _   `,
	`      | | __ _  ___| | ___ __   ___ | |_ `,
	`   _  | |/ _' |/ __| |/ / '_ \ / _ \| __|`,
	`  | |_| | (_| | (__|   <| |_) | (_) | |_ `,
	`   \___/ \__,_|\___|_|\_\ .__/ \___/ \__|`,
	`                        |_|              `,
}

// printLogo draws the boxed banner shown when the server starts
func printLogo(w io.Writer) {
	const width = 50
	border := strings.Repeat("═", width)
	fmt.Fprintf(w, "\n  %s╔%s╗%s\n", cyan, border, reset)
	for _, line := range logo {
		pad := (width - len(line)) / 2
		line = strings.Repeat(" ", pad) + line
		line += strings.Repeat(" ", width-len(line))
		fmt.Fprintf(w, "  %s║%s%s%s║%s\n", cyan, yellow, line, cyan, reset)
	}
	fmt.Fprintf(w, "  %s╚%s╝%s\n\n", cyan, border, reset)
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	return config.Load(config.New(), cmd.Flags(), envFile, configFile)
}

func newLogger(cfg *config.Config, out io.Writer, color bool) *logger.SlogLogger {
	return logger.NewWithOptions(logger.Options{
		Level:  logger.ParseLevel(cfg.LogLevel),
		Format: cfg.LogFormat,
		Output: out,
		Color:  color,
	})
}

func openApp(ctx context.Context, cfg *config.Config, log logger.Logger) (*app.App, error) {
	a, err := app.New(ctx, log, cfg, app.Deps{
		TemplatesFS: web.GetTemplatesFS(),
		StaticFS:    web.GetStaticFS(),
		Version:     version,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize application: %w", err)
	}
	return a, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	noKeyboard, _ := cmd.Flags().GetBool("no-keyboard")
	noLogo, _ := cmd.Flags().GetBool("no-logo")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	interactive := !noKeyboard && term.IsTerminal(int(os.Stdin.Fd()))
	var out io.Writer = os.Stdout
	if interactive {
		// raw mode turns off output post-processing
		out = crlfWriter{w: os.Stdout}
	}
	appLog := newLogger(cfg, out, interactive)

	if !noLogo {
		printLogo(out)
	}

	generated := cfg.AdminPassword == ""
	if generated {
		cfg.AdminPassword = auth.GeneratePassword()
	}

	a, err := openApp(ctx, cfg, appLog)
	if err != nil {
		return err
	}
	defer a.Close()

	if generated {
		appLog.Info("Admin password", "password", cfg.AdminPassword)
	}
	appLog.Info("Admin identity", "admin", a.Auth().Admin())

	if interactive {
		kb := &keyboard{
			out:          out,
			log:          appLog,
			opener:       browser.New(),
			dashboardURL: a.PublicURL(),
			lottery:      a.Lottery(),
			scheduler:    a.Scheduler(),
			quit:         cancel,
		}
		kb.printHelp()
		go listenForKeyboard(ctx, kb)
	}

	if err := a.Run(ctx); err != nil {
		return err
	}
	appLog.Info("Server stopped")
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	asJSON, _ := cmd.Flags().GetBool("json")

	ctx := cmd.Context()
	a, err := openApp(ctx, cfg, newLogger(cfg, io.Discard, false))
	if err != nil {
		return err
	}
	defer a.Close()

	st, err := a.Lottery().Status(ctx)
	if err != nil {
		return err
	}
	return printStatus(cmd.OutOrStdout(), st, asJSON)
}

func printStatus(w io.Writer, st *services.Status, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Active:\t%v\n", st.Active)
	fmt.Fprintf(tw, "Prize pool:\t%s SOL\n", formatSOL(st.PrizePool))
	fmt.Fprintf(tw, "Carry over:\t%s SOL\n", formatSOL(st.CarryOver))
	fmt.Fprintf(tw, "Participants:\t%d (%d tickets)\n", st.TotalParticipants, st.TotalTickets)
	fmt.Fprintf(tw, "Fast mode:\t%v (interval %s)\n", st.FastMode, time.Duration(st.ActiveInterval)*time.Second)
	fmt.Fprintf(tw, "Next draw:\t%s (in %s)\n", st.NextDrawAt.Format(time.RFC3339), time.Duration(st.SecondsRemaining)*time.Second)
	fmt.Fprintf(tw, "Draws:\t%d (rollover streak %d)\n", st.DrawCount, st.RolloverStreak)
	if st.PendingPayout {
		fmt.Fprintf(tw, "Pending payout:\tmain %s, %d minor\n", st.Winners.Main, len(st.Winners.Minor))
	}
	fmt.Fprintf(tw, "Schedule:\t%s\n", st.Schedule)
	return tw.Flush()
}

func runCrank(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	log := newLogger(cfg, cmd.ErrOrStderr(), false)
	a, err := openApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.Lottery().RunCrank(ctx)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

func formatSOL(lamports uint64) string {
	return fmt.Sprintf("%d.%09d", lamports/1_000_000_000, lamports%1_000_000_000)
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "jackpot",
		Short:         "Time-gated jackpot lottery server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "YAML config file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file to load before reading the environment")
	rootCmd.PersistentFlags().String("db-path", config.DefaultDBPath, "SQLite database path")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", logger.FormatText, "Log format: text or json")
	rootCmd.PersistentFlags().String("admin-identity", "", "Admin wallet used when the lottery is first created")
	rootCmd.PersistentFlags().String("solana-rpc-url", "", "Solana RPC endpoint for draw slots (local counter if empty)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, dashboard and draw scheduler",
		RunE:  runServe,
	}
	serveCmd.Flags().String("listen-address", config.DefaultListenAddress, "HTTP listen address")
	serveCmd.Flags().String("admin-password", "", "Admin password (generated if empty)")
	serveCmd.Flags().String("public-url", "", "Base URL encoded in entry QR codes")
	serveCmd.Flags().String("draw-cron", config.DefaultDrawCron, "Cron schedule for the draw crank")
	serveCmd.Flags().Bool("no-keyboard", false, "Disable keyboard shortcuts")
	serveCmd.Flags().Bool("no-logo", false, "Skip the startup banner")

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Print the current lottery status from the database",
		RunE:  runStatus,
	}
	statusCmd.Flags().Bool("json", false, "Print the status as JSON")

	crankCmd := &cobra.Command{
		Use:   "crank",
		Short: "Run one draw/payout turn against the database and exit",
		RunE:  runCrank,
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "jackpot %s\n", version)
		},
	}

	rootCmd.AddCommand(serveCmd, statusCmd, crankCmd, versionCmd)
	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%sError:%s %v\n", red, reset, err)
		os.Exit(1)
	}
}
