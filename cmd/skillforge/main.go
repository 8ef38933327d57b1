package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pavelanni/skillforge/internal/course"
	"github.com/pavelanni/skillforge/internal/display"
	"github.com/pavelanni/skillforge/internal/history"
	appI18n "github.com/pavelanni/skillforge/internal/i18n"
	"github.com/pavelanni/skillforge/internal/llm"
	"github.com/pavelanni/skillforge/internal/model"
	"github.com/pavelanni/skillforge/internal/session"
	"github.com/pavelanni/skillforge/internal/simulator"
	"github.com/pavelanni/skillforge/internal/validator"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "skillforge",
		Short: "Interactive CLI learning platform powered by LLMs",
	}
	root.AddCommand(learnCmd(), resumeCmd(), statusCmd(), sessionsCmd(), cacheCmd(), exportCmd())
	return root
}

// addCommonFlags registers the flags every subcommand shares.
func addCommonFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("data-dir", "", "Data directory (default ~/.skillforge)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
}

// addLLMFlags registers the flags for commands that talk to the LLM.
func addLLMFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("llm-url", "http://localhost:11434/v1", "OpenAI-compatible API base URL")
	f.String("llm-key", "ollama", "API key for LLM")
	f.String("llm-model", "llama3.2", "LLM model name")
	f.StringP("lang", "l", "en", "UI language (en, ru)")
}

func learnCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "learn <topic>",
		Short: "Generate a course on a topic and start learning",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runLearn,
	}
	f := cmd.Flags()
	f.StringP("difficulty", "d", "beginner", "Course difficulty (beginner, intermediate, advanced)")
	f.IntP("lessons", "n", 5, "Number of lessons to generate (1-20)")
	f.Bool("no-cache", false, "Skip the course cache and force regeneration")
	f.Bool("no-interactive", false, "Generate and show the course without starting a session")
	f.String("user", "", "User identifier stored with the session")
	addLLMFlags(cmd)
	addCommonFlags(cmd)
	return cmd
}

func resumeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resume [session-id]",
		Short: "Resume a saved session (latest if no id is given)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runResume,
	}
	addLLMFlags(cmd)
	addCommonFlags(cmd)
	return cmd
}

func statusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status <session-id>",
		Short: "Show detailed progress for a saved session",
		Args:  cobra.ExactArgs(1),
		RunE:  runStatus,
	}
	addCommonFlags(cmd)
	return cmd
}

func sessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List saved sessions",
		RunE:  runSessions,
	}
	addCommonFlags(cmd)
	return cmd
}

func cacheCmd() *cobra.Command {
	cache := &cobra.Command{
		Use:   "cache",
		Short: "Manage the course cache",
	}

	clear := &cobra.Command{
		Use:   "clear",
		Short: "Delete all cached courses",
		RunE:  runCacheClear,
	}
	addCommonFlags(clear)

	info := &cobra.Command{
		Use:   "info",
		Short: "Show course cache statistics",
		RunE:  runCacheInfo,
	}
	addCommonFlags(info)

	cache.AddCommand(clear, info)
	return cache
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <session-id>",
		Short: "Export a session with its attempt history as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  runExport,
	}
	cmd.Flags().StringP("output", "o", "-", "Output file path (- for stdout)")
	addCommonFlags(cmd)
	return cmd
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("SKILLFORGE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("skillforge")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/skillforge")
	v.AddConfigPath("/etc/skillforge")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

// dataDir resolves the data directory, defaulting to ~/.skillforge.
func dataDir(v *viper.Viper) (string, error) {
	dir := v.GetString("data-dir")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		dir = filepath.Join(home, ".skillforge")
	} else if strings.HasPrefix(dir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		dir = filepath.Join(home, dir[2:])
	}
	return dir, nil
}

func newLLMClient(ctx context.Context, v *viper.Viper) (*llm.Client, error) {
	client := llm.New(v.GetString("llm-url"), v.GetString("llm-key"), v.GetString("llm-model"))
	if err := client.Ping(ctx); err != nil {
		return nil, fmt.Errorf("LLM health check: %w", err)
	}
	slog.Info("LLM endpoint OK", "url", v.GetString("llm-url"), "model", v.GetString("llm-model"))
	return client, nil
}

// openHistory opens the attempt-history database. Failures are downgraded
// to a warning: the session still runs without attempt logging.
func openHistory(dir string) *history.Store {
	store, err := history.Open(filepath.Join(dir, "history.db"))
	if err != nil {
		slog.Warn("attempt history disabled", "error", err)
		return nil
	}
	return store
}

func runLearn(cmd *cobra.Command, args []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	topic := strings.TrimSpace(strings.Join(args, " "))
	difficulty, ok := model.ParseDifficulty(v.GetString("difficulty"))
	if !ok {
		return fmt.Errorf("invalid difficulty %q (want beginner, intermediate, or advanced)", v.GetString("difficulty"))
	}

	dir, err := dataDir(v)
	if err != nil {
		return err
	}
	if err := appI18n.Init(v.GetString("lang")); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := newLLMClient(ctx, v)
	if err != nil {
		return err
	}

	gen := course.New(client, filepath.Join(dir, "cache", "courses"))
	crs, err := gen.GenerateCourse(ctx, topic, difficulty, v.GetInt("lessons"), !v.GetBool("no-cache"))
	if err != nil {
		return err
	}
	slog.Info("course ready", "topic", crs.Topic, "lessons", len(crs.Lessons), "exercises", crs.TotalExercises())

	if v.GetBool("no-interactive") {
		return printCourseOverview(cmd.OutOrStdout(), crs)
	}

	hist := openHistory(dir)
	if hist != nil {
		defer hist.Close()
	}

	disp := display.New(cmd.OutOrStdout(), cmd.InOrStdin())
	mgr := session.CreateNewSession(crs, v.GetString("user"),
		simulator.New(client), validator.New(client), disp, dir, historyOrNil(hist))
	return mgr.Run(ctx)
}

func runResume(cmd *cobra.Command, args []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	dir, err := dataDir(v)
	if err != nil {
		return err
	}
	if err := appI18n.Init(v.GetString("lang")); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	sessionID, err := pickSessionID(dir, args)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := newLLMClient(ctx, v)
	if err != nil {
		return err
	}

	hist := openHistory(dir)
	if hist != nil {
		defer hist.Close()
	}

	disp := display.New(cmd.OutOrStdout(), cmd.InOrStdin())
	mgr, err := session.LoadSession(sessionID,
		simulator.New(client), validator.New(client), disp, dir, historyOrNil(hist))
	if err != nil {
		return err
	}
	slog.Info("resuming session", "session", sessionID, "topic", mgr.Session().Course.Topic)
	return mgr.Run(ctx)
}

// pickSessionID resolves the argument (possibly a prefix) or falls back to
// the most recently active saved session.
func pickSessionID(dir string, args []string) (string, error) {
	if len(args) == 1 {
		return session.ResolveSessionID(dir, args[0])
	}
	infos, err := session.FindSavedSessions(dir)
	if err != nil {
		return "", err
	}
	if len(infos) == 0 {
		return "", fmt.Errorf("no saved sessions; start one with 'skillforge learn'")
	}
	return infos[0].SessionID, nil
}

func historyOrNil(hist *history.Store) session.AttemptRecorder {
	if hist == nil {
		return nil
	}
	return hist
}

func runStatus(cmd *cobra.Command, args []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	dir, err := dataDir(v)
	if err != nil {
		return err
	}

	sessionID, err := session.ResolveSessionID(dir, args[0])
	if err != nil {
		return err
	}
	sess, err := session.ReadSession(dir, sessionID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Session:    %s\n", sess.SessionID)
	fmt.Fprintf(out, "Topic:      %s (%s)\n", sess.Course.Topic, sess.Course.Difficulty)
	fmt.Fprintf(out, "State:      %s\n", sess.State)
	fmt.Fprintf(out, "Completion: %.0f%%\n", sess.Progress.CompletionPercent())
	fmt.Fprintf(out, "Last used:  %s\n\n", sess.LastActivityAt.Format("2006-01-02 15:04"))

	for i := range sess.Course.Lessons {
		lesson := &sess.Course.Lessons[i]
		lp := &sess.Progress.LessonProgress[i]
		fmt.Fprintf(out, "%2d. %-40s %-12s %3.0f%%\n",
			i+1, lesson.Title, strings.ReplaceAll(string(lp.Status), "_", " "), lp.CompletionPercent())
	}
	return nil
}

func runSessions(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	dir, err := dataDir(v)
	if err != nil {
		return err
	}
	infos, err := session.FindSavedSessions(dir)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(infos) == 0 {
		fmt.Fprintln(out, "No saved sessions.")
		return nil
	}
	fmt.Fprintf(out, "%-36s  %-24s  %-12s  %-9s  %s\n", "SESSION", "TOPIC", "DIFFICULTY", "STATE", "DONE")
	for _, info := range infos {
		topic := info.Topic
		if len(topic) > 24 {
			topic = topic[:21] + "..."
		}
		fmt.Fprintf(out, "%-36s  %-24s  %-12s  %-9s  %.0f%%\n",
			info.SessionID, topic, info.Difficulty, info.State, info.CompletionPercent)
	}
	return nil
}

func runCacheClear(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	dir, err := dataDir(v)
	if err != nil {
		return err
	}
	gen := course.New(nil, filepath.Join(dir, "cache", "courses"))
	n, err := gen.ClearCache()
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed %d cached course(s).\n", n)
	return nil
}

func runCacheInfo(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	dir, err := dataDir(v)
	if err != nil {
		return err
	}
	gen := course.New(nil, filepath.Join(dir, "cache", "courses"))
	stats, err := gen.Stats()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Cache dir:      %s\n", stats.CacheDir)
	fmt.Fprintf(out, "Cached courses: %d\n", stats.CachedCourses)
	fmt.Fprintf(out, "Total size:     %d bytes\n", stats.TotalSizeBytes)
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	dir, err := dataDir(v)
	if err != nil {
		return err
	}

	sessionID, err := session.ResolveSessionID(dir, args[0])
	if err != nil {
		return err
	}
	sess, err := session.ReadSession(dir, sessionID)
	if err != nil {
		return err
	}

	hist, err := history.Open(filepath.Join(dir, "history.db"))
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer hist.Close()

	export, err := hist.ExportSession(sess)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal export: %w", err)
	}

	var out io.Writer = cmd.OutOrStdout()
	if path := v.GetString("output"); path != "" && path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		out = f
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}

func printCourseOverview(out io.Writer, crs *model.Course) error {
	fmt.Fprintf(out, "%s (%s)\n%s\n\n", crs.Topic, crs.Difficulty, crs.Description)
	for i := range crs.Lessons {
		lesson := &crs.Lessons[i]
		fmt.Fprintf(out, "Lesson %d: %s (%d exercises)\n", i+1, lesson.Title, len(lesson.Exercises))
		for _, obj := range lesson.Objectives {
			fmt.Fprintf(out, "  - %s\n", obj)
		}
	}
	return nil
}
