package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/proleads/SupportLine/internal/activation"
	"github.com/proleads/SupportLine/internal/api"
	"github.com/proleads/SupportLine/internal/compose"
	"github.com/proleads/SupportLine/internal/escalation"
	"github.com/proleads/SupportLine/internal/genai"
	"github.com/proleads/SupportLine/internal/knowledge"
	"github.com/proleads/SupportLine/internal/orchestrator"
	"github.com/proleads/SupportLine/internal/roster"
	"github.com/proleads/SupportLine/internal/scheduler"
	"github.com/proleads/SupportLine/internal/store"
	"github.com/proleads/SupportLine/internal/twilioconvo"
	"github.com/proleads/SupportLine/internal/util"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for SupportLine state data
	DefaultStateDir = "/var/lib/supportline"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "supportline.db"
	// DefaultCorpusFileName is the default SQLite knowledge corpus filename
	DefaultCorpusFileName = "knowledge.db"
	// DefaultSweepCron runs the archive sweep nightly
	DefaultSweepCron = "0 3 * * *"
	// DefaultArchiveAfterDays is how long a thread may stay idle before archiving
	DefaultArchiveAfterDays = 30
)

func main() {
	config := loadEnvironmentConfig()
	flags := parseCommandLineFlags(config)
	initializeLogger(*flags.logLevel, *flags.jsonLog)

	if err := run(flags); err != nil {
		slog.Error("SupportLine failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("SupportLine exited successfully")
}

// Config holds environment configuration
type Config struct {
	DatabaseURL      string
	CorpusDSN        string
	StateDir         string
	OpenAIKey        string
	OpenAIModel      string
	APIAddr          string
	AgentIdentity    string
	BotNumber        string
	LogLevel         string
	JSONLog          bool
	ReplyDelaySecs   int
	MaxReplyLen      int
	ArchiveAfterDays int
}

// Flags holds command line flag values
type Flags struct {
	dbDSN            *string
	corpusDSN        *string
	stateDir         *string
	openaiKey        *string
	openaiModel      *string
	apiAddr          *string
	agentIdentity    *string
	botNumber        *string
	logLevel         *string
	jsonLog          *bool
	replyDelaySecs   *int
	maxReplyLen      *int
	archiveAfterDays *int
	corpusSeedFile   *string
}

// initializeLogger sets up structured logging at the requested level.
func initializeLogger(level string, jsonLog bool) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler = slog.NewTextHandler(os.Stdout, handlerOpts)
	if jsonLog {
		handler = slog.NewJSONHandler(os.Stdout, handlerOpts)
	}
	slog.SetDefault(slog.New(handler))
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	}

	config := Config{
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		CorpusDSN:        os.Getenv("KNOWLEDGE_DB_DSN"),
		StateDir:         os.Getenv("SUPPORTLINE_STATE_DIR"),
		OpenAIKey:        os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:      os.Getenv("OPENAI_MODEL"),
		APIAddr:          os.Getenv("API_ADDR"),
		AgentIdentity:    os.Getenv("AGENT_IDENTITY"),
		BotNumber:        os.Getenv("TWILIO_PHONE_NUMBER"),
		LogLevel:         os.Getenv("LOG_LEVEL"),
		JSONLog:          util.ParseBoolEnv("LOG_JSON", false),
		ReplyDelaySecs:   util.ParseIntEnv("REPLY_DELAY_SECONDS", 3),
		MaxReplyLen:      util.ParseIntEnv("MAX_REPLY_LENGTH", compose.DefaultMaxReplyLength),
		ArchiveAfterDays: util.ParseIntEnv("ARCHIVE_AFTER_DAYS", DefaultArchiveAfterDays),
	}

	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
	}
	if config.DatabaseURL == "" {
		config.DatabaseURL = filepath.Join(config.StateDir, DefaultDBFileName)
	}
	if config.CorpusDSN == "" {
		// Postgres deployments keep the corpus in the same database;
		// file-based deployments get a sibling SQLite file.
		if store.DetectDSNType(config.DatabaseURL) == "postgres" {
			config.CorpusDSN = config.DatabaseURL
		} else {
			config.CorpusDSN = filepath.Join(config.StateDir, DefaultCorpusFileName)
		}
	}

	slog.Debug("environment variables loaded",
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"KNOWLEDGE_DB_DSN_SET", config.CorpusDSN != "",
		"SUPPORTLINE_STATE_DIR", config.StateDir,
		"OPENAI_API_KEY_SET", config.OpenAIKey != "",
		"API_ADDR", config.APIAddr,
		"AGENT_IDENTITY_SET", config.AgentIdentity != "",
		"TWILIO_PHONE_NUMBER_SET", config.BotNumber != "")

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		dbDSN:            flag.String("db-dsn", config.DatabaseURL, "database DSN for tickets and archives (overrides $DATABASE_URL)"),
		corpusDSN:        flag.String("corpus-dsn", config.CorpusDSN, "database DSN for the knowledge corpus (overrides $KNOWLEDGE_DB_DSN)"),
		stateDir:         flag.String("state-dir", config.StateDir, "state directory for SupportLine data (overrides $SUPPORTLINE_STATE_DIR)"),
		openaiKey:        flag.String("openai-api-key", config.OpenAIKey, "OpenAI API key (overrides $OPENAI_API_KEY)"),
		openaiModel:      flag.String("openai-model", config.OpenAIModel, "OpenAI completion model (overrides $OPENAI_MODEL)"),
		apiAddr:          flag.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
		agentIdentity:    flag.String("agent-identity", config.AgentIdentity, "internal human agent identity (overrides $AGENT_IDENTITY)"),
		botNumber:        flag.String("bot-number", config.BotNumber, "bot phone number (overrides $TWILIO_PHONE_NUMBER)"),
		logLevel:         flag.String("log-level", config.LogLevel, "log level: debug, info, warn, error (overrides $LOG_LEVEL)"),
		jsonLog:          flag.Bool("json-log", config.JSONLog, "emit logs as JSON instead of text (overrides $LOG_JSON)"),
		replyDelaySecs:   flag.Int("reply-delay", config.ReplyDelaySecs, "seconds to wait before posting a thread reply (overrides $REPLY_DELAY_SECONDS)"),
		maxReplyLen:      flag.Int("max-reply-length", config.MaxReplyLen, "reply length ceiling in characters (overrides $MAX_REPLY_LENGTH)"),
		archiveAfterDays: flag.Int("archive-after-days", config.ArchiveAfterDays, "archive threads idle longer than this many days (overrides $ARCHIVE_AFTER_DAYS)"),
		corpusSeedFile:   flag.String("corpus-seed", "", "JSON file of Q&A entries to load into the knowledge corpus at startup"),
	}
	flag.Parse()
	return flags
}

func run(flags Flags) error {
	st, err := buildStore(*flags.dbDSN)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer st.Close()

	corpus, err := buildCorpus(*flags.corpusDSN)
	if err != nil {
		return fmt.Errorf("failed to initialize knowledge corpus: %w", err)
	}
	defer corpus.Close()

	if *flags.corpusSeedFile != "" {
		if err := seedCorpus(corpus, *flags.corpusSeedFile); err != nil {
			return fmt.Errorf("failed to seed knowledge corpus: %w", err)
		}
	}

	genaiOpts := []genai.Option{genai.WithAPIKey(*flags.openaiKey)}
	if *flags.openaiModel != "" {
		genaiOpts = append(genaiOpts, genai.WithModel(*flags.openaiModel))
	}
	generator, err := genai.NewClient(genaiOpts...)
	if err != nil {
		return fmt.Errorf("failed to initialize GenAI client: %w", err)
	}

	twilioClient, err := twilioconvo.NewClient(twilioconvo.WithFromNumber(*flags.botNumber))
	if err != nil {
		return fmt.Errorf("failed to initialize Twilio client: %w", err)
	}

	registry := activation.NewRegistry()
	composer := compose.NewComposer(corpus, generator, compose.WithMaxReplyLength(*flags.maxReplyLen))
	sync := roster.NewSynchronizer(twilioClient)

	orch := orchestrator.New(orchestrator.Deps{
		Activation: registry,
		Composer:   composer,
		Detector:   escalation.NewLexicalDetector(),
		Tickets:    st,
		Threads:    st,
		Roster:     sync,
		Transport:  twilioClient,
	},
		orchestrator.WithBotIdentity(twilioClient.FromNumber()),
		orchestrator.WithAgentIdentity(*flags.agentIdentity),
		orchestrator.WithReplyDelay(time.Duration(*flags.replyDelaySecs)*time.Second),
	)

	sched := scheduler.NewScheduler()
	defer sched.Stop()
	sweeper := scheduler.NewArchiveSweeper(st, st, time.Duration(*flags.archiveAfterDays)*24*time.Hour)
	if err := sched.AddJob(DefaultSweepCron, func() {
		if err := sweeper.Sweep(context.Background()); err != nil {
			slog.Error("archive sweep failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule archive sweep: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var apiOpts []api.Option
	if *flags.apiAddr != "" {
		apiOpts = append(apiOpts, api.WithAddr(*flags.apiAddr))
	}
	server := api.NewServer(registry, orch, st, st, apiOpts...)
	return server.Run(ctx)
}

// buildStore selects the persistence backend by DSN type.
func buildStore(dsn string) (store.Store, error) {
	if dsn == "" {
		slog.Warn("no database DSN provided, using in-memory store")
		return store.NewInMemoryStore(), nil
	}
	if store.DetectDSNType(dsn) == "postgres" {
		return store.NewPostgresStore(store.WithDSN(dsn))
	}
	return store.NewSQLiteStore(store.WithDSN(dsn))
}

// buildCorpus selects the knowledge backend by DSN type.
func buildCorpus(dsn string) (knowledge.Corpus, error) {
	if dsn == "" {
		slog.Warn("no corpus DSN provided, using in-memory knowledge corpus")
		return knowledge.NewInMemoryCorpus(), nil
	}
	if store.DetectDSNType(dsn) == "postgres" {
		return knowledge.NewPostgresCorpus(knowledge.WithDSN(dsn))
	}
	return knowledge.NewSQLiteCorpus(knowledge.WithDSN(dsn))
}

// seedCorpus loads a JSON array of Q&A entries into the corpus.
func seedCorpus(corpus knowledge.Corpus, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var entries []knowledge.Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("invalid corpus seed file %s: %w", path, err)
	}
	for _, e := range entries {
		if err := corpus.Add(context.Background(), e); err != nil {
			return err
		}
	}
	slog.Info("knowledge corpus seeded", "entries", len(entries), "file", path)
	return nil
}
