package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/BTreeMap/SyncPost/internal/api"
	"github.com/BTreeMap/SyncPost/internal/dedup"
	"github.com/BTreeMap/SyncPost/internal/genai"
	"github.com/BTreeMap/SyncPost/internal/lockfile"
	"github.com/BTreeMap/SyncPost/internal/mapping"
	"github.com/BTreeMap/SyncPost/internal/mastodon"
	"github.com/BTreeMap/SyncPost/internal/publisher"
	"github.com/BTreeMap/SyncPost/internal/relay"
	"github.com/BTreeMap/SyncPost/internal/store"
	"github.com/BTreeMap/SyncPost/internal/telegram"
	"github.com/BTreeMap/SyncPost/internal/twiliowhatsapp"
	"github.com/BTreeMap/SyncPost/internal/util"
	"github.com/BTreeMap/SyncPost/internal/whatsapp"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for SyncPost state data
	DefaultStateDir = "/var/lib/syncpost"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "syncpost.db"
)

func main() {
	// Initialize structured logger
	initializeLogger()

	// Load environment configuration
	config := loadEnvironmentConfig()

	// Parse command line flags
	flags := parseCommandLineFlags(config)

	if *flags.adminID == 0 || *flags.channelID == 0 {
		slog.Error("Admin chat id and channel id are required", "admin_set", *flags.adminID != 0, "channel_set", *flags.channelID != 0)
		os.Exit(1)
	}

	// Ensure required directories exist
	if err := ensureDirectoriesExist(flags); err != nil {
		slog.Error("Failed to create required directories", "error", err)
		os.Exit(1)
	}

	// Only one instance may own the state directory at a time
	lock, err := lockfile.AcquireLock(*flags.stateDir)
	if err != nil {
		slog.Error("Failed to acquire state directory lock", "error", err)
		os.Exit(1)
	}
	defer lock.Release()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("Bootstrapping SyncPost with configured modules")
	slog.Debug("Final configuration", "state_dir", *flags.stateDir, "dsn_set", *flags.dbDSN != "", "api_addr", *flags.apiAddr)
	if err := run(ctx, flags); err != nil {
		slog.Error("SyncPost failed to run", "error", err)
		lock.Release()
		os.Exit(1)
	}
	slog.Info("SyncPost exited successfully")
}

// run assembles the modules and serves until the context is cancelled.
func run(ctx context.Context, flags Flags) error {
	kv, err := openStore(flags)
	if err != nil {
		return err
	}
	defer kv.Close()

	tg, err := telegram.NewClient(buildTelegramOptions(flags)...)
	if err != nil {
		return err
	}

	channel := telegram.NewChannelPublisher(tg, *flags.channelID)

	masto, err := mastodon.NewPublisher(buildMastodonOptions(flags)...)
	if err != nil {
		return err
	}
	secondaries := []publisher.Publisher{masto}

	if wa, err := buildWhatsAppPublisher(flags); err != nil {
		return err
	} else if wa != nil {
		secondaries = append(secondaries, wa)
	}

	maps := mapping.NewStore(kv)
	cfg := relay.Config{
		AdminID:     *flags.adminID,
		Channel:     channel,
		Secondaries: secondaries,
		Notifier:    tg,
		Media:       tg,
		Guard:       dedup.NewGuard(kv),
		Resolver:    relay.NewResolver(maps, *flags.channelID),
		Mappings:    maps,
	}

	// Alt text generation is an enrichment; a missing key just disables it.
	if *flags.openaiKey != "" {
		ai, err := genai.NewClient(buildGenAIOptions(flags)...)
		if err != nil {
			slog.Warn("GenAI client unavailable, image alt text disabled", "error", err)
		} else {
			cfg.AltText = ai
		}
	}

	srv := api.NewServer(relay.New(cfg), kv, buildAPIOptions(flags)...)
	return srv.Run(ctx)
}

// Config holds environment configuration
type Config struct {
	TelegramToken  string
	AdminID        int64
	ChannelID      int64
	MastoInstance  string
	MastoToken     string
	DatabaseURL    string
	StateDir       string
	OpenAIKey      string
	APIAddr        string
	WebhookSecret  string
	WhatsAppOn     bool
	WhatsAppVia    string
	WhatsAppTo     string
	WhatsAppDBDSN  string
}

// Flags holds command line flag values
type Flags struct {
	tgToken       *string
	adminID       *int64
	channelID     *int64
	mastoInstance *string
	mastoToken    *string
	stateDir      *string
	dbDSN         *string
	openaiKey     *string
	apiAddr       *string
	webhookSecret *string
	whatsappOn    *bool
	whatsappVia   *string
	whatsappTo    *string
	whatsappDSN   *string
	qrOutput      *string
	numeric       *bool
}

// initializeLogger sets up structured logging with debug level
func initializeLogger() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		TelegramToken: os.Getenv("TG_TOKEN"),
		AdminID:       util.ParseInt64Env("TG_CHAT_ID", 0),
		ChannelID:     util.ParseInt64Env("TG_CHANNEL_ID", 0),
		MastoInstance: os.Getenv("MASTO_INSTANCE"),
		MastoToken:    os.Getenv("MASTO_TOKEN"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		StateDir:      os.Getenv("SYNCPOST_STATE_DIR"),
		OpenAIKey:     os.Getenv("OPENAI_API_KEY"),
		APIAddr:       os.Getenv("API_ADDR"),
		WebhookSecret: os.Getenv("WEBHOOK_SECRET"),
		WhatsAppOn:    util.ParseBoolEnv("WHATSAPP_ENABLED", false),
		WhatsAppVia:   os.Getenv("WHATSAPP_BACKEND"),
		WhatsAppTo:    os.Getenv("WHATSAPP_TO"),
		WhatsAppDBDSN: os.Getenv("WHATSAPP_DB_DSN"),
	}

	// Set default state directory if not specified
	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("No SYNCPOST_STATE_DIR set, using default", "default_state_dir", config.StateDir)
	}

	// If no database URL is provided, default to SQLite in the state directory
	if config.DatabaseURL == "" {
		config.DatabaseURL = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", config.DatabaseURL)
	}

	slog.Debug("environment variables loaded",
		"TG_TOKEN_SET", config.TelegramToken != "",
		"TG_CHAT_ID_SET", config.AdminID != 0,
		"TG_CHANNEL_ID_SET", config.ChannelID != 0,
		"MASTO_INSTANCE", config.MastoInstance,
		"MASTO_TOKEN_SET", config.MastoToken != "",
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"SYNCPOST_STATE_DIR", config.StateDir,
		"OPENAI_API_KEY_SET", config.OpenAIKey != "",
		"API_ADDR", config.APIAddr,
		"WEBHOOK_SECRET_SET", config.WebhookSecret != "",
		"WHATSAPP_ENABLED", config.WhatsAppOn,
		"WHATSAPP_BACKEND", config.WhatsAppVia)

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		tgToken:       flag.String("tg-token", config.TelegramToken, "Telegram bot token (overrides $TG_TOKEN)"),
		adminID:       flag.Int64("admin-id", config.AdminID, "Telegram chat id of the administrator (overrides $TG_CHAT_ID)"),
		channelID:     flag.Int64("channel-id", config.ChannelID, "Telegram channel id for relayed posts (overrides $TG_CHANNEL_ID)"),
		mastoInstance: flag.String("masto-instance", config.MastoInstance, "Mastodon instance base URL (overrides $MASTO_INSTANCE)"),
		mastoToken:    flag.String("masto-token", config.MastoToken, "Mastodon access token (overrides $MASTO_TOKEN)"),
		stateDir:      flag.String("state-dir", config.StateDir, "state directory for SyncPost data (overrides $SYNCPOST_STATE_DIR)"),
		dbDSN:         flag.String("db-dsn", config.DatabaseURL, "database DSN for the key-value store (overrides $DATABASE_URL)"),
		openaiKey:     flag.String("openai-api-key", config.OpenAIKey, "OpenAI API key for image alt text (overrides $OPENAI_API_KEY)"),
		apiAddr:       flag.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
		webhookSecret: flag.String("webhook-secret", config.WebhookSecret, "Telegram webhook secret token (overrides $WEBHOOK_SECRET)"),
		whatsappOn:    flag.Bool("whatsapp", config.WhatsAppOn, "enable the WhatsApp publisher (overrides $WHATSAPP_ENABLED)"),
		whatsappVia:   flag.String("whatsapp-backend", config.WhatsAppVia, "WhatsApp backend: whatsmeow or twilio (overrides $WHATSAPP_BACKEND)"),
		whatsappTo:    flag.String("whatsapp-to", config.WhatsAppTo, "WhatsApp recipient (overrides $WHATSAPP_TO)"),
		whatsappDSN:   flag.String("whatsapp-db-dsn", config.WhatsAppDBDSN, "database DSN for the WhatsApp session store (overrides $WHATSAPP_DB_DSN)"),
		qrOutput:      flag.String("qr-output", "", "path to write WhatsApp login QR code"),
		numeric:       flag.Bool("numeric-code", false, "use numeric WhatsApp login code instead of QR code"),
	}

	flag.Parse()

	slog.Debug("flags parsed",
		"tgTokenSet", *flags.tgToken != "",
		"adminID", *flags.adminID,
		"channelID", *flags.channelID,
		"mastoInstance", *flags.mastoInstance,
		"stateDir", *flags.stateDir,
		"dbDSN_set", *flags.dbDSN != "",
		"openaiKeySet", *flags.openaiKey != "",
		"apiAddr", *flags.apiAddr,
		"whatsapp", *flags.whatsappOn,
		"whatsappBackend", *flags.whatsappVia)

	return flags
}

// ensureDirectoriesExist creates necessary directories for file-based storage
func ensureDirectoriesExist(flags Flags) error {
	if err := os.MkdirAll(*flags.stateDir, 0755); err != nil {
		return err
	}
	if *flags.dbDSN != "" && store.DetectDSNType(*flags.dbDSN) == "sqlite" {
		dbDir := filepath.Dir(*flags.dbDSN)
		slog.Debug("Creating directory for file-based database", "db_dir", dbDir)
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			return err
		}
	}
	return nil
}

// openStore opens the key-value store matching the configured DSN.
func openStore(flags Flags) (store.KV, error) {
	dsn := *flags.dbDSN
	if dsn == "" {
		slog.Warn("No database DSN provided, mappings will not survive restarts")
		return store.NewMemoryStore(), nil
	}
	if store.DetectDSNType(dsn) == "postgres" {
		slog.Debug("Detected PostgreSQL DSN, configuring PostgreSQL store", "dsn_type", "postgres")
		return store.NewPostgresStore(store.WithPostgresDSN(dsn))
	}
	slog.Debug("Detected SQLite DSN, configuring SQLite store", "dsn_type", "sqlite", "db_path", dsn)
	return store.NewSQLiteStore(store.WithSQLiteDSN(dsn))
}

// buildTelegramOptions constructs Telegram client configuration options
func buildTelegramOptions(flags Flags) []telegram.Option {
	var tgOpts []telegram.Option
	if *flags.tgToken != "" {
		tgOpts = append(tgOpts, telegram.WithToken(*flags.tgToken))
	}
	return tgOpts
}

// buildMastodonOptions constructs Mastodon publisher configuration options
func buildMastodonOptions(flags Flags) []mastodon.Option {
	var mastoOpts []mastodon.Option
	if *flags.mastoInstance != "" {
		mastoOpts = append(mastoOpts, mastodon.WithInstance(*flags.mastoInstance))
	}
	if *flags.mastoToken != "" {
		mastoOpts = append(mastoOpts, mastodon.WithAccessToken(*flags.mastoToken))
	}
	return mastoOpts
}

// buildGenAIOptions constructs GenAI configuration options
func buildGenAIOptions(flags Flags) []genai.Option {
	var genaiOpts []genai.Option
	if *flags.openaiKey != "" {
		genaiOpts = append(genaiOpts, genai.WithAPIKey(*flags.openaiKey))
	}
	return genaiOpts
}

// buildAPIOptions constructs API server configuration options
func buildAPIOptions(flags Flags) []api.Option {
	var apiOpts []api.Option
	if *flags.apiAddr != "" {
		apiOpts = append(apiOpts, api.WithAddr(*flags.apiAddr))
	}
	if *flags.webhookSecret != "" {
		apiOpts = append(apiOpts, api.WithWebhookSecret(*flags.webhookSecret))
	}
	return apiOpts
}

// buildWhatsAppPublisher constructs the optional WhatsApp publisher using
// the configured backend. Returns nil when WhatsApp is disabled.
func buildWhatsAppPublisher(flags Flags) (publisher.Publisher, error) {
	if !*flags.whatsappOn {
		return nil, nil
	}
	if *flags.whatsappVia == "twilio" {
		slog.Debug("Configuring Twilio WhatsApp backend")
		var twOpts []twiliowhatsapp.Option
		if *flags.whatsappTo != "" {
			twOpts = append(twOpts, twiliowhatsapp.WithTo(*flags.whatsappTo))
		}
		return twiliowhatsapp.NewPublisher(twOpts...)
	}

	slog.Debug("Configuring whatsmeow WhatsApp backend")
	waOpts := []whatsapp.Option{}
	if *flags.whatsappDSN != "" {
		waOpts = append(waOpts, whatsapp.WithDBDSN(*flags.whatsappDSN))
	} else {
		waOpts = append(waOpts, whatsapp.WithDBDSN(filepath.Join(*flags.stateDir, "whatsmeow.db")))
	}
	if *flags.whatsappTo != "" {
		waOpts = append(waOpts, whatsapp.WithTo(*flags.whatsappTo))
	}
	if *flags.qrOutput != "" {
		waOpts = append(waOpts, whatsapp.WithQRCodeOutput(*flags.qrOutput))
	}
	if *flags.numeric {
		waOpts = append(waOpts, whatsapp.WithNumericCode())
	}
	return whatsapp.NewPublisher(waOpts...)
}
