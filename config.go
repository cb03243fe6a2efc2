package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"
	"strconv"
)

// AppConfig holds all server configuration.
// Priority (lowest → highest): defaults < env vars < JSON config file < CLI flags.
type AppConfig struct {
	// Server
	DB   string `json:"db"`   // database connection string
	Dev  bool   `json:"dev"`  // dev mode: verbose logging, db dumps on errors
	Addr string `json:"addr"` // HTTP listen address

	// Accounts
	StartingBalance int64 `json:"starting_balance"` // credited to each new account

	// Logging (extended diagnostics, off by default)
	LogOutputDir string `json:"log_output_dir"`
	LogRequests  bool   `json:"log_requests"`
	LogDB        bool   `json:"log_db"`
	LogWS        bool   `json:"log_ws"`
	LogDebug     bool   `json:"log_debug"`

	// AI Chronicler
	ChroniclerProvider    string `json:"chronicler_provider"`    // ollama | openai | claude | gemini | groq | openai-compatible
	ChroniclerModel       string `json:"chronicler_model"`       // model name
	ChroniclerOllamaURL   string `json:"chronicler_ollama_url"`  // Ollama server URL
	ChroniclerURL         string `json:"chronicler_url"`         // base URL for openai-compatible
	ChroniclerAPIKey      string `json:"chronicler_api_key"`     // API key for openai-compatible
	ChroniclerTemperature string `json:"chronicler_temperature"` // float 0-1 as string
	ChroniclerThinking    string `json:"chronicler_thinking"`    // none | low | medium | high | auto
	GroqAPIKey            string `json:"groq_api_key"`           // API key for groq provider
}

func (cfg AppConfig) toLogConfig() LogConfig {
	return LogConfig{
		OutputDir:   cfg.LogOutputDir,
		LogRequests: cfg.LogRequests,
		LogDB:       cfg.LogDB,
		LogWS:       cfg.LogWS,
		Debug:       cfg.LogDebug,
	}
}

func defaultConfig() AppConfig {
	return AppConfig{
		DB:                  "file::memory:?cache=shared",
		Addr:                ":8080",
		StartingBalance:     1000,
		ChroniclerOllamaURL: "http://localhost:11434",
	}
}

// loadConfig builds a config by layering: defaults → env vars → JSON config file.
// CLI flag overrides are applied separately by flagValues.applyTo after flag.Parse.
func loadConfig(configPath string) AppConfig {
	cfg := defaultConfig()

	// Layer 1: env vars
	envStr := os.Getenv
	envBool := func(key string) (val bool, set bool) {
		v := os.Getenv(key)
		if v == "" {
			return false, false
		}
		return v == "1" || v == "true" || v == "yes", true
	}

	if v := envStr("DB"); v != "" {
		cfg.DB = v
	}
	if v, ok := envBool("DEV"); ok {
		cfg.Dev = v
	}
	if v := envStr("ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := envStr("STARTING_BALANCE"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.StartingBalance = n
		} else {
			log.Printf("Config: invalid STARTING_BALANCE %q: %v", v, err)
		}
	}
	if v := envStr("LOG_OUTPUT_DIR"); v != "" {
		cfg.LogOutputDir = v
	}
	if v, ok := envBool("LOG_REQUESTS"); ok {
		cfg.LogRequests = v
	}
	if v, ok := envBool("LOG_DB"); ok {
		cfg.LogDB = v
	}
	if v, ok := envBool("LOG_WS"); ok {
		cfg.LogWS = v
	}
	if v, ok := envBool("LOG_DEBUG"); ok {
		cfg.LogDebug = v
	}
	if v := envStr("CHRONICLER_PROVIDER"); v != "" {
		cfg.ChroniclerProvider = v
	}
	if v := envStr("CHRONICLER_MODEL"); v != "" {
		cfg.ChroniclerModel = v
	}
	if v := envStr("CHRONICLER_OLLAMA_URL"); v != "" {
		cfg.ChroniclerOllamaURL = v
	}
	if v := envStr("CHRONICLER_URL"); v != "" {
		cfg.ChroniclerURL = v
	}
	if v := envStr("CHRONICLER_API_KEY"); v != "" {
		cfg.ChroniclerAPIKey = v
	}
	if v := envStr("CHRONICLER_TEMPERATURE"); v != "" {
		cfg.ChroniclerTemperature = v
	}
	if v := envStr("CHRONICLER_THINKING"); v != "" {
		cfg.ChroniclerThinking = v
	}
	if v := envStr("GROQ_API_KEY"); v != "" {
		cfg.GroqAPIKey = v
	}

	// Layer 2: JSON config file — only fields present in the file override env vars
	if data, err := os.ReadFile(configPath); err == nil {
		var overlay map[string]json.RawMessage
		if err := json.Unmarshal(data, &overlay); err != nil {
			log.Printf("Config: failed to parse %s: %v", configPath, err)
		} else {
			applyJSONOverlay(&cfg, overlay)
			log.Printf("Config: loaded from %s", configPath)
		}
	} else if !os.IsNotExist(err) {
		log.Printf("Config: failed to read %s: %v", configPath, err)
	}

	return cfg
}

// applyJSONOverlay only sets fields that are explicitly present in the JSON map.
func applyJSONOverlay(cfg *AppConfig, m map[string]json.RawMessage) {
	str := func(key string, dst *string) {
		if v, ok := m[key]; ok {
			json.Unmarshal(v, dst)
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := m[key]; ok {
			json.Unmarshal(v, dst)
		}
	}
	num := func(key string, dst *int64) {
		if v, ok := m[key]; ok {
			json.Unmarshal(v, dst)
		}
	}
	str("db", &cfg.DB)
	boolean("dev", &cfg.Dev)
	str("addr", &cfg.Addr)
	num("starting_balance", &cfg.StartingBalance)
	str("log_output_dir", &cfg.LogOutputDir)
	boolean("log_requests", &cfg.LogRequests)
	boolean("log_db", &cfg.LogDB)
	boolean("log_ws", &cfg.LogWS)
	boolean("log_debug", &cfg.LogDebug)
	str("chronicler_provider", &cfg.ChroniclerProvider)
	str("chronicler_model", &cfg.ChroniclerModel)
	str("chronicler_ollama_url", &cfg.ChroniclerOllamaURL)
	str("chronicler_url", &cfg.ChroniclerURL)
	str("chronicler_api_key", &cfg.ChroniclerAPIKey)
	str("chronicler_temperature", &cfg.ChroniclerTemperature)
	str("chronicler_thinking", &cfg.ChroniclerThinking)
	str("groq_api_key", &cfg.GroqAPIKey)
}

// flagValues holds pointers to all registered CLI flags.
type flagValues struct {
	configPath            *string
	db                    *string
	dev                   *bool
	addr                  *string
	startingBalance       *int64
	logOutputDir          *string
	logRequests           *bool
	logDB                 *bool
	logWS                 *bool
	logDebug              *bool
	chroniclerProvider    *string
	chroniclerModel       *string
	chroniclerOllamaURL   *string
	chroniclerURL         *string
	chroniclerAPIKey      *string
	chroniclerTemperature *string
	chroniclerThinking    *string
	groqAPIKey            *string
}

// registerFlags registers all CLI flags and returns pointers to their values.
// Call flag.Parse() after this, then applyTo to layer them over the loaded config.
func registerFlags() flagValues {
	return flagValues{
		configPath:            flag.String("config", "config.json", "path to JSON config file"),
		db:                    flag.String("db", "", "database connection string"),
		dev:                   flag.Bool("dev", false, "enable development mode (verbose logging, db dumps on error)"),
		addr:                  flag.String("addr", "", "HTTP listen address (e.g. :8080)"),
		startingBalance:       flag.Int64("starting-balance", 0, "balance credited to new accounts"),
		logOutputDir:          flag.String("log-output-dir", "", "directory for extended log files"),
		logRequests:           flag.Bool("log-requests", false, "log HTTP requests and responses"),
		logDB:                 flag.Bool("log-db", false, "log database dumps"),
		logWS:                 flag.Bool("log-ws", false, "log WebSocket messages"),
		logDebug:              flag.Bool("log-debug", false, "enable debug logging"),
		chroniclerProvider:    flag.String("chronicler-provider", "", "AI chronicler provider (ollama|openai|claude|gemini|groq|openai-compatible)"),
		chroniclerModel:       flag.String("chronicler-model", "", "AI chronicler model name"),
		chroniclerOllamaURL:   flag.String("chronicler-ollama-url", "", "Ollama server URL"),
		chroniclerURL:         flag.String("chronicler-url", "", "base URL for openai-compatible provider"),
		chroniclerAPIKey:      flag.String("chronicler-api-key", "", "API key for chronicler provider"),
		chroniclerTemperature: flag.String("chronicler-temperature", "", "sampling temperature 0-1"),
		chroniclerThinking:    flag.String("chronicler-thinking", "", "thinking mode: none|low|medium|high|auto"),
		groqAPIKey:            flag.String("groq-api-key", "", "Groq API key"),
	}
}

// applyTo overlays any CLI flags that were explicitly set onto cfg.
// Flags that were not passed on the command line are ignored (env/JSON values win).
func (fv flagValues) applyTo(cfg *AppConfig) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "db":
			cfg.DB = *fv.db
		case "dev":
			cfg.Dev = *fv.dev
		case "addr":
			cfg.Addr = *fv.addr
		case "starting-balance":
			cfg.StartingBalance = *fv.startingBalance
		case "log-output-dir":
			cfg.LogOutputDir = *fv.logOutputDir
		case "log-requests":
			cfg.LogRequests = *fv.logRequests
		case "log-db":
			cfg.LogDB = *fv.logDB
		case "log-ws":
			cfg.LogWS = *fv.logWS
		case "log-debug":
			cfg.LogDebug = *fv.logDebug
		case "chronicler-provider":
			cfg.ChroniclerProvider = *fv.chroniclerProvider
		case "chronicler-model":
			cfg.ChroniclerModel = *fv.chroniclerModel
		case "chronicler-ollama-url":
			cfg.ChroniclerOllamaURL = *fv.chroniclerOllamaURL
		case "chronicler-url":
			cfg.ChroniclerURL = *fv.chroniclerURL
		case "chronicler-api-key":
			cfg.ChroniclerAPIKey = *fv.chroniclerAPIKey
		case "chronicler-temperature":
			cfg.ChroniclerTemperature = *fv.chroniclerTemperature
		case "chronicler-thinking":
			cfg.ChroniclerThinking = *fv.chroniclerThinking
		case "groq-api-key":
			cfg.GroqAPIKey = *fv.groqAPIKey
		}
	})
}
