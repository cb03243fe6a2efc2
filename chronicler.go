package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

const chroniclerSystemPrompt = `You are a dramatic chronicler for a noir mafia game. When players are eliminated, you narrate their fate in a short atmospheric passage. Keep it to 2-3 sentences. Be grim and evocative, fitting for a town with killers hiding among its citizens.`

// Chronicler narrates eliminations for the event log.
// onChunk is called with each text chunk as it streams in.
type Chronicler interface {
	Tell(ctx context.Context, history []string, onChunk func(string)) (string, error)
}

// globalChronicler is nil when no provider is configured (feature disabled).
var globalChronicler Chronicler

type llmChronicler struct {
	llm          llms.Model
	systemPrompt string
	callOpts     []llms.CallOption
}

func (c *llmChronicler) Tell(ctx context.Context, history []string, onChunk func(string)) (string, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, c.systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman,
			"Game events so far:\n"+strings.Join(history, "\n")+
				"\n\nNarrate a short dramatic passage (2-3 sentences) about what just happened to the victim."),
	}

	var fullText strings.Builder
	opts := append(c.callOpts, llms.WithStreamingFunc(func(_ context.Context, chunk []byte) error {
		text := string(chunk)
		fullText.WriteString(text)
		if onChunk != nil {
			onChunk(text)
		}
		return nil
	}))

	_, err := c.llm.GenerateContent(ctx, messages, opts...)
	return strings.TrimSpace(fullText.String()), err
}

// buildCallOpts builds LLM call options from the config.
func buildCallOpts(cfg AppConfig) []llms.CallOption {
	var opts []llms.CallOption

	if cfg.ChroniclerTemperature != "" {
		if f, err := strconv.ParseFloat(cfg.ChroniclerTemperature, 64); err == nil {
			opts = append(opts, llms.WithTemperature(f))
			log.Printf("Chronicler: temperature=%.2f", f)
		} else {
			log.Printf("Chronicler: invalid temperature %q: %v", cfg.ChroniclerTemperature, err)
		}
	}

	if cfg.ChroniclerThinking != "" {
		mode := llms.ThinkingMode(cfg.ChroniclerThinking)
		switch mode {
		case llms.ThinkingModeNone, llms.ThinkingModeLow, llms.ThinkingModeMedium, llms.ThinkingModeHigh, llms.ThinkingModeAuto:
			opts = append(opts, llms.WithThinkingMode(mode))
			log.Printf("Chronicler: thinking=%s", mode)
		default:
			log.Printf("Chronicler: invalid thinking %q (valid: none, low, medium, high, auto)", cfg.ChroniclerThinking)
		}
	}

	return opts
}

// initChronicler sets up the global chronicler from config.
func initChronicler(cfg AppConfig) {
	provider := cfg.ChroniclerProvider
	model := cfg.ChroniclerModel
	callOpts := buildCallOpts(cfg)

	switch provider {
	case "ollama":
		llm, err := ollama.New(ollama.WithModel(model), ollama.WithServerURL(cfg.ChroniclerOllamaURL))
		if err != nil {
			log.Printf("Chronicler: failed to init Ollama (%s at %s): %v", model, cfg.ChroniclerOllamaURL, err)
			return
		}
		globalChronicler = &llmChronicler{llm: llm, systemPrompt: chroniclerSystemPrompt, callOpts: callOpts}
		log.Printf("Chronicler: Ollama model=%s url=%s", model, cfg.ChroniclerOllamaURL)
	case "openai":
		llm, err := openai.New(openai.WithModel(model))
		if err != nil {
			log.Printf("Chronicler: failed to init OpenAI (%s): %v", model, err)
			return
		}
		globalChronicler = &llmChronicler{llm: llm, systemPrompt: chroniclerSystemPrompt, callOpts: callOpts}
		log.Printf("Chronicler: OpenAI model=%s", model)
	case "claude":
		llm, err := anthropic.New(anthropic.WithModel(model))
		if err != nil {
			log.Printf("Chronicler: failed to init Claude (%s): %v", model, err)
			return
		}
		globalChronicler = &llmChronicler{llm: llm, systemPrompt: chroniclerSystemPrompt, callOpts: callOpts}
		log.Printf("Chronicler: Claude model=%s", model)
	case "gemini":
		llm, err := googleai.New(context.Background(), googleai.WithDefaultModel(model))
		if err != nil {
			log.Printf("Chronicler: failed to init Gemini (%s): %v", model, err)
			return
		}
		globalChronicler = &llmChronicler{llm: llm, systemPrompt: chroniclerSystemPrompt, callOpts: callOpts}
		log.Printf("Chronicler: Gemini model=%s", model)
	case "groq":
		llm, err := openai.New(
			openai.WithModel(model),
			openai.WithBaseURL("https://api.groq.com/openai/v1"),
			openai.WithToken(cfg.GroqAPIKey),
		)
		if err != nil {
			log.Printf("Chronicler: failed to init Groq (%s): %v", model, err)
			return
		}
		globalChronicler = &llmChronicler{llm: llm, systemPrompt: chroniclerSystemPrompt, callOpts: callOpts}
		log.Printf("Chronicler: Groq model=%s", model)
	case "openai-compatible":
		if cfg.ChroniclerURL == "" {
			log.Printf("Chronicler: chronicler_url is required for openai-compatible provider")
			return
		}
		opts := []openai.Option{
			openai.WithModel(model),
			openai.WithBaseURL(cfg.ChroniclerURL),
		}
		if cfg.ChroniclerAPIKey != "" {
			opts = append(opts, openai.WithToken(cfg.ChroniclerAPIKey))
		}
		llm, err := openai.New(opts...)
		if err != nil {
			log.Printf("Chronicler: failed to init openai-compatible (%s at %s): %v", model, cfg.ChroniclerURL, err)
			return
		}
		globalChronicler = &llmChronicler{llm: llm, systemPrompt: chroniclerSystemPrompt, callOpts: callOpts}
		log.Printf("Chronicler: openai-compatible model=%s url=%s", model, cfg.ChroniclerURL)
	default:
		log.Printf("Chronicler: disabled (set chronicler_provider to enable)")
	}
}

// maybeChronicle asynchronously narrates the latest elimination in a game.
// The event log is append-only, so the passage is buffered in memory while
// it streams and appended as a single chronicle event once complete.
// Returns immediately.
func maybeChronicle(gameID string) {
	if globalChronicler == nil {
		return
	}

	go func() {
		events, err := getEvents(gameID)
		if err != nil {
			log.Printf("maybeChronicle: fetch events: %v", err)
			return
		}
		var history []string
		for _, e := range events {
			history = append(history, fmt.Sprintf("%s: %s", e.Kind, e.Payload))
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		text, err := globalChronicler.Tell(ctx, history, nil)
		if err != nil {
			log.Printf("maybeChronicle: chronicler error: %v", err)
			return
		}
		if text == "" {
			return
		}

		data, err := json.Marshal(map[string]any{"game_id": gameID, "text": text})
		if err != nil {
			return
		}
		_, err = db.Exec(`
			INSERT INTO game_event (game_id, kind, payload, created_at)
			VALUES (?, ?, ?, ?)`, gameID, EventChronicle, string(data), time.Now().Unix())
		if err != nil {
			logError("maybeChronicle: insert chronicle", err)
			return
		}

		log.Printf("Chronicler: completed passage for game %s", gameID)
		broadcastGameUpdate(gameID)
	}()
}
