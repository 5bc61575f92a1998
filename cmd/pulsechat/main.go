package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"

	"pulsechat/auth"
	"pulsechat/contract"
	"pulsechat/conversation"
	"pulsechat/infrastructure/rest"
	"pulsechat/infrastructure/ws"
	"pulsechat/internal"
	"pulsechat/moderation"
	"pulsechat/notifications"
	"pulsechat/observability"
	"pulsechat/repositories"
	"pulsechat/runtime/workers"
	"pulsechat/search"
	"pulsechat/sink"
)

// Exit codes for the client application.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

const indexInterval = 15 * time.Second

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
	}
	os.Exit(code)
}

// run handles configuration, wiring and the interactive loop. The pattern
// keeps deferred teardown ahead of the OS exit code.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	if err := config.Validate(); err != nil {
		return exitConfig, fmt.Errorf("config validation: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Viewer identity from the access token
	viewer, err := auth.ViewerFromToken(config.AccessToken)
	if err != nil {
		return exitConfig, err
	}
	log.Info("Authenticated", "viewer", viewer.ID, "tenant", viewer.TenantID)

	// 3. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. Local cache (optional)
	var cache contract.IHistoryCache
	if config.CachePath != "" {
		db, err := badger.Open(badger.DefaultOptions(config.CachePath).
			WithLoggingLevel(badger.WARNING))
		if err != nil {
			return exitRuntime, fmt.Errorf("cache opening failed: %w", err)
		}
		defer func() {
			log.Info("Closing cache...")
			_ = db.Close()
		}()
		cache = repositories.NewHistoryCache(db, log, config.LimitMessages)
	}

	// 5. Search index (optional)
	var index *search.Index
	if config.SearchIndexPath != "" {
		index, err = search.NewIndex(config.SearchIndexPath, log)
		if err != nil {
			return exitRuntime, err
		}
		defer func() {
			log.Info("Closing search index...")
			_ = index.Close()
		}()
	}

	// 6. Display moderation (optional)
	var moderator *moderation.Moderator
	if config.EnableModeration {
		dictionaries, err := moderation.DefaultDictionaries()
		if err != nil {
			return exitRuntime, err
		}
		maskRune, err := config.MaskRune()
		if err != nil {
			return exitConfig, err
		}
		mod, err := moderation.NewModerator(dictionaries, maskRune)
		if err != nil {
			return exitRuntime, err
		}
		moderator = &mod
	}

	// 7. Transport & conversation controller
	api := rest.NewChatAPI(log, config.APIBaseURL, config.AccessToken, config.APITimeout)
	dialer := ws.NewDialer(config.AccessToken)
	controller := conversation.NewController(log, api, dialer, cache, config.WSBaseURL, viewer)

	renderer := newRenderer(os.Stdout, moderator)
	controller.SetOnUpdate(func() {
		renderer.Render(controller.Feed(), controller.Connected(), controller.LastError())
	})

	// 8. Notification center, for the life of the authenticated session
	center := notifications.NewCenter(
		log, dialer, config.WSBaseURL,
		sink.NewToastSink(log, os.Stdout, true),
		config.NotifyRetryDelay,
	)
	if err := center.Start(ctx, viewer); err != nil {
		// An unaffiliated viewer simply has no notification channel.
		log.Info("No notification channel", "reason", err)
	}
	defer center.Stop()

	// 9. Background indexing under supervision
	sup := workers.NewSupervisor(log, config.RestartInterval)
	if index != nil {
		sup.Add(workers.NewIndexerWorker(log, controller, index, indexInterval))
	}
	go sup.Run(ctx)
	defer sup.Stop()

	monitor, err := observability.NewMonitor(log, controller, center)
	if err != nil {
		return exitRuntime, err
	}

	// 10. Open the conversation when a tenant is configured
	if config.TenantID != "" {
		if err := controller.Open(ctx, config.TenantID); err != nil {
			// Inline error state; the user retries with /reconnect.
			log.Warn("Conversation open failed", "error", err)
		}
		defer controller.Close()
	}

	log.Info(">>> pulsechat ready. /sessions /find /reconnect /stats /quit, anything else is sent.")

	// 11. Interactive loop
	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			log.Info("Stopping client...")
			return exitOK, nil
		case line, ok := <-lines:
			if !ok {
				return exitOK, nil
			}
			if quit := dispatch(ctx, line, controller, api, index, monitor, renderer); quit {
				return exitOK, nil
			}
		}
	}
}

// dispatch routes one input line. Returns true on /quit.
func dispatch(
	ctx context.Context,
	line string,
	controller *conversation.Controller,
	api *rest.ChatAPI,
	index *search.Index,
	monitor *observability.Monitor,
	renderer *renderer,
) bool {
	trimmed := strings.TrimSpace(line)
	switch {
	case trimmed == "":
		return false
	case trimmed == "/quit":
		return true
	case trimmed == "/reconnect":
		if err := controller.Reconnect(ctx); err != nil {
			renderer.Error(err)
		}
		return false
	case trimmed == "/stats":
		renderer.Stats(monitor.Snapshot())
		return false
	case trimmed == "/sessions":
		sessions, err := api.Sessions(ctx)
		if err != nil {
			renderer.Error(err)
			return false
		}
		renderer.Sessions(sessions)
		return false
	case strings.HasPrefix(trimmed, "/find"):
		if index == nil {
			renderer.Error(fmt.Errorf("search index disabled (set SEARCH_INDEX_PATH)"))
			return false
		}
		hits, err := index.Search(ctx, search.ParseQuery(trimmed))
		if err != nil {
			renderer.Error(err)
			return false
		}
		renderer.Hits(hits)
		return false
	default:
		if err := controller.Send(trimmed); err != nil {
			renderer.Error(err)
		}
		return false
	}
}
