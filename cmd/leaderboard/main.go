package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/stilln0thing/Matiks-Assignment/internal/background"
	"github.com/stilln0thing/Matiks-Assignment/internal/config"
	"github.com/stilln0thing/Matiks-Assignment/internal/ranking"
	"github.com/stilln0thing/Matiks-Assignment/internal/rankingtest"
	"github.com/stilln0thing/Matiks-Assignment/internal/screens"
	pkglogger "github.com/stilln0thing/Matiks-Assignment/pkg/logger"
)

func main() {
	mock := flag.Bool("mock", false, "Serve an in-memory ranking service instead of LEADERBOARD_API_BASE_URL")
	seed := flag.Int("seed", 500, "Number of users in the in-memory service (with -mock)")
	simulate := flag.Bool("simulate", false, "Continuously nudge random ratings through POST /rating")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}

	logger := pkglogger.New(os.Stderr, cfg.App.LogLevel, cfg.App.Env)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *mock {
		svc := rankingtest.New()
		svc.SeedUsers(*seed)
		srv := httptest.NewServer(svc.Handler())
		defer srv.Close()
		cfg.API.BaseURL = srv.URL + "/api"
		logger.Info("serving in-memory ranking service", slog.String("base_url", cfg.API.BaseURL), slog.Int("users", *seed))
	}

	logger.Info("configuration loaded",
		slog.String("env", cfg.App.Env),
		slog.String("base_url", cfg.API.BaseURL))

	client := ranking.NewClient(cfg.API.BaseURL, ranking.NewHTTPClient(cfg.API.Timeout), logger, cfg.App.Env)

	if *simulate {
		sim := background.NewRatingSimulator(client, client, logger, time.Second, 10, nil)
		go sim.Start(ctx)
		defer sim.Stop()
	}

	board := screens.MountLeaderboard(ctx, client, cfg.Leaderboard.PageSize, logger)
	defer board.Close()
	finder := screens.MountSearch(ctx, client, cfg.Leaderboard.SearchDebounce, logger)
	defer finder.Close()

	out := newRenderer(os.Stdout)
	boardUpdates, unsubscribeBoard := board.Subscribe(32)
	defer unsubscribeBoard()
	searchUpdates, unsubscribeSearch := finder.Subscribe(32)
	defer unsubscribeSearch()

	go out.run(ctx, boardUpdates, searchUpdates)

	out.help()
	commands := readCommands(ctx, os.Stdin)

	for {
		select {
		case <-ctx.Done():
			logger.Info("shutdown signal received")
			return
		case line, ok := <-commands:
			if !ok {
				return
			}
			if !dispatch(ctx, line, board, finder, client, out) {
				return
			}
		}
	}
}

// dispatch maps one input line onto a screen event. It returns false on quit.
func dispatch(ctx context.Context, line string, board *screens.Leaderboard, finder *screens.Search, client *ranking.Client, out *renderer) bool {
	switch {
	case line == "quit" || line == "exit":
		return false
	case line == "more":
		board.ScrollNearEnd()
	case line == "refresh":
		board.Refresh()
	case strings.HasPrefix(line, "/"):
		finder.QueryChanged(strings.TrimPrefix(line, "/"))
	case strings.HasPrefix(line, "rank "):
		id, err := strconv.ParseInt(strings.TrimSpace(strings.TrimPrefix(line, "rank ")), 10, 64)
		if err != nil {
			out.printf("invalid user id\n")
			break
		}
		go func() {
			user, err := client.UserRank(ctx, id)
			if err != nil {
				out.printf("rank lookup failed: %v\n", err)
				return
			}
			out.printf("#%d %s (%d)\n", user.Rank, user.Username, user.Rating)
		}()
	case line == "help" || line == "":
		out.help()
	default:
		out.printf("unknown command %q\n", line)
	}
	return true
}

func readCommands(ctx context.Context, r io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case lines <- strings.TrimRight(scanner.Text(), "\r"):
			case <-ctx.Done():
				return
			}
		}
	}()
	return lines
}
