package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/lukman83/keepwarm/config"
	"github.com/lukman83/keepwarm/internal/chance"
	"github.com/lukman83/keepwarm/internal/httputil"
	"github.com/lukman83/keepwarm/internal/logger"
	"github.com/lukman83/keepwarm/internal/pinger"
	"github.com/lukman83/keepwarm/internal/session"
	"github.com/lukman83/keepwarm/internal/stealth"
)

var (
	cfg    *config.Config
	cfgErr error
)

var rootCmd = &cobra.Command{
	Use:   "keepwarm",
	Short: "keepwarm - humanised keep-alive pinger",
	Long: "Keeps an idle-suspending host awake by polling it on a humanised schedule,\n" +
		"reusing persisted browser sessions with realistic header fingerprints.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return cfgErr
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Debug logging")
	rootCmd.PersistentFlags().String("store", "", "Session store: dir, sqlite, redis")
	rootCmd.PersistentFlags().String("session-dir", "", "Directory for session records")
	rootCmd.PersistentFlags().Bool("respect-robots", false, "Respect robots.txt rules")
	rootCmd.PersistentFlags().String("proxy-file", "", "Path to proxy list file")
	rootCmd.PersistentFlags().String("log-file", "", "Append logs to this file as well as stderr")
}

func initConfig() {
	cfg = config.DefaultConfig()
	cfgErr = cfg.LoadFromEnv()

	// Override from flags
	flags := rootCmd.PersistentFlags()
	if v, _ := flags.GetBool("verbose"); v {
		cfg.Verbose = true
	}
	if v, _ := flags.GetString("store"); v != "" {
		cfg.Store = v
	}
	if v, _ := flags.GetString("session-dir"); v != "" {
		cfg.SessionDir = v
	}
	if flags.Changed("respect-robots") {
		cfg.RespectRobots, _ = flags.GetBool("respect-robots")
	}
	if v, _ := flags.GetString("proxy-file"); v != "" {
		cfg.ProxyFile = v
	}
	if v, _ := flags.GetString("log-file"); v != "" {
		cfg.LogFile = v
	}
	if cfgErr == nil {
		cfgErr = cfg.Validate()
	}
}

// buildTransport creates the shared chain every tick goes through:
// retries, then robots and rate limiting, then the pooled base transport.
func buildTransport(log *slog.Logger) (http.RoundTripper, error) {
	opts := httputil.TransportOptions{Timeout: cfg.RequestTimeout}
	if cfg.ProxyFile != "" {
		proxies, err := stealth.LoadProxyFile(cfg.ProxyFile)
		if err != nil {
			return nil, err
		}
		if proxies.Len() > 0 {
			opts.Proxy = proxies.Proxy
			log.Info("routing through proxies", slog.Int("count", proxies.Len()))
		}
	}
	base := httputil.NewTransport(opts)

	robotsClient := httputil.NewHTTPClient(base, nil)
	robots := stealth.NewRobotsChecker(robotsClient, cfg.RespectRobots)
	limiter := rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.RateBurst)

	return &httputil.RetryTransport{
		Base: &stealth.Transport{
			Base:        base,
			Robots:      robots,
			RateLimiter: limiter,
		},
		MaxAttempts: cfg.MaxAttempts,
		OnRetry: func(err error, wait time.Duration) {
			log.Debug("retrying request", slog.Duration("backoff", wait), logger.Error(err))
		},
	}, nil
}

// buildApp wires the store, pinger and logger from cfg.
func buildApp(ctx context.Context) (*app, error) {
	log, closer, err := logger.New(logger.Options{
		Verbose: cfg.Verbose,
		File:    cfg.LogFile,
		Format:  cfg.LogFormat,
	})
	if err != nil {
		return nil, err
	}

	backend, err := session.OpenBackend(ctx, session.BackendOptions{
		Kind:       cfg.Store,
		Dir:        cfg.SessionDir,
		SQLitePath: cfg.SQLitePath,
		RedisURL:   cfg.RedisURL,
		RedisKey:   cfg.RedisKey,
	})
	if err != nil {
		closer.Close()
		return nil, fmt.Errorf("open session store: %w", err)
	}

	store := session.NewStore(backend, session.WithLogger(log))
	if n, err := store.Load(ctx); err != nil {
		log.Error("failed to load sessions", logger.Error(err))
	} else {
		log.Debug("session store ready", slog.String("store", cfg.Store), slog.Int("sessions", n))
	}

	transport, err := buildTransport(log)
	if err != nil {
		store.Close()
		closer.Close()
		return nil, err
	}

	// The tick pipeline is serialised by the pinger, so one source serves it.
	r := chance.New()
	selector := session.NewSelector(store, r,
		session.WithTTL(cfg.SessionTTL),
		session.WithReuseProbability(cfg.ReuseProbability),
		session.WithSelectorLogger(log),
	)
	p := pinger.New(cfg.URL,
		stealth.NewSynthesizer(r),
		selector,
		pinger.NewRequester(transport, store, r, log).WithTimeout(cfg.RequestTimeout),
		stealth.NewBehavior(r, log),
		log,
	)

	return &app{log: log, logCloser: closer, store: store, pinger: p, ttl: cfg.SessionTTL}, nil
}
