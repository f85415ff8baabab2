package main

import (
	"errors"
	"io"
	"net"
	"os"
	"time"

	flags "github.com/jessevdk/go-flags"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"

	"tls-strip-proxy/cache"
	"tls-strip-proxy/proxy"
)

var opts struct {
	ListenAddr       string   `short:"a" long:"addr" description:"Listen address for the plaintext side eg 0.0.0.0:8080"`
	Config           string   `short:"c" long:"config" description:"Path to a JSON config file"`
	CacheBackend     string   `long:"cache" choice:"memory" choice:"bigcache" choice:"memcached" description:"Client state cache backend"`
	Memcached        []string `long:"memcached" description:"memcached server address (repeatable)"`
	Timeout          string   `short:"t" long:"timeout" description:"Upstream request timeout eg 30s"`
	InsecureUpstream bool     `short:"k" long:"insecure-upstream" description:"Skip origin certificate verification"`
	Verbose          bool     `short:"v" long:"verbose" description:"Dump request and response heads to the console"`
}

func main() {
	if _, err := flags.Parse(&opts); err != nil {
		os.Exit(1)
	}

	config := loadConfig(opts.Config)
	applyFlags(&config)

	logger := newLogger(config.Verbose)

	clientCache, err := buildCache(config, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create client cache")
	}

	stripProxy := proxy.NewHttpStripProxy(clientCache, logger, config.timeout(), config.InsecureUpstream)
	stripProxy.Verbose = config.Verbose
	var handler proxy.HttpProxy = stripProxy

	listener, err := net.Listen("tcp", config.ListenAddr)
	if err != nil {
		logger.Fatal().Err(err).Str("addr", config.ListenAddr).Msg("failed to start proxy server")
	}
	defer listener.Close()

	logger.Info().
		Str("addr", config.ListenAddr).
		Str("cache", config.CacheBackend).
		Msg("proxy server listening")

	for {
		conn, err := listener.Accept()
		if err != nil {
			logger.Error().Err(err).Msg("failed to accept connection")
			continue
		}

		go handler.HandleHttp(conn)
	}
}

// command line flags win over the config file
func applyFlags(config *Config) {
	if opts.ListenAddr != "" {
		config.ListenAddr = opts.ListenAddr
	}
	if opts.CacheBackend != "" {
		config.CacheBackend = opts.CacheBackend
	}
	if len(opts.Memcached) > 0 {
		config.MemcachedServers = opts.Memcached
	}
	if opts.Timeout != "" {
		config.UpstreamTimeout = opts.Timeout
	}
	if opts.InsecureUpstream {
		config.InsecureUpstream = true
	}
	if opts.Verbose {
		config.Verbose = true
	}
}

func newLogger(verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	var w io.Writer = os.Stderr
	if isatty.IsTerminal(os.Stderr.Fd()) {
		w = zerolog.ConsoleWriter{Out: os.Stderr}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

func buildCache(config Config, logger zerolog.Logger) (cache.ClientCache, error) {
	switch config.CacheBackend {
	case "bigcache":
		return cache.NewBoundedCache(logger, config.CacheMaxMemoryMB, time.Duration(config.CacheTTLMinutes)*time.Minute)
	case "memcached":
		if len(config.MemcachedServers) == 0 {
			return nil, errors.New("memcached backend selected but no servers given")
		}
		mc := cache.NewMemcachedCache(logger, int32(config.CacheTTLMinutes*60), config.MemcachedServers...)
		if err := mc.TestConnection(); err != nil {
			return nil, err
		}
		return mc, nil
	default:
		return cache.NewInMemoryCache(), nil
	}
}
