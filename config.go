package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"
)

type Config struct {
	ListenAddr       string   `json:"listenAddr"`
	UpstreamTimeout  string   `json:"upstreamTimeout"`
	CacheBackend     string   `json:"cacheBackend"`
	CacheTTLMinutes  int      `json:"cacheTTLMinutes"`
	CacheMaxMemoryMB int      `json:"cacheMaxMemoryMB"`
	MemcachedServers []string `json:"memcachedServers"`
	InsecureUpstream bool     `json:"insecureUpstream"`
	Verbose          bool     `json:"verbose"`
}

var defaultConfig = Config{
	ListenAddr:       ":8080",
	UpstreamTimeout:  "30s",
	CacheBackend:     "memory",
	CacheTTLMinutes:  60,
	CacheMaxMemoryMB: 64,
}

func loadConfig(path string) Config {
	config := defaultConfig
	if path == "" {
		return config
	}

	file, err := os.Open(path)
	if err != nil {
		fmt.Println("Error opening config file:", err)
		return config
	}
	defer file.Close()
	jsonBytes, _ := io.ReadAll(file)
	json.Unmarshal(jsonBytes, &config)
	return config
}

func (c Config) timeout() time.Duration {
	d, err := time.ParseDuration(c.UpstreamTimeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}
