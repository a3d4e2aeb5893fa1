package config

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/marketflow/lob/pkg/db/queue"
	"github.com/marketflow/lob/pkg/snapshot"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Engine struct {
		LogLevel  string `yaml:"log_level"`
		LogFormat string `yaml:"log_format"`
		// DepthLevels is the default number of levels rendered and
		// captured per side. Zero means all.
		DepthLevels int `yaml:"depth_levels"`
	} `yaml:"engine"`

	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Kafka struct {
		BrokerAddr string `yaml:"broker_addr"`
		Topic      string `yaml:"topic"`
	} `yaml:"kafka"`
}

// Default configuration values
var (
	configFile  = flag.String("config", "", "Path to config file (YAML)")
	logLevel    = flag.String("log_level", "info", "Log level: debug, info, warn, error")
	logFormat   = flag.String("log_format", "pretty", "Log format: json, pretty")
	depthLevels = flag.Int("depth_levels", 10, "Depth levels per side, 0 for all")
)

// LoadConfig loads the configuration from command line flags and optionally from a config file
func LoadConfig() (*Config, error) {
	flag.Parse()

	// Create default configuration
	config := &Config{}
	config.Engine.LogLevel = *logLevel
	config.Engine.LogFormat = *logFormat
	config.Engine.DepthLevels = *depthLevels
	config.Redis.Addr = "localhost:6379"
	config.Kafka.BrokerAddr = "localhost:9092"
	config.Kafka.Topic = "lob-executions"

	// Load configuration from file if specified
	if *configFile != "" {
		yamlFile, err := os.ReadFile(*configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := yaml.Unmarshal(yamlFile, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}

		log.Printf("Loaded configuration from %s", *configFile)
	}

	// Propagate Kafka and Redis settings into package defaults
	queue.SetBrokerList(config.Kafka.BrokerAddr)
	queue.SetTopic(config.Kafka.Topic)
	snapshot.SetDefaultRedisOptions(&snapshot.RedisOptions{
		Addr:     config.Redis.Addr,
		Password: config.Redis.Password,
		DB:       config.Redis.DB,
	})

	return config, nil
}
