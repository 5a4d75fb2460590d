package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/WinMir22/pokolenie-python/internal/infra/docker"
	kafkainfra "github.com/WinMir22/pokolenie-python/internal/infra/kafka"
	"github.com/WinMir22/pokolenie-python/internal/infra/process"
	"github.com/WinMir22/pokolenie-python/internal/runtime"
)

const (
	defaultBackend           = runtime.BackendProcess
	defaultPython            = "python3"
	defaultLogLevel          = "warn"
	pythonDockerImage        = "python:3.12-alpine"
	containerWorkdir         = "/tmp"
	defaultKafkaBrokers      = "kafka:9092"
	defaultKafkaTopic        = "check-jobs"
	defaultKafkaResultsTopic = "check-verdicts"
	defaultKafkaGroupID      = "pokolenie-checker"
)

type appConfig struct {
	Backend  string       `yaml:"backend"`
	Python   string       `yaml:"python"`
	Color    bool         `yaml:"color"`
	LogLevel string       `yaml:"log_level"`
	Docker   dockerConfig `yaml:"docker"`
	Kafka    kafkaConfig  `yaml:"kafka"`
}

type dockerConfig struct {
	Image   string `yaml:"image"`
	Workdir string `yaml:"workdir"`
}

type kafkaConfig struct {
	Brokers      []string `yaml:"brokers"`
	JobsTopic    string   `yaml:"jobs_topic"`
	ResultsTopic string   `yaml:"results_topic"`
	GroupID      string   `yaml:"group_id"`
	MaxJobs      int      `yaml:"max_jobs"`
}

// loadAppConfig reads the environment and then overlays the YAML file at
// path, if any. Keys missing from the file keep their environment value.
func loadAppConfig(path string) (appConfig, error) {
	cfg := appConfig{
		Backend:  envOrDefault("POKOLENIE_BACKEND", defaultBackend),
		Python:   envOrDefault("POKOLENIE_PYTHON", defaultPython),
		Color:    parseBool(os.Getenv("POKOLENIE_COLOR")),
		LogLevel: envOrDefault("POKOLENIE_LOG_LEVEL", defaultLogLevel),
		Docker: dockerConfig{
			Image:   envOrDefault("PYTHON_IMAGE", pythonDockerImage),
			Workdir: envOrDefault("PYTHON_WORKDIR", containerWorkdir),
		},
		Kafka: kafkaConfig{
			Brokers:      parseBrokerList(envOrDefault("KAFKA_BROKERS", defaultKafkaBrokers)),
			JobsTopic:    envOrDefault("KAFKA_TOPIC", defaultKafkaTopic),
			ResultsTopic: envOrDefault("KAFKA_RESULTS_TOPIC", defaultKafkaResultsTopic),
			GroupID:      envOrDefault("KAFKA_GROUP_ID", defaultKafkaGroupID),
			MaxJobs:      parseMaxJobs(os.Getenv("JOBS_EXPECTED")),
		},
	}

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config file %s: %w", path, err)
	}
	if cfg.Kafka.MaxJobs < 0 {
		cfg.Kafka.MaxJobs = 0
	}
	return cfg, nil
}

func (c appConfig) processRunnerConfig() process.Config {
	return process.Config{Python: c.Python}
}

func (c appConfig) dockerRunnerConfig() docker.Config {
	return docker.Config{
		Image:   c.Docker.Image,
		Workdir: c.Docker.Workdir,
	}
}

func (c appConfig) consumerConfig() kafkainfra.Config {
	return kafkainfra.Config{
		Brokers: c.Kafka.Brokers,
		Topic:   c.Kafka.JobsTopic,
		GroupID: c.Kafka.GroupID,
	}
}

func (c appConfig) publisherConfig() kafkainfra.PublisherConfig {
	return kafkainfra.PublisherConfig{
		Brokers: c.Kafka.Brokers,
		Topic:   c.Kafka.ResultsTopic,
	}
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func parseBrokerList(raw string) []string {
	fields := strings.Split(raw, ",")
	brokers := make([]string, 0, len(fields))
	for _, field := range fields {
		if trimmed := strings.TrimSpace(field); trimmed != "" {
			brokers = append(brokers, trimmed)
		}
	}
	return brokers
}

func parseMaxJobs(raw string) int {
	if raw == "" {
		return 0
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return 0
	}
	return value
}

func parseBool(raw string) bool {
	value, err := strconv.ParseBool(strings.TrimSpace(raw))
	return err == nil && value
}
