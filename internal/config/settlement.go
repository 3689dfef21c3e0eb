package config

import (
	"os"
	"strconv"
	"time"
)

type SettlementConfig struct {
	TickInterval time.Duration
	BatchSize    int
	Enabled      bool
}

func LoadSettlementConfig() *SettlementConfig {
	return &SettlementConfig{
		TickInterval: getEnvAsDuration("SETTLEMENT_TICK_INTERVAL", 10*time.Second),
		BatchSize:    getEnvAsInt("SETTLEMENT_BATCH_SIZE", 500),
		Enabled:      getEnvAsBool("SETTLEMENT_ENABLED", true),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if boolVal, err := strconv.ParseBool(val); err == nil {
			return boolVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if duration, err := time.ParseDuration(val); err == nil {
			return duration
		}
	}
	return defaultVal
}
