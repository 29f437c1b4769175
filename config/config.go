package config

import (
	"os"
	"strconv"
)

type Config struct {
	Port           string
	ModelAPIKey    string
	ModelName      string
	ModelAPIURL    string
	DBPath         string // Badger directory for threads/provenance/groups
	ScenariosDir   string // root holding one subdirectory per scenario
	PythonBin      string
	ScriptTimeoutS int
	SQLServer      SQLServerConfig
}

// SQLServerConfig enables the optional SQL Server scenario backend. When
// Server is empty, scenarios use per-scenario SQLite files instead.
type SQLServerConfig struct {
	Server   string
	Port     string
	DBPrefix string // scenario databases are named <prefix>_<scenario_id>
	UserID   string
	Password string
	Encrypt  bool
}

func GetConfig() Config {
	return Config{
		Port:           getEnv("PORT", "9090"),
		ModelAPIKey:    getEnv("MODEL_API_KEY", ""),
		ModelName:      getEnv("MODEL_NAME", "qwen3-max"),
		ModelAPIURL:    getEnv("MODEL_API_URL", "https://dashscope.aliyuncs.com/api/v1/services/aigc/text-generation/generation"),
		DBPath:         getEnv("DB_PATH", "./data/badger"),
		ScenariosDir:   getEnv("SCENARIOS_DIR", "./data/scenarios"),
		PythonBin:      getEnv("SCRIPT_PYTHON", "python3"),
		ScriptTimeoutS: getEnvInt("SCRIPT_TIMEOUT_SECONDS", 60),
		SQLServer: SQLServerConfig{
			Server:   getEnv("SQL_SERVER", ""),
			Port:     getEnv("SQL_PORT", "1433"),
			DBPrefix: getEnv("SQL_DB_PREFIX", "scenario"),
			UserID:   getEnv("SQL_USER", ""),
			Password: getEnv("SQL_PASSWORD", ""),
			Encrypt:  getEnv("SQL_ENCRYPT", "true") == "true",
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil && n > 0 {
			return n
		}
	}
	return defaultValue
}
