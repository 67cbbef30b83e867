package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Default class lists used to diagnose predictions.
var (
	DefaultHealthyClasses = []string{
		"Blueberry leaf", "Peach leaf", "Raspberry leaf", "Strawberry leaf",
		"Tomato leaf", "Bell_pepper leaf",
	}
	DefaultDiseaseClasses = []string{
		"Tomato leaf yellow virus", "Tomato Septoria leaf spot",
		"Corn leaf blight", "Potato leaf early blight",
	}
)

type Config struct {
	Port         int
	Password     string
	LogDirectory string
	DatabasePath string
	// ImageDirectory holds rendered diagnosis images.
	ImageDirectory string
	// ExampleDirectory holds the bundled example photos.
	ExampleDirectory string
	MaxUploadSize    int64 // bytes

	PredictionURL       string
	PredictionUsername  string
	PredictionAPIKey    string
	PredictionModel     string
	PredictionInput     string // input field id of the uploaded image
	PredictionOutput    string // output field id holding the regions
	PredictionThreshold float64
	PredictionTimeout   time.Duration

	RenderWidth  int
	RenderBorder int

	HealthyClasses []string
	DiseaseClasses []string
}

// Load reads the configuration from the environment. A .env file in the working
// directory, when present, fills variables that are not already set.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:             getEnvAsInt("PORT", 8080),
		Password:         getEnv("PASSWORD", ""),
		LogDirectory:     getEnv("LOG_DIR", filepath.Join(".", "logs")),
		DatabasePath:     getEnv("DB_PATH", filepath.Join(".", "data", "diagnoses.db")),
		ImageDirectory:   getEnv("IMAGE_DIR", filepath.Join(".", "data", "results")),
		ExampleDirectory: getEnv("EXAMPLES_DIR", filepath.Join(".", "img")),
		MaxUploadSize:    getEnvAsInt64("MAX_UPLOAD_MB", 50) << 20,

		PredictionURL:       getEnv("BIGML_URL", "https://labs.dev.bigml.io/andromeda/"),
		PredictionUsername:  getEnv("BIGML_USERNAME", ""),
		PredictionAPIKey:    getEnv("BIGML_API_KEY", ""),
		PredictionModel:     getEnv("BIGML_MODEL", "deepnet/5JidvaoVsQ28fCiJg3tBge21vwS"),
		PredictionInput:     getEnv("BIGML_INPUT_FIELD", "000002"),
		PredictionOutput:    getEnv("BIGML_OUTPUT_FIELD", "000000"),
		PredictionThreshold: getEnvAsFloat("PREDICTION_THRESHOLD", 0.4),
		PredictionTimeout:   getEnvAsDuration("PREDICTION_TIMEOUT", 60*time.Second),

		RenderWidth:  getEnvAsInt("RENDER_WIDTH", 1000),
		RenderBorder: getEnvAsInt("RENDER_BORDER", 50),

		HealthyClasses: getEnvAsList("HEALTHY_CLASSES", DefaultHealthyClasses),
		DiseaseClasses: getEnvAsList("DISEASE_CLASSES", DefaultDiseaseClasses),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvAsList splits on '|' since class names contain spaces.
func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return append([]string(nil), defaultValue...)
	}

	var list []string
	for _, item := range strings.Split(value, "|") {
		if item = strings.TrimSpace(item); item != "" {
			list = append(list, item)
		}
	}
	return list
}
