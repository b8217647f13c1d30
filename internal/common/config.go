package common

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	LogLevel   string           `yaml:"log_level" validate:"oneof=debug info warn error"`
	Server     ServerConfig     `yaml:"server"`
	Extraction ExtractionConfig `yaml:"extraction"`
	OCR        OCRConfig        `yaml:"ocr"`
	LLM        LLMConfig        `yaml:"llm"`
	Categorize CategorizeConfig `yaml:"categorize"`
	Queue      QueueConfig      `yaml:"queue"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Upload     UploadConfig     `yaml:"upload"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	HTTPAddr    string   `yaml:"http_addr" validate:"required"`
	HealthAddr  string   `yaml:"health_addr"`
	CORSOrigins []string `yaml:"cors_origins"`
}

const (
	ModeAuto      = "auto"
	ModeHeuristic = "heuristic"
	ModeService   = "service"
	ModeKeyword   = "keyword"
	ModeLLM       = "llm"
)

// ExtractionConfig selects and tunes the field extraction strategy.
type ExtractionConfig struct {
	// Mode is auto, heuristic or service. auto picks service when an LLM key is set.
	Mode            string   `yaml:"mode" validate:"oneof=auto heuristic service"`
	Brands          []string `yaml:"brands"`
	VendorHeadLines int      `yaml:"vendor_head_lines" validate:"gte=0"`
	AmountWindow    int      `yaml:"amount_window" validate:"gte=0"`
	DayFirst        bool     `yaml:"day_first"`
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	Tesseract     string `yaml:"tesseract"`
	Pdftotext     string `yaml:"pdftotext"`
	Pdftoppm      string `yaml:"pdftoppm"`
	TesseractLang string `yaml:"tesseract_lang"`
	TessdataDir   string `yaml:"tessdata_dir"`
	DPI           int    `yaml:"dpi" validate:"gte=0"`
	MaxPages      int    `yaml:"max_pages" validate:"gte=0"`
}

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// LLMConfig holds LLM-related configuration
type LLMConfig struct {
	Provider    string        `yaml:"provider" validate:"oneof=openai gemini"`
	Model       string        `yaml:"model"`
	APIKey      string        `yaml:"api_key"`
	BaseURL     string        `yaml:"base_url"`
	Temperature float32       `yaml:"temperature" validate:"gte=0,lte=2"`
	MaxTokens   int           `yaml:"max_tokens" validate:"gte=0"`
	Timeout     time.Duration `yaml:"timeout" validate:"gt=0"`
}

// CategorizeConfig controls transaction classification.
type CategorizeConfig struct {
	Mode        string        `yaml:"mode" validate:"oneof=auto keyword llm"`
	Concurrency int           `yaml:"concurrency" validate:"gte=1"`
	Timeout     time.Duration `yaml:"timeout" validate:"gt=0"`
	RulesFile   string        `yaml:"rules_file"`
}

// QueueConfig sizes the background extraction workers.
type QueueConfig struct {
	Workers int           `yaml:"workers" validate:"gte=1"`
	Size    int           `yaml:"size" validate:"gte=1"`
	Timeout time.Duration `yaml:"timeout" validate:"gt=0"`
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	DSN         string        `yaml:"dsn"`
	MaxConns    int32         `yaml:"max_conns" validate:"gte=0"`
	DialTimeout time.Duration `yaml:"dial_timeout"`
}

// RedisConfig enables the distributed retry lock when Addr is set.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db" validate:"gte=0"`
	LockTTL  time.Duration `yaml:"lock_ttl"`
}

// UploadConfig controls where uploaded and watched files live.
type UploadConfig struct {
	Dir      string `yaml:"dir" validate:"required"`
	MaxBytes int64  `yaml:"max_bytes" validate:"gt=0"`
	InboxDir string `yaml:"inbox_dir"`
}

// Default returns the built-in configuration before files and env are applied.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Server: ServerConfig{
			HTTPAddr:   ":8080",
			HealthAddr: ":8081",
		},
		Extraction: ExtractionConfig{
			Mode:            ModeAuto,
			VendorHeadLines: 3,
		},
		OCR: OCRConfig{
			Tesseract:     "tesseract",
			Pdftotext:     "pdftotext",
			Pdftoppm:      "pdftoppm",
			TesseractLang: "eng",
			DPI:           300,
		},
		LLM: LLMConfig{
			Provider:    ProviderOpenAI,
			Temperature: 0.3,
			MaxTokens:   500,
			Timeout:     45 * time.Second,
		},
		Categorize: CategorizeConfig{
			Mode:        ModeAuto,
			Concurrency: 4,
			Timeout:     20 * time.Second,
		},
		Queue: QueueConfig{
			Workers: 4,
			Size:    256,
			Timeout: 3 * time.Minute,
		},
		Database: DatabaseConfig{
			DSN:         "file:receipts.db?_pragma=busy_timeout(5000)",
			MaxConns:    10,
			DialTimeout: 3 * time.Second,
		},
		Redis: RedisConfig{
			LockTTL: 2 * time.Minute,
		},
		Upload: UploadConfig{
			Dir:      "./uploads",
			MaxBytes: 20 << 20,
		},
	}
}

// LoadConfig builds the configuration: defaults, then an optional YAML file,
// then environment variables (a .env file in the working directory is read
// first when present).
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}
	cfg.applyEnv()
	cfg.applyProviderDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.LogLevel = strings.ToLower(getEnv("LOG_LEVEL", c.LogLevel))

	c.Server.HTTPAddr = getEnv("HTTP_ADDR", c.Server.HTTPAddr)
	c.Server.HealthAddr = getEnv("GRPC_HEALTH_ADDR", c.Server.HealthAddr)
	c.Server.CORSOrigins = getEnvAsList("CORS_ORIGINS", c.Server.CORSOrigins)

	c.Extraction.Mode = strings.ToLower(getEnv("EXTRACT_MODE", c.Extraction.Mode))
	c.Extraction.Brands = getEnvAsList("EXTRACT_BRANDS", c.Extraction.Brands)
	c.Extraction.VendorHeadLines = getEnvAsInt("EXTRACT_VENDOR_HEAD_LINES", c.Extraction.VendorHeadLines)
	c.Extraction.AmountWindow = getEnvAsInt("EXTRACT_AMOUNT_WINDOW", c.Extraction.AmountWindow)
	c.Extraction.DayFirst = getEnvAsBool("EXTRACT_DAY_FIRST", c.Extraction.DayFirst)

	c.OCR.Tesseract = getEnv("TESSERACT_BIN", c.OCR.Tesseract)
	c.OCR.Pdftotext = getEnv("PDFTOTEXT_BIN", c.OCR.Pdftotext)
	c.OCR.Pdftoppm = getEnv("PDFTOPPM_BIN", c.OCR.Pdftoppm)
	c.OCR.TesseractLang = getEnv("TESSERACT_LANG", c.OCR.TesseractLang)
	c.OCR.TessdataDir = getEnv("TESSDATA_PREFIX", c.OCR.TessdataDir)
	c.OCR.DPI = getEnvAsInt("OCR_DPI", c.OCR.DPI)
	c.OCR.MaxPages = getEnvAsInt("OCR_MAX_PAGES", c.OCR.MaxPages)

	c.LLM.Provider = strings.ToLower(getEnv("LLM_PROVIDER", c.LLM.Provider))
	c.LLM.Model = getEnv("LLM_MODEL", c.LLM.Model)
	c.LLM.BaseURL = getEnv("LLM_BASE_URL", c.LLM.BaseURL)
	c.LLM.Temperature = getEnvAsFloat32("LLM_TEMPERATURE", c.LLM.Temperature)
	c.LLM.MaxTokens = getEnvAsInt("LLM_MAX_TOKENS", c.LLM.MaxTokens)
	c.LLM.Timeout = getEnvAsDuration("LLM_TIMEOUT", c.LLM.Timeout)
	switch c.LLM.Provider {
	case ProviderGemini:
		c.LLM.APIKey = getEnv("GEMINI_API_KEY", c.LLM.APIKey)
	default:
		c.LLM.APIKey = getEnv("OPENAI_API_KEY", c.LLM.APIKey)
	}

	c.Categorize.Mode = strings.ToLower(getEnv("CATEGORIZE_MODE", c.Categorize.Mode))
	c.Categorize.Concurrency = getEnvAsInt("CATEGORIZE_CONCURRENCY", c.Categorize.Concurrency)
	c.Categorize.Timeout = getEnvAsDuration("CATEGORIZE_TIMEOUT", c.Categorize.Timeout)
	c.Categorize.RulesFile = getEnv("CATEGORIZE_RULES_FILE", c.Categorize.RulesFile)

	c.Queue.Workers = getEnvAsInt("QUEUE_WORKERS", c.Queue.Workers)
	c.Queue.Size = getEnvAsInt("QUEUE_SIZE", c.Queue.Size)
	c.Queue.Timeout = getEnvAsDuration("QUEUE_PROCESS_TIMEOUT", c.Queue.Timeout)

	c.Database.DSN = getEnv("DB_URL", c.Database.DSN)
	c.Database.MaxConns = getEnvAsInt32("DB_MAX_CONNS", c.Database.MaxConns)
	c.Database.DialTimeout = getEnvAsDuration("DB_DIAL_TIMEOUT", c.Database.DialTimeout)

	c.Redis.Addr = getEnv("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = getEnv("REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = getEnvAsInt("REDIS_DB", c.Redis.DB)
	c.Redis.LockTTL = getEnvAsDuration("REDIS_LOCK_TTL", c.Redis.LockTTL)

	c.Upload.Dir = getEnv("UPLOAD_DIR", c.Upload.Dir)
	c.Upload.MaxBytes = int64(getEnvAsInt("UPLOAD_MAX_BYTES", int(c.Upload.MaxBytes)))
	c.Upload.InboxDir = getEnv("INBOX_DIR", c.Upload.InboxDir)
}

func (c *Config) applyProviderDefaults() {
	if c.LLM.Model != "" {
		return
	}
	switch c.LLM.Provider {
	case ProviderGemini:
		c.LLM.Model = "gemini-2.5-flash"
	default:
		c.LLM.Model = "gpt-4o-mini"
	}
}

// ExtractionMode resolves auto to a concrete strategy name.
func (c *Config) ExtractionMode() string {
	if c.Extraction.Mode == ModeAuto {
		if c.LLM.APIKey != "" {
			return ModeService
		}
		return ModeHeuristic
	}
	return c.Extraction.Mode
}

// CategorizeMode resolves auto to keyword or llm.
func (c *Config) CategorizeMode() string {
	if c.Categorize.Mode == ModeAuto {
		if c.LLM.APIKey != "" {
			return ModeLLM
		}
		return ModeKeyword
	}
	return c.Categorize.Mode
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks struct constraints plus the cross-field rules.
func (c *Config) Validate() error {
	if err := ValidateStruct(c); err != nil {
		var appErr *AppError
		if errors.As(err, &appErr) {
			return NewAppError(CodeConfig, appErr.Message, ErrInvalidInput)
		}
		return NewAppError(CodeConfig, err.Error(), ErrInvalidInput)
	}
	if c.Extraction.Mode == ModeService && c.LLM.APIKey == "" {
		return NewAppError(CodeConfig, "extraction mode service requires an LLM API key", ErrInvalidInput)
	}
	if c.Categorize.Mode == ModeLLM && c.LLM.APIKey == "" {
		return NewAppError(CodeConfig, "categorize mode llm requires an LLM API key", ErrInvalidInput)
	}
	return nil
}
