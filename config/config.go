package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const ENV_FILE = ".env"
const CONFIG_FILE = "config.yaml"

type AppConfig struct {
	Logging         LoggingConfig         `yaml:"logging"`
	Server          ServerConfig          `yaml:"server"`
	Store           StoreConfig           `yaml:"store"`
	Gemini          GeminiConfig          `yaml:"gemini"`
	Browser         BrowserConfig         `yaml:"browser"`
	Scraper         ScraperConfig         `yaml:"scraper"`
	Autofill        AutofillConfig        `yaml:"autofill"`
	SuggestionQuota SuggestionQuotaConfig `yaml:"suggestion_quota"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

type ServerConfig struct {
	Addr        string   `yaml:"addr"`
	CORSOrigins []string `yaml:"cors_origins"`
}

// StoreConfig selects the key-value backend. Driver is one of memory, redis, mongo.
type StoreConfig struct {
	Driver string      `yaml:"driver"`
	Redis  RedisConfig `yaml:"redis"`
	Mongo  MongoConfig `yaml:"mongo"`
}

type RedisConfig struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
}

type MongoConfig struct {
	URI        string `yaml:"uri"`
	Database   string `yaml:"database"`
	Collection string `yaml:"collection"`
}

// GeminiConfig 는 제안 생성에 쓰는 모델 설정이다.
// API 키는 설정 파일이 아니라 GEMINI_API_KEY 환경변수 또는 사용자 설정에서 읽는다.
type GeminiConfig struct {
	Model   string        `yaml:"model"`
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
	APIKey  string        `yaml:"-"`
}

type BrowserConfig struct {
	ChromePath string        `yaml:"chrome_path"`
	RemoteURL  string        `yaml:"remote_url"`
	UserAgent  string        `yaml:"user_agent"`
	Timeout    time.Duration `yaml:"timeout"`
	// Render false 이면 headless 브라우저 없이 HTTP GET 결과만 파싱한다.
	Render bool `yaml:"render"`
}

type ScraperConfig struct {
	MaxTags int `yaml:"max_tags"`
}

type AutofillConfig struct {
	UploadURL string `yaml:"upload_url"`
}

// SuggestionQuotaConfig 는 제안용 LLM 호출에 대한 속도/일일 한도를 정의한다.
type SuggestionQuotaConfig struct {
	// RequestsPerMinute 는 분당 최대 요청 수이다. 0 이하면 제한 없음으로 간주한다.
	RequestsPerMinute int `yaml:"requests_per_minute"`

	// RequestsPerDay 는 일일 최대 요청 수이다. 0 이하면 제한 없음으로 간주한다.
	RequestsPerDay int `yaml:"requests_per_day"`
}

var config *AppConfig

func InitApp() {
	c, err := Load(GetBasePath())
	if err != nil {
		panic(err)
	}
	config = &c
}

// Load reads .env and config.yaml from dir. A missing config.yaml yields the defaults.
func Load(dir string) (AppConfig, error) {
	// load environment variables
	_ = godotenv.Load(filepath.Join(dir, ENV_FILE))

	c := AppConfig{}
	data, err := os.ReadFile(filepath.Join(dir, CONFIG_FILE))
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &c); err != nil {
			return AppConfig{}, fmt.Errorf("parse %s: %w", CONFIG_FILE, err)
		}
	case os.IsNotExist(err):
	default:
		return AppConfig{}, fmt.Errorf("read %s: %w", CONFIG_FILE, err)
	}

	c.Gemini.APIKey = os.Getenv("GEMINI_API_KEY")
	if uri := os.Getenv("MONGO_URI"); uri != "" {
		c.Store.Mongo.URI = uri
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		c.Store.Redis.Addr = addr
	}
	c.applyDefaults()
	return c, nil
}

func (c *AppConfig) applyDefaults() {
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Store.Driver == "" {
		c.Store.Driver = "memory"
	}
	if c.Store.Redis.Addr == "" {
		c.Store.Redis.Addr = "localhost:6379"
	}
	if c.Store.Redis.KeyPrefix == "" {
		c.Store.Redis.KeyPrefix = "redgen"
	}
	if c.Store.Mongo.Database == "" {
		c.Store.Mongo.Database = "redgen"
	}
	if c.Store.Mongo.Collection == "" {
		c.Store.Mongo.Collection = "kv"
	}
	if c.Gemini.Model == "" {
		c.Gemini.Model = "gemini-2.5-flash"
	}
	if c.Gemini.Timeout <= 0 {
		c.Gemini.Timeout = 60 * time.Second
	}
	if c.Browser.Timeout <= 0 {
		c.Browser.Timeout = 30 * time.Second
	}
	if c.Scraper.MaxTags <= 0 {
		c.Scraper.MaxTags = 15
	}
	if c.Autofill.UploadURL == "" {
		c.Autofill.UploadURL = "https://www.redbubble.com/portfolio/images/new"
	}
}

func GetConfig() AppConfig {
	if config == nil {
		InitApp()
	}

	return *config
}

func GetBasePath() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	dir := cwd
	for {
		cfgPath := filepath.Join(dir, CONFIG_FILE)
		if info, err := os.Stat(cfgPath); err == nil && !info.IsDir() {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}
