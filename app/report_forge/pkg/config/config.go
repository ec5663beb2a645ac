package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Config 项目配置结构体
type Config struct {
	LLM         LLMConfig         `yaml:"llm" json:"llm" toml:"llm"`
	Search      SearchConfig      `yaml:"search" json:"search" toml:"search"`
	Log         LogConfig         `yaml:"log" json:"log" toml:"log"`
	Concurrency ConcurrencyConfig `yaml:"concurrency" json:"concurrency" toml:"concurrency"`
	Workflow    WorkflowConfig    `yaml:"workflow" json:"workflow" toml:"workflow"`
	Benchmark   BenchmarkConfig   `yaml:"benchmark" json:"benchmark" toml:"benchmark"`
	Compiler    CompilerConfig    `yaml:"compiler" json:"compiler" toml:"compiler"`
	DB          DBConfig          `yaml:"db" json:"db" toml:"db"`
	NATS        NATSConfig        `yaml:"nats" json:"nats" toml:"nats"`
}

// LLMConfig LLM 相关配置
type LLMConfig struct {
	// Provider: eino_openai | openai_sdk | mock
	Provider    string  `yaml:"provider" json:"provider" toml:"provider"`
	BaseURL     string  `yaml:"base_url" json:"base_url" toml:"base_url"`
	APIKey      string  `yaml:"api_key" json:"api_key" toml:"api_key"`
	Model       string  `yaml:"model" json:"model" toml:"model"`
	Temperature float32 `yaml:"temperature" json:"temperature" toml:"temperature"`
	Timeout     string  `yaml:"timeout" json:"timeout" toml:"timeout"`
}

// DBConfig 数据库相关配置
type DBConfig struct {
	Host     string `yaml:"host" json:"host" toml:"host"`
	Port     int    `yaml:"port" json:"port" toml:"port"`
	User     string `yaml:"user" json:"user" toml:"user"`
	Password string `yaml:"password" json:"password" toml:"password"`
	Name     string `yaml:"name" json:"name" toml:"name"`
}

// SearchConfig 搜索相关配置
type SearchConfig struct {
	Provider    string        `yaml:"provider" json:"provider" toml:"provider"`
	MaxSnippets int           `yaml:"max_snippets" json:"max_snippets" toml:"max_snippets"`
	Enrich      bool          `yaml:"enrich" json:"enrich" toml:"enrich"`
	Tavily      TavilyConfig  `yaml:"tavily" json:"tavily" toml:"tavily"`
	SearXNG     SearXNGConfig `yaml:"searxng" json:"searxng" toml:"searxng"`
}

// TavilyConfig Tavily 配置
type TavilyConfig struct {
	APIKey string `yaml:"api_key" json:"api_key" toml:"api_key"`
}

// SearXNGConfig SearXNG 配置
type SearXNGConfig struct {
	BaseURL string `yaml:"base_url" json:"base_url" toml:"base_url"`
	Timeout int    `yaml:"timeout" json:"timeout" toml:"timeout"`
}

// LogConfig 日志相关配置
type LogConfig struct {
	Level string `yaml:"level" json:"level" toml:"level"`
	File  string `yaml:"file" json:"file" toml:"file"`
}

// ConcurrencyConfig 并发控制配置
type ConcurrencyConfig struct {
	QPS         int `yaml:"qps" json:"qps" toml:"qps"`
	RPM         int `yaml:"rpm" json:"rpm" toml:"rpm"`
	MaxSections int `yaml:"max_sections" json:"max_sections" toml:"max_sections"`
}

// WorkflowConfig 报告生成流程配置
type WorkflowConfig struct {
	SectionRetries   int    `yaml:"section_retries" json:"section_retries" toml:"section_retries"`
	PlanningRetries  int    `yaml:"planning_retries" json:"planning_retries" toml:"planning_retries"`
	MaxRedraftCycles int    `yaml:"max_redraft_cycles" json:"max_redraft_cycles" toml:"max_redraft_cycles"`
	RedraftSections  int    `yaml:"redraft_sections" json:"redraft_sections" toml:"redraft_sections"`
	RunBudget        string `yaml:"run_budget" json:"run_budget" toml:"run_budget"`
	CallTimeout      string `yaml:"call_timeout" json:"call_timeout" toml:"call_timeout"`
	RetryBackoff     string `yaml:"retry_backoff" json:"retry_backoff" toml:"retry_backoff"`
}

// BenchmarkConfig 质量评估配置
type BenchmarkConfig struct {
	Threshold   float64 `yaml:"threshold" json:"threshold" toml:"threshold"`
	ExemplarDir string  `yaml:"exemplar_dir" json:"exemplar_dir" toml:"exemplar_dir"`
	Watch       bool    `yaml:"watch" json:"watch" toml:"watch"`
}

// CompilerConfig 合稿配置
type CompilerConfig struct {
	LengthTolerance float64 `yaml:"length_tolerance" json:"length_tolerance" toml:"length_tolerance"`
}

// NATSConfig 事件通知配置，URL 为空时不发送事件
type NATSConfig struct {
	URL           string `yaml:"url" json:"url" toml:"url"`
	SubjectPrefix string `yaml:"subject_prefix" json:"subject_prefix" toml:"subject_prefix"`
}

// DSN PostgreSQL 连接串，未配置 Host 时返回空串
func (c *DBConfig) DSN() string {
	if c.Host == "" {
		return ""
	}
	port := c.Port
	if port == 0 {
		port = 5432
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.Host, port, c.User, c.Password, c.Name)
}

// DefaultConfig 返回带默认值的配置
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults 为未设置的字段填充默认值
func (c *Config) ApplyDefaults() {
	if c.LLM.Provider == "" {
		c.LLM.Provider = "eino_openai"
	}
	if c.LLM.Temperature == 0 {
		c.LLM.Temperature = 0.3
	}
	if c.LLM.Timeout == "" {
		c.LLM.Timeout = "120s"
	}
	if c.Search.MaxSnippets <= 0 {
		c.Search.MaxSnippets = 5
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Concurrency.QPS <= 0 {
		c.Concurrency.QPS = 2
	}
	if c.Concurrency.RPM <= 0 {
		c.Concurrency.RPM = 60
	}
	if c.Concurrency.MaxSections <= 0 {
		c.Concurrency.MaxSections = 4
	}
	// 负数表示不重试，见 SectionRetryLimit
	if c.Workflow.SectionRetries == 0 {
		c.Workflow.SectionRetries = 2
	}
	if c.Workflow.PlanningRetries <= 0 {
		c.Workflow.PlanningRetries = 2
	}
	// 负数表示不重写，见 RedraftCycleLimit
	if c.Workflow.MaxRedraftCycles == 0 {
		c.Workflow.MaxRedraftCycles = 1
	}
	if c.Workflow.RedraftSections <= 0 {
		c.Workflow.RedraftSections = 2
	}
	if c.Workflow.RunBudget == "" {
		c.Workflow.RunBudget = "15m"
	}
	if c.Workflow.CallTimeout == "" {
		c.Workflow.CallTimeout = "90s"
	}
	if c.Workflow.RetryBackoff == "" {
		c.Workflow.RetryBackoff = "2s"
	}
	if c.Benchmark.Threshold <= 0 {
		c.Benchmark.Threshold = 0.7
	}
	if c.Compiler.LengthTolerance <= 0 {
		c.Compiler.LengthTolerance = 0.25
	}
	if c.NATS.SubjectPrefix == "" {
		c.NATS.SubjectPrefix = "report_forge.reports"
	}
}

// Validate 校验配置
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "eino_openai", "openai_sdk":
		if c.LLM.Model == "" {
			return fmt.Errorf("llm.model is required for provider %s", c.LLM.Provider)
		}
	case "mock":
	default:
		return fmt.Errorf("unknown llm provider: %s", c.LLM.Provider)
	}
	if c.Benchmark.Threshold > 1 {
		return fmt.Errorf("benchmark.threshold must be within (0, 1], got %.2f", c.Benchmark.Threshold)
	}
	for name, v := range map[string]string{
		"llm.timeout":            c.LLM.Timeout,
		"workflow.run_budget":    c.Workflow.RunBudget,
		"workflow.call_timeout":  c.Workflow.CallTimeout,
		"workflow.retry_backoff": c.Workflow.RetryBackoff,
	} {
		if _, err := time.ParseDuration(v); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// LLMTimeout 单次模型调用的 HTTP 超时
func (c *LLMConfig) LLMTimeout() time.Duration {
	return parseDuration(c.Timeout, 120*time.Second)
}

// SectionRetryLimit 单个章节失败后的最大重试次数
func (w *WorkflowConfig) SectionRetryLimit() int {
	if w.SectionRetries < 0 {
		return 0
	}
	return w.SectionRetries
}

// RedraftCycleLimit 评估未达标后的最大重写轮数
func (w *WorkflowConfig) RedraftCycleLimit() int {
	if w.MaxRedraftCycles < 0 {
		return 0
	}
	return w.MaxRedraftCycles
}

// Budget 单次报告生成的总时长预算
func (w *WorkflowConfig) Budget() time.Duration {
	return parseDuration(w.RunBudget, 15*time.Minute)
}

// PerCallTimeout 单次外部调用（模型/搜索）的超时
func (w *WorkflowConfig) PerCallTimeout() time.Duration {
	return parseDuration(w.CallTimeout, 90*time.Second)
}

// Backoff 重试的初始退避时间
func (w *WorkflowConfig) Backoff() time.Duration {
	return parseDuration(w.RetryBackoff, 2*time.Second)
}

func parseDuration(v string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// LoadConfig 从指定路径加载配置，按扩展名选择 yaml 或 toml
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse toml config: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse yaml config: %w", err)
		}
	}

	cfg.ApplyDefaults()
	return &cfg, nil
}
