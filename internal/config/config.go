package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"taskflow/internal/domain"
	"taskflow/internal/workload"
)

// Config models taskflow.yml.
type Config struct {
	Workspace struct {
		Name string `yaml:"name"`
	} `yaml:"workspace"`
	Workload  WorkloadConfig  `yaml:"workload"`
	Assistant AssistantConfig `yaml:"assistant"`
	RBAC      struct {
		Roles map[string]RBACRole `yaml:"roles"`
	} `yaml:"rbac"`
	Webhooks []Webhook `yaml:"webhooks"`
}

type WorkloadConfig struct {
	CapacityHours    float64             `yaml:"capacity_hours"`
	DefaultTaskHours float64             `yaml:"default_task_hours"`
	IncludeDone      bool                `yaml:"include_done"`
	Thresholds       workload.Thresholds `yaml:"thresholds"`
}

// Options converts the section into aggregation options.
func (w WorkloadConfig) Options() workload.Options {
	return workload.Options{CapacityHours: w.CapacityHours, DefaultTaskHours: w.DefaultTaskHours}
}

type AssistantConfig struct {
	Endpoint         string            `yaml:"endpoint"`
	Model            string            `yaml:"model"`
	MaxTokens        int               `yaml:"max_tokens"`
	APIKeyEnv        string            `yaml:"api_key_env"`
	AuthHeader       string            `yaml:"auth_header"`
	Headers          map[string]string `yaml:"headers"`
	Timeout          string            `yaml:"timeout"`
	RecentTasksLimit int               `yaml:"recent_tasks_limit"`
}

// TimeoutDuration parses Timeout; empty means zero so callers use their default.
func (a AssistantConfig) TimeoutDuration() (time.Duration, error) {
	if strings.TrimSpace(a.Timeout) == "" {
		return 0, nil
	}
	return time.ParseDuration(a.Timeout)
}

// APIKey reads the key from the configured environment variable.
func (a AssistantConfig) APIKey() string {
	if a.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(a.APIKeyEnv)
}

type RBACRole struct {
	Description string   `yaml:"description"`
	Permissions []string `yaml:"permissions"`
}

type Webhook struct {
	URL     string   `yaml:"url"`
	Secret  string   `yaml:"secret"`
	Events  []string `yaml:"events"`
	Enabled *bool    `yaml:"enabled"`
}

// Active reports whether deliveries should be attempted.
func (w Webhook) Active() bool {
	return w.Enabled == nil || *w.Enabled
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; create one with tf config init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	w := c.Workload
	if w.CapacityHours < 0 {
		return fmt.Errorf("config.workload.capacity_hours must not be negative")
	}
	if w.DefaultTaskHours < 0 {
		return fmt.Errorf("config.workload.default_task_hours must not be negative")
	}
	th := w.Thresholds
	if th != (workload.Thresholds{}) && !(th.Overloaded > th.Busy && th.Busy > th.Normal && th.Normal >= 0) {
		return fmt.Errorf("config.workload.thresholds must satisfy overloaded > busy > normal >= 0")
	}
	a := c.Assistant
	if a.MaxTokens < 0 {
		return fmt.Errorf("config.assistant.max_tokens must not be negative")
	}
	if a.RecentTasksLimit < 0 {
		return fmt.Errorf("config.assistant.recent_tasks_limit must not be negative")
	}
	if d, err := a.TimeoutDuration(); err != nil {
		return fmt.Errorf("config.assistant.timeout: %w", err)
	} else if d < 0 {
		return fmt.Errorf("config.assistant.timeout must not be negative")
	}
	for roleID, role := range c.RBAC.Roles {
		if !domain.Role(roleID).Valid() {
			return fmt.Errorf("config.rbac.roles contains unknown role %q", roleID)
		}
		for _, perm := range role.Permissions {
			if perm == "" {
				return fmt.Errorf("role %s has empty permission id", roleID)
			}
		}
	}
	for i, hook := range c.Webhooks {
		if strings.TrimSpace(hook.URL) == "" {
			return fmt.Errorf("config.webhooks[%d].url is required", i)
		}
	}
	return nil
}

// Thresholds returns the configured classifier bands, or the defaults when unset.
func (c *Config) Thresholds() workload.Thresholds {
	if c == nil || c.Workload.Thresholds == (workload.Thresholds{}) {
		return workload.DefaultThresholds
	}
	return c.Workload.Thresholds
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "taskflow.yml")
}

// GenerateDefault returns default config YAML.
func GenerateDefault(name string) string {
	return fmt.Sprintf(defaultTemplate, name)
}

// LoadOptional returns nil,nil if the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Default returns the default Config struct for a workspace.
func Default(name string) *Config {
	var cfg Config
	_ = yaml.NewDecoder(bytes.NewBufferString(GenerateDefault(name))).Decode(&cfg)
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `workspace:
  name: %s

workload:
  capacity_hours: 40
  default_task_hours: 8
  include_done: false
  thresholds:
    overloaded: 90
    busy: 70
    normal: 40

assistant:
  endpoint: https://api.anthropic.com/v1/messages
  model: claude-sonnet-4-5
  max_tokens: 2048
  api_key_env: ANTHROPIC_API_KEY
  auth_header: x-api-key
  headers:
    anthropic-version: "2023-06-01"
  timeout: 30s
  recent_tasks_limit: 10

rbac:
  roles:
    admin:
      description: "Full access"
      permissions: ["*"]
    manager:
      description: "Plans work for the team"
      permissions:
        - task.read.all
        - task.create
        - task.update
        - task.delete
        - task.assign
        - project.manage
        - team.manage
        - member.read
        - workload.read
        - suggest.run
        - events.read
    employee:
      description: "Works on assigned tasks"
      permissions:
        - task.create
        - task.update
        - member.read
        - workload.read
`
