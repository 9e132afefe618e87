// Package config loads and validates the staffsync configuration file.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaCUE string

// DefaultPath is the config file looked up when --config is not given.
const DefaultPath = "staffsync.yml"

// Config models staffsync.yml.
type Config struct {
	Database  string          `yaml:"database" json:"database"`
	Ranks     []RankConfig    `yaml:"ranks" json:"ranks"`
	Severity  SeverityConfig  `yaml:"severity" json:"severity"`
	Queue     QueueConfig     `yaml:"queue" json:"queue"`
	Scan      ScanConfig      `yaml:"scan" json:"scan"`
	Integrity IntegrityConfig `yaml:"integrity" json:"integrity"`
	Notify    NotifyConfig    `yaml:"notify" json:"notify"`
}

// RankConfig is one rung of the staff hierarchy. Higher Level is more senior.
// Limit caps how many staff may hold the rank; zero means unlimited.
type RankConfig struct {
	Key     string   `yaml:"key" json:"key"`
	Name    string   `yaml:"name" json:"name"`
	Level   int      `yaml:"level" json:"level"`
	Aliases []string `yaml:"aliases,omitempty" json:"aliases,omitempty"`
	Limit   int      `yaml:"limit,omitempty" json:"limit,omitempty"`
}

type SeverityConfig struct {
	HighGap         int  `yaml:"high_gap" json:"high_gap"`
	MediumGap       int  `yaml:"medium_gap" json:"medium_gap"`
	EscalateTopRank bool `yaml:"escalate_top_rank" json:"escalate_top_rank"`
}

type QueueConfig struct {
	TimeoutMS int `yaml:"timeout_ms" json:"timeout_ms"`
}

type ScanConfig struct {
	ProgressInterval int `yaml:"progress_interval" json:"progress_interval"`
}

type IntegrityConfig struct {
	CacheTTLMS int `yaml:"cache_ttl_ms" json:"cache_ttl_ms"`
}

// NotifyRolePlaceholder is replaced with the kept role name in the notify
// message.
const NotifyRolePlaceholder = "{role}"

// NotifyConfig controls the direct message sent after a role conflict is
// resolved. Every NotifyRolePlaceholder in Message becomes the kept role
// name; the rest of the text is sent as written.
type NotifyConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Message string `yaml:"message" json:"message"`
}

// QueueTimeout returns the per-operation wait timeout. Zero disables it.
func (c *Config) QueueTimeout() time.Duration {
	return time.Duration(c.Queue.TimeoutMS) * time.Millisecond
}

// CacheTTL returns how long pre-operation validation results stay cached.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Integrity.CacheTTLMS) * time.Millisecond
}

// Default returns the built-in configuration: the firm's seven-rung ladder
// from Paralegal to Managing Partner.
func Default() *Config {
	return &Config{
		Database: "staffsync.db",
		Ranks: []RankConfig{
			{Key: "paralegal", Name: "Paralegal", Level: 1, Limit: 10},
			{Key: "junior_associate", Name: "Junior Associate", Level: 2, Limit: 10},
			{Key: "senior_associate", Name: "Senior Associate", Level: 3, Aliases: []string{"Associate"}, Limit: 8},
			{Key: "of_counsel", Name: "Of Counsel", Level: 4, Limit: 5},
			{Key: "junior_partner", Name: "Junior Partner", Level: 5, Limit: 5},
			{Key: "senior_partner", Name: "Senior Partner", Level: 6, Aliases: []string{"Partner"}, Limit: 3},
			{Key: "managing_partner", Name: "Managing Partner", Level: 7, Aliases: []string{"MP"}, Limit: 1},
		},
		Severity: SeverityConfig{
			HighGap:         3,
			MediumGap:       2,
			EscalateTopRank: true,
		},
		Queue:     QueueConfig{TimeoutMS: 30000},
		Scan:      ScanConfig{ProgressInterval: 10},
		Integrity: IntegrityConfig{CacheTTLMS: 30000},
		Notify: NotifyConfig{
			Enabled: true,
			Message: "Your staff roles were out of sync, so the extra rank roles were removed. You keep the {role} role.",
		},
	}
}

// Load reads config from path. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := Default()
			return cfg, cfg.Validate()
		}
		return nil, err
	}
	return FromYAML(data)
}

// FromYAML parses config from raw YAML bytes over the defaults and validates it.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the config against the embedded CUE schema, then applies
// the cross-field rules the schema cannot express.
func (c *Config) Validate() error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("config schema: %w", err)
	}
	value := schema.LookupPath(cue.ParsePath("#Config")).Unify(ctx.Encode(c))
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if c.Severity.MediumGap >= c.Severity.HighGap {
		return fmt.Errorf("invalid config: severity.medium_gap (%d) must be below severity.high_gap (%d)",
			c.Severity.MediumGap, c.Severity.HighGap)
	}
	keys := make(map[string]bool, len(c.Ranks))
	levels := make(map[int]string, len(c.Ranks))
	for _, r := range c.Ranks {
		if keys[r.Key] {
			return fmt.Errorf("invalid config: duplicate rank key %q", r.Key)
		}
		keys[r.Key] = true
		if other, ok := levels[r.Level]; ok {
			return fmt.Errorf("invalid config: ranks %q and %q share level %d", other, r.Key, r.Level)
		}
		levels[r.Level] = r.Key
	}
	if strings.Contains(c.Notify.Message, "%s") {
		return fmt.Errorf("invalid config: notify.message uses %%s; write %s where the kept role name goes", NotifyRolePlaceholder)
	}
	return nil
}

// Rank returns the rank config with the given key.
func (c *Config) Rank(key string) (RankConfig, bool) {
	for _, r := range c.Ranks {
		if r.Key == key {
			return r, true
		}
	}
	return RankConfig{}, false
}
