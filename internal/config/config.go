package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/dendrex/internal/analysis/hierarchy"
	"github.com/kailas-cloud/dendrex/internal/analysis/tfidf"
	"github.com/kailas-cloud/dendrex/internal/domain/cardsort"
	"github.com/kailas-cloud/dendrex/internal/domain/record"
	"github.com/kailas-cloud/dendrex/internal/usecase/analysis"
)

// Config holds the dendrex configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Logging  LoggingConfig  `yaml:"logging"`
	Analysis AnalysisConfig `yaml:"analysis"`
	CardSort CardSortConfig `yaml:"card_sort"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int   `yaml:"port"`
	ReadTimeoutSec  int   `yaml:"read_timeout_sec"`
	WriteTimeoutSec int   `yaml:"write_timeout_sec"`
	ShutdownSec     int   `yaml:"shutdown_timeout_sec"`
	MaxBodyBytes    int64 `yaml:"max_body_bytes"`
}

// ColumnsConfig names the input columns of the text table.
type ColumnsConfig struct {
	ID        string `yaml:"id"`
	Attribute string `yaml:"attribute"`
	Text      string `yaml:"text"`
}

// VectorizerConfig bounds the TF-IDF vocabulary.
type VectorizerConfig struct {
	MaxFeatures int     `yaml:"max_features"`
	MaxDF       float64 `yaml:"max_df"`
	MinDF       int     `yaml:"min_df"`
	StopWords   string  `yaml:"stop_words"` // english | none
}

// AnalysisConfig holds text pipeline settings.
type AnalysisConfig struct {
	MaxEntities          int              `yaml:"max_entities"`
	Columns              ColumnsConfig    `yaml:"columns"`
	Vectorizer           VectorizerConfig `yaml:"vectorizer"`
	Linkage              string           `yaml:"linkage"`
	ColorThreshold       float64          `yaml:"color_threshold"` // 0 = 0.7 of the largest merge distance
	ReclaimBetweenStages *bool            `yaml:"reclaim_between_stages"`
}

// CardSortColumnsConfig names the input columns of a card-sort export.
type CardSortColumnsConfig struct {
	Participant string   `yaml:"participant"`
	Card        string   `yaml:"card"`
	Label       string   `yaml:"label"`
	Group       []string `yaml:"group"` // first present column wins
}

// CardSortConfig holds card-sort clustering settings.
type CardSortConfig struct {
	Columns        CardSortColumnsConfig `yaml:"columns"`
	Linkage        string                `yaml:"linkage"`
	MaxCards       int                   `yaml:"max_cards"` // 0 = unlimited
	ColorThreshold float64               `yaml:"color_threshold"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration, expanding ${VAR} references, then applies defaults and validates.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// Default returns a configuration with every default applied, for use without a config file.
func Default() Config {
	cfg := Config{HTTP: HTTPConfig{Port: 8080}}
	cfg.ApplyDefaults()
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 30
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 60
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.HTTP.MaxBodyBytes <= 0 {
		c.HTTP.MaxBodyBytes = 5 << 20
	}

	a := &c.Analysis
	if a.MaxEntities <= 0 {
		a.MaxEntities = 100
	}
	def := record.DefaultSchema()
	if a.Columns.ID == "" {
		a.Columns.ID = def.ID
	}
	if a.Columns.Attribute == "" {
		a.Columns.Attribute = def.Attribute
	}
	if a.Columns.Text == "" {
		a.Columns.Text = def.Text
	}
	vec := tfidf.DefaultOptions()
	if a.Vectorizer.MaxFeatures <= 0 {
		a.Vectorizer.MaxFeatures = vec.MaxFeatures
	}
	if a.Vectorizer.MaxDF <= 0 {
		a.Vectorizer.MaxDF = vec.MaxDF
	}
	if a.Vectorizer.MinDF <= 0 {
		a.Vectorizer.MinDF = vec.MinDF
	}
	if a.Vectorizer.StopWords == "" {
		a.Vectorizer.StopWords = "english"
	}
	if a.Linkage == "" {
		a.Linkage = string(hierarchy.Ward)
	}
	if a.ReclaimBetweenStages == nil {
		on := true
		a.ReclaimBetweenStages = &on
	}

	cs := &c.CardSort
	csDef := cardsort.DefaultSchema()
	if cs.Columns.Participant == "" {
		cs.Columns.Participant = csDef.Participant
	}
	if cs.Columns.Card == "" {
		cs.Columns.Card = csDef.Card
	}
	if cs.Columns.Label == "" {
		cs.Columns.Label = csDef.Label
	}
	if len(cs.Columns.Group) == 0 {
		cs.Columns.Group = csDef.GroupColumns
	}
	if cs.Linkage == "" {
		cs.Linkage = string(hierarchy.Average)
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if _, err := hierarchy.ParseMethod(c.Analysis.Linkage); err != nil {
		return fmt.Errorf("analysis.linkage: %w", err)
	}
	if _, err := hierarchy.ParseMethod(c.CardSort.Linkage); err != nil {
		return fmt.Errorf("card_sort.linkage: %w", err)
	}
	switch c.Analysis.Vectorizer.StopWords {
	case "english", "none":
		// ok
	default:
		return fmt.Errorf("analysis.vectorizer.stop_words must be \"english\" or \"none\", got %q",
			c.Analysis.Vectorizer.StopWords)
	}
	if c.Analysis.ColorThreshold < 0 || c.CardSort.ColorThreshold < 0 {
		return fmt.Errorf("color_threshold must be >= 0")
	}
	if c.CardSort.MaxCards < 0 {
		return fmt.Errorf("card_sort.max_cards must be >= 0, got %d", c.CardSort.MaxCards)
	}
	return nil
}

// AnalysisOptions converts the analysis and card_sort sections into pipeline options.
func (c *Config) AnalysisOptions() analysis.Options {
	a := c.Analysis
	var stop map[string]struct{}
	if a.Vectorizer.StopWords == "english" {
		stop = tfidf.EnglishStopWords
	}
	reclaim := a.ReclaimBetweenStages == nil || *a.ReclaimBetweenStages

	return analysis.Options{
		MaxEntities: a.MaxEntities,
		Schema: record.Schema{
			ID:        a.Columns.ID,
			Attribute: a.Columns.Attribute,
			Text:      a.Columns.Text,
		},
		Vectorizer: tfidf.Options{
			MaxFeatures: a.Vectorizer.MaxFeatures,
			MaxDF:       a.Vectorizer.MaxDF,
			MinDF:       a.Vectorizer.MinDF,
			StopWords:   stop,
		},
		Linkage:              hierarchy.Method(a.Linkage),
		ColorThreshold:       a.ColorThreshold,
		ReclaimBetweenStages: reclaim,
		CardSort: analysis.CardSortOptions{
			Schema: cardsort.Schema{
				Participant:  c.CardSort.Columns.Participant,
				Card:         c.CardSort.Columns.Card,
				Label:        c.CardSort.Columns.Label,
				GroupColumns: c.CardSort.Columns.Group,
			},
			Linkage:        hierarchy.Method(c.CardSort.Linkage),
			MaxCards:       c.CardSort.MaxCards,
			ColorThreshold: c.CardSort.ColorThreshold,
		},
	}
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
