// Package config defines the data structures related to worksheet
// configuration and includes functions for loading and validating it.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/iwvelando/finance-calculators/pkg/constants"
	"github.com/iwvelando/finance-calculators/pkg/validation"
	"github.com/spf13/viper"
)

// Configuration holds a whole worksheet: the sheets to calculate plus the
// ambient logging, output and insight settings.
type Configuration struct {
	Logging LoggingConfig `yaml:"logging,omitempty"`
	Output  OutputConfig  `yaml:"output,omitempty"`
	Insight InsightConfig `yaml:"insight,omitempty"`
	Sheets  []Sheet       `yaml:"sheets"`
}

// LoggingConfig holds logging configuration options
type LoggingConfig struct {
	Level      string `yaml:"level,omitempty"`      // debug, info, warn, error
	Format     string `yaml:"format,omitempty"`     // json, console
	OutputFile string `yaml:"outputFile,omitempty"` // optional file output
}

// OutputConfig holds output format configuration options
type OutputConfig struct {
	Format string `yaml:"format,omitempty"` // pretty, csv, xlsx
	File   string `yaml:"file,omitempty"`   // required for xlsx
}

// InsightConfig holds the settings of the generative insight backend.
type InsightConfig struct {
	Enabled     bool   `yaml:"enabled,omitempty"`
	APIKey      string `yaml:"apiKey,omitempty" mapstructure:"apikey"`
	Model       string `yaml:"model,omitempty"`
	Concurrency int    `yaml:"concurrency,omitempty"`
}

// Sheet is one calculator session described in the worksheet. Field values
// are raw text, exactly as a user would type them.
type Sheet struct {
	Name          string            `yaml:"name" json:"name"`
	Calculator    string            `yaml:"calculator" json:"calculator"`
	Mode          string            `yaml:"mode,omitempty" json:"mode,omitempty"`
	Fields        map[string]string `yaml:"fields,omitempty" json:"fields,omitempty"`
	Months        []Month           `yaml:"months,omitempty" json:"months,omitempty"`
	PropagateFrom int               `yaml:"propagateFrom,omitempty" json:"propagateFrom,omitempty"`
}

// Month is a planner entry of a sheet.
type Month struct {
	ID       int    `yaml:"id" json:"id"`
	Income   string `yaml:"income,omitempty" json:"income"`
	Expenses string `yaml:"expenses,omitempty" json:"expenses"`
}

// APIKeyEnvVars are the environment variables consulted for the insight API
// key, in order of precedence.
var APIKeyEnvVars = []string{"INSIGHT_APIKEY", "GEMINI_API_KEY", "API_KEY"}

// LookupAPIKey returns the first non-empty insight API key from the environment.
func LookupAPIKey() string {
	for _, name := range APIKeyEnvVars {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

// LoadConfiguration takes a file path as input and loads the YAML-formatted
// configuration there.
func LoadConfiguration(configPath string) (*Configuration, error) {
	v := newViper()
	v.SetConfigFile(configPath)
	v.SetConfigType(configType(configPath))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file, %w", err)
	}
	return decode(v)
}

// LoadConfigurationFromReader loads a configuration of the given type
// (yaml, json, toml) from r.
func LoadConfigurationFromReader(r io.Reader, configType string) (*Configuration, error) {
	v := newViper()
	v.SetConfigType(configType)

	if err := v.ReadConfig(r); err != nil {
		return nil, fmt.Errorf("error reading config, %w", err)
	}
	return decode(v)
}

// configType picks the decoder from the file extension; anything viper does
// not know (worksheet.yaml.example, no extension) is read as YAML.
func configType(path string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if slices.Contains(viper.SupportedExts, ext) {
		return ext
	}
	return "yml"
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// The first variable that is set wins.
	_ = v.BindEnv(append([]string{"insight.apikey"}, APIKeyEnvVars...)...)

	v.SetDefault("output.format", constants.OutputFormatPretty)
	v.SetDefault("insight.model", constants.DefaultInsightModel)
	v.SetDefault("insight.concurrency", constants.DefaultInsightConcurrency)
	return v
}

func decode(v *viper.Viper) (*Configuration, error) {
	var configuration Configuration
	if err := v.Unmarshal(&configuration); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %w", err)
	}
	if configuration.Insight.Concurrency < 1 {
		configuration.Insight.Concurrency = constants.DefaultInsightConcurrency
	}
	return &configuration, nil
}

// ValidateConfiguration performs general validation of the configuration and returns warnings
func (c *Configuration) ValidateConfiguration() []string {
	sheets := make([]validation.SheetConfig, 0, len(c.Sheets))
	for _, sheet := range c.Sheets {
		ids := make([]int, 0, len(sheet.Months))
		for _, m := range sheet.Months {
			ids = append(ids, m.ID)
		}
		sheets = append(sheets, validation.SheetConfig{
			Name:          sheet.Name,
			Calculator:    sheet.Calculator,
			MonthIDs:      ids,
			PropagateFrom: sheet.PropagateFrom,
		})
	}

	validator := &validation.ConfigValidator{Sheets: sheets}
	warnings := validator.ValidateAll()

	if c.Insight.Enabled && c.Insight.APIKey == "" {
		warnings = append(warnings, "Insights are enabled but no API key is configured - fallback text will be shown")
	}
	return warnings
}
