package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the explicit configuration object for one run. It is built once
// at process start (file, then environment, then flags) and passed through
// the drivers; nothing in the pipeline reads ambient state.
type Config struct {
	Design struct {
		Top       string `yaml:"top"`
		ClockPort string `yaml:"clockPort"`
		ResetPort string `yaml:"resetPort"`
	} `yaml:"design"`

	Engine struct {
		Binary       string   `yaml:"binary"`
		Args         []string `yaml:"args"`
		QueryCommand string   `yaml:"queryCommand"`
	} `yaml:"engine"`

	Inputs struct {
		LibraryDir  string `yaml:"libraryDir"`
		Netlist     string `yaml:"netlist"`
		Constraints string `yaml:"constraints"`
		Parasitics  string `yaml:"parasitics"`
	} `yaml:"inputs"`

	Sweep struct {
		FrequenciesMHz []float64 `yaml:"frequenciesMHz"`
		Activities     []float64 `yaml:"activities"`
	} `yaml:"sweep"`

	Trace struct {
		Waveform     string  `yaml:"waveform"`
		Scope        string  `yaml:"scope"`
		FrequencyMHz float64 `yaml:"frequencyMHz"`
	} `yaml:"trace"`

	Report struct {
		OutDir string `yaml:"outDir"`
		Prefix string `yaml:"prefix"`
	} `yaml:"report"`

	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`

	Database struct {
		Driver   string `yaml:"driver"` // "", mysql, postgres
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
	} `yaml:"database"`

	Minio struct {
		Endpoint   string `yaml:"endpoint"`
		AccessKey  string `yaml:"accessKey"`
		SecretKey  string `yaml:"secretKey"`
		BucketName string `yaml:"bucketName"`
		Region     string `yaml:"region"`
		UseSSL     bool   `yaml:"useSSL"`
	} `yaml:"minio"`

	AI struct {
		APIKey string `yaml:"apiKey"`
		Model  string `yaml:"model"`
	} `yaml:"ai"`
}

// Load reads a yaml config file and applies environment overrides on top.
// A missing file is fine unless the caller asked for that path explicitly:
// defaults plus environment carry a full configuration on their own.
func Load(path string, required bool) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if required || !os.IsNotExist(err) {
			return nil, err
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the baseline configuration for the LPDDR4 controller runs.
func Default() *Config {
	cfg := &Config{}
	cfg.Design.Top = "dram_ctrl"
	cfg.Design.ClockPort = "clk"
	cfg.Design.ResetPort = "rst"
	cfg.Engine.Binary = "pt_shell"
	cfg.Engine.QueryCommand = "report_power -nosplit"
	cfg.Report.OutDir = "build/power"
	cfg.Server.Port = 8080
	cfg.AI.Model = "gpt-4o-mini"
	return cfg
}

// applyEnv overlays DRAM_PA_* environment variables. Numeric lists are
// space-separated, matching the CI surface.
func (c *Config) applyEnv() error {
	setStr := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setStr("DRAM_PA_DESIGN_TOP", &c.Design.Top)
	setStr("DRAM_PA_CLOCK_PORT", &c.Design.ClockPort)
	setStr("DRAM_PA_RESET_PORT", &c.Design.ResetPort)
	setStr("DRAM_PA_ENGINE_BIN", &c.Engine.Binary)
	setStr("DRAM_PA_LIB_DIR", &c.Inputs.LibraryDir)
	setStr("DRAM_PA_NETLIST", &c.Inputs.Netlist)
	setStr("DRAM_PA_SDC", &c.Inputs.Constraints)
	setStr("DRAM_PA_SPEF", &c.Inputs.Parasitics)
	setStr("DRAM_PA_OUT_DIR", &c.Report.OutDir)
	setStr("DRAM_PA_PREFIX", &c.Report.Prefix)
	setStr("DRAM_PA_VCD", &c.Trace.Waveform)
	setStr("DRAM_PA_SCOPE", &c.Trace.Scope)
	setStr("DRAM_PA_AI_API_KEY", &c.AI.APIKey)

	if v := os.Getenv("DRAM_PA_FREQUENCIES"); v != "" {
		fs, err := ParseFloatList(v)
		if err != nil {
			return fmt.Errorf("DRAM_PA_FREQUENCIES: %w", err)
		}
		c.Sweep.FrequenciesMHz = fs
	}
	if v := os.Getenv("DRAM_PA_ACTIVITIES"); v != "" {
		as, err := ParseFloatList(v)
		if err != nil {
			return fmt.Errorf("DRAM_PA_ACTIVITIES: %w", err)
		}
		c.Sweep.Activities = as
	}
	if v := os.Getenv("DRAM_PA_TRACE_FREQUENCY"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("DRAM_PA_TRACE_FREQUENCY: %w", err)
		}
		c.Trace.FrequencyMHz = f
	}
	return nil
}

// ParseFloatList parses a space-separated numeric list, preserving order.
func ParseFloatList(s string) ([]float64, error) {
	fields := strings.Fields(s)
	out := make([]float64, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("bad number %q", f)
		}
		out = append(out, v)
	}
	return out, nil
}

// ValidateSweep checks the inputs a synthetic sweep run needs.
func (c *Config) ValidateSweep() error {
	if err := c.validateCommon(); err != nil {
		return err
	}
	for _, f := range c.Sweep.FrequenciesMHz {
		if f <= 0 {
			return fmt.Errorf("frequency must be positive, got %g", f)
		}
	}
	for _, a := range c.Sweep.Activities {
		if a < 0 || a > 1 {
			return fmt.Errorf("activity must be in [0,1], got %g", a)
		}
	}
	return nil
}

// ValidateTrace checks the inputs a trace-driven run needs.
func (c *Config) ValidateTrace() error {
	if err := c.validateCommon(); err != nil {
		return err
	}
	if c.Trace.FrequencyMHz <= 0 {
		return fmt.Errorf("trace frequency must be positive, got %g", c.Trace.FrequencyMHz)
	}
	if c.Trace.Waveform == "" {
		return fmt.Errorf("trace mode needs a waveform path")
	}
	if c.Trace.Scope == "" {
		return fmt.Errorf("trace mode needs a hierarchical scope")
	}
	return nil
}

func (c *Config) validateCommon() error {
	if c.Design.Top == "" {
		return fmt.Errorf("design top name is required")
	}
	if c.Inputs.LibraryDir == "" {
		return fmt.Errorf("standard-cell library directory is required")
	}
	if c.Inputs.Netlist == "" {
		return fmt.Errorf("netlist path is required")
	}
	return nil
}

// ReportPrefix is the key prefix used inside report files; it defaults to
// the top design name.
func (c *Config) ReportPrefix() string {
	if c.Report.Prefix != "" {
		return c.Report.Prefix
	}
	return c.Design.Top
}

// MySQLDSN builds the DSN for the mysql history driver.
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
	)
}

// PostgresDSN builds the DSN for the postgres history driver.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
	)
}
