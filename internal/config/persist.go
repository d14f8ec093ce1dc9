package config

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/viniciusmctf/prksweep/internal/sweep"
	"github.com/viniciusmctf/prksweep/internal/utils"
)

// ConfigFilename is the name of the config file
const ConfigFilename = "config"

// ConfigType is the type of config file (yaml, json, toml)
const ConfigType = "yaml"

// EnvPrefix prefixes every environment override, e.g. PRKSWEEP_SWEEP_NODE_COUNTS
const EnvPrefix = "PRKSWEEP"

// InitViper initializes Viper with proper search paths and defaults
// Priority (highest to lowest):
// 1. Command-line flags (handled by cobra)
// 2. Environment variables (PRKSWEEP_*)
// 3. User config file (~/.config/prksweep/config.yaml)
// 4. System config file (/etc/prksweep/config.yaml)
// 5. Defaults
func InitViper() error {
	viper.SetConfigName(ConfigFilename)
	viper.SetConfigType(ConfigType)

	// User config (highest priority)
	if userConfigDir, err := os.UserConfigDir(); err == nil {
		viper.AddConfigPath(filepath.Join(userConfigDir, "prksweep"))
	}

	// Home directory fallback
	if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(filepath.Join(home, ".prksweep"))
	}

	// System-wide config (lower priority)
	viper.AddConfigPath("/etc/prksweep")

	// Current directory (per-experiment config)
	viper.AddConfigPath(".")

	// Environment variables
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	// Read config file (non-fatal if not found)
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("error reading config file: %w", err)
	}
	utils.PrintDebug("Using config file %s", utils.StylePath(viper.ConfigFileUsed()))

	return nil
}

// setDefaults sets default values for the global keys. Sweep keys get no
// defaults: an unset sweep key keeps the preset's value.
func setDefaults() {
	viper.SetDefault("scheduler_bin", "")
	viper.SetDefault("submit_job", true)
	viper.SetDefault("submit_timeout", "2m")
	viper.SetDefault("output_dir", ".")
	viper.SetDefault("fail_fast", false)
	viper.SetDefault("sweep.preset", "mpi1")
}

// GetUserConfigPath returns the path to the user config file
func GetUserConfigPath() (string, error) {
	userConfigDir, err := os.UserConfigDir()
	if err != nil {
		// Fallback to home directory
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".prksweep", ConfigFilename+"."+ConfigType), nil
	}

	return filepath.Join(userConfigDir, "prksweep", ConfigFilename+"."+ConfigType), nil
}

// SaveConfig saves current Viper config to user config file
func SaveConfig() error {
	configPath, err := GetUserConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}

	if err := utils.EnsureDir(filepath.Dir(configPath)); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := viper.WriteConfigAs(configPath); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ValidateBinary checks if a binary exists and is executable
func ValidateBinary(binPath string) bool {
	if binPath == "" {
		return false
	}

	if filepath.IsAbs(binPath) {
		info, err := os.Stat(binPath)
		if err != nil {
			return false
		}
		return !info.IsDir() && info.Mode()&0111 != 0
	}

	_, err := exec.LookPath(binPath)
	return err == nil
}

// DetectSchedulerBin attempts to find scheduler binary
// Returns (binary_path, scheduler_type) if found
func DetectSchedulerBin() (string, string) {
	if path, err := exec.LookPath("sbatch"); err == nil {
		return path, "SLURM"
	}
	if path, err := exec.LookPath("qsub"); err == nil {
		return path, "PBS"
	}
	return "", ""
}

// ForceDetectAndSave re-detects the scheduler binary from the current PATH
// and writes the user config file. Returns true if the binary changed.
func ForceDetectAndSave() (bool, error) {
	updated := false

	detectedBin, _ := DetectSchedulerBin()
	if detectedBin != "" && viper.GetString("scheduler_bin") != detectedBin {
		viper.Set("scheduler_bin", detectedBin)
		updated = true
	}

	// Always save (even if nothing changed, to create the file)
	if err := SaveConfig(); err != nil {
		return false, err
	}

	return updated, nil
}

// LoadFromViper loads config from Viper into Global struct
func LoadFromViper() error {
	if bin := viper.GetString("scheduler_bin"); bin != "" {
		Global.SchedulerBin = bin
	}

	if submitJob := viper.GetBool("submit_job"); !submitJob {
		Global.SubmitJob = submitJob
	}

	if viper.GetBool("fail_fast") {
		Global.FailFast = true
	}

	if dir := viper.GetString("output_dir"); dir != "" {
		Global.OutputDir = dir
	}

	if timeout := viper.GetString("submit_timeout"); timeout != "" {
		dur, err := utils.ParseDuration(timeout)
		if err != nil {
			return fmt.Errorf("submit_timeout: %w", err)
		}
		Global.SubmitTimeout = dur
	}

	return nil
}

// SweepFromViper builds the sweep from the configured preset, overridden
// key by key by whatever sweep.* values are set.
func SweepFromViper() (sweep.Config, error) {
	cfg, err := sweep.Preset(viper.GetString("sweep.preset"))
	if err != nil {
		return sweep.Config{}, err
	}
	cfg.OutputDir = Global.OutputDir

	if viper.IsSet("sweep.node_counts") {
		counts, err := intList(viper.Get("sweep.node_counts"))
		if err != nil {
			return sweep.Config{}, fmt.Errorf("sweep.node_counts: %w", err)
		}
		cfg.NodeCounts = counts
	}

	overrideInt := func(key string, dst *int) {
		if viper.IsSet(key) {
			*dst = viper.GetInt(key)
		}
	}
	overrideString := func(key string, dst *string) {
		if viper.IsSet(key) {
			*dst = viper.GetString(key)
		}
	}

	overrideInt("sweep.processes_per_node", &cfg.ProcessesPerNode)
	overrideInt("sweep.hyper_thread_factor", &cfg.HyperThreadFactor)
	overrideInt("sweep.problem_order", &cfg.ProblemOrder)
	overrideInt("sweep.tile_size", &cfg.TileSize)
	overrideInt("sweep.iterations.cutoff", &cfg.Iterations.Cutoff)
	overrideInt("sweep.iterations.low", &cfg.Iterations.Low)
	overrideInt("sweep.iterations.high", &cfg.Iterations.High)
	overrideString("sweep.output_prefix", &cfg.OutputPrefix)
	overrideString("sweep.partition", &cfg.Partition)
	overrideString("sweep.binary", &cfg.Binary)
	overrideString("sweep.template", &cfg.Template)
	overrideString("sweep.kernel", &cfg.Kernel)

	if viper.IsSet("sweep.layout") {
		layout, err := sweep.ParseLayout(viper.GetString("sweep.layout"))
		if err != nil {
			return sweep.Config{}, err
		}
		cfg.Layout = layout
	}

	if viper.IsSet("sweep.time_limit") {
		dur, err := utils.ParseDuration(viper.GetString("sweep.time_limit"))
		if err != nil {
			return sweep.Config{}, fmt.Errorf("sweep.time_limit: %w", err)
		}
		cfg.TimeLimit = dur
	}

	return cfg, nil
}

// intList accepts the shapes a list of node counts takes in YAML, env vars and flags
func intList(v any) ([]int, error) {
	switch val := v.(type) {
	case []int:
		return append([]int(nil), val...), nil
	case string:
		return utils.ParseIntList(val)
	case int:
		return []int{val}, nil
	case []string:
		return utils.ParseIntList(strings.Join(val, ","))
	case []any:
		out := make([]int, 0, len(val))
		for _, item := range val {
			switch n := item.(type) {
			case int:
				out = append(out, n)
			case int64:
				out = append(out, int(n))
			case float64:
				if n != float64(int(n)) {
					return nil, fmt.Errorf("%v is not an integer", n)
				}
				out = append(out, int(n))
			case string:
				parsed, err := utils.ParseIntList(n)
				if err != nil {
					return nil, err
				}
				out = append(out, parsed...)
			default:
				return nil, fmt.Errorf("unsupported list element %v (%T)", item, item)
			}
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported value %v (%T)", v, v)
}
