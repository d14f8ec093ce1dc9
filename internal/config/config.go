package config

import (
	"time"

	"github.com/viniciusmctf/prksweep/internal/scheduler"
)

const VERSION = "0.3.0"

// Config holds global application settings
type Config struct {
	Debug         bool
	Quiet         bool
	SubmitJob     bool
	FailFast      bool
	Version       string
	SchedulerBin  string
	SubmitTimeout time.Duration
	OutputDir     string
}

// Global holds the singleton configuration instance
var Global Config

// LoadDefaults resets Global to built-in defaults
func LoadDefaults() {
	Global = Config{
		Debug:         false,
		Quiet:         false,
		SubmitJob:     true,
		FailFast:      false,
		Version:       VERSION,
		SchedulerBin:  "",
		SubmitTimeout: scheduler.DefaultSubmitTimeout,
		OutputDir:     ".",
	}
}
