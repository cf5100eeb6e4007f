// Package cli provides shared scaffolding for the tapetree command-line tools:
// version reporting, a leveled logger, config load/save, and exit helpers.
package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"time"
)

// Version information for the tapetree CLI.
const (
	Version   = "0.1.0"
	BuildDate = "2026-08-01"
)

// CommitSHA is set during build via -ldflags "-X".
var CommitSHA = "unknown"

// TapeFormatVersion is the version of the tape wire format this build's
// reference tokenizer emits and this build's builder/merger understand. The
// CLI's -min-tape-version flag is checked against this with semver.
const TapeFormatVersion = "1.0.0"

// VersionInfo contains version and build information.
type VersionInfo struct {
	Version    string `json:"version"`
	TapeFormat string `json:"tape_format_version"`
	BuildDate  string `json:"build_date"`
	CommitSHA  string `json:"commit_sha"`
	GoVersion  string `json:"go_version"`
	Platform   string `json:"platform"`
	Arch       string `json:"arch"`
}

// GetVersionInfo returns structured version information.
func GetVersionInfo() *VersionInfo {
	return &VersionInfo{
		Version:    Version,
		TapeFormat: TapeFormatVersion,
		BuildDate:  BuildDate,
		CommitSHA:  CommitSHA,
		GoVersion:  runtime.Version(),
		Platform:   runtime.GOOS,
		Arch:       runtime.GOARCH,
	}
}

// PrintVersion prints version information in a consistent format.
func PrintVersion(toolName string, jsonOutput bool) {
	info := GetVersionInfo()

	if jsonOutput {
		data, err := json.MarshalIndent(map[string]interface{}{
			"tool":         toolName,
			"version_info": info,
		}, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to marshal version info to JSON: %v\n", err)
			jsonOutput = false
		} else {
			fmt.Println(string(data))

			return
		}
	}

	if !jsonOutput {
		fmt.Printf("%s v%s (tape format v%s)\n", toolName, info.Version, info.TapeFormat)
		fmt.Printf("Build Date: %s\n", info.BuildDate)

		if info.CommitSHA != "unknown" && info.CommitSHA != "" {
			fmt.Printf("Commit: %s\n", info.CommitSHA)
		}

		fmt.Printf("Go Version: %s\n", info.GoVersion)
		fmt.Printf("Platform: %s/%s\n", info.Platform, info.Arch)
	}
}

// ExitWithError prints an error message and exits with code 1.
func ExitWithError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

// ExitWithCode exits with the specified code and optional message.
func ExitWithCode(code int, format string, args ...interface{}) {
	if format != "" {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}

	os.Exit(code)
}

// Logger provides leveled logging for CLI tools. Info/Debug are gated;
// Warn/Error always print, matching this codebase's CLI logging convention.
type Logger struct {
	Verbose   bool
	DebugMode bool
}

// NewLogger creates a new logger instance.
func NewLogger(verbose, debug bool) *Logger {
	return &Logger{
		Verbose:   verbose,
		DebugMode: debug,
	}
}

func (l *Logger) Info(format string, args ...interface{}) {
	if l.Verbose {
		fmt.Fprintf(os.Stderr, "[INFO] %s: %s\n", time.Now().Format("15:04:05"), fmt.Sprintf(format, args...))
	}
}

func (l *Logger) Debug(format string, args ...interface{}) {
	if l.DebugMode {
		fmt.Fprintf(os.Stderr, "[DEBUG] %s: %s\n", time.Now().Format("15:04:05"), fmt.Sprintf(format, args...))
	}
}

func (l *Logger) Warn(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "[WARN] %s: %s\n", time.Now().Format("15:04:05"), fmt.Sprintf(format, args...))
}

func (l *Logger) Error(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "[ERROR] %s: %s\n", time.Now().Format("15:04:05"), fmt.Sprintf(format, args...))
}

// Config represents persisted configuration for the tapetree CLI.
type Config struct {
	Verbose    bool   `json:"verbose"`
	Debug      bool   `json:"debug"`
	Threads    int    `json:"threads"`
	Pretty     bool   `json:"pretty"`
	ConfigFile string `json:"-"`
}

// LoadConfig loads configuration from a JSON file, returning defaults if the
// path is empty or the file does not exist.
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{
		Threads: runtime.NumCPU(),
	}

	if configPath == "" {
		return config, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}

		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.ConfigFile = configPath

	return config, nil
}

// SaveConfig saves configuration to a JSON file.
func (c *Config) SaveConfig(configPath string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// HandleError handles a terminal CLI error in a consistent way.
func HandleError(err error, logger *Logger) {
	if err == nil {
		return
	}

	if logger != nil {
		logger.Error("%v", err)
	} else {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}

	os.Exit(1)
}
