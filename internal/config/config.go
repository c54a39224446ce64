// Package config loads the daemon's YAML configuration file into
// already-typed collaborator structs: wni.Client credentials, per-destination
// enablement and condition.Condition trees, and the file paths of the code
// dictionaries the telegram parser needs. Nothing downstream ever sees raw
// YAML.
package config

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"tina/internal/condition"
	"tina/internal/eew"
)

// rawValueCondition mirrors a single YAML condition clause. drill and test
// default to false rather than nil so an operator who never mentions them
// gets the intuitive "not a drill, not a test" behavior instead of a
// don't-care clause silently admitting drill/test traffic.
type rawValueCondition struct {
	First                *bool    `yaml:"first"`
	Succeeding           *bool    `yaml:"succeeding"`
	Alert                *bool    `yaml:"alert"`
	Last                 *bool    `yaml:"last"`
	Cancel               *bool    `yaml:"cancel"`
	Drill                *bool    `yaml:"drill"`
	Test                 *bool    `yaml:"test"`
	PhaseChanged         *bool    `yaml:"phase_changed"`
	EpicenterNameChanged *bool    `yaml:"epicenter_name_changed"`
	MagnitudeOver        *float32 `yaml:"magnitude_over"`
	IntensityOver        *float32 `yaml:"intensity_over"`
	IntensityUp          *int     `yaml:"intensity_up"`
	IntensityDown        *int     `yaml:"intensity_down"`
}

func falseIfNil(b *bool) *bool {
	if b != nil {
		return b
	}
	f := false
	return &f
}

func (r rawValueCondition) toCondition() *condition.ValueCondition {
	v := &condition.ValueCondition{
		First:                r.First,
		Succeeding:           r.Succeeding,
		Alert:                r.Alert,
		Last:                 r.Last,
		Cancel:               r.Cancel,
		Drill:                falseIfNil(r.Drill),
		Test:                 falseIfNil(r.Test),
		PhaseChanged:         r.PhaseChanged,
		EpicenterNameChanged: r.EpicenterNameChanged,
		MagnitudeOver:        r.MagnitudeOver,
		IntensityUp:          r.IntensityUp,
		IntensityDown:        r.IntensityDown,
	}
	if r.IntensityOver != nil {
		ic := eew.NewIntensityClassFromNumeric(*r.IntensityOver)
		v.IntensityOver = &ic
	}
	return v
}

// buildCondition turns a YAML clause list into a single Condition: zero
// clauses means "always deliver", one or more clauses OR together exactly
// like the destination's own cond: list semantics.
func buildCondition(clauses []rawValueCondition) condition.Condition {
	if len(clauses) == 0 {
		return condition.Constant(true)
	}
	d := make(condition.Disjunctive, 0, len(clauses))
	for _, c := range clauses {
		d = append(d, c.toCondition())
	}
	return d
}

type rawPathConfig struct {
	Area      string `yaml:"area"`
	Epicenter string `yaml:"epicenter"`
}

type rawWNIConfig struct {
	ID         string `yaml:"id"`
	TerminalID string `yaml:"terminal_id"`
	Password   string `yaml:"password"`
	ServerList string `yaml:"server_list_url"`
}

type rawTwitterConfig struct {
	ConsumerKey    string              `yaml:"consumer_token"`
	ConsumerSecret string              `yaml:"consumer_secret"`
	AccessKey      string              `yaml:"access_token"`
	AccessSecret   string              `yaml:"access_secret"`
	ReplyChain     bool                `yaml:"in_reply_to_enabled"`
	Cond           []rawValueCondition `yaml:"cond"`
}

type rawSlackConfig struct {
	WebhookURL string              `yaml:"webhook_url"`
	Cond       []rawValueCondition `yaml:"cond"`
}

type rawLoggingDestConfig struct {
	Enabled bool                `yaml:"enabled"`
	Cond    []rawValueCondition `yaml:"cond"`
}

type rawLogConfig struct {
	WNILogPath         string `yaml:"wni_log_path"`
	EEWLogPath         string `yaml:"eew_log_path"`
	DestDebugLogPath   string `yaml:"dest_debug_log_path"`
	WNIStdoutLog       bool   `yaml:"wni_stdout_log"`
	EEWStdoutLog       bool   `yaml:"eew_stdout_log"`
	DestDebugStdoutLog bool   `yaml:"dest_debug_stdout_log"`
	Level              string `yaml:"log_level"`
}

type rawSupervisorConfig struct {
	ReaderCount     int `yaml:"reader_count"`
	IngestBuffer    int `yaml:"ingest_buffer"`
	HistoryCapacity int `yaml:"history_capacity"`
}

type rawRootConfig struct {
	Path       rawPathConfig         `yaml:"path"`
	WNI        rawWNIConfig          `yaml:"wni"`
	Twitter    *rawTwitterConfig     `yaml:"twitter"`
	Slack      *rawSlackConfig       `yaml:"slack"`
	Logging    *rawLoggingDestConfig `yaml:"logging"`
	Log        rawLogConfig          `yaml:"log"`
	Supervisor rawSupervisorConfig   `yaml:"supervisor"`
}

// WNIConfig carries the credentials and server-list URL the ingest
// supervisor hands to wni.NewClient.
type WNIConfig struct {
	ID            string
	TerminalID    string
	Password      string
	ServerListURL string
}

// TwitterConfig carries the OAuth1 credentials, reply-chaining toggle and
// delivery condition for the Twitter destination.
type TwitterConfig struct {
	ConsumerKey    string
	ConsumerSecret string
	AccessKey      string
	AccessSecret   string
	ReplyChain     bool
	Condition      condition.Condition
}

// SlackConfig carries the webhook URL and delivery condition for the
// Slack destination.
type SlackConfig struct {
	WebhookURL string
	Condition  condition.Condition
}

// LoggingConfig gates the verbose logging destination.
type LoggingConfig struct {
	Enabled   bool
	Condition condition.Condition
}

// LogConfig controls the daemon's four log channels: the general log's
// verbosity, the raw WNI wire log, the EEW delivery log and the
// per-destination debug log, each with its own file and/or stdout sink.
type LogConfig struct {
	WNILogPath         string
	EEWLogPath         string
	DestDebugLogPath   string
	WNIStdoutLog       bool
	EEWStdoutLog       bool
	DestDebugStdoutLog bool
	Level              slog.Level
}

// SupervisorConfig sizes the reader pool, ingest buffer and dedup history.
type SupervisorConfig struct {
	ReaderCount     int
	IngestBuffer    int
	HistoryCapacity int
}

// Config is the fully-typed, ready-to-wire configuration for cmd/tina.
type Config struct {
	AreaDictPath      string
	EpicenterDictPath string
	WNI               WNIConfig
	Twitter           *TwitterConfig
	Slack             *SlackConfig
	Logging           *LoggingConfig
	Log               LogConfig
	Supervisor        SupervisorConfig
}

// Load reads and parses the YAML file at path. It does not load the code
// dictionaries themselves; callers pass AreaDictPath/EpicenterDictPath to
// telegram.LoadCodeTableCSV once the rest of the pipeline is ready to start.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var raw rawRootConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if raw.WNI.ID == "" || raw.WNI.Password == "" {
		return nil, fmt.Errorf("config %s: wni.id and wni.password are required", path)
	}
	if raw.WNI.ServerList == "" {
		return nil, fmt.Errorf("config %s: wni.server_list_url is required", path)
	}

	cfg := &Config{
		AreaDictPath:      raw.Path.Area,
		EpicenterDictPath: raw.Path.Epicenter,
		WNI: WNIConfig{
			ID:            raw.WNI.ID,
			TerminalID:    raw.WNI.TerminalID,
			Password:      raw.WNI.Password,
			ServerListURL: raw.WNI.ServerList,
		},
		Log:        parseLogConfig(raw.Log),
		Supervisor: parseSupervisorConfig(raw.Supervisor),
	}

	if raw.Twitter != nil {
		cfg.Twitter = &TwitterConfig{
			ConsumerKey:    raw.Twitter.ConsumerKey,
			ConsumerSecret: raw.Twitter.ConsumerSecret,
			AccessKey:      raw.Twitter.AccessKey,
			AccessSecret:   raw.Twitter.AccessSecret,
			ReplyChain:     raw.Twitter.ReplyChain,
			Condition:      buildCondition(raw.Twitter.Cond),
		}
	}
	if raw.Slack != nil {
		cfg.Slack = &SlackConfig{
			WebhookURL: raw.Slack.WebhookURL,
			Condition:  buildCondition(raw.Slack.Cond),
		}
	}
	if raw.Logging != nil {
		cfg.Logging = &LoggingConfig{
			Enabled:   raw.Logging.Enabled,
			Condition: buildCondition(raw.Logging.Cond),
		}
	}

	return cfg, nil
}

func parseLogConfig(raw rawLogConfig) LogConfig {
	return LogConfig{
		WNILogPath:         raw.WNILogPath,
		EEWLogPath:         raw.EEWLogPath,
		DestDebugLogPath:   raw.DestDebugLogPath,
		WNIStdoutLog:       raw.WNIStdoutLog,
		EEWStdoutLog:       raw.EEWStdoutLog,
		DestDebugStdoutLog: raw.DestDebugStdoutLog,
		Level:              parseLogLevel(raw.Level),
	}
}

// parseLogLevel maps the daemon's five-level vocabulary onto slog's four.
// "critical" has no slog equivalent and folds into Error; an unrecognized
// or empty string defaults to Info.
func parseLogLevel(s string) slog.Level {
	switch s {
	case "critical", "error":
		return slog.LevelError
	case "warning", "warn":
		return slog.LevelWarn
	case "debug":
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

func parseSupervisorConfig(raw rawSupervisorConfig) SupervisorConfig {
	cfg := SupervisorConfig{
		ReaderCount:     raw.ReaderCount,
		IngestBuffer:    raw.IngestBuffer,
		HistoryCapacity: raw.HistoryCapacity,
	}
	if cfg.HistoryCapacity <= 0 {
		cfg.HistoryCapacity = 1024
	}
	return cfg
}
