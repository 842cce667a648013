// Package wizard persists the run wizard's answers and turns them into the
// run request the orchestrator expects.
package wizard

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/talentinsight/ai-quality-kit-sub003/internal/kvstore"
	"github.com/talentinsight/ai-quality-kit-sub003/internal/selection"
)

// Target modes.
const (
	ModeAPI = "api"
	ModeMCP = "mcp"
)

const (
	defaultProvider = "openai"
	defaultModel    = "gpt-4o-mini"
)

// Config is the persisted wizard state.
type Config struct {
	TargetMode  string              `json:"target_mode"`
	BaseURL     string              `json:"base_url,omitempty"`
	Provider    string              `json:"provider"`
	Model       string              `json:"model"`
	GroundTruth bool                `json:"ground_truth"`
	TestdataID  string              `json:"testdata_id,omitempty"`
	Suites      selection.Selection `json:"suites"`
	Thresholds  map[string]float64  `json:"thresholds,omitempty"`
}

// Default returns the configuration a fresh wizard starts from.
func Default() Config {
	return Config{
		TargetMode: ModeAPI,
		Provider:   defaultProvider,
		Model:      defaultModel,
		Suites:     selection.FromMetrics(selection.DefaultRAGSelection(false)),
	}
}

// Fields lists the names accepted by Holder.Set. Thresholds are set as
// "threshold.<metric>".
var Fields = []string{"target_mode", "base_url", "provider", "model", "ground_truth", "testdata_id", "suites"}

// ErrUnknownField is returned by Set for a field it does not know.
var ErrUnknownField = errors.New("unknown wizard field")

// Holder reads and writes the wizard configuration through a kvstore.Store.
type Holder struct {
	store kvstore.Store
	log   *slog.Logger
}

// NewHolder returns a Holder backed by store.
func NewHolder(store kvstore.Store, log *slog.Logger) *Holder {
	if log == nil {
		log = slog.Default()
	}
	return &Holder{store: store, log: log}
}

// Load returns the saved configuration, or Default when nothing is saved.
func (h *Holder) Load() (Config, error) {
	raw, ok, err := h.store.Get(kvstore.KeyWizardConfig)
	if err != nil {
		return Config{}, fmt.Errorf("read wizard config: %w", err)
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return Default(), nil
	}
	cfg := Default()
	cfg.Suites = nil
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return Config{}, fmt.Errorf("parse wizard config: %w", err)
	}
	if cfg.Suites == nil {
		cfg.Suites = Default().Suites
	}
	return cfg, nil
}

// Save validates and stores cfg.
func (h *Holder) Save(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode wizard config: %w", err)
	}
	if err := h.store.Set(kvstore.KeyWizardConfig, string(data)); err != nil {
		return fmt.Errorf("save wizard config: %w", err)
	}
	return nil
}

// Reset forgets the saved configuration.
func (h *Holder) Reset() error {
	if err := h.store.Delete(kvstore.KeyWizardConfig); err != nil {
		return fmt.Errorf("reset wizard config: %w", err)
	}
	return nil
}

// Set updates one field and saves the result.
func (h *Holder) Set(field, value string) (Config, error) {
	cfg, err := h.Load()
	if err != nil {
		return Config{}, err
	}
	if err := cfg.apply(field, strings.TrimSpace(value)); err != nil {
		return Config{}, err
	}
	if err := h.Save(cfg); err != nil {
		return Config{}, err
	}
	h.log.Debug("wizard field set", "field", field)
	return cfg, nil
}

func (c *Config) apply(field, value string) error {
	if metric, ok := strings.CutPrefix(field, "threshold."); ok {
		return c.setThreshold(metric, value)
	}
	switch field {
	case "target_mode":
		c.TargetMode = strings.ToLower(value)
	case "base_url":
		c.BaseURL = strings.TrimRight(value, "/")
	case "provider":
		c.Provider = value
	case "model":
		c.Model = value
	case "ground_truth":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("ground_truth: %w", err)
		}
		c.GroundTruth = b
	case "testdata_id":
		c.TestdataID = value
	case "suites":
		sel, err := selection.ParseSuiteArgs(strings.Fields(value))
		if err != nil {
			return err
		}
		c.Suites = sel
	default:
		return fmt.Errorf("%w %q (want %s or threshold.<metric>)", ErrUnknownField, field, strings.Join(Fields, ", "))
	}
	return nil
}

func (c *Config) setThreshold(metric, value string) error {
	if _, ok := selection.TestIDFor(metric); !ok {
		return fmt.Errorf("threshold: unknown metric %q", metric)
	}
	if value == "" {
		delete(c.Thresholds, metric)
		return nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || f < 0 || f > 1 {
		return fmt.Errorf("threshold %s: want a number between 0 and 1, got %q", metric, value)
	}
	if c.Thresholds == nil {
		c.Thresholds = map[string]float64{}
	}
	c.Thresholds[metric] = f
	return nil
}

// Validate checks the fields a run cannot start without.
func (c Config) Validate() error {
	switch c.TargetMode {
	case ModeAPI, ModeMCP:
	default:
		return fmt.Errorf("target_mode must be %q or %q, got %q", ModeAPI, ModeMCP, c.TargetMode)
	}
	if c.BaseURL != "" {
		u, err := url.Parse(c.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("base_url %q is not an absolute URL", c.BaseURL)
		}
	}
	if c.TargetMode == ModeAPI && (c.Provider == "" || c.Model == "") {
		return errors.New("api target needs both provider and model")
	}
	return nil
}

// Plan is the run request built from a Config.
type Plan struct {
	TargetMode    string              `json:"target_mode"`
	BaseURL       string              `json:"base_url,omitempty"`
	Provider      string              `json:"provider,omitempty"`
	Model         string              `json:"model,omitempty"`
	GroundTruth   bool                `json:"ground_truth"`
	TestdataID    string              `json:"testdata_id,omitempty"`
	Suites        []string            `json:"suites"`
	SelectedTests selection.Selection `json:"selected_tests"`
	Metrics       []string            `json:"metrics"`
	Thresholds    map[string]float64  `json:"thresholds,omitempty"`
}

// Plan builds the run request. The selection is normalized, and when no
// bundle id is set the last used one is offered instead.
func (h *Holder) Plan() (Plan, selection.Report, error) {
	cfg, err := h.Load()
	if err != nil {
		return Plan{}, selection.Report{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Plan{}, selection.Report{}, err
	}
	report := selection.Inspect(cfg.Suites)
	if !report.Clean() {
		h.log.Warn("wizard selection does not match the test catalog",
			"unknown_tests", report.UnknownTests, "duplicates", report.Duplicates)
	}

	norm := selection.Normalize(cfg.Suites)
	p := Plan{
		TargetMode:    cfg.TargetMode,
		BaseURL:       cfg.BaseURL,
		Provider:      cfg.Provider,
		Model:         cfg.Model,
		GroundTruth:   cfg.GroundTruth,
		TestdataID:    cfg.TestdataID,
		SelectedTests: norm,
		Metrics:       selection.ToMetrics(norm),
		Thresholds:    cfg.Thresholds,
	}
	for _, s := range selection.Suites {
		if len(norm[s]) > 0 {
			p.Suites = append(p.Suites, s)
		}
	}
	if p.Metrics == nil {
		p.Metrics = []string{}
	}
	if p.Suites == nil {
		p.Suites = []string{}
	}
	if p.TestdataID == "" {
		last, _, err := h.store.Get(kvstore.KeyLastTestdataID)
		if err != nil {
			h.log.Warn("cannot read last test data id", "error", err)
		}
		p.TestdataID = last
	}
	return p, report, nil
}

// ThresholdKeys returns the metrics with a threshold, sorted.
func (c Config) ThresholdKeys() []string {
	keys := make([]string, 0, len(c.Thresholds))
	for k := range c.Thresholds {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
