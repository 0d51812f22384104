package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"hybrid-sizing/internal/data"
	"hybrid-sizing/internal/model"
	"hybrid-sizing/internal/series"

	"gopkg.in/yaml.v3"
)

// Config is the on-disk run configuration (YAML).
type Config struct {
	Logging  LoggingConfig  `yaml:"logging"`
	Engine   EngineConfig   `yaml:"engine"`
	Demand   DemandConfig   `yaml:"demand"`
	Scenario ScenarioConfig `yaml:"scenario"`
	Owners   []OwnerConfig  `yaml:"owners"`

	// dir is the directory of the config file; relative paths resolve against it.
	dir string
}

type EngineConfig struct {
	Workers            int    `yaml:"workers"`
	MaxCombinations    int    `yaml:"max_combinations"`
	CombinationTimeout string `yaml:"combination_timeout"`
	// Halve aggregates every series to two-hour snapshots.
	Halve bool `yaml:"halve"`
}

// Timeout parses CombinationTimeout; empty means no limit.
func (e EngineConfig) Timeout() (time.Duration, error) {
	if strings.TrimSpace(e.CombinationTimeout) == "" {
		return 0, nil
	}
	return time.ParseDuration(e.CombinationTimeout)
}

// DemandConfig selects exactly one of FlatMW, Values or File.
type DemandConfig struct {
	FlatMW float64   `yaml:"flat_mw"`
	Years  int       `yaml:"years"`
	Hours  int       `yaml:"hours"` // flat demand horizon in hours; overrides years
	Values []float64 `yaml:"values"`
	File   string    `yaml:"file"`
	Start  string    `yaml:"start"` // RFC3339 or YYYY-MM-DD, default 2024-01-01
}

// ScenarioConfig mirrors model.ScenarioParameters; nil fields keep their defaults.
type ScenarioConfig struct {
	OffsetTarget              *float64 `yaml:"offset_target"`
	DepthOfDischarge          *float64 `yaml:"depth_of_discharge"`
	CurtailmentResaleFraction *float64 `yaml:"curtailment_resale_fraction"`
	CurtailmentResalePrice    *float64 `yaml:"curtailment_resale_price"`
	AnnualCurtailmentLimit    *float64 `yaml:"annual_curtailment_limit"`
	PeakTarget                *float64 `yaml:"peak_target"`
	PeakHours                 []int    `yaml:"peak_hours"`
	PeakPenalty               *float64 `yaml:"peak_penalty"`
	// MonthlyTargets is loosely typed so malformed entries degrade to a warning.
	MonthlyTargets         []any    `yaml:"monthly_targets"`
	TransmissionCapacityMW *float64 `yaml:"transmission_capacity_mw"`
	FixedCostAdder         *float64 `yaml:"fixed_cost_adder"`
	CurtailmentPolicy      string   `yaml:"curtailment_policy"`
	StorageEnergyLimit     string   `yaml:"storage_energy_limit"`
	UnmetDemandCost        *float64 `yaml:"unmet_demand_cost"`
	UnmetDemandCapacityMW  *float64 `yaml:"unmet_demand_capacity_mw"`
}

type OwnerConfig struct {
	Name   string        `yaml:"name"`
	Assets []AssetConfig `yaml:"assets"`
}

type AssetConfig struct {
	Tech string `yaml:"tech"`
	Name string `yaml:"name"`

	// Optional: load storage parameters from a separate YAML preset.
	// Explicit fields here override the preset.
	PresetFile string `yaml:"preset_file"`

	Profile     []float64 `yaml:"profile"`
	ProfileFile string    `yaml:"profile_file"`

	MaxCapacityMW      float64 `yaml:"max_capacity_mw"`
	CapitalCostPerMW   float64 `yaml:"capital_cost_per_mw"`
	MarginalCostPerMWh float64 `yaml:"marginal_cost_per_mwh"`

	StorageConfig `yaml:",inline"`
}

// StorageConfig holds the storage-only asset parameters.
type StorageConfig struct {
	RoundTripEfficiency float64 `yaml:"round_trip_efficiency"`
	StoreEfficiency     float64 `yaml:"store_efficiency"`
	DispatchEfficiency  float64 `yaml:"dispatch_efficiency"`
	DepthOfDischarge    float64 `yaml:"depth_of_discharge"`
	MaxHours            float64 `yaml:"max_hours"`
}

func Load(path string) (*Config, error) {
	c, err := LoadUnchecked(path)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadUnchecked loads and merges config, but does not validate it.
// Useful for debugging/printing partial configs.
func LoadUnchecked(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c, err := Parse(raw)
	if err != nil {
		return nil, err
	}
	c.dir = filepath.Dir(path)
	for i := range c.Owners {
		for j := range c.Owners[i].Assets {
			a := &c.Owners[i].Assets[j]
			if a.PresetFile == "" {
				continue
			}
			loaded, err := LoadPresetFile(c.resolve(a.PresetFile))
			if err != nil {
				return nil, fmt.Errorf("asset %q preset: %w", a.Name, err)
			}
			a.StorageConfig = MergeStorage(loaded, a.StorageConfig)
		}
	}
	return c, nil
}

// Parse decodes a configuration document without touching the filesystem.
func Parse(raw []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// resolve prefers paths relative to the config file directory, but falls back to
// the provided path (relative to cwd) if that doesn't exist.
func (c *Config) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) || c.dir == "" {
		return p
	}
	cand := filepath.Join(c.dir, p)
	if _, err := os.Stat(cand); err == nil {
		return cand
	}
	return p
}

func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	sources := 0
	if c.Demand.FlatMW > 0 {
		sources++
	}
	if len(c.Demand.Values) > 0 {
		sources++
	}
	if c.Demand.File != "" {
		sources++
	}
	if sources != 1 {
		return errors.New("demand needs exactly one of flat_mw, values or file")
	}
	if _, err := c.Engine.Timeout(); err != nil {
		return fmt.Errorf("engine.combination_timeout: %w", err)
	}
	if c.Demand.Hours < 0 {
		return errors.New("demand.hours must be >= 0")
	}
	if c.Engine.Workers < 0 {
		return errors.New("engine.workers must be >= 0")
	}
	if len(c.Owners) == 0 {
		return errors.New("at least one owner is required")
	}
	sc, _ := c.Scenario.ToModel()
	if err := sc.Validate(); err != nil {
		return fmt.Errorf("scenario config invalid: %w", err)
	}
	for _, o := range c.Owners {
		if o.Name == "" {
			return errors.New("owner name is required")
		}
		for _, a := range o.Assets {
			if _, err := model.ParseTech(a.Tech); err != nil {
				return fmt.Errorf("owner %q asset %q: %w", o.Name, a.Name, err)
			}
			if a.Name == "" {
				return fmt.Errorf("owner %q has an asset without a name", o.Name)
			}
			if len(a.Profile) > 0 && a.ProfileFile != "" {
				return fmt.Errorf("asset %q: profile and profile_file are mutually exclusive", a.Name)
			}
		}
	}
	return nil
}

// ToModel overlays the configured fields on model.DefaultScenario. Malformed monthly
// targets are dropped and reported as ErrConfiguration warnings.
func (s ScenarioConfig) ToModel() (model.ScenarioParameters, []error) {
	out := model.DefaultScenario()
	set := func(dst *float64, v *float64) {
		if v != nil {
			*dst = *v
		}
	}
	set(&out.OffsetTarget, s.OffsetTarget)
	set(&out.DepthOfDischarge, s.DepthOfDischarge)
	set(&out.CurtailmentResaleFraction, s.CurtailmentResaleFraction)
	set(&out.CurtailmentResalePrice, s.CurtailmentResalePrice)
	set(&out.AnnualCurtailmentLimit, s.AnnualCurtailmentLimit)
	set(&out.PeakTarget, s.PeakTarget)
	set(&out.PeakPenalty, s.PeakPenalty)
	set(&out.TransmissionCapacityMW, s.TransmissionCapacityMW)
	set(&out.FixedCostAdder, s.FixedCostAdder)
	set(&out.UnmetDemandCost, s.UnmetDemandCost)
	set(&out.UnmetDemandCapacityMW, s.UnmetDemandCapacityMW)
	out.PeakHours = append([]int(nil), s.PeakHours...)
	if s.CurtailmentPolicy != "" {
		out.CurtailmentPolicy = model.CurtailmentPolicy(s.CurtailmentPolicy)
	}
	if s.StorageEnergyLimit != "" {
		out.StorageEnergyLimit = model.StorageEnergyLimit(s.StorageEnergyLimit)
	}

	var warnings []error
	if len(s.MonthlyTargets) > 0 {
		targets, err := ParseTargets(s.MonthlyTargets)
		if err != nil {
			warnings = append(warnings, err)
		} else {
			out.MonthlyTargets = targets
		}
	}
	return out, warnings
}

// ParseTargets converts loosely typed YAML/JSON values to numbers. Strings may carry
// a trailing "%". Any non-numeric entry rejects the whole list.
func ParseTargets(raw []any) ([]float64, error) {
	out := make([]float64, 0, len(raw))
	for i, v := range raw {
		var f float64
		switch x := v.(type) {
		case int:
			f = float64(x)
		case int64:
			f = float64(x)
		case float64:
			f = x
		case string:
			parsed, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(x), "%"), 64)
			if err != nil {
				return nil, fmt.Errorf("%w: monthly target %d (%q) is not numeric", model.ErrConfiguration, i+1, x)
			}
			f = parsed
		default:
			return nil, fmt.Errorf("%w: monthly target %d has unsupported type %T", model.ErrConfiguration, i+1, v)
		}
		if math.IsNaN(f) {
			return nil, fmt.Errorf("%w: monthly target %d is NaN", model.ErrConfiguration, i+1)
		}
		out = append(out, f)
	}
	return out, nil
}

// ToModel converts an asset entry. Round-trip efficiency is split evenly between
// store and dispatch when the individual efficiencies are not given.
func (a AssetConfig) ToModel(owner string) (model.CandidateAsset, error) {
	tech, err := model.ParseTech(a.Tech)
	if err != nil {
		return model.CandidateAsset{}, err
	}
	out := model.CandidateAsset{
		Tech:               tech,
		Name:               a.Name,
		Owner:              owner,
		Profile:            append([]float64(nil), a.Profile...),
		MaxCapacityMW:      a.MaxCapacityMW,
		CapitalCostPerMW:   a.CapitalCostPerMW,
		MarginalCostPerMWh: a.MarginalCostPerMWh,
	}
	if tech == model.TechStorage {
		out.StoreEfficiency = a.StoreEfficiency
		out.DispatchEfficiency = a.DispatchEfficiency
		if a.RoundTripEfficiency > 0 {
			leg := math.Sqrt(a.RoundTripEfficiency)
			if out.StoreEfficiency == 0 {
				out.StoreEfficiency = leg
			}
			if out.DispatchEfficiency == 0 {
				out.DispatchEfficiency = leg
			}
		}
		out.DepthOfDischarge = a.DepthOfDischarge
		out.MaxHours = a.MaxHours
	}
	return out, nil
}

// Inputs resolves demand and profile files and returns the optimizer inputs.
// Warnings are non-fatal configuration problems the caller should log.
func (c *Config) Inputs(cache *data.ProfileCache) (model.OptimizationInputs, []error, error) {
	var in model.OptimizationInputs
	start, err := parseStart(c.Demand.Start)
	if err != nil {
		return in, nil, fmt.Errorf("%w: demand.start: %v", model.ErrConfiguration, err)
	}

	switch {
	case c.Demand.FlatMW > 0 && c.Demand.Hours > 0:
		var values []float64
		if values, err = series.Tile(series.FlatDay(c.Demand.FlatMW, start).Values, c.Demand.Hours); err == nil {
			in.Demand, err = series.HourlyDemand(values, start)
		}
	case c.Demand.FlatMW > 0:
		years := c.Demand.Years
		if years <= 0 {
			years = 1
		}
		in.Demand, err = series.FlatDemand(c.Demand.FlatMW, years, start)
	case len(c.Demand.Values) > 0:
		in.Demand, err = series.HourlyDemand(c.Demand.Values, start)
	default:
		var values []float64
		if values, err = cache.Load(c.resolve(c.Demand.File)); err == nil {
			in.Demand, err = series.HourlyDemand(values, start)
		}
	}
	if err != nil {
		return in, nil, fmt.Errorf("demand: %w", err)
	}

	for _, oc := range c.Owners {
		owner := model.OwnerAssets{Owner: oc.Name}
		for _, ac := range oc.Assets {
			a, err := ac.ToModel(oc.Name)
			if err != nil {
				return in, nil, err
			}
			if ac.ProfileFile != "" {
				if a.Profile, err = cache.Load(c.resolve(ac.ProfileFile)); err != nil {
					return in, nil, fmt.Errorf("asset %q profile: %w", ac.Name, err)
				}
			}
			if err := owner.Add(a); err != nil {
				return in, nil, err
			}
		}
		in.Owners = append(in.Owners, owner)
	}

	var warnings []error
	in.Scenario, warnings = c.Scenario.ToModel()
	return in, warnings, nil
}

func parseStart(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

type presetFileWrapper struct {
	Storage StorageConfig `yaml:"storage"`
}

// LoadPresetFile reads a storage preset document ({storage: {...}}).
func LoadPresetFile(path string) (StorageConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return StorageConfig{}, err
	}
	var w presetFileWrapper
	if err := yaml.Unmarshal(raw, &w); err != nil {
		return StorageConfig{}, err
	}
	return w.Storage, nil
}

// MergeStorage overlays non-zero fields from override onto base.
// This is used when loading a preset file and then applying overrides from the asset entry.
func MergeStorage(base, override StorageConfig) StorageConfig {
	out := base
	if override.RoundTripEfficiency != 0 {
		out.RoundTripEfficiency = override.RoundTripEfficiency
	}
	if override.StoreEfficiency != 0 {
		out.StoreEfficiency = override.StoreEfficiency
	}
	if override.DispatchEfficiency != 0 {
		out.DispatchEfficiency = override.DispatchEfficiency
	}
	if override.DepthOfDischarge != 0 {
		out.DepthOfDischarge = override.DepthOfDischarge
	}
	if override.MaxHours != 0 {
		out.MaxHours = override.MaxHours
	}
	return out
}
