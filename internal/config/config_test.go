package config

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"hybrid-sizing/internal/data"
	"hybrid-sizing/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const runYAML = `
logging:
  level: debug
  format: console
engine:
  workers: 2
  combination_timeout: 30s
demand:
  flat_mw: 100
  years: 1
  start: "2024-01-01"
scenario:
  offset_target: 0.5
  peak_target: 90
  peak_hours: [18, 19]
  monthly_targets: [80]
  curtailment_policy: aggregated
owners:
  - name: acme
    assets:
      - tech: solar
        name: sunfield
        max_capacity_mw: 150
        profile_file: solar.csv
      - tech: storage
        name: b1
        preset_file: presets/lfp.yaml
        max_hours: 2
`

const presetYAML = `
storage:
  round_trip_efficiency: 0.81
  depth_of_discharge: 0.9
  max_hours: 4
`

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func fixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "run.yaml"), runYAML)
	writeFile(t, filepath.Join(dir, "presets", "lfp.yaml"), presetYAML)
	profile := "hour,availability\n"
	for h := 0; h < 24; h++ {
		v := "0"
		if h >= 6 && h < 18 {
			v = "1"
		}
		profile += v + "," + v + "\n"
	}
	writeFile(t, filepath.Join(dir, "solar.csv"), profile)
	return filepath.Join(dir, "run.yaml")
}

func TestLoadResolvesPresetAndProfiles(t *testing.T) {
	c, err := Load(fixture(t))
	require.NoError(t, err)

	timeout, err := c.Engine.Timeout()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, timeout)
	assert.Equal(t, 2, c.Engine.Workers)

	storage := c.Owners[0].Assets[1]
	assert.Equal(t, 0.81, storage.RoundTripEfficiency)
	assert.Equal(t, 0.9, storage.DepthOfDischarge)
	// Explicit entry overrides the preset.
	assert.Equal(t, 2.0, storage.MaxHours)

	in, warnings, err := c.Inputs(data.NewProfileCache(time.Minute))
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, 8760, in.Demand.Len())
	require.Len(t, in.Owners, 1)
	o := in.Owners[0]
	assert.Equal(t, "acme", o.Owner)
	require.Len(t, o.Solar, 1)
	assert.Len(t, o.Solar[0].Profile, 24)
	assert.Equal(t, 1.0, o.Solar[0].Profile[6])
	require.Len(t, o.Storage, 1)
	assert.InDelta(t, 0.9, o.Storage[0].StoreEfficiency, 1e-12)
	assert.InDelta(t, 0.9, o.Storage[0].DispatchEfficiency, 1e-12)

	sc := in.Scenario
	assert.Equal(t, 0.5, sc.OffsetTarget)
	assert.Equal(t, 90.0, sc.PeakTarget)
	assert.Equal(t, []float64{80}, sc.MonthlyTargets)
	assert.Equal(t, model.PolicyAggregated, sc.CurtailmentPolicy)
	assert.Equal(t, model.DefaultCurtailmentResalePrice, sc.CurtailmentResalePrice)
}

func TestScenarioDefaults(t *testing.T) {
	sc, warnings := ScenarioConfig{}.ToModel()
	assert.Empty(t, warnings)
	assert.Equal(t, model.DefaultScenario(), withNilSlices(sc))
}

func withNilSlices(sc model.ScenarioParameters) model.ScenarioParameters {
	if len(sc.PeakHours) == 0 {
		sc.PeakHours = nil
	}
	return sc
}

func TestMonthlyTargetsMalformedBecomeWarnings(t *testing.T) {
	c, err := Parse([]byte(`
scenario:
  monthly_targets: [80, "high"]
`))
	require.NoError(t, err)
	sc, warnings := c.Scenario.ToModel()
	require.Len(t, warnings, 1)
	assert.True(t, errors.Is(warnings[0], model.ErrConfiguration))
	assert.Nil(t, sc.MonthlyTargets)
}

func TestParseTargets(t *testing.T) {
	got, err := ParseTargets([]any{80, 0.5, "75%", int64(3)})
	require.NoError(t, err)
	assert.Equal(t, []float64{80, 0.5, 75, 3}, got)

	_, err = ParseTargets([]any{true})
	assert.ErrorIs(t, err, model.ErrConfiguration)
	_, err = ParseTargets([]any{math.NaN()})
	assert.ErrorIs(t, err, model.ErrConfiguration)
}

func TestValidate(t *testing.T) {
	cases := map[string]string{
		"no demand":     "owners: [{name: a, assets: [{tech: solar, name: s}]}]",
		"two demands":   "demand: {flat_mw: 1, values: [1]}\nowners: [{name: a}]",
		"no owners":     "demand: {flat_mw: 1}",
		"bad tech":      "demand: {flat_mw: 1}\nowners: [{name: a, assets: [{tech: coal, name: c}]}]",
		"bad timeout":   "demand: {flat_mw: 1}\nengine: {combination_timeout: soon}\nowners: [{name: a}]",
		"bad scenario":  "demand: {flat_mw: 1}\nscenario: {offset_target: 3}\nowners: [{name: a}]",
		"bad policy":    "demand: {flat_mw: 1}\nscenario: {curtailment_policy: strict}\nowners: [{name: a}]",
		"unnamed asset": "demand: {flat_mw: 1}\nowners: [{name: a, assets: [{tech: wind}]}]",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			c, err := Parse([]byte(doc))
			require.NoError(t, err)
			assert.Error(t, c.Validate())
		})
	}

	var nilCfg *Config
	assert.Error(t, nilCfg.Validate())
}

func TestMergeStorage(t *testing.T) {
	base := StorageConfig{RoundTripEfficiency: 0.8, DepthOfDischarge: 0.9, MaxHours: 4}
	out := MergeStorage(base, StorageConfig{MaxHours: 2, StoreEfficiency: 0.95})
	assert.Equal(t, StorageConfig{RoundTripEfficiency: 0.8, StoreEfficiency: 0.95, DepthOfDischarge: 0.9, MaxHours: 2}, out)
}

func TestAssetToModel(t *testing.T) {
	a := AssetConfig{Tech: "storage", Name: "b", StorageConfig: StorageConfig{RoundTripEfficiency: 0.64, StoreEfficiency: 1}}
	m, err := a.ToModel("o")
	require.NoError(t, err)
	assert.Equal(t, 1.0, m.StoreEfficiency)
	assert.InDelta(t, 0.8, m.DispatchEfficiency, 1e-12)
	assert.Equal(t, "o", m.Owner)

	_, err = AssetConfig{Tech: "hydro"}.ToModel("o")
	assert.Error(t, err)
}

func TestInputsFromValues(t *testing.T) {
	c, err := Parse([]byte(`
demand:
  values: [10, 20, 30]
  start: "2025-06-01T00:00:00Z"
owners:
  - name: a
    assets:
      - {tech: wind, name: w, max_capacity_mw: 5, profile: [0.1, 0.2, 0.3]}
`))
	require.NoError(t, err)
	require.NoError(t, c.Validate())
	in, _, err := c.Inputs(nil)
	require.NoError(t, err)
	assert.Equal(t, []float64{10, 20, 30}, in.Demand.Values)
	assert.Equal(t, time.June, in.Demand.Timestamps[0].Month())
	require.Len(t, in.Owners[0].Wind, 1)
}

func TestInputsFlatHours(t *testing.T) {
	c, err := Parse([]byte("demand: {flat_mw: 100, hours: 48}\nowners: [{name: a}]"))
	require.NoError(t, err)
	require.NoError(t, c.Validate())
	in, _, err := c.Inputs(nil)
	require.NoError(t, err)
	assert.Equal(t, 48, in.Demand.Len())
	assert.Equal(t, 4800.0, in.Demand.Sum())
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(LoggingConfig{Format: "console"}, "debug")
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(-1))

	_, err = NewLogger(LoggingConfig{Level: "loud"}, "")
	assert.Error(t, err)
	_, err = NewLogger(LoggingConfig{Format: "xml"}, "")
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "logs", "run.log")
	logger, err = NewLogger(LoggingConfig{OutputFile: path}, "")
	require.NoError(t, err)
	logger.Info("hello")
	_ = logger.Sync()
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestLoadServerSettings(t *testing.T) {
	t.Setenv("SIZING_PORT", "9090")
	t.Setenv("SIZING_WORKERS", "4")

	s, err := LoadServerSettings("")
	require.NoError(t, err)
	assert.Equal(t, "9090", s.Port)
	assert.Equal(t, 4, s.Workers)
	assert.Equal(t, "json", s.LogFormat)
	assert.False(t, s.IsProduction())
	assert.Equal(t, []string{"*"}, s.AllowedOrigins)

	path := filepath.Join(t.TempDir(), "server.yaml")
	writeFile(t, path, "env: production\ncombination_timeout: 45s\nlog_level: warn\n")
	s, err = LoadServerSettings(path)
	require.NoError(t, err)
	assert.True(t, s.IsProduction())
	assert.Equal(t, 45*time.Second, s.CombinationTimeout)
	assert.Equal(t, "warn", s.Logging().Level)

	t.Setenv("SIZING_LOG_LEVEL", "chatty")
	_, err = LoadServerSettings("")
	assert.Error(t, err)
}
