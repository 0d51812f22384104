package data

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"hybrid-sizing/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadSeriesFormats(t *testing.T) {
	dir := t.TempDir()

	values, err := LoadSeries(write(t, dir, "a.json", "[0, 0.5, 1]"))
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0.5, 1}, values)

	values, err = LoadSeries(write(t, dir, "b.json", `{"values": [0.25, 0.75]}`))
	require.NoError(t, err)
	assert.Equal(t, []float64{0.25, 0.75}, values)

	values, err = LoadSeries(write(t, dir, "c.csv", "hour,availability\n0,0.1\n1,0.2\n"))
	require.NoError(t, err)
	assert.Equal(t, []float64{0.1, 0.2}, values)

	values, err = LoadSeries(write(t, dir, "d.csv", "5\n6\n"))
	require.NoError(t, err)
	assert.Equal(t, []float64{5, 6}, values)
}

func TestLoadSeriesErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadSeries(write(t, dir, "bad.csv", "h,v\n0,0.1\n1,oops\n"))
	assert.ErrorIs(t, err, model.ErrDataAlignment)

	_, err = LoadSeries(write(t, dir, "x.parquet", ""))
	assert.ErrorIs(t, err, model.ErrDataAlignment)

	_, err = LoadSeries(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestProfileCache(t *testing.T) {
	dir := t.TempDir()
	path := write(t, dir, "p.json", "[1, 2]")

	c := NewProfileCache(time.Minute)
	first, err := c.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Len())

	first[0] = 99
	second, err := c.Load(path)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, second)
	assert.Equal(t, 1, c.Len())
}

func TestProfileCacheExpiry(t *testing.T) {
	c := NewProfileCache(time.Nanosecond)
	c.Set("k", []float64{1})
	time.Sleep(time.Millisecond)
	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestNilProfileCacheLoadsDirectly(t *testing.T) {
	var c *ProfileCache
	path := write(t, t.TempDir(), "p.csv", "0.5\n")
	values, err := c.Load(path)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5}, values)
}
