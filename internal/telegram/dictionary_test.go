package telegram

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCSV(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func TestLoadCodeTableCSVParsesCodeNamePairs(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "area.csv")
	writeCSV(t, path, "# comment\n101,北海道道央\n102,北海道道北\n\n")

	m, err := LoadCodeTableCSV(path)
	require.NoError(t, err)
	assert.Equal(t, "北海道道央", m["101"])
	assert.Equal(t, "北海道道北", m["102"])
	assert.Len(t, m, 2)
}

func TestLoadCodeTableCSVMissingFile(t *testing.T) {
	_, err := LoadCodeTableCSV(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

func TestLoadCodeTableCSVSkipsMalformedLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "area.csv")
	writeCSV(t, path, "101,ok\nnotacode,x\nonlyonecolumn\n102,also ok\n")

	m, err := LoadCodeTableCSV(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"101": "ok", "102": "also ok"}, m)
}

func TestDictionariesLookupHitAndMiss(t *testing.T) {
	d := NewDictionaries(map[string]string{"100": "epi"}, map[string]string{"200": "area"})

	name, ok := d.lookupEpicenter([3]byte{'1', '0', '0'})
	assert.True(t, ok)
	assert.Equal(t, "epi", name)

	_, ok = d.lookupEpicenter([3]byte{'9', '9', '9'})
	assert.False(t, ok)

	name, ok = d.lookupArea([3]byte{'2', '0', '0'})
	assert.True(t, ok)
	assert.Equal(t, "area", name)
}

func TestDictionaryReloaderSwapsTableOnWrite(t *testing.T) {
	dir := t.TempDir()
	epicenterPath := filepath.Join(dir, "epicenter.csv")
	areaPath := filepath.Join(dir, "area.csv")
	writeCSV(t, epicenterPath, "100,original\n")
	writeCSV(t, areaPath, "200,original\n")

	epi, err := LoadCodeTableCSV(epicenterPath)
	require.NoError(t, err)
	area, err := LoadCodeTableCSV(areaPath)
	require.NoError(t, err)
	d := NewDictionaries(epi, area)

	reloader, err := NewDictionaryReloader(d, epicenterPath, areaPath)
	require.NoError(t, err)
	defer reloader.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errs, err := reloader.Watch(ctx)
	require.NoError(t, err)
	go func() {
		for range errs {
		}
	}()

	writeCSV(t, epicenterPath, "100,updated\n")

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if name, _ := d.lookupEpicenter([3]byte{'1', '0', '0'}); name == "updated" {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("dictionary was not reloaded after write event")
}

func TestDictionaryReloaderWatchTwiceIsNoop(t *testing.T) {
	dir := t.TempDir()
	epicenterPath := filepath.Join(dir, "epicenter.csv")
	areaPath := filepath.Join(dir, "area.csv")
	writeCSV(t, epicenterPath, "100,a\n")
	writeCSV(t, areaPath, "200,b\n")

	d := NewDictionaries(nil, nil)
	reloader, err := NewDictionaryReloader(d, epicenterPath, areaPath)
	require.NoError(t, err)
	defer reloader.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err = reloader.Watch(ctx)
	require.NoError(t, err)
	errs, err := reloader.Watch(ctx)
	require.NoError(t, err)
	_, ok := <-errs
	assert.False(t, ok, "second Watch call should return an already-closed channel")
}
