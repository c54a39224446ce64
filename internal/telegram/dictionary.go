package telegram

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
)

// codeTable maps a 3-byte ASCII area/epicenter code to its display name.
type codeTable map[[3]byte]string

// Dictionaries bundles the epicenter and area code lookups the parser
// needs. Both are supplied by an external collaborator at startup and may
// be hot-reloaded from CSV files without restarting the daemon.
type Dictionaries struct {
	epicenter atomic.Pointer[codeTable]
	area      atomic.Pointer[codeTable]
}

// NewDictionaries constructs a Dictionaries from two already-loaded tables.
func NewDictionaries(epicenter, area map[string]string) *Dictionaries {
	d := &Dictionaries{}
	d.setEpicenter(toCodeTable(epicenter))
	d.setArea(toCodeTable(area))
	return d
}

func toCodeTable(m map[string]string) codeTable {
	t := make(codeTable, len(m))
	for k, v := range m {
		var key [3]byte
		copy(key[:], k)
		t[key] = v
	}
	return t
}

func (d *Dictionaries) setEpicenter(t codeTable) { d.epicenter.Store(&t) }
func (d *Dictionaries) setArea(t codeTable)      { d.area.Store(&t) }

func (d *Dictionaries) lookupEpicenter(code [3]byte) (string, bool) {
	t := d.epicenter.Load()
	if t == nil {
		return "", false
	}
	name, ok := (*t)[code]
	return name, ok
}

func (d *Dictionaries) lookupArea(code [3]byte) (string, bool) {
	t := d.area.Load()
	if t == nil {
		return "", false
	}
	name, ok := (*t)[code]
	return name, ok
}

// LoadCodeTableCSV reads a two-column "code,name" CSV file (no header) into
// a map suitable for NewDictionaries.
func LoadCodeTableCSV(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open code table %s: %w", path, err)
	}
	defer f.Close()

	out := make(map[string]string)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, ",", 2)
		if len(parts) != 2 {
			continue
		}
		code := strings.TrimSpace(parts[0])
		name := strings.TrimSpace(parts[1])
		if len(code) != 3 {
			continue
		}
		out[code] = name
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan code table %s: %w", path, err)
	}
	return out, nil
}

// DictionaryReloader watches the epicenter and area CSV files on disk and
// swaps Dictionaries' tables atomically when either changes, the same
// write-event-triggered pattern the ambient configuration hot-reloader
// uses for its YAML file.
type DictionaryReloader struct {
	dict          *Dictionaries
	epicenterPath string
	areaPath      string
	watcher       *fsnotify.Watcher
	mu            sync.Mutex
	watching      bool
}

// NewDictionaryReloader creates a reloader bound to dict and the two CSV
// paths it should watch.
func NewDictionaryReloader(dict *Dictionaries, epicenterPath, areaPath string) (*DictionaryReloader, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create dictionary watcher: %w", err)
	}
	return &DictionaryReloader{dict: dict, epicenterPath: epicenterPath, areaPath: areaPath, watcher: watcher}, nil
}

// Watch begins watching both CSV files' directories and reloads the
// affected table whenever a write event targets one of them. It returns an
// error channel for reload failures (parse errors do not stop watching);
// Watch runs until ctx is cancelled.
func (r *DictionaryReloader) Watch(ctx context.Context) (<-chan error, error) {
	r.mu.Lock()
	if r.watching {
		r.mu.Unlock()
		errs := make(chan error)
		close(errs)
		return errs, nil
	}
	for _, p := range []string{r.epicenterPath, r.areaPath} {
		if err := r.watcher.Add(filepath.Dir(p)); err != nil {
			r.mu.Unlock()
			return nil, fmt.Errorf("watch dir for %s: %w", p, err)
		}
	}
	r.watching = true
	r.mu.Unlock()

	errs := make(chan error, 4)
	go func() {
		defer close(errs)
		for {
			select {
			case e, ok := <-r.watcher.Events:
				if !ok {
					return
				}
				if e.Op&fsnotify.Write != fsnotify.Write {
					continue
				}
				switch e.Name {
				case r.epicenterPath:
					m, err := LoadCodeTableCSV(r.epicenterPath)
					if err != nil {
						errs <- err
						continue
					}
					r.dict.setEpicenter(toCodeTable(m))
				case r.areaPath:
					m, err := LoadCodeTableCSV(r.areaPath)
					if err != nil {
						errs <- err
						continue
					}
					r.dict.setArea(toCodeTable(m))
				}
			case err, ok := <-r.watcher.Errors:
				if !ok {
					return
				}
				errs <- err
			case <-ctx.Done():
				return
			}
		}
	}()
	return errs, nil
}

// Close stops watching and releases the underlying file watcher.
func (r *DictionaryReloader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.watching = false
	return r.watcher.Close()
}
