package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/hashicorp/hcl/v2/hclsimple"
	"gopkg.in/yaml.v3"
)

// Loader reads a command file and watches it for changes.
type Loader struct {
	path     string
	mu       sync.RWMutex
	current  *CommandSet
	onChange []func(*CommandSet)
	watcher  *fsnotify.Watcher
}

// NewLoader creates a Loader and performs the initial load.
func NewLoader(path string) (*Loader, error) {
	l := &Loader{path: path}
	cfg, err := l.load()
	if err != nil {
		return nil, err
	}
	l.current = cfg
	return l, nil
}

// Path returns the watched file.
func (l *Loader) Path() string { return l.path }

// Config returns the current (latest) command set.
func (l *Loader) Config() *CommandSet {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.current
}

// OnChange registers a callback invoked whenever the watcher reloads the file.
func (l *Loader) OnChange(fn func(*CommandSet)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onChange = append(l.onChange, fn)
}

// settleDelay groups the bursts of events one save produces into one reload.
const settleDelay = 50 * time.Millisecond

// Watch reloads the file whenever it changes on disk and hands every command
// set that parses to the OnChange callbacks. The parent directory is watched,
// so editors that save by renaming a temporary file over the original are
// seen too. Call stop to end watching.
func (l *Loader) Watch() (stop func(), err error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config watcher: %w", err)
	}
	dir := filepath.Dir(l.path)
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, fmt.Errorf("config watcher add %s: %w", dir, err)
	}
	l.watcher = w

	target := filepath.Clean(l.path)
	go func() {
		var settle *time.Timer
		defer func() {
			if settle != nil {
				settle.Stop()
			}
		}()
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if settle == nil {
					settle = time.AfterFunc(settleDelay, l.reloadAndNotify)
				} else {
					settle.Reset(settleDelay)
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				slog.Warn("command file watcher error", "path", l.path, "err", err)
			}
		}
	}()

	var once sync.Once
	return func() { once.Do(func() { w.Close() }) }, nil
}

// reloadAndNotify is the watcher's reaction to a settled change. A file that
// fails to parse keeps the previous command set.
func (l *Loader) reloadAndNotify() {
	cfg, err := l.Reload()
	if err != nil {
		slog.Warn("command file reload failed, keeping previous", "path", l.path, "err", err)
		return
	}
	l.notify(cfg)
}

// Reload forces an immediate re-read of the command file. It does not run the
// OnChange callbacks; those fire only for changes seen by Watch.
func (l *Loader) Reload() (*CommandSet, error) {
	cfg, err := l.load()
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	l.current = cfg
	l.mu.Unlock()
	return cfg, nil
}

func (l *Loader) notify(cfg *CommandSet) {
	l.mu.RLock()
	callbacks := make([]func(*CommandSet), len(l.onChange))
	copy(callbacks, l.onChange)
	l.mu.RUnlock()
	for _, fn := range callbacks {
		fn(cfg)
	}
}

func (l *Loader) load() (*CommandSet, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", l.path, err)
	}
	return Parse(l.path, data)
}

// Parse decodes a command file. Files ending in .hcl are HCL; everything else
// is YAML.
func Parse(filename string, data []byte) (*CommandSet, error) {
	var cfg CommandSet
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".hcl":
		if err := hclsimple.Decode(filename, data, nil, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", filename, err)
		}
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", filename, err)
		}
	}
	// Apply defaults.
	if cfg.Protocol == nil {
		cfg.Protocol = &ProtocolConf{}
	}
	if cfg.Protocol.PacketID == 0 {
		cfg.Protocol.PacketID = DefaultPacketID
	}
	if cfg.Protocol.CompressionThreshold == nil {
		t := DefaultCompressionThreshold
		cfg.Protocol.CompressionThreshold = &t
	}
	return &cfg, nil
}
