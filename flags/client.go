// Package flags provides the runtime on/off switch for the realtime bridge.
//
// The effective value is the AND of an environment-derived boolean and an
// optional on-disk flag file, so the file can further restrict but never
// override the environment kill-switch. The file is watched for changes and
// listeners are notified only on actual transitions.
package flags

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/artpar/socketgate/config"
)

// Listener is invoked with the new effective value on each transition.
type Listener func(enabled bool)

// Options configures a Client.
type Options struct {
	// EnvKey is the master-enable variable (default REALTIME_BRIDGE_ENABLED).
	EnvKey string
	// DisabledEnvKey is the kill-switch variable, ANDed against EnvKey
	// (default REALTIME_BRIDGE_DISABLED).
	DisabledEnvKey string
	// DefaultEnabled is the fallback when EnvKey is unset or unparseable.
	DefaultEnabled bool
	// FlagFile is an optional JSON file that can toggle the bridge at
	// runtime: a bare boolean, or an object with a "bridgeEnabled" or
	// "enabled" boolean.
	FlagFile string
	Logger   zerolog.Logger
	// OnRefresh observes every refresh attempt; err is non-nil when the file
	// signal could not be read and the previous value was kept.
	OnRefresh func(err error)
}

// Client resolves and caches the bridge's enabled state.
type Client struct {
	opts Options
	path string // absolute flag file path, "" when unconfigured

	mu            sync.Mutex
	enabled       bool
	fileValue     bool
	haveFileValue bool
	listeners     map[int]Listener
	nextListener  int

	watcher *fsnotify.Watcher
	stopCh  chan struct{}
}

// New creates a client and resolves the initial value from the environment
// and, when configured, the flag file. File problems never fail construction.
func New(opts Options) *Client {
	if opts.EnvKey == "" {
		opts.EnvKey = config.EnvBridgeEnabled
	}
	if opts.DisabledEnvKey == "" {
		opts.DisabledEnvKey = config.EnvBridgeDisabled
	}

	c := &Client{
		opts:      opts,
		listeners: make(map[int]Listener),
		stopCh:    make(chan struct{}),
	}
	if opts.FlagFile != "" {
		if abs, err := filepath.Abs(opts.FlagFile); err == nil {
			c.path = abs
		} else {
			opts.Logger.Warn().Err(err).Str("path", opts.FlagFile).
				Msg("cannot resolve flag file path, file signal disabled")
		}
	}

	c.enabled = c.loadEnv()
	if c.path != "" {
		if value, ok, err := c.readFile(); ok {
			c.fileValue = value
			c.haveFileValue = true
			c.enabled = c.enabled && value
		} else if err != nil {
			opts.Logger.Debug().Err(err).Str("path", c.path).
				Msg("initial bridge flag file read skipped")
		}
	}
	return c
}

// IsBridgeEnabled returns the current cached value.
func (c *Client) IsBridgeEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled
}

// SetBridgeEnabled overrides the effective value, notifying listeners if it
// actually changed.
func (c *Client) SetBridgeEnabled(enabled bool) {
	c.update(enabled)
}

// Refresh re-derives the value: the environment portion is always recomputed
// fresh, then ANDed with the flag-file signal. A missing or malformed file
// keeps the previously known file signal; the returned error reports that
// condition for observability and is never a hard failure.
func (c *Client) Refresh() error {
	env := c.loadEnv()

	var readErr error
	if c.path != "" {
		value, ok, err := c.readFile()
		if ok {
			c.mu.Lock()
			c.fileValue = value
			c.haveFileValue = true
			c.mu.Unlock()
		} else if err != nil {
			readErr = err
			c.opts.Logger.Warn().Err(err).Str("path", c.path).
				Msg("bridge flag file unreadable, keeping previous value")
		}
	}

	c.mu.Lock()
	next := env
	if c.haveFileValue {
		next = env && c.fileValue
	}
	c.mu.Unlock()

	c.update(next)
	if c.opts.OnRefresh != nil {
		c.opts.OnRefresh(readErr)
	}
	return readErr
}

// OnChange registers a listener invoked exactly when the effective value
// transitions. The returned function removes the listener.
func (c *Client) OnChange(fn Listener) func() {
	c.mu.Lock()
	id := c.nextListener
	c.nextListener++
	c.listeners[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

// Watch starts watching the flag file for changes. Watching the directory is
// more reliable for editors and tools that do atomic saves.
func (c *Client) Watch() error {
	if c.path == "" {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(c.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch directory: %w", err)
	}
	c.watcher = watcher

	go c.watchLoop()

	c.opts.Logger.Info().Str("path", c.path).Msg("watching bridge flag file for changes")
	return nil
}

// Close stops the file watcher.
func (c *Client) Close() {
	close(c.stopCh)
	if c.watcher != nil {
		c.watcher.Close()
	}
}

func (c *Client) watchLoop() {
	filename := filepath.Base(c.path)

	for {
		select {
		case event, ok := <-c.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filename {
				continue
			}
			// Write or create (atomic save = create).
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				c.opts.Logger.Debug().
					Str("event", event.Op.String()).
					Str("file", event.Name).
					Msg("bridge flag file changed")
				_ = c.Refresh()
			}

		case err, ok := <-c.watcher.Errors:
			if !ok {
				return
			}
			c.opts.Logger.Error().Err(err).Msg("flag file watcher error")

		case <-c.stopCh:
			return
		}
	}
}

// update stores next and notifies listeners when the value transitioned.
func (c *Client) update(next bool) {
	c.mu.Lock()
	if c.enabled == next {
		c.mu.Unlock()
		return
	}
	c.enabled = next
	listeners := make([]Listener, 0, len(c.listeners))
	for _, fn := range c.listeners {
		listeners = append(listeners, fn)
	}
	c.mu.Unlock()

	c.opts.Logger.Info().Bool("enabled", next).Msg("bridge flag toggled")
	for _, fn := range listeners {
		fn(next)
	}
}

func (c *Client) loadEnv() bool {
	enabled := config.ParseBool(os.Getenv(c.opts.EnvKey), c.opts.DefaultEnabled)
	disabled := config.ParseBool(os.Getenv(c.opts.DisabledEnvKey), false)
	return enabled && !disabled
}

// readFile reads and parses the flag file. ok is true only when the file was
// present and contained a boolean signal; err describes why it did not.
func (c *Client) readFile() (value bool, ok bool, err error) {
	raw, err := os.ReadFile(c.path)
	if err != nil {
		return false, false, fmt.Errorf("read flag file: %w", err)
	}
	if len(raw) == 0 {
		return false, false, fmt.Errorf("flag file %s is empty", c.path)
	}

	var parsed any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return false, false, fmt.Errorf("parse flag file: %w", err)
	}

	switch v := parsed.(type) {
	case bool:
		return v, true, nil
	case map[string]any:
		if b, isBool := v["bridgeEnabled"].(bool); isBool {
			return b, true, nil
		}
		if b, isBool := v["enabled"].(bool); isBool {
			return b, true, nil
		}
	}
	return false, false, fmt.Errorf("flag file %s did not contain a boolean", c.path)
}
