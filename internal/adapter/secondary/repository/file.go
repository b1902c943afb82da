package repository

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"loudstalker/internal/domain"
)

// ConfigRepository loads and saves the bridge configuration.
type ConfigRepository interface {
	Path() string
	Load() (domain.Config, error)
	Save(config domain.Config) error
}

// FileRepository implements ConfigRepository using a YAML file.
// This is a secondary adapter.
type FileRepository struct {
	path string
	mu   sync.Mutex
}

// NewFileRepository creates a new file-based config repository.
func NewFileRepository(path string) (*FileRepository, error) {
	if path == "" {
		return nil, errors.New("path is required")
	}
	return &FileRepository{path: path}, nil
}

// persistedData represents the YAML structure on disk.
type persistedData struct {
	Endpoint string          `yaml:"endpoint,omitempty"`
	Triggers persistedTrig   `yaml:"triggers"`
	HTTP     persistedHTTP   `yaml:"http"`
	Logging  persistedLog    `yaml:"logging"`
	Metrics  persistedMetric `yaml:"metrics"`
}

type persistedTrig struct {
	Mute      string `yaml:"mute"`
	Volchange string `yaml:"volchange"`
}

type persistedHTTP struct {
	Timeout time.Duration `yaml:"timeout"`
}

type persistedLog struct {
	Level string `yaml:"level"`
}

type persistedMetric struct {
	PushgatewayURL string        `yaml:"pushgateway_url,omitempty"`
	Job            string        `yaml:"job"`
	PushInterval   time.Duration `yaml:"push_interval"`
}

// Path returns the backing file path.
func (f *FileRepository) Path() string {
	return f.path
}

// Load reads the configuration from disk. A missing file yields defaults.
// Unknown keys are rejected so typos surface early.
func (f *FileRepository) Load() (domain.Config, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.DefaultConfig(), nil
		}
		return domain.Config{}, fmt.Errorf("read config: %w", err)
	}

	persisted := toPersisted(domain.DefaultConfig())
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&persisted); err != nil && !errors.Is(err, io.EOF) {
		return domain.Config{}, fmt.Errorf("decode config yaml: %w", err)
	}

	return fromPersisted(persisted), nil
}

// Save persists the configuration to disk.
func (f *FileRepository) Save(config domain.Config) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := Marshal(config)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	// Atomic write
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write tmp: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("rename tmp: %w", err)
	}

	return nil
}

// Marshal renders config in the on-disk YAML layout.
func Marshal(config domain.Config) ([]byte, error) {
	data, err := yaml.Marshal(toPersisted(config))
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

func toPersisted(c domain.Config) persistedData {
	return persistedData{
		Endpoint: c.Endpoint,
		Triggers: persistedTrig{Mute: c.MuteTrigger, Volchange: c.VolchangeTrigger},
		HTTP:     persistedHTTP{Timeout: c.Timeout},
		Logging:  persistedLog{Level: c.LogLevel},
		Metrics: persistedMetric{
			PushgatewayURL: c.Metrics.PushgatewayURL,
			Job:            c.Metrics.Job,
			PushInterval:   c.Metrics.PushInterval,
		},
	}
}

func fromPersisted(p persistedData) domain.Config {
	return domain.Config{
		Endpoint:         p.Endpoint,
		MuteTrigger:      p.Triggers.Mute,
		VolchangeTrigger: p.Triggers.Volchange,
		Timeout:          p.HTTP.Timeout,
		LogLevel:         p.Logging.Level,
		Metrics: domain.MetricsConfig{
			PushgatewayURL: p.Metrics.PushgatewayURL,
			Job:            p.Metrics.Job,
			PushInterval:   p.Metrics.PushInterval,
		},
	}
}

// DefaultPath returns the default configuration file path.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err == nil && home != "" {
		return filepath.Join(home, ".config", "loudstalker", "config.yaml")
	}
	cwd, _ := os.Getwd()
	return filepath.Join(cwd, "loudstalker.yaml")
}
