// Package config loads operator overrides for the metrics schemas from
// a YAML file. A missing file means "all defaults"; a present list
// replaces the corresponding built-in wholesale.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/edgevane/httpmetrics/pkg/collector"
)

var (
	ErrFileNotFound = errors.New("configuration file not found")
	ErrInvalidYAML  = errors.New("invalid YAML syntax")
	ErrEmptyFile    = errors.New("configuration file is empty")
)

// File mirrors the on-disk override document. Nil slices mean "keep
// the default"; empty non-nil slices are a deliberate override to an
// empty schema.
type File struct {
	EarlyErrorLabels []string  `yaml:"early_error_labels"`
	RequestLabels    []string  `yaml:"request_labels"`
	ErrorLabels      []string  `yaml:"error_labels"`
	DurationBuckets  []float64 `yaml:"duration_buckets"`
}

// Load reads and parses the override file at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyFile, path)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}
	return &f, nil
}

// Options translates the overrides into collector options.
func (f *File) Options() []collector.Option {
	var opts []collector.Option
	if f.EarlyErrorLabels != nil {
		opts = append(opts, collector.WithEarlyErrorLabels(f.EarlyErrorLabels...))
	}
	if f.RequestLabels != nil {
		opts = append(opts, collector.WithRequestLabels(f.RequestLabels...))
	}
	if f.ErrorLabels != nil {
		opts = append(opts, collector.WithErrorLabels(f.ErrorLabels...))
	}
	if f.DurationBuckets != nil {
		opts = append(opts, collector.WithBuckets(f.DurationBuckets...))
	}
	return opts
}
