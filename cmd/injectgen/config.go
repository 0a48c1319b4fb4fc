package main

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/sghaida/scenedi/internal/codegen"
	"gopkg.in/yaml.v3"
)

// defaultConfigFile is read from the working directory when --config is not given.
const defaultConfigFile = "injectgen.yaml"

// fileConfig mirrors injectgen.yaml.
type fileConfig struct {
	Patterns        []string                 `yaml:"patterns"`
	Marker          string                   `yaml:"marker"`
	Tags            []string                 `yaml:"tags"`
	BinderFile      string                   `yaml:"binderFile"`
	BinderRegistrar string                   `yaml:"binderRegistrar"`
	Registrar       codegen.RegistrarOptions `yaml:"registrar"`
	Runtime         codegen.Runtime          `yaml:"runtime"`
}

type configError struct {
	path string
	err  error
}

func (e *configError) Error() string {
	return "config " + strconv.Quote(e.path) + ": " + e.err.Error()
}

func (e *configError) Unwrap() error { return e.err }

// loadConfig reads path relative to dir. A missing file is an error only when the
// user named it explicitly.
func loadConfig(dir, path string, explicit bool) (fileConfig, error) {
	var cfg fileConfig
	if path == "" {
		return cfg, nil
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, path)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !explicit {
			return cfg, nil
		}
		return cfg, &configError{path: path, err: err}
	}

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	// An empty file decodes to io.EOF and means defaults.
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, &configError{path: path, err: err}
	}
	return cfg, nil
}

// options turns the file settings into generator options rooted at dir.
func (c fileConfig) options(dir string) codegen.Options {
	return codegen.Options{
		Dir:             dir,
		Patterns:        c.Patterns,
		Marker:          c.Marker,
		Tags:            c.Tags,
		BinderFile:      c.BinderFile,
		BinderRegistrar: c.BinderRegistrar,
		Registrar:       c.Registrar,
		Runtime:         c.Runtime,
	}
}
