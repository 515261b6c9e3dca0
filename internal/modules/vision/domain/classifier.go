package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

type Capability string

const (
	CapabilityClassify Capability = "classify"
	// CapabilityLabels marks plugins that advertise their label set in metadata.
	CapabilityLabels Capability = "labels"
)

var (
	ErrPluginNotFound    = errors.New("classifier plugin not found")
	ErrPluginDisabled    = errors.New("classifier plugin is disabled")
	ErrChecksumMismatch  = errors.New("classifier plugin checksum mismatch")
	ErrCapabilityMissing = errors.New("classifier plugin capability missing")
	ErrPluginTimeout     = errors.New("classifier plugin timeout")
)

var sha256Pattern = regexp.MustCompile(`^[a-f0-9]{64}$`)

// Manifest registers one classifier binary in <data>/plugins/classifiers.yaml.
type Manifest struct {
	Name         string       `yaml:"name"`
	Version      string       `yaml:"version"`
	Binary       string       `yaml:"binary"`
	SHA256       string       `yaml:"sha256"`
	Enabled      bool         `yaml:"enabled"`
	Capabilities []Capability `yaml:"capabilities"`
}

func (m Manifest) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("classifier name is required")
	}
	if m.Version == "" {
		return fmt.Errorf("classifier version is required")
	}
	if m.Binary == "" {
		return fmt.Errorf("classifier binary path is required")
	}
	if !sha256Pattern.MatchString(m.SHA256) {
		return fmt.Errorf("classifier sha256 must be lowercase 64-char hex")
	}
	if len(m.Capabilities) == 0 {
		return fmt.Errorf("classifier capabilities are required")
	}
	seen := map[Capability]struct{}{}
	for _, capability := range m.Capabilities {
		if err := capability.Validate(); err != nil {
			return err
		}
		if _, ok := seen[capability]; ok {
			return fmt.Errorf("duplicate capability: %s", capability)
		}
		seen[capability] = struct{}{}
	}
	return nil
}

func (c Capability) Validate() error {
	switch c {
	case CapabilityClassify, CapabilityLabels:
		return nil
	default:
		return fmt.Errorf("unknown capability: %s", c)
	}
}

func (m Manifest) HasCapability(capability Capability) bool {
	for _, c := range m.Capabilities {
		if c == capability {
			return true
		}
	}
	return false
}

type Metadata struct {
	Name         string
	Version      string
	Capabilities []Capability
	Labels       []string
}

// Request carries one screenshot encoded as a data URI.
type Request struct {
	ImageDataURI string
}

func (r Request) Validate() error {
	if !strings.HasPrefix(r.ImageDataURI, "data:") || !strings.Contains(r.ImageDataURI, ";base64,") {
		return fmt.Errorf("image must be a base64 data uri")
	}
	return nil
}

type Result struct {
	Label      string
	Confidence float64
}
