package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"nightwatch/internal/modules/vision/domain"
	"nightwatch/internal/modules/vision/dto"
	visionout "nightwatch/internal/modules/vision/port/out"
)

type VisionService struct {
	store visionout.ManifestStore
	host  visionout.Host

	mu       sync.Mutex
	verified map[string]string
}

func NewVisionService(store visionout.ManifestStore, host visionout.Host) *VisionService {
	return &VisionService{store: store, host: host, verified: map[string]string{}}
}

func (s *VisionService) List(ctx context.Context) ([]dto.PluginInfo, error) {
	manifests, err := s.loadValidated(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.PluginInfo, 0, len(manifests))
	for _, m := range manifests {
		caps := make([]string, 0, len(m.Capabilities))
		for _, c := range m.Capabilities {
			caps = append(caps, string(c))
		}
		out = append(out, dto.PluginInfo{Name: m.Name, Version: m.Version, Enabled: m.Enabled, Binary: m.Binary, Capabilities: caps})
	}
	return out, nil
}

func (s *VisionService) Doctor(ctx context.Context) ([]dto.DoctorResult, error) {
	manifests, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	results := make([]dto.DoctorResult, 0, len(manifests))
	for _, m := range manifests {
		result := dto.DoctorResult{Name: m.Name}
		if err := m.Validate(); err != nil {
			result.Error = err.Error()
			results = append(results, result)
			continue
		}
		result.BinaryReachable = fileExists(m.Binary)
		if result.BinaryReachable {
			result.ChecksumValid = checksumMatches(m.Binary, m.SHA256) == nil
		}
		switch {
		case !result.BinaryReachable:
			result.Error = fmt.Sprintf("binary does not exist: %s", m.Binary)
		case !result.ChecksumValid:
			result.Error = "checksum mismatch"
		case m.Enabled && s.host != nil:
			meta, err := s.host.GetMetadata(ctx, m)
			if err != nil {
				result.Error = err.Error()
				break
			}
			result.LifecycleOK = true
			result.Labels = meta.Labels
		}
		results = append(results, result)
	}
	return results, nil
}

// Classify sends one screenshot to the named plugin. The binary checksum is
// verified once per manifest hash rather than on every poll.
func (s *VisionService) Classify(ctx context.Context, input dto.ClassifyInput) (dto.ClassifyOutput, error) {
	req := domain.Request{ImageDataURI: input.ImageDataURI}
	if err := req.Validate(); err != nil {
		return dto.ClassifyOutput{}, err
	}
	manifest, err := s.getRunnableManifest(ctx, input.PluginName, domain.CapabilityClassify)
	if err != nil {
		return dto.ClassifyOutput{}, err
	}
	if s.host == nil {
		return dto.ClassifyOutput{}, fmt.Errorf("classifier host is not configured")
	}
	result, err := s.host.Classify(ctx, manifest, req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return dto.ClassifyOutput{}, fmt.Errorf("%w: %s", domain.ErrPluginTimeout, manifest.Name)
		}
		return dto.ClassifyOutput{}, err
	}
	return dto.ClassifyOutput{PluginName: manifest.Name, Label: result.Label, Confidence: result.Confidence}, nil
}

func (s *VisionService) loadValidated(ctx context.Context) ([]domain.Manifest, error) {
	manifests, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	seenNames := map[string]struct{}{}
	for _, manifest := range manifests {
		if err := manifest.Validate(); err != nil {
			return nil, err
		}
		if _, ok := seenNames[manifest.Name]; ok {
			return nil, fmt.Errorf("duplicate classifier name: %s", manifest.Name)
		}
		seenNames[manifest.Name] = struct{}{}
	}
	return manifests, nil
}

func (s *VisionService) getRunnableManifest(ctx context.Context, name string, requiredCapability domain.Capability) (domain.Manifest, error) {
	manifests, err := s.loadValidated(ctx)
	if err != nil {
		return domain.Manifest{}, err
	}
	var manifest domain.Manifest
	found := false
	for _, item := range manifests {
		if item.Name == name {
			manifest = item
			found = true
			break
		}
	}
	if !found {
		return domain.Manifest{}, fmt.Errorf("%w: %q", domain.ErrPluginNotFound, name)
	}
	if !manifest.Enabled {
		return domain.Manifest{}, fmt.Errorf("%w: %s", domain.ErrPluginDisabled, name)
	}
	if !manifest.HasCapability(requiredCapability) {
		return domain.Manifest{}, fmt.Errorf("%w: %s", domain.ErrCapabilityMissing, requiredCapability)
	}
	if err := s.verify(manifest); err != nil {
		return domain.Manifest{}, err
	}
	return manifest, nil
}

func (s *VisionService) verify(manifest domain.Manifest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.verified[manifest.Binary] == manifest.SHA256 {
		return nil
	}
	if err := checksumMatches(manifest.Binary, manifest.SHA256); err != nil {
		return err
	}
	s.verified[manifest.Binary] = manifest.SHA256
	return nil
}

func checksumMatches(path string, expected string) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read classifier binary: %w", err)
	}
	hash := sha256.Sum256(payload)
	if hex.EncodeToString(hash[:]) != expected {
		return fmt.Errorf("%w: %s", domain.ErrChecksumMismatch, filepath.Base(path))
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
