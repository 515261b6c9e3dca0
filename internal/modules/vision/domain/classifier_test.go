package domain_test

import (
	"strings"
	"testing"

	"nightwatch/internal/modules/vision/domain"
)

func TestManifestValidate(t *testing.T) {
	t.Parallel()
	sha := strings.Repeat("a", 64)
	caps := []domain.Capability{domain.CapabilityClassify}
	cases := []struct {
		name      string
		manifest  domain.Manifest
		shouldErr bool
	}{
		{name: "valid", manifest: domain.Manifest{Name: "replay", Version: "1", Binary: "/tmp/p", SHA256: sha, Enabled: true, Capabilities: caps}},
		{name: "missing name", manifest: domain.Manifest{Version: "1", Binary: "/tmp/p", SHA256: sha, Capabilities: caps}, shouldErr: true},
		{name: "missing version", manifest: domain.Manifest{Name: "p", Binary: "/tmp/p", SHA256: sha, Capabilities: caps}, shouldErr: true},
		{name: "missing binary", manifest: domain.Manifest{Name: "p", Version: "1", SHA256: sha, Capabilities: caps}, shouldErr: true},
		{name: "uppercase sha", manifest: domain.Manifest{Name: "p", Version: "1", Binary: "/tmp/p", SHA256: strings.Repeat("A", 64), Capabilities: caps}, shouldErr: true},
		{name: "no capabilities", manifest: domain.Manifest{Name: "p", Version: "1", Binary: "/tmp/p", SHA256: sha}, shouldErr: true},
		{name: "unknown capability", manifest: domain.Manifest{Name: "p", Version: "1", Binary: "/tmp/p", SHA256: sha, Capabilities: []domain.Capability{"command"}}, shouldErr: true},
		{name: "duplicate capability", manifest: domain.Manifest{Name: "p", Version: "1", Binary: "/tmp/p", SHA256: sha, Capabilities: []domain.Capability{"classify", "classify"}}, shouldErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.manifest.Validate()
			if tc.shouldErr && err == nil {
				t.Fatalf("expected error")
			}
			if !tc.shouldErr && err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
		})
	}
}

func TestRequestRequiresDataURI(t *testing.T) {
	t.Parallel()
	if err := (domain.Request{ImageDataURI: "data:image/png;base64,AAAA"}).Validate(); err != nil {
		t.Fatalf("valid data uri rejected: %v", err)
	}
	for _, bad := range []string{"", "https://example.com/x.png", "data:image/png,raw"} {
		if err := (domain.Request{ImageDataURI: bad}).Validate(); err == nil {
			t.Fatalf("expected %q to be rejected", bad)
		}
	}
}
