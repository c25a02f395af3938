// ABOUTME: Tests for version constants
// ABOUTME: Checks the product name and semver form published by the gateway
package version

import (
	"regexp"
	"testing"
)

var semver = regexp.MustCompile(`^\d+\.\d+\.\d+(-[0-9A-Za-z.-]+)?$`)

func TestProduct(t *testing.T) {
	if Product != "fifoplay" {
		t.Errorf("expected product fifoplay, got %q", Product)
	}
}

func TestVersionIsSemver(t *testing.T) {
	if !semver.MatchString(Version) {
		t.Errorf("version %q is not MAJOR.MINOR.PATCH", Version)
	}
}

func TestSemverPattern(t *testing.T) {
	tests := []struct {
		version string
		valid   bool
	}{
		{"0.3.0", true},
		{"1.10.2", true},
		{"1.0.0-rc.1", true},
		{"dev", false},
		{"v1.0.0", false},
		{"1.0", false},
		{"1.0.0 ", false},
	}

	for _, tt := range tests {
		if got := semver.MatchString(tt.version); got != tt.valid {
			t.Errorf("semver(%q) = %v, want %v", tt.version, got, tt.valid)
		}
	}
}

func TestManufacturer(t *testing.T) {
	if Manufacturer != "Resonate Protocol" {
		t.Errorf("expected manufacturer Resonate Protocol, got %q", Manufacturer)
	}
}
