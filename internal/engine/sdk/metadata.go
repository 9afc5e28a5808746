package sdk

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

// EngineMetadata identifies an engine and what it can do.
type EngineMetadata struct {
	// ID is a reverse-domain identifier, e.g. "escrowly.priority.escrow".
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Author      string   `json:"author"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`

	// MinAPIVersion is the oldest SDK version the engine works with.
	MinAPIVersion string `json:"min_api_version"`

	// Capabilities lists the operations the engine supports.
	Capabilities []string `json:"capabilities"`
}

// Validate checks if the metadata is valid.
func (m EngineMetadata) Validate() error {
	switch {
	case m.ID == "":
		return errors.New("engine ID is required")
	case m.Name == "":
		return errors.New("engine name is required")
	case m.Version == "":
		return errors.New("engine version is required")
	case m.MinAPIVersion == "":
		return errors.New("minimum API version is required")
	}
	minVersion, err := ParseVersion(m.MinAPIVersion)
	if err != nil {
		return err
	}
	if !SDKVersion.Compatible(minVersion) {
		return fmt.Errorf("engine requires SDK %s, have %s", minVersion, SDKVersion)
	}
	return nil
}

// HasCapability checks if the engine has a specific capability.
func (m EngineMetadata) HasCapability(capability string) bool {
	return slices.Contains(m.Capabilities, capability)
}

// HealthStatus represents the current health of an engine.
type HealthStatus struct {
	Healthy   bool           `json:"healthy"`
	Message   string         `json:"message,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	CheckedAt time.Time      `json:"checked_at"`
}

// NewHealthStatus creates a status with the given message.
func NewHealthStatus(healthy bool, message string) HealthStatus {
	return HealthStatus{
		Healthy:   healthy,
		Message:   message,
		CheckedAt: time.Now(),
	}
}

// Version represents a semantic version.
type Version struct {
	Major int
	Minor int
	Patch int
}

// SDKVersion is the current SDK version.
var SDKVersion = Version{Major: 1, Minor: 0, Patch: 0}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Compatible reports whether v can host an engine that needs other.
// Major versions must match and v must not be older.
func (v Version) Compatible(other Version) bool {
	if v.Major != other.Major {
		return false
	}
	if v.Minor != other.Minor {
		return v.Minor > other.Minor
	}
	return v.Patch >= other.Patch
}

// ParseVersion parses a version string in "major.minor.patch" format.
func ParseVersion(s string) (Version, error) {
	var v Version
	if _, err := fmt.Sscanf(s, "%d.%d.%d", &v.Major, &v.Minor, &v.Patch); err != nil {
		return v, fmt.Errorf("invalid version format %q: %w", s, err)
	}
	return v, nil
}
