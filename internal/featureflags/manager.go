// Package featureflags evaluates rollout flags per client.
package featureflags

import (
	"hash/fnv"
	"strconv"
	"strings"
)

// Known flags.
const (
	// Shorts exposes the shorts view. When off, /shorts resolves to not-found.
	Shorts = "shorts"
	// SimulatedLatency keeps the artificial backend delay. When off, catalog
	// and session calls resolve immediately.
	SimulatedLatency = "simulated_latency"
)

// defaults apply to known flags absent from the configuration.
var defaults = map[string]bool{
	Shorts:           true,
	SimulatedLatency: true,
}

// Manager evaluates feature flags defined in a simple key=value list.
// Example: "shorts=on,simulated_latency=25%"
type Manager struct {
	flags map[string]string
}

// NewManager creates a feature-flag manager from a comma-separated config string.
func NewManager(raw string) *Manager {
	out := make(map[string]string)

	for _, pair := range strings.Split(raw, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok {
			continue
		}
		key, value = normalize(key), normalize(value)
		if key == "" || value == "" {
			continue
		}
		out[key] = value
	}

	return &Manager{flags: out}
}

// Enabled returns whether a flag is enabled for a client.
// Supported values:
// - on/true/1
// - off/false/0
// - N% (deterministic rollout by client id, e.g. 25%)
//
// Unconfigured known flags take their default; unknown flags are off.
func (m *Manager) Enabled(name, clientID string) bool {
	name = normalize(name)
	if m == nil {
		return defaults[name]
	}

	value, ok := m.flags[name]
	if !ok {
		return defaults[name]
	}

	switch value {
	case "on", "true", "1":
		return true
	case "off", "false", "0":
		return false
	}

	pctRaw, ok := strings.CutSuffix(value, "%")
	if !ok {
		return false
	}
	pct, err := strconv.Atoi(pctRaw)
	if err != nil || pct <= 0 {
		return false
	}
	if pct >= 100 {
		return true
	}
	if clientID == "" {
		return false
	}
	return rolloutBucket(name, clientID) < pct
}

// Raw returns a copy of configured flags.
func (m *Manager) Raw() map[string]string {
	out := make(map[string]string, len(m.flags))
	for k, v := range m.flags {
		out[k] = v
	}
	return out
}

// Snapshot returns evaluated flag status for one client, known flags included.
func (m *Manager) Snapshot(clientID string) map[string]bool {
	out := make(map[string]bool, len(m.flags)+len(defaults))
	for name := range defaults {
		out[name] = m.Enabled(name, clientID)
	}
	for name := range m.flags {
		out[name] = m.Enabled(name, clientID)
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func rolloutBucket(name, clientID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(name + ":" + clientID))
	return int(h.Sum32() % 100)
}
