// Package roster maps raw agent names to canonical agent ids and holds the
// per-agent timeout and delivery tables.
package roster

import (
	"maps"
	"sort"
	"strings"
	"time"

	"github.com/msageha/taskcoord/internal/model"
)

// DefaultTimeout applies when neither the agent nor the stage has a threshold.
const DefaultTimeout = 10 * time.Minute

// Roster is immutable after New; it is safe to share between goroutines.
type Roster struct {
	defaultTimeout time.Duration
	aliases        map[string]string
	timeouts       map[string]time.Duration
	routes         map[string]string
}

func New(cfg model.AgentsConfig) *Roster {
	r := &Roster{
		defaultTimeout: cfg.DefaultTimeout,
		aliases:        make(map[string]string, len(cfg.Aliases)),
		timeouts:       make(map[string]time.Duration, len(cfg.Timeouts)),
		routes:         make(map[string]string, len(cfg.Routes)),
	}
	if r.defaultTimeout <= 0 {
		r.defaultTimeout = DefaultTimeout
	}
	for k, v := range cfg.Aliases {
		r.aliases[key(k)] = key(v)
	}
	for k, v := range cfg.Timeouts {
		r.timeouts[key(k)] = v
	}
	for k, v := range cfg.Routes {
		r.routes[key(k)] = v
	}
	return r
}

func key(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Normalize trims and lowercases agent, then applies the alias table.
// Names without an alias pass through. Empty input stays empty.
func (r *Roster) Normalize(agent string) string {
	name := key(agent)
	if name == "" {
		return ""
	}
	if canonical, ok := r.aliases[name]; ok {
		return canonical
	}
	return name
}

// Resolve returns the canonical agent for a stage: the explicit agent field when
// set, else the stage name.
func (r *Roster) Resolve(stageName, agent string) string {
	if strings.TrimSpace(agent) != "" {
		return r.Normalize(agent)
	}
	return r.Normalize(stageName)
}

// Timeout looks up the agent id, then the stage name, then the default.
func (r *Roster) Timeout(agentID, stageName string) time.Duration {
	if d, ok := r.timeouts[key(agentID)]; ok {
		return d
	}
	if d, ok := r.timeouts[key(stageName)]; ok {
		return d
	}
	return r.defaultTimeout
}

// Route returns the delivery target for the agent id, falling back to the stage name.
func (r *Roster) Route(agentID, stageName string) (string, bool) {
	if target, ok := r.routes[key(agentID)]; ok && target != "" {
		return target, true
	}
	if target, ok := r.routes[key(stageName)]; ok && target != "" {
		return target, true
	}
	return "", false
}

// Agents lists every agent id with a route, sorted.
func (r *Roster) Agents() []string {
	ids := make([]string, 0, len(r.routes))
	for id := range maps.Keys(r.routes) {
		if r.routes[id] != "" {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}
