package attribute

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"time"

	"github.com/sapl-run/sapl-core/value"
)

// Invocation is the cache key for the broker's shared-stream cache: two
// Invocations that are structurally equal in every field resolve to the
// same AttributeStream.
type Invocation struct {
	ConfigID           string
	FullyQualifiedName string
	Entity             *value.Value
	Arguments          []value.Value
	Variables          map[string]value.Value
	InitialTimeout     time.Duration
	FreshnessTTL       time.Duration
	PollInterval       time.Duration
	BackoffBudget      int
	RequestInitialOnly bool
}

// Fingerprint returns a stable string identity for the Invocation, used as
// the broker's cache key. Two structurally-equal Invocations always produce
// the same fingerprint regardless of map iteration order.
func (i Invocation) Fingerprint() string {
	type wire struct {
		ConfigID      string   `json:"config"`
		Name          string   `json:"name"`
		Entity        any      `json:"entity,omitempty"`
		Arguments     []any    `json:"args,omitempty"`
		VariableKeys  []string `json:"varKeys,omitempty"`
		VariableVals  []any    `json:"varVals,omitempty"`
		InitialMS     int64    `json:"initMS"`
		FreshnessMS   int64    `json:"freshMS"`
		PollMS        int64    `json:"pollMS"`
		Backoff       int      `json:"backoff"`
		InitialOnly   bool     `json:"initOnly"`
	}
	w := wire{
		ConfigID:    i.ConfigID,
		Name:        i.FullyQualifiedName,
		InitialMS:   i.InitialTimeout.Milliseconds(),
		FreshnessMS: i.FreshnessTTL.Milliseconds(),
		PollMS:      i.PollInterval.Milliseconds(),
		Backoff:     i.BackoffBudget,
		InitialOnly: i.RequestInitialOnly,
	}
	if i.Entity != nil {
		w.Entity = i.Entity.ToJsonForValidation()
	}
	for _, a := range i.Arguments {
		w.Arguments = append(w.Arguments, a.ToJsonForValidation())
	}
	keys := make([]string, 0, len(i.Variables))
	for k := range i.Variables {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		w.VariableKeys = append(w.VariableKeys, k)
		w.VariableVals = append(w.VariableVals, i.Variables[k].ToJsonForValidation())
	}
	b, err := json.Marshal(w)
	if err != nil {
		// Marshaling our own wire struct should never fail; fall back to a
		// name-only fingerprint rather than panicking mid-evaluation.
		return i.FullyQualifiedName
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// BuildArguments assembles the argument vector passed to a Finder: the
// entity is prepended unless the attribute is an environment attribute, and
// the variables map is appended when the specification declares
// TakesVariables.
func BuildArguments(spec FinderSpecification, inv Invocation) []value.Value {
	var out []value.Value
	if !spec.IsEnvironmentAttribute && inv.Entity != nil {
		out = append(out, *inv.Entity)
	}
	out = append(out, inv.Arguments...)
	if spec.TakesVariables {
		o := value.Object{}
		for k, v := range inv.Variables {
			o = o.With(k, v)
		}
		out = append(out, value.FromObject(o))
	}
	return out
}
