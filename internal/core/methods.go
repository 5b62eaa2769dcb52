/******************************************************************************
*
*  Copyright 2019 SAP SE
*
*  Licensed under the Apache License, Version 2.0 (the "License");
*  you may not use this file except in compliance with the License.
*  You may obtain a copy of the License at
*
*      http://www.apache.org/licenses/LICENSE-2.0
*
*  Unless required by applicable law or agreed to in writing, software
*  distributed under the License is distributed on an "AS IS" BASIS,
*  WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
*  See the License for the specific language governing permissions and
*  limitations under the License.
*
******************************************************************************/

package core

import (
	"strings"

	"github.com/sapcc/go-bits/logg"
	"github.com/sapcc/go-bits/regexpext"
)

// DefaultMethodName is the sizing strategy that the registry falls back to
// when a snapshot names an unknown scaling method (§4.A).
const DefaultMethodName = "stepwise"

// SizingStrategy maps an observed metric snapshot to a suggested capacity
// (component B). Suggest must be a pure, total function of the snapshot and
// must clamp its result to [snapshot.MinSize, snapshot.MaxSize].
type SizingStrategy interface {
	Suggest(snapshot InstanceSnapshot) uint64
}

// LegacySizingStrategy is implemented by strategies that only expose the
// deprecated sizing operation (§4.B, §9). The registry calls SuggestLegacy
// and logs a deprecation warning when a strategy implements only this
// interface and not SizingStrategy.
type LegacySizingStrategy interface {
	SuggestLegacy(snapshot InstanceSnapshot) uint64
}

// methodNameRx is the allowlist that a normalized method name must match in
// full, the same way MaxAssetSizeRule.AssetTypeRx bounds an asset type
// pattern: a regexpext.BoundedRegexp rather than a plain *regexp.Regexp.
var methodNameRx = regexpext.BoundedRegexp(`^[a-z0-9_-]+$`)

// normalizeMethodName lowercases the name, strips everything that is not in
// the safe identifier alphabet (path separators, traversal sequences,
// whitespace, punctuation), and then checks the result against methodNameRx.
// A name that normalizes to the empty string fails that check and is treated
// as unknown (§4.A).
func normalizeMethodName(name string) string {
	lower := strings.ToLower(name)
	var b strings.Builder
	for _, r := range lower {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		}
	}
	candidate := b.String()
	if !methodNameRx.MatchString(candidate) {
		return ""
	}
	return candidate
}

// Registry holds named sizing strategies and resolves a name to a strategy,
// falling back to the default strategy on a miss (component A). Strategies
// are stored as `any` rather than as SizingStrategy, because a strategy that
// implements only the deprecated LegacySizingStrategy must still be
// registerable (§4.B, §9); Register enforces at registration time that every
// stored value implements at least one of the two interfaces.
type Registry struct {
	strategies map[string]any
}

// NewRegistry creates an empty Registry. Call Register to populate it; a
// strategy named DefaultMethodName should always be registered since it is
// the fallback target.
func NewRegistry() *Registry {
	return &Registry{strategies: make(map[string]any)}
}

// Register adds a named strategy to the registry. Panics on a duplicate
// name, mirroring the teacher's RegisterAssetManagerFactory, and on a
// strategy that implements neither SizingStrategy nor LegacySizingStrategy.
func (r *Registry) Register(name string, strategy any) {
	if name == "" {
		panic("core.Registry.Register called with empty name!")
	}
	_, isCurrent := strategy.(SizingStrategy)
	_, isLegacy := strategy.(LegacySizingStrategy)
	if !isCurrent && !isLegacy {
		panic("core.Registry.Register called with a strategy implementing neither SizingStrategy nor LegacySizingStrategy")
	}
	normalized := normalizeMethodName(name)
	if _, exists := r.strategies[normalized]; exists {
		panic("core.Registry.Register called multiple times for name = " + normalized)
	}
	r.strategies[normalized] = strategy
}

// Resolve looks up the strategy named by snapshot.ScalingMethod. On a miss,
// it logs a warning, substitutes the default strategy, and returns the
// normalized default name so that the caller can rewrite the snapshot's
// ScalingMethod field to keep downstream logging and state truthful (§4.A).
func (r *Registry) Resolve(snapshot InstanceSnapshot) (strategy any, resolvedName string) {
	normalized := normalizeMethodName(snapshot.ScalingMethod)
	if normalized != "" {
		if strategy, exists := r.strategies[normalized]; exists {
			return strategy, normalized
		}
	}

	logg.Info("unknown scaling method %q for instance %s in project %s, falling back to %q",
		snapshot.ScalingMethod, snapshot.InstanceID, snapshot.ProjectID, DefaultMethodName)
	return r.strategies[DefaultMethodName], DefaultMethodName
}

// Suggest resolves the strategy for this snapshot and invokes it, preferring
// Suggest over the deprecated SuggestLegacy (§4.B, §9). It returns the
// suggested size together with the (possibly rewritten) method name that was
// actually used. An UnknownSizingOperationError is returned, never panicked,
// when the resolved strategy implements neither interface (§7 item 2).
func (r *Registry) Suggest(snapshot InstanceSnapshot) (suggestedSize uint64, resolvedMethod string, err error) {
	strategy, resolvedMethod := r.Resolve(snapshot)

	if s, ok := strategy.(SizingStrategy); ok {
		return s.Suggest(snapshot), resolvedMethod, nil
	}
	if legacy, ok := strategy.(LegacySizingStrategy); ok {
		logg.Info("scaling method %q only implements the deprecated legacy sizing operation", resolvedMethod)
		return legacy.SuggestLegacy(snapshot), resolvedMethod, nil
	}

	return 0, resolvedMethod, UnknownSizingOperationError{Method: resolvedMethod}
}
