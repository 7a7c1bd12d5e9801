package stages

import (
	"cmp"
	"slices"
	"sort"

	"github.com/BaSui01/anythingworld/types"
)

// Stage names emitted by the processing pipeline.
const (
	ThumbnailsGenerationFinished = "thumbnails_generation_finished"
	FormatsConversionFinished    = "formats_conversion_finished"
	MigrateAnimationFinished     = "migrate_animation_finished"
)

// StageSet is an immutable set of stage names. The zero value is empty.
type StageSet struct {
	names map[string]struct{}
}

// NewStageSet builds a set from names. Duplicates collapse.
func NewStageSet(names ...string) StageSet {
	m := make(map[string]struct{}, len(names))
	for _, n := range names {
		m[n] = struct{}{}
	}
	return StageSet{names: m}
}

// Contains reports set membership.
func (s StageSet) Contains(stage string) bool {
	_, ok := s.names[stage]
	return ok
}

// Len returns the number of stages in the set.
func (s StageSet) Len() int { return len(s.names) }

// Names returns the stage names sorted, for display and logging.
func (s StageSet) Names() []string {
	out := make([]string, 0, len(s.names))
	for n := range s.names {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Entry is one (kind, detail) row of the catalog.
type Entry struct {
	Kind   types.JobKind
	Detail types.DetailLevel
	Stages StageSet
}

// catalog is built once at init and never written afterwards.
var catalog = map[types.JobKind]map[types.DetailLevel]StageSet{
	types.JobKindAnimate: {
		// basic formats (glb, fbx) are already generated
		types.DetailDefault: NewStageSet(
			ThumbnailsGenerationFinished,
			FormatsConversionFinished,
			MigrateAnimationFinished,
		),
		// extra formats (gltf, dae) are generated too
		types.DetailExtraFormats: NewStageSet(
			FormatsConversionFinished,
		),
	},
	types.JobKindGenerate: {
		types.DetailDefault: NewStageSet(
			ThumbnailsGenerationFinished,
			FormatsConversionFinished,
		),
	},
}

// TerminalStages resolves the stages that mark a job of the given kind as done
// at the given detail level. An unknown kind, or a detail level not defined for
// that kind, is a configuration error; there is no fallback to the default level.
func TerminalStages(kind types.JobKind, detail types.DetailLevel) (StageSet, error) {
	byDetail, ok := catalog[kind]
	if !ok {
		return StageSet{}, types.Errorf(types.ErrConfiguration, "no stage catalog entry for job kind %q", kind)
	}
	set, ok := byDetail[detail]
	if !ok {
		return StageSet{}, types.Errorf(types.ErrConfiguration,
			"detail level %q is not defined for job kind %q", detail, kind)
	}
	return set, nil
}

// IsTerminal reports whether stage is terminal for (kind, detail).
func IsTerminal(kind types.JobKind, detail types.DetailLevel, stage string) (bool, error) {
	set, err := TerminalStages(kind, detail)
	if err != nil {
		return false, err
	}
	return set.Contains(stage), nil
}

// Entries lists every defined (kind, detail) pair in a stable order.
func Entries() []Entry {
	var out []Entry
	for kind, byDetail := range catalog {
		for detail, set := range byDetail {
			out = append(out, Entry{Kind: kind, Detail: detail, Stages: set})
		}
	}
	slices.SortFunc(out, func(a, b Entry) int {
		if c := cmp.Compare(a.Kind, b.Kind); c != 0 {
			return c
		}
		return cmp.Compare(a.Detail, b.Detail)
	})
	return out
}
