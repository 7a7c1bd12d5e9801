package types

import (
	"fmt"
	"maps"
)

// JobKind selects which stage catalog entry applies to a job.
type JobKind string

const (
	JobKindAnimate  JobKind = "animate"
	JobKindGenerate JobKind = "generate"
)

// ParseJobKind validates a job kind string.
func ParseJobKind(s string) (JobKind, error) {
	switch JobKind(s) {
	case JobKindAnimate, JobKindGenerate:
		return JobKind(s), nil
	default:
		return "", Errorf(ErrConfiguration, "unknown job kind %q", s)
	}
}

// DetailLevel selects the subset of terminal stages to wait for.
type DetailLevel string

const (
	// DetailDefault accepts stages where the basic formats (glb, fbx) exist.
	DetailDefault DetailLevel = "default"
	// DetailExtraFormats waits for the additional conversions (gltf, dae).
	DetailExtraFormats DetailLevel = "extra_formats"
)

// ParseDetailLevel validates a detail level string. An empty string is the
// default level.
func ParseDetailLevel(s string) (DetailLevel, error) {
	switch DetailLevel(s) {
	case "":
		return DetailDefault, nil
	case DetailDefault, DetailExtraFormats:
		return DetailLevel(s), nil
	default:
		return "", Errorf(ErrConfiguration, "unknown detail level %q", s)
	}
}

// DetailFor maps the extra-formats flag used by the service's own clients.
func DetailFor(extraFormats bool) DetailLevel {
	if extraFormats {
		return DetailExtraFormats
	}
	return DetailDefault
}

// JobID identifies one server-side job. It is issued by a submission call.
type JobID string

func (id JobID) String() string { return string(id) }

// StatusDocument is the decoded status of a job as returned by the polling
// endpoints. Besides "stage" it carries job-specific payload such as mesh URLs.
type StatusDocument map[string]any

// Stage returns the "stage" field. ok is false when the field is absent.
// A non-string stage is reported as present with its printed form.
func (d StatusDocument) Stage() (string, bool) {
	v, ok := d["stage"]
	if !ok {
		return "", false
	}
	if s, isStr := v.(string); isStr {
		return s, true
	}
	return fmt.Sprint(v), true
}

// HasStage reports whether the document carries a "stage" field.
func (d StatusDocument) HasStage() bool {
	_, ok := d["stage"]
	return ok
}

// ModelID returns the "model_id" field, if it is a non-empty string.
func (d StatusDocument) ModelID() (JobID, bool) {
	s, ok := d["model_id"].(string)
	if !ok || s == "" {
		return "", false
	}
	return JobID(s), true
}

// Name returns the "name" field.
func (d StatusDocument) Name() string {
	s, _ := d["name"].(string)
	return s
}

// Lookup walks nested objects, e.g. Lookup("model", "mesh", "glb").
func (d StatusDocument) Lookup(path ...string) (any, bool) {
	var cur any = map[string]any(d)
	for _, p := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[p]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// LookupString is Lookup for string leaves.
func (d StatusDocument) LookupString(path ...string) (string, bool) {
	v, ok := d.Lookup(path...)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok && s != ""
}

// Clone returns a shallow copy.
func (d StatusDocument) Clone() StatusDocument {
	if d == nil {
		return nil
	}
	return maps.Clone(d)
}
