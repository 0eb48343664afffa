package catalog

import (
	"regexp"
	"sort"
	"strings"
)

var nonSlugChars = regexp.MustCompile(`[^a-z0-9_]`)

// Slug normalizes a display name into an id: lowercase, spaces to underscores,
// then every character outside [a-z0-9_] removed. Distinct names may share a slug.
func Slug(name string) string {
	s := strings.ToLower(name)
	s = strings.ReplaceAll(s, " ", "_")

	return nonSlugChars.ReplaceAllString(s, "")
}

// Collision reports display names that normalize to the same slug. Kept is the name
// registered first; Dropped lists the later distinct names in registration order.
type Collision struct {
	Slug    string
	Kept    string
	Dropped []string
}

// SlugRegistry assigns slugs to display names and records collisions instead of merging silently.
// It is not safe for concurrent use.
type SlugRegistry struct {
	names   map[string]string
	dropped map[string][]string
}

// NewSlugRegistry returns an empty registry.
func NewSlugRegistry() *SlugRegistry {
	return &SlugRegistry{
		names:   map[string]string{},
		dropped: map[string][]string{},
	}
}

// Register returns the slug for name and whether a different name already owns it.
func (r *SlugRegistry) Register(name string) (string, bool) {
	slug := Slug(name)

	kept, ok := r.names[slug]
	if !ok {
		r.names[slug] = name

		return slug, false
	}

	if kept == name {
		return slug, false
	}

	for _, d := range r.dropped[slug] {
		if d == name {
			return slug, true
		}
	}

	r.dropped[slug] = append(r.dropped[slug], name)

	return slug, true
}

// Name returns the display name kept for slug.
func (r *SlugRegistry) Name(slug string) (string, bool) {
	name, ok := r.names[slug]

	return name, ok
}

// Len returns the number of distinct slugs.
func (r *SlugRegistry) Len() int {
	return len(r.names)
}

// Collisions returns every collision sorted by slug.
func (r *SlugRegistry) Collisions() []Collision {
	out := make([]Collision, 0, len(r.dropped))
	for slug, dropped := range r.dropped {
		out = append(out, Collision{Slug: slug, Kept: r.names[slug], Dropped: dropped})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })

	return out
}
