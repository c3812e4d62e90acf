package filter

// DefaultInclude is the candidate status set used when none is configured.
var DefaultInclude = []int{200, 201, 204, 301, 302, 307, 308, 401, 403}

// StatusPolicy decides which status codes are candidate hits. The exclude
// set wins over the include set.
type StatusPolicy struct {
	include map[int]struct{}
	exclude map[int]struct{}
}

// NewStatusPolicy creates a status policy. An empty include list selects
// DefaultInclude.
func NewStatusPolicy(include, exclude []int) *StatusPolicy {
	if len(include) == 0 {
		include = DefaultInclude
	}
	p := &StatusPolicy{
		include: make(map[int]struct{}, len(include)),
		exclude: make(map[int]struct{}, len(exclude)),
	}
	for _, code := range include {
		p.include[code] = struct{}{}
	}
	for _, code := range exclude {
		p.exclude[code] = struct{}{}
	}
	return p
}

// Allowed reports whether code is a candidate hit.
func (p *StatusPolicy) Allowed(code int) bool {
	if _, ok := p.exclude[code]; ok {
		return false
	}
	_, ok := p.include[code]
	return ok
}
