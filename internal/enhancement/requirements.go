package enhancement

// BuildRequirements maps the set flags to model directives, one per flag,
// in canonical declaration order regardless of how the caller ordered them.
func BuildRequirements(o Options) []string {
	out := make([]string, 0, len(descriptors))
	for _, d := range descriptors {
		if *d.field(&o) {
			out = append(out, d.Requirement)
		}
	}
	return out
}
