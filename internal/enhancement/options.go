package enhancement

// Options selects which categories of technical detail are requested from
// the model. JSON names match the editor's wire format.
type Options struct {
	IncludeTechnicalDetails         bool `json:"includeTechnicalDetails"`
	IncludeErrorHandling            bool `json:"includeErrorHandling"`
	IncludePerformanceRequirements  bool `json:"includePerformanceRequirements"`
	IncludeSecurityConsiderations   bool `json:"includeSecurityConsiderations"`
	IncludeTestingStrategies        bool `json:"includeTestingStrategies"`
	IncludeMonitoringApproaches     bool `json:"includeMonitoringApproaches"`
	IncludeDeploymentConsiderations bool `json:"includeDeploymentConsiderations"`
	IncludeDependencies             bool `json:"includeDependencies"`
	IncludeAdditionalInformation    bool `json:"includeAdditionalInformation"`
}

// Descriptor documents one option flag. Requirement is the directive sent
// to the model when the flag is set.
type Descriptor struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description"`
	Default     bool   `json:"default"`
	Requirement string `json:"-"`

	field func(*Options) *bool
}

// descriptors is in canonical order; requirement lists follow it.
var descriptors = []Descriptor{
	{
		ID:          "includeTechnicalDetails",
		Label:       "Technical Details",
		Description: "Add specific technical implementation details",
		Default:     true,
		Requirement: "Add specific technical implementation details",
		field:       func(o *Options) *bool { return &o.IncludeTechnicalDetails },
	},
	{
		ID:          "includeErrorHandling",
		Label:       "Error Handling",
		Description: "Include comprehensive error handling strategies",
		Default:     true,
		Requirement: "Include comprehensive error handling strategies",
		field:       func(o *Options) *bool { return &o.IncludeErrorHandling },
	},
	{
		ID:          "includePerformanceRequirements",
		Label:       "Performance Requirements",
		Description: "Specify performance benchmarks and requirements",
		Default:     true,
		Requirement: "Specify performance benchmarks and requirements",
		field:       func(o *Options) *bool { return &o.IncludePerformanceRequirements },
	},
	{
		ID:          "includeSecurityConsiderations",
		Label:       "Security Considerations",
		Description: "Add security measures and considerations",
		Default:     true,
		Requirement: "Add security measures and considerations",
		field:       func(o *Options) *bool { return &o.IncludeSecurityConsiderations },
	},
	{
		ID:          "includeTestingStrategies",
		Label:       "Testing Strategies",
		Description: "Include testing strategies and approaches",
		Default:     true,
		Requirement: "Include testing strategies and approaches",
		field:       func(o *Options) *bool { return &o.IncludeTestingStrategies },
	},
	{
		ID:          "includeMonitoringApproaches",
		Label:       "Monitoring Approaches",
		Description: "Add monitoring and observability approaches",
		Default:     true,
		Requirement: "Add monitoring and observability approaches",
		field:       func(o *Options) *bool { return &o.IncludeMonitoringApproaches },
	},
	{
		ID:          "includeDeploymentConsiderations",
		Label:       "Deployment Considerations",
		Description: "Specify deployment and CI/CD considerations",
		Default:     true,
		Requirement: "Specify deployment and CI/CD considerations",
		field:       func(o *Options) *bool { return &o.IncludeDeploymentConsiderations },
	},
	{
		ID:          "includeDependencies",
		Label:       "Dependencies",
		Description: "Identify and specify dependencies",
		Default:     true,
		Requirement: "Identify and specify dependencies",
		field:       func(o *Options) *bool { return &o.IncludeDependencies },
	},
	{
		ID:          "includeAdditionalInformation",
		Label:       "Additional Information",
		Description: "Include any additional relevant information",
		Default:     false,
		Requirement: "Include any additional relevant information",
		field:       func(o *Options) *bool { return &o.IncludeAdditionalInformation },
	},
}

// Descriptors returns the option descriptors in canonical order.
func Descriptors() []Descriptor {
	out := make([]Descriptor, len(descriptors))
	copy(out, descriptors)
	return out
}

// DefaultOptions returns every flag at its documented default.
func DefaultOptions() Options {
	var o Options
	for _, d := range descriptors {
		*d.field(&o) = d.Default
	}
	return o
}

// PartialOptions is the caller-supplied subset of flags, keyed by option ID.
// Values are untyped because they arrive straight from request JSON.
type PartialOptions map[string]any

// MergeOptions overlays partial onto the defaults. A present flag whose value
// is not a JSON boolean is treated as false; unknown keys are ignored.
func MergeOptions(partial PartialOptions) Options {
	o := DefaultOptions()
	for _, d := range descriptors {
		v, ok := partial[d.ID]
		if !ok {
			continue
		}
		b, isBool := v.(bool)
		*d.field(&o) = isBool && b
	}
	return o
}

// Enabled reports the flag value for an option ID.
func (o Options) Enabled(id string) bool {
	for _, d := range descriptors {
		if d.ID == id {
			return *d.field(&o)
		}
	}
	return false
}

// Set returns a copy of o with the flag for id set to v. Unknown ids leave o
// unchanged and report false.
func (o Options) Set(id string, v bool) (Options, bool) {
	for _, d := range descriptors {
		if d.ID == id {
			*d.field(&o) = v
			return o, true
		}
	}
	return o, false
}
