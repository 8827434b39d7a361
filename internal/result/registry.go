package result

// Registry holds one Result per target framework moniker for a single project.
// Results are kept in first-observation order. A Registry belongs to the
// goroutine delivering events and is not safe for concurrent use; readers get
// copies through Snapshot.
type Registry struct {
	projectFile string
	results     map[string]*Result // TFM -> result
	order       []string
}

// NewRegistry creates an empty registry for the given project.
func NewRegistry(projectFile string) *Registry {
	return &Registry{
		projectFile: projectFile,
		results:     make(map[string]*Result),
	}
}

// Get returns the result for a TFM, or nil.
func (r *Registry) Get(tfm string) *Result {
	return r.results[tfm]
}

// GetOrCreate returns the result for a TFM, creating it on first use.
func (r *Registry) GetOrCreate(tfm string) *Result {
	res, ok := r.results[tfm]
	if !ok {
		res = New(r.projectFile, tfm)
		r.results[tfm] = res
		r.order = append(r.order, tfm)
	}
	return res
}

// SetProjectFile sets the path given to results created from now on.
func (r *Registry) SetProjectFile(path string) {
	r.projectFile = path
}

// Len returns the number of results.
func (r *Registry) Len() int {
	return len(r.order)
}

// Snapshot copies the current results. Later events do not change a snapshot,
// and changes made to a snapshot do not reach the registry.
func (r *Registry) Snapshot(overallSuccess bool) *Results {
	all := make([]*Result, len(r.order))
	for i, tfm := range r.order {
		all[i] = r.results[tfm].clone()
	}
	return &Results{
		projectFile:    r.projectFile,
		all:            all,
		overallSuccess: overallSuccess,
	}
}

// Results is the outcome of analyzing one build.
type Results struct {
	projectFile    string
	all            []*Result
	overallSuccess bool
}

// NewResults assembles a collection; used when results are loaded back from storage.
func NewResults(projectFile string, all []*Result, overallSuccess bool) *Results {
	return &Results{
		projectFile:    projectFile,
		all:            append([]*Result(nil), all...),
		overallSuccess: overallSuccess,
	}
}

// ProjectFile returns the analyzed project path.
func (rs *Results) ProjectFile() string { return rs.projectFile }

// OverallSuccess reports the success flag of the BuildFinished event, false if none was seen.
func (rs *Results) OverallSuccess() bool { return rs.overallSuccess }

// All returns the results in first-observation order.
func (rs *Results) All() []*Result {
	return append([]*Result(nil), rs.all...)
}

// Len returns the number of results.
func (rs *Results) Len() int { return len(rs.all) }

// Get returns the result for a TFM.
func (rs *Results) Get(tfm string) (*Result, bool) {
	for _, r := range rs.all {
		if r.targetFramework == tfm {
			return r, true
		}
	}
	return nil, false
}

// TargetFrameworks returns the TFMs in first-observation order.
func (rs *Results) TargetFrameworks() []string {
	tfms := make([]string, len(rs.all))
	for i, r := range rs.all {
		tfms[i] = r.targetFramework
	}
	return tfms
}
