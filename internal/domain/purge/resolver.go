package purge

// OrderJobs sorts a run's jobs so that every dependent (child) collection is
// purged before the collections that declare it, via depth-first topological
// sort over DependentCollections. Jobs whose collections are unrelated keep
// their discovery order.
//
// A cycle in the declared dependencies is broken by treating an
// already-visiting collection as satisfied; the run degrades to a possibly
// incomplete cascade instead of recursing forever.
func OrderJobs(jobs []*Job) []*Job {
	byCollection := make(map[string]*Job, len(jobs))
	for _, j := range jobs {
		byCollection[j.Source.Collection] = j
	}

	ordered := make([]*Job, 0, len(jobs))
	done := make(map[string]bool, len(jobs))
	visiting := make(map[string]bool)

	var visit func(j *Job)
	visit = func(j *Job) {
		name := j.Source.Collection
		if done[name] || visiting[name] {
			return
		}
		visiting[name] = true
		for _, dep := range j.Source.DependentCollections {
			if child, ok := byCollection[dep]; ok {
				visit(child)
			}
		}
		visiting[name] = false
		done[name] = true
		ordered = append(ordered, j)
	}

	for _, j := range jobs {
		visit(j)
	}
	return ordered
}
