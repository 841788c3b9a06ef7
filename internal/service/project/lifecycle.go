package project

import "devmatch/internal/model"

// transitions is the project lifecycle graph. completed and cancelled are
// terminal; any active state may complete when progress reaches 100.
var transitions = map[string][]string{
	model.ProjectStatusOpen: {
		model.ProjectStatusInProgress,
		model.ProjectStatusOnHold,
		model.ProjectStatusCancelled,
		model.ProjectStatusCompleted,
	},
	model.ProjectStatusInProgress: {
		model.ProjectStatusCompleted,
		model.ProjectStatusOnHold,
		model.ProjectStatusCancelled,
	},
	model.ProjectStatusOnHold: {
		model.ProjectStatusOpen,
		model.ProjectStatusInProgress,
		model.ProjectStatusCancelled,
		model.ProjectStatusCompleted,
	},
	model.ProjectStatusCompleted: {},
	model.ProjectStatusCancelled: {},
}

// CanTransition reports whether the lifecycle graph allows from→to.
func CanTransition(from, to string) bool {
	if from == to {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CanTransitionDirect reports whether an owner may set the status directly.
// open→in-progress happens only through application acceptance, and
// completion only through progress reaching 100.
func CanTransitionDirect(from, to string) bool {
	if to == model.ProjectStatusCompleted {
		return false
	}
	if from == model.ProjectStatusOpen && to == model.ProjectStatusInProgress {
		return false
	}
	return CanTransition(from, to)
}

// ClampProgress bounds a progress value into [0, 100].
func ClampProgress(value int) int {
	if value < 0 {
		return 0
	}
	if value > 100 {
		return 100
	}
	return value
}
