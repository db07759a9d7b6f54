package concurrence

import "errors"

// ErrProjectNotFound is returned when the referenced project does not exist.
// This is the structural failure path: collection never starts.
var ErrProjectNotFound = errors.New("concurrence: project not found")

// ErrCompetitorNotFound is returned when a referenced competitor does not exist.
var ErrCompetitorNotFound = errors.New("concurrence: competitor not found")

// ErrInvalidInput is returned when input fails validation.
var ErrInvalidInput = errors.New("concurrence: invalid input")

// ErrNoWebsite is returned by scrape attempts against a competitor that has
// no website on record. Recovered inside the fallback chain.
var ErrNoWebsite = errors.New("concurrence: competitor has no website")

// ErrNoSnapshot is returned when no usable snapshot exists for an owner.
// Recovered inside the fallback chain.
var ErrNoSnapshot = errors.New("concurrence: no snapshot available")

// ErrAllPrioritiesFailed is recorded on a competitor result when every level
// of the fallback chain failed. Never returned from CollectProjectData.
var ErrAllPrioritiesFailed = errors.New("concurrence: all priority levels failed")
