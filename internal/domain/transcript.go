package domain

import "time"

// Transcript is a consultation transcript reference. Ingestion from meeting
// providers happens elsewhere; the engine only needs the creation timestamp
// to order refinements against their base plan.
type Transcript struct {
	ID        string
	ChildID   string
	Provider  string
	Summary   string
	CreatedAt time.Time
}
