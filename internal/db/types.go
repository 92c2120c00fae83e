package db

import "time"

// Device is a mesh device advertised by the gateway. Name is the join
// key, unique within a gateway topic namespace and case sensitive.
type Device struct {
	Name           string
	Kind           string // lights | groups | scenes
	Model          string
	Dimmable       bool
	SupportsCTL    bool
	SupportsHSL    bool
	LastDiscovered time.Time
	LastReceived   time.Time
}
