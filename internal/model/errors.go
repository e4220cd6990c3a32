package model

import "fmt"

// IntegrityError reports a referential integrity violation: an entity row
// referencing an identifier that does not exist in the collection it points
// at. Builds abort on the first violation so no partial collection survives.
type IntegrityError struct {
	Entity     string // kind of entity being built, e.g. "trip"
	ID         string // identifier of the referencing entity
	Field      string // referencing field, e.g. "stop_id"
	Ref        string // identifier that could not be resolved
	Collection string // collection the reference points at, e.g. "stops"
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("%s %q: %s %q not found in %s", e.Entity, e.ID, e.Field, e.Ref, e.Collection)
}
