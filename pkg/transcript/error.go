package transcript

// ErrNotFound is returned when a record doesn't exist in the store.
type ErrNotFound struct {
	ID string
}

func (e ErrNotFound) Error() string {
	if e.ID == "" {
		return "record not found"
	}

	return "record not found: " + e.ID
}
