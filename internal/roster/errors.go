package roster

import "errors"

var (
	ErrLocationNotFound  = errors.New("location_not_found")
	ErrDuplicateLocation = errors.New("duplicate_location")
	ErrCabIndex          = errors.New("cab_index_out_of_range")
	ErrInvalidTimeZone   = errors.New("invalid_time_zone")
)
