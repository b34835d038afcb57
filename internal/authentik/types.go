package authentik

// Pagination is the part of an authentik list envelope carrying the total item count.
type Pagination struct {
	Count uint64 `json:"count"`
}

// Users is the user-list envelope reduced to its pagination summary.
type Users struct {
	Pagination Pagination `json:"pagination"`
}

// EventPoint is one (timestamp, count) sample from the events-per-month series.
// XCoord is milliseconds since the Unix epoch.
type EventPoint struct {
	XCoord float64 `json:"x_cord"`
	YCoord uint64  `json:"y_cord"`
}

// wire shapes use pointers so absent fields can be told apart from zero values
type usersPayload struct {
	Pagination *struct {
		Count *uint64 `json:"count"`
	} `json:"pagination"`
}

type eventPointPayload struct {
	XCoord *float64 `json:"x_cord"`
	YCoord *uint64  `json:"y_cord"`
}
