package employee

const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)
