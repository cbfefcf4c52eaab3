package vizmap

// StatusLevel grades a layer's health for the status overlay.
type StatusLevel uint8

const (
	StatusOK StatusLevel = iota
	StatusWarn
	StatusError
)

func (l StatusLevel) String() string {
	switch l {
	case StatusOK:
		return "ok"
	case StatusWarn:
		return "warn"
	case StatusError:
		return "error"
	}
	return "unknown"
}

// Status is the indicator a layer shows next to its name.
type Status struct {
	Level   StatusLevel
	Message string
}

func statusOK() Status { return Status{Level: StatusOK, Message: "OK"} }
func statusWarn(msg string) Status { return Status{Level: StatusWarn, Message: msg} }
func statusError(msg string) Status { return Status{Level: StatusError, Message: msg} }
