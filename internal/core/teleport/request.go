package teleport

// Request is a resolved teleport: move Requester to Target.
type Request struct {
	Requester string
	Target    Position
}

// Match parses message and, if it is a trigger, resolves it against the
// requester's current position.
func Match(message, requester string, current Position) (Request, bool) {
	d, ok := Parse(message)
	if !ok {
		return Request{}, false
	}
	return Request{
		Requester: requester,
		Target:    d.Resolve(current),
	}, true
}
