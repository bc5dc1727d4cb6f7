package reconcile

// Sink receives user-facing output. *logger.Logger satisfies it.
type Sink interface {
	Log(message string, forceShow bool)
	Debug(message string)
	Error(message string)
}

type eventKind int

const (
	eventLog eventKind = iota
	eventError
	eventDebug
)

type event struct {
	kind      eventKind
	message   string
	forceShow bool
}

// events buffers one mod's output so it can be replayed in manifest order
// once every mod has finished.
type events []event

func (e *events) log(message string, forceShow bool) {
	*e = append(*e, event{kind: eventLog, message: message, forceShow: forceShow})
}

func (e *events) debug(message string) {
	*e = append(*e, event{kind: eventDebug, message: message})
}

func (e *events) error(message string) {
	*e = append(*e, event{kind: eventError, message: message})
}

func (e events) replay(sink Sink) {
	for _, ev := range e {
		switch ev.kind {
		case eventLog:
			sink.Log(ev.message, ev.forceShow)
		case eventError:
			sink.Error(ev.message)
		case eventDebug:
			sink.Debug(ev.message)
		}
	}
}
