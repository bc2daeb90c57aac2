package ytfetch

// State is a step of the download pipeline. A run only moves forward;
// Failed is reachable from every state.
type State int

const (
	Idle State = iota
	PageFetched
	CatalogExtracted
	FormatSelected
	URLResolved
	Downloading
	Completed
	Failed
)

var stateNames = [...]string{
	Idle:             "idle",
	PageFetched:      "page_fetched",
	CatalogExtracted: "catalog_extracted",
	FormatSelected:   "format_selected",
	URLResolved:      "url_resolved",
	Downloading:      "downloading",
	Completed:        "completed",
	Failed:           "failed",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == Completed || s == Failed
}

// StateHook observes transitions. err is set only when entering Failed.
type StateHook func(s State, err error)

type machine struct {
	state State
	err   error
	hook  StateHook
}

func (m *machine) reset() {
	m.state, m.err = Idle, nil
}

// advance moves to s. Backward moves and moves out of a terminal state are ignored.
func (m *machine) advance(s State) {
	if m.state.Terminal() || s <= m.state || s == Failed {
		return
	}
	m.state = s
	if m.hook != nil {
		m.hook(s, nil)
	}
}

// fail enters Failed with err and returns err.
func (m *machine) fail(err error) error {
	if m.state == Failed {
		return err
	}
	m.state, m.err = Failed, err
	if m.hook != nil {
		m.hook(Failed, err)
	}
	return err
}
