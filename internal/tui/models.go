package tui

type View int

const (
	ViewMain View = iota
	ViewHistory
	ViewHelp
)

func (v View) String() string {
	switch v {
	case ViewMain:
		return "main"
	case ViewHistory:
		return "history"
	case ViewHelp:
		return "help"
	default:
		return "unknown"
	}
}
