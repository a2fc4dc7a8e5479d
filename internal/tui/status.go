package tui

import "fmt"

// Canonical short status messages used across the app.
const (
	MsgRefreshing      = "Refreshing…"
	MsgRefreshRejected = "Refresh unavailable"
	MsgNoTitle         = "No title yet"
	MsgNoHistory       = "No history yet"
	MsgLoadingHistory  = "Loading history…"
)

func MsgPressToRefresh(key string) string {
	return fmt.Sprintf("Press %s or click to fetch the title", key)
}

func MsgHistoryCount(n int) string {
	if n == 1 {
		return "1 title"
	}
	return fmt.Sprintf("%d titles", n)
}
