package styles

// Tip: To find icons use https://github.com/loichyan/nerdfix

var (
	IconAccepted  = "\uf00c"     // nf-fa-check
	IconRejected  = "\uf00d"     // nf-fa-times
	IconStreaming = "\U000F0453" // nf-md-refresh
	IconFailed    = "\uf071"     // nf-fa-warning
	IconPending   = "\uf10c"     // nf-fa-circle_o
)

// StatusIcon returns the icon shown next to a session status.
func StatusIcon(status string) string {
	switch status {
	case "accepted", "ready":
		return IconAccepted
	case "rejected", "cancelled":
		return IconRejected
	case "streaming":
		return IconStreaming
	case "failed":
		return IconFailed
	default:
		return IconPending
	}
}
