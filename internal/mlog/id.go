package mlog

// FormatID formats an instance ID for logging.
//
// If the ID appears to be a UUID, only the first 8 characters are shown.
// Otherwise, the ID is displayed in-full. An empty ID is rendered as a
// hyphen so that log columns remain aligned.
func FormatID(id string) string {
	if id == "" {
		return "-"
	}

	if len(id) == 36 && id[8] == '-' {
		return id[:8]
	}

	return id
}
