package tui

// Palette shared by the timer and the CLI's styled output
const (
	ColorBorder = "#3A3F55" // separators

	// Text
	ColorPrimaryText   = "#E6EAF2" // task titles, client name
	ColorSecondaryText = "#B1B8C7" // start times, client session time, references
	ColorDisabledText  = "#6D7383" // empty task lists

	// Accents
	ColorAccentMain   = "#7C3AED" // logo, ids, session lines
	ColorAccentBright = "#A78BFA" // big clock, headers

	// Outcomes of timer actions
	ColorError   = "#EF4444"
	ColorSuccess = "#22C55E"
)
