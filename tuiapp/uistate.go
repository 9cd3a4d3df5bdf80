package tuiapp

type uiState int

const (
	mainPage    uiState = iota // first page on startup, showing the track table
	detailsPage                // track table, with details of the selected track below
	statsPage                  // session statistics and server telemetry
)
