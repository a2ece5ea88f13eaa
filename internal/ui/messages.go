package ui

// FileStartMsg indicates a new file has started analysis
type FileStartMsg struct {
	FileIndex int
	FileName  string
}

// FileCompleteMsg indicates a file has finished analysis
type FileCompleteMsg struct {
	FileIndex  int
	BPM        *float64
	Confidence *float64
	Beats      int
	Downbeats  int
	Error      error
}

// AllCompleteMsg indicates all files have been analyzed
type AllCompleteMsg struct{}
