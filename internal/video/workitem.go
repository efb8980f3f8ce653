package video

// WorkItem holds the temp files of a single render. Every name starts with
// ID, so two in-flight requests never touch the same file.
type WorkItem struct {
	ID         string
	ImagePath  string
	AudioPath  string
	OutputPath string
}

// Paths returns the temp files created so far.
func (w *WorkItem) Paths() []string {
	paths := make([]string, 0, 3)
	for _, p := range []string{w.ImagePath, w.AudioPath, w.OutputPath} {
		if p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}
