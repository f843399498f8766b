package model

// ChartEntry is one position of a top chart.
type ChartEntry struct {
	Artist string `json:"artist"`
	Title  string `json:"title"`
}

// Query is the text searched when the entry is picked.
func (e ChartEntry) Query() string {
	return Candidate{Artist: e.Artist, Title: e.Title}.Label()
}
