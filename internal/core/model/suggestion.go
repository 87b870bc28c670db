package model

// Suggestion is a canned conversation starter shown by the client.
type Suggestion struct {
	ID   string `json:"id"`
	Text string `json:"text"`
	Icon string `json:"icon"`
}

// Circle is a group of densely connected people in a relationship graph.
type Circle struct {
	ID      int      `json:"id"`
	Members []string `json:"members"`
	Size    int      `json:"size"`
}
