package models

// Thread is a named conversation holding an ordered list of messages.
type Thread struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	// Messages is append-only, ordered by creation.
	Messages []Message `json:"messages"`
	// CreatedAt and UpdatedAt are epoch milliseconds.
	CreatedAt int64 `json:"createdAt"`
	UpdatedAt int64 `json:"updatedAt"`
	// IsActive false means the thread no longer accepts messages.
	IsActive bool `json:"isActive"`
}

// ThreadCreate is the request body for creating a thread.
type ThreadCreate struct {
	Title        string `json:"title"`
	FirstMessage string `json:"first_message"`
}
