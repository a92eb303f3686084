package models

// Toast variants understood by clients.
const (
	ToastDefault     = "default"
	ToastDestructive = "destructive"
)

// Toast is a transient, dismissable notification shown to a client.
type Toast struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Variant     string `json:"variant"`
}
