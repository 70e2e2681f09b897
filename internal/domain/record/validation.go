package record

import "strings"

// NormalizeTitle trims title and rejects an empty result.
func NormalizeTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", ErrInvalidInput
	}
	return title, nil
}

// ContentKey identifies records with the same visible content.
type ContentKey struct {
	Title string
	Body  string
}

// KeyOf builds the content key of a title and body.
func KeyOf(title, body string) ContentKey {
	return ContentKey{Title: strings.TrimSpace(title), Body: strings.TrimSpace(body)}
}
