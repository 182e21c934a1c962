package game

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	maxNameLength      = 64
	maxPositionLength  = 64
	maxRoomNameLength  = 64
	maxStatementLength = 280
)

func validateProfile(profile Profile) (Profile, error) {
	name, err := validateText("name", profile.Name, maxNameLength)
	if err != nil {
		return Profile{}, err
	}
	surname, err := optionalText("surname", profile.Surname, maxNameLength)
	if err != nil {
		return Profile{}, err
	}
	position, err := optionalText("position", profile.Position, maxPositionLength)
	if err != nil {
		return Profile{}, err
	}
	return Profile{Name: name, Surname: surname, Position: position}, nil
}

func validateRoomName(name string) (string, error) {
	return validateText("room name", name, maxRoomNameLength)
}

// validateStatements normalizes the three statements of a fact set. The
// statements must be distinct: a guess is scored by text, so a true statement
// equal to the false one would score as correct.
func validateStatements(f1, f2, f3 string) ([3]string, error) {
	var out [3]string
	for i, raw := range []string{f1, f2, f3} {
		text, err := validateText("fact"+strconv.Itoa(i+1), raw, maxStatementLength)
		if err != nil {
			return out, err
		}
		out[i] = text
	}
	if out[0] == out[1] || out[0] == out[2] || out[1] == out[2] {
		return out, invalid("facts must be different from each other")
	}
	return out, nil
}

func validatePlayerID(id string) (string, error) {
	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		return "", invalid("player id is required")
	}
	return trimmed, nil
}

func validateRoomID(id int) error {
	if id < minRoomID || id > maxRoomID {
		return notFound("room %d not found", id)
	}
	return nil
}

func validateText(label, text string, maxLen int) (string, error) {
	trimmed := NormalizeText(text)
	if trimmed == "" {
		return "", invalid("%s is required", label)
	}
	return checkText(label, trimmed, maxLen)
}

func optionalText(label, text string, maxLen int) (string, error) {
	trimmed := NormalizeText(text)
	if trimmed == "" {
		return "", nil
	}
	return checkText(label, trimmed, maxLen)
}

func checkText(label, text string, maxLen int) (string, error) {
	if utf8.RuneCountInString(text) > maxLen {
		return "", invalid("%s must be %d characters or fewer", label, maxLen)
	}
	if !isSafeText(text) {
		return "", invalid("%s contains unsupported characters", label)
	}
	return text, nil
}

// NormalizeText trims the text and collapses inner whitespace runs.
func NormalizeText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

func isSafeText(text string) bool {
	if !utf8.ValidString(text) {
		return false
	}
	for _, r := range text {
		if unicode.IsControl(r) {
			return false
		}
	}
	return true
}
