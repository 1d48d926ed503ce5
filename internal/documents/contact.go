package documents

import (
	"regexp"
	"strings"
	"unicode"

	"cv-optimizer/internal/sessions"
)

var (
	emailPattern    = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	phonePattern    = regexp.MustCompile(`\+?\(?[0-9]{1,3}\)?[-\s.]?[0-9]{1,4}[-\s.]?[0-9]{1,4}[-\s.]?[0-9]{1,9}`)
	linkedInPattern = regexp.MustCompile(`(?i)(?:https?://)?(?:www\.)?linkedin\.com/in/[\w-]+`)
)

// minPhoneDigits keeps years and date ranges from matching as phone numbers.
const minPhoneDigits = 7

// FillContact completes missing contact fields from the raw resume text.
// Fields already set are never replaced.
func FillContact(c sessions.Contact, text string) sessions.Contact {
	if strings.TrimSpace(c.Email) == "" {
		c.Email = emailPattern.FindString(text)
	}
	if strings.TrimSpace(c.LinkedIn) == "" {
		c.LinkedIn = linkedInPattern.FindString(text)
	}
	if strings.TrimSpace(c.Phone) == "" {
		c.Phone = findPhone(text)
	}
	if strings.TrimSpace(c.Name) == "" {
		c.Name = guessName(text)
	}
	return c
}

func findPhone(text string) string {
	for _, m := range phonePattern.FindAllString(text, -1) {
		digits := 0
		for _, r := range m {
			if unicode.IsDigit(r) {
				digits++
			}
		}
		if digits >= minPhoneDigits {
			return strings.TrimSpace(m)
		}
	}
	return ""
}

// guessName takes the first line when it reads like a person's name: two to
// four words, letters only.
func guessName(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			continue
		}
		words := strings.Fields(line)
		if len(words) < 2 || len(words) > 4 {
			return ""
		}
		for _, r := range line {
			if !unicode.IsLetter(r) && r != ' ' && r != '-' && r != '\'' && r != '.' {
				return ""
			}
		}
		return line
	}
	return ""
}
