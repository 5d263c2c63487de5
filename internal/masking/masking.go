// Package masking obfuscates contact details shown to viewers who have not
// been granted full visibility. Every function here is pure.
package masking

import "strings"

const maskRune = '*'

// MaskEmail keeps the first two characters of the local part, replaces the
// rest of it with one '*' per hidden character and keeps the domain. A local
// part of two characters or fewer is masked entirely. Input without an '@'
// is masked entirely since there is no domain to preserve.
func MaskEmail(email string) string {
	if email == "" {
		return ""
	}
	at := strings.LastIndexByte(email, '@')
	if at < 0 {
		return stars(len([]rune(email)))
	}
	local := []rune(email[:at])
	domain := email[at:]

	if len(local) <= 2 {
		return stars(len(local)) + domain
	}
	return string(local[:2]) + stars(len(local)-2) + domain
}

// MaskPhone keeps the first two and last two characters and masks the
// middle. Values of four characters or fewer are masked entirely.
func MaskPhone(phone string) string {
	r := []rune(phone)
	if len(r) <= 4 {
		return stars(len(r))
	}
	return string(r[:2]) + stars(len(r)-4) + string(r[len(r)-2:])
}

func stars(n int) string {
	return strings.Repeat(string(maskRune), n)
}

// Visibility is the state the masking decision depends on.
type Visibility struct {
	// CompanyShowsContact is the company-wide showContactInfo flag.
	CompanyShowsContact bool
	// RequestUnlocked is the per-request isUnlocked flag.
	RequestUnlocked bool
}

// Reveals reports whether raw values may be shown.
func (v Visibility) Reveals() bool {
	return v.CompanyShowsContact || v.RequestUnlocked
}

// Email returns the raw email when visibility allows it, otherwise the masked form.
func (v Visibility) Email(email string) string {
	if v.Reveals() {
		return email
	}
	return MaskEmail(email)
}

// Phone returns the raw phone when visibility allows it, otherwise the masked form.
func (v Visibility) Phone(phone string) string {
	if v.Reveals() {
		return phone
	}
	return MaskPhone(phone)
}
