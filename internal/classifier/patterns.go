package classifier

import "regexp"

// Alternatives are ordered so that at a shared start position the more
// specific form wins: explicit mailto, then scheme URLs, then bare email
// addresses, then host names.
var linkPattern = regexp.MustCompile(`(?i)` +
	`(?P<mailto>\bmailto:[^\s<>"']+)` +
	`|(?P<scheme>\b(?:https?|ftps?|sftp|wss?)://[^\s<>"']+)` +
	`|(?P<email>\b[a-z0-9._%+\-]+@[a-z0-9](?:[a-z0-9\-]*[a-z0-9])?(?:\.[a-z0-9](?:[a-z0-9\-]*[a-z0-9])?)*\.[a-z]{2,})` +
	`|(?P<www>\bwww\.[a-z0-9\-]+(?:\.[a-z0-9\-]+)+(?:/[^\s<>"']*)?)` +
	`|(?P<host>\b[a-z0-9](?:[a-z0-9\-]*[a-z0-9])?(?:\.[a-z0-9](?:[a-z0-9\-]*[a-z0-9])?)*\.(?:com|org|net|edu|gov|io|dev|app|co|info|biz|me|ai|us|uk|de|fr|eu|ru)\b(?:/[^\s<>"']*)?)`)

var (
	groupMailto = linkPattern.SubexpIndex("mailto")
	groupEmail  = linkPattern.SubexpIndex("email")
)

// phonePattern over-matches on purpose; candidates are checked by
// validPhone before they count.
// Separators include the Unicode hyphens and dashes OCR engines emit for "-".
var phonePattern = regexp.MustCompile(
	`(?:\+\d{1,3}[\s.\-\x{2010}-\x{2015}]?)?(?:\(\d{1,4}\)[\s.\-\x{2010}-\x{2015}]?)?\d{2,4}(?:[\s.\-\x{2010}-\x{2015}]?\d{2,4}){1,4}`)

var datePattern = regexp.MustCompile(`^\d{4}[\-/.]\d{1,2}[\-/.]\d{1,2}$|^\d{1,2}[\-/.]\d{1,2}[\-/.]\d{4}$`)

const (
	minPhoneDigits = 7
	maxPhoneDigits = 15
	// A number this long is complete; a space-separated group after it is
	// something else, like a year.
	fullPhoneDigits = 10
)

// Characters that commonly trail a link in prose and are not part of it.
const linkTrailers = ".,;:!?)]}'\""
