package track

// Character positions within a fixed-width symbol code.
const (
	affiliationIndex = 1
	statusIndex      = 3
)

// Status characters.
const (
	StatusPresent     byte = 'P'
	StatusAnticipated byte = 'A'
)

// Affiliation is the identity character of a symbol code.
type Affiliation byte

const (
	Unknown Affiliation = 'U'
	Friend  Affiliation = 'F'
	Neutral Affiliation = 'N'
	Hostile Affiliation = 'H'
)

// Default symbol codes used when the server sends none.
const (
	DefaultAircraftSymbol = "SUAPCF----"
	DefaultShipSymbol     = "SUSP------"
	DefaultGroundSymbol   = "SUGP------"
)

var affiliationCycle = []Affiliation{Unknown, Friend, Neutral, Hostile} //nolint: gochecknoglobals // fixed order

func (a Affiliation) String() string {
	switch a {
	case Unknown:
		return "unknown"
	case Friend:
		return "friend"
	case Neutral:
		return "neutral"
	case Hostile:
		return "hostile"
	}
	return string(a)
}

// Next returns the following affiliation in the manual override cycle.
func (a Affiliation) Next() Affiliation {
	for i, c := range affiliationCycle {
		if c == a {
			return affiliationCycle[(i+1)%len(affiliationCycle)]
		}
	}
	return Unknown
}

// AffiliationOf reads the affiliation character of a code.
func AffiliationOf(code string) (Affiliation, bool) {
	if len(code) <= affiliationIndex {
		return 0, false
	}
	return Affiliation(code[affiliationIndex]), true
}

// StatusOf reads the status character of a code.
func StatusOf(code string) (byte, bool) {
	if len(code) <= statusIndex {
		return 0, false
	}
	return code[statusIndex], true
}

func replaceAt(code string, i int, c byte) string {
	if len(code) <= i {
		return code
	}
	b := []byte(code)
	b[i] = c
	return string(b)
}

// WithAffiliation returns code with its affiliation character replaced. Codes too short to hold
// one are returned unchanged.
func WithAffiliation(code string, a Affiliation) string {
	return replaceAt(code, affiliationIndex, byte(a))
}

// WithStatus returns code with its status character replaced.
func WithStatus(code string, status byte) string {
	return replaceAt(code, statusIndex, status)
}

// Anticipate marks a present code as anticipated. Any other status is left alone.
func Anticipate(code string) string {
	if s, ok := StatusOf(code); ok && s == StatusPresent {
		return WithStatus(code, StatusAnticipated)
	}
	return code
}

// defaultSymbol is the code used for a track whose server code is empty.
func defaultSymbol(tt TrackType) string {
	switch {
	case tt == Aircraft:
		return DefaultAircraftSymbol
	case tt == Ship:
		return DefaultShipSymbol
	default:
		return DefaultGroundSymbol
	}
}
