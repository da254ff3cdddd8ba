package domain

import "fmt"

// Jurisdiction identifies the correctional system holding an individual.
// It is half of the (jurisdiction, inmate id) identity key used everywhere
// in this service, so it is a domain primitive validated at parse time.
type Jurisdiction string

// Supported jurisdictions.
const (
	JurisdictionTexas   Jurisdiction = "Texas"
	JurisdictionFederal Jurisdiction = "Federal"
)

// All returns every supported jurisdiction.
func AllJurisdictions() []Jurisdiction {
	return []Jurisdiction{JurisdictionTexas, JurisdictionFederal}
}

// ParseJurisdiction validates and returns a Jurisdiction.
func ParseJurisdiction(s string) (Jurisdiction, error) {
	switch Jurisdiction(s) {
	case JurisdictionTexas:
		return JurisdictionTexas, nil
	case JurisdictionFederal:
		return JurisdictionFederal, nil
	}
	return "", fmt.Errorf("invalid jurisdiction %q", s)
}

// String returns the string representation of the jurisdiction.
func (j Jurisdiction) String() string {
	return string(j)
}

// IsValid reports whether the jurisdiction is one of the supported values.
func (j Jurisdiction) IsValid() bool {
	_, err := ParseJurisdiction(string(j))
	return err == nil
}
