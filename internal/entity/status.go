package entity

import "fmt"

// Status enumerates the lifecycle states of an order.
type Status string

const (
	StatusNew       Status = "New"
	StatusOrdered   Status = "Ordered"
	StatusShipped   Status = "Shipped"
	StatusInStorage Status = "InStorage"
)

// Terminal reports whether the status permits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusInStorage
}

// Valid reports whether the value is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusNew, StatusOrdered, StatusShipped, StatusInStorage:
		return true
	}
	return false
}

func (s Status) String() string { return string(s) }

// ParseStatus converts transport input into a Status.
func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if !s.Valid() {
		return "", fmt.Errorf("unknown status: %q", raw)
	}
	return s, nil
}

// Team enumerates the teams an order can be requested for.
type Team string

const (
	TeamMechanical Team = "Mechanical"
	TeamElectrical Team = "Electrical"
	TeamSoftware   Team = "Software"
	TeamBusiness   Team = "Business"
)

// Valid reports whether the value is a known team.
func (t Team) Valid() bool {
	switch t {
	case TeamMechanical, TeamElectrical, TeamSoftware, TeamBusiness:
		return true
	}
	return false
}

func (t Team) String() string { return string(t) }

// ParseTeam converts transport input into a Team.
func ParseTeam(raw string) (Team, error) {
	t := Team(raw)
	if !t.Valid() {
		return "", fmt.Errorf("unknown team: %q", raw)
	}
	return t, nil
}
