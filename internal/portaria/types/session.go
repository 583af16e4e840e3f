package types

// SessionRow is one reconciled (person, local day) line of the day view.
// Entry/Exit are local wall-clock "HH:MM:SS"; empty when absent.
type SessionRow struct {
	Date       string `json:"date"`
	PersonID   int64  `json:"person_id"`
	PersonName string `json:"person_name"`
	Entry      string `json:"entry,omitempty"`
	Exit       string `json:"exit,omitempty"`
	Duration   string `json:"duration"`
	Open       bool   `json:"open"`
}

type SessionsResponse struct {
	Zone        string       `json:"zone"`
	Today       string       `json:"today"`
	Sessions    []SessionRow `json:"sessions"`
	OrphanExits int          `json:"orphan_exits"`
}

// StayRow is one entry paired with the first exit after it.
type StayRow struct {
	PersonID   int64  `json:"person_id"`
	PersonName string `json:"person_name"`
	Entry      string `json:"entry"`
	Exit       string `json:"exit"`
	Minutes    int64  `json:"minutes"`
}

type StaysResponse struct {
	Zone  string    `json:"zone"`
	Stays []StayRow `json:"stays"`
}
