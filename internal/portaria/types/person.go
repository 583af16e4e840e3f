package types

// PersonView is the catalog representation of a registered person.
type PersonView struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	SystemID       string `json:"person_system_id"`
	PhotoPath      string `json:"photo_path,omitempty"`
	EncodingPath   string `json:"face_encoding_path,omitempty"`
	HasEncoding    bool   `json:"has_encoding"`
	OtherData      string `json:"other_data,omitempty"`
	CreatedAtLocal string `json:"created_at_local"`
	UpdatedAtLocal string `json:"updated_at_local"`
}

type PersonResponse struct {
	Person            PersonView `json:"person"`
	EncodingGenerated bool       `json:"encoding_generated"`
	Warning           string     `json:"warning,omitempty"`
}

type PeopleResponse struct {
	People []PersonView `json:"people"`
}

type DeletePersonResponse struct {
	ID            int64 `json:"id"`
	DeletedEvents int64 `json:"deleted_events"`
}
