package model

import "time"

// SearchQuery wraps the stored literature query. It is an object rather than
// a bare string so the JSON shape stays {"searchQuery": {"query": "..."}}.
type SearchQuery struct {
	Query string `json:"query"`
}

// Project is a QI research project.
//
// Owner, Collaborators and Documents are returned "populated": the repository
// joins the referenced rows so clients never have to resolve ids themselves.
// Collaborators has set semantics (enforced by the store); Documents keeps
// insertion order.
type Project struct {
	ID             string        `json:"id"`
	Title          string        `json:"title"`
	Description    string        `json:"description"`
	SearchQuery    SearchQuery   `json:"searchQuery"`
	Documents      []Document    `json:"documents"`
	Owner          UserSummary   `json:"owner"`
	Collaborators  []UserSummary `json:"collaborators"`
	LastModifiedBy string        `json:"lastModifiedBy,omitempty"`
	LastModifiedAt *time.Time    `json:"lastModifiedAt,omitempty"`
	CreatedAt      time.Time     `json:"createdAt"`
	UpdatedAt      time.Time     `json:"updatedAt"`
}

// ProjectBuckets is the result of classifying every project against one user.
type ProjectBuckets struct {
	Involved    []Project `json:"involvedProjects"`
	NotInvolved []Project `json:"notInvolvedProjects"`
}
