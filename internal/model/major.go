package model

import "time"

// Major represents an academic program that classes belong to.
type Major struct {
	ID         int       `json:"id"`
	Name       string    `json:"name"`
	Department string    `json:"department"`
	CreatedAt  time.Time `json:"created_at"`
}

// DefaultMajors is the reference data seeded into an empty majors table.
var DefaultMajors = []Major{
	{Name: "CptS", Department: "School of EECS"},
	{Name: "SE", Department: "School of EECS"},
	{Name: "EE", Department: "School of EECS"},
	{Name: "ME", Department: "Mechanical Engineering"},
	{Name: "MATH", Department: "Mathematics"},
}
