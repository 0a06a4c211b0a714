package model

import "time"

// Enrollment links one student to one class. The pair is unique.
type Enrollment struct {
	StudentID  int       `json:"student_id"`
	ClassID    int       `json:"class_id"`
	EnrolledAt time.Time `json:"enrolled_at"`

	// Populated when listing a student's classes.
	Class *Class `json:"class,omitempty"`
	// Populated when listing a class roster.
	Student *Student `json:"student,omitempty"`
}
