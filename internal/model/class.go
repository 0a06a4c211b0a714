package model

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// CourseNumLength is the fixed length of every course number.
const CourseNumLength = 3

// Class represents a course listing students can enroll in.
type Class struct {
	ID        int       `json:"id"`
	CourseNum string    `json:"course_num"`
	Title     string    `json:"title"`
	Major     string    `json:"major"`
	CreatedAt time.Time `json:"created_at"`
}

// Label renders the class as "MAJOR COURSENUM", e.g. "CptS 355".
func (c Class) Label() string {
	return fmt.Sprintf("%s %s", c.Major, c.CourseNum)
}

// CreateClassRequest is the class creation form payload.
type CreateClassRequest struct {
	CourseNum string `form:"coursenum" json:"coursenum" binding:"required,coursenum"`
	Title     string `form:"title" json:"title" binding:"required,max=150"`
	Major     string `form:"major" json:"major" binding:"required"`
}

// ValidateCourseNum checks that num is exactly CourseNumLength characters.
func ValidateCourseNum(num string) error {
	if utf8.RuneCountInString(num) != CourseNumLength {
		return &ValidationError{
			Field:   "coursenum",
			Message: fmt.Sprintf("Course number must be exactly %d characters long.", CourseNumLength),
		}
	}
	return nil
}

// ValidateTitle checks that a class title is present.
func ValidateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return &ValidationError{Field: "title", Message: "Title is required."}
	}
	return nil
}
