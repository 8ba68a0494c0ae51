package models

import "time"

type Subject struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"not null;size:200"`
	TeacherID string    `json:"teacher_id" gorm:"not null;index;size:255"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Enrollment grants a student access to every quiz of a subject.
type Enrollment struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	SubjectID uint      `json:"subject_id" gorm:"not null;uniqueIndex:idx_enrollment_subject_student"`
	StudentID string    `json:"student_id" gorm:"not null;size:255;uniqueIndex:idx_enrollment_subject_student"`
	CreatedAt time.Time `json:"created_at"`
}

func (Subject) TableName() string {
	return "subjects"
}

func (Enrollment) TableName() string {
	return "enrollments"
}
