package forum

import (
	"time"

	"github.com/google/uuid"
)

// Question is a community Q&A thread starter.
type Question struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"userId"`
	Username    string    `json:"username"`
	UserEmail   string    `json:"userEmail,omitempty"`
	UserImage   string    `json:"userImage,omitempty"`
	Content     string    `json:"content"`
	AnswerCount int       `json:"answerCount"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Answer is a reply to a question.
type Answer struct {
	ID         uuid.UUID `json:"id"`
	QuestionID uuid.UUID `json:"questionId"`
	UserID     uuid.UUID `json:"userId"`
	Username   string    `json:"username"`
	UserEmail  string    `json:"userEmail,omitempty"`
	UserImage  string    `json:"userImage,omitempty"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// BuildReply is a comment left on a shared build.
type BuildReply struct {
	ID        uuid.UUID `json:"id"`
	BuildID   uuid.UUID `json:"buildId"`
	UserID    uuid.UUID `json:"userId"`
	Username  string    `json:"username"`
	UserImage string    `json:"userImage,omitempty"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// QuestionPage is a paginated question listing.
type QuestionPage struct {
	Questions []*Question `json:"questions"`
	Total     int         `json:"total"`
	Page      int         `json:"page"`
	Pages     int         `json:"pages"`
}
