package forum

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rigforge/rigforge/internal/builds"
	"go.uber.org/zap"
)

const (
	minQuestionLen = 3
	maxQuestionLen = 500
	maxAnswerLen   = 1000

	defaultQuestionPageSize = 20
	maxQuestionPageSize     = 50
)

// Author identifies the posting user with the display fields denormalized
// onto every post.
type Author struct {
	ID       uuid.UUID
	Username string
	Email    string
	ImageURL string
}

// forumRepo is the storage interface consumed by Service.
type forumRepo interface {
	CreateQuestion(ctx context.Context, q *Question) error
	GetQuestion(ctx context.Context, id uuid.UUID) (*Question, error)
	ListQuestions(ctx context.Context, page, limit int) ([]*Question, int, error)
	CreateAnswer(ctx context.Context, a *Answer) error
	ListAnswers(ctx context.Context, questionID uuid.UUID) ([]*Answer, error)
	CreateBuildReply(ctx context.Context, br *BuildReply) error
	ListBuildReplies(ctx context.Context, buildID uuid.UUID) ([]*BuildReply, error)
}

// buildChecker confirms a build exists before a reply is attached to it.
type buildChecker interface {
	GetByID(ctx context.Context, id uuid.UUID) (*builds.Build, error)
}

// Service implements the community Q&A board and build comment threads.
type Service struct {
	repo   forumRepo
	builds buildChecker
	logger *zap.Logger
}

// NewService creates a forum Service.
func NewService(repo forumRepo, builds buildChecker, logger *zap.Logger) *Service {
	return &Service{repo: repo, builds: builds, logger: logger}
}

// AskQuestion posts a new question.
func (s *Service) AskQuestion(ctx context.Context, author Author, content string) (*Question, error) {
	content = strings.TrimSpace(content)
	if len(content) < minQuestionLen {
		return nil, fmt.Errorf("question must be at least %d characters long", minQuestionLen)
	}
	if len(content) > maxQuestionLen {
		return nil, fmt.Errorf("question must be at most %d characters", maxQuestionLen)
	}

	q := &Question{
		UserID:    author.ID,
		Username:  author.Username,
		UserEmail: author.Email,
		UserImage: author.ImageURL,
		Content:   content,
	}
	if err := s.repo.CreateQuestion(ctx, q); err != nil {
		return nil, err
	}
	return q, nil
}

// ListQuestions returns one page of questions, newest first.
func (s *Service) ListQuestions(ctx context.Context, page, limit int) (*QuestionPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultQuestionPageSize
	}
	if limit > maxQuestionPageSize {
		limit = maxQuestionPageSize
	}

	list, total, err := s.repo.ListQuestions(ctx, page, limit)
	if err != nil {
		return nil, err
	}

	pages := total / limit
	if total%limit != 0 {
		pages++
	}
	return &QuestionPage{Questions: list, Total: total, Page: page, Pages: pages}, nil
}

// AnswerQuestion posts an answer under a question and bumps its counter.
func (s *Service) AnswerQuestion(ctx context.Context, author Author, questionID uuid.UUID, content string) (*Answer, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("answer cannot be empty")
	}
	if len(content) > maxAnswerLen {
		return nil, fmt.Errorf("answer must be at most %d characters", maxAnswerLen)
	}

	if _, err := s.repo.GetQuestion(ctx, questionID); err != nil {
		return nil, err
	}

	a := &Answer{
		QuestionID: questionID,
		UserID:     author.ID,
		Username:   author.Username,
		UserEmail:  author.Email,
		UserImage:  author.ImageURL,
		Content:    content,
	}
	if err := s.repo.CreateAnswer(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// ListAnswers returns a question's answers, oldest first.
func (s *Service) ListAnswers(ctx context.Context, questionID uuid.UUID) ([]*Answer, error) {
	if _, err := s.repo.GetQuestion(ctx, questionID); err != nil {
		return nil, err
	}
	return s.repo.ListAnswers(ctx, questionID)
}

// ReplyToBuild posts a comment under a build and bumps its reply counter.
func (s *Service) ReplyToBuild(ctx context.Context, author Author, buildID uuid.UUID, content string) (*BuildReply, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("reply cannot be empty")
	}
	if len(content) > maxAnswerLen {
		return nil, fmt.Errorf("reply must be at most %d characters", maxAnswerLen)
	}

	if _, err := s.builds.GetByID(ctx, buildID); err != nil {
		return nil, err
	}

	br := &BuildReply{
		BuildID:   buildID,
		UserID:    author.ID,
		Username:  author.Username,
		UserImage: author.ImageURL,
		Content:   content,
	}
	if err := s.repo.CreateBuildReply(ctx, br); err != nil {
		return nil, err
	}
	return br, nil
}

// ListBuildReplies returns a build's replies, oldest first.
func (s *Service) ListBuildReplies(ctx context.Context, buildID uuid.UUID) ([]*BuildReply, error) {
	if _, err := s.builds.GetByID(ctx, buildID); err != nil {
		return nil, err
	}
	return s.repo.ListBuildReplies(ctx, buildID)
}
