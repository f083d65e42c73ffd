package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/genai"

	"github.com/analyticalinvestments/omega-api/internal/api"
	generativeAI "github.com/analyticalinvestments/omega-api/internal/api/generative_ai"
)

// historyWindow caps how many prior turns are replayed to the model.
const historyWindow = 10

var _ ChatService = (*ChatServiceImpl)(nil)

// ChatService runs AI conversations and structured report generation on
// top of persisted chat sessions.
type ChatService interface {
	SendMessage(ctx context.Context, userID uuid.UUID, req ChatRequest) (*ChatResponse, error)
	ListSessions(ctx context.Context, userID uuid.UUID) ([]ChatSession, error)
	GenerateReport(ctx context.Context, topic string) (*Report, error)
}

type ChatServiceImpl struct {
	logger *slog.Logger
	repo   ChatRepo
	ai     *generativeAI.AIClient
}

func NewChatService(repo ChatRepo, ai *generativeAI.AIClient, logger *slog.Logger) *ChatServiceImpl {
	return &ChatServiceImpl{
		logger: logger,
		repo:   repo,
		ai:     ai,
	}
}

// SendMessage appends a user turn, runs the model with the last few turns
// as history, and persists both sides of the exchange.
func (s *ChatServiceImpl) SendMessage(ctx context.Context, userID uuid.UUID, req ChatRequest) (*ChatResponse, error) {
	l := s.logger.With(slog.String("method", "SendMessage"), slog.String("userID", userID.String()))

	session, err := s.resolveSession(ctx, userID, req)
	if err != nil {
		return nil, err
	}

	history := buildHistory(session.Messages)

	reply, err := s.ai.Complete(ctx, history, req.Message)
	if err != nil {
		l.ErrorContext(ctx, "Model completion failed", slog.Any("error", err))
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}

	now := time.Now()
	session.Messages = append(session.Messages,
		Message{Role: "user", Content: req.Message, Timestamp: now},
		Message{Role: "assistant", Content: reply, Timestamp: now},
	)
	if err := s.repo.SaveMessages(ctx, session.ID, session.Messages); err != nil {
		return nil, err
	}

	return &ChatResponse{SessionID: session.ID, Reply: reply}, nil
}

// resolveSession loads the requested session or starts a new one. Sessions
// belong to their creator; requesting someone else's reads as not found.
func (s *ChatServiceImpl) resolveSession(ctx context.Context, userID uuid.UUID, req ChatRequest) (*ChatSession, error) {
	if req.SessionID == "" {
		return s.repo.CreateSession(ctx, userID, deriveTitle(req.Message))
	}

	sessionID, err := uuid.Parse(req.SessionID)
	if err != nil {
		return nil, fmt.Errorf("invalid session id: %w", api.ErrNotFound)
	}
	session, err := s.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.UserID != userID {
		return nil, fmt.Errorf("chat session %s not found: %w", sessionID, api.ErrNotFound)
	}
	return session, nil
}

func (s *ChatServiceImpl) ListSessions(ctx context.Context, userID uuid.UUID) ([]ChatSession, error) {
	return s.repo.ListSessions(ctx, userID)
}

// GenerateReport asks the model for a JSON document with fixed sections and
// decodes it into a Report.
func (s *ChatServiceImpl) GenerateReport(ctx context.Context, topic string) (*Report, error) {
	l := s.logger.With(slog.String("method", "GenerateReport"))

	prompt := fmt.Sprintf(`Generate an investment analysis report on: %s

Respond with a single JSON object with exactly these keys:
"title" (string), "summary" (string), "analysis" (string),
"recommendations" (array of strings), "risks" (array of strings),
"conclusion" (string).`, topic)

	raw, err := s.ai.GenerateJSON(ctx, prompt)
	if err != nil {
		l.ErrorContext(ctx, "Report generation failed", slog.Any("error", err))
		return nil, fmt.Errorf("report generation failed: %w", err)
	}

	var report Report
	if err := json.Unmarshal([]byte(stripFences(raw)), &report); err != nil {
		l.ErrorContext(ctx, "Model returned undecodable report JSON", slog.Any("error", err))
		return nil, errors.New("model returned a malformed report")
	}
	return &report, nil
}

// buildHistory converts the tail of the stored transcript into genai turns.
func buildHistory(messages []Message) []*genai.Content {
	if len(messages) > historyWindow {
		messages = messages[len(messages)-historyWindow:]
	}
	history := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		role := genai.Role(genai.RoleUser)
		if m.Role == "assistant" {
			role = genai.RoleModel
		}
		history = append(history, genai.NewContentFromText(m.Content, role))
	}
	return history
}

// deriveTitle makes a short session title from the opening message.
func deriveTitle(message string) string {
	title := strings.TrimSpace(message)
	if len(title) > 60 {
		title = title[:60]
	}
	if title == "" {
		title = "New conversation"
	}
	return title
}

// stripFences removes markdown code fences some model responses wrap
// around JSON despite the JSON response mode.
func stripFences(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	return strings.TrimSpace(raw)
}
