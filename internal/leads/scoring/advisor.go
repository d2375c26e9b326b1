// Package scoring asks a language model whether a lead is worth picking up.
// The verdict is advisory and never blocks lead submission.
package scoring

import (
	"context"
	"fmt"
	"strings"

	"sourcing_backend/platform/ai/chatmodel"
	"sourcing_backend/platform/apperr"
	"sourcing_backend/platform/config"
	"sourcing_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"google.golang.org/adk/agent"
	"google.golang.org/adk/agent/llmagent"
	"google.golang.org/adk/runner"
	"google.golang.org/adk/session"
	"google.golang.org/genai"
)

// Input is the lead data the advisor sees.
type Input struct {
	Title         string
	PurchasePrice decimal.Decimal
	RetailPrice   *decimal.Decimal
	Condition     string
	Notes         string
}

// Advisor evaluates a prospective lead.
type Advisor interface {
	Evaluate(ctx context.Context, in Input) (Evaluation, error)
}

// AgentAdvisor runs a single-turn ADK agent over an OpenAI-compatible model.
type AgentAdvisor struct {
	runner         *runner.Runner
	sessionService session.Service
	appName        string
	log            *logger.Logger
}

// NewAgentAdvisor builds the advisor agent.
func NewAgentAdvisor(cfg config.ScoringConfig, log *logger.Logger) (*AgentAdvisor, error) {
	llm := chatmodel.New(chatmodel.Config{
		APIKey:    cfg.GetScoringAPIKey(),
		BaseURL:   cfg.GetScoringBaseURL(),
		Model:     cfg.GetScoringModel(),
		MaxTokens: 300,
	})

	adkAgent, err := llmagent.New(llmagent.Config{
		Name:        "LeadScorer",
		Model:       llm,
		Description: "Reviews second-hand furniture leads and decides whether picking them up for resale is profitable.",
		Instruction: systemPrompt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create ADK agent: %w", err)
	}

	sessionService := session.InMemoryService()
	r, err := runner.New(runner.Config{
		AppName:        "lead_scoring",
		Agent:          adkAgent,
		SessionService: sessionService,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create ADK runner: %w", err)
	}

	return &AgentAdvisor{
		runner:         r,
		sessionService: sessionService,
		appName:        "lead_scoring",
		log:            log,
	}, nil
}

// Evaluate asks the model for a verdict. An answer that cannot be parsed is
// returned as an UNKNOWN verdict with a warning, not as an error.
func (a *AgentAdvisor) Evaluate(ctx context.Context, in Input) (Evaluation, error) {
	userID := "scoring"
	sessionID := uuid.New().String()

	_, err := a.sessionService.Create(ctx, &session.CreateRequest{
		AppName:   a.appName,
		UserID:    userID,
		SessionID: sessionID,
	})
	if err != nil {
		return Evaluation{}, apperr.External("scoring unavailable", err).WithCode("scoring_unavailable")
	}
	defer func() {
		deleteReq := &session.DeleteRequest{AppName: a.appName, UserID: userID, SessionID: sessionID}
		if deleteErr := a.sessionService.Delete(context.WithoutCancel(ctx), deleteReq); deleteErr != nil {
			a.log.Warn("failed to delete scoring session", "session_id", sessionID, "error", deleteErr)
		}
	}()

	userMessage := &genai.Content{
		Role:  "user",
		Parts: []*genai.Part{genai.NewPartFromText(buildPrompt(in))},
	}

	var output strings.Builder
	for event, err := range a.runner.Run(ctx, userID, sessionID, userMessage, agent.RunConfig{StreamingMode: agent.StreamingModeNone}) {
		if err != nil {
			return Evaluation{}, apperr.External("scoring unavailable", err).WithCode("scoring_unavailable")
		}
		if event.Content != nil {
			for _, part := range event.Content.Parts {
				output.WriteString(part.Text)
			}
		}
	}

	eval, err := ParseEvaluation(output.String())
	if err != nil {
		a.log.WithContext(ctx).Warn("scoring response could not be parsed", "error", err, "raw", truncate(output.String(), 500))
		return Evaluation{
			Verdict:   VerdictUnknown,
			Reasoning: truncate(strings.TrimSpace(output.String()), 500),
			Warning:   "the advisor's answer could not be interpreted",
		}, nil
	}
	return eval, nil
}

// Disabled is used when no scoring provider is configured.
type Disabled struct{}

func (Disabled) Evaluate(context.Context, Input) (Evaluation, error) {
	return Evaluation{}, apperr.BadRequest("lead scoring is not configured").WithCode("scoring_disabled")
}

// New returns the agent advisor when configured, otherwise Disabled.
func New(cfg config.ScoringConfig, log *logger.Logger) (Advisor, error) {
	if !cfg.IsScoringEnabled() {
		return Disabled{}, nil
	}
	return NewAgentAdvisor(cfg, log)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

var (
	_ Advisor = (*AgentAdvisor)(nil)
	_ Advisor = Disabled{}
)
