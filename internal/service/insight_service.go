package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/mindsetu-api/internal/models"
	"github.com/noah-isme/mindsetu-api/pkg/llm"
)

// errUnexpectedShape marks valid JSON whose shape does not match the expected payload.
var errUnexpectedShape = errors.New("model response has an unexpected shape")

var codeFence = regexp.MustCompile("(?s)^```(\\w*)?\\s*\\n?(.*?)\\n?\\s*```$")

const academicPrompt = `
    Given the following academic submission statistics for the institute "%s", which has %d students:
    - On-Time Assignment Submissions: %.1f%%
    - Late Assignment Submissions: %.1f%%
    - Missed Assignment Submissions: %.1f%%

    Please provide an analysis in JSON format. The JSON object should have two keys:
    1.  "academicPressureAnalysis": A string containing a brief (2-4 sentences) analysis of how these submission rates might reflect overall academic pressure on students. Consider potential impacts on student well-being and engagement.
    2.  "studentRetentionTips": An array of 2-3 strings, where each string is an actionable pro-tip for administrators to help mitigate student dropout risks based on these submission patterns.

    Example JSON structure:
    {
      "academicPressureAnalysis": "The submission rates suggest...",
      "studentRetentionTips": [
        "Tip 1...",
        "Tip 2..."
      ]
    }

    Focus on constructive and supportive language. Ensure the output is valid JSON.
`

const dropoutPrompt = `
    As an educational risk assessment AI, analyze the following data for "%s" which has %d students.
    Student Attitude Overview (based on journal entries from %d students):
    - Positive Attitude: %.1f%%
    - Negative Attitude: %.1f%%
    - Neutral/Mixed Attitude: %.1f%%

    Academic Submission Patterns:
    - Assignments On-Time: %.1f%%
    - Assignments Late: %.1f%%
    - Assignments Missed: %.1f%%

    Based on this combined data, provide a student dropout risk analysis in JSON format. The JSON object should have the following keys:
    1. "riskLevel": A string indicating the overall estimated dropout risk level. Choose from: "Low", "Moderate", "High".
    2. "analysisText": A string (2-4 sentences) explaining the risk level, considering both academic pressure (from submission stats) and overall student sentiment (from attitude stats).
    3. "contributingFactors": An array of 2-3 strings listing key factors derived from the data that influence this risk assessment.
    4. "proactiveSuggestions": An array of 2-3 actionable suggestions for the institute administrators to mitigate potential dropout risks.

    Example JSON output:
    {
      "riskLevel": "Moderate",
      "analysisText": "The current data suggests a moderate risk of student dropout. While a majority show positive attitudes, the percentage of missed assignments indicates potential academic stress or disengagement for a segment of students.",
      "contributingFactors": [
        "Notable percentage of missed assignments.",
        "Significant minority of students exhibiting negative attitudes.",
        "Potential imbalance in workload distribution."
      ],
      "proactiveSuggestions": [
        "Implement targeted academic support for students with high missed assignment rates.",
        "Increase availability of counseling services and promote their use.",
        "Survey students about workload and course difficulty to identify pressure points."
      ]
    }

    Ensure the output is valid JSON. Be nuanced and constructive in your analysis.
`

// Static payloads returned with success=false so callers always have something to render.
var (
	academicUnavailable = models.AcademicInsights{
		AcademicPressureAnalysis: "AI analysis is unavailable due to configuration issues. Please review assignment submission patterns manually.",
		StudentRetentionTips:     []string{"Ensure API key is correctly set up to enable AI-powered suggestions."},
	}
	academicMalformed = models.AcademicInsights{
		AcademicPressureAnalysis: "Received an unexpected data format from AI. Manual review is advised.",
		StudentRetentionTips:     []string{"Verify AI configuration and prompt if issues persist."},
	}
	academicFailed = models.AcademicInsights{
		AcademicPressureAnalysis: "Could not retrieve AI analysis due to an error. Please check submission data manually and try again later.",
		StudentRetentionTips:     []string{"Review student support resources.", "Encourage open communication with students about workload."},
	}

	dropoutUnavailable = models.DropoutRiskAnalysis{
		RiskLevel:            models.RiskUnavailable,
		AnalysisText:         "AI-driven dropout risk analysis is offline due to configuration issues.",
		ContributingFactors:  []string{"API key missing or invalid."},
		ProactiveSuggestions: []string{"Ensure the Gemini API key is correctly set up in the environment variables."},
	}
	dropoutMalformed = models.DropoutRiskAnalysis{
		RiskLevel:            models.RiskUnavailable,
		AnalysisText:         "Received an unexpected data format from AI for dropout risk. Manual review is advised.",
		ContributingFactors:  []string{"Verify AI configuration and prompt if issues persist."},
		ProactiveSuggestions: []string{"Check AI model response structure."},
	}
	dropoutFailed = models.DropoutRiskAnalysis{
		RiskLevel:            models.RiskUnavailable,
		AnalysisText:         "Could not retrieve AI analysis for dropout risk due to an error. Please review student data manually.",
		ContributingFactors:  []string{"Potential API connectivity issue.", "High server load on AI provider."},
		ProactiveSuggestions: []string{"Focus on direct student outreach.", "Review individual student performance and mood trends manually."},
	}
)

type instituteStatsProvider interface {
	Attitude(ctx context.Context, institute string) (*models.AttitudeStats, bool, error)
	Assignments(ctx context.Context, institute string) (*models.AssignmentStats, bool, error)
}

// InsightService relays institute aggregates to the language model and returns its structured
// reading. Model problems never fail the call; the result carries a fallback payload instead.
type InsightService struct {
	stats   instituteStatsProvider
	llm     llm.Client
	metrics *MetricsService
	logger  *zap.Logger
}

// NewInsightService constructs an InsightService.
func NewInsightService(stats instituteStatsProvider, client llm.Client, metrics *MetricsService, logger *zap.Logger) *InsightService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InsightService{stats: stats, llm: client, metrics: metrics, logger: logger}
}

// AcademicInsights analyses the submission statistics of an institute.
func (s *InsightService) AcademicInsights(ctx context.Context, institute string) (*models.InsightResult[models.AcademicInsights], error) {
	assignments, _, err := s.stats.Assignments(ctx, institute)
	if err != nil {
		return nil, err
	}
	attitude, _, err := s.stats.Attitude(ctx, institute)
	if err != nil {
		return nil, err
	}
	result := s.GenerateAcademicInsights(ctx, institute, attitude.TotalStudentsInInstitute, *assignments)
	return &result, nil
}

// DropoutRisk resolves both aggregates and asks the model for a dropout risk assessment.
func (s *InsightService) DropoutRisk(ctx context.Context, institute string) (*models.InsightResult[models.DropoutRiskAnalysis], error) {
	assignments, _, err := s.stats.Assignments(ctx, institute)
	if err != nil {
		return nil, err
	}
	attitude, _, err := s.stats.Attitude(ctx, institute)
	if err != nil {
		return nil, err
	}
	result := s.GenerateDropoutRisk(ctx, institute, *attitude, *assignments)
	return &result, nil
}

// GenerateAcademicInsights prompts the model with precomputed submission statistics.
func (s *InsightService) GenerateAcademicInsights(ctx context.Context, institute string, totalStudents int, stats models.AssignmentStats) models.InsightResult[models.AcademicInsights] {
	if s.llm == nil || !s.llm.Enabled() {
		s.metrics.ObserveAICall("academic_insights", AIOutcomeDisabled, 0)
		return models.InsightResult[models.AcademicInsights]{
			Error: "AI insights are currently unavailable. API key not configured.",
			Data:  academicUnavailable,
		}
	}

	prompt := fmt.Sprintf(academicPrompt, institute, totalStudents, stats.OnTimePercent, stats.LatePercent, stats.MissedPercent)
	var parsed models.AcademicInsights
	start := time.Now()
	err := s.generateJSON(ctx, prompt, &parsed)
	if err != nil && !errors.Is(err, errUnexpectedShape) {
		s.metrics.ObserveAICall("academic_insights", AIOutcomeFallback, time.Since(start))
		s.logger.Warn("academic insights generation failed", zap.String("institute", institute), zap.Error(err))
		return models.InsightResult[models.AcademicInsights]{
			Error: "Sorry, I couldn't generate the academic insights right now. Details: " + err.Error(),
			Data:  academicFailed,
		}
	}
	if err != nil || parsed.AcademicPressureAnalysis == "" || len(parsed.StudentRetentionTips) == 0 {
		s.metrics.ObserveAICall("academic_insights", AIOutcomeFallback, time.Since(start))
		s.logger.Warn("academic insights in unexpected format", zap.String("institute", institute), zap.Error(err))
		return models.InsightResult[models.AcademicInsights]{
			Error: "AI returned an unexpected data format for insights.",
			Data:  academicMalformed,
		}
	}
	s.metrics.ObserveAICall("academic_insights", AIOutcomeSuccess, time.Since(start))
	return models.InsightResult[models.AcademicInsights]{Success: true, Data: parsed}
}

// GenerateDropoutRisk prompts the model with precomputed attitude and submission statistics.
func (s *InsightService) GenerateDropoutRisk(ctx context.Context, institute string, attitude models.AttitudeStats, academic models.AssignmentStats) models.InsightResult[models.DropoutRiskAnalysis] {
	if s.llm == nil || !s.llm.Enabled() {
		s.metrics.ObserveAICall("dropout_risk", AIOutcomeDisabled, 0)
		return models.InsightResult[models.DropoutRiskAnalysis]{
			Error: "AI analysis for dropout risk is currently unavailable. API key not configured.",
			Data:  dropoutUnavailable,
		}
	}

	prompt := fmt.Sprintf(dropoutPrompt, institute, attitude.TotalStudentsInInstitute, attitude.AnalyzedStudentCount,
		attitude.PositivePercent, attitude.NegativePercent, attitude.NeutralPercent,
		academic.OnTimePercent, academic.LatePercent, academic.MissedPercent)
	var parsed models.DropoutRiskAnalysis
	start := time.Now()
	err := s.generateJSON(ctx, prompt, &parsed)
	if err != nil && !errors.Is(err, errUnexpectedShape) {
		s.metrics.ObserveAICall("dropout_risk", AIOutcomeFallback, time.Since(start))
		s.logger.Warn("dropout risk generation failed", zap.String("institute", institute), zap.Error(err))
		return models.InsightResult[models.DropoutRiskAnalysis]{
			Error: "Sorry, I couldn't generate the dropout risk analysis right now. Details: " + err.Error(),
			Data:  dropoutFailed,
		}
	}
	if err != nil || parsed.RiskLevel == "" || parsed.AnalysisText == "" || parsed.ContributingFactors == nil || parsed.ProactiveSuggestions == nil {
		s.metrics.ObserveAICall("dropout_risk", AIOutcomeFallback, time.Since(start))
		s.logger.Warn("dropout risk in unexpected format", zap.String("institute", institute), zap.Error(err))
		return models.InsightResult[models.DropoutRiskAnalysis]{
			Error: "AI returned an unexpected data format for dropout risk analysis.",
			Data:  dropoutMalformed,
		}
	}
	s.metrics.ObserveAICall("dropout_risk", AIOutcomeSuccess, time.Since(start))
	return models.InsightResult[models.DropoutRiskAnalysis]{Success: true, Data: parsed}
}

func (s *InsightService) generateJSON(ctx context.Context, prompt string, dest interface{}) error {
	raw, err := s.llm.GenerateJSON(ctx, prompt)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(StripCodeFence(raw)), dest); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return fmt.Errorf("%w: %v", errUnexpectedShape, err)
		}
		return fmt.Errorf("parse model response: %w", err)
	}
	return nil
}

// StripCodeFence removes a surrounding markdown code fence from a model reply.
func StripCodeFence(raw string) string {
	text := strings.TrimSpace(raw)
	if match := codeFence.FindStringSubmatch(text); match != nil && match[2] != "" {
		return strings.TrimSpace(match[2])
	}
	return text
}
