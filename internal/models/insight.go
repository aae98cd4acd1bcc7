package models

// AcademicInsights is the model generated reading of submission statistics.
type AcademicInsights struct {
	AcademicPressureAnalysis string   `json:"academicPressureAnalysis"`
	StudentRetentionTips     []string `json:"studentRetentionTips"`
}

// RiskLevel of a dropout risk analysis. Unavailable marks a fallback payload.
type RiskLevel string

const (
	RiskLow         RiskLevel = "Low"
	RiskModerate    RiskLevel = "Moderate"
	RiskHigh        RiskLevel = "High"
	RiskUnavailable RiskLevel = "Unavailable"
)

// DropoutRiskAnalysis is the model generated dropout assessment.
type DropoutRiskAnalysis struct {
	RiskLevel            RiskLevel `json:"riskLevel"`
	AnalysisText         string    `json:"analysisText"`
	ContributingFactors  []string  `json:"contributingFactors"`
	ProactiveSuggestions []string  `json:"proactiveSuggestions"`
}

// InsightResult always carries Data. When Success is false, Data holds a static fallback
// and Error explains why.
type InsightResult[T any] struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Data    T      `json:"data"`
}
