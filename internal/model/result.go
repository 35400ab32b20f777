package model

// Stage identifies which pipeline path produced a result.
type Stage string

const (
	StageConsensusValidated Stage = "consensus_validated" // Early stop on validated consensus
	StageFullPipeline       Stage = "full_pipeline"       // Retrieval + correction + consolidation
)

// Confidence is a coarse confidence level attached to a result.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
)

// PipelineResult is the outcome of running the full chain-of-knowledge
// pipeline on one question.
type PipelineResult struct {
	Question   string     `json:"question"`
	Answer     string     `json:"answer"`
	Stage      Stage      `json:"stage"`
	Confidence Confidence `json:"confidence"`
	Domains    []Domain   `json:"domains"`

	Rationales          []Rationale `json:"rationales"`
	CorrectedRationales []string    `json:"corrected_rationales,omitempty"`

	// ModelsUsed records which model served each stage, "none (early
	// stop)" for stages skipped by consensus early stopping.
	ModelsUsed map[string]string `json:"models_used"`
}
