package llm

import (
	"fmt"
	"strings"
)

// Prompt templates for every pipeline stage. Kept in one place so the
// exact prompt text is easy to audit and stable for the response cache.

// ReasoningPrompt asks for one chain-of-thought rationale.
func ReasoningPrompt(question string) string {
	return fmt.Sprintf(`You are a helpful assistant. Answer the following question step by step.

Question: %s

Think about what information is needed to answer this question. Break down the problem and provide your reasoning.

Answer:`, question)
}

// DomainPrompt asks which knowledge domains apply to the question.
func DomainPrompt(question string) string {
	return fmt.Sprintf(`Identify the knowledge domains relevant to answer this question.

Available domains: [factual, medical, physics, biology]

Question: %s

Relevant domains (select from the list):`, question)
}

// SPARQLPrompt converts a rationale sentence into a Wikidata query.
func SPARQLPrompt(sentence string) string {
	return fmt.Sprintf(`Convert this sentence to a SPARQL query for Wikidata. The query should retrieve relevant entities and facts.

Sentence: %s

SPARQL Query:`, sentence)
}

// MedicalPrompt extracts medical terms from a rationale sentence.
func MedicalPrompt(sentence string) string {
	return fmt.Sprintf(`Extract key medical information from this sentence:

Sentence: %s

Key medical terms and concepts:`, sentence)
}

// NaturalQueryPrompt extracts a search query from a rationale sentence.
func NaturalQueryPrompt(sentence string) string {
	return fmt.Sprintf(`Extract the main search query from this sentence:

Sentence: %s

Search query:`, sentence)
}

// CorrectionPrompt asks for a rationale rewrite grounded in evidence.
// Prior corrected rationales, when present, enable progressive
// correction: later corrections may reference earlier ones.
func CorrectionPrompt(original, knowledge, priorContext string) string {
	var sb strings.Builder
	if priorContext != "" {
		sb.WriteString(priorContext)
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, `Given the supporting knowledge, correct or improve the following rationale to make it more accurate.

Original Rationale: %s

Supporting Knowledge:
%s

Corrected Rationale:`, original, knowledge)
	return sb.String()
}

// ConsolidationPrompt merges corrected rationales into one terse answer.
func ConsolidationPrompt(question, reasoningSteps string) string {
	return fmt.Sprintf(`Based on the following reasoning steps, provide a concise final answer to the question.

Question: %s

Reasoning steps:
%s

IMPORTANT: Provide ONLY the answer, nothing else.
- For multiple choice (A, B, C, D): Provide only the letter.
- For factual questions: Provide only the specific fact or entity name.
- Do NOT include explanations, reasoning, or additional text.

Final Answer:`, question, reasoningSteps)
}

// VerificationPrompt is the claim-specific consolidation prompt with a
// three-way label output.
func VerificationPrompt(claim, reasoningSteps string) string {
	return fmt.Sprintf(`Based on the following reasoning steps, decide whether the claim is supported.

%s

Reasoning steps:
%s

IMPORTANT: Respond with exactly one label, nothing else.
- "SUPPORTS" if the claim is supported by the reasoning.
- "REFUTES" if the claim is refuted.
- "NOT ENOUGH INFO" if there is not enough information.

Final Answer:`, claim, reasoningSteps)
}

// ValidationPrompt asks for a yes/no judgment on whether the consensus
// answer actually addresses the question. Gates early stopping.
func ValidationPrompt(question, answer string) string {
	return fmt.Sprintf(`Does the following answer directly and plausibly address the question? Reply with only "yes" or "no".

Question: %s

Answer: %s

Reply:`, question, answer)
}

// RationaleTranscript numbers a list of rationales for use inside
// correction and consolidation prompts.
func RationaleTranscript(rationales []string) string {
	var sb strings.Builder
	for i, r := range rationales {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, r)
	}
	return sb.String()
}

// priorContextHeader introduces previously corrected rationales.
const priorContextHeader = "Previous corrected reasoning steps:\n"

// PriorContext renders corrected rationales as a running transcript for
// progressive correction. Empty when none exist yet.
func PriorContext(corrected []string) string {
	if len(corrected) == 0 {
		return ""
	}
	return priorContextHeader + RationaleTranscript(corrected)
}
