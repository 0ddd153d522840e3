package orchestrator

import (
	"fmt"
	"strings"

	"github.com/medbot/backend/internal/session"
	"github.com/medbot/backend/internal/vector"
)

// Disclaimer is appended to every answer that does not already carry it.
const Disclaimer = "⚠️ **IMPORTANT DISCLAIMER:** This information is for educational purposes only and should not replace professional medical advice. Always consult with a qualified healthcare professional for diagnosis, treatment, and medical decisions."

const generationSystemPrompt = `You are MedBot, an AI-powered healthcare assistant. Your purpose is to assist users only with healthcare, mental health, psychiatry, medical conditions, symptoms, treatments, anatomy, and evidence-based medical knowledge.

IMPORTANT RULES:
1. Only answer healthcare-related questions
2. If the query is non-medical, politely reject it
3. Always maintain empathetic, professional, and easy-to-understand explanations
4. Provide clear, structured answers with bullet points when appropriate
5. Do not provide personal medical diagnosis or prescriptions
6. Always add: "This is not a substitute for professional medical advice. Please consult a qualified healthcare provider."
7. Keep responses factually correct and aligned with evidence-based medicine
8. Use the retrieved medical knowledge to provide accurate, source-based information`

const enrichmentSystemPrompt = `You are a medical knowledge enrichment specialist. Your task is to enhance a user's medical question with relevant information from medical sources.`

// DefaultSections is the brief skeleton both the enrichment backend and the
// deterministic fallback fill in. The set is configuration, not protocol.
func DefaultSections() []string {
	return []string{
		"Definition and Overview",
		"Causes and Risk Factors",
		"Symptoms and Clinical Presentation",
		"Diagnosis and Testing",
		"Treatment Options",
		"Prevention and Management",
		"Prognosis and Outlook",
		"Additional Resources",
		"When to Seek Medical Help",
		"Patient Education",
	}
}

func formatContext(chunks []vector.Result) string {
	var b strings.Builder
	for i, chunk := range chunks {
		fmt.Fprintf(&b, "--- Source %d: %s (Relevance: %.2f) ---\n%s\n\n",
			i+1, chunk.Source, chunk.Score, chunk.Content)
	}
	return strings.TrimSpace(b.String())
}

func formatHistory(history []session.Turn) string {
	start := len(history) - 3
	if start < 0 {
		start = 0
	}
	recent := history[start:]
	if len(recent) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("Recent conversation:\n")
	for i, turn := range recent {
		content := turn.Content
		if len(content) > 200 {
			content = content[:200] + "..."
		}
		role := "User"
		if turn.Role == session.RoleAssistant {
			role = "Assistant"
		}
		fmt.Fprintf(&b, "%d. %s: %s\n", i+1, role, content)
	}
	return b.String()
}

func uniqueSources(chunks []vector.Result) []Source {
	seen := make(map[string]int)
	var sources []Source

	for _, chunk := range chunks {
		if idx, ok := seen[chunk.Source]; ok {
			if chunk.Score > sources[idx].Relevance {
				sources[idx].Relevance = chunk.Score
			}
			continue
		}
		seen[chunk.Source] = len(sources)
		sources = append(sources, Source{Source: chunk.Source, Relevance: chunk.Score})
	}
	return sources
}

func (o *Orchestrator) enrichmentPrompt(question, contextBlock, historyBlock string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "User Question: %s\n\n", question)
	fmt.Fprintf(&b, "Retrieved Medical Knowledge:\n%s\n\n", contextBlock)
	if historyBlock != "" {
		b.WriteString(historyBlock)
		b.WriteString("\n")
	}

	b.WriteString(`Your task: Analyze the retrieved medical knowledge and create an enriched, comprehensive brief that:
1. Restates the user's question clearly
2. Integrates the most relevant medical information from the sources
3. Highlights key medical concepts, symptoms, treatments, or causes
4. Maintains accuracy and medical terminology
5. Prepares this enriched context for a final medical AI response

Structure the brief under these sections:
`)
	for i, section := range o.sections {
		fmt.Fprintf(&b, "%d. %s\n", i+1, section)
	}

	return b.String()
}

// fallbackBrief is the deterministic Stage A substitute: the same section
// skeleton filled mechanically from the question and raw retrieved context.
func (o *Orchestrator) fallbackBrief(question, contextBlock string, sources []Source) string {
	names := make([]string, 0, len(sources))
	for _, s := range sources {
		names = append(names, s.Source)
	}
	if len(names) > 3 {
		names = names[:3]
	}

	var b strings.Builder
	b.WriteString("Based on comprehensive medical knowledge analysis, here is an enriched medical query:\n\n")
	fmt.Fprintf(&b, "ORIGINAL QUESTION: %s\n\n", question)
	fmt.Fprintf(&b, "ENRICHED MEDICAL CONTEXT:\nThe user is seeking information about a medical condition, symptom, treatment, or health concern. Relevant medical knowledge was retrieved from %d source(s) including %s.\n\n",
		len(sources), strings.Join(names, ", "))
	fmt.Fprintf(&b, "RETRIEVED MEDICAL KNOWLEDGE:\n%s\n\n", contextBlock)
	fmt.Fprintf(&b, "Please provide a comprehensive, evidence-based medical response to: %q\n", question)
	b.WriteString("Cover the following sections where the retrieved knowledge supports them:\n")
	for i, section := range o.sections {
		fmt.Fprintf(&b, "%d. %s\n", i+1, section)
	}

	return b.String()
}

// fallbackAnswer is the deterministic Stage B substitute built directly from
// the retrieved chunks and their relevance scores.
func fallbackAnswer(question string, chunks []vector.Result, sources []Source) string {
	names := make([]string, 0, len(sources))
	for _, s := range sources {
		names = append(names, s.Source)
	}

	keyInfo := formatContext(chunks)
	if len(keyInfo) > 1000 {
		keyInfo = keyInfo[:1000] + "..."
	}

	var b strings.Builder
	b.WriteString("Based on the medical knowledge base, here's what I found regarding your question:\n\n")
	fmt.Fprintf(&b, "**Question:** %s\n\n", question)
	fmt.Fprintf(&b, "**Response:**\nI've found relevant information from %d medical source(s) that address your question. The information comes from the following medical documents: %s.\n\n",
		len(chunks), strings.Join(names, ", "))
	fmt.Fprintf(&b, "**Key Information:**\n%s\n\n", keyInfo)
	b.WriteString("**Sources:**\n")
	for _, chunk := range chunks {
		fmt.Fprintf(&b, "- %s (Relevance: %.2f)\n", chunk.Source, chunk.Score)
	}
	b.WriteString("\nFor medical advice, always consult with qualified healthcare professionals.")

	return b.String()
}
