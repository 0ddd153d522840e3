package engine

// Refusal and failure reasons. Refusals are conversational outcomes: the
// pipeline worked, the answer is a polite message. Failures mean the system
// itself could not serve the query.
const (
	RefusalOutOfDomain         = "out_of_domain"
	RefusalInsufficientContext = "insufficient_follow_up_context"
	RefusalNoRelevantContext   = "no_relevant_context"

	FailureIndexUnavailable = "index_unavailable"
	FailureInternal         = "internal"
)

const (
	msgOutOfDomain = "⚠️ I can only provide information about healthcare and medical topics. Please ask me about health, symptoms, treatments, or medical conditions."

	msgInsufficientContext = "I cannot understand your question. Can you please ask me anything about healthcare-related topics?"

	msgNoRelevantContext = "I couldn't find specific information about that in my medical knowledge base. Please try rephrasing your question or ask about a different medical topic."

	msgIndexUnavailable = "The medical knowledge base is not available right now. Please try again once it has been initialized."

	msgInternal = "Something went wrong while processing your question. Please try again."
)
