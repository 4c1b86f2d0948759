package driven

// PromptStore provides access to LLM prompt templates.
// Implementations may load prompts from files, embed them in the binary,
// or fetch them from a remote configuration service.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	Reload()
}

// Well-known prompt names. Each is a system prompt without format placeholders;
// the provider appends the task payload itself.
const (
	// PromptSummarize instructs the model to return a summary JSON object.
	PromptSummarize = "summarize"

	// PromptSynthesize instructs the model to return a synthesis JSON object.
	PromptSynthesize = "synthesize"

	// PromptChat instructs the model to answer with citations as JSON.
	PromptChat = "chat"
)
