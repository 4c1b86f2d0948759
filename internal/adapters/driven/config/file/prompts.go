package file

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/custodia-labs/distill/internal/core/ports/driven"
)

// Ensure PromptStore implements the interface.
var _ driven.PromptStore = (*PromptStore)(nil)

// PromptStore loads LLM prompts from user-editable files on disk.
// Prompts are loaded from a configurable directory with fallback to embedded defaults.
//
// The store uses lazy initialisation - files are only created when first accessed,
// not in the constructor. This makes testing easier and avoids unexpected I/O.
type PromptStore struct {
	mu        sync.RWMutex
	promptDir string
	cache     map[string]string
	initOnce  sync.Once
	initErr   error
}

// defaultPrompts contains embedded default prompts.
// These are used when user files don't exist and as the initial content for new files.
//
//nolint:lll // Prompt content is intentionally long and should not be wrapped.
var defaultPrompts = map[string]string{
	driven.PromptSummarize: `You are Distill, an assistant that turns one source document (a call transcript, email thread or meeting notes) into a structured summary.

Respond with a single JSON object and nothing else. Fields:
- "summary" (string, required): a concise prose summary.
- "highlights" (array of strings, required): the key points, most important first.
- "title" (string): a short title if the source has none.
- "contentDateISO" (string, YYYY-MM-DD): the date the source content happened, if stated.
- "topics" (array of strings)
- "entities" (array of {"name", "type"}): organisations, people and products mentioned. Use "org", "person" or "product" for type.
- "decisions" (array of {"text", "dateISO", "owner", "confidence"})
- "openLoops" (array of {"text", "owner", "dueDateISO", "status"}): status is "open" or "closed".
- "risks" (array of {"text", "severity", "likelihood", "owner"}): severity is "low", "medium" or "high".

Only include facts stated in the source. Omit fields you cannot fill.`,

	driven.PromptSynthesize: `You are Distill, an assistant that writes a synthesis across several previously summarised artifacts.

Each context artifact is introduced with its id. Follow the instruction you are given and respond with a single JSON object and nothing else. Fields:
- "synthesis" (string, required): the synthesised prose.
- "citations" (array of {"artifactId", "excerpt"}, required): one entry per claim you rely on. Cite only artifact ids that appear in the context; the excerpt quotes or closely paraphrases that artifact.
- "title" (string): a short title for the synthesis.
- "entities", "decisions", "openLoops", "risks": the same shapes used for summaries, when the synthesis surfaces them.`,

	driven.PromptChat: `You are Distill, a knowledgeable assistant answering questions about a user's summarised calls, emails and meetings.

Answer only from the context artifacts you are given. If the context does not contain the answer, say so plainly.

Respond with a single JSON object and nothing else. Fields:
- "answer" (string, required): the answer in prose.
- "citations" (array of {"artifactId", "excerpt"}, required): the context artifacts that support the answer. Cite only ids that appear in the context.
- "usedArtifactIds" (array of strings): every context artifact you drew on.`,
}

// NewPromptStore creates a new file-based prompt store.
// If promptDir is empty, defaults to ~/.distill/prompts/.
//
// The constructor does not perform any I/O - directory creation and
// file writes happen lazily on first Load() call.
func NewPromptStore(promptDir string) (*PromptStore, error) {
	if promptDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		promptDir = filepath.Join(home, ".distill", "prompts")
	}

	return &PromptStore{
		promptDir: promptDir,
		cache:     make(map[string]string),
	}, nil
}

// Load returns the prompt template for the given name.
// On first call, initialises the prompt directory and creates default files.
// Returns cached value if available, otherwise loads from file.
// Falls back to embedded default if file doesn't exist.
func (s *PromptStore) Load(name string) (string, error) {
	// Ensure directory and defaults exist (lazy init)
	s.initOnce.Do(s.initialise)
	if s.initErr != nil {
		// Fall back to embedded defaults if init failed
		if prompt, ok := defaultPrompts[name]; ok {
			return prompt, nil
		}
		return "", fmt.Errorf("prompt store init failed: %w", s.initErr)
	}

	// Check cache first (read lock)
	s.mu.RLock()
	if prompt, ok := s.cache[name]; ok {
		s.mu.RUnlock()
		return prompt, nil
	}
	s.mu.RUnlock()

	// Load from file (no lock held during I/O)
	prompt, err := s.loadFromFile(name)
	if err != nil {
		// Fall back to embedded default
		if defaultPrompt, ok := defaultPrompts[name]; ok {
			return defaultPrompt, nil
		}
		return "", fmt.Errorf("load prompt %q: %w", name, err)
	}

	// Cache the result (write lock)
	// Use double-check pattern to avoid overwriting concurrent loads
	s.mu.Lock()
	if _, ok := s.cache[name]; !ok {
		s.cache[name] = prompt
	} else {
		// Another goroutine loaded it first, use their value
		prompt = s.cache[name]
	}
	s.mu.Unlock()

	return prompt, nil
}

// Reload clears the prompt cache, forcing fresh loads from disk.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	s.cache = make(map[string]string)
	s.mu.Unlock()
}

// Dir returns the prompt directory path.
func (s *PromptStore) Dir() string {
	return s.promptDir
}

// initialise creates the prompt directory and default files.
// Called once via sync.Once on first Load().
func (s *PromptStore) initialise() {
	// Create directory
	if err := os.MkdirAll(s.promptDir, 0700); err != nil {
		s.initErr = fmt.Errorf("create prompt directory: %w", err)
		return
	}

	// Create default prompt files (only if they don't exist)
	for name, content := range defaultPrompts {
		path := filepath.Join(s.promptDir, name+".txt")
		if _, err := os.Stat(path); os.IsNotExist(err) {
			if err := os.WriteFile(path, []byte(content), 0600); err != nil {
				s.initErr = fmt.Errorf("create default prompt %q: %w", name, err)
				return
			}
		}
	}

	// Create README
	if err := s.createReadme(); err != nil {
		s.initErr = err
	}
}

// loadFromFile reads a prompt from disk.
func (s *PromptStore) loadFromFile(name string) (string, error) {
	path := filepath.Join(s.promptDir, name+".txt")
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// createReadme writes a README file explaining the prompts directory.
func (s *PromptStore) createReadme() error {
	path := filepath.Join(s.promptDir, "README.md")
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		return nil // Already exists or stat error (ignore)
	}

	content := `# Distill Prompts

This directory contains the system prompts sent to the generation provider.

## Files

- ` + "`summarize.txt`" + ` - Turns one source document into a summary artifact
- ` + "`synthesize.txt`" + ` - Writes a cited synthesis across artifacts
- ` + "`chat.txt`" + ` - Answers questions over artifacts with citations

## Customisation

Edit any file to customise generation. Changes take effect on the next
command. Delete a file to restore its default.

Prompts have no placeholders: the task payload is appended as a separate
message. Every prompt must still ask for a single JSON object in the shape
the default describes, otherwise responses fail validation.
`
	return os.WriteFile(path, []byte(content), 0600)
}
