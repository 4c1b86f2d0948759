package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/distill/internal/core/domain"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure the active space, the object store and the generation
provider. Settings live in ~/.distill/config.toml; secrets may also come
from DISTILL_LLM_API_KEY and DISTILL_DRIVE_TOKEN.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsLLMCmd = &cobra.Command{
	Use:   "llm",
	Short: "Configure LLM provider",
	Long:  `Configure the LLM provider used to summarise, synthesise and chat.`,
	RunE:  runSettingsLLM,
}

var settingsSpaceCmd = &cobra.Command{
	Use:   "space [space-id]",
	Short: "Set the active space",
	Long: `Set the space used when --space is not given. For the Drive store the
space id is the id of the folder holding the artifacts.`,
	Args: cobra.ExactArgs(1),
	RunE: runSettingsSpace,
}

// llmProviders lists the providers offered by the LLM wizard, in menu order.
var llmProviders = []domain.AIProvider{domain.AIProviderOpenAI, domain.AIProviderAnthropic}

// passwordReader reads a secret from the terminal. Replaced in tests.
var passwordReader = readPassword

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsLLMCmd)
	settingsCmd.AddCommand(settingsSpaceCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	cmd.Println("[Space]")
	cmd.Printf("  ID: %s\n", settings.SpaceID)
	cmd.Println()

	cmd.Println("[Store]")
	cmd.Printf("  Backend: %s\n", settings.Store.Backend)
	if settings.Store.DataDir != "" {
		cmd.Printf("  Data dir: %s\n", settings.Store.DataDir)
	}
	if settings.Store.Backend == domain.StoreDrive {
		if settings.Store.DriveToken != "" {
			cmd.Printf("  Drive token: %s\n", maskAPIKey(settings.Store.DriveToken))
		} else {
			cmd.Printf("  Drive token: (not set)\n")
		}
	}
	cmd.Printf("  Timeout: %s, attempts: %d, backoff: %s\n",
		settings.Store.Timeout, settings.Store.MaxAttempts, settings.Store.Backoff)
	cmd.Println()

	cmd.Println("[LLM]")
	cmd.Printf("  Provider: %s\n", settings.LLM.Provider.Description())
	cmd.Printf("  Model: %s\n", settings.LLM.Model)
	if settings.LLM.BaseURL != "" {
		cmd.Printf("  Base URL: %s\n", settings.LLM.BaseURL)
	}
	if settings.LLM.APIKey != "" {
		cmd.Printf("  API Key: %s\n", maskAPIKey(settings.LLM.APIKey))
	} else {
		cmd.Printf("  API Key: (not set)\n")
	}
	status := "configured"
	if !settings.LLM.IsConfigured() {
		status = "not configured"
	}
	cmd.Printf("  Status: %s\n", status)
	cmd.Println()

	cmd.Println("[Rate Limit]")
	if settings.RateLimit.Limit > 0 {
		cmd.Printf("  %d calls per %s (%s counters)\n",
			settings.RateLimit.Limit, settings.RateLimit.Window, settings.RateLimit.Backend)
	} else {
		cmd.Println("  disabled")
	}
	cmd.Println()

	cmd.Println("[Query]")
	cmd.Printf("  Scan buffer: %d\n", settings.ScanBuffer)
	cmd.Printf("  Citations: max %d, excerpts up to %d chars\n",
		settings.Citations.MaxCitations, settings.Citations.MaxExcerptChars)

	return nil
}

func runSettingsLLM(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	reader := bufio.NewReader(cmd.InOrStdin())
	return configureLLMProvider(cmd, reader)
}

func configureLLMProvider(cmd *cobra.Command, reader *bufio.Reader) error {
	cmd.Println("Select LLM Provider")
	for i, p := range llmProviders {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	input := readLine(reader)
	idx := parseChoice(input, len(llmProviders), 1)
	selectedProvider := llmProviders[idx-1]

	cmd.Print("Enter model name [provider default]: ")
	model := readLine(reader)

	cmd.Print("Enter API key: ")
	apiKey := passwordReader(reader)
	cmd.Println()

	if err := settingsService.SetLLMProvider(selectedProvider, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure LLM provider: %w", err)
	}

	// Validate the configuration by pinging the service
	cmd.Print("Validating configuration... ")
	if err := settingsService.ValidateLLMConfig(); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("LLM configuration validation failed: %w", err)
	}
	cmd.Println("OK")

	if model == "" {
		model = "default model"
	}
	cmd.Printf("LLM provider configured: %s (%s)\n", selectedProvider.Description(), model)
	return nil
}

func runSettingsSpace(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	if err := settingsService.SetSpace(args[0]); err != nil {
		return fmt.Errorf("failed to set space: %w", err)
	}
	cmd.Printf("Active space set to: %s\n", strings.TrimSpace(args[0]))
	return nil
}

// Helper functions.

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

// readPassword reads without echo when stdin is a terminal and falls back
// to a plain line read otherwise.
//
//nolint:errcheck // CLI helper, error ignored for UX
func readPassword(reader io.Reader) string {
	if term.IsTerminal(int(os.Stdin.Fd())) {
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err == nil {
			return string(password)
		}
	}
	br, ok := reader.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(reader)
	}
	input, _ := br.ReadString('\n')
	return strings.TrimSpace(input)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
