package providers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"jobharvest/internal/config"
	"jobharvest/internal/logging"
	"jobharvest/internal/logging/types"
	"jobharvest/pkg/models"
	"jobharvest/pkg/utils"
)

// ClaudeProvider implements the LLM provider interface using Anthropic's Claude
type ClaudeProvider struct {
	client anthropic.Client
	config *config.Config
	logger types.Logger
}

// NewClaudeProvider creates a new Claude provider instance
func NewClaudeProvider(cfg *config.Config) *ClaudeProvider {
	client := anthropic.NewClient(
		option.WithAPIKey(cfg.LLM.APIKey),
	)

	return &ClaudeProvider{
		client: client,
		config: cfg,
		logger: logging.GetGlobalLogger(),
	}
}

// Normalize asks Claude to normalize the raw extraction into the canonical
// job shape, then repairs and defaults whatever comes back.
func (cp *ClaudeProvider) Normalize(ctx context.Context, raw *models.RawExtraction) (*models.Job, error) {
	startTime := time.Now()

	cp.logger.Debug("Starting job normalization with Claude", map[string]interface{}{
		"url":      raw.SourceURL,
		"provider": "claude",
	})

	prompt := cp.buildNormalizationPrompt(raw)

	response, err := cp.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(cp.config.LLM.Model),
		MaxTokens:   int64(cp.config.LLM.MaxTokens),
		Temperature: anthropic.Float(cp.config.LLM.Temperature),
		Messages: []anthropic.MessageParam{{
			Content: []anthropic.ContentBlockParamUnion{{
				OfText: &anthropic.TextBlockParam{Text: prompt},
			}},
			Role: anthropic.MessageParamRoleUser,
		}},
	})
	if err != nil {
		return nil, utils.NewNormalizationError("Claude API call failed", err)
	}

	if len(response.Content) == 0 {
		return nil, utils.NewNormalizationError("empty response from Claude", nil)
	}

	var responseText string
	for _, content := range response.Content {
		textContent := content.AsText()
		responseText = textContent.Text
		break
	}
	if responseText == "" {
		return nil, utils.NewNormalizationError("no text content in Claude response", nil)
	}

	parsed, err := parseModelResponse(responseText)
	if err != nil {
		return nil, utils.NewNormalizationError("response recovery failed", err)
	}

	job := buildJob(parsed, raw, time.Now())

	cp.logger.Info("Job normalization completed", map[string]interface{}{
		"url":             raw.SourceURL,
		"job_title":       job.Title,
		"company":         job.Company,
		"processing_time": time.Since(startTime).String(),
		"provider":        "claude",
	})

	return job, nil
}

// buildNormalizationPrompt creates the prompt for Claude to normalize a posting
func (cp *ClaudeProvider) buildNormalizationPrompt(raw *models.RawExtraction) string {
	content := formatRawContent(raw)

	// Rough estimation of 3 chars per token keeps the request inside limits.
	maxContentLength := cp.config.LLM.MaxTokens * 3
	if len(content) > maxContentLength {
		content = content[:maxContentLength] + "..."
	}

	return fmt.Sprintf(`You are a job posting analyzer. Normalize the extracted job posting content below into a JSON object with exactly these fields:

{
  "title": "string - the job title",
  "company": "string - the hiring company or organization",
  "location": "string - city and country, or 'Remote'",
  "description": "string - a concise summary of the role (2-4 sentences)",
  "job_type": "one of: full_time, part_time, contract, freelance, internship",
  "experience_level": "one of: entry_level, mid_level, senior_level, executive",
  "education_level": "one of: high_school, associate, bachelor, master, doctorate, professional",
  "skills": ["array of specific skills mentioned"],
  "requirements": ["array of required qualifications"],
  "responsibilities": ["array of key duties"],
  "benefits": ["array of benefits and perks"],
  "salary": {"min": 0, "max": 0, "currency": ""},
  "application_deadline": "YYYY-MM-DD or empty string when not stated",
  "contact_info": {"email": "", "phone": "", "website": "", "contact_person": "", "application_instructions": ""}
}

IMPORTANT RULES:
1. Return ONLY valid JSON, no additional text or explanation
2. Use empty string "" / empty array [] / 0 for anything not stated in the content
3. Never invent contact details; only copy ones that appear in the content
4. For the enums, pick the closest allowed value from the lists above
5. The deadline must come from the content itself, never from today's date
6. Salary min and max are integers in the posting's own currency

JOB POSTING CONTENT:
%s`, content)
}

// formatRawContent lays the extraction out as labeled sections so the model
// sees the same structure the selectors found.
func formatRawContent(raw *models.RawExtraction) string {
	var b strings.Builder

	writeSection := func(label, value string) {
		if value != "" {
			fmt.Fprintf(&b, "%s: %s\n", label, value)
		}
	}

	writeSection("URL", raw.SourceURL)
	writeSection("TITLE", raw.Title)
	writeSection("COMPANY", raw.Company)
	writeSection("LOCATION", raw.Location)
	writeSection("SALARY", raw.SalaryText)
	if raw.ApplicationDeadline != nil {
		writeSection("DEADLINE", raw.ApplicationDeadline.Format("2006-01-02"))
	}
	if len(raw.Requirements) > 0 {
		writeSection("REQUIREMENTS", strings.Join(raw.Requirements, "; "))
	}
	if len(raw.Responsibilities) > 0 {
		writeSection("RESPONSIBILITIES", strings.Join(raw.Responsibilities, "; "))
	}
	if len(raw.Benefits) > 0 {
		writeSection("BENEFITS", strings.Join(raw.Benefits, "; "))
	}
	writeSection("CONTACT", raw.ContactInfoText)
	writeSection("HOW TO APPLY", raw.ApplicationInstructions)
	writeSection("DESCRIPTION", raw.Description)

	return b.String()
}

// IsHealthy checks if the Claude provider is healthy and available
func (cp *ClaudeProvider) IsHealthy(ctx context.Context) error {
	if cp.config.LLM.APIKey == "" {
		return fmt.Errorf("Claude API key not configured - set LLM_API_KEY environment variable")
	}

	_, err := cp.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(cp.config.LLM.Model),
		MaxTokens: 16,
		Messages: []anthropic.MessageParam{{
			Content: []anthropic.ContentBlockParamUnion{{
				OfText: &anthropic.TextBlockParam{Text: "Hello"},
			}},
			Role: anthropic.MessageParamRoleUser,
		}},
	})
	if err != nil {
		return fmt.Errorf("Claude API health check failed: %w", err)
	}

	return nil
}

// GetProviderName returns the name of the LLM provider
func (cp *ClaudeProvider) GetProviderName() string {
	return "claude"
}
