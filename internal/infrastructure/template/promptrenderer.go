// Package template renders the upgrade prompts shown in place of gated content.
package template

import (
	"bytes"
	"fmt"
	"strings"
	texttemplate "text/template"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/vendora-inc/vendora/internal/shared/logger"
)

type PromptKind string

const (
	// PromptExpired replaces a route whose caller has no active period.
	PromptExpired PromptKind = "expired"
	// PromptUpgrade replaces a feature or route that needs a higher tier.
	PromptUpgrade PromptKind = "upgrade"
)

const defaultExpiredMarkdown = `## Your access has ended

{{if .TrialEnded}}Your free trial is over.{{else}}Your subscription is no longer active.{{end}}
Choose a plan to keep using **{{.Target}}**.`

const defaultUpgradeMarkdown = `## Upgrade to {{.RequiredTier}}

**{{.Target}}** is part of the {{.RequiredTier}} plan. You are on {{.CurrentTier}}.
{{if gt .TrialDaysRemaining 0}}Your trial ends in {{.TrialDaysRemaining}} day(s).{{end}}`

// PromptData fills a prompt template.
type PromptData struct {
	Target             string
	RequiredTier       string
	CurrentTier        string
	TrialDaysRemaining int
	TrialEnded         bool
}

// Prompt is the rendered, sanitized prompt.
type Prompt struct {
	Kind         PromptKind `json:"kind"`
	RequiredTier string     `json:"required_tier,omitempty"`
	CurrentTier  string     `json:"current_tier"`
	HTML         string     `json:"html"`
}

type PromptRenderer struct {
	md        goldmark.Markdown
	policy    *bluemonday.Policy
	templates map[PromptKind]*texttemplate.Template
	logger    logger.Interface
}

// NewPromptRenderer parses the prompt copy. Empty overrides keep the built-in copy.
func NewPromptRenderer(expiredMarkdown, upgradeMarkdown string, log logger.Interface) (*PromptRenderer, error) {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.Strikethrough,
			extension.Linkify,
		),
		goldmark.WithRendererOptions(
			html.WithHardWraps(),
			html.WithXHTML(),
		),
	)

	r := &PromptRenderer{
		md:        md,
		policy:    bluemonday.UGCPolicy(),
		templates: make(map[PromptKind]*texttemplate.Template, 2),
		logger:    log.Named("template.prompt"),
	}

	sources := map[PromptKind]string{
		PromptExpired: firstNonEmpty(expiredMarkdown, defaultExpiredMarkdown),
		PromptUpgrade: firstNonEmpty(upgradeMarkdown, defaultUpgradeMarkdown),
	}
	for kind, src := range sources {
		tmpl, err := texttemplate.New(string(kind)).Option("missingkey=error").Parse(src)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s prompt: %w", kind, err)
		}
		r.templates[kind] = tmpl
	}
	return r, nil
}

func (r *PromptRenderer) Render(kind PromptKind, data PromptData) (Prompt, error) {
	tmpl, ok := r.templates[kind]
	if !ok {
		return Prompt{}, fmt.Errorf("unknown prompt kind %q", kind)
	}

	var markdown bytes.Buffer
	if err := tmpl.Execute(&markdown, data); err != nil {
		return Prompt{}, fmt.Errorf("failed to execute %s prompt: %w", kind, err)
	}

	var out bytes.Buffer
	if err := r.md.Convert(markdown.Bytes(), &out); err != nil {
		return Prompt{}, fmt.Errorf("failed to convert prompt markdown: %w", err)
	}

	return Prompt{
		Kind:         kind,
		RequiredTier: data.RequiredTier,
		CurrentTier:  data.CurrentTier,
		HTML:         strings.TrimSpace(r.policy.Sanitize(out.String())),
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
