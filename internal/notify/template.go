package notify

import (
	"context"
	"strings"
)

// TemplateSender sends a provider-hosted email template.
// Implementations can be swapped (Brevo, SendGrid, SES) without changing callers.
type TemplateSender interface {
	SendTemplate(ctx context.Context, msg TemplateMessage) error
}

// TemplateMessage is one templated email.
type TemplateMessage struct {
	To         string
	ToName     string
	CC         []string
	TemplateID string
	Params     map[string]any
}

// ParseCCList splits a comma-separated address list, stripping quotes and
// whitespace and dropping empty entries.
func ParseCCList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		addr := strings.TrimSpace(strings.Trim(strings.TrimSpace(part), `"'`))
		if addr != "" {
			out = append(out, addr)
		}
	}
	return out
}
