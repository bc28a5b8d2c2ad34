package email

import (
	"fmt"
	"html/template"
	"strings"
	"sync"
)

// TemplateManager хранит тему и HTML-шаблон для каждого вида письма
type TemplateManager struct {
	templates map[Type]*template.Template
	subjects  map[Type]*template.Template
	mutex     sync.RWMutex
}

// NewTemplateManager создает менеджер со встроенными шаблонами
func NewTemplateManager() *TemplateManager {
	tm := &TemplateManager{
		templates: make(map[Type]*template.Template),
		subjects:  make(map[Type]*template.Template),
	}
	for t, b := range builtin {
		if err := tm.AddTemplate(t, b.subject, b.body); err != nil {
			panic(err)
		}
	}
	return tm
}

// Render возвращает тему и тело письма
func (tm *TemplateManager) Render(emailType Type, vars map[string]string) (string, string, error) {
	tm.mutex.RLock()
	body, ok := tm.templates[emailType]
	subject := tm.subjects[emailType]
	tm.mutex.RUnlock()

	if !ok {
		return "", "", fmt.Errorf("template not found: %s", emailType)
	}

	var subj, html strings.Builder
	if err := subject.Execute(&subj, vars); err != nil {
		return "", "", fmt.Errorf("failed to execute subject: %w", err)
	}
	if err := body.Execute(&html, vars); err != nil {
		return "", "", fmt.Errorf("failed to execute template: %w", err)
	}
	return subj.String(), html.String(), nil
}

// AddTemplate добавляет или заменяет шаблон
func (tm *TemplateManager) AddTemplate(emailType Type, subject, body string) error {
	subjTpl, err := template.New(string(emailType) + "_subject").Option("missingkey=zero").Parse(subject)
	if err != nil {
		return fmt.Errorf("failed to parse subject: %w", err)
	}
	bodyTpl, err := template.New(string(emailType)).Option("missingkey=zero").Parse(body)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	tm.mutex.Lock()
	tm.templates[emailType] = bodyTpl
	tm.subjects[emailType] = subjTpl
	tm.mutex.Unlock()
	return nil
}

type builtinTemplate struct {
	subject string
	body    string
}

const layoutOpen = `<div style="font-family:Arial,sans-serif;max-width:600px;margin:0 auto">`
const layoutClose = `<p style="color:#888;font-size:12px">HR Portal</p></div>`

var builtin = map[Type]builtinTemplate{
	TypeNotification: {
		subject: `{{.title}}`,
		body: layoutOpen + `<h2>{{.title}}</h2><p>Hello {{.user_name}},</p><p>{{.message}}</p>` +
			`{{if .action_url}}<p><a href="{{.action_url}}">{{if .action_label}}{{.action_label}}{{else}}Open{{end}}</a></p>{{end}}` +
			layoutClose,
	},
	TypeTicketReply: {
		subject: `New reply on ticket "{{.subject}}"`,
		body: layoutOpen + `<p>Hello {{.user_name}},</p><p>{{.sender_name}} replied to your support ticket <b>{{.subject}}</b>:</p>` +
			`<blockquote>{{.message}}</blockquote>{{if .ticket_url}}<p><a href="{{.ticket_url}}">View ticket</a></p>{{end}}` +
			layoutClose,
	},
	TypeTicketStatus: {
		subject: `Ticket "{{.subject}}" is now {{.status}}`,
		body: layoutOpen + `<p>Hello {{.user_name}},</p><p>Your support ticket <b>{{.subject}}</b> changed status to <b>{{.status}}</b>.</p>` +
			`{{if .resolution_notes}}<p>{{.resolution_notes}}</p>{{end}}{{if .ticket_url}}<p><a href="{{.ticket_url}}">View ticket</a></p>{{end}}` +
			layoutClose,
	},
}
