package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	"maps"
	texttemplate "text/template"

	"github.com/fsdevblog/guestmart/internal/domain"
)

type emailTemplate struct {
	subject *texttemplate.Template
	body    *template.Template
}

const layout = `<!DOCTYPE html>
<html><body style="font-family:Arial,sans-serif;background:#f4f4f5;padding:32px">
<div style="max-width:600px;margin:0 auto;background:#fff;border-radius:12px;padding:32px">
<p>Hi {{.name}},</p>
{{template "content" .}}
<p style="color:#71717a;font-size:12px">You received this email because of activity on your account.</p>
</div></body></html>`

// contents тема и тело письма по виду уведомления. Данные берутся из domain.Notification.Data, плюс
// name и app_url.
var contents = map[domain.NotificationKind][2]string{
	domain.NotifyOrderPlaced: {
		"Order Confirmed - {{.order_number}}",
		`<p>Your order <b>{{.order_number}}</b> on {{.website}} has been placed. Total: ${{.amount}}.</p>`,
	},
	domain.NotifyOrderReceived: {
		"New Order - {{.order_number}}",
		`<p>You have a new {{.order_type}} order <b>{{.order_number}}</b> for {{.website}}.
Your earnings: ${{.amount}}.</p><p><a href="{{.app_url}}/publisher/orders">Review the order</a></p>`,
	},
	domain.NotifyOrderAccepted: {
		"Order Accepted - {{.order_number}}",
		`<p>The publisher accepted your order <b>{{.order_number}}</b>.</p>`,
	},
	domain.NotifyOrderPublished: {
		"Order Published - {{.order_number}}",
		`<p>Your order <b>{{.order_number}}</b> is live at <a href="{{.article_url}}">{{.article_url}}</a>.
Please confirm or request a revision before {{.deadline}}.</p>`,
	},
	domain.NotifyOrderCompleted: {
		"Order Completed - {{.order_number}}",
		`<p>Order <b>{{.order_number}}</b> is complete. ${{.amount}} was added to your balance.</p>`,
	},
	domain.NotifyRevisionNeeded: {
		"Revision Requested - {{.order_number}}",
		`<p>The buyer requested a revision for order <b>{{.order_number}}</b>.</p><p>{{.reason}}</p>`,
	},
	domain.NotifyOrderCancelled: {
		"Order Cancelled - {{.order_number}}",
		`<p>Order <b>{{.order_number}}</b> was cancelled.</p>{{with .reason}}<p>Reason: {{.}}</p>{{end}}`,
	},
	domain.NotifyOrderRefunded: {
		"Refund Approved - {{.order_number}}",
		`<p>${{.amount}} for order <b>{{.order_number}}</b> was returned to your wallet.</p>`,
	},
	domain.NotifyDisputeOpened: {
		"Dispute Opened - {{.order_number}}",
		`<p>A dispute was opened for order <b>{{.order_number}}</b>.</p><p>{{.reason}}</p>`,
	},
	domain.NotifyPayoutRequested: {
		"Payout Requested",
		`<p>We received your {{.method}} payout request for ${{.amount}}.</p>`,
	},
	domain.NotifyPayoutPaid: {
		"Payout Processed",
		`<p>Your {{.method}} payout of ${{.amount}} has been sent.</p>`,
	},
	domain.NotifyPayoutRejected: {
		"Payout Rejected",
		`<p>Your payout of ${{.amount}} was rejected and returned to your balance.</p><p>{{.reason}}</p>`,
	},
}

// parseTemplates компилирует шаблоны всех видов уведомлений.
func parseTemplates() (map[domain.NotificationKind]emailTemplate, error) {
	base, err := template.New("layout").Option("missingkey=zero").Parse(layout)
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}

	out := make(map[domain.NotificationKind]emailTemplate, len(contents))
	for kind, c := range contents {
		subject, subjErr := texttemplate.New(string(kind)).Option("missingkey=zero").Parse(c[0])
		if subjErr != nil {
			return nil, fmt.Errorf("parse %s subject: %w", kind, subjErr)
		}
		layoutCopy, cloneErr := base.Clone()
		if cloneErr != nil {
			return nil, fmt.Errorf("clone layout: %w", cloneErr)
		}
		body, bodyErr := layoutCopy.New("content").Parse(c[1])
		if bodyErr != nil {
			return nil, fmt.Errorf("parse %s body: %w", kind, bodyErr)
		}
		out[kind] = emailTemplate{subject: subject, body: body}
	}
	return out, nil
}

// render тема и html тело письма.
func (t emailTemplate) render(data map[string]string) (string, string, error) {
	var subject, body bytes.Buffer
	if err := t.subject.Execute(&subject, data); err != nil {
		return "", "", fmt.Errorf("render subject: %w", err)
	}
	if err := t.body.ExecuteTemplate(&body, "layout", data); err != nil {
		return "", "", fmt.Errorf("render body: %w", err)
	}
	return subject.String(), body.String(), nil
}

func templateData(n domain.Notification, user *domain.User, appURL string) map[string]string {
	data := make(map[string]string, len(n.Data)+2)
	maps.Copy(data, n.Data)
	data["name"] = user.Name
	data["app_url"] = appURL
	return data
}
