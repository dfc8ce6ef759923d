package mail

import (
	"fmt"
	"html"
	"time"
)

// WelcomeSubject is used for the onboarding welcome email.
const WelcomeSubject = "Welcome to Nabla"

// FollowUpSubject is used for the scheduled trial check-in email.
const FollowUpSubject = "How is your Nabla trial going?"

// WelcomeBody renders the onboarding welcome email. The raw API key appears
// here and nowhere else; only its hash is stored.
func WelcomeBody(name, plan, apiKey string, trialEnd time.Time) string {
	return fmt.Sprintf(`<html><body>
<h2>Welcome to Nabla, %s!</h2>
<p>Your <strong>%s</strong> trial is active until <strong>%s</strong>.</p>
<p>Your API key:</p>
<pre style="background:#f4f4f4;padding:12px;border-radius:4px">%s</pre>
<p>Keep it safe. We only store a hash, so it cannot be shown again.</p>
<p>Pass it in the <code>X-API-Key</code> header on every request.</p>
<p>&mdash; The Atelier Logos team</p>
</body></html>`,
		html.EscapeString(name),
		html.EscapeString(plan),
		trialEnd.Format("January 2, 2006"),
		html.EscapeString(apiKey),
	)
}

// UpgradeSubject is used for the plan confirmation email.
const UpgradeSubject = "Your Nabla subscription is active"

// UpgradeBody renders the confirmation sent once a subscription upgrade has
// been applied to the account.
func UpgradeBody(name, plan string) string {
	return fmt.Sprintf(`<html><body>
<h2>Hi %s,</h2>
<p>Your <strong>%s</strong> subscription is now active on your account.</p>
<p>Everything it unlocks is available immediately, no re-login needed.</p>
<p>&mdash; The Atelier Logos team</p>
</body></html>`,
		html.EscapeString(name),
		html.EscapeString(plan),
	)
}

// FollowUpBody renders the check-in email sent two weeks after onboarding.
func FollowUpBody(name, plan string) string {
	return fmt.Sprintf(`<html><body>
<h2>Hi %s,</h2>
<p>It has been two weeks since you started with <strong>%s</strong>. How is it going?</p>
<p>Reply to this email if anything is unclear or missing. We read everything.</p>
<p>&mdash; The Atelier Logos team</p>
</body></html>`,
		html.EscapeString(name),
		html.EscapeString(plan),
	)
}

// ContactBody renders an inbound contact-form message for the team inbox.
func ContactBody(fromName, fromEmail, message string) string {
	return fmt.Sprintf(`<html><body>
<h3>New contact form message</h3>
<p><strong>From:</strong> %s &lt;%s&gt;</p>
<p>%s</p>
</body></html>`,
		html.EscapeString(fromName),
		html.EscapeString(fromEmail),
		html.EscapeString(message),
	)
}
