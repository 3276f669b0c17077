package notify

import "fmt"

// TemplateKey names a WhatsApp message template. Milestone keys and trigger
// keys share this namespace.
type TemplateKey string

const (
	TemplateConsultation        TemplateKey = "consultation"
	TemplateContract            TemplateKey = "contract"
	TemplateGridApplication     TemplateKey = "grid_application"
	TemplateInstallation        TemplateKey = "installation"
	TemplateCommissioning       TemplateKey = "commissioning"
	TemplateFeedIn              TemplateKey = "feed_in"
	TemplateDocumentReady       TemplateKey = "document_ready"
	TemplateAppointmentReminder TemplateKey = "appointment_reminder"
)

// DefaultTemplate is used when neither the milestone key nor the trigger is known.
const DefaultTemplate = TemplateCommissioning

// TemplateVars is everything a template may interpolate.
type TemplateVars struct {
	Name         string
	Detail       string
	Brand        string
	PortalURL    string
	SupportPhone string
}

type TemplateFunc func(v TemplateVars) string

var Templates = map[TemplateKey]TemplateFunc{
	TemplateConsultation: func(v TemplateVars) string {
		return fmt.Sprintf("☀️ *Hallo %s!*\n\nVielen Dank für Ihr Beratungsgespräch mit %s. Wir freuen uns auf Ihr Projekt!\n\nBei Fragen: %s\nIhr Portal: %s",
			v.Name, v.Brand, v.SupportPhone, v.PortalURL)
	},
	TemplateContract: func(v TemplateVars) string {
		return fmt.Sprintf("📋 *Hallo %s!*\n\nIhr Vertrag ist eingegangen – herzlichen Glückwunsch! Wir starten jetzt mit der Planung Ihrer Solaranlage.\n\nDokumente jetzt im Portal ansehen:\n👉 %s",
			v.Name, v.PortalURL)
	},
	TemplateGridApplication: func(v TemplateVars) string {
		return fmt.Sprintf("📡 *Status-Update für %s*\n\nIhre *Netzanmeldung* wurde eingereicht. Der Netzbetreiber bestätigt in der Regel innerhalb von 2-4 Wochen.\n\nSie werden automatisch informiert. Ihr Portal:\n👉 %s",
			v.Name, v.PortalURL)
	},
	TemplateInstallation: func(v TemplateVars) string {
		return fmt.Sprintf("🔧 *Installationstermin bestätigt!*\n\nHallo %s, Ihr Installationsteam kommt am *%s* ab 08:00 Uhr zu Ihnen.\n\n✅ Bitte stellen Sie sicher, dass das Dach zugänglich ist.\n\nFragen? %s\n👉 %s",
			v.Name, v.Detail, v.SupportPhone, v.PortalURL)
	},
	TemplateCommissioning: func(v TemplateVars) string {
		return fmt.Sprintf("⚡ *Ihre Anlage ist in Betrieb!*\n\nHallo %s, Ihre Solaranlage wurde erfolgreich in Betrieb genommen. Ab sofort produziert Sie sauberen Strom!\n\n☀️ Monitoring jetzt im Portal:\n👉 %s",
			v.Name, v.PortalURL)
	},
	TemplateFeedIn: func(v TemplateVars) string {
		return fmt.Sprintf("💶 *Einspeisung bestätigt!*\n\nHallo %s, der Netzbetreiber hat Ihre Einspeisung bestätigt. Die *Einspeisevergütung* startet jetzt automatisch.\n\n📊 Alle Details im Portal:\n👉 %s",
			v.Name, v.PortalURL)
	},
	TemplateDocumentReady: func(v TemplateVars) string {
		return fmt.Sprintf("📄 *Neues Dokument verfügbar*\n\nHallo %s, \"%s\" wurde in Ihrem Portal hochgeladen.\n\n👉 %s",
			v.Name, v.Detail, v.PortalURL)
	},
	TemplateAppointmentReminder: func(v TemplateVars) string {
		return fmt.Sprintf("⏰ *Terminerinnerung für morgen*\n\nHallo %s, Ihr Installationsteam kommt *morgen, %s* ab 08:00 Uhr.\n\nBitte halten Sie den Dachbereich zugänglich.\n\nFragen? %s",
			v.Name, v.Detail, v.SupportPhone)
	},
}

// ResolveTemplate picks the template for milestoneKey, then trigger, then
// DefaultTemplate. It never fails; fallback reports whether the default was used.
func ResolveTemplate(milestoneKey, trigger string) (key TemplateKey, fn TemplateFunc, fallback bool) {
	for _, k := range []string{milestoneKey, trigger} {
		if k == "" {
			continue
		}
		if fn, ok := Templates[TemplateKey(k)]; ok {
			return TemplateKey(k), fn, false
		}
	}
	return DefaultTemplate, Templates[DefaultTemplate], true
}
