package review

import (
	"time"

	"customer-portal/internal/model"
)

type demoReview struct {
	id, title, text, author, location, response string
	stars, daysAgo                              int
}

var demoSet = []demoReview{
	{
		id: "demo-1", stars: 5, daysAgo: 7,
		title:    "Rundum perfekter Service!",
		text:     "Von der Beratung bis zur Inbetriebnahme war alles top. Das Team hat sich wirklich Zeit genommen, alles verständlich erklärt und der Installationstermin wurde exakt eingehalten. Unsere Anlage läuft seit 3 Monaten einwandfrei. Volle Empfehlung!",
		author:   "Thomas K.", location: "Bielefeld",
		response: "Vielen Dank, Thomas! Wir freuen uns riesig über Ihr Feedback und wünschen weiterhin viel Sonnenstrom! ☀️",
	},
	{
		id: "demo-2", stars: 5, daysAgo: 14,
		title:  "Schnell, zuverlässig, kompetent",
		text:   "Ich war skeptisch bei so einem großen Projekt, aber bee-doo hat meine Erwartungen übertroffen. Die Monteure waren pünktlich, sauber und haben alles sorgfältig erklärt. Das Kunden-Portal ist sehr übersichtlich. Super Preis-Leistungs-Verhältnis.",
		author: "Sabine M.", location: "Gütersloh",
	},
	{
		id: "demo-3", stars: 5, daysAgo: 21,
		title:    "Bestes Unternehmen für Solaranlagen",
		text:     "Nachdem ich drei Angebote verglichen habe, war bee-doo das überzeugendste. Transparente Preise, kompetente Beratung und eine reibungslose Installation. Die Anlage produziert sogar mehr als prognostiziert. Sehr zu empfehlen!",
		author:   "Michael R.", location: "Herford",
		response: "Toll, das freut uns sehr, Michael! Schön, dass die Anlage so gut läuft. ☀️",
	},
	{
		id: "demo-4", stars: 5, daysAgo: 30,
		title:  "Professionell von Anfang bis Ende",
		text:   "Top Beratung, faire Preise und ein sehr freundliches Installationsteam. Alles wurde genau so umgesetzt wie besprochen. Das Online-Portal macht es einfach, den Ertrag zu verfolgen. Ich würde bee-doo jederzeit weiterempfehlen.",
		author: "Andrea L.", location: "Detmold",
	},
	{
		id: "demo-5", stars: 5, daysAgo: 45,
		title:    "Unkompliziert und schnell!",
		text:     "Innerhalb von 6 Wochen vom ersten Gespräch bis zur fertigen Anlage – das hatte ich so nicht erwartet. Das Team kommuniziert transparent und hält was es verspricht. Sehr empfehlenswert!",
		author:   "Klaus W.", location: "Minden",
		response: "Herzlichen Dank, Klaus! Effizienz ist uns sehr wichtig. Viel Spaß mit Ihrer Anlage! 🌞",
	},
	{
		id: "demo-6", stars: 4, daysAgo: 60,
		title:    "Sehr guter Gesamteindruck",
		text:     "Die Beratung war sehr kompetent und die Installation lief reibungslos. Kleinere Kommunikationsprobleme bei der Terminabsprache, aber insgesamt sehr zufrieden. Die Anlage funktioniert einwandfrei.",
		author:   "Petra B.", location: "Paderborn",
		response: "Danke für Ihr offenes Feedback, Petra! Wir arbeiten ständig an unserer Kommunikation.",
	},
}

// DemoReviews returns the static sample set, dated relative to now.
func DemoReviews(now time.Time) []model.CachedReview {
	out := make([]model.CachedReview, 0, len(demoSet))
	for _, d := range demoSet {
		out = append(out, model.CachedReview{
			ID:             d.id,
			Stars:          d.stars,
			Title:          strPtr(d.title),
			Text:           strPtr(d.text),
			AuthorName:     d.author,
			AuthorLocation: strPtr(d.location),
			CreatedAtTP:    now.AddDate(0, 0, -d.daysAgo),
			Response:       strPtr(d.response),
			CachedAt:       now,
			IsVisible:      true,
		})
	}
	return out
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
